package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	errors "github.com/okanehara/travel-approval/internal"
	"github.com/okanehara/travel-approval/internal/auth"
	"github.com/okanehara/travel-approval/internal/core/events"
	"github.com/okanehara/travel-approval/internal/rbac"
)

// ListScope is the role-scoped filter applied to list queries.
type ListScope struct {
	Role         rbac.Role
	UserID       string
	DepartmentID string
}

// StatusPatch describes the narrow set of fields a status transition may
// change, applied atomically together with the status itself.
type StatusPatch struct {
	NewStatus            string
	SubmittedAt          *time.Time
	ApprovedAt           *time.Time
	RejectionReason      *string
	ClearRejectionReason bool
	ClearCurrentApprover bool
}

// Repository defines the data access methods for applications. All
// methods translate store failures into AppErrors at the boundary.
type Repository interface {
	Create(ctx context.Context, app *Application) error
	GetByID(ctx context.Context, id string) (*Application, error)
	ListForScope(ctx context.Context, scope ListScope) ([]*Application, error)
	Update(ctx context.Context, app *Application) error
	// UpdateStatus applies the patch only if the row still holds
	// expectedStatus; a stale expectation yields ErrStatusConflict.
	UpdateStatus(ctx context.Context, id, expectedStatus string, patch StatusPatch) error
	Delete(ctx context.Context, id string) error
}

// LogRepository appends to and reads the approval audit trail.
type LogRepository interface {
	Append(ctx context.Context, entry *ApprovalLog) error
	ListByApplication(ctx context.Context, applicationID string) ([]*ApprovalLog, error)
}

// Service drives applications through the approval state machine. It
// holds no mutable state of its own; every action is a function of the
// current row, the requested action and the acting principal.
type Service struct {
	repo   Repository
	logs   LogRepository
	bus    *events.EventBus
	logger *slog.Logger
}

func NewService(repo Repository, logs LogRepository, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logs:   logs,
		bus:    bus,
		logger: logger,
	}
}

// List returns the applications visible to the principal, newest first.
func (s *Service) List(ctx context.Context, principal *auth.Principal) ([]*Application, error) {
	scope := ListScope{
		Role:   principal.Role,
		UserID: principal.ID,
	}
	if principal.DepartmentID != nil {
		scope.DepartmentID = *principal.DepartmentID
	}

	apps, err := s.repo.ListForScope(ctx, scope)
	if err != nil {
		s.logger.Error("failed to list applications", "error", err, "user_id", principal.ID)
		return nil, err
	}

	return apps, nil
}

// Create starts a new application in draft, stamped with the acting
// principal's identity and department.
func (s *Service) Create(ctx context.Context, principal *auth.Principal, dto CreateApplicationDTO) (*Application, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("application validation failed", "error", err, "user_id", principal.ID)
		return nil, err
	}

	if principal.DepartmentID == nil {
		return nil, errors.NewValidationError("user must belong to a department to create applications", errors.ErrCodeValidationFailed)
	}

	priority := dto.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	now := time.Now()
	app := &Application{
		ID:           uuid.NewString(),
		ApplicantID:  principal.ID,
		DepartmentID: *principal.DepartmentID,
		Title:        dto.Title,
		Type:         dto.Type,
		Status:       StatusDraft,
		TotalAmount:  dto.TotalAmount,
		Priority:     priority,
		Metadata:     dto.Metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, app); err != nil {
		s.logger.Error("failed to create application", "error", err, "user_id", principal.ID)
		return nil, err
	}

	s.logger.Info("application created",
		"application_id", app.ID,
		"user_id", principal.ID,
		"type", app.Type)

	return app, nil
}

// Get returns a single application if the principal may see it.
func (s *Service) Get(ctx context.Context, principal *auth.Principal, id string) (*Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.canView(principal, app) {
		s.logger.Warn("unauthorized access to application",
			"application_id", id,
			"user_id", principal.ID,
			"role", principal.Role)
		return nil, errors.ErrUnauthorizedAccess
	}

	return app, nil
}

// Update patches a draft. Only the applicant may edit, and only while
// the application has not been submitted.
func (s *Service) Update(ctx context.Context, principal *auth.Principal, id string, dto UpdateApplicationDTO) (*Application, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if app.ApplicantID != principal.ID {
		return nil, errors.ErrUnauthorizedAccess
	}
	if !app.IsDraft() {
		return nil, errors.ErrCannotModify
	}

	if dto.Title != nil {
		app.Title = *dto.Title
	}
	if dto.TotalAmount != nil {
		app.TotalAmount = dto.TotalAmount
	}
	if dto.Priority != nil {
		app.Priority = *dto.Priority
	}
	if dto.Metadata != nil {
		app.Metadata = dto.Metadata
	}
	app.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, app); err != nil {
		s.logger.Error("failed to update application", "error", err, "application_id", id)
		return nil, err
	}

	return app, nil
}

// Delete removes a draft. Submitted applications stay in the store for
// the audit trail and any documents or notifications referencing them.
func (s *Service) Delete(ctx context.Context, principal *auth.Principal, id string) error {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if app.ApplicantID != principal.ID && !principal.Role.AtLeast(rbac.RoleAdmin) {
		return errors.ErrUnauthorizedAccess
	}
	if !app.IsDraft() {
		return errors.ErrCannotModify
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete application", "error", err, "application_id", id)
		return err
	}

	s.logger.Info("application deleted", "application_id", id, "user_id", principal.ID)
	return nil
}

// Submit moves a draft to pending. Only the applicant may submit.
func (s *Service) Submit(ctx context.Context, principal *auth.Principal, id string) (*Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if app.ApplicantID != principal.ID {
		return nil, errors.NewAuthorizationError("only the applicant can submit an application", errors.ErrCodeNotApplicant)
	}
	if !app.CanBeSubmitted() {
		return nil, errors.ErrInvalidTransition
	}

	now := time.Now()
	patch := StatusPatch{
		NewStatus:   StatusPending,
		SubmittedAt: &now,
	}

	return s.applyTransition(ctx, app, principal, ActionSubmitted, nil, patch, events.EventTypeApplicationSubmitted)
}

// Approve moves a pending application to approved. Requires approver
// rank or above.
func (s *Service) Approve(ctx context.Context, principal *auth.Principal, id string, comment string) (*Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !principal.Role.AtLeast(rbac.RoleApprover) {
		return nil, errors.ErrRoleRequired
	}
	if !app.CanBeDecided() {
		return nil, errors.ErrInvalidTransition
	}

	now := time.Now()
	patch := StatusPatch{
		NewStatus:            StatusApproved,
		ApprovedAt:           &now,
		ClearCurrentApprover: true,
	}

	var logComment *string
	if strings.TrimSpace(comment) != "" {
		logComment = &comment
	}

	return s.applyTransition(ctx, app, principal, ActionApproved, logComment, patch, events.EventTypeApplicationApproved)
}

// Reject moves a pending application to rejected. The comment becomes
// the rejection reason and must be non-empty.
func (s *Service) Reject(ctx context.Context, principal *auth.Principal, id string, comment string) (*Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !principal.Role.AtLeast(rbac.RoleApprover) {
		return nil, errors.ErrRoleRequired
	}
	if strings.TrimSpace(comment) == "" {
		return nil, errors.ErrCommentRequired
	}
	if !app.CanBeDecided() {
		return nil, errors.ErrInvalidTransition
	}

	patch := StatusPatch{
		NewStatus:            StatusRejected,
		RejectionReason:      &comment,
		ClearCurrentApprover: true,
	}

	return s.applyTransition(ctx, app, principal, ActionRejected, &comment, patch, events.EventTypeApplicationRejected)
}

// Hold parks a pending application on_hold for rework. The comment
// explains what is missing and must be non-empty.
func (s *Service) Hold(ctx context.Context, principal *auth.Principal, id string, comment string) (*Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !principal.Role.AtLeast(rbac.RoleApprover) {
		return nil, errors.ErrRoleRequired
	}
	if strings.TrimSpace(comment) == "" {
		return nil, errors.ErrCommentRequired
	}
	if !app.CanBeDecided() {
		return nil, errors.ErrInvalidTransition
	}

	patch := StatusPatch{
		NewStatus:       StatusOnHold,
		RejectionReason: &comment,
	}

	return s.applyTransition(ctx, app, principal, ActionOnHold, &comment, patch, events.EventTypeApplicationOnHold)
}

// Resume puts an on-hold application back into the pending queue. This
// is an approver action, not an applicant one.
func (s *Service) Resume(ctx context.Context, principal *auth.Principal, id string) (*Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !principal.Role.AtLeast(rbac.RoleApprover) {
		return nil, errors.ErrRoleRequired
	}
	if !app.CanBeResumed() {
		return nil, errors.ErrInvalidTransition
	}

	patch := StatusPatch{
		NewStatus:            StatusPending,
		ClearRejectionReason: true,
	}

	return s.applyTransition(ctx, app, principal, ActionResumed, nil, patch, events.EventTypeApplicationResumed)
}

// Complete marks an approved trip as finished. Terminal; its only
// downstream effect is enabling report document creation.
func (s *Service) Complete(ctx context.Context, principal *auth.Principal, id string) (*Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !principal.Role.AtLeast(rbac.RoleApprover) {
		return nil, errors.ErrRoleRequired
	}
	if !app.CanBeCompleted() {
		return nil, errors.ErrInvalidTransition
	}

	patch := StatusPatch{NewStatus: StatusCompleted}

	return s.applyTransition(ctx, app, principal, ActionCompleted, nil, patch, events.EventTypeApplicationCompleted)
}

// Logs returns the audit trail for an application.
func (s *Service) Logs(ctx context.Context, principal *auth.Principal, id string) ([]*ApprovalLog, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.canView(principal, app) {
		return nil, errors.ErrUnauthorizedAccess
	}

	return s.logs.ListByApplication(ctx, id)
}

// applyTransition persists the status change conditionally on the
// previous status, appends the audit entry and publishes the transition
// event. A concurrent transition surfaces as ErrStatusConflict and
// nothing is written.
func (s *Service) applyTransition(ctx context.Context, app *Application, principal *auth.Principal, action string, comment *string, patch StatusPatch, eventType string) (*Application, error) {
	previousStatus := app.Status

	if err := s.repo.UpdateStatus(ctx, app.ID, previousStatus, patch); err != nil {
		s.logger.Error("status transition failed",
			"error", err,
			"application_id", app.ID,
			"action", action,
			"previous_status", previousStatus)
		return nil, err
	}

	entry := &ApprovalLog{
		ID:             uuid.NewString(),
		ApplicationID:  app.ID,
		ApproverID:     principal.ID,
		Action:         action,
		Comment:        comment,
		PreviousStatus: previousStatus,
		NewStatus:      patch.NewStatus,
		CreatedAt:      time.Now(),
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Error("failed to append approval log", "error", err, "application_id", app.ID)
		return nil, err
	}

	commentValue := ""
	if comment != nil {
		commentValue = *comment
	}
	event := events.NewApplicationTransitionEvent(
		eventType, app.ID, app.ApplicantID, principal.ID,
		action, commentValue, previousStatus, patch.NewStatus)
	if err := s.bus.PublishSync(ctx, event); err != nil {
		s.logger.Error("failed to publish transition event", "error", err, "application_id", app.ID)
	}

	updated, err := s.repo.GetByID(ctx, app.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("application transitioned",
		"application_id", app.ID,
		"action", action,
		"actor_id", principal.ID,
		"previous_status", previousStatus,
		"new_status", patch.NewStatus)

	return updated, nil
}

func (s *Service) canView(principal *auth.Principal, app *Application) bool {
	switch principal.Role {
	case rbac.RoleAdmin:
		return true
	case rbac.RoleDepartmentAdmin:
		return principal.DepartmentID != nil && app.DepartmentID == *principal.DepartmentID
	case rbac.RoleApprover:
		if app.ApplicantID == principal.ID {
			return true
		}
		if app.CurrentApproverID != nil && *app.CurrentApproverID == principal.ID {
			return true
		}
		return principal.DepartmentID != nil && app.DepartmentID == *principal.DepartmentID
	default:
		return app.ApplicantID == principal.ID
	}
}
