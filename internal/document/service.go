package document

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	errors "github.com/okanehara/travel-approval/internal"
	"github.com/okanehara/travel-approval/internal/auth"
	"github.com/okanehara/travel-approval/internal/rbac"
)

// ListScope mirrors the application list scoping: own documents for
// general users, department documents for admins and approvers.
type ListScope struct {
	Role         rbac.Role
	UserID       string
	DepartmentID string
}

type Repository interface {
	Create(ctx context.Context, doc *Document) error
	GetByID(ctx context.Context, id string) (*Document, error)
	ListForScope(ctx context.Context, scope ListScope) ([]*Document, error)
	Update(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, id string) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) List(ctx context.Context, principal *auth.Principal) ([]*Document, error) {
	scope := ListScope{
		Role:   principal.Role,
		UserID: principal.ID,
	}
	if principal.DepartmentID != nil {
		scope.DepartmentID = *principal.DepartmentID
	}

	docs, err := s.repo.ListForScope(ctx, scope)
	if err != nil {
		s.logger.Error("failed to list documents", "error", err, "user_id", principal.ID)
		return nil, err
	}
	return docs, nil
}

func (s *Service) Create(ctx context.Context, principal *auth.Principal, dto CreateDocumentDTO) (*Document, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if principal.DepartmentID == nil {
		return nil, errors.NewValidationError("user must belong to a department to create documents", errors.ErrCodeValidationFailed)
	}

	now := time.Now()
	doc := &Document{
		ID:                   uuid.NewString(),
		CreatorID:            principal.ID,
		DepartmentID:         *principal.DepartmentID,
		RelatedApplicationID: dto.RelatedApplicationID,
		Title:                dto.Title,
		Type:                 dto.Type,
		Status:               StatusDraft,
		Content:              dto.Content,
		Attachments:          AttachmentList{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		s.logger.Error("failed to create document", "error", err, "user_id", principal.ID)
		return nil, err
	}

	s.logger.Info("document created", "document_id", doc.ID, "user_id", principal.ID, "type", doc.Type)
	return doc, nil
}

func (s *Service) Get(ctx context.Context, principal *auth.Principal, id string) (*Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canView(principal, doc) {
		return nil, errors.ErrUnauthorizedAccess
	}
	return doc, nil
}

func (s *Service) Update(ctx context.Context, principal *auth.Principal, id string, dto UpdateDocumentDTO) (*Document, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.CreatorID != principal.ID {
		return nil, errors.ErrUnauthorizedAccess
	}
	if doc.Status != StatusDraft {
		return nil, errors.ErrCannotModify
	}

	if dto.Title != nil {
		doc.Title = *dto.Title
	}
	if dto.Content != nil {
		doc.Content = *dto.Content
	}
	doc.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, doc); err != nil {
		s.logger.Error("failed to update document", "error", err, "document_id", id)
		return nil, err
	}
	return doc, nil
}

// Submit moves a draft into review. Only the creator may submit.
func (s *Service) Submit(ctx context.Context, principal *auth.Principal, id string) (*Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.CreatorID != principal.ID {
		return nil, errors.NewAuthorizationError("only the creator can submit a document", errors.ErrCodeNotApplicant)
	}
	if !doc.CanBeSubmitted() {
		return nil, errors.ErrInvalidTransition
	}

	now := time.Now()
	doc.Status = StatusSubmitted
	doc.SubmittedAt = &now
	doc.UpdatedAt = now

	if err := s.repo.Update(ctx, doc); err != nil {
		s.logger.Error("failed to submit document", "error", err, "document_id", id)
		return nil, err
	}

	s.logger.Info("document submitted", "document_id", id, "user_id", principal.ID)
	return doc, nil
}

// Approve closes the review positively. Requires approver rank.
func (s *Service) Approve(ctx context.Context, principal *auth.Principal, id string) (*Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.Role.AtLeast(rbac.RoleApprover) {
		return nil, errors.ErrRoleRequired
	}
	if !doc.CanBeReviewed() {
		return nil, errors.ErrInvalidTransition
	}

	now := time.Now()
	doc.Status = StatusApproved
	doc.ReviewedAt = &now
	doc.ReviewerID = &principal.ID
	doc.RejectionReason = nil
	doc.UpdatedAt = now

	if err := s.repo.Update(ctx, doc); err != nil {
		s.logger.Error("failed to approve document", "error", err, "document_id", id)
		return nil, err
	}

	s.logger.Info("document approved", "document_id", id, "reviewer_id", principal.ID)
	return doc, nil
}

// Reject closes the review negatively. The comment becomes the
// rejection reason and must be non-empty.
func (s *Service) Reject(ctx context.Context, principal *auth.Principal, id string, comment string) (*Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.Role.AtLeast(rbac.RoleApprover) {
		return nil, errors.ErrRoleRequired
	}
	if strings.TrimSpace(comment) == "" {
		return nil, errors.ErrCommentRequired
	}
	if !doc.CanBeReviewed() {
		return nil, errors.ErrInvalidTransition
	}

	now := time.Now()
	doc.Status = StatusRejected
	doc.ReviewedAt = &now
	doc.ReviewerID = &principal.ID
	doc.RejectionReason = &comment
	doc.UpdatedAt = now

	if err := s.repo.Update(ctx, doc); err != nil {
		s.logger.Error("failed to reject document", "error", err, "document_id", id)
		return nil, err
	}

	s.logger.Info("document rejected", "document_id", id, "reviewer_id", principal.ID)
	return doc, nil
}

// AddAttachment records a file URL on the document. Adding a URL that
// is already attached is a no-op.
func (s *Service) AddAttachment(ctx context.Context, principal *auth.Principal, id string, url string) (*Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.CreatorID != principal.ID {
		return nil, errors.ErrUnauthorizedAccess
	}
	if !doc.IsEditable() {
		return nil, errors.ErrCannotModify
	}

	if doc.Attachments.Contains(url) {
		return doc, nil
	}

	doc.Attachments = append(doc.Attachments, url)
	doc.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, doc); err != nil {
		s.logger.Error("failed to add attachment", "error", err, "document_id", id)
		return nil, err
	}
	return doc, nil
}

// RemoveAttachment removes a file URL by value. Removing a URL that is
// not attached is a no-op.
func (s *Service) RemoveAttachment(ctx context.Context, principal *auth.Principal, id string, url string) (*Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.CreatorID != principal.ID {
		return nil, errors.ErrUnauthorizedAccess
	}
	if !doc.IsEditable() {
		return nil, errors.ErrCannotModify
	}

	if !doc.Attachments.Contains(url) {
		return doc, nil
	}

	filtered := make(AttachmentList, 0, len(doc.Attachments))
	for _, existing := range doc.Attachments {
		if existing != url {
			filtered = append(filtered, existing)
		}
	}
	doc.Attachments = filtered
	doc.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, doc); err != nil {
		s.logger.Error("failed to remove attachment", "error", err, "document_id", id)
		return nil, err
	}
	return doc, nil
}

func (s *Service) Delete(ctx context.Context, principal *auth.Principal, id string) error {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.CreatorID != principal.ID && !principal.Role.AtLeast(rbac.RoleAdmin) {
		return errors.ErrUnauthorizedAccess
	}
	if doc.Status != StatusDraft {
		return errors.ErrCannotModify
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) canView(principal *auth.Principal, doc *Document) bool {
	switch principal.Role {
	case rbac.RoleAdmin:
		return true
	case rbac.RoleDepartmentAdmin, rbac.RoleApprover:
		if doc.CreatorID == principal.ID {
			return true
		}
		return principal.DepartmentID != nil && doc.DepartmentID == *principal.DepartmentID
	default:
		return doc.CreatorID == principal.ID
	}
}
