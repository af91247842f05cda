package department

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

type DepartmentRepository interface {
	Create(ctx context.Context, dept *Department) error
	GetByID(ctx context.Context, id string) (*Department, error)
	List(ctx context.Context) ([]*Department, error)
	Update(ctx context.Context, dept *Department) error
}

type InvitationRepository interface {
	Create(ctx context.Context, inv *Invitation) error
	GetByID(ctx context.Context, id string) (*Invitation, error)
	GetByToken(ctx context.Context, token string) (*Invitation, error)
	ListByDepartment(ctx context.Context, departmentID string) ([]*Invitation, error)
	Update(ctx context.Context, inv *Invitation) error
}

type MembershipRepository interface {
	Create(ctx context.Context, m *Membership) error
	GetActive(ctx context.Context, departmentID, userID string) (*Membership, error)
	ListActiveByDepartment(ctx context.Context, departmentID string) ([]*Membership, error)
	CountActive(ctx context.Context, departmentID string) (int64, error)
	Update(ctx context.Context, m *Membership) error
}

// Service covers department administration: departments, invitations
// and memberships. Every mutating operation requires an admin on an
// Enterprise plan; both conditions are checked, not either.
type Service struct {
	departments DepartmentRepository
	invitations InvitationRepository
	memberships MembershipRepository
	logger      *slog.Logger
}

func NewService(departments DepartmentRepository, invitations InvitationRepository, memberships MembershipRepository, logger *slog.Logger) *Service {
	return &Service{
		departments: departments,
		invitations: invitations,
		memberships: memberships,
		logger:      logger,
	}
}

func (s *Service) authorize(principal *auth.Principal) error {
	if principal.Role != rbac.RoleAdmin {
		return errors.ErrRoleRequired
	}
	if !rbac.CanManageDepartments(principal.Role, principal.Plan) {
		return errors.ErrPlanRequired
	}
	return nil
}

func (s *Service) List(ctx context.Context, principal *auth.Principal) ([]*Department, error) {
	if err := s.authorize(principal); err != nil {
		return nil, err
	}
	return s.departments.List(ctx)
}

func (s *Service) Create(ctx context.Context, principal *auth.Principal, dto CreateDepartmentDTO) (*Department, error) {
	if err := s.authorize(principal); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	maxMembers := dto.MaxMembers
	if maxMembers == 0 {
		maxMembers = DefaultMaxMembers
	}

	now := time.Now()
	dept := &Department{
		ID:          uuid.NewString(),
		Name:        dto.Name,
		Description: dto.Description,
		ManagerID:   dto.ManagerID,
		MaxMembers:  maxMembers,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.departments.Create(ctx, dept); err != nil {
		s.logger.Error("failed to create department", "error", err, "user_id", principal.ID)
		return nil, err
	}

	s.logger.Info("department created", "department_id", dept.ID, "name", dept.Name, "user_id", principal.ID)
	return dept, nil
}

func (s *Service) Get(ctx context.Context, principal *auth.Principal, id string) (*Department, error) {
	if err := s.authorize(principal); err != nil {
		return nil, err
	}
	return s.departments.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, principal *auth.Principal, id string, dto UpdateDepartmentDTO) (*Department, error) {
	if err := s.authorize(principal); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		dept.Name = *dto.Name
	}
	if dto.Description != nil {
		dept.Description = *dto.Description
	}
	if dto.ManagerID != nil {
		dept.ManagerID = dto.ManagerID
	}
	if dto.MaxMembers != nil {
		dept.MaxMembers = *dto.MaxMembers
	}
	dept.UpdatedAt = time.Now()

	if err := s.departments.Update(ctx, dept); err != nil {
		s.logger.Error("failed to update department", "error", err, "department_id", id)
		return nil, err
	}
	return dept, nil
}

// Deactivate soft-deletes a department. Existing applications keep
// their department reference; new invitations are refused.
func (s *Service) Deactivate(ctx context.Context, principal *auth.Principal, id string) error {
	if err := s.authorize(principal); err != nil {
		return err
	}

	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !dept.IsActive {
		return nil
	}

	dept.IsActive = false
	dept.UpdatedAt = time.Now()

	if err := s.departments.Update(ctx, dept); err != nil {
		s.logger.Error("failed to deactivate department", "error", err, "department_id", id)
		return err
	}

	s.logger.Info("department deactivated", "department_id", id, "user_id", principal.ID)
	return nil
}

// Invite creates a tokenized invitation into an active department with
// free capacity.
func (s *Service) Invite(ctx context.Context, principal *auth.Principal, departmentID string, dto InviteDTO) (*Invitation, error) {
	if err := s.authorize(principal); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	dept, err := s.departments.GetByID(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	if !dept.IsActive {
		return nil, errors.ErrDepartmentInactive
	}

	count, err := s.memberships.CountActive(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	if count >= int64(dept.MaxMembers) {
		return nil, errors.ErrDepartmentFull
	}

	token, err := auth.GenerateRandomToken()
	if err != nil {
		return nil, errors.NewInternalError("failed to generate invitation token", err)
	}

	now := time.Now()
	inv := &Invitation{
		ID:           uuid.NewString(),
		DepartmentID: departmentID,
		Email:        strings.ToLower(strings.TrimSpace(dto.Email)),
		Role:         dto.Role,
		Token:        token,
		Status:       InvitationStatusPending,
		InvitedBy:    principal.ID,
		ExpiresAt:    now.Add(InvitationTTL),
		CreatedAt:    now,
	}

	if err := s.invitations.Create(ctx, inv); err != nil {
		s.logger.Error("failed to create invitation", "error", err, "department_id", departmentID)
		return nil, err
	}

	s.logger.Info("invitation created",
		"invitation_id", inv.ID,
		"department_id", departmentID,
		"email", inv.Email,
		"user_id", principal.ID)
	return inv, nil
}

func (s *Service) ListInvitations(ctx context.Context, principal *auth.Principal, departmentID string) ([]*Invitation, error) {
	if err := s.authorize(principal); err != nil {
		return nil, err
	}
	if _, err := s.departments.GetByID(ctx, departmentID); err != nil {
		return nil, err
	}
	return s.invitations.ListByDepartment(ctx, departmentID)
}

// CancelInvitation marks a pending invitation expired. Cancelling an
// already settled invitation is a no-op.
func (s *Service) CancelInvitation(ctx context.Context, principal *auth.Principal, id string) error {
	if err := s.authorize(principal); err != nil {
		return err
	}

	inv, err := s.invitations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status != InvitationStatusPending {
		return nil
	}

	inv.Status = InvitationStatusExpired
	if err := s.invitations.Update(ctx, inv); err != nil {
		s.logger.Error("failed to cancel invitation", "error", err, "invitation_id", id)
		return err
	}

	s.logger.Info("invitation cancelled", "invitation_id", id, "user_id", principal.ID)
	return nil
}

// AcceptInvitation joins the caller to the invited department. The
// invitation must be pending and unexpired, and capacity is rechecked
// at acceptance time.
func (s *Service) AcceptInvitation(ctx context.Context, principal *auth.Principal, token string) (*Membership, error) {
	inv, err := s.invitations.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !inv.IsAcceptable(now) {
		if inv.Status == InvitationStatusPending {
			inv.Status = InvitationStatusExpired
			if updateErr := s.invitations.Update(ctx, inv); updateErr != nil {
				s.logger.Warn("failed to expire stale invitation", "error", updateErr, "invitation_id", inv.ID)
			}
		}
		return nil, errors.ErrInvitationNotFound
	}

	dept, err := s.departments.GetByID(ctx, inv.DepartmentID)
	if err != nil {
		return nil, err
	}
	if !dept.IsActive {
		return nil, errors.ErrDepartmentInactive
	}

	count, err := s.memberships.CountActive(ctx, inv.DepartmentID)
	if err != nil {
		return nil, err
	}
	if count >= int64(dept.MaxMembers) {
		return nil, errors.ErrDepartmentFull
	}

	existing, err := s.memberships.GetActive(ctx, inv.DepartmentID, principal.ID)
	switch {
	case err == nil:
		inv.Status = InvitationStatusAccepted
		if updateErr := s.invitations.Update(ctx, inv); updateErr != nil {
			s.logger.Warn("failed to settle invitation", "error", updateErr, "invitation_id", inv.ID)
		}
		return existing, nil
	case err != errors.ErrMembershipNotFound:
		// A store failure is not "no membership yet".
		return nil, err
	}

	membership := &Membership{
		ID:           uuid.NewString(),
		DepartmentID: inv.DepartmentID,
		UserID:       principal.ID,
		Role:         inv.Role,
		IsActive:     true,
		JoinedAt:     now,
	}
	if err := s.memberships.Create(ctx, membership); err != nil {
		s.logger.Error("failed to create membership", "error", err, "invitation_id", inv.ID)
		return nil, err
	}

	inv.Status = InvitationStatusAccepted
	if err := s.invitations.Update(ctx, inv); err != nil {
		s.logger.Warn("failed to settle invitation", "error", err, "invitation_id", inv.ID)
	}

	s.logger.Info("invitation accepted",
		"invitation_id", inv.ID,
		"department_id", inv.DepartmentID,
		"user_id", principal.ID)
	return membership, nil
}

func (s *Service) ListMembers(ctx context.Context, principal *auth.Principal, departmentID string) ([]*Membership, error) {
	if err := s.authorize(principal); err != nil {
		return nil, err
	}
	if _, err := s.departments.GetByID(ctx, departmentID); err != nil {
		return nil, err
	}
	return s.memberships.ListActiveByDepartment(ctx, departmentID)
}

// RemoveMember soft-removes a user from a department, keeping the
// membership row for history.
func (s *Service) RemoveMember(ctx context.Context, principal *auth.Principal, departmentID, userID string) error {
	if err := s.authorize(principal); err != nil {
		return err
	}

	membership, err := s.memberships.GetActive(ctx, departmentID, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	membership.IsActive = false
	membership.LeftAt = &now

	if err := s.memberships.Update(ctx, membership); err != nil {
		s.logger.Error("failed to remove member", "error", err, "department_id", departmentID, "member_id", userID)
		return err
	}

	s.logger.Info("member removed", "department_id", departmentID, "member_id", userID, "user_id", principal.ID)
	return nil
}
