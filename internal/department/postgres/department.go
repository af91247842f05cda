package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/okanehara/travel-approval/internal"
	"github.com/okanehara/travel-approval/internal/department"
)

// conn binds a query to a bounded per-call context.
func conn(ctx context.Context, db *gorm.DB) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := apperrors.WithTimeout(ctx, 0)
	return db.WithContext(ctx), cancel
}

type DepartmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) Create(ctx context.Context, dept *department.Department) error {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	if err := db.Create(dept).Error; err != nil {
		return apperrors.NewDataAccessError("failed to create department", err)
	}
	return nil
}

func (r *DepartmentRepository) GetByID(ctx context.Context, id string) (*department.Department, error) {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	var dept department.Department
	err := db.Where("id = ?", id).First(&dept).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDepartmentNotFound
		}
		return nil, apperrors.NewDataAccessError("failed to get department", err)
	}
	return &dept, nil
}

func (r *DepartmentRepository) List(ctx context.Context) ([]*department.Department, error) {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	var departments []*department.Department
	if err := db.Order("name ASC").Find(&departments).Error; err != nil {
		return nil, apperrors.NewDataAccessError("failed to list departments", err)
	}
	return departments, nil
}

func (r *DepartmentRepository) Update(ctx context.Context, dept *department.Department) error {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	result := db.Model(&department.Department{}).
		Where("id = ?", dept.ID).
		Updates(map[string]interface{}{
			"name":        dept.Name,
			"description": dept.Description,
			"manager_id":  dept.ManagerID,
			"max_members": dept.MaxMembers,
			"is_active":   dept.IsActive,
			"updated_at":  dept.UpdatedAt,
		})
	if result.Error != nil {
		return apperrors.NewDataAccessError("failed to update department", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrDepartmentNotFound
	}
	return nil
}

type InvitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

func (r *InvitationRepository) Create(ctx context.Context, inv *department.Invitation) error {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	if err := db.Create(inv).Error; err != nil {
		return apperrors.NewDataAccessError("failed to create invitation", err)
	}
	return nil
}

func (r *InvitationRepository) GetByID(ctx context.Context, id string) (*department.Invitation, error) {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	var inv department.Invitation
	err := db.Where("id = ?", id).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvitationNotFound
		}
		return nil, apperrors.NewDataAccessError("failed to get invitation", err)
	}
	return &inv, nil
}

func (r *InvitationRepository) GetByToken(ctx context.Context, token string) (*department.Invitation, error) {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	var inv department.Invitation
	err := db.Where("token = ?", token).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvitationNotFound
		}
		return nil, apperrors.NewDataAccessError("failed to get invitation", err)
	}
	return &inv, nil
}

func (r *InvitationRepository) ListByDepartment(ctx context.Context, departmentID string) ([]*department.Invitation, error) {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	var invitations []*department.Invitation
	err := db.Where("department_id = ?", departmentID).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, apperrors.NewDataAccessError("failed to list invitations", err)
	}
	return invitations, nil
}

func (r *InvitationRepository) Update(ctx context.Context, inv *department.Invitation) error {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	result := db.Model(&department.Invitation{}).
		Where("id = ?", inv.ID).
		Update("status", inv.Status)
	if result.Error != nil {
		return apperrors.NewDataAccessError("failed to update invitation", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrInvitationNotFound
	}
	return nil
}

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) Create(ctx context.Context, m *department.Membership) error {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	if err := db.Create(m).Error; err != nil {
		return apperrors.NewDataAccessError("failed to create membership", err)
	}
	return nil
}

func (r *MembershipRepository) GetActive(ctx context.Context, departmentID, userID string) (*department.Membership, error) {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	var m department.Membership
	err := db.Where("department_id = ? AND user_id = ? AND is_active = ?", departmentID, userID, true).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrMembershipNotFound
		}
		return nil, apperrors.NewDataAccessError("failed to get membership", err)
	}
	return &m, nil
}

func (r *MembershipRepository) ListActiveByDepartment(ctx context.Context, departmentID string) ([]*department.Membership, error) {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	var members []*department.Membership
	err := db.Where("department_id = ? AND is_active = ?", departmentID, true).
		Order("joined_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, apperrors.NewDataAccessError("failed to list members", err)
	}
	return members, nil
}

func (r *MembershipRepository) CountActive(ctx context.Context, departmentID string) (int64, error) {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	var count int64
	err := db.Model(&department.Membership{}).
		Where("department_id = ? AND is_active = ?", departmentID, true).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.NewDataAccessError("failed to count members", err)
	}
	return count, nil
}

func (r *MembershipRepository) Update(ctx context.Context, m *department.Membership) error {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	result := db.Model(&department.Membership{}).
		Where("id = ?", m.ID).
		Updates(map[string]interface{}{
			"is_active": m.IsActive,
			"left_at":   m.LeftAt,
		})
	if result.Error != nil {
		return apperrors.NewDataAccessError("failed to update membership", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrMembershipNotFound
	}
	return nil
}
