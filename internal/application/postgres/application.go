package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/okanehara/travel-approval/internal"
	"github.com/okanehara/travel-approval/internal/application"
	"github.com/okanehara/travel-approval/internal/rbac"
)

type ApplicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// conn binds a query to a bounded per-call context.
func conn(ctx context.Context, db *gorm.DB) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := apperrors.WithTimeout(ctx, 0)
	return db.WithContext(ctx), cancel
}

func (r *ApplicationRepository) Create(ctx context.Context, app *application.Application) error {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	if err := db.Create(app).Error; err != nil {
		return apperrors.NewDataAccessError("failed to create application", err)
	}
	return nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*application.Application, error) {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	var app application.Application
	err := db.Where("id = ?", id).First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrApplicationNotFound
		}
		return nil, apperrors.NewDataAccessError("failed to get application", err)
	}
	return &app, nil
}

// ListForScope narrows the result set by the caller's role: general
// users see their own rows, department admins their department,
// approvers their own plus anything assigned to them or in their
// department, admins everything.
func (r *ApplicationRepository) ListForScope(ctx context.Context, scope application.ListScope) ([]*application.Application, error) {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	query := db.Model(&application.Application{})

	switch scope.Role {
	case rbac.RoleAdmin:
		// unfiltered
	case rbac.RoleDepartmentAdmin:
		query = query.Where("department_id = ?", scope.DepartmentID)
	case rbac.RoleApprover:
		query = query.Where(
			"applicant_id = ? OR current_approver_id = ? OR department_id = ?",
			scope.UserID, scope.UserID, scope.DepartmentID)
	default:
		query = query.Where("applicant_id = ?", scope.UserID)
	}

	var apps []*application.Application
	if err := query.Order("created_at DESC").Find(&apps).Error; err != nil {
		return nil, apperrors.NewDataAccessError("failed to list applications", err)
	}
	return apps, nil
}

func (r *ApplicationRepository) Update(ctx context.Context, app *application.Application) error {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	result := db.Model(&application.Application{}).
		Where("id = ?", app.ID).
		Updates(map[string]interface{}{
			"title":        app.Title,
			"total_amount": app.TotalAmount,
			"priority":     app.Priority,
			"metadata":     app.Metadata,
			"updated_at":   app.UpdatedAt,
		})
	if result.Error != nil {
		return apperrors.NewDataAccessError("failed to update application", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrApplicationNotFound
	}
	return nil
}

// UpdateStatus applies the patch only when the row still holds the
// expected status. Zero rows affected means another actor got there
// first, reported as a status conflict.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id, expectedStatus string, patch application.StatusPatch) error {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	updates := map[string]interface{}{
		"status":     patch.NewStatus,
		"updated_at": time.Now(),
	}
	if patch.SubmittedAt != nil {
		updates["submitted_at"] = patch.SubmittedAt
	}
	if patch.ApprovedAt != nil {
		updates["approved_at"] = patch.ApprovedAt
	}
	if patch.RejectionReason != nil {
		updates["rejection_reason"] = patch.RejectionReason
	}
	if patch.ClearRejectionReason {
		updates["rejection_reason"] = nil
	}
	if patch.ClearCurrentApprover {
		updates["current_approver_id"] = nil
	}

	result := db.Model(&application.Application{}).
		Where("id = ? AND status = ?", id, expectedStatus).
		Updates(updates)
	if result.Error != nil {
		return apperrors.NewDataAccessError("failed to update application status", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&application.Application{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return apperrors.NewDataAccessError("failed to update application status", err)
		}
		if count == 0 {
			return apperrors.ErrApplicationNotFound
		}
		return apperrors.ErrStatusConflict
	}
	return nil
}

func (r *ApplicationRepository) Delete(ctx context.Context, id string) error {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	result := db.Where("id = ?", id).Delete(&application.Application{})
	if result.Error != nil {
		return apperrors.NewDataAccessError("failed to delete application", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrApplicationNotFound
	}
	return nil
}

type ApprovalLogRepository struct {
	db *gorm.DB
}

func NewApprovalLogRepository(db *gorm.DB) *ApprovalLogRepository {
	return &ApprovalLogRepository{db: db}
}

func (r *ApprovalLogRepository) Append(ctx context.Context, entry *application.ApprovalLog) error {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	if err := db.Create(entry).Error; err != nil {
		return apperrors.NewDataAccessError("failed to append approval log", err)
	}
	return nil
}

func (r *ApprovalLogRepository) ListByApplication(ctx context.Context, applicationID string) ([]*application.ApprovalLog, error) {
	db, cancel := conn(ctx, r.db)
	defer cancel()
	var logs []*application.ApprovalLog
	err := db.Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, apperrors.NewDataAccessError("failed to list approval logs", err)
	}
	return logs, nil
}
