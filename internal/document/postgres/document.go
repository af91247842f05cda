package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/okanehara/travel-approval/internal"
	"github.com/okanehara/travel-approval/internal/document"
	"github.com/okanehara/travel-approval/internal/rbac"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// conn binds the query to a bounded per-call context.
func (r *DocumentRepository) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := apperrors.WithTimeout(ctx, 0)
	return r.db.WithContext(ctx), cancel
}

func (r *DocumentRepository) Create(ctx context.Context, doc *document.Document) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	if err := db.Create(doc).Error; err != nil {
		return apperrors.NewDataAccessError("failed to create document", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*document.Document, error) {
	db, cancel := r.conn(ctx)
	defer cancel()
	var doc document.Document
	err := db.Where("id = ?", id).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDocumentNotFound
		}
		return nil, apperrors.NewDataAccessError("failed to get document", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListForScope(ctx context.Context, scope document.ListScope) ([]*document.Document, error) {
	db, cancel := r.conn(ctx)
	defer cancel()
	query := db.Model(&document.Document{})

	switch scope.Role {
	case rbac.RoleAdmin:
		// unfiltered
	case rbac.RoleDepartmentAdmin, rbac.RoleApprover:
		query = query.Where("creator_id = ? OR department_id = ?", scope.UserID, scope.DepartmentID)
	default:
		query = query.Where("creator_id = ?", scope.UserID)
	}

	var docs []*document.Document
	if err := query.Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, apperrors.NewDataAccessError("failed to list documents", err)
	}
	return docs, nil
}

func (r *DocumentRepository) Update(ctx context.Context, doc *document.Document) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	result := db.Model(&document.Document{}).
		Where("id = ?", doc.ID).
		Updates(map[string]interface{}{
			"title":            doc.Title,
			"content":          doc.Content,
			"status":           doc.Status,
			"attachments":      doc.Attachments,
			"rejection_reason": doc.RejectionReason,
			"submitted_at":     doc.SubmittedAt,
			"reviewed_at":      doc.ReviewedAt,
			"reviewer_id":      doc.ReviewerID,
			"updated_at":       doc.UpdatedAt,
		})
	if result.Error != nil {
		return apperrors.NewDataAccessError("failed to update document", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	result := db.Where("id = ?", id).Delete(&document.Document{})
	if result.Error != nil {
		return apperrors.NewDataAccessError("failed to delete document", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrDocumentNotFound
	}
	return nil
}
