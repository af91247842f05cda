package application

import (
	"encoding/json"
	"time"
)

// Application is a trip or expense request moving through the approval
// state machine.
type Application struct {
	ID                string          `json:"id" gorm:"primaryKey"`
	ApplicantID       string          `json:"applicant_id" gorm:"column:applicant_id;not null;index"`
	DepartmentID      string          `json:"department_id" gorm:"column:department_id;not null;index"`
	Title             string          `json:"title" gorm:"not null"`
	Type              string          `json:"type" gorm:"not null"`
	Status            string          `json:"status" gorm:"default:draft;index"`
	TotalAmount       *int64          `json:"total_amount,omitempty" gorm:"column:total_amount"`
	CurrentApproverID *string         `json:"current_approver_id,omitempty" gorm:"column:current_approver_id"`
	SubmittedAt       *time.Time      `json:"submitted_at,omitempty" gorm:"column:submitted_at"`
	ApprovedAt        *time.Time      `json:"approved_at,omitempty" gorm:"column:approved_at"`
	RejectionReason   *string         `json:"rejection_reason,omitempty" gorm:"column:rejection_reason"`
	Priority          string          `json:"priority" gorm:"default:medium"`
	Metadata          json.RawMessage `json:"metadata,omitempty" gorm:"column:metadata;type:jsonb"`
	CreatedAt         time.Time       `json:"created_at" gorm:"column:created_at"`
	UpdatedAt         time.Time       `json:"updated_at" gorm:"column:updated_at"`
}

func (Application) TableName() string {
	return "applications"
}

const (
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusOnHold    = "on_hold"
	StatusCompleted = "completed"
)

const (
	TypeBusinessTripRequest = "business_trip_request"
	TypeExpenseRequest      = "expense_request"
	TypeBusinessReport      = "business_report"
	TypeExpenseReport       = "expense_report"
)

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected, StatusOnHold, StatusCompleted:
		return true
	}
	return false
}

func (a *Application) CanBeSubmitted() bool {
	return a.Status == StatusDraft
}

func (a *Application) CanBeDecided() bool {
	return a.Status == StatusPending
}

func (a *Application) CanBeResumed() bool {
	return a.Status == StatusOnHold
}

func (a *Application) CanBeCompleted() bool {
	return a.Status == StatusApproved
}

func (a *Application) IsDraft() bool {
	return a.Status == StatusDraft
}
