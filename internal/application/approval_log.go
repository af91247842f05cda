package application

import "time"

// ApprovalLog is the append-only audit trail: one immutable entry per
// status transition. Entries are never edited or deleted.
type ApprovalLog struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	ApplicationID  string    `json:"application_id" gorm:"column:application_id;not null;index"`
	ApproverID     string    `json:"approver_id" gorm:"column:approver_id;not null"`
	Action         string    `json:"action" gorm:"not null"`
	Comment        *string   `json:"comment,omitempty"`
	PreviousStatus string    `json:"previous_status" gorm:"column:previous_status;not null"`
	NewStatus      string    `json:"new_status" gorm:"column:new_status;not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at"`
}

func (ApprovalLog) TableName() string {
	return "approval_logs"
}

const (
	ActionSubmitted = "submitted"
	ActionApproved  = "approved"
	ActionRejected  = "rejected"
	ActionOnHold    = "on_hold"
	ActionResumed   = "resumed"
	ActionCompleted = "completed"
)
