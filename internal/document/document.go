package document

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AttachmentList is a set of file URLs stored as a JSON array column.
type AttachmentList []string

func (a AttachmentList) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (a *AttachmentList) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("unsupported attachment list type %T", value)
	}
}

func (a AttachmentList) Contains(url string) bool {
	for _, existing := range a {
		if existing == url {
			return true
		}
	}
	return false
}

// Document is a report tied to a completed trip or expense, moving
// through its own small review lifecycle.
type Document struct {
	ID                   string         `json:"id" gorm:"primaryKey"`
	CreatorID            string         `json:"creator_id" gorm:"column:creator_id;not null;index"`
	DepartmentID         string         `json:"department_id" gorm:"column:department_id;not null;index"`
	RelatedApplicationID *string        `json:"related_application_id,omitempty" gorm:"column:related_application_id"`
	Title                string         `json:"title" gorm:"not null"`
	Type                 string         `json:"type" gorm:"not null"`
	Status               string         `json:"status" gorm:"default:draft"`
	Content              string         `json:"content"`
	Attachments          AttachmentList `json:"attachments" gorm:"column:attachments;type:jsonb"`
	RejectionReason      *string        `json:"rejection_reason,omitempty" gorm:"column:rejection_reason"`
	SubmittedAt          *time.Time     `json:"submitted_at,omitempty" gorm:"column:submitted_at"`
	ReviewedAt           *time.Time     `json:"reviewed_at,omitempty" gorm:"column:reviewed_at"`
	ReviewerID           *string        `json:"reviewer_id,omitempty" gorm:"column:reviewer_id"`
	CreatedAt            time.Time      `json:"created_at" gorm:"column:created_at"`
	UpdatedAt            time.Time      `json:"updated_at" gorm:"column:updated_at"`
}

func (Document) TableName() string {
	return "documents"
}

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

const (
	TypeBusinessReport  = "business_report"
	TypeExpenseReport   = "expense_report"
	TypeAllowanceDetail = "allowance_detail"
	TypeTravelDetail    = "travel_detail"
	TypeGPSLog          = "gps_log"
	TypeMonthlyReport   = "monthly_report"
	TypeAnnualReport    = "annual_report"
)

// Types lists every accepted document type.
var Types = []string{
	TypeBusinessReport,
	TypeExpenseReport,
	TypeAllowanceDetail,
	TypeTravelDetail,
	TypeGPSLog,
	TypeMonthlyReport,
	TypeAnnualReport,
}

func (d *Document) CanBeSubmitted() bool {
	return d.Status == StatusDraft
}

func (d *Document) CanBeReviewed() bool {
	return d.Status == StatusSubmitted
}

func (d *Document) IsEditable() bool {
	return d.Status == StatusDraft || d.Status == StatusSubmitted
}
