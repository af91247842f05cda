package application

import (
	"encoding/json"

	errors "github.com/okanehara/travel-approval/internal"
	"github.com/okanehara/travel-approval/internal/core/common/validation"
)

// CreateApplicationDTO is the payload for creating a draft. Applicant
// and department are stamped from the acting principal, never taken
// from the payload.
type CreateApplicationDTO struct {
	Title       string          `json:"title"`
	Type        string          `json:"type"`
	TotalAmount *int64          `json:"total_amount,omitempty"`
	Priority    string          `json:"priority,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

func (dto CreateApplicationDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("title", dto.Title).Required().MaxLength(200)
	v.Field("type", dto.Type).Required().
		OneOf(TypeBusinessTripRequest, TypeExpenseRequest, TypeBusinessReport, TypeExpenseReport)
	v.Field("priority", dto.Priority).OneOf(PriorityHigh, PriorityMedium, PriorityLow)
	v.Field("total_amount", dto.TotalAmount).NonNegative(errors.ErrCodeInvalidAmount)
	return v.Validate()
}

// UpdateApplicationDTO is a narrow patch; only drafts accept it and only
// the listed fields can change.
type UpdateApplicationDTO struct {
	Title       *string         `json:"title,omitempty"`
	TotalAmount *int64          `json:"total_amount,omitempty"`
	Priority    *string         `json:"priority,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

func (dto UpdateApplicationDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	if dto.Title != nil {
		v.Field("title", *dto.Title).Required().MaxLength(200)
	}
	if dto.Priority != nil {
		v.Field("priority", *dto.Priority).OneOf(PriorityHigh, PriorityMedium, PriorityLow)
	}
	v.Field("total_amount", dto.TotalAmount).NonNegative(errors.ErrCodeInvalidAmount)
	return v.Validate()
}

// ActionDTO carries the approver's comment for reject/hold actions.
type ActionDTO struct {
	Comment string `json:"comment"`
}
