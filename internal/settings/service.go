package settings

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/okanehara/travel-approval/internal"
	"github.com/okanehara/travel-approval/internal/auth"
	"github.com/okanehara/travel-approval/internal/core/common/validation"
)

type UpdateSettingsDTO struct {
	DomesticDailyAllowance         *int64 `json:"domestic_daily_allowance,omitempty"`
	DomesticAccommodation          *int64 `json:"domestic_accommodation,omitempty"`
	DomesticTransportation         *int64 `json:"domestic_transportation,omitempty"`
	DomesticAccommodationDisabled  *bool  `json:"domestic_accommodation_disabled,omitempty"`
	DomesticTransportationDisabled *bool  `json:"domestic_transportation_disabled,omitempty"`

	OverseasDailyAllowance         *int64 `json:"overseas_daily_allowance,omitempty"`
	OverseasAccommodation          *int64 `json:"overseas_accommodation,omitempty"`
	OverseasTransportation         *int64 `json:"overseas_transportation,omitempty"`
	OverseasPreparationFee         *int64 `json:"overseas_preparation_fee,omitempty"`
	OverseasAccommodationDisabled  *bool  `json:"overseas_accommodation_disabled,omitempty"`
	OverseasTransportationDisabled *bool  `json:"overseas_transportation_disabled,omitempty"`
	OverseasPreparationFeeDisabled *bool  `json:"overseas_preparation_fee_disabled,omitempty"`

	Currency           *string `json:"currency,omitempty"`
	EmailNotifications *bool   `json:"email_notifications,omitempty"`
	PushNotifications  *bool   `json:"push_notifications,omitempty"`
	ReminderTime       *string `json:"reminder_time,omitempty"`
	ApprovalOnly       *bool   `json:"approval_only,omitempty"`
}

func (dto UpdateSettingsDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("domestic_daily_allowance", dto.DomesticDailyAllowance).NonNegative(errors.ErrCodeInvalidAmount)
	v.Field("domestic_accommodation", dto.DomesticAccommodation).NonNegative(errors.ErrCodeInvalidAmount)
	v.Field("domestic_transportation", dto.DomesticTransportation).NonNegative(errors.ErrCodeInvalidAmount)
	v.Field("overseas_daily_allowance", dto.OverseasDailyAllowance).NonNegative(errors.ErrCodeInvalidAmount)
	v.Field("overseas_accommodation", dto.OverseasAccommodation).NonNegative(errors.ErrCodeInvalidAmount)
	v.Field("overseas_transportation", dto.OverseasTransportation).NonNegative(errors.ErrCodeInvalidAmount)
	v.Field("overseas_preparation_fee", dto.OverseasPreparationFee).NonNegative(errors.ErrCodeInvalidAmount)
	if dto.Currency != nil {
		v.Field("currency", *dto.Currency).Required().MaxLength(3)
	}
	if dto.ReminderTime != nil {
		v.Field("reminder_time", *dto.ReminderTime).Required().Custom(func(value interface{}) *errors.AppError {
			s, _ := value.(string)
			if _, err := time.Parse("15:04:05", s); err != nil {
				return errors.NewValidationFieldError("reminder_time", "reminder_time must be HH:MM:SS", errors.ErrCodeValidationFailed)
			}
			return nil
		})
	}
	return v.Validate()
}

type Repository interface {
	Get(ctx context.Context, userID string) (*Settings, error)
	Upsert(ctx context.Context, s *Settings) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Get returns the caller's settings, falling back to defaults when no
// row has been written yet.
func (s *Service) Get(ctx context.Context, principal *auth.Principal) (*Settings, error) {
	stored, err := s.repo.Get(ctx, principal.ID)
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok && appErr.Type == errors.ErrorTypeNotFound {
			return DefaultSettings(principal.ID), nil
		}
		s.logger.Error("failed to load settings", "error", err, "user_id", principal.ID)
		return nil, err
	}
	return stored, nil
}

// Update merges the patch over the current settings and upserts the
// result, so a first-time save and a later edit take the same path.
func (s *Service) Update(ctx context.Context, principal *auth.Principal, dto UpdateSettingsDTO) (*Settings, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, principal)
	if err != nil {
		return nil, err
	}

	applyInt64(&current.DomesticDailyAllowance, dto.DomesticDailyAllowance)
	applyInt64(&current.DomesticAccommodation, dto.DomesticAccommodation)
	applyInt64(&current.DomesticTransportation, dto.DomesticTransportation)
	applyBool(&current.DomesticAccommodationDisabled, dto.DomesticAccommodationDisabled)
	applyBool(&current.DomesticTransportationDisabled, dto.DomesticTransportationDisabled)

	applyInt64(&current.OverseasDailyAllowance, dto.OverseasDailyAllowance)
	applyInt64(&current.OverseasAccommodation, dto.OverseasAccommodation)
	applyInt64(&current.OverseasTransportation, dto.OverseasTransportation)
	applyInt64(&current.OverseasPreparationFee, dto.OverseasPreparationFee)
	applyBool(&current.OverseasAccommodationDisabled, dto.OverseasAccommodationDisabled)
	applyBool(&current.OverseasTransportationDisabled, dto.OverseasTransportationDisabled)
	applyBool(&current.OverseasPreparationFeeDisabled, dto.OverseasPreparationFeeDisabled)

	applyString(&current.Currency, dto.Currency)
	applyBool(&current.EmailNotifications, dto.EmailNotifications)
	applyBool(&current.PushNotifications, dto.PushNotifications)
	applyString(&current.ReminderTime, dto.ReminderTime)
	applyBool(&current.ApprovalOnly, dto.ApprovalOnly)
	current.UpdatedAt = time.Now()

	if err := s.repo.Upsert(ctx, current); err != nil {
		s.logger.Error("failed to save settings", "error", err, "user_id", principal.ID)
		return nil, err
	}

	s.logger.Info("settings updated", "user_id", principal.ID)
	return current, nil
}

func applyInt64(dst *int64, src *int64) {
	if src != nil {
		*dst = *src
	}
}

func applyBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
