package settings

import "time"

// Settings holds per-user allowance rates, split by domestic and
// overseas travel, plus notification preferences. One row per user,
// written with an upsert. Disabled flags let a user keep a rate on
// file while excluding it from calculations.
type Settings struct {
	UserID string `json:"user_id" gorm:"primaryKey;column:user_id"`

	DomesticDailyAllowance         int64 `json:"domestic_daily_allowance" gorm:"column:domestic_daily_allowance;default:0"`
	DomesticAccommodation          int64 `json:"domestic_accommodation" gorm:"column:domestic_accommodation;default:0"`
	DomesticTransportation         int64 `json:"domestic_transportation" gorm:"column:domestic_transportation;default:0"`
	DomesticAccommodationDisabled  bool  `json:"domestic_accommodation_disabled" gorm:"column:domestic_accommodation_disabled;default:false"`
	DomesticTransportationDisabled bool  `json:"domestic_transportation_disabled" gorm:"column:domestic_transportation_disabled;default:false"`

	OverseasDailyAllowance         int64 `json:"overseas_daily_allowance" gorm:"column:overseas_daily_allowance;default:0"`
	OverseasAccommodation          int64 `json:"overseas_accommodation" gorm:"column:overseas_accommodation;default:0"`
	OverseasTransportation         int64 `json:"overseas_transportation" gorm:"column:overseas_transportation;default:0"`
	OverseasPreparationFee         int64 `json:"overseas_preparation_fee" gorm:"column:overseas_preparation_fee;default:0"`
	OverseasAccommodationDisabled  bool  `json:"overseas_accommodation_disabled" gorm:"column:overseas_accommodation_disabled;default:false"`
	OverseasTransportationDisabled bool  `json:"overseas_transportation_disabled" gorm:"column:overseas_transportation_disabled;default:false"`
	OverseasPreparationFeeDisabled bool  `json:"overseas_preparation_fee_disabled" gorm:"column:overseas_preparation_fee_disabled;default:false"`

	Currency           string    `json:"currency" gorm:"default:JPY"`
	EmailNotifications bool      `json:"email_notifications" gorm:"column:email_notifications;default:true"`
	PushNotifications  bool      `json:"push_notifications" gorm:"column:push_notifications;default:true"`
	ReminderTime       string    `json:"reminder_time" gorm:"column:reminder_time;default:09:00:00"`
	ApprovalOnly       bool      `json:"approval_only" gorm:"column:approval_only;default:false"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Settings) TableName() string {
	return "user_settings"
}

// DefaultReminderTime is when the daily submission reminder fires.
const DefaultReminderTime = "09:00:00"

// DefaultSettings is what a user sees before ever saving anything.
func DefaultSettings(userID string) *Settings {
	return &Settings{
		UserID:             userID,
		Currency:           "JPY",
		EmailNotifications: true,
		PushNotifications:  true,
		ReminderTime:       DefaultReminderTime,
	}
}
