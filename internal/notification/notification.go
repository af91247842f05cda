package notification

import "time"

// Notification is an in-app message for a single user. Notifications
// are immutable apart from the read flag.
type Notification struct {
	ID                   string    `json:"id" gorm:"primaryKey"`
	UserID               string    `json:"user_id" gorm:"column:user_id;not null;index"`
	Channel              string    `json:"channel" gorm:"default:email"`
	Title                string    `json:"title" gorm:"not null"`
	Message              string    `json:"message" gorm:"not null"`
	Category             string    `json:"category" gorm:"default:general"`
	Read                 bool      `json:"read" gorm:"default:false"`
	RelatedApplicationID *string   `json:"related_application_id,omitempty" gorm:"column:related_application_id"`
	CreatedAt            time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

const (
	ChannelEmail = "email"
	ChannelPush  = "push"
)

const (
	CategoryApproval = "approval"
	CategoryReminder = "reminder"
	CategorySystem   = "system"
	CategoryUpdate   = "update"
	CategoryGeneral  = "general"
)

// ListLimit caps how many notifications a single list call returns.
const ListLimit = 50
