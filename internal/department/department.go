package department

import "time"

// DefaultMaxMembers caps department size when no explicit limit is set.
const DefaultMaxMembers = 100

// InvitationTTL is how long an invitation stays acceptable.
const InvitationTTL = 7 * 24 * time.Hour

// Department groups users for approval routing. Departments are never
// hard-deleted; deactivation hides them from new activity while
// existing applications keep their reference.
type Department struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	ManagerID   *string   `json:"manager_id,omitempty" gorm:"column:manager_id"`
	MaxMembers  int       `json:"max_members" gorm:"column:max_members;default:100"`
	IsActive    bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Department) TableName() string {
	return "departments"
}

const (
	InvitationStatusPending  = "pending"
	InvitationStatusAccepted = "accepted"
	InvitationStatusExpired  = "expired"
)

// Invitation is a tokenized offer to join a department. Cancelling an
// invitation marks it expired rather than deleting the row.
type Invitation struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	DepartmentID string    `json:"department_id" gorm:"column:department_id;not null;index"`
	Email        string    `json:"email" gorm:"not null"`
	Role         string    `json:"role" gorm:"not null"`
	Token        string    `json:"-" gorm:"uniqueIndex;not null"`
	Status       string    `json:"status" gorm:"default:pending"`
	InvitedBy    string    `json:"invited_by" gorm:"column:invited_by;not null"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"column:expires_at"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Invitation) TableName() string {
	return "invitations"
}

func (i *Invitation) IsAcceptable(now time.Time) bool {
	return i.Status == InvitationStatusPending && now.Before(i.ExpiresAt)
}

// Membership ties a user to a department. Removal is soft: the row
// keeps its join history with is_active false and left_at stamped.
type Membership struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	DepartmentID string     `json:"department_id" gorm:"column:department_id;not null;index"`
	UserID       string     `json:"user_id" gorm:"column:user_id;not null;index"`
	Role         string     `json:"role" gorm:"not null"`
	IsActive     bool       `json:"is_active" gorm:"column:is_active;default:true"`
	JoinedAt     time.Time  `json:"joined_at" gorm:"column:joined_at"`
	LeftAt       *time.Time `json:"left_at,omitempty" gorm:"column:left_at"`
}

func (Membership) TableName() string {
	return "memberships"
}
