package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	errors "github.com/okanehara/travel-approval/internal"
	"github.com/okanehara/travel-approval/internal/auth"
)

// Repository defines the data access methods for notifications.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id string) (*Notification, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	CountUnread(ctx context.Context, userID string) (int64, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List returns the caller's newest notifications, capped at ListLimit.
func (s *Service) List(ctx context.Context, principal *auth.Principal) ([]*Notification, error) {
	notifications, err := s.repo.ListByUser(ctx, principal.ID, ListLimit)
	if err != nil {
		s.logger.Error("failed to list notifications", "error", err, "user_id", principal.ID)
		return nil, err
	}
	return notifications, nil
}

// UnreadCount returns how many of the caller's notifications are unread.
func (s *Service) UnreadCount(ctx context.Context, principal *auth.Principal) (int64, error) {
	count, err := s.repo.CountUnread(ctx, principal.ID)
	if err != nil {
		s.logger.Error("failed to count unread notifications", "error", err, "user_id", principal.ID)
		return 0, err
	}
	return count, nil
}

// MarkRead flips one notification to read. Marking an already-read
// notification is a no-op, not an error.
func (s *Service) MarkRead(ctx context.Context, principal *auth.Principal, id string) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != principal.ID {
		return errors.ErrUnauthorizedAccess
	}
	if n.Read {
		return nil
	}
	return s.repo.MarkRead(ctx, id)
}

// MarkAllRead flips every unread notification for the caller.
func (s *Service) MarkAllRead(ctx context.Context, principal *auth.Principal) error {
	if err := s.repo.MarkAllRead(ctx, principal.ID); err != nil {
		s.logger.Error("failed to mark notifications read", "error", err, "user_id", principal.ID)
		return err
	}
	return nil
}

// Notify creates a notification for a user. Used by event handlers and
// admin flows rather than exposed directly over HTTP. An empty channel
// falls back to email.
func (s *Service) Notify(ctx context.Context, userID, channel, title, message, category string, relatedApplicationID *string) (*Notification, error) {
	if channel == "" {
		channel = ChannelEmail
	}
	if category == "" {
		category = CategoryGeneral
	}
	n := &Notification{
		ID:                   uuid.NewString(),
		UserID:               userID,
		Channel:              channel,
		Title:                title,
		Message:              message,
		Category:             category,
		RelatedApplicationID: relatedApplicationID,
		CreatedAt:            time.Now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("failed to create notification", "error", err, "user_id", userID)
		return nil, err
	}
	return n, nil
}

// NotifyApprovalOutcome sends the canned message for an approval
// decision to the applicant.
func (s *Service) NotifyApprovalOutcome(ctx context.Context, applicantID, applicationID, newStatus, comment string) (*Notification, error) {
	title, message := approvalMessage(newStatus, comment)
	return s.Notify(ctx, applicantID, ChannelEmail, title, message, CategoryApproval, &applicationID)
}

func approvalMessage(newStatus, comment string) (title, message string) {
	switch newStatus {
	case "approved":
		title = "Application approved"
		message = "Your application has been approved."
	case "rejected":
		title = "Application rejected"
		message = "Your application has been rejected."
	case "on_hold":
		title = "Application on hold"
		message = "Your application was put on hold pending changes."
	default:
		title = "Application updated"
		message = fmt.Sprintf("Your application status changed to %s.", newStatus)
	}
	if comment != "" {
		message = fmt.Sprintf("%s Reviewer comment: %s", message, comment)
	}
	return title, message
}
