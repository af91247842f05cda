package notification

import (
	"context"
	"log/slog"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/okanehara/travel-approval/internal"
	"github.com/okanehara/travel-approval/internal/auth"
	"github.com/okanehara/travel-approval/internal/core/events"
	"github.com/okanehara/travel-approval/internal/rbac"
)

func TestNotificationService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "NotificationService Suite")
}

type mockRepository struct {
	notifications map[string]*Notification
	lastLimit     int
	markAllCalls  int
}

func newMockRepository() *mockRepository {
	return &mockRepository{notifications: make(map[string]*Notification)}
}

func (m *mockRepository) Create(_ context.Context, n *Notification) error {
	copied := *n
	m.notifications[n.ID] = &copied
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*Notification, error) {
	n, ok := m.notifications[id]
	if !ok {
		return nil, apperrors.ErrNotificationNotFound
	}
	copied := *n
	return &copied, nil
}

func (m *mockRepository) ListByUser(_ context.Context, userID string, limit int) ([]*Notification, error) {
	m.lastLimit = limit
	var out []*Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockRepository) MarkRead(_ context.Context, id string) error {
	n, ok := m.notifications[id]
	if !ok {
		return apperrors.ErrNotificationNotFound
	}
	n.Read = true
	return nil
}

func (m *mockRepository) MarkAllRead(_ context.Context, userID string) error {
	m.markAllCalls++
	for _, n := range m.notifications {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (m *mockRepository) CountUnread(_ context.Context, userID string) (int64, error) {
	var count int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

var _ = Describe("NotificationService", func() {
	var (
		repo      *mockRepository
		service   *Service
		ctx       context.Context
		principal *auth.Principal
	)

	seed := func(id, userID string, read bool) {
		repo.notifications[id] = &Notification{
			ID:        id,
			UserID:    userID,
			Title:     "Application approved",
			Message:   "Your application has been approved.",
			Category:  CategoryApproval,
			Read:      read,
			CreatedAt: time.Now(),
		}
	}

	BeforeEach(func() {
		repo = newMockRepository()
		service = NewService(repo, slog.Default())
		ctx = context.Background()
		principal = &auth.Principal{ID: "user-1", Role: rbac.RoleGeneralUser}
	})

	Describe("List", func() {
		It("should request at most the list cap", func() {
			_, err := service.List(ctx, principal)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.lastLimit).To(Equal(ListLimit))
		})
	})

	Describe("MarkRead", func() {
		It("should mark an unread notification read", func() {
			seed("n-1", "user-1", false)
			Expect(service.MarkRead(ctx, principal, "n-1")).To(Succeed())
			Expect(repo.notifications["n-1"].Read).To(BeTrue())
		})

		It("should be a no-op for already-read notifications", func() {
			seed("n-1", "user-1", true)
			Expect(service.MarkRead(ctx, principal, "n-1")).To(Succeed())
		})

		It("should refuse to mark someone else's notification", func() {
			seed("n-1", "user-2", false)
			err := service.MarkRead(ctx, principal, "n-1")
			Expect(err).To(Equal(apperrors.ErrUnauthorizedAccess))
			Expect(repo.notifications["n-1"].Read).To(BeFalse())
		})

		It("should surface not found for unknown IDs", func() {
			Expect(service.MarkRead(ctx, principal, "missing")).To(Equal(apperrors.ErrNotificationNotFound))
		})
	})

	Describe("MarkAllRead", func() {
		It("should flip only the caller's notifications", func() {
			seed("n-1", "user-1", false)
			seed("n-2", "user-1", false)
			seed("n-3", "user-2", false)

			Expect(service.MarkAllRead(ctx, principal)).To(Succeed())

			Expect(repo.notifications["n-1"].Read).To(BeTrue())
			Expect(repo.notifications["n-2"].Read).To(BeTrue())
			Expect(repo.notifications["n-3"].Read).To(BeFalse())
		})

		It("should succeed when nothing is unread", func() {
			Expect(service.MarkAllRead(ctx, principal)).To(Succeed())
			Expect(repo.markAllCalls).To(Equal(1))
		})
	})

	Describe("UnreadCount", func() {
		It("should count only unread notifications for the caller", func() {
			seed("n-1", "user-1", false)
			seed("n-2", "user-1", true)
			seed("n-3", "user-2", false)

			count, err := service.UnreadCount(ctx, principal)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})
	})

	Describe("Notify", func() {
		It("should default the channel to email", func() {
			n, err := service.Notify(ctx, "user-1", "", "Reminder", "Submit your report.", CategoryReminder, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(n.Channel).To(Equal(ChannelEmail))
			Expect(n.Category).To(Equal(CategoryReminder))
		})

		It("should keep an explicit push channel", func() {
			n, err := service.Notify(ctx, "user-1", ChannelPush, "Heads up", "New policy.", CategoryUpdate, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(n.Channel).To(Equal(ChannelPush))
			Expect(n.Category).To(Equal(CategoryUpdate))
		})
	})

	Describe("NotifyApprovalOutcome", func() {
		It("should produce the canned approved message", func() {
			n, err := service.NotifyApprovalOutcome(ctx, "user-1", "app-1", "approved", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(n.Title).To(Equal("Application approved"))
			Expect(n.Category).To(Equal(CategoryApproval))
			Expect(n.Channel).To(Equal(ChannelEmail))
			Expect(*n.RelatedApplicationID).To(Equal("app-1"))
		})

		It("should append the reviewer comment for rejections", func() {
			n, err := service.NotifyApprovalOutcome(ctx, "user-1", "app-1", "rejected", "budget exceeded")
			Expect(err).NotTo(HaveOccurred())
			Expect(n.Title).To(Equal("Application rejected"))
			Expect(n.Message).To(ContainSubstring("budget exceeded"))
		})
	})
})

var _ = Describe("EventHandler", func() {
	var (
		repo    *mockRepository
		service *Service
		handler *EventHandler
		bus     *events.EventBus
		ctx     context.Context
	)

	BeforeEach(func() {
		repo = newMockRepository()
		service = NewService(repo, slog.Default())
		handler = NewEventHandler(service, slog.Default())
		bus = events.NewEventBus(slog.Default())
		handler.Register(bus)
		ctx = context.Background()
	})

	It("should notify the applicant once per decision event", func() {
		event := events.NewApplicationTransitionEvent(
			events.EventTypeApplicationApproved,
			"app-1", "user-1", "user-2",
			"approved", "", "pending", "approved")

		Expect(bus.PublishSync(ctx, event)).To(Succeed())

		Expect(repo.notifications).To(HaveLen(1))
		for _, n := range repo.notifications {
			Expect(n.UserID).To(Equal("user-1"))
			Expect(n.Title).To(Equal("Application approved"))
			Expect(*n.RelatedApplicationID).To(Equal("app-1"))
		}
	})

	It("should ignore submitted events", func() {
		event := events.NewApplicationTransitionEvent(
			events.EventTypeApplicationSubmitted,
			"app-1", "user-1", "user-1",
			"submitted", "", "draft", "pending")

		Expect(bus.PublishSync(ctx, event)).To(Succeed())
		Expect(repo.notifications).To(BeEmpty())
	})
})
