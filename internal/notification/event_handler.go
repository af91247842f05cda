package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/okanehara/travel-approval/internal/core/events"
)

// EventHandler turns application transition events into notifications
// for the applicant. Only decisions notify; submit and resume do not.
type EventHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewEventHandler(service *Service, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: service, logger: logger}
}

// Register subscribes the handler to the decision events it cares about.
func (h *EventHandler) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeApplicationApproved, h.HandleTransition)
	bus.Subscribe(events.EventTypeApplicationRejected, h.HandleTransition)
	bus.Subscribe(events.EventTypeApplicationOnHold, h.HandleTransition)
}

func (h *EventHandler) HandleTransition(ctx context.Context, event events.Event) error {
	transition, ok := event.(*events.ApplicationTransitionEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	_, err := h.service.NotifyApprovalOutcome(ctx,
		transition.ApplicantID,
		transition.ApplicationID,
		transition.NewStatus,
		transition.Comment)
	if err != nil {
		h.logger.Error("failed to notify applicant",
			"error", err,
			"application_id", transition.ApplicationID,
			"applicant_id", transition.ApplicantID)
		return err
	}

	h.logger.Info("applicant notified",
		"application_id", transition.ApplicationID,
		"applicant_id", transition.ApplicantID,
		"new_status", transition.NewStatus)
	return nil
}
