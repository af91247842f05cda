package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeApplicationSubmitted = "application.submitted"
	EventTypeApplicationApproved  = "application.approved"
	EventTypeApplicationRejected  = "application.rejected"
	EventTypeApplicationOnHold    = "application.on_hold"
	EventTypeApplicationResumed   = "application.resumed"
	EventTypeApplicationCompleted = "application.completed"
)

// ApplicationTransitionEvent is published once per successful status
// transition, after the row and the approval log entry are persisted.
type ApplicationTransitionEvent struct {
	BaseEvent
	ApplicationID  string `json:"application_id"`
	ApplicantID    string `json:"applicant_id"`
	ActorID        string `json:"actor_id"`
	Action         string `json:"action"`
	Comment        string `json:"comment,omitempty"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
}

func NewApplicationTransitionEvent(eventType, applicationID, applicantID, actorID, action, comment, previousStatus, newStatus string) *ApplicationTransitionEvent {
	return &ApplicationTransitionEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"application_id":  applicationID,
				"applicant_id":    applicantID,
				"actor_id":        actorID,
				"action":          action,
				"previous_status": previousStatus,
				"new_status":      newStatus,
			},
		},
		ApplicationID:  applicationID,
		ApplicantID:    applicantID,
		ActorID:        actorID,
		Action:         action,
		Comment:        comment,
		PreviousStatus: previousStatus,
		NewStatus:      newStatus,
	}
}
