package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded     EventType = "login_succeeded"
	EventLoginFailed        EventType = "login_failed"
	EventLoginThrottled     EventType = "login_throttled"
	EventLogout             EventType = "logout"
	EventPasswordChanged    EventType = "password_changed"
	EventAccountProvisioned EventType = "account_provisioned"
	EventAccountActivated   EventType = "account_activation_changed"
)

// AllEventTypes lists every type the service publishes.
var AllEventTypes = []EventType{
	EventLoginSucceeded,
	EventLoginFailed,
	EventLoginThrottled,
	EventLogout,
	EventPasswordChanged,
	EventAccountProvisioned,
	EventAccountActivated,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	AccountID string `json:"account_id,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// LoginFailedPayload records why a login was rejected. It is never sent to clients.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}

// AccountProvisionedPayload payload.
type AccountProvisionedPayload struct {
	AccountID   string `json:"account_id"`
	PrincipalID string `json:"principal_id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
}

// AccountActivationPayload payload.
type AccountActivationPayload struct {
	AccountID string `json:"account_id"`
	Active    bool   `json:"active"`
}
