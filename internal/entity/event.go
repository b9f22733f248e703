package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event types published after a state change
const (
	EventFormCreated       = "form.created"
	EventFormUpdated       = "form.updated"
	EventFormDeleted       = "form.deleted"
	EventResponseSubmitted = "response.submitted"
)

type (
	// Event is the envelope exchanged over the message broker
	Event struct {
		ID        string    `json:"id"`
		Payload   []byte    `json:"payload"`
		Type      string    `json:"type"`
		Timestamp time.Time `json:"timestamp"`
	}

	// SubmitRequest asks for a response to be stored
	SubmitRequest struct {
		FormID  string            `json:"formId"`
		Answers map[string]string `json:"answers"`
	}

	// FormRef identifies a form in delete requests and events
	FormRef struct {
		FormID string `json:"form_id"`
	}
)

func NewEvent(Type string, payload []byte) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Payload:   payload,
		Type:      Type,
		Timestamp: time.Now(),
	}
}

func (e *Event) Validate() error {
	if e.ID == "" {
		return errors.New("event_id is nil")
	}

	if e.Payload == nil {
		return errors.New("payload is nil")
	}

	if e.Type == "" {
		return errors.New("type is nil")
	}

	return nil
}
