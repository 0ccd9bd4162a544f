package entity

import (
	"encoding/json"
	"time"
)

// EventType is the kind of interaction a widget reported
type EventType string

const (
	EventWidgetOpened  EventType = "widget_opened"
	EventFormSubmitted EventType = "form_submitted"
	EventChatStarted   EventType = "chat_started"
	EventTabViewed     EventType = "tab_viewed"
	EventPageView      EventType = "page_view"
	EventLinkClicked   EventType = "link_clicked"
)

// IsValid checks if the event type is one of the known types
func (t EventType) IsValid() bool {
	switch t {
	case EventWidgetOpened, EventFormSubmitted, EventChatStarted,
		EventTabViewed, EventPageView, EventLinkClicked:
		return true
	}
	return false
}

// WidgetEvent is a single interaction reported by an embedded widget.
// Events are immutable once written.
type WidgetEvent struct {
	SessionID string          `json:"session_id"`
	WidgetID  string          `json:"widget_id"`
	Type      EventType       `json:"event_type"`
	Data      json.RawMessage `json:"event_data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Widget is an embeddable UI unit ("glance") owned by a workspace
type Widget struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
}

// WidgetUser is a visitor who created an account through a widget
type WidgetUser struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// EventFilter selects events for a set of widgets in [From, To).
// When ToInclusive is set the upper bound is closed.
type EventFilter struct {
	WidgetIDs   []string
	From        time.Time
	To          time.Time
	ToInclusive bool
}

// UserFilter selects widget users of a workspace in [From, To).
// When ToInclusive is set the upper bound is closed.
type UserFilter struct {
	WorkspaceID string
	From        time.Time
	To          time.Time
	ToInclusive bool
}
