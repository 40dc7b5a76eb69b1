package models

import "time"

type NotificationType string

const (
	NotifyUserJoinedEvent NotificationType = "user_joined_event"
	NotifyUserLeftEvent   NotificationType = "user_left_event"
	NotifyEventApproved   NotificationType = "event_approved"
	NotifyEventRejected   NotificationType = "event_rejected"
	NotifyEventReported   NotificationType = "event_reported"
	NotifyEventUpdated    NotificationType = "event_updated"
	NotifyNewMessage      NotificationType = "new_message"
	NotifyUserBlocked     NotificationType = "user_blocked"
	NotifySystem          NotificationType = "system"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotifyUserJoinedEvent, NotifyUserLeftEvent, NotifyEventApproved, NotifyEventRejected,
		NotifyEventReported, NotifyEventUpdated, NotifyNewMessage, NotifyUserBlocked, NotifySystem:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type NotificationData struct {
	EventID      string         `json:"eventId,omitempty" bson:"event_id,omitempty"`
	EventTitle   string         `json:"eventTitle,omitempty" bson:"event_title,omitempty"`
	MessageID    string         `json:"messageId,omitempty" bson:"message_id,omitempty"`
	ReportCount  int            `json:"reportCount,omitempty" bson:"report_count,omitempty"`
	ReportReason string         `json:"reportReason,omitempty" bson:"report_reason,omitempty"`
	ActionURL    string         `json:"actionUrl,omitempty" bson:"action_url,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

type Channels struct {
	InApp bool `json:"inApp" bson:"in_app"`
	Email bool `json:"email" bson:"email"`
	Push  bool `json:"push" bson:"push"`
}

type Notification struct {
	ID        string           `json:"id" bson:"_id"`
	Recipient string           `json:"recipient" bson:"recipient_id"`
	Sender    string           `json:"sender,omitempty" bson:"sender_id,omitempty"`
	Type      NotificationType `json:"type" bson:"type"`
	Title     string           `json:"title" bson:"title"`
	Message   string           `json:"message" bson:"message"`
	Data      NotificationData `json:"data" bson:"data"`
	IsRead    bool             `json:"isRead" bson:"is_read"`
	ReadAt    *time.Time       `json:"readAt,omitempty" bson:"read_at,omitempty"`
	Priority  Priority         `json:"priority" bson:"priority"`
	Channels  Channels         `json:"channels" bson:"channels"`
	CreatedAt time.Time        `json:"createdAt" bson:"created_at"`
}

type NotificationFilter struct {
	UnreadOnly bool
	Type       NotificationType
}
