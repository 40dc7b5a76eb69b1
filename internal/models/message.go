package models

import (
	"strings"
	"time"
)

// EditWindow bounds how long after creation a message may be edited.
const EditWindow = 15 * time.Minute

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageSystem MessageType = "system"
)

type SystemAction string

const (
	SystemUserJoined   SystemAction = "user_joined"
	SystemUserLeft     SystemAction = "user_left"
	SystemEventUpdated SystemAction = "event_updated"
)

type SystemData struct {
	Action     SystemAction `json:"action" bson:"action"`
	TargetUser string       `json:"targetUser,omitempty" bson:"target_user,omitempty"`
}

type Message struct {
	ID          string      `json:"id" bson:"_id"`
	Event       string      `json:"event" bson:"event_id"`
	Sender      string      `json:"sender" bson:"sender_id"`
	Content     string      `json:"content" bson:"content"`
	MessageType MessageType `json:"messageType" bson:"message_type"`
	SystemData  *SystemData `json:"systemData,omitempty" bson:"system_data,omitempty"`
	IsEdited    bool        `json:"isEdited" bson:"is_edited"`
	EditedAt    *time.Time  `json:"editedAt,omitempty" bson:"edited_at,omitempty"`
	IsDeleted   bool        `json:"isDeleted" bson:"is_deleted"`
	DeletedAt   *time.Time  `json:"deletedAt,omitempty" bson:"deleted_at,omitempty"`
	DeletedBy   string      `json:"deletedBy,omitempty" bson:"deleted_by,omitempty"`
	CreatedAt   time.Time   `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" bson:"updated_at"`
}

// Editable reports whether the message may still be edited at now.
func (m *Message) Editable(now time.Time) bool {
	if m.MessageType == MessageSystem || m.IsDeleted {
		return false
	}
	return now.Sub(m.CreatedAt) <= EditWindow
}

// MessageView adds the resolved sender for display.
type MessageView struct {
	*Message
	SenderInfo *PublicUser `json:"senderInfo,omitempty"`
}

type SendMessageRequest struct {
	Content     string      `json:"content"`
	MessageType MessageType `json:"messageType"`
}

func validateContent(errors map[string]string, content string) {
	if n := len([]rune(content)); n < 1 || n > 1000 {
		errors["content"] = "Message must be between 1 and 1000 characters"
	}
}

func (r *SendMessageRequest) Validate() map[string]string {
	errors := make(map[string]string)
	r.Content = strings.TrimSpace(r.Content)
	validateContent(errors, r.Content)
	if r.MessageType == "" {
		r.MessageType = MessageText
	}
	if r.MessageType != MessageText && r.MessageType != MessageImage {
		errors["messageType"] = "Message type must be text or image"
	}
	return errors
}

type EditMessageRequest struct {
	Content string `json:"content"`
}

func (r *EditMessageRequest) Validate() map[string]string {
	errors := make(map[string]string)
	r.Content = strings.TrimSpace(r.Content)
	validateContent(errors, r.Content)
	return errors
}

type MessagePagination struct {
	CurrentPage   int   `json:"currentPage"`
	TotalPages    int   `json:"totalPages"`
	TotalMessages int64 `json:"totalMessages"`
	HasMore       bool  `json:"hasMore"`
}

type ChatEventInfo struct {
	Title     string `json:"title"`
	AllowChat bool   `json:"allowChat"`
}

type MessageList struct {
	Messages   []*MessageView    `json:"messages"`
	Pagination MessagePagination `json:"pagination"`
	EventInfo  ChatEventInfo     `json:"eventInfo"`
}

type ChatParticipant struct {
	PublicUser
	Role     string     `json:"role"`
	JoinedAt *time.Time `json:"joinedAt,omitempty"`
	IsOnline bool       `json:"isOnline"`
}

type ChatParticipants struct {
	Participants []ChatParticipant `json:"participants"`
	TotalCount   int               `json:"totalCount"`
}
