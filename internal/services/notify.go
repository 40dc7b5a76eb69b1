package services

import (
	"fmt"

	"github.com/eventhub/backend/internal/models"
)

func eventURL(eventID string) string {
	return "/events/" + eventID
}

func joinedNotification(ev *models.Event, joiner string) models.Notification {
	return models.Notification{
		Recipient: ev.CreatedBy,
		Sender:    joiner,
		Type:      models.NotifyUserJoinedEvent,
		Title:     "New participant",
		Message:   fmt.Sprintf("Someone joined your event %q", ev.Title),
		Data:      models.NotificationData{EventID: ev.ID, EventTitle: ev.Title, ActionURL: eventURL(ev.ID)},
		Priority:  models.PriorityNormal,
	}
}

func leftNotification(ev *models.Event, leaver string) models.Notification {
	return models.Notification{
		Recipient: ev.CreatedBy,
		Sender:    leaver,
		Type:      models.NotifyUserLeftEvent,
		Title:     "Participation cancelled",
		Message:   fmt.Sprintf("Someone left your event %q", ev.Title),
		Data:      models.NotificationData{EventID: ev.ID, EventTitle: ev.Title, ActionURL: eventURL(ev.ID)},
		Priority:  models.PriorityLow,
	}
}

func moderationNotification(ev *models.Event, reviewer string, approved bool, reason string) models.Notification {
	n := models.Notification{
		Recipient: ev.CreatedBy,
		Sender:    reviewer,
		Data:      models.NotificationData{EventID: ev.ID, EventTitle: ev.Title, ActionURL: eventURL(ev.ID)},
	}
	if approved {
		n.Type = models.NotifyEventApproved
		n.Title = "Event approved"
		n.Message = fmt.Sprintf("Your event %q has been approved and is now public", ev.Title)
		n.Priority = models.PriorityNormal
		return n
	}
	n.Type = models.NotifyEventRejected
	n.Title = "Event rejected"
	n.Message = fmt.Sprintf("Your event %q has been rejected", ev.Title)
	n.Priority = models.PriorityHigh
	n.Data.Metadata = map[string]any{"rejectionReason": reason}
	return n
}

func reportedNotification(ev *models.Event, reason string) models.Notification {
	return models.Notification{
		Type:     models.NotifyEventReported,
		Title:    "Event reported",
		Message:  fmt.Sprintf("The event %q has received %d reports", ev.Title, ev.ReportCount),
		Priority: models.PriorityHigh,
		Data: models.NotificationData{
			EventID:      ev.ID,
			EventTitle:   ev.Title,
			ReportCount:  ev.ReportCount,
			ReportReason: reason,
			ActionURL:    "/admin/reports?event=" + ev.ID,
		},
	}
}

func updatedNotification(ev *models.Event, recipient, editor string) models.Notification {
	return models.Notification{
		Recipient: recipient,
		Sender:    editor,
		Type:      models.NotifyEventUpdated,
		Title:     "Event updated",
		Message:   fmt.Sprintf("The event %q has been updated", ev.Title),
		Data:      models.NotificationData{EventID: ev.ID, EventTitle: ev.Title, ActionURL: eventURL(ev.ID)},
		Priority:  models.PriorityNormal,
	}
}

func pendingEventNotification(ev *models.Event, organizer *models.User) models.Notification {
	return models.Notification{
		Sender:   organizer.ID,
		Type:     models.NotifySystem,
		Title:    "New event awaiting approval",
		Message:  fmt.Sprintf("The event %q is waiting for approval", ev.Title),
		Priority: models.PriorityNormal,
		Data: models.NotificationData{
			EventID:    ev.ID,
			EventTitle: ev.Title,
			ActionURL:  "/admin/events/pending",
			Metadata:   map[string]any{"organizerName": organizer.Name},
		},
	}
}

func blockedNotification(userID, admin, reason string) models.Notification {
	msg := "Your account has been blocked by an administrator"
	if reason != "" {
		msg += ": " + reason
	}
	return models.Notification{
		Recipient: userID,
		Sender:    admin,
		Type:      models.NotifyUserBlocked,
		Title:     "Account blocked",
		Message:   msg,
		Priority:  models.PriorityHigh,
	}
}

func unblockedNotification(userID, admin string) models.Notification {
	return models.Notification{
		Recipient: userID,
		Sender:    admin,
		Type:      models.NotifySystem,
		Title:     "Account unblocked",
		Message:   "Your account has been unblocked. Welcome back!",
		Priority:  models.PriorityNormal,
	}
}

// NewMessageNotification tells an offline participant about chat activity.
func NewMessageNotification(ev *models.Event, m *models.Message, recipient string) models.Notification {
	return models.Notification{
		Recipient: recipient,
		Sender:    m.Sender,
		Type:      models.NotifyNewMessage,
		Title:     "New message",
		Message:   fmt.Sprintf("New message in the chat of %q", ev.Title),
		Priority:  models.PriorityLow,
		Data: models.NotificationData{
			EventID:    ev.ID,
			EventTitle: ev.Title,
			MessageID:  m.ID,
			ActionURL:  eventURL(ev.ID) + "/chat",
		},
	}
}

var systemMessageText = map[models.SystemAction]string{
	models.SystemUserJoined:   "joined the event",
	models.SystemUserLeft:     "left the event",
	models.SystemEventUpdated: "updated the event",
}

func systemMessage(eventID, actor string, action models.SystemAction) SystemMessage {
	return SystemMessage{
		EventID: eventID,
		Actor:   actor,
		Action:  action,
		Content: systemMessageText[action],
	}
}
