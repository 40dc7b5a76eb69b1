package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/storage"
)

type recordingPusher struct {
	mu            sync.Mutex
	notifications []*models.Notification
	updates       []string
	chat          []*models.MessageView
	online        map[string]bool
}

func (p *recordingPusher) PushNotification(n *models.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, n)
}

func (p *recordingPusher) PushEventUpdate(eventID, updateType string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, eventID+":"+updateType)
}

func (p *recordingPusher) PushChatMessage(_ string, m *models.MessageView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chat = append(p.chat, m)
}

func (p *recordingPusher) IsOnline(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID]
}

type harness struct {
	t             *testing.T
	store         *storage.MemoryStore
	push          *recordingPusher
	effects       *Effects
	notifications *NotificationService
	auth          *AuthService
	events        *EventService
	reports       *ReportService
	chat          *ChatService
	admin         *AdminService
}

func newHarness(t *testing.T, reportThreshold int) *harness {
	t.Helper()
	log := zap.NewNop()
	store := storage.NewMemoryStore()
	push := &recordingPusher{online: map[string]bool{}}

	notifications := NewNotificationService(store, log)
	effects := NewEffects(store, notifications, nil, log)
	effects.SetPusher(push)
	effects.backoff = time.Millisecond

	tokens := NewTokenService("access-secret", "refresh-secret", 15*time.Minute, time.Hour)
	return &harness{
		t:             t,
		store:         store,
		push:          push,
		effects:       effects,
		notifications: notifications,
		auth:          NewAuthService(store, tokens, NewLogMailer(log), log, AuthOptions{BcryptCost: bcrypt.MinCost, ExposeResetToken: true}),
		events:        NewEventService(store, effects, log),
		reports:       NewReportService(store, effects, reportThreshold, log),
		chat:          NewChatService(store, effects, log),
		admin:         NewAdminService(store, effects, log),
	}
}

func (h *harness) user(role models.Role) *models.User {
	h.t.Helper()
	u := &models.User{
		ID:        uuid.NewString(),
		Email:     uuid.NewString() + "@example.com",
		Name:      "Test " + string(role),
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.CreateUser(context.Background(), u); err != nil {
		h.t.Fatalf("create user: %v", err)
	}
	return u
}

// approvedEvent stores an approved event starting in one day.
func (h *harness) approvedEvent(creator *models.User, capacity int) *models.Event {
	h.t.Helper()
	now := time.Now().UTC()
	ev := &models.Event{
		ID:           uuid.NewString(),
		Title:        "Go meetup",
		Description:  "An evening of talks about Go.",
		Category:     "tecnologia",
		Location:     models.Location{Address: "Via Roma 1", City: "Milano", Country: "Italia"},
		Date:         models.EventDates{Start: now.Add(24 * time.Hour), End: now.Add(26 * time.Hour)},
		Capacity:     capacity,
		CreatedBy:    creator.ID,
		Status:       models.EventApproved,
		Participants: []models.Participant{},
		Reports:      []models.EmbeddedReport{},
		Settings:     models.DefaultEventSettings(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.store.CreateEvent(context.Background(), ev); err != nil {
		h.t.Fatalf("create event: %v", err)
	}
	return ev
}

func (h *harness) countNotifications(recipient string, typ models.NotificationType) int64 {
	h.t.Helper()
	_, total, err := h.store.ListNotifications(context.Background(), recipient,
		models.NotificationFilter{Type: typ}, models.Page{Number: 1, Limit: 100})
	if err != nil {
		h.t.Fatalf("list notifications: %v", err)
	}
	return total
}

func (h *harness) mustEvent(id string) *models.Event {
	h.t.Helper()
	ev, err := h.store.GetEvent(context.Background(), id)
	if err != nil {
		h.t.Fatalf("get event: %v", err)
	}
	return ev
}

func eventRequest() *models.EventRequest {
	return &models.EventRequest{
		Title:       "Go meetup",
		Description: "An evening of talks about Go.",
		Category:    "tecnologia",
		Location:    models.Location{Address: "Via Roma 1", City: "Milano", Country: "Italia"},
		Date:        models.EventDates{Start: time.Now().Add(48 * time.Hour), End: time.Now().Add(50 * time.Hour)},
		Capacity:    10,
	}
}
