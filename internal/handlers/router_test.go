package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eventhub/backend/internal/config"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/realtime"
	"github.com/eventhub/backend/internal/services"
	"github.com/eventhub/backend/internal/storage"
)

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

type testServer struct {
	t      *testing.T
	store  *storage.MemoryStore
	router http.Handler
}

func generousLimits() config.RateLimitConfig {
	return config.RateLimitConfig{
		Window:            time.Minute,
		MaxRequests:       1000,
		AuthMax:           1000,
		CreateEventMax:    1000,
		CreateEventWindow: time.Hour,
		ChatMax:           1000,
		ChatWindow:        time.Minute,
	}
}

func newTestServer(t *testing.T, limits config.RateLimitConfig) *testServer {
	t.Helper()
	log := zap.NewNop()
	store := storage.NewMemoryStore()

	tokens := services.NewTokenService("access-secret", "refresh-secret", 15*time.Minute, time.Hour)
	auth := services.NewAuthService(store, tokens, services.NewLogMailer(log), log, services.AuthOptions{BcryptCost: bcrypt.MinCost})
	notifications := services.NewNotificationService(store, log)
	effects := services.NewEffects(store, notifications, nil, log)
	chat := services.NewChatService(store, effects, log)

	backend, err := services.NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalBackend: %v", err)
	}

	relay := realtime.NewRelay(realtime.NewRegistry(), auth, chat, notifications, nil, log)
	effects.SetPusher(relay)

	router := NewRouter(RouterConfig{
		Version:       "test",
		Env:           config.EnvTest,
		RateLimit:     limits,
		MaxUploadSize: 1 << 20,
		UploadDir:     backend.Dir(),
	}, Services{
		Auth:          auth,
		Events:        services.NewEventService(store, effects, log),
		Reports:       services.NewReportService(store, effects, 5, log),
		Chat:          chat,
		Notifications: notifications,
		Admin:         services.NewAdminService(store, effects, log),
		Images:        services.NewImageService(backend, nil, 1<<20, []string{"image/jpeg", "image/png"}, log),
		Relay:         relay,
	}, log)

	return &testServer{t: t, store: store, router: router}
}

func (s *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			s.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

// register signs a user up and returns their user id and access token.
func (s *testServer) register(email, name string) (string, string) {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "password": "Secret1", "name": name,
	})
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("register %s = %d %s", email, rec.Code, rec.Body.String())
	}
	var data struct {
		User   models.User `json:"user"`
		Tokens struct {
			AccessToken string `json:"accessToken"`
		} `json:"tokens"`
	}
	decodeData(s.t, env, &data)
	return data.User.ID, data.Tokens.AccessToken
}

func (s *testServer) promote(userID string) {
	s.t.Helper()
	role := models.RoleAdmin
	if _, err := s.store.UpdateUser(context.Background(), userID, models.UserUpdate{Role: &role}); err != nil {
		s.t.Fatalf("promote: %v", err)
	}
}

func eventBody() map[string]any {
	start := time.Now().Add(48 * time.Hour).UTC()
	return map[string]any{
		"title":       "Jazz in piazza",
		"description": "Live jazz under the stars.",
		"category":    "concerto",
		"location":    map[string]string{"address": "Piazza Duomo", "city": "Milano"},
		"date":        map[string]string{"start": start.Format(time.RFC3339)},
		"capacity":    2,
	}
}

func TestHealthAndNotFound(t *testing.T) {
	s := newTestServer(t, generousLimits())

	rec, _ := s.do(http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"ok"`)) {
		t.Fatalf("/health = %d %s", rec.Code, rec.Body.String())
	}

	rec, env := s.do(http.MethodGet, "/api/v1/nope", "", nil)
	if rec.Code != http.StatusNotFound || env.Success || env.Message != "Route not found" {
		t.Fatalf("unknown route = %d %+v", rec.Code, env)
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, generousLimits())

	rec, env := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "bad", "password": "x", "name": "A"})
	if rec.Code != http.StatusBadRequest || env.Errors["email"] == "" || env.Errors["password"] == "" || env.Errors["name"] == "" {
		t.Fatalf("invalid register = %d %+v", rec.Code, env)
	}

	rec, _ = s.do(http.MethodPost, "/api/v1/auth/register", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty body = %d", rec.Code)
	}

	id, token := s.register("giulia@example.com", "Giulia")

	rec, _ = s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "Giulia@Example.com", "password": "Secret1", "name": "Giulia",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register = %d", rec.Code)
	}

	rec, _ = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "giulia@example.com", "password": "Wrong1"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d", rec.Code)
	}
	rec, _ = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "giulia@example.com", "password": "Secret1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = s.do(http.MethodGet, "/api/v1/auth/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me without token = %d", rec.Code)
	}
	rec, env = s.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me = %d %s", rec.Code, rec.Body.String())
	}
	var me struct {
		User models.User `json:"user"`
	}
	decodeData(t, env, &me)
	if me.User.ID != id || me.User.Email != "giulia@example.com" {
		t.Fatalf("me = %+v", me.User)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("password")) {
		t.Fatal("password hash leaked in /me")
	}
}

func TestAuthRateLimit(t *testing.T) {
	limits := generousLimits()
	limits.AuthMax = 2
	s := newTestServer(t, limits)

	body := map[string]string{"email": "x@example.com", "password": "Secret1"}
	for i := 0; i < 2; i++ {
		if rec, _ := s.do(http.MethodPost, "/api/v1/auth/login", "", body); rec.Code == http.StatusTooManyRequests {
			t.Fatalf("attempt %d limited too early", i)
		}
	}
	rec, env := s.do(http.MethodPost, "/api/v1/auth/login", "", body)
	if rec.Code != http.StatusTooManyRequests || env.Success {
		t.Fatalf("third attempt = %d %+v", rec.Code, env)
	}
}

func TestEventModerationFlow(t *testing.T) {
	s := newTestServer(t, generousLimits())
	_, creator := s.register("creator@example.com", "Creator")
	adminID, admin := s.register("admin@example.com", "Admin")
	s.promote(adminID)
	_, joiner := s.register("joiner@example.com", "Joiner")

	rec, env := s.do(http.MethodPost, "/api/v1/events", "", eventBody())
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create = %d", rec.Code)
	}

	rec, env = s.do(http.MethodPost, "/api/v1/events", creator, eventBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Event models.Event `json:"event"`
	}
	decodeData(t, env, &created)
	ev := created.Event
	if ev.Status != models.EventPending || ev.Location.Country != "Italia" {
		t.Fatalf("created = %+v", ev)
	}

	rec, env = s.do(http.MethodGet, "/api/v1/events", "", nil)
	var list models.EventList
	decodeData(t, env, &list)
	if rec.Code != http.StatusOK || len(list.Events) != 0 {
		t.Fatalf("public list before approval = %d events", len(list.Events))
	}

	if rec, _ := s.do(http.MethodPut, "/api/v1/admin/events/"+ev.ID+"/approve", creator, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("approve as user = %d", rec.Code)
	}
	if rec, _ := s.do(http.MethodPut, "/api/v1/admin/events/"+ev.ID+"/approve", admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("approve = %d %s", rec.Code, rec.Body.String())
	}
	if rec, _ := s.do(http.MethodPut, "/api/v1/admin/events/"+ev.ID+"/approve", admin, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("second approve = %d", rec.Code)
	}

	_, env = s.do(http.MethodGet, "/api/v1/events", "", nil)
	decodeData(t, env, &list)
	if len(list.Events) != 1 {
		t.Fatalf("public list after approval = %d events", len(list.Events))
	}

	rec, env = s.do(http.MethodPost, "/api/v1/events/"+ev.ID+"/join", joiner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("join = %d %s", rec.Code, rec.Body.String())
	}
	var joined struct {
		ParticipantsCount int `json:"participantsCount"`
	}
	decodeData(t, env, &joined)
	if joined.ParticipantsCount != 1 {
		t.Fatalf("participantsCount = %d", joined.ParticipantsCount)
	}

	if rec, _ := s.do(http.MethodPost, "/api/v1/events/"+ev.ID+"/report", creator, map[string]string{"reason": "spam"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("report own event = %d", rec.Code)
	}
	rec, env = s.do(http.MethodPost, "/api/v1/events/"+ev.ID+"/report", joiner, map[string]string{"reason": "spam"})
	if rec.Code != http.StatusOK {
		t.Fatalf("report = %d %s", rec.Code, rec.Body.String())
	}
	if rec, _ := s.do(http.MethodPost, "/api/v1/events/"+ev.ID+"/report", joiner, map[string]string{"reason": "spam"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate report = %d", rec.Code)
	}

	rec, env = s.do(http.MethodGet, "/api/v1/notifications/unread-count", creator, nil)
	var unread struct {
		UnreadCount int64 `json:"unreadCount"`
	}
	decodeData(t, env, &unread)
	// approval and the join
	if rec.Code != http.StatusOK || unread.UnreadCount != 2 {
		t.Fatalf("creator unread = %d (%d)", unread.UnreadCount, rec.Code)
	}
}

func TestChatOverHTTP(t *testing.T) {
	s := newTestServer(t, generousLimits())
	creatorID, creator := s.register("host@example.com", "Host")
	_, stranger := s.register("stranger@example.com", "Stranger")

	ev := &models.Event{
		ID:        "ev-chat",
		Title:     "Aperitivo",
		Category:  "networking",
		Capacity:  5,
		CreatedBy: creatorID,
		Status:    models.EventApproved,
		Date:      models.EventDates{Start: time.Now().Add(24 * time.Hour), End: time.Now().Add(26 * time.Hour)},
		Settings:  models.EventSettings{AllowChat: true},
	}
	if err := s.store.CreateEvent(context.Background(), ev); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	path := "/api/v1/chat/events/" + ev.ID + "/messages"
	if rec, _ := s.do(http.MethodPost, path, stranger, map[string]string{"content": "ciao"}); rec.Code != http.StatusForbidden {
		t.Fatalf("stranger send = %d", rec.Code)
	}
	if rec, _ := s.do(http.MethodPost, path, creator, map[string]string{"content": "   "}); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank send = %d", rec.Code)
	}

	rec, env := s.do(http.MethodPost, path, creator, map[string]string{"content": "Benvenuti!"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("send = %d %s", rec.Code, rec.Body.String())
	}
	var sent struct {
		Message models.MessageView `json:"message"`
	}
	decodeData(t, env, &sent)
	if sent.Message.Content != "Benvenuti!" || sent.Message.SenderInfo == nil {
		t.Fatalf("sent = %+v", sent.Message)
	}

	rec, _ = s.do(http.MethodPut, "/api/v1/chat/messages/"+sent.Message.ID, creator, map[string]string{"content": "Benvenuti a tutti!"})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit = %d %s", rec.Code, rec.Body.String())
	}
	if rec, _ := s.do(http.MethodDelete, "/api/v1/chat/messages/"+sent.Message.ID, stranger, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("stranger delete = %d", rec.Code)
	}

	rec, env = s.do(http.MethodGet, "/api/v1/socket/stats", creator, nil)
	var stats realtime.Stats
	decodeData(t, env, &stats)
	if rec.Code != http.StatusOK || stats.ConnectedUsers != 0 || stats.ConnectedUserIDs != nil {
		t.Fatalf("socket stats = %d %+v", rec.Code, stats)
	}
}
