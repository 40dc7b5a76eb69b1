package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/services"
)

type fakeAuth map[string]*models.User

func (f fakeAuth) UserFromAccessToken(_ context.Context, token string) (*models.User, error) {
	if u, ok := f[token]; ok {
		return u, nil
	}
	return nil, services.ErrInvalidToken
}

type fakeChat struct {
	members map[string]bool
}

func (f *fakeChat) CanAccess(_ context.Context, u *models.User, eventID string) (*models.Event, error) {
	if !f.members[u.ID] {
		return nil, services.ErrChatAccessDenied
	}
	return &models.Event{ID: eventID}, nil
}

func (f *fakeChat) Relay(_ context.Context, u *models.User, eventID, messageID string) (*models.MessageView, error) {
	if !f.members[u.ID] {
		return nil, services.ErrChatAccessDenied
	}
	return &models.MessageView{
		Message:    &models.Message{ID: messageID, Event: eventID, Sender: u.ID, Content: "hello"},
		SenderInfo: &models.PublicUser{ID: u.ID, Name: u.Name},
	}, nil
}

type fakeNotifications struct{}

func (fakeNotifications) UnreadCount(context.Context, string) (int64, error) { return 3, nil }
func (fakeNotifications) MarkRead(_ context.Context, _, id string) (*models.Notification, error) {
	if id == "missing" {
		return nil, services.ErrNotificationNotFound
	}
	return &models.Notification{ID: id, IsRead: true}, nil
}

type received struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newTestRelay(t *testing.T) (*Relay, *httptest.Server) {
	t.Helper()
	auth := fakeAuth{
		"t1": {ID: "u1", Name: "Alice"},
		"t2": {ID: "u2", Name: "Bob"},
		"t3": {ID: "u3", Name: "Eve"},
	}
	chat := &fakeChat{members: map[string]bool{"u1": true, "u2": true}}
	relay := NewRelay(NewRegistry(), auth, chat, fakeNotifications{}, nil, zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(relay.ServeWS))
	t.Cleanup(func() {
		relay.Registry().Clear()
		srv.Close()
	})
	return relay, srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// expect reads frames until one of type typ arrives.
func expect(t *testing.T, conn *websocket.Conn, typ string) received {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var f received
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if f.Type == typ {
			return f
		}
	}
}

// roundTrip round-trips a ping so every earlier frame from conn has been handled.
func roundTrip(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	send(t, conn, "ping", nil)
	expect(t, conn, "pong")
}

func TestHandshakeRejectsMissingOrBadToken(t *testing.T) {
	_, srv := newTestRelay(t)
	base := "ws" + strings.TrimPrefix(srv.URL, "http")

	for _, url := range []string{base, base + "?token=nope"} {
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			t.Fatalf("dial %s succeeded, want rejection", url)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("dial %s: want 401, got %v", url, resp)
		}
	}
}

func TestConnectSendsUnreadCount(t *testing.T) {
	relay, srv := newTestRelay(t)
	conn := dial(t, srv, "t1")

	f := expect(t, conn, "unread_notifications_count")
	var body struct{ Count int64 }
	json.Unmarshal(f.Payload, &body)
	if body.Count != 3 {
		t.Fatalf("count = %d, want 3", body.Count)
	}
	if !relay.IsOnline("u1") {
		t.Fatalf("u1 should be online")
	}
}

func TestChatRelayBroadcastsToRoom(t *testing.T) {
	_, srv := newTestRelay(t)
	alice := dial(t, srv, "t1")
	bob := dial(t, srv, "t2")

	send(t, alice, "join_event_chat", "e1")
	roundTrip(t, alice)
	send(t, bob, "join_event_chat", map[string]string{"eventId": "e1"})
	roundTrip(t, bob)

	expect(t, alice, "user_joined_chat")

	send(t, alice, "new_message", map[string]string{"eventId": "e1", "messageId": "m1"})
	f := expect(t, bob, "message_received")
	var view struct {
		ID      string `json:"id"`
		Content string `json:"content"`
	}
	json.Unmarshal(f.Payload, &view)
	if view.ID != "m1" {
		t.Fatalf("relayed message id = %q", view.ID)
	}
	expect(t, alice, "message_received")
}

func TestUnauthorizedChatJoinIsIgnored(t *testing.T) {
	relay, srv := newTestRelay(t)
	eve := dial(t, srv, "t3")

	send(t, eve, "join_event_chat", "e1")
	roundTrip(t, eve)

	if n := len(relay.Registry().Members(chatRoom("e1"))); n != 0 {
		t.Fatalf("room has %d members, want 0", n)
	}
}

func TestPushNotificationReachesOnlineUser(t *testing.T) {
	relay, srv := newTestRelay(t)
	conn := dial(t, srv, "t2")
	roundTrip(t, conn)

	relay.PushNotification(&models.Notification{ID: "n1", Recipient: "u2", Type: models.NotifySystem})

	f := expect(t, conn, "new_notification")
	var n struct{ ID string }
	json.Unmarshal(f.Payload, &n)
	if n.ID != "n1" {
		t.Fatalf("notification id = %q", n.ID)
	}
}

func TestWatchEventReceivesUpdates(t *testing.T) {
	relay, srv := newTestRelay(t)
	conn := dial(t, srv, "t3")

	send(t, conn, "watch_event", "e9")
	roundTrip(t, conn)
	relay.PushEventUpdate("e9", "status_changed", map[string]string{"status": "approved"})

	f := expect(t, conn, "event_updated")
	var body struct{ Type string }
	json.Unmarshal(f.Payload, &body)
	if body.Type != "status_changed" {
		t.Fatalf("update type = %q", body.Type)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	_, srv := newTestRelay(t)
	conn := dial(t, srv, "t1")

	send(t, conn, "mark_notification_read", "n1")
	expect(t, conn, "notification_marked_read")

	send(t, conn, "mark_notification_read", "missing")
	expect(t, conn, "error")
}

// framesUntil returns the frame types read before one of type typ arrives.
func framesUntil(t *testing.T, conn *websocket.Conn, typ string) []string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var seen []string
	for {
		var f received
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if f.Type == typ {
			return seen
		}
		seen = append(seen, f.Type)
	}
}

func joinRoom(t *testing.T, conn *websocket.Conn, eventID string) {
	t.Helper()
	send(t, conn, "join_event_chat", eventID)
	roundTrip(t, conn)
}

func TestTypingReachesOthersOnly(t *testing.T) {
	_, srv := newTestRelay(t)
	alice := dial(t, srv, "t1")
	bob := dial(t, srv, "t2")
	joinRoom(t, alice, "e1")
	joinRoom(t, bob, "e1")

	for _, tc := range []struct{ in, out string }{
		{"typing_start", "user_typing"},
		{"typing_stop", "user_stopped_typing"},
	} {
		send(t, bob, tc.in, map[string]string{"eventId": "e1"})
		f := expect(t, alice, tc.out)
		var body struct{ UserID string }
		json.Unmarshal(f.Payload, &body)
		if body.UserID != "u2" {
			t.Fatalf("%s from %q, want u2", tc.out, body.UserID)
		}

		send(t, bob, "ping", nil)
		for _, typ := range framesUntil(t, bob, "pong") {
			if typ == tc.out {
				t.Fatalf("sender received its own %s", tc.out)
			}
		}
	}
}

func TestTypingOutsideRoomIsDropped(t *testing.T) {
	_, srv := newTestRelay(t)
	alice := dial(t, srv, "t1")
	bob := dial(t, srv, "t2")
	joinRoom(t, alice, "e1")
	roundTrip(t, bob)

	send(t, bob, "typing_start", map[string]string{"eventId": "e1"})
	roundTrip(t, bob)

	send(t, alice, "ping", nil)
	for _, typ := range framesUntil(t, alice, "pong") {
		if typ == "user_typing" {
			t.Fatal("typing from a client outside the room was relayed")
		}
	}
}

func TestLeaveChatNotifiesRoom(t *testing.T) {
	relay, srv := newTestRelay(t)
	alice := dial(t, srv, "t1")
	bob := dial(t, srv, "t2")
	joinRoom(t, alice, "e1")
	joinRoom(t, bob, "e1")

	send(t, bob, "leave_event_chat", map[string]string{"eventId": "e1"})
	f := expect(t, alice, "user_left_chat")
	var body struct{ UserID, UserName string }
	json.Unmarshal(f.Payload, &body)
	if body.UserID != "u2" || body.UserName != "Bob" {
		t.Fatalf("user_left_chat payload = %s", f.Payload)
	}

	roundTrip(t, bob)
	if n := len(relay.Registry().Members(chatRoom("e1"))); n != 1 {
		t.Fatalf("room has %d members after leave, want 1", n)
	}
}

func TestDisconnectBroadcastsOffline(t *testing.T) {
	relay, srv := newTestRelay(t)
	alice := dial(t, srv, "t1")
	bob := dial(t, srv, "t2")
	roundTrip(t, alice)
	roundTrip(t, bob)

	bob.Close()

	alice.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var f received
		if err := alice.ReadJSON(&f); err != nil {
			t.Fatalf("waiting for offline status: %v", err)
		}
		if f.Type != "user_status_changed" {
			continue
		}
		var body struct {
			UserID   string
			IsOnline bool
			LastSeen *time.Time
		}
		json.Unmarshal(f.Payload, &body)
		if body.UserID != "u2" || body.IsOnline {
			continue
		}
		if body.LastSeen == nil {
			t.Fatal("offline status without lastSeen")
		}
		break
	}
	if relay.IsOnline("u2") {
		t.Fatal("u2 still online after disconnect")
	}
}
