package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/services"
)

const (
	adminRoom    = "admins"
	frameTimeout = 10 * time.Second
)

func userRoom(id string) string  { return "user-" + id }
func chatRoom(id string) string  { return "event-" + id }
func watchRoom(id string) string { return "event-updates-" + id }

type Authenticator interface {
	UserFromAccessToken(ctx context.Context, token string) (*models.User, error)
}

type ChatAccess interface {
	CanAccess(ctx context.Context, user *models.User, eventID string) (*models.Event, error)
	Relay(ctx context.Context, user *models.User, eventID, messageID string) (*models.MessageView, error)
}

type NotificationReader interface {
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, id string) (*models.Notification, error)
}

// Relay owns the socket endpoint and implements services.Pusher so that
// workflows can reach connected users.
type Relay struct {
	registry      *Registry
	auth          Authenticator
	chat          ChatAccess
	notifications NotificationReader
	upgrader      websocket.Upgrader
	log           *zap.Logger
	now           func() time.Time
}

var _ services.Pusher = (*Relay)(nil)

// NewRelay accepts browser connections from allowedOrigins. An empty list
// or a "*" entry accepts any origin.
func NewRelay(registry *Registry, auth Authenticator, chat ChatAccess, notifications NotificationReader, allowedOrigins []string, log *zap.Logger) *Relay {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[strings.TrimRight(o, "/")] = true
	}
	return &Relay{
		registry:      registry,
		auth:          auth,
		chat:          chat,
		notifications: notifications,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(origins) == 0 || origins["*"] || origins[origin]
			},
		},
		log: log,
		now: time.Now,
	}
}

func (rl *Relay) Registry() *Registry { return rl.registry }

func tokenFromRequest(r *http.Request) string {
	if tok := strings.TrimSpace(r.URL.Query().Get("token")); tok != "" {
		return tok
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func rejectHandshake(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(models.NewErrorResponse(msg))
}

// ServeWS authenticates the handshake and then runs the connection until
// the peer leaves. Invalid, expired or blocked credentials get a 401 before
// any upgrade.
func (rl *Relay) ServeWS(w http.ResponseWriter, r *http.Request) {
	tok := tokenFromRequest(r)
	if tok == "" {
		rejectHandshake(w, "Access token required")
		return
	}
	user, err := rl.auth.UserFromAccessToken(r.Context(), tok)
	if err != nil {
		rejectHandshake(w, "Unauthorized user")
		return
	}

	conn, err := rl.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rl.log.Warn("websocket upgrade failed", zap.Error(err), zap.String("userId", user.ID))
		return
	}

	c := newClient(user, conn, rl.log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl.connect(ctx, c)
	go c.writePump()
	c.readPump(func(in inbound) { rl.dispatch(ctx, c, in) })
	rl.disconnect(c)
}

func (rl *Relay) connect(ctx context.Context, c *Client) {
	rl.registry.Register(c)
	rl.registry.Join(c, userRoom(c.UserID()))
	if c.user.IsAdmin() {
		rl.registry.Join(c, adminRoom)
	}
	rl.log.Info("realtime client connected",
		zap.String("userId", c.UserID()),
		zap.Int("connected", rl.registry.Count()),
	)

	rl.broadcastAll(Frame{Type: "user_status_changed", Payload: map[string]any{
		"userId":   c.UserID(),
		"isOnline": true,
		"lastSeen": nil,
	}})
	rl.sendUnreadCount(ctx, c)
}

func (rl *Relay) disconnect(c *Client) {
	c.Close()
	if !rl.registry.Unregister(c) {
		return
	}
	rl.log.Info("realtime client disconnected", zap.String("userId", c.UserID()))
	rl.broadcastAll(Frame{Type: "user_status_changed", Payload: map[string]any{
		"userId":   c.UserID(),
		"isOnline": false,
		"lastSeen": rl.now().UTC(),
	}})
}

func errorPayload(msg string) map[string]string {
	return map[string]string{"message": msg}
}

// idFrom accepts either a bare JSON string or an object carrying key.
func idFrom(raw json.RawMessage, key string) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	if v, ok := obj[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func (rl *Relay) dispatch(parent context.Context, c *Client, in inbound) {
	ctx, cancel := context.WithTimeout(parent, frameTimeout)
	defer cancel()

	switch in.Type {
	case "join_event_chat":
		rl.joinChat(ctx, c, idFrom(in.Payload, "eventId"))
	case "leave_event_chat":
		eventID := idFrom(in.Payload, "eventId")
		if eventID == "" || !rl.registry.InRoom(c, chatRoom(eventID)) {
			return
		}
		rl.registry.Leave(c, chatRoom(eventID))
		rl.broadcast(chatRoom(eventID), c, Frame{Type: "user_left_chat", Payload: map[string]any{
			"userId":   c.UserID(),
			"userName": c.user.Name,
		}})
	case "typing_start", "typing_stop":
		eventID := idFrom(in.Payload, "eventId")
		if eventID == "" || !rl.registry.InRoom(c, chatRoom(eventID)) {
			return
		}
		f := Frame{Type: "user_typing", Payload: map[string]any{"userId": c.UserID(), "userName": c.user.Name}}
		if in.Type == "typing_stop" {
			f = Frame{Type: "user_stopped_typing", Payload: map[string]any{"userId": c.UserID()}}
		}
		rl.broadcast(chatRoom(eventID), c, f)
	case "new_message":
		rl.relayMessage(ctx, c, in.Payload)
	case "mark_notification_read":
		id := idFrom(in.Payload, "notificationId")
		if _, err := rl.notifications.MarkRead(ctx, c.UserID(), id); err != nil {
			c.Send(Frame{Type: "error", Payload: errorPayload("Notification not found")})
			return
		}
		c.Send(Frame{Type: "notification_marked_read", Payload: map[string]string{"notificationId": id}})
		rl.sendUnreadCount(ctx, c)
	case "get_unread_count":
		rl.sendUnreadCount(ctx, c)
	case "watch_event":
		if eventID := idFrom(in.Payload, "eventId"); eventID != "" {
			rl.registry.Join(c, watchRoom(eventID))
		}
	case "unwatch_event":
		if eventID := idFrom(in.Payload, "eventId"); eventID != "" {
			rl.registry.Leave(c, watchRoom(eventID))
		}
	case "ping":
		c.Send(Frame{Type: "pong", Payload: map[string]any{"timestamp": rl.now().UTC()}})
	default:
		c.Send(Frame{Type: "error", Payload: errorPayload("Unknown event type")})
	}
}

// joinChat ignores requests the user is not entitled to.
func (rl *Relay) joinChat(ctx context.Context, c *Client, eventID string) {
	if eventID == "" {
		return
	}
	if _, err := rl.chat.CanAccess(ctx, c.user, eventID); err != nil {
		if services.KindOf(err) == services.KindInternal {
			rl.log.Warn("chat access check failed", zap.Error(err), zap.String("eventId", eventID))
			c.Send(Frame{Type: "error", Payload: errorPayload("Chat access error")})
		}
		return
	}
	rl.registry.Join(c, chatRoom(eventID))
	rl.broadcast(chatRoom(eventID), c, Frame{Type: "user_joined_chat", Payload: map[string]any{
		"userId":     c.UserID(),
		"userName":   c.user.Name,
		"userAvatar": c.user.Avatar,
	}})
}

func (rl *Relay) relayMessage(ctx context.Context, c *Client, raw json.RawMessage) {
	var p struct {
		EventID   string `json:"eventId"`
		MessageID string `json:"messageId"`
	}
	if err := json.Unmarshal(raw, &p); err != nil || p.EventID == "" || p.MessageID == "" {
		c.Send(Frame{Type: "error", Payload: errorPayload("eventId and messageId are required")})
		return
	}
	view, err := rl.chat.Relay(ctx, c.user, p.EventID, p.MessageID)
	if err != nil {
		var se *services.Error
		if !errors.As(err, &se) {
			rl.log.Error("message relay failed", zap.Error(err), zap.String("eventId", p.EventID))
			c.Send(Frame{Type: "error", Payload: errorPayload("Message relay failed")})
			return
		}
		c.Send(Frame{Type: "error", Payload: errorPayload(se.Message)})
		return
	}
	rl.PushChatMessage(p.EventID, view)
}

func (rl *Relay) sendUnreadCount(ctx context.Context, c *Client) {
	n, err := rl.notifications.UnreadCount(ctx, c.UserID())
	if err != nil {
		rl.log.Warn("unread count failed", zap.Error(err), zap.String("userId", c.UserID()))
		return
	}
	c.Send(Frame{Type: "unread_notifications_count", Payload: map[string]int64{"count": n}})
}

// broadcast sends f to every member of room except skip.
func (rl *Relay) broadcast(room string, skip *Client, f Frame) {
	for _, c := range rl.registry.Members(room) {
		if c != skip {
			c.Send(f)
		}
	}
}

func (rl *Relay) broadcastAll(f Frame) {
	for _, c := range rl.registry.All() {
		c.Send(f)
	}
}

func (rl *Relay) PushNotification(n *models.Notification) {
	members := rl.registry.Members(userRoom(n.Recipient))
	if len(members) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()
	count, err := rl.notifications.UnreadCount(ctx, n.Recipient)
	for _, c := range members {
		c.Send(Frame{Type: "new_notification", Payload: n})
		if err == nil {
			c.Send(Frame{Type: "unread_notifications_count", Payload: map[string]int64{"count": count}})
		}
	}
}

func (rl *Relay) PushEventUpdate(eventID, updateType string, data any) {
	rl.broadcast(watchRoom(eventID), nil, Frame{Type: "event_updated", Payload: map[string]any{
		"type": updateType,
		"data": data,
	}})
}

func (rl *Relay) PushChatMessage(eventID string, m *models.MessageView) {
	rl.broadcast(chatRoom(eventID), nil, Frame{Type: "message_received", Payload: m})
}

func (rl *Relay) IsOnline(userID string) bool {
	return rl.registry.IsOnline(userID)
}

// Stats is the snapshot served by the socket stats endpoint.
type Stats struct {
	ConnectedUsers   int      `json:"connectedUsers"`
	ConnectedUserIDs []string `json:"connectedUserIds,omitempty"`
	UptimeSeconds    float64  `json:"serverUptime"`
}

// Stats lists user ids only for admins.
func (rl *Relay) Stats(viewer *models.User) Stats {
	s := Stats{
		ConnectedUsers: rl.registry.Count(),
		UptimeSeconds:  rl.registry.Uptime().Seconds(),
	}
	if viewer.IsAdmin() {
		s.ConnectedUserIDs = rl.registry.UserIDs()
	}
	return s
}
