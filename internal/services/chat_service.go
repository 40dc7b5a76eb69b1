package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/storage"
)

type ChatService struct {
	store   storage.Store
	effects *Effects
	log     *zap.Logger
	now     func() time.Time
}

func NewChatService(store storage.Store, effects *Effects, log *zap.Logger) *ChatService {
	return &ChatService{
		store:   store,
		effects: effects,
		log:     log,
		now:     time.Now,
	}
}

func isMember(ev *models.Event, u *models.User) bool {
	return u.IsAdmin() || ev.CreatedBy == u.ID || ev.IsConfirmedParticipant(u.ID)
}

// CanAccess loads the event and checks that user may read and write its
// chat: creator, confirmed participant or admin, and chat enabled.
func (s *ChatService) CanAccess(ctx context.Context, user *models.User, eventID string) (*models.Event, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if !isMember(ev, user) {
		return nil, ErrChatAccessDenied
	}
	if !ev.Settings.AllowChat {
		return nil, ErrChatDisabled
	}
	return ev, nil
}

func (s *ChatService) senderViews(ctx context.Context, msgs []*models.Message) ([]*models.MessageView, error) {
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.Sender)
	}
	senders, err := s.store.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		v := &models.MessageView{Message: m}
		if u := senders[m.Sender]; u != nil {
			pub := models.PublicUser{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
			v.SenderInfo = &pub
		}
		out = append(out, v)
	}
	return out, nil
}

// Messages returns one page of the chat, newest page first, with the
// messages inside the page in display order (oldest first).
func (s *ChatService) Messages(ctx context.Context, user *models.User, eventID string, p models.Page) (*models.MessageList, error) {
	ev, err := s.CanAccess(ctx, user, eventID)
	if err != nil {
		return nil, err
	}

	msgs, total, err := s.store.ListMessages(ctx, eventID, p)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	views, err := s.senderViews(ctx, msgs)
	if err != nil {
		return nil, err
	}

	pg := models.NewPagination(p, total)
	return &models.MessageList{
		Messages: views,
		Pagination: models.MessagePagination{
			CurrentPage:   pg.CurrentPage,
			TotalPages:    pg.TotalPages,
			TotalMessages: total,
			HasMore:       int64(p.Skip()+len(msgs)) < total,
		},
		EventInfo: models.ChatEventInfo{Title: ev.Title, AllowChat: ev.Settings.AllowChat},
	}, nil
}

func (s *ChatService) Send(ctx context.Context, user *models.User, eventID string, req *models.SendMessageRequest) (*models.MessageView, error) {
	if user.IsBlocked {
		return nil, ErrUserBlocked
	}
	if _, err := s.CanAccess(ctx, user, eventID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	m := &models.Message{
		ID:          uuid.NewString(),
		Event:       eventID,
		Sender:      user.ID,
		Content:     req.Content,
		MessageType: req.MessageType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateMessage(ctx, m); err != nil {
		return nil, err
	}
	return &models.MessageView{
		Message:    m,
		SenderInfo: &models.PublicUser{ID: user.ID, Name: user.Name, Avatar: user.Avatar},
	}, nil
}

func (s *ChatService) loadMessage(ctx context.Context, id string) (*models.Message, error) {
	m, err := s.store.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if m.IsDeleted {
		return nil, ErrMessageNotFound
	}
	return m, nil
}

// Edit changes the content of the caller's own message within the edit
// window. System messages are never editable.
func (s *ChatService) Edit(ctx context.Context, user *models.User, id string, req *models.EditMessageRequest) (*models.MessageView, error) {
	m, err := s.loadMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.MessageType == models.MessageSystem {
		return nil, ErrSystemMessageEdit
	}
	if m.Sender != user.ID {
		return nil, ErrNotMessageAuthor
	}
	now := s.now().UTC()
	if !m.Editable(now) {
		return nil, ErrEditWindowExpired
	}

	edited, err := s.store.EditMessage(ctx, id, req.Content, now)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &models.MessageView{
		Message:    edited,
		SenderInfo: &models.PublicUser{ID: user.ID, Name: user.Name, Avatar: user.Avatar},
	}, nil
}

// Delete soft-deletes a message. Authors delete their own, admins any.
func (s *ChatService) Delete(ctx context.Context, user *models.User, id string) error {
	m, err := s.loadMessage(ctx, id)
	if err != nil {
		return err
	}
	if m.Sender != user.ID && !user.IsAdmin() {
		return ErrNotMessageAuthor
	}
	err = s.store.SoftDeleteMessage(ctx, id, user.ID, s.now().UTC())
	if errors.Is(err, storage.ErrNotFound) {
		return ErrMessageNotFound
	}
	return err
}

func (s *ChatService) Participants(ctx context.Context, user *models.User, eventID string) (*models.ChatParticipants, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if !isMember(ev, user) {
		return nil, ErrChatAccessDenied
	}

	confirmed := make([]models.Participant, 0, len(ev.Participants))
	ids := []string{ev.CreatedBy}
	for _, p := range ev.Participants {
		if p.Status == models.ParticipantConfirmed {
			confirmed = append(confirmed, p)
			ids = append(ids, p.User)
		}
	}
	users, err := s.store.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	push := s.effects.push
	out := make([]models.ChatParticipant, 0, len(ids))
	if c := users[ev.CreatedBy]; c != nil {
		out = append(out, models.ChatParticipant{
			PublicUser: models.PublicUser{ID: c.ID, Name: c.Name, Avatar: c.Avatar},
			Role:       "creator",
			IsOnline:   push.IsOnline(c.ID),
		})
	}
	for _, p := range confirmed {
		u := users[p.User]
		if u == nil {
			continue
		}
		joined := p.JoinedAt
		out = append(out, models.ChatParticipant{
			PublicUser: models.PublicUser{ID: u.ID, Name: u.Name, Avatar: u.Avatar},
			Role:       "participant",
			JoinedAt:   &joined,
			IsOnline:   push.IsOnline(u.ID),
		})
	}
	return &models.ChatParticipants{Participants: out, TotalCount: len(out)}, nil
}

func (s *ChatService) UpdateSettings(ctx context.Context, user *models.User, eventID string, allowChat bool) (*models.EventSettings, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if !canManage(ev, user) {
		return nil, ErrNotEventOwner
	}

	settings := ev.Settings
	settings.AllowChat = allowChat
	updated, err := s.store.UpdateEvent(ctx, eventID, models.EventUpdate{Settings: &settings})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	s.effects.Apply(ctx, []Effect{
		EventUpdate{EventID: eventID, Type: "chat_settings_updated", Data: map[string]any{"allowChat": allowChat}},
	})
	return &updated.Settings, nil
}

// Relay validates a message announced over the realtime channel and
// persists new_message notifications for members who are not connected.
// It returns the view to broadcast to the event room.
func (s *ChatService) Relay(ctx context.Context, user *models.User, eventID, messageID string) (*models.MessageView, error) {
	ev, err := s.CanAccess(ctx, user, eventID)
	if err != nil {
		return nil, err
	}
	m, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if m.Event != eventID {
		return nil, ErrMessageNotFound
	}

	views, err := s.senderViews(ctx, []*models.Message{m})
	if err != nil {
		return nil, err
	}

	recipients := append([]string{ev.CreatedBy}, ev.ConfirmedParticipantIDs()...)
	var effects []Effect
	for _, id := range recipients {
		if id == m.Sender || s.effects.push.IsOnline(id) {
			continue
		}
		effects = append(effects, NotifyUser{Notification: NewMessageNotification(ev, m, id)})
	}
	if len(effects) > 0 {
		s.effects.Apply(ctx, effects)
	}
	return views[0], nil
}
