package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/storage"
)

func TestCreateEventPendingAndNotifiesAdmins(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	creator := h.user(models.RoleUser)
	admin1 := h.user(models.RoleAdmin)
	admin2 := h.user(models.RoleAdmin)

	ev, err := h.events.Create(ctx, creator, eventRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ev.Status != models.EventPending {
		t.Fatalf("status = %s, want pending", ev.Status)
	}
	if ev.Slug == "" || !ev.Price.IsFree {
		t.Fatalf("defaults not applied: slug=%q price=%+v", ev.Slug, ev.Price)
	}
	for _, a := range []*models.User{admin1, admin2} {
		if n := h.countNotifications(a.ID, models.NotifySystem); n != 1 {
			t.Fatalf("admin %s got %d pending notifications, want 1", a.ID, n)
		}
	}
	u, _ := h.store.GetUser(ctx, creator.ID)
	if u.EventsCreated != 1 {
		t.Fatalf("eventsCreated = %d", u.EventsCreated)
	}

	// Pending events are hidden from other users.
	other := h.user(models.RoleUser)
	if _, err := h.events.Get(ctx, ev.ID, other); !errors.Is(err, ErrEventNotVisible) {
		t.Fatalf("Get pending as stranger err = %v", err)
	}
	if _, err := h.events.Get(ctx, ev.ID, creator); err != nil {
		t.Fatalf("Get pending as creator: %v", err)
	}
}

func TestApproveOnce(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	creator := h.user(models.RoleUser)
	admin := h.user(models.RoleAdmin)

	ev, err := h.events.Create(ctx, creator, eventRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.events.Approve(ctx, admin, ev.ID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, ErrAlreadyProcessed):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("%d approvals succeeded, want 1", ok)
	}
	if n := h.countNotifications(creator.ID, models.NotifyEventApproved); n != 1 {
		t.Fatalf("creator got %d approval notifications, want 1", n)
	}
	got := h.mustEvent(ev.ID)
	if got.Status != models.EventApproved || got.Moderation.ReviewedBy != admin.ID || got.Moderation.ReviewedAt == nil {
		t.Fatalf("event = %+v", got)
	}

	if _, err := h.events.Reject(ctx, admin, ev.ID, "Too late to reject this"); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("reject after approve err = %v", err)
	}
}

func TestRejectCarriesReason(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	creator := h.user(models.RoleUser)
	admin := h.user(models.RoleAdmin)

	ev, _ := h.events.Create(ctx, creator, eventRequest())
	got, err := h.events.Reject(ctx, admin, ev.ID, "Missing venue details")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if got.Status != models.EventRejected || got.Moderation.Reason != "Missing venue details" {
		t.Fatalf("event = %+v", got)
	}
	if n := h.countNotifications(creator.ID, models.NotifyEventRejected); n != 1 {
		t.Fatalf("rejections = %d", n)
	}
}

func TestJoinCapacity(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	creator := h.user(models.RoleUser)
	u1 := h.user(models.RoleUser)
	u2 := h.user(models.RoleUser)
	ev := h.approvedEvent(creator, 1)

	if _, err := h.events.Join(ctx, creator, ev.ID); !errors.Is(err, ErrCreatorCannotJoin) {
		t.Fatalf("creator join err = %v", err)
	}

	n, err := h.events.Join(ctx, u1, ev.ID)
	if err != nil || n != 1 {
		t.Fatalf("Join u1 = %d, %v", n, err)
	}
	if _, err := h.events.Join(ctx, u1, ev.ID); !errors.Is(err, ErrAlreadyParticipant) {
		t.Fatalf("rejoin err = %v", err)
	}
	if _, err := h.events.Join(ctx, u2, ev.ID); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("full join err = %v", err)
	}

	if n, err := h.events.Leave(ctx, u1, ev.ID); err != nil || n != 0 {
		t.Fatalf("Leave = %d, %v", n, err)
	}
	if _, err := h.events.Leave(ctx, u1, ev.ID); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("second leave err = %v", err)
	}
	if n, err := h.events.Join(ctx, u2, ev.ID); err != nil || n != 1 {
		t.Fatalf("Join u2 after leave = %d, %v", n, err)
	}

	if c := h.countNotifications(creator.ID, models.NotifyUserJoinedEvent); c != 2 {
		t.Fatalf("creator join notifications = %d, want 2", c)
	}
	msgs, _, _ := h.store.ListMessages(ctx, ev.ID, models.Page{Number: 1, Limit: 50})
	if len(msgs) != 3 {
		t.Fatalf("system messages = %d, want 3", len(msgs))
	}
	for _, m := range msgs {
		if m.MessageType != models.MessageSystem {
			t.Fatalf("unexpected message type %s", m.MessageType)
		}
	}
}

func TestJoinRequiresApprovedFutureEvent(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	creator := h.user(models.RoleUser)
	joiner := h.user(models.RoleUser)

	pending, _ := h.events.Create(ctx, creator, eventRequest())
	if _, err := h.events.Join(ctx, joiner, pending.ID); !errors.Is(err, ErrEventNotApproved) {
		t.Fatalf("join pending err = %v", err)
	}

	ev := h.approvedEvent(creator, 10)
	h.events.now = func() time.Time { return ev.Date.Start.Add(time.Minute) }
	if _, err := h.events.Join(ctx, joiner, ev.ID); !errors.Is(err, ErrEventStarted) {
		t.Fatalf("join started err = %v", err)
	}

	if _, err := h.events.Join(ctx, joiner, "missing"); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("join missing err = %v", err)
	}
}

func TestUpdateEvent(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	creator := h.user(models.RoleUser)
	stranger := h.user(models.RoleUser)
	ev := h.approvedEvent(creator, 3)
	for i := 0; i < 2; i++ {
		if _, err := h.events.Join(ctx, h.user(models.RoleUser), ev.ID); err != nil {
			t.Fatalf("join: %v", err)
		}
	}

	req := eventRequest()
	req.Title = "Go meetup reloaded"
	if _, err := h.events.Update(ctx, stranger, ev.ID, req); !errors.Is(err, ErrNotEventOwner) {
		t.Fatalf("stranger update err = %v", err)
	}

	req.Capacity = 1
	if _, err := h.events.Update(ctx, creator, ev.ID, req); !errors.Is(err, ErrCapacityBelowCount) {
		t.Fatalf("shrink below roster err = %v", err)
	}

	req.Capacity = 5
	got, err := h.events.Update(ctx, creator, ev.ID, req)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Title != "Go meetup reloaded" || got.Capacity != 5 || got.Status != models.EventApproved {
		t.Fatalf("updated event = %+v", got)
	}
	for _, p := range got.ConfirmedParticipantIDs() {
		if h.countNotifications(p, models.NotifyEventUpdated) != 1 {
			t.Fatalf("participant %s not told about the update", p)
		}
	}
}

// joinDuringUpdate confirms a participant after EventService.Update has read
// the event but before its write reaches the store.
type joinDuringUpdate struct {
	*storage.MemoryStore
	joiner string
}

func (s *joinDuringUpdate) UpdateEvent(ctx context.Context, id string, upd models.EventUpdate) (*models.Event, error) {
	if _, err := s.AddParticipant(ctx, id, s.joiner, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.MemoryStore.UpdateEvent(ctx, id, upd)
}

func TestUpdateCapacityRacesJoin(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	creator := h.user(models.RoleUser)
	ev := h.approvedEvent(creator, 3)
	if _, err := h.events.Join(ctx, h.user(models.RoleUser), ev.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	store := &joinDuringUpdate{MemoryStore: h.store, joiner: h.user(models.RoleUser).ID}
	events := NewEventService(store, h.effects, zap.NewNop())

	req := eventRequest()
	req.Capacity = 1
	if _, err := events.Update(ctx, creator, ev.ID, req); !errors.Is(err, ErrCapacityBelowCount) {
		t.Fatalf("update err = %v, want ErrCapacityBelowCount", err)
	}

	got := h.mustEvent(ev.ID)
	if got.Capacity != 3 {
		t.Fatalf("capacity = %d, want 3", got.Capacity)
	}
	if active := got.ActiveParticipantsCount(); active != 2 || active > got.Capacity {
		t.Fatalf("active = %d with capacity %d", active, got.Capacity)
	}
}

func TestDeleteEvent(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	creator := h.user(models.RoleUser)
	admin := h.user(models.RoleAdmin)
	ev := h.approvedEvent(creator, 3)

	if err := h.events.Delete(ctx, h.user(models.RoleUser), ev.ID); !errors.Is(err, ErrNotEventOwner) {
		t.Fatalf("stranger delete err = %v", err)
	}
	if err := h.events.Delete(ctx, admin, ev.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := h.events.Get(ctx, ev.ID, admin); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("get deleted err = %v", err)
	}
}

func TestListShowsOnlyApproved(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	creator := h.user(models.RoleUser)

	h.approvedEvent(creator, 5)
	h.approvedEvent(creator, 5)
	if _, err := h.events.Create(ctx, creator, eventRequest()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := h.events.List(ctx, models.EventFilter{}, models.Page{Number: 1, Limit: 12}, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list.Pagination.TotalEvents != 2 || len(list.Events) != 2 {
		t.Fatalf("listed %d of %d, want 2", len(list.Events), list.Pagination.TotalEvents)
	}

	stats, err := h.events.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalEvents != 2 || stats.TotalCities != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}
