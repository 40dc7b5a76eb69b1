package storage

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/models"
)

func newEvent(capacity int) *models.Event {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Event{
		ID:        uuid.NewString(),
		Title:     "Go meetup",
		Category:  "tecnologia",
		Location:  models.Location{Address: "Via Roma 1", City: "Milano", Country: "Italia"},
		Date:      models.EventDates{Start: now.Add(24 * time.Hour), End: now.Add(26 * time.Hour)},
		Capacity:  capacity,
		CreatedBy: "creator",
		Status:    models.EventApproved,
		Settings:  models.DefaultEventSettings(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// runStoreSuite checks the behaviour both Store implementations must share.
func runStoreSuite(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("duplicate email", func(t *testing.T) {
		email := uuid.NewString() + "@example.com"
		u := &models.User{ID: uuid.NewString(), Email: email, Role: models.RoleUser}
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		again := &models.User{ID: uuid.NewString(), Email: email, Role: models.RoleUser}
		if err := s.CreateUser(ctx, again); !errors.Is(err, ErrDuplicate) {
			t.Fatalf("err = %v, want ErrDuplicate", err)
		}
		got, err := s.GetUserByEmail(ctx, email)
		if err != nil || got.ID != u.ID {
			t.Fatalf("GetUserByEmail = %v, %v", got, err)
		}
	})

	t.Run("roster capacity", func(t *testing.T) {
		ev := newEvent(2)
		if err := s.CreateEvent(ctx, ev); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
		now := time.Now().UTC()
		if _, err := s.AddParticipant(ctx, ev.ID, "u1", now); err != nil {
			t.Fatalf("join u1: %v", err)
		}
		if _, err := s.AddParticipant(ctx, ev.ID, "u1", now); !errors.Is(err, ErrAlreadyParticipant) {
			t.Fatalf("rejoin u1 err = %v", err)
		}
		got, err := s.AddParticipant(ctx, ev.ID, "u2", now)
		if err != nil {
			t.Fatalf("join u2: %v", err)
		}
		if got.ActiveParticipantsCount() != 2 {
			t.Fatalf("active = %d, want 2", got.ActiveParticipantsCount())
		}
		if _, err := s.AddParticipant(ctx, ev.ID, "u3", now); !errors.Is(err, ErrCapacityFull) {
			t.Fatalf("join u3 err = %v, want ErrCapacityFull", err)
		}

		one, title := 1, "Shrunk"
		if _, err := s.UpdateEvent(ctx, ev.ID, models.EventUpdate{Title: &title, Capacity: &one}); !errors.Is(err, ErrCapacityBelowRoster) {
			t.Fatalf("shrink below roster err = %v, want ErrCapacityBelowRoster", err)
		}
		if _, err := s.UpdateEvent(ctx, "missing", models.EventUpdate{Capacity: &one}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("missing event err = %v, want ErrNotFound", err)
		}
		unchanged, err := s.GetEvent(ctx, ev.ID)
		if err != nil {
			t.Fatalf("GetEvent: %v", err)
		}
		if unchanged.Capacity != 2 || unchanged.Title == title {
			t.Fatalf("rejected update was applied: %+v", unchanged)
		}
		two := 2
		if _, err := s.UpdateEvent(ctx, ev.ID, models.EventUpdate{Capacity: &two}); err != nil {
			t.Fatalf("capacity equal to roster: %v", err)
		}
	})

	t.Run("leave and rejoin reactivates", func(t *testing.T) {
		ev := newEvent(1)
		if err := s.CreateEvent(ctx, ev); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
		now := time.Now().UTC()
		if _, err := s.AddParticipant(ctx, ev.ID, "u1", now); err != nil {
			t.Fatalf("join: %v", err)
		}
		left, err := s.CancelParticipant(ctx, ev.ID, "u1")
		if err != nil {
			t.Fatalf("leave: %v", err)
		}
		if left.ActiveParticipantsCount() != 0 {
			t.Fatalf("active after leave = %d", left.ActiveParticipantsCount())
		}
		if _, err := s.CancelParticipant(ctx, ev.ID, "u1"); !errors.Is(err, ErrNotParticipant) {
			t.Fatalf("second leave err = %v", err)
		}

		back, err := s.AddParticipant(ctx, ev.ID, "u1", now.Add(time.Minute))
		if err != nil {
			t.Fatalf("rejoin: %v", err)
		}
		if len(back.Participants) != 1 {
			t.Fatalf("roster has %d entries, want 1", len(back.Participants))
		}
		if !back.IsConfirmedParticipant("u1") {
			t.Fatal("u1 should be confirmed again")
		}
	})

	t.Run("concurrent joins never exceed capacity", func(t *testing.T) {
		ev := newEvent(3)
		if err := s.CreateEvent(ctx, ev); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
		var wg sync.WaitGroup
		var mu sync.Mutex
		joined := 0
		for i := 0; i < 12; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, err := s.AddParticipant(ctx, ev.ID, id, time.Now().UTC()); err == nil {
					mu.Lock()
					joined++
					mu.Unlock()
				}
			}(uuid.NewString())
		}
		wg.Wait()

		got, err := s.GetEvent(ctx, ev.ID)
		if err != nil {
			t.Fatalf("GetEvent: %v", err)
		}
		if joined != 3 || got.ActiveParticipantsCount() != 3 {
			t.Fatalf("joined = %d, active = %d, want 3", joined, got.ActiveParticipantsCount())
		}
	})

	t.Run("report dedupe", func(t *testing.T) {
		ev := newEvent(10)
		if err := s.CreateEvent(ctx, ev); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
		r := models.EmbeddedReport{User: "u1", Reason: "spam", ReportedAt: time.Now().UTC()}
		got, err := s.AddReport(ctx, ev.ID, r)
		if err != nil {
			t.Fatalf("AddReport: %v", err)
		}
		if got.ReportCount != 1 {
			t.Fatalf("ReportCount = %d, want 1", got.ReportCount)
		}
		if _, err := s.AddReport(ctx, ev.ID, r); !errors.Is(err, ErrDuplicate) {
			t.Fatalf("second report err = %v, want ErrDuplicate", err)
		}
		r.User = "u2"
		got, err = s.AddReport(ctx, ev.ID, r)
		if err != nil {
			t.Fatalf("AddReport u2: %v", err)
		}
		if got.ReportCount != len(got.Reports) || got.ReportCount != 2 {
			t.Fatalf("ReportCount = %d, reports = %d", got.ReportCount, len(got.Reports))
		}
	})

	t.Run("transition only from expected state", func(t *testing.T) {
		ev := newEvent(10)
		ev.Status = models.EventPending
		if err := s.CreateEvent(ctx, ev); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
		mod := models.Moderation{ReviewedBy: "admin"}
		got, err := s.TransitionEvent(ctx, ev.ID, models.EventPending, models.EventApproved, mod)
		if err != nil {
			t.Fatalf("approve: %v", err)
		}
		if got.Status != models.EventApproved || got.Moderation.ReviewedBy != "admin" {
			t.Fatalf("event = %+v", got)
		}
		if _, err := s.TransitionEvent(ctx, ev.ID, models.EventPending, models.EventApproved, mod); !errors.Is(err, ErrStateChanged) {
			t.Fatalf("second approve err = %v, want ErrStateChanged", err)
		}
		if _, err := s.TransitionEvent(ctx, uuid.NewString(), models.EventPending, models.EventApproved, mod); !errors.Is(err, ErrNotFound) {
			t.Fatalf("missing event err = %v, want ErrNotFound", err)
		}
	})

	t.Run("soft deleted messages leave history", func(t *testing.T) {
		eventID := uuid.NewString()
		base := time.Now().UTC().Truncate(time.Millisecond)
		ids := make([]string, 3)
		for i := range ids {
			ids[i] = uuid.NewString()
			m := &models.Message{
				ID:          ids[i],
				Event:       eventID,
				Sender:      "u1",
				Content:     "hello",
				MessageType: models.MessageText,
				CreatedAt:   base.Add(time.Duration(i) * time.Second),
			}
			if err := s.CreateMessage(ctx, m); err != nil {
				t.Fatalf("CreateMessage: %v", err)
			}
		}
		if err := s.SoftDeleteMessage(ctx, ids[1], "u1", base); err != nil {
			t.Fatalf("SoftDeleteMessage: %v", err)
		}
		if err := s.SoftDeleteMessage(ctx, ids[1], "u1", base); !errors.Is(err, ErrNotFound) {
			t.Fatalf("second delete err = %v", err)
		}
		list, total, err := s.ListMessages(ctx, eventID, models.Page{Number: 1, Limit: 10})
		if err != nil {
			t.Fatalf("ListMessages: %v", err)
		}
		if total != 2 || len(list) != 2 || list[0].ID != ids[2] {
			t.Fatalf("total = %d, first = %v", total, list)
		}
	})

	t.Run("notifications read lifecycle", func(t *testing.T) {
		recipient := uuid.NewString()
		old := time.Now().UTC().Add(-60 * 24 * time.Hour)
		for i := 0; i < 3; i++ {
			n := &models.Notification{
				ID:        uuid.NewString(),
				Recipient: recipient,
				Type:      models.NotifySystem,
				Title:     "hi",
				Priority:  models.PriorityNormal,
				CreatedAt: old,
			}
			if err := s.CreateNotification(ctx, n); err != nil {
				t.Fatalf("CreateNotification: %v", err)
			}
		}
		if n, _ := s.CountUnread(ctx, recipient); n != 3 {
			t.Fatalf("unread = %d, want 3", n)
		}
		changed, err := s.MarkAllRead(ctx, recipient, time.Now().UTC())
		if err != nil || changed != 3 {
			t.Fatalf("MarkAllRead = %d, %v", changed, err)
		}
		if n, _ := s.CountUnread(ctx, recipient); n != 0 {
			t.Fatalf("unread = %d, want 0", n)
		}
		removed, err := s.DeleteReadBefore(ctx, time.Now().UTC().Add(-30*24*time.Hour))
		if err != nil || removed < 3 {
			t.Fatalf("DeleteReadBefore = %d, %v", removed, err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, NewMemoryStore())
}

func TestPersistentMemoryStoreReloads(t *testing.T) {
	dir := t.TempDir()
	s, err := NewPersistentMemoryStore(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ev := newEvent(5)
	if err := s.CreateEvent(context.Background(), ev); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.IncViewCount(context.Background(), ev.ID); err != nil {
			t.Fatalf("IncViewCount: %v", err)
		}
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewPersistentMemoryStore(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.GetEvent(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("GetEvent after reload: %v", err)
	}
	if got.Title != ev.Title || got.Capacity != 5 || got.ViewCount != 2 {
		t.Fatalf("reloaded event = %+v", got)
	}
}

// Every write lands in the snapshot, so a crash before Close loses nothing.
func TestPersistentMemoryStoreSnapshotsViewCount(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s, err := NewPersistentMemoryStore(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ev := newEvent(5)
	if err := s.CreateEvent(ctx, ev); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if err := s.IncViewCount(ctx, ev.ID); err != nil {
		t.Fatalf("IncViewCount: %v", err)
	}

	reopened, err := NewPersistentMemoryStore(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.GetEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("GetEvent after reload: %v", err)
	}
	if got.ViewCount != 1 {
		t.Fatalf("view count after reload = %d, want 1", got.ViewCount)
	}
}

func TestClearExpiredTokens(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	_ = s.CreateUser(ctx, &models.User{ID: "a", Email: "a@x.it", ResetToken: "t1", ResetTokenExpiry: &past})
	_ = s.CreateUser(ctx, &models.User{ID: "b", Email: "b@x.it", ResetToken: "t2", ResetTokenExpiry: &future})

	n, err := s.ClearExpiredTokens(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("ClearExpiredTokens = %d, %v", n, err)
	}
	if _, err := s.GetUserByResetToken(ctx, "t2", now); err != nil {
		t.Fatalf("valid token lost: %v", err)
	}
	if _, err := s.GetUserByResetToken(ctx, "t1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired token err = %v", err)
	}
}

// TestMongoStore runs against a live server when MONGODB_TEST_URI is set.
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := NewMongoStore(ctx, MongoOptions{URI: uri, Database: "eventhub_test_" + uuid.NewString()[:8]}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewMongoStore: %v", err)
	}
	t.Cleanup(func() {
		_ = s.db.Drop(context.Background())
		_ = s.Close(context.Background())
	})

	runStoreSuite(t, s)
}
