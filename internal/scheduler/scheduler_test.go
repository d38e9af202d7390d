package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ekkoscope/internal/models"
	"ekkoscope/internal/testutil"
)

type fakeRunner struct {
	ran     []uint
	failAll bool
}

func (f *fakeRunner) RunScheduledAudit(ctx context.Context, businessID uint) error {
	f.ran = append(f.ran, businessID)
	if f.failAll {
		return fmt.Errorf("provider outage")
	}
	return nil
}

func subscribe(t *testing.T, s *Scheduler, businessID uint, nextAudit time.Time) {
	t.Helper()
	err := s.db.Model(&models.Business{}).Where("id = ?", businessID).
		Updates(map[string]any{"subscription_active": true, "next_audit_at": nextAudit}).Error
	testutil.AssertNoError(t, err)
}

func TestNextAuditDate(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next := NextAuditDate(from)
	if days := next.Sub(from).Hours() / 24; days != 90 {
		t.Errorf("expected 90-day cadence, got %.0f days", days)
	}
}

func TestDueBusinesses(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	s := New(db, &fakeRunner{})
	user := testutil.CreateTestUser(t, db)

	overdue := testutil.CreateTestBusiness(t, db, user.ID)
	subscribe(t, s, overdue.ID, time.Now().UTC().Add(-time.Hour))

	future := testutil.CreateTestBusiness(t, db, user.ID)
	subscribe(t, s, future.ID, time.Now().UTC().Add(24*time.Hour))

	// Active subscription but never scheduled.
	unscheduled := testutil.CreateTestBusiness(t, db, user.ID)
	err := db.Model(&models.Business{}).Where("id = ?", unscheduled.ID).
		Update("subscription_active", true).Error
	testutil.AssertNoError(t, err)

	// Lapsed subscription with an overdue date.
	lapsed := testutil.CreateTestBusiness(t, db, user.ID)
	err = db.Model(&models.Business{}).Where("id = ?", lapsed.ID).
		Update("next_audit_at", time.Now().UTC().Add(-time.Hour)).Error
	testutil.AssertNoError(t, err)

	due, err := s.DueBusinesses(context.Background())
	testutil.AssertNoError(t, err)
	if len(due) != 1 || due[0].ID != overdue.ID {
		t.Errorf("expected only the overdue subscriber, got %d businesses", len(due))
	}
}

func TestRunCycle(t *testing.T) {
	t.Run("runs due audits and advances dates", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		runner := &fakeRunner{}
		s := New(db, runner)
		user := testutil.CreateTestUser(t, db)

		business := testutil.CreateTestBusiness(t, db, user.ID)
		subscribe(t, s, business.ID, time.Now().UTC().Add(-time.Hour))

		count, err := s.RunCycle(context.Background())
		testutil.AssertNoError(t, err)
		if count != 1 {
			t.Fatalf("expected 1 processed business, got %d", count)
		}
		if len(runner.ran) != 1 || runner.ran[0] != business.ID {
			t.Errorf("runner saw %v, expected [%d]", runner.ran, business.ID)
		}

		var reloaded models.Business
		testutil.AssertNoError(t, db.First(&reloaded, business.ID).Error)
		if reloaded.NextAuditAt == nil || !reloaded.NextAuditAt.After(time.Now().UTC().Add(80*24*time.Hour)) {
			t.Errorf("next audit date not advanced: %v", reloaded.NextAuditAt)
		}

		// Second cycle: nothing due anymore.
		count, err = s.RunCycle(context.Background())
		testutil.AssertNoError(t, err)
		if count != 0 {
			t.Errorf("expected no due businesses on second cycle, got %d", count)
		}
	})

	t.Run("failed audit still advances the date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		runner := &fakeRunner{failAll: true}
		s := New(db, runner)
		user := testutil.CreateTestUser(t, db)

		business := testutil.CreateTestBusiness(t, db, user.ID)
		subscribe(t, s, business.ID, time.Now().UTC().Add(-time.Hour))

		count, err := s.RunCycle(context.Background())
		testutil.AssertNoError(t, err)
		if count != 1 {
			t.Fatalf("expected 1 processed business, got %d", count)
		}

		var reloaded models.Business
		testutil.AssertNoError(t, db.First(&reloaded, business.ID).Error)
		if reloaded.NextAuditAt == nil || !reloaded.NextAuditAt.After(time.Now().UTC()) {
			t.Error("expected next audit date advanced despite failure")
		}
	})
}

func TestLoopStopsOnCancel(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	s := New(db, &fakeRunner{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Loop(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop on context cancel")
	}
}
