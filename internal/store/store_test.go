package store

import (
	"errors"
	"testing"

	"github.com/wallet-sync/internal/models"
)

func TestCommitNotifiesAfterFullValue(t *testing.T) {
	r := NewResource[[]models.Wallet]()

	var seen []Snapshot[[]models.Wallet]
	unsub := r.Subscribe(func(s Snapshot[[]models.Wallet]) {
		// The committed value must already be visible through Get.
		if got := r.Get(); got.LastUpdated != s.LastUpdated {
			t.Errorf("listener saw LastUpdated %d but Get returned %d", s.LastUpdated, got.LastUpdated)
		}
		seen = append(seen, s)
	})
	defer unsub()

	wallets := []models.Wallet{{Address: "0x1", NetworkID: "1"}}
	r.Commit(wallets, 42)

	if len(seen) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(seen))
	}
	if seen[0].LastUpdated != 42 || !seen[0].HasInitialized || seen[0].Err != nil {
		t.Errorf("unexpected snapshot after commit: %+v", seen[0])
	}
	if len(seen[0].Data) != 1 {
		t.Errorf("expected committed data in notification")
	}
}

func TestFailPreservesData(t *testing.T) {
	r := NewResource[[]models.Transaction]()
	r.Commit([]models.Transaction{{ID: "a"}, {ID: "b"}}, 100)

	r.Fail(errors.New("boom"))

	snap := r.Get()
	if len(snap.Data) != 2 {
		t.Fatalf("Fail must not discard data, got %d items", len(snap.Data))
	}
	if snap.Err == nil {
		t.Error("expected error recorded on snapshot")
	}
	if snap.LastUpdated != 100 {
		t.Errorf("LastUpdated changed on failure: %d", snap.LastUpdated)
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	r := NewResource[int]()

	calls := 0
	unsub := r.Subscribe(func(Snapshot[int]) { calls++ })
	r.Commit(1, 1)
	unsub()
	r.Commit(2, 2)

	if calls != 1 {
		t.Errorf("expected 1 call after unsubscribe, got %d", calls)
	}
}

func TestSeedMarksInitializedOnlyWithTimestamp(t *testing.T) {
	r := NewResource[models.PortfolioSnapshot]()

	r.Seed(models.PortfolioSnapshot{}, 0)
	if r.Get().HasInitialized {
		t.Error("seeding without a timestamp must not mark initialized")
	}

	r.Seed(models.PortfolioSnapshot{}, 123)
	if !r.Get().HasInitialized {
		t.Error("seeding persisted data should mark initialized")
	}
}

func TestClearAllBumpsGeneration(t *testing.T) {
	s := New()
	s.Wallets.Commit([]models.Wallet{{Address: "0x1"}}, 10)
	s.Pending.Commit([]models.Transaction{{ID: "p1"}}, 10)

	gen := s.Generation()
	s.ClearAll()

	if s.Generation() != gen+1 {
		t.Error("ClearAll must bump the generation")
	}
	if w := s.Wallets.Get(); len(w.Data) != 0 || w.LastUpdated != 0 || w.HasInitialized {
		t.Errorf("wallets not cleared: %+v", w)
	}
	if p := s.Pending.Get(); len(p.Data) != 0 {
		t.Errorf("pending not cleared: %+v", p)
	}
}

func TestResetInitializedKeepsData(t *testing.T) {
	s := New()
	s.Transactions.Commit([]models.Transaction{{ID: "a"}}, 10)

	s.ResetInitialized()

	snap := s.Transactions.Get()
	if snap.HasInitialized {
		t.Error("expected initialization flag dropped")
	}
	if len(snap.Data) != 1 {
		t.Error("data must survive a ResetInitialized")
	}
}
