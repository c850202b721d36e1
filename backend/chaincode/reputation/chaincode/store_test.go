package chaincode

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/trustup-app/trustup/backend/pkg/ledgerapi"
	"github.com/trustup-app/trustup/backend/pkg/safemath"
)

func newTestStore(t *testing.T) (*Store, *ledgerapi.MemLedger) {
	t.Helper()
	led := ledgerapi.NewMemLedger()
	store := NewStore(led, led)
	if err := store.Initialize("admin-1"); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := store.SetUpdater("admin-1", "updater-1", true); err != nil {
		t.Fatalf("set updater: %v", err)
	}
	return store, led
}

func lastScoreChange(t *testing.T, led *ledgerapi.MemLedger) ScoreChange {
	t.Helper()
	events := led.EventsNamed(ScoreChangeEvent)
	if len(events) == 0 {
		t.Fatal("expected at least one ScoreChangeEvent")
	}
	var change ScoreChange
	if err := json.Unmarshal(events[len(events)-1].Payload, &change); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	return change
}

func TestInitializeTwiceFails(t *testing.T) {
	led := ledgerapi.NewMemLedger()
	store := NewStore(led, led)
	if err := store.Initialize("admin-1"); err != nil {
		t.Fatalf("first initialize: %v", err)
	}
	if err := store.Initialize("admin-2"); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestGetScoreDefaultsTo50(t *testing.T) {
	store, _ := newTestStore(t)
	score, err := store.GetScore("nobody")
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	if score != DefaultScore {
		t.Fatalf("expected default score %d, got %d", DefaultScore, score)
	}
}

func TestIncreaseThenDecreaseRestoresScore(t *testing.T) {
	store, _ := newTestStore(t)

	before, _ := store.GetScore("user-1")
	if err := store.IncreaseScore("updater-1", "user-1", 20, "test"); err != nil {
		t.Fatalf("increase: %v", err)
	}
	if err := store.DecreaseScore("updater-1", "user-1", 20, "test"); err != nil {
		t.Fatalf("decrease: %v", err)
	}
	after, _ := store.GetScore("user-1")
	if after != before {
		t.Fatalf("expected score restored to %d, got %d", before, after)
	}
}

func TestIncreaseClampsAt100(t *testing.T) {
	store, led := newTestStore(t)

	if err := store.IncreaseScore("updater-1", "user-1", 90, "test"); err != nil {
		t.Fatalf("increase: %v", err)
	}
	score, _ := store.GetScore("user-1")
	if score != MaxScore {
		t.Fatalf("expected clamp to %d, got %d", MaxScore, score)
	}

	change := lastScoreChange(t, led)
	if change.Old != 50 || change.New != 100 {
		t.Fatalf("unexpected event old=%d new=%d", change.Old, change.New)
	}

	// A clamped increase followed by a symmetric decrease does NOT restore
	// the prior value: 50 +90(clamp 100) -90 = 10.
	if err := store.DecreaseScore("updater-1", "user-1", 90, "test"); err != nil {
		t.Fatalf("decrease: %v", err)
	}
	score, _ = store.GetScore("user-1")
	if score != 10 {
		t.Fatalf("expected 10 after clamped round trip, got %d", score)
	}
}

func TestDecreaseClampsAtZero(t *testing.T) {
	store, led := newTestStore(t)

	if err := store.DecreaseScore("updater-1", "user-1", 200, "penalty"); err != nil {
		t.Fatalf("decrease: %v", err)
	}
	score, _ := store.GetScore("user-1")
	if score != 0 {
		t.Fatalf("expected clamp to 0, got %d", score)
	}

	// The clamp still emits an auditable event.
	change := lastScoreChange(t, led)
	if change.Old != 50 || change.New != 0 || change.Reason != "penalty" {
		t.Fatalf("unexpected event %+v", change)
	}
}

func TestZeroAmountStillEmitsEvent(t *testing.T) {
	store, led := newTestStore(t)

	before := len(led.EventsNamed(ScoreChangeEvent))
	if err := store.IncreaseScore("updater-1", "user-1", 0, "noop"); err != nil {
		t.Fatalf("increase: %v", err)
	}
	after := len(led.EventsNamed(ScoreChangeEvent))
	if after != before+1 {
		t.Fatalf("expected event for zero-amount change, got %d -> %d", before, after)
	}
}

func TestIncreaseOverflowFailsClosed(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.IncreaseScore("updater-1", "user-1", ^uint32(0), "test")
	if !errors.Is(err, safemath.ErrOverflow) {
		t.Fatalf("expected overflow error, got %v", err)
	}
	// Score untouched on failure.
	score, _ := store.GetScore("user-1")
	if score != DefaultScore {
		t.Fatalf("expected score unchanged at %d, got %d", DefaultScore, score)
	}
}

func TestScoreStaysInBoundsUnderMixedOps(t *testing.T) {
	store, _ := newTestStore(t)

	ops := []struct {
		inc    bool
		amount uint32
	}{
		{true, 30}, {true, 60}, {false, 10}, {true, 45},
		{false, 120}, {true, 5}, {false, 1}, {true, 100},
	}
	for _, op := range ops {
		var err error
		if op.inc {
			err = store.IncreaseScore("updater-1", "user-1", op.amount, "test")
		} else {
			err = store.DecreaseScore("updater-1", "user-1", op.amount, "test")
		}
		if err != nil {
			t.Fatalf("op %+v: %v", op, err)
		}
		score, _ := store.GetScore("user-1")
		if score > MaxScore {
			t.Fatalf("score %d escaped bounds after %+v", score, op)
		}
	}
}

func TestMutationRequiresUpdaterRole(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.IncreaseScore("intruder", "user-1", 10, "test"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	// The admin is not implicitly an updater.
	if err := store.DecreaseScore("admin-1", "user-1", 10, "test"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for admin, got %v", err)
	}
}

func TestRevokedUpdaterLosesAccess(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.SetUpdater("admin-1", "updater-1", false); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := store.IncreaseScore("updater-1", "user-1", 10, "test"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after revocation, got %v", err)
	}
}

func TestAdminTransferIsAtomic(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.SetAdmin("admin-1", "admin-2"); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	// Old admin lost rights in the same operation.
	if err := store.SetUpdater("admin-1", "x", true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected old admin to be locked out, got %v", err)
	}
	if err := store.SetUpdater("admin-2", "x", true); err != nil {
		t.Fatalf("new admin should have rights: %v", err)
	}
}

func TestSetUpdaterRequiresAdmin(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.SetUpdater("updater-1", "friend", true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
