package rewards

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger", "rewards.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAwardOncePerSession(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	r := Reward{SessionID: "s1", Points: 30, Calm: 10 * time.Second}
	for i := 0; i < 3; i++ {
		if err := l.Award(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	bal, err := l.Balance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if bal != 30 {
		t.Errorf("balance = %d, want 30", bal)
	}
}

func TestBalanceEmpty(t *testing.T) {
	l := openLedger(t)
	bal, err := l.Balance(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if bal != 0 {
		t.Errorf("balance = %d, want 0", bal)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		err := l.Award(ctx, Reward{
			SessionID: id,
			Points:    30,
			Calm:      10500 * time.Millisecond,
			At:        base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := l.History(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rewards, want 2", len(got))
	}
	if got[0].SessionID != "c" || got[1].SessionID != "b" {
		t.Errorf("order = %s, %s", got[0].SessionID, got[1].SessionID)
	}
	if got[0].Calm != 10500*time.Millisecond {
		t.Errorf("calm = %s", got[0].Calm)
	}
	if !got[0].At.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("at = %s", got[0].At)
	}
}

func TestAwardRequiresSessionID(t *testing.T) {
	l := openLedger(t)
	if err := l.Award(context.Background(), Reward{Points: 30}); err == nil {
		t.Error("expected error for empty session id")
	}
}

func TestReopenKeepsRewards(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rewards.db")
	ctx := context.Background()

	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Award(ctx, Reward{SessionID: "s1", Points: 30}); err != nil {
		t.Fatal(err)
	}
	l.Close()

	l, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	bal, err := l.Balance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if bal != 30 {
		t.Errorf("balance after reopen = %d", bal)
	}
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestDiscard(t *testing.T) {
	if err := Discard.Award(context.Background(), Reward{}); err != nil {
		t.Error(err)
	}
}
