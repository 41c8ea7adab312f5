package poker

import (
	"errors"
	"testing"
	"time"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		TableID:    "test-table",
		Authority:  "authority",
		SmallBlind: 10,
		BigBlind:   20,
		MinBuyIn:   200,
		MaxBuyIn:   2000,
		MaxPlayers: 6,
		Timeouts:   DefaultTimeouts(),
	}
}

func mustTable(t *testing.T, cfg Config) *Table {
	t.Helper()
	tbl, err := NewTable(cfg, testStart)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func mustJoin(t *testing.T, tbl *Table, owner string, buyIn uint64) uint8 {
	t.Helper()
	seat, ok := tbl.findEmptySeat()
	if !ok {
		t.Fatalf("no open seat for %s", owner)
	}
	if err := tbl.Join(owner, seat, buyIn); err != nil {
		t.Fatalf("Join(%s): %v", owner, err)
	}
	return seat
}

func TestNewTableValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"missing id", func(c *Config) { c.TableID = "" }, ErrInvalidTableConfig},
		{"missing authority", func(c *Config) { c.Authority = "" }, ErrInvalidTableConfig},
		{"too few seats", func(c *Config) { c.MaxPlayers = 1 }, ErrInvalidMaxPlayers},
		{"too many seats", func(c *Config) { c.MaxPlayers = 7 }, ErrInvalidMaxPlayers},
		{"zero small blind", func(c *Config) { c.SmallBlind = 0 }, ErrInvalidBlinds},
		{"big blind below small", func(c *Config) { c.BigBlind = 5 }, ErrInvalidBlinds},
		{"inverted buy-in range", func(c *Config) { c.MinBuyIn = 3000 }, ErrInvalidBuyInRange},
		{"min buy-in below ten big blinds", func(c *Config) { c.MinBuyIn = 199 }, ErrInvalidBuyInRange},
	}
	for _, tc := range cases {
		cfg := testConfig()
		tc.mutate(&cfg)
		if _, err := NewTable(cfg, testStart); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestJoinAndLeave(t *testing.T) {
	tbl := mustTable(t, testConfig())

	seat := mustJoin(t, tbl, "alice", 500)
	if seat != 0 {
		t.Errorf("first player got seat %d, want 0", seat)
	}
	if tbl.CurrentPlayers != 1 || !tbl.isSeatOccupied(0) {
		t.Error("occupancy not updated after join")
	}

	if err := tbl.Join("alice", 1, 500); !errors.Is(err, ErrAlreadySeated) {
		t.Errorf("duplicate join: got %v, want ErrAlreadySeated", err)
	}
	if err := tbl.Join("bob", 1, 100); !errors.Is(err, ErrInvalidBuyIn) {
		t.Errorf("buy-in below minimum: got %v, want ErrInvalidBuyIn", err)
	}
	if err := tbl.Join("bob", 1, 5000); !errors.Is(err, ErrInvalidBuyIn) {
		t.Errorf("buy-in above maximum: got %v, want ErrInvalidBuyIn", err)
	}

	chips, err := tbl.Leave("alice")
	if err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if chips != 500 {
		t.Errorf("leave returned %d chips, want 500", chips)
	}
	if tbl.CurrentPlayers != 0 || tbl.isSeatOccupied(0) {
		t.Error("occupancy not cleared after leave")
	}
	if _, err := tbl.Leave("alice"); !errors.Is(err, ErrPlayerNotAtTable) {
		t.Errorf("second leave: got %v, want ErrPlayerNotAtTable", err)
	}
}

func TestJoinSeatSelection(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPlayers = 3
	tbl := mustTable(t, cfg)

	if err := tbl.Join("alice", 2, 500); err != nil {
		t.Fatalf("Join at seat 2: %v", err)
	}
	if tbl.Seats[2] == nil || tbl.Seats[2].Owner != "alice" || tbl.Seats[2].Index != 2 {
		t.Fatal("alice not seated at the chosen seat")
	}
	if err := tbl.Join("bob", 2, 500); !errors.Is(err, ErrSeatOccupied) {
		t.Errorf("join on occupied seat: got %v, want ErrSeatOccupied", err)
	}
	if err := tbl.Join("bob", 3, 500); !errors.Is(err, ErrInvalidSeat) {
		t.Errorf("join beyond max players: got %v, want ErrInvalidSeat", err)
	}
	if err := tbl.Join("bob", 0, 500); err != nil {
		t.Fatalf("Join at seat 0: %v", err)
	}
}

func TestStartHandGating(t *testing.T) {
	tbl := mustTable(t, testConfig())
	mustJoin(t, tbl, "alice", 500)

	if err := tbl.StartHand("authority", testStart); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Errorf("start with one player: got %v, want ErrNotEnoughPlayers", err)
	}
	mustJoin(t, tbl, "bob", 500)

	// Non-authority before the start deadline.
	if err := tbl.StartHand("alice", testStart.Add(10*time.Second)); !errors.Is(err, ErrTimeoutNotReached) {
		t.Errorf("early permissionless start: got %v, want ErrTimeoutNotReached", err)
	}
	// Non-authority once the deadline passed.
	if err := tbl.StartHand("alice", testStart.Add(31*time.Second)); err != nil {
		t.Errorf("late permissionless start: %v", err)
	}
	if tbl.Status != TablePlaying || tbl.HandNumber != 1 {
		t.Errorf("table not playing after start: status=%v hand=%d", tbl.Status, tbl.HandNumber)
	}
	if err := tbl.StartHand("authority", testStart); !errors.Is(err, ErrHandInProgress) {
		t.Errorf("double start: got %v, want ErrHandInProgress", err)
	}
}

func TestHeadsUpBlindPositions(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPlayers = 2
	tbl := mustTable(t, cfg)
	mustJoin(t, tbl, "alice", 500)
	mustJoin(t, tbl, "bob", 500)

	if err := tbl.StartHand("authority", testStart); err != nil {
		t.Fatalf("StartHand: %v", err)
	}
	h := tbl.Hand
	if h.SmallBlindSeat != h.DealerSeat {
		t.Errorf("heads-up small blind on seat %d, want dealer seat %d", h.SmallBlindSeat, h.DealerSeat)
	}
	if h.BigBlindSeat == h.DealerSeat {
		t.Error("heads-up big blind must not be the dealer")
	}
	if h.ActionOn != h.SmallBlindSeat {
		t.Errorf("heads-up pre-flop action on seat %d, want small blind %d", h.ActionOn, h.SmallBlindSeat)
	}
}

func TestDealerRotationSkipsEmptySeats(t *testing.T) {
	tbl := mustTable(t, testConfig())
	mustJoin(t, tbl, "alice", 500) // seat 0
	mustJoin(t, tbl, "bob", 500)   // seat 1
	mustJoin(t, tbl, "carol", 500) // seat 2

	// Leave a hole at seat 1.
	if _, err := tbl.Leave("bob"); err != nil {
		t.Fatalf("Leave: %v", err)
	}

	if err := tbl.StartHand("authority", testStart); err != nil {
		t.Fatalf("StartHand: %v", err)
	}
	first := tbl.Hand.DealerSeat
	if first == 1 {
		t.Error("dealer landed on an empty seat")
	}
	finishHand(t, tbl)

	if err := tbl.StartHand("authority", testStart.Add(time.Minute)); err != nil {
		t.Fatalf("second StartHand: %v", err)
	}
	second := tbl.Hand.DealerSeat
	if second == 1 {
		t.Error("dealer rotated onto an empty seat")
	}
	if second == first {
		t.Error("dealer did not advance between hands")
	}
}

// finishHand plays the current hand to completion by folding everyone
// but the seat on action.
func finishHand(t *testing.T, tbl *Table) {
	t.Helper()
	if err := tbl.DealCards("authority", 42, testStart); err != nil {
		t.Fatalf("DealCards: %v", err)
	}
	for tbl.Hand.Phase.bettingPhase() && tbl.Hand.ActiveCount > 1 {
		seat := tbl.Seats[tbl.Hand.ActionOn]
		if err := tbl.PlayerAction(seat.Owner, Action{Kind: Fold}, testStart); err != nil {
			t.Fatalf("fold by %s: %v", seat.Owner, err)
		}
	}
	if _, err := tbl.Showdown("authority", testStart); err != nil {
		t.Fatalf("Showdown: %v", err)
	}
}

func TestCloseInactive(t *testing.T) {
	tbl := mustTable(t, testConfig())
	mustJoin(t, tbl, "alice", 500)
	mustJoin(t, tbl, "bob", 300)

	if _, err := tbl.CloseInactive(testStart.Add(30 * time.Minute)); !errors.Is(err, ErrTableStillActive) {
		t.Errorf("early close: got %v, want ErrTableStillActive", err)
	}

	refunds, err := tbl.CloseInactive(testStart.Add(2 * time.Hour))
	if err != nil {
		t.Fatalf("CloseInactive: %v", err)
	}
	if refunds["alice"] != 500 || refunds["bob"] != 300 {
		t.Errorf("refunds = %v, want alice:500 bob:300", refunds)
	}
	if tbl.Status != Closed || tbl.CurrentPlayers != 0 {
		t.Error("table not emptied and closed")
	}
	if err := tbl.Join("carol", 2, 500); !errors.Is(err, ErrTableClosed) {
		t.Errorf("join after close: got %v, want ErrTableClosed", err)
	}
}

func TestFailedOperationLeavesTableUntouched(t *testing.T) {
	tbl := mustTable(t, testConfig())
	mustJoin(t, tbl, "alice", 500)
	mustJoin(t, tbl, "bob", 500)
	if err := tbl.StartHand("authority", testStart); err != nil {
		t.Fatalf("StartHand: %v", err)
	}
	if err := tbl.DealCards("authority", 7, testStart); err != nil {
		t.Fatalf("DealCards: %v", err)
	}

	before := tbl.Snapshot()
	actor := tbl.Seats[tbl.Hand.ActionOn].Owner

	// A raise below the minimum must fail without side effects.
	err := tbl.PlayerAction(actor, Action{Kind: Raise, Amount: 1}, testStart)
	if !errors.Is(err, ErrRaiseTooSmall) {
		t.Fatalf("short raise: got %v, want ErrRaiseTooSmall", err)
	}
	if tbl.Hand.Pot != before.Hand.Pot || tbl.Hand.CurrentBet != before.Hand.CurrentBet {
		t.Error("failed action mutated the hand")
	}
	for i := range tbl.Seats {
		if (tbl.Seats[i] == nil) != (before.Seats[i] == nil) {
			t.Fatalf("seat %d presence changed", i)
		}
		if tbl.Seats[i] != nil && *tbl.Seats[i] != *before.Seats[i] {
			t.Errorf("failed action mutated seat %d", i)
		}
	}
}

func TestStartHandRequiresFundedSeats(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPlayers = 2
	tbl := mustTable(t, cfg)
	mustJoin(t, tbl, "alice", 500)
	mustJoin(t, tbl, "bob", 500)
	tbl.Seats[1].Chips = 0

	if err := tbl.StartHand("authority", testStart); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Errorf("start with one funded seat: got %v, want ErrNotEnoughPlayers", err)
	}
	if tbl.Status != Waiting || tbl.Hand != nil {
		t.Error("failed start left the table mid-hand")
	}
}

func TestStartHandSitsOutBustedSeat(t *testing.T) {
	tbl := mustTable(t, testConfig())
	mustJoin(t, tbl, "alice", 500) // seat 0
	mustJoin(t, tbl, "bob", 500)   // seat 1
	mustJoin(t, tbl, "carol", 500) // seat 2
	tbl.Seats[2].Chips = 0

	if err := tbl.StartHand("authority", testStart); err != nil {
		t.Fatalf("StartHand: %v", err)
	}
	h := tbl.Hand
	if h.isSeatActive(2) {
		t.Error("broke seat dealt into the hand")
	}
	if h.ActiveCount != 2 {
		t.Errorf("hand has %d seats, want 2", h.ActiveCount)
	}
	for _, pos := range []uint8{h.DealerSeat, h.SmallBlindSeat, h.BigBlindSeat, h.ActionOn} {
		if pos == 2 {
			t.Fatal("broke seat holds a position in the hand")
		}
	}

	if err := tbl.DealCards("authority", 42, testStart); err != nil {
		t.Fatalf("DealCards: %v", err)
	}
	if tbl.Seats[2].HoleCards[0].IsDealt() {
		t.Error("broke seat received cards")
	}

	// The hand still settles normally between the funded seats.
	for tbl.Hand.Phase.bettingPhase() && tbl.Hand.ActiveCount > 1 {
		seat := tbl.Seats[tbl.Hand.ActionOn]
		if err := tbl.PlayerAction(seat.Owner, Action{Kind: Fold}, testStart); err != nil {
			t.Fatalf("fold by %s: %v", seat.Owner, err)
		}
	}
	if _, err := tbl.Showdown("authority", testStart); err != nil {
		t.Fatalf("Showdown: %v", err)
	}
	if tbl.Status != Waiting {
		t.Errorf("table status %v after settle, want waiting", tbl.Status)
	}
	if got := tbl.Seats[0].Chips + tbl.Seats[1].Chips; got != 1000 {
		t.Errorf("funded stacks total %d, want 1000", got)
	}
}

func TestBustedSeatLeavesDuringHand(t *testing.T) {
	tbl := mustTable(t, testConfig())
	mustJoin(t, tbl, "alice", 500)
	mustJoin(t, tbl, "bob", 500)
	mustJoin(t, tbl, "carol", 500)
	tbl.Seats[2].Chips = 0

	if err := tbl.StartHand("authority", testStart); err != nil {
		t.Fatalf("StartHand: %v", err)
	}
	if err := tbl.DealCards("authority", 42, testStart); err != nil {
		t.Fatalf("DealCards: %v", err)
	}

	// Players in the hand must wait for settlement.
	if _, err := tbl.Leave("alice"); !errors.Is(err, ErrLeaveDuringHand) {
		t.Errorf("leave while in the hand: got %v, want ErrLeaveDuringHand", err)
	}
	// A busted seat sitting out may go at any time.
	chips, err := tbl.Leave("carol")
	if err != nil {
		t.Fatalf("Leave busted seat: %v", err)
	}
	if chips != 0 {
		t.Errorf("busted leave returned %d chips, want 0", chips)
	}
	if tbl.isSeatOccupied(2) || tbl.CurrentPlayers != 2 {
		t.Error("seat not vacated")
	}
	if tbl.Hand == nil || tbl.Hand.ActiveCount != 2 {
		t.Error("running hand disturbed by the leave")
	}
}
