package poker

import (
	"fmt"
	"time"
)

// ActionKind enumerates the betting actions.
type ActionKind uint8

const (
	// Fold gives up the hand.
	Fold ActionKind = iota
	// Check passes when there is nothing to call.
	Check
	// Call matches the current bet.
	Call
	// Raise increases the current bet by Action.Amount additional chips.
	Raise
	// AllInBet commits the whole remaining stack.
	AllInBet
)

func (k ActionKind) String() string {
	switch k {
	case Fold:
		return "fold"
	case Check:
		return "check"
	case Call:
		return "call"
	case Raise:
		return "raise"
	case AllInBet:
		return "all-in"
	default:
		return "unknown"
	}
}

// Action is one betting decision. Amount is meaningful only for Raise,
// where it is the additional chips put in on top of the seat's current
// bet.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Amount uint64     `json:"amount,omitempty"`
}

// PlayerAction applies one betting action for the seat owned by player.
// It enforces turn order, betting legality and raise sizing, then
// advances action or the street.
func (t *Table) PlayerAction(player string, action Action, now time.Time) error {
	if t.Status != TablePlaying || t.Hand == nil {
		return ErrHandNotInProgress
	}
	if !t.Hand.Phase.bettingPhase() {
		return ErrInvalidPhase
	}
	seat, ok := t.SeatByOwner(player)
	if !ok {
		return ErrPlayerNotAtTable
	}
	if t.Hand.ActionOn != seat.Index {
		return ErrNotPlayersTurn
	}
	if !seat.canAct() {
		return ErrPlayerFolded
	}

	work := t.clone()
	if err := work.applyAction(work.Seats[seat.Index], action, now); err != nil {
		return err
	}
	t.commit(work)
	t.logger().Debugf("hand %d: seat %d %s, pot %d",
		t.Hand.HandNumber, seat.Index, action.Kind, t.Hand.Pot)
	return nil
}

// applyAction mutates a working copy with a validated action.
func (t *Table) applyAction(seat *Seat, action Action, now time.Time) error {
	h := t.Hand
	toCall := h.CurrentBet - min64(h.CurrentBet, seat.CurrentBet)

	switch action.Kind {
	case Fold:
		seat.fold()
		h.foldSeat(seat.Index)
		if h.ActiveCount == 1 {
			// Last seat standing wins; skip straight to settlement.
			h.markActed(seat.Index)
			seat.HasActed = true
			h.LastAction = now
			h.Phase = Showdown
			return nil
		}

	case Check:
		if toCall != 0 {
			return ErrCannotCheck
		}

	case Call:
		if toCall == 0 {
			return ErrInvalidAction
		}
		h.Pot += seat.placeBet(toCall)
		if seat.Status == AllIn {
			h.markAllIn(seat.Index)
		}

	case Raise:
		if action.Amount == 0 {
			return ErrInvalidAction
		}
		totalBet := seat.CurrentBet + action.Amount
		if totalBet <= h.CurrentBet || totalBet-h.CurrentBet < h.MinRaise {
			return fmt.Errorf("%w: need at least %d more", ErrRaiseTooSmall, h.MinRaise)
		}
		if action.Amount > seat.Chips {
			return ErrInvalidAction
		}
		h.Pot += seat.placeBet(action.Amount)
		if seat.Status == AllIn {
			h.markAllIn(seat.Index)
		}
		h.reopenBetting(seat)

	case AllInBet:
		if seat.Chips == 0 {
			return ErrInvalidAction
		}
		h.Pot += seat.placeBet(seat.Chips)
		h.markAllIn(seat.Index)
		h.reopenBetting(seat)

	default:
		return ErrInvalidAction
	}

	h.markActed(seat.Index)
	seat.HasActed = true
	h.LastAction = now

	t.advanceAction(seat.Index)
	return nil
}

// reopenBetting updates the table bet after a raise. A raise of at
// least the minimum reopens action for everyone; a short all-in raises
// the amount to call but does not give already-acted players another
// turn, and leaves the minimum raise where it was.
func (h *Hand) reopenBetting(seat *Seat) {
	newBet := seat.CurrentBet
	if newBet <= h.CurrentBet {
		return
	}
	raisedBy := newBet - h.CurrentBet
	if raisedBy >= h.MinRaise {
		h.MinRaise = raisedBy
		h.ActedThisRound = 0
	}
	h.CurrentBet = newBet
}

// advanceAction moves the turn marker and closes the street when all
// live bets are matched.
func (t *Table) advanceAction(after uint8) {
	h := t.Hand
	if h.Phase == Showdown || h.Phase == Settled {
		return
	}
	if h.bettingComplete() {
		t.advanceStreet()
		return
	}
	if next, ok := h.nextActiveSeat(after, t.Config.MaxPlayers); ok {
		h.ActionOn = next
		return
	}
	// Nobody can act.
	t.runOutBoard()
}

// advanceStreet closes the current betting round: it opens the next
// street and resets per-street state, or moves to showdown after the
// river. When no further betting is possible the remaining streets run
// out at once.
func (t *Table) advanceStreet() {
	h := t.Hand
	if h.everyoneAllIn() {
		t.runOutBoard()
		return
	}

	switch h.Phase {
	case PreFlop:
		h.Phase = Flop
		t.openStreets(3)
	case Flop:
		h.Phase = Turn
		t.openStreets(4)
	case Turn:
		h.Phase = River
		t.openStreets(5)
	case River:
		h.Phase = Showdown
		return
	default:
		return
	}

	h.resetBettingRound()
	h.MinRaise = t.Config.BigBlind
	for _, s := range t.Seats {
		if s != nil && s.Status != Sitting {
			s.resetForBettingRound()
		}
	}
	h.ActionOn = h.firstActiveLeftOfDealer(t.Config.MaxPlayers)
}

// TimeoutPlayer forces an action for the seat whose turn it is once the
// action deadline has passed. Anyone may call it. The timed-out seat
// checks when checking is free and folds otherwise.
func (t *Table) TimeoutPlayer(now time.Time) (Action, error) {
	if t.Status != TablePlaying || t.Hand == nil {
		return Action{}, ErrHandNotInProgress
	}
	h := t.Hand
	if !h.Phase.bettingPhase() {
		return Action{}, ErrInvalidPhase
	}
	if now.Sub(h.LastAction) < t.Config.Timeouts.Action {
		return Action{}, ErrTimeoutNotReached
	}
	seat := t.Seats[h.ActionOn]
	if seat == nil || !seat.canAct() {
		return Action{}, ErrPlayerNotActive
	}

	forced := Action{Kind: Fold}
	if seat.CurrentBet == h.CurrentBet {
		forced = Action{Kind: Check}
	}
	work := t.clone()
	if err := work.applyAction(work.Seats[seat.Index], forced, now); err != nil {
		return Action{}, err
	}
	t.commit(work)
	return forced, nil
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
