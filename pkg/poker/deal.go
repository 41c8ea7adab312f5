package poker

import (
	"time"

	"github.com/vctt94/hiddenhand/pkg/privacy"
)

// plainShuffle derives a deck permutation from a single seed. Used for
// tables running without the VRF oracle; encrypted tables shuffle
// through CallbackShuffle instead.
func plainShuffle(seed uint64) [NumCards]uint8 {
	var deck [NumCards]uint8
	for i := range deck {
		deck[i] = uint8(i)
	}
	for i := NumCards - 1; i > 0; i-- {
		seed = seed*1103515245 + 12345
		j := seed % uint64(i+1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}

// DealCards shuffles a plaintext deck from seed, deals two hole cards
// to every seat in the hand, posts the blinds, and opens pre-flop
// betting. The authority may deal at any time; anyone else may deal
// once the start deadline has passed.
func (t *Table) DealCards(caller string, seed uint64, now time.Time) error {
	if err := t.checkDealable(caller, now); err != nil {
		return err
	}
	work := t.clone()
	perm := plainShuffle(seed)
	if err := work.Deck.install(perm, func(v uint8) (privacy.CardSlot, error) {
		return privacy.PlaintextSlot(v), nil
	}); err != nil {
		return err
	}
	if err := work.dealAndPostBlinds(now); err != nil {
		return err
	}
	t.commit(work)
	t.logger().Debugf("hand %d dealt in the clear, pot %d after blinds",
		t.Hand.HandNumber, t.Hand.Pot)
	return nil
}

// checkDealable validates the common preconditions for dealing.
func (t *Table) checkDealable(caller string, now time.Time) error {
	if t.Status != TablePlaying || t.Hand == nil {
		return ErrHandNotInProgress
	}
	if t.Hand.Phase != Dealing {
		return ErrInvalidPhase
	}
	if t.Deck.IsShuffled {
		return ErrDeckAlreadyShuffled
	}
	if caller != t.Config.Authority &&
		now.Sub(t.Hand.HandStart) < t.Config.Timeouts.Start {
		return ErrTimeoutNotReached
	}
	return nil
}

// dealAndPostBlinds distributes hole cards from an installed deck,
// posts the blinds, and advances the hand to PreFlop. A seat that
// cannot cover its blind posts its whole stack and is all-in. When the
// blinds leave at most one seat able to bet, the board runs out to
// showdown immediately.
func (t *Table) dealAndPostBlinds(now time.Time) error {
	h := t.Hand

	// Deal in seat order starting left of the dealer. Only seats in
	// the hand get cards; busted seats sit out.
	pos := t.nextInMask(h.ActiveSeats, h.DealerSeat)
	for i := uint8(0); i < h.ActiveCount; i++ {
		seat := t.Seats[pos]
		if seat == nil {
			return ErrSeatEmpty
		}
		seat.resetForNewHand()
		for c := 0; c < 2; c++ {
			slot, err := t.Deck.dealSlot()
			if err != nil {
				return err
			}
			seat.HoleCards[c] = slot
		}
		pos = t.nextInMask(h.ActiveSeats, pos)
	}

	sb := t.Seats[h.SmallBlindSeat]
	bb := t.Seats[h.BigBlindSeat]
	h.Pot += sb.placeBet(t.Config.SmallBlind)
	h.Pot += bb.placeBet(t.Config.BigBlind)
	if sb.Status == AllIn {
		h.markAllIn(h.SmallBlindSeat)
	}
	if bb.Status == AllIn {
		h.markAllIn(h.BigBlindSeat)
	}

	h.Phase = PreFlop
	h.LastAction = now

	// Blinds may have gone all-in; make sure action starts on a seat
	// that can actually act.
	if cur := t.Seats[h.ActionOn]; cur == nil || !cur.canAct() {
		if next, ok := h.nextActiveSeat(h.ActionOn, t.Config.MaxPlayers); ok {
			h.ActionOn = next
		}
	}

	if h.bettingComplete() {
		t.runOutBoard()
	}
	return nil
}

// openStreets copies board slots from the deck into the hand up to
// count cards. Plaintext decks make the street readable at once;
// encrypted decks expose the handles until RevealCommunity attests the
// plaintext values.
func (t *Table) openStreets(count uint8) {
	for i := t.Hand.CommunityRevealed; i < count; i++ {
		t.Hand.Community[i] = t.Deck.communitySlot(int(i))
	}
	if count > t.Hand.CommunityRevealed {
		t.Hand.CommunityRevealed = count
	}
}

// runOutBoard opens every remaining street and moves the hand to
// Showdown. Used when nobody can bet any further.
func (t *Table) runOutBoard() {
	t.openStreets(communityReserved)
	t.Hand.Phase = Showdown
}
