package poker

import (
	"math/bits"
	"time"

	"github.com/vctt94/hiddenhand/pkg/privacy"
)

// GamePhase is the stage a hand is in.
type GamePhase uint8

const (
	// Dealing covers shuffle, encryption and hole card distribution.
	Dealing GamePhase = iota
	// PreFlop is the first betting round.
	PreFlop
	// Flop is the betting round after three community cards.
	Flop
	// Turn is the betting round after the fourth community card.
	Turn
	// River is the final betting round.
	River
	// Showdown is where remaining players reveal and the pot is settled.
	Showdown
	// Settled means the pot has been distributed.
	Settled
)

func (p GamePhase) String() string {
	switch p {
	case Dealing:
		return "dealing"
	case PreFlop:
		return "preflop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	case Showdown:
		return "showdown"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

// bettingPhase reports whether player actions are accepted in p.
func (p GamePhase) bettingPhase() bool {
	return p == PreFlop || p == Flop || p == Turn || p == River
}

// Hand is the state of a single hand in progress.
type Hand struct {
	HandNumber uint64    `json:"handNumber"`
	Phase      GamePhase `json:"phase"`

	Pot        uint64 `json:"pot"`
	CurrentBet uint64 `json:"currentBet"`
	MinRaise   uint64 `json:"minRaise"`

	DealerSeat     uint8 `json:"dealerSeat"`
	SmallBlindSeat uint8 `json:"smallBlindSeat"`
	BigBlindSeat   uint8 `json:"bigBlindSeat"`
	ActionOn       uint8 `json:"actionOn"`

	Community         [communityReserved]privacy.CardSlot `json:"community"`
	CommunityRevealed uint8                               `json:"communityRevealed"`

	// Seat bitmaps, bit i = seat i.
	ActiveSeats    uint8 `json:"activeSeats"`
	ActedThisRound uint8 `json:"actedThisRound"`
	AllInSeats     uint8 `json:"allInSeats"`
	ActiveCount    uint8 `json:"activeCount"`

	// ShuffleRequest is the pending oracle request id, 0 when none.
	ShuffleRequest uint64 `json:"shuffleRequest,omitempty"`

	// AllowanceSeats has bit i set once seat i holds decryption
	// allowances for both of its hole cards.
	AllowanceSeats uint8 `json:"allowanceSeats"`
	// CommunityAllowanceSeats has bit i set once seat i may decrypt
	// the board slots.
	CommunityAllowanceSeats uint8 `json:"communityAllowanceSeats"`

	LastAction time.Time `json:"lastAction"`
	HandStart  time.Time `json:"handStart"`
}

func (h *Hand) isSeatActive(seat uint8) bool {
	return h.ActiveSeats&(1<<seat) != 0
}

func (h *Hand) foldSeat(seat uint8) {
	h.ActiveSeats &^= 1 << seat
	if h.ActiveCount > 0 {
		h.ActiveCount--
	}
}

func (h *Hand) markActed(seat uint8) {
	h.ActedThisRound |= 1 << seat
}

func (h *Hand) markAllIn(seat uint8) {
	h.AllInSeats |= 1 << seat
}

func (h *Hand) isSeatAllIn(seat uint8) bool {
	return h.AllInSeats&(1<<seat) != 0
}

// seatsWhoCanBet returns the bitmap of active seats that are not all-in.
func (h *Hand) seatsWhoCanBet() uint8 {
	return h.ActiveSeats &^ h.AllInSeats
}

// bettingComplete reports whether every seat that can still bet has
// acted this round.
func (h *Hand) bettingComplete() bool {
	return h.seatsWhoCanBet() & ^h.ActedThisRound == 0
}

// everyoneAllIn reports whether at most one active seat can still bet,
// in which case there is no more betting and the board runs out.
func (h *Hand) everyoneAllIn() bool {
	return bits.OnesCount8(h.seatsWhoCanBet()) <= 1 && h.AllInSeats != 0
}

// nextActiveSeat finds the next active seat after the given one that is
// not all-in, wrapping around maxPlayers. Returns false when no seat
// can act.
func (h *Hand) nextActiveSeat(after, maxPlayers uint8) (uint8, bool) {
	next := (after + 1) % maxPlayers
	for i := uint8(0); i < maxPlayers; i++ {
		if h.isSeatActive(next) && !h.isSeatAllIn(next) {
			return next, true
		}
		next = (next + 1) % maxPlayers
	}
	return 0, false
}

// firstActiveLeftOfDealer picks post-flop first-to-act.
func (h *Hand) firstActiveLeftOfDealer(maxPlayers uint8) uint8 {
	pos := (h.DealerSeat + 1) % maxPlayers
	for i := uint8(0); i < maxPlayers; i++ {
		if h.isSeatActive(pos) && !h.isSeatAllIn(pos) {
			return pos
		}
		pos = (pos + 1) % maxPlayers
	}
	return h.DealerSeat
}

// resetBettingRound clears per-street betting state.
func (h *Hand) resetBettingRound() {
	h.ActedThisRound = 0
	h.CurrentBet = 0
}

// revealedCommunity returns the plaintext board cards revealed so far.
func (h *Hand) revealedCommunity() []Card {
	out := make([]Card, 0, communityReserved)
	for _, slot := range h.Community {
		if slot.IsRevealed() {
			out = append(out, Card(slot.Value))
		}
	}
	return out
}
