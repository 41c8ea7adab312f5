package poker

import (
	"github.com/vctt94/hiddenhand/pkg/privacy"
)

// SeatStatus tracks what a seated player is doing in the current hand.
type SeatStatus uint8

const (
	// Sitting players are at the table but not in a hand.
	Sitting SeatStatus = iota
	// Playing players are active in the current hand.
	Playing
	// Folded players gave up the current hand.
	Folded
	// AllIn players have committed their whole stack this hand.
	AllIn
)

func (s SeatStatus) String() string {
	switch s {
	case Sitting:
		return "sitting"
	case Playing:
		return "playing"
	case Folded:
		return "folded"
	case AllIn:
		return "all-in"
	default:
		return "unknown"
	}
}

// Seat holds one player's position and stack at a table.
type Seat struct {
	Owner            string              `json:"owner"`
	Index            uint8               `json:"index"`
	Chips            uint64              `json:"chips"`
	CurrentBet       uint64              `json:"currentBet"`
	TotalBetThisHand uint64              `json:"totalBetThisHand"`
	HoleCards        [2]privacy.CardSlot `json:"holeCards"`
	CardsRevealed    bool                `json:"cardsRevealed"`
	HasActed         bool                `json:"hasActed"`
	Status           SeatStatus          `json:"status"`
}

// placeBet moves up to amount from the stack into the current bet,
// capping at the stack and marking the seat all-in when it empties.
// Returns the amount actually bet.
func (s *Seat) placeBet(amount uint64) uint64 {
	actual := amount
	if actual > s.Chips {
		actual = s.Chips
	}
	s.Chips -= actual
	s.CurrentBet += actual
	s.TotalBetThisHand += actual
	if s.Chips == 0 {
		s.Status = AllIn
	}
	return actual
}

// awardChips credits winnings to the stack.
func (s *Seat) awardChips(amount uint64) {
	s.Chips += amount
}

// canAct reports whether the seat may take a betting action.
func (s *Seat) canAct() bool {
	return s.Status == Playing
}

// fold marks the seat folded for this hand.
func (s *Seat) fold() {
	s.Status = Folded
}

// resetForNewHand clears per-hand state before dealing.
func (s *Seat) resetForNewHand() {
	s.CurrentBet = 0
	s.TotalBetThisHand = 0
	s.HoleCards[0] = privacy.UndealtSlot()
	s.HoleCards[1] = privacy.UndealtSlot()
	s.CardsRevealed = false
	s.HasActed = false
	s.Status = Playing
}

// resetForBettingRound clears per-street state.
func (s *Seat) resetForBettingRound() {
	s.CurrentBet = 0
	s.HasActed = false
}

// resetAfterHand returns the seat to its between-hands state.
func (s *Seat) resetAfterHand() {
	s.CurrentBet = 0
	s.TotalBetThisHand = 0
	s.HoleCards[0] = privacy.UndealtSlot()
	s.HoleCards[1] = privacy.UndealtSlot()
	s.CardsRevealed = false
	s.HasActed = false
	s.Status = Sitting
}
