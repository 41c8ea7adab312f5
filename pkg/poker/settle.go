package poker

import (
	"sort"
	"time"
)

// Pot is one tier of the settlement. Every seat contributed to it up
// to the tier level; only the eligible (unfolded) seats can win it.
type Pot struct {
	Amount   uint64  `json:"amount"`
	Eligible []uint8 `json:"eligible"`
}

// SeatResult is one seat's line in the hand audit record.
type SeatResult struct {
	Owner     string `json:"owner"`
	Seat      uint8  `json:"seat"`
	HoleCards string `json:"holeCards,omitempty"` // e.g. "As Kd", empty when mucked or folded
	HandDesc  string `json:"handDesc,omitempty"`
	ChipsBet  uint64 `json:"chipsBet"`
	ChipsWon  uint64 `json:"chipsWon"`
	Folded    bool   `json:"folded"`
	AllIn     bool   `json:"allIn"`
}

// HandResult is the audit record emitted when a hand settles.
type HandResult struct {
	TableID    string       `json:"tableId"`
	HandNumber uint64       `json:"handNumber"`
	Community  []string     `json:"community"`
	TotalPot   uint64       `json:"totalPot"`
	Results    []SeatResult `json:"results"`
	SettledAt  time.Time    `json:"settledAt"`
}

// buildPots tiers the hand's contributions into a main pot and side
// pots. Tier levels come from the distinct totals of unfolded seats;
// folded seats contribute to each tier they reach but are never
// eligible. Chips a folded seat put in beyond the deepest unfolded
// stack land in the final pot.
func (t *Table) buildPots() []Pot {
	h := t.Hand

	var levels []uint64
	seen := make(map[uint64]bool)
	for i, s := range t.Seats {
		if s == nil || !h.isSeatActive(uint8(i)) || s.TotalBetThisHand == 0 {
			continue
		}
		if !seen[s.TotalBetThisHand] {
			seen[s.TotalBetThisHand] = true
			levels = append(levels, s.TotalBetThisHand)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
	if len(levels) == 0 {
		return nil
	}

	var pots []Pot
	prev := uint64(0)
	for _, level := range levels {
		p := Pot{}
		for i, s := range t.Seats {
			if s == nil || s.TotalBetThisHand <= prev {
				continue
			}
			p.Amount += min64(s.TotalBetThisHand, level) - prev
			if h.isSeatActive(uint8(i)) && s.TotalBetThisHand >= level {
				p.Eligible = append(p.Eligible, uint8(i))
			}
		}
		pots = append(pots, p)
		prev = level
	}

	// Folded chips above the deepest unfolded stack.
	for _, s := range t.Seats {
		if s != nil && s.TotalBetThisHand > prev {
			pots[len(pots)-1].Amount += s.TotalBetThisHand - prev
		}
	}
	return pots
}

// Showdown settles the hand: it splits the pot into tiers, compares the
// revealed hands of the eligible seats in each tier, pays the winners,
// and returns the table to Waiting. The authority may settle as soon as
// the hand reaches Showdown; anyone else may settle once the action
// deadline has passed. Returns the audit record.
func (t *Table) Showdown(caller string, now time.Time) (*HandResult, error) {
	if t.Status != TablePlaying || t.Hand == nil {
		return nil, ErrHandNotInProgress
	}
	h := t.Hand
	if h.Phase != Showdown {
		return nil, ErrInvalidPhase
	}
	if caller != t.Config.Authority &&
		now.Sub(h.LastAction) < t.Config.Timeouts.Action {
		return nil, ErrTimeoutNotReached
	}

	contested := h.ActiveCount > 1
	if contested {
		if h.CommunityRevealed < communityReserved {
			return nil, ErrCommunityNotRevealed
		}
		for i := 0; i < communityReserved; i++ {
			if !h.Community[i].IsRevealed() {
				return nil, ErrCommunityNotRevealed
			}
		}
		for i, s := range t.Seats {
			if s == nil || !h.isSeatActive(uint8(i)) {
				continue
			}
			if !s.HoleCards[0].IsRevealed() || !s.HoleCards[1].IsRevealed() {
				return nil, ErrPlayersNotRevealed
			}
		}
	}

	work := t.clone()
	wh := work.Hand

	board := wh.revealedCommunity()
	hands := make(map[uint8]HandValue)
	if contested {
		boardCards := make([]Card, len(board))
		copy(boardCards, board)
		for i, s := range work.Seats {
			if s == nil || !wh.isSeatActive(uint8(i)) {
				continue
			}
			hole := [2]Card{Card(s.HoleCards[0].Value), Card(s.HoleCards[1].Value)}
			hands[uint8(i)] = EvaluateHand(hole, boardCards)
		}
	}

	winnings := make(map[uint8]uint64)
	var distributed uint64
	for _, pot := range work.buildPots() {
		winners := pot.Eligible
		if contested && len(pot.Eligible) > 1 {
			tier := make(map[uint8]HandValue, len(pot.Eligible))
			for _, seat := range pot.Eligible {
				tier[seat] = hands[seat]
			}
			winners = findWinners(tier)
		}
		if len(winners) == 0 {
			return nil, ErrInsufficientPot
		}
		sort.Slice(winners, func(i, j int) bool { return winners[i] < winners[j] })
		share := pot.Amount / uint64(len(winners))
		remainder := pot.Amount % uint64(len(winners))
		for i, seat := range winners {
			amt := share
			if i == 0 {
				amt += remainder
			}
			winnings[seat] += amt
			distributed += amt
		}
	}
	if distributed != wh.Pot {
		return nil, ErrInsufficientPot
	}

	result := &HandResult{
		TableID:    work.Config.TableID,
		HandNumber: wh.HandNumber,
		TotalPot:   wh.Pot,
		SettledAt:  now,
	}
	for _, c := range board {
		result.Community = append(result.Community, c.String())
	}

	for i, s := range work.Seats {
		if s == nil || s.Status == Sitting {
			continue
		}
		seat := uint8(i)
		r := SeatResult{
			Owner:    s.Owner,
			Seat:     seat,
			ChipsBet: s.TotalBetThisHand,
			ChipsWon: winnings[seat],
			Folded:   s.Status == Folded,
			AllIn:    s.Status == AllIn,
		}
		if wh.isSeatActive(seat) && s.HoleCards[0].IsRevealed() && s.HoleCards[1].IsRevealed() {
			c1 := Card(s.HoleCards[0].Value)
			c2 := Card(s.HoleCards[1].Value)
			r.HoleCards = c1.String() + " " + c2.String()
			if hv, ok := hands[seat]; ok {
				r.HandDesc = hv.Description
			}
		}
		result.Results = append(result.Results, r)

		s.awardChips(winnings[seat])
		s.resetAfterHand()
	}

	wh.Phase = Settled
	wh.Pot = 0
	work.Status = Waiting
	work.LastReady = now
	work.Deck = nil
	t.commit(work)
	t.logger().Infof("hand %d settled: pot %d paid to %d seats",
		result.HandNumber, result.TotalPot, len(winnings))
	return result, nil
}
