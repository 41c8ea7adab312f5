package poker

import (
	base "github.com/chehsunliu/poker"
)

// HandRank classifies a five-card hand from weakest to strongest.
type HandRank int

const (
	HighCard HandRank = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

func (r HandRank) String() string {
	switch r {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// HandValue is the evaluation of a seven-card hand. Lower Score beats
// higher Score; Rank and Description are derived from it.
type HandValue struct {
	Rank        HandRank
	Score       int32
	Description string
}

// toLibCard converts a card index to the evaluation library's card.
func toLibCard(c Card) base.Card {
	return base.NewCard(c.String())
}

func rankFromClass(class int32) HandRank {
	switch class {
	case 1:
		return StraightFlush
	case 2:
		return FourOfAKind
	case 3:
		return FullHouse
	case 4:
		return Flush
	case 5:
		return Straight
	case 6:
		return ThreeOfAKind
	case 7:
		return TwoPair
	case 8:
		return Pair
	default:
		return HighCard
	}
}

// EvaluateHand scores the best five-card hand from two hole cards and
// five community cards.
func EvaluateHand(hole [2]Card, community []Card) HandValue {
	cards := make([]base.Card, 0, 7)
	cards = append(cards, toLibCard(hole[0]), toLibCard(hole[1]))
	for _, c := range community {
		cards = append(cards, toLibCard(c))
	}
	score := base.Evaluate(cards)
	return HandValue{
		Rank:        rankFromClass(base.RankClass(score)),
		Score:       score,
		Description: base.RankString(score),
	}
}

// Beats reports whether v is strictly stronger than other.
func (v HandValue) Beats(other HandValue) bool {
	return v.Score < other.Score
}

// findWinners returns the seat indices holding the strongest hand among
// the given contenders. Ties return every tied seat.
func findWinners(hands map[uint8]HandValue) []uint8 {
	var winners []uint8
	var best HandValue
	for seat, hv := range hands {
		switch {
		case len(winners) == 0 || hv.Beats(best):
			winners = []uint8{seat}
			best = hv
		case hv.Score == best.Score:
			winners = append(winners, seat)
		}
	}
	return winners
}
