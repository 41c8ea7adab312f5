package poker

import "fmt"

// Card is a card index in 0..51. Suit is index/13, rank is index%13 with
// 0 = Two up to 12 = Ace.
type Card uint8

// Suits in index order.
const (
	Hearts uint8 = iota
	Diamonds
	Clubs
	Spades
)

// NumCards is the size of a standard deck.
const NumCards = 52

var rankChars = [...]byte{'2', '3', '4', '5', '6', '7', '8', '9', 'T', 'J', 'Q', 'K', 'A'}
var suitChars = [...]byte{'h', 'd', 'c', 's'}

// Valid reports whether the card index is in range.
func (c Card) Valid() bool {
	return c < NumCards
}

// Suit returns the card's suit index.
func (c Card) Suit() uint8 {
	return uint8(c) / 13
}

// Rank returns the card's rank index, 0 = Two through 12 = Ace.
func (c Card) Rank() uint8 {
	return uint8(c) % 13
}

// String returns the two-character form, e.g. "Th" or "As".
func (c Card) String() string {
	if !c.Valid() {
		return "??"
	}
	return string([]byte{rankChars[c.Rank()], suitChars[c.Suit()]})
}

// ParseCard converts a two-character card string back to its index.
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("invalid card %q", s)
	}
	rank := -1
	for i, r := range rankChars {
		if s[0] == r {
			rank = i
			break
		}
	}
	suit := -1
	for i, su := range suitChars {
		if s[1] == su {
			suit = i
			break
		}
	}
	if rank < 0 || suit < 0 {
		return 0, fmt.Errorf("invalid card %q", s)
	}
	return Card(suit*13 + rank), nil
}
