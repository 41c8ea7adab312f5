package poker

import (
	"github.com/vctt94/hiddenhand/pkg/privacy"
)

// communityReserved is how many deck slots are set aside for the board.
// Community cards live at deck indices 0-4; hole cards deal from index 5.
const communityReserved = 5

// Deck is the per-hand deck. After a shuffle each slot holds either a
// plaintext card or an encrypted handle, in dealt order.
type Deck struct {
	Cards      [NumCards]privacy.CardSlot `json:"cards"`
	DealIndex  uint8                      `json:"dealIndex"`
	IsShuffled bool                       `json:"isShuffled"`
}

// newDeck returns an unshuffled deck.
func newDeck() *Deck {
	return &Deck{}
}

// install fills the deck from a permutation of card indices, reserving
// the first five slots for community cards.
func (d *Deck) install(perm [NumCards]uint8, encrypt func(uint8) (privacy.CardSlot, error)) error {
	for i, v := range perm {
		slot, err := encrypt(v)
		if err != nil {
			return err
		}
		d.Cards[i] = slot
	}
	d.DealIndex = communityReserved
	d.IsShuffled = true
	return nil
}

// dealSlot pops the next undealt slot.
func (d *Deck) dealSlot() (privacy.CardSlot, error) {
	if !d.IsShuffled {
		return privacy.CardSlot{}, ErrDeckNotShuffled
	}
	if int(d.DealIndex) >= NumCards {
		return privacy.CardSlot{}, ErrInvalidCardIndex
	}
	slot := d.Cards[d.DealIndex]
	d.DealIndex++
	return slot, nil
}

// communitySlot returns the reserved board slot at position i (0-4).
func (d *Deck) communitySlot(i int) privacy.CardSlot {
	return d.Cards[i]
}
