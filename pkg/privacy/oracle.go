package privacy

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// DeckSize is the number of cards in a standard deck.
const DeckSize = 52

// Oracle supplies verifiable randomness for deck shuffles. A request
// returns an identifier; the randomness arrives later through the
// shuffle callback carrying the same identifier.
type Oracle interface {
	// RequestRandomness starts a randomness request and returns its id.
	RequestRandomness() (uint64, error)
}

// LocalOracle is an in-process Oracle that draws randomness from the
// system CSPRNG and delivers it synchronously through a callback. It
// stands in for a remote VRF service in development and tests.
type LocalOracle struct {
	nextID   uint64
	Callback func(requestID uint64, randomness [32]byte)
}

// NewLocalOracle returns an oracle that invokes cb for each request.
func NewLocalOracle(cb func(requestID uint64, randomness [32]byte)) *LocalOracle {
	return &LocalOracle{Callback: cb}
}

// RequestRandomness implements Oracle.
func (o *LocalOracle) RequestRandomness() (uint64, error) {
	var r [32]byte
	if _, err := rand.Read(r[:]); err != nil {
		return 0, fmt.Errorf("failed to draw randomness: %w", err)
	}
	o.nextID++
	id := o.nextID
	if o.Callback != nil {
		o.Callback(id, r)
	}
	return id, nil
}

// ShufflePermutation derives a deck order from oracle randomness. The
// permutation is a Fisher-Yates shuffle driven by a 64-bit seed taken
// from the randomness, with the remaining randomness words folded in as
// the shuffle progresses. The same randomness always yields the same
// permutation.
func ShufflePermutation(randomness [32]byte) [DeckSize]uint8 {
	var deck [DeckSize]uint8
	for i := range deck {
		deck[i] = uint8(i)
	}

	seed := binary.LittleEndian.Uint64(randomness[0:8])
	for i := DeckSize - 1; i > 0; i-- {
		// Fold in another word of randomness every few swaps so the
		// full 256 bits influence the order.
		if i%4 == 0 && i < 28 {
			if off := (i / 4) * 8; off+8 <= len(randomness) {
				seed ^= binary.LittleEndian.Uint64(randomness[off : off+8])
			}
		}
		seed = seed*6364136223846793005 + 1442695040888963407
		j := seed % uint64(i+1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}
