package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Address is a deterministic record key. Two callers deriving an
// address for the same record always get the same key, so records can
// be located without an index.
type Address string

// Record kinds stored in the ledger.
const (
	KindTable = "table"
	KindSeat  = "seat"
	KindHand  = "hand"
	KindDeck  = "deck"
)

func derive(parts ...[]byte) Address {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return Address(hex.EncodeToString(h.Sum(nil)))
}

func u64le(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

// TableAddress derives the address of a table record.
func TableAddress(tableID string) Address {
	return derive([]byte(KindTable), []byte(tableID))
}

// SeatAddress derives the address of a seat record.
func SeatAddress(tableID string, seat uint8) Address {
	return derive([]byte(KindSeat), []byte(tableID), []byte{seat})
}

// HandAddress derives the address of a hand record.
func HandAddress(tableID string, handNumber uint64) Address {
	return derive([]byte(KindHand), []byte(tableID), u64le(handNumber))
}

// DeckAddress derives the address of a deck record.
func DeckAddress(tableID string, handNumber uint64) Address {
	return derive([]byte(KindDeck), []byte(tableID), u64le(handNumber))
}

// CustodyAccount is the account that holds chips while they are staked
// at a table.
func CustodyAccount(tableID string) string {
	return "custody/" + tableID
}
