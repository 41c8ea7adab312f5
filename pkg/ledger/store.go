package ledger

import "errors"

// Store errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Transfer moves chips between accounts as part of a commit.
type Transfer struct {
	From      string
	To        string
	Amount    uint64
	Reference string
}

// Snapshot is a stored record with its address.
type Snapshot struct {
	Address Address
	Kind    string
	Data    []byte
}

// Store persists record snapshots and chip accounts. Commit applies a
// batch of snapshot writes and transfers in one transaction: either all
// of it lands or none of it does.
type Store interface {
	// GetSnapshot returns the record at addr, or ErrNotFound.
	GetSnapshot(addr Address) ([]byte, error)
	// ListSnapshots returns every record of the given kind.
	ListSnapshots(kind string) ([]Snapshot, error)
	// Commit applies the snapshot writes and transfers atomically.
	// A write with nil Data deletes the record at its address.
	Commit(writes []Snapshot, transfers []Transfer) error
	// Balance returns the chip balance of an account. Unknown
	// accounts have balance zero.
	Balance(account string) (uint64, error)
	// Deposit credits chips to an account outside any table.
	Deposit(account string, amount uint64) error
	// Close releases the store.
	Close() error
}
