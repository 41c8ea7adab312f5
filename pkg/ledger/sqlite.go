package ledger

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a Store backed by a sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			address TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			data BLOB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			balance INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			from_account TEXT NOT NULL,
			to_account TEXT NOT NULL,
			amount INTEGER NOT NULL,
			reference TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// GetSnapshot implements Store.
func (s *SQLiteStore) GetSnapshot(addr Address) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM snapshots WHERE address = ?", addr).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %v", err)
	}
	return data, nil
}

// ListSnapshots implements Store.
func (s *SQLiteStore) ListSnapshots(kind string) ([]Snapshot, error) {
	rows, err := s.db.Query("SELECT address, data FROM snapshots WHERE kind = ?", kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %v", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap := Snapshot{Kind: kind}
		if err := rows.Scan(&snap.Address, &snap.Data); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Commit implements Store. Every snapshot write and transfer lands in
// one sqlite transaction; any failure rolls the whole commit back.
func (s *SQLiteStore) Commit(writes []Snapshot, transfers []Transfer) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, w := range writes {
		if w.Data == nil {
			if _, err := tx.Exec("DELETE FROM snapshots WHERE address = ?", w.Address); err != nil {
				return err
			}
			continue
		}
		_, err = tx.Exec(`
			INSERT INTO snapshots (address, kind, data, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(address) DO UPDATE SET data = excluded.data,
				updated_at = CURRENT_TIMESTAMP
		`, w.Address, w.Kind, w.Data)
		if err != nil {
			return err
		}
	}

	for _, tr := range transfers {
		if err := applyTransfer(tx, tr); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func applyTransfer(tx *sql.Tx, tr Transfer) error {
	var balance uint64
	err := tx.QueryRow("SELECT balance FROM accounts WHERE id = ?", tr.From).Scan(&balance)
	if err == sql.ErrNoRows || (err == nil && balance < tr.Amount) {
		return fmt.Errorf("%w: account %s needs %d", ErrInsufficientFunds, tr.From, tr.Amount)
	}
	if err != nil {
		return err
	}

	_, err = tx.Exec("UPDATE accounts SET balance = balance - ? WHERE id = ?", tr.Amount, tr.From)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		INSERT INTO accounts (id, balance) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET balance = balance + ?
	`, tr.To, tr.Amount, tr.Amount)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		INSERT INTO transactions (from_account, to_account, amount, reference)
		VALUES (?, ?, ?, ?)
	`, tr.From, tr.To, tr.Amount, tr.Reference)
	return err
}

// Balance implements Store.
func (s *SQLiteStore) Balance(account string) (uint64, error) {
	var balance uint64
	err := s.db.QueryRow("SELECT balance FROM accounts WHERE id = ?", account).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %v", err)
	}
	return balance, nil
}

// Deposit implements Store.
func (s *SQLiteStore) Deposit(account string, amount uint64) error {
	_, err := s.db.Exec(`
		INSERT INTO accounts (id, balance) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET balance = balance + ?
	`, account, amount, amount)
	return err
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
