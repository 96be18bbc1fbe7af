package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"backsim/internal/account"
	"backsim/internal/domain"
)

// Compile-time interface check.
var _ AccountStore = (*SQLiteAccountStore)(nil)

// SQLiteAccountStore implements AccountStore backed by a SQLite database.
type SQLiteAccountStore struct {
	db *sql.DB
}

const accountSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id           TEXT PRIMARY KEY,
	seed_capital REAL NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS transactions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id  TEXT NOT NULL REFERENCES accounts(id),
	type        TEXT NOT NULL,
	isin        TEXT NOT NULL,
	quantity    INTEGER NOT NULL,
	total_price REAL NOT NULL,
	commission  REAL NOT NULL,
	date        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id, id);
`

// NewSQLiteAccountStore opens (or creates) the database at dbPath and
// applies the schema.
func NewSQLiteAccountStore(dbPath string) (*SQLiteAccountStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(accountSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying account schema: %w", err)
	}
	return &SQLiteAccountStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteAccountStore) Close() error {
	return s.db.Close()
}

// CreateAccount persists a new account and returns its generated id.
func (s *SQLiteAccountStore) CreateAccount(ctx context.Context, seedCapital domain.Amount) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, seed_capital, created_at) VALUES (?, ?, ?)`,
		id, float64(seedCapital), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("creating account: %w", err)
	}
	return id, nil
}

// GetAccount loads an account by replaying its persisted transactions
// through the ledger in insertion order.
func (s *SQLiteAccountStore) GetAccount(ctx context.Context, id string) (*account.Account, error) {
	var seed float64
	err := s.db.QueryRowContext(ctx,
		`SELECT seed_capital FROM accounts WHERE id = ?`, id,
	).Scan(&seed)
	if err != nil {
		return nil, fmt.Errorf("loading account %s: %w", id, err)
	}

	acc := account.New(domain.Amount(seed))

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, isin, quantity, total_price, commission, date
		 FROM transactions WHERE account_id = ? ORDER BY id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("loading transactions for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			txID       int64
			typ, isin  string
			quantity   int64
			total      float64
			commission float64
			date       string
		)
		if err := rows.Scan(&txID, &typ, &isin, &quantity, &total, &commission, &date); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339, date)
		if err != nil {
			return nil, fmt.Errorf("parsing transaction date %q: %w", date, err)
		}

		tx, err := domain.NewTransaction(
			domain.TransactionType(typ), domain.ISIN(isin), domain.Quantity(quantity),
			domain.Amount(total), domain.Amount(commission), parsed,
		)
		if err != nil {
			return nil, err
		}
		tx.ID = txID
		if err := acc.RegisterTransaction(tx); err != nil {
			return nil, fmt.Errorf("replaying transaction %d: %w", txID, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return acc, nil
}

// SaveAccount appends the account's unsaved transactions and assigns their
// persisted identifiers. Already-saved transactions are never rewritten.
func (s *SQLiteAccountStore) SaveAccount(ctx context.Context, id string, acc *account.Account) error {
	unsaved := acc.UnsavedTransactions()
	if len(unsaved) == 0 {
		return nil
	}

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbtx.Rollback()

	for _, tx := range unsaved {
		res, err := dbtx.ExecContext(ctx,
			`INSERT INTO transactions (account_id, type, isin, quantity, total_price, commission, date)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, string(tx.Type), string(tx.ISIN), int64(tx.Quantity),
			float64(tx.TotalPrice), float64(tx.Commission), tx.Date.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("saving transaction: %w", err)
		}
		txID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		tx.ID = txID
	}
	return dbtx.Commit()
}
