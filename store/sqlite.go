package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/etnz/rebalance"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS owners (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS holdings (
	position INTEGER PRIMARY KEY,
	owner TEXT NOT NULL,
	asset_type TEXT NOT NULL,
	account TEXT NOT NULL,
	ticker TEXT NOT NULL,
	name TEXT NOT NULL,
	quantity TEXT NOT NULL,
	last_price TEXT NOT NULL,
	book_cost TEXT NOT NULL,
	current_value TEXT NOT NULL,
	target_weight REAL NOT NULL,
	estimated INTEGER NOT NULL DEFAULT 0,
	UNIQUE (owner, account, ticker)
);

CREATE TABLE IF NOT EXISTS cash_balances (
	account TEXT PRIMARY KEY,
	amount TEXT NOT NULL
);
`

const (
	settingCurrency   = "currency"
	settingCashTarget = "cash_target_percentage"
)

// SQLite stores the book in a SQLite database. Amounts are stored as TEXT to
// keep them exact.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens, and creates if needed, the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	if err := addColumn(db, "holdings", "estimated", "INTEGER NOT NULL DEFAULT 0"); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLite{db: db}, nil
}

// addColumn adds a column to tables created before it existed.
func addColumn(db *sql.DB, table, column, decl string) error {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.Exec(`ALTER TABLE ` + table + ` ADD COLUMN ` + column + ` ` + decl); err != nil {
		return fmt.Errorf("add %s.%s: %w", table, column, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Load(ctx context.Context) (*rebalance.Book, error) {
	settings, err := s.settings(ctx)
	if err != nil {
		return nil, err
	}
	b := rebalance.NewBook(settings[settingCurrency])
	if v, ok := settings[settingCashTarget]; ok {
		target, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid cash target %q: %w", v, err)
		}
		b.CashTarget = rebalance.Percent(target)
	}

	if err := s.loadOwners(ctx, b); err != nil {
		return nil, err
	}
	if err := s.loadCash(ctx, b); err != nil {
		return nil, err
	}
	if err := s.loadHoldings(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *SQLite) settings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()
	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

func (s *SQLite) loadOwners(ctx context.Context, b *rebalance.Book) error {
	rows, err := s.db.QueryContext(ctx, `SELECT code, name FROM owners`)
	if err != nil {
		return fmt.Errorf("query owners: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var code, name string
		if err := rows.Scan(&code, &name); err != nil {
			return fmt.Errorf("scan owner: %w", err)
		}
		b.Owners[code] = name
	}
	return rows.Err()
}

func (s *SQLite) loadCash(ctx context.Context, b *rebalance.Book) error {
	rows, err := s.db.QueryContext(ctx, `SELECT account, amount FROM cash_balances`)
	if err != nil {
		return fmt.Errorf("query cash balances: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var account, amount string
		if err := rows.Scan(&account, &amount); err != nil {
			return fmt.Errorf("scan cash balance: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return fmt.Errorf("invalid cash balance for %q: %w", account, err)
		}
		b.Cash[account] = rebalance.M(d, b.Currency)
	}
	return rows.Err()
}

func (s *SQLite) loadHoldings(ctx context.Context, b *rebalance.Book) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner, asset_type, account, ticker, name, quantity, last_price, book_cost, current_value, target_weight, estimated
		FROM holdings ORDER BY position`)
	if err != nil {
		return fmt.Errorf("query holdings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h rebalance.Holding
		var quantity, lastPrice, bookCost, value string
		var target float64
		if err := rows.Scan(&h.Owner, &h.AssetType, &h.Account, &h.Ticker, &h.Name, &quantity, &lastPrice, &bookCost, &value, &target, &h.Estimated); err != nil {
			return fmt.Errorf("scan holding: %w", err)
		}
		var amounts [4]decimal.Decimal
		for i, text := range []string{quantity, lastPrice, bookCost, value} {
			d, err := decimal.NewFromString(text)
			if err != nil {
				return fmt.Errorf("invalid number %q in holding %s/%s/%s: %w", text, h.Owner, h.Account, h.Ticker, err)
			}
			amounts[i] = d
		}
		h.Quantity = rebalance.Q(amounts[0])
		h.LastPrice = rebalance.M(amounts[1], b.Currency)
		h.BookCost = rebalance.M(amounts[2], b.Currency)
		h.Value = rebalance.M(amounts[3], b.Currency)
		h.Target = rebalance.Percent(target)
		b.Holdings = append(b.Holdings, h)
	}
	return rows.Err()
}

// Save replaces the whole content of the database with b, in a single
// transaction.
func (s *SQLite) Save(ctx context.Context, b *rebalance.Book) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	for _, table := range []string{"settings", "owners", "holdings", "cash_balances"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	settings := map[string]string{
		settingCurrency:   b.Currency,
		settingCashTarget: strconv.FormatFloat(float64(b.CashTarget), 'f', -1, 64),
	}
	for key, value := range settings {
		if _, err := tx.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("insert setting %s: %w", key, err)
		}
	}
	for code, name := range b.Owners {
		if _, err := tx.ExecContext(ctx, `INSERT INTO owners (code, name) VALUES (?, ?)`, code, name); err != nil {
			return fmt.Errorf("insert owner %s: %w", code, err)
		}
	}
	for account, amount := range b.Cash {
		if _, err := tx.ExecContext(ctx, `INSERT INTO cash_balances (account, amount) VALUES (?, ?)`, account, amount.Decimal().String()); err != nil {
			return fmt.Errorf("insert cash balance %s: %w", account, err)
		}
	}
	for i, h := range b.Holdings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO holdings (position, owner, asset_type, account, ticker, name, quantity, last_price, book_cost, current_value, target_weight, estimated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, h.Owner, h.AssetType, h.Account, h.Ticker, h.Name,
			h.Quantity.Decimal().String(), h.LastPrice.Decimal().String(), h.BookCost.Decimal().String(), h.Value.Decimal().String(),
			float64(h.Target), h.Estimated)
		if err != nil {
			return fmt.Errorf("insert holding %s/%s/%s: %w", h.Owner, h.Account, h.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
