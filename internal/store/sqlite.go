package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "condor-trader/internal/errors"
	"condor-trader/internal/models"
)

// SQLiteStore implements Store backed by a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS engine_state (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	status TEXT NOT NULL,
	trade_placed INTEGER NOT NULL DEFAULT 0,
	pnl REAL NOT NULL DEFAULT 0,
	peak_profit REAL NOT NULL DEFAULT 0,
	peak_loss REAL NOT NULL DEFAULT 0,
	expiry TEXT NOT NULL DEFAULT '',
	entered_at TEXT NOT NULL DEFAULT '',
	exited_at TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS control_flags (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	paused INTEGER NOT NULL DEFAULT 0,
	virtual INTEGER NOT NULL DEFAULT 1,
	entry_time TEXT NOT NULL DEFAULT '',
	exit_time TEXT NOT NULL DEFAULT '',
	target_pnl REAL NOT NULL DEFAULT 0,
	stop_loss_pnl REAL NOT NULL DEFAULT 0,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS legs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	token INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	option_type TEXT NOT NULL,
	side TEXT NOT NULL,
	strike REAL NOT NULL,
	entry_price REAL NOT NULL,
	ltp REAL NOT NULL DEFAULT 0,
	quantity INTEGER NOT NULL,
	tier INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS order_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TIMESTAMP NOT NULL,
	order_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price REAL NOT NULL,
	virtual INTEGER NOT NULL DEFAULT 0,
	note TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS system_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TIMESTAMP NOT NULL,
	message TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS manual_expiries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	expiry TEXT NOT NULL UNIQUE
);
`

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "condor.db"
	}
	return filepath.Join(home, ".config", "condor-trader", "condor.db")
}

// NewSQLiteStore opens (creating if necessary) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, apperrors.NewPersistenceError("mkdir", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, apperrors.NewPersistenceError("open", err)
	}

	// A single writer avoids SQLITE_BUSY under concurrent CLI access.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperrors.NewPersistenceError("migrate", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveEngineState writes the singleton engine state row. Operator control
// fields are not persisted here; they live in the control_flags row so the
// engine's tick-path flushes can never overwrite a control command issued
// from another process.
func (s *SQLiteStore) SaveEngineState(ctx context.Context, state *models.EngineState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO engine_state
			(id, status, trade_placed, pnl, peak_profit, peak_loss,
			 expiry, entered_at, exited_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			trade_placed = excluded.trade_placed,
			pnl = excluded.pnl,
			peak_profit = excluded.peak_profit,
			peak_loss = excluded.peak_loss,
			expiry = excluded.expiry,
			entered_at = excluded.entered_at,
			exited_at = excluded.exited_at,
			updated_at = excluded.updated_at`,
		string(state.Status), state.TradePlaced,
		state.Pnl, state.PeakProfit, state.PeakLoss,
		state.Expiry, state.EnteredAt, state.ExitedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return apperrors.NewPersistenceError("save_engine_state", err)
	}
	return nil
}

// GetEngineState reads the singleton engine state row.
func (s *SQLiteStore) GetEngineState(ctx context.Context) (*models.EngineState, error) {
	state := &models.EngineState{}
	var status string

	err := s.db.QueryRowContext(ctx, `
		SELECT status, trade_placed, pnl, peak_profit, peak_loss,
		       expiry, entered_at, exited_at
		FROM engine_state WHERE id = 1`).Scan(
		&status, &state.TradePlaced,
		&state.Pnl, &state.PeakProfit, &state.PeakLoss,
		&state.Expiry, &state.EnteredAt, &state.ExitedAt,
	)
	if err == sql.ErrNoRows {
		return &models.EngineState{Status: models.StatusIdle}, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("get_engine_state", err)
	}

	state.Status = models.Status(status)
	return state, nil
}

// SaveControlFlags writes the singleton operator control row.
func (s *SQLiteStore) SaveControlFlags(ctx context.Context, flags *models.ControlFlags) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO control_flags
			(id, paused, virtual, entry_time, exit_time, target_pnl, stop_loss_pnl, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			paused = excluded.paused,
			virtual = excluded.virtual,
			entry_time = excluded.entry_time,
			exit_time = excluded.exit_time,
			target_pnl = excluded.target_pnl,
			stop_loss_pnl = excluded.stop_loss_pnl,
			updated_at = excluded.updated_at`,
		flags.Paused, flags.Virtual,
		flags.EntryTime, flags.ExitTime, flags.TargetPnl, flags.StopLossPnl,
		time.Now().UTC(),
	)
	if err != nil {
		return apperrors.NewPersistenceError("save_control_flags", err)
	}
	return nil
}

// GetControlFlags reads the singleton operator control row. Returns nil
// when no control command has written it yet; callers keep their
// config-derived defaults in that case.
func (s *SQLiteStore) GetControlFlags(ctx context.Context) (*models.ControlFlags, error) {
	flags := &models.ControlFlags{}

	err := s.db.QueryRowContext(ctx, `
		SELECT paused, virtual, entry_time, exit_time, target_pnl, stop_loss_pnl
		FROM control_flags WHERE id = 1`).Scan(
		&flags.Paused, &flags.Virtual,
		&flags.EntryTime, &flags.ExitTime, &flags.TargetPnl, &flags.StopLossPnl,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("get_control_flags", err)
	}
	return flags, nil
}

// ReplaceLegs atomically replaces the persisted leg set.
func (s *SQLiteStore) ReplaceLegs(ctx context.Context, legs []models.Leg) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewPersistenceError("replace_legs", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM legs`); err != nil {
		return apperrors.NewPersistenceError("replace_legs", err)
	}

	for _, leg := range legs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO legs
				(token, symbol, option_type, side, strike, entry_price, ltp, quantity, tier)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			leg.Token, leg.Symbol, string(leg.OptionType), string(leg.Side),
			leg.Strike, leg.EntryPrice, leg.LTP, leg.Quantity, leg.Tier,
		)
		if err != nil {
			return apperrors.NewPersistenceError("replace_legs", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistenceError("replace_legs", err)
	}
	return nil
}

// GetLegs returns the persisted leg set in insertion order.
func (s *SQLiteStore) GetLegs(ctx context.Context) ([]models.Leg, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, symbol, option_type, side, strike, entry_price, ltp, quantity, tier
		FROM legs ORDER BY id`)
	if err != nil {
		return nil, apperrors.NewPersistenceError("get_legs", err)
	}
	defer rows.Close()

	var legs []models.Leg
	for rows.Next() {
		var leg models.Leg
		var optionType, side string
		if err := rows.Scan(&leg.Token, &leg.Symbol, &optionType, &side,
			&leg.Strike, &leg.EntryPrice, &leg.LTP, &leg.Quantity, &leg.Tier); err != nil {
			return nil, apperrors.NewPersistenceError("get_legs", err)
		}
		leg.OptionType = models.OptionType(optionType)
		leg.Side = models.OrderSide(side)
		legs = append(legs, leg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("get_legs", err)
	}
	return legs, nil
}

// AppendOrderLog appends one row to the order log.
func (s *SQLiteStore) AppendOrderLog(ctx context.Context, entry *models.OrderLogEntry) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO order_log (timestamp, order_id, symbol, side, quantity, price, virtual, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ts, entry.OrderID, entry.Symbol, string(entry.Side),
		entry.Quantity, entry.Price, entry.Virtual, entry.Note,
	)
	if err != nil {
		return apperrors.NewPersistenceError("append_order_log", err)
	}
	return nil
}

// GetOrderLog returns the most recent order log rows, newest first.
func (s *SQLiteStore) GetOrderLog(ctx context.Context, limit int) ([]models.OrderLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, order_id, symbol, side, quantity, price, virtual, note
		FROM order_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, apperrors.NewPersistenceError("get_order_log", err)
	}
	defer rows.Close()

	var entries []models.OrderLogEntry
	for rows.Next() {
		var e models.OrderLogEntry
		var side string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.OrderID, &e.Symbol, &side,
			&e.Quantity, &e.Price, &e.Virtual, &e.Note); err != nil {
			return nil, apperrors.NewPersistenceError("get_order_log", err)
		}
		e.Side = models.OrderSide(side)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("get_order_log", err)
	}
	return entries, nil
}

// AppendSystemLog appends one row to the system log.
func (s *SQLiteStore) AppendSystemLog(ctx context.Context, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_log (timestamp, message) VALUES (?, ?)`,
		time.Now().UTC(), message,
	)
	if err != nil {
		return apperrors.NewPersistenceError("append_system_log", err)
	}
	return nil
}

// GetSystemLog returns the most recent system log rows, newest first.
func (s *SQLiteStore) GetSystemLog(ctx context.Context, limit int) ([]models.SystemLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, message FROM system_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, apperrors.NewPersistenceError("get_system_log", err)
	}
	defer rows.Close()

	var entries []models.SystemLogEntry
	for rows.Next() {
		var e models.SystemLogEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Message); err != nil {
			return nil, apperrors.NewPersistenceError("get_system_log", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("get_system_log", err)
	}
	return entries, nil
}

// AddExpiry appends a manual expiry to the ordered list.
func (s *SQLiteStore) AddExpiry(ctx context.Context, expiry string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO manual_expiries (expiry) VALUES (?)
		ON CONFLICT(expiry) DO NOTHING`, expiry)
	if err != nil {
		return apperrors.NewPersistenceError("add_expiry", err)
	}
	return nil
}

// GetExpiries returns manual expiries in insertion order.
func (s *SQLiteStore) GetExpiries(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT expiry FROM manual_expiries ORDER BY id`)
	if err != nil {
		return nil, apperrors.NewPersistenceError("get_expiries", err)
	}
	defer rows.Close()

	var expiries []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, apperrors.NewPersistenceError("get_expiries", err)
		}
		expiries = append(expiries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("get_expiries", err)
	}
	return expiries, nil
}

// ClearExpiries removes all manual expiries.
func (s *SQLiteStore) ClearExpiries(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM manual_expiries`); err != nil {
		return apperrors.NewPersistenceError("clear_expiries", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteStore implements the Store interface
var _ Store = (*SQLiteStore)(nil)
