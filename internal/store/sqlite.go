// Package store persists operational scanner state: the watchlist, the
// alert ledger, and the trigger journal. Analytics output is never
// stored; every cycle recomputes from fresh market data.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"optionscope/internal/errors"
	"optionscope/internal/models"
)

// SQLiteStore implements the operational state store on SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Symbols under continuous scan
	CREATE TABLE IF NOT EXISTS watchlist (
		symbol TEXT PRIMARY KEY,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		note TEXT
	);

	-- Fired monitoring alerts
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		severity TEXT NOT NULL,
		symbol TEXT,
		message TEXT NOT NULL,
		value REAL,
		action TEXT,
		urgency TEXT,
		created_at DATETIME NOT NULL,
		acknowledged INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at);
	CREATE INDEX IF NOT EXISTS idx_alerts_symbol ON alerts(symbol);

	-- Trigger state transitions, append-only
	CREATE TABLE IF NOT EXISTS trigger_journal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		condition TEXT NOT NULL,
		state TEXT NOT NULL,
		detail TEXT,
		at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trigger_symbol ON trigger_journal(symbol, condition);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AddWatchSymbol adds a symbol to the watchlist. Adding an existing
// symbol updates its note.
func (s *SQLiteStore) AddWatchSymbol(ctx context.Context, symbol, note string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watchlist (symbol, note) VALUES (?, ?)
		ON CONFLICT(symbol) DO UPDATE SET note = excluded.note`,
		symbol, note)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	return nil
}

// RemoveWatchSymbol removes a symbol from the watchlist.
func (s *SQLiteStore) RemoveWatchSymbol(ctx context.Context, symbol string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE symbol = ?`, symbol)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrap(errors.ErrSymbolNotFound, symbol)
	}
	return nil
}

// Watchlist returns all watched symbols in insertion order.
func (s *SQLiteStore) Watchlist(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol FROM watchlist ORDER BY added_at`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(errors.ErrDatabaseError, err.Error())
		}
		out = append(out, symbol)
	}
	return out, rows.Err()
}

// SaveAlert appends a fired alert to the ledger.
func (s *SQLiteStore) SaveAlert(ctx context.Context, a models.MonitoringAlert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO alerts
			(id, kind, severity, symbol, message, value, action, urgency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Kind), string(a.Severity), a.Symbol, a.Message, a.Value,
		a.Guidance.Action, a.Guidance.Urgency, a.CreatedAt)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	return nil
}

// RecentAlerts returns the newest alerts, most recent first.
func (s *SQLiteStore) RecentAlerts(ctx context.Context, limit int) ([]models.MonitoringAlert, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, severity, symbol, message, value, action, urgency, created_at
		FROM alerts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	defer rows.Close()

	var out []models.MonitoringAlert
	for rows.Next() {
		var a models.MonitoringAlert
		var kind, severity string
		if err := rows.Scan(&a.ID, &kind, &severity, &a.Symbol, &a.Message, &a.Value,
			&a.Guidance.Action, &a.Guidance.Urgency, &a.CreatedAt); err != nil {
			return nil, errors.Wrap(errors.ErrDatabaseError, err.Error())
		}
		a.Kind = models.AlertKind(kind)
		a.Severity = models.AlertSeverity(severity)
		out = append(out, a)
	}
	return out, rows.Err()
}

// AcknowledgeAlert marks an alert as seen.
func (s *SQLiteStore) AcknowledgeAlert(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE alerts SET acknowledged = 1 WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrNoData, "alert %s", id)
	}
	return nil
}

// JournalTrigger appends one trigger state transition.
func (s *SQLiteStore) JournalTrigger(ctx context.Context, t models.SymbolTrigger, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trigger_journal (symbol, condition, state, detail, at)
		VALUES (?, ?, ?, ?, ?)`,
		t.Symbol, string(t.Condition), string(t.State), t.Detail, at)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	return nil
}

// TriggerHistory returns the journal for one symbol, oldest first.
func (s *SQLiteStore) TriggerHistory(ctx context.Context, symbol string, limit int) ([]models.SymbolTrigger, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, condition, state, detail, at
		FROM trigger_journal WHERE symbol = ? ORDER BY at LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	defer rows.Close()

	var out []models.SymbolTrigger
	for rows.Next() {
		var t models.SymbolTrigger
		var condition, state string
		var at time.Time
		if err := rows.Scan(&t.Symbol, &condition, &state, &t.Detail, &at); err != nil {
			return nil, errors.Wrap(errors.ErrDatabaseError, err.Error())
		}
		t.Condition = models.TriggerCondition(condition)
		t.State = models.TriggerState(state)
		switch t.State {
		case models.Triggered:
			t.TriggeredAt = &at
		case models.Resolved:
			t.ResolvedAt = &at
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
