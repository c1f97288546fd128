// Package rewards records the points earned by completed sessions.
package rewards

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Reward is one completed session's payout.
type Reward struct {
	SessionID string
	Points    int
	Calm      time.Duration
	At        time.Time
}

// Sink receives rewards for completed sessions. Awarding the same session
// twice must not pay twice.
type Sink interface {
	Award(ctx context.Context, r Reward) error
}

type discard struct{}

func (discard) Award(context.Context, Reward) error { return nil }

// Discard accepts and drops every reward.
var Discard Sink = discard{}

const schema = `
CREATE TABLE IF NOT EXISTS rewards (
	session_id TEXT PRIMARY KEY,
	points     INTEGER NOT NULL,
	calm_ms    INTEGER NOT NULL,
	awarded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS rewards_awarded_at ON rewards (awarded_at);
`

// Ledger is a SQLite-backed Sink.
type Ledger struct {
	sqlDB *sql.DB
}

// Open opens or creates the ledger at path.
func Open(path string) (*Ledger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	dsn := cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Ledger{sqlDB: sqlDB}, nil
}

func (l *Ledger) Close() error {
	if l == nil || l.sqlDB == nil {
		return nil
	}
	return l.sqlDB.Close()
}

// Award stores r. A second award for the same session is ignored.
func (l *Ledger) Award(ctx context.Context, r Reward) error {
	if l == nil || l.sqlDB == nil {
		return fmt.Errorf("ledger is not open")
	}
	if strings.TrimSpace(r.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	_, err := l.sqlDB.ExecContext(ctx,
		`INSERT INTO rewards (session_id, points, calm_ms, awarded_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		r.SessionID, r.Points, r.Calm.Milliseconds(), r.At.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("award %s: %w", r.SessionID, err)
	}
	return nil
}

// Balance is the sum of all awarded points.
func (l *Ledger) Balance(ctx context.Context) (int, error) {
	if l == nil || l.sqlDB == nil {
		return 0, fmt.Errorf("ledger is not open")
	}
	var total int
	row := l.sqlDB.QueryRowContext(ctx, `SELECT COALESCE(SUM(points), 0) FROM rewards`)
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("balance: %w", err)
	}
	return total, nil
}

// History returns up to limit rewards, newest first.
func (l *Ledger) History(ctx context.Context, limit int) ([]Reward, error) {
	if l == nil || l.sqlDB == nil {
		return nil, fmt.Errorf("ledger is not open")
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := l.sqlDB.QueryContext(ctx,
		`SELECT session_id, points, calm_ms, awarded_at
		 FROM rewards
		 ORDER BY awarded_at DESC, session_id
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	var out []Reward
	for rows.Next() {
		var r Reward
		var calmMs, at int64
		if err := rows.Scan(&r.SessionID, &r.Points, &calmMs, &at); err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		r.Calm = time.Duration(calmMs) * time.Millisecond
		r.At = time.UnixMilli(at)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return out, nil
}
