package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"RateSentinel/internal/model"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLRecorder persists snapshots and recipients to SQLite or PostgreSQL.
// Timestamps are stored as unix milliseconds, rates as exact decimals.
type SQLRecorder struct {
	db     *sql.DB
	driver string
	mu     sync.Mutex
}

// NewSQLRecorder opens the database, applies migrations and returns a ready recorder.
func NewSQLRecorder(driver, dsn string) (*SQLRecorder, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if err := RunMigrations(driver, dsn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// A single writer connection avoids SQLITE_BUSY between the refresher and the bot.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	slog.Info("sql recorder opened", "driver", driver)
	return &SQLRecorder{db: db, driver: driver}, nil
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (r *SQLRecorder) rebind(query string) string {
	if r.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// Append writes the whole batch in one transaction.
func (r *SQLRecorder) Append(ctx context.Context, snaps []model.RateSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.rebind(`INSERT INTO exchange_rates
		(currency, rate_buy, rate_sell, created_at) VALUES (?,?,?,?)`))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range snaps {
		if _, err := stmt.ExecContext(ctx, string(s.Currency), s.Buy.String(), s.Sell.String(), s.Timestamp.UnixMilli()); err != nil {
			return fmt.Errorf("insert %s snapshot: %w", s.Currency, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const selectRates = `SELECT currency, rate_buy, rate_sell, created_at FROM exchange_rates`

func (r *SQLRecorder) Latest(ctx context.Context, cur model.Currency) (model.RateSnapshot, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(selectRates+`
		WHERE currency = ? ORDER BY created_at DESC, id DESC LIMIT 1`), string(cur))
	return scanSnapshot(row)
}

func (r *SQLRecorder) LatestInRange(ctx context.Context, cur model.Currency, start, end time.Time) (model.RateSnapshot, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(selectRates+`
		WHERE currency = ? AND created_at BETWEEN ? AND ?
		ORDER BY created_at DESC, id DESC LIMIT 1`),
		string(cur), start.UnixMilli(), end.UnixMilli())
	return scanSnapshot(row)
}

func (r *SQLRecorder) AllInRange(ctx context.Context, cur model.Currency, start, end time.Time) ([]model.RateSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(selectRates+`
		WHERE currency = ? AND created_at BETWEEN ? AND ?
		ORDER BY created_at DESC, id DESC`),
		string(cur), start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query %s range: %w", cur, err)
	}
	defer rows.Close()

	var out []model.RateSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(sc scanner) (model.RateSnapshot, error) {
	var (
		cur, buy, sell string
		ms             int64
	)
	if err := sc.Scan(&cur, &buy, &sell, &ms); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RateSnapshot{}, ErrNoSnapshot
		}
		return model.RateSnapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}
	b, err := decimal.NewFromString(buy)
	if err != nil {
		return model.RateSnapshot{}, fmt.Errorf("parse rate_buy %q: %w", buy, err)
	}
	s, err := decimal.NewFromString(sell)
	if err != nil {
		return model.RateSnapshot{}, fmt.Errorf("parse rate_sell %q: %w", sell, err)
	}
	return model.RateSnapshot{
		Currency:  model.Currency(cur),
		Buy:       b,
		Sell:      s,
		Timestamp: time.UnixMilli(ms),
	}, nil
}

// SaveRecipient inserts the chat or refreshes its username.
func (r *SQLRecorder) SaveRecipient(ctx context.Context, rc model.Recipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := rc.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, r.rebind(`INSERT INTO recipients (chat_id, username, created_at)
		VALUES (?,?,?)
		ON CONFLICT (chat_id) DO UPDATE SET username = excluded.username`),
		rc.ChatID, rc.Username, created.UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert recipient %d: %w", rc.ChatID, err)
	}
	return nil
}

func (r *SQLRecorder) ListRecipients(ctx context.Context) ([]model.Recipient, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT chat_id, username, created_at FROM recipients ORDER BY created_at, chat_id`)
	if err != nil {
		return nil, fmt.Errorf("query recipients: %w", err)
	}
	defer rows.Close()

	var out []model.Recipient
	for rows.Next() {
		var (
			rc model.Recipient
			ms int64
		)
		if err := rows.Scan(&rc.ChatID, &rc.Username, &ms); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		rc.CreatedAt = time.UnixMilli(ms)
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (r *SQLRecorder) Close() error {
	slog.Info("closing sql recorder", "driver", r.driver)
	return r.db.Close()
}
