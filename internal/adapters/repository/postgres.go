package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
)

// PostgresStore reads events over database/sql with the lib/pq driver.
type PostgresStore struct {
	db *sql.DB
	options
}

// OpenPostgres opens and pings a connection pool for dsn.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %w", ErrNotConfigured, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrNotConfigured, err)
	}
	return db, nil
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(db *sql.DB, opts ...Option) *PostgresStore {
	s := &PostgresStore{db: db, options: defaultOptions()}
	for _, opt := range opts {
		opt(&s.options)
	}
	return s
}

// Name implements Store.
func (s *PostgresStore) Name() string { return "postgres" }

// Close releases the pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

// Events implements Store.
func (s *PostgresStore) Events(ctx context.Context, q Query) (events []model.Event, err error) {
	start := time.Now()
	defer func() { observe(s.Name(), q, start, len(events), err) }()

	query, args := s.selectSQL(q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	defer func() { _ = rows.Close() }()

	events = []model.Event{}
	for rows.Next() {
		e, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrQuery, scanErr)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}

	s.logger.Debug(ctx, "events fetched",
		logger.String("event", q.EventName),
		logger.Int("rows", len(events)),
		logger.Duration("took", time.Since(start)))
	return events, nil
}

func (s *PostgresStore) selectSQL(q Query) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE 1=1", strings.Join(Columns, ", "), pq.QuoteIdentifier(s.table))

	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q.EventName != "" {
		b.WriteString(" AND event_name = " + arg(q.EventName))
	}
	if !q.Since.IsZero() {
		b.WriteString(" AND timestamp >= " + arg(q.Since.UTC()))
	}
	if !q.Until.IsZero() {
		b.WriteString(" AND timestamp < " + arg(q.Until.UTC()))
	}
	if q.RequireIP {
		b.WriteString(" AND ip_address IS NOT NULL AND ip_address <> ''")
	}
	fmt.Fprintf(&b, " ORDER BY timestamp %[1]s, id %[1]s", strings.ToUpper(q.direction()))
	if q.Limit > 0 {
		b.WriteString(" LIMIT " + arg(q.Limit))
	}
	return b.String(), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(r scanner) (model.Event, error) {
	var (
		e                              model.Event
		session, osVersion, appVersion sql.NullString
		culture, machine, ip           sql.NullString
		width, height                  sql.NullInt64
		props                          []byte
		createdAt                      sql.NullTime
	)
	err := r.Scan(
		&e.ID, &e.EventName, &e.DeviceID, &session, &e.Timestamp, &props,
		&osVersion, &appVersion, &width, &height,
		&culture, &machine, &ip, &createdAt,
	)
	if err != nil {
		return e, err
	}
	if len(props) > 0 {
		if err := json.Unmarshal(props, &e.Properties); err != nil {
			return e, fmt.Errorf("properties: %w", err)
		}
	}
	e.SessionID = session.String
	e.OSVersion = osVersion.String
	e.AppVersion = appVersion.String
	e.ScreenWidth = int(width.Int64)
	e.ScreenHeight = int(height.Int64)
	e.Culture = culture.String
	e.MachineName = machine.String
	e.IPAddress = ip.String
	e.Timestamp = e.Timestamp.UTC()
	e.CreatedAt = createdAt.Time
	return e, nil
}

// InsertEvents implements Seeder with a single COPY inside a transaction.
func (s *PostgresStore) InsertEvents(ctx context.Context, events []model.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %w", ErrInsert, err)
	}
	defer func() { _ = tx.Rollback() }()

	cols := Columns[:len(Columns)-1] // created_at has a default
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(s.table, cols...))
	if err != nil {
		return 0, fmt.Errorf("%w: prepare: %w", ErrInsert, err)
	}
	for _, e := range events {
		if e.Properties == nil {
			e.Properties = model.Properties{}
		}
		props, err := json.Marshal(e.Properties)
		if err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("%w: properties: %w", ErrInsert, err)
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.EventName, e.DeviceID, nullable(e.SessionID), e.Timestamp.UTC(), string(props),
			nullable(e.OSVersion), nullable(e.AppVersion), e.ScreenWidth, e.ScreenHeight,
			nullable(e.Culture), nullable(e.MachineName), nullable(e.IPAddress),
		); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("%w: copy row: %w", ErrInsert, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return 0, fmt.Errorf("%w: flush: %w", ErrInsert, err)
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("%w: close: %w", ErrInsert, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %w", ErrInsert, err)
	}
	s.logger.Info(ctx, "events seeded", logger.Int("rows", len(events)))
	return len(events), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
