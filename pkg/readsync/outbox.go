// Package readsync forwards read marks to the services items came from.
// Sources like freshrss keep their own read state; dismissing such an item
// in the scroll should mark it read upstream too. Delivery is best effort
// with a sqlite-backed queue for the marks that could not be delivered.
package readsync

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/umputun/boonscroll/pkg/fetch"
)

//go:embed schema.sql
var schemaFS embed.FS

//go:generate moq -out mocks/resolver.go -pkg mocks -skip-ensure -fmt goimports . Resolver

// Resolver finds the upstream read-marking delegate for a source type.
// The fetch registry satisfies it.
type Resolver interface {
	ReadMarker(sourceType string) (fetch.ReadMarker, bool)
}

// errPermanent marks failures retrying cannot fix
var errPermanent = errors.New("permanent failure")

// Config holds the outbox knobs
type Config struct {
	DSN           string        // default file:readsync.db?cache=shared&mode=rwc&_txlock=immediate
	FlushInterval time.Duration // background drain period, default 1m
	MaxAttempts   int           // drop a mark after this many failed flushes, default 10
}

// Outbox sends read marks to origin services and queues the ones that
// failed until a background flush delivers them. Satisfies the pool
// manager's Marker interface.
type Outbox struct {
	db       *sqlx.DB
	resolver Resolver
	interval time.Duration
	maxTries int
	now      func() time.Time
}

// NewOutbox opens the queue database and prepares the schema
func NewOutbox(ctx context.Context, resolver Resolver, cfg Config) (*Outbox, error) {
	if cfg.DSN == "" {
		cfg.DSN = "file:readsync.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}

	db, err := sqlx.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open queue database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000", // 5 second timeout for locks
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Outbox{
		db:       db,
		resolver: resolver,
		interval: cfg.FlushInterval,
		maxTries: cfg.MaxAttempts,
		now:      time.Now,
	}, nil
}

// Close releases the queue database
func (o *Outbox) Close() error {
	return o.db.Close()
}

// Supports reports whether the source type has an upstream to sync to
func (o *Outbox) Supports(sourceType string) bool {
	_, ok := o.resolver.ReadMarker(sourceType)
	return ok
}

// MarkRead tries the upstream delegate once and queues the ids when it
// fails, so a dead origin service does not lose read marks. The error
// return is reserved for the case where queueing failed too.
func (o *Outbox) MarkRead(ctx context.Context, sourceType string, localIDs []string) error {
	if len(localIDs) == 0 {
		return nil
	}
	rm, ok := o.resolver.ReadMarker(sourceType)
	if !ok {
		return fmt.Errorf("no upstream read marker for source %s", sourceType)
	}

	err := rm.MarkRead(ctx, localIDs)
	if err == nil {
		return nil
	}
	lgr.Printf("[WARN] upstream mark-read failed for %s, queueing %d ids: %v", sourceType, len(localIDs), err)

	if qerr := o.enqueue(ctx, sourceType, localIDs); qerr != nil {
		return fmt.Errorf("queue read marks for %s: %w", sourceType, qerr)
	}
	return nil
}

// Pending reports how many marks wait for delivery
func (o *Outbox) Pending(ctx context.Context) (int, error) {
	var n int
	if err := o.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM read_marks`); err != nil {
		return 0, fmt.Errorf("count queued marks: %w", err)
	}
	return n, nil
}

// Run flushes the queue on the configured interval until ctx cancels
func (o *Outbox) Run(ctx context.Context) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := o.Flush(ctx)
			if err != nil {
				lgr.Printf("[WARN] outbox flush: %v", err)
				continue
			}
			if n > 0 {
				lgr.Printf("[INFO] outbox delivered %d read marks", n)
			}
		}
	}
}

// mark is one queued row
type mark struct {
	ID       int64  `db:"id"`
	Source   string `db:"source"`
	LocalID  string `db:"local_id"`
	Attempts int    `db:"attempts"`
}

// Flush tries to deliver every queued mark, one upstream call per source.
// Returns the number of marks delivered. Sources that keep failing have
// their attempt counters bumped; marks at the attempt limit are dropped.
func (o *Outbox) Flush(ctx context.Context) (int, error) {
	var rows []mark
	if err := o.db.SelectContext(ctx, &rows,
		`SELECT id, source, local_id, attempts FROM read_marks ORDER BY source, id`); err != nil {
		return 0, fmt.Errorf("load queued marks: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	type group struct {
		source string
		rows   []mark
	}
	var groups []group
	for _, row := range rows {
		if len(groups) == 0 || groups[len(groups)-1].source != row.Source {
			groups = append(groups, group{source: row.Source})
		}
		g := &groups[len(groups)-1]
		g.rows = append(g.rows, row)
	}

	delivered := 0
	for _, g := range groups {
		rm, ok := o.resolver.ReadMarker(g.source)
		if !ok {
			lgr.Printf("[WARN] no upstream for %s, dropping %d queued marks", g.source, len(g.rows))
			if err := o.deleteRows(ctx, g.rows); err != nil {
				return delivered, fmt.Errorf("drop orphaned marks: %w", err)
			}
			continue
		}

		ids := make([]string, 0, len(g.rows))
		for _, r := range g.rows {
			ids = append(ids, r.LocalID)
		}

		retrier := repeater.NewBackoff(3, 100*time.Millisecond, repeater.WithMaxDelay(time.Second))
		if err := retrier.Do(ctx, func() error { return rm.MarkRead(ctx, ids) }); err != nil {
			lgr.Printf("[WARN] flush failed for %s, %d marks kept queued: %v", g.source, len(ids), err)
			o.bumpAttempts(ctx, g.rows)
			continue
		}
		if err := o.deleteRows(ctx, g.rows); err != nil {
			return delivered, fmt.Errorf("clear delivered marks: %w", err)
		}
		delivered += len(ids)
	}
	return delivered, nil
}

// enqueue stores ids for later delivery; duplicates collapse on the
// (source, local_id) unique key
func (o *Outbox) enqueue(ctx context.Context, sourceType string, localIDs []string) error {
	return o.withRetry(ctx, func() error {
		tx, err := o.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op
		for _, id := range localIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO read_marks (source, local_id, queued_at) VALUES (?, ?, ?)
				 ON CONFLICT(source, local_id) DO NOTHING`,
				sourceType, id, o.now().UTC()); err != nil {
				return fmt.Errorf("insert mark %s:%s: %w", sourceType, id, err)
			}
		}
		return tx.Commit()
	})
}

// deleteRows removes delivered or orphaned marks
func (o *Outbox) deleteRows(ctx context.Context, rows []mark) error {
	query, args, err := sqlx.In(`DELETE FROM read_marks WHERE id IN (?)`, rowIDs(rows))
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	return o.withRetry(ctx, func() error {
		_, eerr := o.db.ExecContext(ctx, query, args...)
		return eerr
	})
}

// bumpAttempts increments counters for an undelivered group and drops rows
// that reached the attempt limit
func (o *Outbox) bumpAttempts(ctx context.Context, rows []mark) {
	query, args, err := sqlx.In(`UPDATE read_marks SET attempts = attempts + 1 WHERE id IN (?)`, rowIDs(rows))
	if err != nil {
		lgr.Printf("[WARN] build attempts update: %v", err)
		return
	}
	if err := o.withRetry(ctx, func() error {
		_, uerr := o.db.ExecContext(ctx, query, args...)
		return uerr
	}); err != nil {
		lgr.Printf("[WARN] bump attempts: %v", err)
		return
	}

	res, err := o.db.ExecContext(ctx, `DELETE FROM read_marks WHERE attempts >= ?`, o.maxTries)
	if err != nil {
		lgr.Printf("[WARN] drop exhausted marks: %v", err)
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		lgr.Printf("[WARN] dropped %d read marks after %d failed deliveries", n, o.maxTries)
	}
}

func rowIDs(rows []mark) []int64 {
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids
}

// withRetry retries sqlite lock errors with backoff; anything else stops
// the retrier immediately
func (o *Outbox) withRetry(ctx context.Context, fn func() error) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	return retrier.Do(ctx, func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if isLockError(err) {
			return err // retried with backoff
		}
		return fmt.Errorf("%w: %v", errPermanent, err)
	}, errPermanent)
}

// isLockError checks if an error is a SQLite lock/busy error
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked")
}
