package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"assetserve/internal/domain"
)

// QueueSize bounds the records waiting to be written
const QueueSize = 1024

// Repository implements repository.Journal using SQLite. Records are
// written by a single background goroutine so Record never blocks the
// request path.
type Repository struct {
	db  *sql.DB
	log *zap.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan item
	done    chan struct{}
	dropped atomic.Int64
}

// item is a record to write, or a flush barrier when flushed is set
type item struct {
	rec     domain.RequestRecord
	flushed chan struct{}
}

// New opens (and creates) the journal database at dbPath
func New(dbPath string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := dbPath
	if dbPath != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps :memory: databases shared and serializes writes
	db.SetMaxOpenConns(1)

	repo := &Repository{
		db:    db,
		log:   logger.Named("journal"),
		queue: make(chan item, QueueSize),
		done:  make(chan struct{}),
	}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	go repo.writer()
	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS requests (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		status INTEGER NOT NULL,
		bytes INTEGER NOT NULL DEFAULT 0,
		duration_ns INTEGER NOT NULL DEFAULT 0,
		at_ns INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_at ON requests(at_ns);
	CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Record queues rec for writing. When the queue is full the record is
// dropped and counted.
func (r *Repository) Record(rec domain.RequestRecord) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- item{rec: rec}:
	default:
		if n := r.dropped.Add(1); n == 1 || n%100 == 0 {
			r.log.Warn("journal queue full, dropping records", zap.Int64("dropped", n))
		}
	}
}

// Dropped returns the number of records lost to a full queue
func (r *Repository) Dropped() int64 {
	return r.dropped.Load()
}

// Flush waits until every record queued before the call is written
func (r *Repository) Flush(ctx context.Context) error {
	flushed := make(chan struct{})

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil
	}
	select {
	case r.queue <- item{flushed: flushed}:
		r.mu.RUnlock()
	case <-ctx.Done():
		r.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Repository) writer() {
	defer close(r.done)
	for it := range r.queue {
		if it.flushed != nil {
			close(it.flushed)
			continue
		}
		if err := r.insert(it.rec); err != nil {
			r.log.Error("failed to write request record", zap.String("path", it.rec.Path), zap.Error(err))
		}
	}
}

func (r *Repository) insert(rec domain.RequestRecord) error {
	_, err := r.db.Exec(`
		INSERT INTO requests (id, method, path, status, bytes, duration_ns, at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Method, rec.Path, rec.Status, rec.Bytes, int64(rec.Duration), rec.At.UnixNano())
	return err
}

// Recent returns up to limit records, newest first
func (r *Repository) Recent(ctx context.Context, limit int) ([]domain.RequestRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, method, path, status, bytes, duration_ns, at_ns
		FROM requests
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	records := make([]domain.RequestRecord, 0)
	for rows.Next() {
		var (
			rec        domain.RequestRecord
			duration   int64
			atUnixNano int64
		)
		if err := rows.Scan(&rec.ID, &rec.Method, &rec.Path, &rec.Status, &rec.Bytes, &duration, &atUnixNano); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		rec.Duration = time.Duration(duration)
		rec.At = time.Unix(0, atUnixNano)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Summary aggregates the whole journal
type Summary struct {
	Total    int
	Bytes    int64
	ByStatus map[int]int
	First    time.Time
	Last     time.Time
}

// Summarize aggregates every record in the journal
func (r *Repository) Summarize(ctx context.Context) (*Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(bytes), 0), MIN(at_ns), MAX(at_ns)
		FROM requests
		GROUP BY status
		ORDER BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize requests: %w", err)
	}
	defer rows.Close()

	summary := &Summary{ByStatus: make(map[int]int)}
	for rows.Next() {
		var (
			status, count int
			bytes         int64
			first, last   int64
		)
		if err := rows.Scan(&status, &count, &bytes, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summary.ByStatus[status] = count
		summary.Total += count
		summary.Bytes += bytes

		if t := time.Unix(0, first); summary.First.IsZero() || t.Before(summary.First) {
			summary.First = t
		}
		if t := time.Unix(0, last); t.After(summary.Last) {
			summary.Last = t
		}
	}
	return summary, rows.Err()
}

// Close writes what is still queued and closes the database
func (r *Repository) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
	return r.db.Close()
}
