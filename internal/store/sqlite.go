package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	_ "modernc.org/sqlite"

	"github.com/vipertrack/vipertrack/internal/timeline"
)

// Store persists timeline records in a local SQLite database. It implements
// both timeline.Sink and timeline.DeadLetterSink. Counters and labels are
// stored as JSON columns so the schema stays stable while the counter set
// evolves.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the database at path, creating parent directories
// as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS timeline (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		bucket_start     DATETIME NOT NULL,
		bucket_end       DATETIME NOT NULL,
		counters         TEXT NOT NULL DEFAULT '{}',
		dominant_process TEXT NOT NULL DEFAULT '',
		dominant_title   TEXT NOT NULL DEFAULT '',
		active_labels    TEXT NOT NULL DEFAULT '[]',
		generation       INTEGER NOT NULL DEFAULT 0,
		supersedes       INTEGER NOT NULL DEFAULT 0,
		created_at       DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS dead_letter (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		bucket_start DATETIME NOT NULL,
		record       TEXT NOT NULL,
		cause        TEXT NOT NULL DEFAULT '',
		created_at   DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_timeline_start ON timeline(bucket_start);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Persist inserts one timeline record. Encoding failures are permanent (the
// record itself is unusable); database failures are transient since a locked
// or briefly unavailable file recovers.
func (s *Store) Persist(ctx context.Context, rec timeline.Record) (int64, error) {
	counters, err := sonic.Marshal(rec.Counters)
	if err != nil {
		return 0, timeline.PermanentError(fmt.Errorf("encode counters: %w", err))
	}
	labels, err := sonic.Marshal(rec.ActiveLabels)
	if err != nil {
		return 0, timeline.PermanentError(fmt.Errorf("encode labels: %w", err))
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO timeline (bucket_start, bucket_end, counters, dominant_process, dominant_title, active_labels, generation, supersedes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.BucketStart.UTC(), rec.BucketEnd.UTC(), string(counters),
		rec.DominantProcess, rec.DominantTitle, string(labels),
		rec.Generation, rec.Supersedes, time.Now().UTC(),
	)
	if err != nil {
		return 0, timeline.TransientError(fmt.Errorf("insert timeline record: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, timeline.TransientError(err)
	}
	return id, nil
}

// DeadLetter stores a permanently failed record with its error context.
func (s *Store) DeadLetter(ctx context.Context, rec timeline.Record, cause error) error {
	data, err := sonic.Marshal(rec)
	if err != nil {
		data = []byte(fmt.Sprintf("{\"encode_error\": %q}", err.Error()))
	}
	causeText := ""
	if cause != nil {
		causeText = cause.Error()
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO dead_letter (bucket_start, record, cause, created_at) VALUES (?, ?, ?, ?)",
		rec.BucketStart.UTC(), string(data), causeText, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}
	return nil
}

// QueryFilter narrows a timeline query. Zero values mean "no constraint".
type QueryFilter struct {
	From   time.Time
	To     time.Time
	Label  string
	Window string
	Limit  int
}

// StoredRecord is a persisted record together with its row id.
type StoredRecord struct {
	ID     int64
	Record timeline.Record
}

// Query returns records in bucket order, newest last, honoring the filter.
// Label filtering matches exact label ids; Window matches a case-insensitive
// substring of the dominant process or title.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]StoredRecord, error) {
	query := `SELECT id, bucket_start, bucket_end, counters, dominant_process, dominant_title, active_labels, generation, supersedes
	 FROM timeline WHERE 1=1`
	var args []any

	if !filter.From.IsZero() {
		query += " AND bucket_start >= ?"
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		query += " AND bucket_start < ?"
		args = append(args, filter.To.UTC())
	}
	if filter.Window != "" {
		query += " AND (dominant_process LIKE ? COLLATE NOCASE OR dominant_title LIKE ? COLLATE NOCASE)"
		pattern := "%" + filter.Window + "%"
		args = append(args, pattern, pattern)
	}
	if filter.Label != "" {
		// Narrow in SQL so LIMIT applies to matching rows; the ids are
		// quote-delimited inside the JSON array, which makes the match exact
		// for any id without embedded quotes. The decoded check below settles
		// the rest.
		query += " AND active_labels LIKE ?"
		args = append(args, `%"`+filter.Label+`"%`)
	}
	query += " ORDER BY bucket_start"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query timeline: %w", err)
	}
	defer rows.Close()

	var records []StoredRecord
	for rows.Next() {
		var (
			stored   StoredRecord
			counters string
			labels   string
		)
		rec := &stored.Record
		if err := rows.Scan(&stored.ID, &rec.BucketStart, &rec.BucketEnd, &counters,
			&rec.DominantProcess, &rec.DominantTitle, &labels, &rec.Generation, &rec.Supersedes); err != nil {
			return nil, err
		}
		if err := sonic.Unmarshal([]byte(counters), &rec.Counters); err != nil {
			return nil, fmt.Errorf("decode counters for record %d: %w", stored.ID, err)
		}
		if err := sonic.Unmarshal([]byte(labels), &rec.ActiveLabels); err != nil {
			return nil, fmt.Errorf("decode labels for record %d: %w", stored.ID, err)
		}
		if filter.Label != "" && !containsLabel(rec.ActiveLabels, filter.Label) {
			continue
		}
		records = append(records, stored)
	}
	return records, rows.Err()
}

// CountRecords returns the total number of timeline records.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM timeline").Scan(&count)
	return count, err
}

func containsLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}
