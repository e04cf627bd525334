package store

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"polaris-hq/polaris/pkg/format"
	"polaris-hq/polaris/pkg/policy"
	"polaris-hq/polaris/pkg/telemetry/metrics"
)

// SQLiteStore is a Store backed by a SQLite database. Snapshots are
// stored as serialized policy documents, so the table stays readable
// with plain SQL tooling.
//
// The database runs in WAL mode with a busy timeout and a periodic
// checkpoint, and is suitable for single-instance deployments.
type SQLiteStore struct {
	db             *sql.DB
	format         format.Format
	metrics        *metrics.SerializationMetrics
	checkpointStop chan struct{}
	mu             sync.RWMutex
	closeOnce      sync.Once

	saveStmt   *sql.Stmt
	loadStmt   *sql.Stmt
	listStmt   *sql.Stmt
	deleteStmt *sql.Stmt
}

// SQLiteConfig configures a SQLiteStore.
type SQLiteConfig struct {
	// DBPath is the path to the SQLite database file. Required.
	DBPath string

	// Format names the registered serialization used for stored
	// documents (default "paf").
	Format string

	// BusyTimeout is how long to wait for locks before failing
	// (default 5s).
	BusyTimeout time.Duration

	// CheckpointInterval is how often to checkpoint the WAL
	// (default 5 minutes).
	CheckpointInterval time.Duration

	// Metrics, when set, records document serializations performed by
	// Save.
	Metrics *metrics.SerializationMetrics
}

// NewSQLiteStore opens (or creates) a snapshot database with default
// settings.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteConfig{DBPath: dbPath})
}

// NewSQLiteStoreWithConfig opens a snapshot database with custom
// configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.Format == "" {
		cfg.Format = "paf"
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}

	fmtImpl, ok := format.Lookup(cfg.Format)
	if !ok {
		return nil, fmt.Errorf("unknown snapshot format %q (have %v)", cfg.Format, format.Names())
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:             db,
		format:         fmtImpl,
		metrics:        cfg.Metrics,
		checkpointStop: make(chan struct{}),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go s.checkpointLoop(cfg.CheckpointInterval)

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS policy_snapshots (
		name TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		format TEXT NOT NULL,
		document TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_updated ON policy_snapshots(updated_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO policy_snapshots (name, id, format, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			id = excluded.id,
			format = excluded.format,
			document = excluded.document,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}

	s.loadStmt, err = s.db.Prepare(`
		SELECT name, id, format, document, created_at, updated_at
		FROM policy_snapshots
		WHERE name = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare load statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT name, id, format, document, created_at, updated_at
		FROM policy_snapshots
		ORDER BY name
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`
		DELETE FROM policy_snapshots
		WHERE name = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	return nil
}

// Save serializes p and upserts it under name.
func (s *SQLiteStore) Save(ctx context.Context, name string, p *policy.Policy) (*Snapshot, error) {
	if name == "" {
		return nil, fmt.Errorf("snapshot name cannot be empty")
	}
	if p == nil {
		return nil, fmt.Errorf("policy cannot be nil")
	}

	var buf bytes.Buffer
	start := time.Now()
	err := s.format.NewWriter(&buf).Write(p, true)
	if s.metrics != nil {
		s.metrics.RecordSerialize(s.format.Name(), buf.Len(), err, time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	now := time.Now().UTC()
	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.saveStmt.ExecContext(ctx, name, id, s.format.Name(), buf.String(), now.Unix(), now.Unix()); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	// Re-read so CreatedAt reflects the original capture on replace.
	return s.loadLocked(ctx, name)
}

// Load returns the snapshot under name.
func (s *SQLiteStore) Load(ctx context.Context, name string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLocked(ctx, name)
}

func (s *SQLiteStore) loadLocked(ctx context.Context, name string) (*Snapshot, error) {
	var (
		snap      Snapshot
		document  string
		createdAt int64
		updatedAt int64
	)
	err := s.loadStmt.QueryRowContext(ctx, name).Scan(
		&snap.Name, &snap.ID, &snap.Format, &document, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	p, err := s.parseDocument(snap.Format, document, name)
	if err != nil {
		return nil, err
	}
	snap.Policy = p
	snap.CreatedAt = time.Unix(createdAt, 0).UTC()
	snap.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &snap, nil
}

// List returns every snapshot ordered by name.
func (s *SQLiteStore) List(ctx context.Context) ([]*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		var (
			snap      Snapshot
			document  string
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(&snap.Name, &snap.ID, &snap.Format, &document, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		p, err := s.parseDocument(snap.Format, document, snap.Name)
		if err != nil {
			return nil, err
		}
		snap.Policy = p
		snap.CreatedAt = time.Unix(createdAt, 0).UTC()
		snap.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// parseDocument decodes a stored document with the format recorded in
// its row, which may differ from the store's configured format if the
// database predates a config change.
func (s *SQLiteStore) parseDocument(formatName, document, source string) (*policy.Policy, error) {
	fmtImpl := s.format
	if formatName != fmtImpl.Name() {
		impl, ok := format.Lookup(formatName)
		if !ok {
			return nil, fmt.Errorf("snapshot %q stored in unknown format %q", source, formatName)
		}
		fmtImpl = impl
	}
	p, err := fmtImpl.Parse([]byte(document), "store:"+source)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %q: %w", source, err)
	}
	return p, nil
}

// Delete removes the snapshot under name.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.deleteStmt.ExecContext(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return nil
}

// Close releases the database. Idempotent.
func (s *SQLiteStore) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		close(s.checkpointStop)

		for _, stmt := range []*sql.Stmt{s.saveStmt, s.loadStmt, s.listStmt, s.deleteStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})
	return closeErr
}

func (s *SQLiteStore) checkpointLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.checkpointStop:
			return
		}
	}
}
