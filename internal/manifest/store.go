// Package manifest records capture sessions and their views in a SQLite
// database kept next to the rendered images.
package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/linusmossberg/light-field-renderer/internal/capture"
	"github.com/linusmossberg/light-field-renderer/internal/host"
	"github.com/linusmossberg/light-field-renderer/internal/lightfield"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session not found")

// DefaultFile is the manifest file name inside a capture directory.
const DefaultFile = "manifest.db"

const timeLayout = time.RFC3339Nano

// Store is a manifest database. It implements capture.Recorder.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

var _ capture.Recorder = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open opens (creating if needed) the manifest at path and migrates it to the
// latest schema.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(s)
	}
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Session is a recorded capture session.
type Session struct {
	ID         string
	Camera     string
	Grid       lightfield.Grid
	Lens       host.Lens
	Dir        string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Captured   int
	Failed     int
}

// Capture is one recorded view.
type Capture struct {
	SessionID  string
	Sample     lightfield.Sample
	Seed       int64
	Identifier string
	Path       string
	Duration   time.Duration
	Skipped    bool
	Error      string
}

// BeginSession inserts a running session.
func (s *Store) BeginSession(ctx context.Context, info capture.Info) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, camera, count_x, count_y, extent_x, extent_y,
			focal_length, sensor_width, dir, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'running', ?)`,
		info.ID, info.Camera,
		info.Grid.Horizontal.Count, info.Grid.Vertical.Count,
		info.Grid.Horizontal.Extent, info.Grid.Vertical.Extent,
		info.Lens.FocalLength, info.Lens.SensorWidth,
		info.Dir, info.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", info.ID, err)
	}
	s.logger.Debugw("session started", "id", info.ID)
	return nil
}

// RecordView stores the outcome of one view. Recording the same view twice
// replaces the earlier row.
func (s *Store) RecordView(ctx context.Context, sessionID string, v capture.View, captureErr error) error {
	var errText sql.NullString
	if captureErr != nil {
		errText = sql.NullString{String: captureErr.Error(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO captures (session_id, view_index, grid_row, grid_col, u, v, seed,
			identifier, path, duration_ms, skipped, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, view_index) DO UPDATE SET
			seed = excluded.seed,
			identifier = excluded.identifier,
			path = excluded.path,
			duration_ms = excluded.duration_ms,
			skipped = excluded.skipped,
			error = excluded.error`,
		sessionID, v.Sample.Index, v.Sample.Row, v.Sample.Column, v.Sample.U, v.Sample.V, v.Seed,
		v.Identifier, v.Path, v.Duration.Milliseconds(), v.Skipped, errText,
	)
	if err != nil {
		return fmt.Errorf("insert capture %s: %w", v.Identifier, err)
	}
	return nil
}

// FinishSession sets the final status of a session.
func (s *Store) FinishSession(ctx context.Context, sessionID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, finished_at = ? WHERE id = ?`,
		status, time.Now().UTC().Format(timeLayout), sessionID)
	if err != nil {
		return fmt.Errorf("update session %s: %w", sessionID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	s.logger.Debugw("session finished", "id", sessionID, "status", status)
	return nil
}

const sessionColumns = `
	s.id, s.camera, s.count_x, s.count_y, s.extent_x, s.extent_y,
	s.focal_length, s.sensor_width, s.dir, s.status, s.started_at, s.finished_at,
	(SELECT COUNT(*) FROM captures c WHERE c.session_id = s.id AND c.error IS NULL),
	(SELECT COUNT(*) FROM captures c WHERE c.session_id = s.id AND c.error IS NOT NULL)`

// Sessions lists every session, newest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions s ORDER BY s.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Session returns one session by id.
func (s *Store) Session(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (Session, error) {
	var (
		sess     Session
		started  string
		finished sql.NullString
	)
	err := sc.Scan(&sess.ID, &sess.Camera,
		&sess.Grid.Horizontal.Count, &sess.Grid.Vertical.Count,
		&sess.Grid.Horizontal.Extent, &sess.Grid.Vertical.Extent,
		&sess.Lens.FocalLength, &sess.Lens.SensorWidth,
		&sess.Dir, &sess.Status, &started, &finished,
		&sess.Captured, &sess.Failed)
	if err != nil {
		return Session{}, err
	}
	if sess.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Session{}, fmt.Errorf("session %s: started_at: %w", sess.ID, err)
	}
	if finished.Valid {
		if sess.FinishedAt, err = time.Parse(timeLayout, finished.String); err != nil {
			return Session{}, fmt.Errorf("session %s: finished_at: %w", sess.ID, err)
		}
	}
	return sess, nil
}

// Captures lists the views of a session in grid order.
func (s *Store) Captures(ctx context.Context, sessionID string) ([]Capture, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT view_index, grid_row, grid_col, u, v, seed, identifier, path,
			duration_ms, skipped, error
		FROM captures WHERE session_id = ? ORDER BY view_index`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query captures: %w", err)
	}
	defer rows.Close()

	var out []Capture
	for rows.Next() {
		var (
			c       = Capture{SessionID: sessionID}
			ms      int64
			errText sql.NullString
		)
		if err := rows.Scan(&c.Sample.Index, &c.Sample.Row, &c.Sample.Column, &c.Sample.U, &c.Sample.V,
			&c.Seed, &c.Identifier, &c.Path, &ms, &c.Skipped, &errText); err != nil {
			return nil, err
		}
		c.Duration = time.Duration(ms) * time.Millisecond
		c.Error = errText.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and its captures.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
