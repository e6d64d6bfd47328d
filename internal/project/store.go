package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"librasflow/internal/captions"
	"librasflow/internal/config"
)

// Store manages project persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the project database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk database location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new project in the pending state at the upload stage.
func (s *Store) Create(ctx context.Context, ownerID, title string, source VideoSource) (*Project, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, fmt.Errorf("owner id required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title required")
	}
	if source.Ref() == "" {
		return nil, fmt.Errorf("video source reference required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := uuid.NewString()

	err := s.execWithRetry(ctx,
		`INSERT INTO projects (
            id, owner_id, title, status, stage, source_kind, source_ref, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ownerID, title, StatusPending, StageUpload, source.Kind, source.Ref(), timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a project by id.
func (s *Store) Get(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, status, stage, source_kind, source_ref,
                artifact_url, error_message, created_at, updated_at
           FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ListByOwner returns the owner's projects sorted by creation time descending.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, title, status, stage, source_kind, source_ref,
                artifact_url, error_message, created_at, updated_at
           FROM projects WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Update persists mutable project fields and refreshes updated_at.
func (s *Store) Update(ctx context.Context, p *Project) error {
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("project with id required")
	}
	p.UpdatedAt = time.Now().UTC()
	err := s.execWithRetry(ctx,
		`UPDATE projects SET title = ?, status = ?, stage = ?, source_kind = ?, source_ref = ?,
                artifact_url = ?, error_message = ?, updated_at = ?
          WHERE id = ?`,
		p.Title, p.Status, p.Stage, p.Source.Kind, p.Source.Ref(),
		p.ArtifactURL, p.ErrorMessage, p.UpdatedAt.Format(time.RFC3339Nano), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

// Delete removes the project and, via foreign keys, its caption and
// interpretation rows. The caller is responsible for cascading deletion of
// object-storage artifacts referenced by the returned project.
func (s *Store) Delete(ctx context.Context, id string) (*Project, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.execWithRetry(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete project: %w", err)
	}
	return p, nil
}

// ReplaceCaptions supersedes the project's caption set. Individual entries are
// never deleted; a stage re-run replaces the whole set.
func (s *Store) ReplaceCaptions(ctx context.Context, projectID string, entries []captions.Entry) error {
	if _, err := s.Get(ctx, projectID); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin captions tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM captions WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("clear captions: %w", err)
	}
	for i, entry := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO captions (project_id, entry_id, start_time, end_time, text, position)
             VALUES (?, ?, ?, ?, ?, ?)`,
			projectID, entry.ID, entry.StartTime, entry.EndTime, entry.Text, i,
		); err != nil {
			return fmt.Errorf("insert caption %s: %w", entry.ID, err)
		}
	}
	return tx.Commit()
}

// Captions loads the project's caption set in timeline order.
func (s *Store) Captions(ctx context.Context, projectID string) (*captions.Set, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_id, start_time, end_time, text
           FROM captions WHERE project_id = ? ORDER BY position`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load captions: %w", err)
	}
	defer rows.Close()

	var entries []captions.Entry
	for rows.Next() {
		var entry captions.Entry
		if err := rows.Scan(&entry.ID, &entry.StartTime, &entry.EndTime, &entry.Text); err != nil {
			return nil, fmt.Errorf("scan caption: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	set, err := captions.NewSet(entries)
	if err != nil {
		return nil, fmt.Errorf("rebuild caption set: %w", err)
	}
	set.SortByStart()
	return set, nil
}

// UpdateCaptionText edits one caption entry and flags the matching
// interpretation entry as stale: the generated rendering no longer reflects
// the source text and should be surfaced for regeneration, not auto-replaced.
func (s *Store) UpdateCaptionText(ctx context.Context, projectID, entryID, text string) error {
	if strings.TrimSpace(text) == "" {
		return captions.ErrEmptyText
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin caption edit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE captions SET text = ? WHERE project_id = ? AND entry_id = ?`,
		text, projectID, entryID)
	if err != nil {
		return fmt.Errorf("update caption: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("caption rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: caption %s", ErrNotFound, entryID)
	}

	// An interpretation is stale exactly when its source text no longer
	// matches; editing the caption back clears the flag again.
	if _, err := tx.ExecContext(ctx,
		`UPDATE interpretations SET stale = (original_text <> ?)
          WHERE project_id = ? AND subtitle_id = ?`,
		text, projectID, entryID); err != nil {
		return fmt.Errorf("recompute interpretation staleness: %w", err)
	}
	return tx.Commit()
}

// ReplaceInterpretations supersedes the project's interpretation set.
func (s *Store) ReplaceInterpretations(ctx context.Context, projectID string, entries []InterpretationEntry) error {
	if _, err := s.Get(ctx, projectID); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin interpretations tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM interpretations WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("clear interpretations: %w", err)
	}
	for i, entry := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO interpretations (
                project_id, subtitle_id, start_time, end_time,
                original_text, libras_interpretation, instruction, stale, position
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			projectID, entry.SubtitleID, entry.StartTime, entry.EndTime,
			entry.OriginalText, entry.LibrasInterpretation, entry.Instruction, boolToInt(entry.Stale), i,
		); err != nil {
			return fmt.Errorf("insert interpretation %s: %w", entry.SubtitleID, err)
		}
	}
	return tx.Commit()
}

// Interpretations loads the project's interpretation set in timeline order.
func (s *Store) Interpretations(ctx context.Context, projectID string) ([]InterpretationEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subtitle_id, start_time, end_time, original_text,
                libras_interpretation, instruction, stale
           FROM interpretations WHERE project_id = ? ORDER BY position`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load interpretations: %w", err)
	}
	defer rows.Close()

	var entries []InterpretationEntry
	for rows.Next() {
		var entry InterpretationEntry
		var stale int
		if err := rows.Scan(&entry.SubtitleID, &entry.StartTime, &entry.EndTime,
			&entry.OriginalText, &entry.LibrasInterpretation, &entry.Instruction, &stale); err != nil {
			return nil, fmt.Errorf("scan interpretation: %w", err)
		}
		entry.Stale = stale != 0
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// UpdateInterpretation replaces a single interpretation entry after a manual
// edit or a per-entry regeneration; other entries are untouched.
func (s *Store) UpdateInterpretation(ctx context.Context, projectID string, entry InterpretationEntry) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE interpretations
            SET libras_interpretation = ?, instruction = ?, original_text = ?, stale = ?
          WHERE project_id = ? AND subtitle_id = ?`,
		entry.LibrasInterpretation, entry.Instruction, entry.OriginalText, boolToInt(entry.Stale),
		projectID, entry.SubtitleID)
	if err != nil {
		return fmt.Errorf("update interpretation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("interpretation rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: interpretation %s", ErrNotFound, entry.SubtitleID)
	}
	return nil
}

// ArtifactCounts reports how many caption and interpretation rows exist, used
// to reconstruct the current stage when resuming a persisted project.
func (s *Store) ArtifactCounts(ctx context.Context, projectID string) (captionCount, interpretationCount int, err error) {
	if err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM captions WHERE project_id = ?`, projectID).Scan(&captionCount); err != nil {
		return 0, 0, fmt.Errorf("count captions: %w", err)
	}
	if err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM interpretations WHERE project_id = ?`, projectID).Scan(&interpretationCount); err != nil {
		return 0, 0, fmt.Errorf("count interpretations: %w", err)
	}
	return captionCount, interpretationCount, nil
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		_, lastErr = s.db.ExecContext(ctx, query, args...)
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == 5 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var (
		p          Project
		sourceKind string
		sourceRef  string
		createdAt  string
		updatedAt  string
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Status, &p.Stage,
		&sourceKind, &sourceRef, &p.ArtifactURL, &p.ErrorMessage, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Source = sourceFromRow(SourceKind(sourceKind), sourceRef)
	p.CreatedAt = parseTimestamp(createdAt)
	p.UpdatedAt = parseTimestamp(updatedAt)
	return &p, nil
}

func sourceFromRow(kind SourceKind, ref string) VideoSource {
	source := VideoSource{Kind: kind}
	if kind == SourceRemote {
		source.PlatformVideoID = ref
	} else {
		source.FileRef = ref
	}
	return source
}

func parseTimestamp(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
