package db

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/council/internal/errors"
	"github.com/hpungsan/council/internal/session"
)

// activeKey is the single row of the active_slot table.
const activeKey = "active"

// Store persists the active slot snapshot and the session archive.
// Loads tolerate malformed rows: a bad snapshot reads as absent and bad
// archive rows are skipped, each logged at warn level.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore wraps an initialized database.
func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// LoadActive returns the saved snapshot, or nil if none is stored or the
// stored payload cannot be decoded.
func (s *Store) LoadActive(ctx context.Context) (*session.Snapshot, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM active_slot WHERE key = ?`, activeKey).Scan(&payload)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		s.logger.Warn("discarding malformed active slot", zap.Error(err))
		return nil, nil
	}
	if err := snap.Validate(); err != nil {
		s.logger.Warn("discarding invalid active slot", zap.Error(err))
		return nil, nil
	}
	return &snap, nil
}

// SaveActive overwrites the stored snapshot.
func (s *Store) SaveActive(ctx context.Context, snap *session.Snapshot) error {
	if snap == nil {
		_, err := s.db.ExecContext(ctx, `DELETE FROM active_slot WHERE key = ?`, activeKey)
		if err != nil {
			return errors.NewInternal(err)
		}
		return nil
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO active_slot (key, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, activeKey, string(payload), time.Now().UnixMilli()); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// LoadArchive returns the archive, most recently touched first.
// Rows that fail to decode or validate are skipped.
func (s *Store) LoadArchive(ctx context.Context) ([]session.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, problem, selected_json, transcript_json, updated_at
		FROM sessions
		ORDER BY position ASC, updated_at DESC, id ASC
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	archive := []session.Session{}
	for rows.Next() {
		var (
			sess                         session.Session
			selectedJSON, transcriptJSON string
		)
		if err := rows.Scan(&sess.ID, &sess.Problem, &selectedJSON, &transcriptJSON, &sess.UpdatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := decodeSession(&sess, selectedJSON, transcriptJSON); err != nil {
			s.logger.Warn("skipping corrupt archived session", zap.String("id", sess.ID), zap.Error(err))
			continue
		}
		archive = append(archive, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return archive, nil
}

func decodeSession(sess *session.Session, selectedJSON, transcriptJSON string) error {
	if err := json.Unmarshal([]byte(selectedJSON), &sess.SelectedIDs); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(transcriptJSON), &sess.Transcript); err != nil {
		return err
	}
	if sess.SelectedIDs == nil {
		sess.SelectedIDs = []string{}
	}
	return sess.Validate()
}

// SaveArchive replaces the whole archive in one transaction. The slice order
// is stored as the listing order.
func (s *Store) SaveArchive(ctx context.Context, archive []session.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return errors.NewInternal(err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sessions (id, position, problem, selected_json, transcript_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for i, sess := range archive {
		selectedJSON, err := json.Marshal(nonNil(sess.SelectedIDs))
		if err != nil {
			return errors.NewInternal(err)
		}
		transcriptJSON, err := json.Marshal(sess.Transcript)
		if err != nil {
			return errors.NewInternal(err)
		}
		if _, err := stmt.ExecContext(ctx, sess.ID, i, sess.Problem, string(selectedJSON), string(transcriptJSON), sess.UpdatedAt); err != nil {
			if isUniqueConstraintError(err) {
				return errors.NewAlreadyExists(sess.ID)
			}
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
