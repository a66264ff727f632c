package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/local-guide/internal/common"
	"github.com/Veraticus/local-guide/internal/model"
	"github.com/Veraticus/local-guide/internal/service"
)

// SaveSession creates the session or rebinds it to city.
func (s *SQLiteStorage) SaveSession(ctx context.Context, sessionID string, city model.City) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}
	if err := validateString(string(city), "city"); err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, city, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			city = excluded.city,
			updated_at = excluded.updated_at
	`, sessionID, string(city), now, now)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}
	return nil
}

// AppendInteraction records one interaction. The session must exist.
func (s *SQLiteStorage) AppendInteraction(ctx context.Context, sessionID string, in model.Interaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}
	if err := validateInteraction(in); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var res sql.Result
	res, err = tx.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, time.Now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to touch session %s: %w", sessionID, err)
	}
	var n int64
	if n, err = res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check session %s: %w", sessionID, err)
	}
	if n == 0 {
		err = fmt.Errorf("%w: %s", common.ErrSessionNotFound, sessionID)
		return err
	}

	q, r := in.Query, in.Response
	_, err = tx.ExecContext(ctx, `
		INSERT INTO interactions (
			session_id, seq, submitted_at, query_text, city, classification,
			classification_reason, topic, response_text, status, refusal_reason,
			detail, fingerprint, is_refusal, guard_approved
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sessionID, in.Seq, q.SubmittedAt.UTC(), q.Text, string(q.City), string(q.Classification),
		string(q.ClassificationReason), string(q.Topic), r.Text, string(r.Status), string(r.RefusalReason),
		r.Detail, r.SourceContextFingerprint, r.IsRefusal, r.GuardApproved,
	)
	if err != nil {
		return fmt.Errorf("failed to append interaction %d to session %s: %w", in.Seq, sessionID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit interaction: %w", err)
	}
	return nil
}

// ClearInteractions deletes every interaction of the session.
func (s *SQLiteStorage) ClearInteractions(ctx context.Context, sessionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM interactions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to clear interactions for session %s: %w", sessionID, err)
	}
	return nil
}

// ListInteractions returns the session's interactions in sequence order.
func (s *SQLiteStorage) ListInteractions(ctx context.Context, sessionID string) ([]model.Interaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, submitted_at, query_text, city, classification, classification_reason,
			topic, response_text, status, refusal_reason, detail, fingerprint,
			is_refusal, guard_approved
		FROM interactions
		WHERE session_id = ?
		ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Interaction
	for rows.Next() {
		var in model.Interaction
		var city, classification, reason, topic, status, refusal string
		if err := rows.Scan(
			&in.Seq, &in.Query.SubmittedAt, &in.Query.Text, &city, &classification, &reason,
			&topic, &in.Response.Text, &status, &refusal, &in.Response.Detail,
			&in.Response.SourceContextFingerprint, &in.Response.IsRefusal, &in.Response.GuardApproved,
		); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		in.Query.City = model.City(city)
		in.Query.Classification = model.Classification(classification)
		in.Query.ClassificationReason = model.ScopeReason(reason)
		in.Query.Topic = model.Topic(topic)
		in.Response.City = model.City(city)
		in.Response.Status = model.Status(status)
		in.Response.RefusalReason = model.RefusalReason(refusal)
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interactions: %w", err)
	}
	return out, nil
}

// ListSessions returns every session, most recently updated first.
func (s *SQLiteStorage) ListSessions(ctx context.Context) ([]service.SessionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, city, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []service.SessionRecord
	for rows.Next() {
		var (
			rec  service.SessionRecord
			city string
		)
		if err := rows.Scan(&rec.ID, &city, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		rec.City = model.City(city)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return out, nil
}

// GetSession returns one session record.
func (s *SQLiteStorage) GetSession(ctx context.Context, sessionID string) (service.SessionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return service.SessionRecord{}, err
	}

	var (
		rec  service.SessionRecord
		city string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, city, created_at, updated_at FROM sessions WHERE id = ?
	`, sessionID).Scan(&rec.ID, &city, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return service.SessionRecord{}, fmt.Errorf("%w: %s", common.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return service.SessionRecord{}, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	rec.City = model.City(city)
	return rec, nil
}

// RefusalCounts returns the number of refusals per reason across all
// sessions.
func (s *SQLiteStorage) RefusalCounts(ctx context.Context) (map[model.RefusalReason]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT refusal_reason, COUNT(*)
		FROM interactions
		WHERE is_refusal
		GROUP BY refusal_reason
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count refusals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.RefusalReason]int)
	for rows.Next() {
		var (
			reason string
			n      int
		)
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("failed to scan refusal count: %w", err)
		}
		counts[model.RefusalReason(reason)] = n
	}
	return counts, rows.Err()
}
