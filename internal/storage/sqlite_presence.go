package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pairpad/pairpad/internal/models"
)

type sqlitePresenceRepo struct {
	db *sql.DB
}

func (r *sqlitePresenceRepo) Upsert(ctx context.Context, projectID string, p *models.Presence) error {
	query := `
		INSERT INTO presence (project_id, session_id, username, viewing_file, last_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id, session_id) DO UPDATE SET
			username = excluded.username,
			viewing_file = excluded.viewing_file,
			last_seen = excluded.last_seen
	`
	var viewing sql.NullString
	if p.ViewingFile != "" {
		viewing = sql.NullString{String: p.ViewingFile, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query,
		projectID, p.SessionID, p.Username, viewing, p.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("upsert presence: %w", err)
	}
	return nil
}

func (r *sqlitePresenceRepo) ListActive(ctx context.Context, projectID string, now time.Time, window time.Duration) ([]*models.Presence, error) {
	query := `
		SELECT session_id, username, viewing_file, last_seen
		FROM presence
		WHERE project_id = ? AND last_seen > ?
		ORDER BY username, session_id
	`
	cutoff := now.UnixMilli() - window.Milliseconds()
	rows, err := r.db.QueryContext(ctx, query, projectID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list presence: %w", err)
	}
	defer rows.Close()

	var entries []*models.Presence
	for rows.Next() {
		p := &models.Presence{}
		var viewing sql.NullString
		if err := rows.Scan(&p.SessionID, &p.Username, &viewing, &p.LastSeen); err != nil {
			return nil, fmt.Errorf("scan presence: %w", err)
		}
		p.ViewingFile = viewing.String
		entries = append(entries, p)
	}
	return entries, rows.Err()
}

func (r *sqlitePresenceRepo) Delete(ctx context.Context, projectID, sessionID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM presence WHERE project_id = ? AND session_id = ?",
		projectID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("delete presence: %w", err)
	}
	return nil
}

func (r *sqlitePresenceRepo) DeleteStale(ctx context.Context, now time.Time, window time.Duration) (int64, error) {
	cutoff := now.UnixMilli() - window.Milliseconds()
	result, err := r.db.ExecContext(ctx, "DELETE FROM presence WHERE last_seen <= ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale presence: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
