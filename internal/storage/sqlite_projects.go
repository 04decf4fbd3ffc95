package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pairpad/pairpad/internal/models"
)

type sqliteProjectRepo struct {
	db *sql.DB
}

func (r *sqliteProjectRepo) Create(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (id, name, description, owner, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		project.ID, project.Name, project.Description, project.Owner, project.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *sqliteProjectRepo) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := `
		SELECT id, name, description, owner, created_at
		FROM projects WHERE id = ?
	`
	project := &models.Project{}
	var description sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&project.ID, &project.Name, &description, &project.Owner, &project.CreatedAt,
	)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project by id: %w", err)
	}
	project.Description = description.String

	shares, err := r.db.QueryContext(ctx,
		"SELECT username FROM project_shares WHERE project_id = ? ORDER BY username", id)
	if err != nil {
		return nil, fmt.Errorf("get project shares: %w", err)
	}
	defer shares.Close()
	for shares.Next() {
		var username string
		if err := shares.Scan(&username); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		project.SharedWith = append(project.SharedWith, username)
	}
	return project, shares.Err()
}

func (r *sqliteProjectRepo) Delete(ctx context.Context, id string) error {
	// files, shares and presence cascade
	result, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteProjectRepo) ListForUser(ctx context.Context, username string) ([]*models.ProjectSummary, error) {
	query := `
		SELECT id, name, description, owner, 1 AS is_owner
		FROM projects WHERE owner = ?
		UNION ALL
		SELECT p.id, p.name, p.description, p.owner, 0 AS is_owner
		FROM projects p
		INNER JOIN project_shares s ON p.id = s.project_id
		WHERE s.username = ?
		ORDER BY is_owner DESC, name
	`
	rows, err := r.db.QueryContext(ctx, query, username, username)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var summaries []*models.ProjectSummary
	for rows.Next() {
		s := &models.ProjectSummary{}
		var description sql.NullString
		var isOwner int
		if err := rows.Scan(&s.ID, &s.Name, &description, &s.Owner, &isOwner); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		s.Description = description.String
		s.IsOwner = isOwner == 1
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *sqliteProjectRepo) Share(ctx context.Context, projectID, username string) error {
	query := `
		INSERT OR IGNORE INTO project_shares (project_id, username)
		VALUES (?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, projectID, username); err != nil {
		return fmt.Errorf("share project: %w", err)
	}
	return nil
}

func (r *sqliteProjectRepo) Unshare(ctx context.Context, projectID, username string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM project_shares WHERE project_id = ? AND username = ?",
		projectID, username,
	)
	if err != nil {
		return fmt.Errorf("unshare project: %w", err)
	}
	return nil
}
