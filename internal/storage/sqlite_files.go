package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pairpad/pairpad/internal/keycodec"
	"github.com/pairpad/pairpad/internal/models"
)

type sqliteFileRepo struct {
	db *sql.DB
}

func (r *sqliteFileRepo) Put(ctx context.Context, projectID string, file *models.File) error {
	query := `
		INSERT INTO files (project_id, key, name, content, file_type, last_modified, modified_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, key) DO UPDATE SET
			content = excluded.content,
			file_type = excluded.file_type,
			last_modified = excluded.last_modified,
			modified_by = excluded.modified_by
	`
	_, err := r.db.ExecContext(ctx, query,
		projectID, keycodec.Encode(file.Name), file.Name,
		file.Content, file.Type, file.LastModified, file.ModifiedBy,
	)
	if err != nil {
		return fmt.Errorf("put file: %w", err)
	}
	return nil
}

func (r *sqliteFileRepo) Get(ctx context.Context, projectID, name string) (*models.File, error) {
	query := `
		SELECT name, content, file_type, last_modified, modified_by
		FROM files WHERE project_id = ? AND key = ?
	`
	file := &models.File{}
	var modifiedBy sql.NullString
	err := r.db.QueryRowContext(ctx, query, projectID, keycodec.Encode(name)).Scan(
		&file.Name, &file.Content, &file.Type, &file.LastModified, &modifiedBy,
	)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	file.ModifiedBy = modifiedBy.String
	return file, nil
}

func (r *sqliteFileRepo) Delete(ctx context.Context, projectID, name string) error {
	// Deleting a missing file is a no-op, not an error.
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM files WHERE project_id = ? AND key = ?",
		projectID, keycodec.Encode(name),
	)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func (r *sqliteFileRepo) ListAll(ctx context.Context, projectID string) (map[string]*models.File, error) {
	query := `
		SELECT name, content, file_type, last_modified, modified_by
		FROM files WHERE project_id = ?
	`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	snapshot := make(map[string]*models.File)
	for rows.Next() {
		file := &models.File{}
		var modifiedBy sql.NullString
		err := rows.Scan(&file.Name, &file.Content, &file.Type, &file.LastModified, &modifiedBy)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		file.ModifiedBy = modifiedBy.String
		snapshot[file.Name] = file
	}
	return snapshot, rows.Err()
}
