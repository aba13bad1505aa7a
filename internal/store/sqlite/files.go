package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/filedrop/filedrop-server/internal/domain"
	"github.com/filedrop/filedrop-server/internal/store"
)

const fileColumns = `id, original_filename, stored_filename, file_path, file_type, file_size, content_type, metadata, external_id, project_id, uploader_id, created_at, updated_at`

// scanFile scans a row into a domain.File, decoding the metadata JSON blob.
func scanFile(scanner interface{ Scan(dest ...any) error }) (*domain.File, error) {
	var f domain.File

	var (
		category  string
		metadata  sql.NullString
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&f.ID,
		&f.OriginalName,
		&f.StoredName,
		&f.Path,
		&category,
		&f.Size,
		&f.ContentType,
		&metadata,
		&f.ExternalID,
		&f.ProjectID,
		&f.UploaderID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.Category = domain.Category(category)

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &f.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for file %s: %w", f.ID, err)
		}
	}

	f.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	f.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &f, nil
}

// CreateFile inserts a new file record.
// Returns store.ErrAlreadyExists on a duplicate id or stored filename.
func (s *Store) CreateFile(ctx context.Context, f *domain.File) error {
	var metadata any
	if f.Metadata != nil {
		encoded, err := json.Marshal(f.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		metadata = string(encoded)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (`+fileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID,
		f.OriginalName,
		f.StoredName,
		f.Path,
		f.Category.String(),
		f.Size,
		f.ContentType,
		metadata,
		f.ExternalID,
		f.ProjectID,
		f.UploaderID,
		formatTime(f.CreatedAt),
		formatTime(f.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetFileByID retrieves a file record by its ID.
// Returns store.ErrNotFound if the file does not exist.
func (s *Store) GetFileByID(ctx context.Context, fileID string) (*domain.File, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = ?`, fileID)

	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ListFiles returns file records matching the filter, newest first.
// Tag name filters require a file to carry every named tag.
func (s *Store) ListFiles(ctx context.Context, filter store.FileFilter) ([]*domain.File, error) {
	query := `SELECT ` + prefixColumns("f", fileColumns) + ` FROM files f`
	var conds []string
	var args []any

	if len(filter.TagNames) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(filter.TagNames)), ", ")
		query += `
		JOIN file_tags ft ON ft.file_id = f.id
		JOIN tags t ON t.id = ft.tag_id AND t.name IN (` + placeholders + `)`
		for _, name := range filter.TagNames {
			args = append(args, name)
		}
	}
	if filter.Category != "" {
		conds = append(conds, `f.file_type = ?`)
		args = append(args, filter.Category.String())
	}
	if filter.ProjectID != "" {
		conds = append(conds, `f.project_id = ?`)
		args = append(args, filter.ProjectID)
	}
	if filter.UploaderID != "" {
		conds = append(conds, `f.uploader_id = ?`)
		args = append(args, filter.UploaderID)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	if len(filter.TagNames) > 0 {
		// Keep only files that matched every requested tag.
		query += fmt.Sprintf(` GROUP BY f.id HAVING COUNT(DISTINCT t.id) = %d`, len(filter.TagNames))
	}
	query += ` ORDER BY f.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []*domain.File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return files, nil
}

// DeleteFile removes a file record, its tag associations, and decrements the
// usage count of every previously linked tag, all in one transaction.
func (s *Store) DeleteFile(ctx context.Context, fileID string) (*store.DeleteFileResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT tag_id FROM file_tags WHERE file_id = ?`, fileID)
	if err != nil {
		return nil, fmt.Errorf("list file_tags: %w", err)
	}
	var tagIDs []string
	for rows.Next() {
		var tagID string
		if err := rows.Scan(&tagID); err != nil {
			rows.Close()
			return nil, err
		}
		tagIDs = append(tagIDs, tagID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM file_tags WHERE file_id = ?`, fileID); err != nil {
		return nil, fmt.Errorf("delete file_tags: %w", err)
	}

	for _, tagID := range tagIDs {
		if err := s.decrementUsageInTx(ctx, tx, tagID); err != nil {
			return nil, err
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID)
	if err != nil {
		return nil, fmt.Errorf("delete file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &store.DeleteFileResult{DetachedTagIDs: tagIDs}, nil
}

// GetFilesForTag returns every file linked to a tag, newest first.
func (s *Store) GetFilesForTag(ctx context.Context, tagID string) ([]*domain.File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixColumns("f", fileColumns)+`
		FROM files f
		JOIN file_tags ft ON ft.file_id = f.id
		WHERE ft.tag_id = ?
		ORDER BY f.created_at DESC`, tagID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []*domain.File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// UpdateFile persists mutable file record fields.
func (s *Store) UpdateFile(ctx context.Context, f *domain.File) error {
	var metadata any
	if f.Metadata != nil {
		encoded, err := json.Marshal(f.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		metadata = string(encoded)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE files SET metadata = ?, external_id = ?, project_id = ?, uploader_id = ?, updated_at = ?
		WHERE id = ?`,
		metadata,
		f.ExternalID,
		f.ProjectID,
		f.UploaderID,
		formatTime(time.Now()),
		f.ID,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
