package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/filedrop/filedrop-server/internal/domain"
	"github.com/filedrop/filedrop-server/internal/id"
	"github.com/filedrop/filedrop-server/internal/store"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `id, name, description, auto_generated, usage_count, created_at, updated_at`

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a domain.Tag.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag

	var (
		autoGenerated int
		createdAt     string
		updatedAt     string
	)

	err := scanner.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&autoGenerated,
		&t.UsageCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.AutoGenerated = autoGenerated != 0

	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// CreateTag inserts a new tag into the database.
// Returns store.ErrAlreadyExists on duplicate name.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, description, auto_generated, usage_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.Name,
		t.Description,
		boolToInt(t.AutoGenerated),
		t.UsageCount,
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetTagByID retrieves a tag by its ID.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTagByID(ctx context.Context, tagID string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ?`, tagID)

	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTagByName retrieves a tag by its normalized name.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTagByName(ctx context.Context, name string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE name = ?`, name)

	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTags returns tags matching the filter, most used first.
func (s *Store) ListTags(ctx context.Context, filter store.TagFilter) ([]*domain.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags`
	var conds []string
	var args []any

	if filter.AutoGenerated != nil {
		conds = append(conds, `auto_generated = ?`)
		args = append(args, boolToInt(*filter.AutoGenerated))
	}
	if filter.Search != "" {
		conds = append(conds, `name LIKE ?`)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY usage_count DESC, name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tags, nil
}

// UpdateTag persists changes to a tag's name and description.
// auto_generated is immutable through this path; usage_count is owned by the
// association operations. Returns store.ErrAlreadyExists when the new name
// collides with another tag.
func (s *Store) UpdateTag(ctx context.Context, t *domain.Tag) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tags SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		t.Name,
		t.Description,
		formatTime(time.Now()),
		t.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
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

// FindOrCreateTag normalizes the name, then finds the existing tag or creates
// a new one. Returns (tag, created, error) where created is true if a new tag
// was made. The UNIQUE constraint on tags.name guarantees at most one row per
// name even under concurrent calls; a lost race falls back to re-fetching.
func (s *Store) FindOrCreateTag(ctx context.Context, name, description string, autoGenerated bool) (*domain.Tag, bool, error) {
	// Canonical form is enforced here, not trusted from callers.
	name = domain.NormalizeTagName(name)
	if name == "" {
		return nil, false, fmt.Errorf("tag name is empty after normalization")
	}

	// Try to find existing tag first.
	existing, err := s.GetTagByName(ctx, name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	// Tag doesn't exist, create it.
	tagID, err := id.Generate("tag")
	if err != nil {
		return nil, false, fmt.Errorf("generate tag id: %w", err)
	}

	now := time.Now().UTC()
	t := &domain.Tag{
		ID:            tagID,
		Name:          name,
		Description:   description,
		AutoGenerated: autoGenerated,
		UsageCount:    0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.CreateTag(ctx, t); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Race condition: another goroutine created it first.
			// Its description and auto_generated flag win.
			existing, err := s.GetTagByName(ctx, name)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	return t, true, nil
}

// AddTagToFile links a tag to a file. Idempotent.
// The association insert and the usage count increment happen in the same
// transaction; a duplicate link leaves the count untouched.
func (s *Store) AddTagToFile(ctx context.Context, fileID, tagID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM file_tags WHERE file_id = ? AND tag_id = ?`,
		fileID, tagID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	if exists > 0 {
		// Already linked, idempotent success.
		return false, nil
	}

	now := formatTime(time.Now())
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO file_tags (file_id, tag_id, created_at) VALUES (?, ?, ?)`,
		fileID, tagID, now,
	); err != nil {
		return false, fmt.Errorf("insert file_tag: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE tags SET usage_count = usage_count + 1, updated_at = ? WHERE id = ?`,
		now, tagID,
	); err != nil {
		return false, fmt.Errorf("increment usage_count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// RemoveTagFromFile unlinks a tag from a file. Idempotent.
// Decrements the tag's usage count within the same transaction, clamped at
// zero; hitting the clamp indicates a bookkeeping bug and is logged.
func (s *Store) RemoveTagFromFile(ctx context.Context, fileID, tagID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM file_tags WHERE file_id = ? AND tag_id = ?`, fileID, tagID)
	if err != nil {
		return false, fmt.Errorf("delete file_tag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		// Not linked, idempotent success.
		return false, nil
	}

	if err := s.decrementUsageInTx(ctx, tx, tagID); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// decrementUsageInTx decrements a tag's usage count within an open
// transaction, clamping at zero.
func (s *Store) decrementUsageInTx(ctx context.Context, tx *sql.Tx, tagID string) error {
	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT usage_count FROM tags WHERE id = ?`, tagID,
	).Scan(&count); err != nil {
		return fmt.Errorf("read usage_count: %w", err)
	}

	if count <= 0 {
		// Invariant violation: association existed but the count is already
		// zero. Clamp instead of going negative.
		s.logger.Error("tag usage_count underflow, clamping at zero",
			"tag_id", tagID, "usage_count", count)
		count = 1
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE tags SET usage_count = ?, updated_at = ? WHERE id = ?`,
		count-1, formatTime(time.Now()), tagID,
	); err != nil {
		return fmt.Errorf("decrement usage_count: %w", err)
	}
	return nil
}

// GetTagsForFile returns all tags linked to a file, ordered by name.
func (s *Store) GetTagsForFile(ctx context.Context, fileID string) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixColumns("t", tagColumns)+`
		FROM tags t
		JOIN file_tags ft ON ft.tag_id = t.id
		WHERE ft.file_id = ?
		ORDER BY t.name ASC`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// DeleteTag removes a tag and strips it from every file holding it.
// Associations are discarded without decrementing: the tag is leaving
// existence, not losing one reference.
func (s *Store) DeleteTag(ctx context.Context, tagID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM file_tags WHERE tag_id = ?`, tagID); err != nil {
		return fmt.Errorf("delete file_tags: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, tagID)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// boolToInt converts a bool for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}
