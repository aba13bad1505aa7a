// Package store defines the persistence interface and shared errors for the
// FileDrop server. The SQLite implementation lives in the sqlite subpackage.
package store

import (
	"context"
	"errors"

	"github.com/filedrop/filedrop-server/internal/domain"
)

// Store errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// FileFilter narrows ListFiles results. Zero values mean "no filter".
type FileFilter struct {
	Category   domain.Category
	TagNames   []string // Files must carry every named tag
	ProjectID  string
	UploaderID string
}

// TagFilter narrows ListTags results.
type TagFilter struct {
	// AutoGenerated filters on the auto_generated flag when non-nil.
	AutoGenerated *bool
	// Search matches a case-insensitive substring of the tag name.
	Search string
}

// DeleteFileResult reports which tags lost a reference when a file record
// was removed.
type DeleteFileResult struct {
	// DetachedTagIDs are the tags whose usage counts were decremented.
	DetachedTagIDs []string
}

// Store is the persistence boundary consumed by the service layer.
//
// Implementations must keep the tag-usage invariant: at any quiescent point a
// tag's usage_count equals the number of file associations referencing it.
// Every link/unlink pairs with its counter update inside one transaction.
type Store interface {
	// Files.
	CreateFile(ctx context.Context, f *domain.File) error
	GetFileByID(ctx context.Context, fileID string) (*domain.File, error)
	ListFiles(ctx context.Context, filter FileFilter) ([]*domain.File, error)
	// UpdateFile persists metadata and ownership fields of an existing record.
	UpdateFile(ctx context.Context, f *domain.File) error
	// DeleteFile removes the file record and its tag associations,
	// decrementing usage_count for every previously linked tag.
	DeleteFile(ctx context.Context, fileID string) (*DeleteFileResult, error)

	// Tags.
	CreateTag(ctx context.Context, t *domain.Tag) error
	GetTagByID(ctx context.Context, tagID string) (*domain.Tag, error)
	GetTagByName(ctx context.Context, name string) (*domain.Tag, error)
	ListTags(ctx context.Context, filter TagFilter) ([]*domain.Tag, error)
	UpdateTag(ctx context.Context, t *domain.Tag) error
	// FindOrCreateTag resolves a normalized name to a tag, creating it if
	// absent. Safe under concurrent calls for the same name: at most one
	// row per name ever exists. Returns created=true for a new tag.
	// Description and autoGenerated apply only on creation (first writer wins).
	FindOrCreateTag(ctx context.Context, name, description string, autoGenerated bool) (t *domain.Tag, created bool, err error)
	// DeleteTag unlinks the tag from every file without decrementing (the
	// tag is leaving existence) and deletes the tag record.
	DeleteTag(ctx context.Context, tagID string) error

	// Associations.
	// AddTagToFile links a tag and increments its usage count in one
	// transaction. Idempotent: linking an existing association reports
	// added=false and leaves the count unchanged.
	AddTagToFile(ctx context.Context, fileID, tagID string) (added bool, err error)
	// RemoveTagFromFile unlinks a tag and decrements its usage count in one
	// transaction. Removing a missing association reports removed=false.
	RemoveTagFromFile(ctx context.Context, fileID, tagID string) (removed bool, err error)
	GetTagsForFile(ctx context.Context, fileID string) ([]*domain.Tag, error)
	GetFilesForTag(ctx context.Context, tagID string) ([]*domain.File, error)

	Close() error
}
