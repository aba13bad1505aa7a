package service

import (
	"context"
	"log/slog"

	"github.com/filedrop/filedrop-server/internal/domain"
	domainerrors "github.com/filedrop/filedrop-server/internal/errors"
	"github.com/filedrop/filedrop-server/internal/store"
)

// TagService manages the global tag registry. Tags are shared across all
// files; usage counts are maintained by the store's association operations.
type TagService struct {
	store  store.Store
	logger *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(st store.Store, logger *slog.Logger) *TagService {
	return &TagService{
		store:  st,
		logger: logger,
	}
}

// ListTags returns tags matching the filter, most used first.
func (s *TagService) ListTags(ctx context.Context, filter store.TagFilter) ([]*domain.Tag, error) {
	return s.store.ListTags(ctx, filter)
}

// GetTag returns a tag by ID.
func (s *TagService) GetTag(ctx context.Context, tagID string) (*domain.Tag, error) {
	tag, err := s.store.GetTagByID(ctx, tagID)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("tag %s not found", tagID)
		}
		return nil, err
	}
	return tag, nil
}

// GetTagByName returns a tag by its normalized name.
func (s *TagService) GetTagByName(ctx context.Context, rawName string) (*domain.Tag, error) {
	name := domain.NormalizeTagName(rawName)
	if name == "" {
		return nil, domainerrors.Validation("tag name is empty after normalization")
	}
	tag, err := s.store.GetTagByName(ctx, name)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("tag %q not found", name)
		}
		return nil, err
	}
	return tag, nil
}

// CreateTag creates a manual tag. Requesting a name that already exists
// returns the existing tag; the stored description is not overwritten.
func (s *TagService) CreateTag(ctx context.Context, rawName, description string) (*domain.Tag, bool, error) {
	name := domain.NormalizeTagName(rawName)
	if name == "" {
		return nil, false, domainerrors.Validation("tag name is empty after normalization")
	}

	tag, created, err := s.store.FindOrCreateTag(ctx, name, description, false)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Info("tag created", "tag_id", tag.ID, "name", tag.Name)
	}
	return tag, created, nil
}

// TagUpdate holds the mutable tag fields. Nil fields are left unchanged.
type TagUpdate struct {
	Name        *string
	Description *string
}

// UpdateTag changes a tag's name or description. The auto_generated flag is
// immutable once set. Renaming onto an existing tag's name is rejected with
// a conflict error.
func (s *TagService) UpdateTag(ctx context.Context, tagID string, upd TagUpdate) (*domain.Tag, error) {
	tag, err := s.GetTag(ctx, tagID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		name := domain.NormalizeTagName(*upd.Name)
		if name == "" {
			return nil, domainerrors.Validation("tag name is empty after normalization")
		}
		if name != tag.Name {
			if _, err := s.store.GetTagByName(ctx, name); err == nil {
				return nil, domainerrors.Conflict("a tag with name " + name + " already exists")
			} else if !domainerrors.Is(err, store.ErrNotFound) {
				return nil, err
			}
			tag.Name = name
		}
	}
	if upd.Description != nil {
		tag.Description = *upd.Description
	}

	tag.Touch()
	if err := s.store.UpdateTag(ctx, tag); err != nil {
		switch {
		case domainerrors.Is(err, store.ErrNotFound):
			return nil, domainerrors.NotFoundf("tag %s not found", tagID)
		case domainerrors.Is(err, store.ErrAlreadyExists):
			return nil, domainerrors.Conflict("a tag with name " + tag.Name + " already exists")
		}
		return nil, err
	}
	return tag, nil
}

// DeleteTag removes a tag entirely, stripping it from every file.
func (s *TagService) DeleteTag(ctx context.Context, tagID string) error {
	if err := s.store.DeleteTag(ctx, tagID); err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFoundf("tag %s not found", tagID)
		}
		return err
	}
	s.logger.Info("tag deleted", "tag_id", tagID)
	return nil
}

// GetFilesForTag returns every file carrying the tag.
func (s *TagService) GetFilesForTag(ctx context.Context, tagID string) ([]*domain.File, error) {
	if _, err := s.GetTag(ctx, tagID); err != nil {
		return nil, err
	}
	return s.store.GetFilesForTag(ctx, tagID)
}

// attachByName resolves a normalized name to a tag (creating it if needed)
// and links it to the file. Returns the freshly fetched tag when a new link
// was made, nil when the link already existed.
func (s *TagService) attachByName(ctx context.Context, fileID, name string, autoGenerated bool) (*domain.Tag, error) {
	tag, _, err := s.store.FindOrCreateTag(ctx, name, "", autoGenerated)
	if err != nil {
		return nil, err
	}

	added, err := s.store.AddTagToFile(ctx, fileID, tag.ID)
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, nil
	}

	// Re-fetch for the updated usage count.
	return s.store.GetTagByID(ctx, tag.ID)
}
