// Package service orchestrates the file intake pipeline and tag lifecycle
// on top of the store and storage layers.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/filedrop/filedrop-server/internal/audioinfo"
	"github.com/filedrop/filedrop-server/internal/classify"
	"github.com/filedrop/filedrop-server/internal/domain"
	domainerrors "github.com/filedrop/filedrop-server/internal/errors"
	"github.com/filedrop/filedrop-server/internal/id"
	"github.com/filedrop/filedrop-server/internal/imagemeta"
	"github.com/filedrop/filedrop-server/internal/storage"
	"github.com/filedrop/filedrop-server/internal/store"
	"github.com/filedrop/filedrop-server/internal/tagging"
)

// metadata keys written by upload enrichment.
const (
	metadataImageKey = "image"
	metadataAudioKey = "audio"
)

// FileService orchestrates uploads: classification, disk placement, record
// creation, and auto-tagging.
type FileService struct {
	store      store.Store
	storage    *storage.Storage
	classifier *classify.Classifier
	generator  *tagging.Generator
	tags       *TagService

	autoTag bool
	logger  *slog.Logger
}

// NewFileService creates a new file service.
func NewFileService(
	st store.Store,
	stg *storage.Storage,
	classifier *classify.Classifier,
	generator *tagging.Generator,
	tags *TagService,
	autoTag bool,
	logger *slog.Logger,
) *FileService {
	return &FileService{
		store:      st,
		storage:    stg,
		classifier: classifier,
		generator:  generator,
		tags:       tags,
		autoTag:    autoTag,
		logger:     logger,
	}
}

// UploadInput carries everything needed to ingest one file.
type UploadInput struct {
	Reader       io.Reader
	OriginalName string
	ContentType  string
	Metadata     map[string]any
	ExternalID   string
	ProjectID    string
	UploaderID   string
}

// UploadResult is the ingested record plus the tags attached to it.
type UploadResult struct {
	File *domain.File
	Tags []*domain.Tag
}

// Upload runs the intake pipeline: classify, write to disk, create the
// record, then auto-tag. Auto-tagging is best effort; a failure there never
// fails the upload.
func (s *FileService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if in.OriginalName == "" {
		return nil, domainerrors.Validation("original filename is required")
	}

	category := s.classifier.Classify(in.OriginalName, in.ContentType)

	saved, err := s.storage.Save(ctx, in.Reader, in.OriginalName)
	if err != nil {
		return nil, domainerrors.Internal("save file to storage").WithCause(err)
	}

	fileID, err := id.Generate("file")
	if err != nil {
		s.cleanupStored(saved.Path)
		return nil, fmt.Errorf("generate file id: %w", err)
	}

	file := &domain.File{
		ID:           fileID,
		OriginalName: in.OriginalName,
		StoredName:   saved.StoredName,
		Path:         saved.Path,
		Category:     category,
		Size:         saved.Size,
		ContentType:  in.ContentType,
		Metadata:     in.Metadata,
		ExternalID:   in.ExternalID,
		ProjectID:    in.ProjectID,
		UploaderID:   in.UploaderID,
	}
	file.Touch()
	file.CreatedAt = file.UpdatedAt

	switch category {
	case domain.CategoryImages:
		s.enrichImage(file)
	case domain.CategoryAudio:
		s.enrichAudio(ctx, file)
	}

	if err := s.store.CreateFile(ctx, file); err != nil {
		s.cleanupStored(saved.Path)
		return nil, fmt.Errorf("create file record: %w", err)
	}

	result := &UploadResult{File: file, Tags: []*domain.Tag{}}

	if s.autoTag {
		tags, err := s.autoTagFile(ctx, file)
		if err != nil {
			s.logger.Warn("auto-tagging failed, file stored untagged",
				"file_id", file.ID, "error", err)
		} else {
			result.Tags = tags
		}
	}

	s.logger.Info("file uploaded",
		"file_id", file.ID,
		"original_filename", file.OriginalName,
		"category", file.Category,
		"size", file.Size,
		"tags", len(result.Tags))

	return result, nil
}

// enrichImage attaches dimensions, format, and a blurhash placeholder to an
// image file's metadata. Best effort: a decode failure leaves the metadata
// untouched.
func (s *FileService) enrichImage(file *domain.File) {
	rc, err := s.storage.Open(file.Path)
	if err != nil {
		s.logger.Warn("open image for enrichment", "file_id", file.ID, "error", err)
		return
	}
	defer rc.Close()

	meta, err := imagemeta.Extract(rc)
	if err != nil {
		s.logger.Debug("image metadata extraction failed",
			"file_id", file.ID, "error", err)
		return
	}

	if file.Metadata == nil {
		file.Metadata = make(map[string]any)
	}
	file.Metadata[metadataImageKey] = meta
}

// enrichAudio attaches the embedded tag fields of an audio file to its
// metadata. Best effort: unparseable audio leaves the metadata untouched.
func (s *FileService) enrichAudio(ctx context.Context, file *domain.File) {
	fullPath := filepath.Join(s.storage.BasePath(), file.Path)

	meta, err := audioinfo.Extract(ctx, fullPath)
	if err != nil {
		s.logger.Debug("audio metadata extraction failed",
			"file_id", file.ID, "error", err)
		return
	}

	if file.Metadata == nil {
		file.Metadata = make(map[string]any)
	}
	file.Metadata[metadataAudioKey] = meta
}

// autoTagFile generates candidate names for a file and attaches each one,
// creating tags as needed.
func (s *FileService) autoTagFile(ctx context.Context, file *domain.File) ([]*domain.Tag, error) {
	names := s.generator.Generate(ctx, file)

	tags := make([]*domain.Tag, 0, len(names))
	for _, name := range names {
		tag, err := s.tags.attachByName(ctx, file.ID, name, true)
		if err != nil {
			return tags, fmt.Errorf("attach tag %q: %w", name, err)
		}
		if tag != nil {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

// cleanupStored removes an orphaned file from disk after a failed upload.
func (s *FileService) cleanupStored(relPath string) {
	if err := s.storage.Remove(relPath); err != nil {
		s.logger.Error("cleanup stored file after failed upload",
			"path", relPath, "error", err)
	}
}

// Get returns a file record with its tags.
func (s *FileService) Get(ctx context.Context, fileID string) (*domain.File, []*domain.Tag, error) {
	file, err := s.store.GetFileByID(ctx, fileID)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, nil, domainerrors.NotFoundf("file %s not found", fileID)
		}
		return nil, nil, err
	}

	tags, err := s.store.GetTagsForFile(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	return file, tags, nil
}

// List returns file records matching the filter.
func (s *FileService) List(ctx context.Context, filter store.FileFilter) ([]*domain.File, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, domainerrors.Validationf("unknown category %q", filter.Category)
	}
	for i, name := range filter.TagNames {
		filter.TagNames[i] = domain.NormalizeTagName(name)
	}
	return s.store.ListFiles(ctx, filter)
}

// FileUpdate holds the mutable file fields. Nil fields are left unchanged;
// Metadata entries are merged over the existing map so enrichment keys
// survive a partial update.
type FileUpdate struct {
	Metadata   map[string]any
	ExternalID *string
	ProjectID  *string
	UploaderID *string
}

// Update applies a partial update to a file's metadata and ownership fields.
func (s *FileService) Update(ctx context.Context, fileID string, upd FileUpdate) (*domain.File, error) {
	file, err := s.store.GetFileByID(ctx, fileID)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("file %s not found", fileID)
		}
		return nil, err
	}

	if upd.Metadata != nil {
		if file.Metadata == nil {
			file.Metadata = make(map[string]any, len(upd.Metadata))
		}
		for k, v := range upd.Metadata {
			file.Metadata[k] = v
		}
	}
	if upd.ExternalID != nil {
		file.ExternalID = *upd.ExternalID
	}
	if upd.ProjectID != nil {
		file.ProjectID = *upd.ProjectID
	}
	if upd.UploaderID != nil {
		file.UploaderID = *upd.UploaderID
	}

	file.Touch()
	if err := s.store.UpdateFile(ctx, file); err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("file %s not found", fileID)
		}
		return nil, err
	}
	return file, nil
}

// OpenContent returns the file record and a reader over its stored bytes.
// The caller owns closing the reader.
func (s *FileService) OpenContent(ctx context.Context, fileID string) (*domain.File, io.ReadCloser, error) {
	file, err := s.store.GetFileByID(ctx, fileID)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, nil, domainerrors.NotFoundf("file %s not found", fileID)
		}
		return nil, nil, err
	}

	rc, err := s.storage.Open(file.Path)
	if err != nil {
		return nil, nil, domainerrors.Internal("open stored file").WithCause(err)
	}
	return file, rc, nil
}

// DeleteResult reports which halves of a delete succeeded. The record always
// goes first so a stray disk file can never resurrect a deleted record.
type DeleteResult struct {
	RecordDeleted  bool
	StorageDeleted bool
	DetachedTags   int
}

// Delete removes a file's record, its tag associations (decrementing each
// tag's usage count), and its bytes on disk. A disk failure after the record
// is gone is reported, not rolled back.
func (s *FileService) Delete(ctx context.Context, fileID string) (*DeleteResult, error) {
	file, err := s.store.GetFileByID(ctx, fileID)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("file %s not found", fileID)
		}
		return nil, err
	}

	deleted, err := s.store.DeleteFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("delete file record: %w", err)
	}

	result := &DeleteResult{
		RecordDeleted: true,
		DetachedTags:  len(deleted.DetachedTagIDs),
	}

	if err := s.storage.Remove(file.Path); err != nil {
		s.logger.Error("remove stored file", "file_id", fileID, "path", file.Path, "error", err)
	} else {
		result.StorageDeleted = true
	}

	s.logger.Info("file deleted",
		"file_id", fileID,
		"storage_deleted", result.StorageDeleted,
		"detached_tags", result.DetachedTags)

	return result, nil
}

// AttachTags attaches the named tags to a file, creating missing tags as
// manual ones. Returns the tags that were newly linked; names already linked
// are skipped silently.
func (s *FileService) AttachTags(ctx context.Context, fileID string, names []string) ([]*domain.Tag, error) {
	if _, err := s.store.GetFileByID(ctx, fileID); err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("file %s not found", fileID)
		}
		return nil, err
	}

	added := []*domain.Tag{}
	for _, raw := range names {
		name := domain.NormalizeTagName(raw)
		if name == "" {
			return nil, domainerrors.Validation("tag name is empty after normalization")
		}
		tag, err := s.tags.attachByName(ctx, fileID, name, false)
		if err != nil {
			return nil, err
		}
		if tag != nil {
			added = append(added, tag)
		}
	}
	return added, nil
}

// DetachTag unlinks a named tag from a file and decrements its usage count.
// Unknown tag names are an error; a known tag that simply isn't linked to
// this file is a no-op.
func (s *FileService) DetachTag(ctx context.Context, fileID, rawName string) error {
	name := domain.NormalizeTagName(rawName)
	if name == "" {
		return domainerrors.Validation("tag name is empty after normalization")
	}

	if _, err := s.store.GetFileByID(ctx, fileID); err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFoundf("file %s not found", fileID)
		}
		return err
	}

	tag, err := s.store.GetTagByName(ctx, name)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFoundf("tag %q not found", name)
		}
		return err
	}

	removed, err := s.store.RemoveTagFromFile(ctx, fileID, tag.ID)
	if err != nil {
		return err
	}
	if !removed {
		s.logger.Debug("detach of unlinked tag ignored", "file_id", fileID, "tag", name)
	}
	return nil
}
