package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/filedrop/filedrop-server/internal/domain"
	domainerrors "github.com/filedrop/filedrop-server/internal/errors"
	"github.com/filedrop/filedrop-server/internal/http/response"
	"github.com/filedrop/filedrop-server/internal/service"
	"github.com/filedrop/filedrop-server/internal/store"
)

func (s *Server) registerFileRoutes() {
	// Multipart upload and raw content download are chi handlers because
	// Huma doesn't easily support multipart forms or streaming bodies.
	s.router.With(s.rateLimitMiddleware(s.uploadLimiter)).
		Post("/api/v1/files", s.handleUploadFile)
	s.router.Get("/api/v1/files/{id}/content", s.handleDownloadFile)

	huma.Register(s.api, huma.Operation{
		OperationID: "listFiles",
		Method:      http.MethodGet,
		Path:        "/api/v1/files",
		Summary:     "List files",
		Description: "Returns file records, newest first, optionally filtered",
		Tags:        []string{"Files"},
	}, s.handleListFiles)

	huma.Register(s.api, huma.Operation{
		OperationID: "getFile",
		Method:      http.MethodGet,
		Path:        "/api/v1/files/{id}",
		Summary:     "Get file",
		Description: "Returns a file record with its tags",
		Tags:        []string{"Files"},
	}, s.handleGetFile)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateFile",
		Method:      http.MethodPatch,
		Path:        "/api/v1/files/{id}",
		Summary:     "Update file",
		Description: "Applies a partial update to a file's metadata and ownership fields",
		Tags:        []string{"Files"},
	}, s.handleUpdateFile)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteFile",
		Method:      http.MethodDelete,
		Path:        "/api/v1/files/{id}",
		Summary:     "Delete file",
		Description: "Removes a file record, its stored bytes, and its tag associations",
		Tags:        []string{"Files"},
	}, s.handleDeleteFile)

	huma.Register(s.api, huma.Operation{
		OperationID: "getFileTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/files/{id}/tags",
		Summary:     "Get file tags",
		Description: "Returns the tags attached to a file",
		Tags:        []string{"Files"},
	}, s.handleGetFileTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "attachTags",
		Method:      http.MethodPost,
		Path:        "/api/v1/files/{id}/tags",
		Summary:     "Attach tags",
		Description: "Attaches named tags to a file, creating missing tags",
		Tags:        []string{"Files"},
	}, s.handleAttachTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "detachTag",
		Method:      http.MethodDelete,
		Path:        "/api/v1/files/{id}/tags/{name}",
		Summary:     "Detach tag",
		Description: "Detaches a named tag from a file",
		Tags:        []string{"Files"},
	}, s.handleDetachTag)
}

// === DTOs ===

// FileResponse contains file record data in API responses.
type FileResponse struct {
	ID           string         `json:"id" doc:"File ID"`
	OriginalName string         `json:"original_filename" doc:"Filename at upload time"`
	StoredName   string         `json:"stored_filename" doc:"On-disk filename"`
	Path         string         `json:"file_path" doc:"Storage path relative to the base directory"`
	Category     string         `json:"file_type" doc:"Storage category"`
	Size         int64          `json:"file_size" doc:"Size in bytes"`
	ContentType  string         `json:"content_type" doc:"MIME type supplied at upload"`
	Metadata     map[string]any `json:"metadata,omitempty" doc:"Client metadata plus enrichment"`
	ExternalID   string         `json:"external_id,omitempty" doc:"Caller-supplied external reference"`
	ProjectID    string         `json:"project_id,omitempty" doc:"Owning project"`
	UploaderID   string         `json:"uploader_id,omitempty" doc:"Uploading user"`
	CreatedAt    time.Time      `json:"created_at" doc:"Creation time"`
	UpdatedAt    time.Time      `json:"updated_at" doc:"Last update time"`
}

func toFileResponse(f *domain.File) FileResponse {
	return FileResponse{
		ID:           f.ID,
		OriginalName: f.OriginalName,
		StoredName:   f.StoredName,
		Path:         f.Path,
		Category:     f.Category.String(),
		Size:         f.Size,
		ContentType:  f.ContentType,
		Metadata:     f.Metadata,
		ExternalID:   f.ExternalID,
		ProjectID:    f.ProjectID,
		UploaderID:   f.UploaderID,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// FileWithTagsResponse pairs a file record with its attached tags.
type FileWithTagsResponse struct {
	FileResponse
	Tags []TagResponse `json:"tags" doc:"Tags attached to this file"`
}

// ListFilesInput contains query filters for listing files.
type ListFilesInput struct {
	Category   string `query:"category" doc:"Filter by storage category"`
	Tags       string `query:"tags" doc:"Comma-separated tag names; files must carry all of them"`
	ProjectID  string `query:"project_id" doc:"Filter by project"`
	UploaderID string `query:"uploader_id" doc:"Filter by uploader"`
}

// ListFilesOutput wraps the file list for Huma.
type ListFilesOutput struct {
	Body struct {
		Files []FileResponse `json:"files" doc:"Matching file records"`
	}
}

// GetFileInput contains parameters for getting a file.
type GetFileInput struct {
	ID string `path:"id" doc:"File ID"`
}

// FileOutput wraps a file-with-tags response for Huma.
type FileOutput struct {
	Body FileWithTagsResponse
}

// UpdateFileRequest is the request body for updating a file. Omitted fields
// are left unchanged; metadata entries are merged over the existing map.
type UpdateFileRequest struct {
	Metadata   map[string]any `json:"metadata,omitempty" doc:"Metadata entries to merge"`
	ExternalID *string        `json:"external_id,omitempty" doc:"New external reference"`
	ProjectID  *string        `json:"project_id,omitempty" doc:"New owning project"`
	UploaderID *string        `json:"uploader_id,omitempty" doc:"New uploading user"`
}

// UpdateFileInput wraps the update file request for Huma.
type UpdateFileInput struct {
	ID   string `path:"id" doc:"File ID"`
	Body UpdateFileRequest
}

// DeleteFileOutput reports which halves of the delete succeeded.
type DeleteFileOutput struct {
	Body struct {
		RecordDeleted  bool `json:"record_deleted" doc:"Database record removed"`
		StorageDeleted bool `json:"storage_deleted" doc:"Bytes removed from disk"`
		DetachedTags   int  `json:"detached_tags" doc:"Tags whose usage count was decremented"`
	}
}

// FileTagsOutput wraps a file's tag list for Huma.
type FileTagsOutput struct {
	Body struct {
		Tags []TagResponse `json:"tags" doc:"Tags attached to the file"`
	}
}

// AttachTagsRequest is the request body for attaching tags.
type AttachTagsRequest struct {
	Tags []string `json:"tags" validate:"required,min=1" doc:"Tag names to attach"`
}

// AttachTagsInput wraps the attach request for Huma.
type AttachTagsInput struct {
	ID   string `path:"id" doc:"File ID"`
	Body AttachTagsRequest
}

// AttachTagsOutput lists the tags that were newly attached alongside the
// file's full tag set after the operation.
type AttachTagsOutput struct {
	Body struct {
		Added   []TagResponse `json:"added" doc:"Tags newly linked by this request"`
		AllTags []TagResponse `json:"all_tags" doc:"Every tag on the file after the attach"`
	}
}

// DetachTagInput contains parameters for detaching a tag.
type DetachTagInput struct {
	ID   string `path:"id" doc:"File ID"`
	Name string `path:"name" doc:"Tag name"`
}

// === Huma handlers ===

func (s *Server) handleListFiles(ctx context.Context, input *ListFilesInput) (*ListFilesOutput, error) {
	filter := store.FileFilter{
		Category:   domain.Category(input.Category),
		ProjectID:  input.ProjectID,
		UploaderID: input.UploaderID,
	}
	if input.Tags != "" {
		for _, name := range strings.Split(input.Tags, ",") {
			if name = strings.TrimSpace(name); name != "" {
				filter.TagNames = append(filter.TagNames, name)
			}
		}
	}

	files, err := s.services.File.List(ctx, filter)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrValidation) {
			return nil, huma.Error400BadRequest("invalid filter", err)
		}
		return nil, huma.Error500InternalServerError("failed to list files", err)
	}

	out := &ListFilesOutput{}
	out.Body.Files = make([]FileResponse, 0, len(files))
	for _, f := range files {
		out.Body.Files = append(out.Body.Files, toFileResponse(f))
	}
	return out, nil
}

func (s *Server) handleGetFile(ctx context.Context, input *GetFileInput) (*FileOutput, error) {
	file, tags, err := s.services.File.Get(ctx, input.ID)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, huma.Error404NotFound("file not found", err)
		}
		return nil, huma.Error500InternalServerError("failed to get file", err)
	}

	return &FileOutput{Body: FileWithTagsResponse{
		FileResponse: toFileResponse(file),
		Tags:         toTagResponses(tags),
	}}, nil
}

func (s *Server) handleUpdateFile(ctx context.Context, input *UpdateFileInput) (*FileOutput, error) {
	file, err := s.services.File.Update(ctx, input.ID, service.FileUpdate{
		Metadata:   input.Body.Metadata,
		ExternalID: input.Body.ExternalID,
		ProjectID:  input.Body.ProjectID,
		UploaderID: input.Body.UploaderID,
	})
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, huma.Error404NotFound("file not found", err)
		}
		return nil, huma.Error500InternalServerError("failed to update file", err)
	}

	_, tags, err := s.services.File.Get(ctx, input.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load file tags", err)
	}

	return &FileOutput{Body: FileWithTagsResponse{
		FileResponse: toFileResponse(file),
		Tags:         toTagResponses(tags),
	}}, nil
}

func (s *Server) handleDeleteFile(ctx context.Context, input *GetFileInput) (*DeleteFileOutput, error) {
	result, err := s.services.File.Delete(ctx, input.ID)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, huma.Error404NotFound("file not found", err)
		}
		return nil, huma.Error500InternalServerError("failed to delete file", err)
	}

	out := &DeleteFileOutput{}
	out.Body.RecordDeleted = result.RecordDeleted
	out.Body.StorageDeleted = result.StorageDeleted
	out.Body.DetachedTags = result.DetachedTags
	return out, nil
}

func (s *Server) handleGetFileTags(ctx context.Context, input *GetFileInput) (*FileTagsOutput, error) {
	_, tags, err := s.services.File.Get(ctx, input.ID)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, huma.Error404NotFound("file not found", err)
		}
		return nil, huma.Error500InternalServerError("failed to get file tags", err)
	}

	out := &FileTagsOutput{}
	out.Body.Tags = toTagResponses(tags)
	return out, nil
}

func (s *Server) handleAttachTags(ctx context.Context, input *AttachTagsInput) (*AttachTagsOutput, error) {
	if err := s.validate.Validate(input.Body); err != nil {
		return nil, huma.Error400BadRequest("invalid request", err)
	}

	added, err := s.services.File.AttachTags(ctx, input.ID, input.Body.Tags)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, huma.Error404NotFound("file not found", err)
		}
		if domainerrors.Is(err, domainerrors.ErrValidation) {
			return nil, huma.Error400BadRequest("invalid tag name", err)
		}
		return nil, huma.Error500InternalServerError("failed to attach tags", err)
	}

	_, all, err := s.services.File.Get(ctx, input.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load file tags", err)
	}

	out := &AttachTagsOutput{}
	out.Body.Added = toTagResponses(added)
	out.Body.AllTags = toTagResponses(all)
	return out, nil
}

func (s *Server) handleDetachTag(ctx context.Context, input *DetachTagInput) (*struct{}, error) {
	err := s.services.File.DetachTag(ctx, input.ID, input.Name)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, huma.Error404NotFound("file or tag not found", err)
		}
		if domainerrors.Is(err, domainerrors.ErrValidation) {
			return nil, huma.Error400BadRequest("invalid tag name", err)
		}
		return nil, huma.Error500InternalServerError("failed to detach tag", err)
	}
	return &struct{}{}, nil
}

// === chi handlers ===

// handleUploadFile handles multipart file uploads.
// POST /api/v1/files
// Content-Type: multipart/form-data with "file" field; optional "metadata"
// (JSON object), "external_id", "project_id", and "uploader_id" fields.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.TooLarge(w, fmt.Sprintf("Upload exceeds the %d byte limit", s.maxUploadBytes), s.logger)
			return
		}
		response.BadRequest(w, "Failed to parse form data", s.logger)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "No file uploaded. Use 'file' field in multipart form", s.logger)
		return
	}
	defer file.Close()

	var metadata map[string]any
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			response.BadRequest(w, "Invalid metadata: must be a JSON object", s.logger)
			return
		}
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	result, err := s.services.File.Upload(ctx, service.UploadInput{
		Reader:       file,
		OriginalName: header.Filename,
		ContentType:  contentType,
		Metadata:     metadata,
		ExternalID:   r.FormValue("external_id"),
		ProjectID:    r.FormValue("project_id"),
		UploaderID:   r.FormValue("uploader_id"),
	})
	if err != nil {
		s.logger.Error("Failed to upload file", "error", err, "filename", header.Filename)
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, FileWithTagsResponse{
		FileResponse: toFileResponse(result.File),
		Tags:         toTagResponses(result.Tags),
	}, s.logger)
}

// handleDownloadFile streams a file's stored bytes.
// GET /api/v1/files/{id}/content
func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fileID := chi.URLParam(r, "id")

	file, rc, err := s.services.File.OpenContent(ctx, fileID)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			response.NotFound(w, "File not found", s.logger)
			return
		}
		s.logger.Error("Failed to open file content", "error", err, "file_id", fileID)
		response.InternalError(w, "Failed to read file", s.logger)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", file.Size))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.OriginalName))

	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error("Failed to stream file content", "error", err, "file_id", fileID)
	}
}
