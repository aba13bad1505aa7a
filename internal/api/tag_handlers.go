package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/filedrop/filedrop-server/internal/domain"
	domainerrors "github.com/filedrop/filedrop-server/internal/errors"
	"github.com/filedrop/filedrop-server/internal/service"
	"github.com/filedrop/filedrop-server/internal/store"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns all tags ordered by usage",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "createTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags",
		Summary:     "Create tag",
		Description: "Creates a manual tag; an existing name returns the existing tag",
		Tags:        []string{"Tags"},
	}, s.handleCreateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Get tag",
		Description: "Returns a tag by ID",
		Tags:        []string{"Tags"},
	}, s.handleGetTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTag",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Update tag",
		Description: "Updates a tag's name or description",
		Tags:        []string{"Tags"},
	}, s.handleUpdateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteTag",
		Method:      http.MethodDelete,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Delete tag",
		Description: "Deletes a tag and removes it from every file",
		Tags:        []string{"Tags"},
	}, s.handleDeleteTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTagFiles",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}/files",
		Summary:     "Get tag files",
		Description: "Returns the files carrying this tag",
		Tags:        []string{"Tags"},
	}, s.handleGetTagFiles)
}

// === DTOs ===

// TagResponse contains tag data in API responses.
type TagResponse struct {
	ID            string    `json:"id" doc:"Tag ID"`
	Name          string    `json:"name" doc:"Normalized tag name"`
	Description   string    `json:"description,omitempty" doc:"Free-form description"`
	AutoGenerated bool      `json:"auto_generated" doc:"Whether the tag was created by auto-tagging"`
	UsageCount    int       `json:"usage_count" doc:"Number of files carrying this tag"`
	CreatedAt     time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt     time.Time `json:"updated_at" doc:"Last update time"`
}

func toTagResponse(t *domain.Tag) TagResponse {
	return TagResponse{
		ID:            t.ID,
		Name:          t.Name,
		Description:   t.Description,
		AutoGenerated: t.AutoGenerated,
		UsageCount:    t.UsageCount,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func toTagResponses(tags []*domain.Tag) []TagResponse {
	out := make([]TagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, toTagResponse(t))
	}
	return out
}

// ListTagsInput contains query filters for listing tags.
type ListTagsInput struct {
	AutoGenerated string `query:"auto_generated" doc:"Filter by origin: true for auto-generated, false for manual"`
	Search        string `query:"search" doc:"Case-insensitive substring match on the name"`
}

// ListTagsOutput wraps the tag list for Huma.
type ListTagsOutput struct {
	Body struct {
		Tags []TagResponse `json:"tags" doc:"Matching tags, most used first"`
	}
}

// CreateTagRequest is the request body for creating a tag.
type CreateTagRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100" doc:"Tag name"`
	Description string `json:"description,omitempty" validate:"omitempty,max=500" doc:"Free-form description"`
}

// CreateTagInput wraps the create tag request for Huma.
type CreateTagInput struct {
	Body CreateTagRequest
}

// TagOutput wraps a single tag response for Huma.
type TagOutput struct {
	Body TagResponse
}

// GetTagInput contains parameters for getting a tag.
type GetTagInput struct {
	ID string `path:"id" doc:"Tag ID"`
}

// UpdateTagRequest is the request body for updating a tag. Omitted fields
// are left unchanged.
type UpdateTagRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100" doc:"New tag name"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500" doc:"New description"`
}

// UpdateTagInput wraps the update tag request for Huma.
type UpdateTagInput struct {
	ID   string `path:"id" doc:"Tag ID"`
	Body UpdateTagRequest
}

// TagFilesOutput wraps a tag's file list for Huma.
type TagFilesOutput struct {
	Body struct {
		Files []FileResponse `json:"files" doc:"Files carrying the tag, newest first"`
	}
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, input *ListTagsInput) (*ListTagsOutput, error) {
	filter := store.TagFilter{Search: input.Search}
	switch input.AutoGenerated {
	case "true":
		yes := true
		filter.AutoGenerated = &yes
	case "false":
		no := false
		filter.AutoGenerated = &no
	}

	tags, err := s.services.Tag.ListTags(ctx, filter)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list tags", err)
	}

	out := &ListTagsOutput{}
	out.Body.Tags = toTagResponses(tags)
	return out, nil
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*TagOutput, error) {
	if err := s.validate.Validate(input.Body); err != nil {
		return nil, huma.Error400BadRequest("invalid request", err)
	}

	tag, _, err := s.services.Tag.CreateTag(ctx, input.Body.Name, input.Body.Description)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrValidation) {
			return nil, huma.Error400BadRequest("invalid tag name", err)
		}
		return nil, huma.Error500InternalServerError("failed to create tag", err)
	}

	return &TagOutput{Body: toTagResponse(tag)}, nil
}

func (s *Server) handleGetTag(ctx context.Context, input *GetTagInput) (*TagOutput, error) {
	tag, err := s.services.Tag.GetTag(ctx, input.ID)
	if err != nil {
		return nil, huma.Error404NotFound("tag not found", err)
	}
	return &TagOutput{Body: toTagResponse(tag)}, nil
}

func (s *Server) handleUpdateTag(ctx context.Context, input *UpdateTagInput) (*TagOutput, error) {
	if err := s.validate.Validate(input.Body); err != nil {
		return nil, huma.Error400BadRequest("invalid request", err)
	}

	tag, err := s.services.Tag.UpdateTag(ctx, input.ID, service.TagUpdate{
		Name:        input.Body.Name,
		Description: input.Body.Description,
	})
	if err != nil {
		switch {
		case domainerrors.Is(err, domainerrors.ErrNotFound):
			return nil, huma.Error404NotFound("tag not found", err)
		case domainerrors.Is(err, domainerrors.ErrConflict):
			return nil, huma.Error409Conflict("tag name already in use", err)
		case domainerrors.Is(err, domainerrors.ErrValidation):
			return nil, huma.Error400BadRequest("invalid tag name", err)
		}
		return nil, huma.Error500InternalServerError("failed to update tag", err)
	}
	return &TagOutput{Body: toTagResponse(tag)}, nil
}

func (s *Server) handleDeleteTag(ctx context.Context, input *GetTagInput) (*struct{}, error) {
	if err := s.services.Tag.DeleteTag(ctx, input.ID); err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, huma.Error404NotFound("tag not found", err)
		}
		return nil, huma.Error500InternalServerError("failed to delete tag", err)
	}
	return &struct{}{}, nil
}

func (s *Server) handleGetTagFiles(ctx context.Context, input *GetTagInput) (*TagFilesOutput, error) {
	files, err := s.services.Tag.GetFilesForTag(ctx, input.ID)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, huma.Error404NotFound("tag not found", err)
		}
		return nil, huma.Error500InternalServerError("failed to list tag files", err)
	}

	out := &TagFilesOutput{}
	out.Body.Files = make([]FileResponse, 0, len(files))
	for _, f := range files {
		out.Body.Files = append(out.Body.Files, toFileResponse(f))
	}
	return out, nil
}
