package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTag(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Post("/api/v1/tags", map[string]any{
		"name":        "  Vacation ",
		"description": "holiday shots",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var tag TagResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tag))
	assert.Equal(t, "vacation", tag.Name)
	assert.Equal(t, "holiday shots", tag.Description)
	assert.False(t, tag.AutoGenerated)
	assert.Equal(t, 0, tag.UsageCount)

	// Same name returns the existing tag; first description wins.
	resp = ts.api.Post("/api/v1/tags", map[string]any{
		"name":        "VACATION",
		"description": "other",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var again TagResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &again))
	assert.Equal(t, tag.ID, again.ID)
	assert.Equal(t, "holiday shots", again.Description)
}

func TestCreateTag_Invalid(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Post("/api/v1/tags", map[string]any{
		"name": "",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.api.Post("/api/v1/tags", map[string]any{
		"name": "   ",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetTag(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Post("/api/v1/tags", map[string]any{"name": "findme"})
	require.Equal(t, http.StatusOK, resp.Code)
	var created TagResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))

	resp = ts.api.Get("/api/v1/tags/" + created.ID)
	require.Equal(t, http.StatusOK, resp.Code)

	var tag TagResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tag))
	assert.Equal(t, "findme", tag.Name)

	resp = ts.api.Get("/api/v1/tags/tag_missing")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListTags(t *testing.T) {
	ts := newTestServer(t)

	// Auto-generated tags come from an upload, manual from the API.
	ts.uploadTestFile(t, "report.pdf", "application/pdf", "x")
	resp := ts.api.Post("/api/v1/tags", map[string]any{"name": "manual-only"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/tags")
	require.Equal(t, http.StatusOK, resp.Code)

	var list struct {
		Tags []TagResponse `json:"tags"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.NotEmpty(t, list.Tags)

	// Most used first.
	for i := 1; i < len(list.Tags); i++ {
		assert.GreaterOrEqual(t, list.Tags[i-1].UsageCount, list.Tags[i].UsageCount)
	}

	resp = ts.api.Get("/api/v1/tags?auto_generated=false")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list.Tags, 1)
	assert.Equal(t, "manual-only", list.Tags[0].Name)

	resp = ts.api.Get("/api/v1/tags?search=manu")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list.Tags, 1)
	assert.Equal(t, "manual-only", list.Tags[0].Name)
}

func TestUpdateTag(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Post("/api/v1/tags", map[string]any{"name": "editable", "description": "old"})
	require.Equal(t, http.StatusOK, resp.Code)
	var created TagResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))

	resp = ts.api.Patch("/api/v1/tags/"+created.ID, map[string]any{
		"description": "new description",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var updated TagResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
	assert.Equal(t, "new description", updated.Description)
	assert.Equal(t, "editable", updated.Name)

	resp = ts.api.Patch("/api/v1/tags/tag_missing", map[string]any{
		"description": "x",
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestUpdateTag_Rename(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Post("/api/v1/tags", map[string]any{"name": "before"})
	require.Equal(t, http.StatusOK, resp.Code)
	var tag TagResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tag))

	resp = ts.api.Post("/api/v1/tags", map[string]any{"name": "taken"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Patch("/api/v1/tags/"+tag.ID, map[string]any{"name": "After"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var renamed TagResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &renamed))
	assert.Equal(t, "after", renamed.Name)

	resp = ts.api.Patch("/api/v1/tags/"+tag.ID, map[string]any{"name": "taken"})
	assert.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())
}

func TestDeleteTag(t *testing.T) {
	ts := newTestServer(t)

	uploaded := ts.uploadTestFile(t, "x.txt", "text/plain", "x")
	require.NotEmpty(t, uploaded.Tags)
	victim := uploaded.Tags[0]

	resp := ts.api.Delete("/api/v1/tags/" + victim.ID)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	// Tag is gone and no longer on the file.
	resp = ts.api.Get("/api/v1/tags/" + victim.ID)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Get("/api/v1/files/" + uploaded.ID + "/tags")
	require.Equal(t, http.StatusOK, resp.Code)
	var tags struct {
		Tags []TagResponse `json:"tags"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tags))
	for _, tag := range tags.Tags {
		assert.NotEqual(t, victim.ID, tag.ID)
	}

	resp = ts.api.Delete("/api/v1/tags/" + victim.ID)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGetTagFiles(t *testing.T) {
	ts := newTestServer(t)

	uploaded := ts.uploadTestFile(t, "pic.pdf", "application/pdf", "x")
	require.NotEmpty(t, uploaded.Tags)

	resp := ts.api.Get("/api/v1/tags/" + uploaded.Tags[0].ID + "/files")
	require.Equal(t, http.StatusOK, resp.Code)

	var files struct {
		Files []FileResponse `json:"files"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &files))
	require.Len(t, files.Files, 1)
	assert.Equal(t, uploaded.ID, files.Files[0].ID)

	resp = ts.api.Get("/api/v1/tags/tag_missing/files")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
