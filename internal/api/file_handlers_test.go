package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadFile(t *testing.T) {
	ts := newTestServer(t)

	file := ts.uploadTestFile(t, "Quarterly-Report.pdf", "application/pdf", "numbers")

	assert.Equal(t, "Quarterly-Report.pdf", file.OriginalName)
	assert.Equal(t, "documents", file.Category)
	assert.Equal(t, int64(len("numbers")), file.Size)
	assert.NotEmpty(t, file.ID)

	names := make([]string, 0, len(file.Tags))
	for _, tag := range file.Tags {
		names = append(names, tag.Name)
	}
	assert.Contains(t, names, "documents")
	assert.Contains(t, names, "pdf")
}

func TestUploadFile_NoFile(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("project_id", "p1"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadFile_TooLarge(t *testing.T) {
	ts := newTestServer(t)

	// Test server caps uploads at 1 MiB.
	big := strings.Repeat("x", 2<<20)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "big.bin")
	require.NoError(t, err)
	_, err = fw.Write([]byte(big))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUploadFile_InvalidMetadata(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "x.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("metadata", "not json"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetFile(t *testing.T) {
	ts := newTestServer(t)

	uploaded := ts.uploadTestFile(t, "pic.txt", "text/plain", "hello")

	resp := ts.api.Get("/api/v1/files/" + uploaded.ID)
	require.Equal(t, http.StatusOK, resp.Code)

	var file FileWithTagsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &file))
	assert.Equal(t, uploaded.ID, file.ID)
	assert.NotEmpty(t, file.Tags)

	resp = ts.api.Get("/api/v1/files/file_missing")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListFiles(t *testing.T) {
	ts := newTestServer(t)

	ts.uploadTestFile(t, "a.pdf", "application/pdf", "a")
	ts.uploadTestFile(t, "b.png", "image/png", "not really a png")

	resp := ts.api.Get("/api/v1/files")
	require.Equal(t, http.StatusOK, resp.Code)

	var list struct {
		Files []FileResponse `json:"files"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	assert.Len(t, list.Files, 2)

	resp = ts.api.Get("/api/v1/files?category=documents")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list.Files, 1)
	assert.Equal(t, "a.pdf", list.Files[0].OriginalName)

	resp = ts.api.Get("/api/v1/files?tags=pdf")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	assert.Len(t, list.Files, 1)

	// Unknown category is a client error, not a server one.
	resp = ts.api.Get("/api/v1/files?category=holograms")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateFile(t *testing.T) {
	ts := newTestServer(t)

	uploaded := ts.uploadTestFile(t, "a.pdf", "application/pdf", "a")

	resp := ts.api.Patch("/api/v1/files/"+uploaded.ID, map[string]any{
		"metadata":   map[string]any{"reviewed": true},
		"project_id": "proj-2",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var updated FileWithTagsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
	assert.Equal(t, "proj-2", updated.ProjectID)
	assert.Equal(t, true, updated.Metadata["reviewed"])
	assert.Equal(t, uploaded.OriginalName, updated.OriginalName)

	// The change is persisted.
	resp = ts.api.Get("/api/v1/files/" + uploaded.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
	assert.Equal(t, "proj-2", updated.ProjectID)

	resp = ts.api.Patch("/api/v1/files/file_missing", map[string]any{
		"project_id": "proj-2",
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDownloadFile(t *testing.T) {
	ts := newTestServer(t)

	uploaded := ts.uploadTestFile(t, "payload.txt", "text/plain", "the payload")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files/"+uploaded.ID+"/content", nil)
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "the payload", rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "payload.txt")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/files/file_missing/content", nil)
	rec = httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteFile(t *testing.T) {
	ts := newTestServer(t)

	uploaded := ts.uploadTestFile(t, "doomed.txt", "text/plain", "x")

	resp := ts.api.Delete("/api/v1/files/" + uploaded.ID)
	require.Equal(t, http.StatusOK, resp.Code)

	var result struct {
		RecordDeleted  bool `json:"record_deleted"`
		StorageDeleted bool `json:"storage_deleted"`
		DetachedTags   int  `json:"detached_tags"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.True(t, result.RecordDeleted)
	assert.True(t, result.StorageDeleted)
	assert.Equal(t, len(uploaded.Tags), result.DetachedTags)

	resp = ts.api.Get("/api/v1/files/" + uploaded.ID)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Delete("/api/v1/files/" + uploaded.ID)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAttachAndDetachTags(t *testing.T) {
	ts := newTestServer(t)

	uploaded := ts.uploadTestFile(t, "x.txt", "text/plain", "x")

	resp := ts.api.Post("/api/v1/files/"+uploaded.ID+"/tags", map[string]any{
		"tags": []string{"Urgent", "review"},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var attached struct {
		Added   []TagResponse `json:"added"`
		AllTags []TagResponse `json:"all_tags"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &attached))
	require.Len(t, attached.Added, 2)
	assert.Equal(t, "urgent", attached.Added[0].Name)

	// all_tags carries the file's complete set, auto tags included.
	allNames := make([]string, 0, len(attached.AllTags))
	for _, tag := range attached.AllTags {
		allNames = append(allNames, tag.Name)
	}
	assert.Contains(t, allNames, "urgent")
	assert.Contains(t, allNames, "review")
	assert.Contains(t, allNames, "txt")

	// Idempotent re-attach adds nothing but still reports the full set.
	resp = ts.api.Post("/api/v1/files/"+uploaded.ID+"/tags", map[string]any{
		"tags": []string{"urgent"},
	})
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &attached))
	assert.Empty(t, attached.Added)
	assert.NotEmpty(t, attached.AllTags)

	// Detach.
	resp = ts.api.Delete("/api/v1/files/" + uploaded.ID + "/tags/urgent")
	assert.Equal(t, http.StatusNoContent, resp.Code)

	// Unknown tag.
	resp = ts.api.Delete("/api/v1/files/" + uploaded.ID + "/tags/never-existed")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	// Missing file.
	resp = ts.api.Post("/api/v1/files/file_missing/tags", map[string]any{
		"tags": []string{"tag"},
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
