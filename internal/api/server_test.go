package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/filedrop/filedrop-server/internal/classify"
	"github.com/filedrop/filedrop-server/internal/config"
	"github.com/filedrop/filedrop-server/internal/service"
	"github.com/filedrop/filedrop-server/internal/storage"
	"github.com/filedrop/filedrop-server/internal/store/sqlite"
	"github.com/filedrop/filedrop-server/internal/tagging"
	"github.com/filedrop/filedrop-server/internal/vision"
)

type testServer struct {
	*Server
	api humatest.TestAPI
}

// newTestServer wires a complete server against temp storage and database.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	st, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	stg, err := storage.New(filepath.Join(dir, "files"))
	require.NoError(t, err)

	classifier := classify.New(classify.DefaultConfig())
	generator := tagging.New(
		tagging.Config{StorageBasePath: stg.BasePath()},
		vision.NewDisabled(logger),
		logger,
	)

	tagSvc := service.NewTagService(st, logger)
	fileSvc := service.NewFileService(st, stg, classifier, generator, tagSvc, true, logger)

	cfg := &config.Config{}
	cfg.Storage.MaxUploadBytes = 1 << 20
	cfg.RateLimit.RequestsPerMinute = 600
	cfg.RateLimit.Burst = 100

	s := NewServer(cfg, st, &Services{File: fileSvc, Tag: tagSvc}, logger)
	t.Cleanup(s.Close)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
	}
}

// uploadTestFile posts a multipart upload through the full router and returns
// the decoded file response.
func (ts *testServer) uploadTestFile(t *testing.T, filename, contentType, content string) FileWithTagsResponse {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	hdr.Set("Content-Type", contentType)
	fw, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, "upload failed: %s", rec.Body.String())

	var envelope struct {
		Data    FileWithTagsResponse `json:"data"`
		Success bool                 `json:"success"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &health))
	require.Equal(t, "healthy", health.Status)
	require.Equal(t, "healthy", health.Components["database"].Status)
}
