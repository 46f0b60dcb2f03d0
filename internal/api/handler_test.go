package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/config"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/storage"
)

type fakeArchive struct {
	objects map[string][]byte
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{objects: make(map[string][]byte)}
}

func (f *fakeArchive) Upload(_ context.Context, key string, data io.Reader) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[key] = b
	return nil
}

func (f *fakeArchive) Download(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key %q", key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeArchive) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.objects[key]
	return ok, nil
}

func setupRouter(archive storage.Archive) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(nil, nil, nil, nil, archive, &config.Config{})
	router := gin.New()
	SetupRoutes(router, handler)
	return router
}

func TestDownloadAuditExport(t *testing.T) {
	archive := newFakeArchive()
	archive.objects["audit-reports/r-1.xlsx"] = []byte("workbook-bytes")
	router := setupRouter(archive)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/export/r-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "workbook-bytes", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "r-1.xlsx")
}

func TestDownloadAuditExportNotFound(t *testing.T) {
	router := setupRouter(newFakeArchive())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/export/missing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadAuditExportWithoutArchive(t *testing.T) {
	router := setupRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/export/r-1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
