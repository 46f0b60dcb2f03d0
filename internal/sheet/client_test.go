package sheet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/config"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/pkg/errors"
)

func clientConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Sheets.BaseURL = baseURL
	cfg.Sheets.Timeout = 5 * time.Second
	return cfg
}

func TestBatchWriteSendsGroupedUpdate(t *testing.T) {
	var got batchUpdateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/spreadsheets/spread-1/values:batchUpdate", r.URL.Path)
		assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(batchUpdateResponse{UpdatedCells: 2})
	}))
	defer srv.Close()

	c := NewClient(clientConfig(srv.URL))

	writes := []ValueWrite{
		{Ref: "5A!P12", Value: "8"},
		{Ref: "5A!Q12", Value: "9"},
	}
	err := c.BatchWrite(context.Background(), "t1", "spread-1", writes)
	require.NoError(t, err)
	assert.Equal(t, writes, got.Data)
}

func TestBatchWriteRejectsEmptyBatch(t *testing.T) {
	c := NewClient(clientConfig("http://unused"))
	err := c.BatchWrite(context.Background(), "t1", "spread-1", nil)
	assert.Error(t, err)
}

func TestBatchWriteClassifiesAuthFailures(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		c := NewClient(clientConfig(srv.URL))
		err := c.BatchWrite(context.Background(), "t1", "spread-1", []ValueWrite{{Ref: "A!A1", Value: "x"}})
		assert.True(t, errors.IsAuthFailure(err), "status %d", status)
		srv.Close()
	}
}

func TestBatchWriteTransientFailureIsNotAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(clientConfig(srv.URL))
	err := c.BatchWrite(context.Background(), "t1", "spread-1", []ValueWrite{{Ref: "A!A1", Value: "x"}})
	require.Error(t, err)
	assert.False(t, errors.IsAuthFailure(err))
	assert.Contains(t, err.Error(), "503")
}

func TestListSheetTitles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/spreadsheets/spread-1", r.URL.Path)
		w.Write([]byte(`{"sheets":[{"title":"5A"},{"title":"5B"}]}`))
	}))
	defer srv.Close()

	c := NewClient(clientConfig(srv.URL))
	titles, err := c.ListSheetTitles(context.Background(), "t1", "spread-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"5A", "5B"}, titles)
}
