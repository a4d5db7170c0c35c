package logs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delta10/wcs-client/internal/config"
)

func TestWriteLog(t *testing.T) {
	var received Body
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/push", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	backend := NewLogBackend(config.LogBackend{BaseURL: srv.URL})
	err := backend.WriteLog(context.Background(),
		map[string]string{"service": "elevation"},
		map[string]string{"coverage": "dem"})
	require.NoError(t, err)

	require.Len(t, received.Streams, 1)
	assert.Equal(t, map[string]string{"service": "elevation"}, received.Streams[0].Stream)
	require.Len(t, received.Streams[0].Values, 1)
	assert.Equal(t, `{"coverage":"dem"}`, received.Streams[0].Values[0][1])
}

func TestWriteLogRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewLogBackend(config.LogBackend{BaseURL: srv.URL}).WriteLog(context.Background(), nil, nil)
	assert.Error(t, err)
}
