package responseformat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type payload struct {
	MonitorID string `json:"id"`
	Counts    []int  `json:"counts"`
}

func TestWriteResponseJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/demand/batch", nil)

	require.NoError(t, NewFormatter().WriteResponse(rec, req, http.StatusOK, payload{MonitorID: "fix_MERIT", Counts: []int{1, 2}}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ContentTypeJSON, rec.Header().Get("Content-Type"))

	var got payload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "fix_MERIT", got.MonitorID)
}

func TestWriteResponseMsgPack(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*http.Request)
		url   string
	}{
		{"query parameter", func(*http.Request) {}, "/api/demand/batch?format=msgpack"},
		{"accept header", func(r *http.Request) { r.Header.Set("Accept", ContentTypeMsgPack) }, "/api/demand/batch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			tt.setup(req)

			require.NoError(t, NewFormatter().WriteResponse(rec, req, http.StatusOK, payload{MonitorID: "fix_MERIT", Counts: []int{3}}))
			assert.Equal(t, ContentTypeMsgPack, rec.Header().Get("Content-Type"))

			// Keys follow the json tags.
			var got map[string]any
			require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, "fix_MERIT", got["id"])
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	require.NoError(t, NewFormatter().WriteError(rec, req, http.StatusBadRequest, "bucket_minutes out of range"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"bucket_minutes out of range"}`, rec.Body.String())
}
