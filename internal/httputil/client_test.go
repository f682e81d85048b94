package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func TestGetJSON_Decodes(t *testing.T) {
	mock := NewMockHTTPClient().AddResponse(http.StatusOK, `{"width": 10, "height": 4}`)

	var p payload
	err := GetJSON(context.Background(), mock, "http://grid.local/env", &p)
	require.NoError(t, err)
	assert.Equal(t, payload{Width: 10, Height: 4}, p)
	assert.Equal(t, 1, mock.RequestCount())
	assert.Equal(t, "application/json", mock.Requests[0].Header.Get("Accept"))
}

func TestGetJSON_StatusError(t *testing.T) {
	mock := NewMockHTTPClient().AddResponse(http.StatusServiceUnavailable, "busy")

	var p payload
	err := GetJSON(context.Background(), mock, "http://grid.local/env", &p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
	assert.Contains(t, err.Error(), "busy")
}

func TestGetJSON_TransportError(t *testing.T) {
	boom := errors.New("connection refused")
	mock := NewMockHTTPClient().AddErrorResponse(boom)

	var p payload
	err := GetJSON(context.Background(), mock, "http://grid.local/env", &p)
	assert.ErrorIs(t, err, boom)
}

func TestGetJSON_BadBody(t *testing.T) {
	mock := NewMockHTTPClient().AddResponse(http.StatusOK, `{"width": "wide"`)

	var p payload
	assert.Error(t, GetJSON(context.Background(), mock, "http://grid.local/env", &p))
}

func TestMockHTTPClient_RepeatsLastResponse(t *testing.T) {
	mock := NewMockHTTPClient().
		AddResponse(http.StatusOK, `{"width": 1}`).
		AddResponse(http.StatusOK, `{"width": 2}`)

	var p payload
	for i := 0; i < 3; i++ {
		require.NoError(t, GetJSON(context.Background(), mock, "http://x/", &p))
	}
	assert.Equal(t, 2, p.Width)
	assert.Equal(t, 3, mock.RequestCount())
}

func TestStandardClient_AgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, payload{Width: 7, Height: 3})
	}))
	defer srv.Close()

	var p payload
	require.NoError(t, GetJSON(context.Background(), NewStandardClient(srv.Client()), srv.URL, &p))
	assert.Equal(t, 7, p.Width)
}

func TestWriteJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONError(rec, http.StatusNotFound, "no journal")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"no journal"}`, rec.Body.String())
}
