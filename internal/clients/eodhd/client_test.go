package eodhd

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-digest/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-key", WithBaseURL(srv.URL))
	c.now = func() time.Time { return time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestGetLatestClose_PicksMostRecentBar(t *testing.T) {
	var capturedPath, capturedToken, capturedFrom string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedToken = r.URL.Query().Get("api_token")
		capturedFrom = r.URL.Query().Get("from")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"date":"2026-10-14","open":2640,"high":2660,"low":2630,"close":"2651.25","adjusted_close":2651.25,"volume":1},
			{"date":"2026-10-13","open":2600,"high":2650,"low":2590,"close":2630.1,"adjusted_close":2630.1,"volume":1}
		]`))
	})

	quote, err := c.GetLatestClose(context.Background(), models.FieldKOSPI)
	require.NoError(t, err)

	assert.Equal(t, "/eod/KS11.INDX", capturedPath)
	assert.Equal(t, "test-key", capturedToken)
	assert.Equal(t, "2026-10-08", capturedFrom)
	assert.Equal(t, 2651.25, quote.Close)
	assert.Equal(t, "eodhd", quote.Source)
	assert.Equal(t, "KS11.INDX", quote.Symbol)
}

func TestGetLatestClose_EmptyData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := c.GetLatestClose(context.Background(), models.FieldVIX)
	assert.Error(t, err)
}

func TestGetLatestClose_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("invalid token"))
	})

	_, err := c.GetLatestClose(context.Background(), models.FieldSP500)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "/eod/GSPC.INDX", apiErr.Endpoint)
}

func TestGetLatestClose_RequiresAPIKey(t *testing.T) {
	c := NewClient("")
	_, err := c.GetLatestClose(context.Background(), models.FieldUSDKRW)
	assert.Error(t, err)
}
