package adapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldkit/fieldsync/internal/syncerr"
	"github.com/fieldkit/fieldsync/models"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) Backend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPBackend(HTTPConfig{BaseURL: srv.URL, Timeout: 2 * time.Second})
}

// unsignedJWT builds a syntactically valid token with the given exp claim.
// ParseUnverified never checks the signature.
func unsignedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	enc := func(v any) string {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		return base64.RawURLEncoding.EncodeToString(b)
	}
	header := enc(map[string]string{"alg": "none", "typ": "JWT"})
	claims := enc(map[string]any{"exp": exp.Unix(), "sub": "agent-1"})
	return header + "." + claims + "."
}

func TestHTTPBackend_FetchChanged(t *testing.T) {
	updated := time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)
	since := updated.Add(-time.Hour)

	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/changes/listings", r.URL.Path)
		assert.Equal(t, since.Format(time.RFC3339Nano), r.URL.Query().Get("since"))
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		fmt.Fprintf(w, `{"events":[{"entity":"listings","op":"update","record_id":"l1","payload":{"id":"l1"},"updated_at":%q}]}`,
			updated.Format(time.RFC3339Nano))
	})
	backend.SetToken("tok-1")

	events, err := backend.FetchChanged(context.Background(), models.EntityListing, since)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "l1", events[0].RecordID)
	assert.Equal(t, models.OpUpdate, events[0].Op)
	assert.True(t, events[0].UpdatedAt.Equal(updated))
}

func TestHTTPBackend_FetchChangedOmitsZeroSince(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("since"))
		fmt.Fprint(w, `{"events":[]}`)
	})

	events, err := backend.FetchChanged(context.Background(), models.EntityTask, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestHTTPBackend_Upsert(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/records/listings/l1", r.URL.Path)

		var body upsertRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "l1", body.ID)
		assert.JSONEq(t, `{"id":"l1","title":"house"}`, string(body.Payload))
		assert.False(t, body.Deleted)

		w.WriteHeader(http.StatusOK)
	})

	rec := models.Record{
		ID:        "l1",
		Entity:    models.EntityListing,
		Payload:   []byte(`{"id":"l1","title":"house"}`),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, backend.Upsert(context.Background(), rec))
}

func TestHTTPBackend_StatusMapping(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
		kind     syncerr.Kind
	}{
		{http.StatusUnauthorized, syncerr.ErrUnauthorized, syncerr.KindUnauthorized},
		{http.StatusForbidden, syncerr.ErrPermissionDenied, syncerr.KindPermissionDenied},
		{http.StatusTooManyRequests, syncerr.ErrRateLimited, syncerr.KindRateLimited},
		{http.StatusInternalServerError, syncerr.ErrServer, syncerr.KindServerError},
		{http.StatusBadGateway, syncerr.ErrServer, syncerr.KindServerError},
		{http.StatusConflict, syncerr.ErrBadRequest, syncerr.KindBadRequest},
		{http.StatusUnprocessableEntity, syncerr.ErrBadRequest, syncerr.KindBadRequest},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			backend := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			})

			rec := models.Record{ID: "l1", Entity: models.EntityListing, Payload: []byte(`{}`), UpdatedAt: time.Now()}
			err := backend.Upsert(context.Background(), rec)
			require.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.kind, syncerr.Classify(err).Kind)
		})
	}
}

func TestHTTPBackend_TokenExpiresWithin(t *testing.T) {
	backend := NewHTTPBackend(HTTPConfig{BaseURL: "http://localhost:0"})

	// No token counts as expired.
	assert.True(t, backend.TokenExpiresWithin(time.Minute))

	backend.SetToken("not-a-jwt")
	assert.True(t, backend.TokenExpiresWithin(time.Minute))

	backend.SetToken(unsignedJWT(t, time.Now().Add(time.Hour)))
	assert.False(t, backend.TokenExpiresWithin(time.Minute))
	assert.True(t, backend.TokenExpiresWithin(2*time.Hour))

	backend.SetToken(unsignedJWT(t, time.Now().Add(-time.Hour)))
	assert.True(t, backend.TokenExpiresWithin(time.Minute))
}

func TestHTTPBackend_TokenRoundTrip(t *testing.T) {
	backend := NewHTTPBackend(HTTPConfig{})
	backend.SetToken("  tok-2 ")
	assert.Equal(t, "tok-2", backend.Token())
}
