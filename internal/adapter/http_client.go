package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/fieldkit/fieldsync/internal/syncerr"
	"github.com/fieldkit/fieldsync/models"
)

// HTTPConfig configures the REST backend client.
type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration
}

type httpBackend struct {
	client *resty.Client

	mu    sync.RWMutex
	token string
}

// NewHTTPBackend constructs a [Backend] speaking the fieldsync REST API.
func NewHTTPBackend(cfg HTTPConfig) Backend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	return &httpBackend{client: cli}
}

func (h *httpBackend) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

func (h *httpBackend) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *httpBackend) TokenExpiresWithin(window time.Duration) bool {
	token := h.Token()
	if token == "" {
		return true
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return true
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return time.Until(exp.Time) < window
}

type changesResponse struct {
	Events []models.ChangeEvent `json:"events"`
}

func (h *httpBackend) FetchChanged(ctx context.Context, entity models.EntityType, since time.Time) ([]models.ChangeEvent, error) {
	req := h.authedRequest(ctx)
	if !since.IsZero() {
		req.SetQueryParam("since", since.UTC().Format(time.RFC3339Nano))
	}

	resp, err := req.Get("/api/changes/" + string(entity))
	if err != nil {
		return nil, fmt.Errorf("fetch %s changes request: %w", entity, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, fmt.Errorf("fetch %s changes: %w", entity, err)
	}

	var cr changesResponse
	if err = json.Unmarshal(resp.Body(), &cr); err != nil {
		return nil, fmt.Errorf("decode %s changes response: %w", entity, err)
	}
	return cr.Events, nil
}

type upsertRequest struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
	Deleted   bool            `json:"deleted"`
}

func (h *httpBackend) Upsert(ctx context.Context, rec models.Record) error {
	body := upsertRequest{
		ID:        rec.ID,
		Payload:   rec.Payload,
		UpdatedAt: rec.UpdatedAt.UTC(),
		Deleted:   rec.Deleted,
	}

	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Put("/api/records/" + string(rec.Entity) + "/" + rec.ID)
	if err != nil {
		return fmt.Errorf("upsert %s/%s request: %w", rec.Entity, rec.ID, err)
	}

	if err = mapHTTPError(resp); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", rec.Entity, rec.ID, err)
	}
	return nil
}

func (h *httpBackend) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}

// mapHTTPError translates a non-2xx response into the sentinel errors the
// classification layer understands. The response body, when present, rides
// along as the human-readable reason.
func mapHTTPError(resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(code)
	}

	switch {
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", syncerr.ErrUnauthorized, body)
	case code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", syncerr.ErrPermissionDenied, body)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", syncerr.ErrRateLimited, body)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: http %d: %s", syncerr.ErrServer, code, body)
	default:
		return fmt.Errorf("%w: http %d: %s", syncerr.ErrBadRequest, code, body)
	}
}
