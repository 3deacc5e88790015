// internal/httpapi/router_test.go
package httpapi

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lead-qualifier/internal/common/auth"
	apperrors "lead-qualifier/internal/common/errors"
	"lead-qualifier/internal/common/logger"
	"lead-qualifier/internal/common/ratelimit"
	"lead-qualifier/internal/leads"
	"lead-qualifier/internal/models"
	"lead-qualifier/internal/qualification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fakes
// ==========================

// fakeService embeds a real service and overrides single calls.
type fakeService struct {
	*leads.Service
	handleMessage func(ctx context.Context, email, message string) (*leads.ChatResult, error)
	search        func(ctx context.Context, query string, limit int) ([]models.LeadSummary, error)
	ping          func(ctx context.Context) error
}

func (f *fakeService) HandleMessage(ctx context.Context, email, message string) (*leads.ChatResult, error) {
	if f.handleMessage != nil {
		return f.handleMessage(ctx, email, message)
	}
	return f.Service.HandleMessage(ctx, email, message)
}

func (f *fakeService) SearchEnabled() bool { return f.search != nil }

func (f *fakeService) SearchLeads(ctx context.Context, query string, limit int) ([]models.LeadSummary, error) {
	return f.search(ctx, query, limit)
}

func (f *fakeService) Ping(ctx context.Context) error {
	if f.ping != nil {
		return f.ping(ctx)
	}
	return f.Service.Ping(ctx)
}

type fakeValidator struct {
	roles []string
}

func (v fakeValidator) ValidateToken(_ context.Context, token string) (*auth.TokenInfo, error) {
	switch token {
	case "":
		return nil, apperrors.NewAuthenticationError("missing bearer token")
	case "down":
		return nil, apperrors.NewExternalServiceError("keycloak", stderrors.New("connection refused"))
	case "valid":
		info := &auth.TokenInfo{Active: true}
		info.RealmAccess.Roles = v.roles
		return info, nil
	}
	return nil, apperrors.NewAuthenticationError("token is expired, revoked or invalid")
}

func newTestService(t *testing.T) *fakeService {
	svc := leads.NewService(leads.NewMemoryStore(), nil, logger.NewTestLogger(t))
	return &fakeService{Service: svc}
}

func newTestRouter(t *testing.T, svc *fakeService, mutate ...func(*Deps)) http.Handler {
	d := Deps{Service: svc, Logger: logger.NewTestLogger(t), CORSOrigins: []string{"http://localhost:5173"}}
	for _, m := range mutate {
		m(&d)
	}
	return NewRouter(d)
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var e APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

// ==========================
// Chat
// ==========================

func TestChat_Success(t *testing.T) {
	svc := newTestService(t)
	h := newTestRouter(t, svc)

	rec := do(t, h, http.MethodPost, "/api/chat", `{"email":"jane@acme.com","message":"Hello, I'm from Acme Corp"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["response"])
	assert.NotEmpty(t, body["relevanceTag"])
	assert.Len(t, body, 2)

	lead, err := svc.GetLeadByEmail(context.Background(), "jane@acme.com")
	require.NoError(t, err)
	assert.Len(t, lead.ChatHistory, 2)
}

func TestChat_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		status int
		code   string
	}{
		{name: "missing message", method: http.MethodPost, body: `{"email":"jane@acme.com"}`, status: http.StatusBadRequest, code: "validation_error"},
		{name: "missing email", method: http.MethodPost, body: `{"message":"hi"}`, status: http.StatusBadRequest, code: "validation_error"},
		{name: "blank fields", method: http.MethodPost, body: `{"email":"  ","message":"  "}`, status: http.StatusBadRequest, code: "validation_error"},
		{name: "malformed json", method: http.MethodPost, body: `{"email":`, status: http.StatusBadRequest, code: "validation_error"},
		{name: "wrong method", method: http.MethodGet, body: "", status: http.StatusMethodNotAllowed, code: "method_not_allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, newTestService(t))
			rec := do(t, h, tt.method, "/api/chat", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Error.Code)
		})
	}
}

func TestChat_InternalErrorIsGeneric(t *testing.T) {
	svc := newTestService(t)
	svc.handleMessage = func(ctx context.Context, email, message string) (*leads.ChatResult, error) {
		return nil, apperrors.NewPersistenceError("save lead", stderrors.New("pq: relation \"leads\" does not exist"))
	}
	h := newTestRouter(t, svc)

	rec := do(t, h, http.MethodPost, "/api/chat", `{"email":"jane@acme.com","message":"hi"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "relation")

	var body struct {
		Response string `json:"response"`
		Error    struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, qualification.ReplyProcessingFailure, body.Response)
	assert.Equal(t, "internal_error", body.Error.Code)
	assert.Equal(t, "Internal server error", body.Error.Message)
}

func TestChat_LockTimeoutIsConflict(t *testing.T) {
	svc := newTestService(t)
	svc.handleMessage = func(ctx context.Context, email, message string) (*leads.ChatResult, error) {
		return nil, apperrors.NewLockTimeoutError(email, context.DeadlineExceeded)
	}
	h := newTestRouter(t, svc)

	rec := do(t, h, http.MethodPost, "/api/chat", `{"email":"jane@acme.com","message":"hi"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "lead_busy", decodeError(t, rec).Error.Code)
}

func TestChat_RateLimited(t *testing.T) {
	h := newTestRouter(t, newTestService(t), func(d *Deps) {
		d.ChatLimiter = ratelimit.NewKeyLimiter(0.001, 1)
	})

	first := do(t, h, http.MethodPost, "/api/chat", `{"email":"jane@acme.com","message":"hi"}`)
	assert.Equal(t, http.StatusOK, first.Code)

	second := do(t, h, http.MethodPost, "/api/chat", `{"email":"jane@acme.com","message":"hi again"}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "rate_limited", decodeError(t, second).Error.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))

	other := do(t, h, http.MethodPost, "/api/chat", `{"email":"bob@acme.com","message":"hi"}`, "X-Forwarded-For", "10.0.0.9")
	assert.Equal(t, http.StatusOK, other.Code)
}

// ==========================
// Leads
// ==========================

func TestLeads_ListAndGet(t *testing.T) {
	svc := newTestService(t)
	h := newTestRouter(t, svc)

	for _, email := range []string{"first@acme.com", "second@acme.com"} {
		_, err := svc.HandleMessage(context.Background(), email, "hello")
		require.NoError(t, err)
	}

	rec := do(t, h, http.MethodGet, "/api/leads", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)

	rec = do(t, h, http.MethodGet, "/api/leads/first%40acme.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var lead models.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lead))
	assert.Equal(t, "first@acme.com", lead.Email)

	rec = do(t, h, http.MethodGet, "/api/leads/nobody@acme.com", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "not_found", e.Error.Code)
	assert.Equal(t, "Lead not found", e.Error.Message)
}

func TestLeads_Search(t *testing.T) {
	t.Run("disabled falls through to lookup", func(t *testing.T) {
		h := newTestRouter(t, newTestService(t))
		rec := do(t, h, http.MethodGet, "/api/leads/search?q=acme", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("enabled", func(t *testing.T) {
		svc := newTestService(t)
		svc.search = func(ctx context.Context, query string, limit int) ([]models.LeadSummary, error) {
			assert.Equal(t, "acme", query)
			assert.Equal(t, 5, limit)
			return []models.LeadSummary{{Email: "jane@acme.com", RelevanceTag: models.TagHotLead}}, nil
		}
		h := newTestRouter(t, svc)

		rec := do(t, h, http.MethodGet, "/api/leads/search?q=acme&limit=5", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var results []models.LeadSummary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
		require.Len(t, results, 1)
		assert.Equal(t, "jane@acme.com", results[0].Email)
	})
}

func TestFunnel(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.HandleMessage(context.Background(), "jane@acme.com", "hello")
	require.NoError(t, err)
	h := newTestRouter(t, svc)

	rec := do(t, h, http.MethodGet, "/api/stats/funnel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats leads.FunnelStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Total)
}

// ==========================
// Admin auth
// ==========================

func TestAdminAuth(t *testing.T) {
	tests := []struct {
		name   string
		header string
		roles  []string
		status int
	}{
		{name: "no token", header: "", status: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer expired", status: http.StatusUnauthorized},
		{name: "keycloak down", header: "Bearer down", status: http.StatusInternalServerError},
		{name: "missing role", header: "Bearer valid", roles: []string{"viewer"}, status: http.StatusForbidden},
		{name: "admin", header: "Bearer valid", roles: []string{"lead-admin"}, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, newTestService(t), func(d *Deps) {
				d.AdminAuth = fakeValidator{roles: tt.roles}
				d.AdminRole = "lead-admin"
			})
			rec := do(t, h, http.MethodGet, "/api/leads", "", "Authorization", tt.header)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	t.Run("chat stays public", func(t *testing.T) {
		h := newTestRouter(t, newTestService(t), func(d *Deps) {
			d.AdminAuth = fakeValidator{}
		})
		rec := do(t, h, http.MethodPost, "/api/chat", `{"email":"jane@acme.com","message":"hi"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

// ==========================
// Health, middleware
// ==========================

func TestHealthAndReady(t *testing.T) {
	svc := newTestService(t)
	h := newTestRouter(t, svc, func(d *Deps) {
		d.ReadyChecks = map[string]func(context.Context) error{
			"zeebe": func(context.Context) error { return stderrors.New("unavailable") },
		}
	})

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"not_ready","checks":{"store":"ok","zeebe":"unavailable"}}`, rec.Body.String())

	h = newTestRouter(t, svc)
	rec = do(t, h, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t, newTestService(t))
	do(t, h, http.MethodPost, "/api/chat", `{"email":"jane@acme.com","message":"hi"}`)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="POST",route="/api/chat",status="200"}`)
}

func TestRequestID(t *testing.T) {
	h := newTestRouter(t, newTestService(t))

	rec := do(t, h, http.MethodGet, "/health", "", "X-Request-ID", "req-123")
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	rec = do(t, h, http.MethodGet, "/api/leads/nobody@acme.com", "")
	id := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, id)
	assert.Equal(t, id, decodeError(t, rec).Error.RequestID)
}

func TestCors(t *testing.T) {
	h := newTestRouter(t, newTestService(t))

	rec := do(t, h, http.MethodOptions, "/api/chat", "", "Origin", "http://localhost:5173")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, h, http.MethodOptions, "/api/chat", "", "Origin", "https://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecover(t *testing.T) {
	svc := newTestService(t)
	svc.handleMessage = func(ctx context.Context, email, message string) (*leads.ChatResult, error) {
		panic("boom")
	}
	h := newTestRouter(t, svc)

	rec := do(t, h, http.MethodPost, "/api/chat", `{"email":"jane@acme.com","message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeError(t, rec).Error.Code)
}
