package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"lexassist-backend/internal/agents"
	"lexassist-backend/internal/handlers"
	"lexassist-backend/internal/llm"
	"lexassist-backend/internal/middleware"
	"lexassist-backend/internal/models"
	"lexassist-backend/internal/services"
)

type nopAssistant struct{}

func (nopAssistant) Chat(context.Context, []models.ChatMessage) (<-chan llm.StreamToken, error) {
	ch := make(chan llm.StreamToken, 1)
	ch <- llm.StreamToken{Done: true}
	close(ch)
	return ch, nil
}

func (nopAssistant) AnalyzeDocument(context.Context, models.AnalyzeDocumentRequest) (*models.DocumentAnalysis, error) {
	return &models.DocumentAnalysis{RiskAssessment: models.RiskLow}, nil
}

func (nopAssistant) Translate(context.Context, string, string) (string, error) {
	return "translated", nil
}

type nopRunner struct{}

func (nopRunner) Run(context.Context, string, string) (string, error) { return "ok", nil }

func newTestRouter(t *testing.T, jwt *middleware.JWTAuth, limiter middleware.Limiter) http.Handler {
	t.Helper()
	catalog, err := agents.LoadCatalog("")
	require.NoError(t, err)

	svc := nopAssistant{}
	return New(Deps{
		Chat:        handlers.NewChatHandler(svc, time.Second),
		Documents:   handlers.NewDocumentHandler(svc, services.NewFileExtractService(), nil),
		Translate:   handlers.NewTranslateHandler(svc),
		Agents:      handlers.NewAgentHandler(nopRunner{}, catalog, nil),
		JWTAuth:     jwt,
		Limiter:     limiter,
		FrontendURL: "http://localhost:3000",
	})
}

func do(h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	rr := do(newTestRouter(t, nil, nil), http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_Routes(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodPost, "/api/translate", `{"text":"hi","targetLanguage":"zh"}`, http.StatusOK},
		{http.MethodPost, "/api/translate", `{"text":"hi"}`, http.StatusBadRequest},
		{http.MethodPost, "/api/documents/analyze", `{"documentText":"x"}`, http.StatusOK},
		{http.MethodPost, "/api/agents", `{"task":"x"}`, http.StatusOK},
		{http.MethodGet, "/api/agents", "", http.StatusOK},
		{http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`, http.StatusOK},
		{http.MethodPost, "/api/agents/runs", `{"task":"x"}`, http.StatusNotFound},
		{http.MethodGet, "/api/documents/analyses", "", http.StatusNotFound},
	}

	for _, tc := range tests {
		rr := do(h, tc.method, tc.path, tc.body, nil)
		assert.Equal(t, tc.status, rr.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRouter_Preflight(t *testing.T) {
	rr := do(newTestRouter(t, nil, nil), http.MethodOptions, "/api/chat", "", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": "POST",
	})

	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRouter_JWT(t *testing.T) {
	auth := middleware.NewJWTAuth("secret")
	h := newTestRouter(t, auth, nil)

	rr := do(h, http.MethodPost, "/api/translate", `{"text":"hi","targetLanguage":"en"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, err := auth.GenerateToken("dev", time.Minute)
	require.NoError(t, err)
	rr = do(h, http.MethodPost, "/api/translate", `{"text":"hi","targetLanguage":"en"}`,
		map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, rr.Code)

	// Health stays public.
	rr = do(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	limiter := middleware.NewMemoryLimiter(1, time.Minute)
	defer limiter.Close()
	h := newTestRouter(t, nil, limiter)

	body := `{"text":"hi","targetLanguage":"en"}`
	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/api/translate", body, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(h, http.MethodPost, "/api/translate", body, nil).Code)
}
