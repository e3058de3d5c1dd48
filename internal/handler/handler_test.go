package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/docask/docask/internal/ai"
	"github.com/docask/docask/internal/answercache"
	"github.com/docask/docask/internal/conversation"
	"github.com/docask/docask/internal/handler"
	"github.com/docask/docask/internal/index"
	"github.com/docask/docask/internal/repo"
	"github.com/docask/docask/internal/retry"
	"github.com/docask/docask/internal/service"
)

// scriptedAI answers every generation with a fixed string and embeds
// every text to the same vector, which is enough for routing documents
// through the full HTTP surface.
type scriptedAI struct{}

func (s *scriptedAI) Summarize(ctx context.Context, text string) (string, error) {
	return "summary of: " + text[:min(len(text), 10)], nil
}

func (s *scriptedAI) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (s *scriptedAI) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (s *scriptedAI) EmbedModelName() string {
	return "scripted"
}

func (s *scriptedAI) Answer(ctx context.Context, question string, contextDocs []string, history []conversation.Turn) (string, error) {
	return "the exam is on March 15", nil
}

func setupRouter(t *testing.T) (http.Handler, *service.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repo.Open(filepath.Join(t.TempDir(), "handler_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repo.ApplyMigrations(db))

	jwtSecret := []byte("test-secret")
	stub := &scriptedAI{}
	idx := index.NewFlat(2)
	docRepo := repo.NewDocumentRepo(db)
	embeddingRepo := repo.NewEmbeddingRepo(db)
	cache := answercache.New(repo.NewAnswerCacheRepo(db), time.Hour)
	tracker := conversation.NewTracker(6)
	retryCfg := retry.Config{MaxAttempts: 2, BaseDelay: time.Millisecond, IsTransient: ai.IsTransient}

	authService := service.NewAuthService(repo.NewUserRepo(db), jwtSecret, time.Hour)
	libraryService := service.NewLibraryService(db, docRepo, embeddingRepo, idx, cache, stub, stub, retryCfg)
	askService := service.NewAskService(docRepo, idx, cache, stub, stub, tracker, retryCfg)

	engine := gin.New()
	handler.RegisterRoutes(engine.Group("/api/v1"), handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService),
		Documents: handler.NewDocumentHandler(libraryService),
		Ask:       handler.NewAskHandler(askService),
		JWTSecret: jwtSecret,
	})
	return engine, authService
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func registerAndToken(t *testing.T, auth *service.AuthService) string {
	t.Helper()
	_, token, err := auth.Register(context.Background(), "alice@example.com", "correct horse battery")
	require.NoError(t, err)
	return token
}

func TestAuthEndpoints(t *testing.T) {
	router, _ := setupRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "",
		map[string]string{"email": "bob@example.com", "password": "longenoughpassword"})
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "token")

	resp = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "bob@example.com", "password": "longenoughpassword"})
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "token")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, _ := setupRouter(t)

	resp := doJSON(t, router, http.MethodGet, "/api/v1/documents", "", nil)
	require.NotContains(t, resp.Body.String(), `"documents"`)

	resp = doJSON(t, router, http.MethodGet, "/api/v1/documents", "garbage-token", nil)
	require.NotContains(t, resp.Body.String(), `"documents"`)
}

func TestDocumentLifecycleOverHTTP(t *testing.T) {
	router, auth := setupRouter(t)
	token := registerAndToken(t, auth)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/documents", token,
		map[string]string{"title": "Exam schedule", "content": "the exam is on March 15"})
	require.Equal(t, http.StatusOK, resp.Code)
	docID := extractField(t, resp.Body.String(), "id")
	require.NotEmpty(t, docID)

	resp = doJSON(t, router, http.MethodGet, "/api/v1/documents", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "Exam schedule")
	require.Contains(t, resp.Body.String(), `"total":1`)
	// listing never exposes the full text
	require.NotContains(t, resp.Body.String(), "the exam is on March 15")

	resp = doJSON(t, router, http.MethodGet, "/api/v1/documents/"+docID, token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "March 15")

	resp = doJSON(t, router, http.MethodDelete, "/api/v1/documents/"+docID, token, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, router, http.MethodGet, "/api/v1/documents/"+docID, token, nil)
	require.NotContains(t, resp.Body.String(), "March 15")
}

func TestAskOverHTTP(t *testing.T) {
	router, auth := setupRouter(t)
	token := registerAndToken(t, auth)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/documents", token,
		map[string]string{"title": "Exam schedule", "content": "the exam is on March 15"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, router, http.MethodPost, "/api/v1/ask", token,
		map[string]string{"question": "When is the exam?"})
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	require.Contains(t, body, "the exam is on March 15")
	require.Contains(t, body, `"query_type":"factual"`)
	require.Contains(t, body, `"cached":false`)

	resp = doJSON(t, router, http.MethodPost, "/api/v1/ask", token,
		map[string]string{"question": "when is the exam?"})
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"cached":true`)
}

func TestExplainOverHTTP(t *testing.T) {
	router, auth := setupRouter(t)
	token := registerAndToken(t, auth)

	resp := doJSON(t, router, http.MethodGet,
		"/api/v1/ask/explain?q="+url.QueryEscape("Compare quicksort and mergesort"), token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	require.Contains(t, body, `"query_type":"comparison"`)
	require.Contains(t, body, `"strategy":"comprehensive"`)
	require.Contains(t, body, `"top_k":10`)
}

func TestClearHistoryOverHTTP(t *testing.T) {
	router, auth := setupRouter(t)
	token := registerAndToken(t, auth)

	resp := doJSON(t, router, http.MethodDelete, "/api/v1/history", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
}

// extractField pulls a top-level-ish string field out of a JSON body
// without assuming the envelope shape.
func extractField(t *testing.T, body, field string) string {
	t.Helper()
	marker := `"` + field + `":"`
	start := strings.Index(body, marker)
	require.GreaterOrEqual(t, start, 0, "field %s not in body %s", field, body)
	rest := body[start+len(marker):]
	end := strings.Index(rest, `"`)
	require.GreaterOrEqual(t, end, 0)
	return rest[:end]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
