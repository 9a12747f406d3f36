package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	adminapi "github.com/futig/foodsafety-backend/internal/api/admin"
	chatapi "github.com/futig/foodsafety-backend/internal/api/chat"
	documentapi "github.com/futig/foodsafety-backend/internal/api/document"
	"github.com/futig/foodsafety-backend/internal/config"
	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/futig/foodsafety-backend/internal/integration/auth"
	"github.com/futig/foodsafety-backend/internal/integration/embedding"
	"github.com/futig/foodsafety-backend/internal/integration/llm"
	"github.com/futig/foodsafety-backend/internal/metrics"
	"github.com/futig/foodsafety-backend/internal/pkg/extract"
	"github.com/futig/foodsafety-backend/internal/pkg/formatter"
	"github.com/futig/foodsafety-backend/internal/pkg/validator"
	"github.com/futig/foodsafety-backend/internal/ratelimit"
	"github.com/futig/foodsafety-backend/internal/repository"
	"github.com/futig/foodsafety-backend/internal/retrieval"
	"github.com/futig/foodsafety-backend/internal/usecase/chat"
	"github.com/futig/foodsafety-backend/internal/usecase/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const foodCodeText = "Cold holding. Time/temperature control for safety food shall be maintained at 41°F or below. " +
	"Hot holding. Time/temperature control for safety food shall be maintained at 135°F or above. " +
	"Poultry and stuffed meats shall be cooked to an internal temperature of 165°F for fifteen seconds."

func newTestServer(t *testing.T) (http.Handler, *metrics.Registry) {
	t.Helper()
	logger := zap.NewNop()

	cfg := &config.Config{
		RequestTimeout: 10 * time.Second,
		AdminUserIDs:   []string{"admin-1"},
		Counties:       config.CountyCatalog{{ID: "washtenaw", Name: "Washtenaw County", State: "MI"}},
		DefaultCounty:  "washtenaw",
		Environment:    "prod",
		FileUploadCfg: config.FileUploadConfig{
			MaxFileSize:   1 << 20,
			MaxUploadSize: 1 << 20,
			MaxImageSize:  1 << 20,
			MaxMessages:   20,
			MaxMessageLen: 2000,
		},
	}

	chunks := repository.NewChunkFile(filepath.Join(t.TempDir(), "corpus.json"))
	embedder := embedding.NewConnector(embedding.NewMockEmbedder(), config.EmbeddingConfig{}, logger)
	retriever := retrieval.NewRetriever(chunks, embedder, retrieval.Options{MinScore: -1})

	chatUC := chat.NewUsecase(
		retriever,
		llm.NewConnector(llm.NewMockChatModel(), config.LLMConfig{}, logger),
		repository.NewProfileMemory(),
		cfg.Counties,
		cfg.DefaultCounty,
	)
	ingestUC := ingest.NewUsecase(chunks, embedder, extract.NewRegistry(), cfg.Counties, retrieval.NewChunker(1000, 200), 100)

	registry := metrics.NewRegistry()
	v := validator.NewValidator(cfg.FileUploadCfg, cfg.Counties)
	handlers := Handlers{
		Chat:     chatapi.NewHandler(chatUC, formatter.NewFactory(), v, cfg),
		Document: documentapi.NewHandler(ingestUC, cfg.FileUploadCfg, v, false),
		Admin:    adminapi.NewHandler(registry),
	}
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), 3, time.Minute)

	return SetupRouter(handlers, auth.NewMockConnector(logger), limiter, registry, cfg, logger), registry
}

func call(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_IngestThenChat(t *testing.T) {
	h, _ := newTestServer(t)

	ingestBody := `{"source":"Food Code","county":"washtenaw","text":"` + foodCodeText + `"}`

	rec := call(t, h, http.MethodPost, "/api/documents/text", "user-1", ingestBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, h, http.MethodPost, "/api/documents/text", "admin-1", ingestBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var ingested entity.IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ingested))
	assert.Equal(t, 1, ingested.ChunksCreated)

	chatBody := `{"messages":[{"role":"user","content":"What temperature should poultry be cooked to?"}]}`
	rec = call(t, h, http.MethodPost, "/api/chat", "user-1", chatBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Remaining"))

	var resp entity.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "washtenaw", resp.County)
	assert.Contains(t, resp.Message, "Food Code")
	assert.Equal(t, 1, resp.DocumentsSearched)
	require.NotNil(t, resp.RateLimit)
	assert.Equal(t, 2, resp.RateLimit.RemainingRequests)
}

func TestServer_RateLimitAndAuth(t *testing.T) {
	h, _ := newTestServer(t)
	chatBody := `{"messages":[{"role":"user","content":"Hand washing sinks?"}]}`

	rec := call(t, h, http.MethodPost, "/api/chat", "", chatBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for i := 0; i < 3; i++ {
		rec = call(t, h, http.MethodPost, "/api/chat", "user-1", chatBody)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec = call(t, h, http.MethodPost, "/api/chat", "user-1", chatBody)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	// Limits are per user.
	rec = call(t, h, http.MethodPost, "/api/chat", "user-2", chatBody)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_EmptyCorpusAnswersWithoutCitations(t *testing.T) {
	h, _ := newTestServer(t)

	rec := call(t, h, http.MethodPost, "/api/chat", "user-1",
		`{"messages":[{"role":"user","content":"What is the cold holding temperature?"}],"county":"washtenaw"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp entity.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Citations)
	assert.Equal(t, entity.ContextQualityNone, resp.ContextQuality)
	assert.Equal(t, 0, resp.DocumentsSearched)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	h, _ := newTestServer(t)

	rec := call(t, h, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = call(t, h, http.MethodGet, "/api/counties", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, h, http.MethodGet, "/api/admin/metrics", "user-1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, h, http.MethodGet, "/api/admin/metrics", "admin-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot metrics.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.GreaterOrEqual(t, snapshot.TotalRequests, int64(3))
	assert.Zero(t, snapshot.TotalErrors)
}
