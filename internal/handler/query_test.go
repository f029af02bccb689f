package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norrsken-ai/svarmotor/internal/config"
	"github.com/norrsken-ai/svarmotor/internal/critic"
	"github.com/norrsken-ai/svarmotor/internal/guardrail"
	"github.com/norrsken-ai/svarmotor/internal/orchestrator"
	"github.com/norrsken-ai/svarmotor/internal/queryproc"
	"github.com/norrsken-ai/svarmotor/internal/retrieval"
	"github.com/norrsken-ai/svarmotor/internal/types"
	"github.com/norrsken-ai/svarmotor/internal/types/interfaces"
)

type fakeQueryStrategy struct {
	result retrieval.Result
	err    error
}

func (f *fakeQueryStrategy) Search(ctx context.Context, query string, k int, mustInclude []string) (retrieval.Result, error) {
	return f.result, f.err
}

type fakeChatGateway struct {
	raw string
}

func (g *fakeChatGateway) Chat(ctx context.Context, system string, messages []interfaces.ChatMessage, params interfaces.ChatParams) (string, error) {
	return g.raw, nil
}

func (g *fakeChatGateway) ChatStream(ctx context.Context, system string, messages []interfaces.ChatMessage, params interfaces.ChatParams) (<-chan interfaces.StreamToken, error) {
	ch := make(chan interfaces.StreamToken, 1)
	ch <- interfaces.StreamToken{Token: g.raw}
	close(ch)
	return ch, nil
}

func newHandlerTestOrchestrator(raw string) *orchestrator.Orchestrator {
	cfg := config.Default()
	cfg.Critic.Enabled = false
	strat := &fakeQueryStrategy{
		result: retrieval.Result{
			Results: []types.SearchResult{{ID: "c1", DocType: "foreskrift", Source: "SCB", Title: "Folkmängd", Text: "Folkmängden i Sverige var 10 521 556.", Score: 0.9}},
			Metrics: types.RetrievalMetrics{Strategy: types.StrategyParallelV1},
		},
	}
	return orchestrator.New(orchestrator.Deps{
		QueryProcessor: queryproc.New(nil),
		Strategies:     map[types.RetrievalStrategyTag]retrieval.Strategy{types.StrategyParallelV1: strat},
		LLM:            &fakeChatGateway{raw: raw},
		Critic:         critic.New(nil),
		Guardrail:      guardrail.New(cfg.Guardrail),
		Config:         cfg,
	})
}

func setupRouter(t *testing.T, raw string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	orch := newHandlerTestOrchestrator(raw)
	qh := NewQueryHandler(orch)
	sh := NewSystemHandler(config.Default())
	return NewRouter(qh, sh)
}

func TestHandleQueryReturnsAnswer(t *testing.T) {
	raw := `{"mode":"EVIDENCE","saknas_underlag":false,"svar":"Folkmängden var 10 521 556 [1].","kallor":[{"doc_id":"c1","chunk_id":"c1","citat":"10 521 556"}],"fakta_utan_kalla":[]}`
	router := setupRouter(t, raw)

	body, _ := json.Marshal(QueryRequest{Question: "Hur många invånare har Sverige enligt SCB?", Mode: "evidence"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var result types.RAGResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Contains(t, result.Answer, "10 521 556")
}

func TestHandleQueryRejectsEmptyQuestion(t *testing.T) {
	router := setupRouter(t, `{}`)

	body, _ := json.Marshal(QueryRequest{Question: ""})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleQueryRejectsUnknownMode(t *testing.T) {
	router := setupRouter(t, `{}`)

	body, _ := json.Marshal(QueryRequest{Question: "Vad galler?", Mode: "not-a-mode"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSystemInfoReportsEngines(t *testing.T) {
	router := setupRouter(t, `{}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/system/info", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data := envelope["data"].(map[string]interface{})
	assert.Equal(t, "memory", data["vector_store_engine"])
}
