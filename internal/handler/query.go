// Package handler exposes the orchestration core's two operations (spec
// §6.1 query, §6.2 stream) plus a small ambient system-info surface, as
// gin.HandlerFuncs in the teacher's annotation style
// (internal/handler/system.go's @Summary/@Tags/@Router convention).
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/norrsken-ai/svarmotor/internal/logger"
	"github.com/norrsken-ai/svarmotor/internal/orchestrator"
	"github.com/norrsken-ai/svarmotor/internal/sse"
	"github.com/norrsken-ai/svarmotor/internal/types"
)

// QueryHandler adapts HTTP requests to orchestrator.Orchestrator calls.
type QueryHandler struct {
	orch *orchestrator.Orchestrator
}

// NewQueryHandler constructs a QueryHandler over an already-wired Orchestrator.
func NewQueryHandler(orch *orchestrator.Orchestrator) *QueryHandler {
	return &QueryHandler{orch: orch}
}

// QueryRequest is the wire shape of spec §6.1's request body.
type QueryRequest struct {
	Question          string                 `json:"question" binding:"required,min=1,max=2000"`
	Mode              string                 `json:"mode"`
	History           []types.HistoryMessage `json:"history"`
	K                 int                    `json:"k"`
	RetrievalStrategy string                 `json:"retrieval_strategy"`
	SessionID         string                 `json:"session_id"`
}

func (r QueryRequest) toRequest() (orchestrator.Request, error) {
	mode, err := parseModeHint(r.Mode)
	if err != nil {
		return orchestrator.Request{}, err
	}
	strategy, err := parseStrategy(r.RetrievalStrategy)
	if err != nil {
		return orchestrator.Request{}, err
	}
	k := r.K
	if k == 0 {
		k = 10
	}
	if len(r.History) > 10 {
		return orchestrator.Request{}, errors.New("history must contain at most 10 messages")
	}
	return orchestrator.Request{
		Question:  r.Question,
		ModeHint:  mode,
		History:   r.History,
		K:         k,
		Strategy:  strategy,
		SessionID: r.SessionID,
	}, nil
}

func parseModeHint(mode string) (types.ResponseMode, error) {
	switch mode {
	case "", "auto":
		return "", nil
	case "chat":
		return types.ModeChat, nil
	case "assist":
		return types.ModeAssist, nil
	case "evidence":
		return types.ModeEvidence, nil
	default:
		return "", errors.New("unknown mode: " + mode)
	}
}

func parseStrategy(strategy string) (types.RetrievalStrategyTag, error) {
	switch strategy {
	case "":
		return types.StrategyParallelV1, nil
	case string(types.StrategyParallelV1), string(types.StrategyRewriteV1), string(types.StrategyRAGFusion), string(types.StrategyAdaptive):
		return types.RetrievalStrategyTag(strategy), nil
	default:
		return "", errors.New("unknown retrieval_strategy: " + strategy)
	}
}

// HandleQuery godoc
// @Summary      Answer a question
// @Description  Retrieves relevant passages and returns a cited Swedish-language answer (spec §6.1)
// @Tags         query
// @Accept       json
// @Produce      json
// @Param        request body QueryRequest true "question request"
// @Success      200 {object} types.RAGResult
// @Failure      400 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /api/v1/query [post]
func (h *QueryHandler) HandleQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pipelineReq, err := req.toRequest()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.orch.ProcessQuery(c.Request.Context(), pipelineReq)
	if err != nil {
		writeOrchestratorError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleStream godoc
// @Summary      Answer a question over SSE
// @Description  Same request as HandleQuery; streams metadata, decontextualized, token, corrections, and a terminal done/error event (spec §4.10, §6.2)
// @Tags         query
// @Accept       json
// @Produce      text/event-stream
// @Param        request body QueryRequest true "question request"
// @Router       /api/v1/stream [post]
func (h *QueryHandler) HandleStream(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pipelineReq, err := req.toRequest()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	seq := sse.NewSequencer(c.Writer)
	if err := h.orch.StreamQuery(c.Request.Context(), pipelineReq, seq); err != nil {
		logger.Warnf(c.Request.Context(), "stream query ended with error: %v", err)
	}
}

func writeOrchestratorError(c *gin.Context, err error) {
	var pErr *orchestrator.PipelineError
	if errors.As(err, &pErr) {
		switch pErr.Code {
		case orchestrator.CodeInput:
			c.JSON(http.StatusBadRequest, gin.H{"error": pErr.Error()})
			return
		case orchestrator.CodeCancelled:
			return
		}
	}
	logger.Errorf(c.Request.Context(), "query pipeline error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
