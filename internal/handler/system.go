package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/norrsken-ai/svarmotor/internal/config"
	"github.com/norrsken-ai/svarmotor/internal/logger"
)

// SystemHandler reports ambient version/engine information. It carries no
// citation/refusal semantics and is not a core RAG operation (SPEC_FULL §6).
type SystemHandler struct {
	cfg *config.Config
}

// NewSystemHandler creates a new system handler.
func NewSystemHandler(cfg *config.Config) *SystemHandler {
	return &SystemHandler{cfg: cfg}
}

// GetSystemInfoResponse defines the response structure for system info.
type GetSystemInfoResponse struct {
	Version           string `json:"version"`
	CommitID          string `json:"commit_id,omitempty"`
	BuildTime         string `json:"build_time,omitempty"`
	GoVersion         string `json:"go_version,omitempty"`
	VectorStoreEngine string `json:"vector_store_engine"`
	CriticEnabled     bool   `json:"critic_enabled"`
	CRAGEnabled       bool   `json:"crag_enabled"`
	RerankEnabled     bool   `json:"rerank_enabled"`
	KeywordFusion     bool   `json:"keyword_fusion_enabled"`
}

// Version/CommitID/BuildTime/GoVersion are injected at build time via -ldflags.
var (
	Version   = "unknown"
	CommitID  = "unknown"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

// GetSystemInfo godoc
// @Summary      Get system info
// @Description  Returns version, build info, and which pipeline stages are enabled
// @Tags         system
// @Accept       json
// @Produce      json
// @Success      200 {object} GetSystemInfoResponse
// @Router       /api/v1/system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	ctx := logger.CloneContext(c.Request.Context())

	response := GetSystemInfoResponse{
		Version:           Version,
		CommitID:          CommitID,
		BuildTime:         BuildTime,
		GoVersion:         GoVersion,
		VectorStoreEngine: string(h.cfg.VectorDatabase.Driver),
		CriticEnabled:     h.cfg.Critic.Enabled,
		CRAGEnabled:       h.cfg.CRAG.Enabled,
		RerankEnabled:     h.cfg.Rerank.Enabled,
		KeywordFusion:     h.cfg.KeywordFusion.Enabled,
	}

	logger.Info(ctx, "system info retrieved")
	c.JSON(200, gin.H{
		"code": 0,
		"msg":  "success",
		"data": response,
	})
}
