// Package audit persists diagnostic-only pipeline telemetry — retrieval
// metrics and grader verdicts — for offline review. It never stores chat
// history or answer content (spec §6.1 non-goal).
package audit

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/norrsken-ai/svarmotor/internal/logger"
	"github.com/norrsken-ai/svarmotor/internal/types"
)

type retrievalMetricsRow struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	RequestID     string
	Strategy      string
	TopScore      float64
	LatencyMS     int64
	NumResults    int
	FusionGain    *float64
	OverlapRatio  *float64
	RewriteFailed bool
	CreatedAt     time.Time
}

func (retrievalMetricsRow) TableName() string { return "retrieval_metrics" }

type gradeResultRow struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	RequestID  string
	DocID      string
	Relevant   bool
	Score      float64
	Confidence float64
	Reason     string
	LatencyMS  int64
	CreatedAt  time.Time
}

func (gradeResultRow) TableName() string { return "grade_results" }

// Store records retrieval and grading diagnostics for a given request.
type Store struct {
	db *gorm.DB
}

// New wraps a gorm.DB already migrated with the schema in migrations/.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// RecordRetrieval writes one retrieval strategy's diagnostics row. Failures
// are logged and swallowed: audit logging must never fail a user request.
func (s *Store) RecordRetrieval(ctx context.Context, requestID string, m types.RetrievalMetrics) {
	row := retrievalMetricsRow{
		RequestID:     requestID,
		Strategy:      string(m.Strategy),
		TopScore:      m.TopScore,
		LatencyMS:     m.LatencyMS,
		NumResults:    m.NumResults,
		FusionGain:    m.FusionGain,
		OverlapRatio:  m.OverlapRatio,
		RewriteFailed: m.RewriteFailed,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		logger.Warnf(ctx, "audit: record retrieval metrics failed: %v", err)
	}
}

// RecordGrade writes one grader verdict row.
func (s *Store) RecordGrade(ctx context.Context, requestID string, g types.GradeResult) {
	row := gradeResultRow{
		RequestID:  requestID,
		DocID:      g.DocID,
		Relevant:   g.Relevant,
		Score:      g.Score,
		Confidence: g.Confidence,
		Reason:     g.Reason,
		LatencyMS:  g.LatencyMS,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		logger.Warnf(ctx, "audit: record grade result failed: %v", err)
	}
}
