// Package grader implements the CRAG-style relevance filter (spec §4.3):
// an LLM judge scores each retrieved document, bounded-concurrent, and the
// orchestrator keeps only documents clearing grade_threshold.
package grader

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/norrsken-ai/svarmotor/internal/cache"
	"github.com/norrsken-ai/svarmotor/internal/logger"
	"github.com/norrsken-ai/svarmotor/internal/types"
	"github.com/norrsken-ai/svarmotor/internal/types/interfaces"
)

const defaultInFlight = 8

// Config configures the grader's behavior.
type Config struct {
	Enabled      bool
	Threshold    float64
	InFlight     int
	ReflectionOn bool
}

// Service grades retrieved documents for relevance and, optionally, asks a
// self-reflection question over the filtered set.
type Service struct {
	model  interfaces.GraderModel
	config Config
	pool   *ants.Pool
	cache  *cache.Cache
}

// New constructs a Service with its own bounded worker pool.
func New(model interfaces.GraderModel, cfg Config) (*Service, error) {
	inFlight := cfg.InFlight
	if inFlight <= 0 {
		inFlight = defaultInFlight
	}
	pool, err := ants.NewPool(inFlight)
	if err != nil {
		return nil, fmt.Errorf("create grader pool: %w", err)
	}
	return &Service{model: model, config: cfg, pool: pool}, nil
}

// WithCache attaches a read-through verdict cache (spec §5). Grading a
// (question, chunk) pair the cache has already seen skips the judge call
// entirely. Returns s for chaining at construction time.
func (s *Service) WithCache(c *cache.Cache) *Service {
	s.cache = c
	return s
}

// Close releases the worker pool.
func (s *Service) Close() {
	s.pool.Release()
}

// Result is the outcome of grading one retrieval pass.
type Result struct {
	Kept       []types.SearchResult
	Grades     []types.GradeResult
	Refuse     bool
	Reflection *types.CriticReflection
}

// Grade filters results by LLM-judged relevance, bounded at Config.InFlight
// concurrent judge calls. When grading is disabled, results pass through
// unchanged (spec §4.3).
func (s *Service) Grade(ctx context.Context, question string, results []types.SearchResult) (Result, error) {
	if !s.config.Enabled {
		return Result{Kept: results}, nil
	}

	threshold := s.config.Threshold
	if threshold <= 0 {
		threshold = 0.3
	}

	grades := make([]types.GradeResult, len(results))
	errs := make([]error, len(results))

	var wg sync.WaitGroup
	for i, doc := range results {
		i, doc := i, doc
		wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			if s.cache != nil {
				if cached, ok := s.cache.GetGrade(ctx, question, doc.ID); ok {
					grades[i] = cached
					return
				}
			}
			grade, err := s.model.Grade(ctx, question, doc)
			if err != nil {
				errs[i] = err
				return
			}
			grade.DocID = doc.ID
			grades[i] = grade
			if s.cache != nil {
				s.cache.SetGrade(ctx, question, doc.ID, grade)
			}
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submit grading task: %w", submitErr)
		}
	}
	wg.Wait()

	kept := make([]types.SearchResult, 0, len(results))
	keptGrades := make([]types.GradeResult, 0, len(results))
	for i, doc := range results {
		if errs[i] != nil {
			logger.Warnf(ctx, "grading document %s failed: %v", doc.ID, errs[i])
			continue
		}
		keptGrades = append(keptGrades, grades[i])
		if grades[i].Relevant && grades[i].Score >= threshold {
			kept = append(kept, doc)
		}
	}

	if len(kept) == 0 {
		return Result{Kept: nil, Grades: keptGrades, Refuse: true}, nil
	}

	if !s.config.ReflectionOn {
		return Result{Kept: kept, Grades: keptGrades}, nil
	}

	reflection, err := s.model.Reflect(ctx, question, kept)
	if err != nil {
		logger.Warnf(ctx, "self-reflection failed: %v", err)
		return Result{Kept: kept, Grades: keptGrades}, nil
	}
	if !reflection.HasSufficientEvidence {
		return Result{Kept: kept, Grades: keptGrades, Refuse: true, Reflection: &reflection}, nil
	}
	return Result{Kept: kept, Grades: keptGrades, Reflection: &reflection}, nil
}
