// Command server starts the svarmotor HTTP API (spec §6.1/§6.2): it loads
// configuration, wires every collaborator the Orchestrator drives through a
// go.uber.org/dig container, and serves gin routes until interrupted.
//
// Wiring happens once, here, at process startup. The container builds the
// singleton graph, but nothing downstream performs a container lookup of
// its own: the Orchestrator and every service it drives take explicit
// constructor arguments (internal/orchestrator.Deps), the same discipline
// the teacher's handler/service layer follows with plain struct fields
// instead of a runtime.GetContainer() call inside request handling.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/dig"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/norrsken-ai/svarmotor/internal/audit"
	"github.com/norrsken-ai/svarmotor/internal/cache"
	"github.com/norrsken-ai/svarmotor/internal/config"
	"github.com/norrsken-ai/svarmotor/internal/critic"
	"github.com/norrsken-ai/svarmotor/internal/grader"
	"github.com/norrsken-ai/svarmotor/internal/guardrail"
	"github.com/norrsken-ai/svarmotor/internal/handler"
	"github.com/norrsken-ai/svarmotor/internal/logger"
	"github.com/norrsken-ai/svarmotor/internal/models/chat"
	"github.com/norrsken-ai/svarmotor/internal/models/embedding"
	"github.com/norrsken-ai/svarmotor/internal/models/judge"
	"github.com/norrsken-ai/svarmotor/internal/models/rerank"
	"github.com/norrsken-ai/svarmotor/internal/orchestrator"
	"github.com/norrsken-ai/svarmotor/internal/queryproc"
	"github.com/norrsken-ai/svarmotor/internal/retrieval"
	"github.com/norrsken-ai/svarmotor/internal/telemetry"
	"github.com/norrsken-ai/svarmotor/internal/types"
	"github.com/norrsken-ai/svarmotor/internal/types/interfaces"
	"github.com/norrsken-ai/svarmotor/internal/vectorstore"
)

func main() {
	configPath := flag.String("config", os.Getenv("SVARMOTOR_CONFIG"), "path to a YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, cfg.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, shutdownTelemetry, err := setupTracer(ctx, cfg)
	if err != nil {
		fatalf(ctx, "setup telemetry: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warnf(ctx, "telemetry shutdown: %v", err)
		}
	}()

	container := dig.New()
	if err := buildContainer(container, cfg, tracer); err != nil {
		fatalf(ctx, "build dependency graph: %v", err)
	}

	var (
		router    *gin.Engine
		graderSvc *grader.Service
	)
	err = container.Invoke(func(r *gin.Engine, g *grader.Service) {
		router = r
		graderSvc = g
	})
	if err != nil {
		fatalf(ctx, "wire application: %v", err)
	}
	defer graderSvc.Close()

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}
	go func() {
		logger.Infof(ctx, "listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatalf(ctx, "serve: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info(ctx, "shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warnf(ctx, "graceful shutdown failed: %v", err)
	}
}

func setupTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, telemetry.Shutdown, error) {
	if !cfg.Telemetry.Enabled {
		return otel.Tracer("svarmotor"), func(context.Context) error { return nil }, nil
	}
	return telemetry.Setup(ctx, telemetry.Config{
		ServiceName:  "svarmotor",
		OTLPEndpoint: cfg.Telemetry.OTLPTarget,
	})
}

// buildContainer registers every collaborator constructor with the
// container. Each Provide mirrors one row of SPEC_FULL.md's component
// table; nothing here is invoked until the single Invoke call in main.
func buildContainer(c *dig.Container, cfg *config.Config, tracer trace.Tracer) error {
	provide := func(constructor interface{}, opts ...dig.ProvideOption) error {
		return c.Provide(constructor, opts...)
	}

	if err := provide(func() *config.Config { return cfg }); err != nil {
		return err
	}
	if err := provide(func() trace.Tracer { return tracer }); err != nil {
		return err
	}

	if err := provide(func(cfg *config.Config) (embedding.Embedder, error) {
		return embedding.NewEmbedder(embedding.Config{
			Source:     types.ModelSource(cfg.EmbeddingModel.Source),
			Provider:   cfg.EmbeddingModel.Provider,
			BaseURL:    cfg.EmbeddingModel.BaseURL,
			ModelName:  cfg.EmbeddingModel.ModelName,
			APIKey:     cfg.EmbeddingModel.APIKey,
			Dimensions: cfg.EmbeddingModel.Dimensions,
		})
	}, dig.As(new(interfaces.EmbeddingProvider))); err != nil {
		return err
	}

	if err := provide(func(cfg *config.Config) (chat.Chat, error) {
		return chat.New(chat.Config{
			Source:    types.ModelSource(cfg.ChatModel.Source),
			Provider:  cfg.ChatModel.Provider,
			BaseURL:   cfg.ChatModel.BaseURL,
			ModelName: cfg.ChatModel.ModelName,
			APIKey:    cfg.ChatModel.APIKey,
		})
	}); err != nil {
		return err
	}

	if err := provide(chat.NewGateway, dig.As(new(interfaces.LLMGateway))); err != nil {
		return err
	}

	if err := provide(judge.New, dig.As(
		new(interfaces.GraderModel),
		new(interfaces.CriticModel),
		new(interfaces.RewriteModel),
	)); err != nil {
		return err
	}

	if err := provide(func(cfg *config.Config) (interfaces.VectorStore, error) {
		return newVectorStore(cfg)
	}); err != nil {
		return err
	}

	if err := provide(func(cfg *config.Config) *cache.Cache {
		return newOptionalCache(cfg)
	}); err != nil {
		return err
	}

	if err := provide(retrieval.NewParallelStrategy); err != nil {
		return err
	}
	if err := provide(retrieval.NewRewriteStrategy); err != nil {
		return err
	}
	if err := provide(retrieval.NewFusionStrategy); err != nil {
		return err
	}
	// Decorate (not Provide) the fusion strategy so the keyword-fusion leg is
	// folded into the same singleton AdaptiveStrategy builds on, rather than
	// registering a second, ambiguous *retrieval.FusionStrategy constructor.
	if err := c.Decorate(func(fusion *retrieval.FusionStrategy, cfg *config.Config) (*retrieval.FusionStrategy, error) {
		if cfg.KeywordFusion.Enabled {
			idx, err := vectorstore.NewKeywordIndex(cfg.KeywordFusion.Addresses, cfg.KeywordFusion.Index)
			if err != nil {
				return nil, fmt.Errorf("connect keyword fusion index: %w", err)
			}
			fusion.KeywordIndex = idx
			fusion.KeywordFusionEnabled = true
		}
		return fusion, nil
	}); err != nil {
		return err
	}

	if err := provide(func(fusion *retrieval.FusionStrategy, cfg *config.Config) *retrieval.AdaptiveStrategy {
		return retrieval.NewAdaptiveStrategy(fusion, retrieval.Thresholds{
			MinTopScore:           cfg.Adaptive.MinTopScore,
			MinMargin:             cfg.Adaptive.MinMargin,
			MinMustIncludeHitRate: cfg.Adaptive.MinMustIncludeHitRate,
			MaxNearDuplicateRatio: cfg.Adaptive.MaxNearDuplicateRatio,
		})
	}); err != nil {
		return err
	}

	if err := provide(func(model interfaces.GraderModel, cfg *config.Config, ch *cache.Cache) (*grader.Service, error) {
		svc, err := grader.New(model, grader.Config{
			Enabled:      cfg.CRAG.Enabled,
			Threshold:    cfg.CRAG.GradeThreshold,
			InFlight:     cfg.Concurrency.GraderInFlightCap,
			ReflectionOn: cfg.CRAG.EnableSelfReflection,
		})
		if err != nil {
			return nil, err
		}
		if ch != nil {
			svc = svc.WithCache(ch)
		}
		return svc, nil
	}); err != nil {
		return err
	}

	if err := provide(func(cfg *config.Config) interfaces.Reranker {
		return rerank.New(rerank.FactoryConfig{
			Enabled:   cfg.Rerank.Enabled,
			ModelName: cfg.RerankModel.ModelName,
			APIKey:    cfg.RerankModel.APIKey,
			BaseURL:   cfg.RerankModel.BaseURL,
		})
	}); err != nil {
		return err
	}

	if err := provide(critic.New); err != nil {
		return err
	}

	if err := provide(func(cfg *config.Config) *guardrail.Service {
		return guardrail.New(cfg.Guardrail)
	}); err != nil {
		return err
	}

	if err := provide(func(model interfaces.RewriteModel, ch *cache.Cache) *queryproc.Processor {
		p := queryproc.New(model)
		if ch != nil {
			p = p.WithCache(ch)
		}
		return p
	}); err != nil {
		return err
	}

	if err := provide(func(cfg *config.Config) (*audit.Store, error) {
		return newOptionalAudit(cfg)
	}); err != nil {
		return err
	}

	if err := provide(buildOrchestratorDeps); err != nil {
		return err
	}
	if err := provide(orchestrator.New); err != nil {
		return err
	}

	if err := provide(handler.NewQueryHandler); err != nil {
		return err
	}
	if err := provide(handler.NewSystemHandler); err != nil {
		return err
	}
	if err := provide(handler.NewRouter); err != nil {
		return err
	}

	return nil
}

// buildOrchestratorDeps assembles the strategy map and the rest of
// orchestrator.Deps from individually-typed singletons. This is the one
// place the dig graph and the Orchestrator's plain-struct contract meet:
// everything downstream of this function call receives explicit values,
// never a container reference.
func buildOrchestratorDeps(
	qp *queryproc.Processor,
	parallel *retrieval.ParallelStrategy,
	rewriteStrat *retrieval.RewriteStrategy,
	fusion *retrieval.FusionStrategy,
	adaptive *retrieval.AdaptiveStrategy,
	g *grader.Service,
	reranker interfaces.Reranker,
	llm interfaces.LLMGateway,
	c *critic.Service,
	gr *guardrail.Service,
	cfg *config.Config,
	tracer trace.Tracer,
	auditStore *audit.Store,
) orchestrator.Deps {
	return orchestrator.Deps{
		QueryProcessor: qp,
		Strategies: map[types.RetrievalStrategyTag]retrieval.Strategy{
			types.StrategyParallelV1: parallel,
			types.StrategyRewriteV1:  rewriteStrat,
			types.StrategyRAGFusion:  fusion,
		},
		Adaptive:  adaptive,
		Grader:    g,
		Reranker:  reranker,
		LLM:       llm,
		Critic:    c,
		Guardrail: gr,
		Config:    cfg,
		Tracer:    tracer,
		Audit:     auditStore,
	}
}

func newVectorStore(cfg *config.Config) (interfaces.VectorStore, error) {
	switch vectorstore.Backend(cfg.VectorDatabase.Driver) {
	case vectorstore.BackendPgvector:
		db, err := gorm.Open(postgres.Open(cfg.VectorDatabase.DSN), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("open pgvector database: %w", err)
		}
		return vectorstore.New(vectorstore.Config{Backend: vectorstore.BackendPgvector, DB: db})
	case vectorstore.BackendQdrant:
		host, port := splitHostPort(cfg.VectorDatabase.DSN)
		return vectorstore.New(vectorstore.Config{
			Backend: vectorstore.BackendQdrant,
			Qdrant: vectorstore.QdrantConfig{
				Host:           host,
				Port:           port,
				CollectionName: "svarmotor",
			},
		})
	default:
		return vectorstore.New(vectorstore.Config{Backend: vectorstore.BackendMemory})
	}
}

func splitHostPort(dsn string) (string, int) {
	host, portStr, err := net.SplitHostPort(dsn)
	if err != nil {
		return dsn, 6334
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6334
	}
	return host, port
}

// newOptionalCache builds the decontextualization/grader-verdict cache
// (spec §5) when Redis is configured, or nil otherwise. Both Processor and
// grader.Service treat a nil cache as "disabled" rather than an error.
func newOptionalCache(cfg *config.Config) *cache.Cache {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	return cache.New(client, 15*time.Minute)
}

// newOptionalAudit builds the diagnostic audit store (spec §6.1 non-goal:
// never the answer content itself) when audit is enabled and a database DSN
// is configured, and runs its migrations first.
func newOptionalAudit(cfg *config.Config) (*audit.Store, error) {
	if !cfg.Audit.Enabled || cfg.Audit.DSN == "" {
		return nil, nil
	}
	if err := audit.Migrate("file://migrations", cfg.Audit.DSN); err != nil {
		return nil, fmt.Errorf("run audit migrations: %w", err)
	}
	db, err := gorm.Open(postgres.Open(cfg.Audit.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	return audit.New(db), nil
}

func fatalf(ctx context.Context, format string, args ...interface{}) {
	logger.Errorf(ctx, format, args...)
	os.Exit(1)
}
