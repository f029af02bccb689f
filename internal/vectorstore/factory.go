package vectorstore

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/norrsken-ai/svarmotor/internal/types/interfaces"
)

// Backend selects which VectorStore implementation to construct.
type Backend string

const (
	BackendQdrant   Backend = "qdrant"
	BackendPgvector Backend = "pgvector"
	BackendMemory   Backend = "memory"
)

// Config configures the primary VectorStore backend.
type Config struct {
	Backend Backend
	Qdrant  QdrantConfig
	DB      *gorm.DB
}

// New builds the configured VectorStore backend (spec §6.4). BackendMemory
// returns an empty in-process fixture; it never errors so that a corpus-less
// local run (tests, first-boot, demos) always has a usable store, same as
// the teacher's in-memory fallback when no external store is configured.
func New(cfg Config) (interfaces.VectorStore, error) {
	switch cfg.Backend {
	case BackendQdrant:
		return NewQdrantStore(cfg.Qdrant)
	case BackendPgvector:
		if cfg.DB == nil {
			return nil, fmt.Errorf("pgvector backend requires a database connection")
		}
		return NewPgVectorStore(cfg.DB), nil
	case BackendMemory, "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store backend: %s", cfg.Backend)
	}
}
