package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/norrsken-ai/svarmotor/internal/logger"
	"github.com/norrsken-ai/svarmotor/internal/types/interfaces"
)

// chunkEmbeddingRow is the gorm model backing the pgvector-secondary store.
type chunkEmbeddingRow struct {
	ID        string `gorm:"primaryKey"`
	Content   string
	Payload   string `gorm:"type:jsonb"`
	Embedding pgvector.Vector `gorm:"type:vector"`
}

func (chunkEmbeddingRow) TableName() string { return "chunk_embeddings" }

// PgVectorStore performs cosine k-NN search over a Postgres/pgvector table,
// selectable as a secondary VectorStore backend alongside Qdrant (spec §6.4).
type PgVectorStore struct {
	db *gorm.DB
}

// NewPgVectorStore wraps a gorm.DB already configured for the pgvector extension.
func NewPgVectorStore(db *gorm.DB) *PgVectorStore {
	return &PgVectorStore{db: db}
}

// Upsert writes one chunk's embedding and payload into the table.
func (s *PgVectorStore) Upsert(ctx context.Context, id, content string, vector []float32, payload map[string]interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	row := chunkEmbeddingRow{
		ID:        id,
		Content:   content,
		Payload:   string(payloadJSON),
		Embedding: pgvector.NewVector(vector),
	}
	return s.db.WithContext(ctx).Save(&row).Error
}

// Search performs cosine k-NN search via the <=> operator. filters apply as
// equality conditions against JSONB payload keys.
func (s *PgVectorStore) Search(ctx context.Context, vector []float32, k int, filters map[string]interface{}) ([]interfaces.VectorHit, error) {
	vec := pgvector.NewVector(vector)
	query := `
		SELECT id, content, payload, 1 - (embedding <=> @vec) AS score
		FROM chunk_embeddings`
	args := map[string]interface{}{"vec": vec, "k": k}

	i := 0
	for key, val := range filters {
		s, ok := val.(string)
		if !ok {
			continue
		}
		if i == 0 {
			query += " WHERE "
		} else {
			query += " AND "
		}
		keyArg := fmt.Sprintf("key%d", i)
		valArg := fmt.Sprintf("val%d", i)
		query += fmt.Sprintf("payload ->> @%s = @%s", keyArg, valArg)
		args[keyArg] = key
		args[valArg] = s
		i++
	}

	query += " ORDER BY embedding <=> @vec LIMIT @k"

	var rows []struct {
		ID      string
		Content string
		Payload string
		Score   float64
	}
	if err := s.db.WithContext(ctx).Raw(query, args).Scan(&rows).Error; err != nil {
		logger.Errorf(ctx, "pgvector search failed: %v", err)
		return nil, fmt.Errorf("pgvector search: %w", err)
	}

	hits := make([]interfaces.VectorHit, 0, len(rows))
	for _, r := range rows {
		var payload map[string]interface{}
		_ = json.Unmarshal([]byte(r.Payload), &payload)
		if payload == nil {
			payload = map[string]interface{}{}
		}
		payload["content"] = r.Content
		hits = append(hits, interfaces.VectorHit{ID: r.ID, Payload: payload, Score: r.Score})
	}
	return hits, nil
}
