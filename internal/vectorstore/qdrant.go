// Package vectorstore implements the VectorStore port (spec §6.4) against
// Qdrant (primary ANN backend), Postgres/pgvector (secondary backend), and
// Elasticsearch (BM25 keyword-fusion leg for RAG_FUSION), generalized from
// the teacher's qdrantRepository point/payload shape.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/norrsken-ai/svarmotor/internal/logger"
	"github.com/norrsken-ai/svarmotor/internal/types/interfaces"
)

// QdrantConfig configures the primary ANN vector store.
type QdrantConfig struct {
	Host           string
	Port           int
	APIKey         string
	UseTLS         bool
	CollectionName string
}

// QdrantStore performs k-NN search over a Qdrant collection.
type QdrantStore struct {
	client         *qdrant.Client
	collectionName string
}

// NewQdrantStore dials a Qdrant instance and binds to a collection.
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}
	return &QdrantStore{client: client, collectionName: cfg.CollectionName}, nil
}

// EnsureCollection creates the bound collection with cosine distance if it
// does not already exist.
func (s *QdrantStore) EnsureCollection(ctx context.Context, dimensions int) error {
	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

// Upsert writes one chunk's embedding and payload into the collection.
func (s *QdrantStore) Upsert(ctx context.Context, id string, vector []float32, payload map[string]interface{}) error {
	values, err := qdrant.TryValueMap(payload)
	if err != nil {
		return fmt.Errorf("convert payload: %w", err)
	}
	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(id),
		Vectors: qdrant.NewVectors(vector...),
		Payload: values,
	}
	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("upsert point %s: %w", id, err)
	}
	return nil
}

// Search performs cosine k-NN search, optionally filtered by payload
// equality conditions (spec §6.4: filters keyed by document metadata).
func (s *QdrantStore) Search(ctx context.Context, vector []float32, k int, filters map[string]interface{}) ([]interfaces.VectorHit, error) {
	query := &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          ptrUint64(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if len(filters) > 0 {
		query.Filter = buildFilter(filters)
	}

	points, err := s.client.Query(ctx, query)
	if err != nil {
		logger.Errorf(ctx, "qdrant query on %s failed: %v", s.collectionName, err)
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	hits := make([]interfaces.VectorHit, 0, len(points))
	for _, p := range points {
		hits = append(hits, interfaces.VectorHit{
			ID:      pointIDToString(p.Id),
			Payload: payloadToMap(p.Payload),
			Score:   float64(p.Score),
		})
	}
	return hits, nil
}

func buildFilter(filters map[string]interface{}) *qdrant.Filter {
	conds := make([]*qdrant.Condition, 0, len(filters))
	for key, val := range filters {
		if v, ok := val.(string); ok {
			conds = append(conds, qdrant.NewMatch(key, v))
		}
	}
	return &qdrant.Filter{Must: conds}
}

func ptrUint64(v uint64) *uint64 { return &v }

func pointIDToString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uid := id.GetUuid(); uid != "" {
		return uid
	}
	return fmt.Sprintf("%d", id.GetNum())
}

func payloadToMap(payload map[string]*qdrant.Value) map[string]interface{} {
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		out[k] = qdrantValueToAny(v)
	}
	return out
}

func qdrantValueToAny(v *qdrant.Value) interface{} {
	if v == nil {
		return nil
	}
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	default:
		return nil
	}
}
