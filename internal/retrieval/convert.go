package retrieval

import (
	"time"

	"github.com/norrsken-ai/svarmotor/internal/types"
	"github.com/norrsken-ai/svarmotor/internal/types/interfaces"
)

// hitToResult maps one raw VectorStore hit to a SearchResult, tagging it
// with the retrieval step that produced it for escalation-path auditing.
func hitToResult(hit interfaces.VectorHit, retrieverTag string) types.SearchResult {
	r := types.SearchResult{
		ID:           hit.ID,
		Score:        normalizeTo01(hit.Score),
		RetrieverTag: retrieverTag,
	}
	if v, ok := hit.Payload["title"].(string); ok {
		r.Title = v
	}
	if v, ok := hit.Payload["snippet"].(string); ok {
		r.Snippet = v
	}
	if v, ok := hit.Payload["content"].(string); ok {
		r.Text = v
	} else if v, ok := hit.Payload["text"].(string); ok {
		r.Text = v
	}
	if v, ok := hit.Payload["source"].(string); ok {
		r.Source = v
	}
	if v, ok := hit.Payload["doc_type"].(string); ok {
		r.DocType = v
	}
	if v, ok := hit.Payload["date"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			r.Date = parsed
		}
	}
	return r
}
