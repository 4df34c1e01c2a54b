package report

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Retriever looks up literature supporting a recommendation within a topic.
type Retriever interface {
	Retrieve(ctx context.Context, topicKey, query string) (string, error)
}

// EnrichedItem is an Item annotated with its literature citation. Citation is
// empty when the lookup failed or found nothing.
type EnrichedItem struct {
	Item
	Citation string `json:"citation,omitempty"`
}

// RetrievalFailed is the text the retrieval engine prints when its own lookup
// breaks; it is never shown as a citation.
const RetrievalFailed = "（检索出错）"

// Enricher attaches citations to extracted items.
type Enricher struct {
	Retriever Retriever
	// Timeout bounds a single lookup. Zero means no per-item bound.
	Timeout time.Duration
}

// Enrich looks up every item in order, one at a time. A failed lookup yields
// an empty citation for that item only.
func (e *Enricher) Enrich(ctx context.Context, topicKey string, items []Item) []EnrichedItem {
	out := make([]EnrichedItem, 0, len(items))
	for _, it := range items {
		out = append(out, EnrichedItem{Item: it, Citation: e.lookup(ctx, topicKey, it.Recommendation)})
	}
	return out
}

func (e *Enricher) lookup(ctx context.Context, topicKey, query string) string {
	if e == nil || e.Retriever == nil || query == "" {
		return ""
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	citation, err := e.Retriever.Retrieve(ctx, topicKey, query)
	if err != nil {
		slog.Warn("literature lookup failed", "topic", topicKey, "error", err)
		return ""
	}
	citation = strings.TrimSpace(citation)
	if citation == RetrievalFailed {
		return ""
	}
	return citation
}
