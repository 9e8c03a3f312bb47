package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
)

// Index is an in-process vector index substitute for local development
// and tests. Ranking is lexical term overlap rather than embeddings, which
// is enough to exercise the retrieval path without external services.
type Index struct {
	mu     sync.RWMutex
	chunks map[string][]domain.Chunk
}

func NewIndex() *Index {
	return &Index{chunks: make(map[string][]domain.Chunk)}
}

func (idx *Index) Add(_ context.Context, documentID string, chunks []domain.Chunk) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	stored := make([]domain.Chunk, len(chunks))
	copy(stored, chunks)
	idx.chunks[documentID] = stored
	return nil
}

func (idx *Index) Search(_ context.Context, query string, documentIDs []string, limit int) ([]domain.SearchResult, error) {
	terms := tokenize(query)
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	wanted := make(map[string]bool, len(documentIDs))
	for _, id := range documentIDs {
		wanted[id] = true
	}

	var scored []domain.SearchResult
	for docID, chunks := range idx.chunks {
		if len(wanted) > 0 && !wanted[docID] {
			continue
		}
		for _, chunk := range chunks {
			score := overlap(terms, tokenize(chunk.Content))
			if score == 0 {
				continue
			}
			scored = append(scored, domain.SearchResult{
				ID:       chunk.ID,
				Content:  chunk.Content,
				Metadata: chunk.Metadata,
				Distance: 1 - score,
			})
		}
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Distance < scored[j].Distance })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (idx *Index) Delete(_ context.Context, documentID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.chunks, documentID)
	return nil
}

func (idx *Index) Get(_ context.Context, documentID string) ([]domain.SearchResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	chunks := idx.chunks[documentID]
	out := make([]domain.SearchResult, len(chunks))
	for i, chunk := range chunks {
		out[i] = domain.SearchResult{
			ID:       chunk.ID,
			Content:  chunk.Content,
			Metadata: chunk.Metadata,
		}
	}
	return out, nil
}

func tokenize(text string) map[string]bool {
	terms := make(map[string]bool)
	for _, field := range strings.Fields(strings.ToLower(text)) {
		field = strings.Trim(field, ".,;:!?\"'()[]")
		if len(field) > 2 {
			terms[field] = true
		}
	}
	return terms
}

// overlap is the fraction of query terms present in the chunk.
func overlap(query, chunk map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}
	hits := 0
	for term := range query {
		if chunk[term] {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}
