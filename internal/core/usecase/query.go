package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
	"github.com/ikonstantinov/document-research-assistant/internal/core/ports"
)

// perDocumentLimit scales the single text-partition search so every
// requested document has room to contribute results.
const perDocumentLimit = 5

// QueryOrchestrator answers a question against a set of documents. Text
// documents share one vector search and one synthesis call; image documents
// each get a vision call against the stored bytes. Per-document failures are
// isolated: a broken image degrades to an error-flagged answer instead of
// failing the query.
type QueryOrchestrator struct {
	repo        ports.DocumentRepository
	index       ports.VectorIndex
	storage     ports.ObjectStorage
	synthesizer *AnswerSynthesizer
	vision      ports.VisionGenerator
	themes      *ThemeSynthesizer
	searchLimit int
	logger      *slog.Logger
}

func NewQueryOrchestrator(
	repo ports.DocumentRepository,
	index ports.VectorIndex,
	storage ports.ObjectStorage,
	synthesizer *AnswerSynthesizer,
	vision ports.VisionGenerator,
	themes *ThemeSynthesizer,
	searchLimit int,
	logger *slog.Logger,
) *QueryOrchestrator {
	if searchLimit <= 0 {
		searchLimit = perDocumentLimit
	}
	return &QueryOrchestrator{
		repo:        repo,
		index:       index,
		storage:     storage,
		synthesizer: synthesizer,
		vision:      vision,
		themes:      themes,
		searchLimit: searchLimit,
		logger:      logger,
	}
}

func (uc *QueryOrchestrator) Answer(ctx context.Context, query string, documentIDs []string) (*domain.QueryResponse, error) {
	const op = "answer query"

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("empty query"))
	}
	if len(documentIDs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("no document ids"))
	}

	documents, err := uc.repo.GetByIDs(ctx, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(documents) == 0 {
		return nil, domain.WrapError(domain.ErrNotFound, op, fmt.Errorf("no documents matched"))
	}

	textDocs, imageDocs := partitionByMedia(documents)
	uc.logger.InfoContext(ctx, "query_partitioned",
		slog.Int("text_documents", len(textDocs)),
		slog.Int("image_documents", len(imageDocs)),
	)

	// Slot 0 holds the combined text answer; image answers follow in
	// request order so output stays deterministic across runs.
	answers := make([]*domain.DocumentAnswer, 1+len(imageDocs))
	var wg sync.WaitGroup

	if len(textDocs) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			answers[0] = uc.answerTextPartition(ctx, query, textDocs)
		}()
	}
	for i, doc := range imageDocs {
		wg.Add(1)
		go func(slot int, doc domain.Document) {
			defer wg.Done()
			answers[slot] = uc.answerImage(ctx, query, doc)
		}(1+i, doc)
	}
	wg.Wait()

	response := &domain.QueryResponse{Query: query}
	for _, answer := range answers {
		if answer != nil {
			response.Documents = append(response.Documents, *answer)
		}
	}
	if len(response.Documents) == 0 {
		return nil, domain.WrapError(domain.ErrNoValidResponses, op, fmt.Errorf("no partition produced an answer"))
	}
	return response, nil
}

// AnswerWithThemes runs Answer and then theme synthesis over the usable
// answers in the same call. Theme failure does not fail the query.
func (uc *QueryOrchestrator) AnswerWithThemes(ctx context.Context, query string, documentIDs []string) (*domain.QueryResponse, error) {
	response, err := uc.Answer(ctx, query, documentIDs)
	if err != nil {
		return nil, err
	}

	synthesis, err := uc.themes.Identify(ctx, query, response.Documents)
	if err != nil {
		uc.logger.WarnContext(ctx, "theme_synthesis_failed", slog.String("error", err.Error()))
		return response, nil
	}
	response.Synthesized = synthesis
	return response, nil
}

func (uc *QueryOrchestrator) answerTextPartition(ctx context.Context, query string, docs []domain.Document) *domain.DocumentAnswer {
	ids := make([]string, len(docs))
	namesByID := make(map[string]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
		namesByID[doc.ID] = doc.Name
	}

	results, err := uc.index.Search(ctx, query, ids, uc.searchLimit*len(docs))
	if err != nil {
		uc.logger.ErrorContext(ctx, "query_search_failed", slog.String("error", err.Error()))
		return failedAnswer(docs, "Error searching documents: "+err.Error())
	}
	if len(results) == 0 {
		return nil
	}

	answer, citations, err := uc.synthesizer.Synthesize(ctx, query, results)
	if err != nil {
		uc.logger.ErrorContext(ctx, "query_synthesis_failed", slog.String("error", err.Error()))
		return failedAnswer(docs, "Error synthesizing answer: "+err.Error())
	}

	return &domain.DocumentAnswer{
		DocumentID:     "synthesized_text",
		DocumentName:   joinNames(docs),
		Answer:         answer,
		Citations:      citations,
		RelevanceScore: topRelevance(results),
	}
}

func (uc *QueryOrchestrator) answerImage(ctx context.Context, query string, doc domain.Document) *domain.DocumentAnswer {
	answer := &domain.DocumentAnswer{
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
	}

	if uc.vision == nil {
		answer.Answer = "Error processing image: no vision provider configured"
		answer.Failed = true
		return answer
	}

	reader, err := uc.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		uc.logger.ErrorContext(ctx, "query_image_open_failed",
			slog.String("document_id", doc.ID),
			slog.String("error", err.Error()),
		)
		answer.Answer = "Error processing image: " + err.Error()
		answer.Failed = true
		return answer
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		answer.Answer = "Error processing image: " + err.Error()
		answer.Failed = true
		return answer
	}

	text, err := uc.vision.GenerateFromImage(ctx, buildImagePrompt(query), doc.MediaType, data)
	if err != nil {
		uc.logger.ErrorContext(ctx, "query_image_generation_failed",
			slog.String("document_id", doc.ID),
			slog.String("error", err.Error()),
		)
		answer.Answer = "Error processing image: " + err.Error()
		answer.Failed = true
		return answer
	}

	answer.Answer = strings.TrimSpace(text)
	answer.RelevanceScore = 1.0
	return answer
}

func buildImagePrompt(query string) string {
	return fmt.Sprintf(`Answer the following question using only what is visible in this image.
If the image does not contain relevant information, say "Could not process image".

Question: %s`, query)
}

func partitionByMedia(docs []domain.Document) (text, images []domain.Document) {
	for _, doc := range docs {
		if strings.HasPrefix(doc.MediaType, "image/") {
			images = append(images, doc)
		} else {
			text = append(text, doc)
		}
	}
	return text, images
}

func failedAnswer(docs []domain.Document, message string) *domain.DocumentAnswer {
	return &domain.DocumentAnswer{
		DocumentID:   "synthesized_text",
		DocumentName: joinNames(docs),
		Answer:       message,
		Failed:       true,
	}
}

func joinNames(docs []domain.Document) string {
	names := make([]string, len(docs))
	for i, doc := range docs {
		names[i] = doc.Name
	}
	return strings.Join(names, ", ")
}

func topRelevance(results []domain.SearchResult) float64 {
	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = 1 - r.Distance
	}
	sort.Float64s(scores)
	if len(scores) == 0 {
		return 0
	}
	return scores[len(scores)-1]
}
