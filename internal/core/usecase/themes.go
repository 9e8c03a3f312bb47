package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
	"github.com/ikonstantinov/document-research-assistant/internal/core/ports"
)

// ThemeSynthesizer identifies cross-document themes from per-document
// answers and produces one synthesized narrative. Unusable answers (failed,
// empty, or image-error sentinels) are filtered before prompting; if nothing
// survives the filter no model call is made.
type ThemeSynthesizer struct {
	generator ports.TextGenerator
	genCfg    ports.GenerateConfig
	logger    *slog.Logger
}

func NewThemeSynthesizer(generator ports.TextGenerator, genCfg ports.GenerateConfig, logger *slog.Logger) *ThemeSynthesizer {
	return &ThemeSynthesizer{
		generator: generator,
		genCfg:    genCfg,
		logger:    logger,
	}
}

// themePayload mirrors the JSON structure the prompt asks the model for.
type themePayload struct {
	Themes []struct {
		ThemeName           string  `json:"theme_name"`
		Description         string  `json:"description"`
		SupportingDocuments []int   `json:"supporting_documents"`
		ConfidenceScore     float64 `json:"confidence_score"`
	} `json:"themes"`
	SynthesizedAnswer string `json:"synthesized_answer"`
}

func (s *ThemeSynthesizer) Identify(ctx context.Context, query string, answers []domain.DocumentAnswer) (*domain.SynthesizedResponse, error) {
	usable := filterUsable(answers)
	response := &domain.SynthesizedResponse{
		Query:     query,
		Documents: answers,
		Metadata: map[string]string{
			"total_documents":  fmt.Sprintf("%d", len(answers)),
			"usable_documents": fmt.Sprintf("%d", len(usable)),
		},
	}
	if len(usable) == 0 {
		response.Answer = "No relevant information found in the selected documents."
		return response, nil
	}

	raw, err := s.generator.Generate(ctx, buildThemePrompt(query, usable), s.genCfg)
	if err != nil {
		return nil, domain.WrapError(domain.ErrProvider, "identify themes", err)
	}

	var payload themePayload
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		// The model answered in prose; keep it as the narrative.
		s.logger.WarnContext(ctx, "theme_payload_not_json", slog.String("error", err.Error()))
		response.Answer = strings.TrimSpace(raw)
		return response, nil
	}

	response.Answer = strings.TrimSpace(payload.SynthesizedAnswer)
	for _, t := range payload.Themes {
		theme := domain.IdentifiedTheme{
			Name:        strings.TrimSpace(t.ThemeName),
			Description: strings.TrimSpace(t.Description),
			Confidence:  domain.ClampConfidence(t.ConfidenceScore),
		}
		if theme.Name == "" {
			continue
		}
		// supporting_documents are 1-based positions into the prompt's
		// document list; out-of-range references are dropped.
		for _, ordinal := range t.SupportingDocuments {
			if ordinal < 1 || ordinal > len(usable) {
				continue
			}
			theme.DocumentIDs = append(theme.DocumentIDs, usable[ordinal-1].DocumentID)
		}
		response.Themes = append(response.Themes, theme)
	}
	return response, nil
}

func filterUsable(answers []domain.DocumentAnswer) []domain.DocumentAnswer {
	usable := make([]domain.DocumentAnswer, 0, len(answers))
	for _, a := range answers {
		text := strings.TrimSpace(a.Answer)
		switch {
		case a.Failed:
		case text == "":
		case strings.Contains(text, "Could not process image"):
		case strings.HasPrefix(text, "Error processing image"):
		default:
			usable = append(usable, a)
		}
	}
	return usable
}

func buildThemePrompt(query string, usable []domain.DocumentAnswer) string {
	var docs strings.Builder
	for i, a := range usable {
		docs.WriteString(fmt.Sprintf("Document %d (%s):\n%s\n\n", i+1, a.DocumentName, a.Answer))
	}

	return fmt.Sprintf(`Identify the common themes across these document answers to the query: %q

%s
Respond with ONLY valid JSON in this exact shape:
{
  "themes": [
    {
      "theme_name": "short theme title",
      "description": "what the theme covers",
      "supporting_documents": [1, 2],
      "confidence_score": 0.0
    }
  ],
  "synthesized_answer": "a single combined answer across all documents"
}

supporting_documents are the 1-based document numbers above. confidence_score
is between 0 and 1. Do not wrap the JSON in markdown fences.
`, query, docs.String())
}

// stripCodeFence removes a surrounding markdown code fence if present; models
// frequently wrap JSON despite instructions.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// ThemeUseCase is CRUD plus analysis over persisted themes. Updates are
// guarded by optimistic concurrency: the caller supplies the version it
// read and a stale version is a conflict, not an overwrite.
type ThemeUseCase struct {
	themes       ports.ThemeRepository
	documents    ports.DocumentRepository
	index        ports.VectorIndex
	synthesizer  *ThemeSynthesizer
	analyzeQuery string
	logger       *slog.Logger
}

func NewThemeUseCase(
	themes ports.ThemeRepository,
	documents ports.DocumentRepository,
	index ports.VectorIndex,
	synthesizer *ThemeSynthesizer,
	logger *slog.Logger,
) *ThemeUseCase {
	return &ThemeUseCase{
		themes:       themes,
		documents:    documents,
		index:        index,
		synthesizer:  synthesizer,
		analyzeQuery: "What are the main topics, arguments, and findings in this document?",
		logger:       logger,
	}
}

func (uc *ThemeUseCase) Create(ctx context.Context, theme domain.Theme) (*domain.Theme, error) {
	const op = "create theme"

	theme.Name = strings.TrimSpace(theme.Name)
	if theme.Name == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("empty theme name"))
	}
	theme.ID = uuid.NewString()
	theme.Version = 1
	theme.Keywords = domain.NormalizeKeywords(theme.Keywords)
	theme.Confidence = domain.ClampConfidence(theme.Confidence)
	now := time.Now().UTC()
	theme.CreatedAt = now
	theme.UpdatedAt = now

	if err := uc.themes.Create(ctx, &theme); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &theme, nil
}

func (uc *ThemeUseCase) GetByID(ctx context.Context, id string) (*domain.Theme, error) {
	return uc.themes.GetByID(ctx, id)
}

func (uc *ThemeUseCase) List(ctx context.Context) ([]domain.Theme, error) {
	return uc.themes.List(ctx)
}

func (uc *ThemeUseCase) Update(ctx context.Context, id string, patch domain.ThemePatch, expectedVersion int) (*domain.Theme, error) {
	const op = "update theme"

	if expectedVersion < 1 {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("expected version must be positive"))
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("empty theme name"))
	}
	if patch.Keywords != nil {
		normalized := domain.NormalizeKeywords(*patch.Keywords)
		patch.Keywords = &normalized
	}
	if patch.Confidence != nil {
		clamped := domain.ClampConfidence(*patch.Confidence)
		patch.Confidence = &clamped
	}

	updated, err := uc.themes.Update(ctx, id, patch, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

func (uc *ThemeUseCase) Delete(ctx context.Context, id string) error {
	return uc.themes.Delete(ctx, id)
}

// Analyze runs theme synthesis over the content of the given documents and
// persists every theme above minConfidence, capped at maxThemes.
func (uc *ThemeUseCase) Analyze(ctx context.Context, documentIDs []string, minConfidence float64, maxThemes int) ([]domain.Theme, error) {
	const op = "analyze themes"

	if len(documentIDs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("no document ids"))
	}
	if maxThemes <= 0 {
		maxThemes = 10
	}

	documents, err := uc.documents.GetByIDs(ctx, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(documents) == 0 {
		return nil, domain.WrapError(domain.ErrNotFound, op, fmt.Errorf("no documents matched"))
	}

	answers := make([]domain.DocumentAnswer, 0, len(documents))
	for _, doc := range documents {
		chunks, err := uc.index.Get(ctx, doc.ID)
		if err != nil {
			uc.logger.WarnContext(ctx, "analyze_fetch_failed",
				slog.String("document_id", doc.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		answers = append(answers, domain.DocumentAnswer{
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			Answer:       joinChunks(chunks),
		})
	}

	synthesis, err := uc.synthesizer.Identify(ctx, uc.analyzeQuery, answers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	var persisted []domain.Theme
	for _, identified := range synthesis.Themes {
		if identified.Confidence < minConfidence {
			continue
		}
		if len(persisted) >= maxThemes {
			break
		}
		theme := domain.Theme{
			ID:          uuid.NewString(),
			Name:        identified.Name,
			Description: identified.Description,
			DocumentIDs: identified.DocumentIDs,
			Confidence:  identified.Confidence,
			Version:     1,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := uc.themes.Create(ctx, &theme); err != nil {
			return persisted, fmt.Errorf("%s: %w", op, err)
		}
		persisted = append(persisted, theme)
	}
	return persisted, nil
}

func joinChunks(results []domain.SearchResult) string {
	var b strings.Builder
	for _, r := range results {
		b.WriteString(r.Content)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
