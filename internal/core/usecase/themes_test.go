package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
	"github.com/ikonstantinov/document-research-assistant/internal/core/ports"
)

func TestIdentifySkipsUnusableAnswers(t *testing.T) {
	gen := &generatorFake{response: `{"themes":[],"synthesized_answer":"n/a"}`}
	s := NewThemeSynthesizer(gen, ports.GenerateConfig{}, discardLogger())

	resp, err := s.Identify(context.Background(), "q", []domain.DocumentAnswer{
		{DocumentID: "doc-1", Answer: "", Failed: false},
		{DocumentID: "doc-2", Answer: "Error processing image: open failed", Failed: true},
		{DocumentID: "doc-3", Answer: "Could not process image"},
	})
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if len(gen.prompts) != 0 {
		t.Fatalf("expected no model call for all-unusable input")
	}
	if resp.Answer == "" {
		t.Fatalf("expected fallback narrative")
	}
	if len(resp.Themes) != 0 {
		t.Fatalf("expected no themes, got %+v", resp.Themes)
	}
}

func TestIdentifyMapsSupportingDocuments(t *testing.T) {
	gen := &generatorFake{response: "```json\n" + `{
  "themes": [
    {
      "theme_name": "Regulatory pressure",
      "description": "Both filings discuss new rules.",
      "supporting_documents": [1, 2, 9],
      "confidence_score": 1.4
    },
    {
      "theme_name": "",
      "description": "nameless themes are dropped",
      "supporting_documents": [1],
      "confidence_score": 0.5
    }
  ],
  "synthesized_answer": "Combined view."
}` + "\n```"}
	s := NewThemeSynthesizer(gen, ports.GenerateConfig{}, discardLogger())

	resp, err := s.Identify(context.Background(), "q", []domain.DocumentAnswer{
		{DocumentID: "doc-a", DocumentName: "Filing A", Answer: "rules tightened"},
		{DocumentID: "doc-b", DocumentName: "Filing B", Answer: "compliance costs rose"},
	})
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if resp.Answer != "Combined view." {
		t.Fatalf("unexpected narrative %q", resp.Answer)
	}
	if len(resp.Themes) != 1 {
		t.Fatalf("expected 1 theme, got %d", len(resp.Themes))
	}
	theme := resp.Themes[0]
	if len(theme.DocumentIDs) != 2 || theme.DocumentIDs[0] != "doc-a" || theme.DocumentIDs[1] != "doc-b" {
		t.Fatalf("1-based mapping wrong, out-of-range not dropped: %v", theme.DocumentIDs)
	}
	if theme.Confidence != 1 {
		t.Fatalf("confidence not clamped: %v", theme.Confidence)
	}
}

func TestIdentifyKeepsProseOnInvalidJSON(t *testing.T) {
	gen := &generatorFake{response: "The main theme is fiscal policy across both documents."}
	s := NewThemeSynthesizer(gen, ports.GenerateConfig{}, discardLogger())

	resp, err := s.Identify(context.Background(), "q", []domain.DocumentAnswer{
		{DocumentID: "doc-a", Answer: "something"},
	})
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if resp.Answer != gen.response {
		t.Fatalf("prose fallback lost: %q", resp.Answer)
	}
	if len(resp.Themes) != 0 {
		t.Fatalf("expected no themes from prose")
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
	}
	for _, tc := range cases {
		if got := stripCodeFence(tc.in); got != tc.want {
			t.Fatalf("stripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

type themeRepoFake struct {
	created    []domain.Theme
	createErr  error
	stored     *domain.Theme
	updated    *domain.Theme
	updateErr  error
	deletedID  string
	lastPatch  domain.ThemePatch
	lastExpect int
}

func (f *themeRepoFake) Create(_ context.Context, theme *domain.Theme) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, *theme)
	return nil
}

func (f *themeRepoFake) GetByID(context.Context, string) (*domain.Theme, error) {
	if f.stored == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "get theme", errors.New("missing"))
	}
	return f.stored, nil
}

func (f *themeRepoFake) List(context.Context) ([]domain.Theme, error) { return f.created, nil }

func (f *themeRepoFake) Update(_ context.Context, _ string, patch domain.ThemePatch, expectedVersion int) (*domain.Theme, error) {
	f.lastPatch = patch
	f.lastExpect = expectedVersion
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updated, nil
}

func (f *themeRepoFake) Delete(_ context.Context, id string) error {
	f.deletedID = id
	return nil
}

func TestThemeCreateInitializesVersion(t *testing.T) {
	repo := &themeRepoFake{}
	uc := NewThemeUseCase(repo, &queryRepoFake{}, &queryIndexFake{}, nil, discardLogger())

	theme, err := uc.Create(context.Background(), domain.Theme{
		Name:       "  Supply chains  ",
		Keywords:   []string{"Logistics", "", "SHIPPING"},
		Confidence: 2.5,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if theme.Version != 1 {
		t.Fatalf("expected version 1, got %d", theme.Version)
	}
	if theme.ID == "" {
		t.Fatalf("expected generated id")
	}
	if len(theme.Keywords) != 2 || theme.Keywords[0] != "logistics" || theme.Keywords[1] != "shipping" {
		t.Fatalf("keywords not normalized: %v", theme.Keywords)
	}
	if theme.Confidence != 1 {
		t.Fatalf("confidence not clamped: %v", theme.Confidence)
	}
}

func TestThemeCreateRejectsEmptyName(t *testing.T) {
	uc := NewThemeUseCase(&themeRepoFake{}, &queryRepoFake{}, &queryIndexFake{}, nil, discardLogger())
	if _, err := uc.Create(context.Background(), domain.Theme{Name: "   "}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestThemeUpdatePassesVersionThrough(t *testing.T) {
	repo := &themeRepoFake{updated: &domain.Theme{ID: "t-1", Version: 3}}
	uc := NewThemeUseCase(repo, &queryRepoFake{}, &queryIndexFake{}, nil, discardLogger())

	name := "Renamed"
	updated, err := uc.Update(context.Background(), "t-1", domain.ThemePatch{Name: &name}, 2)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if repo.lastExpect != 2 {
		t.Fatalf("expected version forwarded, got %d", repo.lastExpect)
	}
	if updated.Version != 3 {
		t.Fatalf("expected repository result returned, got %+v", updated)
	}
}

func TestThemeUpdateSurfacesVersionConflict(t *testing.T) {
	conflict := domain.WrapError(domain.ErrVersionConflict, "update theme", errors.New("stale version"))
	repo := &themeRepoFake{updateErr: conflict}
	uc := NewThemeUseCase(repo, &queryRepoFake{}, &queryIndexFake{}, nil, discardLogger())

	name := "x"
	if _, err := uc.Update(context.Background(), "t-1", domain.ThemePatch{Name: &name}, 1); !domain.IsKind(err, domain.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
}

func TestThemeUpdateRejectsBadVersion(t *testing.T) {
	uc := NewThemeUseCase(&themeRepoFake{}, &queryRepoFake{}, &queryIndexFake{}, nil, discardLogger())
	name := "x"
	if _, err := uc.Update(context.Background(), "t-1", domain.ThemePatch{Name: &name}, 0); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for version 0, got %v", err)
	}
}

type analyzeIndexFake struct {
	chunks map[string][]domain.SearchResult
}

func (f *analyzeIndexFake) Add(context.Context, string, []domain.Chunk) error { return nil }

func (f *analyzeIndexFake) Search(context.Context, string, []string, int) ([]domain.SearchResult, error) {
	return nil, nil
}

func (f *analyzeIndexFake) Delete(context.Context, string) error { return nil }

func (f *analyzeIndexFake) Get(_ context.Context, documentID string) ([]domain.SearchResult, error) {
	return f.chunks[documentID], nil
}

func TestAnalyzePersistsConfidentThemes(t *testing.T) {
	gen := &generatorFake{response: `{
  "themes": [
    {"theme_name": "Strong", "description": "d", "supporting_documents": [1], "confidence_score": 0.9},
    {"theme_name": "Weak", "description": "d", "supporting_documents": [1], "confidence_score": 0.2}
  ],
  "synthesized_answer": "ok"
}`}
	synth := NewThemeSynthesizer(gen, ports.GenerateConfig{}, discardLogger())
	docRepo := &queryRepoFake{docs: []domain.Document{textDoc("doc-1", "Report")}}
	index := &analyzeIndexFake{chunks: map[string][]domain.SearchResult{
		"doc-1": {{Content: "chunk one"}, {Content: "chunk two"}},
	}}
	themeRepo := &themeRepoFake{}
	uc := NewThemeUseCase(themeRepo, docRepo, index, synth, discardLogger())

	persisted, err := uc.Analyze(context.Background(), []string{"doc-1"}, 0.5, 10)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(persisted) != 1 || persisted[0].Name != "Strong" {
		t.Fatalf("expected only the confident theme, got %+v", persisted)
	}
	if len(themeRepo.created) != 1 {
		t.Fatalf("expected one persisted theme, got %d", len(themeRepo.created))
	}
	if persisted[0].Version != 1 {
		t.Fatalf("persisted theme should start at version 1")
	}
	if len(persisted[0].DocumentIDs) != 1 || persisted[0].DocumentIDs[0] != "doc-1" {
		t.Fatalf("supporting documents not mapped: %v", persisted[0].DocumentIDs)
	}
}

func TestAnalyzeRequiresDocuments(t *testing.T) {
	uc := NewThemeUseCase(&themeRepoFake{}, &queryRepoFake{}, &queryIndexFake{}, nil, discardLogger())
	if _, err := uc.Analyze(context.Background(), nil, 0, 0); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
