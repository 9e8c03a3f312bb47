package httpadapter

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/ikonstantinov/document-research-assistant/internal/config"
	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
	"github.com/ikonstantinov/document-research-assistant/internal/core/ports"
)

type ingestFake struct {
	err      error
	uploads  []ports.UploadRequest
	lastBody []byte
}

func (f *ingestFake) Upload(_ context.Context, req ports.UploadRequest) (*domain.Document, error) {
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	f.lastBody = raw
	f.uploads = append(f.uploads, req)
	if f.err != nil {
		return nil, f.err
	}

	now := time.Now().UTC()
	return &domain.Document{
		ID:          "doc-1",
		Name:        req.Filename,
		MediaType:   req.MediaType,
		StoragePath: "doc-1_" + req.Filename,
		Status:      domain.StatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type directoryFake struct {
	err     error
	doc     *domain.Document
	listed  []domain.DocumentFilter
	deleted []string
}

func (f *directoryFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.doc != nil {
		return f.doc, nil
	}
	return &domain.Document{ID: id, Name: "a.txt", MediaType: "text/plain", Status: domain.StatusProcessed}, nil
}

func (f *directoryFake) List(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	f.listed = append(f.listed, filter)
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Document{{ID: "doc-1", Name: "a.txt"}}, nil
}

func (f *directoryFake) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

type queryFake struct {
	err      error
	resp     *domain.QueryResponse
	lastIDs  []string
	lastText string
}

func (f *queryFake) Answer(_ context.Context, query string, documentIDs []string) (*domain.QueryResponse, error) {
	f.lastText = query
	f.lastIDs = documentIDs
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &domain.QueryResponse{
		Query: query,
		Documents: []domain.DocumentAnswer{
			{DocumentID: "synthesized_text", Answer: "answer"},
		},
	}, nil
}

func (f *queryFake) AnswerWithThemes(ctx context.Context, query string, documentIDs []string) (*domain.QueryResponse, error) {
	resp, err := f.Answer(ctx, query, documentIDs)
	if err != nil {
		return nil, err
	}
	resp.Synthesized = &domain.SynthesizedResponse{
		Query:  query,
		Answer: "combined",
		Themes: []domain.IdentifiedTheme{{Name: "Contracts", Confidence: 0.8}},
	}
	return resp, nil
}

type themeFake struct {
	err         error
	created     []domain.Theme
	updatedID   string
	updatedWith int
	patch       domain.ThemePatch
	analyzed    [][]string
}

func (f *themeFake) Create(_ context.Context, theme domain.Theme) (*domain.Theme, error) {
	if f.err != nil {
		return nil, f.err
	}
	theme.ID = "theme-1"
	theme.Version = 1
	f.created = append(f.created, theme)
	return &theme, nil
}

func (f *themeFake) GetByID(_ context.Context, id string) (*domain.Theme, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Theme{ID: id, Name: "Contracts", Version: 3}, nil
}

func (f *themeFake) List(_ context.Context) ([]domain.Theme, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Theme{{ID: "theme-1", Name: "Contracts", Version: 1}}, nil
}

func (f *themeFake) Update(_ context.Context, id string, patch domain.ThemePatch, expectedVersion int) (*domain.Theme, error) {
	f.updatedID = id
	f.updatedWith = expectedVersion
	f.patch = patch
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Theme{ID: id, Name: "Contracts", Version: expectedVersion + 1}, nil
}

func (f *themeFake) Delete(_ context.Context, _ string) error {
	return f.err
}

func (f *themeFake) Analyze(_ context.Context, documentIDs []string, _ float64, _ int) ([]domain.Theme, error) {
	f.analyzed = append(f.analyzed, documentIDs)
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Theme{{ID: "theme-1", Name: "Contracts", Confidence: 0.8, Version: 1}}, nil
}

type routerFakes struct {
	ingest    *ingestFake
	directory *directoryFake
	query     *queryFake
	themes    *themeFake
}

func newTestRouter(cfg config.Config, fakes routerFakes) http.Handler {
	if fakes.ingest == nil {
		fakes.ingest = &ingestFake{}
	}
	if fakes.directory == nil {
		fakes.directory = &directoryFake{}
	}
	if fakes.query == nil {
		fakes.query = &queryFake{}
	}
	if fakes.themes == nil {
		fakes.themes = &themeFake{}
	}
	return NewRouter(fakes.ingest, fakes.directory, fakes.query, fakes.themes, nil, cfg, nil).Handler()
}

func newTestHandler(cfg config.Config) http.Handler {
	return newTestRouter(cfg, routerFakes{})
}
