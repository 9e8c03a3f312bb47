package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ikonstantinov/document-research-assistant/internal/config"
	"github.com/ikonstantinov/document-research-assistant/internal/core/ports"
	"github.com/ikonstantinov/document-research-assistant/internal/core/usecase"
	"github.com/ikonstantinov/document-research-assistant/internal/infrastructure/chunking"
	"github.com/ikonstantinov/document-research-assistant/internal/infrastructure/extractor"
	"github.com/ikonstantinov/document-research-assistant/internal/infrastructure/extractor/imagefile"
	"github.com/ikonstantinov/document-research-assistant/internal/infrastructure/extractor/pdffile"
	"github.com/ikonstantinov/document-research-assistant/internal/infrastructure/extractor/plaintext"
	"github.com/ikonstantinov/document-research-assistant/internal/infrastructure/extractor/spreadsheet"
	"github.com/ikonstantinov/document-research-assistant/internal/infrastructure/llm/gemini"
	"github.com/ikonstantinov/document-research-assistant/internal/infrastructure/llm/ollama"
	"github.com/ikonstantinov/document-research-assistant/internal/infrastructure/queue/nats"
	"github.com/ikonstantinov/document-research-assistant/internal/infrastructure/repository/postgres"
	"github.com/ikonstantinov/document-research-assistant/internal/infrastructure/resilience"
	"github.com/ikonstantinov/document-research-assistant/internal/infrastructure/storage/localfs"
	vectormemory "github.com/ikonstantinov/document-research-assistant/internal/infrastructure/vector/memory"
	"github.com/ikonstantinov/document-research-assistant/internal/infrastructure/vector/qdrant"
)

// App holds every wired component shared by the API and worker binaries.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Documents ports.DocumentRepository
	Themes    ports.ThemeRepository

	Ingest    ports.DocumentIngestor
	Processor ports.DocumentProcessor
	Directory ports.DocumentDirectory
	Query     ports.QueryService
	ThemeSvc  ports.ThemeService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	documents := postgres.NewDocumentRepository(db)
	if err := documents.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	themes := postgres.NewThemeRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel).WithExecutor(executor)
	embedder := ollama.NewEmbedder(ollamaClient)

	var (
		generator ports.TextGenerator
		vision    ports.VisionGenerator
	)
	switch strings.ToLower(cfg.LLMProvider) {
	case "gemini":
		geminiClient, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			queue.Close()
			_ = db.Close()
			return nil, fmt.Errorf("init gemini: %w", err)
		}
		generator = geminiClient
		vision = geminiClient
	default:
		generator = ollama.NewGenerator(ollamaClient)
		if cfg.GeminiAPIKey != "" {
			geminiClient, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
			if err != nil {
				queue.Close()
				_ = db.Close()
				return nil, fmt.Errorf("init gemini: %w", err)
			}
			vision = geminiClient
		}
	}

	var index ports.VectorIndex
	if strings.ToLower(cfg.VectorBackend) == "memory" {
		index = vectormemory.NewIndex()
	} else {
		index = qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, embedder)
	}

	genCfg := ports.GenerateConfig{
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
	}

	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	registry := extractor.NewRegistry()
	registry.Register(plaintext.NewExtractor(storage), "text/plain", "text/markdown", "text/csv")
	registry.Register(pdffile.NewExtractor(storage), "application/pdf")
	registry.Register(spreadsheet.NewExtractor(storage),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel",
	)
	registry.RegisterImages(imagefile.NewExtractor(storage, vision, cfg.OCREnabled))

	synthesizer := usecase.NewAnswerSynthesizer(generator, genCfg)
	themeSynth := usecase.NewThemeSynthesizer(generator, genCfg, logger)

	ingest := usecase.NewIngestDocumentUseCase(documents, storage, queue)
	processor := usecase.NewProcessDocumentUseCase(documents, registry, chunker, index, storage, logger)
	directory := usecase.NewDocumentDirectoryUseCase(documents, index, storage, logger)
	query := usecase.NewQueryOrchestrator(documents, index, storage, synthesizer, vision, themeSynth, cfg.SearchLimit, logger)
	themeSvc := usecase.NewThemeUseCase(themes, documents, index, themeSynth, logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:     queue,
		Documents: documents,
		Themes:    themes,

		Ingest:    ingest,
		Processor: processor,
		Directory: directory,
		Query:     query,
		ThemeSvc:  themeSvc,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
