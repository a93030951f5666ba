package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/poa-analyzer/internal/config"
	"github.com/kirillkom/poa-analyzer/internal/core/ports"
	"github.com/kirillkom/poa-analyzer/internal/core/usecase"
	"github.com/kirillkom/poa-analyzer/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/poa-analyzer/internal/infrastructure/extractor/document"
	"github.com/kirillkom/poa-analyzer/internal/infrastructure/imaging/preprocess"
	"github.com/kirillkom/poa-analyzer/internal/infrastructure/llm/ollama"
	openaigw "github.com/kirillkom/poa-analyzer/internal/infrastructure/llm/openai"
	"github.com/kirillkom/poa-analyzer/internal/infrastructure/ocr/tesseract"
	"github.com/kirillkom/poa-analyzer/internal/infrastructure/pdf/pdftext"
	"github.com/kirillkom/poa-analyzer/internal/infrastructure/queue/nats"
	"github.com/kirillkom/poa-analyzer/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/poa-analyzer/internal/infrastructure/resilience"
	"github.com/kirillkom/poa-analyzer/internal/infrastructure/storage/localfs"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	Analyzer  ports.POAAnalyzer
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	Documents ports.DocumentManager

	closeFn func()
}

// New wires the full service: pipeline, document store, object storage and
// the upload queue.
func New(ctx context.Context, cfg config.Config, observer ports.PipelineObserver) (*App, error) {
	pipeline, err := NewPipeline(cfg, observer)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		Name:               "poa-analyzer",
		ResilienceExecutor: resilience.NewExecutor(resilienceConfig(cfg)),
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue, cfg.MaxUploadBytes)
	processUC := usecase.NewProcessDocumentUseCase(repo, storage, pipeline)
	documents := usecase.NewDocumentService(repo, storage, pipeline, xlsx.NewExporter())

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		Analyzer:  pipeline,
		IngestUC:  ingestUC,
		ProcessUC: processUC,
		Documents: documents,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// NewPipeline wires only the extraction and completion path. The CLI uses it
// directly; it needs no database or queue.
func NewPipeline(cfg config.Config, observer ports.PipelineObserver) (*usecase.AnalysisPipeline, error) {
	gateway, err := newGateway(cfg)
	if err != nil {
		return nil, err
	}

	extractor := document.NewExtractor(
		pdftext.NewDecoder(),
		preprocess.NewProcessor(),
		tesseract.NewEngine(tesseract.Config{
			Binary:        cfg.TesseractBin,
			MaxConcurrent: cfg.OCRMaxConcurrent,
		}),
		document.Config{
			MaxImageDimension: cfg.MaxImageDimension,
			Language:          cfg.OCRLanguage,
			OCRTimeout:        cfg.OCRTimeout,
			FallbackTimeout:   cfg.OCRFallback,
		},
	)

	return usecase.NewAnalysisPipeline(extractor, gateway, observer, usecase.PipelineConfig{
		MaxUploadBytes: cfg.MaxUploadBytes,
		RequestTimeout: cfg.RequestTimeout,
	}), nil
}

func newGateway(cfg config.Config) (ports.CompletionGateway, error) {
	executor := resilience.NewExecutor(resilienceConfig(cfg))

	switch cfg.LLMProvider {
	case "", ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			slog.Warn("openai_key_missing", "hint", "set OPENAI_API_KEY; completion calls will fail")
		}
		classify := openaigw.DefaultClassifyParams()
		classify.Model = cfg.OpenAIClassifyModel
		classify.Timeout = cfg.ClassifyTimeout
		analyze := openaigw.DefaultAnalyzeParams()
		analyze.Model = cfg.OpenAIAnalyzeModel
		analyze.Timeout = cfg.AnalyzeTimeout

		return openaigw.New(openaigw.Config{
			APIKey:   cfg.OpenAIAPIKey,
			BaseURL:  cfg.OpenAIBaseURL,
			Classify: classify,
			Analyze:  analyze,
		}, executor), nil
	case ProviderOllama:
		return ollama.New(
			cfg.OllamaURL,
			cfg.OllamaGenModel,
			ollama.Options{Timeout: cfg.ClassifyTimeout},
			ollama.Options{Timeout: cfg.AnalyzeTimeout},
			executor,
		), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q (want %s or %s)", cfg.LLMProvider, ProviderOpenAI, ProviderOllama)
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	rc := resilience.DefaultConfig()
	if cfg.ResilienceAttempts > 0 {
		rc.Attempts = uint(cfg.ResilienceAttempts)
	}
	rc.BreakerEnabled = cfg.ResilienceBreakerEnabled
	if cfg.ResilienceBreakerMinReqs > 0 {
		rc.BreakerMinRequests = uint32(cfg.ResilienceBreakerMinReqs)
	}
	if cfg.ResilienceBreakerOpenAfter > 0 {
		rc.BreakerOpenTimeout = cfg.ResilienceBreakerOpenAfter
	}
	return rc
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
