package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
	"github.com/kirillkom/poa-analyzer/internal/core/prompt"
)

type extractorFake struct {
	text  string
	err   error
	delay time.Duration
	calls int
}

func (f *extractorFake) Extract(ctx context.Context, _ domain.UploadedFile) (domain.ExtractionResult, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.ExtractionResult{}, domain.WrapError(domain.ErrOCR, "extract image", ctx.Err())
		}
	}
	if f.err != nil {
		return domain.ExtractionResult{}, f.err
	}
	return domain.ExtractionResult{Text: f.text, Method: domain.MethodPDFText, Pages: 1}, nil
}

type gatewayFake struct {
	response string
	err      error
	calls    int
	system   string
	user     string
	task     domain.AnalysisTask
}

func (f *gatewayFake) Complete(_ context.Context, system, user string, task domain.AnalysisTask) (string, error) {
	f.calls++
	f.system = system
	f.user = user
	f.task = task
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type observerFake struct {
	mu          sync.Mutex
	extractions []domain.ExtractionMethod
	completions []domain.TaskKind
}

func (f *observerFake) ObserveExtraction(method domain.ExtractionMethod, _ time.Duration, _ error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extractions = append(f.extractions, method)
}

func (f *observerFake) ObserveCompletion(task domain.TaskKind, _ time.Duration, _ error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completions = append(f.completions, task)
}

func pdfUpload(size int) domain.UploadedFile {
	return domain.NewUploadedFile("poa.pdf", "application/pdf", make([]byte, size))
}

func TestPipelineClassifySuccess(t *testing.T) {
	extractor := &extractorFake{text: "DURABLE POWER OF ATTORNEY"}
	gateway := &gatewayFake{response: "```json\n{\"isPOA\":true,\"poaType\":\"Durable Power of Attorney\",\"confidence\":\"high\"}\n```"}
	observer := &observerFake{}
	p := NewAnalysisPipeline(extractor, gateway, observer, PipelineConfig{})

	cls, err := p.Classify(context.Background(), pdfUpload(64))
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if !cls.IsPOA || cls.POAType == nil || *cls.POAType != "Durable Power of Attorney" {
		t.Fatalf("unexpected classification: %+v", cls)
	}
	if gateway.task.Kind != domain.TaskClassify {
		t.Fatalf("expected classify task, got %s", gateway.task.Kind)
	}
	want := prompt.Build(domain.ClassifyTask(), "DURABLE POWER OF ATTORNEY")
	if gateway.system != want.System || gateway.user != want.User {
		t.Fatalf("gateway received unexpected prompt pair")
	}
	if len(observer.extractions) != 1 || observer.extractions[0] != domain.MethodPDFText {
		t.Fatalf("expected extraction observation, got %v", observer.extractions)
	}
	if len(observer.completions) != 1 || observer.completions[0] != domain.TaskClassify {
		t.Fatalf("expected completion observation, got %v", observer.completions)
	}
}

func TestPipelineAnalyzeEmbedsJurisdiction(t *testing.T) {
	extractor := &extractorFake{text: "I, Jane Doe, appoint John Roe."}
	gateway := &gatewayFake{response: `{"extractedFields":{"principalName":"Jane Doe","agentNames":["John Roe"],"signatureDetected":false},"summary":"Appoints an agent.","disclaimer":"Not legal advice."}`}
	p := NewAnalysisPipeline(extractor, gateway, nil, PipelineConfig{})

	analysis, err := p.Analyze(context.Background(), pdfUpload(32), " California ")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !strings.Contains(gateway.user, "State: California") {
		t.Fatalf("expected jurisdiction in prompt, got %q", gateway.user)
	}
	if analysis.Summary != "Appoints an agent." || analysis.Issues == nil {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}
}

func TestPipelineAnalyzeRequiresJurisdiction(t *testing.T) {
	extractor := &extractorFake{text: "text"}
	p := NewAnalysisPipeline(extractor, &gatewayFake{}, nil, PipelineConfig{})

	_, err := p.Analyze(context.Background(), pdfUpload(10), "   ")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if extractor.calls != 0 {
		t.Fatalf("extractor must not run without jurisdiction")
	}
}

func TestPipelineRejectsOversizedFileBeforeExtraction(t *testing.T) {
	extractor := &extractorFake{text: "text"}
	gateway := &gatewayFake{}
	p := NewAnalysisPipeline(extractor, gateway, nil, PipelineConfig{MaxUploadBytes: 1024})

	_, err := p.Classify(context.Background(), pdfUpload(1025))
	if !errors.Is(err, domain.ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if extractor.calls != 0 || gateway.calls != 0 {
		t.Fatalf("oversized file reached extractor=%d gateway=%d", extractor.calls, gateway.calls)
	}
}

func TestPipelineRejectsMissingFile(t *testing.T) {
	extractor := &extractorFake{text: "text"}
	p := NewAnalysisPipeline(extractor, &gatewayFake{}, nil, PipelineConfig{})

	_, err := p.Classify(context.Background(), domain.UploadedFile{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if extractor.calls != 0 {
		t.Fatalf("extractor must not run for empty upload")
	}
}

func TestPipelineExtractionErrorSkipsGateway(t *testing.T) {
	extractor := &extractorFake{err: domain.WrapError(domain.ErrUnsupportedType, "extract", errors.New("received: text/plain"))}
	gateway := &gatewayFake{}
	p := NewAnalysisPipeline(extractor, gateway, nil, PipelineConfig{})

	_, err := p.Classify(context.Background(), pdfUpload(10))
	if !errors.Is(err, domain.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if gateway.calls != 0 {
		t.Fatalf("gateway must not be called after extraction failure")
	}
}

func TestPipelineMalformedResponseKeepsRaw(t *testing.T) {
	gateway := &gatewayFake{response: "Sorry, I cannot help with that."}
	p := NewAnalysisPipeline(&extractorFake{text: "text"}, gateway, nil, PipelineConfig{})

	_, err := p.Classify(context.Background(), pdfUpload(10))
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if raw, ok := domain.RawResponse(err); !ok || raw != gateway.response {
		t.Fatalf("expected raw response preserved, got %q", raw)
	}
}

func TestPipelineGatewayErrorPassesThrough(t *testing.T) {
	gateway := &gatewayFake{err: domain.WrapError(domain.ErrGateway, "openai classify", errors.New("openai status 500"))}
	p := NewAnalysisPipeline(&extractorFake{text: "text"}, gateway, nil, PipelineConfig{})

	_, err := p.Classify(context.Background(), pdfUpload(10))
	if !errors.Is(err, domain.ErrGateway) || errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected plain gateway error, got %v", err)
	}
}

func TestPipelineRequestBudgetBecomesTimeout(t *testing.T) {
	extractor := &extractorFake{text: "text", delay: time.Second}
	gateway := &gatewayFake{}
	p := NewAnalysisPipeline(extractor, gateway, nil, PipelineConfig{RequestTimeout: 20 * time.Millisecond})

	_, err := p.Classify(context.Background(), pdfUpload(10))
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if errors.Is(err, domain.ErrOCR) {
		t.Fatalf("budget timeout must not be reported as an OCR failure: %v", err)
	}
	if gateway.calls != 0 {
		t.Fatalf("gateway must not run after budget expiry")
	}
}
