package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

type analyzerFake struct {
	cls          *domain.Classification
	analysis     *domain.Analysis
	err          error
	lastFile     domain.UploadedFile
	jurisdiction string
}

func (f *analyzerFake) Classify(_ context.Context, file domain.UploadedFile) (*domain.Classification, error) {
	f.lastFile = file
	if f.err != nil {
		return nil, f.err
	}
	return f.cls, nil
}

func (f *analyzerFake) Analyze(_ context.Context, file domain.UploadedFile, jurisdiction string) (*domain.Analysis, error) {
	f.lastFile = file
	f.jurisdiction = jurisdiction
	if f.err != nil {
		return nil, f.err
	}
	return f.analysis, nil
}

func storedDocument(repo *documentRepoFake, storage *ingestStorageFake) {
	repo.docs["doc-1"] = &domain.Document{ID: "doc-1", Name: "poa.pdf", MimeType: "application/pdf", StoragePath: "general/doc-1_poa.pdf"}
	storage.savedKey = "general/doc-1_poa.pdf"
	storage.savedBody = "%PDF"
}

func TestProcessByIDSuccess(t *testing.T) {
	repo := newDocumentRepoFake()
	storage := &ingestStorageFake{}
	storedDocument(repo, storage)
	poaType := "General Power of Attorney"
	analyzer := &analyzerFake{cls: &domain.Classification{IsPOA: true, POAType: &poaType, Confidence: domain.ConfidenceHigh}}
	uc := NewProcessDocumentUseCase(repo, storage, analyzer)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(repo.statusCalls) != 2 {
		t.Fatalf("expected 2 status calls, got %d", len(repo.statusCalls))
	}
	if repo.statusCalls[0].status != domain.StatusProcessing || repo.statusCalls[1].status != domain.StatusReady {
		t.Fatalf("unexpected status sequence: %+v", repo.statusCalls)
	}
	if repo.docs["doc-1"].Classification == nil || !repo.docs["doc-1"].Classification.IsPOA {
		t.Fatalf("expected classification saved")
	}
	if analyzer.lastFile.Filename != "poa.pdf" || string(analyzer.lastFile.Data) != "%PDF" {
		t.Fatalf("analyzer received unexpected file: %+v", analyzer.lastFile)
	}
}

func TestProcessByIDMarksFailedOnClassifyError(t *testing.T) {
	repo := newDocumentRepoFake()
	storage := &ingestStorageFake{}
	storedDocument(repo, storage)
	uc := NewProcessDocumentUseCase(repo, storage, &analyzerFake{err: domain.WrapError(domain.ErrPDFParse, "extract pdf", errors.New("bad xref"))})

	err := uc.ProcessByID(context.Background(), "doc-1")
	if !errors.Is(err, domain.ErrPDFParse) {
		t.Fatalf("expected ErrPDFParse, got %v", err)
	}
	last := repo.statusCalls[len(repo.statusCalls)-1]
	if last.status != domain.StatusFailed || !strings.Contains(last.errMsg, "bad xref") {
		t.Fatalf("expected failed status with message, got %+v", last)
	}
}

func TestProcessByIDMissingDocument(t *testing.T) {
	repo := newDocumentRepoFake()
	uc := NewProcessDocumentUseCase(repo, &ingestStorageFake{}, &analyzerFake{})

	err := uc.ProcessByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestProcessByIDReportsFailedStatusError(t *testing.T) {
	repo := newDocumentRepoFake()
	repo.failStatusErr = errors.New("db down")
	uc := NewProcessDocumentUseCase(repo, &ingestStorageFake{}, &analyzerFake{})

	err := uc.ProcessByID(context.Background(), "missing")
	if err == nil || !strings.Contains(err.Error(), "mark failed status: db down") {
		t.Fatalf("expected combined error, got %v", err)
	}
}
