package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

var documentRowColumns = []string{
	"id", "section", "name", "mime_type", "size", "storage_path", "status",
	"is_poa", "poa_type", "confidence", "jurisdiction", "analysis_data", "error_message",
	"created_at", "updated_at",
}

func newRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestCreateInsertsDocument(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO documents").
		WithArgs("doc-1", "general", "poa.pdf", "application/pdf", int64(42), "general/doc-1_poa.pdf", "uploaded", "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &domain.Document{
		ID: "doc-1", Section: "general", Name: "poa.pdf", MimeType: "application/pdf", Size: 42,
		StoragePath: "general/doc-1_poa.pdf", Status: domain.StatusUploaded, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, section, name, mime_type").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDScansClassificationAndAnalysis(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(documentRowColumns).AddRow(
		"doc-1", "general", "poa.pdf", "application/pdf", int64(10), "k", "ready",
		true, "Durable Power of Attorney", "high", "Texas", []byte(`{"summary":"ok"}`), "",
		now, now,
	)
	mock.ExpectQuery("SELECT id, section").WithArgs("doc-1").WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.Classification == nil || !doc.Classification.IsPOA || doc.Classification.POAType == nil || *doc.Classification.POAType != "Durable Power of Attorney" {
		t.Fatalf("unexpected classification: %+v", doc.Classification)
	}
	if doc.Classification.Confidence != domain.ConfidenceHigh || doc.Jurisdiction != "Texas" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if string(doc.Analysis) != `{"summary":"ok"}` {
		t.Fatalf("unexpected analysis %s", doc.Analysis)
	}
}

func TestGetByIDLeavesUnclassifiedDocumentEmpty(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(documentRowColumns).AddRow(
		"doc-2", "general", "scan.png", "image/png", int64(10), "k", "uploaded",
		nil, nil, nil, "", nil, "",
		now, now,
	)
	mock.ExpectQuery("SELECT id, section").WithArgs("doc-2").WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "doc-2")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.Classification != nil || doc.HasAnalysis() {
		t.Fatalf("expected no classification or analysis, got %+v", doc)
	}
}

func TestListFiltersBySectionNewestFirst(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(documentRowColumns).
		AddRow("b", "wills", "b.pdf", "application/pdf", int64(1), "k2", "ready", nil, nil, nil, "", nil, "", now, now).
		AddRow("a", "wills", "a.pdf", "application/pdf", int64(1), "k1", "ready", nil, nil, nil, "", nil, "", now.Add(-time.Hour), now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE section = $1 ORDER BY created_at DESC LIMIT $2")).
		WithArgs("wills", 25).
		WillReturnRows(rows)

	docs, err := repo.List(context.Background(), domain.DocumentFilter{Section: "wills", Limit: 25})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "b" || docs[1].ID != "a" {
		t.Fatalf("unexpected documents: %+v", docs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", string(domain.StatusProcessing), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusProcessing, "")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveClassificationWritesNullTypeForNonPOA(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", false, nil, "low", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveClassification(context.Background(), "doc-1", domain.Classification{IsPOA: false, Confidence: domain.ConfidenceLow})
	if err != nil {
		t.Fatalf("SaveClassification() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveAnalysisReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	payload := json.RawMessage(`{"summary":"ok"}`)
	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", "Ohio", []byte(payload), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveAnalysis(context.Background(), "missing", "Ohio", payload)
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestDeleteRemovesRow(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("DELETE FROM documents").WithArgs("doc-1").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(int64(2026101601)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS documents").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
