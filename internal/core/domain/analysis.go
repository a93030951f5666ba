package domain

import (
	"fmt"
	"strings"
	"time"
)

// UploadedFile is a fully buffered upload. It is never mutated after ingestion.
type UploadedFile struct {
	Data     []byte
	MimeType string
	Filename string
	Size     int64
}

func NewUploadedFile(filename, mimeType string, data []byte) UploadedFile {
	return UploadedFile{
		Data:     data,
		MimeType: mimeType,
		Filename: filename,
		Size:     int64(len(data)),
	}
}

type ExtractionMethod string

const (
	MethodPDFText          ExtractionMethod = "pdf-text"
	MethodImageOCR         ExtractionMethod = "image-ocr"
	MethodImageOCRFallback ExtractionMethod = "image-ocr-fallback"
)

type ExtractionResult struct {
	Text     string           `json:"text"`
	Method   ExtractionMethod `json:"method"`
	Pages    int              `json:"pages"`
	Duration time.Duration    `json:"duration"`
}

type TaskKind string

const (
	TaskClassify TaskKind = "classify"
	TaskAnalyze  TaskKind = "analyze"
)

// AnalysisTask selects the prompt template, gateway parameters and response
// schema. Jurisdiction is only meaningful for TaskAnalyze.
type AnalysisTask struct {
	Kind         TaskKind
	Jurisdiction string
}

func ClassifyTask() AnalysisTask {
	return AnalysisTask{Kind: TaskClassify}
}

func AnalyzeTask(jurisdiction string) AnalysisTask {
	return AnalysisTask{Kind: TaskAnalyze, Jurisdiction: strings.TrimSpace(jurisdiction)}
}

func (t AnalysisTask) Validate() error {
	switch t.Kind {
	case TaskClassify:
		return nil
	case TaskAnalyze:
		if t.Jurisdiction == "" {
			return WrapError(ErrInvalidInput, "analysis task", fmt.Errorf("jurisdiction is required"))
		}
		return nil
	default:
		return WrapError(ErrInvalidInput, "analysis task", fmt.Errorf("unknown task kind %q", t.Kind))
	}
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type Classification struct {
	IsPOA      bool       `json:"isPOA"`
	POAType    *string    `json:"poaType"`
	Confidence Confidence `json:"confidence"`
}

type ExtractedFields struct {
	PrincipalAddress  *string  `json:"principalAddress"`
	AgentAddress      *string  `json:"agentAddress"`
	PrincipalName     *string  `json:"principalName"`
	AgentNames        []string `json:"agentNames"`
	SuccessorAgents   []string `json:"successorAgents"`
	StateJurisdiction []string `json:"stateJurisdiction"`
	ExecutionDate     *string  `json:"executionDate"`
	NotarizationDate  *string  `json:"notarizationDate"`
	SignatureDetected bool     `json:"signatureDetected"`
}

type Analysis struct {
	ExtractedFields   ExtractedFields `json:"extractedFields"`
	Summary           string          `json:"summary"`
	OverallAssessment string          `json:"overallAssessment"`
	Strengths         []string        `json:"strengths"`
	Issues            []string        `json:"issues"`
	Recommendations   []string        `json:"recommendations"`
	Disclaimer        string          `json:"disclaimer"`
}

// FillEmpty replaces nil sequences with empty ones so encoded results never
// drop a field.
func (a *Analysis) FillEmpty() {
	a.ExtractedFields.AgentNames = nonNil(a.ExtractedFields.AgentNames)
	a.ExtractedFields.SuccessorAgents = nonNil(a.ExtractedFields.SuccessorAgents)
	a.ExtractedFields.StateJurisdiction = nonNil(a.ExtractedFields.StateJurisdiction)
	a.Strengths = nonNil(a.Strengths)
	a.Issues = nonNil(a.Issues)
	a.Recommendations = nonNil(a.Recommendations)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

type ImageMetadata struct {
	Width  int
	Height int
	Format string
}

type TransformOptions struct {
	// MaxDimension caps the longer side; zero keeps the original size.
	MaxDimension int
	Grayscale    bool
	Normalize    bool
	Sharpen      float64
}

type OCROptions struct {
	PageSegmentationMode int
	EngineMode           int
}

type PDFText struct {
	Text  string
	Pages int
}
