package domain

import (
	"encoding/json"
	"time"
)

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

const DefaultSection = "general"

type Document struct {
	ID             string          `json:"id"`
	Section        string          `json:"section"`
	Name           string          `json:"name"`
	MimeType       string          `json:"type"`
	Size           int64           `json:"size"`
	StoragePath    string          `json:"file_path"`
	Status         DocumentStatus  `json:"status"`
	Classification *Classification `json:"classification,omitempty"`
	Jurisdiction   string          `json:"jurisdiction,omitempty"`
	Analysis       json.RawMessage `json:"analysis_data,omitempty"`
	Error          string          `json:"error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (d *Document) HasAnalysis() bool {
	return d != nil && len(d.Analysis) > 0
}

// DocumentFilter narrows List results.
type DocumentFilter struct {
	Section string
	Limit   int
}
