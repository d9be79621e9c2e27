package models

import (
	"time"
)

// ProcessingTask tracks one slide through the pipeline.
type ProcessingTask struct {
	ID        string            `json:"id"`
	Status    ProcessingStatus  `json:"status"`
	Type      string            `json:"type"`
	Priority  int               `json:"priority"`
	Progress  float64           `json:"progress"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty"`
}

type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusRunning   ProcessingStatus = "running"
	StatusCompleted ProcessingStatus = "completed"
	StatusFailed    ProcessingStatus = "failed"
	StatusCancelled ProcessingStatus = "cancelled"
)

// DeidReport is the audit record written after a slide has been
// deidentified. It deliberately carries sizes and keys only; the
// original header contains patient identifiers and is never persisted.
type DeidReport struct {
	TaskID         string    `json:"taskId"`
	SlideKey       string    `json:"slideKey"`
	OutputKey      string    `json:"outputKey"`
	SlideSize      int64     `json:"slideSize"`
	HeaderSize     int       `json:"headerSize"`
	ChunkSize      int       `json:"chunkSize"`
	BarcodeCleared bool      `json:"barcodeCleared"`
	LabelRemoved   bool      `json:"labelRemoved"`
	ProcessedAt    time.Time `json:"processedAt"`
}
