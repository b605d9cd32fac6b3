package models

import "time"

// Document is an uploaded source file belonging to one Evaluation.
type Document struct {
	ID                  string
	EvaluationRequestID string
	Filename            string
	OriginalName        string
	// Path is a local filesystem path or an s3://bucket/key URI.
	Path string
	// Type is the declared kind, e.g. "transcript" or "diploma".
	Type     string
	Mimetype string
	Size     int64
	// ParsedData is nil until ingestion succeeds.
	ParsedData *ParsedData
	CreatedAt  time.Time
}

// ParsedData is the normalized content produced by ingestion.
type ParsedData struct {
	Content   string `json:"content"`
	PageCount int    `json:"pageCount"`
	// Checksum is the hex blake2b-256 of Content.
	Checksum string    `json:"checksum"`
	ParsedAt time.Time `json:"parsedAt"`
}

// Ingested reports whether the document carries non-empty parsed content.
func (d *Document) Ingested() bool {
	return d.ParsedData != nil && d.ParsedData.Content != ""
}
