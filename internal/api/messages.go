package api

import "time"

type Document struct {
	ID           string     `json:"id,omitempty"`
	Filename     string     `json:"filename"`
	OriginalName string     `json:"originalName,omitempty"`
	Path         string     `json:"path"`
	Type         string     `json:"type,omitempty"`
	Mimetype     string     `json:"mimetype"`
	Size         int64      `json:"size"`
	Ingested     bool       `json:"ingested"`
	PageCount    int        `json:"pageCount,omitempty"`
	Checksum     string     `json:"checksum,omitempty"`
	ParsedAt     *time.Time `json:"parsedAt,omitempty"`
}

type Revision struct {
	ID           string    `json:"id"`
	EvaluationID string    `json:"evaluationId"`
	Seq          int64     `json:"seq"`
	Status       string    `json:"status"`
	Actor        string    `json:"actor"`
	Timestamp    time.Time `json:"timestamp"`
	Note         *string   `json:"note,omitempty"`
}

type Assignment struct {
	ID           string    `json:"id"`
	EvaluationID string    `json:"evaluationId"`
	AssignedTo   string    `json:"assignedTo"`
	AssignedBy   string    `json:"assignedBy"`
	AssignedAt   time.Time `json:"assignedAt"`
}

type Event struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Status      string    `json:"status,omitempty"`
	Date        time.Time `json:"date"`
	User        string    `json:"user"`
	Description string    `json:"description,omitempty"`
	Note        *string   `json:"note,omitempty"`
}

type SubmitRequest struct {
	StudentID               string     `json:"studentId"`
	CountryCode             string     `json:"countryCode"`
	EvaluationType          string     `json:"evaluationType"`
	Institution             string     `json:"institution"`
	Program                 string     `json:"program"`
	AssignedTo              string     `json:"assignedTo,omitempty"`
	EstimatedCompletionDate *time.Time `json:"estimatedCompletionDate,omitempty"`
	Notes                   *string    `json:"notes,omitempty"`
	Documents               []Document `json:"documents,omitempty"`
}

type SubmitResponse struct {
	EvaluationID string     `json:"evaluationId"`
	Revision     Revision   `json:"revision"`
	Documents    []Document `json:"documents,omitempty"`
}

type TransitionRequest struct {
	EvaluationID string  `json:"evaluationId"`
	Status       string  `json:"status"`
	Note         *string `json:"note,omitempty"`
}

type TransitionResponse struct {
	Revision Revision `json:"revision"`
}

type AssignRequest struct {
	EvaluationID string `json:"evaluationId"`
	Evaluator    string `json:"evaluator"`
}

type AssignResponse struct {
	Assignment Assignment `json:"assignment"`
}

type HistoryRequest struct {
	EvaluationID string `json:"evaluationId"`
}

type HistoryResponse struct {
	Current   string     `json:"current"`
	Revisions []Revision `json:"revisions"`
}

type TimelineRequest struct {
	EvaluationID string `json:"evaluationId"`
}

type TimelineResponse struct {
	Events []Event `json:"events"`
}

type IngestRequest struct {
	DocumentID string `json:"documentId"`
	Async      bool   `json:"async,omitempty"`
}

type IngestResponse struct {
	DocumentID string    `json:"documentId"`
	Queued     bool      `json:"queued"`
	Document   *Document `json:"document,omitempty"`
}

type GradingScale struct {
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Passing     float64 `json:"passing"`
	Descending  bool    `json:"descending"`
	Description string  `json:"description,omitempty"`
}

type Equivalence struct {
	Local      string `json:"local"`
	Equivalent string `json:"equivalent"`
}

type Rules struct {
	CountryCode       string        `json:"countryCode"`
	EducationSystem   string        `json:"educationSystem"`
	GradingScale      GradingScale  `json:"gradingScale"`
	DegreeEquivalence []Equivalence `json:"degreeEquivalence"`
}

type RulesRequest struct {
	CountryCode string `json:"countryCode"`
}

type RulesResponse struct {
	Rules Rules `json:"rules"`
}

type InvalidateRulesRequest struct {
	CountryCode string `json:"countryCode"`
}

type Empty struct{}

// ErrorResponse is the HTTP error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
