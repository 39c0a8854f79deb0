package api

import (
	"time"

	"github.com/thegeek/eml-reader/internal/eml"
	"github.com/thegeek/eml-reader/internal/events"
	"github.com/thegeek/eml-reader/internal/thread"
)

// APIResponse is the standard response envelope.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError is the error detail in a response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned by the API.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeInvalidEML      = "INVALID_EML"
	CodeThreadNotFound  = "THREAD_NOT_FOUND"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	CodeInternalError   = "INTERNAL_ERROR"
)

// ProcessRequest is the JSON body accepted by POST /api/process when the
// message is not uploaded as a multipart file.
type ProcessRequest struct {
	EMLContent string `json:"eml_content" validate:"required"`
}

// ProcessResponse is the result of processing one EML message.
type ProcessResponse struct {
	Filename       string                `json:"filename,omitempty"`
	Summary        eml.RecordSummary     `json:"summary"`
	Record         *eml.Record           `json:"record"`
	Classification thread.Classification `json:"classification"`
	ThreadID       string                `json:"thread_id"`
}

// StatusResponse reports service identity and liveness.
type StatusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// ThreadListResponse wraps a set of thread summaries.
type ThreadListResponse struct {
	Threads []thread.Summary `json:"threads"`
	Total   int              `json:"total"`
}

// SearchResponse wraps search results with the query that produced them.
type SearchResponse struct {
	Query   string           `json:"query"`
	Threads []thread.Summary `json:"threads"`
	Total   int              `json:"total"`
}

// ActivityResponse wraps recent activity events for a thread.
type ActivityResponse struct {
	ThreadID string         `json:"thread_id,omitempty"`
	Events   []events.Event `json:"events"`
	Total    int            `json:"total"`
}

// TimelineResponse wraps a thread's chronological view.
type TimelineResponse struct {
	ThreadID string                 `json:"thread_id"`
	Entries  []thread.TimelineEntry `json:"entries"`
	Total    int                    `json:"total"`
}
