// Package api exposes the EML processing and thread analysis endpoints.
// Handlers are a thin presentation layer: all real work happens in the
// eml and thread packages.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/thegeek/eml-reader/internal/eml"
	"github.com/thegeek/eml-reader/internal/events"
	"github.com/thegeek/eml-reader/internal/logger"
	"github.com/thegeek/eml-reader/internal/metrics"
	"github.com/thegeek/eml-reader/internal/sanitizer"
	"github.com/thegeek/eml-reader/internal/thread"
)

// Version is the service version reported by the status endpoint.
const Version = "0.1.0"

// Handler handles HTTP requests for EML processing and thread analysis.
type Handler struct {
	parser     *eml.Parser
	classifier *thread.Classifier
	registry   *thread.Registry
	bus        events.Bus
	sanitizer  *sanitizer.HTMLSanitizer
	validate   *validator.Validate
	logger     *slog.Logger
	maxUpload  int64
}

// NewHandler creates a new Handler instance. The bus may be nil; activity
// events are then dropped.
func NewHandler(registry *thread.Registry, bus events.Bus, log *slog.Logger, maxUpload int64) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		parser:     eml.NewParser(),
		classifier: thread.NewClassifier(),
		registry:   registry,
		bus:        bus,
		sanitizer:  sanitizer.New(),
		validate:   validator.New(),
		logger:     log,
		maxUpload:  maxUpload,
	}
}

// Status handles GET /api/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, StatusResponse{
		Status:  "running",
		Service: "EML Reader Server",
		Version: Version,
	})
}

// Process handles POST /api/process. It accepts either a multipart upload
// with a "file" field or a JSON body with an eml_content field; the parsed
// record is classified and ingested into the registry in one step.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logger.WithRequestID(r.Context(), h.logger)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	raw, filename, err := h.readPayload(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Uploaded message exceeds the size limit")
			return
		}
		h.writeError(w, http.StatusBadRequest, CodeValidationError, err.Error())
		return
	}

	rec, err := h.parser.Parse(raw)
	if err != nil {
		var parseErr *eml.ParseError
		stage := "parse"
		if errors.As(err, &parseErr) {
			stage = parseErr.Stage
		}
		metrics.ParseFailures.WithLabelValues(stage).Inc()
		log.Warn("EML parse failed", slog.String("stage", stage), slog.String("error", err.Error()))
		h.writeError(w, http.StatusBadRequest, CodeInvalidEML, "Invalid EML content: "+err.Error())
		return
	}

	// HTML bodies are sanitized before leaving the service.
	rec.Body.HTML = h.sanitizer.Sanitize(rec.Body.HTML)

	classification := h.classifier.Classify(rec)
	threadID := h.registry.Ingest(rec)
	h.publishIngest(threadID, rec)

	metrics.EmailsProcessed.WithLabelValues("http").Inc()
	metrics.MessagesIngested.Inc()
	metrics.ProcessingDuration.Observe(time.Since(start).Seconds())

	log.Info("EML message processed",
		slog.String("thread_id", threadID),
		slog.Int("attachments", len(rec.Attachments)),
		slog.Int64("size_bytes", rec.RawSize),
	)

	h.writeJSON(w, http.StatusOK, ProcessResponse{
		Filename:       filename,
		Summary:        eml.Summarize(rec),
		Record:         rec,
		Classification: classification,
		ThreadID:       threadID,
	})
}

// readPayload extracts raw EML bytes from either a multipart upload or a
// JSON body.
func (h *Handler) readPayload(r *http.Request) (raw []byte, filename string, err error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, formErr := r.FormFile("file")
		if formErr != nil {
			return nil, "", errors.New("no file provided")
		}
		defer file.Close()

		raw, err = io.ReadAll(file)
		if err != nil {
			return nil, "", err
		}
		return raw, header.Filename, nil
	}

	var req ProcessRequest
	if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
		return nil, "", decodeErr
	}
	if validateErr := h.validate.Struct(&req); validateErr != nil {
		return nil, "", errors.New("no EML content provided")
	}
	return []byte(req.EMLContent), "", nil
}

// publishIngest emits activity events for an ingested message. A thread
// whose only message is the one just added was created by it.
func (h *Handler) publishIngest(threadID string, rec *eml.Record) {
	if h.bus == nil {
		return
	}

	subject := rec.Headers.Common["subject"]
	if summary, ok := h.registry.Summary(threadID); ok && summary.MessageCount == 1 {
		if err := h.bus.Publish(events.NewThreadCreated(threadID, rec.Metadata.MessageID, subject)); err != nil {
			h.logger.Warn("failed to publish event", slog.String("error", err.Error()))
		}
	}
	if err := h.bus.Publish(events.NewMessageIngested(threadID, rec.Metadata.MessageID, subject)); err != nil {
		h.logger.Warn("failed to publish event", slog.String("error", err.Error()))
	}
}

// Activity handles GET /api/activity. With thread_id it returns recent
// events for that thread; since narrows to events after a known event ID.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		h.writeJSON(w, http.StatusOK, ActivityResponse{Events: []events.Event{}})
		return
	}

	threadID := r.URL.Query().Get("thread_id")
	if threadID == "" {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "query parameter thread_id is required")
		return
	}

	evts, err := h.bus.Recent(threadID, r.URL.Query().Get("since"))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, CodeInternalError, "failed to read activity")
		return
	}
	h.writeJSON(w, http.StatusOK, ActivityResponse{
		ThreadID: threadID,
		Events:   evts,
		Total:    len(evts),
	})
}

// ListThreads handles GET /api/threads.
func (h *Handler) ListThreads(w http.ResponseWriter, r *http.Request) {
	summaries := h.registry.AllSummaries()
	h.writeJSON(w, http.StatusOK, ThreadListResponse{
		Threads: summaries,
		Total:   len(summaries),
	})
}

// SearchThreads handles GET /api/threads/search?q=...
func (h *Handler) SearchThreads(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "query parameter q is required")
		return
	}

	matches := h.registry.Search(query)
	h.writeJSON(w, http.StatusOK, SearchResponse{
		Query:   query,
		Threads: matches,
		Total:   len(matches),
	})
}

// GetThread handles GET /api/threads/{id}.
func (h *Handler) GetThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "id")

	summary, ok := h.registry.Summary(threadID)
	if !ok {
		h.writeError(w, http.StatusNotFound, CodeThreadNotFound, "Thread not found")
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// GetTimeline handles GET /api/threads/{id}/timeline.
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "id")

	if _, ok := h.registry.Summary(threadID); !ok {
		h.writeError(w, http.StatusNotFound, CodeThreadNotFound, "Thread not found")
		return
	}

	entries := h.registry.Timeline(threadID)
	h.writeJSON(w, http.StatusOK, TimelineResponse{
		ThreadID: threadID,
		Entries:  entries,
		Total:    len(entries),
	})
}

// writeJSON writes a success envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError writes an error envelope.
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := APIResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message},
		Timestamp: time.Now().UTC(),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode error response", slog.String("error", err.Error()))
	}
}
