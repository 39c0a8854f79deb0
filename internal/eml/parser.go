// Package eml extracts structured records from raw RFC 5322 / MIME
// messages. It is the ingestion boundary for everything downstream:
// classification, threading and presentation all consume the Record
// shape produced here and never touch raw bytes again.
package eml

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Parser turns raw EML bytes into Records.
type Parser struct{}

// NewParser creates a new Parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse parses raw EML content into a Record. The only error returned is
// unparseable input; degraded sub-parses (bad dates, malformed address
// lists, missing parts) produce empty or default fields instead.
func (p *Parser) Parse(raw []byte) (*Record, error) {
	if len(raw) == 0 {
		return nil, &ParseError{Stage: "parse", Message: "empty EML data"}
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, &ParseError{
			Stage:   "parse",
			Message: fmt.Sprintf("failed to parse EML content: %v", err),
		}
	}
	defer mr.Close()

	headers := extractHeaders(&mr.Header)
	body, attachments := extractParts(mr)

	contentType, ctParams, ctErr := mr.Header.ContentType()
	if ctErr == nil {
		body.ContentType = contentType
		body.Charset = ctParams["charset"]
	}

	rec := &Record{
		ID:          uuid.NewString(),
		Headers:     headers,
		Body:        body,
		Attachments: attachments,
		Metadata:    extractMetadata(&mr.Header),
		RawSize:     int64(len(raw)),
		ParsedAt:    time.Now().UTC(),
	}

	return rec, nil
}

// ParseFile reads and parses an EML file from disk.
func (p *Parser) ParseFile(path string) (*Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{
			Stage:   "read",
			Message: fmt.Sprintf("failed to read EML file %s: %v", path, err),
		}
	}
	return p.Parse(raw)
}

// extractHeaders collects the full header set plus the common subset,
// both keyed by lower-cased name. Values are MIME-word decoded; when
// decoding fails the raw value is kept.
func extractHeaders(h *mail.Header) Headers {
	all := make(map[string]string)

	fields := h.Fields()
	for fields.Next() {
		key := strings.ToLower(fields.Key())
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		// First value wins when a header repeats.
		if _, exists := all[key]; !exists {
			all[key] = value
		}
	}

	common := make(map[string]string)
	for _, name := range commonHeaders {
		if v, ok := all[name]; ok {
			common[name] = v
		}
	}

	return Headers{Common: common, All: all, Count: len(all)}
}

// extractParts walks all MIME parts, splitting them into body content
// (inline text/HTML) and attachments. Unreadable parts are skipped.
func extractParts(mr *mail.Reader) (Body, []Attachment) {
	var body Body
	var attachments []Attachment

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			data, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				body.Text = string(data)
			case strings.HasPrefix(contentType, "text/html"):
				body.HTML = string(data)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			data, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			if contentType == "" || contentType == "application/octet-stream" {
				if detected := mimetype.Detect(data); detected != nil {
					contentType = detected.String()
				}
			}
			attachments = append(attachments, Attachment{
				Filename:           filename,
				ContentType:        contentType,
				Size:               int64(len(data)),
				ContentID:          stripAngles(h.Get("Content-Id")),
				ContentDisposition: h.Get("Content-Disposition"),
				Data:               data,
			})
		}
	}

	return body, attachments
}

// extractMetadata derives the threading-relevant fields. Angle brackets
// around message IDs are stripped; an unparseable Date header leaves
// HasDate false rather than failing.
func extractMetadata(h *mail.Header) Metadata {
	md := Metadata{
		MessageID:  stripAngles(h.Get("Message-Id")),
		InReplyTo:  stripAngles(h.Get("In-Reply-To")),
		References: splitReferences(h.Get("References")),
	}

	if date, err := h.Date(); err == nil && !date.IsZero() {
		md.DateParsed = date.Format(time.RFC3339)
		md.DateTimestamp = date.Unix()
		md.HasDate = true
	}

	return md
}

// Summarize produces a compact per-message view of a Record.
func Summarize(rec *Record) RecordSummary {
	common := rec.Headers.Common
	return RecordSummary{
		Subject:         headerOrDefault(common, "subject", "No Subject"),
		From:            headerOrDefault(common, "from", "Unknown Sender"),
		To:              headerOrDefault(common, "to", "Unknown Recipient"),
		Cc:              common["cc"],
		Date:            headerOrDefault(common, "date", "Unknown Date"),
		HasAttachments:  len(rec.Attachments) > 0,
		AttachmentCount: len(rec.Attachments),
		HasHTML:         rec.Body.HTML != "",
		HasText:         rec.Body.Text != "",
		SizeBytes:       rec.RawSize,
	}
}

func headerOrDefault(headers map[string]string, key, fallback string) string {
	if v := headers[key]; v != "" {
		return v
	}
	return fallback
}

// stripAngles removes a single surrounding <...> pair and whitespace.
func stripAngles(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "<")
	s = strings.TrimSuffix(s, ">")
	return s
}

// splitReferences parses a References header into its ordered list of
// message IDs, brackets stripped.
func splitReferences(refs string) []string {
	if strings.TrimSpace(refs) == "" {
		return nil
	}
	var out []string
	for _, ref := range strings.Fields(refs) {
		if id := stripAngles(ref); id != "" {
			out = append(out, id)
		}
	}
	return out
}
