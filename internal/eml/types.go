package eml

import (
	"time"
)

// Record is a fully extracted EML message. It is built once per parsed
// message and never mutated afterwards.
type Record struct {
	ID          string       `json:"id"`
	Headers     Headers      `json:"headers"`
	Body        Body         `json:"body"`
	Attachments []Attachment `json:"attachments"`
	Metadata    Metadata     `json:"metadata"`
	RawSize     int64        `json:"raw_size"`
	ParsedAt    time.Time    `json:"parsed_at"`
}

// Headers holds the distinguished common subset plus the full raw header
// set, both keyed by lower-cased header name.
type Headers struct {
	Common map[string]string `json:"common"`
	All    map[string]string `json:"all"`
	Count  int               `json:"count"`
}

// Body holds the decoded text and HTML parts of a message. Either part may
// be empty when the message does not carry it.
type Body struct {
	Text        string `json:"text,omitempty"`
	HTML        string `json:"html,omitempty"`
	ContentType string `json:"content_type"`
	Charset     string `json:"charset,omitempty"`
}

// Attachment describes a single attachment part. Data is retained for
// downstream consumers but excluded from JSON output.
type Attachment struct {
	Filename           string `json:"filename"`
	ContentType        string `json:"content_type"`
	Size               int64  `json:"size"`
	ContentID          string `json:"content_id,omitempty"`
	ContentDisposition string `json:"content_disposition,omitempty"`
	Data               []byte `json:"-"`
}

// Metadata holds threading-relevant fields derived from the headers.
// Message IDs are stored with their surrounding angle brackets stripped.
// A Date header that is missing or unparseable yields HasDate == false
// rather than an error.
type Metadata struct {
	MessageID     string   `json:"message_id,omitempty"`
	InReplyTo     string   `json:"in_reply_to,omitempty"`
	References    []string `json:"references,omitempty"`
	DateParsed    string   `json:"date_parsed,omitempty"`
	DateTimestamp int64    `json:"date_timestamp,omitempty"`
	HasDate       bool     `json:"has_date"`
}

// RecordSummary is a compact per-message view used by the CLI and the
// process endpoint.
type RecordSummary struct {
	Subject         string `json:"subject"`
	From            string `json:"from"`
	To              string `json:"to"`
	Cc              string `json:"cc,omitempty"`
	Date            string `json:"date"`
	HasAttachments  bool   `json:"has_attachments"`
	AttachmentCount int    `json:"attachment_count"`
	HasHTML         bool   `json:"has_html"`
	HasText         bool   `json:"has_text"`
	SizeBytes       int64  `json:"size_bytes"`
}

// ParseError describes a failure to parse raw EML input.
type ParseError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return e.Message
}

// Common header names extracted into Headers.Common.
var commonHeaders = []string{
	"from",
	"to",
	"cc",
	"bcc",
	"subject",
	"date",
	"message-id",
	"reply-to",
	"return-path",
	"sender",
	"in-reply-to",
	"references",
	"content-type",
	"content-transfer-encoding",
	"mime-version",
}
