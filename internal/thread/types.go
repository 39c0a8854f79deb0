package thread

import (
	"time"

	"github.com/thegeek/eml-reader/internal/eml"
)

// Classification is the per-message threading analysis. It is computed once
// per Record, is immutable, and carries no registry context: position within
// a thread is only known after ingestion and is exposed on TimelineEntry.
type Classification struct {
	ThreadID     string      `json:"thread_id"`
	MessageID    string      `json:"message_id,omitempty"`
	InReplyTo    string      `json:"in_reply_to,omitempty"`
	References   []string    `json:"references,omitempty"`
	Subject      SubjectInfo `json:"subject_thread"`
	Depth        int         `json:"thread_depth"`
	IsReply      bool        `json:"is_reply"`
	IsForward    bool        `json:"is_forward"`
	IsRoot       bool        `json:"is_root"`
	Participants []string    `json:"thread_participants"`
	Engagement   Engagement  `json:"engagement_indicators"`
}

// SubjectInfo is the result of analysing a subject line for threading
// patterns.
type SubjectInfo struct {
	Original             string `json:"original"`
	Normalized           string `json:"normalized"`
	HasRePrefix          bool   `json:"has_re_prefix"`
	HasFwPrefix          bool   `json:"has_fw_prefix"`
	HasAwPrefix          bool   `json:"has_aw_prefix"`
	PrefixCount          int    `json:"prefix_count"`
	IsThreadContinuation bool   `json:"is_thread_continuation"`
}

// Engagement holds the per-message engagement indicators. Score is a 0-100
// heuristic blending content length, recipient count and attachment presence.
type Engagement struct {
	ContentLength  int  `json:"content_length"`
	RecipientCount int  `json:"recipient_count"`
	HasAttachments bool `json:"has_attachments"`
	HasHTML        bool `json:"has_html"`
	HasText        bool `json:"has_text"`
	Score          int  `json:"engagement_score"`
}

// Entry is one message inside a thread bucket, in ingestion order.
type Entry struct {
	Record         *eml.Record    `json:"record"`
	Classification Classification `json:"classification"`
	AddedAt        time.Time      `json:"added_at"`
}

// Summary is the aggregated read-only view of one thread.
type Summary struct {
	ThreadID       string           `json:"thread_id"`
	MessageCount   int              `json:"message_count"`
	Participants   []string         `json:"participants"`
	Subject        string           `json:"subject"`
	Created        time.Time        `json:"created"`
	LastActivity   time.Time        `json:"last_activity"`
	MaxDepth       int              `json:"max_depth"`
	RootMessageID  string           `json:"root_message_id,omitempty"`
	HasAttachments bool             `json:"has_attachments"`
	Engagement     EngagementRollup `json:"engagement"`
}

// EngagementRollup aggregates engagement across a whole thread.
type EngagementRollup struct {
	AvgEngagementScore float64 `json:"avg_engagement_score"`
	AvgContentLength   float64 `json:"avg_content_length"`
	AvgRecipientCount  float64 `json:"avg_recipient_count"`
	TotalMessages      int     `json:"total_messages"`
	AvgResponseTime    string  `json:"avg_response_time,omitempty"`
	ActivityLevel      string  `json:"activity_level"`
}

// TimelineEntry is one message in a thread's chronological view. Position is
// 1-based after sorting by message date. IsRoot marks the chronologically
// first entry, which is not necessarily the classified root message.
type TimelineEntry struct {
	Position       int            `json:"position"`
	IsRoot         bool           `json:"is_root"`
	IsLatest       bool           `json:"is_latest"`
	Record         *eml.Record    `json:"record"`
	Classification Classification `json:"classification"`
	ResponseTime   *ResponseTime  `json:"response_time,omitempty"`
}

// ResponseTime is the delta between two adjacent timeline entries. It is
// absent when either message lacks a parseable date.
type ResponseTime struct {
	Seconds   int64  `json:"seconds"`
	Formatted string `json:"formatted"`
	IsQuick   bool   `json:"is_quick"`
	IsSameDay bool   `json:"is_same_day"`
}

// Activity level tags, ordered from busiest to empty. A single vocabulary
// is exposed; thresholds combine message count and average engagement.
const (
	ActivityVeryActive = "very_active"
	ActivityActive     = "active"
	ActivityModerate   = "moderate"
	ActivityLow        = "low"
	ActivityInactive   = "inactive"
)

// MaxDepth caps the reported thread depth. Real reply chains rarely exceed
// 10-15 levels; anything deeper is almost always a malformed References
// header.
const MaxDepth = 15
