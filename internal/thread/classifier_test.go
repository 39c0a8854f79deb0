package thread

import (
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/thegeek/eml-reader/internal/eml"
)

// makeRecord builds a minimal record for classification tests.
func makeRecord(headers map[string]string, md eml.Metadata) *eml.Record {
	common := make(map[string]string)
	for k, v := range headers {
		common[strings.ToLower(k)] = v
	}
	return &eml.Record{
		ID:       "test-record",
		Headers:  eml.Headers{Common: common, All: common, Count: len(common)},
		Metadata: md,
	}
}

func TestClassifyThreadIDPriority(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name string
		md   eml.Metadata
		key  string
	}{
		{
			name: "in-reply-to wins over everything",
			md: eml.Metadata{
				MessageID:  "<a@x>",
				InReplyTo:  "<parent@x>",
				References: []string{"<root@x>", "<parent@x>"},
			},
			key: "<parent@x>",
		},
		{
			name: "first reference when no in-reply-to",
			md: eml.Metadata{
				MessageID:  "<a@x>",
				References: []string{"<root@x>", "<mid@x>"},
			},
			key: "<root@x>",
		},
		{
			name: "message-id when no reply headers",
			md:   eml.Metadata{MessageID: "<a@x>"},
			key:  "<a@x>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := makeRecord(map[string]string{"subject": "Hello"}, tt.md)
			got := c.Classify(rec).ThreadID
			want := "thread_" + hash12(tt.key)
			if got != want {
				t.Errorf("ThreadID = %q, want %q", got, want)
			}
		})
	}
}

func TestClassifySubjectFallback(t *testing.T) {
	c := NewClassifier()

	// No threading headers at all: identity comes from the normalized
	// subject, so differently-prefixed variants land in the same thread.
	a := c.Classify(makeRecord(map[string]string{"subject": "Re: Budget Q3"}, eml.Metadata{}))
	b := c.Classify(makeRecord(map[string]string{"subject": "budget q3"}, eml.Metadata{}))

	if a.ThreadID != b.ThreadID {
		t.Errorf("subject variants split threads: %q vs %q", a.ThreadID, b.ThreadID)
	}
	if a.ThreadID != "thread_"+hash12("budget q3") {
		t.Errorf("ThreadID = %q, want subject-derived id", a.ThreadID)
	}
}

func TestAnalyzeSubject(t *testing.T) {
	tests := []struct {
		subject      string
		normalized   string
		prefixCount  int
		continuation bool
		forward      bool
	}{
		{"Quarterly Report", "quarterly report", 0, false, false},
		{"Re: Quarterly Report", "quarterly report", 1, true, false},
		{"Re: Re: Fw: Quarterly Report", "quarterly report", 3, true, false},
		{"FWD: plans", "plans", 1, false, true},
		{"Fw: Re: plans", "plans", 2, false, true},
		{"AW: Termin", "termin", 1, true, false},
		{"  Re:   spaced  ", "spaced", 1, true, false},
		{"", "", 0, false, false},
		{"re:", "", 1, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			info := analyzeSubject(tt.subject)
			if info.Normalized != tt.normalized {
				t.Errorf("Normalized = %q, want %q", info.Normalized, tt.normalized)
			}
			if info.PrefixCount != tt.prefixCount {
				t.Errorf("PrefixCount = %d, want %d", info.PrefixCount, tt.prefixCount)
			}
			if info.IsThreadContinuation != tt.continuation {
				t.Errorf("IsThreadContinuation = %v, want %v", info.IsThreadContinuation, tt.continuation)
			}
			if info.HasFwPrefix != tt.forward {
				t.Errorf("HasFwPrefix = %v, want %v", info.HasFwPrefix, tt.forward)
			}
			if info.Original != tt.subject {
				t.Errorf("Original = %q, want %q", info.Original, tt.subject)
			}
		})
	}
}

func TestClassifyRootReplyForward(t *testing.T) {
	c := NewClassifier()

	root := c.Classify(makeRecord(map[string]string{"subject": "kickoff"}, eml.Metadata{MessageID: "<a@x>"}))
	if !root.IsRoot || root.IsReply || root.IsForward {
		t.Errorf("root flags = root=%v reply=%v fwd=%v", root.IsRoot, root.IsReply, root.IsForward)
	}

	reply := c.Classify(makeRecord(
		map[string]string{"subject": "Re: kickoff"},
		eml.Metadata{MessageID: "<b@x>", InReplyTo: "<a@x>"},
	))
	if reply.IsRoot || !reply.IsReply {
		t.Errorf("reply flags = root=%v reply=%v", reply.IsRoot, reply.IsReply)
	}

	// References alone also disqualify a message from being a root.
	referenced := c.Classify(makeRecord(
		map[string]string{"subject": "kickoff"},
		eml.Metadata{MessageID: "<c@x>", References: []string{"<a@x>"}},
	))
	if referenced.IsRoot {
		t.Error("message with references classified as root")
	}

	forward := c.Classify(makeRecord(
		map[string]string{"subject": "Fwd: kickoff"},
		eml.Metadata{MessageID: "<d@x>"},
	))
	if !forward.IsForward {
		t.Error("fwd: subject not classified as forward")
	}
}

func TestClassifyDepthClamp(t *testing.T) {
	c := NewClassifier()

	refs := make([]string, 20)
	for i := range refs {
		refs[i] = fmt.Sprintf("<m%d@x>", i)
	}
	got := c.Classify(makeRecord(nil, eml.Metadata{References: refs})).Depth
	if got != MaxDepth {
		t.Errorf("Depth = %d, want clamp at %d", got, MaxDepth)
	}

	got = c.Classify(makeRecord(nil, eml.Metadata{References: refs[:3]})).Depth
	if got != 3 {
		t.Errorf("Depth = %d, want 3", got)
	}
}

func TestExtractParticipants(t *testing.T) {
	headers := map[string]string{
		"from": "Alice <alice@example.com>",
		"to":   "bob@example.com, Carol <carol@acme.io>",
		"cc":   "ALICE@example.com",
	}
	got := extractParticipants(lowerKeys(headers))
	want := []string{"alice@example.com", "bob@example.com", "carol@acme.io"}
	if len(got) != len(want) {
		t.Fatalf("participants = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("participants[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

func TestEngagementScore(t *testing.T) {
	tests := []struct {
		name        string
		content     int
		recipients  int
		attachments bool
		want        int
	}{
		{"minimal", 50, 1, false, 20},
		{"long body few recipients", 1500, 3, false, 55},
		{"long body attachment", 1500, 3, true, 85},
		{"everything maxed", 2000, 12, true, 100},
		{"medium body", 600, 0, false, 40},
		{"boundary 100 chars", 100, 1, false, 20},
		{"boundary 101 chars", 101, 1, false, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engagementScore(tt.content, tt.recipients, tt.attachments)
			if got != tt.want {
				t.Errorf("engagementScore(%d, %d, %v) = %d, want %d",
					tt.content, tt.recipients, tt.attachments, got, tt.want)
			}
		})
	}
}

func TestClassifyEngagementFields(t *testing.T) {
	c := NewClassifier()

	rec := makeRecord(map[string]string{
		"subject": "specs",
		"to":      "a@x.io, b@x.io",
	}, eml.Metadata{MessageID: "<m@x>"})
	rec.Body = eml.Body{Text: strings.Repeat("a", 600), HTML: "<p>hi</p>"}
	rec.Attachments = []eml.Attachment{{Filename: "spec.pdf"}}

	e := c.Classify(rec).Engagement
	if e.ContentLength != 609 {
		t.Errorf("ContentLength = %d, want 609", e.ContentLength)
	}
	if e.RecipientCount != 2 {
		t.Errorf("RecipientCount = %d, want 2", e.RecipientCount)
	}
	if !e.HasAttachments || !e.HasHTML || !e.HasText {
		t.Errorf("flags = att=%v html=%v text=%v", e.HasAttachments, e.HasHTML, e.HasText)
	}
}

func TestThreadIDDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := NewClassifier()

		inReplyTo := "<" + rapid.StringMatching(`[a-z0-9]{1,20}`).Draw(t, "parent") + "@x>"
		subjectA := rapid.StringMatching(`[ -~]{0,40}`).Draw(t, "subjectA")
		subjectB := rapid.StringMatching(`[ -~]{0,40}`).Draw(t, "subjectB")

		// Identity follows In-Reply-To: subjects and message ids must not
		// influence the bucket.
		a := c.Classify(makeRecord(map[string]string{"subject": subjectA},
			eml.Metadata{MessageID: "<a@x>", InReplyTo: inReplyTo}))
		b := c.Classify(makeRecord(map[string]string{"subject": subjectB},
			eml.Metadata{MessageID: "<b@x>", InReplyTo: inReplyTo}))

		if a.ThreadID != b.ThreadID {
			t.Fatalf("same In-Reply-To produced different threads: %q vs %q", a.ThreadID, b.ThreadID)
		}
		if len(a.ThreadID) != len("thread_")+12 {
			t.Fatalf("ThreadID %q has unexpected shape", a.ThreadID)
		}
	})
}

func TestStripPrefixesIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		subject := rapid.StringMatching(`[ -~]{0,60}`).Draw(t, "subject")

		normalized, _ := stripPrefixes(strings.ToLower(strings.TrimSpace(subject)))
		again, count := stripPrefixes(normalized)

		if again != normalized {
			t.Fatalf("normalizing twice changed the subject: %q -> %q", normalized, again)
		}
		if count != 0 {
			t.Fatalf("normalized subject %q still had %d prefixes", normalized, count)
		}
	})
}

func TestEngagementScoreBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		content := rapid.IntRange(0, 1_000_000).Draw(t, "content")
		recipients := rapid.IntRange(0, 500).Draw(t, "recipients")
		attachments := rapid.Bool().Draw(t, "attachments")

		score := engagementScore(content, recipients, attachments)
		if score < 20 || score > 100 {
			t.Fatalf("score %d out of [20,100]", score)
		}
	})
}
