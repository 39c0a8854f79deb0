// Package thread derives conversation structure from extracted EML records:
// per-message classification, an in-memory thread registry, chronological
// timelines with response-time deltas, and engagement rollups.
//
// Threading here is a single-parent heuristic keyed on In-Reply-To,
// References and normalized subjects. It deliberately does not reconstruct
// full reference trees; unrelated messages with colliding keys land in the
// same bucket and that is accepted.
package thread

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"

	"github.com/thegeek/eml-reader/internal/eml"
)

// subjectPrefixes are stripped (repeatedly) when normalizing a subject.
var subjectPrefixes = []string{"re:", "fw:", "fwd:", "aw:"}

// emailPattern matches local@domain.tld shaped tokens inside address headers.
var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// Classifier analyzes a single message for threading information. It is
// stateless: Classify is a pure function of its input and never fails;
// missing or malformed headers degrade to defaults.
type Classifier struct{}

// NewClassifier creates a new Classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify derives the threading classification for one record.
func (c *Classifier) Classify(rec *eml.Record) Classification {
	md := rec.Metadata
	subject := rec.Headers.Common["subject"]
	subjectInfo := analyzeSubject(subject)

	return Classification{
		ThreadID:     deriveThreadID(md, subjectInfo.Normalized),
		MessageID:    md.MessageID,
		InReplyTo:    md.InReplyTo,
		References:   md.References,
		Subject:      subjectInfo,
		Depth:        min(len(md.References), MaxDepth),
		IsReply:      md.InReplyTo != "",
		IsForward:    subjectInfo.HasFwPrefix,
		IsRoot:       md.InReplyTo == "" && len(md.References) == 0,
		Participants: extractParticipants(rec.Headers.Common),
		Engagement:   calculateEngagement(rec),
	}
}

// deriveThreadID picks the thread identity key in priority order:
// In-Reply-To, then the first Reference, then the Message-ID, with the
// normalized subject as the last resort.
func deriveThreadID(md eml.Metadata, normalizedSubject string) string {
	switch {
	case md.InReplyTo != "":
		return "thread_" + hash12(md.InReplyTo)
	case len(md.References) > 0:
		return "thread_" + hash12(md.References[0])
	case md.MessageID != "":
		return "thread_" + hash12(md.MessageID)
	default:
		return "thread_" + hash12(normalizedSubject)
	}
}

// hash12 returns a stable 12-hex-character digest of s. This is a bucketing
// key, not a security primitive.
func hash12(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// analyzeSubject normalizes a subject line and records which threading
// prefixes it carried. Normalization and prefix counting happen in one
// shared pass so the two can never diverge.
func analyzeSubject(subject string) SubjectInfo {
	lowered := strings.ToLower(strings.TrimSpace(subject))
	normalized, count := stripPrefixes(lowered)

	return SubjectInfo{
		Original:             subject,
		Normalized:           normalized,
		HasRePrefix:          strings.HasPrefix(lowered, "re:"),
		HasFwPrefix:          strings.HasPrefix(lowered, "fw:") || strings.HasPrefix(lowered, "fwd:"),
		HasAwPrefix:          strings.HasPrefix(lowered, "aw:"),
		PrefixCount:          count,
		IsThreadContinuation: strings.HasPrefix(lowered, "re:") || strings.HasPrefix(lowered, "aw:"),
	}
}

// stripPrefixes repeatedly removes a single leading subject prefix while
// counting how many were stripped. Stacked prefixes ("Re: Fw: hello") are
// all removed.
func stripPrefixes(s string) (string, int) {
	count := 0
	for {
		stripped := false
		for _, prefix := range subjectPrefixes {
			if strings.HasPrefix(s, prefix) {
				s = strings.TrimSpace(s[len(prefix):])
				count++
				stripped = true
				break
			}
		}
		if !stripped {
			return s, count
		}
	}
}

// extractParticipants scans the address headers of a single message and
// returns the de-duplicated set of email addresses, sorted for stable
// output.
func extractParticipants(common map[string]string) []string {
	seen := make(map[string]struct{})
	for _, field := range []string{"from", "to", "cc", "bcc"} {
		for _, addr := range emailPattern.FindAllString(common[field], -1) {
			seen[strings.ToLower(addr)] = struct{}{}
		}
	}

	participants := make([]string, 0, len(seen))
	for addr := range seen {
		participants = append(participants, addr)
	}
	sort.Strings(participants)
	return participants
}

// calculateEngagement derives the per-message engagement indicators.
func calculateEngagement(rec *eml.Record) Engagement {
	contentLength := len(rec.Body.Text) + len(rec.Body.HTML)
	recipientCount := countRecipients(rec.Headers.Common)
	hasAttachments := len(rec.Attachments) > 0

	return Engagement{
		ContentLength:  contentLength,
		RecipientCount: recipientCount,
		HasAttachments: hasAttachments,
		HasHTML:        rec.Body.HTML != "",
		HasText:        rec.Body.Text != "",
		Score:          engagementScore(contentLength, recipientCount, hasAttachments),
	}
}

// countRecipients counts distinct addresses across To/Cc/Bcc.
func countRecipients(common map[string]string) int {
	seen := make(map[string]struct{})
	for _, field := range []string{"to", "cc", "bcc"} {
		for _, addr := range emailPattern.FindAllString(common[field], -1) {
			seen[strings.ToLower(addr)] = struct{}{}
		}
	}
	return len(seen)
}

// engagementScore blends three independent bands, each with its own cap:
// content length up to 40, recipient count up to 30, attachments worth a
// flat 30. The sum is clamped to 100.
func engagementScore(contentLength, recipientCount int, hasAttachments bool) int {
	score := 0

	switch {
	case contentLength > 1000:
		score += 40
	case contentLength > 500:
		score += 30
	case contentLength > 100:
		score += 20
	default:
		score += 10
	}

	switch {
	case recipientCount > 10:
		score += 30
	case recipientCount > 5:
		score += 20
	case recipientCount > 1:
		score += 15
	default:
		score += 10
	}

	if hasAttachments {
		score += 30
	}

	return min(score, 100)
}
