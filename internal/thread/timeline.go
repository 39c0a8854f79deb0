package thread

import (
	"fmt"
	"math"
	"sort"
)

// BuildTimeline sorts thread entries ascending by message date and derives
// positions, latest/root markers and pairwise response times.
//
// Entries without a parseable date sort with timestamp zero, i.e. first.
// That is the chosen policy: undated messages cluster at the start of the
// timeline instead of being dropped or pushed to the end.
func BuildTimeline(entries []Entry) []TimelineEntry {
	if len(entries) == 0 {
		return nil
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sortTimestamp(sorted[i]) < sortTimestamp(sorted[j])
	})

	timeline := make([]TimelineEntry, 0, len(sorted))
	for i, entry := range sorted {
		timeline = append(timeline, TimelineEntry{
			Position:       i + 1,
			IsRoot:         i == 0,
			IsLatest:       i == len(sorted)-1,
			Record:         entry.Record,
			Classification: entry.Classification,
			ResponseTime:   responseTime(sorted, i),
		})
	}
	return timeline
}

func sortTimestamp(e Entry) int64 {
	if !e.Record.Metadata.HasDate {
		return 0
	}
	return e.Record.Metadata.DateTimestamp
}

// responseTime computes the delta between entry i and its predecessor.
// Absent when i is the first entry or either message lacks a date.
func responseTime(sorted []Entry, i int) *ResponseTime {
	if i == 0 {
		return nil
	}
	cur := sorted[i].Record.Metadata
	prev := sorted[i-1].Record.Metadata
	if !cur.HasDate || !prev.HasDate {
		return nil
	}

	seconds := cur.DateTimestamp - prev.DateTimestamp
	return &ResponseTime{
		Seconds:   seconds,
		Formatted: formatDuration(seconds),
		IsQuick:   seconds < 3600,
		IsSameDay: seconds < 86400,
	}
}

// formatDuration renders a second count as a compact human unit, truncating
// rather than rounding.
func formatDuration(seconds int64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh", seconds/3600)
	default:
		return fmt.Sprintf("%dd", seconds/86400)
	}
}

// rollupEngagement aggregates per-entry engagement across a thread. The
// averages are computed over ingestion order, which does not matter for the
// result. Response times are taken over the date-sorted order.
func rollupEngagement(entries []Entry) EngagementRollup {
	if len(entries) == 0 {
		return EngagementRollup{ActivityLevel: ActivityInactive}
	}

	var totalScore, totalContent, totalRecipients int
	for _, entry := range entries {
		totalScore += entry.Classification.Engagement.Score
		totalContent += entry.Classification.Engagement.ContentLength
		totalRecipients += entry.Classification.Engagement.RecipientCount
	}

	n := float64(len(entries))
	avgScore := float64(totalScore) / n

	rollup := EngagementRollup{
		AvgEngagementScore: math.Round(avgScore*100) / 100,
		AvgContentLength:   math.Round(float64(totalContent)/n*100) / 100,
		AvgRecipientCount:  math.Round(float64(totalRecipients)/n*100) / 100,
		TotalMessages:      len(entries),
		ActivityLevel:      activityLevel(len(entries), avgScore),
	}

	if avg, ok := avgResponseSeconds(entries); ok {
		rollup.AvgResponseTime = formatDuration(avg)
	}
	return rollup
}

// avgResponseSeconds averages the pairwise response times of the
// date-sorted entries. ok is false when no adjacent pair has two dates.
func avgResponseSeconds(entries []Entry) (int64, bool) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sortTimestamp(sorted[i]) < sortTimestamp(sorted[j])
	})

	var sum int64
	var count int64
	for i := 1; i < len(sorted); i++ {
		if rt := responseTime(sorted, i); rt != nil {
			sum += rt.Seconds
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / count, true
}

// activityLevel tags a thread by how busy it looks. Thresholds combine
// message count with average engagement.
func activityLevel(messageCount int, avgEngagement float64) string {
	switch {
	case messageCount >= 10 && avgEngagement >= 70:
		return ActivityVeryActive
	case messageCount >= 5 && avgEngagement >= 50:
		return ActivityActive
	case messageCount >= 3:
		return ActivityModerate
	case messageCount >= 1:
		return ActivityLow
	default:
		return ActivityInactive
	}
}
