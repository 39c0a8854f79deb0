package thread

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/thegeek/eml-reader/internal/eml"
)

// RegistryConfig holds Registry construction options.
type RegistryConfig struct {
	// MaxThreads bounds the number of live threads. When a new thread
	// would exceed the bound, the thread with the oldest activity is
	// evicted. Zero means unbounded, which makes registry memory grow
	// for the process lifetime.
	MaxThreads int
}

// Registry owns the mapping from thread identity to member messages and
// aggregated thread metadata. State lives in process memory only and is
// lost on restart.
//
// A Registry is safe for concurrent use: Ingest takes an exclusive lock,
// read operations take a shared lock and return copies.
type Registry struct {
	mu         sync.RWMutex
	classifier *Classifier
	threads    map[string]*threadState
	maxThreads int
	now        func() time.Time
}

// threadState is the mutable bucket for one thread. All fields grow
// monotonically: entries are only appended, participants only added,
// maxDepth only raised.
type threadState struct {
	id            string
	entries       []Entry
	created       time.Time
	participants  map[string]struct{}
	subject       string
	lastActivity  time.Time
	rootMessageID string
	maxDepth      int
}

// NewRegistry creates an empty Registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	return &Registry{
		classifier: NewClassifier(),
		threads:    make(map[string]*threadState),
		maxThreads: cfg.MaxThreads,
		now:        time.Now,
	}
}

// Ingest classifies a record, appends it to its thread bucket (creating
// the bucket on first sight) and updates the aggregated metadata. It never
// fails and returns the derived thread id.
func (r *Registry) Ingest(rec *eml.Record) string {
	classification := r.classifier.Classify(rec)
	threadID := classification.ThreadID
	now := r.now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	state, exists := r.threads[threadID]
	if !exists {
		if r.maxThreads > 0 && len(r.threads) >= r.maxThreads {
			r.evictOldest()
		}
		state = &threadState{
			id:           threadID,
			created:      now,
			participants: make(map[string]struct{}),
			subject:      classification.Subject.Normalized,
		}
		r.threads[threadID] = state
	}

	state.entries = append(state.entries, Entry{
		Record:         rec,
		Classification: classification,
		AddedAt:        now,
	})

	for _, p := range classification.Participants {
		state.participants[p] = struct{}{}
	}

	// Last activity tracks the newest message date seen; messages without
	// a parseable date fall back to the ingestion time.
	activity := now
	if rec.Metadata.HasDate {
		activity = time.Unix(rec.Metadata.DateTimestamp, 0).UTC()
	}
	if activity.After(state.lastActivity) {
		state.lastActivity = activity
	}

	if classification.Depth > state.maxDepth {
		state.maxDepth = classification.Depth
	}

	if classification.IsRoot && state.rootMessageID == "" {
		state.rootMessageID = rec.Metadata.MessageID
	}

	return threadID
}

// evictOldest drops the thread with the oldest activity. Caller must hold
// the write lock.
func (r *Registry) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, state := range r.threads {
		if oldestID == "" || state.lastActivity.Before(oldest) {
			oldestID = id
			oldest = state.lastActivity
		}
	}
	if oldestID != "" {
		delete(r.threads, oldestID)
	}
}

// Summary returns the aggregated view of one thread, or false when the id
// is unknown.
func (r *Registry) Summary(threadID string) (Summary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.threads[threadID]
	if !ok || len(state.entries) == 0 {
		return Summary{}, false
	}
	return state.summary(), true
}

// AllSummaries returns one summary per known thread. Order is registry
// iteration order and is not specified.
func (r *Registry) AllSummaries() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]Summary, 0, len(r.threads))
	for _, state := range r.threads {
		if len(state.entries) == 0 {
			continue
		}
		summaries = append(summaries, state.summary())
	}
	return summaries
}

// Search returns every thread whose normalized subject or any participant
// address contains the query, case-insensitively. The result is a match
// set with no ranking.
func (r *Registry) Search(query string) []Summary {
	q := strings.ToLower(query)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []Summary
	for _, state := range r.threads {
		if len(state.entries) == 0 {
			continue
		}
		if state.matches(q) {
			matches = append(matches, state.summary())
		}
	}
	return matches
}

// Timeline returns the chronological view of one thread, empty when the id
// is unknown. See BuildTimeline for ordering semantics.
func (r *Registry) Timeline(threadID string) []TimelineEntry {
	r.mu.RLock()
	state, ok := r.threads[threadID]
	if !ok {
		r.mu.RUnlock()
		return nil
	}
	entries := make([]Entry, len(state.entries))
	copy(entries, state.entries)
	r.mu.RUnlock()

	// Sorting happens on the snapshot, outside the lock.
	return BuildTimeline(entries)
}

// Stats reports registry-wide counters for health and CLI reporting.
func (r *Registry) Stats() (threadCount, messageCount int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	threadCount = len(r.threads)
	for _, state := range r.threads {
		messageCount += len(state.entries)
	}
	return threadCount, messageCount
}

func (s *threadState) matches(lowerQuery string) bool {
	if strings.Contains(strings.ToLower(s.subject), lowerQuery) {
		return true
	}
	for p := range s.participants {
		if strings.Contains(strings.ToLower(p), lowerQuery) {
			return true
		}
	}
	return false
}

// summary builds the aggregated view. Caller must hold at least the read
// lock.
func (s *threadState) summary() Summary {
	participants := make([]string, 0, len(s.participants))
	for p := range s.participants {
		participants = append(participants, p)
	}
	sort.Strings(participants)

	hasAttachments := false
	for _, entry := range s.entries {
		if len(entry.Record.Attachments) > 0 {
			hasAttachments = true
			break
		}
	}

	return Summary{
		ThreadID:       s.id,
		MessageCount:   len(s.entries),
		Participants:   participants,
		Subject:        s.subject,
		Created:        s.created,
		LastActivity:   s.lastActivity,
		MaxDepth:       s.maxDepth,
		RootMessageID:  s.rootMessageID,
		HasAttachments: hasAttachments,
		Engagement:     rollupEngagement(s.entries),
	}
}
