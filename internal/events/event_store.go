package events

import (
	"container/list"
	"sync"
	"time"
)

// InMemoryStore keeps a bounded window of recent events for replay.
type InMemoryStore struct {
	mu           sync.RWMutex
	events       *list.List               // oldest at the front
	eventIndex   map[string]*list.Element // eventID -> element
	threadEvents map[string][]*list.Element
	maxSize      int
}

// NewStore creates an InMemoryStore holding at most maxSize events.
func NewStore(maxSize int) *InMemoryStore {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &InMemoryStore{
		events:       list.New(),
		eventIndex:   make(map[string]*list.Element),
		threadEvents: make(map[string][]*list.Element),
		maxSize:      maxSize,
	}
}

// Store appends an event, evicting the oldest when the window is full.
func (s *InMemoryStore) Store(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.events.Len() >= s.maxSize {
		s.removeElementLocked(s.events.Front())
	}

	elem := s.events.PushBack(event)
	s.eventIndex[event.ID] = elem
	s.threadEvents[event.ThreadID] = append(s.threadEvents[event.ThreadID], elem)
}

// Since returns events after the given event ID for a thread. An empty
// eventID returns the most recent events up to limit. An unknown eventID
// returns an empty slice; the window has moved past it.
func (s *InMemoryStore) Since(threadID string, eventID string, limit int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	result := make([]Event, 0)

	if eventID == "" {
		elems := s.threadEvents[threadID]
		start := 0
		if len(elems) > limit {
			start = len(elems) - limit
		}
		for i := start; i < len(elems); i++ {
			result = append(result, elems[i].Value.(Event))
		}
		return result
	}

	startElem, exists := s.eventIndex[eventID]
	if !exists {
		return result
	}
	for elem := startElem.Next(); elem != nil && len(result) < limit; elem = elem.Next() {
		event := elem.Value.(Event)
		if event.ThreadID == threadID {
			result = append(result, event)
		}
	}
	return result
}

// Cleanup removes events older than the given duration.
func (s *InMemoryStore) Cleanup(olderThan time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	for s.events.Len() > 0 {
		front := s.events.Front()
		if front.Value.(Event).Timestamp.After(cutoff) {
			break
		}
		s.removeElementLocked(front)
	}
}

func (s *InMemoryStore) removeElementLocked(elem *list.Element) {
	event := elem.Value.(Event)
	s.events.Remove(elem)
	delete(s.eventIndex, event.ID)

	elems := s.threadEvents[event.ThreadID]
	for i, e := range elems {
		if e == elem {
			s.threadEvents[event.ThreadID] = append(elems[:i], elems[i+1:]...)
			break
		}
	}
	if len(s.threadEvents[event.ThreadID]) == 0 {
		delete(s.threadEvents, event.ThreadID)
	}
}

// Len returns the number of stored events.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events.Len()
}

// LenForThread returns the number of stored events for one thread.
func (s *InMemoryStore) LenForThread(threadID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threadEvents[threadID])
}
