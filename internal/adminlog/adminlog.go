// Package adminlog keeps the bounded admin activity log.
//
// The log is a fixed-capacity ring: appends are O(1), the oldest entry is
// overwritten once the ring is full, and every read is most-recent-first.
package adminlog

import (
	"strconv"
	"sync"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

const (
	// DefaultCapacity is the number of entries retained.
	DefaultCapacity = 1000
	// DefaultLimit caps query results when the caller gives no limit.
	DefaultLimit = 100
)

// Observer is notified of every appended entry, outside the log's lock.
type Observer func(domain.AdminLogEntry)

// Log is a concurrency-safe ring buffer of admin log entries.
type Log struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	entries []domain.AdminLogEntry
	head    int // next write position
	size    int
	lastID  int64

	observers []Observer
}

// New creates a Log. A non-positive capacity uses DefaultCapacity.
func New(capacity int, clock clockwork.Clock) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		clock:   clock,
		entries: make([]domain.AdminLogEntry, capacity),
	}
}

// OnAppend registers an observer. Register observers before the log is shared.
func (l *Log) OnAppend(fn Observer) {
	l.observers = append(l.observers, fn)
}

// Append records an entry and returns it. IDs are the append time in Unix
// milliseconds, bumped past the previous ID so they strictly increase.
func (l *Log) Append(level domain.LogLevel, message string, data any) domain.AdminLogEntry {
	now := l.clock.Now().UTC()

	l.mu.Lock()
	id := now.UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id

	entry := domain.AdminLogEntry{
		ID:        strconv.FormatInt(id, 10),
		Timestamp: now,
		Level:     level,
		Message:   message,
		Data:      data,
	}
	l.entries[l.head] = entry
	l.head = (l.head + 1) % len(l.entries)
	if l.size < len(l.entries) {
		l.size++
	}
	l.mu.Unlock()

	for _, fn := range l.observers {
		fn(entry)
	}
	return entry
}

// Query filters the log. All set filters must match.
type Query struct {
	Level *domain.LogLevel
	Since time.Time // entries strictly after; zero means no bound
	Limit int       // <= 0 means DefaultLimit
}

// Result is a page of matching entries, most recent first. Total counts every
// match before the limit was applied.
type Result struct {
	Entries []domain.AdminLogEntry `json:"logs"`
	Total   int                    `json:"total"`
}

// Query returns matching entries, most recent first.
func (l *Log) Query(q Query) Result {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	res := Result{Entries: make([]domain.AdminLogEntry, 0, min(limit, l.size))}
	for i := range l.size {
		e := l.at(i)
		if q.Level != nil && e.Level != *q.Level {
			continue
		}
		if !q.Since.IsZero() && !e.Timestamp.After(q.Since) {
			continue
		}
		res.Total++
		if len(res.Entries) < limit {
			res.Entries = append(res.Entries, e)
		}
	}
	return res
}

// Recent returns up to n of the newest entries, most recent first.
func (l *Log) Recent(n int) []domain.AdminLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	n = max(0, min(n, l.size))
	out := make([]domain.AdminLogEntry, n)
	for i := range n {
		out[i] = l.at(i)
	}
	return out
}

// Len reports the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// at returns the i-th newest entry. Callers hold mu.
func (l *Log) at(i int) domain.AdminLogEntry {
	c := len(l.entries)
	return l.entries[(l.head-1-i+c)%c]
}
