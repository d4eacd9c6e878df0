// Package frontier defines the core types shared across the remote
// frontier bridge: the request model, queue entries and batches, and the
// backend interfaces the storage implementations satisfy.
package frontier

import (
	"time"
)

// Well-known meta keys carried on a Request. The fingerprint identifies a
// unit of work for partitioning and deduplication; the client map holds
// caller-private metadata that must survive a queue round trip untouched.
const (
	MetaFingerprint = "fingerprint"
	MetaPriority    = "priority"
	MetaCreatedAt   = "created_at"
	MetaDepth       = "depth"
	MetaState       = "state"
	MetaClient      = "client_meta"

	// MetaOverride names a nested map that, when present, overrides the
	// entry fingerprint ("fp") and priority ("p") used on the remote queue.
	MetaOverride = "frontier_request"
)

// State markers stored per fingerprint in the state cache.
const (
	StateNotCrawled = "NOT_CRAWLED"
	StateQueued     = "QUEUED"
	StateCrawled    = "CRAWLED"
	StateError      = "ERROR"
)

// HeaderPair is one request header. Headers are kept as an ordered slice
// because the wire schema preserves header order and Go maps do not.
type HeaderPair struct {
	Key   string
	Value string
}

// Headers is an ordered header list with map-style accessors.
type Headers []HeaderPair

// Get returns the first value for key, or "".
func (h Headers) Get(key string) string {
	for _, p := range h {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

// Set replaces the first occurrence of key or appends a new pair.
func (h *Headers) Set(key, value string) {
	for i, p := range *h {
		if p.Key == key {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, HeaderPair{Key: key, Value: value})
}

// Request is the unit of work exchanged with the crawl controller.
// Identity for partitioning is the fingerprint in Meta, not the URL.
type Request struct {
	URL     string
	Method  string
	Headers Headers
	Cookies map[string]string
	Meta    map[string]any
}

// Fingerprint returns the request fingerprint from Meta, or "".
func (r *Request) Fingerprint() string {
	fp, _ := r.Meta[MetaFingerprint].(string)
	return fp
}

// ClientMeta returns the nested caller-private meta map, creating it if
// absent.
func (r *Request) ClientMeta() map[string]any {
	if r.Meta == nil {
		r.Meta = make(map[string]any)
	}
	m, ok := r.Meta[MetaClient].(map[string]any)
	if !ok {
		m = make(map[string]any)
		r.Meta[MetaClient] = m
	}
	return m
}

// QueueEntry is one encoded request bound for a remote slot.
type QueueEntry struct {
	Fingerprint string
	Priority    int
	Payload     []byte
}

// Batch is the unit of acknowledgment: a read returns whole batches and a
// batch is deleted whole or not at all.
type Batch struct {
	ID      string
	Entries []BatchEntry
}

// BatchEntry is one (fingerprint, encoded payload) pair inside a batch.
type BatchEntry struct {
	Fingerprint string
	Payload     []byte
}

// ScheduleItem is one scheduling decision handed to the queue adapter.
// Items with Schedule=false are skipped with no side effect.
type ScheduleItem struct {
	Label    string
	Score    float64
	Request  *Request
	Schedule bool
}

// StateRecord is one fingerprint/value pair in the remote state
// collection.
type StateRecord struct {
	Key   string `json:"_key"`
	Value any    `json:"value"`
}

// StatePage is the outcome of one keyed GET against the state backend.
// Warnings carry skipped malformed records and non-200 statuses so
// callers can assert on partial results without log inspection.
type StatePage struct {
	Records  []StateRecord
	Warnings []string
}

// CleanupPage is one page of a paginated collection wipe. An empty Next
// cursor ends pagination.
type CleanupPage struct {
	Deleted  int
	Scanned  int
	Next     string
	Warnings []string
}

// CleanupStats aggregates a full cleanup run.
type CleanupStats struct {
	Pages    int
	Deleted  int
	Scanned  int
	Warnings []string
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
