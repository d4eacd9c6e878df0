package memory

import (
	"sync"

	"github.com/crawlkit/frontier/internal/frontier"
)

// Metadata is the in-memory bookkeeping component composed into the
// backend facade. It records what passed through the frontier during a
// session; nothing here is persisted.
type Metadata struct {
	mu       sync.RWMutex
	requests map[string]*frontier.Request
	crawled  int
	errored  int
}

// NewMetadata constructs an empty Metadata.
func NewMetadata() *Metadata {
	return &Metadata{requests: make(map[string]*frontier.Request)}
}

// AddSeeds implements frontier.Metadata.
func (m *Metadata) AddSeeds(seeds []*frontier.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, seed := range seeds {
		if fp := seed.Fingerprint(); fp != "" {
			m.requests[fp] = seed
		}
	}
}

// PageCrawled implements frontier.Metadata.
func (m *Metadata) PageCrawled(response *frontier.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.crawled++
	if fp := response.Fingerprint(); fp != "" {
		m.requests[fp] = response
	}
}

// LinksExtracted implements frontier.Metadata.
func (m *Metadata) LinksExtracted(_ *frontier.Request, links []*frontier.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, link := range links {
		if fp := link.Fingerprint(); fp != "" {
			if _, seen := m.requests[fp]; !seen {
				m.requests[fp] = link
			}
		}
	}
}

// RequestError implements frontier.Metadata.
func (m *Metadata) RequestError(request *frontier.Request, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errored++
	if fp := request.Fingerprint(); fp != "" {
		m.requests[fp] = request
	}
}

// Seen reports whether a fingerprint has passed through the frontier.
func (m *Metadata) Seen(fingerprint string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.requests[fingerprint]
	return ok
}

// Counts returns (crawled, errored) totals.
func (m *Metadata) Counts() (int, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.crawled, m.errored
}
