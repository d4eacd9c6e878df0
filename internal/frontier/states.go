package frontier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crawlkit/frontier/internal/metrics"
)

// Remote paging constants for the state collection. Fetches carry at most
// FetchPageSize keys per request; flushes write at most FlushChunkSize
// records per call.
const (
	FetchPageSize  = 32
	FlushChunkSize = 1024
)

// FetchOutcome reports what a read-through fetch did. Warnings surface
// skipped malformed records and non-200 statuses so callers can assert
// on partial results.
type FetchOutcome struct {
	Requested int
	Missing   int
	Fetched   int
	Warnings  []string
}

// States is the write-back deduplication cache with remote persistence.
// The in-memory cache is the single source of truth during a session; the
// remote collection is consulted only on cache miss and updated only on
// flush.
type States struct {
	backend StateBackend
	cache   *stateCache
	logger  *zap.Logger
}

// NewStates builds the state store with the given cache size limit.
func NewStates(backend StateBackend, cacheSizeLimit int, logger *zap.Logger) *States {
	return &States{
		backend: backend,
		cache:   newStateCache(cacheSizeLimit),
		logger:  logger,
	}
}

// CacheSize returns the current number of cached entries.
func (s *States) CacheSize() int { return s.cache.Len() }

// Fetch populates the cache for every fingerprint not already present,
// paging remote GETs at FetchPageSize keys each. Already-cached
// fingerprints are left untouched and trigger no remote call.
func (s *States) Fetch(ctx context.Context, fingerprints []string) (FetchOutcome, error) {
	outcome := FetchOutcome{Requested: len(fingerprints)}
	var toFetch []string
	for _, fp := range fingerprints {
		if !s.cache.Contains(fp) {
			toFetch = append(toFetch, fp)
		}
	}
	outcome.Missing = len(toFetch)
	s.logger.Debug("state fetch",
		zap.Int("cache_size", s.cache.Len()),
		zap.Int("to_fetch", len(toFetch)),
		zap.Int("requested", len(fingerprints)),
	)
	if len(toFetch) == 0 {
		return outcome, nil
	}

	for start := 0; start < len(toFetch); start += FetchPageSize {
		end := start + FetchPageSize
		if end > len(toFetch) {
			end = len(toFetch)
		}
		page, err := s.backend.Get(ctx, toFetch[start:end])
		if err != nil {
			return outcome, fmt.Errorf("fetch states: %w", err)
		}
		for _, w := range page.Warnings {
			s.logger.Warn("state fetch warning", zap.String("warning", w))
		}
		outcome.Warnings = append(outcome.Warnings, page.Warnings...)
		for _, record := range page.Records {
			s.cache.Put(record.Key, record.Value, false)
			outcome.Fetched++
		}
	}
	metrics.StatesFetched(outcome.Fetched)
	s.logger.Debug("fetched state records", zap.Int("count", outcome.Fetched))
	return outcome, nil
}

// Flush writes the entire cache to the remote collection in chunks of at
// most FlushChunkSize records. At least one write is always issued, even
// for an empty cache, so any remote-side write buffer drains
// deterministically. With forceClear the cache is emptied afterward;
// otherwise entries are marked persisted and the size limit re-applied.
func (s *States) Flush(ctx context.Context, forceClear bool) (int, error) {
	var buffer []StateRecord
	count := 0
	flush := func() error {
		if err := s.backend.Set(ctx, buffer); err != nil {
			return fmt.Errorf("flush states: %w", err)
		}
		count += len(buffer)
		buffer = buffer[:0]
		return nil
	}

	var flushErr error
	s.cache.Each(func(key string, value any) {
		if flushErr != nil {
			return
		}
		buffer = append(buffer, StateRecord{Key: key, Value: value})
		if len(buffer) >= FlushChunkSize {
			flushErr = flush()
		}
	})
	if flushErr != nil {
		return count, flushErr
	}
	// The trailing write goes out even when empty.
	if err := flush(); err != nil {
		return count, err
	}

	metrics.StatesFlushed(count)
	s.logger.Debug("state cache flushed", zap.Int("count", count), zap.Bool("force_clear", forceClear))

	if forceClear {
		s.cache.Clear()
	} else {
		s.cache.MarkClean()
	}
	return count, nil
}

// UpdateCache copies each request's state marker from its meta into the
// cache, marking the entries dirty until the next flush.
func (s *States) UpdateCache(requests []*Request) {
	for _, r := range requests {
		fp := r.Fingerprint()
		if fp == "" {
			continue
		}
		if state, ok := r.Meta[MetaState]; ok {
			s.cache.Put(fp, state, true)
		}
	}
}

// SetStates writes the cached state marker back into each request's meta.
// Unknown fingerprints default to NOT_CRAWLED.
func (s *States) SetStates(requests []*Request) {
	for _, r := range requests {
		if r.Meta == nil {
			r.Meta = make(map[string]any)
		}
		if state, ok := s.cache.Get(r.Fingerprint()); ok {
			r.Meta[MetaState] = state
		} else {
			r.Meta[MetaState] = StateNotCrawled
		}
	}
}

// Cleanup wipes the remote collection page by page, following the
// server's continuation cursor until none is returned. A page decode
// failure ends pagination early; the failure is carried in the returned
// warnings rather than raised.
func (s *States) Cleanup(ctx context.Context) (CleanupStats, error) {
	stats := CleanupStats{}
	cursor := ""
	for {
		page, err := s.backend.DeletePage(ctx, cursor)
		if err != nil {
			return stats, fmt.Errorf("cleanup states: %w", err)
		}
		stats.Pages++
		stats.Deleted += page.Deleted
		stats.Scanned += page.Scanned
		stats.Warnings = append(stats.Warnings, page.Warnings...)
		s.logger.Debug("cleanup page",
			zap.Int("deleted", page.Deleted),
			zap.Int("scanned", page.Scanned),
			zap.String("next", page.Next),
		)
		if page.Next == "" {
			return stats, nil
		}
		cursor = page.Next
	}
}

// Close releases the backend session.
func (s *States) Close() error {
	return s.backend.Close()
}
