package hubstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/crawlkit/frontier/internal/frontier"
)

// StateBackend implements frontier.StateBackend against the hosted
// collection API:
//
//	GET    /collections/{project}/s/{collection}?key=..&meta=_key
//	POST   /collections/{project}/s/{collection}
//	DELETE /collections/{project}/s/{collection}[?prefix=cursor]
//
// GET responses are newline-delimited JSON objects. Per the frontier
// error contract, malformed lines and non-200 statuses degrade to
// partial results with warnings instead of errors.
type StateBackend struct {
	client     *Client
	collection string
	logger     *zap.Logger
}

// NewStateBackend builds the state backend over an existing session. The
// remote collection is named after the frontier with a "_states" suffix.
func NewStateBackend(client *Client, frontierName string) *StateBackend {
	return &StateBackend{
		client:     client,
		collection: frontierName + "_states",
		logger:     client.logger.Named("hcf_states"),
	}
}

func (b *StateBackend) path() string {
	return fmt.Sprintf("/collections/%s/s/%s", b.client.cfg.ProjectID, b.collection)
}

// Get implements frontier.StateBackend.
func (b *StateBackend) Get(ctx context.Context, keys []string) (frontier.StatePage, error) {
	query := url.Values{}
	for _, key := range keys {
		query.Add("key", key)
	}
	// Only the value field comes back, plus the record key.
	query.Set("meta", "_key")

	start := time.Now()
	resp, err := b.client.do(ctx, http.MethodGet, b.path(), query, nil)
	if err != nil {
		return frontier.StatePage{}, err
	}
	defer resp.Body.Close()
	b.logger.Debug("fetch request time", zap.Duration("elapsed", time.Since(start)))

	page := frontier.StatePage{}
	if resp.StatusCode != http.StatusOK {
		warning := fmt.Sprintf("state fetch returned status %d", resp.StatusCode)
		b.logger.Error("state fetch failed", zap.Int("status", resp.StatusCode))
		page.Warnings = append(page.Warnings, warning)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record frontier.StateRecord
		if err := json.Unmarshal(line, &record); err != nil {
			b.logger.Debug("skipping malformed record",
				zap.Error(err),
				zap.Int("length", len(line)),
			)
			page.Warnings = append(page.Warnings, fmt.Sprintf("malformed record skipped: %v", err))
			continue
		}
		page.Records = append(page.Records, record)
	}
	if err := scanner.Err(); err != nil {
		return page, frontier.Transient("read state body", err)
	}
	return page, nil
}

// Set implements frontier.StateBackend. Records go out as JSON lines; an
// empty slice still issues the write so remote-side buffers drain.
func (b *StateBackend) Set(ctx context.Context, records []frontier.StateRecord) error {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return frontier.Fatal("encode state record", err)
		}
	}
	resp, err := b.client.do(ctx, http.MethodPost, b.path(), nil, body.Bytes())
	if err != nil {
		return err
	}
	defer drainClose(resp)
	if resp.StatusCode != http.StatusOK {
		return frontier.Transient("set states", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

type wireCleanup struct {
	Deleted   int    `json:"deleted"`
	Scanned   int    `json:"scanned"`
	NextStart string `json:"nextstart"`
}

// DeletePage implements frontier.StateBackend. A non-200 status is a
// warning, not an error, and the body is still parsed best-effort; a body
// that does not decode ends pagination by returning an empty cursor.
func (b *StateBackend) DeletePage(ctx context.Context, cursor string) (frontier.CleanupPage, error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("prefix", cursor)
	}
	resp, err := b.client.do(ctx, http.MethodDelete, b.path(), query, nil)
	if err != nil {
		return frontier.CleanupPage{}, err
	}
	defer resp.Body.Close()

	page := frontier.CleanupPage{}
	if resp.StatusCode != http.StatusOK {
		b.logger.Error("cleanup page failed", zap.Int("status", resp.StatusCode))
		page.Warnings = append(page.Warnings, fmt.Sprintf("cleanup returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return page, frontier.Transient("read cleanup body", err)
	}
	var wire wireCleanup
	if err := json.Unmarshal(body, &wire); err != nil {
		b.logger.Debug("undecodable cleanup page",
			zap.Error(err),
			zap.Int("length", len(body)),
		)
		page.Warnings = append(page.Warnings, fmt.Sprintf("undecodable cleanup page: %v", err))
		return page, nil
	}
	page.Deleted = wire.Deleted
	page.Scanned = wire.Scanned
	page.Next = wire.NextStart
	return page, nil
}

// Close implements frontier.StateBackend.
func (b *StateBackend) Close() error {
	return b.client.Close()
}
