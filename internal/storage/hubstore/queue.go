package hubstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/crawlkit/frontier/internal/frontier"
)

// QueueBackend implements frontier.QueueBackend against the hosted
// frontier API:
//
//	POST   /hcf/{project}/{frontier}/s/{slot}            add entries (NDJSON)
//	GET    /hcf/{project}/{frontier}/s/{slot}/q?mincount read batches (NDJSON)
//	POST   /hcf/{project}/{frontier}/s/{slot}/q/deleted  acknowledge batch ids
//	DELETE /hcf/{project}/{frontier}/s/{slot}            wipe the slot
type QueueBackend struct {
	client *Client
	logger *zap.Logger
}

// NewQueueBackend builds the queue backend over an existing session.
func NewQueueBackend(client *Client) *QueueBackend {
	return &QueueBackend{
		client: client,
		logger: client.logger.Named("hcf_queue"),
	}
}

type wireEntry struct {
	Fingerprint string          `json:"fp"`
	Priority    int             `json:"p"`
	QData       json.RawMessage `json:"qdata"`
}

type wireBatch struct {
	ID       string            `json:"id"`
	Requests []json.RawMessage `json:"requests"`
}

func (b *QueueBackend) slotPath(frontierName, slot string) string {
	return fmt.Sprintf("/hcf/%s/%s/s/%s", b.client.cfg.ProjectID, frontierName, slot)
}

// Add implements frontier.QueueBackend.
func (b *QueueBackend) Add(ctx context.Context, frontierName, slot string, entries []frontier.QueueEntry) error {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, e := range entries {
		we := wireEntry{
			Fingerprint: e.Fingerprint,
			Priority:    e.Priority,
			QData:       json.RawMessage(e.Payload),
		}
		if err := enc.Encode(we); err != nil {
			return frontier.Fatal("encode entry", err)
		}
	}
	resp, err := b.client.do(ctx, http.MethodPost, b.slotPath(frontierName, slot), nil, body.Bytes())
	if err != nil {
		return err
	}
	defer drainClose(resp)
	if resp.StatusCode != http.StatusOK {
		return frontier.Transient("add entries", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

// Read implements frontier.QueueBackend.
func (b *QueueBackend) Read(ctx context.Context, frontierName, slot string, minCount int) ([]frontier.Batch, error) {
	query := url.Values{}
	if minCount > 0 {
		query.Set("mincount", strconv.Itoa(minCount))
	}
	resp, err := b.client.do(ctx, http.MethodGet, b.slotPath(frontierName, slot)+"/q", query, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, frontier.Transient("read batches", fmt.Errorf("status %d", resp.StatusCode))
	}

	var batches []frontier.Batch
	dec := json.NewDecoder(resp.Body)
	for dec.More() {
		var wb wireBatch
		if err := dec.Decode(&wb); err != nil {
			return nil, frontier.Transient("decode batch", err)
		}
		batch := frontier.Batch{ID: wb.ID}
		for _, raw := range wb.Requests {
			// Each request is a [fingerprint, qdata] pair.
			var pair [2]json.RawMessage
			if err := json.Unmarshal(raw, &pair); err != nil {
				return nil, frontier.Transient("decode batch entry", err)
			}
			var fp string
			if err := json.Unmarshal(pair[0], &fp); err != nil {
				return nil, frontier.Transient("decode batch fingerprint", err)
			}
			batch.Entries = append(batch.Entries, frontier.BatchEntry{
				Fingerprint: fp,
				Payload:     []byte(pair[1]),
			})
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

// Delete implements frontier.QueueBackend.
func (b *QueueBackend) Delete(ctx context.Context, frontierName, slot string, batchIDs []string) error {
	body, err := json.Marshal(batchIDs)
	if err != nil {
		return frontier.Fatal("encode batch ids", err)
	}
	resp, err := b.client.do(ctx, http.MethodPost, b.slotPath(frontierName, slot)+"/q/deleted", nil, body)
	if err != nil {
		return err
	}
	defer drainClose(resp)
	if resp.StatusCode != http.StatusOK {
		return frontier.Transient("delete batches", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

// DeleteSlot implements frontier.QueueBackend.
func (b *QueueBackend) DeleteSlot(ctx context.Context, frontierName, slot string) error {
	resp, err := b.client.do(ctx, http.MethodDelete, b.slotPath(frontierName, slot), nil, nil)
	if err != nil {
		return err
	}
	defer drainClose(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete slot %s: status %d", slot, resp.StatusCode)
	}
	return nil
}

// Close implements frontier.QueueBackend.
func (b *QueueBackend) Close() error {
	return b.client.Close()
}
