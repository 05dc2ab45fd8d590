package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// QueueConfig tunes the upload queue.
type QueueConfig struct {
	// Concurrency bounds parallel transport uploads during a flush.
	// Default: 4.
	Concurrency int
	// Logger for per-item diagnostics.
	Logger *slog.Logger
}

func (c *QueueConfig) defaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Queue is a content-addressed upload coordinator. Items sharing a content
// hash collapse onto a single transport upload; every item's callback still
// fires with the shared resulting URL. The queue owns the hash→URL mapping
// for the duration of a pipeline run.
type Queue struct {
	cfg      QueueConfig
	uploader Uploader

	mu       sync.Mutex
	items    []Item
	resolved map[string]string // hash → public URL, kept across flushes in one run
}

// NewQueue creates a Queue driving the given uploader.
func NewQueue(uploader Uploader, cfg QueueConfig) *Queue {
	cfg.defaults()
	return &Queue{
		cfg:      cfg,
		uploader: uploader,
		resolved: make(map[string]string),
	}
}

// Add enqueues an item for the next Flush.
func (q *Queue) Add(it Item) {
	if it.ByteLen == 0 {
		it.ByteLen = len(it.Content)
	}
	q.mu.Lock()
	q.items = append(q.items, it)
	q.mu.Unlock()
}

// Pending reports how many items await the next flush.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Flush uploads every distinct unseen hash (in parallel, bounded) and then
// fires each enqueued item's callback exactly once. It returns the hash→URL
// map for this flush. Individual upload failures are joined into the returned
// error but do not abort sibling uploads; items whose hash failed never get a
// callback, leaving their original reference untouched.
//
// Flush is the pipeline's single suspension point on the network. Callbacks
// run sequentially after all uploads settle, so callback code needs no
// locking of its own.
func (q *Queue) Flush(ctx context.Context, progress Progress) (map[string]string, error) {
	q.mu.Lock()
	batch := q.items
	q.items = nil
	q.mu.Unlock()

	if len(batch) == 0 {
		return map[string]string{}, nil
	}

	// Distinct hashes in first-seen order; skip those resolved earlier in
	// this run — they cost no second transport round-trip.
	type pending struct {
		item Item // representative content for the hash
	}
	order := make([]string, 0, len(batch))
	byHash := make(map[string]pending)
	for _, it := range batch {
		if _, seen := byHash[it.Hash]; seen {
			continue
		}
		if _, done := q.resolved[it.Hash]; done {
			continue
		}
		byHash[it.Hash] = pending{item: it}
		order = append(order, it.Hash)
	}

	total := len(order)
	done := 0
	var progMu sync.Mutex
	report := func() {
		if progress == nil {
			return
		}
		progMu.Lock()
		done++
		progress(done, total)
		progMu.Unlock()
	}

	urls := make(map[string]string, total)
	errs := make(map[string]error, total)
	var resMu sync.Mutex

	sem := make(chan struct{}, q.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, hash := range order {
		p := byHash[hash]
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			resMu.Lock()
			errs[hash] = ctx.Err()
			resMu.Unlock()
			continue
		}
		wg.Add(1)
		go func(hash string, it Item) {
			defer wg.Done()
			defer func() { <-sem }()

			url, err := q.uploader.Upload(ctx, it)
			resMu.Lock()
			if err != nil {
				errs[hash] = fmt.Errorf("upload %s (%s): %w", hash[:12], it.Type.Ext, err)
				q.cfg.Logger.Warn("assets: upload failed",
					"hash", hash, "ext", it.Type.Ext, "error", err)
			} else {
				urls[hash] = url
			}
			resMu.Unlock()
			report()
		}(hash, p.item)
	}
	wg.Wait()

	q.mu.Lock()
	for h, u := range urls {
		q.resolved[h] = u
	}
	q.mu.Unlock()

	// Callbacks fire once per item, in enqueue order, after every upload has
	// settled.
	result := make(map[string]string, len(batch))
	for _, it := range batch {
		url, ok := q.resolved[it.Hash]
		if !ok {
			continue
		}
		result[it.Hash] = url
		if it.OnResolved != nil {
			it.OnResolved(url)
		}
	}

	var joined []error
	for _, hash := range order {
		if err := errs[hash]; err != nil {
			joined = append(joined, err)
		}
	}
	return result, errors.Join(joined...)
}
