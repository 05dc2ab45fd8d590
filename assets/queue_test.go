package assets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hazyhaar/notepub/digest"
)

// countingUploader records upload calls per hash and serves canned results.
type countingUploader struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
}

func newCountingUploader() *countingUploader {
	return &countingUploader{calls: map[string]int{}, fail: map[string]error{}}
}

func (u *countingUploader) Upload(ctx context.Context, it Item) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls[it.Hash]++
	if err := u.fail[it.Hash]; err != nil {
		return "", err
	}
	return "https://cdn.example.com/" + it.Hash[:8] + "." + it.Type.Ext, nil
}

func (u *countingUploader) callCount(hash string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[hash]
}

func item(content string, onResolved func(string)) Item {
	return Item{
		Type:       FileType{Ext: "png", MIME: "image/png"},
		Hash:       digest.SumString(content),
		Content:    []byte(content),
		OnResolved: onResolved,
	}
}

func TestFlush_DedupSharedHash(t *testing.T) {
	up := newCountingUploader()
	q := NewQueue(up, QueueConfig{})

	var urls []string
	q.Add(item("same-bytes", func(u string) { urls = append(urls, u) }))
	q.Add(item("same-bytes", func(u string) { urls = append(urls, u) }))

	res, err := q.Flush(context.Background(), nil)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}

	hash := digest.SumString("same-bytes")
	if got := up.callCount(hash); got != 1 {
		t.Fatalf("transport uploads for shared hash: got %d, want 1", got)
	}
	if len(urls) != 2 {
		t.Fatalf("callback invocations: got %d, want 2", len(urls))
	}
	if urls[0] != urls[1] {
		t.Fatalf("callbacks must receive the identical URL: %q vs %q", urls[0], urls[1])
	}
	if res[hash] != urls[0] {
		t.Fatalf("flush result URL mismatch: %q vs %q", res[hash], urls[0])
	}
}

func TestFlush_DistinctHashesParallel(t *testing.T) {
	up := newCountingUploader()
	q := NewQueue(up, QueueConfig{Concurrency: 2})

	const n = 8
	var mu sync.Mutex
	resolved := 0
	for i := 0; i < n; i++ {
		q.Add(item(fmt.Sprintf("payload-%d", i), func(string) {
			mu.Lock()
			resolved++
			mu.Unlock()
		}))
	}

	var progressCalls int
	_, err := q.Flush(context.Background(), func(done, total int) {
		progressCalls++
		if total != n {
			t.Errorf("progress total: got %d, want %d", total, n)
		}
	})
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if resolved != n {
		t.Fatalf("resolved callbacks: got %d, want %d", resolved, n)
	}
	if progressCalls != n {
		t.Fatalf("progress calls: got %d, want %d", progressCalls, n)
	}
}

func TestFlush_FailureDoesNotAbortSiblings(t *testing.T) {
	up := newCountingUploader()
	badHash := digest.SumString("broken")
	up.fail[badHash] = errors.New("transport said no")

	q := NewQueue(up, QueueConfig{})

	goodFired, badFired := false, false
	q.Add(item("fine", func(string) { goodFired = true }))
	q.Add(item("broken", func(string) { badFired = true }))

	res, err := q.Flush(context.Background(), nil)
	if err == nil {
		t.Fatal("expected joined error for failed upload")
	}
	if !goodFired {
		t.Fatal("sibling upload's callback must still fire")
	}
	if badFired {
		t.Fatal("failed item's callback must not fire")
	}
	if _, ok := res[badHash]; ok {
		t.Fatal("failed hash must not appear in flush result")
	}
}

func TestFlush_SecondFlushReusesResolvedHash(t *testing.T) {
	up := newCountingUploader()
	q := NewQueue(up, QueueConfig{})

	hash := digest.SumString("stable")
	q.Add(item("stable", nil))
	if _, err := q.Flush(context.Background(), nil); err != nil {
		t.Fatalf("first flush: %v", err)
	}

	var url string
	q.Add(item("stable", func(u string) { url = u }))
	if _, err := q.Flush(context.Background(), nil); err != nil {
		t.Fatalf("second flush: %v", err)
	}

	if got := up.callCount(hash); got != 1 {
		t.Fatalf("known hash re-uploaded: %d transport calls", got)
	}
	if url == "" {
		t.Fatal("callback must fire from the cached resolution")
	}
}

func TestFlush_Empty(t *testing.T) {
	q := NewQueue(newCountingUploader(), QueueConfig{})
	res, err := q.Flush(context.Background(), nil)
	if err != nil || len(res) != 0 {
		t.Fatalf("empty flush: got (%v, %v)", res, err)
	}
}
