package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/poiesic/widensync/core"
	"github.com/poiesic/widensync/split"
)

// fakeDownloader serves fixed content per URL and can fail specific
// URLs permanently.
type fakeDownloader struct {
	mu      sync.Mutex
	content map[string][]byte
	failing map[string]error
	calls   map[string]int
}

func newFakeDownloader() *fakeDownloader {
	return &fakeDownloader{
		content: make(map[string][]byte),
		failing: make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (d *fakeDownloader) Download(_ context.Context, url string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[url]++
	if err, ok := d.failing[url]; ok {
		return nil, err
	}
	if data, ok := d.content[url]; ok {
		return data, nil
	}
	return nil, errors.New("unknown url")
}

func (d *fakeDownloader) callCount(url string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[url]
}

// fakeUploader assigns sequential file ids and records every upload.
type fakeUploader struct {
	mu      sync.Mutex
	next    atomic.Int64
	uploads []string
	failOn  map[string]error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{failOn: make(map[string]error)}
}

func (u *fakeUploader) Upload(_ context.Context, filename, _ string, _ []byte) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err, ok := u.failOn[filename]; ok {
		return "", err
	}
	u.uploads = append(u.uploads, filename)
	return fmt.Sprintf("fid-%d", u.next.Add(1)), nil
}

func (u *fakeUploader) uploaded() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.uploads...)
}

// fakeSplitter halves the payload into a fixed number of chunks.
type fakeSplitter struct {
	chunks int
}

func (s *fakeSplitter) Split(data []byte, _ int64) ([]split.Chunk, error) {
	n := s.chunks
	if n < 2 {
		n = 2
	}
	out := make([]split.Chunk, n)
	per := len(data) / n
	for i := range out {
		start := i * per
		end := start + per
		if i == n-1 {
			end = len(data)
		}
		out[i] = split.Chunk{Data: data[start:end], Index: i + 1, Pages: 1}
	}
	return out, nil
}

// fakeIngester records ingestion calls.
type fakeIngester struct {
	mu      sync.Mutex
	calls   [][]string
	respond json.RawMessage
	err     error
}

func (f *fakeIngester) Ingest(_ context.Context, fileIDs []string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), fileIDs...))
	return f.respond, f.err
}

func (f *fakeIngester) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeFetcher pages over a fixed asset list the way the upstream search
// API does.
type fakeFetcher struct {
	mu     sync.Mutex
	assets []core.Asset
	pages  int
}

func (f *fakeFetcher) FetchPage(_ context.Context, limit, offset int) (*core.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages++

	page := &core.Page{TotalCount: len(f.assets)}
	if offset >= len(f.assets) {
		return page, nil
	}
	end := offset + limit
	if end > len(f.assets) {
		end = len(f.assets)
	}
	page.Assets = f.assets[offset:end]
	return page, nil
}

func testAsset(id string) core.Asset {
	return core.Asset{
		ID:          id,
		ExternalID:  "ext-" + id,
		Filename:    id + ".pdf",
		DownloadURL: "https://dl.example.com/" + id,
		FileType:    "pdf",
		Title:       "Asset " + id,
	}
}
