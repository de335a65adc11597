package crawl

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MockFetcher is a PageFetcher test double that tracks concurrency.
type MockFetcher struct {
	FetchFunc func(ctx context.Context, url string, opts FetchOptions) (Page, error)
	Delay     time.Duration
	Affine    bool

	inFlight atomic.Int64
	peak     atomic.Int64
	mu       sync.Mutex
	seen     []FetchOptions
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{}
}

func (m *MockFetcher) Fetch(ctx context.Context, url string, opts FetchOptions) (Page, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	m.mu.Lock()
	m.seen = append(m.seen, opts)
	m.mu.Unlock()

	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, url, opts)
	}
	return Page{URL: url, Content: PlainText("text of " + url)}, nil
}

func (m *MockFetcher) ThreadAffinity() bool { return m.Affine }

func (m *MockFetcher) Peak() int { return int(m.peak.Load()) }

func (m *MockFetcher) Calls() []FetchOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FetchOptions(nil), m.seen...)
}
