package portfolio

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/bobmcallan/coinfolio/internal/models"
)

// memStore is an in-memory InvestmentStore.
type memStore struct {
	mu      sync.Mutex
	data    []models.Investment
	saves   int
	loadErr error
	saveErr error
}

func (m *memStore) Load(ctx context.Context) ([]models.Investment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return models.CloneInvestments(m.data), nil
}

func (m *memStore) Save(ctx context.Context, invs []models.Investment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = models.CloneInvestments(invs)
	return nil
}

func (m *memStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// MockInvestmentStore is a testify mock of InvestmentStore.
type MockInvestmentStore struct {
	mock.Mock
}

func (m *MockInvestmentStore) Load(ctx context.Context) ([]models.Investment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Investment), args.Error(1)
}

func (m *MockInvestmentStore) Save(ctx context.Context, invs []models.Investment) error {
	args := m.Called(ctx, invs)
	return args.Error(0)
}

// fakeResolver resolves from a fixed table and records every call.
type fakeResolver struct {
	mu       sync.Mutex
	ids      map[string]string
	errs     map[string]error
	calls    []string
	delay    time.Duration
	inFlight int
	maxSeen  int
}

func (f *fakeResolver) Resolve(ctx context.Context, symbol string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, symbol)
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if err, ok := f.errs[symbol]; ok {
		return "", err
	}
	if id, ok := f.ids[symbol]; ok {
		return id, nil
	}
	return symbol, nil
}

func (f *fakeResolver) KnownAssets() []models.KnownAsset { return nil }

func (f *fakeResolver) Search(ctx context.Context, query string) ([]models.SearchCoin, error) {
	return nil, errors.New("not supported")
}

func (f *fakeResolver) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.calls...)
	sort.Strings(out)
	return out
}

// fakeFetcher returns a fixed table. When started/release are set, each call
// signals started and then blocks until release is closed.
type fakeFetcher struct {
	mu      sync.Mutex
	table   models.PriceTable
	err     error
	calls   [][]string
	started chan struct{}
	release chan struct{}
}

func (f *fakeFetcher) FetchPrices(ctx context.Context, ids []string) (models.PriceTable, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	f.mu.Lock()
	f.calls = append(f.calls, sorted)
	table, err := f.table, f.err
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}

	if err != nil {
		return nil, err
	}
	out := make(models.PriceTable, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out, nil
}

func (f *fakeFetcher) callList() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

// fixedClock is a settable clock.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// newTestService wires a service over the fakes with a fixed clock and the
// given collection already loaded.
func newTestService(t *testing.T, store *memStore, res *fakeResolver, fetch *fakeFetcher, opts ...Option) (*Service, *fixedClock) {
	t.Helper()
	clock := &fixedClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewService(store, res, fetch, nil, opts...)
	svc.now = clock.Now
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return svc, clock
}

func ptr(v float64) *float64 { return models.Float64Ptr(v) }
