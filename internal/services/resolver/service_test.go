package resolver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/coinfolio/internal/models"
)

type fakeCatalog struct {
	coins     []models.Coin
	listErr   error
	hits      []models.SearchCoin
	searchErr error
	listCalls int32
	lastQuery string
}

func (f *fakeCatalog) CoinsList(ctx context.Context) ([]models.Coin, error) {
	atomic.AddInt32(&f.listCalls, 1)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.coins, nil
}

func (f *fakeCatalog) Search(ctx context.Context, query string) ([]models.SearchCoin, error) {
	f.lastQuery = query
	return f.hits, f.searchErr
}

func TestResolve_StaticTable(t *testing.T) {
	cat := &fakeCatalog{}
	svc := NewService(cat, time.Hour, nil)

	id, err := svc.Resolve(context.Background(), "  BTC ")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", id)

	id, err = svc.Resolve(context.Background(), "avax")
	require.NoError(t, err)
	assert.Equal(t, "avalanche-2", id)

	assert.Zero(t, atomic.LoadInt32(&cat.listCalls), "static hits never go remote")
}

func TestResolve_RemoteFirstExactMatchWins(t *testing.T) {
	cat := &fakeCatalog{coins: []models.Coin{
		{ID: "pepecoin", Symbol: "pepecoin", Name: "PepeCoin"},
		{ID: "pepe", Symbol: "PEPE", Name: "Pepe"},
		{ID: "pepe-bsc", Symbol: "pepe", Name: "Pepe BSC"},
	}}
	svc := NewService(cat, time.Hour, nil)

	id, err := svc.Resolve(context.Background(), "Pepe")
	require.NoError(t, err)
	assert.Equal(t, "pepe", id)
}

func TestResolve_NoMatchDegradesToIdentity(t *testing.T) {
	cat := &fakeCatalog{coins: []models.Coin{{ID: "pepe", Symbol: "pepe"}}}
	svc := NewService(cat, time.Hour, nil)

	id, err := svc.Resolve(context.Background(), "ZZZ")
	require.NoError(t, err)
	assert.Equal(t, "zzz", id)
}

func TestResolve_RemoteFailureDegradesToIdentity(t *testing.T) {
	cat := &fakeCatalog{listErr: errors.New("network down")}
	svc := NewService(cat, time.Hour, nil)

	id, err := svc.Resolve(context.Background(), "wif")
	require.NoError(t, err)
	assert.Equal(t, "wif", id)
	assert.Equal(t, int32(1), atomic.LoadInt32(&cat.listCalls), "single attempt, no retry")
}

func TestResolve_NilCatalog(t *testing.T) {
	svc := NewService(nil, time.Hour, nil)

	id, err := svc.Resolve(context.Background(), "wif")
	require.NoError(t, err)
	assert.Equal(t, "wif", id)
}

func TestResolve_EmptySymbol(t *testing.T) {
	svc := NewService(&fakeCatalog{}, time.Hour, nil)

	_, err := svc.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptySymbol)
}

func TestResolve_CancelledContext(t *testing.T) {
	cat := &fakeCatalog{}
	svc := NewService(cat, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Resolve(ctx, "wif")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, atomic.LoadInt32(&cat.listCalls))

	// Static hits do not need the network and still succeed.
	id, err := svc.Resolve(ctx, "eth")
	require.NoError(t, err)
	assert.Equal(t, "ethereum", id)
}

func TestResolve_CoinListCachedWithinTTL(t *testing.T) {
	cat := &fakeCatalog{coins: []models.Coin{{ID: "pepe", Symbol: "pepe"}, {ID: "bonk", Symbol: "bonk"}}}
	svc := NewService(cat, time.Hour, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, _ = svc.Resolve(context.Background(), "pepe")
	_, _ = svc.Resolve(context.Background(), "bonk")
	assert.Equal(t, int32(1), atomic.LoadInt32(&cat.listCalls))

	now = now.Add(2 * time.Hour)
	_, _ = svc.Resolve(context.Background(), "pepe")
	assert.Equal(t, int32(2), atomic.LoadInt32(&cat.listCalls))
}

func TestResolve_ZeroTTLAlwaysFetches(t *testing.T) {
	cat := &fakeCatalog{coins: []models.Coin{{ID: "pepe", Symbol: "pepe"}}}
	svc := NewService(cat, 0, nil)

	_, _ = svc.Resolve(context.Background(), "pepe")
	_, _ = svc.Resolve(context.Background(), "pepe")
	assert.Equal(t, int32(2), atomic.LoadInt32(&cat.listCalls))
}

func TestResolve_ConcurrentMissesAreSafe(t *testing.T) {
	cat := &fakeCatalog{coins: []models.Coin{{ID: "pepe", Symbol: "pepe"}, {ID: "bonk", Symbol: "bonk"}}}
	svc := NewService(cat, time.Hour, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sym := "pepe"
			if i%2 == 0 {
				sym = "bonk"
			}
			id, err := svc.Resolve(context.Background(), sym)
			assert.NoError(t, err)
			assert.Equal(t, sym, id)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&cat.listCalls), int32(20))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&cat.listCalls), int32(1))
}

func TestKnownAssets(t *testing.T) {
	assets := NewService(nil, 0, nil).KnownAssets()
	require.Len(t, assets, 22)
	assert.Equal(t, models.KnownAsset{Symbol: "BTC", ID: "bitcoin", Name: "Bitcoin"}, assets[0])
	assert.Equal(t, models.KnownAsset{Symbol: "FIL", ID: "filecoin", Name: "Filecoin"}, assets[21])
}

func TestSearch(t *testing.T) {
	cat := &fakeCatalog{hits: []models.SearchCoin{{ID: "dogecoin", Symbol: "DOGE", Name: "Dogecoin", MarketCapRank: 9}}}
	svc := NewService(cat, time.Hour, nil)

	hits, err := svc.Search(context.Background(), "  doge ")
	require.NoError(t, err)
	assert.Equal(t, "doge", cat.lastQuery)
	require.Len(t, hits, 1)

	_, err = svc.Search(context.Background(), " ")
	assert.Error(t, err)

	cat.searchErr = errors.New("boom")
	_, err = svc.Search(context.Background(), "doge")
	assert.Error(t, err)

	_, err = NewService(nil, 0, nil).Search(context.Background(), "doge")
	assert.ErrorIs(t, err, ErrNoCatalog)
}
