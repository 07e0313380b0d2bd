package prices

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/coinfolio/internal/clients/coingecko"
	"github.com/bobmcallan/coinfolio/internal/models"
)

type fakeSource struct {
	name  string
	body  map[string]map[string]float64
	err   error
	calls [][]string
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) SimplePrice(ctx context.Context, ids []string, vsCurrency string) (map[string]map[string]float64, error) {
	f.calls = append(f.calls, append([]string(nil), ids...))
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func usd(p float64) map[string]float64 { return map[string]float64{"usd": p} }

func TestFetchPrices_EmptyInputNoNetwork(t *testing.T) {
	primary := &fakeSource{name: "direct"}
	fallback := &fakeSource{name: "relay"}
	svc := NewService(primary, fallback, "usd", nil)

	table, err := svc.FetchPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, table)

	table, err = svc.FetchPrices(context.Background(), []string{" ", ""})
	require.NoError(t, err)
	assert.Empty(t, table)

	assert.Empty(t, primary.calls)
	assert.Empty(t, fallback.calls)
}

func TestFetchPrices_SingleBatchedRequest(t *testing.T) {
	primary := &fakeSource{name: "direct", body: map[string]map[string]float64{
		"bitcoin":  usd(65000),
		"ethereum": usd(3200),
	}}
	fallback := &fakeSource{name: "relay"}
	svc := NewService(primary, fallback, "USD", nil)

	table, err := svc.FetchPrices(context.Background(), []string{"ethereum", "bitcoin", "bitcoin", " ethereum "})
	require.NoError(t, err)

	require.Len(t, primary.calls, 1)
	assert.Equal(t, []string{"bitcoin", "ethereum"}, primary.calls[0])
	assert.Empty(t, fallback.calls, "fallback untouched when primary succeeds")
	assert.Equal(t, models.PriceTable{"bitcoin": 65000, "ethereum": 3200}, table)
}

func TestFetchPrices_MissingIDsAreAbsent(t *testing.T) {
	primary := &fakeSource{name: "direct", body: map[string]map[string]float64{
		"bitcoin": usd(65000),
		"extra":   usd(1),
	}}
	svc := NewService(primary, nil, "usd", nil)

	table, err := svc.FetchPrices(context.Background(), []string{"bitcoin", "zzz"})
	require.NoError(t, err)
	assert.Equal(t, models.PriceTable{"bitcoin": 65000}, table)
}

func TestFetchPrices_FallbackOnPrimaryError(t *testing.T) {
	primary := &fakeSource{name: "direct", err: errors.New("connection refused")}
	fallback := &fakeSource{name: "relay", body: map[string]map[string]float64{"solana": usd(150)}}
	svc := NewService(primary, fallback, "usd", nil)

	table, err := svc.FetchPrices(context.Background(), []string{"solana"})
	require.NoError(t, err)

	require.Len(t, primary.calls, 1)
	require.Len(t, fallback.calls, 1)
	assert.Equal(t, primary.calls[0], fallback.calls[0], "same logical request")

	alone, err := NewService(fallback, nil, "usd", nil).FetchPrices(context.Background(), []string{"solana"})
	require.NoError(t, err)
	assert.Equal(t, alone, table, "result equals what the fallback alone produces")
}

func TestFetchPrices_FallbackOnEmptyPrimaryBody(t *testing.T) {
	primary := &fakeSource{name: "direct", body: nil}
	fallback := &fakeSource{name: "relay", body: map[string]map[string]float64{"bitcoin": usd(65000)}}
	svc := NewService(primary, fallback, "usd", nil)

	table, err := svc.FetchPrices(context.Background(), []string{"bitcoin"})
	require.NoError(t, err)
	assert.Len(t, fallback.calls, 1)
	assert.Equal(t, 65000.0, table["bitcoin"])
}

func TestFetchPrices_InvalidEntriesSkipped(t *testing.T) {
	cases := map[string]map[string]float64{
		"wrong currency": {"eur": 60000},
		"zero price":     usd(0),
		"negative price": usd(-3),
		"nan price":      usd(math.NaN()),
		"inf price":      usd(math.Inf(1)),
	}
	for name, quotes := range cases {
		t.Run(name, func(t *testing.T) {
			primary := &fakeSource{name: "direct", body: map[string]map[string]float64{
				"bitcoin":   usd(65000),
				"dead-coin": quotes,
			}}
			fallback := &fakeSource{name: "relay"}
			svc := NewService(primary, fallback, "usd", nil)

			table, err := svc.FetchPrices(context.Background(), []string{"bitcoin", "dead-coin"})
			require.NoError(t, err)
			assert.Empty(t, fallback.calls, "one bad entry does not fail the attempt")
			assert.Equal(t, models.PriceTable{"bitcoin": 65000}, table)
		})
	}
}

func TestFetchPrices_BothFail(t *testing.T) {
	primaryErr := errors.New("primary down")
	fallbackErr := errors.New("relay down")
	svc := NewService(
		&fakeSource{name: "direct", err: primaryErr},
		&fakeSource{name: "relay", err: fallbackErr},
		"usd", nil,
	)

	table, err := svc.FetchPrices(context.Background(), []string{"bitcoin"})
	assert.Nil(t, table)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, []string{"bitcoin"}, fe.IDs)
	assert.Len(t, fe.Causes, 2)
	assert.ErrorIs(t, err, primaryErr)
	assert.ErrorIs(t, err, fallbackErr)
	assert.Contains(t, err.Error(), "direct transport")
	assert.Contains(t, err.Error(), "relay transport")
}

func TestFetchPrices_NoFallbackConfigured(t *testing.T) {
	primaryErr := errors.New("primary down")
	svc := NewService(&fakeSource{name: "direct", err: primaryErr}, nil, "usd", nil)

	_, err := svc.FetchPrices(context.Background(), []string{"bitcoin"})

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Len(t, fe.Causes, 1)
	assert.ErrorIs(t, err, primaryErr)
}

func TestFetchPrices_MalformedFallbackIsFailure(t *testing.T) {
	svc := NewService(
		&fakeSource{name: "direct", err: errors.New("down")},
		&fakeSource{name: "relay", body: nil},
		"usd", nil,
	)

	_, err := svc.FetchPrices(context.Background(), []string{"bitcoin"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestFetchPrices_CoinGeckoTransports(t *testing.T) {
	var directCalls, relayCalls int32
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&directCalls, 1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("blocked"))
	}))
	defer direct.Close()

	var relayedIDs string
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&relayCalls, 1)
		relayedIDs = r.URL.Query().Get("url")
		w.Write([]byte(`{"bitcoin":{"usd":64000},"dogecoin":{"usd":0.12}}`))
	}))
	defer relay.Close()

	primary := coingecko.NewClient(coingecko.WithBaseURL(direct.URL))
	fallback := coingecko.NewClient(coingecko.WithBaseURL(direct.URL), coingecko.WithRelay(relay.URL+"/raw?url="))
	svc := NewService(primary, fallback, "usd", nil)

	table, err := svc.FetchPrices(context.Background(), []string{"dogecoin", "bitcoin"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&directCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&relayCalls))
	assert.Contains(t, relayedIDs, "ids=bitcoin%2Cdogecoin")
	assert.Equal(t, models.PriceTable{"bitcoin": 64000, "dogecoin": 0.12}, table)
}
