package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/coinfolio/internal/models"
)

// memKV is an in-memory KeyValueStore with injectable failures.
type memKV struct {
	data   map[string]string
	getErr error
	setErr error
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *memKV) Close() error { return nil }

func TestInvestmentStore_SaveThenLoad(t *testing.T) {
	kv := newMemKV()
	store := NewInvestmentStore(kv, "", nil)
	ctx := context.Background()

	created := time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC)
	invs := []models.Investment{
		{ID: "a", AssetSymbol: "btc", AssetID: "bitcoin", Amount: 0.25, Price: models.Float64Ptr(40000), CurrentPrice: models.Float64Ptr(65000), CreatedAt: created, LastUpdated: created},
		{ID: "b", AssetSymbol: "pepe", Amount: 1e6, CreatedAt: created, Notes: "memecoin"},
	}
	require.NoError(t, store.Save(ctx, invs))
	assert.Contains(t, kv.data, DefaultInvestmentsKey)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, invs, loaded)
}

func TestInvestmentStore_SaveNilWritesEmptyArray(t *testing.T) {
	kv := newMemKV()
	store := NewInvestmentStore(kv, "portfolio", nil)

	require.NoError(t, store.Save(context.Background(), nil))
	assert.Equal(t, "[]", kv.data["portfolio"])
}

func TestInvestmentStore_LoadDegradesToEmpty(t *testing.T) {
	cases := map[string]*memKV{
		"absent":     newMemKV(),
		"blank":      {data: map[string]string{"investments": "  "}},
		"unparsable": {data: map[string]string{"investments": "{not json"}},
		"wrong type": {data: map[string]string{"investments": `{"id":"a"}`}},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			loaded, err := NewInvestmentStore(kv, "", nil).Load(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, loaded)
			assert.Empty(t, loaded)
		})
	}
}

func TestInvestmentStore_BackendFailures(t *testing.T) {
	kv := newMemKV()
	kv.getErr = errors.New("disk gone")
	kv.setErr = errors.New("disk gone")
	store := NewInvestmentStore(kv, "", nil)

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrPersistenceUnavailable)
	assert.ErrorIs(t, err, kv.getErr)

	err = store.Save(context.Background(), []models.Investment{{ID: "a"}})
	assert.ErrorIs(t, err, ErrPersistenceUnavailable)
}

func TestInvestmentStore_LoadDropsDuplicateIDs(t *testing.T) {
	kv := &memKV{data: map[string]string{
		"investments": `[{"id":"a","asset_symbol":"btc","amount":1},{"id":"a","asset_symbol":"eth","amount":2},{"id":"b","asset":"sol","amount":3}]`,
	}}

	loaded, err := NewInvestmentStore(kv, "", nil).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "btc", loaded[0].AssetSymbol)
	assert.Equal(t, "sol", loaded[1].Symbol())
}

func TestInvestmentStore_OverFileStore(t *testing.T) {
	fs, _ := newTestFileStore(t, 1)
	store := NewInvestmentStore(fs, "", nil)
	ctx := context.Background()

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	require.NoError(t, store.Save(ctx, []models.Investment{{ID: "x", AssetSymbol: "eth", Amount: 2}}))
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "x", loaded[0].ID)
}
