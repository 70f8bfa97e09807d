package guestcart

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/kvstore"
	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*Ledger, *kvstore.MemoryStore) {
	t.Helper()
	store := kvstore.NewMemoryStore()
	return NewLedger(store, zerolog.Nop()), store
}

func seed(t *testing.T, store kvstore.Store, raw string) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), kvstore.GuestCartKey, raw))
}

func TestLedger_Read(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []model.GuestEntry
	}{
		{
			name: "well formed",
			raw:  `{"items":[{"productId":"P1","quantity":2},{"productId":"P2","quantity":1}]}`,
			want: []model.GuestEntry{{ProductID: "P1", Quantity: 2}, {ProductID: "P2", Quantity: 1}},
		},
		{
			name: "malformed json",
			raw:  `{"items":[`,
			want: []model.GuestEntry{},
		},
		{
			name: "top level array",
			raw:  `[{"productId":"P1","quantity":1}]`,
			want: []model.GuestEntry{},
		},
		{
			name: "items not an array",
			raw:  `{"items":{"productId":"P1"}}`,
			want: []model.GuestEntry{},
		},
		{
			name: "null document",
			raw:  `null`,
			want: []model.GuestEntry{},
		},
		{
			name: "bad entries dropped, good kept",
			raw: `{"items":[
				{"productId":"","quantity":1},
				{"productId":7,"quantity":1},
				{"quantity":1},
				{"productId":"P1","quantity":"abc"},
				{"productId":"P2","quantity":{}},
				{"productId":"P3"},
				"P4",
				{"productId":"P5","quantity":3}
			]}`,
			want: []model.GuestEntry{{ProductID: "P5", Quantity: 3}},
		},
		{
			name: "quantities coerced, truncated and clamped",
			raw: `{"items":[
				{"productId":"A","quantity":250},
				{"productId":"B","quantity":0},
				{"productId":"C","quantity":-4},
				{"productId":"D","quantity":2.9},
				{"productId":"E","quantity":" 7 "},
				{"productId":"F","quantity":true},
				{"productId":"G","quantity":null},
				{"productId":"H","quantity":""}
			]}`,
			want: []model.GuestEntry{
				{ProductID: "A", Quantity: 99},
				{ProductID: "B", Quantity: 1},
				{ProductID: "C", Quantity: 1},
				{ProductID: "D", Quantity: 2},
				{ProductID: "E", Quantity: 7},
				{ProductID: "F", Quantity: 1},
				{ProductID: "G", Quantity: 1},
				{ProductID: "H", Quantity: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, store := newTestLedger(t)
			seed(t, store, tt.raw)

			got := ledger.Read(context.Background())
			assert.Equal(t, tt.want, got.Items)
		})
	}
}

func TestLedger_Read_Absent(t *testing.T) {
	ledger, _ := newTestLedger(t)

	data := ledger.Read(context.Background())
	assert.NotNil(t, data.Items)
	assert.Empty(t, data.Items)
}

type failingStore struct{ kvstore.Store }

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}

func TestLedger_Read_StoreErrorIsEmpty(t *testing.T) {
	ledger := NewLedger(failingStore{kvstore.NewMemoryStore()}, zerolog.Nop())

	assert.Empty(t, ledger.Read(context.Background()).Items)

	_, err := ledger.Exists(context.Background())
	assert.Error(t, err)
}

func TestLedger_Upsert(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t)

	require.NoError(t, ledger.Upsert(ctx, "P1", 2))
	require.NoError(t, ledger.Upsert(ctx, "P2", 1))
	require.NoError(t, ledger.Upsert(ctx, "P1", 3))

	assert.Equal(t, []model.GuestEntry{
		{ProductID: "P2", Quantity: 1},
		{ProductID: "P1", Quantity: 5},
	}, ledger.Read(ctx).Items, "new entries go to the front, existing ones are summed in place")
}

func TestLedger_Upsert_Clamps(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t)

	require.NoError(t, ledger.Upsert(ctx, "P1", 98))
	require.NoError(t, ledger.Upsert(ctx, "P1", 5))
	require.NoError(t, ledger.Upsert(ctx, "P2", 500))

	items := ledger.Read(ctx).Items
	require.Len(t, items, 2)
	assert.Equal(t, 99, items[0].Quantity)
	assert.Equal(t, 99, items[1].Quantity)
}

func TestLedger_Upsert_EmptyProductID(t *testing.T) {
	ledger, _ := newTestLedger(t)

	err := ledger.Upsert(context.Background(), "", 1)
	assert.ErrorIs(t, err, model.ErrMissingProduct)
}

func TestLedger_SetQuantity(t *testing.T) {
	ctx := context.Background()
	ledger, store := newTestLedger(t)
	seed(t, store, `{"items":[{"productId":"P1","quantity":2}]}`)

	require.NoError(t, ledger.SetQuantity(ctx, "P1", 0))
	assert.Equal(t, 1, ledger.Read(ctx).Items[0].Quantity)

	require.NoError(t, ledger.SetQuantity(ctx, "P1", 1000))
	assert.Equal(t, 99, ledger.Read(ctx).Items[0].Quantity)

	before, _, err := store.Get(ctx, kvstore.GuestCartKey)
	require.NoError(t, err)
	require.NoError(t, ledger.SetQuantity(ctx, "missing", 4))
	after, _, err := store.Get(ctx, kvstore.GuestCartKey)
	require.NoError(t, err)
	assert.Equal(t, before, after, "unknown product ids are ignored")
}

func TestLedger_Remove(t *testing.T) {
	ctx := context.Background()
	ledger, store := newTestLedger(t)
	seed(t, store, `{"items":[{"productId":"P1","quantity":2},{"productId":"P2","quantity":1}]}`)

	require.NoError(t, ledger.Remove(ctx, "P1"))
	assert.Equal(t, []model.GuestEntry{{ProductID: "P2", Quantity: 1}}, ledger.Read(ctx).Items)

	require.NoError(t, ledger.Remove(ctx, "P2"))
	exists, err := ledger.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists, "removing the last entry clears the key")
}

func TestLedger_WriteAndClear(t *testing.T) {
	ctx := context.Background()
	ledger, store := newTestLedger(t)

	require.NoError(t, ledger.Write(ctx, Data{}))
	raw, ok, err := store.Get(ctx, kvstore.GuestCartKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"items":[]}`, raw)

	require.NoError(t, ledger.Clear(ctx))
	exists, err := ledger.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestData_ProductIDs(t *testing.T) {
	data := Data{Items: []model.GuestEntry{{ProductID: "B", Quantity: 1}, {ProductID: "A", Quantity: 3}}}
	assert.Equal(t, []string{"B", "A"}, data.ProductIDs())
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, Clamp(-3))
	assert.Equal(t, 1, Clamp(0))
	assert.Equal(t, 42, Clamp(42))
	assert.Equal(t, 99, Clamp(100))
}
