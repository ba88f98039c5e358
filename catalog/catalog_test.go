package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/shopmesh/core"
	"github.com/hupe1980/shopmesh/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, Cosine([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 0}))
	assert.Zero(t, Cosine(nil, nil))
}

func TestRank(t *testing.T) {
	products := []core.Product{
		{ID: 3, Embedding: []float32{1, 0}},
		{ID: 1, Embedding: []float32{1, 0}},
		{ID: 2, Embedding: []float32{1, 1}},
		{ID: 4, Embedding: []float32{0, 1}},
	}
	query := []float32{1, 0}

	all := Rank(products, query, 0, 0)
	require.Len(t, all, 3) // id 4 scores exactly 0 and is excluded
	assert.Equal(t, 1, all[0].Product.ID)
	assert.Equal(t, 3, all[1].Product.ID)
	assert.Equal(t, 2, all[2].Product.ID)

	for k := 1; k <= 3; k++ {
		assert.Equal(t, all[:k], Rank(products, query, 0, k), "topK=%d", k)
	}

	for _, sp := range Rank(products, query, 0.9, 0) {
		assert.Greater(t, sp.Score, 0.9)
	}
	assert.Len(t, Rank(products, query, 1.0, 0), 0)
}

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	b, err := NewBadgerStore(func(o *BadgerOptions) { o.InMemory = true })
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return map[string]Store{"memory": NewMemoryStore(), "badger": b}
}

func TestStores(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, Seed(ctx, store, model.NewHashEmbedder(128)))

			u, err := store.User(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, "bob@test.com", u.Email)

			_, err = store.User(ctx, 99)
			assert.ErrorIs(t, err, core.ErrNotFound)

			p, err := store.Product(ctx, 9)
			require.NoError(t, err)
			assert.Equal(t, "Shoes", p.Name)
			assert.Equal(t, 39.99, p.Price)
			assert.Len(t, p.Embedding, 128)

			_, err = store.Product(ctx, 1)
			assert.ErrorIs(t, err, core.ErrNotFound)

			purchase, err := store.FindPurchase(ctx, 1, 101)
			require.NoError(t, err)
			assert.Equal(t, 99.99, purchase.Amount)
			assert.True(t, strings.HasPrefix(purchase.ID, "1_101_2024-01-01T00:00:00Z_"), purchase.ID)

			_, err = store.FindPurchase(ctx, 1, 10)
			assert.ErrorIs(t, err, core.ErrNotFound)

			require.NoError(t, store.AddPurchase(ctx, core.Purchase{
				UserID: 1, ItemID: 10, ProductID: 7, Amount: 19.99,
				Date: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
			}))
			got, err := store.FindPurchase(ctx, 1, 10)
			require.NoError(t, err)
			assert.Equal(t, 7, got.ProductID)

			list, err := store.Purchases(ctx, 1)
			require.NoError(t, err)
			assert.Len(t, list, 2)
		})
	}
}

func TestAddPurchase_SameDaySameItem(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			morning := core.Purchase{UserID: 2, ItemID: 42, Amount: 39.99, Date: time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)}
			evening := core.Purchase{UserID: 2, ItemID: 42, Amount: 19.99, Date: time.Date(2024, time.March, 1, 18, 0, 0, 0, time.UTC)}
			again := morning

			require.NoError(t, store.AddPurchase(ctx, morning))
			require.NoError(t, store.AddPurchase(ctx, evening))
			require.NoError(t, store.AddPurchase(ctx, again))

			list, err := store.Purchases(ctx, 2)
			require.NoError(t, err)
			require.Len(t, list, 3)
			ids := map[string]bool{}
			var total float64
			for _, p := range list {
				ids[p.ID] = true
				total += p.Amount
			}
			assert.Len(t, ids, 3)
			assert.InDelta(t, 99.97, total, 1e-9)

			dup := list[0]
			err = store.AddPurchase(ctx, dup)
			assert.ErrorIs(t, err, core.ErrConflict)
			list, err = store.Purchases(ctx, 2)
			require.NoError(t, err)
			assert.Len(t, list, 3)
		})
	}
}

func TestSimilaritySearch(t *testing.T) {
	ctx := context.Background()
	embedder := model.NewHashEmbedder(256)
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, Seed(ctx, store, embedder))

			query, err := embedder.Embed(ctx, "warm wool socks for hiking")
			require.NoError(t, err)

			results, err := store.SimilaritySearch(ctx, query, 0.02, 3)
			require.NoError(t, err)
			require.NotEmpty(t, results)
			assert.LessOrEqual(t, len(results), 3)
			assert.Equal(t, 8, results[0].Product.ID)
			for i, r := range results {
				assert.Greater(t, r.Score, 0.02)
				if i > 0 {
					assert.GreaterOrEqual(t, results[i-1].Score, r.Score)
				}
			}

			top1, err := store.SimilaritySearch(ctx, query, 0.02, 1)
			require.NoError(t, err)
			assert.Equal(t, results[:1], top1)

			none, err := store.SimilaritySearch(ctx, query, 1.0, 3)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}
