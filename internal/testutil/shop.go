package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/shopmesh/agent"
	"github.com/hupe1980/shopmesh/catalog"
	"github.com/hupe1980/shopmesh/model"
	"github.com/hupe1980/shopmesh/shop"
)

// FixedItemID is the item id assigned to every order placed through a ShopFixture.
const FixedItemID = 42

// FixedNow is the purchase date of every order placed through a ShopFixture.
var FixedNow = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// RecordingNotifier records notifications instead of delivering them.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []shop.Notification
}

// Notify implements shop.Notifier.
func (r *RecordingNotifier) Notify(_ context.Context, n shop.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

// Sent returns the recorded notifications.
func (r *RecordingNotifier) Sent() []shop.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]shop.Notification(nil), r.sent...)
}

// ShopFixture is a seeded in-memory shop with the reference agents.
type ShopFixture struct {
	Catalog  *catalog.MemoryStore
	Embedder *model.HashEmbedder
	Notifier *RecordingNotifier
	Toolset  shop.Toolset
	Registry *agent.Registry
}

// NewShopFixture seeds an in-memory catalog with the demo data and builds the
// reference agents over it. Orders get FixedItemID and FixedNow.
func NewShopFixture(ctx context.Context) (*ShopFixture, error) {
	store := catalog.NewMemoryStore()
	embedder := model.NewHashEmbedder(0)
	if err := catalog.Seed(ctx, store, embedder); err != nil {
		return nil, err
	}

	notifier := &RecordingNotifier{}
	ts := shop.NewToolset(shop.Services{
		Products:  store,
		Users:     store,
		Purchases: store,
		Search:    store,
		Embedder:  embedder,
		Notifier:  notifier,
		ItemIDs:   func() int { return FixedItemID },
		Now:       func() time.Time { return FixedNow },
	})

	reg, err := agent.NewShopRegistry(ts)
	if err != nil {
		return nil, err
	}

	return &ShopFixture{
		Catalog:  store,
		Embedder: embedder,
		Notifier: notifier,
		Toolset:  ts,
		Registry: reg,
	}, nil
}
