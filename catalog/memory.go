package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/shopmesh/core"
)

// MemoryStore is a process-local catalog. Products and users are keyed by id,
// purchases are kept per user in insertion order.
//
// Concurrency: protected by RWMutex. Returned records are copies.
type MemoryStore struct {
	mu        sync.RWMutex
	products  map[int]core.Product
	users     map[int]core.User
	purchases map[int][]core.Purchase // userID -> purchases
}

// NewMemoryStore creates an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:  make(map[int]core.Product),
		users:     make(map[int]core.User),
		purchases: make(map[int][]core.Purchase),
	}
}

// PutProduct inserts or replaces a product.
func (m *MemoryStore) PutProduct(_ context.Context, p core.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Embedding = cloneVector(p.Embedding)
	m.products[p.ID] = p
	return nil
}

// PutUser inserts or replaces a user.
func (m *MemoryStore) PutUser(_ context.Context, u core.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

// Product returns the product with id or core.ErrNotFound.
func (m *MemoryStore) Product(_ context.Context, id int) (core.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return core.Product{}, fmt.Errorf("product %d: %w", id, core.ErrNotFound)
	}
	p.Embedding = cloneVector(p.Embedding)
	return p, nil
}

// User returns the user with id or core.ErrNotFound.
func (m *MemoryStore) User(_ context.Context, id int) (core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	return u, nil
}

// FindPurchase returns the first purchase of itemID by userID.
func (m *MemoryStore) FindPurchase(_ context.Context, userID, itemID int) (core.Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.purchases[userID] {
		if p.ItemID == itemID {
			return p, nil
		}
	}
	return core.Purchase{}, fmt.Errorf("purchase user=%d item=%d: %w", userID, itemID, core.ErrNotFound)
}

// AddPurchase appends a purchase, assigning an id when empty. An existing id
// is rejected with core.ErrConflict.
func (m *MemoryStore) AddPurchase(_ context.Context, p core.Purchase) error {
	if p.ID == "" {
		p.ID = PurchaseID(p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.purchases[p.UserID] {
		if existing.ID == p.ID {
			return fmt.Errorf("purchase %s: %w", p.ID, core.ErrConflict)
		}
	}
	m.purchases[p.UserID] = append(m.purchases[p.UserID], p)
	return nil
}

// Purchases lists the purchases of userID in insertion order.
func (m *MemoryStore) Purchases(_ context.Context, userID int) ([]core.Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Purchase, len(m.purchases[userID]))
	copy(out, m.purchases[userID])
	return out, nil
}

// SimilaritySearch ranks every stored product against vector.
func (m *MemoryStore) SimilaritySearch(ctx context.Context, vector []float32, minScore float64, topK int) ([]core.ScoredProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	products := make([]core.Product, 0, len(m.products))
	for _, p := range m.products {
		p.Embedding = cloneVector(p.Embedding)
		products = append(products, p)
	}
	m.mu.RUnlock()
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return Rank(products, vector, minScore, topK), nil
}

func cloneVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

func fmtPurchaseID(userID, itemID int, date time.Time) string {
	return fmt.Sprintf("%d_%d_%s", userID, itemID, date.UTC().Format(time.RFC3339Nano))
}
