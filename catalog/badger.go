package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/hupe1980/shopmesh/core"
)

// BadgerOptions configures a BadgerStore.
type BadgerOptions struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps all data in memory (tests, demos).
	InMemory bool
}

// BadgerStore persists catalog records as JSON values in badger. Keys:
//
//	product:<id>
//	user:<id>
//	purchase:<user>:<item>:<purchase id>
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a badger backed catalog.
func NewBadgerStore(optFns ...func(o *BadgerOptions)) (*BadgerStore, error) {
	opts := BadgerOptions{Path: "data/catalog"}
	for _, fn := range optFns {
		fn(&opts)
	}

	bopts := badger.DefaultOptions(opts.Path).WithLoggingLevel(badger.WARNING)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.WARNING)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error { return s.db.Close() }

func productKey(id int) []byte { return []byte(fmt.Sprintf("product:%d", id)) }

func userKey(id int) []byte { return []byte(fmt.Sprintf("user:%d", id)) }

func purchasePrefix(userID, itemID int) []byte {
	return []byte(fmt.Sprintf("purchase:%d:%d:", userID, itemID))
}

func (s *BadgerStore) put(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (s *BadgerStore) get(key []byte, v any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%s: %w", key, core.ErrNotFound)
	}
	return err
}

// scan decodes every value under prefix in key order.
func (s *BadgerStore) scan(ctx context.Context, prefix []byte, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

// PutProduct inserts or replaces a product.
func (s *BadgerStore) PutProduct(_ context.Context, p core.Product) error {
	return s.put(productKey(p.ID), p)
}

// PutUser inserts or replaces a user.
func (s *BadgerStore) PutUser(_ context.Context, u core.User) error {
	return s.put(userKey(u.ID), u)
}

// Product returns the product with id or core.ErrNotFound.
func (s *BadgerStore) Product(_ context.Context, id int) (core.Product, error) {
	var p core.Product
	if err := s.get(productKey(id), &p); err != nil {
		return core.Product{}, err
	}
	return p, nil
}

// User returns the user with id or core.ErrNotFound.
func (s *BadgerStore) User(_ context.Context, id int) (core.User, error) {
	var u core.User
	if err := s.get(userKey(id), &u); err != nil {
		return core.User{}, err
	}
	return u, nil
}

// AddPurchase stores a purchase, assigning an id when empty. Purchases are
// append-only: an existing key is rejected with core.ErrConflict.
func (s *BadgerStore) AddPurchase(_ context.Context, p core.Purchase) error {
	if p.ID == "" {
		p.ID = PurchaseID(p)
	}
	key := append(purchasePrefix(p.UserID, p.ItemID), p.ID...)
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return fmt.Errorf("purchase %s: %w", p.ID, core.ErrConflict)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(key, data)
	})
}

// FindPurchase returns the first purchase of itemID by userID in key order.
func (s *BadgerStore) FindPurchase(ctx context.Context, userID, itemID int) (core.Purchase, error) {
	var (
		found core.Purchase
		ok    bool
	)
	errStop := errors.New("stop")
	err := s.scan(ctx, purchasePrefix(userID, itemID), func(val []byte) error {
		if err := json.Unmarshal(val, &found); err != nil {
			return err
		}
		ok = true
		return errStop
	})
	if err != nil && !errors.Is(err, errStop) {
		return core.Purchase{}, err
	}
	if !ok {
		return core.Purchase{}, fmt.Errorf("purchase user=%d item=%d: %w", userID, itemID, core.ErrNotFound)
	}
	return found, nil
}

// Purchases lists the purchases of userID ordered by purchase date.
func (s *BadgerStore) Purchases(ctx context.Context, userID int) ([]core.Purchase, error) {
	out := []core.Purchase{}
	err := s.scan(ctx, []byte(fmt.Sprintf("purchase:%d:", userID)), func(val []byte) error {
		var p core.Purchase
		if err := json.Unmarshal(val, &p); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// SimilaritySearch ranks every stored product against vector.
func (s *BadgerStore) SimilaritySearch(ctx context.Context, vector []float32, minScore float64, topK int) ([]core.ScoredProduct, error) {
	var products []core.Product
	err := s.scan(ctx, []byte("product:"), func(val []byte) error {
		var p core.Product
		if err := json.Unmarshal(val, &p); err != nil {
			return nil // skip malformed entries
		}
		products = append(products, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return Rank(products, vector, minScore, topK), nil
}
