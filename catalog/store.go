package catalog

import (
	"context"

	"github.com/hupe1980/shopmesh/core"
)

// Store is the full set of catalog capabilities shared by every backend.
type Store interface {
	core.ProductStore
	core.UserStore
	core.PurchaseStore
	core.ProductSearcher

	PutProduct(ctx context.Context, p core.Product) error
	PutUser(ctx context.Context, u core.User) error
	Purchases(ctx context.Context, userID int) ([]core.Purchase, error)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*BadgerStore)(nil)
)

// PurchaseID builds a unique purchase record id
// "<user>_<item>_<RFC3339Nano date>_<uuid>". Two orders of the same item on
// the same instant still get distinct ids.
func PurchaseID(p core.Purchase) string {
	return fmtPurchaseID(p.UserID, p.ItemID, p.Date) + "_" + core.NewID()
}
