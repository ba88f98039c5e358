package core

import (
	"context"
	"time"
)

// Product is a catalog entry. Records are immutable once seeded.
type Product struct {
	ID          int       `json:"product_id"`
	Name        string    `json:"product_name"`
	Description string    `json:"product_description"`
	Embedding   []float32 `json:"product_description_vector,omitempty"`
	Price       float64   `json:"price"`
	Category    string    `json:"category,omitempty"`
}

// ScoredProduct pairs a product with its similarity score.
type ScoredProduct struct {
	Product Product `json:"product"`
	Score   float64 `json:"score"`
}

// User is a customer record.
type User struct {
	ID        int    `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Purchase is an append-only purchase history record.
type Purchase struct {
	ID        string    `json:"id"`
	UserID    int       `json:"user_id"`
	ItemID    int       `json:"item_id"`
	ProductID int       `json:"product_id,omitempty"`
	Date      time.Time `json:"date_of_purchase"`
	Amount    float64   `json:"amount"`
}

// ProductStore reads products by id.
type ProductStore interface {
	Product(ctx context.Context, id int) (Product, error)
}

// UserStore reads users by id.
type UserStore interface {
	User(ctx context.Context, id int) (User, error)
}

// PurchaseStore reads and appends purchase history.
type PurchaseStore interface {
	FindPurchase(ctx context.Context, userID, itemID int) (Purchase, error)
	AddPurchase(ctx context.Context, p Purchase) error
}

// ProductSearcher ranks products by similarity to a query vector.
//
// Results are ordered by descending score, never contain a score at or below
// minScore and hold at most topK entries.
type ProductSearcher interface {
	SimilaritySearch(ctx context.Context, vector []float32, minScore float64, topK int) ([]ScoredProduct, error)
}

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
