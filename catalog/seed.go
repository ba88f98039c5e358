package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/shopmesh/core"
)

// SeedUsers are the demo customers.
var SeedUsers = []core.User{
	{ID: 1, FirstName: "Alice", LastName: "Smith", Email: "alice@test.com", Phone: "123-456-7890"},
	{ID: 2, FirstName: "Bob", LastName: "Johnson", Email: "bob@test.com", Phone: "234-567-8901"},
	{ID: 3, FirstName: "Sarah", LastName: "Brown", Email: "sarah@test.com", Phone: "555-567-8901"},
}

// SeedPurchases are the demo purchase records.
var SeedPurchases = []core.Purchase{
	{UserID: 1, ItemID: 101, Date: day(2024, time.January, 1), Amount: 99.99},
	{UserID: 2, ItemID: 100, Date: day(2023, time.December, 25), Amount: 39.99},
	{UserID: 3, ItemID: 307, Date: day(2023, time.November, 14), Amount: 49.99},
}

// SeedProducts are the demo products. Embeddings are computed by Seed.
var SeedProducts = []core.Product{
	{
		ID:       7,
		Name:     "Hat",
		Price:    19.99,
		Category: "accessories",
		Description: "A hat is a stylish and functional accessory designed to shield the " +
			"head from the elements while adding a touch of personality to any outfit. " +
			"Crafted from materials such as wool, cotton, straw, or synthetic blends, hats come " +
			"in a variety of shapes and designs, from wide-brimmed sun hats to snug beanies and classic fedoras. " +
			"They offer versatile use, providing protection from sun, rain, or cold while serving as a " +
			"fashionable statement piece. Whether for outdoor adventures, formal occasions, " +
			"or casual outings, a hat combines practicality and style, making it a " +
			"timeless wardrobe essential",
	},
	{
		ID:       8,
		Name:     "Wool socks",
		Price:    29.99,
		Category: "apparel",
		Description: "Wool socks are premium, cozy footwear accessories designed " +
			"to provide exceptional warmth, comfort, and moisture-wicking properties. " +
			"Made from natural wool fibers, they are ideal for keeping feet insulated in " +
			"cold weather while remaining breathable in warmer conditions. These socks are soft, " +
			"durable, and naturally odor-resistant, making them perfect for everyday wear, " +
			"outdoor adventures, or lounging at home. With their ability to regulate " +
			"temperature and cushion feet, wool socks offer unparalleled comfort, " +
			"making them an essential addition to any wardrobe, whether for hiking, working, " +
			"or simply relaxing.",
	},
	{
		ID:       9,
		Name:     "Shoes",
		Price:    39.99,
		Category: "footwear",
		Description: "Shoes are versatile footwear designed to protect and comfort " +
			"the feet while enabling effortless movement and style. They " +
			"come in a wide range of designs, materials, and functions, catering " +
			"to various activities, from formal occasions to rugged outdoor adventures. " +
			"Crafted from durable materials such as leather, canvas, or synthetic blends, " +
			"shoes provide support, cushioning, and stability through features like rubber soles, " +
			"padded insoles, and secure fastenings. Available in diverse styles such as sneakers, boots, " +
			"sandals, and dress shoes, they blend functionality with aesthetic appeal, making them a staple " +
			"for every wardrobe",
	},
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Seed loads the demo users, purchases and products into store. Product
// descriptions are embedded with embedder.
func Seed(ctx context.Context, store Store, embedder core.Embedder) error {
	for _, u := range SeedUsers {
		if err := store.PutUser(ctx, u); err != nil {
			return fmt.Errorf("seed user %d: %w", u.ID, err)
		}
	}
	for _, p := range SeedPurchases {
		if err := store.AddPurchase(ctx, p); err != nil {
			return fmt.Errorf("seed purchase %d/%d: %w", p.UserID, p.ItemID, err)
		}
	}
	for _, p := range SeedProducts {
		vec, err := embedder.Embed(ctx, p.Description)
		if err != nil {
			return fmt.Errorf("embed product %d: %w", p.ID, err)
		}
		p.Embedding = vec
		if err := store.PutProduct(ctx, p); err != nil {
			return fmt.Errorf("seed product %d: %w", p.ID, err)
		}
	}
	return nil
}
