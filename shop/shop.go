package shop

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/hupe1980/shopmesh/core"
	"github.com/hupe1980/shopmesh/logging"
	"github.com/hupe1980/shopmesh/tool"
)

// Tool names.
const (
	RefundItemTool         = "refund_item"
	NotifyCustomerTool     = "notify_customer"
	OrderItemTool          = "order_item"
	ProductInformationTool = "product_information"
)

// Search defaults.
const (
	DefaultMinScore = 0.02
	DefaultTopK     = 3
	maxItemID       = 300
)

// Services are the collaborators the shop tools depend on.
type Services struct {
	Products  core.ProductStore
	Users     core.UserStore
	Purchases core.PurchaseStore
	Search    core.ProductSearcher
	Embedder  core.Embedder
	Notifier  Notifier

	// ItemIDs generates item ids for new orders. Defaults to a uniform
	// random id in [1, 300].
	ItemIDs func() int
	// Now stamps new purchases. Defaults to time.Now.
	Now func() time.Time

	// MinScore is the similarity floor for product_information; zero means
	// DefaultMinScore.
	MinScore float64
	// TopK caps the number of product matches; zero means DefaultTopK.
	TopK int

	Logger logging.Logger
}

// Toolset holds the shop tools.
type Toolset struct {
	RefundItem         tool.Tool
	NotifyCustomer     tool.Tool
	OrderItem          tool.Tool
	ProductInformation tool.Tool
}

// All returns every tool in declaration order.
func (ts Toolset) All() []tool.Tool {
	return []tool.Tool{ts.RefundItem, ts.NotifyCustomer, ts.OrderItem, ts.ProductInformation}
}

// RefundArgs are the arguments of refund_item.
type RefundArgs struct {
	UserID int `json:"user_id" description:"The customer's user ID"`
	ItemID int `json:"item_id" description:"The item ID of the purchase to refund"`
}

// NotifyArgs are the arguments of notify_customer.
type NotifyArgs struct {
	UserID int    `json:"user_id" description:"The customer's user ID"`
	Method string `json:"method" description:"Preferred notification method" enum:"email, phone"`
}

// OrderArgs are the arguments of order_item.
type OrderArgs struct {
	UserID    int `json:"user_id" description:"The customer's user ID"`
	ProductID int `json:"product_id" description:"The product ID to order"`
}

// ProductInfoArgs are the arguments of product_information.
type ProductInfoArgs struct {
	QueryText string `json:"query_text" description:"The user's product question"`
}

type shop struct {
	svc    Services
	logger logging.Logger
}

// NewToolset builds the shop tools over svc.
func NewToolset(svc Services) Toolset {
	if svc.ItemIDs == nil {
		svc.ItemIDs = func() int { return rand.Intn(maxItemID) + 1 }
	}
	if svc.Now == nil {
		svc.Now = time.Now
	}
	if svc.MinScore == 0 {
		svc.MinScore = DefaultMinScore
	}
	if svc.TopK == 0 {
		svc.TopK = DefaultTopK
	}
	if svc.Notifier == nil {
		svc.Notifier = LogNotifier{Logger: svc.Logger}
	}
	s := &shop{svc: svc, logger: logging.OrNoOp(svc.Logger)}
	withLogger := func(o *tool.FunctionOptions) { o.Logger = s.logger }

	return Toolset{
		RefundItem: tool.NewTypedTool(RefundItemTool,
			"Initiate a refund based on the user ID and item ID.",
			s.refundItem, withLogger),
		NotifyCustomer: tool.NewTypedTool(NotifyCustomerTool,
			"Notify a customer by their preferred method of either phone or email.",
			s.notifyCustomer, withLogger),
		OrderItem: tool.NewTypedTool(OrderItemTool,
			"Place an order for a product based on the user ID and product ID.",
			s.orderItem, withLogger),
		ProductInformation: tool.NewTypedTool(ProductInformationTool,
			"Provide information about products matching the user's question.",
			s.productInformation, withLogger),
	}
}

func (s *shop) refundItem(ctx context.Context, a RefundArgs) (core.Result, error) {
	p, err := s.svc.Purchases.FindPurchase(ctx, a.UserID, a.ItemID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Miss(fmt.Sprintf("No purchase found for user ID %d and item ID %d. No refund was issued.", a.UserID, a.ItemID)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("find purchase: %w", err)
	}
	return core.Text(fmt.Sprintf("Refunding $%.2f to user ID %d for item ID %d.", p.Amount, a.UserID, a.ItemID)), nil
}

func (s *shop) notifyCustomer(ctx context.Context, a NotifyArgs) (core.Result, error) {
	u, err := s.svc.Users.User(ctx, a.UserID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Miss(fmt.Sprintf("User ID %d not found.", a.UserID)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	var address, confirmation string
	switch a.Method {
	case MethodEmail:
		address, confirmation = u.Email, "Emailed customer %s a notification."
	case MethodPhone:
		address, confirmation = u.Phone, "Texted customer %s a notification."
	}
	if address == "" {
		return core.Miss(fmt.Sprintf("No %s contact available for user ID %d.", a.Method, a.UserID)), nil
	}

	if err := s.svc.Notifier.Notify(ctx, Notification{UserID: a.UserID, Method: a.Method, Address: address}); err != nil {
		return nil, fmt.Errorf("notify: %w", err)
	}
	return core.Text(fmt.Sprintf(confirmation, address)), nil
}

func (s *shop) orderItem(ctx context.Context, a OrderArgs) (core.Result, error) {
	product, err := s.svc.Products.Product(ctx, a.ProductID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Miss(fmt.Sprintf("Product %d not found.", a.ProductID)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup product: %w", err)
	}

	purchase := core.Purchase{
		UserID:    a.UserID,
		ItemID:    s.svc.ItemIDs(),
		ProductID: product.ID,
		Date:      s.svc.Now(),
		Amount:    product.Price,
	}
	if err := s.svc.Purchases.AddPurchase(ctx, purchase); err != nil {
		return nil, fmt.Errorf("add purchase: %w", err)
	}

	s.logger.Info("shop.order.placed", "user_id", a.UserID, "product_id", product.ID, "item_id", purchase.ItemID, "amount", product.Price)

	return core.Text(fmt.Sprintf("Order placed for product %s (product ID %d, price $%.2f) for user ID %d. Item ID: %d.",
		product.Name, product.ID, product.Price, a.UserID, purchase.ItemID)), nil
}

func (s *shop) productInformation(ctx context.Context, a ProductInfoArgs) (core.Result, error) {
	vec, err := s.svc.Embedder.Embed(ctx, a.QueryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := s.svc.Search.SimilaritySearch(ctx, vec, s.svc.MinScore, s.svc.TopK)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	if len(matches) == 0 {
		return core.Miss("No matching products found."), nil
	}
	return core.Text(FormatMatches(matches)), nil
}

// FormatMatches renders ranked products one per line as
// "product id <id>: <name> - <description> price: <price>".
func FormatMatches(matches []core.ScoredProduct) string {
	lines := make([]string, len(matches))
	for i, m := range matches {
		p := m.Product
		lines[i] = fmt.Sprintf("product id %d: %s - %s price: %.2f", p.ID, p.Name, p.Description, p.Price)
	}
	return strings.Join(lines, "\n")
}
