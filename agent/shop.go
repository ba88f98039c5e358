package agent

import (
	_ "embed"
	"strings"

	"github.com/hupe1980/shopmesh/shop"
	"github.com/hupe1980/shopmesh/tool"
)

// Reference agent names.
const (
	TriageAgent  = "Triage Agent"
	SalesAgent   = "Sales Agent"
	RefundsAgent = "Refunds Agent"
	ProductAgent = "Product Agent"
)

var (
	//go:embed instructions/triage.txt
	triageRaw string

	//go:embed instructions/sales.txt
	salesRaw string

	//go:embed instructions/refunds.txt
	refundsRaw string

	//go:embed instructions/product.txt
	productRaw string

	//go:embed instructions/context.txt
	contextRaw string
)

func shopInstruction(raw string) Instruction {
	return NewInstructionFromText(strings.TrimSpace(raw) + strings.TrimSpace(contextRaw))
}

// NewShopRegistry builds the customer service agents over ts with Triage as
// the entry agent.
//
//	Triage  -> Sales, Refunds, Product
//	Sales   -> Triage, Refunds
//	Refunds -> Triage
//	Product -> Triage, Sales, Refunds
func NewShopRegistry(ts shop.Toolset) (*Registry, error) {
	triage, err := New(TriageAgent, func(o *Options) {
		o.Description = "Routes the customer to the right department."
		o.Instruction = shopInstruction(triageRaw)
		o.Handoffs = []Handoff{{Target: SalesAgent}, {Target: RefundsAgent}, {Target: ProductAgent}}
	})
	if err != nil {
		return nil, err
	}

	sales, err := New(SalesAgent, func(o *Options) {
		o.Description = "Places orders and notifies customers."
		o.Instruction = shopInstruction(salesRaw)
		o.Tools = []tool.Tool{ts.OrderItem, ts.NotifyCustomer}
		o.Handoffs = []Handoff{{Target: TriageAgent}, {Target: RefundsAgent}}
	})
	if err != nil {
		return nil, err
	}

	refunds, err := New(RefundsAgent, func(o *Options) {
		o.Description = "Issues refunds and notifies customers."
		o.Instruction = shopInstruction(refundsRaw)
		o.Tools = []tool.Tool{ts.RefundItem, ts.NotifyCustomer}
		o.Handoffs = []Handoff{{Target: TriageAgent}}
	})
	if err != nil {
		return nil, err
	}

	product, err := New(ProductAgent, func(o *Options) {
		o.Description = "Answers product questions from the catalog."
		o.Instruction = shopInstruction(productRaw)
		o.Tools = []tool.Tool{ts.ProductInformation}
		o.Handoffs = []Handoff{{Target: TriageAgent}, {Target: SalesAgent}, {Target: RefundsAgent}}
	})
	if err != nil {
		return nil, err
	}

	return NewRegistry(TriageAgent, triage, sales, refunds, product)
}
