package draft

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/orderdeskhq/orderdesk-backend/pkg/storeapi"
)

// ProductSchema is the option layout of a product, fetched once per draft
// and cached so repeated adds of the same product don't refetch.
type ProductSchema struct {
	Options []storeapi.ProductOption
	// Values holds the selectable values per option id, already filtered
	// to active ones and sorted by sort order.
	Values map[int64][]storeapi.OptionValue
}

// SelectedValue is one resolved option choice on a cart line.
type SelectedValue struct {
	OptionID   int64
	OptionName string
	ValueID    int64
	ValueLabel string
	PriceDelta decimal.Decimal
}

// Line is one cart row. Lines for the same product merge only once every
// option has a value, keyed by the line signature.
type Line struct {
	Key     string
	Product storeapi.Product

	Quantity int
	// QuantityInput buffers in-progress quantity edits so partial input
	// (including an empty field) never corrupts Quantity. Nil when no
	// edit is pending.
	QuantityInput *string

	// Selected maps option id to the chosen value. Missing entries mean
	// the option is still unset.
	Selected map[int64]SelectedValue
}

// Configured reports whether every option of the product has a value.
func (l *Line) Configured(optionCount int) bool {
	return len(l.Selected) >= optionCount
}

// UnitPrice is the base price plus the sum of all selected option deltas.
// Until the line is fully configured it contributes nothing, so half-built
// lines never inflate the subtotal.
func (l *Line) UnitPrice(optionCount int) decimal.Decimal {
	if !l.Configured(optionCount) {
		return decimal.Zero
	}
	price := l.Product.BasePrice
	for _, sel := range l.Selected {
		price = price.Add(sel.PriceDelta)
	}
	return price
}

// Total is quantity times unit price.
func (l *Line) Total(optionCount int) decimal.Decimal {
	return l.UnitPrice(optionCount).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Signature identifies a fully configured line for merging: the product id
// plus every (option, value) pair in option-id order. Returns false while
// any option is unset.
func (l *Line) Signature(optionCount int) (string, bool) {
	if !l.Configured(optionCount) {
		return "", false
	}
	optionIDs := make([]int64, 0, len(l.Selected))
	for id := range l.Selected {
		optionIDs = append(optionIDs, id)
	}
	sort.Slice(optionIDs, func(i, j int) bool { return optionIDs[i] < optionIDs[j] })

	var b strings.Builder
	fmt.Fprintf(&b, "p:%d", l.Product.ID)
	for _, id := range optionIDs {
		sel := l.Selected[id]
		fmt.Fprintf(&b, "|%d=%d", id, sel.ValueID)
	}
	return b.String(), true
}

// SortedSelections returns the chosen values in option-id order, for
// stable rendering and payload generation.
func (l *Line) SortedSelections() []SelectedValue {
	out := make([]SelectedValue, 0, len(l.Selected))
	for _, sel := range l.Selected {
		out = append(out, sel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OptionID < out[j].OptionID })
	return out
}

// CartState is the ordered set of lines plus the per-draft schema cache.
type CartState struct {
	Lines   []*Line
	Schemas map[int64]*ProductSchema
}

// Schema returns the cached option layout for a product, nil when the
// product has not been added yet.
func (c *CartState) Schema(productID int64) *ProductSchema {
	if c.Schemas == nil {
		return nil
	}
	return c.Schemas[productID]
}

// PutSchema caches the option layout for a product.
func (c *CartState) PutSchema(productID int64, schema *ProductSchema) {
	if c.Schemas == nil {
		c.Schemas = map[int64]*ProductSchema{}
	}
	c.Schemas[productID] = schema
}

// OptionCount returns the number of options the product carries, zero when
// the schema is unknown.
func (c *CartState) OptionCount(productID int64) int {
	schema := c.Schema(productID)
	if schema == nil {
		return 0
	}
	return len(schema.Options)
}

// Line finds a line by key.
func (c *CartState) Line(key string) *Line {
	for _, line := range c.Lines {
		if line.Key == key {
			return line
		}
	}
	return nil
}

// FindBySignature returns the fully configured line matching the
// signature, excluding the given key.
func (c *CartState) FindBySignature(signature, excludeKey string) *Line {
	for _, line := range c.Lines {
		if line.Key == excludeKey {
			continue
		}
		sig, ok := line.Signature(c.OptionCount(line.Product.ID))
		if ok && sig == signature {
			return line
		}
	}
	return nil
}

// Remove deletes the line with the given key, reporting whether it existed.
func (c *CartState) Remove(key string) bool {
	for i, line := range c.Lines {
		if line.Key == key {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return true
		}
	}
	return false
}

// Subtotal sums line totals. Unconfigured lines contribute zero through
// their unit price.
func (c *CartState) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Total(c.OptionCount(line.Product.ID)))
	}
	return total
}
