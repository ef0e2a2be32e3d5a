// Package draft holds the in-memory state of a manual order being composed
// by an operator. A draft is the single mutable aggregate the engines
// (customers, addresses, cart, pricing, submit) operate on; all mutation
// happens under the draft lock, and background lookup results are applied
// only while their sequence guard is still current.
package draft

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderdeskhq/orderdesk-backend/pkg/debounce"
	"github.com/orderdeskhq/orderdesk-backend/pkg/storeapi"
)

// DestinationMode selects which address book and shipping model applies.
type DestinationMode string

const (
	DestinationDomestic      DestinationMode = "DOMESTIC"
	DestinationInternational DestinationMode = "INTERNATIONAL"
)

// CustomerState tracks the search-and-resolve flow for the order's buyer.
type CustomerState struct {
	Query       string
	Suggestions []storeapi.Customer
	Resolved    *storeapi.Customer
}

// AddressState keeps both partitions of the resolved customer's address
// book plus the per-mode selection. Selections survive mode toggles.
type AddressState struct {
	Mode                    DestinationMode
	Loaded                  bool
	Domestic                []storeapi.Address
	International           []storeapi.Address
	SelectedDomesticID      *int64
	SelectedInternationalID *int64
	Note                    string
}

// Current returns the address list for the active mode.
func (a *AddressState) Current() []storeapi.Address {
	if a.Mode == DestinationInternational {
		return a.International
	}
	return a.Domestic
}

// SelectedID returns the selection pointer for the active mode.
func (a *AddressState) SelectedID() *int64 {
	if a.Mode == DestinationInternational {
		return a.SelectedInternationalID
	}
	return a.SelectedDomesticID
}

// SetSelectedID records the selection for the active mode.
func (a *AddressState) SetSelectedID(id *int64) {
	if a.Mode == DestinationInternational {
		a.SelectedInternationalID = id
		return
	}
	a.SelectedDomesticID = id
}

// Selected resolves the active-mode selection to a concrete address, or
// nil when nothing is selected.
func (a *AddressState) Selected() *storeapi.Address {
	id := a.SelectedID()
	if id == nil {
		return nil
	}
	current := a.Current()
	for i := range current {
		if current[i].ID == *id {
			return &current[i]
		}
	}
	return nil
}

// AppliedCoupon is a coupon that previewed successfully. Only positive
// discounts are ever stored.
type AppliedCoupon struct {
	Code     string
	ID       *int64
	Discount decimal.Decimal
}

// PricingState carries the shipping fee, the manual-fee edit buffer for
// international orders, and the applied coupon.
type PricingState struct {
	ShippingFee    decimal.Decimal
	ShippingFree   bool
	ManualFeeInput string
	ShippingNote   string
	Coupon         *AppliedCoupon
	CouponNote     string

	// LastQuoteKey remembers the inputs behind the current fee so
	// identical refreshes can skip the backend round trip.
	LastQuoteKey string
}

// DeliveryState holds courier assignment and operator notes.
type DeliveryState struct {
	PartnerID         *int64
	PartnerName       string
	ExternalReference string
	Notes             string
}

// Totals is the arithmetic summary shown alongside the draft.
type Totals struct {
	ItemsSubtotal decimal.Decimal
	ShippingFee   decimal.Decimal
	Discount      decimal.Decimal
	GrandTotal    decimal.Decimal
	Currency      string
}

// Draft is one in-flight manual order. Engines must hold the lock for any
// read-modify-write; the guards and debouncer are safe to touch without it.
type Draft struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	Customer CustomerState
	Address  AddressState
	Cart     CartState
	Pricing  PricingState
	Delivery DeliveryState

	// SearchDebounce coalesces customer-search keystrokes. The guards
	// invalidate in-flight dependent lookups when their upstream input
	// changes.
	SearchDebounce *debounce.Debouncer
	AddressGuard   debounce.Guard
	ShippingGuard  debounce.Guard
	CouponGuard    debounce.Guard

	mu sync.Mutex
}

func (d *Draft) Lock()   { d.mu.Lock() }
func (d *Draft) Unlock() { d.mu.Unlock() }

// Touch refreshes the activity timestamp. Call under the draft lock.
func (d *Draft) Touch(now time.Time) {
	d.UpdatedAt = now.UTC()
}

// Discount returns the applied coupon discount, zero when none.
func (d *Draft) Discount() decimal.Decimal {
	if d.Pricing.Coupon == nil {
		return decimal.Zero
	}
	return d.Pricing.Coupon.Discount
}

// ComputeTotals derives the order arithmetic from current state. The grand
// total never goes below zero regardless of the discount size.
func (d *Draft) ComputeTotals(currency string) Totals {
	subtotal := d.Cart.Subtotal()
	fee := d.Pricing.ShippingFee
	discount := d.Discount()

	grand := subtotal.Add(fee).Sub(discount)
	if grand.IsNegative() {
		grand = decimal.Zero
	}
	return Totals{
		ItemsSubtotal: subtotal,
		ShippingFee:   fee,
		Discount:      discount,
		GrandTotal:    grand,
		Currency:      currency,
	}
}

// ResetPricing clears fee, coupon, and notes. Used when the destination or
// customer changes and previously quoted amounts no longer apply.
func (d *Draft) ResetPricing() {
	d.Pricing = PricingState{}
	d.ShippingGuard.Invalidate()
	d.CouponGuard.Invalidate()
}
