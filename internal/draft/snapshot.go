package draft

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderdeskhq/orderdesk-backend/pkg/storeapi"
)

// Snapshot is the read model returned to the console after every draft
// mutation. It is a deep copy; callers can marshal it after releasing the
// draft lock.
type Snapshot struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Customer  CustomerView `json:"customer"`
	Address   AddressView  `json:"address"`
	Cart      CartView     `json:"cart"`
	Pricing   PricingView  `json:"pricing"`
	Delivery  DeliveryView `json:"delivery"`
	Totals    TotalsView   `json:"totals"`
}

type CustomerView struct {
	Query       string             `json:"query"`
	Suggestions []storeapi.Customer `json:"suggestions"`
	Resolved    *storeapi.Customer  `json:"resolved,omitempty"`
}

type AddressView struct {
	Mode              DestinationMode    `json:"mode"`
	Addresses         []storeapi.Address `json:"addresses"`
	SelectedAddressID *int64             `json:"selectedAddressId,omitempty"`
	Note              string             `json:"note,omitempty"`
}

type OptionSelectionView struct {
	OptionID   int64           `json:"optionId"`
	OptionName string          `json:"optionName"`
	ValueID    int64           `json:"valueId"`
	ValueLabel string          `json:"valueLabel"`
	PriceDelta decimal.Decimal `json:"priceDelta"`
}

type LineView struct {
	Key           string                `json:"key"`
	ProductID     int64                 `json:"productId"`
	ProductName   string                `json:"productName"`
	Quantity      int                   `json:"quantity"`
	QuantityInput *string               `json:"quantityInput,omitempty"`
	UnitPrice     decimal.Decimal       `json:"unitPrice"`
	LineTotal     decimal.Decimal       `json:"lineTotal"`
	Configured    bool                  `json:"configured"`
	Options       []OptionSelectionView `json:"options"`
}

type CartView struct {
	Lines    []LineView      `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type CouponView struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}

type PricingView struct {
	ShippingFee    decimal.Decimal `json:"shippingFee"`
	ShippingFree   bool            `json:"shippingFree"`
	ManualFeeInput string          `json:"manualFeeInput,omitempty"`
	ShippingNote   string          `json:"shippingNote,omitempty"`
	Coupon         *CouponView     `json:"coupon,omitempty"`
	CouponNote     string          `json:"couponNote,omitempty"`
}

type DeliveryView struct {
	PartnerID         *int64 `json:"partnerId,omitempty"`
	PartnerName       string `json:"partnerName,omitempty"`
	ExternalReference string `json:"externalReference,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

type TotalsView struct {
	ItemsSubtotal decimal.Decimal `json:"itemsSubtotal"`
	ShippingFee   decimal.Decimal `json:"shippingFee"`
	Discount      decimal.Decimal `json:"discount"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
	Currency      string          `json:"currency"`
}

// Snapshot builds the full read model. Call under the draft lock.
func (d *Draft) Snapshot(currency string) Snapshot {
	totals := d.ComputeTotals(currency)

	lines := make([]LineView, 0, len(d.Cart.Lines))
	for _, line := range d.Cart.Lines {
		optionCount := d.Cart.OptionCount(line.Product.ID)

		selections := line.SortedSelections()
		options := make([]OptionSelectionView, 0, len(selections))
		for _, sel := range selections {
			options = append(options, OptionSelectionView{
				OptionID:   sel.OptionID,
				OptionName: sel.OptionName,
				ValueID:    sel.ValueID,
				ValueLabel: sel.ValueLabel,
				PriceDelta: sel.PriceDelta,
			})
		}

		var input *string
		if line.QuantityInput != nil {
			copied := *line.QuantityInput
			input = &copied
		}

		lines = append(lines, LineView{
			Key:           line.Key,
			ProductID:     line.Product.ID,
			ProductName:   line.Product.Name,
			Quantity:      line.Quantity,
			QuantityInput: input,
			UnitPrice:     line.UnitPrice(optionCount),
			LineTotal:     line.Total(optionCount),
			Configured:    line.Configured(optionCount),
			Options:       options,
		})
	}

	var resolved *storeapi.Customer
	if d.Customer.Resolved != nil {
		copied := *d.Customer.Resolved
		resolved = &copied
	}

	var coupon *CouponView
	if d.Pricing.Coupon != nil {
		coupon = &CouponView{
			Code:     d.Pricing.Coupon.Code,
			Discount: d.Pricing.Coupon.Discount,
		}
	}

	return Snapshot{
		ID:        d.ID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		Customer: CustomerView{
			Query:       d.Customer.Query,
			Suggestions: append([]storeapi.Customer{}, d.Customer.Suggestions...),
			Resolved:    resolved,
		},
		Address: AddressView{
			Mode:              d.Address.Mode,
			Addresses:         append([]storeapi.Address{}, d.Address.Current()...),
			SelectedAddressID: copyID(d.Address.SelectedID()),
			Note:              d.Address.Note,
		},
		Cart: CartView{
			Lines:    lines,
			Subtotal: totals.ItemsSubtotal,
		},
		Pricing: PricingView{
			ShippingFee:    d.Pricing.ShippingFee,
			ShippingFree:   d.Pricing.ShippingFree,
			ManualFeeInput: d.Pricing.ManualFeeInput,
			ShippingNote:   d.Pricing.ShippingNote,
			Coupon:         coupon,
			CouponNote:     d.Pricing.CouponNote,
		},
		Delivery: DeliveryView{
			PartnerID:         copyID(d.Delivery.PartnerID),
			PartnerName:       d.Delivery.PartnerName,
			ExternalReference: d.Delivery.ExternalReference,
			Notes:             d.Delivery.Notes,
		},
		Totals: TotalsView{
			ItemsSubtotal: totals.ItemsSubtotal,
			ShippingFee:   totals.ShippingFee,
			Discount:      totals.Discount,
			GrandTotal:    totals.GrandTotal,
			Currency:      totals.Currency,
		},
	}
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	copied := *id
	return &copied
}
