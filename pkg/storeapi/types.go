package storeapi

import "github.com/shopspring/decimal"

// Customer is a buyer record owned by the commerce backend.
type Customer struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// CustomerInput is the create-customer payload.
type CustomerInput struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// Product is the catalog summary used when composing cart lines.
type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	BasePrice decimal.Decimal `json:"basePrice"`
}

// ProductOption is one configurable axis of a product.
type ProductOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// OptionValue is one choice for an option. PriceDelta is the price
// contribution of picking it; Active nil means active.
type OptionValue struct {
	ID         int64            `json:"id"`
	Label      string           `json:"label"`
	PriceDelta *decimal.Decimal `json:"priceDelta"`
	Active     *bool            `json:"active"`
	SortOrder  int              `json:"sortOrder"`
}

// Address is a customer shipping address. StateID/DistrictID are present
// only for home-country addresses.
type Address struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	Pincode    string `json:"pincode"`
	CountryID  int64  `json:"countryId"`
	StateID    *int64 `json:"stateId,omitempty"`
	DistrictID *int64 `json:"districtId,omitempty"`
	IsDefault  bool   `json:"isDefault"`
	Active     bool   `json:"active"`
}

// AddressInput is the create-address payload.
type AddressInput struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	Pincode    string `json:"pincode"`
	CountryID  int64  `json:"countryId"`
	StateID    *int64 `json:"stateId,omitempty"`
	DistrictID *int64 `json:"districtId,omitempty"`
	IsDefault  bool   `json:"isDefault"`
}

// ShippingPreviewRequest asks the backend what delivery would cost for a
// domestic destination at the given subtotal.
type ShippingPreviewRequest struct {
	ItemsSubtotal decimal.Decimal `json:"itemsSubtotal"`
	StateID       *int64          `json:"stateId,omitempty"`
	DistrictID    *int64          `json:"districtId,omitempty"`
}

type ShippingPreviewResponse struct {
	Fee  decimal.Decimal `json:"fee"`
	Free bool            `json:"free"`
}

// CouponPreviewRequest validates a coupon against a customer and total
// without persisting anything.
type CouponPreviewRequest struct {
	CustomerID int64           `json:"customerId"`
	OrderTotal decimal.Decimal `json:"orderTotal"`
}

type CouponPreviewResponse struct {
	Discount decimal.Decimal `json:"discount"`
	CouponID *int64          `json:"couponId,omitempty"`
}

// OrderItemPayload is one submitted line of the manual order.
type OrderItemPayload struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	ProductSlug string          `json:"productSlug"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
	OptionsText string          `json:"optionsText,omitempty"`
	OptionsJSON string          `json:"optionsJson,omitempty"`
	Active      bool            `json:"active"`
}

// OrderPayload is the flattened order header of the manual order.
type OrderPayload struct {
	CustomerID        int64           `json:"customerId"`
	ShipName          string          `json:"shipName"`
	ShipPhone         string          `json:"shipPhone"`
	ShipLine1         string          `json:"shipLine1"`
	ShipLine2         string          `json:"shipLine2,omitempty"`
	ShipPincode       string          `json:"shipPincode"`
	ShipCountryID     int64           `json:"shipCountryId"`
	ShipStateID       *int64          `json:"shipStateId,omitempty"`
	ShipDistrictID    *int64          `json:"shipDistrictId,omitempty"`
	ItemsSubtotal     decimal.Decimal `json:"itemsSubtotal"`
	DiscountTotal     decimal.Decimal `json:"discountTotal"`
	ShippingFee       decimal.Decimal `json:"shippingFee"`
	Currency          string          `json:"currency"`
	CouponCode        string          `json:"couponCode,omitempty"`
	CouponID          *int64          `json:"couponId,omitempty"`
	CourierName       string          `json:"courierName,omitempty"`
	DeliveryPartnerID *int64          `json:"deliveryPartnerId,omitempty"`
	ExternalReference string          `json:"externalReference,omitempty"`
	OrderNotes        string          `json:"orderNotes,omitempty"`
}

// CreateOrderRequest is submitted atomically; the backend owns everything
// after this call succeeds.
type CreateOrderRequest struct {
	Order OrderPayload       `json:"order"`
	Items []OrderItemPayload `json:"items"`
}

type CreateOrderResponse struct {
	ID         int64  `json:"id"`
	PublicCode string `json:"publicCode"`
	CustomerID int64  `json:"customerId"`
}
