// Package cart builds the draft's line items: product search, option
// configuration, lenient quantity editing, and signature-based merging of
// identical lines.
package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/orderdeskhq/orderdesk-backend/internal/draft"
	"github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/metrics"
	"github.com/orderdeskhq/orderdesk-backend/pkg/storeapi"
)

const (
	lookupProductSearch = "product_search"
	lookupOptionSchema  = "option_schema"
)

type StoreClient interface {
	SearchProducts(ctx context.Context, term string) ([]storeapi.Product, error)
	ProductOptions(ctx context.Context, productID int64) ([]storeapi.ProductOption, error)
	OptionValues(ctx context.Context, optionID int64) ([]storeapi.OptionValue, error)
}

// PricingRefresher recomputes the delivery fee after the subtotal moves.
type PricingRefresher interface {
	Refresh(ctx context.Context, d *draft.Draft)
}

type Service struct {
	store   StoreClient
	pricing PricingRefresher
	schemas singleflight.Group
	logg    *logger.Logger
	metrics *metrics.ComposerMetrics
	now     func() time.Time
}

func NewService(store StoreClient, pricing PricingRefresher, logg *logger.Logger, m *metrics.ComposerMetrics) *Service {
	return &Service{
		store:   store,
		pricing: pricing,
		logg:    logg,
		metrics: m,
		now:     time.Now,
	}
}

// SearchProducts is a stateless passthrough; the backend does the term
// matching.
func (s *Service) SearchProducts(ctx context.Context, term string) ([]storeapi.Product, error) {
	start := s.now()
	products, err := s.store.SearchProducts(ctx, term)
	s.metrics.ObserveLookup(lookupProductSearch, s.now().Sub(start))
	if err != nil {
		s.metrics.IncLookupFailure(lookupProductSearch)
		return nil, err
	}
	return products, nil
}

// AddProduct puts a product from the search results into the cart. The
// option schema is fetched once per draft and product; rapid double adds
// share a single fetch. Optionless products merge into an existing line,
// products with options always start a fresh unconfigured line.
func (s *Service) AddProduct(ctx context.Context, d *draft.Draft, product storeapi.Product) error {
	if product.ID <= 0 {
		return errors.New(errors.CodeValidation, "product id is required")
	}

	schema, err := s.loadSchema(ctx, d, product.ID)
	if err != nil {
		return err
	}

	d.Lock()
	d.Cart.PutSchema(product.ID, schema)

	before := d.Cart.Subtotal()
	line := &draft.Line{
		Key:      uuid.NewString(),
		Product:  product,
		Quantity: 1,
		Selected: map[int64]draft.SelectedValue{},
	}

	if len(schema.Options) == 0 {
		sig, _ := line.Signature(0)
		if existing := d.Cart.FindBySignature(sig, line.Key); existing != nil {
			existing.Quantity++
		} else {
			d.Cart.Lines = append(d.Cart.Lines, line)
		}
	} else {
		d.Cart.Lines = append(d.Cart.Lines, line)
	}

	changed := !d.Cart.Subtotal().Equal(before)
	d.Touch(s.now())
	d.Unlock()

	if changed {
		go s.pricing.Refresh(context.WithoutCancel(ctx), d)
	}
	return nil
}

func (s *Service) loadSchema(ctx context.Context, d *draft.Draft, productID int64) (*draft.ProductSchema, error) {
	d.Lock()
	cached := d.Cart.Schema(productID)
	d.Unlock()
	if cached != nil {
		return cached, nil
	}

	key := fmt.Sprintf("%s:%d", d.ID, productID)
	result, err, _ := s.schemas.Do(key, func() (any, error) {
		start := s.now()
		schema, err := s.fetchSchema(ctx, productID)
		s.metrics.ObserveLookup(lookupOptionSchema, s.now().Sub(start))
		if err != nil {
			s.metrics.IncLookupFailure(lookupOptionSchema)
			return nil, err
		}
		return schema, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*draft.ProductSchema), nil
}

func (s *Service) fetchSchema(ctx context.Context, productID int64) (*draft.ProductSchema, error) {
	options, err := s.store.ProductOptions(ctx, productID)
	if err != nil {
		return nil, err
	}
	schema := &draft.ProductSchema{
		Options: options,
		Values:  map[int64][]storeapi.OptionValue{},
	}
	for _, option := range options {
		values, err := s.store.OptionValues(ctx, option.ID)
		if err != nil {
			return nil, err
		}
		schema.Values[option.ID] = values
	}
	return schema, nil
}

// SetOptionValue records one option choice on a line. Once the line is
// fully configured it merges into any existing line with the same
// configuration, summing quantities.
func (s *Service) SetOptionValue(ctx context.Context, d *draft.Draft, lineKey string, optionID, valueID int64) error {
	d.Lock()
	line := d.Cart.Line(lineKey)
	if line == nil {
		d.Unlock()
		return errors.New(errors.CodeNotFound, "cart line not found")
	}

	schema := d.Cart.Schema(line.Product.ID)
	if schema == nil {
		d.Unlock()
		return errors.New(errors.CodeInternal, "product schema missing for cart line")
	}

	option, value, err := resolveChoice(schema, optionID, valueID)
	if err != nil {
		d.Unlock()
		return err
	}

	before := d.Cart.Subtotal()
	if line.Selected == nil {
		line.Selected = map[int64]draft.SelectedValue{}
	}
	line.Selected[optionID] = draft.SelectedValue{
		OptionID:   option.ID,
		OptionName: option.Name,
		ValueID:    value.ID,
		ValueLabel: value.Label,
		PriceDelta: decimalOrZero(value.PriceDelta),
	}

	if sig, ok := line.Signature(len(schema.Options)); ok {
		if existing := d.Cart.FindBySignature(sig, line.Key); existing != nil {
			existing.Quantity += line.Quantity
			d.Cart.Remove(line.Key)
		}
	}

	changed := !d.Cart.Subtotal().Equal(before)
	d.Touch(s.now())
	d.Unlock()

	if changed {
		go s.pricing.Refresh(context.WithoutCancel(ctx), d)
	}
	return nil
}

func resolveChoice(schema *draft.ProductSchema, optionID, valueID int64) (*storeapi.ProductOption, *storeapi.OptionValue, error) {
	var option *storeapi.ProductOption
	for i := range schema.Options {
		if schema.Options[i].ID == optionID {
			option = &schema.Options[i]
			break
		}
	}
	if option == nil {
		return nil, nil, errors.New(errors.CodeValidation, "option does not belong to this product")
	}
	for _, value := range schema.Values[optionID] {
		if value.ID == valueID {
			copied := value
			return option, &copied, nil
		}
	}
	return nil, nil, errors.New(errors.CodeValidation, "value does not belong to this option")
}

// SetQuantityInput buffers an in-progress quantity edit. Only digit runs
// (or an empty field mid-edit) are buffered; a keystroke with anything
// else is dropped without error, leaving the buffer and the committed
// quantity as they were.
func (s *Service) SetQuantityInput(_ context.Context, d *draft.Draft, lineKey, input string) error {
	d.Lock()
	defer d.Unlock()
	line := d.Cart.Line(lineKey)
	if line == nil {
		return errors.New(errors.CodeNotFound, "cart line not found")
	}
	if !isDigits(input) {
		return nil
	}
	buffered := input
	line.QuantityInput = &buffered
	d.Touch(s.now())
	return nil
}

// CommitQuantity applies the buffered edit. An empty buffer falls back to
// one and anything below one clamps up.
func (s *Service) CommitQuantity(ctx context.Context, d *draft.Draft, lineKey string) error {
	d.Lock()
	line := d.Cart.Line(lineKey)
	if line == nil {
		d.Unlock()
		return errors.New(errors.CodeNotFound, "cart line not found")
	}

	before := d.Cart.Subtotal()
	if line.QuantityInput != nil {
		line.Quantity = parseQuantity(*line.QuantityInput)
		line.QuantityInput = nil
	}
	changed := !d.Cart.Subtotal().Equal(before)
	d.Touch(s.now())
	d.Unlock()

	if changed {
		go s.pricing.Refresh(context.WithoutCancel(ctx), d)
	}
	return nil
}

// RemoveLine deletes a cart line.
func (s *Service) RemoveLine(ctx context.Context, d *draft.Draft, lineKey string) error {
	d.Lock()
	before := d.Cart.Subtotal()
	if !d.Cart.Remove(lineKey) {
		d.Unlock()
		return errors.New(errors.CodeNotFound, "cart line not found")
	}
	changed := !d.Cart.Subtotal().Equal(before)
	d.Touch(s.now())
	d.Unlock()

	if changed {
		go s.pricing.Refresh(context.WithoutCancel(ctx), d)
	}
	return nil
}

func isDigits(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func decimalOrZero(value *decimal.Decimal) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return *value
}

func parseQuantity(input string) int {
	if input == "" {
		return 1
	}
	qty := 0
	for _, r := range input {
		qty = qty*10 + int(r-'0')
		if qty > 1_000_000 {
			return 1_000_000
		}
	}
	if qty < 1 {
		return 1
	}
	return qty
}
