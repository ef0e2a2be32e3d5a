package pricing

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/orderdeskhq/orderdesk-backend/internal/draft"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/metrics"
	"github.com/orderdeskhq/orderdesk-backend/pkg/storeapi"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

type fakeStore struct {
	mu            sync.Mutex
	fee           decimal.Decimal
	free          bool
	shippingErr   error
	shippingCalls int
	gate          chan struct{}

	discount   decimal.Decimal
	couponID   *int64
	couponErr  error
	couponGate chan struct{}
	lastReq    storeapi.CouponPreviewRequest
}

func (f *fakeStore) ShippingPreview(_ context.Context, _ storeapi.ShippingPreviewRequest) (*storeapi.ShippingPreviewResponse, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.shippingCalls++
	f.mu.Unlock()
	if f.shippingErr != nil {
		return nil, f.shippingErr
	}
	return &storeapi.ShippingPreviewResponse{Fee: f.fee, Free: f.free}, nil
}

func (f *fakeStore) CouponPreview(_ context.Context, _ string, req storeapi.CouponPreviewRequest) (*storeapi.CouponPreviewResponse, error) {
	if f.couponGate != nil {
		<-f.couponGate
	}
	f.mu.Lock()
	f.lastReq = req
	f.mu.Unlock()
	if f.couponErr != nil {
		return nil, f.couponErr
	}
	return &storeapi.CouponPreviewResponse{Discount: f.discount, CouponID: f.couponID}, nil
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shippingCalls
}

func newFixture(store *fakeStore) (*Service, *draft.Draft) {
	svc := NewService(store, "INR", testLogger(), metrics.NewComposerMetrics(nil))
	d := draft.NewRegistry(time.Hour, time.Millisecond).Create()
	return svc, d
}

func domesticDraft(d *draft.Draft) {
	state, district := int64(3), int64(4)
	one := int64(1)
	d.Lock()
	d.Customer.Resolved = &storeapi.Customer{ID: 7}
	d.Address.Domestic = []storeapi.Address{{ID: 1, Active: true, StateID: &state, DistrictID: &district}}
	d.Address.SelectedDomesticID = &one
	d.Cart.Lines = []*draft.Line{{
		Key:      "l1",
		Product:  storeapi.Product{ID: 1, BasePrice: decimal.NewFromInt(200)},
		Quantity: 1,
	}}
	d.Unlock()
}

func TestRefreshAppliesDomesticQuote(t *testing.T) {
	store := &fakeStore{fee: decimal.NewFromInt(60)}
	svc, d := newFixture(store)
	domesticDraft(d)

	svc.Refresh(context.Background(), d)

	d.Lock()
	defer d.Unlock()
	if !d.Pricing.ShippingFee.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected fee 60, got %s", d.Pricing.ShippingFee)
	}
	if d.Pricing.ShippingNote != "" {
		t.Fatalf("unexpected note %q", d.Pricing.ShippingNote)
	}
}

func TestRefreshSkipsIdenticalInputs(t *testing.T) {
	store := &fakeStore{fee: decimal.NewFromInt(60)}
	svc, d := newFixture(store)
	domesticDraft(d)

	svc.Refresh(context.Background(), d)
	svc.Refresh(context.Background(), d)

	if got := store.calls(); got != 1 {
		t.Fatalf("identical inputs should quote once, got %d calls", got)
	}
}

func TestRefreshNoSelectionZeroesFee(t *testing.T) {
	store := &fakeStore{fee: decimal.NewFromInt(60)}
	svc, d := newFixture(store)

	d.Lock()
	d.Pricing.ShippingFee = decimal.NewFromInt(45)
	d.Unlock()

	svc.Refresh(context.Background(), d)

	d.Lock()
	defer d.Unlock()
	if !d.Pricing.ShippingFee.IsZero() {
		t.Fatal("fee should zero without a selected address")
	}
	if store.calls() != 0 {
		t.Fatal("no quote should be requested without a destination")
	}
}

func TestRefreshNoSelectionForgetsQuoteKey(t *testing.T) {
	store := &fakeStore{fee: decimal.NewFromInt(60)}
	svc, d := newFixture(store)
	domesticDraft(d)

	svc.Refresh(context.Background(), d)
	if got := store.calls(); got != 1 {
		t.Fatalf("expected one quote, got %d", got)
	}

	// Deselecting the address zeroes the fee; reselecting the same
	// address must quote again rather than reuse the remembered inputs.
	d.Lock()
	selected := d.Address.SelectedDomesticID
	d.Address.SelectedDomesticID = nil
	d.Unlock()
	svc.Refresh(context.Background(), d)

	d.Lock()
	d.Address.SelectedDomesticID = selected
	d.Unlock()
	svc.Refresh(context.Background(), d)

	if got := store.calls(); got != 2 {
		t.Fatalf("reselection should quote again, got %d calls", got)
	}
	d.Lock()
	defer d.Unlock()
	if !d.Pricing.ShippingFee.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected fee 60 after reselection, got %s", d.Pricing.ShippingFee)
	}
}

func TestRefreshIgnoresInternationalMode(t *testing.T) {
	store := &fakeStore{fee: decimal.NewFromInt(60)}
	svc, d := newFixture(store)

	d.Lock()
	d.Address.Mode = draft.DestinationInternational
	d.Pricing.ShippingFee = decimal.NewFromInt(900)
	d.Unlock()

	svc.Refresh(context.Background(), d)

	d.Lock()
	defer d.Unlock()
	if !d.Pricing.ShippingFee.Equal(decimal.NewFromInt(900)) {
		t.Fatal("manual international fee must survive a refresh")
	}
}

func TestRefreshDropsStaleQuote(t *testing.T) {
	store := &fakeStore{fee: decimal.NewFromInt(60), gate: make(chan struct{})}
	svc, d := newFixture(store)
	domesticDraft(d)

	done := make(chan struct{})
	go func() {
		svc.Refresh(context.Background(), d)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	d.ShippingGuard.Invalidate()
	close(store.gate)
	<-done

	d.Lock()
	defer d.Unlock()
	if !d.Pricing.ShippingFee.IsZero() {
		t.Fatal("stale quote must not land")
	}
}

func TestRefreshFailureNotesAndZeroes(t *testing.T) {
	store := &fakeStore{shippingErr: errors.New("backend down")}
	svc, d := newFixture(store)
	domesticDraft(d)

	svc.Refresh(context.Background(), d)

	d.Lock()
	defer d.Unlock()
	if !d.Pricing.ShippingFee.IsZero() {
		t.Fatal("fee should zero on failure")
	}
	if d.Pricing.ShippingNote == "" {
		t.Fatal("failure should leave a note")
	}
}

func TestManualFeeFlow(t *testing.T) {
	svc, d := newFixture(&fakeStore{})

	if err := svc.SetManualFeeInput(context.Background(), d, "120"); err == nil {
		t.Fatal("manual fee should be rejected in domestic mode")
	}

	d.Lock()
	d.Address.Mode = draft.DestinationInternational
	d.Unlock()

	if err := svc.SetManualFeeInput(context.Background(), d, "12a"); err == nil {
		t.Fatal("non-numeric fee input should be rejected")
	}
	if err := svc.SetManualFeeInput(context.Background(), d, "120.50"); err != nil {
		t.Fatalf("fee input failed: %v", err)
	}
	if err := svc.CommitManualFee(context.Background(), d); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	d.Lock()
	if !d.Pricing.ShippingFee.Equal(decimal.RequireFromString("120.50")) {
		t.Fatalf("expected fee 120.50, got %s", d.Pricing.ShippingFee)
	}
	d.Unlock()

	// An empty buffer commits zero.
	if err := svc.SetManualFeeInput(context.Background(), d, ""); err != nil {
		t.Fatalf("empty input failed: %v", err)
	}
	if err := svc.CommitManualFee(context.Background(), d); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	d.Lock()
	defer d.Unlock()
	if !d.Pricing.ShippingFee.IsZero() {
		t.Fatalf("empty commit should zero the fee, got %s", d.Pricing.ShippingFee)
	}
}

func TestApplyCouponRequiresCustomer(t *testing.T) {
	svc, d := newFixture(&fakeStore{discount: decimal.NewFromInt(10)})
	if err := svc.ApplyCoupon(context.Background(), d, "SAVE10"); err == nil {
		t.Fatal("coupon should require a resolved customer")
	}
}

func TestApplyCouponStoresPositiveDiscount(t *testing.T) {
	id := int64(77)
	store := &fakeStore{discount: decimal.NewFromInt(30), couponID: &id}
	svc, d := newFixture(store)
	domesticDraft(d)

	d.Lock()
	d.Pricing.ShippingFee = decimal.NewFromInt(40)
	d.Unlock()

	if err := svc.ApplyCoupon(context.Background(), d, " SAVE30 "); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	d.Lock()
	defer d.Unlock()
	if d.Pricing.Coupon == nil || d.Pricing.Coupon.Code != "SAVE30" {
		t.Fatalf("coupon should stick trimmed, got %+v", d.Pricing.Coupon)
	}
	if !d.Pricing.Coupon.Discount.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("unexpected discount %s", d.Pricing.Coupon.Discount)
	}
	// Preview is keyed on the items subtotal; the shipping fee stays out
	// of it.
	if !store.lastReq.OrderTotal.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("unexpected preview total %s", store.lastReq.OrderTotal)
	}
	if store.lastReq.CustomerID != 7 {
		t.Fatalf("unexpected preview customer %d", store.lastReq.CustomerID)
	}
}

func TestApplyCouponDroppedAfterCustomerChange(t *testing.T) {
	id := int64(77)
	store := &fakeStore{
		discount:   decimal.NewFromInt(30),
		couponID:   &id,
		couponGate: make(chan struct{}),
	}
	svc, d := newFixture(store)
	domesticDraft(d)

	done := make(chan struct{})
	go func() {
		if err := svc.ApplyCoupon(context.Background(), d, "SAVE30"); err != nil {
			t.Errorf("apply failed: %v", err)
		}
		close(done)
	}()

	// The buyer changes while the preview is in flight; resetting the
	// pricing lane supersedes it.
	time.Sleep(20 * time.Millisecond)
	d.Lock()
	d.ResetPricing()
	d.Unlock()
	close(store.couponGate)
	<-done

	d.Lock()
	defer d.Unlock()
	if d.Pricing.Coupon != nil {
		t.Fatalf("superseded preview must not attach a coupon, got %+v", d.Pricing.Coupon)
	}
}

func TestApplyCouponZeroDiscountClears(t *testing.T) {
	svc, d := newFixture(&fakeStore{discount: decimal.Zero})
	domesticDraft(d)

	d.Lock()
	d.Pricing.Coupon = &draft.AppliedCoupon{Code: "OLD", Discount: decimal.NewFromInt(5)}
	d.Unlock()

	if err := svc.ApplyCoupon(context.Background(), d, "NOPE"); err != nil {
		t.Fatalf("zero discount is not an error: %v", err)
	}

	d.Lock()
	defer d.Unlock()
	if d.Pricing.Coupon != nil {
		t.Fatal("zero discount should clear the coupon")
	}
	if d.Pricing.CouponNote == "" {
		t.Fatal("zero discount should leave a note")
	}
}

func TestApplyCouponBackendErrorClears(t *testing.T) {
	svc, d := newFixture(&fakeStore{couponErr: errors.New("invalid code")})
	domesticDraft(d)

	if err := svc.ApplyCoupon(context.Background(), d, "BAD"); err != nil {
		t.Fatalf("preview failure is surfaced as a note, not an error: %v", err)
	}

	d.Lock()
	defer d.Unlock()
	if d.Pricing.Coupon != nil || d.Pricing.CouponNote == "" {
		t.Fatal("failed preview should clear the coupon and note why")
	}
}

func TestClearCoupon(t *testing.T) {
	svc, d := newFixture(&fakeStore{})

	d.Lock()
	d.Pricing.Coupon = &draft.AppliedCoupon{Code: "X", Discount: decimal.NewFromInt(5)}
	d.Pricing.CouponNote = "stale"
	d.Unlock()

	svc.ClearCoupon(context.Background(), d)

	d.Lock()
	defer d.Unlock()
	if d.Pricing.Coupon != nil || d.Pricing.CouponNote != "" {
		t.Fatal("clear should remove the coupon and its note")
	}
}
