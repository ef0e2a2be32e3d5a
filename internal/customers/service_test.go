package customers

import (
	"context"
	"errors"
	"io"
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
	customers []storeapi.Customer
	listErr   error
	created   *storeapi.Customer
	createErr error
}

func (f *fakeStore) ListCustomers(context.Context) ([]storeapi.Customer, error) {
	return f.customers, f.listErr
}

func (f *fakeStore) CreateCustomer(_ context.Context, input storeapi.CustomerInput) (*storeapi.Customer, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	created := storeapi.Customer{ID: 99, DisplayName: input.DisplayName, Email: input.Email, Phone: input.Phone}
	f.created = &created
	return &created, nil
}

type fakeReloader struct {
	calls int
}

func (f *fakeReloader) Reload(context.Context, *draft.Draft) {
	f.calls++
}

func newFixture(store *fakeStore) (*Service, *fakeReloader, *draft.Registry) {
	reloader := &fakeReloader{}
	svc := NewService(store, reloader, testLogger(), metrics.NewComposerMetrics(nil))
	return svc, reloader, draft.NewRegistry(time.Hour, time.Millisecond)
}

func TestFilterCustomersMatchesAllFields(t *testing.T) {
	all := []storeapi.Customer{
		{ID: 1, DisplayName: "Asha Rao", Email: "asha@example.com", Phone: "9876543210"},
		{ID: 2, DisplayName: "Vikram Shah", Email: "vik@example.com", Phone: "9123456789"},
	}

	if got := filterCustomers(all, "asha"); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("name match failed: %v", got)
	}
	if got := filterCustomers(all, "VIK@"); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("email match should be case-insensitive: %v", got)
	}
	if got := filterCustomers(all, "912345"); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("phone match failed: %v", got)
	}
	if got := filterCustomers(all, "1"); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("id match must be exact: %v", got)
	}
	if got := filterCustomers(all, "nobody"); len(got) != 0 {
		t.Fatalf("expected no matches, got %v", got)
	}
}

func TestSetQueryClearsResolvedAndDependents(t *testing.T) {
	svc, _, reg := newFixture(&fakeStore{})
	d := reg.Create()

	d.Lock()
	d.Customer.Resolved = &storeapi.Customer{ID: 1, DisplayName: "Asha"}
	d.Address.Domestic = []storeapi.Address{{ID: 10}}
	ten := int64(10)
	d.Address.SelectedDomesticID = &ten
	d.Pricing.ShippingFee = decimal.NewFromInt(50)
	d.Pricing.Coupon = &draft.AppliedCoupon{Code: "X", Discount: decimal.NewFromInt(5)}
	d.Unlock()

	svc.SetQuery(context.Background(), d, "ash")

	d.Lock()
	defer d.Unlock()
	if d.Customer.Resolved != nil {
		t.Fatal("editing the query must clear the resolved customer")
	}
	if d.Address.Domestic != nil || d.Address.SelectedDomesticID != nil {
		t.Fatal("address state must clear with the customer")
	}
	if !d.Pricing.ShippingFee.IsZero() || d.Pricing.Coupon != nil {
		t.Fatal("pricing must reset with the customer")
	}
	if d.Customer.Query != "ash" {
		t.Fatalf("query should be recorded, got %q", d.Customer.Query)
	}
}

func TestSearchDropsStaleResponses(t *testing.T) {
	store := &fakeStore{customers: []storeapi.Customer{{ID: 1, DisplayName: "Asha"}}}
	svc, _, reg := newFixture(store)
	d := reg.Create()

	seq := d.SearchDebounce.Trigger(func(uint64) {})
	svc.search(context.Background(), d, "asha", seq)

	d.Lock()
	if len(d.Customer.Suggestions) != 1 {
		t.Fatalf("current response should apply, got %v", d.Customer.Suggestions)
	}
	d.Unlock()

	// A newer trigger makes the old sequence stale.
	d.SearchDebounce.Cancel()
	store.customers = nil
	svc.search(context.Background(), d, "zed", seq)

	d.Lock()
	defer d.Unlock()
	if len(d.Customer.Suggestions) != 1 {
		t.Fatal("stale response must not overwrite suggestions")
	}
}

func TestSetQueryDebounceEndToEnd(t *testing.T) {
	store := &fakeStore{customers: []storeapi.Customer{{ID: 1, DisplayName: "Asha"}}}
	svc, _, _ := newFixture(store)
	d := draft.NewRegistry(time.Hour, 5*time.Millisecond).Create()

	svc.SetQuery(context.Background(), d, "as")
	svc.SetQuery(context.Background(), d, "ash")

	deadline := time.Now().Add(2 * time.Second)
	for {
		d.Lock()
		got := len(d.Customer.Suggestions)
		d.Unlock()
		if got == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("debounced search never produced suggestions")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSelectResolvesAndReloadsAddresses(t *testing.T) {
	svc, reloader, reg := newFixture(&fakeStore{})
	d := reg.Create()

	d.Lock()
	d.Customer.Suggestions = []storeapi.Customer{{ID: 7, DisplayName: "Asha"}}
	d.Pricing.ShippingFee = decimal.NewFromInt(40)
	d.Unlock()

	if err := svc.Select(context.Background(), d, 7); err != nil {
		t.Fatalf("select failed: %v", err)
	}

	d.Lock()
	defer d.Unlock()
	if d.Customer.Resolved == nil || d.Customer.Resolved.ID != 7 {
		t.Fatal("customer should be resolved")
	}
	if !d.Pricing.ShippingFee.IsZero() {
		t.Fatal("pricing should reset on customer change")
	}
	if reloader.calls != 1 {
		t.Fatalf("address reload should trigger once, got %d", reloader.calls)
	}
}

func TestSelectClearsPreviousCustomerAddresses(t *testing.T) {
	svc, _, reg := newFixture(&fakeStore{})
	d := reg.Create()

	// Customer 1 is resolved with a loaded, selected address book. The
	// reload for the new buyer has not run yet; until it does, nothing of
	// the old book may remain selectable.
	ten := int64(10)
	d.Lock()
	d.Customer.Resolved = &storeapi.Customer{ID: 1, DisplayName: "Asha"}
	d.Customer.Suggestions = []storeapi.Customer{{ID: 2, DisplayName: "Vikram"}}
	d.Address.Domestic = []storeapi.Address{{ID: 10, Active: true}}
	d.Address.SelectedDomesticID = &ten
	d.Address.Loaded = true
	d.Unlock()

	if err := svc.Select(context.Background(), d, 2); err != nil {
		t.Fatalf("select failed: %v", err)
	}

	d.Lock()
	defer d.Unlock()
	if d.Address.Domestic != nil || d.Address.SelectedDomesticID != nil {
		t.Fatal("previous customer's address book must clear on select")
	}
	if d.Address.Loaded {
		t.Fatal("book must read as not loaded until the new reload lands")
	}
	if d.Address.Selected() != nil {
		t.Fatal("no address may be selectable across a customer change")
	}
}

func TestCreateClearsPreviousCustomerAddresses(t *testing.T) {
	svc, _, reg := newFixture(&fakeStore{})
	d := reg.Create()

	ten := int64(10)
	d.Lock()
	d.Customer.Resolved = &storeapi.Customer{ID: 1, DisplayName: "Asha"}
	d.Address.Domestic = []storeapi.Address{{ID: 10, Active: true}}
	d.Address.SelectedDomesticID = &ten
	d.Address.Loaded = true
	d.Unlock()

	err := svc.Create(context.Background(), d, storeapi.CustomerInput{DisplayName: "Vikram", Phone: "9"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	d.Lock()
	defer d.Unlock()
	if d.Address.Domestic != nil || d.Address.SelectedDomesticID != nil || d.Address.Loaded {
		t.Fatal("previous customer's address book must clear on inline create")
	}
}

func TestSelectRejectsUnknownCustomer(t *testing.T) {
	svc, reloader, reg := newFixture(&fakeStore{})
	d := reg.Create()

	if err := svc.Select(context.Background(), d, 42); err == nil {
		t.Fatal("expected error for customer outside the suggestions")
	}
	if reloader.calls != 0 {
		t.Fatal("failed select must not reload addresses")
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, reg := newFixture(&fakeStore{})
	d := reg.Create()

	if err := svc.Create(context.Background(), d, storeapi.CustomerInput{Email: "a@b.c"}); err == nil {
		t.Fatal("expected error without a name")
	}
	if err := svc.Create(context.Background(), d, storeapi.CustomerInput{DisplayName: "Asha"}); err == nil {
		t.Fatal("expected error without email or phone")
	}
}

func TestCreateResolvesNewCustomer(t *testing.T) {
	store := &fakeStore{}
	svc, reloader, reg := newFixture(store)
	d := reg.Create()

	err := svc.Create(context.Background(), d, storeapi.CustomerInput{DisplayName: " Asha ", Phone: "987"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	d.Lock()
	defer d.Unlock()
	if d.Customer.Resolved == nil || d.Customer.Resolved.ID != 99 {
		t.Fatal("created customer should resolve")
	}
	if store.created.DisplayName != "Asha" {
		t.Fatalf("name should be trimmed, got %q", store.created.DisplayName)
	}
	if reloader.calls != 1 {
		t.Fatal("address reload should trigger after create")
	}
}

func TestCreatePropagatesBackendError(t *testing.T) {
	svc, reloader, reg := newFixture(&fakeStore{createErr: errors.New("backend down")})
	d := reg.Create()

	err := svc.Create(context.Background(), d, storeapi.CustomerInput{DisplayName: "Asha", Phone: "9"})
	if err == nil {
		t.Fatal("expected backend error")
	}
	if reloader.calls != 0 {
		t.Fatal("failed create must not reload addresses")
	}
}
