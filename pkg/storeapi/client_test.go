package storeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, "test-key")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestListCustomers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/customers" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header %q", got)
		}
		_, _ = w.Write([]byte(`[{"id":1,"displayName":"Asha Rao","email":"asha@example.com"}]`))
	})

	customers, err := client.ListCustomers(context.Background())
	if err != nil {
		t.Fatalf("ListCustomers failed: %v", err)
	}
	if len(customers) != 1 || customers[0].DisplayName != "Asha Rao" {
		t.Fatalf("unexpected customers %+v", customers)
	}
}

func TestOptionValuesFiltersAndSorts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/catalog/options/9/values" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[
			{"id":3,"label":"XL","priceDelta":50,"sortOrder":2},
			{"id":1,"label":"S","priceDelta":null,"sortOrder":0},
			{"id":4,"label":"Old","active":false,"sortOrder":1},
			{"id":2,"label":"M","priceDelta":20,"sortOrder":1}
		]`))
	})

	values, err := client.OptionValues(context.Background(), 9)
	if err != nil {
		t.Fatalf("OptionValues failed: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("inactive value should be dropped, got %+v", values)
	}
	if values[0].Label != "S" || values[1].Label != "M" || values[2].Label != "XL" {
		t.Fatalf("values out of order: %+v", values)
	}
	if values[0].PriceDelta != nil {
		t.Fatal("null priceDelta should decode to nil")
	}
	if values[2].PriceDelta == nil || !values[2].PriceDelta.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected delta %v", values[2].PriceDelta)
	}
}

func TestShippingPreviewRequestShape(t *testing.T) {
	stateID := int64(12)
	districtID := int64(345)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/shipping/preview" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		for _, field := range []string{"itemsSubtotal", "stateId", "districtId"} {
			if _, ok := body[field]; !ok {
				t.Fatalf("missing field %s in %v", field, body)
			}
		}
		_, _ = w.Write([]byte(`{"fee":60,"free":false}`))
	})

	resp, err := client.ShippingPreview(context.Background(), ShippingPreviewRequest{
		ItemsSubtotal: decimal.NewFromInt(1000),
		StateID:       &stateID,
		DistrictID:    &districtID,
	})
	if err != nil {
		t.Fatalf("ShippingPreview failed: %v", err)
	}
	if !resp.Fee.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("unexpected fee %s", resp.Fee)
	}
}

func TestBackendErrorCarriesUpstreamStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"coupon expired"}`))
	})

	_, err := client.CouponPreview(context.Background(), "SAVE10", CouponPreviewRequest{
		CustomerID: 1,
		OrderTotal: decimal.NewFromInt(500),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	dump := pkgerrors.Dump(err)
	if dump.UpstreamStatus != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected upstream status %d", dump.UpstreamStatus)
	}
}

func TestCouponPreviewRequiresCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should be issued for a blank code")
	})

	_, err := client.CouponPreview(context.Background(), "  ", CouponPreviewRequest{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateManualOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/admin/orders/manual" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var req CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode order: %v", err)
		}
		if len(req.Items) != 1 || !req.Items[0].Active {
			t.Fatalf("unexpected items %+v", req.Items)
		}
		_, _ = w.Write([]byte(`{"id":77,"publicCode":"OD-2041","customerId":5}`))
	})

	resp, err := client.CreateManualOrder(context.Background(), CreateOrderRequest{
		Order: OrderPayload{CustomerID: 5, Currency: "INR"},
		Items: []OrderItemPayload{{ProductID: 2, Quantity: 1, Active: true}},
	})
	if err != nil {
		t.Fatalf("CreateManualOrder failed: %v", err)
	}
	if resp.PublicCode != "OD-2041" || resp.CustomerID != 5 {
		t.Fatalf("unexpected response %+v", resp)
	}
}
