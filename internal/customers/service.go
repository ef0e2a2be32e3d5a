// Package customers implements the search-and-resolve flow for the draft's
// buyer. Searches are debounced and served from a client-side filter over
// the backend's customer list; stale results are dropped by sequence.
package customers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/orderdeskhq/orderdesk-backend/internal/draft"
	"github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/metrics"
	"github.com/orderdeskhq/orderdesk-backend/pkg/storeapi"
)

const lookupCustomerSearch = "customer_search"

// StoreClient is the slice of the backend client this engine needs.
type StoreClient interface {
	ListCustomers(ctx context.Context) ([]storeapi.Customer, error)
	CreateCustomer(ctx context.Context, input storeapi.CustomerInput) (*storeapi.Customer, error)
}

// AddressReloader refreshes the address book after the buyer changes.
type AddressReloader interface {
	Reload(ctx context.Context, d *draft.Draft)
}

type Service struct {
	store     StoreClient
	addresses AddressReloader
	logg      *logger.Logger
	metrics   *metrics.ComposerMetrics
	now       func() time.Time
}

func NewService(store StoreClient, addresses AddressReloader, logg *logger.Logger, m *metrics.ComposerMetrics) *Service {
	return &Service{
		store:     store,
		addresses: addresses,
		logg:      logg,
		metrics:   m,
		now:       time.Now,
	}
}

// SetQuery records a keystroke in the customer search box. Any resolved
// customer is cleared immediately along with everything derived from it;
// the actual lookup fires only after the debounce window closes.
func (s *Service) SetQuery(ctx context.Context, d *draft.Draft, query string) {
	d.Lock()
	d.Customer.Query = query
	s.clearResolvedLocked(d)
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		d.Customer.Suggestions = nil
	}
	d.Touch(s.now())
	d.Unlock()

	if trimmed == "" {
		d.SearchDebounce.Cancel()
		return
	}

	// The request context dies when the handler returns; the lookup must
	// outlive it.
	lookupCtx := context.WithoutCancel(ctx)
	d.SearchDebounce.Trigger(func(seq uint64) {
		s.search(lookupCtx, d, trimmed, seq)
	})
}

func (s *Service) search(ctx context.Context, d *draft.Draft, term string, seq uint64) {
	start := s.now()
	all, err := s.store.ListCustomers(ctx)
	s.metrics.ObserveLookup(lookupCustomerSearch, s.now().Sub(start))

	if d.SearchDebounce.Current() != seq {
		s.metrics.IncStaleDropped(lookupCustomerSearch)
		return
	}

	if err != nil {
		s.metrics.IncLookupFailure(lookupCustomerSearch)
		s.logg.Error(s.logg.WithDraftID(ctx, d.ID), "customer search failed", err)
		return
	}

	matches := filterCustomers(all, term)

	d.Lock()
	defer d.Unlock()
	// Re-check under the lock; a newer keystroke may have landed while we
	// were waiting for it.
	if d.SearchDebounce.Current() != seq {
		s.metrics.IncStaleDropped(lookupCustomerSearch)
		return
	}
	d.Customer.Suggestions = matches
	d.Touch(s.now())
}

func filterCustomers(all []storeapi.Customer, term string) []storeapi.Customer {
	needle := strings.ToLower(strings.TrimSpace(term))
	matches := []storeapi.Customer{}
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.DisplayName), needle) ||
			strings.Contains(strings.ToLower(c.Email), needle) ||
			strings.Contains(c.Phone, needle) ||
			strconv.FormatInt(c.ID, 10) == needle {
			matches = append(matches, c)
		}
	}
	return matches
}

// Select resolves the buyer to one of the current suggestions and kicks
// off the dependent address reload.
func (s *Service) Select(ctx context.Context, d *draft.Draft, customerID int64) error {
	d.Lock()
	var picked *storeapi.Customer
	for i := range d.Customer.Suggestions {
		if d.Customer.Suggestions[i].ID == customerID {
			copied := d.Customer.Suggestions[i]
			picked = &copied
			break
		}
	}
	if picked == nil {
		d.Unlock()
		return errors.New(errors.CodeNotFound, "customer is not in the current search results")
	}

	d.Customer.Resolved = picked
	d.Customer.Query = picked.DisplayName
	clearAddressBookLocked(d)
	d.ResetPricing()
	d.Touch(s.now())
	d.Unlock()

	d.SearchDebounce.Cancel()
	s.addresses.Reload(ctx, d)
	return nil
}

// Create registers a new customer inline and resolves the draft to them.
func (s *Service) Create(ctx context.Context, d *draft.Draft, input storeapi.CustomerInput) error {
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	if input.DisplayName == "" {
		return errors.New(errors.CodeValidation, "customer name is required")
	}
	if input.Email == "" && input.Phone == "" {
		return errors.New(errors.CodeValidation, "customer needs an email or a phone number")
	}

	created, err := s.store.CreateCustomer(ctx, input)
	if err != nil {
		return err
	}

	d.Lock()
	d.Customer.Resolved = created
	d.Customer.Query = created.DisplayName
	d.Customer.Suggestions = nil
	clearAddressBookLocked(d)
	d.ResetPricing()
	d.Touch(s.now())
	d.Unlock()

	d.SearchDebounce.Cancel()
	s.addresses.Reload(ctx, d)
	return nil
}

// clearResolvedLocked wipes the resolved buyer and everything keyed off
// them. Caller holds the draft lock.
func (s *Service) clearResolvedLocked(d *draft.Draft) {
	if d.Customer.Resolved == nil {
		return
	}
	d.Customer.Resolved = nil
	clearAddressBookLocked(d)
	d.ResetPricing()
}

// clearAddressBookLocked drops the loaded address partitions and their
// selections. The previous buyer's addresses must never be visible, or
// submittable, once the resolved customer changes. Caller holds the
// draft lock.
func clearAddressBookLocked(d *draft.Draft) {
	d.Address.Domestic = nil
	d.Address.International = nil
	d.Address.SelectedDomesticID = nil
	d.Address.SelectedInternationalID = nil
	d.Address.Loaded = false
	d.Address.Note = ""
	d.AddressGuard.Invalidate()
}
