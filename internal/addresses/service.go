// Package addresses manages the resolved customer's address book inside a
// draft: loading it in the background, partitioning it into home-country
// and international lists, and keeping a per-mode selection alive.
package addresses

import (
	"context"
	"strings"
	"time"

	"github.com/orderdeskhq/orderdesk-backend/internal/draft"
	"github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/metrics"
	"github.com/orderdeskhq/orderdesk-backend/pkg/storeapi"
)

const lookupAddressList = "address_list"

type StoreClient interface {
	ListAddresses(ctx context.Context, customerID int64) ([]storeapi.Address, error)
	CreateAddress(ctx context.Context, customerID int64, input storeapi.AddressInput) (*storeapi.Address, error)
}

// ShippingRefresher recomputes the delivery fee after the destination
// changes.
type ShippingRefresher interface {
	Refresh(ctx context.Context, d *draft.Draft)
}

type Service struct {
	store         StoreClient
	shipping      ShippingRefresher
	homeCountryID int64
	logg          *logger.Logger
	metrics       *metrics.ComposerMetrics
	now           func() time.Time
}

func NewService(store StoreClient, shipping ShippingRefresher, homeCountryID int64, logg *logger.Logger, m *metrics.ComposerMetrics) *Service {
	return &Service{
		store:         store,
		shipping:      shipping,
		homeCountryID: homeCountryID,
		logg:          logg,
		metrics:       m,
		now:           time.Now,
	}
}

// Reload fetches the resolved customer's addresses in the background. A
// newer reload or a customer change invalidates the result before it
// lands.
func (s *Service) Reload(ctx context.Context, d *draft.Draft) {
	d.Lock()
	resolved := d.Customer.Resolved
	d.Unlock()
	if resolved == nil {
		return
	}

	seq := d.AddressGuard.Next()
	customerID := resolved.ID
	lookupCtx := context.WithoutCancel(ctx)

	go func() {
		start := s.now()
		all, err := s.store.ListAddresses(lookupCtx, customerID)
		s.metrics.ObserveLookup(lookupAddressList, s.now().Sub(start))

		if d.AddressGuard.Current() != seq {
			s.metrics.IncStaleDropped(lookupAddressList)
			return
		}

		d.Lock()
		defer d.Unlock()
		if d.AddressGuard.Current() != seq {
			s.metrics.IncStaleDropped(lookupAddressList)
			return
		}

		if err != nil {
			s.metrics.IncLookupFailure(lookupAddressList)
			s.logg.Error(s.logg.WithDraftID(lookupCtx, d.ID), "address reload failed", err)
			d.Address.Domestic = nil
			d.Address.International = nil
			d.Address.SelectedDomesticID = nil
			d.Address.SelectedInternationalID = nil
			d.Address.Loaded = false
			d.Address.Note = "could not load saved addresses"
			d.Touch(s.now())
			return
		}

		domestic, international := s.partition(all)
		d.Address.Domestic = domestic
		d.Address.International = international
		d.Address.SelectedDomesticID = fallbackSelection(domestic, d.Address.SelectedDomesticID)
		d.Address.SelectedInternationalID = fallbackSelection(international, d.Address.SelectedInternationalID)
		d.Address.Loaded = true
		d.Address.Note = ""
		d.Touch(s.now())

		go s.shipping.Refresh(lookupCtx, d)
	}()
}

func (s *Service) partition(all []storeapi.Address) (domestic, international []storeapi.Address) {
	domestic = []storeapi.Address{}
	international = []storeapi.Address{}
	for _, addr := range all {
		if !addr.Active {
			continue
		}
		if addr.CountryID == s.homeCountryID {
			domestic = append(domestic, addr)
		} else {
			international = append(international, addr)
		}
	}
	return domestic, international
}

// fallbackSelection keeps an existing selection while it remains in the
// list, otherwise falls back to the default address, then the first one.
func fallbackSelection(list []storeapi.Address, current *int64) *int64 {
	if current != nil {
		for _, addr := range list {
			if addr.ID == *current {
				return current
			}
		}
	}
	for _, addr := range list {
		if addr.IsDefault {
			id := addr.ID
			return &id
		}
	}
	if len(list) > 0 {
		id := list[0].ID
		return &id
	}
	return nil
}

// Select picks an address from the active-mode list.
func (s *Service) Select(ctx context.Context, d *draft.Draft, addressID int64) error {
	d.Lock()
	found := false
	for _, addr := range d.Address.Current() {
		if addr.ID == addressID {
			found = true
			break
		}
	}
	if !found {
		d.Unlock()
		return errors.New(errors.CodeNotFound, "address is not in the current list")
	}
	id := addressID
	d.Address.SetSelectedID(&id)
	d.Touch(s.now())
	d.Unlock()

	go s.shipping.Refresh(context.WithoutCancel(ctx), d)
	return nil
}

// SetMode switches between domestic and international destinations. The
// quoted fee belongs to the old mode, so pricing resets.
func (s *Service) SetMode(ctx context.Context, d *draft.Draft, mode draft.DestinationMode) error {
	if mode != draft.DestinationDomestic && mode != draft.DestinationInternational {
		return errors.New(errors.CodeValidation, "unknown destination mode")
	}

	d.Lock()
	if d.Address.Mode == mode {
		d.Unlock()
		return nil
	}
	d.Address.Mode = mode
	d.ResetPricing()
	d.Touch(s.now())
	d.Unlock()

	go s.shipping.Refresh(context.WithoutCancel(ctx), d)
	return nil
}

// Create stores a new address for the resolved customer and selects it.
func (s *Service) Create(ctx context.Context, d *draft.Draft, input storeapi.AddressInput) error {
	d.Lock()
	resolved := d.Customer.Resolved
	mode := d.Address.Mode
	d.Unlock()
	if resolved == nil {
		return errors.New(errors.CodeValidation, "resolve a customer before adding addresses")
	}

	if err := s.validateInput(&input, mode); err != nil {
		return err
	}

	created, err := s.store.CreateAddress(ctx, resolved.ID, input)
	if err != nil {
		return err
	}

	d.Lock()
	id := created.ID
	if created.CountryID == s.homeCountryID {
		d.Address.Domestic = append(d.Address.Domestic, *created)
		d.Address.SelectedDomesticID = &id
	} else {
		d.Address.International = append(d.Address.International, *created)
		d.Address.SelectedInternationalID = &id
	}
	d.Touch(s.now())
	d.Unlock()

	go s.shipping.Refresh(context.WithoutCancel(ctx), d)
	return nil
}

func (s *Service) validateInput(input *storeapi.AddressInput, mode draft.DestinationMode) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Line1 = strings.TrimSpace(input.Line1)
	input.Line2 = strings.TrimSpace(input.Line2)
	input.Pincode = strings.TrimSpace(input.Pincode)

	switch {
	case input.Name == "":
		return errors.New(errors.CodeValidation, "recipient name is required")
	case input.Phone == "":
		return errors.New(errors.CodeValidation, "recipient phone is required")
	case input.Line1 == "":
		return errors.New(errors.CodeValidation, "address line 1 is required")
	case input.Line2 == "":
		return errors.New(errors.CodeValidation, "address line 2 is required")
	case input.Pincode == "":
		return errors.New(errors.CodeValidation, "pincode is required")
	}

	if mode == draft.DestinationDomestic {
		input.CountryID = s.homeCountryID
		if input.StateID == nil || input.DistrictID == nil {
			return errors.New(errors.CodeValidation, "state and district are required for domestic addresses")
		}
		return nil
	}

	if input.CountryID == 0 || input.CountryID == s.homeCountryID {
		return errors.New(errors.CodeValidation, "international addresses need a non-home country")
	}
	input.StateID = nil
	input.DistrictID = nil
	return nil
}
