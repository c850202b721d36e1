package chaincode

import (
	"encoding/json"
	"fmt"

	"github.com/trustup-app/trustup/backend/pkg/ledgerapi"
	"github.com/trustup-app/trustup/backend/pkg/safemath"
)

// State keys.
const (
	adminKey       = "admin"
	creditLineKey  = "creditline"
	countKey       = "merchant_count"
	merchantPrefix = "merchant_"
)

// Event names.
const (
	MerchantRegisteredEvent = "MerchantRegisteredEvent"
	MerchantStatusEvent     = "MerchantStatusEvent"
	MerchantSaleEvent       = "MerchantSaleEvent"
)

const maxNameLen = 64

// MerchantRecord is the per-merchant directory entry. A merchant absent from
// the directory is treated as inactive by dependent contracts, never as an
// error.
type MerchantRecord struct {
	Name         string `json:"name"`
	RegisteredAt int64  `json:"registered_at"`
	Active       bool   `json:"active"`
	TotalSales   int64  `json:"total_sales"`
}

type statusChange struct {
	Merchant string `json:"merchant"`
	Active   bool   `json:"active"`
}

type saleRecorded struct {
	Merchant   string `json:"merchant"`
	Amount     int64  `json:"amount"`
	TotalSales int64  `json:"total_sales"`
}

// Directory owns the merchant activation flags and sales counters.
type Directory struct {
	state  ledgerapi.State
	events ledgerapi.EventSink
	clock  ledgerapi.Clock
}

func NewDirectory(state ledgerapi.State, events ledgerapi.EventSink, clock ledgerapi.Clock) *Directory {
	return &Directory{state: state, events: events, clock: clock}
}

// Initialize sets the contract admin. It can only be called once.
func (d *Directory) Initialize(admin string) error {
	existing, err := d.state.Get(adminKey)
	if err != nil {
		return fmt.Errorf("failed to read admin: %w", err)
	}
	if existing != nil {
		return ErrAlreadyInitialized
	}
	return d.state.Put(adminKey, []byte(admin))
}

// SetCreditLine records the identity allowed to call RecordSale.
func (d *Directory) SetCreditLine(caller, creditLine string) error {
	if err := d.requireAdmin(caller); err != nil {
		return err
	}
	return d.state.Put(creditLineKey, []byte(creditLine))
}

// RegisterMerchant adds a new merchant in the active state.
func (d *Directory) RegisterMerchant(caller, merchant, name string) error {
	if err := d.requireAdmin(caller); err != nil {
		return err
	}
	if len(name) == 0 || len(name) > maxNameLen {
		return fmt.Errorf("%w: merchant name must be 1-%d characters", ErrInvalidInput, maxNameLen)
	}
	existing, err := d.state.Get(merchantPrefix + merchant)
	if err != nil {
		return fmt.Errorf("failed to read merchant: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, merchant)
	}
	now, err := d.clock.Now()
	if err != nil {
		return fmt.Errorf("failed to read ledger time: %w", err)
	}

	rec := MerchantRecord{Name: name, RegisteredAt: now, Active: true}
	if err := d.putMerchant(merchant, rec); err != nil {
		return err
	}
	if err := d.incrementCount(); err != nil {
		return err
	}
	payload, err := json.Marshal(struct {
		Merchant string `json:"merchant"`
		Name     string `json:"name"`
	}{merchant, name})
	if err != nil {
		return err
	}
	return d.events.Emit(MerchantRegisteredEvent, payload)
}

// ActivateMerchant sets the merchant's activity flag.
func (d *Directory) ActivateMerchant(caller, merchant string) error {
	return d.setActive(caller, merchant, true)
}

// DeactivateMerchant clears the merchant's activity flag.
func (d *Directory) DeactivateMerchant(caller, merchant string) error {
	return d.setActive(caller, merchant, false)
}

// IsActive reports whether the merchant exists and is active. Unknown
// merchants are inactive, not an error — this is the single read the
// CreditLine engine depends on.
func (d *Directory) IsActive(merchant string) (bool, error) {
	rec, err := d.getMerchant(merchant)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	return rec.Active, nil
}

// GetMerchant returns the directory entry for a registered merchant.
func (d *Directory) GetMerchant(merchant string) (*MerchantRecord, error) {
	rec, err := d.getMerchant(merchant)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, merchant)
	}
	return rec, nil
}

// GetMerchantCount returns the number of registered merchants.
func (d *Directory) GetMerchantCount() (uint64, error) {
	raw, err := d.state.Get(countKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read merchant count: %w", err)
	}
	if raw == nil {
		return 0, nil
	}
	var count uint64
	if err := json.Unmarshal(raw, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// RecordSale increments the merchant's running sales counter. Only the
// configured CreditLine identity may call it; it is invoked after a loan is
// successfully created for the merchant.
func (d *Directory) RecordSale(caller, merchant string, amount int64) error {
	creditLine, err := d.state.Get(creditLineKey)
	if err != nil {
		return fmt.Errorf("failed to read creditline identity: %w", err)
	}
	if creditLine == nil || caller != string(creditLine) {
		return fmt.Errorf("%w: %s is not the creditline contract", ErrUnauthorized, caller)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: sale amount must be positive", ErrInvalidInput)
	}
	rec, err := d.getMerchant(merchant)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, merchant)
	}
	total, err := safemath.Add(rec.TotalSales, amount)
	if err != nil {
		return fmt.Errorf("sales counter for %s: %w", merchant, err)
	}
	rec.TotalSales = total
	if err := d.putMerchant(merchant, *rec); err != nil {
		return err
	}
	payload, err := json.Marshal(saleRecorded{Merchant: merchant, Amount: amount, TotalSales: total})
	if err != nil {
		return err
	}
	return d.events.Emit(MerchantSaleEvent, payload)
}

func (d *Directory) setActive(caller, merchant string, active bool) error {
	if err := d.requireAdmin(caller); err != nil {
		return err
	}
	rec, err := d.getMerchant(merchant)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, merchant)
	}
	rec.Active = active
	if err := d.putMerchant(merchant, *rec); err != nil {
		return err
	}
	payload, err := json.Marshal(statusChange{Merchant: merchant, Active: active})
	if err != nil {
		return err
	}
	return d.events.Emit(MerchantStatusEvent, payload)
}

func (d *Directory) getMerchant(merchant string) (*MerchantRecord, error) {
	raw, err := d.state.Get(merchantPrefix + merchant)
	if err != nil {
		return nil, fmt.Errorf("failed to read merchant: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var rec MerchantRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (d *Directory) putMerchant(merchant string, rec MerchantRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return d.state.Put(merchantPrefix+merchant, raw)
}

func (d *Directory) incrementCount() error {
	count, err := d.GetMerchantCount()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(count + 1)
	if err != nil {
		return err
	}
	return d.state.Put(countKey, raw)
}

func (d *Directory) requireAdmin(caller string) error {
	admin, err := d.state.Get(adminKey)
	if err != nil {
		return fmt.Errorf("failed to read admin: %w", err)
	}
	if admin == nil {
		return ErrNotInitialized
	}
	if caller != string(admin) {
		return fmt.Errorf("%w: %s is not the admin", ErrUnauthorized, caller)
	}
	return nil
}
