/*
Package generic provides the shared primitives of the commission engine.

PURPOSE:
  This package contains the value types that every other package speaks:
  currency amounts, calendar dates, inclusive date ranges, and the records
  supplied by the external data sources (rate table, commission profiles,
  billing ledger, customer directory). It has no knowledge of how commission
  is computed; that lives in the commission package.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money helpers: Round2, ParseMoney, MustParseDecimal over decimal.Decimal
  - ServiceRecord: one billed service from the ledger
  - RateTableEntry: category label -> unit rate
  - CommissionProfile: introducer -> commission percentage (nullable)
  - Customer: customer identifier -> introducer

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Read-only inputs: records are snapshots, never mutated by the engine
  3. Type Safety: Strong typing for IDs prevents mixing customer/record IDs

USAGE:
  fee := generic.MustParseDecimal("450.00")
  rec := generic.ServiceRecord{
      ID:         "svc-001",
      CustomerID: "C001",
      Date:       generic.NewDate(2025, time.January, 10),
      Hours:      decimal.NewFromInt(3),
      Fee:        fee,
      Category:   "個人照顧",
  }

SEE ALSO:
  - time.go: Date type
  - period.go: DateRange and MonthRange
  - store.go: Source interfaces
*/
package generic

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - decimal helpers with a fixed rounding discipline
// =============================================================================

// MoneyPlaces is the number of decimal places kept for currency values.
const MoneyPlaces = 2

// HourPlaces is the number of decimal places used when hours are displayed.
const HourPlaces = 1

var hundred = decimal.NewFromInt(100)

// Hundred returns the decimal constant 100.
func Hundred() decimal.Decimal { return hundred }

// Round2 rounds half-up to two decimal places.
// Inputs are non-negative, so decimal's half-away-from-zero is half-up here.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// FormatMoney renders a currency value with two decimals.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}

// FormatHours renders an hour value with one decimal.
func FormatHours(d decimal.Decimal) string {
	return d.StringFixed(HourPlaces)
}

// ParseMoney parses a non-negative decimal string.
func ParseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is negative", ErrInvalidInput, s)
	}
	return d, nil
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CustomerID string
type RecordID string

// =============================================================================
// EXTERNAL RECORDS - supplied read-only by the data sources
// =============================================================================

// ServiceRecord is one billed service from the billing ledger.
// Introducer is empty until the record is joined with the customer directory.
type ServiceRecord struct {
	ID           RecordID
	CustomerID   CustomerID
	CustomerName string
	Date         Date
	Hours        decimal.Decimal
	Fee          decimal.Decimal
	Category     string
	Introducer   string
}

// Validate checks the record invariants: hours >= 0, fee >= 0, valid date.
func (r ServiceRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: service record id is required", ErrInvalidInput)
	}
	if r.CustomerID == "" {
		return fmt.Errorf("%w: service record %s has no customer", ErrInvalidInput, r.ID)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: service record %s has no date", ErrInvalidInput, r.ID)
	}
	if r.Hours.IsNegative() {
		return fmt.Errorf("%w: service record %s has negative hours", ErrInvalidInput, r.ID)
	}
	if r.Fee.IsNegative() {
		return fmt.Errorf("%w: service record %s has negative fee", ErrInvalidInput, r.ID)
	}
	return nil
}

// RateTableEntry maps a service category label to a voucher unit rate per hour.
type RateTableEntry struct {
	Label    string
	UnitRate decimal.Decimal
}

func (e RateTableEntry) Validate() error {
	if strings.TrimSpace(e.Label) == "" {
		return fmt.Errorf("%w: rate label is required", ErrInvalidInput)
	}
	if e.UnitRate.IsNegative() {
		return fmt.Errorf("%w: rate %q is negative", ErrInvalidInput, e.Label)
	}
	return nil
}

// CommissionProfile holds an introducer's voucher commission percentage.
// A nil Percentage means the introducer does not participate.
type CommissionProfile struct {
	Introducer string
	Percentage *decimal.Decimal
}

// Participates reports whether the profile has a percentage > 0.
func (p CommissionProfile) Participates() bool {
	return p.Percentage != nil && p.Percentage.IsPositive()
}

func (p CommissionProfile) Validate() error {
	if strings.TrimSpace(p.Introducer) == "" {
		return fmt.Errorf("%w: introducer is required", ErrInvalidInput)
	}
	if p.Percentage != nil && (p.Percentage.IsNegative() || p.Percentage.GreaterThan(hundred)) {
		return fmt.Errorf("%w: percentage for %q must be within 0-100", ErrInvalidInput, p.Introducer)
	}
	return nil
}

// Customer is a customer directory entry.
type Customer struct {
	ID         CustomerID
	Name       string
	Introducer string
}

func (c Customer) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: customer id is required", ErrInvalidInput)
	}
	return nil
}
