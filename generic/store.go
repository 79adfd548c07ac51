/*
store.go - Read-only source interfaces for the engine inputs

PURPOSE:
  Defines the interface between the commission engine and the external
  stores that supply its inputs. The engine only ever reads; ingest is a
  concern of the concrete stores.

KEY INTERFACES:
  RateTableSource: Ordered category -> unit rate entries
  ProfileSource:   Introducer commission percentages
  LedgerSource:    Service records in an inclusive date range
  DirectorySource: Customer -> introducer mapping
  Sources:         All four, as one dependency

ORDERING CONTRACT:
  RateTable() MUST return entries in table order. The prefix-match step of
  rate resolution lets the first matching entry win, so order is part of the
  result. ServiceRecords() returns records ordered by date, then id.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite-backed store
  - generic/store/memory.go: In-memory for testing and fixtures

SEE ALSO:
  - commission/engine.go: Consumer of Sources
*/
package generic

import "context"

type RateTableSource interface {
	// RateTable returns all entries in table order.
	RateTable(ctx context.Context) ([]RateTableEntry, error)
}

type ProfileSource interface {
	CommissionProfiles(ctx context.Context) ([]CommissionProfile, error)
}

type LedgerSource interface {
	// ServiceRecords returns records with Start <= date <= End.
	ServiceRecords(ctx context.Context, r DateRange) ([]ServiceRecord, error)
}

type DirectorySource interface {
	Customers(ctx context.Context) ([]Customer, error)
}

// Sources bundles the four read-only inputs of a run.
type Sources interface {
	RateTableSource
	ProfileSource
	LedgerSource
	DirectorySource
}

// Dataset is a complete set of engine inputs, used for bulk import.
type Dataset struct {
	Rates     []RateTableEntry
	Profiles  []CommissionProfile
	Customers []Customer
	Records   []ServiceRecord
}

// Validate checks every record of the dataset.
func (d Dataset) Validate() error {
	for _, e := range d.Rates {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	for _, p := range d.Profiles {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	for _, c := range d.Customers {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	for _, r := range d.Records {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}
