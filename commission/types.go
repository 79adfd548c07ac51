// Package commission implements the introducer commission calculation engine.
// It resolves voucher unit rates, filters service records for eligibility,
// prices each record and aggregates the lines per introducer and customer.
package commission

import (
	"github.com/shopspring/decimal"
	"github.com/warp/introducer-commission/generic"
)

// AllIntroducers is the introducer filter value that selects every introducer.
const AllIntroducers = "all"

// =============================================================================
// RATE SOURCE - How a line's unit rate was obtained
// =============================================================================

type RateSource string

const (
	RateExact   RateSource = "exact"   // exact table label
	RatePrefix  RateSource = "prefix"  // two-character prefix match against the table
	RateKeyword RateSource = "keyword" // keyword fallback table
	RateDerived RateSource = "derived" // fee / hours
	RateNone    RateSource = "none"    // nothing matched and hours is zero
)

// =============================================================================
// DERIVED VALUES - Recomputed on every run, never persisted
// =============================================================================

// CommissionLine is one priced, eligible service record.
type CommissionLine struct {
	RecordID     generic.RecordID
	CustomerID   generic.CustomerID
	CustomerName string
	Date         generic.Date
	Category     string
	RateLabel    string
	RateSource   RateSource
	Hours        decimal.Decimal
	UnitRate     decimal.Decimal
	VoucherTotal decimal.Decimal
	Percentage   decimal.Decimal
	Commission   decimal.Decimal
	Introducer   string
}

// Totals are the sums carried by every aggregation level.
type Totals struct {
	Hours        decimal.Decimal
	VoucherTotal decimal.Decimal
	Commission   decimal.Decimal
	Lines        int
}

func (t Totals) add(l CommissionLine) Totals {
	return Totals{
		Hours:        t.Hours.Add(l.Hours),
		VoucherTotal: t.VoucherTotal.Add(l.VoucherTotal),
		Commission:   t.Commission.Add(l.Commission),
		Lines:        t.Lines + 1,
	}
}

func (t Totals) merge(o Totals) Totals {
	return Totals{
		Hours:        t.Hours.Add(o.Hours),
		VoucherTotal: t.VoucherTotal.Add(o.VoucherTotal),
		Commission:   t.Commission.Add(o.Commission),
		Lines:        t.Lines + o.Lines,
	}
}

// CustomerSubtotal sums one customer's lines under one introducer.
type CustomerSubtotal struct {
	CustomerID   generic.CustomerID
	CustomerName string
	Introducer   string
	Totals
}

// CustomerGroup is a customer's detail lines followed by their subtotal.
type CustomerGroup struct {
	Lines    []CommissionLine
	Subtotal CustomerSubtotal
}

// IntroducerAggregate holds an introducer's customer groups and sums.
type IntroducerAggregate struct {
	Introducer string
	Customers  []CustomerGroup
	Totals
}

// Result is the output of one run.
type Result struct {
	RunID       string
	Range       generic.DateRange
	Introducer  string
	Introducers []IntroducerAggregate
	Totals      Totals
}

// IsEmpty reports whether no record qualified. This is not an error.
func (r *Result) IsEmpty() bool {
	return len(r.Introducers) == 0
}

// =============================================================================
// ROWS - Tagged variant for renderers
// =============================================================================

type RowKind string

const (
	RowDetail          RowKind = "detail"
	RowSubtotal        RowKind = "subtotal"
	RowIntroducerTotal RowKind = "introducer_total"
)

// Row is exactly one of Line, Subtotal or Introducer, selected by Kind.
type Row struct {
	Kind       RowKind
	Line       *CommissionLine
	Subtotal   *CustomerSubtotal
	Introducer *IntroducerAggregate
}

// Rows flattens the result: each customer's details are immediately followed
// by its subtotal, and each introducer ends with its total.
func (r *Result) Rows() []Row {
	var rows []Row
	for i := range r.Introducers {
		agg := &r.Introducers[i]
		for j := range agg.Customers {
			group := &agg.Customers[j]
			for k := range group.Lines {
				rows = append(rows, Row{Kind: RowDetail, Line: &group.Lines[k]})
			}
			rows = append(rows, Row{Kind: RowSubtotal, Subtotal: &group.Subtotal})
		}
		rows = append(rows, Row{Kind: RowIntroducerTotal, Introducer: agg})
	}
	return rows
}

// Query selects the ledger range and introducer of a run.
type Query struct {
	Range      generic.DateRange
	Introducer string
}

// FiltersIntroducer reports whether the query narrows to one introducer.
func (q Query) FiltersIntroducer() bool {
	return q.Introducer != "" && q.Introducer != AllIntroducers
}
