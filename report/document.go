// Package report renders a commission.Result for people: a JSON document for
// the API and CLI, a plain text table and an XLSX workbook. Money is always
// written with two decimals and hours with one.
package report

import (
	"github.com/warp/introducer-commission/commission"
	"github.com/warp/introducer-commission/generic"
)

// =============================================================================
// JSON DOCUMENT
// =============================================================================

// ResultDocument is the wire form of a commission.Result.
type ResultDocument struct {
	RunID       string               `json:"run_id"`
	Start       string               `json:"start"`
	End         string               `json:"end"`
	Introducer  string               `json:"introducer"`
	Empty       bool                 `json:"empty"`
	Introducers []IntroducerDocument `json:"introducers"`
	Rows        []RowDocument        `json:"rows"`
	Totals      TotalsDocument       `json:"totals"`
}

type TotalsDocument struct {
	Hours        string `json:"hours"`
	HoursExact   string `json:"hours_exact"`
	VoucherTotal string `json:"voucher_total"`
	Commission   string `json:"commission"`
	Lines        int    `json:"lines"`
}

type IntroducerDocument struct {
	Introducer string             `json:"introducer"`
	Customers  []CustomerDocument `json:"customers"`
	Totals     TotalsDocument     `json:"totals"`
}

type CustomerDocument struct {
	CustomerID   string         `json:"customer_id"`
	CustomerName string         `json:"customer_name"`
	Lines        []LineDocument `json:"lines"`
	Subtotal     TotalsDocument `json:"subtotal"`
}

type LineDocument struct {
	RecordID     string `json:"record_id"`
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	Date         string `json:"date"`
	Category     string `json:"category"`
	RateLabel    string `json:"rate_label,omitempty"`
	RateSource   string `json:"rate_source"`
	Hours        string `json:"hours"`
	HoursExact   string `json:"hours_exact"`
	UnitRate     string `json:"unit_rate"`
	VoucherTotal string `json:"voucher_total"`
	Percentage   string `json:"percentage"`
	Commission   string `json:"commission"`
	Introducer   string `json:"introducer"`
}

// RowDocument is one flattened row. Exactly one of Line, Subtotal or Total is
// set, matching Kind.
type RowDocument struct {
	Kind         string          `json:"kind"`
	Introducer   string          `json:"introducer"`
	CustomerID   string          `json:"customer_id,omitempty"`
	CustomerName string          `json:"customer_name,omitempty"`
	Line         *LineDocument   `json:"line,omitempty"`
	Subtotal     *TotalsDocument `json:"subtotal,omitempty"`
	Total        *TotalsDocument `json:"total,omitempty"`
}

// NewResultDocument converts a result. Slices are never nil so an empty run
// encodes as [] rather than null.
func NewResultDocument(r *commission.Result) ResultDocument {
	doc := ResultDocument{
		RunID:       r.RunID,
		Start:       r.Range.Start.String(),
		End:         r.Range.End.String(),
		Introducer:  r.Introducer,
		Empty:       r.IsEmpty(),
		Introducers: make([]IntroducerDocument, 0, len(r.Introducers)),
		Rows:        []RowDocument{},
		Totals:      totalsDocument(r.Totals),
	}

	for _, agg := range r.Introducers {
		id := IntroducerDocument{
			Introducer: agg.Introducer,
			Customers:  make([]CustomerDocument, 0, len(agg.Customers)),
			Totals:     totalsDocument(agg.Totals),
		}
		for _, group := range agg.Customers {
			cd := CustomerDocument{
				CustomerID:   string(group.Subtotal.CustomerID),
				CustomerName: group.Subtotal.CustomerName,
				Lines:        make([]LineDocument, 0, len(group.Lines)),
				Subtotal:     totalsDocument(group.Subtotal.Totals),
			}
			for _, l := range group.Lines {
				cd.Lines = append(cd.Lines, lineDocument(l))
			}
			id.Customers = append(id.Customers, cd)
		}
		doc.Introducers = append(doc.Introducers, id)
	}

	for _, row := range r.Rows() {
		doc.Rows = append(doc.Rows, rowDocument(row))
	}
	return doc
}

func rowDocument(row commission.Row) RowDocument {
	rd := RowDocument{Kind: string(row.Kind)}
	switch row.Kind {
	case commission.RowDetail:
		l := lineDocument(*row.Line)
		rd.Introducer = l.Introducer
		rd.CustomerID = l.CustomerID
		rd.CustomerName = l.CustomerName
		rd.Line = &l
	case commission.RowSubtotal:
		t := totalsDocument(row.Subtotal.Totals)
		rd.Introducer = row.Subtotal.Introducer
		rd.CustomerID = string(row.Subtotal.CustomerID)
		rd.CustomerName = row.Subtotal.CustomerName
		rd.Subtotal = &t
	case commission.RowIntroducerTotal:
		t := totalsDocument(row.Introducer.Totals)
		rd.Introducer = row.Introducer.Introducer
		rd.Total = &t
	}
	return rd
}

func lineDocument(l commission.CommissionLine) LineDocument {
	return LineDocument{
		RecordID:     string(l.RecordID),
		CustomerID:   string(l.CustomerID),
		CustomerName: l.CustomerName,
		Date:         l.Date.String(),
		Category:     l.Category,
		RateLabel:    l.RateLabel,
		RateSource:   string(l.RateSource),
		Hours:        generic.FormatHours(l.Hours),
		HoursExact:   l.Hours.String(),
		UnitRate:     generic.FormatMoney(l.UnitRate),
		VoucherTotal: generic.FormatMoney(l.VoucherTotal),
		Percentage:   generic.FormatMoney(l.Percentage),
		Commission:   generic.FormatMoney(l.Commission),
		Introducer:   l.Introducer,
	}
}

func totalsDocument(t commission.Totals) TotalsDocument {
	return TotalsDocument{
		Hours:        generic.FormatHours(t.Hours),
		HoursExact:   t.Hours.String(),
		VoucherTotal: generic.FormatMoney(t.VoucherTotal),
		Commission:   generic.FormatMoney(t.Commission),
		Lines:        t.Lines,
	}
}
