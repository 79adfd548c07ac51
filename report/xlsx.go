package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/introducer-commission/commission"
)

// SheetName is the worksheet holding the report rows.
const SheetName = "Commission"

// XLSXContentType is the MIME type of WriteXLSX output.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var xlsxHeader = []interface{}{
	"Row", "Introducer", "Customer ID", "Customer Name", "Date", "Category",
	"Rate Label", "Rate Source", "Hours", "Unit Rate", "Voucher Total", "Percentage", "Commission",
}

// Numeric columns, 1-based.
const (
	colHours = 9 + iota
	colUnitRate
	colVoucher
	colPercentage
	colCommission
)

// WriteXLSX writes the result as a single-sheet workbook. Numeric cells are
// stored with their display precision so the file reads back exactly.
func WriteXLSX(w io.Writer, r *commission.Result) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	x := &sheetWriter{f: f}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:       fmt.Sprintf("Introducer commission %s", r.Range),
		Description: fmt.Sprintf("introducer: %s, run: %s", r.Introducer, r.RunID),
	}); err != nil {
		return err
	}

	x.row++
	x.values(xlsxHeader...)

	for _, row := range r.Rows() {
		x.row++
		switch row.Kind {
		case commission.RowDetail:
			l := row.Line
			x.values(string(row.Kind), l.Introducer, string(l.CustomerID), l.CustomerName,
				l.Date.String(), l.Category, l.RateLabel, string(l.RateSource))
			x.number(colHours, l.Hours, 1)
			x.number(colUnitRate, l.UnitRate, 2)
			x.number(colVoucher, l.VoucherTotal, 2)
			x.number(colPercentage, l.Percentage, 2)
			x.number(colCommission, l.Commission, 2)
		case commission.RowSubtotal:
			s := row.Subtotal
			x.values(string(row.Kind), s.Introducer, string(s.CustomerID), s.CustomerName)
			x.totals(s.Totals)
		case commission.RowIntroducerTotal:
			x.values(string(row.Kind), row.Introducer.Introducer)
			x.totals(row.Introducer.Totals)
		}
	}

	x.row++
	x.values("grand_total", r.Introducer)
	x.totals(r.Totals)

	if x.err != nil {
		return fmt.Errorf("build workbook: %w", x.err)
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}
	_, err := f.WriteTo(w)
	return err
}

// sheetWriter keeps the first error so the row loop stays flat.
type sheetWriter struct {
	f   *excelize.File
	row int
	err error
}

func (x *sheetWriter) values(vals ...interface{}) {
	if x.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		x.err = err
		return
	}
	x.err = x.f.SetSheetRow(SheetName, cell, &vals)
}

func (x *sheetWriter) number(col int, d decimal.Decimal, places int32) {
	if x.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, x.row)
	if err != nil {
		x.err = err
		return
	}
	x.err = x.f.SetCellFloat(SheetName, cell, d.Round(places).InexactFloat64(), int(places), 64)
}

func (x *sheetWriter) totals(t commission.Totals) {
	x.number(colHours, t.Hours, 1)
	x.number(colVoucher, t.VoucherTotal, 2)
	x.number(colCommission, t.Commission, 2)
}
