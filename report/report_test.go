package report_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/introducer-commission/commission"
	"github.com/warp/introducer-commission/generic"
	"github.com/warp/introducer-commission/report"
)

func pct(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// joeResult is C001 (Joe, 20%) with two January records:
// 2h personal care at 100 and 3h nursing at 150.
func joeResult(t *testing.T) *commission.Result {
	t.Helper()
	rng := generic.MonthRange(2025, 1)
	rates := []generic.RateTableEntry{
		{Label: "個人照顧", UnitRate: decimal.NewFromInt(100)},
		{Label: "護理服務", UnitRate: decimal.NewFromInt(150)},
	}
	profiles := []generic.CommissionProfile{{Introducer: "Joe", Percentage: pct("20")}}
	customers := []generic.Customer{{ID: "C001", Name: "Chan Tai Man", Introducer: "Joe"}}
	records := []generic.ServiceRecord{
		{ID: "S-1", CustomerID: "C001", CustomerName: "Chan Tai Man", Date: generic.MustParseDate("2025-01-05"),
			Hours: decimal.NewFromInt(2), Fee: decimal.NewFromInt(200), Category: "個人照顧"},
		{ID: "S-2", CustomerID: "C001", CustomerName: "Chan Tai Man", Date: generic.MustParseDate("2025-01-12"),
			Hours: decimal.NewFromInt(3), Fee: decimal.NewFromInt(450), Category: "護理服務"},
	}
	r := commission.Calculate(rates, profiles, records, customers, commission.DefaultPolicy(), commission.Query{Range: rng})
	r.RunID = "run-1"
	return r
}

func emptyResult() *commission.Result {
	return commission.Calculate(nil, nil, nil, nil, commission.DefaultPolicy(),
		commission.Query{Range: generic.MonthRange(2025, 2)})
}

func TestNewResultDocument(t *testing.T) {
	doc := report.NewResultDocument(joeResult(t))

	assert.Equal(t, "2025-01-01", doc.Start)
	assert.Equal(t, "2025-01-31", doc.End)
	assert.Equal(t, "all", doc.Introducer)
	assert.False(t, doc.Empty)

	require.Len(t, doc.Introducers, 1)
	joe := doc.Introducers[0]
	require.Len(t, joe.Customers, 1)
	assert.Equal(t, "5.0", joe.Customers[0].Subtotal.Hours)
	assert.Equal(t, "650.00", joe.Customers[0].Subtotal.VoucherTotal)
	assert.Equal(t, "130.00", joe.Customers[0].Subtotal.Commission)
	assert.Equal(t, "40.00", joe.Customers[0].Lines[0].Commission)
	assert.Equal(t, "20.00", joe.Customers[0].Lines[0].Percentage)

	kinds := make([]string, 0, len(doc.Rows))
	for _, row := range doc.Rows {
		kinds = append(kinds, row.Kind)
	}
	assert.Equal(t, []string{"detail", "detail", "subtotal", "introducer_total"}, kinds)
	assert.NotNil(t, doc.Rows[0].Line)
	assert.Nil(t, doc.Rows[0].Subtotal)
	assert.Equal(t, "C001", doc.Rows[2].CustomerID)
	assert.Equal(t, "130.00", doc.Rows[3].Total.Commission)
}

func TestNewResultDocument_EmptyEncodesArrays(t *testing.T) {
	data, err := json.Marshal(report.NewResultDocument(emptyResult()))
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"empty":true`)
	assert.Contains(t, s, `"introducers":[]`)
	assert.Contains(t, s, `"rows":[]`)
	assert.Contains(t, s, `"commission":"0.00"`)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteText(&buf, joeResult(t)))
	out := buf.String()

	assert.Contains(t, out, "[2025-01-01, 2025-01-31]")
	assert.Contains(t, out, "subtotal")
	assert.Contains(t, out, "grand total")
	assert.Contains(t, out, "650.00")
	assert.Contains(t, out, "130.00")
	assert.Contains(t, out, "5.0")
	assert.NotContains(t, out, report.NoDataMessage)
}

func TestWriteText_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteText(&buf, emptyResult()))

	assert.Contains(t, buf.String(), report.NoDataMessage)
	assert.False(t, strings.Contains(buf.String(), "INTRODUCER"))
}

func TestWriteXLSX_ReadsBack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteXLSX(&buf, joeResult(t)))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, report.SheetName, f.GetSheetName(0))
	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	// header, 2 details, subtotal, introducer total, grand total
	require.Len(t, rows, 6)
	assert.Equal(t, "Row", rows[0][0])
	assert.Equal(t, "detail", rows[1][0])
	assert.Equal(t, "subtotal", rows[3][0])
	assert.Equal(t, "introducer_total", rows[4][0])
	assert.Equal(t, "grand_total", rows[5][0])

	raw := excelize.Options{RawCellValue: true}
	cell := func(ref string) string {
		v, err := f.GetCellValue(report.SheetName, ref, raw)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "2025-01-05", cell("E2"))
	assert.Equal(t, "40.00", cell("M2"))
	assert.Equal(t, "90.00", cell("M3"))
	assert.Equal(t, "5.0", cell("I4"))
	assert.Equal(t, "650.00", cell("K4"))
	assert.Equal(t, "130.00", cell("M6"))
}

func TestWriteXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteXLSX(&buf, emptyResult()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "grand_total", rows[1][0])
}
