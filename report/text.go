package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/warp/introducer-commission/commission"
	"github.com/warp/introducer-commission/generic"
)

// NoDataMessage is printed instead of a table when no record qualified.
const NoDataMessage = "no qualifying data"

const textHeader = "INTRODUCER\tCUSTOMER\tNAME\tDATE\tCATEGORY\tRATE\tSOURCE\tHOURS\tVOUCHER\tPCT\tCOMMISSION"

// WriteText renders the result as an aligned table.
func WriteText(w io.Writer, r *commission.Result) error {
	if _, err := fmt.Fprintf(w, "Introducer commission %s (introducer: %s)\n", r.Range, r.Introducer); err != nil {
		return err
	}
	if r.IsEmpty() {
		_, err := fmt.Fprintf(w, "%s for %s\n", NoDataMessage, r.Range)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, textHeader)
	for _, row := range r.Rows() {
		switch row.Kind {
		case commission.RowDetail:
			l := row.Line
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				l.Introducer, l.CustomerID, l.CustomerName, l.Date, l.Category,
				generic.FormatMoney(l.UnitRate), l.RateSource,
				generic.FormatHours(l.Hours), generic.FormatMoney(l.VoucherTotal),
				generic.FormatMoney(l.Percentage), generic.FormatMoney(l.Commission))
		case commission.RowSubtotal:
			s := row.Subtotal
			fmt.Fprintf(tw, "%s\t%s\t%s\tsubtotal\t\t\t\t%s\t%s\t\t%s\n",
				s.Introducer, s.CustomerID, s.CustomerName,
				generic.FormatHours(s.Hours), generic.FormatMoney(s.VoucherTotal),
				generic.FormatMoney(s.Commission))
		case commission.RowIntroducerTotal:
			a := row.Introducer
			fmt.Fprintf(tw, "%s\t\t\ttotal\t\t\t\t%s\t%s\t\t%s\n",
				a.Introducer,
				generic.FormatHours(a.Hours), generic.FormatMoney(a.VoucherTotal),
				generic.FormatMoney(a.Commission))
		}
	}
	fmt.Fprintf(tw, "ALL\t\t\tgrand total\t\t\t\t%s\t%s\t\t%s\n",
		generic.FormatHours(r.Totals.Hours), generic.FormatMoney(r.Totals.VoucherTotal),
		generic.FormatMoney(r.Totals.Commission))
	return tw.Flush()
}
