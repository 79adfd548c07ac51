package commission

import (
	"github.com/shopspring/decimal"
	"github.com/warp/introducer-commission/generic"
)

// =============================================================================
// COMMISSION CALCULATOR
// =============================================================================

// Price turns an eligible record into a CommissionLine.
//
// Rounding is half-up to two places at each multiplication step:
//
//	voucherTotal = round2(hours * unitRate)
//	commission   = round2(voucherTotal * percentage / 100)
//
// Rounding once at the end gives different totals; keep both steps.
func Price(rec generic.ServiceRecord, res Resolution, percentage decimal.Decimal) CommissionLine {
	rate := EffectiveRate(res, rec.Fee, rec.Hours)
	voucherTotal := generic.Round2(rec.Hours.Mul(rate.Rate))
	commission := generic.Round2(voucherTotal.Mul(percentage).Div(generic.Hundred()))

	return CommissionLine{
		RecordID:     rec.ID,
		CustomerID:   rec.CustomerID,
		CustomerName: rec.CustomerName,
		Date:         rec.Date,
		Category:     rec.Category,
		RateLabel:    rate.Label,
		RateSource:   rate.Source,
		Hours:        rec.Hours,
		UnitRate:     rate.Rate,
		VoucherTotal: voucherTotal,
		Percentage:   percentage,
		Commission:   commission,
		Introducer:   rec.Introducer,
	}
}
