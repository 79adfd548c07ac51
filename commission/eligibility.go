package commission

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/introducer-commission/generic"
)

// DefaultExclusionMarkers identify the walk-in / direct business line.
// Records whose category contains one of them never earn commission.
var DefaultExclusionMarkers = []string{"散客", "walk-in"}

// =============================================================================
// ELIGIBILITY FILTER
// =============================================================================

// Eligibility decides whether a joined record contributes to any commission.
// Failing records are dropped silently; that is normal filtering.
type Eligibility struct {
	ExclusionMarkers []string
	// percentages holds only participating introducers (percentage > 0).
	percentages map[string]decimal.Decimal
	introducer  string
}

// NewEligibility indexes the participating profiles. filter is the selected
// introducer, or "" / AllIntroducers (any case) for every introducer. The
// filter is trimmed the same way joined introducer names are.
func NewEligibility(profiles []generic.CommissionProfile, markers []string, filter string) *Eligibility {
	pct := make(map[string]decimal.Decimal, len(profiles))
	for _, p := range profiles {
		if p.Participates() {
			pct[p.Introducer] = *p.Percentage
		}
	}
	return &Eligibility{ExclusionMarkers: markers, percentages: pct, introducer: normalizeFilter(filter)}
}

// normalizeFilter returns the trimmed introducer name, or "" for every
// introducer.
func normalizeFilter(filter string) string {
	filter = strings.TrimSpace(filter)
	if strings.EqualFold(filter, AllIntroducers) {
		return ""
	}
	return filter
}

// IsExcludedCategory reports whether category belongs to the walk-in line.
func (e *Eligibility) IsExcludedCategory(category string) bool {
	lower := strings.ToLower(category)
	for _, m := range e.ExclusionMarkers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// Percentage returns the introducer's commission percentage if it participates.
func (e *Eligibility) Percentage(introducer string) (decimal.Decimal, bool) {
	p, ok := e.percentages[introducer]
	return p, ok
}

// IsEligible applies every rule to a record already joined with its introducer.
func (e *Eligibility) IsEligible(rec generic.ServiceRecord) bool {
	if e.IsExcludedCategory(rec.Category) {
		return false
	}
	if rec.Introducer == "" {
		return false
	}
	if _, ok := e.percentages[rec.Introducer]; !ok {
		return false
	}
	if e.introducer != "" && rec.Introducer != e.introducer {
		return false
	}
	return true
}

// Join fills each record's Introducer from the customer directory.
// Introducer names are trimmed; customers missing from the directory
// keep an empty introducer.
func Join(records []generic.ServiceRecord, customers []generic.Customer) []generic.ServiceRecord {
	byID := make(map[generic.CustomerID]string, len(customers))
	for _, c := range customers {
		byID[c.ID] = strings.TrimSpace(c.Introducer)
	}
	out := make([]generic.ServiceRecord, len(records))
	for i, rec := range records {
		rec.Introducer = byID[rec.CustomerID]
		out[i] = rec
	}
	return out
}
