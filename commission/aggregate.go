package commission

import (
	"sort"
)

// =============================================================================
// AGGREGATOR - introducer -> customer -> lines, with subtotal rollups
// =============================================================================

// Aggregate groups lines by introducer, then by customer.
//
// ORDER:
//   - introducers by name
//   - within an introducer, lines by customer id, then by ISO service date;
//     equal keys keep their input order
//
// Aggregate does not modify lines. Equal input yields equal output.
func Aggregate(lines []CommissionLine) ([]IntroducerAggregate, Totals) {
	byIntroducer := make(map[string][]CommissionLine)
	var names []string
	for _, l := range lines {
		if _, seen := byIntroducer[l.Introducer]; !seen {
			names = append(names, l.Introducer)
		}
		byIntroducer[l.Introducer] = append(byIntroducer[l.Introducer], l)
	}
	sort.Strings(names)

	aggregates := make([]IntroducerAggregate, 0, len(names))
	var grand Totals
	for _, name := range names {
		agg := aggregateIntroducer(name, byIntroducer[name])
		grand = grand.merge(agg.Totals)
		aggregates = append(aggregates, agg)
	}
	return aggregates, grand
}

func aggregateIntroducer(name string, lines []CommissionLine) IntroducerAggregate {
	sorted := make([]CommissionLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CustomerID != sorted[j].CustomerID {
			return sorted[i].CustomerID < sorted[j].CustomerID
		}
		return sorted[i].Date.String() < sorted[j].Date.String()
	})

	agg := IntroducerAggregate{Introducer: name}
	for start := 0; start < len(sorted); {
		end := start
		for end < len(sorted) && sorted[end].CustomerID == sorted[start].CustomerID {
			end++
		}
		group := CustomerGroup{
			Lines: sorted[start:end:end],
			Subtotal: CustomerSubtotal{
				CustomerID:   sorted[start].CustomerID,
				CustomerName: sorted[start].CustomerName,
				Introducer:   name,
			},
		}
		for _, l := range group.Lines {
			group.Subtotal.Totals = group.Subtotal.Totals.add(l)
			agg.Totals = agg.Totals.add(l)
		}
		agg.Customers = append(agg.Customers, group)
		start = end
	}
	return agg
}
