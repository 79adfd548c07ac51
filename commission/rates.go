package commission

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/introducer-commission/generic"
)

// =============================================================================
// RATE RESOLVER - Category label -> voucher unit rate
// =============================================================================
//
// Resolution runs an ordered list of strategies; the first match wins:
//
//   1. ExactMatch    label equals a table label
//   2. PrefixMatch   either label contains the first two characters of the other
//   3. KeywordTable  fixed keyword -> default rate rules, in priority order
//
// When nothing matches the resolver returns a zero rate. Zero is a sentinel
// for "no catalog rate": EffectiveRate then derives the rate from the record.
//
// PrefixMatch returns the FIRST table entry that matches. Two entries whose
// first two characters overlap resolve by table order, not by closeness.
// This is pinned by TestPrefixMatch_FirstEntryWins; change it only together
// with that test. Unlike a literal two-character test, an empty label matches
// no entry here and falls through to fee / hours.

// Resolution is the outcome of resolving one category label.
type Resolution struct {
	Rate   decimal.Decimal
	Label  string // matched table label or keyword rule name
	Source RateSource
}

// Matched reports whether a catalog rate was found.
func (r Resolution) Matched() bool {
	return r.Source != RateNone && r.Rate.IsPositive()
}

// Strategy is one step of the resolution cascade.
type Strategy interface {
	Source() RateSource
	Resolve(label string) (Resolution, bool)
}

// ExactMatch compares labels byte for byte.
type ExactMatch struct {
	Table []generic.RateTableEntry
}

func (ExactMatch) Source() RateSource { return RateExact }

func (s ExactMatch) Resolve(label string) (Resolution, bool) {
	for _, e := range s.Table {
		if e.Label == label {
			return Resolution{Rate: e.UnitRate, Label: e.Label, Source: RateExact}, true
		}
	}
	return Resolution{}, false
}

// PrefixMatch handles truncated and alternate-width variants of a label.
// An entry matches when it contains the first two characters of label, or
// label contains the first two characters of the entry.
type PrefixMatch struct {
	Table []generic.RateTableEntry
}

func (PrefixMatch) Source() RateSource { return RatePrefix }

func (s PrefixMatch) Resolve(label string) (Resolution, bool) {
	if label == "" {
		return Resolution{}, false
	}
	head := prefix2(label)
	for _, e := range s.Table {
		if e.Label == "" {
			continue
		}
		if strings.Contains(e.Label, head) || strings.Contains(label, prefix2(e.Label)) {
			return Resolution{Rate: e.UnitRate, Label: e.Label, Source: RatePrefix}, true
		}
	}
	return Resolution{}, false
}

// prefix2 returns the first two characters of s, or s when shorter.
func prefix2(s string) string {
	runes := []rune(s)
	if len(runes) <= 2 {
		return s
	}
	return string(runes[:2])
}

// KeywordRule maps any of its keywords to a default rate.
type KeywordRule struct {
	Name     string
	Keywords []string
	Rate     decimal.Decimal
}

// KeywordTable tests rules in order; within a rule any keyword matches.
// Matching is case-insensitive.
type KeywordTable struct {
	Rules []KeywordRule
}

func (KeywordTable) Source() RateSource { return RateKeyword }

func (s KeywordTable) Resolve(label string) (Resolution, bool) {
	lower := strings.ToLower(label)
	for _, rule := range s.Rules {
		for _, kw := range rule.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(kw)) {
				return Resolution{Rate: rule.Rate, Label: rule.Name, Source: RateKeyword}, true
			}
		}
	}
	return Resolution{}, false
}

// DefaultKeywordRules is the built-in fallback table:
// nursing before rehabilitation before home care before escort.
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{Name: "nursing", Keywords: []string{"護理", "護士", "nursing", "nurse"}, Rate: decimal.NewFromInt(380)},
		{Name: "rehabilitation", Keywords: []string{"復康", "治療", "rehab", "therapy", "physio"}, Rate: decimal.NewFromInt(450)},
		{Name: "home_care", Keywords: []string{"家居", "照顧", "home care", "personal care"}, Rate: decimal.NewFromInt(150)},
		{Name: "escort", Keywords: []string{"陪診", "護送", "escort"}, Rate: decimal.NewFromInt(120)},
	}
}

// Resolver runs the strategy cascade.
type Resolver struct {
	strategies []Strategy
}

// NewResolver builds the standard cascade over table and rules.
func NewResolver(table []generic.RateTableEntry, rules []KeywordRule) *Resolver {
	return NewResolverWith(
		ExactMatch{Table: table},
		PrefixMatch{Table: table},
		KeywordTable{Rules: rules},
	)
}

// NewResolverWith builds a resolver from an explicit strategy order.
func NewResolverWith(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Resolve returns the first strategy's answer, or a zero RateNone resolution.
func (r *Resolver) Resolve(label string) Resolution {
	for _, s := range r.strategies {
		if res, ok := s.Resolve(label); ok {
			return res
		}
	}
	return Resolution{Rate: decimal.Zero, Source: RateNone}
}

// EffectiveRate applies the record fallback: the catalog rate when positive,
// else round2(fee / hours), else zero when hours is zero.
func EffectiveRate(res Resolution, fee, hours decimal.Decimal) Resolution {
	if res.Rate.IsPositive() {
		return res
	}
	if hours.IsPositive() {
		return Resolution{Rate: generic.Round2(fee.Div(hours)), Source: RateDerived}
	}
	return Resolution{Rate: decimal.Zero, Source: RateNone}
}
