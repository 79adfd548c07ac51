/*
Package factory provides JSON/YAML document to Go value conversion.

PURPOSE:
  Converts dataset documents (rate table, commission profiles, customer
  directory, billing ledger) and keyword rule documents into the values the
  engine computes from. This is how the operations console's exports, demo
  scenarios and config files become engine input.

DOCUMENT SCHEMA:
  {
    "rates":     [{"label": "個人照顧", "unit_rate": "150"}],
    "profiles":  [{"introducer": "Joe", "percentage": 20},
                  {"introducer": "Ann", "percentage": null}],
    "customers": [{"id": "C001", "name": "Chan Tai Man", "introducer": "Joe"}],
    "records":   [{"id": "S-1", "customer_id": "C001", "customer_name": "Chan Tai Man",
                   "date": "2025-01-05", "hours": 2, "fee": "200.00", "category": "個人照顧"}]
  }

  Numbers may be JSON numbers or strings; they are parsed as decimals, never
  as float64. The same keys are used for YAML.

KEY FEATURES:
  - Validates every entry; errors name the offending entry (records[3])
  - Generates record IDs when a record has none
  - Keeps rate table order exactly as written

USAGE:
  f := factory.NewDatasetFactory()
  dataset, err := f.ParseDataset(data, factory.FormatJSON)

SEE ALSO:
  - generic/store.go: Dataset type
  - store/sqlite/sqlite.go: ImportDataset
  - config/config.go: Uses ParseKeywordRules
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/introducer-commission/commission"
	"github.com/warp/introducer-commission/generic"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// Number is a decimal written either as a JSON number or a string.
// An empty Number means null.
type Number string

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = ""
		return nil
	}
	*n = Number(strings.Trim(s, `"`))
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(n))
}

// DatasetJSON is the document form of generic.Dataset.
type DatasetJSON struct {
	Rates     []RateJSON     `json:"rates,omitempty" yaml:"rates"`
	Profiles  []ProfileJSON  `json:"profiles,omitempty" yaml:"profiles"`
	Customers []CustomerJSON `json:"customers,omitempty" yaml:"customers"`
	Records   []RecordJSON   `json:"records,omitempty" yaml:"records"`
}

type RateJSON struct {
	Label    string `json:"label" yaml:"label"`
	UnitRate Number `json:"unit_rate" yaml:"unit_rate"`
}

type ProfileJSON struct {
	Introducer string `json:"introducer" yaml:"introducer"`
	Percentage Number `json:"percentage" yaml:"percentage"`
}

type CustomerJSON struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Introducer string `json:"introducer" yaml:"introducer"`
}

type RecordJSON struct {
	ID           string `json:"id,omitempty" yaml:"id"`
	CustomerID   string `json:"customer_id" yaml:"customer_id"`
	CustomerName string `json:"customer_name" yaml:"customer_name"`
	Date         string `json:"date" yaml:"date"`
	Hours        Number `json:"hours" yaml:"hours"`
	Fee          Number `json:"fee" yaml:"fee"`
	Category     string `json:"category" yaml:"category"`
}

// KeywordRuleJSON is the document form of commission.KeywordRule.
type KeywordRuleJSON struct {
	Name     string   `json:"name" yaml:"name"`
	Keywords []string `json:"keywords" yaml:"keywords"`
	Rate     Number   `json:"rate" yaml:"rate"`
}

// Format selects the document decoder.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from a file extension (default JSON).
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// =============================================================================
// DATASET FACTORY
// =============================================================================

// DatasetFactory converts dataset documents to generic.Dataset.
type DatasetFactory struct {
	// NewID names records that arrive without an id.
	NewID func() string
}

// NewDatasetFactory creates a factory that names records with UUIDs.
func NewDatasetFactory() *DatasetFactory {
	return &DatasetFactory{NewID: uuid.NewString}
}

// ParseDataset decodes and converts a document.
func (f *DatasetFactory) ParseDataset(data []byte, format Format) (generic.Dataset, error) {
	var doc DatasetJSON
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return generic.Dataset{}, fmt.Errorf("%w: failed to parse dataset YAML: %v", generic.ErrInvalidInput, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return generic.Dataset{}, fmt.Errorf("%w: failed to parse dataset JSON: %v", generic.ErrInvalidInput, err)
		}
	}
	return f.FromJSON(doc)
}

// FromJSON converts a decoded document, validating every entry.
func (f *DatasetFactory) FromJSON(doc DatasetJSON) (generic.Dataset, error) {
	var d generic.Dataset

	for i, rj := range doc.Rates {
		e, err := RateFromJSON(rj)
		if err != nil {
			return generic.Dataset{}, fmt.Errorf("rates[%d]: %w", i, err)
		}
		d.Rates = append(d.Rates, e)
	}
	for i, pj := range doc.Profiles {
		p, err := ProfileFromJSON(pj)
		if err != nil {
			return generic.Dataset{}, fmt.Errorf("profiles[%d]: %w", i, err)
		}
		d.Profiles = append(d.Profiles, p)
	}
	for i, cj := range doc.Customers {
		c := CustomerFromJSON(cj)
		if err := c.Validate(); err != nil {
			return generic.Dataset{}, fmt.Errorf("customers[%d]: %w", i, err)
		}
		d.Customers = append(d.Customers, c)
	}
	for i, rj := range doc.Records {
		if rj.ID == "" && f.NewID != nil {
			rj.ID = f.NewID()
		}
		r, err := RecordFromJSON(rj)
		if err != nil {
			return generic.Dataset{}, fmt.Errorf("records[%d]: %w", i, err)
		}
		d.Records = append(d.Records, r)
	}
	return d, nil
}

// ToJSON converts a dataset back to its document form.
func (f *DatasetFactory) ToJSON(d generic.Dataset) DatasetJSON {
	var doc DatasetJSON
	for _, e := range d.Rates {
		doc.Rates = append(doc.Rates, RateToJSON(e))
	}
	for _, p := range d.Profiles {
		doc.Profiles = append(doc.Profiles, ProfileToJSON(p))
	}
	for _, c := range d.Customers {
		doc.Customers = append(doc.Customers, CustomerToJSON(c))
	}
	for _, r := range d.Records {
		doc.Records = append(doc.Records, RecordToJSON(r))
	}
	return doc
}

// =============================================================================
// ENTRY CONVERSION
// =============================================================================

func RateFromJSON(rj RateJSON) (generic.RateTableEntry, error) {
	rate, err := parseNumber("unit_rate", rj.UnitRate)
	if err != nil {
		return generic.RateTableEntry{}, err
	}
	e := generic.RateTableEntry{Label: rj.Label, UnitRate: rate}
	return e, e.Validate()
}

func RateToJSON(e generic.RateTableEntry) RateJSON {
	return RateJSON{Label: e.Label, UnitRate: Number(e.UnitRate.String())}
}

func ProfileFromJSON(pj ProfileJSON) (generic.CommissionProfile, error) {
	p := generic.CommissionProfile{Introducer: strings.TrimSpace(pj.Introducer)}
	if pj.Percentage != "" {
		pct, err := parseNumber("percentage", pj.Percentage)
		if err != nil {
			return generic.CommissionProfile{}, err
		}
		p.Percentage = &pct
	}
	return p, p.Validate()
}

func ProfileToJSON(p generic.CommissionProfile) ProfileJSON {
	pj := ProfileJSON{Introducer: p.Introducer}
	if p.Percentage != nil {
		pj.Percentage = Number(p.Percentage.String())
	}
	return pj
}

func CustomerFromJSON(cj CustomerJSON) generic.Customer {
	return generic.Customer{
		ID:         generic.CustomerID(strings.TrimSpace(cj.ID)),
		Name:       cj.Name,
		Introducer: strings.TrimSpace(cj.Introducer),
	}
}

func CustomerToJSON(c generic.Customer) CustomerJSON {
	return CustomerJSON{ID: string(c.ID), Name: c.Name, Introducer: c.Introducer}
}

func RecordFromJSON(rj RecordJSON) (generic.ServiceRecord, error) {
	date, err := generic.ParseDate(rj.Date)
	if err != nil {
		return generic.ServiceRecord{}, err
	}
	hours, err := parseNumber("hours", rj.Hours)
	if err != nil {
		return generic.ServiceRecord{}, err
	}
	fee, err := parseNumber("fee", rj.Fee)
	if err != nil {
		return generic.ServiceRecord{}, err
	}
	r := generic.ServiceRecord{
		ID:           generic.RecordID(rj.ID),
		CustomerID:   generic.CustomerID(strings.TrimSpace(rj.CustomerID)),
		CustomerName: rj.CustomerName,
		Date:         date,
		Hours:        hours,
		Fee:          fee,
		Category:     rj.Category,
	}
	return r, r.Validate()
}

func RecordToJSON(r generic.ServiceRecord) RecordJSON {
	return RecordJSON{
		ID:           string(r.ID),
		CustomerID:   string(r.CustomerID),
		CustomerName: r.CustomerName,
		Date:         r.Date.String(),
		Hours:        Number(r.Hours.String()),
		Fee:          Number(generic.FormatMoney(r.Fee)),
		Category:     r.Category,
	}
}

// =============================================================================
// KEYWORD RULES
// =============================================================================

// ParseKeywordRules converts rule documents, keeping their priority order.
func ParseKeywordRules(docs []KeywordRuleJSON) ([]commission.KeywordRule, error) {
	rules := make([]commission.KeywordRule, 0, len(docs))
	for i, kj := range docs {
		if kj.Name == "" {
			return nil, fmt.Errorf("keyword_rules[%d]: %w: name is required", i, generic.ErrInvalidInput)
		}
		if len(kj.Keywords) == 0 {
			return nil, fmt.Errorf("keyword_rules[%d] %s: %w: at least one keyword is required", i, kj.Name, generic.ErrInvalidInput)
		}
		rate, err := parseNumber("rate", kj.Rate)
		if err != nil {
			return nil, fmt.Errorf("keyword_rules[%d] %s: %w", i, kj.Name, err)
		}
		rules = append(rules, commission.KeywordRule{Name: kj.Name, Keywords: kj.Keywords, Rate: rate})
	}
	return rules, nil
}

// KeywordRulesToJSON converts rules to their document form.
func KeywordRulesToJSON(rules []commission.KeywordRule) []KeywordRuleJSON {
	docs := make([]KeywordRuleJSON, 0, len(rules))
	for _, r := range rules {
		docs = append(docs, KeywordRuleJSON{Name: r.Name, Keywords: r.Keywords, Rate: Number(r.Rate.String())})
	}
	return docs
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseNumber(field string, n Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, fmt.Errorf("%w: %s is required", generic.ErrInvalidInput, field)
	}
	d, err := generic.ParseMoney(string(n))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}
