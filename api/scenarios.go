/*
scenarios.go - Demo datasets for testing and demonstrations

PURPOSE:

	Provides pre-built datasets that populate the database with realistic
	ledger data. Each scenario exercises a specific part of the business
	rules and covers January 2025.

AVAILABLE SCENARIOS:

	single-introducer: One customer, one introducer, two priced records
	agency-month:      Several introducers, prefix and keyword rates,
	                   a non-participating introducer and walk-in records
	walk-in-only:      Only walk-in records, so the month is empty

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Parse the scenario's dataset document via factory
 3. Import it in one transaction

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "agency-month"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ResetDatabase
  - factory/dataset.go: Dataset document schema
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/introducer-commission/factory"
	"github.com/warp/introducer-commission/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	dataset string
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "single-introducer",
			Name:        "Single Introducer",
			Description: "Joe at 20%: two records priced by fee/hours, subtotal 650.00 / 130.00",
			Month:       "2025-01",
		},
		dataset: singleIntroducerDataset,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "agency-month",
			Name:        "Agency Month",
			Description: "Three introducers, exact/prefix/keyword rates, walk-in records excluded",
			Month:       "2025-01",
		},
		dataset: agencyMonthDataset,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "walk-in-only",
			Name:        "Walk-in Only",
			Description: "Every record is walk-in business, so the month has no qualifying data",
			Month:       "2025-01",
		},
		dataset: walkInOnlyDataset,
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, 0, len(scenarios))
	for _, s := range scenarios {
		dtos = append(dtos, s.ScenarioDTO)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	s, ok := findScenario(current)
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.ScenarioDTO)
}

// LoadScenario resets the database and loads a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", fmt.Errorf("%w: scenario %q", generic.ErrNotFound, req.ScenarioID))
		return
	}

	summary, err := h.loadScenario(r.Context(), s)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = s.ID
	h.mu.Unlock()

	h.Logger.Info("scenario loaded", "scenario", s.ID, "records", summary.Records)
	writeJSON(w, http.StatusOK, LoadScenarioResponse{Scenario: s.ScenarioDTO, Imported: summary})
}

func (h *Handler) loadScenario(ctx context.Context, s scenario) (ImportSummaryDTO, error) {
	dataset, err := h.Factory.ParseDataset([]byte(s.dataset), factory.FormatJSON)
	if err != nil {
		return ImportSummaryDTO{}, fmt.Errorf("scenario %s: %w", s.ID, err)
	}
	if err := h.Store.Reset(ctx); err != nil {
		return ImportSummaryDTO{}, err
	}
	if err := h.Store.ImportDataset(ctx, dataset); err != nil {
		return ImportSummaryDTO{}, err
	}
	return importSummary(dataset), nil
}

// =============================================================================
// SCENARIO DATASETS
// =============================================================================

// Categories match nothing in the rate table, so both rates come from
// fee / hours: 200/2 = 100 and 450/3 = 150.
const singleIntroducerDataset = `{
  "rates": [
    {"label": "家居清潔", "unit_rate": 90}
  ],
  "profiles": [
    {"introducer": "Joe", "percentage": 20}
  ],
  "customers": [
    {"id": "C001", "name": "陳大文", "introducer": "Joe"}
  ],
  "records": [
    {"id": "S-0001", "customer_id": "C001", "customer_name": "陳大文", "date": "2025-01-05",
     "hours": 2, "fee": "200.00", "category": "送餐服務"},
    {"id": "S-0002", "customer_id": "C001", "customer_name": "陳大文", "date": "2025-01-10",
     "hours": 3, "fee": "450.00", "category": "購物協助"}
  ]
}`

const agencyMonthDataset = `{
  "rates": [
    {"label": "個人照顧", "unit_rate": 150},
    {"label": "護理服務", "unit_rate": 380},
    {"label": "復康運動", "unit_rate": 450},
    {"label": "陪診服務", "unit_rate": 120}
  ],
  "profiles": [
    {"introducer": "Ann", "percentage": 10},
    {"introducer": "Joe", "percentage": 20},
    {"introducer": "Mary", "percentage": null}
  ],
  "customers": [
    {"id": "C001", "name": "陳大文", "introducer": "Joe"},
    {"id": "C002", "name": "李小明", "introducer": "Ann"},
    {"id": "C003", "name": "黃美玲", "introducer": "Mary"},
    {"id": "C004", "name": "張偉", "introducer": "Joe"},
    {"id": "C005", "name": "Walk-in Guest", "introducer": "Ann"}
  ],
  "records": [
    {"id": "S-1001", "customer_id": "C001", "customer_name": "陳大文", "date": "2025-01-03",
     "hours": 3.5, "fee": "525.00", "category": "個人照顧"},
    {"id": "S-1002", "customer_id": "C001", "customer_name": "陳大文", "date": "2025-01-09",
     "hours": 2, "fee": "760.00", "category": "護理"},
    {"id": "S-1003", "customer_id": "C002", "customer_name": "李小明", "date": "2025-01-04",
     "hours": 1.5, "fee": "675.00", "category": "物理治療"},
    {"id": "S-1004", "customer_id": "C002", "customer_name": "李小明", "date": "2025-01-18",
     "hours": 2, "fee": "240.00", "category": "陪診"},
    {"id": "S-1005", "customer_id": "C003", "customer_name": "黃美玲", "date": "2025-01-07",
     "hours": 4, "fee": "600.00", "category": "個人照顧"},
    {"id": "S-1006", "customer_id": "C004", "customer_name": "張偉", "date": "2025-01-11",
     "hours": 2, "fee": "300.00", "category": "散客個人照顧"},
    {"id": "S-1007", "customer_id": "C005", "customer_name": "Walk-in Guest", "date": "2025-01-12",
     "hours": 1, "fee": "120.00", "category": "Walk-In 陪診服務"},
    {"id": "S-1008", "customer_id": "C001", "customer_name": "陳大文", "date": "2025-02-01",
     "hours": 2, "fee": "300.00", "category": "個人照顧"}
  ]
}`

const walkInOnlyDataset = `{
  "rates": [
    {"label": "個人照顧", "unit_rate": 150}
  ],
  "profiles": [
    {"introducer": "Joe", "percentage": 20}
  ],
  "customers": [
    {"id": "C101", "name": "門市客人", "introducer": "Joe"},
    {"id": "C102", "name": "Counter Guest", "introducer": "Joe"}
  ],
  "records": [
    {"id": "S-2001", "customer_id": "C101", "customer_name": "門市客人", "date": "2025-01-08",
     "hours": 2, "fee": "300.00", "category": "散客個人照顧"},
    {"id": "S-2002", "customer_id": "C102", "customer_name": "Counter Guest", "date": "2025-01-15",
     "hours": 1, "fee": "150.00", "category": "walk-in personal care"}
  ]
}`
