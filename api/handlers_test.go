/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Compute and export against demo scenarios
- Range parameter validation (400)
- Reference data ingest and listing
- Dataset import (JSON and YAML)
- Source failure mapping (500)
*/
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/introducer-commission/commission"
	"github.com/warp/introducer-commission/factory"
	"github.com/warp/introducer-commission/report"
	"github.com/warp/introducer-commission/store/sqlite"
)

type testServer struct {
	store   *sqlite.Store
	handler *Handler
	router  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, commission.NewEngine(store, nil), nil)
	h.Now = func() time.Time { return time.Date(2025, time.January, 20, 9, 0, 0, 0, time.UTC) }
	return &testServer{store: store, handler: h, router: NewRouter(h, nil)}
}

func (s *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) loadScenario(t *testing.T, id string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// COMPUTE
// =============================================================================

func TestComputeCommissions_SingleIntroducer(t *testing.T) {
	// GIVEN: Joe at 20% with two records priced from fee / hours
	s := newTestServer(t)
	s.loadScenario(t, "single-introducer")

	// WHEN: January is computed
	rec := s.do(t, http.MethodGet, "/api/commissions?start=2025-01-01&end=2025-01-31&introducer=all", nil)

	// THEN: the lines and subtotal match the worked example
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	doc := decode[report.ResultDocument](t, rec)

	require.Len(t, doc.Introducers, 1)
	joe := doc.Introducers[0]
	assert.Equal(t, "Joe", joe.Introducer)
	require.Len(t, joe.Customers, 1)

	lines := joe.Customers[0].Lines
	require.Len(t, lines, 2)
	assert.Equal(t, "100.00", lines[0].UnitRate)
	assert.Equal(t, "200.00", lines[0].VoucherTotal)
	assert.Equal(t, "40.00", lines[0].Commission)
	assert.Equal(t, "derived", lines[0].RateSource)
	assert.Equal(t, "150.00", lines[1].UnitRate)
	assert.Equal(t, "90.00", lines[1].Commission)

	sub := joe.Customers[0].Subtotal
	assert.Equal(t, "5.0", sub.Hours)
	assert.Equal(t, "650.00", sub.VoucherTotal)
	assert.Equal(t, "130.00", sub.Commission)
	assert.Equal(t, sub, joe.Totals)
	assert.NotEmpty(t, doc.RunID)
}

func TestComputeCommissions_AgencyMonth(t *testing.T) {
	// GIVEN: three introducers, one without a percentage, plus walk-in records
	s := newTestServer(t)
	s.loadScenario(t, "agency-month")

	// WHEN: January is computed by month
	rec := s.do(t, http.MethodGet, "/api/commissions?month=2025-01", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	doc := decode[report.ResultDocument](t, rec)

	// THEN: Ann and Joe appear in name order; Mary and walk-ins do not
	require.Len(t, doc.Introducers, 2)
	ann, joe := doc.Introducers[0], doc.Introducers[1]
	assert.Equal(t, "Ann", ann.Introducer)
	assert.Equal(t, "Joe", joe.Introducer)

	assert.Equal(t, "915.00", ann.Totals.VoucherTotal)
	assert.Equal(t, "91.50", ann.Totals.Commission)
	assert.Equal(t, "1285.00", joe.Totals.VoucherTotal)
	assert.Equal(t, "257.00", joe.Totals.Commission)

	assert.Equal(t, "2200.00", doc.Totals.VoucherTotal)
	assert.Equal(t, "348.50", doc.Totals.Commission)
	assert.Equal(t, "9.0", doc.Totals.Hours)
	assert.Equal(t, 4, doc.Totals.Lines)

	sources := map[string]string{}
	for _, c := range append(ann.Customers, joe.Customers...) {
		for _, l := range c.Lines {
			sources[l.RecordID] = l.RateSource
		}
	}
	assert.Equal(t, map[string]string{
		"S-1001": "exact",
		"S-1002": "prefix",
		"S-1003": "keyword",
		"S-1004": "prefix",
	}, sources)
}

func TestComputeCommissions_IntroducerFilter(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario(t, "agency-month")

	rec := s.do(t, http.MethodGet, "/api/commissions?month=2025-01&introducer=Ann", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[report.ResultDocument](t, rec)

	require.Len(t, doc.Introducers, 1)
	assert.Equal(t, "Ann", doc.Introducer)
	assert.Equal(t, "91.50", doc.Totals.Commission)
}

func TestComputeCommissions_EmptyMonthIsNotAnError(t *testing.T) {
	// GIVEN: only walk-in business
	s := newTestServer(t)
	s.loadScenario(t, "walk-in-only")

	// WHEN: the current month (January 2025 per the test clock) is computed
	rec := s.do(t, http.MethodGet, "/api/commissions", nil)

	// THEN: 200 with an empty result
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[report.ResultDocument](t, rec)
	assert.True(t, doc.Empty)
	assert.Empty(t, doc.Introducers)
	assert.Equal(t, "2025-01-01", doc.Start)
	assert.Equal(t, "2025-01-31", doc.End)
	assert.Equal(t, "0.00", doc.Totals.Commission)
}

func TestComputeCommissions_MalformedRange(t *testing.T) {
	s := newTestServer(t)

	cases := []string{
		"/api/commissions?start=2025-02-01&end=2025-01-01",
		"/api/commissions?start=2025-1-1&end=2025-01-31",
		"/api/commissions?start=2025-01-01",
		"/api/commissions?month=2025-13",
		"/api/commissions?month=2025-01&start=2025-01-01&end=2025-01-31",
	}
	for _, target := range cases {
		rec := s.do(t, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		body := decode[ErrorResponse](t, rec)
		assert.Equal(t, "invalid_date_range", body.Code, target)
	}
}

func TestComputeCommissions_SourceFailure(t *testing.T) {
	// GIVEN: a store that has been closed underneath the engine
	s := newTestServer(t)
	s.loadScenario(t, "single-introducer")
	require.NoError(t, s.store.Close())

	// WHEN: a run is requested
	rec := s.do(t, http.MethodGet, "/api/commissions?month=2025-01", nil)

	// THEN: the run fails as a whole
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "computation_failed", body.Code)
}

// =============================================================================
// EXPORT
// =============================================================================

func TestExportCommissions(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario(t, "single-introducer")

	rec := s.do(t, http.MethodGet, "/api/commissions/export?month=2025-01", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, report.XLSXContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "commission_2025-01-01_2025-01-31.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	// header, 2 details, subtotal, introducer total, grand total
	assert.Len(t, rows, 6)
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func TestRates_AppendListReplace(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/rates", factory.RateJSON{Label: "個人照顧", UnitRate: "150"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/rates", factory.RateJSON{Label: "個人護理", UnitRate: "200"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rates := decode[[]factory.RateJSON](t, s.do(t, http.MethodGet, "/api/rates", nil))
	require.Len(t, rates, 2)
	assert.Equal(t, "個人照顧", rates[0].Label, "table order is kept")

	rec = s.do(t, http.MethodPut, "/api/rates", []factory.RateJSON{{Label: "陪診服務", UnitRate: "120"}})
	require.Equal(t, http.StatusOK, rec.Code)
	rates = decode[[]factory.RateJSON](t, s.do(t, http.MethodGet, "/api/rates", nil))
	require.Len(t, rates, 1)
	assert.Equal(t, "陪診服務", rates[0].Label)

	rec = s.do(t, http.MethodPost, "/api/rates", factory.RateJSON{Label: "x", UnitRate: "-5"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfiles_NullPercentage(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/profiles", `{"introducer": "Mary", "percentage": null}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/profiles", `{"introducer": "Joe", "percentage": 120}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	profiles := decode[[]factory.ProfileJSON](t, s.do(t, http.MethodGet, "/api/profiles", nil))
	require.Len(t, profiles, 1)
	assert.Equal(t, factory.Number(""), profiles[0].Percentage)
}

func TestCustomers_GetAndNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/customers", factory.CustomerJSON{ID: "C001", Name: "陳大文", Introducer: " Joe "})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/customers/C001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	c := decode[factory.CustomerJSON](t, rec)
	assert.Equal(t, "Joe", c.Introducer)

	rec = s.do(t, http.MethodGet, "/api/customers/C999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecords_CreateAndListRange(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/records", `{"customer_id": "C001", "customer_name": "陳大文",
		"date": "2025-01-31", "hours": 2, "fee": "300", "category": "個人照顧"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[factory.RecordJSON](t, rec)
	assert.NotEmpty(t, created.ID, "id is generated")

	rec = s.do(t, http.MethodPost, "/api/records", `{"id": "S-2", "customer_id": "C001",
		"date": "2025-02-01", "hours": 1, "fee": "150", "category": "個人照顧"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	records := decode[[]factory.RecordJSON](t, s.do(t, http.MethodGet, "/api/records?start=2025-01-01&end=2025-01-31", nil))
	require.Len(t, records, 1)
	assert.Equal(t, "300.00", string(records[0].Fee))

	rec = s.do(t, http.MethodPost, "/api/records", `{"customer_id": "C001", "date": "2025-01-31", "hours": -1, "fee": "0"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// DATASETS, SCENARIOS, RESET
// =============================================================================

func TestImportDataset_YAML(t *testing.T) {
	s := newTestServer(t)

	body := `
rates:
  - label: 個人照顧
    unit_rate: 150
profiles:
  - introducer: Joe
    percentage: 10
customers:
  - id: C001
    name: 陳大文
    introducer: Joe
records:
  - id: S-1
    customer_id: C001
    customer_name: 陳大文
    date: "2025-01-05"
    hours: 3.5
    fee: "525"
    category: 個人照顧
`
	req := httptest.NewRequest(http.MethodPost, "/api/datasets", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/yaml")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, ImportSummaryDTO{Rates: 1, Profiles: 1, Customers: 1, Records: 1}, decode[ImportSummaryDTO](t, rec))

	// 3.5 * 150 * 10% = 52.50
	doc := decode[report.ResultDocument](t, s.do(t, http.MethodGet, "/api/commissions?month=2025-01", nil))
	assert.Equal(t, "52.50", doc.Totals.Commission)
}

func TestImportDataset_InvalidIsAllOrNothing(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/datasets", `{
		"customers": [{"id": "C001", "name": "A", "introducer": "Joe"}],
		"records": [{"id": "S-1", "customer_id": "C001", "date": "2025-02-30", "hours": 1, "fee": 1}]
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "records[0]")

	customers := decode[[]factory.CustomerJSON](t, s.do(t, http.MethodGet, "/api/customers", nil))
	assert.Empty(t, customers)
}

func TestScenarios_ListLoadCurrentReset(t *testing.T) {
	s := newTestServer(t)

	list := decode[[]ScenarioDTO](t, s.do(t, http.MethodGet, "/api/scenarios", nil))
	assert.Len(t, list, len(scenarios))

	rec := s.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.loadScenario(t, "agency-month")
	current := decode[ScenarioDTO](t, s.do(t, http.MethodGet, "/api/scenarios/current", nil))
	assert.Equal(t, "agency-month", current.ID)

	rec = s.do(t, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null\n", s.do(t, http.MethodGet, "/api/scenarios/current", nil).Body.String())

	doc := decode[report.ResultDocument](t, s.do(t, http.MethodGet, "/api/commissions?month=2025-01", nil))
	assert.True(t, doc.Empty)
}
