/*
handlers.go - HTTP API handlers for the introducer commission engine

PURPOSE:
  Exposes the commission engine and its reference data via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  engine, the store and the report renderers.

ENDPOINTS:
  Commissions:
    GET    /api/commissions            Compute (start/end or month, introducer)
    GET    /api/commissions/export     Same run as an XLSX attachment

  Reference data:
    GET    /api/rates                  Rate table in table order
    POST   /api/rates                  Append a rate entry
    PUT    /api/rates                  Replace the whole rate table
    GET    /api/profiles               Commission profiles
    POST   /api/profiles               Create or replace a profile
    GET    /api/customers              Customer directory
    GET    /api/customers/{id}         One customer
    POST   /api/customers              Create or replace a customer
    GET    /api/records                Ledger records in a range
    POST   /api/records                Add a ledger record
    POST   /api/datasets               Import a JSON or YAML dataset

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    GET    /api/scenarios/current      Currently loaded scenario
    POST   /api/scenarios/load         Load a demo scenario
    POST   /api/reset                  Clear all data

RANGE PARAMETERS:
  ?start=YYYY-MM-DD&end=YYYY-MM-DD   inclusive range
  ?month=YYYY-MM                     whole calendar month
  (none)                             current month, from Handler.Now

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed dates or ranges, invalid input
  - 404: Resource not found
  - 500: Computation failure, storage errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/introducer-commission/commission"
	"github.com/warp/introducer-commission/factory"
	"github.com/warp/introducer-commission/generic"
	"github.com/warp/introducer-commission/report"
	"github.com/warp/introducer-commission/store/sqlite"
)

// maxBodyBytes caps request bodies, dataset imports included.
const maxBodyBytes = 16 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Engine  *commission.Engine
	Factory *factory.DatasetFactory
	Logger  *slog.Logger

	// Now supplies the current month when a request names no range.
	Now func() time.Time

	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a handler whose engine reads from store.
func NewHandler(store *sqlite.Store, engine *commission.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:   store,
		Engine:  engine,
		Factory: factory.NewDatasetFactory(),
		Logger:  logger,
		Now:     time.Now,
	}
}

// =============================================================================
// COMMISSION HANDLERS
// =============================================================================

// ComputeCommissions runs the engine and returns the result document.
func (h *Handler) ComputeCommissions(w http.ResponseWriter, r *http.Request) {
	result, ok := h.compute(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report.NewResultDocument(result))
}

// ExportCommissions runs the engine and returns the result as a workbook.
func (h *Handler) ExportCommissions(w http.ResponseWriter, r *http.Request) {
	result, ok := h.compute(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, result); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build export", err)
		return
	}

	filename := fmt.Sprintf("commission_%s_%s.xlsx", result.Range.Start, result.Range.End)
	w.Header().Set("Content-Type", report.XLSXContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) compute(w http.ResponseWriter, r *http.Request) (*commission.Result, bool) {
	rng, err := h.parseRange(r)
	if err != nil {
		writeDomainError(w, "Invalid date range", err)
		return nil, false
	}
	q := commission.Query{Range: rng, Introducer: strings.TrimSpace(r.URL.Query().Get("introducer"))}

	result, err := h.Engine.Compute(r.Context(), q)
	if err != nil {
		writeDomainError(w, "Commission computation failed", err)
		return nil, false
	}
	return result, true
}

// parseRange reads start/end or month from the query string. A request with
// neither covers the current month.
func (h *Handler) parseRange(r *http.Request) (generic.DateRange, error) {
	query := r.URL.Query()
	start, end, month := query.Get("start"), query.Get("end"), query.Get("month")

	switch {
	case month != "" && (start != "" || end != ""):
		return generic.DateRange{}, fmt.Errorf("%w: use either month or start/end", generic.ErrInvalidDateRange)
	case month != "":
		return generic.ParseMonth(month)
	case start != "" || end != "":
		if start == "" || end == "" {
			return generic.DateRange{}, fmt.Errorf("%w: start and end are both required", generic.ErrInvalidDateRange)
		}
		return generic.NewDateRange(start, end)
	default:
		return generic.CurrentMonthRange(h.Now()), nil
	}
}

// =============================================================================
// RATE TABLE HANDLERS
// =============================================================================

// ListRates returns the rate table in table order.
func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Store.RateTable(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rates", err)
		return
	}

	dtos := make([]factory.RateJSON, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, factory.RateToJSON(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRate appends an entry to the end of the rate table.
func (h *Handler) CreateRate(w http.ResponseWriter, r *http.Request) {
	var req factory.RateJSON
	if !decodeBody(w, r, &req) {
		return
	}

	entry, err := factory.RateFromJSON(req)
	if err != nil {
		writeDomainError(w, "Invalid rate", err)
		return
	}
	if err := h.Store.SaveRateEntry(r.Context(), entry); err != nil {
		writeDomainError(w, "Failed to save rate", err)
		return
	}
	writeJSON(w, http.StatusCreated, factory.RateToJSON(entry))
}

// ReplaceRates swaps the whole rate table, keeping the request order.
func (h *Handler) ReplaceRates(w http.ResponseWriter, r *http.Request) {
	var req []factory.RateJSON
	if !decodeBody(w, r, &req) {
		return
	}

	entries := make([]generic.RateTableEntry, 0, len(req))
	for i, rj := range req {
		entry, err := factory.RateFromJSON(rj)
		if err != nil {
			writeDomainError(w, "Invalid rate", fmt.Errorf("rates[%d]: %w", i, err))
			return
		}
		entries = append(entries, entry)
	}
	if err := h.Store.ReplaceRateTable(r.Context(), entries); err != nil {
		writeDomainError(w, "Failed to replace rate table", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// =============================================================================
// PROFILE HANDLERS
// =============================================================================

// ListProfiles returns all commission profiles.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Store.CommissionProfiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles", err)
		return
	}

	dtos := make([]factory.ProfileJSON, 0, len(profiles))
	for _, p := range profiles {
		dtos = append(dtos, factory.ProfileToJSON(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveProfile creates or replaces an introducer's profile.
func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	var req factory.ProfileJSON
	if !decodeBody(w, r, &req) {
		return
	}

	profile, err := factory.ProfileFromJSON(req)
	if err != nil {
		writeDomainError(w, "Invalid profile", err)
		return
	}
	if err := h.Store.SaveProfile(r.Context(), profile); err != nil {
		writeDomainError(w, "Failed to save profile", err)
		return
	}
	writeJSON(w, http.StatusCreated, factory.ProfileToJSON(profile))
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// ListCustomers returns the customer directory.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Store.Customers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list customers", err)
		return
	}

	dtos := make([]factory.CustomerJSON, 0, len(customers))
	for _, c := range customers {
		dtos = append(dtos, factory.CustomerToJSON(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCustomer returns a single customer.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id := generic.CustomerID(chi.URLParam(r, "id"))

	c, err := h.Store.GetCustomer(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Customer not found", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.CustomerToJSON(*c))
}

// SaveCustomer creates or replaces a customer.
func (h *Handler) SaveCustomer(w http.ResponseWriter, r *http.Request) {
	var req factory.CustomerJSON
	if !decodeBody(w, r, &req) {
		return
	}

	c := factory.CustomerFromJSON(req)
	if err := h.Store.SaveCustomer(r.Context(), c); err != nil {
		writeDomainError(w, "Failed to save customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, factory.CustomerToJSON(c))
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// ListRecords returns ledger records in the requested range.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	rng, err := h.parseRange(r)
	if err != nil {
		writeDomainError(w, "Invalid date range", err)
		return
	}

	records, err := h.Store.ServiceRecords(r.Context(), rng)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list records", err)
		return
	}

	dtos := make([]factory.RecordJSON, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, factory.RecordToJSON(rec))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRecord adds a ledger record, generating an id when none is given.
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req factory.RecordJSON
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = h.Factory.NewID()
	}

	rec, err := factory.RecordFromJSON(req)
	if err != nil {
		writeDomainError(w, "Invalid record", err)
		return
	}
	if err := h.Store.SaveServiceRecord(r.Context(), rec); err != nil {
		writeDomainError(w, "Failed to save record", err)
		return
	}
	writeJSON(w, http.StatusCreated, factory.RecordToJSON(rec))
}

// =============================================================================
// DATASET IMPORT
// =============================================================================

// ImportDataset writes a whole dataset document in one transaction.
// YAML is accepted when the Content-Type says so.
func (h *Handler) ImportDataset(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	format := factory.FormatJSON
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		format = factory.FormatYAML
	}

	dataset, err := h.Factory.ParseDataset(data, format)
	if err != nil {
		writeDomainError(w, "Invalid dataset", err)
		return
	}
	if err := h.Store.ImportDataset(r.Context(), dataset); err != nil {
		writeDomainError(w, "Failed to import dataset", err)
		return
	}

	h.Logger.Info("dataset imported",
		"rates", len(dataset.Rates),
		"profiles", len(dataset.Profiles),
		"customers", len(dataset.Customers),
		"records", len(dataset.Records),
	)
	writeJSON(w, http.StatusCreated, importSummary(dataset))
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error's sentinel.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status, code := statusFor(err)
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, generic.ErrComputationFailed):
		return http.StatusInternalServerError, "computation_failed"
	case generic.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, generic.ErrInvalidDateRange), errors.Is(err, generic.ErrInvalidDate):
		return http.StatusBadRequest, "invalid_date_range"
	case generic.IsClientError(err):
		return http.StatusBadRequest, "invalid_input"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
