/*
Package sqlite provides a SQLite-backed implementation of the source interfaces.

PURPOSE:
  Holds the four inputs of a commission run (rate table, commission
  profiles, customer directory, billing ledger) and serves them through
  generic.Sources. Also provides the ingest operations used by the API,
  the CLI and demo scenarios.

INTERFACES IMPLEMENTED:
  generic.RateTableSource
  generic.ProfileSource
  generic.LedgerSource
  generic.DirectorySource

KEY TABLES:
  rate_table:          Category label -> unit rate; id is the table order
  commission_profiles: Introducer -> percentage (NULL = not participating)
  customers:           Customer -> introducer
  service_records:     Billed services, one row per record

DECIMALS:
  Hours, fees, rates and percentages are stored as TEXT and parsed back into
  decimal.Decimal, so no value passes through float64.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. ":memory:" databases are pinned to a
  single connection because each SQLite connection would otherwise open its
  own empty in-memory database.

USAGE:
  store, err := sqlite.New("./data/commission.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := commission.NewEngine(store, logger)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/introducer-commission/generic"
)

// Store implements all source interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.Sources = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Rate table; id order is table order
	CREATE TABLE IF NOT EXISTS rate_table (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		label TEXT NOT NULL,
		unit_rate TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Commission profiles; NULL percentage = not participating
	CREATE TABLE IF NOT EXISTS commission_profiles (
		introducer TEXT PRIMARY KEY,
		percentage TEXT,
		updated_at TEXT NOT NULL
	);

	-- Customer directory
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		introducer TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_customers_introducer
		ON customers(introducer);

	-- Billing ledger
	CREATE TABLE IF NOT EXISTS service_records (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		customer_name TEXT NOT NULL DEFAULT '',
		service_date TEXT NOT NULL,
		hours TEXT NOT NULL,
		fee TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Range queries by service date (hot path)
	CREATE INDEX IF NOT EXISTS idx_service_records_date
		ON service_records(service_date, id);
	CREATE INDEX IF NOT EXISTS idx_service_records_customer
		ON service_records(customer_id, service_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// RATE TABLE
// =============================================================================

// SaveRateEntry appends an entry at the end of the rate table.
func (s *Store) SaveRateEntry(ctx context.Context, e generic.RateTableEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveRateEntry(ctx, s.db, e)
}

func saveRateEntry(ctx context.Context, db execer, e generic.RateTableEntry) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO rate_table (label, unit_rate, created_at) VALUES (?, ?, ?)",
		e.Label, e.UnitRate.String(), now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save rate %q: %w", e.Label, err)
	}
	return nil
}

// ReplaceRateTable swaps the whole table atomically, keeping entry order.
func (s *Store) ReplaceRateTable(ctx context.Context, entries []generic.RateTableEntry) error {
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM rate_table"); err != nil {
		return err
	}
	for _, e := range entries {
		if err := saveRateEntry(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RateTable returns all entries in table order.
func (s *Store) RateTable(ctx context.Context) ([]generic.RateTableEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT label, unit_rate FROM rate_table ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query rate table: %w", err)
	}
	defer rows.Close()

	var entries []generic.RateTableEntry
	for rows.Next() {
		var e generic.RateTableEntry
		var unitRate string
		if err := rows.Scan(&e.Label, &unitRate); err != nil {
			return nil, fmt.Errorf("failed to scan rate: %w", err)
		}
		if e.UnitRate, err = parseDecimal(unitRate); err != nil {
			return nil, fmt.Errorf("rate %q: %w", e.Label, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// COMMISSION PROFILES
// =============================================================================

// SaveProfile inserts or replaces an introducer's profile.
func (s *Store) SaveProfile(ctx context.Context, p generic.CommissionProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveProfile(ctx, s.db, p)
}

func saveProfile(ctx context.Context, db execer, p generic.CommissionProfile) error {
	var pct sql.NullString
	if p.Percentage != nil {
		pct = sql.NullString{String: p.Percentage.String(), Valid: true}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO commission_profiles (introducer, percentage, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(introducer) DO UPDATE SET
			percentage = excluded.percentage,
			updated_at = excluded.updated_at
	`, strings.TrimSpace(p.Introducer), pct, now())
	if err != nil {
		return fmt.Errorf("failed to save profile %q: %w", p.Introducer, err)
	}
	return nil
}

// CommissionProfiles returns all profiles ordered by introducer.
func (s *Store) CommissionProfiles(ctx context.Context) ([]generic.CommissionProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT introducer, percentage FROM commission_profiles ORDER BY introducer")
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []generic.CommissionProfile
	for rows.Next() {
		var p generic.CommissionProfile
		var pct sql.NullString
		if err := rows.Scan(&p.Introducer, &pct); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		if pct.Valid {
			d, err := parseDecimal(pct.String)
			if err != nil {
				return nil, fmt.Errorf("profile %q: %w", p.Introducer, err)
			}
			p.Percentage = &d
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// =============================================================================
// CUSTOMER DIRECTORY
// =============================================================================

// SaveCustomer inserts or replaces a directory entry.
func (s *Store) SaveCustomer(ctx context.Context, c generic.Customer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveCustomer(ctx, s.db, c)
}

func saveCustomer(ctx context.Context, db execer, c generic.Customer) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO customers (id, name, introducer, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			introducer = excluded.introducer,
			updated_at = excluded.updated_at
	`, c.ID, c.Name, c.Introducer, now())
	if err != nil {
		return fmt.Errorf("failed to save customer %s: %w", c.ID, err)
	}
	return nil
}

// GetCustomer retrieves a customer by ID. Returns generic.ErrNotFound if absent.
func (s *Store) GetCustomer(ctx context.Context, id generic.CustomerID) (*generic.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c generic.Customer
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, introducer FROM customers WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, &c.Introducer)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("customer %s: %w", id, generic.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Customers returns the directory ordered by customer id.
func (s *Store) Customers(ctx context.Context) ([]generic.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, introducer FROM customers ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []generic.Customer
	for rows.Next() {
		var c generic.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Introducer); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// =============================================================================
// BILLING LEDGER
// =============================================================================

// SaveServiceRecord inserts or replaces a service record.
func (s *Store) SaveServiceRecord(ctx context.Context, r generic.ServiceRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveServiceRecord(ctx, s.db, r)
}

func saveServiceRecord(ctx context.Context, db execer, r generic.ServiceRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO service_records
		(id, customer_id, customer_name, service_date, hours, fee, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			customer_id = excluded.customer_id,
			customer_name = excluded.customer_name,
			service_date = excluded.service_date,
			hours = excluded.hours,
			fee = excluded.fee,
			category = excluded.category
	`,
		r.ID, r.CustomerID, r.CustomerName, r.Date.String(),
		r.Hours.String(), r.Fee.String(), r.Category, now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save service record %s: %w", r.ID, err)
	}
	return nil
}

// ServiceRecords returns records dated within [r.Start, r.End], ordered by
// date then id. ISO dates compare correctly as TEXT.
func (s *Store) ServiceRecords(ctx context.Context, r generic.DateRange) ([]generic.ServiceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, customer_name, service_date, hours, fee, category
		FROM service_records
		WHERE service_date >= ? AND service_date <= ?
		ORDER BY service_date ASC, id ASC
	`, r.Start.String(), r.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query service records: %w", err)
	}
	defer rows.Close()

	var records []generic.ServiceRecord
	for rows.Next() {
		rec, err := scanServiceRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanServiceRecord(rows *sql.Rows) (generic.ServiceRecord, error) {
	var (
		rec         generic.ServiceRecord
		serviceDate string
		hours       string
		fee         string
	)
	err := rows.Scan(&rec.ID, &rec.CustomerID, &rec.CustomerName, &serviceDate, &hours, &fee, &rec.Category)
	if err != nil {
		return rec, fmt.Errorf("failed to scan service record: %w", err)
	}
	if rec.Date, err = generic.ParseDate(serviceDate); err != nil {
		return rec, fmt.Errorf("service record %s: %w", rec.ID, err)
	}
	if rec.Hours, err = parseDecimal(hours); err != nil {
		return rec, fmt.Errorf("service record %s hours: %w", rec.ID, err)
	}
	if rec.Fee, err = parseDecimal(fee); err != nil {
		return rec, fmt.Errorf("service record %s fee: %w", rec.ID, err)
	}
	return rec, nil
}

// =============================================================================
// BULK IMPORT
// =============================================================================

// ImportDataset writes a whole dataset in one transaction. A dataset that
// carries rates replaces the rate table, keeping dataset order; everything
// else is upserted.
func (s *Store) ImportDataset(ctx context.Context, d generic.Dataset) error {
	if err := d.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if len(d.Rates) > 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM rate_table"); err != nil {
			return fmt.Errorf("failed to clear rate table: %w", err)
		}
		for _, e := range d.Rates {
			if err := saveRateEntry(ctx, tx, e); err != nil {
				return err
			}
		}
	}
	for _, p := range d.Profiles {
		if err := saveProfile(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, c := range d.Customers {
		if err := saveCustomer(ctx, tx, c); err != nil {
			return err
		}
	}
	for _, r := range d.Records {
		if err := saveServiceRecord(ctx, tx, r); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"service_records", "customers", "commission_profiles", "rate_table"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("stored value %q is not a decimal: %w", s, err)
	}
	return d, nil
}
