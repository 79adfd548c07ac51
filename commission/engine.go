/*
engine.go - One commission run, from source fetch to aggregate

PURPOSE:
  Wires the pure stages together: fetch the four read-only inputs, join the
  ledger with the customer directory, filter, resolve, price and aggregate.

RUN SEQUENCE:
  1. Validate the query range (malformed ranges never reach the sources)
  2. Fetch rate table, profiles, ledger(range), directory concurrently
  3. Join -> Eligibility -> Resolver -> Price -> Aggregate
  4. Return a freshly allocated Result

FAILURE:
  Any fetch failure aborts the run with one ComputationError. No partial
  result is returned and nothing is retried.

CONCURRENCY:
  An Engine holds no mutable state. Concurrent Compute calls share nothing
  but the read-only sources.

TIMEOUT:
  Timeout bounds the fetch phase. It is an addition of this service; the
  computation itself has no suspension points.
*/
package commission

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/warp/introducer-commission/generic"
)

// DefaultTimeout bounds a run's fetch phase when Engine.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Policy holds the configurable parts of the business rules.
type Policy struct {
	ExclusionMarkers []string
	KeywordRules     []KeywordRule
}

// DefaultPolicy returns the built-in exclusion markers and keyword rules.
func DefaultPolicy() Policy {
	return Policy{
		ExclusionMarkers: append([]string(nil), DefaultExclusionMarkers...),
		KeywordRules:     DefaultKeywordRules(),
	}
}

type Engine struct {
	Sources generic.Sources
	Policy  Policy
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewEngine creates an engine with the default policy.
func NewEngine(sources generic.Sources, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Sources: sources,
		Policy:  DefaultPolicy(),
		Timeout: DefaultTimeout,
		Logger:  logger,
	}
}

// inputs is the snapshot a run computes from.
type inputs struct {
	rates     []generic.RateTableEntry
	profiles  []generic.CommissionProfile
	records   []generic.ServiceRecord
	customers []generic.Customer
}

// Compute runs the engine for q.
func (e *Engine) Compute(ctx context.Context, q Query) (*Result, error) {
	if err := q.Range.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	started := time.Now()
	log := e.logger().With("run_id", runID, "range", q.Range.String(), "introducer", q.Introducer)
	log.Debug("commission run started")

	in, err := e.fetch(ctx, q.Range)
	if err != nil {
		log.Error("commission run failed", "error", err)
		return nil, &generic.ComputationError{RunID: runID, Err: err}
	}

	result := Calculate(in.rates, in.profiles, in.records, in.customers, e.Policy, q)
	result.RunID = runID

	log.Info("commission run finished",
		"records", len(in.records),
		"lines", result.Totals.Lines,
		"introducers", len(result.Introducers),
		"commission", generic.FormatMoney(result.Totals.Commission),
		"elapsed", time.Since(started),
	)
	return result, nil
}

// ComputeMonth runs the engine for a whole calendar month.
func (e *Engine) ComputeMonth(ctx context.Context, year int, month time.Month, introducer string) (*Result, error) {
	return e.Compute(ctx, Query{Range: generic.MonthRange(year, month), Introducer: introducer})
}

func (e *Engine) fetch(ctx context.Context, r generic.DateRange) (inputs, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var in inputs
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rates, err := e.Sources.RateTable(ctx)
		if err != nil {
			return &generic.SourceError{Source: generic.SourceRateTable, Err: err}
		}
		in.rates = rates
		return nil
	})
	g.Go(func() error {
		profiles, err := e.Sources.CommissionProfiles(ctx)
		if err != nil {
			return &generic.SourceError{Source: generic.SourceProfiles, Err: err}
		}
		in.profiles = profiles
		return nil
	})
	g.Go(func() error {
		records, err := e.Sources.ServiceRecords(ctx, r)
		if err != nil {
			return &generic.SourceError{Source: generic.SourceLedger, Err: err}
		}
		in.records = records
		return nil
	})
	g.Go(func() error {
		customers, err := e.Sources.Customers(ctx)
		if err != nil {
			return &generic.SourceError{Source: generic.SourceDirectory, Err: err}
		}
		in.customers = customers
		return nil
	})
	if err := g.Wait(); err != nil {
		return inputs{}, err
	}
	return in, nil
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Calculate is the in-memory part of a run. It is pure: no I/O, no clock.
func Calculate(
	rates []generic.RateTableEntry,
	profiles []generic.CommissionProfile,
	records []generic.ServiceRecord,
	customers []generic.Customer,
	policy Policy,
	q Query,
) *Result {
	resolver := NewResolver(rates, policy.KeywordRules)
	eligibility := NewEligibility(profiles, policy.ExclusionMarkers, q.Introducer)

	var lines []CommissionLine
	for _, rec := range Join(records, customers) {
		if !eligibility.IsEligible(rec) {
			continue
		}
		pct, _ := eligibility.Percentage(rec.Introducer)
		lines = append(lines, Price(rec, resolver.Resolve(rec.Category), pct))
	}

	introducer := normalizeFilter(q.Introducer)
	if introducer == "" {
		introducer = AllIntroducers
	}
	aggregates, totals := Aggregate(lines)
	return &Result{
		Range:       q.Range,
		Introducer:  introducer,
		Introducers: aggregates,
		Totals:      totals,
	}
}
