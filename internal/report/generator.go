// Package report builds currency-normalized monthly and yearly summaries from
// the cost store and the current exchange rates.
package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"costs/internal/core"
	"costs/internal/currency"
	"costs/internal/log"
	"costs/internal/rates"
)

// CostReader is the part of the cost store the generator needs.
type CostReader interface {
	QueryByMonth(ctx context.Context, year, month int) ([]core.CostItem, error)
}

// Generator builds point-in-time reports. It holds no state between calls;
// every report uses the rate table fetched for that call.
type Generator struct {
	costs CostReader
	rates rates.Source
}

// New creates a Generator reading costs from costs and rates from src.
func New(costs CostReader, src rates.Source) *Generator {
	return &Generator{costs: costs, rates: src}
}

// BuildMonthlyReport lists the costs of (year, month) in their stored
// currencies and totals them in target. The total is the sum of unrounded
// conversions, rounded once.
func (g *Generator) BuildMonthlyReport(ctx context.Context, year, month int, target string) (core.MonthlyReport, error) {
	if !core.ValidMonth(month) {
		return core.MonthlyReport{}, fmt.Errorf("%w: month %d out of range", core.ErrInvalidInput, month)
	}

	var (
		items []core.CostItem
		table currency.RateTable
	)

	// The store read and the rate fetch are independent.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		items, err = g.costs.QueryByMonth(egCtx, year, month)
		return err
	})
	eg.Go(func() error {
		var err error
		table, err = g.fetchRates(egCtx)
		return err
	})
	if err := eg.Wait(); err != nil {
		logFailure(ctx, "Monthly report failed", year, month, target, err)
		return core.MonthlyReport{}, err
	}

	return buildMonthly(year, month, target, items, table)
}

// BuildYearlyTotals returns the total of each month 1..12 of year in target.
// Rates are fetched once and shared by all twelve months; each month total is
// rounded on its own, exactly as its monthly report would show it.
func (g *Generator) BuildYearlyTotals(ctx context.Context, year int, target string) ([]core.MonthTotal, error) {
	table, err := g.fetchRates(ctx)
	if err != nil {
		logFailure(ctx, "Yearly totals failed", year, 0, target, err)
		return nil, err
	}

	totals := make([]core.MonthTotal, 0, 12)
	for month := 1; month <= 12; month++ {
		items, err := g.costs.QueryByMonth(ctx, year, month)
		if err != nil {
			logFailure(ctx, "Yearly totals failed", year, month, target, err)
			return nil, err
		}
		monthly, err := buildMonthly(year, month, target, items, table)
		if err != nil {
			return nil, err
		}
		totals = append(totals, core.MonthTotal{Month: month, Total: monthly.Total.Total})
	}
	return totals, nil
}

func logFailure(ctx context.Context, msg string, year, month int, target string, err error) {
	fields := log.NewFields().
		WithComponent(log.ComponentReport).
		WithOperation(log.OpReport).
		WithPeriod(year, month).
		WithError(err)
	fields[log.FieldCurrency] = target
	slog.ErrorContext(ctx, msg, fields.ToSlice()...)
}

func (g *Generator) fetchRates(ctx context.Context) (currency.RateTable, error) {
	table, err := g.rates.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	return table, nil
}

func buildMonthly(year, month int, target string, items []core.CostItem, table currency.RateTable) (core.MonthlyReport, error) {
	// An empty month still needs a valid target currency.
	if _, err := currency.ConvertExact(0, target, target, table); err != nil {
		return core.MonthlyReport{}, err
	}

	sum := decimal.Zero
	for _, item := range items {
		converted, err := currency.ConvertExact(item.Sum, item.Currency, target, table)
		if err != nil {
			return core.MonthlyReport{}, fmt.Errorf("convert cost %d: %w", item.ID, err)
		}
		sum = sum.Add(converted)
	}

	if items == nil {
		items = []core.CostItem{}
	}
	return core.MonthlyReport{
		Year:  year,
		Month: month,
		Costs: items,
		Total: core.Total{Currency: target, Total: currency.Round(sum)},
	}, nil
}
