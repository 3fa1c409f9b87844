// Package aggregate computes the dashboard views over a transaction snapshot.
//
// Every function is pure: the input slice is never modified and the result
// depends only on the records and their order.
package aggregate

import (
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/shopspring/decimal"
)

// Totals holds summed income and expense amounts
type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Balance returns income minus expense
func (t Totals) Balance() decimal.Decimal {
	return t.Income.Sub(t.Expense)
}

// Stats converts t to its API representation
func (t Totals) Stats() models.IncomeExpenseStats {
	return models.IncomeExpenseStats{
		Income:     t.Income,
		Expense:    t.Expense,
		NetBalance: t.Balance(),
	}
}

// Sum returns the total income and total expense of txs
func Sum(txs []models.Transaction) Totals {
	totals := Totals{Income: decimal.Zero, Expense: decimal.Zero}
	for _, t := range txs {
		switch t.Type {
		case models.Income:
			totals.Income = totals.Income.Add(t.Amount)
		case models.Expense:
			totals.Expense = totals.Expense.Add(t.Amount)
		}
	}
	return totals
}

// ByCategory sums expense amounts per category. Income records are ignored.
// Categories appear in the order they are first seen in txs.
func ByCategory(txs []models.Transaction) []models.CategoryAmount {
	index := make(map[string]int)
	var out []models.CategoryAmount
	for _, t := range txs {
		if t.Type != models.Expense {
			continue
		}
		i, ok := index[t.Category]
		if !ok {
			i = len(out)
			index[t.Category] = i
			out = append(out, models.CategoryAmount{
				Category: t.Category,
				Amount:   decimal.Zero,
				Color:    ColorFor(t.Category),
			})
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	return out
}

// DistinctMonths returns each month key once, in order of first appearance.
// The result is not sorted chronologically.
func DistinctMonths(txs []models.Transaction) []string {
	seen := make(map[string]struct{})
	months := []string{}
	for _, t := range txs {
		if _, ok := seen[t.Month]; ok {
			continue
		}
		seen[t.Month] = struct{}{}
		months = append(months, t.Month)
	}
	return months
}

// ByMonth sums income and expense over records whose month equals month exactly.
func ByMonth(txs []models.Transaction, month string) Totals {
	var matched []models.Transaction
	for _, t := range txs {
		if t.Month == month {
			matched = append(matched, t)
		}
	}
	return Sum(matched)
}

// Summarize builds the complete set of dashboard aggregates for txs.
func Summarize(txs []models.Transaction, month string) models.Summary {
	byCategory := ByCategory(txs)
	if byCategory == nil {
		byCategory = []models.CategoryAmount{}
	}
	return models.Summary{
		Totals:     Sum(txs).Stats(),
		ByCategory: byCategory,
		Months:     DistinctMonths(txs),
		Month:      month,
		Monthly:    ByMonth(txs, month).Stats(),
	}
}
