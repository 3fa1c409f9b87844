package models

import "github.com/shopspring/decimal"

// IncomeExpenseStats represents income and expense totals for a period
type IncomeExpenseStats struct {
	Income     decimal.Decimal `json:"income"`
	Expense    decimal.Decimal `json:"expense"`
	NetBalance decimal.Decimal `json:"net_balance"`
}

// CategoryAmount is the summed expense amount for one category
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Color    string          `json:"color"`
}

// Summary is the server-side rendition of the dashboard aggregates
type Summary struct {
	Totals     IncomeExpenseStats `json:"totals"`
	ByCategory []CategoryAmount   `json:"by_category"`
	Months     []string           `json:"months"`
	Month      string             `json:"month,omitempty"`
	Monthly    IncomeExpenseStats `json:"monthly"`
}
