package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// TransactionType distinguishes income from expense records
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Transaction represents a single income or expense record owned by one user
type Transaction struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Amount    decimal.Decimal `json:"amount"`
	Type      TransactionType `json:"type"`
	Category  string          `json:"category"`
	Date      string          `json:"date"`  // Format: YYYY-MM-DD
	Month     string          `json:"month"` // Format: YYYY-MM, always Date[:7]
	Owner     string          `json:"owner"`
	CreatedAt time.Time       `json:"created_at"`
}

// TransactionInput holds the caller-supplied fields of a new transaction.
// Owner is accepted on the wire but always replaced by the authenticated identity.
type TransactionInput struct {
	Title    string          `json:"title"`
	Amount   decimal.Decimal `json:"amount"`
	Type     TransactionType `json:"type"`
	Category string          `json:"category"`
	Date     string          `json:"date"`
	Month    string          `json:"month,omitempty"`
	Owner    string          `json:"owner,omitempty"`
}
