package utils

import (
	"testing"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatINR(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"999", "999"},
		{"1200", "1,200"},
		{"100000", "1,00,000"},
		{"1234567.5", "12,34,567.5"},
		{"123456789.12", "12,34,56,789.12"},
		{"3800.50", "3,800.5"},
		{"0.005", "0.01"},
		{"-1200", "-1,200"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatINR(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestSignedAmount(t *testing.T) {
	income := models.Transaction{Type: models.Income, Amount: decimal.NewFromInt(5000)}
	expense := models.Transaction{Type: models.Expense, Amount: decimal.NewFromInt(1200)}
	assert.Equal(t, "+₹5,000", SignedAmount(income))
	assert.Equal(t, "-₹1,200", SignedAmount(expense))
}
