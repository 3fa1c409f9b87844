package utils

import (
	"strings"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/shopspring/decimal"
)

// FormatINR formats d with Indian digit grouping (12,34,567.5).
// Trailing fractional zeros are dropped, at most two decimals are kept.
func FormatINR(d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	s := d.String()
	intPart, frac, _ := strings.Cut(s, ".")
	out := sign + groupIndian(intPart)
	if frac = strings.TrimRight(frac, "0"); frac != "" {
		out += "." + frac
	}
	return out
}

// SignedAmount renders a transaction amount with its direction, e.g. +₹5,000 or -₹1,200
func SignedAmount(tx models.Transaction) string {
	sign := "-"
	if tx.Type == models.Income {
		sign = "+"
	}
	return sign + "₹" + FormatINR(tx.Amount)
}

// groupIndian separates the last three digits, then every two
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(append(parts, tail), ",")
}
