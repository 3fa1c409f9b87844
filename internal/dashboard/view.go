package dashboard

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Dan9191/finance-tracker/internal/aggregate"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/utils"
	"github.com/shopspring/decimal"
)

const barWidth = 30

// Row is one rendered transaction; ID is the delete handle
type Row struct {
	ID       string
	Title    string
	Category string
	Date     string
	Amount   string
	Type     models.TransactionType
}

// Bar is one labelled value of a chart
type Bar struct {
	Label string
	Value decimal.Decimal
	Color string
}

// BarChart compares income with expense
type BarChart struct {
	Bars []Bar
}

// DoughnutChart splits expenses by category
type DoughnutChart struct {
	Segments []Bar
	Total    decimal.Decimal
}

// View is everything the dashboard shows, computed from one snapshot.
// Charts are rebuilt for every view and never shared between renders.
type View struct {
	State      State
	Rows       []Row
	Totals     aggregate.Totals
	Overview   *BarChart
	Categories *DoughnutChart
	Months     []string
	Selected   string
	Monthly    aggregate.Totals
}

// View computes the current view
func (d *Dashboard) View() View {
	d.mu.Lock()
	txs := d.txs
	v := View{
		State:    d.state,
		Months:   append([]string{}, d.months...),
		Selected: d.selected,
	}
	d.mu.Unlock()

	v.Rows = make([]Row, 0, len(txs))
	for _, tx := range txs {
		v.Rows = append(v.Rows, Row{
			ID:       tx.ID,
			Title:    tx.Title,
			Category: tx.Category,
			Date:     tx.Date,
			Amount:   utils.SignedAmount(tx),
			Type:     tx.Type,
		})
	}

	v.Totals = aggregate.Sum(txs)
	v.Monthly = aggregate.ByMonth(txs, v.Selected)
	v.Overview = &BarChart{Bars: []Bar{
		{Label: "Income", Value: v.Totals.Income},
		{Label: "Expense", Value: v.Totals.Expense},
	}}

	if byCategory := aggregate.ByCategory(txs); len(byCategory) > 0 {
		chart := &DoughnutChart{Total: decimal.Zero}
		for _, c := range byCategory {
			chart.Segments = append(chart.Segments, Bar{Label: c.Category, Value: c.Amount, Color: c.Color})
			chart.Total = chart.Total.Add(c.Amount)
		}
		v.Categories = chart
	}
	return v
}

// Renderer writes views as text
type Renderer struct {
	// Color enables 24-bit ANSI colors for category bars
	Color bool
}

// Render writes v to w
func (r Renderer) Render(w io.Writer, v View) error {
	if v.State == Unauthenticated {
		_, err := fmt.Fprintln(w, "Not logged in. Run `tracker login` or `tracker register`.")
		return err
	}

	fmt.Fprintf(w, "Balance: ₹%s   Income: ₹%s   Expense: ₹%s\n\n",
		utils.FormatINR(v.Totals.Balance()),
		utils.FormatINR(v.Totals.Income),
		utils.FormatINR(v.Totals.Expense))

	fmt.Fprintln(w, "Transactions")
	if len(v.Rows) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, row := range v.Rows {
			fmt.Fprintf(tw, "  %s (%s)\t%s\t%s\t%s\t\n", row.Title, row.Category, row.Date, row.Amount, row.ID)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if v.Overview != nil {
		fmt.Fprintln(w, "\nIncome vs Expense")
		r.bars(w, v.Overview.Bars, maxValue(v.Overview.Bars), decimal.Zero)
	}
	if v.Categories != nil {
		fmt.Fprintln(w, "\nExpenses by category")
		r.bars(w, v.Categories.Segments, v.Categories.Total, v.Categories.Total)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, monthSelector(v.Months, v.Selected))
	_, err := fmt.Fprintf(w, "Monthly income: ₹%s   Monthly expense: ₹%s\n",
		utils.FormatINR(v.Monthly.Income),
		utils.FormatINR(v.Monthly.Expense))
	return err
}

// bars draws one line per bar scaled against scale. A non-zero total adds a percentage.
func (r Renderer) bars(w io.Writer, bars []Bar, scale, total decimal.Decimal) {
	width := 0
	for _, b := range bars {
		width = max(width, len(b.Label))
	}
	for _, b := range bars {
		n := 0
		if scale.IsPositive() {
			n = int(b.Value.Mul(decimal.NewFromInt(barWidth)).Div(scale).Round(0).IntPart())
		}
		bar := strings.Repeat("█", n)
		if r.Color && b.Color != "" {
			bar = colorize(bar, b.Color)
		}
		line := fmt.Sprintf("  %-*s %s%s %s", width, b.Label, bar, strings.Repeat(" ", barWidth-n), utils.FormatINR(b.Value))
		if total.IsPositive() {
			line += fmt.Sprintf(" (%s%%)", b.Value.Mul(decimal.NewFromInt(100)).Div(total).StringFixed(1))
		}
		fmt.Fprintln(w, line)
	}
}

func maxValue(bars []Bar) decimal.Decimal {
	m := decimal.Zero
	for _, b := range bars {
		m = decimal.Max(m, b.Value)
	}
	return m
}

func monthSelector(months []string, selected string) string {
	if len(months) == 0 {
		return "Month: (no months)"
	}
	parts := make([]string, 0, len(months))
	for _, m := range months {
		if m == selected {
			m = "[" + m + "]"
		}
		parts = append(parts, m)
	}
	label := "Month: "
	if selected == "" {
		label = "Month (none selected): "
	}
	return label + strings.Join(parts, " ")
}

// colorize wraps s in a 24-bit foreground color given as #RRGGBB
func colorize(s, hex string) string {
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return s
	}
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm%s\x1b[0m", r, g, b, s)
}
