package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Dan9191/finance-tracker/internal/dashboard"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/utils"
	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// amount parses a positive decimal command line argument
type amount struct {
	decimal.Decimal
}

func (a *amount) Decode(ctx *kong.DecodeContext) error {
	var s string
	if err := ctx.Scan.PopValueInto("amount", &s); err != nil {
		return err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid amount %q", s)
	}
	if !d.IsPositive() {
		return fmt.Errorf("amount must be greater than zero")
	}
	a.Decimal = d
	return nil
}

type registerCmd struct {
	Email    string `required:"" help:"Account email."`
	Password string `required:"" env:"TRACKER_PASSWORD" help:"Account password (at least 8 characters)."`
	Name     string `help:"Display name."`
}

func (c *registerCmd) Run(a *app) error {
	if err := a.board.Register(a.ctx, c.Email, c.Password, c.Name); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered and logged in as %s\n", c.Email)
	return nil
}

type loginCmd struct {
	Email    string `required:"" help:"Account email."`
	Password string `required:"" env:"TRACKER_PASSWORD" help:"Account password."`
}

func (c *loginCmd) Run(a *app) error {
	if err := a.board.Login(a.ctx, c.Email, c.Password); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", c.Email)
	return a.render()
}

type logoutCmd struct{}

func (c *logoutCmd) Run(a *app) error {
	if err := a.board.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

type listCmd struct {
	Month string `help:"Month (YYYY-MM) for the monthly figures."`
}

func (c *listCmd) Run(a *app) error {
	if a.board.State() == dashboard.Unauthenticated {
		return a.renderer.Render(a.out, a.board.View())
	}
	if err := a.board.Load(a.ctx); err != nil {
		return err
	}
	if c.Month != "" {
		a.board.SelectMonth(c.Month)
		if a.board.SelectedMonth() == "" {
			fmt.Fprintf(a.out, "No transactions in %s\n", c.Month)
		}
	}
	return a.render()
}

type addCmd struct {
	Income  addIncomeCmd  `cmd:"" help:"Record income."`
	Expense addExpenseCmd `cmd:"" help:"Record an expense."`
}

type addIncomeCmd struct {
	Source string `arg:"" help:"Income source, e.g. Salary."`
	Amount amount `arg:"" help:"Amount."`
	Date   string `help:"Date (YYYY-MM-DD), default today."`
}

func (c *addIncomeCmd) Run(a *app) error {
	if err := a.board.AddIncome(a.ctx, c.Source, c.Amount.Decimal, dateOrToday(c.Date)); err != nil {
		return err
	}
	return a.render()
}

type addExpenseCmd struct {
	Category string `arg:"" enum:"Food,Rent,Travel,Shopping,Bills,Other" help:"Category: ${enum}."`
	Amount   amount `arg:"" help:"Amount."`
	Note     string `help:"Optional note, used as the title."`
	Date     string `help:"Date (YYYY-MM-DD), default today."`
}

func (c *addExpenseCmd) Run(a *app) error {
	if err := a.board.AddExpense(a.ctx, c.Category, c.Amount.Decimal, c.Note, dateOrToday(c.Date)); err != nil {
		return err
	}
	return a.render()
}

type deleteCmd struct {
	ID string `arg:"" help:"Transaction id."`
}

func (c *deleteCmd) Run(a *app) error {
	if err := a.board.Delete(a.ctx, c.ID); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Transaction deleted successfully")
	return a.render()
}

type resetCmd struct {
	Sequential bool `help:"Delete one transaction at a time instead of in one request."`
}

func (c *resetCmd) Run(a *app) error {
	if a.board.State() == dashboard.Loading {
		if err := a.board.Load(a.ctx); err != nil {
			return err
		}
	}
	res, err := a.board.Reset(a.ctx, c.Sequential)
	if err != nil && res.Deleted == 0 && len(res.Failed) == 0 {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %d transactions\n", res.Deleted)
	if len(res.Failed) > 0 {
		fmt.Fprintf(a.out, "Failed to delete %d: %v\n", len(res.Failed), res.Failed)
	}
	if err != nil {
		return err
	}
	return a.render()
}

type summaryCmd struct {
	Month string `help:"Month (YYYY-MM) for the monthly figures."`
}

func (c *summaryCmd) Run(a *app) error {
	if a.board.State() == dashboard.Unauthenticated {
		return dashboard.ErrNotReady
	}
	s, err := a.api.Summary(a.ctx, c.Month)
	if err != nil {
		return a.expireOnAuthError(err)
	}
	printSummary(a.out, s)
	return nil
}

func printSummary(w io.Writer, s models.Summary) {
	fmt.Fprintf(w, "Income:  ₹%s\nExpense: ₹%s\nBalance: ₹%s\n",
		utils.FormatINR(s.Totals.Income), utils.FormatINR(s.Totals.Expense), utils.FormatINR(s.Totals.NetBalance))
	for _, cat := range s.ByCategory {
		fmt.Fprintf(w, "  %-10s %s ₹%s\n", cat.Category, cat.Color, utils.FormatINR(cat.Amount))
	}
	fmt.Fprintf(w, "Months: %v\n", s.Months)
	if s.Month != "" {
		fmt.Fprintf(w, "%s income: ₹%s expense: ₹%s\n", s.Month, utils.FormatINR(s.Monthly.Income), utils.FormatINR(s.Monthly.Expense))
	}
}

type exportCmd struct {
	Format string `enum:"csv,xlsx,xml" default:"csv" help:"File format: ${enum}."`
	Month  string `help:"Only export this month (YYYY-MM)."`
	Out    string `type:"path" help:"Output file, default is the server-suggested name in the current directory."`
}

func (c *exportCmd) Run(a *app) error {
	if a.board.State() == dashboard.Unauthenticated {
		return dashboard.ErrNotReady
	}
	exp, err := a.api.Export(a.ctx, c.Format, c.Month)
	if err != nil {
		return a.expireOnAuthError(err)
	}

	path := c.Out
	if path == "" {
		path = filepath.Base(exp.Filename)
	}
	if err := os.WriteFile(path, exp.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(a.out, "Wrote %s (%s)\n", path, humanize.Bytes(uint64(len(exp.Data))))
	return nil
}

func dateOrToday(date string) string {
	if date == "" {
		return time.Now().Format("2006-01-02")
	}
	return date
}
