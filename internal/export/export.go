// Package export renders a transaction list as a downloadable file.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Dan9191/finance-tracker/internal/aggregate"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/beevik/etree"
	"github.com/xuri/excelize/v2"
)

// Format is a supported export file type
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
	XML  Format = "xml"
)

const sheetName = "Transactions"

var header = []string{"Date", "Title", "Category", "Type", "Amount", "Month"}

// ParseFormat accepts a case-insensitive format name. Empty means CSV.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case "":
		return CSV, nil
	case CSV, XLSX, XML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", value)
	}
}

// ContentType returns the MIME type for f
func (f Format) ContentType() string {
	switch f {
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case XML:
		return "application/xml; charset=utf-8"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Filename names the download for the given day
func (f Format) Filename(day time.Time) string {
	return fmt.Sprintf("transactions_%s.%s", day.Format("20060102"), f)
}

// Write encodes txs to w in format f
func Write(w io.Writer, f Format, txs []models.Transaction) error {
	switch f {
	case CSV:
		return WriteCSV(w, txs)
	case XLSX:
		return WriteXLSX(w, txs)
	case XML:
		return WriteXML(w, txs)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

func row(tx models.Transaction) []string {
	return []string{tx.Date, tx.Title, tx.Category, string(tx.Type), tx.Amount.StringFixed(2), tx.Month}
}

// WriteCSV writes a header line followed by one line per transaction
func WriteCSV(w io.Writer, txs []models.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, tx := range txs {
		if err := cw.Write(row(tx)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook with numeric amount cells
func WriteXLSX(w io.Writer, txs []models.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, tx := range txs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		amount, _ := tx.Amount.Float64()
		values := []interface{}{tx.Date, tx.Title, tx.Category, string(tx.Type), amount, tx.Month}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "B", 30)
	f.SetColWidth(sheetName, "C", "C", 15)
	f.SetColWidth(sheetName, "D", "D", 10)
	f.SetColWidth(sheetName, "E", "E", 14)
	f.SetColWidth(sheetName, "F", "F", 10)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteXML writes the transactions and their totals as an XML document
func WriteXML(w io.Writer, txs []models.Transaction) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("transactions")
	root.CreateAttr("count", fmt.Sprint(len(txs)))

	totals := aggregate.Sum(txs)
	summary := root.CreateElement("totals")
	summary.CreateElement("income").SetText(totals.Income.StringFixed(2))
	summary.CreateElement("expense").SetText(totals.Expense.StringFixed(2))
	summary.CreateElement("balance").SetText(totals.Balance().StringFixed(2))

	for _, tx := range txs {
		el := root.CreateElement("transaction")
		el.CreateAttr("id", tx.ID)
		el.CreateAttr("type", string(tx.Type))
		el.CreateElement("title").SetText(tx.Title)
		el.CreateElement("category").SetText(tx.Category)
		el.CreateElement("date").SetText(tx.Date)
		el.CreateElement("month").SetText(tx.Month)
		el.CreateElement("amount").SetText(tx.Amount.StringFixed(2))
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xml: %w", err)
	}
	return nil
}
