// Package sap builds the Excel export files the accounting team uploads into
// SAP when a report settles.
package sap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"travel-expense-api/internal/model"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Generator writes SAP export spreadsheets to outputDir.
type Generator struct {
	outputDir string
	logger    *zap.Logger
}

func NewGenerator(outputDir string, logger *zap.Logger) *Generator {
	return &Generator{outputDir: outputDir, logger: logger}
}

// GenerateExpensesFile writes one row per expense line with its category's GL
// account, and a total row. Returns the saved file path.
func (g *Generator) GenerateExpensesFile(ctx context.Context, report *model.TravelExpenseReport, expenses []model.Expense) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	headers := []string{"Line", "Expense Date", "Document Type", "Document Number", "GL Account", "Category", "Description", "Amount"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		g.setCell(f, sheet, cell, h)
	}

	total := decimal.Zero
	for i := range expenses {
		expense := &expenses[i]
		row := i + 2
		glAccount := ""
		category := ""
		if expense.Category != nil {
			glAccount = expense.Category.SAPAccount
			category = expense.Category.Name
		}
		values := []any{
			i + 1,
			expense.ExpenseDate.Format("2006-01-02"),
			expense.DocumentType,
			expense.DocumentNumber,
			glAccount,
			category,
			expense.Description,
			expense.Amount.StringFixed(2),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			g.setCell(f, sheet, cell, v)
		}
		total = total.Add(expense.Amount)
	}

	totalRow := len(expenses) + 2
	labelCell, _ := excelize.CoordinatesToCellName(7, totalRow)
	valueCell, _ := excelize.CoordinatesToCellName(8, totalRow)
	g.setCell(f, sheet, labelCell, "TOTAL")
	g.setCell(f, sheet, valueCell, total.StringFixed(2))

	return g.save(f, fmt.Sprintf("sap_expenses_%s_%s.xlsx",
		report.ID.String(), time.Now().Format("20060102T150405")))
}

// GenerateCompensationFile writes the reimbursement summary used when the
// expenses exceed the prepaid amount. The caller supplies the prepaid amount;
// reports arrive here from locked reads that do not carry the prepayment row.
func (g *Generator) GenerateCompensationFile(ctx context.Context, report *model.TravelExpenseReport, expenses []model.Expense, prepaid decimal.Decimal) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	total := decimal.Zero
	for i := range expenses {
		total = total.Add(expenses[i].Amount)
	}
	compensation := total.Sub(prepaid)

	rows := [][]any{
		{"Report", report.ID.String()},
		{"Requester", report.RequesterID.String()},
		{"Total Expenses", total.StringFixed(2)},
		{"Prepaid Amount", prepaid.StringFixed(2)},
		{"Compensation Due", compensation.StringFixed(2)},
		{"Generated At", time.Now().Format(time.RFC3339)},
	}
	for r, pair := range rows {
		for c, v := range pair {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			g.setCell(f, sheet, cell, v)
		}
	}

	return g.save(f, fmt.Sprintf("sap_compensation_%s_%s.xlsx",
		report.ID.String(), time.Now().Format("20060102T150405")))
}

func (g *Generator) save(f *excelize.File, filename string) (string, error) {
	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(g.outputDir, filename)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}
	g.logger.Info("SAP file generated", zap.String("path", path))
	return path, nil
}

func (g *Generator) setCell(f *excelize.File, sheet, cell string, value any) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		g.logger.Warn("failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}
