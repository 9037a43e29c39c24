package sap

import (
	"context"
	"testing"

	"travel-expense-api/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestGenerateCompensationFile(t *testing.T) {
	gen := NewGenerator(t.TempDir(), zap.NewNop())
	report := &model.TravelExpenseReport{
		ID:          uuid.New(),
		RequesterID: uuid.New(),
	}
	expenses := []model.Expense{
		{Amount: mustDecimal(t, "700.00")},
		{Amount: mustDecimal(t, "500.00")},
	}

	t.Run("compensation is the overage above the prepaid amount", func(t *testing.T) {
		path, err := gen.GenerateCompensationFile(context.Background(), report, expenses, mustDecimal(t, "1000.00"))
		require.NoError(t, err)

		f, err := excelize.OpenFile(path)
		require.NoError(t, err)
		defer f.Close()

		sheet := f.GetSheetName(0)
		cell := func(ref string) string {
			v, err := f.GetCellValue(sheet, ref)
			require.NoError(t, err)
			return v
		}
		assert.Equal(t, "Total Expenses", cell("A3"))
		assert.Equal(t, "1200.00", cell("B3"))
		assert.Equal(t, "Prepaid Amount", cell("A4"))
		assert.Equal(t, "1000.00", cell("B4"))
		assert.Equal(t, "Compensation Due", cell("A5"))
		assert.Equal(t, "200.00", cell("B5"))
	})

	t.Run("zero prepaid owes the full total", func(t *testing.T) {
		path, err := gen.GenerateCompensationFile(context.Background(), report, expenses, decimal.Zero)
		require.NoError(t, err)

		f, err := excelize.OpenFile(path)
		require.NoError(t, err)
		defer f.Close()

		sheet := f.GetSheetName(0)
		prepaid, err := f.GetCellValue(sheet, "B4")
		require.NoError(t, err)
		due, err := f.GetCellValue(sheet, "B5")
		require.NoError(t, err)
		assert.Equal(t, "0.00", prepaid)
		assert.Equal(t, "1200.00", due)
	})
}

func TestGenerateExpensesFile(t *testing.T) {
	gen := NewGenerator(t.TempDir(), zap.NewNop())
	report := &model.TravelExpenseReport{ID: uuid.New(), RequesterID: uuid.New()}
	expenses := []model.Expense{
		{
			Amount:         mustDecimal(t, "45.90"),
			DocumentType:   model.DocTypeBoleta,
			DocumentNumber: "B-001",
			Description:    "taxi",
			Category:       &model.ExpenseCategory{Name: "Transport", SAPAccount: "600100"},
		},
		{
			Amount:         mustDecimal(t, "54.10"),
			DocumentType:   model.DocTypeFactura,
			DocumentNumber: "F-002",
			Description:    "hotel",
		},
	}

	path, err := gen.GenerateExpensesFile(context.Background(), report, expenses)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(0)
	account, err := f.GetCellValue(sheet, "E2")
	require.NoError(t, err)
	assert.Equal(t, "600100", account)

	label, err := f.GetCellValue(sheet, "G4")
	require.NoError(t, err)
	total, err := f.GetCellValue(sheet, "H4")
	require.NoError(t, err)
	assert.Equal(t, "TOTAL", label)
	assert.Equal(t, "100.00", total)
}
