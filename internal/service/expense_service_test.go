package service

import (
	"context"
	"testing"

	"travel-expense-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validExpenseRequest(reportID string) CreateExpenseRequest {
	return CreateExpenseRequest{
		ReportID:       reportID,
		CategoryID:     "0191d1a0-0000-7000-8000-000000000010",
		DocumentType:   model.DocTypeBoleta,
		DocumentNumber: "B-1001",
		Amount:         "45.90",
		CurrencyID:     "0191d1a0-0000-7000-8000-000000000002",
		ExpenseDate:    "2026-09-03",
		Description:    "airport taxi",
	}
}

func TestExpenseCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid line on a pending report", func(t *testing.T) {
		env := newTestEnv()
		report := env.seedReport(env.employee.ID, model.ReportPending, nil)

		created, err := env.expenses.Create(ctx, env.employee.ID, validExpenseRequest(report.ID.String()))
		require.NoError(t, err)
		assert.Equal(t, string(model.ExpensePending), created.Status)
		assert.Equal(t, "45.90", created.Amount)

		stored := env.db.expenses[parseUUID(t, created.ID)]
		assert.Equal(t, report.ID, stored.ReportID)
		assert.Nil(t, stored.SupplierID)
	})

	t.Run("supplier is optional but must parse", func(t *testing.T) {
		env := newTestEnv()
		report := env.seedReport(env.employee.ID, model.ReportPending, nil)

		req := validExpenseRequest(report.ID.String())
		req.SupplierID = "not-a-uuid"
		_, err := env.expenses.Create(ctx, env.employee.ID, req)
		require.Error(t, err)
		assert.Equal(t, KindValidationFailed, KindOf(err))
	})

	t.Run("document type restricted", func(t *testing.T) {
		env := newTestEnv()
		report := env.seedReport(env.employee.ID, model.ReportPending, nil)

		req := validExpenseRequest(report.ID.String())
		req.DocumentType = "INVOICE"
		_, err := env.expenses.Create(ctx, env.employee.ID, req)
		require.Error(t, err)
		assert.Equal(t, KindValidationFailed, KindOf(err))
	})

	t.Run("date must fall inside the travel window", func(t *testing.T) {
		env := newTestEnv()
		report := env.seedReport(env.employee.ID, model.ReportPending, nil)

		req := validExpenseRequest(report.ID.String())
		req.ExpenseDate = "2026-09-15"
		_, err := env.expenses.Create(ctx, env.employee.ID, req)
		require.Error(t, err)
		assert.Equal(t, KindValidationFailed, KindOf(err))
		assert.Contains(t, err.Error(), "travel dates")
	})

	t.Run("linked report takes its window from the prepayment", func(t *testing.T) {
		env := newTestEnv()
		p := env.seedPrepayment(env.employee.ID, model.PrepaymentApproved, "1000")
		report := env.seedReport(env.employee.ID, model.ReportPending, &p.ID)

		req := validExpenseRequest(report.ID.String())
		req.ExpenseDate = "2026-09-09"
		_, err := env.expenses.Create(ctx, env.employee.ID, req)
		require.NoError(t, err)

		req.ExpenseDate = "2026-09-11"
		_, err = env.expenses.Create(ctx, env.employee.ID, req)
		require.Error(t, err)
		assert.Equal(t, KindValidationFailed, KindOf(err))
	})

	t.Run("locked once the report is submitted", func(t *testing.T) {
		env := newTestEnv()
		report := env.seedReport(env.employee.ID, model.ReportSupervisorPending, nil)

		_, err := env.expenses.Create(ctx, env.employee.ID, validExpenseRequest(report.ID.String()))
		require.Error(t, err)
		assert.Equal(t, KindInvalidTransition, KindOf(err))
	})

	t.Run("only the requester may add lines", func(t *testing.T) {
		env := newTestEnv()
		report := env.seedReport(env.employee.ID, model.ReportPending, nil)

		_, err := env.expenses.Create(ctx, env.accountant.ID, validExpenseRequest(report.ID.String()))
		require.Error(t, err)
		assert.Equal(t, KindForbidden, KindOf(err))
	})
}

func TestExpenseUpdateAndDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("update amount while editable", func(t *testing.T) {
		env := newTestEnv()
		report := env.seedReport(env.employee.ID, model.ReportPending, nil)
		line := env.seedExpense(report.ID, "30.00", model.ExpensePending)

		amount := "55.00"
		updated, err := env.expenses.Update(ctx, env.employee.ID, line.ID, UpdateExpenseRequest{Amount: &amount})
		require.NoError(t, err)
		assert.Equal(t, "55.00", updated.Amount)
		assert.True(t, env.db.expenses[line.ID].Amount.Equal(mustDecimal("55.00")))
	})

	t.Run("update rejects a date outside the window", func(t *testing.T) {
		env := newTestEnv()
		report := env.seedReport(env.employee.ID, model.ReportPending, nil)
		line := env.seedExpense(report.ID, "30.00", model.ExpensePending)

		badDate := "2026-10-01"
		_, err := env.expenses.Update(ctx, env.employee.ID, line.ID, UpdateExpenseRequest{ExpenseDate: &badDate})
		require.Error(t, err)
		assert.Equal(t, KindValidationFailed, KindOf(err))
	})

	t.Run("no edits after submission", func(t *testing.T) {
		env := newTestEnv()
		report := env.seedReport(env.employee.ID, model.ReportAccountingPending, nil)
		line := env.seedExpense(report.ID, "30.00", model.ExpensePending)

		amount := "99.00"
		_, err := env.expenses.Update(ctx, env.employee.ID, line.ID, UpdateExpenseRequest{Amount: &amount})
		require.Error(t, err)
		assert.Equal(t, KindInvalidTransition, KindOf(err))

		err = env.expenses.Delete(ctx, env.employee.ID, line.ID)
		require.Error(t, err)
		assert.Equal(t, KindInvalidTransition, KindOf(err))
	})

	t.Run("delete while editable", func(t *testing.T) {
		env := newTestEnv()
		report := env.seedReport(env.employee.ID, model.ReportRejected, nil)
		line := env.seedExpense(report.ID, "30.00", model.ExpensePending)

		require.NoError(t, env.expenses.Delete(ctx, env.employee.ID, line.ID))
		assert.NotContains(t, env.db.expenses, line.ID)
	})
}

func TestExpenseReviewGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("only accounting approvers review lines", func(t *testing.T) {
		env := newTestEnv()
		report := env.seedReport(env.employee.ID, model.ReportAccountingPending, nil)
		line := env.seedExpense(report.ID, "30.00", model.ExpensePending)

		_, err := env.expenses.ApproveExpense(ctx, env.employee.ID, line.ID)
		require.Error(t, err)
		assert.Equal(t, KindForbidden, KindOf(err))
	})

	t.Run("superuser bypass", func(t *testing.T) {
		env := newTestEnv()
		admin := env.seedUser("admin", model.ProfileManager, false, nil)
		admin.IsSuperuser = true
		env.db.users[admin.ID] = *admin
		report := env.seedReport(env.employee.ID, model.ReportAccountingPending, nil)
		env.seedExpense(report.ID, "30.00", model.ExpensePending)
		line := env.seedExpense(report.ID, "40.00", model.ExpensePending)

		result, err := env.expenses.ApproveExpense(ctx, admin.ID, line.ID)
		require.NoError(t, err)
		assert.Equal(t, string(model.ExpenseApproved), result.Expense.Status)
	})

	t.Run("report must be under accounting review", func(t *testing.T) {
		env := newTestEnv()
		report := env.seedReport(env.employee.ID, model.ReportSupervisorPending, nil)
		line := env.seedExpense(report.ID, "30.00", model.ExpensePending)

		_, err := env.expenses.ApproveExpense(ctx, env.accountant.ID, line.ID)
		require.Error(t, err)
		assert.Equal(t, KindInvalidTransition, KindOf(err))
		assert.Equal(t, model.ExpensePending, env.db.expenses[line.ID].Status)
	})

	t.Run("rejection needs a reason", func(t *testing.T) {
		env := newTestEnv()
		report := env.seedReport(env.employee.ID, model.ReportAccountingPending, nil)
		line := env.seedExpense(report.ID, "30.00", model.ExpensePending)

		_, err := env.expenses.RejectExpense(ctx, env.accountant.ID, line.ID, "")
		require.Error(t, err)
		assert.Equal(t, KindValidationFailed, KindOf(err))
	})
}

func TestExpenseReviewCascade(t *testing.T) {
	ctx := context.Background()

	t.Run("no transition while lines remain undecided", func(t *testing.T) {
		env := newTestEnv()
		p := env.seedPrepayment(env.employee.ID, model.PrepaymentApproved, "1000.00")
		report := env.seedReport(env.employee.ID, model.ReportAccountingPending, &p.ID)
		first := env.seedExpense(report.ID, "600.00", model.ExpensePending)
		env.seedExpense(report.ID, "400.00", model.ExpensePending)

		result, err := env.expenses.ApproveExpense(ctx, env.accountant.ID, first.ID)
		require.NoError(t, err)
		assert.Equal(t, string(model.ExpenseApproved), result.Expense.Status)
		assert.Nil(t, result.ReportTransition)
		assert.Equal(t, model.ReportAccountingPending, env.db.reports[report.ID].Status)
		assert.Empty(t, env.notifier.events)
	})

	t.Run("last approval settles the report", func(t *testing.T) {
		env := newTestEnv()
		p := env.seedPrepayment(env.employee.ID, model.PrepaymentApproved, "1000.00")
		report := env.seedReport(env.employee.ID, model.ReportAccountingPending, &p.ID)
		env.seedExpense(report.ID, "600.00", model.ExpenseApproved)
		last := env.seedExpense(report.ID, "400.00", model.ExpensePending)

		result, err := env.expenses.ApproveExpense(ctx, env.accountant.ID, last.ID)
		require.NoError(t, err)
		require.NotNil(t, result.ReportTransition)
		assert.Equal(t, string(model.ReportApprovedExpenses), result.ReportTransition.NewStatus)

		stored := env.db.reports[report.ID]
		assert.Equal(t, model.ReportApprovedExpenses, stored.Status)
		assert.NotEmpty(t, stored.SAPExpensesFile)
		assert.Equal(t, 1, env.sapGen.expensesCalls)

		require.Len(t, env.notifier.events, 1)
		assert.Equal(t, EventReportApproved, env.notifier.events[0].Event)
	})

	t.Run("last decision with a rejected line rejects the report", func(t *testing.T) {
		env := newTestEnv()
		p := env.seedPrepayment(env.employee.ID, model.PrepaymentApproved, "1000.00")
		report := env.seedReport(env.employee.ID, model.ReportAccountingPending, &p.ID)
		env.seedExpense(report.ID, "600.00", model.ExpenseApproved)
		last := env.seedExpense(report.ID, "400.00", model.ExpensePending)

		result, err := env.expenses.RejectExpense(ctx, env.accountant.ID, last.ID, "duplicate receipt")
		require.NoError(t, err)
		require.NotNil(t, result.ReportTransition)
		assert.Equal(t, string(model.ReportRejected), result.ReportTransition.NewStatus)

		stored := env.db.reports[report.ID]
		assert.Equal(t, model.ReportRejected, stored.Status)
		assert.Contains(t, stored.RejectionReason, "rejected during accounting review")
		// No settlement happened.
		assert.Zero(t, env.sapGen.expensesCalls)

		rejections, err := (&fakeHistoryRepo{db: env.db}).ListExpenseRejections(ctx, report.ID)
		require.NoError(t, err)
		require.Len(t, rejections, 1)
		assert.Equal(t, last.ID, rejections[0].ExpenseID)
		assert.Equal(t, "duplicate receipt", rejections[0].Reason)

		require.Len(t, env.notifier.events, 1)
		assert.Equal(t, EventReportRejected, env.notifier.events[0].Event)
	})

	t.Run("cascade into the over budget branch", func(t *testing.T) {
		env := newTestEnv()
		p := env.seedPrepayment(env.employee.ID, model.PrepaymentApproved, "1000.00")
		report := env.seedReport(env.employee.ID, model.ReportAccountingPending, &p.ID)
		last := env.seedExpense(report.ID, "1200.00", model.ExpensePending)

		result, err := env.expenses.ApproveExpense(ctx, env.accountant.ID, last.ID)
		require.NoError(t, err)
		require.NotNil(t, result.ReportTransition)
		assert.Equal(t, string(model.ReportApprovedForReimbursement), result.ReportTransition.NewStatus)
		assert.Equal(t, 1, env.sapGen.compensationCalls)
		assert.Equal(t, []string{"1000.00"}, env.sapGen.compensationPrepaids)
	})

	t.Run("sap failure rolls the decision back", func(t *testing.T) {
		env := newTestEnv()
		env.sapGen.failExpenses = true
		p := env.seedPrepayment(env.employee.ID, model.PrepaymentApproved, "1000.00")
		report := env.seedReport(env.employee.ID, model.ReportAccountingPending, &p.ID)
		last := env.seedExpense(report.ID, "1000.00", model.ExpensePending)

		_, err := env.expenses.ApproveExpense(ctx, env.accountant.ID, last.ID)
		require.Error(t, err)
		assert.Equal(t, KindDependencyFailure, KindOf(err))

		// The line decision itself is undone with the transition.
		assert.Equal(t, model.ExpensePending, env.db.expenses[last.ID].Status)
		assert.Equal(t, model.ReportAccountingPending, env.db.reports[report.ID].Status)
	})
}
