package service

import (
	"context"
	"fmt"

	"travel-expense-api/internal/budget"
	"travel-expense-api/internal/model"
	"travel-expense-api/internal/repository"

	"github.com/shopspring/decimal"
)

// settlement holds the shared accounting-approval branch. Both the batch
// report approval and the per-expense review cascade end up here once every
// line on the report is accepted.
type settlement struct {
	reportRepo     repository.ReportRepository
	prepaymentRepo repository.PrepaymentRepository
	expenseRepo    repository.ExpenseRepository
	userRepo       repository.UserRepository
	sapGen         SAPFileGenerator
	audit          auditTrail
}

// finalizeAccountingApproval applies the three-way budget branch and moves the
// report to its settlement status. The SAP expenses file is generated before
// the status change commits; a generation failure aborts the transition.
func (s *settlement) finalizeAccountingApproval(ctx context.Context, actor *model.User,
	report *model.TravelExpenseReport, expenses []model.Expense) (TransitionResult, error) {

	total := decimal.Zero
	for i := range expenses {
		total = total.Add(expenses[i].Amount)
	}

	prepaid := decimal.Zero
	linked := report.IsPrepaymentLinked()
	if linked {
		prepayment, err := s.prepaymentRepo.FindByID(ctx, *report.PrepaymentID)
		if err != nil {
			return TransitionResult{}, errNotFound("linked prepayment not found")
		}
		prepaid = prepayment.Amount
	}

	outcome := budget.Evaluate(total, prepaid, linked)

	expensesFile, err := s.sapGen.GenerateExpensesFile(ctx, report, expenses)
	if err != nil {
		return TransitionResult{}, errDependency("failed to generate SAP expenses file", err)
	}
	report.SAPExpensesFile = expensesFile

	from := report.Status
	var message string
	switch outcome {
	case budget.Equal:
		report.Status = model.ReportApprovedExpenses
		message = "expenses match the prepaid amount; report approved"
		if err := s.approveAllExpenses(ctx, expenses); err != nil {
			return TransitionResult{}, err
		}

	case budget.Over:
		if err := s.requireTreasuryApprover(ctx); err != nil {
			return TransitionResult{}, err
		}
		compensationFile, genErr := s.sapGen.GenerateCompensationFile(ctx, report, expenses, prepaid)
		if genErr != nil {
			return TransitionResult{}, errDependency("failed to generate SAP compensation file", genErr)
		}
		report.SAPCompensationFile = compensationFile
		report.Status = model.ReportApprovedForReimbursement
		message = "expenses exceed the prepaid amount; pending treasury reimbursement"

	case budget.Under:
		if err := s.requireTreasuryApprover(ctx); err != nil {
			return TransitionResult{}, err
		}
		report.Status = model.ReportFundsReturnPending
		message = "expenses are below the prepaid amount; pending fund return"
	}

	if err := s.reportRepo.Update(ctx, report); err != nil {
		return TransitionResult{}, fmt.Errorf("failed to update report: %w", err)
	}
	if err := s.audit.recordDecision(ctx, model.EntityReport, report.ID, actor, model.DecisionApproved, ""); err != nil {
		return TransitionResult{}, err
	}
	comment := fmt.Sprintf("budget comparison: %s (expenses %s vs prepaid %s)",
		outcome, total.StringFixed(2), prepaid.StringFixed(2))
	if err := s.audit.recordTransition(ctx, model.EntityReport, report.ID, actor,
		model.ActionApproved, string(from), string(report.Status), comment, nil); err != nil {
		return TransitionResult{}, err
	}

	return TransitionResult{NewStatus: string(report.Status), Message: message}, nil
}

// requireTreasuryApprover fails the transition when nobody can receive it.
// Unlike the supervisor stage there is no revert here; the report stays put.
func (s *settlement) requireTreasuryApprover(ctx context.Context) error {
	count, err := s.userRepo.CountApprovers(ctx, model.ProfileTreasury)
	if err != nil {
		return fmt.Errorf("failed to count treasury approvers: %w", err)
	}
	if count == 0 {
		return errPrecondition("no treasury users available")
	}
	return nil
}

func (s *settlement) approveAllExpenses(ctx context.Context, expenses []model.Expense) error {
	for i := range expenses {
		expense := &expenses[i]
		if expense.Status == model.ExpenseApproved {
			continue
		}
		expense.Status = model.ExpenseApproved
		expense.RejectionReason = ""
		if err := s.expenseRepo.Update(ctx, expense); err != nil {
			return fmt.Errorf("failed to approve expense: %w", err)
		}
	}
	return nil
}
