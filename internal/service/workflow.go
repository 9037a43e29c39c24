package service

import (
	"context"
	"encoding/json"
	"time"

	"travel-expense-api/internal/model"
	"travel-expense-api/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransitionResult is what every workflow operation returns to its caller.
type TransitionResult struct {
	NewStatus string `json:"new_status"`
	Message   string `json:"message"`
	// CreatedReportID is set when approving a prepayment auto-creates its
	// linked expense report.
	CreatedReportID *uuid.UUID `json:"created_report_id,omitempty"`
	// ExpenseUpdates maps expense id -> resulting status for operations that
	// touch individual lines.
	ExpenseUpdates map[string]string `json:"expense_updates,omitempty"`
}

// Notifier is the fire-and-forget notification sink. Implementations must
// never block the caller and never surface delivery failures; a transition
// commits whether or not anyone hears about it.
type Notifier interface {
	Notify(event string, entityType string, entityID uuid.UUID, payload map[string]any)
}

// Notification event names
const (
	EventPrepaymentSubmitted = "prepayment.submitted"
	EventPrepaymentApproved  = "prepayment.approved"
	EventPrepaymentRejected  = "prepayment.rejected"
	EventPrepaymentReturned  = "prepayment.returned"
	EventReportSubmitted     = "report.submitted"
	EventReportApproved      = "report.approved"
	EventReportRejected      = "report.rejected"
	EventReportReturned      = "report.returned"
	EventFundReturnSubmitted = "report.fund_return_submitted"
)

// SAPFileGenerator produces the accounting export files. Generation happens
// inside the transition transaction: a failure aborts the transition before
// any status change (document generation is a precondition of that
// transition, not a side effect).
type SAPFileGenerator interface {
	GenerateExpensesFile(ctx context.Context, report *model.TravelExpenseReport, expenses []model.Expense) (string, error)
	GenerateCompensationFile(ctx context.Context, report *model.TravelExpenseReport, expenses []model.Expense, prepaid decimal.Decimal) (string, error)
}

// ExpenseRejection is the per-line payload accepted by reject operations and
// serialized into ApprovalHistory.ExpenseRejections.
type ExpenseRejection struct {
	ExpenseID string `json:"expense_id" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

// auditTrail appends the append-only records every transition produces.
type auditTrail struct {
	historyRepo repository.HistoryRepository
}

// recordTransition appends exactly one ApprovalHistory row for a status change.
func (a *auditTrail) recordTransition(ctx context.Context, entityType string, entityID uuid.UUID,
	actor *model.User, action string, fromStatus, toStatus, comments string, rejections []ExpenseRejection) error {

	entry := &model.ApprovalHistory{
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     &actor.ID,
		Role:       actor.Profile,
		Action:     action,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		Comments:   comments,
	}
	if len(rejections) > 0 {
		serialized, err := json.Marshal(rejections)
		if err != nil {
			return err
		}
		entry.ExpenseRejections = string(serialized)
	}
	return a.historyRepo.AppendHistory(ctx, entry)
}

// recordDecision appends exactly one Approval row for an approve/reject call.
func (a *auditTrail) recordDecision(ctx context.Context, entityType string, entityID uuid.UUID,
	approver *model.User, status, rejectionReason string) error {

	return a.historyRepo.AppendApproval(ctx, &model.Approval{
		EntityType:      entityType,
		EntityID:        entityID,
		ApproverID:      approver.ID,
		Status:          status,
		ApprovalLevel:   1,
		RejectionReason: rejectionReason,
		ApprovedAt:      time.Now(),
	})
}
