package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"travel-expense-api/internal/model"
	"travel-expense-api/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateReimbursementRequest struct {
	Reason     string `json:"reason" binding:"required"`
	CountryID  string `json:"country_id" binding:"required"`
	CurrencyID string `json:"currency_id" binding:"required"`
	StartDate  string `json:"start_date" binding:"required"`
	EndDate    string `json:"end_date" binding:"required"`
}

type RejectReportRequest struct {
	// Reason rejects the report as a whole.
	Reason string `json:"reason"`
	// ExpenseRejections rejects individual lines; at least one entry is
	// required when Reason is empty.
	ExpenseRejections []ExpenseRejection `json:"expense_rejections"`
}

type FundReturnRequest struct {
	DocumentNumber string   `json:"document_number" binding:"required"`
	Files          []string `json:"files"`
}

type ReportFilter struct {
	Status     string
	ReportType string
	Page       int
	Limit      int
}

type ReportResponse struct {
	ID                   string  `json:"id"`
	ReportType           string  `json:"report_type"`
	PrepaymentID         *string `json:"prepayment_id,omitempty"`
	Status               string  `json:"status"`
	RequesterID          string  `json:"requester_id"`
	RequesterName        string  `json:"requester_name,omitempty"`
	Reason               string  `json:"reason,omitempty"`
	RejectionReason      string  `json:"rejection_reason,omitempty"`
	ReturnDocumentNumber string  `json:"return_document_number,omitempty"`
	SAPExpensesFile      string  `json:"sap_expenses_file,omitempty"`
	SAPCompensationFile  string  `json:"sap_compensation_file,omitempty"`
	TotalExpenses        string  `json:"total_expenses"`
	PrepaidAmount        string  `json:"prepaid_amount"`
	CreatedAt            string  `json:"created_at"`
}

// --- Interface ---

// ReportService runs the travel expense report approval state machine,
// including the budget branch after accounting approval and the fund-return
// sub-flow.
type ReportService interface {
	CreateReimbursement(ctx context.Context, actorID uuid.UUID, req CreateReimbursementRequest) (ReportResponse, error)
	Get(ctx context.Context, actorID, id uuid.UUID) (ReportResponse, error)
	List(ctx context.Context, actorID uuid.UUID, filter ReportFilter) ([]ReportResponse, int64, error)

	Submit(ctx context.Context, actorID, id uuid.UUID) (TransitionResult, error)
	Approve(ctx context.Context, actorID, id uuid.UUID) (TransitionResult, error)
	Reject(ctx context.Context, actorID, id uuid.UUID, req RejectReportRequest) (TransitionResult, error)
	SubmitFundReturn(ctx context.Context, actorID, id uuid.UUID, req FundReturnRequest) (TransitionResult, error)
}

type reportService struct {
	reportRepo     repository.ReportRepository
	prepaymentRepo repository.PrepaymentRepository
	expenseRepo    repository.ExpenseRepository
	userRepo       repository.UserRepository
	txManager      repository.TransactionManager
	notifier       Notifier
	audit          auditTrail
	settle         settlement
}

func NewReportService(
	reportRepo repository.ReportRepository,
	prepaymentRepo repository.PrepaymentRepository,
	expenseRepo repository.ExpenseRepository,
	userRepo repository.UserRepository,
	historyRepo repository.HistoryRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
	sapGen SAPFileGenerator,
) ReportService {
	audit := auditTrail{historyRepo: historyRepo}
	return &reportService{
		reportRepo:     reportRepo,
		prepaymentRepo: prepaymentRepo,
		expenseRepo:    expenseRepo,
		userRepo:       userRepo,
		txManager:      txManager,
		notifier:       notifier,
		audit:          audit,
		settle: settlement{
			reportRepo:     reportRepo,
			prepaymentRepo: prepaymentRepo,
			expenseRepo:    expenseRepo,
			userRepo:       userRepo,
			sapGen:         sapGen,
			audit:          audit,
		},
	}
}

// --- Implementation ---

func (s *reportService) CreateReimbursement(ctx context.Context, actorID uuid.UUID, req CreateReimbursementRequest) (ReportResponse, error) {
	countryID, err := uuid.Parse(req.CountryID)
	if err != nil {
		return ReportResponse{}, errValidation("invalid country_id")
	}
	currencyID, err := uuid.Parse(req.CurrencyID)
	if err != nil {
		return ReportResponse{}, errValidation("invalid currency_id")
	}
	startDate, endDate, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return ReportResponse{}, err
	}

	report := &model.TravelExpenseReport{
		ReportType:  model.ReportTypeReimbursement,
		Status:      model.ReportPending,
		RequesterID: actorID,
		Reason:      req.Reason,
		CountryID:   &countryID,
		CurrencyID:  &currencyID,
		StartDate:   &startDate,
		EndDate:     &endDate,
	}
	if err := s.reportRepo.Create(ctx, report); err != nil {
		return ReportResponse{}, fmt.Errorf("failed to create report: %w", err)
	}

	return s.toResponse(ctx, report), nil
}

func (s *reportService) Get(ctx context.Context, actorID, id uuid.UUID) (ReportResponse, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return ReportResponse{}, err
	}

	report, err := s.reportRepo.FindByIDWithRelations(ctx, id)
	if err != nil {
		return ReportResponse{}, errNotFound("report not found")
	}
	if !actor.IsSuperuser && actor.Profile == model.ProfileEmployee && report.RequesterID != actor.ID {
		return ReportResponse{}, errForbidden("only the requester may view this report")
	}

	return s.toResponse(ctx, report), nil
}

func (s *reportService) List(ctx context.Context, actorID uuid.UUID, filter ReportFilter) ([]ReportResponse, int64, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, 0, err
	}

	repoFilter := repository.ReportFilter{
		ReportType: filter.ReportType,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}
	if filter.Status != "" {
		status, parseErr := model.ParseReportStatus(filter.Status)
		if parseErr != nil {
			return nil, 0, errValidation("invalid status filter: %v", parseErr)
		}
		repoFilter.Status = status
	}
	if !actor.IsSuperuser && actor.Profile == model.ProfileEmployee {
		repoFilter.RequesterID = &actor.ID
	}

	reports, total, err := s.reportRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}

	result := make([]ReportResponse, 0, len(reports))
	for i := range reports {
		result = append(result, s.toResponse(ctx, &reports[i]))
	}
	return result, total, nil
}

// Submit moves PENDING or REJECTED to SUPERVISOR_PENDING. Previously rejected
// expense lines are reset to PENDING so they re-enter the next review cycle.
func (s *reportService) Submit(ctx context.Context, actorID, id uuid.UUID) (TransitionResult, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return TransitionResult{}, err
	}

	var result TransitionResult
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		report, txErr := s.lockReport(txCtx, id)
		if txErr != nil {
			return txErr
		}

		if report.Status != model.ReportPending && report.Status != model.ReportRejected {
			return errInvalidTransition("cannot submit a report in status %s", report.Status)
		}
		if guardErr := guardOwnerOrSuperuser(actor, report.RequesterID); guardErr != nil {
			return guardErr
		}

		requester, txErr := s.userRepo.GetByIDWithSupervisor(txCtx, report.RequesterID)
		if txErr != nil {
			return errNotFound("requesting user not found")
		}
		if guardErr := guardSubmittable(requester); guardErr != nil {
			return guardErr
		}

		expenses, txErr := s.expenseRepo.ListByReport(txCtx, report.ID)
		if txErr != nil {
			return fmt.Errorf("failed to load expenses: %w", txErr)
		}
		if len(expenses) == 0 {
			return errValidation("cannot submit a report without expenses")
		}

		updates := make(map[string]string)
		for i := range expenses {
			expense := &expenses[i]
			if expense.Status == model.ExpenseRejected {
				expense.Status = model.ExpensePending
				expense.RejectionReason = ""
				if txErr := s.expenseRepo.Update(txCtx, expense); txErr != nil {
					return fmt.Errorf("failed to reset expense: %w", txErr)
				}
				updates[expense.ID.String()] = string(model.ExpensePending)
			}
		}

		from := report.Status
		report.Status = model.ReportSupervisorPending
		if txErr := s.reportRepo.Update(txCtx, report); txErr != nil {
			return fmt.Errorf("failed to update report: %w", txErr)
		}

		if txErr := s.audit.recordTransition(txCtx, model.EntityReport, report.ID, actor,
			model.ActionSubmitted, string(from), string(report.Status), "", nil); txErr != nil {
			return txErr
		}

		result = TransitionResult{
			NewStatus:      string(report.Status),
			Message:        "report submitted for supervisor review",
			ExpenseUpdates: updates,
		}
		return nil
	})
	if err != nil {
		return TransitionResult{}, err
	}

	s.notifier.Notify(EventReportSubmitted, model.EntityReport, id, map[string]any{"status": result.NewStatus})
	return result, nil
}

// Approve advances the report through whichever stage its status selects.
func (s *reportService) Approve(ctx context.Context, actorID, id uuid.UUID) (TransitionResult, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return TransitionResult{}, err
	}

	var result TransitionResult
	var preconditionErr error
	event := EventReportApproved

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		report, txErr := s.lockReport(txCtx, id)
		if txErr != nil {
			return txErr
		}

		switch report.Status {
		case model.ReportSupervisorPending:
			res, revertErr, txErr := s.supervisorApprove(txCtx, actor, report)
			if txErr != nil {
				return txErr
			}
			result = res
			if revertErr != nil {
				preconditionErr = revertErr
				event = EventReportReturned
			}
			return nil

		case model.ReportAccountingPending:
			res, txErr := s.accountingApprove(txCtx, actor, report)
			if txErr != nil {
				return txErr
			}
			result = res
			return nil

		case model.ReportTreasuryPending, model.ReportApprovedForReimbursement, model.ReportReviewReturn:
			res, txErr := s.treasuryApprove(txCtx, actor, report)
			if txErr != nil {
				return txErr
			}
			result = res
			return nil

		default:
			return errInvalidTransition("cannot approve a report in status %s", report.Status)
		}
	})
	if err != nil {
		return TransitionResult{}, err
	}

	s.notifier.Notify(event, model.EntityReport, id, map[string]any{"status": result.NewStatus})
	if preconditionErr != nil {
		return result, preconditionErr
	}
	return result, nil
}

// supervisorApprove forwards SUPERVISOR_PENDING to ACCOUNTING_PENDING, or
// reverts to PENDING when no accounting approver exists.
func (s *reportService) supervisorApprove(ctx context.Context, actor *model.User, report *model.TravelExpenseReport) (TransitionResult, error, error) {
	requester, err := s.userRepo.GetByIDWithSupervisor(ctx, report.RequesterID)
	if err != nil {
		return TransitionResult{}, nil, errNotFound("requesting user not found")
	}
	if guardErr := guardSupervisorOf(actor, requester); guardErr != nil {
		return TransitionResult{}, nil, guardErr
	}

	count, err := s.userRepo.CountApprovers(ctx, model.ProfileAccounting)
	if err != nil {
		return TransitionResult{}, nil, fmt.Errorf("failed to count accounting approvers: %w", err)
	}
	if count == 0 {
		from := report.Status
		report.Status = model.ReportPending
		if err := s.reportRepo.Update(ctx, report); err != nil {
			return TransitionResult{}, nil, fmt.Errorf("failed to revert report: %w", err)
		}
		if err := s.audit.recordTransition(ctx, model.EntityReport, report.ID, actor,
			model.ActionReturned, string(from), string(model.ReportPending), "no accounting users available", nil); err != nil {
			return TransitionResult{}, nil, err
		}
		return TransitionResult{NewStatus: string(model.ReportPending), Message: "no accounting users available"},
			errPrecondition("no accounting users available"), nil
	}

	from := report.Status
	report.Status = model.ReportAccountingPending
	if err := s.reportRepo.Update(ctx, report); err != nil {
		return TransitionResult{}, nil, fmt.Errorf("failed to update report: %w", err)
	}
	if err := s.audit.recordDecision(ctx, model.EntityReport, report.ID, actor, model.DecisionApproved, ""); err != nil {
		return TransitionResult{}, nil, err
	}
	if err := s.audit.recordTransition(ctx, model.EntityReport, report.ID, actor,
		model.ActionApproved, string(from), string(report.Status), "", nil); err != nil {
		return TransitionResult{}, nil, err
	}

	return TransitionResult{NewStatus: string(report.Status), Message: "report forwarded for accounting review"}, nil, nil
}

// accountingApprove runs the budget comparison and routes the report to the
// matching settlement branch. The SAP expenses file is generated before the
// status change commits; its failure aborts the whole transition.
func (s *reportService) accountingApprove(ctx context.Context, actor *model.User, report *model.TravelExpenseReport) (TransitionResult, error) {
	if guardErr := guardProfileApprover(actor, model.ProfileAccounting); guardErr != nil {
		return TransitionResult{}, guardErr
	}

	expenses, err := s.expenseRepo.ListByReport(ctx, report.ID)
	if err != nil {
		return TransitionResult{}, fmt.Errorf("failed to load expenses: %w", err)
	}
	for i := range expenses {
		if expenses[i].Status == model.ExpenseRejected || expenses[i].RejectionReason != "" {
			return TransitionResult{}, errValidation("report has rejected expenses that must be resolved first")
		}
	}

	return s.settle.finalizeAccountingApproval(ctx, actor, report, expenses)
}

// treasuryApprove settles the report. Every expense line is marked APPROVED.
func (s *reportService) treasuryApprove(ctx context.Context, actor *model.User, report *model.TravelExpenseReport) (TransitionResult, error) {
	if guardErr := guardProfileApprover(actor, model.ProfileTreasury); guardErr != nil {
		return TransitionResult{}, guardErr
	}

	from := report.Status
	var message string
	switch report.Status {
	case model.ReportApprovedForReimbursement:
		report.Status = model.ReportApprovedRepaid
		message = "reimbursement paid; report settled"
	case model.ReportReviewReturn:
		report.Status = model.ReportApprovedReturnedFunds
		message = "returned funds accepted; report settled"
	default: // legacy direct treasury path
		report.Status = model.ReportApprovedExpenses
		message = "report approved"
	}

	expenses, err := s.expenseRepo.ListByReport(ctx, report.ID)
	if err != nil {
		return TransitionResult{}, fmt.Errorf("failed to load expenses: %w", err)
	}
	if err := s.settle.approveAllExpenses(ctx, expenses); err != nil {
		return TransitionResult{}, err
	}

	if err := s.reportRepo.Update(ctx, report); err != nil {
		return TransitionResult{}, fmt.Errorf("failed to update report: %w", err)
	}
	if err := s.audit.recordDecision(ctx, model.EntityReport, report.ID, actor, model.DecisionApproved, ""); err != nil {
		return TransitionResult{}, err
	}
	if err := s.audit.recordTransition(ctx, model.EntityReport, report.ID, actor,
		model.ActionApproved, string(from), string(report.Status), "", nil); err != nil {
		return TransitionResult{}, err
	}

	updates := make(map[string]string, len(expenses))
	for i := range expenses {
		updates[expenses[i].ID.String()] = string(model.ExpenseApproved)
	}
	return TransitionResult{NewStatus: string(report.Status), Message: message, ExpenseUpdates: updates}, nil
}

// Reject moves the report to REJECTED. The exception is REVIEW_RETURN, where
// a treasury rejection only bounces the return documents back to
// FUNDS_RETURN_PENDING for the employee to resubmit.
func (s *reportService) Reject(ctx context.Context, actorID, id uuid.UUID, req RejectReportRequest) (TransitionResult, error) {
	if req.Reason == "" && len(req.ExpenseRejections) == 0 {
		return TransitionResult{}, errValidation("a rejection reason is required")
	}

	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return TransitionResult{}, err
	}

	var result TransitionResult
	event := EventReportRejected
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		report, txErr := s.lockReport(txCtx, id)
		if txErr != nil {
			return txErr
		}

		switch report.Status {
		case model.ReportSupervisorPending:
			requester, txErr := s.userRepo.GetByIDWithSupervisor(txCtx, report.RequesterID)
			if txErr != nil {
				return errNotFound("requesting user not found")
			}
			if guardErr := guardSupervisorOf(actor, requester); guardErr != nil {
				return guardErr
			}

		case model.ReportAccountingPending:
			if guardErr := guardProfileApprover(actor, model.ProfileAccounting); guardErr != nil {
				return guardErr
			}
			// Accounting rejects line by line.
			if len(req.ExpenseRejections) == 0 {
				return errValidation("at least one expense rejection reason is required")
			}

		case model.ReportTreasuryPending, model.ReportApprovedForReimbursement, model.ReportReviewReturn:
			if guardErr := guardProfileApprover(actor, model.ProfileTreasury); guardErr != nil {
				return guardErr
			}

		default:
			return errInvalidTransition("cannot reject a report in status %s", report.Status)
		}

		if txErr := s.applyExpenseRejections(txCtx, actor, report, req.ExpenseRejections); txErr != nil {
			return txErr
		}

		from := report.Status
		action := model.ActionRejected
		message := "report rejected"

		if report.Status == model.ReportReviewReturn {
			// Return documents were rejected, not the report itself.
			report.Status = model.ReportFundsReturnPending
			action = model.ActionReturned
			message = "return documents rejected; please resubmit"
			event = EventReportReturned
		} else {
			report.Status = model.ReportRejected
		}
		report.RejectionReason = req.Reason

		if txErr := s.reportRepo.Update(txCtx, report); txErr != nil {
			return fmt.Errorf("failed to update report: %w", txErr)
		}
		if txErr := s.audit.recordDecision(txCtx, model.EntityReport, report.ID, actor,
			model.DecisionRejected, req.Reason); txErr != nil {
			return txErr
		}
		if txErr := s.audit.recordTransition(txCtx, model.EntityReport, report.ID, actor,
			action, string(from), string(report.Status), req.Reason, req.ExpenseRejections); txErr != nil {
			return txErr
		}

		updates := make(map[string]string, len(req.ExpenseRejections))
		for _, rejection := range req.ExpenseRejections {
			updates[rejection.ExpenseID] = string(model.ExpenseRejected)
		}
		result = TransitionResult{NewStatus: string(report.Status), Message: message, ExpenseUpdates: updates}
		return nil
	})
	if err != nil {
		return TransitionResult{}, err
	}

	s.notifier.Notify(event, model.EntityReport, id, map[string]any{
		"status": result.NewStatus,
		"reason": req.Reason,
	})
	return result, nil
}

// SubmitFundReturn records the employee's return documents and moves
// FUNDS_RETURN_PENDING to REVIEW_RETURN.
func (s *reportService) SubmitFundReturn(ctx context.Context, actorID, id uuid.UUID, req FundReturnRequest) (TransitionResult, error) {
	if req.DocumentNumber == "" {
		return TransitionResult{}, errValidation("a return document number is required")
	}

	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return TransitionResult{}, err
	}

	var result TransitionResult
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		report, txErr := s.lockReport(txCtx, id)
		if txErr != nil {
			return txErr
		}

		if report.Status != model.ReportFundsReturnPending {
			return errInvalidTransition("cannot submit return documents for a report in status %s", report.Status)
		}
		if guardErr := guardOwnerOrSuperuser(actor, report.RequesterID); guardErr != nil {
			return guardErr
		}

		report.ReturnDocumentNumber = req.DocumentNumber
		if len(req.Files) > 0 {
			serialized, marshalErr := json.Marshal(req.Files)
			if marshalErr != nil {
				return marshalErr
			}
			report.ReturnDocumentFiles = string(serialized)
		}

		from := report.Status
		report.Status = model.ReportReviewReturn
		if txErr := s.reportRepo.Update(txCtx, report); txErr != nil {
			return fmt.Errorf("failed to update report: %w", txErr)
		}

		if txErr := s.audit.recordTransition(txCtx, model.EntityReport, report.ID, actor,
			model.ActionSubmitted, string(from), string(report.Status),
			"return documents submitted: "+req.DocumentNumber, nil); txErr != nil {
			return txErr
		}

		result = TransitionResult{NewStatus: string(report.Status), Message: "return documents submitted for treasury review"}
		return nil
	})
	if err != nil {
		return TransitionResult{}, err
	}

	s.notifier.Notify(EventFundReturnSubmitted, model.EntityReport, id, map[string]any{"status": result.NewStatus})
	return result, nil
}

// --- Helpers ---

func (s *reportService) loadActor(ctx context.Context, actorID uuid.UUID) (*model.User, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, errNotFound("acting user not found")
	}
	return actor, nil
}

func (s *reportService) lockReport(ctx context.Context, id uuid.UUID) (*model.TravelExpenseReport, error) {
	report, err := s.reportRepo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound("report not found")
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return report, nil
}

// applyExpenseRejections marks the named lines REJECTED and appends one
// ExpenseRejectionHistory record each.
func (s *reportService) applyExpenseRejections(ctx context.Context, actor *model.User,
	report *model.TravelExpenseReport, rejections []ExpenseRejection) error {

	for _, rejection := range rejections {
		if rejection.Reason == "" {
			return errValidation("every rejected expense needs a reason")
		}
		expenseID, err := uuid.Parse(rejection.ExpenseID)
		if err != nil {
			return errValidation("invalid expense id %q", rejection.ExpenseID)
		}
		expense, err := s.expenseRepo.FindByID(ctx, expenseID)
		if err != nil || expense.ReportID != report.ID {
			return errNotFound("expense %s not found on this report", rejection.ExpenseID)
		}

		expense.Status = model.ExpenseRejected
		expense.RejectionReason = rejection.Reason
		if err := s.expenseRepo.Update(ctx, expense); err != nil {
			return fmt.Errorf("failed to reject expense: %w", err)
		}

		if err := s.audit.historyRepo.AppendExpenseRejection(ctx, &model.ExpenseRejectionHistory{
			ExpenseID:  expense.ID,
			ReportID:   report.ID,
			Stage:      report.Status,
			RejectedBy: actor.ID,
			Reason:     rejection.Reason,
		}); err != nil {
			return fmt.Errorf("failed to record expense rejection: %w", err)
		}
	}
	return nil
}

func (s *reportService) toResponse(ctx context.Context, report *model.TravelExpenseReport) ReportResponse {
	resp := ReportResponse{
		ID:                   report.ID.String(),
		ReportType:           report.ReportType,
		Status:               string(report.Status),
		RequesterID:          report.RequesterID.String(),
		Reason:               report.Reason,
		RejectionReason:      report.RejectionReason,
		ReturnDocumentNumber: report.ReturnDocumentNumber,
		SAPExpensesFile:      report.SAPExpensesFile,
		SAPCompensationFile:  report.SAPCompensationFile,
		TotalExpenses:        "0.00",
		PrepaidAmount:        "0.00",
		CreatedAt:            report.CreatedAt.Format(time.RFC3339),
	}
	if report.PrepaymentID != nil {
		id := report.PrepaymentID.String()
		resp.PrepaymentID = &id
	}
	if report.Requester != nil {
		resp.RequesterName = report.Requester.Username
	}

	if expenses, err := s.expenseRepo.ListByReport(ctx, report.ID); err == nil {
		total := decimal.Zero
		for i := range expenses {
			total = total.Add(expenses[i].Amount)
		}
		resp.TotalExpenses = total.StringFixed(2)
	}
	if report.IsPrepaymentLinked() {
		if prepayment, err := s.prepaymentRepo.FindByID(ctx, *report.PrepaymentID); err == nil {
			resp.PrepaidAmount = prepayment.Amount.StringFixed(2)
		}
	}
	return resp
}
