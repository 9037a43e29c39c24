package service

import (
	"context"
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

type CreateExpenseRequest struct {
	ReportID       string `json:"report_id" binding:"required"`
	CategoryID     string `json:"category_id" binding:"required"`
	SupplierID     string `json:"supplier_id"`
	DocumentType   string `json:"document_type" binding:"required"`
	DocumentNumber string `json:"document_number" binding:"required"`
	Amount         string `json:"amount" binding:"required"`
	CurrencyID     string `json:"currency_id" binding:"required"`
	ExpenseDate    string `json:"expense_date" binding:"required"`
	Description    string `json:"description"`
	ReceiptFile    string `json:"receipt_file"`
}

type UpdateExpenseRequest struct {
	CategoryID     *string `json:"category_id"`
	SupplierID     *string `json:"supplier_id"`
	DocumentType   *string `json:"document_type"`
	DocumentNumber *string `json:"document_number"`
	Amount         *string `json:"amount"`
	CurrencyID     *string `json:"currency_id"`
	ExpenseDate    *string `json:"expense_date"`
	Description    *string `json:"description"`
	ReceiptFile    *string `json:"receipt_file"`
}

type ExpenseResponse struct {
	ID              string `json:"id"`
	ReportID        string `json:"report_id"`
	CategoryID      string `json:"category_id"`
	CategoryName    string `json:"category_name,omitempty"`
	SupplierID      string `json:"supplier_id,omitempty"`
	DocumentType    string `json:"document_type"`
	DocumentNumber  string `json:"document_number"`
	Amount          string `json:"amount"`
	CurrencyID      string `json:"currency_id"`
	ExpenseDate     string `json:"expense_date"`
	Description     string `json:"description,omitempty"`
	ReceiptFile     string `json:"receipt_file,omitempty"`
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// ExpenseReviewResult is returned by the per-line review operations. When the
// decision completed the report's accounting review, ReportTransition carries
// the resulting report status change.
type ExpenseReviewResult struct {
	Expense          ExpenseResponse   `json:"expense"`
	ReportTransition *TransitionResult `json:"report_transition,omitempty"`
}

// --- Interface ---

// ExpenseService manages expense lines on a report and runs the per-line
// accounting review. Lines are editable only while the report is PENDING or
// REJECTED; once every line is decided during accounting review the report
// itself advances or is rejected.
type ExpenseService interface {
	Create(ctx context.Context, actorID uuid.UUID, req CreateExpenseRequest) (ExpenseResponse, error)
	Get(ctx context.Context, actorID, id uuid.UUID) (ExpenseResponse, error)
	ListByReport(ctx context.Context, actorID, reportID uuid.UUID) ([]ExpenseResponse, error)
	Update(ctx context.Context, actorID, id uuid.UUID, req UpdateExpenseRequest) (ExpenseResponse, error)
	Delete(ctx context.Context, actorID, id uuid.UUID) error

	ApproveExpense(ctx context.Context, actorID, id uuid.UUID) (ExpenseReviewResult, error)
	RejectExpense(ctx context.Context, actorID, id uuid.UUID, reason string) (ExpenseReviewResult, error)
}

type expenseService struct {
	expenseRepo repository.ExpenseRepository
	reportRepo  repository.ReportRepository
	userRepo    repository.UserRepository
	historyRepo repository.HistoryRepository
	txManager   repository.TransactionManager
	notifier    Notifier
	settle      settlement
}

func NewExpenseService(
	expenseRepo repository.ExpenseRepository,
	reportRepo repository.ReportRepository,
	prepaymentRepo repository.PrepaymentRepository,
	userRepo repository.UserRepository,
	historyRepo repository.HistoryRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
	sapGen SAPFileGenerator,
) ExpenseService {
	return &expenseService{
		expenseRepo: expenseRepo,
		reportRepo:  reportRepo,
		userRepo:    userRepo,
		historyRepo: historyRepo,
		txManager:   txManager,
		notifier:    notifier,
		settle: settlement{
			reportRepo:     reportRepo,
			prepaymentRepo: prepaymentRepo,
			expenseRepo:    expenseRepo,
			userRepo:       userRepo,
			sapGen:         sapGen,
			audit:          auditTrail{historyRepo: historyRepo},
		},
	}
}

// --- CRUD ---

func (s *expenseService) Create(ctx context.Context, actorID uuid.UUID, req CreateExpenseRequest) (ExpenseResponse, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return ExpenseResponse{}, err
	}

	reportID, err := uuid.Parse(req.ReportID)
	if err != nil {
		return ExpenseResponse{}, errValidation("invalid report_id")
	}
	report, err := s.reportRepo.FindByIDWithRelations(ctx, reportID)
	if err != nil {
		return ExpenseResponse{}, errNotFound("report not found")
	}
	if guardErr := s.guardEditable(actor, report); guardErr != nil {
		return ExpenseResponse{}, guardErr
	}

	expense, err := s.buildExpense(report, req)
	if err != nil {
		return ExpenseResponse{}, err
	}
	if err := s.expenseRepo.Create(ctx, expense); err != nil {
		return ExpenseResponse{}, fmt.Errorf("failed to create expense: %w", err)
	}
	return toExpenseResponse(expense), nil
}

func (s *expenseService) Get(ctx context.Context, actorID, id uuid.UUID) (ExpenseResponse, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return ExpenseResponse{}, err
	}
	expense, err := s.expenseRepo.FindByID(ctx, id)
	if err != nil {
		return ExpenseResponse{}, errNotFound("expense not found")
	}
	report, err := s.reportRepo.FindByID(ctx, expense.ReportID)
	if err != nil {
		return ExpenseResponse{}, errNotFound("report not found")
	}
	if !actor.IsSuperuser && actor.Profile == model.ProfileEmployee && report.RequesterID != actor.ID {
		return ExpenseResponse{}, errForbidden("only the requester may view this expense")
	}
	return toExpenseResponse(expense), nil
}

func (s *expenseService) ListByReport(ctx context.Context, actorID, reportID uuid.UUID) ([]ExpenseResponse, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	report, err := s.reportRepo.FindByID(ctx, reportID)
	if err != nil {
		return nil, errNotFound("report not found")
	}
	if !actor.IsSuperuser && actor.Profile == model.ProfileEmployee && report.RequesterID != actor.ID {
		return nil, errForbidden("only the requester may view these expenses")
	}

	expenses, err := s.expenseRepo.ListByReport(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	result := make([]ExpenseResponse, 0, len(expenses))
	for i := range expenses {
		result = append(result, toExpenseResponse(&expenses[i]))
	}
	return result, nil
}

func (s *expenseService) Update(ctx context.Context, actorID, id uuid.UUID, req UpdateExpenseRequest) (ExpenseResponse, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return ExpenseResponse{}, err
	}
	expense, err := s.expenseRepo.FindByID(ctx, id)
	if err != nil {
		return ExpenseResponse{}, errNotFound("expense not found")
	}
	report, err := s.reportRepo.FindByIDWithRelations(ctx, expense.ReportID)
	if err != nil {
		return ExpenseResponse{}, errNotFound("report not found")
	}
	if guardErr := s.guardEditable(actor, report); guardErr != nil {
		return ExpenseResponse{}, guardErr
	}

	if err := s.applyUpdates(expense, report, req); err != nil {
		return ExpenseResponse{}, err
	}
	if err := s.expenseRepo.Update(ctx, expense); err != nil {
		return ExpenseResponse{}, fmt.Errorf("failed to update expense: %w", err)
	}
	return toExpenseResponse(expense), nil
}

func (s *expenseService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return err
	}
	expense, err := s.expenseRepo.FindByID(ctx, id)
	if err != nil {
		return errNotFound("expense not found")
	}
	report, err := s.reportRepo.FindByID(ctx, expense.ReportID)
	if err != nil {
		return errNotFound("report not found")
	}
	if guardErr := s.guardEditable(actor, report); guardErr != nil {
		return guardErr
	}
	if err := s.expenseRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}

// --- Review sub-machine ---

// ApproveExpense accepts a single line during accounting review. Once the
// decision on the last undecided line lands, the report either moves to its
// settlement branch (all lines accepted) or to REJECTED (any line rejected).
func (s *expenseService) ApproveExpense(ctx context.Context, actorID, id uuid.UUID) (ExpenseReviewResult, error) {
	return s.review(ctx, actorID, id, model.ExpenseApproved, "")
}

// RejectExpense rejects a single line with a reason.
func (s *expenseService) RejectExpense(ctx context.Context, actorID, id uuid.UUID, reason string) (ExpenseReviewResult, error) {
	if reason == "" {
		return ExpenseReviewResult{}, errValidation("a rejection reason is required")
	}
	return s.review(ctx, actorID, id, model.ExpenseRejected, reason)
}

func (s *expenseService) review(ctx context.Context, actorID, id uuid.UUID,
	decision model.ExpenseStatus, reason string) (ExpenseReviewResult, error) {

	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return ExpenseReviewResult{}, err
	}
	if guardErr := guardProfileApproverOrSuperuser(actor, model.ProfileAccounting); guardErr != nil {
		return ExpenseReviewResult{}, guardErr
	}

	var result ExpenseReviewResult
	var reportID uuid.UUID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		expense, txErr := s.expenseRepo.FindByIDForUpdate(txCtx, id)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return errNotFound("expense not found")
			}
			return fmt.Errorf("failed to load expense: %w", txErr)
		}

		report, txErr := s.reportRepo.FindByIDForUpdate(txCtx, expense.ReportID)
		if txErr != nil {
			return errNotFound("report not found")
		}
		if report.Status != model.ReportAccountingPending {
			return errInvalidTransition("expenses can only be reviewed while the report is in status %s",
				model.ReportAccountingPending)
		}
		reportID = report.ID

		expense.Status = decision
		expense.RejectionReason = reason
		if txErr := s.expenseRepo.Update(txCtx, expense); txErr != nil {
			return fmt.Errorf("failed to update expense: %w", txErr)
		}
		if decision == model.ExpenseRejected {
			if txErr := s.historyRepo.AppendExpenseRejection(txCtx, &model.ExpenseRejectionHistory{
				ExpenseID:  expense.ID,
				ReportID:   report.ID,
				Stage:      report.Status,
				RejectedBy: actor.ID,
				Reason:     reason,
			}); txErr != nil {
				return fmt.Errorf("failed to record expense rejection: %w", txErr)
			}
		}

		result.Expense = toExpenseResponse(expense)

		transition, txErr := s.cascade(txCtx, actor, report)
		if txErr != nil {
			return txErr
		}
		result.ReportTransition = transition
		return nil
	})
	if err != nil {
		return ExpenseReviewResult{}, err
	}

	if result.ReportTransition != nil {
		event := EventReportApproved
		if result.ReportTransition.NewStatus == string(model.ReportRejected) {
			event = EventReportRejected
		}
		s.notifier.Notify(event, model.EntityReport, reportID, map[string]any{
			"status": result.ReportTransition.NewStatus,
		})
	}
	return result, nil
}

// cascade checks whether every line on the report has been decided and, if so,
// finishes the accounting review. Returns nil while lines are still pending.
func (s *expenseService) cascade(ctx context.Context, actor *model.User,
	report *model.TravelExpenseReport) (*TransitionResult, error) {

	expenses, err := s.expenseRepo.ListByReport(ctx, report.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	anyRejected := false
	for i := range expenses {
		if !expenses[i].Decided() {
			return nil, nil
		}
		if expenses[i].Status == model.ExpenseRejected {
			anyRejected = true
		}
	}

	if anyRejected {
		from := report.Status
		report.Status = model.ReportRejected
		report.RejectionReason = "one or more expenses were rejected during accounting review"
		if err := s.reportRepo.Update(ctx, report); err != nil {
			return nil, fmt.Errorf("failed to update report: %w", err)
		}
		if err := s.settle.audit.recordDecision(ctx, model.EntityReport, report.ID, actor,
			model.DecisionRejected, report.RejectionReason); err != nil {
			return nil, err
		}
		if err := s.settle.audit.recordTransition(ctx, model.EntityReport, report.ID, actor,
			model.ActionRejected, string(from), string(report.Status), report.RejectionReason, nil); err != nil {
			return nil, err
		}
		return &TransitionResult{
			NewStatus: string(report.Status),
			Message:   "report rejected: not every expense was accepted",
		}, nil
	}

	transition, err := s.settle.finalizeAccountingApproval(ctx, actor, report, expenses)
	if err != nil {
		return nil, err
	}
	return &transition, nil
}

// --- Helpers ---

func (s *expenseService) loadActor(ctx context.Context, actorID uuid.UUID) (*model.User, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, errNotFound("acting user not found")
	}
	return actor, nil
}

// guardEditable allows edits by the requester (or a superuser) while the
// report has not been submitted.
func (s *expenseService) guardEditable(actor *model.User, report *model.TravelExpenseReport) error {
	if err := guardOwnerOrSuperuser(actor, report.RequesterID); err != nil {
		return err
	}
	if report.Status != model.ReportPending && report.Status != model.ReportRejected {
		return errInvalidTransition("expenses cannot be modified while the report is in status %s", report.Status)
	}
	return nil
}

func (s *expenseService) buildExpense(report *model.TravelExpenseReport, req CreateExpenseRequest) (*model.Expense, error) {
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return nil, errValidation("invalid category_id")
	}
	var supplierID *uuid.UUID
	if req.SupplierID != "" {
		id, parseErr := uuid.Parse(req.SupplierID)
		if parseErr != nil {
			return nil, errValidation("invalid supplier_id")
		}
		supplierID = &id
	}
	currencyID, err := uuid.Parse(req.CurrencyID)
	if err != nil {
		return nil, errValidation("invalid currency_id")
	}
	if req.DocumentType != model.DocTypeBoleta && req.DocumentType != model.DocTypeFactura {
		return nil, errValidation("document_type must be %s or %s", model.DocTypeBoleta, model.DocTypeFactura)
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.Sign() <= 0 {
		return nil, errValidation("amount must be a positive number")
	}
	expenseDate, err := time.Parse("2006-01-02", req.ExpenseDate)
	if err != nil {
		return nil, errValidation("expense_date must be YYYY-MM-DD")
	}
	if err := validateExpenseDate(report, expenseDate); err != nil {
		return nil, err
	}

	return &model.Expense{
		ReportID:       report.ID,
		CategoryID:     categoryID,
		SupplierID:     supplierID,
		DocumentType:   req.DocumentType,
		DocumentNumber: req.DocumentNumber,
		Amount:         amount,
		CurrencyID:     currencyID,
		ExpenseDate:    expenseDate,
		Description:    req.Description,
		ReceiptFile:    req.ReceiptFile,
		Status:         model.ExpensePending,
	}, nil
}

func (s *expenseService) applyUpdates(expense *model.Expense, report *model.TravelExpenseReport, req UpdateExpenseRequest) error {
	if req.CategoryID != nil {
		id, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			return errValidation("invalid category_id")
		}
		expense.CategoryID = id
	}
	if req.SupplierID != nil {
		id, err := uuid.Parse(*req.SupplierID)
		if err != nil {
			return errValidation("invalid supplier_id")
		}
		expense.SupplierID = &id
	}
	if req.CurrencyID != nil {
		id, err := uuid.Parse(*req.CurrencyID)
		if err != nil {
			return errValidation("invalid currency_id")
		}
		expense.CurrencyID = id
	}
	if req.DocumentType != nil {
		if *req.DocumentType != model.DocTypeBoleta && *req.DocumentType != model.DocTypeFactura {
			return errValidation("document_type must be %s or %s", model.DocTypeBoleta, model.DocTypeFactura)
		}
		expense.DocumentType = *req.DocumentType
	}
	if req.DocumentNumber != nil {
		expense.DocumentNumber = *req.DocumentNumber
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil || amount.Sign() <= 0 {
			return errValidation("amount must be a positive number")
		}
		expense.Amount = amount
	}
	if req.ExpenseDate != nil {
		expenseDate, err := time.Parse("2006-01-02", *req.ExpenseDate)
		if err != nil {
			return errValidation("expense_date must be YYYY-MM-DD")
		}
		if err := validateExpenseDate(report, expenseDate); err != nil {
			return err
		}
		expense.ExpenseDate = expenseDate
	}
	if req.Description != nil {
		expense.Description = *req.Description
	}
	if req.ReceiptFile != nil {
		expense.ReceiptFile = *req.ReceiptFile
	}
	return nil
}

// validateExpenseDate keeps each line inside the report's travel window.
func validateExpenseDate(report *model.TravelExpenseReport, date time.Time) error {
	start, end, ok := report.TravelRange()
	if !ok {
		return nil
	}
	if date.Before(start) || date.After(end) {
		return errValidation("expense_date must fall within the travel dates (%s to %s)",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return nil
}

func toExpenseResponse(expense *model.Expense) ExpenseResponse {
	resp := ExpenseResponse{
		ID:              expense.ID.String(),
		ReportID:        expense.ReportID.String(),
		CategoryID:      expense.CategoryID.String(),
		DocumentType:    expense.DocumentType,
		DocumentNumber:  expense.DocumentNumber,
		Amount:          expense.Amount.StringFixed(2),
		CurrencyID:      expense.CurrencyID.String(),
		ExpenseDate:     expense.ExpenseDate.Format("2006-01-02"),
		Description:     expense.Description,
		ReceiptFile:     expense.ReceiptFile,
		Status:          string(expense.Status),
		RejectionReason: expense.RejectionReason,
	}
	if expense.SupplierID != nil {
		resp.SupplierID = expense.SupplierID.String()
	}
	if expense.Category != nil {
		resp.CategoryName = expense.Category.Name
	}
	return resp
}
