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

type CreatePrepaymentRequest struct {
	Reason     string `json:"reason" binding:"required"`
	CountryID  string `json:"country_id" binding:"required"`
	CurrencyID string `json:"currency_id" binding:"required"`
	Amount     string `json:"amount" binding:"required"` // Decimal string
	StartDate  string `json:"start_date" binding:"required"`
	EndDate    string `json:"end_date" binding:"required"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type ApprovePrepaymentRequest struct {
	// DepositNumber is recorded by treasury on final approval.
	DepositNumber string `json:"deposit_number"`
}

type PrepaymentFilter struct {
	Status string
	Page   int
	Limit  int
}

type PrepaymentResponse struct {
	ID              string `json:"id"`
	Reason          string `json:"reason"`
	CountryID       string `json:"country_id"`
	CurrencyID      string `json:"currency_id"`
	Amount          string `json:"amount"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	Status          string `json:"status"`
	RequesterID     string `json:"requester_id"`
	RequesterName   string `json:"requester_name,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	DepositNumber   string `json:"deposit_number,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// --- Interface ---

// PrepaymentService runs the prepayment approval state machine:
// PENDING -> SUPERVISOR_PENDING -> ACCOUNTING_PENDING -> TREASURY_PENDING ->
// APPROVED, with REJECTED re-enterable via resubmission.
type PrepaymentService interface {
	Create(ctx context.Context, actorID uuid.UUID, req CreatePrepaymentRequest) (PrepaymentResponse, error)
	Get(ctx context.Context, actorID, id uuid.UUID) (PrepaymentResponse, error)
	List(ctx context.Context, actorID uuid.UUID, filter PrepaymentFilter) ([]PrepaymentResponse, int64, error)

	Submit(ctx context.Context, actorID, id uuid.UUID) (TransitionResult, error)
	Approve(ctx context.Context, actorID, id uuid.UUID, req ApprovePrepaymentRequest) (TransitionResult, error)
	Reject(ctx context.Context, actorID, id uuid.UUID, reason string) (TransitionResult, error)
}

type prepaymentService struct {
	prepaymentRepo repository.PrepaymentRepository
	reportRepo     repository.ReportRepository
	userRepo       repository.UserRepository
	txManager      repository.TransactionManager
	notifier       Notifier
	audit          auditTrail
}

func NewPrepaymentService(
	prepaymentRepo repository.PrepaymentRepository,
	reportRepo repository.ReportRepository,
	userRepo repository.UserRepository,
	historyRepo repository.HistoryRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
) PrepaymentService {
	return &prepaymentService{
		prepaymentRepo: prepaymentRepo,
		reportRepo:     reportRepo,
		userRepo:       userRepo,
		txManager:      txManager,
		notifier:       notifier,
		audit:          auditTrail{historyRepo: historyRepo},
	}
}

// --- Implementation ---

func (s *prepaymentService) Create(ctx context.Context, actorID uuid.UUID, req CreatePrepaymentRequest) (PrepaymentResponse, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return PrepaymentResponse{}, errValidation("invalid amount: %v", err)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return PrepaymentResponse{}, errValidation("amount must be greater than 0")
	}

	countryID, err := uuid.Parse(req.CountryID)
	if err != nil {
		return PrepaymentResponse{}, errValidation("invalid country_id")
	}
	currencyID, err := uuid.Parse(req.CurrencyID)
	if err != nil {
		return PrepaymentResponse{}, errValidation("invalid currency_id")
	}

	startDate, endDate, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return PrepaymentResponse{}, err
	}

	prepayment := &model.Prepayment{
		Reason:      req.Reason,
		CountryID:   countryID,
		CurrencyID:  currencyID,
		Amount:      amount,
		StartDate:   startDate,
		EndDate:     endDate,
		Status:      model.PrepaymentPending,
		RequesterID: actorID,
	}

	if err := s.prepaymentRepo.Create(ctx, prepayment); err != nil {
		return PrepaymentResponse{}, fmt.Errorf("failed to create prepayment: %w", err)
	}

	return toPrepaymentResponse(prepayment), nil
}

func (s *prepaymentService) Get(ctx context.Context, actorID, id uuid.UUID) (PrepaymentResponse, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return PrepaymentResponse{}, err
	}

	prepayment, err := s.prepaymentRepo.FindByIDWithRelations(ctx, id)
	if err != nil {
		return PrepaymentResponse{}, errNotFound("prepayment not found")
	}

	if !actor.IsSuperuser && actor.Profile == model.ProfileEmployee && prepayment.RequesterID != actor.ID {
		return PrepaymentResponse{}, errForbidden("only the requester may view this prepayment")
	}

	return toPrepaymentResponse(prepayment), nil
}

func (s *prepaymentService) List(ctx context.Context, actorID uuid.UUID, filter PrepaymentFilter) ([]PrepaymentResponse, int64, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, 0, err
	}

	repoFilter := repository.PrepaymentFilter{Page: filter.Page, Limit: filter.Limit}
	if filter.Status != "" {
		status, parseErr := model.ParsePrepaymentStatus(filter.Status)
		if parseErr != nil {
			return nil, 0, errValidation("invalid status filter: %v", parseErr)
		}
		repoFilter.Status = status
	}
	// Employees only ever see their own requests.
	if !actor.IsSuperuser && actor.Profile == model.ProfileEmployee {
		repoFilter.RequesterID = &actor.ID
	}

	prepayments, total, err := s.prepaymentRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list prepayments: %w", err)
	}

	result := make([]PrepaymentResponse, 0, len(prepayments))
	for i := range prepayments {
		result = append(result, toPrepaymentResponse(&prepayments[i]))
	}
	return result, total, nil
}

// Submit moves PENDING or REJECTED to SUPERVISOR_PENDING.
func (s *prepaymentService) Submit(ctx context.Context, actorID, id uuid.UUID) (TransitionResult, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return TransitionResult{}, err
	}

	var result TransitionResult
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		prepayment, txErr := s.lockPrepayment(txCtx, id)
		if txErr != nil {
			return txErr
		}

		if prepayment.Status != model.PrepaymentPending && prepayment.Status != model.PrepaymentRejected {
			return errInvalidTransition("cannot submit a prepayment in status %s", prepayment.Status)
		}
		if guardErr := guardOwnerOrSuperuser(actor, prepayment.RequesterID); guardErr != nil {
			return guardErr
		}

		requester, txErr := s.userRepo.GetByIDWithSupervisor(txCtx, prepayment.RequesterID)
		if txErr != nil {
			return errNotFound("requesting user not found")
		}
		if guardErr := guardSubmittable(requester); guardErr != nil {
			return guardErr
		}

		from := prepayment.Status
		prepayment.Status = model.PrepaymentSupervisorPending
		if txErr := s.prepaymentRepo.Update(txCtx, prepayment); txErr != nil {
			return fmt.Errorf("failed to update prepayment: %w", txErr)
		}

		if txErr := s.audit.recordTransition(txCtx, model.EntityPrepayment, prepayment.ID, actor,
			model.ActionSubmitted, string(from), string(prepayment.Status), "", nil); txErr != nil {
			return txErr
		}

		result = TransitionResult{
			NewStatus: string(prepayment.Status),
			Message:   "prepayment submitted for supervisor review",
		}
		return nil
	})
	if err != nil {
		return TransitionResult{}, err
	}

	s.notifier.Notify(EventPrepaymentSubmitted, model.EntityPrepayment, id, map[string]any{"status": result.NewStatus})
	return result, nil
}

// Approve advances the prepayment one stage. Which stage applies is derived
// from the current status; callers just say "approve".
func (s *prepaymentService) Approve(ctx context.Context, actorID, id uuid.UUID, req ApprovePrepaymentRequest) (TransitionResult, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return TransitionResult{}, err
	}

	var result TransitionResult
	// A missing downstream approver reverts the entity to PENDING inside its
	// own committed transaction; the precondition error surfaces afterwards.
	var preconditionErr error
	event := EventPrepaymentApproved

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		prepayment, txErr := s.lockPrepayment(txCtx, id)
		if txErr != nil {
			return txErr
		}

		requester, txErr := s.userRepo.GetByIDWithSupervisor(txCtx, prepayment.RequesterID)
		if txErr != nil {
			return errNotFound("requesting user not found")
		}

		from := prepayment.Status
		switch prepayment.Status {
		case model.PrepaymentSupervisorPending:
			if guardErr := guardSupervisorOf(actor, requester); guardErr != nil {
				return guardErr
			}
			reverted, txErr := s.requireApproversOrRevert(txCtx, prepayment, actor, model.ProfileAccounting,
				"no accounting users available")
			if txErr != nil {
				return txErr
			}
			if reverted != nil {
				preconditionErr = reverted
				result = TransitionResult{NewStatus: string(model.PrepaymentPending), Message: reverted.Error()}
				event = EventPrepaymentReturned
				return nil
			}
			prepayment.Status = model.PrepaymentAccountingPending

		case model.PrepaymentAccountingPending:
			if guardErr := guardProfileApprover(actor, model.ProfileAccounting); guardErr != nil {
				return guardErr
			}
			reverted, txErr := s.requireApproversOrRevert(txCtx, prepayment, actor, model.ProfileTreasury,
				"no treasury users available")
			if txErr != nil {
				return txErr
			}
			if reverted != nil {
				preconditionErr = reverted
				result = TransitionResult{NewStatus: string(model.PrepaymentPending), Message: reverted.Error()}
				event = EventPrepaymentReturned
				return nil
			}
			prepayment.Status = model.PrepaymentTreasuryPending

		case model.PrepaymentTreasuryPending:
			if guardErr := guardProfileApprover(actor, model.ProfileTreasury); guardErr != nil {
				return guardErr
			}
			prepayment.Status = model.PrepaymentApproved
			prepayment.RejectionReason = ""
			prepayment.DepositNumber = req.DepositNumber

			reportID, txErr := s.ensureLinkedReport(txCtx, prepayment)
			if txErr != nil {
				return txErr
			}
			result.CreatedReportID = reportID

		case model.PrepaymentApproved:
			return errInvalidTransition("prepayment is already approved")

		default:
			return errInvalidTransition("cannot approve a prepayment in status %s", prepayment.Status)
		}

		if txErr := s.prepaymentRepo.Update(txCtx, prepayment); txErr != nil {
			return fmt.Errorf("failed to update prepayment: %w", txErr)
		}
		if txErr := s.audit.recordDecision(txCtx, model.EntityPrepayment, prepayment.ID, actor,
			model.DecisionApproved, ""); txErr != nil {
			return txErr
		}
		if txErr := s.audit.recordTransition(txCtx, model.EntityPrepayment, prepayment.ID, actor,
			model.ActionApproved, string(from), string(prepayment.Status), "", nil); txErr != nil {
			return txErr
		}

		result.NewStatus = string(prepayment.Status)
		result.Message = "prepayment approved"
		return nil
	})
	if err != nil {
		return TransitionResult{}, err
	}

	s.notifier.Notify(event, model.EntityPrepayment, id, map[string]any{"status": result.NewStatus})
	if preconditionErr != nil {
		return result, preconditionErr
	}
	return result, nil
}

// Reject moves the prepayment to REJECTED from any review stage. A rejection
// reason is required before anything is mutated.
func (s *prepaymentService) Reject(ctx context.Context, actorID, id uuid.UUID, reason string) (TransitionResult, error) {
	if reason == "" {
		return TransitionResult{}, errValidation("a rejection reason is required")
	}

	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return TransitionResult{}, err
	}

	var result TransitionResult
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		prepayment, txErr := s.lockPrepayment(txCtx, id)
		if txErr != nil {
			return txErr
		}

		requester, txErr := s.userRepo.GetByIDWithSupervisor(txCtx, prepayment.RequesterID)
		if txErr != nil {
			return errNotFound("requesting user not found")
		}

		switch prepayment.Status {
		case model.PrepaymentSupervisorPending:
			if guardErr := guardSupervisorOf(actor, requester); guardErr != nil {
				return guardErr
			}
		case model.PrepaymentAccountingPending:
			if guardErr := guardProfileApprover(actor, model.ProfileAccounting); guardErr != nil {
				return guardErr
			}
		case model.PrepaymentTreasuryPending:
			if guardErr := guardProfileApprover(actor, model.ProfileTreasury); guardErr != nil {
				return guardErr
			}
		default:
			return errInvalidTransition("cannot reject a prepayment in status %s", prepayment.Status)
		}

		from := prepayment.Status
		prepayment.Status = model.PrepaymentRejected
		prepayment.RejectionReason = reason
		if txErr := s.prepaymentRepo.Update(txCtx, prepayment); txErr != nil {
			return fmt.Errorf("failed to update prepayment: %w", txErr)
		}

		if txErr := s.audit.recordDecision(txCtx, model.EntityPrepayment, prepayment.ID, actor,
			model.DecisionRejected, reason); txErr != nil {
			return txErr
		}
		if txErr := s.audit.recordTransition(txCtx, model.EntityPrepayment, prepayment.ID, actor,
			model.ActionRejected, string(from), string(prepayment.Status), reason, nil); txErr != nil {
			return txErr
		}

		result = TransitionResult{NewStatus: string(prepayment.Status), Message: "prepayment rejected"}
		return nil
	})
	if err != nil {
		return TransitionResult{}, err
	}

	s.notifier.Notify(EventPrepaymentRejected, model.EntityPrepayment, id, map[string]any{
		"status": result.NewStatus,
		"reason": reason,
	})
	return result, nil
}

// --- Helpers ---

func (s *prepaymentService) loadActor(ctx context.Context, actorID uuid.UUID) (*model.User, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, errNotFound("acting user not found")
	}
	return actor, nil
}

func (s *prepaymentService) lockPrepayment(ctx context.Context, id uuid.UUID) (*model.Prepayment, error) {
	prepayment, err := s.prepaymentRepo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound("prepayment not found")
		}
		return nil, fmt.Errorf("failed to load prepayment: %w", err)
	}
	return prepayment, nil
}

// requireApproversOrRevert checks that at least one approver of the given
// profile exists. If none does, the prepayment reverts to PENDING with a
// comment appended in the same transaction, and the returned error is the
// PreconditionFailed the caller must surface after commit.
func (s *prepaymentService) requireApproversOrRevert(ctx context.Context, prepayment *model.Prepayment,
	actor *model.User, profile, reason string) (error, error) {

	count, err := s.userRepo.CountApprovers(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to count %s approvers: %w", profile, err)
	}
	if count > 0 {
		return nil, nil
	}

	from := prepayment.Status
	prepayment.Status = model.PrepaymentPending
	if err := s.prepaymentRepo.Update(ctx, prepayment); err != nil {
		return nil, fmt.Errorf("failed to revert prepayment: %w", err)
	}
	if err := s.audit.recordTransition(ctx, model.EntityPrepayment, prepayment.ID, actor,
		model.ActionReturned, string(from), string(model.PrepaymentPending), reason, nil); err != nil {
		return nil, err
	}
	return errPrecondition("%s", reason), nil
}

// ensureLinkedReport creates the PENDING expense report tied to a freshly
// approved prepayment, unless one already exists from a prior approval.
func (s *prepaymentService) ensureLinkedReport(ctx context.Context, prepayment *model.Prepayment) (*uuid.UUID, error) {
	if _, err := s.reportRepo.FindByPrepaymentID(ctx, prepayment.ID); err == nil {
		return nil, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up linked report: %w", err)
	}

	report := &model.TravelExpenseReport{
		ReportType:   model.ReportTypePrepayment,
		PrepaymentID: &prepayment.ID,
		Status:       model.ReportPending,
		RequesterID:  prepayment.RequesterID,
	}
	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to create linked report: %w", err)
	}
	return &report.ID, nil
}

func parseDateRange(start, end string) (time.Time, time.Time, error) {
	startDate, err := time.Parse("2006-01-02", start)
	if err != nil {
		return time.Time{}, time.Time{}, errValidation("invalid start_date, expected YYYY-MM-DD")
	}
	endDate, err := time.Parse("2006-01-02", end)
	if err != nil {
		return time.Time{}, time.Time{}, errValidation("invalid end_date, expected YYYY-MM-DD")
	}
	if endDate.Before(startDate) {
		return time.Time{}, time.Time{}, errValidation("end_date must not be before start_date")
	}
	return startDate, endDate, nil
}

func toPrepaymentResponse(p *model.Prepayment) PrepaymentResponse {
	resp := PrepaymentResponse{
		ID:              p.ID.String(),
		Reason:          p.Reason,
		CountryID:       p.CountryID.String(),
		CurrencyID:      p.CurrencyID.String(),
		Amount:          p.Amount.StringFixed(2),
		StartDate:       p.StartDate.Format("2006-01-02"),
		EndDate:         p.EndDate.Format("2006-01-02"),
		Status:          string(p.Status),
		RequesterID:     p.RequesterID.String(),
		RejectionReason: p.RejectionReason,
		DepositNumber:   p.DepositNumber,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
	}
	if p.Requester != nil {
		resp.RequesterName = p.Requester.Username
	}
	return resp
}
