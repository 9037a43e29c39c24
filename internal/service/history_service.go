package service

import (
	"context"

	"travel-expense-api/internal/model"
	"travel-expense-api/internal/repository"

	"github.com/google/uuid"
)

type HistoryEntryResponse struct {
	ID         string `json:"id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	UserID     string `json:"user_id,omitempty"`
	Username   string `json:"username,omitempty"`
	Role       string `json:"role,omitempty"`
	Action     string `json:"action"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	Comments   string `json:"comments,omitempty"`
	// Raw JSON list of per-expense rejection reasons, when present.
	ExpenseRejections string `json:"expense_rejections,omitempty"`
	CreatedAt         string `json:"created_at"`
}

type ApprovalRecordResponse struct {
	ID              string `json:"id"`
	ApproverID      string `json:"approver_id"`
	ApproverName    string `json:"approver_name,omitempty"`
	Status          string `json:"status"`
	ApprovalLevel   int    `json:"approval_level"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	ApprovedAt      string `json:"approved_at"`
}

type ExpenseRejectionResponse struct {
	ID         string `json:"id"`
	ExpenseID  string `json:"expense_id"`
	ReportID   string `json:"report_id"`
	Stage      string `json:"stage"`
	RejectedBy string `json:"rejected_by"`
	Reason     string `json:"reason"`
	CreatedAt  string `json:"created_at"`
}

// HistoryService exposes the audit trail read side.
type HistoryService interface {
	ListHistory(ctx context.Context, entityType string, entityID uuid.UUID, page, limit int) ([]HistoryEntryResponse, int64, error)
	ListApprovals(ctx context.Context, entityType string, entityID uuid.UUID) ([]ApprovalRecordResponse, error)
	ListExpenseRejections(ctx context.Context, reportID uuid.UUID) ([]ExpenseRejectionResponse, error)
}

type historyService struct {
	repo repository.HistoryRepository
}

func NewHistoryService(repo repository.HistoryRepository) HistoryService {
	return &historyService{repo: repo}
}

func (s *historyService) ListHistory(ctx context.Context, entityType string, entityID uuid.UUID, page, limit int) ([]HistoryEntryResponse, int64, error) {
	if entityType != model.EntityPrepayment && entityType != model.EntityReport && entityType != model.EntityExpense {
		return nil, 0, errValidation("unknown entity type %q", entityType)
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	entries, total, err := s.repo.ListHistory(ctx, entityType, entityID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]HistoryEntryResponse, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		resp := HistoryEntryResponse{
			ID:                entry.ID.String(),
			EntityType:        entry.EntityType,
			EntityID:          entry.EntityID.String(),
			Role:              entry.Role,
			Action:            entry.Action,
			FromStatus:        entry.FromStatus,
			ToStatus:          entry.ToStatus,
			Comments:          entry.Comments,
			ExpenseRejections: entry.ExpenseRejections,
			CreatedAt:         entry.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if entry.UserID != nil {
			resp.UserID = entry.UserID.String()
		}
		if entry.User != nil {
			resp.Username = entry.User.Username
		}
		result = append(result, resp)
	}
	return result, total, nil
}

func (s *historyService) ListApprovals(ctx context.Context, entityType string, entityID uuid.UUID) ([]ApprovalRecordResponse, error) {
	approvals, err := s.repo.ListApprovals(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}

	result := make([]ApprovalRecordResponse, 0, len(approvals))
	for i := range approvals {
		approval := &approvals[i]
		resp := ApprovalRecordResponse{
			ID:              approval.ID.String(),
			ApproverID:      approval.ApproverID.String(),
			Status:          approval.Status,
			ApprovalLevel:   approval.ApprovalLevel,
			RejectionReason: approval.RejectionReason,
			ApprovedAt:      approval.ApprovedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if approval.Approver != nil {
			resp.ApproverName = approval.Approver.Username
		}
		result = append(result, resp)
	}
	return result, nil
}

func (s *historyService) ListExpenseRejections(ctx context.Context, reportID uuid.UUID) ([]ExpenseRejectionResponse, error) {
	rejections, err := s.repo.ListExpenseRejections(ctx, reportID)
	if err != nil {
		return nil, err
	}

	result := make([]ExpenseRejectionResponse, 0, len(rejections))
	for i := range rejections {
		rejection := &rejections[i]
		result = append(result, ExpenseRejectionResponse{
			ID:         rejection.ID.String(),
			ExpenseID:  rejection.ExpenseID.String(),
			ReportID:   rejection.ReportID.String(),
			Stage:      string(rejection.Stage),
			RejectedBy: rejection.RejectedBy.String(),
			Reason:     rejection.Reason,
			CreatedAt:  rejection.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return result, nil
}
