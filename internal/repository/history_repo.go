package repository

import (
	"context"

	"travel-expense-api/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryRepository appends and reads the append-only audit records. Nothing
// here ever updates or deletes a row.
type HistoryRepository interface {
	AppendApproval(ctx context.Context, record *model.Approval) error
	AppendHistory(ctx context.Context, record *model.ApprovalHistory) error
	AppendExpenseRejection(ctx context.Context, record *model.ExpenseRejectionHistory) error

	ListHistory(ctx context.Context, entityType string, entityID uuid.UUID, page, limit int) ([]model.ApprovalHistory, int64, error)
	ListApprovals(ctx context.Context, entityType string, entityID uuid.UUID) ([]model.Approval, error)
	ListExpenseRejections(ctx context.Context, reportID uuid.UUID) ([]model.ExpenseRejectionHistory, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) AppendApproval(ctx context.Context, record *model.Approval) error {
	return GetDB(ctx, r.db).Create(record).Error
}

func (r *historyRepository) AppendHistory(ctx context.Context, record *model.ApprovalHistory) error {
	return GetDB(ctx, r.db).Create(record).Error
}

func (r *historyRepository) AppendExpenseRejection(ctx context.Context, record *model.ExpenseRejectionHistory) error {
	return GetDB(ctx, r.db).Create(record).Error
}

func (r *historyRepository) ListHistory(ctx context.Context, entityType string, entityID uuid.UUID, page, limit int) ([]model.ApprovalHistory, int64, error) {
	var entries []model.ApprovalHistory
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.ApprovalHistory{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("User").
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *historyRepository) ListApprovals(ctx context.Context, entityType string, entityID uuid.UUID) ([]model.Approval, error) {
	var approvals []model.Approval
	if err := GetDB(ctx, r.db).Preload("Approver").
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("approved_at asc").
		Find(&approvals).Error; err != nil {
		return nil, err
	}
	return approvals, nil
}

func (r *historyRepository) ListExpenseRejections(ctx context.Context, reportID uuid.UUID) ([]model.ExpenseRejectionHistory, error) {
	var rejections []model.ExpenseRejectionHistory
	if err := GetDB(ctx, r.db).
		Where("report_id = ?", reportID).
		Order("created_at asc").
		Find(&rejections).Error; err != nil {
		return nil, err
	}
	return rejections, nil
}
