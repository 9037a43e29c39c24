package repository

import (
	"context"

	"travel-expense-api/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportFilter narrows report listings.
type ReportFilter struct {
	RequesterID *uuid.UUID
	Status      model.ReportStatus
	ReportType  string
	Page        int
	Limit       int
}

type ReportRepository interface {
	Create(ctx context.Context, report *model.TravelExpenseReport) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TravelExpenseReport, error)
	// FindByIDForUpdate locks the report row inside the ambient transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.TravelExpenseReport, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.TravelExpenseReport, error)
	FindByPrepaymentID(ctx context.Context, prepaymentID uuid.UUID) (*model.TravelExpenseReport, error)
	List(ctx context.Context, filter ReportFilter) ([]model.TravelExpenseReport, int64, error)
	Update(ctx context.Context, report *model.TravelExpenseReport) error
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *model.TravelExpenseReport) error {
	return GetDB(ctx, r.db).Create(report).Error
}

func (r *reportRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TravelExpenseReport, error) {
	var report model.TravelExpenseReport
	if err := GetDB(ctx, r.db).First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.TravelExpenseReport, error) {
	var report model.TravelExpenseReport
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.TravelExpenseReport, error) {
	var report model.TravelExpenseReport
	if err := GetDB(ctx, r.db).
		Preload("Requester").Preload("Prepayment").Preload("Prepayment.Currency").
		Preload("Country").Preload("Currency").
		Preload("Expenses").Preload("Expenses.Category").Preload("Expenses.Currency").
		First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) FindByPrepaymentID(ctx context.Context, prepaymentID uuid.UUID) (*model.TravelExpenseReport, error) {
	var report model.TravelExpenseReport
	if err := GetDB(ctx, r.db).First(&report, "prepayment_id = ?", prepaymentID).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter) ([]model.TravelExpenseReport, int64, error) {
	var reports []model.TravelExpenseReport
	var total int64

	db := GetDB(ctx, r.db)
	applyFilter := func(q *gorm.DB) *gorm.DB {
		if filter.RequesterID != nil {
			q = q.Where("requester_id = ?", *filter.RequesterID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.ReportType != "" {
			q = q.Where("report_type = ?", filter.ReportType)
		}
		return q
	}

	if err := applyFilter(db.Model(&model.TravelExpenseReport{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	fetchQuery := applyFilter(db.Preload("Requester").Preload("Prepayment"))
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(filter.Limit).
		Find(&reports).Error; err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}

func (r *reportRepository) Update(ctx context.Context, report *model.TravelExpenseReport) error {
	return GetDB(ctx, r.db).Save(report).Error
}
