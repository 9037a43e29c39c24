package repository

import (
	"context"

	"travel-expense-api/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PrepaymentFilter narrows prepayment listings.
type PrepaymentFilter struct {
	RequesterID *uuid.UUID
	Status      model.PrepaymentStatus
	Page        int
	Limit       int
}

type PrepaymentRepository interface {
	Create(ctx context.Context, p *model.Prepayment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Prepayment, error)
	// FindByIDForUpdate locks the row for the duration of the ambient
	// transaction so concurrent transitions against the same prepayment
	// serialize; the loser re-reads a changed status and fails.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Prepayment, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Prepayment, error)
	List(ctx context.Context, filter PrepaymentFilter) ([]model.Prepayment, int64, error)
	Update(ctx context.Context, p *model.Prepayment) error
}

type prepaymentRepository struct {
	db *gorm.DB
}

func NewPrepaymentRepository(db *gorm.DB) PrepaymentRepository {
	return &prepaymentRepository{db: db}
}

func (r *prepaymentRepository) Create(ctx context.Context, p *model.Prepayment) error {
	return GetDB(ctx, r.db).Create(p).Error
}

func (r *prepaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Prepayment, error) {
	var p model.Prepayment
	if err := GetDB(ctx, r.db).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *prepaymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Prepayment, error) {
	var p model.Prepayment
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *prepaymentRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Prepayment, error) {
	var p model.Prepayment
	if err := GetDB(ctx, r.db).
		Preload("Requester").Preload("Country").Preload("Currency").
		First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *prepaymentRepository) List(ctx context.Context, filter PrepaymentFilter) ([]model.Prepayment, int64, error) {
	var prepayments []model.Prepayment
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Prepayment{})
	if filter.RequesterID != nil {
		query = query.Where("requester_id = ?", *filter.RequesterID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	fetchQuery := db.Preload("Requester").Preload("Country").Preload("Currency")
	if filter.RequesterID != nil {
		fetchQuery = fetchQuery.Where("requester_id = ?", *filter.RequesterID)
	}
	if filter.Status != "" {
		fetchQuery = fetchQuery.Where("status = ?", filter.Status)
	}
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(filter.Limit).
		Find(&prepayments).Error; err != nil {
		return nil, 0, err
	}

	return prepayments, total, nil
}

func (r *prepaymentRepository) Update(ctx context.Context, p *model.Prepayment) error {
	return GetDB(ctx, r.db).Save(p).Error
}
