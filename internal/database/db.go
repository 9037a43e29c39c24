package database

import (
	"log"

	"travel-expense-api/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Country{},
		&model.Currency{},
		&model.ExpenseCategory{},
		&model.Supplier{},
		&model.Tax{},
		&model.Location{},
		&model.Prepayment{},
		&model.TravelExpenseReport{},
		&model.Expense{},
		&model.Approval{},
		&model.ApprovalHistory{},
		&model.ExpenseRejectionHistory{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
