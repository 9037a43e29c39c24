package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentType enum constants
const (
	DocTypeBoleta  = "BOLETA"
	DocTypeFactura = "FACTURA"
)

// ExpenseStatus is a closed enum. REJECTED is a real status carrying the
// rejection reason as an attribute, not a side-channel field on a pending row.
type ExpenseStatus string

const (
	ExpensePending  ExpenseStatus = "PENDING"
	ExpenseApproved ExpenseStatus = "APPROVED"
	ExpenseRejected ExpenseStatus = "REJECTED"
)

var legacyExpenseStatus = map[string]ExpenseStatus{
	"Pending":  ExpensePending,
	"Approved": ExpenseApproved,
	"Rejected": ExpenseRejected,
}

// ParseExpenseStatus resolves a stored string, accepting legacy values.
func ParseExpenseStatus(s string) (ExpenseStatus, error) {
	switch ExpenseStatus(s) {
	case ExpensePending, ExpenseApproved, ExpenseRejected:
		return ExpenseStatus(s), nil
	}
	if mapped, ok := legacyExpenseStatus[s]; ok {
		return mapped, nil
	}
	return "", fmt.Errorf("unknown expense status %q", s)
}

// Expense is a single line item owned by exactly one report. Its date must
// fall within the report's travel range.
type Expense struct {
	ID         uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ReportID   uuid.UUID            `gorm:"type:uuid;not null;index" json:"report_id"`
	Report     *TravelExpenseReport `gorm:"foreignKey:ReportID" json:"-"`
	CategoryID uuid.UUID            `gorm:"type:uuid;not null" json:"category_id"`
	Category   *ExpenseCategory     `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	SupplierID *uuid.UUID           `gorm:"type:uuid" json:"supplier_id,omitempty"`
	Supplier   *Supplier            `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`

	DocumentType   string          `gorm:"type:varchar(10);not null" json:"document_type"` // BOLETA or FACTURA
	DocumentNumber string          `gorm:"type:varchar(100)" json:"document_number"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	CurrencyID     uuid.UUID       `gorm:"type:uuid;not null" json:"currency_id"`
	Currency       *Currency       `gorm:"foreignKey:CurrencyID" json:"currency,omitempty"`
	ExpenseDate    time.Time       `gorm:"not null" json:"expense_date"`
	Description    string          `gorm:"type:text" json:"description"`
	ReceiptFile    string          `gorm:"type:text" json:"receipt_file,omitempty"`

	Status          ExpenseStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	RejectionReason string        `gorm:"type:text" json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Decided reports whether the line has reached a terminal review outcome.
func (e *Expense) Decided() bool {
	return e.Status == ExpenseApproved || e.Status == ExpenseRejected
}
