package model

import (
	"time"

	"github.com/google/uuid"
)

// EntityType constants for audit records
const (
	EntityPrepayment = "PREPAYMENT"
	EntityReport     = "TRAVEL_EXPENSE_REPORT"
	EntityExpense    = "EXPENSE"
)

// HistoryAction constants
const (
	ActionSubmitted = "SUBMITTED"
	ActionApproved  = "APPROVED"
	ActionRejected  = "REJECTED"
	ActionReturned  = "RETURNED"
)

// DecisionStatus constants for Approval records
const (
	DecisionApproved = "APPROVED"
	DecisionRejected = "REJECTED"
)

// Approval is an immutable record of one approve/reject decision. Append-only.
type Approval struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EntityType      string    `gorm:"type:varchar(30);not null;index:idx_approvals_entity" json:"entity_type"`
	EntityID        uuid.UUID `gorm:"type:uuid;not null;index:idx_approvals_entity" json:"entity_id"`
	ApproverID      uuid.UUID `gorm:"type:uuid;not null;index" json:"approver_id"`
	Approver        *User     `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	Status          string    `gorm:"type:varchar(20);not null" json:"status"` // APPROVED or REJECTED
	ApprovalLevel   int       `gorm:"not null;default:1" json:"approval_level"`
	RejectionReason string    `gorm:"type:text" json:"rejection_reason,omitempty"`
	ApprovedAt      time.Time `gorm:"not null" json:"approved_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// ApprovalHistory captures every status transition: who, acting as what,
// from which status to which. Never mutated after creation.
type ApprovalHistory struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EntityType string     `gorm:"type:varchar(30);not null;index:idx_history_entity" json:"entity_type"`
	EntityID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_history_entity" json:"entity_id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role       string     `gorm:"type:varchar(20)" json:"role"`
	Action     string     `gorm:"type:varchar(20);not null" json:"action"` // SUBMITTED, APPROVED, REJECTED, RETURNED
	FromStatus string     `gorm:"type:varchar(30);not null" json:"from_status"`
	ToStatus   string     `gorm:"type:varchar(30);not null" json:"to_status"`
	Comments   string     `gorm:"type:text" json:"comments,omitempty"`
	// Serialized JSON list of per-expense rejection reasons, when the
	// transition rejected individual lines.
	ExpenseRejections string    `gorm:"type:jsonb" json:"expense_rejections,omitempty"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
}

// ExpenseRejectionHistory records a single expense's rejection at a given
// approval stage. Append-only.
type ExpenseRejectionHistory struct {
	ID         uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ExpenseID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"expense_id"`
	Expense    *Expense     `gorm:"foreignKey:ExpenseID" json:"-"`
	ReportID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"report_id"`
	Stage      ReportStatus `gorm:"type:varchar(30);not null" json:"stage"` // report status when rejected
	RejectedBy uuid.UUID    `gorm:"type:uuid;not null" json:"rejected_by"`
	Reason     string       `gorm:"type:text;not null" json:"reason"`
	CreatedAt  time.Time    `json:"created_at"`
}
