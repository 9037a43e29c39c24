package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReportType enum constants
const (
	ReportTypePrepayment    = "PREPAYMENT"
	ReportTypeReimbursement = "REIMBURSEMENT"
)

// ReportStatus is a closed enum persisted as a string column.
type ReportStatus string

const (
	ReportPending                  ReportStatus = "PENDING"
	ReportSupervisorPending        ReportStatus = "SUPERVISOR_PENDING"
	ReportAccountingPending        ReportStatus = "ACCOUNTING_PENDING"
	ReportTreasuryPending          ReportStatus = "TREASURY_PENDING"
	ReportApprovedForReimbursement ReportStatus = "APPROVED_FOR_REIMBURSEMENT"
	ReportFundsReturnPending       ReportStatus = "FUNDS_RETURN_PENDING"
	ReportReviewReturn             ReportStatus = "REVIEW_RETURN"
	ReportApprovedExpenses         ReportStatus = "APPROVED_EXPENSES"
	ReportApprovedRepaid           ReportStatus = "APPROVED_REPAID"
	ReportApprovedReturnedFunds    ReportStatus = "APPROVED_RETURNED_FUNDS"
	ReportRejected                 ReportStatus = "REJECTED"
)

var legacyReportStatus = map[string]ReportStatus{
	"Pending":                    ReportPending,
	"Supervisor pending":         ReportSupervisorPending,
	"Accounting pending":         ReportAccountingPending,
	"Treasury pending":           ReportTreasuryPending,
	"Approved for reimbursement": ReportApprovedForReimbursement,
	"Funds return pending":       ReportFundsReturnPending,
	"Review return":              ReportReviewReturn,
	"Approved expenses":          ReportApprovedExpenses,
	"Approved repaid":            ReportApprovedRepaid,
	"Approved returned funds":    ReportApprovedReturnedFunds,
	"Rejected":                   ReportRejected,
}

// ParseReportStatus resolves a stored string, accepting legacy values.
func ParseReportStatus(s string) (ReportStatus, error) {
	switch ReportStatus(s) {
	case ReportPending, ReportSupervisorPending, ReportAccountingPending,
		ReportTreasuryPending, ReportApprovedForReimbursement, ReportFundsReturnPending,
		ReportReviewReturn, ReportApprovedExpenses, ReportApprovedRepaid,
		ReportApprovedReturnedFunds, ReportRejected:
		return ReportStatus(s), nil
	}
	if mapped, ok := legacyReportStatus[s]; ok {
		return mapped, nil
	}
	return "", fmt.Errorf("unknown report status %q", s)
}

// TravelExpenseReport is a container of expense lines, either tied one-to-one
// to an approved Prepayment (type PREPAYMENT) or standalone (type REIMBURSEMENT,
// carrying its own reason/country/currency/dates).
type TravelExpenseReport struct {
	ID           uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ReportType   string       `gorm:"type:varchar(20);not null;default:'PREPAYMENT'" json:"report_type"`
	PrepaymentID *uuid.UUID   `gorm:"type:uuid;uniqueIndex" json:"prepayment_id"`
	Prepayment   *Prepayment  `gorm:"foreignKey:PrepaymentID" json:"prepayment,omitempty"`
	Status       ReportStatus `gorm:"type:varchar(30);not null;default:'PENDING';index" json:"status"`
	RequesterID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"requester_id"`
	Requester    *User        `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`

	// Populated for REIMBURSEMENT reports only; PREPAYMENT reports read these
	// from the linked prepayment.
	Reason     string     `gorm:"type:text" json:"reason,omitempty"`
	CountryID  *uuid.UUID `gorm:"type:uuid" json:"country_id,omitempty"`
	Country    *Country   `gorm:"foreignKey:CountryID" json:"country,omitempty"`
	CurrencyID *uuid.UUID `gorm:"type:uuid" json:"currency_id,omitempty"`
	Currency   *Currency  `gorm:"foreignKey:CurrencyID" json:"currency,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`

	RejectionReason string `gorm:"type:text" json:"rejection_reason,omitempty"`

	// Fund-return sub-flow
	ReturnDocumentNumber string `gorm:"type:varchar(100)" json:"return_document_number,omitempty"`
	ReturnDocumentFiles  string `gorm:"type:jsonb" json:"return_document_files,omitempty"` // JSON array of stored file paths

	// SAP settlement fields
	SAPExpensesFile     string `gorm:"type:text" json:"sap_expenses_file,omitempty"`
	SAPCompensationFile string `gorm:"type:text" json:"sap_compensation_file,omitempty"`

	Expenses []Expense `gorm:"foreignKey:ReportID" json:"expenses,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsPrepaymentLinked reports whether the report settles against a prepayment.
func (r *TravelExpenseReport) IsPrepaymentLinked() bool {
	return r.ReportType == ReportTypePrepayment && r.PrepaymentID != nil
}

// TravelRange returns the date window expense lines must fall into.
func (r *TravelExpenseReport) TravelRange() (time.Time, time.Time, bool) {
	if r.IsPrepaymentLinked() && r.Prepayment != nil {
		return r.Prepayment.StartDate, r.Prepayment.EndDate, true
	}
	if r.StartDate != nil && r.EndDate != nil {
		return *r.StartDate, *r.EndDate, true
	}
	return time.Time{}, time.Time{}, false
}
