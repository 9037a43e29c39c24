package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PrepaymentStatus is a closed enum persisted as a string column.
type PrepaymentStatus string

const (
	PrepaymentPending           PrepaymentStatus = "PENDING"
	PrepaymentSupervisorPending PrepaymentStatus = "SUPERVISOR_PENDING"
	PrepaymentAccountingPending PrepaymentStatus = "ACCOUNTING_PENDING"
	PrepaymentTreasuryPending   PrepaymentStatus = "TREASURY_PENDING"
	PrepaymentApproved          PrepaymentStatus = "APPROVED"
	PrepaymentRejected          PrepaymentStatus = "REJECTED"
)

// legacyPrepaymentStatus maps mixed-case values still persisted by the
// previous system onto the closed enum.
var legacyPrepaymentStatus = map[string]PrepaymentStatus{
	"Pending":            PrepaymentPending,
	"Supervisor pending": PrepaymentSupervisorPending,
	"Accounting pending": PrepaymentAccountingPending,
	"Treasury pending":   PrepaymentTreasuryPending,
	"Approved":           PrepaymentApproved,
	"Rejected":           PrepaymentRejected,
}

// ParsePrepaymentStatus resolves a stored string, accepting legacy values.
func ParsePrepaymentStatus(s string) (PrepaymentStatus, error) {
	switch PrepaymentStatus(s) {
	case PrepaymentPending, PrepaymentSupervisorPending, PrepaymentAccountingPending,
		PrepaymentTreasuryPending, PrepaymentApproved, PrepaymentRejected:
		return PrepaymentStatus(s), nil
	}
	if mapped, ok := legacyPrepaymentStatus[s]; ok {
		return mapped, nil
	}
	return "", fmt.Errorf("unknown prepayment status %q", s)
}

// Prepayment is a travel funding request. Mutated only through workflow
// transitions; APPROVED and REJECTED are terminal, REJECTED is re-enterable
// via resubmission.
type Prepayment struct {
	ID          uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Reason      string           `gorm:"type:text;not null" json:"reason"`
	CountryID   uuid.UUID        `gorm:"type:uuid;not null" json:"country_id"`
	Country     *Country         `gorm:"foreignKey:CountryID" json:"country,omitempty"`
	StartDate   time.Time        `gorm:"not null" json:"start_date"`
	EndDate     time.Time        `gorm:"not null" json:"end_date"`
	CurrencyID  uuid.UUID        `gorm:"type:uuid;not null" json:"currency_id"`
	Currency    *Currency        `gorm:"foreignKey:CurrencyID" json:"currency,omitempty"`
	Amount      decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"amount"`
	Status      PrepaymentStatus `gorm:"type:varchar(30);not null;default:'PENDING';index" json:"status"`
	RequesterID uuid.UUID        `gorm:"type:uuid;not null;index" json:"requester_id"`
	Requester   *User            `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`

	RejectionReason string `gorm:"type:text" json:"rejection_reason,omitempty"`

	// Treasury settlement fields
	DepositNumber   string `gorm:"type:varchar(100)" json:"deposit_number,omitempty"`
	SAPExpensesFile string `gorm:"type:text" json:"sap_expenses_file,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
