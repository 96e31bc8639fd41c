package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/salestext/dtax-crm/internal/rates"
)

// Invoice statuses mirrored from the invoicing system.
const (
	StatusDraft     = "DRAFT"
	StatusSent      = "SENT"
	StatusPaid      = "PAID"
	StatusOverdue   = "OVERDUE"
	StatusCancelled = "CANCELLED"
)

// Invoice is the commission invoice issued when a tax case converts.
// Amounts derive from the case's tax benefit, never entered by hand.
type Invoice struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	ProspectID     snowflake.ID `gorm:"column:prospect_id;not null;index" json:"prospectId"`
	TaxCaseID      string       `gorm:"column:tax_case_id;type:text;not null" json:"taxCaseId"`
	ExternalID     *string      `gorm:"column:external_id;type:text" json:"externalId"`
	ExternalNumber *string      `gorm:"column:external_number;type:text" json:"externalNumber"`
	Status         string       `gorm:"type:text;not null;default:'DRAFT'" json:"status"`
	TaxBenefit     float64      `gorm:"column:tax_benefit;not null" json:"taxBenefit"`
	CommissionRate float64      `gorm:"column:commission_rate;not null" json:"commissionRate"`
	Amount         float64      `gorm:"not null" json:"amount"`
	VATAmount      float64      `gorm:"column:vat_amount;not null" json:"vatAmount"`
	TotalAmount    float64      `gorm:"column:total_amount;not null" json:"totalAmount"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Amounts is the derived financial breakdown of an invoice.
type Amounts struct {
	Amount      float64 `json:"amount"`
	VATAmount   float64 `json:"vatAmount"`
	TotalAmount float64 `json:"totalAmount"`
}

// ComputeAmounts derives the commission invoice amounts from a tax benefit.
func ComputeAmounts(taxBenefit float64) Amounts {
	amount := taxBenefit * rates.Commission
	vat := amount * rates.VAT
	return Amounts{
		Amount:      amount,
		VATAmount:   vat,
		TotalAmount: amount + vat,
	}
}
