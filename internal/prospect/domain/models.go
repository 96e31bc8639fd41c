package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is a funnel stage for a prospect.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusContacted  Status = "CONTACTED"
	StatusQualified  Status = "QUALIFIED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusStep1      Status = "STEP_1"
	StatusStep2      Status = "STEP_2"
	StatusStep3      Status = "STEP_3"
	StatusStep4      Status = "STEP_4"
	StatusStep5      Status = "STEP_5"
	StatusStep6      Status = "STEP_6"
	StatusConverted  Status = "CONVERTED"
	StatusLost       Status = "LOST"
)

// AllStatuses lists every funnel stage in order.
var AllStatuses = []Status{
	StatusNew,
	StatusContacted,
	StatusQualified,
	StatusInProgress,
	StatusStep1,
	StatusStep2,
	StatusStep3,
	StatusStep4,
	StatusStep5,
	StatusStep6,
	StatusConverted,
	StatusLost,
}

// ValidStatus reports whether s is a known funnel stage.
func ValidStatus(s Status) bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// StepStatus returns the funnel stage for a completed tax-case step (1-6).
func StepStatus(step int) (Status, bool) {
	switch step {
	case 1:
		return StatusStep1, true
	case 2:
		return StatusStep2, true
	case 3:
		return StatusStep3, true
	case 4:
		return StatusStep4, true
	case 5:
		return StatusStep5, true
	case 6:
		return StatusStep6, true
	default:
		return "", false
	}
}

// Tax-system linkage states mirrored onto the prospect record.
const (
	TaxSystemStatusRegistered  = "REGISTERED"
	TaxSystemStatusCaseCreated = "CASE_CREATED"
	TaxSystemStatusSubmitted   = "SUBMITTED"
)

// Prospect is a lead moving through the sales funnel.
type Prospect struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	FirstName         string       `gorm:"not null" json:"firstName"`
	LastName          string       `gorm:"not null" json:"lastName"`
	Email             *string      `json:"email"`
	Phone             *string      `json:"phone"`
	Phone2            *string      `json:"phone2"`
	Address           *string      `json:"address"`
	PostalCode        *string      `gorm:"column:postal_code" json:"postalCode"`
	City              *string      `json:"city"`
	Status            Status       `gorm:"type:text;not null;default:'NEW';index" json:"status"`
	CurrentStep       int          `gorm:"column:current_step;not null;default:0" json:"currentStep"`
	Source            string       `gorm:"not null;default:'manual'" json:"source"`
	TaxSystemUserID   *string      `gorm:"column:tax_system_user_id;index" json:"taxSystemUserId"`
	TaxSystemStatus   *string      `gorm:"column:tax_system_status" json:"taxSystemStatus"`
	InvoiceCustomerID *string      `gorm:"column:invoice_customer_id" json:"invoiceCustomerId"`
	LastCalledAt      *time.Time   `gorm:"column:last_called_at" json:"lastCalledAt"`
	ConvertedAt       *time.Time   `gorm:"column:converted_at" json:"convertedAt"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`

	Companies []Company `gorm:"foreignKey:ProspectID;constraint:OnDelete:CASCADE" json:"companies,omitempty"`
}

// TableName sets the database table name.
func (Prospect) TableName() string { return "prospects" }

// Company is an org owned by a prospect; share capital drives valuation.
type Company struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	ProspectID       snowflake.ID `gorm:"column:prospect_id;not null;index" json:"prospectId"`
	CompanyName      string       `gorm:"column:company_name;not null" json:"companyName"`
	OrgNumber        string       `gorm:"column:org_number;not null;default:''" json:"orgNumber"`
	Role             *string      `json:"role"`
	ShareCapitalPaid *float64     `gorm:"column:share_capital_paid" json:"shareCapitalPaid"`
	DeletedDate      *time.Time   `gorm:"column:deleted_date" json:"deletedDate"`
	DeletionReason   *string      `gorm:"column:deletion_reason" json:"deletionReason"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (Company) TableName() string { return "companies" }

// Note is a free-form prospect annotation.
type Note struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ProspectID snowflake.ID `gorm:"column:prospect_id;not null;index" json:"prospectId"`
	Content    string       `gorm:"not null" json:"content"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (Note) TableName() string { return "prospect_notes" }

// Task is a follow-up with a due date and a completion flag.
type Task struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	ProspectID  snowflake.ID `gorm:"column:prospect_id;not null;index" json:"prospectId"`
	Title       string       `gorm:"not null" json:"title"`
	Description *string      `json:"description"`
	DueDate     time.Time    `gorm:"column:due_date;not null;index" json:"dueDate"`
	Completed   bool         `gorm:"not null;default:false" json:"completed"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (Task) TableName() string { return "tasks" }

// Activity types written by handlers and integrations.
const (
	ActivitySystemEvent      = "SYSTEM_EVENT"
	ActivityStatusChange     = "STATUS_CHANGE"
	ActivityTaxSubmitted     = "TAX_SUBMITTED"
	ActivityContractSigned   = "CONTRACT_SIGNED"
	ActivityInvoiceCreated   = "INVOICE_CREATED"
	ActivityManualNote       = "NOTE"
	ActivityEmail            = "EMAIL"
	ActivityDocumentUploaded = "DOCUMENT_UPLOADED"
)

// Activity is an append-only audit entry on a prospect. Entries are never
// mutated or deleted.
type Activity struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	ProspectID  snowflake.ID      `gorm:"column:prospect_id;not null;index" json:"prospectId"`
	Type        string            `gorm:"not null" json:"type"`
	Subject     string            `gorm:"not null" json:"subject"`
	Description *string           `json:"description"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (Activity) TableName() string { return "activities" }

// Contract records a signed agreement synced from the tax system.
type Contract struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	ProspectID   snowflake.ID `gorm:"column:prospect_id;not null;index" json:"prospectId"`
	ContractType string       `gorm:"column:contract_type;not null" json:"contractType"`
	Status       string       `gorm:"not null;default:'SIGNED'" json:"status"`
	SignedAt     *time.Time   `gorm:"column:signed_at" json:"signedAt"`
	SignatureRef *string      `gorm:"column:signature_ref" json:"signatureRef"`
	TaxSystemRef string       `gorm:"column:tax_system_ref;not null;uniqueIndex" json:"taxSystemRef"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (Contract) TableName() string { return "contracts" }
