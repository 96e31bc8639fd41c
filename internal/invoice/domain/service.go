package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateFromTaxCaseRequest struct {
	ProspectID snowflake.ID
	TaxCaseID  string
	TaxBenefit float64
}

type ListRequest struct {
	Status     string
	ProspectID *snowflake.ID
	Limit      int
	Offset     int
}

type ListResponse struct {
	Invoices []Invoice `json:"invoices"`
	Total    int64     `json:"total"`
}

type Service interface {
	// CreateFromTaxCase issues the commission invoice for a submitted
	// case: it ensures the prospect exists in the invoicing system,
	// creates the invoice there, then writes the local invoice row and
	// moves the prospect to CONVERTED in one transaction.
	CreateFromTaxCase(context.Context, CreateFromTaxCaseRequest) (Invoice, error)

	List(context.Context, ListRequest) (ListResponse, error)
	GetByID(ctx context.Context, id string) (Invoice, error)

	// SyncStatuses pulls the current status of every non-terminal
	// invoice from the invoicing system.
	SyncStatuses(ctx context.Context) (int, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListRequest) ([]Invoice, int64, error)
	ListPending(ctx context.Context, db *gorm.DB) ([]Invoice, error)
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
	ErrProspectMissing = errors.New("prospect_missing")
	ErrNoTaxBenefit    = errors.New("no_tax_benefit")
)
