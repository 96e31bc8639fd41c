package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/salestext/dtax-crm/internal/integrations/invoicesystem"
	"github.com/salestext/dtax-crm/internal/invoice/domain"
	prospectdomain "github.com/salestext/dtax-crm/internal/prospect/domain"
	"github.com/salestext/dtax-crm/internal/rates"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const invoiceDueDays = 14

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	ProspectRepo  prospectdomain.Repository
	InvoiceSystem invoicesystem.Client
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	prospectRepo  prospectdomain.Repository
	invoiceSystem invoicesystem.Client
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("invoice.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		prospectRepo:  p.ProspectRepo,
		invoiceSystem: p.InvoiceSystem,
	}
}

func (s *Service) CreateFromTaxCase(ctx context.Context, req domain.CreateFromTaxCaseRequest) (domain.Invoice, error) {
	if req.TaxBenefit <= 0 {
		return domain.Invoice{}, domain.ErrNoTaxBenefit
	}

	prospect, err := s.prospectRepo.FindByID(ctx, s.db, req.ProspectID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if prospect == nil {
		return domain.Invoice{}, domain.ErrProspectMissing
	}

	customerID, err := s.ensureCustomer(ctx, prospect)
	if err != nil {
		return domain.Invoice{}, err
	}

	amounts := domain.ComputeAmounts(req.TaxBenefit)
	external, err := s.invoiceSystem.CreateInvoice(ctx, invoicesystem.InvoiceInput{
		CustomerID:  customerID,
		Description: fmt.Sprintf("Honorar skattesak %s", req.TaxCaseID),
		Amount:      amounts.Amount,
		VATAmount:   amounts.VATAmount,
		TotalAmount: amounts.TotalAmount,
		DueDays:     invoiceDueDays,
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	now := time.Now().UTC()
	invoice := domain.Invoice{
		ID:             s.genID.Generate(),
		ProspectID:     prospect.ID,
		TaxCaseID:      req.TaxCaseID,
		ExternalID:     &external.ID,
		Status:         domain.StatusSent,
		TaxBenefit:     req.TaxBenefit,
		CommissionRate: rates.Commission,
		Amount:         amounts.Amount,
		VATAmount:      amounts.VATAmount,
		TotalAmount:    amounts.TotalAmount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if external.InvoiceNumber != "" {
		invoice.ExternalNumber = &external.InvoiceNumber
	}
	if external.Status != "" {
		invoice.Status = external.Status
	}

	// Local invoice row and the CONVERTED transition commit together.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &invoice); err != nil {
			return err
		}

		previousStatus := prospect.Status
		prospect.Status = prospectdomain.StatusConverted
		prospect.InvoiceCustomerID = &customerID
		prospect.UpdatedAt = now
		if prospect.ConvertedAt == nil {
			prospect.ConvertedAt = &now
		}
		if err := s.prospectRepo.Update(ctx, tx, prospect); err != nil {
			return err
		}

		activity := prospectdomain.Activity{
			ID:         s.genID.Generate(),
			ProspectID: prospect.ID,
			Type:       prospectdomain.ActivityInvoiceCreated,
			Subject:    fmt.Sprintf("Faktura opprettet: %.2f kr", amounts.TotalAmount),
			Metadata: datatypes.JSONMap{
				"invoiceId":      invoice.ID.String(),
				"taxCaseId":      req.TaxCaseID,
				"amount":         amounts.Amount,
				"vatAmount":      amounts.VATAmount,
				"totalAmount":    amounts.TotalAmount,
				"previousStatus": string(previousStatus),
			},
			CreatedAt: now,
		}
		return s.prospectRepo.InsertActivity(ctx, tx, &activity)
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	s.log.Info("invoice created",
		zap.String("prospect_id", prospect.ID.String()),
		zap.String("tax_case_id", req.TaxCaseID),
		zap.Float64("total_amount", amounts.TotalAmount),
	)
	return invoice, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	if req.Limit > 500 {
		req.Limit = 500
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	invoices, total, err := s.repo.List(ctx, s.db, req)
	if err != nil {
		return domain.ListResponse{}, err
	}
	return domain.ListResponse{Invoices: invoices, Total: total}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Invoice, error) {
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || invoiceID == 0 {
		return domain.Invoice{}, domain.ErrInvalidID
	}

	invoice, err := s.repo.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}
	return *invoice, nil
}

func (s *Service) SyncStatuses(ctx context.Context) (int, error) {
	pending, err := s.repo.ListPending(ctx, s.db)
	if err != nil {
		return 0, err
	}

	updated := 0
	for i := range pending {
		invoice := &pending[i]
		if invoice.ExternalID == nil {
			continue
		}

		remote, err := s.invoiceSystem.GetInvoice(ctx, *invoice.ExternalID)
		if err != nil {
			s.log.Warn("invoice status sync failed",
				zap.String("invoice_id", invoice.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if remote.Status == "" || remote.Status == invoice.Status {
			continue
		}

		invoice.Status = remote.Status
		invoice.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, s.db, invoice); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

func (s *Service) ensureCustomer(ctx context.Context, prospect *prospectdomain.Prospect) (string, error) {
	if prospect.InvoiceCustomerID != nil && *prospect.InvoiceCustomerID != "" {
		return *prospect.InvoiceCustomerID, nil
	}

	customer, err := s.invoiceSystem.EnsureCustomer(ctx, invoicesystem.CustomerInput{
		Name:       prospect.FirstName + " " + prospect.LastName,
		Email:      prospect.Email,
		Phone:      prospect.Phone,
		Address:    prospect.Address,
		PostalCode: prospect.PostalCode,
		City:       prospect.City,
	})
	if err != nil {
		return "", err
	}
	return customer.ID, nil
}
