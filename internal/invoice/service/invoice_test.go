package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/salestext/dtax-crm/internal/integrations/invoicesystem"
	"github.com/salestext/dtax-crm/internal/invoice/domain"
	invoicerepo "github.com/salestext/dtax-crm/internal/invoice/repository"
	prospectdomain "github.com/salestext/dtax-crm/internal/prospect/domain"
	prospectrepo "github.com/salestext/dtax-crm/internal/prospect/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockInvoiceSystem struct {
	mock.Mock
}

func (m *mockInvoiceSystem) EnsureCustomer(ctx context.Context, input invoicesystem.CustomerInput) (invoicesystem.Customer, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(invoicesystem.Customer), args.Error(1)
}

func (m *mockInvoiceSystem) CreateInvoice(ctx context.Context, input invoicesystem.InvoiceInput) (invoicesystem.Invoice, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(invoicesystem.Invoice), args.Error(1)
}

func (m *mockInvoiceSystem) GetInvoice(ctx context.Context, invoiceID string) (invoicesystem.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).(invoicesystem.Invoice), args.Error(1)
}

func newTestService(t *testing.T) (*gorm.DB, domain.Service, *mockInvoiceSystem, *snowflake.Node) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(
		&domain.Invoice{},
		&prospectdomain.Prospect{},
		&prospectdomain.Company{},
		&prospectdomain.Activity{},
	))

	node, _ := snowflake.NewNode(1)
	invoiceSystem := &mockInvoiceSystem{}
	svc := New(Params{
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		Repo:          invoicerepo.Provide(),
		ProspectRepo:  prospectrepo.Provide(),
		InvoiceSystem: invoiceSystem,
	})
	return db, svc, invoiceSystem, node
}

func seedProspect(t *testing.T, db *gorm.DB, node *snowflake.Node) prospectdomain.Prospect {
	prospect := prospectdomain.Prospect{
		ID:        node.Generate(),
		FirstName: "Ola",
		LastName:  "Nordmann",
		Status:    prospectdomain.StatusStep6,
		Source:    "manual",
	}
	assert.NoError(t, db.Create(&prospect).Error)
	return prospect
}

func TestComputeAmounts_CommissionAndVAT(t *testing.T) {
	amounts := domain.ComputeAmounts(50000)
	assert.InDelta(t, 15000.0, amounts.Amount, 0.001)
	assert.InDelta(t, 3750.0, amounts.VATAmount, 0.001)
	assert.InDelta(t, 18750.0, amounts.TotalAmount, 0.001)
}

func TestCreateFromTaxCase_IssuesInvoiceAndConverts(t *testing.T) {
	db, svc, invoiceSystem, node := newTestService(t)
	prospect := seedProspect(t, db, node)

	invoiceSystem.On("EnsureCustomer", mock.Anything, mock.Anything).
		Return(invoicesystem.Customer{ID: "cust_42"}, nil)
	invoiceSystem.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(input invoicesystem.InvoiceInput) bool {
		return input.Amount == 15000 && input.VATAmount == 3750 && input.TotalAmount == 18750
	})).Return(invoicesystem.Invoice{ID: "inv_1", InvoiceNumber: "2026-0001", Status: "SENT"}, nil)

	invoice, err := svc.CreateFromTaxCase(context.Background(), domain.CreateFromTaxCaseRequest{
		ProspectID: prospect.ID,
		TaxCaseID:  "case_1",
		TaxBenefit: 50000,
	})
	assert.NoError(t, err)
	assert.InDelta(t, 15000.0, invoice.Amount, 0.001)
	assert.InDelta(t, 3750.0, invoice.VATAmount, 0.001)
	assert.InDelta(t, 18750.0, invoice.TotalAmount, 0.001)

	var stored prospectdomain.Prospect
	assert.NoError(t, db.First(&stored, "id = ?", prospect.ID).Error)
	assert.Equal(t, prospectdomain.StatusConverted, stored.Status)
	assert.NotNil(t, stored.InvoiceCustomerID)
	assert.Equal(t, "cust_42", *stored.InvoiceCustomerID)

	var activities []prospectdomain.Activity
	assert.NoError(t, db.Where("prospect_id = ?", prospect.ID).Find(&activities).Error)
	assert.Len(t, activities, 1)
	assert.Equal(t, prospectdomain.ActivityInvoiceCreated, activities[0].Type)

	invoiceSystem.AssertExpectations(t)
}

func TestCreateFromTaxCase_ReusesInvoiceCustomer(t *testing.T) {
	db, svc, invoiceSystem, node := newTestService(t)
	prospect := seedProspect(t, db, node)
	customerID := "cust_existing"
	assert.NoError(t, db.Model(&prospectdomain.Prospect{}).
		Where("id = ?", prospect.ID).
		Update("invoice_customer_id", customerID).Error)

	invoiceSystem.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(input invoicesystem.InvoiceInput) bool {
		return input.CustomerID == customerID
	})).Return(invoicesystem.Invoice{ID: "inv_2", Status: "SENT"}, nil)

	_, err := svc.CreateFromTaxCase(context.Background(), domain.CreateFromTaxCaseRequest{
		ProspectID: prospect.ID,
		TaxCaseID:  "case_2",
		TaxBenefit: 10000,
	})
	assert.NoError(t, err)
	invoiceSystem.AssertNotCalled(t, "EnsureCustomer", mock.Anything, mock.Anything)
}

func TestCreateFromTaxCase_RemoteFailureLeavesNoLocalRow(t *testing.T) {
	db, svc, invoiceSystem, node := newTestService(t)
	prospect := seedProspect(t, db, node)

	invoiceSystem.On("EnsureCustomer", mock.Anything, mock.Anything).
		Return(invoicesystem.Customer{}, invoicesystem.ErrRequestFailed)

	_, err := svc.CreateFromTaxCase(context.Background(), domain.CreateFromTaxCaseRequest{
		ProspectID: prospect.ID,
		TaxCaseID:  "case_3",
		TaxBenefit: 10000,
	})
	assert.Error(t, err)

	var count int64
	assert.NoError(t, db.Model(&domain.Invoice{}).Count(&count).Error)
	assert.Zero(t, count)

	var stored prospectdomain.Prospect
	assert.NoError(t, db.First(&stored, "id = ?", prospect.ID).Error)
	assert.Equal(t, prospectdomain.StatusStep6, stored.Status)
}

func TestCreateFromTaxCase_RejectsZeroBenefit(t *testing.T) {
	_, svc, _, node := newTestService(t)

	_, err := svc.CreateFromTaxCase(context.Background(), domain.CreateFromTaxCaseRequest{
		ProspectID: node.Generate(),
		TaxCaseID:  "case_4",
		TaxBenefit: 0,
	})
	assert.ErrorIs(t, err, domain.ErrNoTaxBenefit)
}

func TestSyncStatuses_UpdatesChanged(t *testing.T) {
	db, svc, invoiceSystem, node := newTestService(t)
	prospect := seedProspect(t, db, node)

	externalID := "inv_sync"
	assert.NoError(t, db.Create(&domain.Invoice{
		ID:         node.Generate(),
		ProspectID: prospect.ID,
		TaxCaseID:  "case_5",
		ExternalID: &externalID,
		Status:     domain.StatusSent,
		TaxBenefit: 10000,
		Amount:     3000,
	}).Error)

	invoiceSystem.On("GetInvoice", mock.Anything, externalID).
		Return(invoicesystem.Invoice{ID: externalID, Status: domain.StatusPaid}, nil)

	updated, err := svc.SyncStatuses(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, updated)

	var stored domain.Invoice
	assert.NoError(t, db.First(&stored, "external_id = ?", externalID).Error)
	assert.Equal(t, domain.StatusPaid, stored.Status)
}
