package taxevent

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/salestext/dtax-crm/internal/integrations/invoicesystem"
	"github.com/salestext/dtax-crm/internal/integrations/taxsystem"
	invoicedomain "github.com/salestext/dtax-crm/internal/invoice/domain"
	invoicerepo "github.com/salestext/dtax-crm/internal/invoice/repository"
	invoiceservice "github.com/salestext/dtax-crm/internal/invoice/service"
	prospectdomain "github.com/salestext/dtax-crm/internal/prospect/domain"
	prospectrepo "github.com/salestext/dtax-crm/internal/prospect/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockTaxSystem struct {
	mock.Mock
}

func (m *mockTaxSystem) CreateUser(ctx context.Context, input taxsystem.CreateUserInput) (taxsystem.User, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(taxsystem.User), args.Error(1)
}

func (m *mockTaxSystem) GetCase(ctx context.Context, caseID string) (taxsystem.Case, error) {
	args := m.Called(ctx, caseID)
	return args.Get(0).(taxsystem.Case), args.Error(1)
}

func (m *mockTaxSystem) GetContract(ctx context.Context, contractID string) (taxsystem.Contract, error) {
	args := m.Called(ctx, contractID)
	return args.Get(0).(taxsystem.Contract), args.Error(1)
}

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

type fixture struct {
	db            *gorm.DB
	svc           *Service
	taxSystem     *mockTaxSystem
	invoiceSystem *mockInvoiceSystem
	node          *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(
		&prospectdomain.Prospect{},
		&prospectdomain.Company{},
		&prospectdomain.Activity{},
		&prospectdomain.Contract{},
		&invoicedomain.Invoice{},
	))

	node, _ := snowflake.NewNode(1)
	log := zap.NewNop()
	taxSys := &mockTaxSystem{}
	invoiceSys := &mockInvoiceSystem{}

	invoiceSvc := invoiceservice.New(invoiceservice.Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		Repo:          invoicerepo.Provide(),
		ProspectRepo:  prospectrepo.Provide(),
		InvoiceSystem: invoiceSys,
	})

	svc := New(Params{
		DB:           db,
		Log:          log,
		GenID:        node,
		ProspectRepo: prospectrepo.Provide(),
		InvoiceSvc:   invoiceSvc,
		TaxSystem:    taxSys,
	})

	return &fixture{db: db, svc: svc, taxSystem: taxSys, invoiceSystem: invoiceSys, node: node}
}

func (f *fixture) seedProspect(t *testing.T, userID string) prospectdomain.Prospect {
	prospect := prospectdomain.Prospect{
		ID:              f.node.Generate(),
		FirstName:       "Ola",
		LastName:        "Nordmann",
		Status:          prospectdomain.StatusQualified,
		Source:          "manual",
		TaxSystemUserID: &userID,
	}
	assert.NoError(t, f.db.Create(&prospect).Error)
	return prospect
}

func TestHandle_UserCreated(t *testing.T) {
	f := newFixture(t)
	prospect := f.seedProspect(t, "user_1")

	err := f.svc.Handle(context.Background(), Event{
		Type: EventUserCreated,
		Data: EventData{UserID: "user_1"},
	})
	assert.NoError(t, err)

	var stored prospectdomain.Prospect
	assert.NoError(t, f.db.First(&stored, "id = ?", prospect.ID).Error)
	assert.Equal(t, prospectdomain.StatusInProgress, stored.Status)
	assert.Equal(t, prospectdomain.TaxSystemStatusRegistered, *stored.TaxSystemStatus)

	var activities []prospectdomain.Activity
	assert.NoError(t, f.db.Where("prospect_id = ?", prospect.ID).Find(&activities).Error)
	assert.Len(t, activities, 1)
	assert.Equal(t, prospectdomain.ActivitySystemEvent, activities[0].Type)
}

func TestHandle_UnknownUserIsSilentNoOp(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Handle(context.Background(), Event{
		Type: EventCaseCreated,
		Data: EventData{UserID: "nobody", CaseID: "case_1"},
	})
	assert.NoError(t, err)

	var count int64
	assert.NoError(t, f.db.Model(&prospectdomain.Activity{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestHandle_UnknownEventTypeIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.seedProspect(t, "user_1")

	err := f.svc.Handle(context.Background(), Event{
		Type: "case.archived",
		Data: EventData{UserID: "user_1"},
	})
	assert.NoError(t, err)
}

func TestHandle_StepCompleted(t *testing.T) {
	f := newFixture(t)
	prospect := f.seedProspect(t, "user_1")

	err := f.svc.Handle(context.Background(), Event{
		Type: EventStepCompleted,
		Data: EventData{UserID: "user_1", Step: 3},
	})
	assert.NoError(t, err)

	var stored prospectdomain.Prospect
	assert.NoError(t, f.db.First(&stored, "id = ?", prospect.ID).Error)
	assert.Equal(t, prospectdomain.StatusStep3, stored.Status)
	assert.Equal(t, 3, stored.CurrentStep)

	var activities []prospectdomain.Activity
	assert.NoError(t, f.db.Where("prospect_id = ?", prospect.ID).Find(&activities).Error)
	assert.Len(t, activities, 1)
	assert.Equal(t, prospectdomain.ActivityStatusChange, activities[0].Type)
	assert.Contains(t, *activities[0].Description, "AI-analyse")
}

func TestHandle_CaseSubmittedConvertsAndInvoices(t *testing.T) {
	f := newFixture(t)
	prospect := f.seedProspect(t, "user_1")

	f.taxSystem.On("GetCase", mock.Anything, "case_1").
		Return(taxsystem.Case{ID: "case_1", UserID: "user_1", TaxBenefit: 50000}, nil)
	f.invoiceSystem.On("EnsureCustomer", mock.Anything, mock.Anything).
		Return(invoicesystem.Customer{ID: "cust_1"}, nil)
	f.invoiceSystem.On("CreateInvoice", mock.Anything, mock.Anything).
		Return(invoicesystem.Invoice{ID: "inv_1", Status: "SENT"}, nil)

	err := f.svc.Handle(context.Background(), Event{
		Type: EventCaseSubmitted,
		Data: EventData{UserID: "user_1", CaseID: "case_1", TaxBenefit: 50000},
	})
	assert.NoError(t, err)

	var stored prospectdomain.Prospect
	assert.NoError(t, f.db.First(&stored, "id = ?", prospect.ID).Error)
	assert.Equal(t, prospectdomain.StatusConverted, stored.Status)
	assert.Equal(t, prospectdomain.TaxSystemStatusSubmitted, *stored.TaxSystemStatus)
	assert.Equal(t, 6, stored.CurrentStep)
	assert.NotNil(t, stored.ConvertedAt)

	var invoices []invoicedomain.Invoice
	assert.NoError(t, f.db.Find(&invoices).Error)
	assert.Len(t, invoices, 1)
	assert.InDelta(t, 15000.0, invoices[0].Amount, 0.001)
	assert.InDelta(t, 3750.0, invoices[0].VATAmount, 0.001)
	assert.InDelta(t, 18750.0, invoices[0].TotalAmount, 0.001)
}

func TestHandle_CaseSubmittedWithoutBenefitSkipsInvoice(t *testing.T) {
	f := newFixture(t)
	prospect := f.seedProspect(t, "user_1")

	err := f.svc.Handle(context.Background(), Event{
		Type: EventCaseSubmitted,
		Data: EventData{UserID: "user_1", CaseID: "case_1"},
	})
	assert.NoError(t, err)

	var stored prospectdomain.Prospect
	assert.NoError(t, f.db.First(&stored, "id = ?", prospect.ID).Error)
	assert.Equal(t, prospectdomain.StatusStep6, stored.Status)

	var count int64
	assert.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestHandle_InvoiceFailureDoesNotFailDelivery(t *testing.T) {
	f := newFixture(t)
	prospect := f.seedProspect(t, "user_1")

	f.taxSystem.On("GetCase", mock.Anything, "case_1").
		Return(taxsystem.Case{ID: "case_1", TaxBenefit: 50000}, nil)
	f.invoiceSystem.On("EnsureCustomer", mock.Anything, mock.Anything).
		Return(invoicesystem.Customer{}, invoicesystem.ErrRequestFailed)

	err := f.svc.Handle(context.Background(), Event{
		Type: EventCaseSubmitted,
		Data: EventData{UserID: "user_1", CaseID: "case_1", TaxBenefit: 50000},
	})
	assert.NoError(t, err)

	var stored prospectdomain.Prospect
	assert.NoError(t, f.db.First(&stored, "id = ?", prospect.ID).Error)
	assert.Equal(t, prospectdomain.StatusStep6, stored.Status)

	var count int64
	assert.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Count(&count).Error)
	assert.Zero(t, count)
}

// Replays are applied as-is: two identical case.submitted deliveries
// produce two submitted activities and two invoice attempts.
func TestHandle_CaseSubmittedReplayIsNotDeduplicated(t *testing.T) {
	f := newFixture(t)
	prospect := f.seedProspect(t, "user_1")

	f.taxSystem.On("GetCase", mock.Anything, "case_1").
		Return(taxsystem.Case{ID: "case_1", TaxBenefit: 50000}, nil)
	f.invoiceSystem.On("EnsureCustomer", mock.Anything, mock.Anything).
		Return(invoicesystem.Customer{ID: "cust_1"}, nil)
	f.invoiceSystem.On("CreateInvoice", mock.Anything, mock.Anything).
		Return(invoicesystem.Invoice{ID: "inv_1", Status: "SENT"}, nil)

	event := Event{
		Type: EventCaseSubmitted,
		Data: EventData{UserID: "user_1", CaseID: "case_1", TaxBenefit: 50000},
	}
	assert.NoError(t, f.svc.Handle(context.Background(), event))
	assert.NoError(t, f.svc.Handle(context.Background(), event))

	var submitted int64
	assert.NoError(t, f.db.Model(&prospectdomain.Activity{}).
		Where("prospect_id = ? AND type = ?", prospect.ID, prospectdomain.ActivityTaxSubmitted).
		Count(&submitted).Error)
	assert.Equal(t, int64(2), submitted)

	var invoices int64
	assert.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Count(&invoices).Error)
	assert.Equal(t, int64(2), invoices)

	f.invoiceSystem.AssertNumberOfCalls(t, "CreateInvoice", 2)
}

func TestHandle_ContractSigned(t *testing.T) {
	f := newFixture(t)
	prospect := f.seedProspect(t, "user_1")

	signedAt := time.Now().UTC()
	ref := "sig_abc"
	f.taxSystem.On("GetContract", mock.Anything, ref).
		Return(taxsystem.Contract{ID: "con_1", ContractType: "ENGAGEMENT", SignedAt: &signedAt, SignatureRef: &ref}, nil)

	event := Event{
		Type: EventContractSigned,
		Data: EventData{UserID: "user_1", SignatureRef: ref},
	}
	assert.NoError(t, f.svc.Handle(context.Background(), event))

	var activities []prospectdomain.Activity
	assert.NoError(t, f.db.Where("prospect_id = ?", prospect.ID).Find(&activities).Error)
	assert.Len(t, activities, 1)
	assert.Equal(t, prospectdomain.ActivityContractSigned, activities[0].Type)

	var contracts []prospectdomain.Contract
	assert.NoError(t, f.db.Where("prospect_id = ?", prospect.ID).Find(&contracts).Error)
	assert.Len(t, contracts, 1)
	assert.Equal(t, ref, contracts[0].TaxSystemRef)

	// Replay adds an activity but never a second contract row.
	assert.NoError(t, f.svc.Handle(context.Background(), event))
	assert.NoError(t, f.db.Where("prospect_id = ?", prospect.ID).Find(&contracts).Error)
	assert.Len(t, contracts, 1)
	f.taxSystem.AssertNumberOfCalls(t, "GetContract", 1)
}

func (f *fixture) seedUnregisteredProspect(t *testing.T, email string) prospectdomain.Prospect {
	phone := "+4791234567"
	prospect := prospectdomain.Prospect{
		ID:        f.node.Generate(),
		FirstName: "Kari",
		LastName:  "Nordmann",
		Phone:     &phone,
		Status:    prospectdomain.StatusQualified,
		Source:    "manual",
	}
	if email != "" {
		prospect.Email = &email
	}
	assert.NoError(t, f.db.Create(&prospect).Error)
	return prospect
}

func TestRegisterProspect_LinksTaxSystemUser(t *testing.T) {
	f := newFixture(t)
	prospect := f.seedUnregisteredProspect(t, "kari@example.no")

	f.taxSystem.On("CreateUser", mock.Anything, mock.MatchedBy(func(input taxsystem.CreateUserInput) bool {
		return input.Email == "kari@example.no" &&
			input.Source == "crm_import" &&
			input.ProspectID == prospect.ID.String()
	})).Return(taxsystem.User{ID: "user_77", Email: "kari@example.no"}, nil).Once()

	updated, err := f.svc.RegisterProspect(context.Background(), prospect.ID.String())
	assert.NoError(t, err)
	assert.NotNil(t, updated.TaxSystemUserID)
	assert.Equal(t, "user_77", *updated.TaxSystemUserID)
	assert.Equal(t, prospectdomain.StatusInProgress, updated.Status)
	assert.Equal(t, prospectdomain.TaxSystemStatusRegistered, *updated.TaxSystemStatus)

	var activities []prospectdomain.Activity
	assert.NoError(t, f.db.Where("prospect_id = ?", prospect.ID).Find(&activities).Error)
	assert.Len(t, activities, 1)
	assert.Equal(t, prospectdomain.ActivitySystemEvent, activities[0].Type)
	assert.Equal(t, "Bruker opprettet i tax.salestext.no", activities[0].Subject)
	assert.Contains(t, *activities[0].Description, "user_77")
	f.taxSystem.AssertExpectations(t)
}

func TestRegisterProspect_RequiresEmail(t *testing.T) {
	f := newFixture(t)
	prospect := f.seedUnregisteredProspect(t, "")

	_, err := f.svc.RegisterProspect(context.Background(), prospect.ID.String())
	assert.ErrorIs(t, err, ErrMissingEmail)
	f.taxSystem.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestRegisterProspect_RejectsAlreadyLinked(t *testing.T) {
	f := newFixture(t)
	prospect := f.seedProspect(t, "user_1")

	_, err := f.svc.RegisterProspect(context.Background(), prospect.ID.String())
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	f.taxSystem.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestRegisterProspect_RemoteFailureLeavesProspectUntouched(t *testing.T) {
	f := newFixture(t)
	prospect := f.seedUnregisteredProspect(t, "kari@example.no")

	f.taxSystem.On("CreateUser", mock.Anything, mock.Anything).
		Return(taxsystem.User{}, taxsystem.ErrRequestFailed).Once()

	_, err := f.svc.RegisterProspect(context.Background(), prospect.ID.String())
	assert.ErrorIs(t, err, taxsystem.ErrRequestFailed)

	var stored prospectdomain.Prospect
	assert.NoError(t, f.db.First(&stored, "id = ?", prospect.ID).Error)
	assert.Nil(t, stored.TaxSystemUserID)
	assert.Equal(t, prospectdomain.StatusQualified, stored.Status)
}

func TestRegisterProspect_UnknownProspect(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RegisterProspect(context.Background(), "123456789")
	assert.ErrorIs(t, err, prospectdomain.ErrNotFound)
}
