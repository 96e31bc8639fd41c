package taxevent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/salestext/dtax-crm/internal/integrations/taxsystem"
	invoicedomain "github.com/salestext/dtax-crm/internal/invoice/domain"
	prospectdomain "github.com/salestext/dtax-crm/internal/prospect/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrMissingEmail      = errors.New("missing_email")
	ErrAlreadyRegistered = errors.New("already_registered")
)

// Event types delivered by tax.salestext.no.
const (
	EventUserCreated    = "user.created"
	EventCaseCreated    = "case.created"
	EventStepCompleted  = "step.completed"
	EventCaseSubmitted  = "case.submitted"
	EventContractSigned = "contract.signed"
)

// Event is one webhook delivery from the tax-case processor.
type Event struct {
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

type EventData struct {
	UserID       string  `json:"userId"`
	CaseID       string  `json:"caseId"`
	Step         int     `json:"step"`
	TaxBenefit   float64 `json:"taxBenefit"`
	SignatureRef string  `json:"signatureRef"`
	Timestamp    string  `json:"timestamp"`
}

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	ProspectRepo prospectdomain.Repository
	InvoiceSvc   invoicedomain.Service
	TaxSystem    taxsystem.Client
}

// Service applies tax-system webhook events to the prospect funnel.
// Deliveries for unknown users and unknown event types are dropped
// without error; replays are reapplied as-is.
type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	prospectRepo prospectdomain.Repository
	invoiceSvc   invoicedomain.Service
	taxSystem    taxsystem.Client
}

func New(p Params) *Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("taxevent.service"),
		genID:        p.GenID,
		prospectRepo: p.ProspectRepo,
		invoiceSvc:   p.InvoiceSvc,
		taxSystem:    p.TaxSystem,
	}
}

// RegisterProspect creates the prospect as a user in tax.salestext.no
// and stores the returned user id. That id is the key every later
// webhook delivery is matched on.
func (s *Service) RegisterProspect(ctx context.Context, prospectID string) (*prospectdomain.Prospect, error) {
	id, err := snowflake.ParseString(prospectID)
	if err != nil {
		return nil, prospectdomain.ErrInvalidID
	}

	prospect, err := s.prospectRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if prospect == nil {
		return nil, prospectdomain.ErrNotFound
	}
	if prospect.Email == nil || *prospect.Email == "" {
		return nil, ErrMissingEmail
	}
	if prospect.TaxSystemUserID != nil && *prospect.TaxSystemUserID != "" {
		return nil, ErrAlreadyRegistered
	}

	user, err := s.taxSystem.CreateUser(ctx, taxsystem.CreateUserInput{
		Email:      *prospect.Email,
		FirstName:  prospect.FirstName,
		LastName:   prospect.LastName,
		Phone:      prospect.Phone,
		Source:     "crm_import",
		ProspectID: prospect.ID.String(),
	})
	if err != nil {
		return nil, err
	}

	registered := prospectdomain.TaxSystemStatusRegistered
	description := fmt.Sprintf("E-post sendt til %s. Bruker-ID: %s", *prospect.Email, user.ID)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		prospect.TaxSystemUserID = &user.ID
		prospect.TaxSystemStatus = &registered
		prospect.Status = prospectdomain.StatusInProgress
		prospect.UpdatedAt = time.Now().UTC()
		if err := s.prospectRepo.Update(ctx, tx, prospect); err != nil {
			return err
		}
		return s.insertActivity(ctx, tx, prospect.ID, prospectdomain.ActivitySystemEvent,
			"Bruker opprettet i tax.salestext.no", &description,
			map[string]interface{}{"taxSystemUserId": user.ID})
	})
	if err != nil {
		return nil, err
	}
	return prospect, nil
}

func (s *Service) Handle(ctx context.Context, event Event) error {
	s.log.Info("tax system event received",
		zap.String("type", event.Type),
		zap.String("user_id", event.Data.UserID),
	)

	switch event.Type {
	case EventUserCreated:
		return s.handleUserCreated(ctx, event.Data)
	case EventCaseCreated:
		return s.handleCaseCreated(ctx, event.Data)
	case EventStepCompleted:
		return s.handleStepCompleted(ctx, event.Data)
	case EventCaseSubmitted:
		return s.handleCaseSubmitted(ctx, event.Data)
	case EventContractSigned:
		return s.handleContractSigned(ctx, event.Data)
	}

	s.log.Warn("unknown tax system event", zap.String("type", event.Type))
	return nil
}

func (s *Service) handleUserCreated(ctx context.Context, data EventData) error {
	prospect, err := s.findProspect(ctx, data.UserID)
	if err != nil || prospect == nil {
		return err
	}

	registered := prospectdomain.TaxSystemStatusRegistered
	description := "Bruker-ID: " + data.UserID
	return s.db.Transaction(func(tx *gorm.DB) error {
		prospect.TaxSystemStatus = &registered
		prospect.Status = prospectdomain.StatusInProgress
		prospect.UpdatedAt = time.Now().UTC()
		if err := s.prospectRepo.Update(ctx, tx, prospect); err != nil {
			return err
		}
		return s.insertActivity(ctx, tx, prospect.ID, prospectdomain.ActivitySystemEvent,
			"Bruker opprettet i tax.salestext.no", &description, nil)
	})
}

func (s *Service) handleCaseCreated(ctx context.Context, data EventData) error {
	prospect, err := s.findProspect(ctx, data.UserID)
	if err != nil || prospect == nil {
		return err
	}

	caseCreated := prospectdomain.TaxSystemStatusCaseCreated
	description := "Sak-ID: " + data.CaseID
	return s.db.Transaction(func(tx *gorm.DB) error {
		prospect.TaxSystemStatus = &caseCreated
		prospect.Status = prospectdomain.StatusStep1
		prospect.CurrentStep = 1
		prospect.UpdatedAt = time.Now().UTC()
		if err := s.prospectRepo.Update(ctx, tx, prospect); err != nil {
			return err
		}
		return s.insertActivity(ctx, tx, prospect.ID, prospectdomain.ActivityStatusChange,
			"Sak opprettet", &description, map[string]interface{}{"caseId": data.CaseID})
	})
}

func (s *Service) handleStepCompleted(ctx context.Context, data EventData) error {
	prospect, err := s.findProspect(ctx, data.UserID)
	if err != nil || prospect == nil {
		return err
	}

	status, ok := prospectdomain.StepStatus(data.Step)
	if !ok {
		s.log.Warn("step out of range", zap.Int("step", data.Step))
		return nil
	}

	description := stepDescription(data.Step)
	return s.db.Transaction(func(tx *gorm.DB) error {
		prospect.Status = status
		prospect.CurrentStep = data.Step
		prospect.UpdatedAt = time.Now().UTC()
		if err := s.prospectRepo.Update(ctx, tx, prospect); err != nil {
			return err
		}
		return s.insertActivity(ctx, tx, prospect.ID, prospectdomain.ActivityStatusChange,
			fmt.Sprintf("Steg %d fullført", data.Step), &description,
			map[string]interface{}{"step": data.Step})
	})
}

func (s *Service) handleCaseSubmitted(ctx context.Context, data EventData) error {
	prospect, err := s.findProspect(ctx, data.UserID)
	if err != nil || prospect == nil {
		return err
	}

	now := time.Now().UTC()
	submitted := prospectdomain.TaxSystemStatusSubmitted
	benefitText := "Beregnes"
	if data.TaxBenefit > 0 {
		benefitText = fmt.Sprintf("%.0f kr", data.TaxBenefit)
	}
	description := fmt.Sprintf("Sak %s er sendt. Skattefordel: %s", data.CaseID, benefitText)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		prospect.Status = prospectdomain.StatusStep6
		prospect.TaxSystemStatus = &submitted
		prospect.CurrentStep = 6
		prospect.ConvertedAt = &now
		prospect.UpdatedAt = now
		if err := s.prospectRepo.Update(ctx, tx, prospect); err != nil {
			return err
		}
		return s.insertActivity(ctx, tx, prospect.ID, prospectdomain.ActivityTaxSubmitted,
			"Skattemelding sendt til Skatteetaten", &description,
			map[string]interface{}{"caseId": data.CaseID, "taxBenefit": data.TaxBenefit})
	})
	if err != nil {
		return err
	}

	if data.TaxBenefit <= 0 {
		return nil
	}

	// Invoice failure must not fail the delivery; the submitted state
	// above stands and the gap is visible in the logs.
	benefit := data.TaxBenefit
	if taxCase, err := s.taxSystem.GetCase(ctx, data.CaseID); err != nil {
		s.log.Warn("tax case lookup failed, using event benefit",
			zap.String("case_id", data.CaseID),
			zap.Error(err),
		)
	} else if taxCase.TaxBenefit > 0 {
		benefit = taxCase.TaxBenefit
	}

	_, err = s.invoiceSvc.CreateFromTaxCase(ctx, invoicedomain.CreateFromTaxCaseRequest{
		ProspectID: prospect.ID,
		TaxCaseID:  data.CaseID,
		TaxBenefit: benefit,
	})
	if err != nil {
		s.log.Error("invoice creation failed",
			zap.String("prospect_id", prospect.ID.String()),
			zap.String("case_id", data.CaseID),
			zap.Error(err),
		)
	}
	return nil
}

func (s *Service) handleContractSigned(ctx context.Context, data EventData) error {
	prospect, err := s.findProspect(ctx, data.UserID)
	if err != nil || prospect == nil {
		return err
	}

	description := "Signaturreferanse: " + data.SignatureRef
	if err := s.insertActivity(ctx, s.db, prospect.ID, prospectdomain.ActivityContractSigned,
		"Kontrakt signert med BankID", &description,
		map[string]interface{}{"signatureRef": data.SignatureRef}); err != nil {
		return err
	}

	// Contract sync is best effort.
	if err := s.syncContract(ctx, prospect.ID, data.SignatureRef); err != nil {
		s.log.Warn("contract sync failed",
			zap.String("prospect_id", prospect.ID.String()),
			zap.String("signature_ref", data.SignatureRef),
			zap.Error(err),
		)
	}
	return nil
}

func (s *Service) syncContract(ctx context.Context, prospectID snowflake.ID, signatureRef string) error {
	if signatureRef == "" {
		return nil
	}

	existing, err := s.prospectRepo.FindContractByRef(ctx, s.db, signatureRef)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	remote, err := s.taxSystem.GetContract(ctx, signatureRef)
	if err != nil {
		return err
	}

	contract := prospectdomain.Contract{
		ID:           s.genID.Generate(),
		ProspectID:   prospectID,
		ContractType: remote.ContractType,
		Status:       "SIGNED",
		SignedAt:     remote.SignedAt,
		SignatureRef: remote.SignatureRef,
		TaxSystemRef: signatureRef,
		CreatedAt:    time.Now().UTC(),
	}
	if contract.ContractType == "" {
		contract.ContractType = "ENGAGEMENT"
	}
	return s.prospectRepo.InsertContract(ctx, s.db, &contract)
}

func (s *Service) findProspect(ctx context.Context, userID string) (*prospectdomain.Prospect, error) {
	if userID == "" {
		return nil, nil
	}
	prospect, err := s.prospectRepo.FindByTaxSystemUserID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if prospect == nil {
		s.log.Info("event for unknown tax system user", zap.String("user_id", userID))
		return nil, nil
	}
	return prospect, nil
}

func (s *Service) insertActivity(ctx context.Context, db *gorm.DB, prospectID snowflake.ID, activityType, subject string, description *string, metadata map[string]interface{}) error {
	activity := prospectdomain.Activity{
		ID:          s.genID.Generate(),
		ProspectID:  prospectID,
		Type:        activityType,
		Subject:     subject,
		Description: description,
		Metadata:    datatypes.JSONMap(metadata),
		CreatedAt:   time.Now().UTC(),
	}
	if activity.Metadata == nil {
		activity.Metadata = datatypes.JSONMap{}
	}
	return s.prospectRepo.InsertActivity(ctx, db, &activity)
}

func stepDescription(step int) string {
	switch step {
	case 1:
		return "Kontrakt og samtykke godkjent"
	case 2:
		return "Dokumenter lastet opp"
	case 3:
		return "AI-analyse fullført"
	case 4:
		return "Gjennomgang av forslag"
	case 5:
		return "Klar for innsending"
	case 6:
		return "Sendt til Skatteetaten"
	}
	return fmt.Sprintf("Steg %d fullført", step)
}

var Module = fx.Module("taxevent.service",
	fx.Provide(New),
)
