package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/salestext/dtax-crm/internal/prospect/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("prospect.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProspectRequest) (domain.Prospect, error) {
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" || lastName == "" {
		return domain.Prospect{}, domain.ErrInvalidName
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "manual"
	}

	now := time.Now().UTC()
	prospect := domain.Prospect{
		ID:         s.genID.Generate(),
		FirstName:  firstName,
		LastName:   lastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Phone2:     req.Phone2,
		Address:    req.Address,
		PostalCode: req.PostalCode,
		City:       req.City,
		Status:     domain.StatusNew,
		Source:     source,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &prospect); err != nil {
			return err
		}
		for _, input := range req.Companies {
			name := strings.TrimSpace(input.CompanyName)
			if name == "" {
				continue
			}
			company := domain.Company{
				ID:               s.genID.Generate(),
				ProspectID:       prospect.ID,
				CompanyName:      name,
				OrgNumber:        strings.TrimSpace(input.OrgNumber),
				Role:             input.Role,
				ShareCapitalPaid: input.ShareCapitalPaid,
				CreatedAt:        now,
			}
			if err := s.repo.InsertCompany(ctx, tx, &company); err != nil {
				return err
			}
			prospect.Companies = append(prospect.Companies, company)
		}
		return nil
	})
	if err != nil {
		return domain.Prospect{}, err
	}

	return prospect, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Prospect, error) {
	prospectID, err := s.parseID(id)
	if err != nil {
		return domain.Prospect{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, prospectID)
	if err != nil {
		return domain.Prospect{}, err
	}
	if item == nil {
		return domain.Prospect{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateProspectRequest) (domain.Prospect, error) {
	prospectID, err := s.parseID(id)
	if err != nil {
		return domain.Prospect{}, err
	}

	if req.Status != nil && !domain.ValidStatus(*req.Status) {
		return domain.Prospect{}, domain.ErrInvalidStatus
	}

	var updated domain.Prospect
	err = s.db.Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, prospectID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}

		previousStatus := item.Status
		applyUpdate(item, req)
		item.UpdatedAt = time.Now().UTC()

		if err := s.repo.Update(ctx, tx, item); err != nil {
			return err
		}

		if req.Status != nil && *req.Status != previousStatus {
			if err := s.insertStatusActivity(ctx, tx, item.ID, previousStatus, *req.Status); err != nil {
				return err
			}
		}

		updated = *item
		return nil
	})
	if err != nil {
		return domain.Prospect{}, err
	}

	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	prospectID, err := s.parseID(id)
	if err != nil {
		return err
	}

	item, err := s.repo.FindByID(ctx, s.db, prospectID)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrNotFound
	}

	return s.repo.Delete(ctx, s.db, prospectID)
}

func (s *Service) List(ctx context.Context, req domain.ListProspectRequest) (domain.ListProspectResponse, error) {
	for _, status := range req.Statuses {
		if !domain.ValidStatus(status) {
			return domain.ListProspectResponse{}, domain.ErrInvalidStatus
		}
	}
	if req.SortBy != "" {
		if _, ok := sortField(req.SortBy); !ok {
			return domain.ListProspectResponse{}, domain.ErrInvalidSort
		}
	}

	if req.Limit <= 0 {
		req.Limit = 50
	}
	if req.Limit > 500 {
		req.Limit = 500
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	if req.SortOrder != "asc" {
		req.SortOrder = "desc"
	}

	items, total, err := s.repo.List(ctx, s.db, req)
	if err != nil {
		return domain.ListProspectResponse{}, err
	}

	return domain.ListProspectResponse{
		Prospects: items,
		Total:     total,
		Limit:     req.Limit,
		Offset:    req.Offset,
	}, nil
}

func (s *Service) RecordCallOutcome(ctx context.Context, req domain.RecordCallRequest) (domain.CallResult, error) {
	if !domain.ValidOutcome(req.Outcome) {
		return domain.CallResult{}, domain.ErrInvalidOutcome
	}
	if req.NewStatus != nil && !domain.ValidStatus(*req.NewStatus) {
		return domain.CallResult{}, domain.ErrInvalidStatus
	}

	prospectID, err := s.parseID(req.ProspectID)
	if err != nil {
		return domain.CallResult{}, err
	}

	var result domain.CallResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, prospectID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}

		now := time.Now().UTC()
		previousStatus := item.Status

		nextStatus := item.Status
		if req.NewStatus != nil {
			nextStatus = *req.NewStatus
		} else if req.Outcome == domain.OutcomeAnswered && item.Status == domain.StatusNew {
			nextStatus = domain.StatusContacted
		}

		item.Status = nextStatus
		item.LastCalledAt = &now
		item.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, item); err != nil {
			return err
		}

		note := domain.Note{
			ID:         s.genID.Generate(),
			ProspectID: item.ID,
			Content:    formatCallNote(req),
			CreatedAt:  now,
		}
		if err := s.repo.InsertNote(ctx, tx, &note); err != nil {
			return err
		}

		if nextStatus != previousStatus {
			if err := s.insertStatusActivity(ctx, tx, item.ID, previousStatus, nextStatus); err != nil {
				return err
			}
		}

		if req.Outcome == domain.OutcomeCallback && req.CallbackAt != nil {
			description := fmt.Sprintf("Avtalt med %s", req.SourceName)
			task := domain.Task{
				ID:          s.genID.Generate(),
				ProspectID:  item.ID,
				Title:       "Ring tilbake",
				Description: &description,
				DueDate:     req.CallbackAt.UTC(),
				CreatedAt:   now,
			}
			if err := s.repo.InsertTask(ctx, tx, &task); err != nil {
				return err
			}
			result.TaskCreated = true
		}

		result.Prospect = *item
		result.PreviousStatus = previousStatus
		return nil
	})
	if err != nil {
		return domain.CallResult{}, err
	}

	return result, nil
}

func (s *Service) AddNote(ctx context.Context, req domain.AddNoteRequest) (domain.Note, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return domain.Note{}, domain.ErrEmptyContent
	}

	prospectID, err := s.parseID(req.ProspectID)
	if err != nil {
		return domain.Note{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, prospectID)
	if err != nil {
		return domain.Note{}, err
	}
	if item == nil {
		return domain.Note{}, domain.ErrNotFound
	}

	note := domain.Note{
		ID:         s.genID.Generate(),
		ProspectID: prospectID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.InsertNote(ctx, s.db, &note); err != nil {
		return domain.Note{}, err
	}
	return note, nil
}

func (s *Service) AddTask(ctx context.Context, req domain.AddTaskRequest) (domain.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Task{}, domain.ErrEmptyContent
	}
	if req.DueDate.IsZero() {
		return domain.Task{}, domain.ErrInvalidDueDate
	}

	prospectID, err := s.parseID(req.ProspectID)
	if err != nil {
		return domain.Task{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, prospectID)
	if err != nil {
		return domain.Task{}, err
	}
	if item == nil {
		return domain.Task{}, domain.ErrNotFound
	}

	task := domain.Task{
		ID:          s.genID.Generate(),
		ProspectID:  prospectID,
		Title:       title,
		Description: req.Description,
		DueDate:     req.DueDate.UTC(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.InsertTask(ctx, s.db, &task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

func (s *Service) CompleteTask(ctx context.Context, prospectID, taskID string) (domain.Task, error) {
	pid, err := s.parseID(prospectID)
	if err != nil {
		return domain.Task{}, err
	}
	tid, err := s.parseID(taskID)
	if err != nil {
		return domain.Task{}, err
	}

	task, err := s.repo.FindTask(ctx, s.db, pid, tid)
	if err != nil {
		return domain.Task{}, err
	}
	if task == nil {
		return domain.Task{}, domain.ErrNotFound
	}

	task.Completed = true
	if err := s.repo.UpdateTask(ctx, s.db, task); err != nil {
		return domain.Task{}, err
	}
	return *task, nil
}

func (s *Service) Activities(ctx context.Context, prospectID string) ([]domain.Activity, error) {
	pid, err := s.parseID(prospectID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListActivities(ctx, s.db, pid)
}

func (s *Service) LogActivity(ctx context.Context, prospectID snowflake.ID, activityType, subject string, description *string, metadata map[string]interface{}) error {
	activity := domain.Activity{
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
	return s.repo.InsertActivity(ctx, s.db, &activity)
}

func (s *Service) insertStatusActivity(ctx context.Context, tx *gorm.DB, prospectID snowflake.ID, from, to domain.Status) error {
	activity := domain.Activity{
		ID:         s.genID.Generate(),
		ProspectID: prospectID,
		Type:       domain.ActivityStatusChange,
		Subject:    fmt.Sprintf("Status endret: %s til %s", from, to),
		Metadata: datatypes.JSONMap{
			"from": string(from),
			"to":   string(to),
		},
		CreatedAt: time.Now().UTC(),
	}
	return s.repo.InsertActivity(ctx, tx, &activity)
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func applyUpdate(prospect *domain.Prospect, req domain.UpdateProspectRequest) {
	if req.FirstName != nil {
		prospect.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		prospect.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		prospect.Email = req.Email
	}
	if req.Phone != nil {
		prospect.Phone = req.Phone
	}
	if req.Phone2 != nil {
		prospect.Phone2 = req.Phone2
	}
	if req.Address != nil {
		prospect.Address = req.Address
	}
	if req.PostalCode != nil {
		prospect.PostalCode = req.PostalCode
	}
	if req.City != nil {
		prospect.City = req.City
	}
	if req.Status != nil {
		prospect.Status = *req.Status
	}
	if req.CurrentStep != nil {
		prospect.CurrentStep = *req.CurrentStep
	}
	if req.TaxSystemUserID != nil {
		prospect.TaxSystemUserID = req.TaxSystemUserID
	}
	if req.TaxSystemStatus != nil {
		prospect.TaxSystemStatus = req.TaxSystemStatus
	}
	if req.LastCalledAt != nil {
		prospect.LastCalledAt = req.LastCalledAt
	}
}

func formatCallNote(req domain.RecordCallRequest) string {
	var b strings.Builder
	b.WriteString("Samtale (")
	b.WriteString(string(req.Outcome))
	b.WriteString(")")
	if req.DurationSeconds != nil {
		fmt.Fprintf(&b, ", %ds", *req.DurationSeconds)
	}
	if req.SourceName != "" {
		b.WriteString(" via ")
		b.WriteString(req.SourceName)
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		b.WriteString(": ")
		b.WriteString(notes)
	}
	return b.String()
}

func sortField(field string) (string, bool) {
	switch field {
	case "createdAt", "updatedAt", "lastCalledAt", "firstName", "lastName":
		return field, true
	}
	return "", false
}
