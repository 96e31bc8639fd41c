package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/salestext/dtax-crm/internal/ticket/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
		log:   p.Log.Named("ticket.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Ticket, error) {
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return domain.Ticket{}, domain.ErrInvalidSubject
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return domain.Ticket{}, domain.ErrEmptyContent
	}

	direction := req.Direction
	if direction == "" {
		direction = domain.DirectionInbound
	}
	if !validDirection(direction) {
		return domain.Ticket{}, domain.ErrInvalidDirection
	}

	priority := req.Priority
	if priority == "" {
		priority = "NORMAL"
	}

	var prospectID *snowflake.ID
	if req.ProspectID != nil && strings.TrimSpace(*req.ProspectID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(*req.ProspectID))
		if err != nil || id == 0 {
			return domain.Ticket{}, domain.ErrInvalidID
		}
		prospectID = &id
	}

	now := time.Now().UTC()
	ticket := domain.Ticket{
		ID:         s.genID.Generate(),
		ProspectID: prospectID,
		Subject:    subject,
		Status:     domain.StatusOpen,
		Priority:   priority,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		latest, err := s.repo.LatestNumber(ctx, tx, now.Year())
		if err != nil {
			return err
		}
		ticket.TicketNumber = domain.NextNumber(latest, now.Year())

		if err := s.repo.Insert(ctx, tx, &ticket); err != nil {
			return err
		}

		message := domain.Message{
			ID:        s.genID.Generate(),
			TicketID:  ticket.ID,
			Direction: direction,
			Sender:    strings.TrimSpace(req.Sender),
			Content:   content,
			CreatedAt: now,
		}
		if err := s.repo.InsertMessage(ctx, tx, &message); err != nil {
			return err
		}
		ticket.Messages = []domain.Message{message}
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}

	return ticket, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Ticket, error) {
	ticketID, err := s.parseID(id)
	if err != nil {
		return domain.Ticket{}, err
	}

	ticket, err := s.repo.FindByID(ctx, s.db, ticketID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if ticket == nil {
		return domain.Ticket{}, domain.ErrNotFound
	}
	return *ticket, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.Status != "" && !validStatus(req.Status) {
		return domain.ListResponse{}, domain.ErrInvalidStatus
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

	tickets, total, err := s.repo.List(ctx, s.db, req)
	if err != nil {
		return domain.ListResponse{}, err
	}
	return domain.ListResponse{Tickets: tickets, Total: total}, nil
}

func (s *Service) AddMessage(ctx context.Context, req domain.AddMessageRequest) (domain.Message, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return domain.Message{}, domain.ErrEmptyContent
	}
	if !validDirection(req.Direction) {
		return domain.Message{}, domain.ErrInvalidDirection
	}

	ticketID, err := s.parseID(req.TicketID)
	if err != nil {
		return domain.Message{}, err
	}

	var message domain.Message
	err = s.db.Transaction(func(tx *gorm.DB) error {
		ticket, err := s.repo.FindByID(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if ticket == nil {
			return domain.ErrNotFound
		}

		now := time.Now().UTC()
		message = domain.Message{
			ID:        s.genID.Generate(),
			TicketID:  ticket.ID,
			Direction: req.Direction,
			Sender:    strings.TrimSpace(req.Sender),
			Content:   content,
			CreatedAt: now,
		}
		if err := s.repo.InsertMessage(ctx, tx, &message); err != nil {
			return err
		}

		// An inbound reply reopens a closed ticket.
		if req.Direction == domain.DirectionInbound && ticket.Status == domain.StatusClosed {
			ticket.Status = domain.StatusOpen
			ticket.ClosedAt = nil
		}
		ticket.UpdatedAt = now
		return s.repo.Update(ctx, tx, ticket)
	})
	if err != nil {
		return domain.Message{}, err
	}

	return message, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id, status string) (domain.Ticket, error) {
	if !validStatus(status) {
		return domain.Ticket{}, domain.ErrInvalidStatus
	}

	ticketID, err := s.parseID(id)
	if err != nil {
		return domain.Ticket{}, err
	}

	ticket, err := s.repo.FindByID(ctx, s.db, ticketID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if ticket == nil {
		return domain.Ticket{}, domain.ErrNotFound
	}

	now := time.Now().UTC()
	ticket.Status = status
	ticket.UpdatedAt = now
	if status == domain.StatusClosed {
		ticket.ClosedAt = &now
	} else {
		ticket.ClosedAt = nil
	}

	if err := s.repo.Update(ctx, s.db, ticket); err != nil {
		return domain.Ticket{}, err
	}
	return *ticket, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func validDirection(direction string) bool {
	return direction == domain.DirectionInbound || direction == domain.DirectionOutbound
}

func validStatus(status string) bool {
	switch status {
	case domain.StatusOpen, domain.StatusPending, domain.StatusClosed:
		return true
	}
	return false
}
