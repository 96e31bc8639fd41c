package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateRequest struct {
	Subject    string  `json:"subject"`
	Content    string  `json:"content"`
	Direction  string  `json:"direction"`
	Sender     string  `json:"sender"`
	Priority   string  `json:"priority"`
	ProspectID *string `json:"prospectId"`
}

type AddMessageRequest struct {
	TicketID  string `json:"-"`
	Direction string `json:"direction"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
}

type ListRequest struct {
	Status string
	Limit  int
	Offset int
}

type ListResponse struct {
	Tickets []Ticket `json:"tickets"`
	Total   int64    `json:"total"`
}

type Service interface {
	// Create opens a ticket with its first message; the ticket number is
	// assigned inside the same transaction.
	Create(context.Context, CreateRequest) (Ticket, error)
	GetByID(ctx context.Context, id string) (Ticket, error)
	List(context.Context, ListRequest) (ListResponse, error)
	AddMessage(context.Context, AddMessageRequest) (Message, error)
	UpdateStatus(ctx context.Context, id, status string) (Ticket, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, ticket *Ticket) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Ticket, error)
	List(ctx context.Context, db *gorm.DB, filter ListRequest) ([]Ticket, int64, error)
	Update(ctx context.Context, db *gorm.DB, ticket *Ticket) error

	// LatestNumber returns the highest ticket number issued for the
	// given year, or "" when none exists.
	LatestNumber(ctx context.Context, db *gorm.DB, year int) (string, error)

	InsertMessage(ctx context.Context, db *gorm.DB, message *Message) error
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidSubject   = errors.New("invalid_subject")
	ErrEmptyContent     = errors.New("empty_content")
	ErrInvalidDirection = errors.New("invalid_direction")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrNotFound         = errors.New("not_found")
)
