package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/salestext/dtax-crm/internal/ticket/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, ticket *domain.Ticket) error {
	return db.WithContext(ctx).Omit("Messages").Create(ticket).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("id = ?", id).
		First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest) ([]domain.Ticket, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Ticket{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tickets []domain.Ticket
	err := stmt.
		Order("created_at DESC, id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&tickets).Error
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, ticket *domain.Ticket) error {
	return db.WithContext(ctx).Omit("Messages").Save(ticket).Error
}

func (r *repo) LatestNumber(ctx context.Context, db *gorm.DB, year int) (string, error) {
	// Suffixes are zero-padded to four digits but grow past 9999, so a
	// plain lexicographic sort would put TKT-2026-9999 above
	// TKT-2026-10000. Ordering by length first keeps it numeric.
	var ticket domain.Ticket
	err := db.WithContext(ctx).
		Where("ticket_number LIKE ?", domain.NumberPrefix(year)+"%").
		Order("LENGTH(ticket_number) DESC, ticket_number DESC").
		First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return ticket.TicketNumber, nil
}

func (r *repo) InsertMessage(ctx context.Context, db *gorm.DB, message *domain.Message) error {
	return db.WithContext(ctx).Create(message).Error
}
