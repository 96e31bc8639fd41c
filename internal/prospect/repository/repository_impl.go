package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/salestext/dtax-crm/internal/prospect/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// sortColumns is the allow-list for dialer list sorting.
var sortColumns = map[string]string{
	"createdAt":    "created_at",
	"updatedAt":    "updated_at",
	"lastCalledAt": "last_called_at",
	"firstName":    "first_name",
	"lastName":     "last_name",
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, prospect *domain.Prospect) error {
	return db.WithContext(ctx).Create(prospect).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Prospect, error) {
	var prospect domain.Prospect
	err := db.WithContext(ctx).
		Preload("Companies").
		Where("id = ?", id).
		First(&prospect).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prospect, nil
}

func (r *repo) FindByTaxSystemUserID(ctx context.Context, db *gorm.DB, taxSystemUserID string) (*domain.Prospect, error) {
	var prospect domain.Prospect
	err := db.WithContext(ctx).
		Where("tax_system_user_id = ?", taxSystemUserID).
		First(&prospect).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prospect, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, prospect *domain.Prospect) error {
	return db.WithContext(ctx).
		Omit("Companies").
		Save(prospect).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Delete(&domain.Prospect{}, "id = ?", id).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListProspectRequest) ([]domain.Prospect, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Prospect{})
	if len(filter.Statuses) > 0 {
		stmt = stmt.Where("status IN ?", filter.Statuses)
	}
	if filter.HasPhone != nil {
		if *filter.HasPhone {
			stmt = stmt.Where("phone IS NOT NULL AND phone <> ''")
		} else {
			stmt = stmt.Where("phone IS NULL OR phone = ''")
		}
	}
	if filter.NotCalledSince != nil {
		stmt = stmt.Where("last_called_at IS NULL OR last_called_at < ?", *filter.NotCalledSince)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		stmt = stmt.Where(
			"first_name LIKE ? OR last_name LIKE ? OR email LIKE ? OR phone LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if filter.SortOrder == "asc" {
		direction = "ASC"
	}

	var prospects []domain.Prospect
	err := stmt.
		Preload("Companies").
		Order(fmt.Sprintf("%s %s, id %s", column, direction, direction)).
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&prospects).Error
	if err != nil {
		return nil, 0, err
	}
	return prospects, total, nil
}

func (r *repo) InsertCompany(ctx context.Context, db *gorm.DB, company *domain.Company) error {
	return db.WithContext(ctx).Create(company).Error
}

func (r *repo) InsertNote(ctx context.Context, db *gorm.DB, note *domain.Note) error {
	return db.WithContext(ctx).Create(note).Error
}

func (r *repo) InsertTask(ctx context.Context, db *gorm.DB, task *domain.Task) error {
	return db.WithContext(ctx).Create(task).Error
}

func (r *repo) FindTask(ctx context.Context, db *gorm.DB, prospectID, taskID snowflake.ID) (*domain.Task, error) {
	var task domain.Task
	err := db.WithContext(ctx).
		Where("id = ? AND prospect_id = ?", taskID, prospectID).
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *repo) UpdateTask(ctx context.Context, db *gorm.DB, task *domain.Task) error {
	return db.WithContext(ctx).Save(task).Error
}

func (r *repo) InsertActivity(ctx context.Context, db *gorm.DB, activity *domain.Activity) error {
	return db.WithContext(ctx).Create(activity).Error
}

func (r *repo) ListActivities(ctx context.Context, db *gorm.DB, prospectID snowflake.ID) ([]domain.Activity, error) {
	var activities []domain.Activity
	err := db.WithContext(ctx).
		Where("prospect_id = ?", prospectID).
		Order("created_at DESC, id DESC").
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}

func (r *repo) InsertContract(ctx context.Context, db *gorm.DB, contract *domain.Contract) error {
	return db.WithContext(ctx).Create(contract).Error
}

func (r *repo) FindContractByRef(ctx context.Context, db *gorm.DB, taxSystemRef string) (*domain.Contract, error) {
	var contract domain.Contract
	err := db.WithContext(ctx).
		Where("tax_system_ref = ?", taxSystemRef).
		First(&contract).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contract, nil
}
