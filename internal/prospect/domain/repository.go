package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository takes the db handle per call so services can run several
// writes inside one transaction.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, prospect *Prospect) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Prospect, error)
	FindByTaxSystemUserID(ctx context.Context, db *gorm.DB, taxSystemUserID string) (*Prospect, error)
	Update(ctx context.Context, db *gorm.DB, prospect *Prospect) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	List(ctx context.Context, db *gorm.DB, filter ListProspectRequest) ([]Prospect, int64, error)

	InsertCompany(ctx context.Context, db *gorm.DB, company *Company) error
	InsertNote(ctx context.Context, db *gorm.DB, note *Note) error
	InsertTask(ctx context.Context, db *gorm.DB, task *Task) error
	FindTask(ctx context.Context, db *gorm.DB, prospectID, taskID snowflake.ID) (*Task, error)
	UpdateTask(ctx context.Context, db *gorm.DB, task *Task) error
	InsertActivity(ctx context.Context, db *gorm.DB, activity *Activity) error
	ListActivities(ctx context.Context, db *gorm.DB, prospectID snowflake.ID) ([]Activity, error)
	InsertContract(ctx context.Context, db *gorm.DB, contract *Contract) error
	FindContractByRef(ctx context.Context, db *gorm.DB, taxSystemRef string) (*Contract, error)
}
