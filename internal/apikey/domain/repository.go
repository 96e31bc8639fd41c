package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, key *APIKey) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*APIKey, error)
	FindByHash(ctx context.Context, db *gorm.DB, keyHash string) (*APIKey, error)
	List(ctx context.Context, db *gorm.DB) ([]APIKey, error)
	Update(ctx context.Context, db *gorm.DB, key *APIKey) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	// BumpUsage increments usage_count and stamps last_used_at.
	BumpUsage(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertLog(ctx context.Context, db *gorm.DB, log *APILog) error
	RecentLogs(ctx context.Context, db *gorm.DB, keyID snowflake.ID, limit int) ([]APILog, error)
}
