package intlog

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IntegrationLog records one outbound call to an external system.
type IntegrationLog struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	System     string       `gorm:"type:text;not null;index" json:"system"`
	Operation  string       `gorm:"type:text;not null" json:"operation"`
	Success    bool         `gorm:"not null" json:"success"`
	StatusCode int          `gorm:"column:status_code;not null;default:0" json:"statusCode"`
	Error      *string      `json:"error"`
	DurationMs int64        `gorm:"column:duration_ms;not null;default:0" json:"durationMs"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (IntegrationLog) TableName() string { return "integration_logs" }

// Entry is one call outcome to record.
type Entry struct {
	System     string
	Operation  string
	Success    bool
	StatusCode int
	Err        error
	Duration   time.Duration
}

// Recorder persists integration log entries. Best effort; a failed write
// is logged and never propagated.
type Recorder struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewRecorder(db *gorm.DB, log *zap.Logger, genID *snowflake.Node) *Recorder {
	return &Recorder{
		db:    db,
		log:   log.Named("integrations.log"),
		genID: genID,
	}
}

func (r *Recorder) Record(ctx context.Context, entry Entry) {
	row := IntegrationLog{
		ID:         r.genID.Generate(),
		System:     entry.System,
		Operation:  entry.Operation,
		Success:    entry.Success,
		StatusCode: entry.StatusCode,
		DurationMs: entry.Duration.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if entry.Err != nil {
		message := entry.Err.Error()
		row.Error = &message
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		r.log.Warn("integration log write failed",
			zap.String("system", entry.System),
			zap.String("operation", entry.Operation),
			zap.Error(err),
		)
	}
}
