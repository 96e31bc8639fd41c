package campaign

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Campaign tags a batch of prospects with their acquisition source.
type Campaign struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Source    string       `gorm:"type:text;not null;default:''" json:"source"`
	Budget    *float64     `json:"budget"`
	StartDate *time.Time   `gorm:"column:start_date" json:"startDate"`
	EndDate   *time.Time   `gorm:"column:end_date" json:"endDate"`
	IsActive  bool         `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (Campaign) TableName() string { return "campaigns" }
