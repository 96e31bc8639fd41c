package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
)

// APIKey stores hashed credentials for the external dialer API. The
// plaintext key is never persisted; only its SHA-256 hash and a short
// display prefix survive creation.
type APIKey struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:text;not null" json:"name"`
	KeyHash     string         `gorm:"column:key_hash;type:text;not null;uniqueIndex" json:"-"`
	KeyPrefix   string         `gorm:"column:key_prefix;type:text;not null" json:"keyPrefix"`
	Permissions pq.StringArray `gorm:"type:text[];not null" json:"permissions"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true" json:"isActive"`
	UsageCount  int64          `gorm:"column:usage_count;not null;default:0" json:"usageCount"`
	LastUsedAt  *time.Time     `gorm:"column:last_used_at" json:"lastUsedAt"`
	ExpiresAt   *time.Time     `gorm:"column:expires_at" json:"expiresAt"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (APIKey) TableName() string { return "api_keys" }

// APILog is an append-only record of one authenticated call.
type APILog struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	APIKeyID       snowflake.ID `gorm:"column:api_key_id;not null;index" json:"apiKeyId"`
	Endpoint       string       `gorm:"type:text;not null" json:"endpoint"`
	Method         string       `gorm:"type:text;not null" json:"method"`
	StatusCode     int          `gorm:"column:status_code;not null" json:"statusCode"`
	IPAddress      string       `gorm:"column:ip_address;type:text;not null;default:''" json:"ipAddress"`
	UserAgent      string       `gorm:"column:user_agent;type:text;not null;default:''" json:"userAgent"`
	ResponseTimeMs int64        `gorm:"column:response_time_ms;not null;default:0" json:"responseTimeMs"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (APILog) TableName() string { return "api_logs" }
