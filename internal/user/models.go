package user

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Roles for internal CRM users.
const (
	RoleAdmin = "ADMIN"
	RoleAgent = "AGENT"
)

// User is an internal CRM account. Deactivation is a soft delete; the
// row stays for audit references.
type User struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Email     string       `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Role      string       `gorm:"type:text;not null;default:'AGENT'" json:"role"`
	IsActive  bool         `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
