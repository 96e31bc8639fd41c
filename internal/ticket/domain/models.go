package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Ticket statuses.
const (
	StatusOpen    = "OPEN"
	StatusPending = "PENDING"
	StatusClosed  = "CLOSED"
)

// Message directions.
const (
	DirectionInbound  = "INBOUND"
	DirectionOutbound = "OUTBOUND"
)

// Ticket is a support conversation. Its human-readable number restarts
// at 0001 every year.
type Ticket struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	TicketNumber string        `gorm:"column:ticket_number;type:text;not null;uniqueIndex" json:"ticketNumber"`
	ProspectID   *snowflake.ID `gorm:"column:prospect_id;index" json:"prospectId"`
	Subject      string        `gorm:"type:text;not null" json:"subject"`
	Status       string        `gorm:"type:text;not null;default:'OPEN';index" json:"status"`
	Priority     string        `gorm:"type:text;not null;default:'NORMAL'" json:"priority"`
	ClosedAt     *time.Time    `gorm:"column:closed_at" json:"closedAt"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`

	Messages []Message `gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// TableName sets the database table name.
func (Ticket) TableName() string { return "tickets" }

// Message is one append-only entry in a ticket conversation.
type Message struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TicketID  snowflake.ID `gorm:"column:ticket_id;not null;index" json:"ticketId"`
	Direction string       `gorm:"type:text;not null" json:"direction"`
	Sender    string       `gorm:"type:text;not null;default:''" json:"sender"`
	Content   string       `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (Message) TableName() string { return "ticket_messages" }

const numberPrefix = "TKT"

// NumberPrefix returns the ticket-number prefix for a year, e.g.
// "TKT-2026-".
func NumberPrefix(year int) string {
	return fmt.Sprintf("%s-%d-", numberPrefix, year)
}

// NextNumber derives the next ticket number from the latest one issued
// this year. The sequence is parsed from the previous number's suffix,
// so it survives deletions and needs no counter table.
func NextNumber(latest string, year int) string {
	prefix := NumberPrefix(year)
	sequence := 1
	if strings.HasPrefix(latest, prefix) {
		suffix := strings.TrimPrefix(latest, prefix)
		if n, err := strconv.Atoi(suffix); err == nil {
			sequence = n + 1
		}
	}
	return fmt.Sprintf("%s%04d", prefix, sequence)
}
