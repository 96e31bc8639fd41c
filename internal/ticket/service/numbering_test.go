package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/salestext/dtax-crm/internal/ticket/domain"
	"github.com/salestext/dtax-crm/internal/ticket/repository"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*gorm.DB, domain.Service) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&domain.Ticket{}, &domain.Message{}))

	node, _ := snowflake.NewNode(1)
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return db, svc
}

func TestNextNumber_StartsAtOne(t *testing.T) {
	assert.Equal(t, "TKT-2026-0001", domain.NextNumber("", 2026))
}

func TestNextNumber_ParsesLeadingZeros(t *testing.T) {
	assert.Equal(t, "TKT-2026-0002", domain.NextNumber("TKT-2026-0001", 2026))
	assert.Equal(t, "TKT-2026-0043", domain.NextNumber("TKT-2026-0042", 2026))
	assert.Equal(t, "TKT-2026-0100", domain.NextNumber("TKT-2026-0099", 2026))
}

func TestNextNumber_YearRollover(t *testing.T) {
	// A previous-year number never feeds the new year's sequence.
	assert.Equal(t, "TKT-2027-0001", domain.NextNumber("TKT-2026-0042", 2027))
}

func TestNextNumber_PastFourDigits(t *testing.T) {
	assert.Equal(t, "TKT-2026-10000", domain.NextNumber("TKT-2026-9999", 2026))
}

func TestCreate_AssignsSequentialNumbers(t *testing.T) {
	_, svc := newTestService(t)
	year := time.Now().UTC().Year()

	first, err := svc.Create(context.Background(), domain.CreateRequest{
		Subject: "Mangler dokumenter",
		Content: "Hei, jeg finner ikke aksjeeierboken.",
	})
	assert.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("TKT-%d-0001", year), first.TicketNumber)
	assert.Len(t, first.Messages, 1)
	assert.Equal(t, domain.DirectionInbound, first.Messages[0].Direction)

	second, err := svc.Create(context.Background(), domain.CreateRequest{
		Subject: "Spørsmål om faktura",
		Content: "Hva dekker honoraret?",
	})
	assert.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("TKT-%d-0002", year), second.TicketNumber)
}

func TestCreate_SequenceSurvivesPriorYearTickets(t *testing.T) {
	db, svc := newTestService(t)
	year := time.Now().UTC().Year()

	node, _ := snowflake.NewNode(2)
	assert.NoError(t, db.Create(&domain.Ticket{
		ID:           node.Generate(),
		TicketNumber: fmt.Sprintf("TKT-%d-0042", year-1),
		Subject:      "Gammel sak",
		Status:       domain.StatusClosed,
		Priority:     "NORMAL",
	}).Error)

	ticket, err := svc.Create(context.Background(), domain.CreateRequest{
		Subject: "Ny sak",
		Content: "Første i året.",
	})
	assert.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("TKT-%d-0001", year), ticket.TicketNumber)
}

func TestCreate_SequenceContinuesPastFourDigits(t *testing.T) {
	db, svc := newTestService(t)
	year := time.Now().UTC().Year()

	node, _ := snowflake.NewNode(2)
	for _, number := range []string{
		fmt.Sprintf("TKT-%d-9999", year),
		fmt.Sprintf("TKT-%d-10000", year),
	} {
		assert.NoError(t, db.Create(&domain.Ticket{
			ID:           node.Generate(),
			TicketNumber: number,
			Subject:      "Eldre sak",
			Status:       domain.StatusClosed,
			Priority:     "NORMAL",
		}).Error)
	}

	ticket, err := svc.Create(context.Background(), domain.CreateRequest{
		Subject: "Sak nummer ti tusen og en",
		Content: "Fortsatt i samme år.",
	})
	assert.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("TKT-%d-10001", year), ticket.TicketNumber)
}

func TestUpdateStatus_ClosedSetsClosedAt(t *testing.T) {
	_, svc := newTestService(t)

	ticket, err := svc.Create(context.Background(), domain.CreateRequest{
		Subject: "Avslutt meg",
		Content: "Takk for hjelpen.",
	})
	assert.NoError(t, err)

	closed, err := svc.UpdateStatus(context.Background(), ticket.ID.String(), domain.StatusClosed)
	assert.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, closed.Status)
	assert.NotNil(t, closed.ClosedAt)

	reopened, err := svc.UpdateStatus(context.Background(), ticket.ID.String(), domain.StatusOpen)
	assert.NoError(t, err)
	assert.Nil(t, reopened.ClosedAt)
}

func TestAddMessage_InboundReopensClosedTicket(t *testing.T) {
	_, svc := newTestService(t)

	ticket, err := svc.Create(context.Background(), domain.CreateRequest{
		Subject: "Purring",
		Content: "Noen hjemme?",
	})
	assert.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), ticket.ID.String(), domain.StatusClosed)
	assert.NoError(t, err)

	_, err = svc.AddMessage(context.Background(), domain.AddMessageRequest{
		TicketID:  ticket.ID.String(),
		Direction: domain.DirectionInbound,
		Content:   "Jo, en ting til.",
	})
	assert.NoError(t, err)

	stored, err := svc.GetByID(context.Background(), ticket.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, stored.Status)
	assert.Nil(t, stored.ClosedAt)
	assert.Len(t, stored.Messages, 2)
}
