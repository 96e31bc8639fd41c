package funnel

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/salestext/dtax-crm/internal/prospect/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newSidebarFixture(t *testing.T) (*gorm.DB, *Service, *snowflake.Node) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&domain.Prospect{}, &domain.Company{}, &domain.Task{}))

	node, _ := snowflake.NewNode(1)
	svc := New(Params{DB: db, Log: zap.NewNop()})
	return db, svc, node
}

func seedStatusProspect(t *testing.T, db *gorm.DB, node *snowflake.Node, status domain.Status) domain.Prospect {
	prospect := domain.Prospect{
		ID:        node.Generate(),
		FirstName: "Ola",
		LastName:  "Hansen",
		Status:    status,
		Source:    "web",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	assert.NoError(t, db.Create(&prospect).Error)
	return prospect
}

func TestSidebar_CountsByStatusGroup(t *testing.T) {
	db, svc, node := newSidebarFixture(t)

	seedStatusProspect(t, db, node, domain.StatusConverted)
	seedStatusProspect(t, db, node, domain.StatusInProgress)
	seedStatusProspect(t, db, node, domain.StatusStep4)
	seedStatusProspect(t, db, node, domain.StatusNew)
	seedStatusProspect(t, db, node, domain.StatusLost)

	stats, err := svc.Sidebar(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), stats.Converted)
	assert.Equal(t, int64(2), stats.InProgress)
	assert.Zero(t, stats.OverdueTasks)
}

func TestSidebar_CountsOverdueOpenTasksOnly(t *testing.T) {
	db, svc, node := newSidebarFixture(t)
	prospect := seedStatusProspect(t, db, node, domain.StatusContacted)

	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	tomorrow := time.Now().UTC().Add(24 * time.Hour)
	for _, task := range []domain.Task{
		{ID: node.Generate(), ProspectID: prospect.ID, Title: "Ring tilbake", DueDate: yesterday},
		{ID: node.Generate(), ProspectID: prospect.ID, Title: "Send avtale", DueDate: yesterday, Completed: true},
		{ID: node.Generate(), ProspectID: prospect.ID, Title: "Oppfølging", DueDate: tomorrow},
	} {
		assert.NoError(t, db.Create(&task).Error)
	}

	stats, err := svc.Sidebar(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), stats.OverdueTasks)
}

func TestSidebar_ConvertedCountIsMonthScoped(t *testing.T) {
	db, svc, node := newSidebarFixture(t)

	old := seedStatusProspect(t, db, node, domain.StatusConverted)
	lastMonth := time.Now().UTC().AddDate(0, -1, 0)
	assert.NoError(t, db.Model(&domain.Prospect{}).
		Where("id = ?", old.ID).
		Update("updated_at", lastMonth).Error)

	stats, err := svc.Sidebar(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, stats.Converted)
}
