package funnel

import (
	"context"
	"time"

	"github.com/salestext/dtax-crm/internal/prospect/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

// Service computes dashboard figures from the live prospect set.
type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(p Params) *Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("funnel.service"),
	}
}

// Overview is the dashboard payload.
type Overview struct {
	Valuation      Valuation        `json:"valuation"`
	StatusCounts   map[string]int64 `json:"statusCounts"`
	NewThisWeek    int64            `json:"newThisWeek"`
	ConvertedMonth int64            `json:"convertedThisMonth"`
	OpenTasks      int64            `json:"openTasks"`
	OverdueTasks   int64            `json:"overdueTasks"`
}

func (s *Service) Overview(ctx context.Context) (Overview, error) {
	var prospects []domain.Prospect
	err := s.db.WithContext(ctx).
		Preload("Companies").
		Find(&prospects).Error
	if err != nil {
		return Overview{}, err
	}

	counts := make(map[string]int64, len(domain.AllStatuses))
	for _, prospect := range prospects {
		counts[string(prospect.Status)]++
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	weekStart := now.AddDate(0, 0, -7)

	var newThisWeek int64
	err = s.db.WithContext(ctx).
		Model(&domain.Prospect{}).
		Where("created_at >= ?", weekStart).
		Count(&newThisWeek).Error
	if err != nil {
		return Overview{}, err
	}

	var convertedMonth int64
	err = s.db.WithContext(ctx).
		Model(&domain.Prospect{}).
		Where("converted_at >= ?", monthStart).
		Count(&convertedMonth).Error
	if err != nil {
		return Overview{}, err
	}

	var openTasks int64
	err = s.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("completed = ?", false).
		Count(&openTasks).Error
	if err != nil {
		return Overview{}, err
	}

	var overdueTasks int64
	err = s.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("completed = ? AND due_date < ?", false, now).
		Count(&overdueTasks).Error
	if err != nil {
		return Overview{}, err
	}

	return Overview{
		Valuation:      Valuate(prospects),
		StatusCounts:   counts,
		NewThisWeek:    newThisWeek,
		ConvertedMonth: convertedMonth,
		OpenTasks:      openTasks,
		OverdueTasks:   overdueTasks,
	}, nil
}

// SidebarStats is the lightweight counter set the navigation polls.
type SidebarStats struct {
	Converted    int64 `json:"converted"`
	InProgress   int64 `json:"inProgress"`
	OverdueTasks int64 `json:"overdueTasks"`
}

var inProgressStatuses = []domain.Status{
	domain.StatusInProgress,
	domain.StatusStep1,
	domain.StatusStep2,
	domain.StatusStep3,
	domain.StatusStep4,
	domain.StatusStep5,
	domain.StatusStep6,
}

func (s *Service) Sidebar(ctx context.Context) (SidebarStats, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var stats SidebarStats
	err := s.db.WithContext(ctx).
		Model(&domain.Prospect{}).
		Where("status = ? AND updated_at >= ?", domain.StatusConverted, monthStart).
		Count(&stats.Converted).Error
	if err != nil {
		return SidebarStats{}, err
	}

	err = s.db.WithContext(ctx).
		Model(&domain.Prospect{}).
		Where("status IN ?", inProgressStatuses).
		Count(&stats.InProgress).Error
	if err != nil {
		return SidebarStats{}, err
	}

	err = s.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("completed = ? AND due_date < ?", false, now).
		Count(&stats.OverdueTasks).Error
	if err != nil {
		return SidebarStats{}, err
	}

	return stats, nil
}

var Module = fx.Module("funnel.service",
	fx.Provide(New),
)
