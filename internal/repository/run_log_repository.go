package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"paperqa/internal/model"
)

type RunLogRepository struct {
	db *gorm.DB
}

func NewRunLogRepository(db *gorm.DB) *RunLogRepository {
	return &RunLogRepository{db: db}
}

func (r *RunLogRepository) Create(runLog *model.RunLog) error {
	if err := r.db.Create(runLog).Error; err != nil {
		return fmt.Errorf("create run log failed: %w", err)
	}
	return nil
}

// Summary aggregates run logs over the trailing window.
type Summary struct {
	Since        time.Time        `json:"since"`
	TotalQueries int64            `json:"total_queries"`
	ErrorCount   int64            `json:"error_count"`
	AvgLatencyMs float64          `json:"avg_latency_ms"`
	ByStrategy   map[string]int64 `json:"by_strategy"`
}

func (r *RunLogRepository) Summarize(sinceDays int) (*Summary, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	since := time.Now().AddDate(0, 0, -sinceDays)
	summary := &Summary{Since: since, ByStrategy: make(map[string]int64)}

	base := r.db.Model(&model.RunLog{}).Where("created_at >= ?", since)

	if err := base.Session(&gorm.Session{}).Count(&summary.TotalQueries).Error; err != nil {
		return nil, fmt.Errorf("count run logs failed: %w", err)
	}
	if err := base.Session(&gorm.Session{}).Where("error IS NOT NULL").Count(&summary.ErrorCount).Error; err != nil {
		return nil, fmt.Errorf("count run log errors failed: %w", err)
	}
	if summary.TotalQueries > 0 {
		var avg *float64
		err := base.Session(&gorm.Session{}).Select("AVG(latency_ms)").Scan(&avg).Error
		if err != nil {
			return nil, fmt.Errorf("average run log latency failed: %w", err)
		}
		if avg != nil {
			summary.AvgLatencyMs = *avg
		}
	}

	rows := []struct {
		Strategy string
		Count    int64
	}{}
	err := base.Session(&gorm.Session{}).
		Select("strategy, COUNT(*) AS count").
		Group("strategy").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("group run logs by strategy failed: %w", err)
	}
	for _, row := range rows {
		summary.ByStrategy[row.Strategy] = row.Count
	}
	return summary, nil
}
