package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"course-ledger/internal/clients"
	"course-ledger/internal/repository"
)

const (
	dashboardCacheKey = "dashboard:stats"
	dashboardCacheTTL = time.Minute
)

type StatsSource interface {
	DashboardStats(ctx context.Context) (*repository.DashboardStats, error)
}

type DashboardService struct {
	stats StatsSource
	redis *clients.RedisClient
}

func NewDashboardService(stats StatsSource, redis *clients.RedisClient) *DashboardService {
	return &DashboardService{stats: stats, redis: redis}
}

// Stats returns the dashboard aggregates, served from a short-lived redis
// cache when available.
func (s *DashboardService) Stats(ctx context.Context) (*repository.DashboardStats, error) {
	if s.redis != nil {
		if data, err := s.redis.Get(ctx, dashboardCacheKey); err == nil {
			var cached repository.DashboardStats
			if err := json.Unmarshal([]byte(data), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	stats, err := s.stats.DashboardStats(ctx)
	if err != nil {
		return nil, classifyStoreError(err)
	}

	if s.redis != nil {
		if data, err := json.Marshal(stats); err == nil {
			if err := s.redis.Set(ctx, dashboardCacheKey, string(data), dashboardCacheTTL); err != nil {
				log.Printf("dashboard cache write error: %v", err)
			}
		}
	}
	return stats, nil
}
