package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"crms/internal/repository"
	"crms/pkg/apperror"
	"crms/pkg/redis"
)

// Cache is the JSON cache the dashboard reads through. Nil disables caching.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type ProjectBudgetUsage struct {
	ProjectID   int64  `json:"project_id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Budget      string `json:"budget"`
	Committed   string `json:"committed"`
	Spent       string `json:"spent"`
	Available   string `json:"available"`
	UsedPercent string `json:"used_percent"`
}

type DashboardSummary struct {
	Role           string               `json:"role"`
	Requests       map[string]int64     `json:"requests"`
	PurchaseOrders map[string]int64     `json:"purchase_orders"`
	Expenses       map[string]int64     `json:"expenses"`
	Projects       []ProjectBudgetUsage `json:"projects"`
	UnreadCount    int64                `json:"unread_notifications"`
	GeneratedAt    time.Time            `json:"generated_at"`
}

type DashboardService interface {
	Summary(ctx context.Context, actor Actor) (*DashboardSummary, error)
}

type dashboardService struct {
	stats         repository.StatisticsRepository
	projects      repository.ProjectRepository
	budget        repository.BudgetRepository
	notifications repository.NotificationRepository
	cache         Cache
	ttl           time.Duration
	group         singleflight.Group
	logger        *zap.Logger
}

func NewDashboardService(
	stats repository.StatisticsRepository,
	projects repository.ProjectRepository,
	budget repository.BudgetRepository,
	notifications repository.NotificationRepository,
	cache Cache,
	ttl time.Duration,
	logger *zap.Logger,
) DashboardService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &dashboardService{
		stats:         stats,
		projects:      projects,
		budget:        budget,
		notifications: notifications,
		cache:         cache,
		ttl:           ttl,
		logger:        logger,
	}
}

// maxDashboardProjects caps the budget usage table
const maxDashboardProjects = 50

func dashboardKey(actor Actor) string {
	return fmt.Sprintf("dashboard:summary:%d", actor.UserID)
}

// Summary is cached per user and computed once for concurrent identical callers
func (s *dashboardService) Summary(ctx context.Context, actor Actor) (*DashboardSummary, error) {
	key := dashboardKey(actor)

	if s.cache != nil {
		var cached DashboardSummary
		err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.logger.Warn("Dashboard cache read failed", zap.Error(err))
		}
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// shared by every waiter, so it must outlive the first caller
		shared := context.WithoutCancel(ctx)
		summary, err := s.compute(shared, actor)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.SetJSON(shared, key, summary, s.ttl); err != nil {
				s.logger.Warn("Dashboard cache write failed", zap.Error(err))
			}
		}
		return summary, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*DashboardSummary), nil
}

func toCountMap(rows []repository.StatusCount) map[string]int64 {
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out
}

func (s *dashboardService) compute(ctx context.Context, actor Actor) (*DashboardSummary, error) {
	scope := scopeFor(actor)

	requests, err := s.stats.RequestCounts(ctx, scope)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load dashboard")
	}
	orders, err := s.stats.PurchaseOrderCounts(ctx, scope)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load dashboard")
	}
	expenses, err := s.stats.ExpenseCounts(ctx, scope)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load dashboard")
	}

	projects, _, err := s.projects.List(ctx, scope, "", 1, maxDashboardProjects)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load dashboard")
	}
	usage := make([]ProjectBudgetUsage, 0, len(projects))
	for i := range projects {
		p := &projects[i]
		totals, err := s.budget.Totals(ctx, p.ID)
		if err != nil {
			return nil, apperror.Internal(err, "failed to load dashboard")
		}
		snap := newBudgetSnapshot(p, totals)
		usage = append(usage, ProjectBudgetUsage{
			ProjectID:   p.ID,
			Name:        p.Name,
			Status:      p.Status,
			Budget:      snap.Budget.StringFixed(2),
			Committed:   snap.Committed().StringFixed(2),
			Spent:       snap.Spent.StringFixed(2),
			Available:   snap.Available().StringFixed(2),
			UsedPercent: snap.UsedPercent().StringFixed(2),
		})
	}

	unread, err := s.notifications.CountUnread(ctx, actor.UserID)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load dashboard")
	}

	return &DashboardSummary{
		Role:           actor.Role,
		Requests:       toCountMap(requests),
		PurchaseOrders: toCountMap(orders),
		Expenses:       toCountMap(expenses),
		Projects:       usage,
		UnreadCount:    unread,
		GeneratedAt:    time.Now().UTC(),
	}, nil
}
