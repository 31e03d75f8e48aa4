package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// StatusCount is one row of a GROUP BY status aggregate
type StatusCount struct {
	Status string
	Count  int64
}

// StatisticsRepository feeds the dashboard summary
type StatisticsRepository interface {
	RequestCounts(ctx context.Context, scope Scope) ([]StatusCount, error)
	PurchaseOrderCounts(ctx context.Context, scope Scope) ([]StatusCount, error)
	ExpenseCounts(ctx context.Context, scope Scope) ([]StatusCount, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) RequestCounts(ctx context.Context, scope Scope) ([]StatusCount, error) {
	query := GetDB(ctx, r.db).Table("resource_requests").
		Joins("JOIN sites ON sites.id = resource_requests.site_id").
		Joins("JOIN projects ON projects.id = sites.project_id")
	if scope.SupervisorID != 0 {
		query = query.Where("sites.supervisor_id = ?", scope.SupervisorID)
	}
	return r.countByStatus(query, "resource_requests", scope.ManagerID)
}

func (r *statisticsRepository) PurchaseOrderCounts(ctx context.Context, scope Scope) ([]StatusCount, error) {
	query := r.projectScoped(ctx, "purchase_orders", scope)
	return r.countByStatus(query, "purchase_orders", scope.ManagerID)
}

func (r *statisticsRepository) ExpenseCounts(ctx context.Context, scope Scope) ([]StatusCount, error) {
	query := r.projectScoped(ctx, "expenses", scope)
	return r.countByStatus(query, "expenses", scope.ManagerID)
}

func (r *statisticsRepository) projectScoped(ctx context.Context, table string, scope Scope) *gorm.DB {
	query := GetDB(ctx, r.db).Table(table).
		Joins(fmt.Sprintf("JOIN projects ON projects.id = %s.project_id", table))
	if scope.SupervisorID != 0 {
		query = query.Where("projects.id IN (?)",
			GetDB(ctx, r.db).Table("sites").Select("project_id").Where("supervisor_id = ?", scope.SupervisorID))
	}
	return query
}

func (r *statisticsRepository) countByStatus(query *gorm.DB, table string, managerID int64) ([]StatusCount, error) {
	if managerID != 0 {
		query = query.Where("projects.manager_id = ?", managerID)
	}
	var rows []StatusCount
	err := query.
		Select(fmt.Sprintf("%s.status AS status, COUNT(*) AS count", table)).
		Group(fmt.Sprintf("%s.status", table)).
		Order("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count %s by status: %w", table, err)
	}
	return rows, nil
}
