package repository

import (
	"context"

	"gorm.io/gorm"

	"crms/internal/model"
	"crms/internal/workflow"
)

type ExpenseFilter struct {
	Scope     Scope
	ProjectID int64
	Status    string
	Category  string
	Page      int
	Limit     int
}

type ExpenseRepository interface {
	Create(ctx context.Context, e *model.Expense) error
	FindByID(ctx context.Context, id int64) (*model.Expense, error)
	List(ctx context.Context, filter ExpenseFilter) ([]model.Expense, int64, error)
	Transition(ctx context.Context, id int64, from []workflow.Status, fields map[string]interface{}) (bool, error)
}

type expenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) Create(ctx context.Context, e *model.Expense) error {
	return GetDB(ctx, r.db).Omit("Project", "Creator").Create(e).Error
}

func (r *expenseRepository) FindByID(ctx context.Context, id int64) (*model.Expense, error) {
	var e model.Expense
	if err := GetDB(ctx, r.db).Preload("Project").Preload("Creator").First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *expenseRepository) List(ctx context.Context, f ExpenseFilter) ([]model.Expense, int64, error) {
	var expenses []model.Expense
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Expense{}).
		Joins("JOIN projects ON projects.id = expenses.project_id")
	if f.Scope.ManagerID != 0 {
		query = query.Where("projects.manager_id = ?", f.Scope.ManagerID)
	}
	if f.Scope.SupervisorID != 0 {
		query = query.Where("projects.id IN (?)",
			GetDB(ctx, r.db).Model(&model.Site{}).Select("project_id").Where("supervisor_id = ?", f.Scope.SupervisorID))
	}
	if f.ProjectID != 0 {
		query = query.Where("expenses.project_id = ?", f.ProjectID)
	}
	if f.Status != "" {
		query = query.Where("expenses.status = ?", f.Status)
	}
	if f.Category != "" {
		query = query.Where("expenses.category = ?", f.Category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Creator").
		Order("expenses.created_at DESC").
		Scopes(paginate(f.Page, f.Limit)).
		Find(&expenses).Error
	if err != nil {
		return nil, 0, err
	}

	return expenses, total, nil
}

func (r *expenseRepository) Transition(ctx context.Context, id int64, from []workflow.Status, fields map[string]interface{}) (bool, error) {
	return transition(ctx, r.db, "expenses", id, from, fields)
}
