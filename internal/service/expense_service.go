package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"crms/internal/model"
	"crms/internal/repository"
	"crms/internal/workflow"
	"crms/pkg/apperror"
)

type CreateExpenseDTO struct {
	ProjectID       int64           `json:"project_id"`
	PurchaseOrderID *int64          `json:"purchase_order_id"`
	Category        string          `json:"category" example:"LABOR"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount" swaggertype:"number"`
}

type ExpenseListFilter struct {
	ProjectID int64
	Status    string
	Category  string
	Page      int
	Limit     int
}

type ExpenseService interface {
	Create(ctx context.Context, actor Actor, req CreateExpenseDTO) (*model.Expense, error)
	List(ctx context.Context, actor Actor, filter ExpenseListFilter) ([]model.Expense, int64, error)
	Approve(ctx context.Context, actor Actor, id int64) (*model.Expense, error)
	Reject(ctx context.Context, actor Actor, id int64, reason string) (*model.Expense, error)
	Pay(ctx context.Context, actor Actor, id int64) (*model.Expense, error)
}

type expenseService struct {
	tx       repository.TransactionManager
	expenses repository.ExpenseRepository
	projects repository.ProjectRepository
	orders   repository.PurchaseOrderRepository
	budget   repository.BudgetRepository
	audit    *AuditSink
	notifier NotificationService
}

func NewExpenseService(
	tx repository.TransactionManager,
	expenses repository.ExpenseRepository,
	projects repository.ProjectRepository,
	orders repository.PurchaseOrderRepository,
	budget repository.BudgetRepository,
	audit *AuditSink,
	notifier NotificationService,
) ExpenseService {
	return &expenseService{
		tx:       tx,
		expenses: expenses,
		projects: projects,
		orders:   orders,
		budget:   budget,
		audit:    audit,
		notifier: notifier,
	}
}

func (s *expenseService) Create(ctx context.Context, actor Actor, req CreateExpenseDTO) (*model.Expense, error) {
	req.Category = strings.ToUpper(strings.TrimSpace(req.Category))
	req.Description = strings.TrimSpace(req.Description)

	if req.ProjectID <= 0 {
		return nil, apperror.Validation("project_id is required")
	}
	if !model.ValidExpenseCategory(req.Category) {
		return nil, apperror.Validation("invalid category %q", req.Category)
	}
	if req.Description == "" {
		return nil, apperror.Validation("description is required")
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.Validation("amount must be greater than 0")
	}

	project, err := s.projects.GetByID(ctx, req.ProjectID)
	if err != nil {
		return nil, lookupError(err, "project")
	}
	if actor.Role == model.RoleProjectManager && !manages(project, actor.UserID) {
		return nil, apperror.Forbidden("you do not manage this project")
	}
	if req.PurchaseOrderID != nil {
		po, err := s.orders.FindByID(ctx, *req.PurchaseOrderID)
		if err != nil {
			return nil, lookupError(err, "purchase order")
		}
		if po.ProjectID != project.ID {
			return nil, apperror.Validation("purchase order %d belongs to another project", po.ID)
		}
	}

	expense := &model.Expense{
		ProjectID:       project.ID,
		PurchaseOrderID: req.PurchaseOrderID,
		Category:        req.Category,
		Description:     req.Description,
		Amount:          req.Amount.Round(2),
		Status:          workflow.StatusPending,
		CreatedBy:       actor.UserID,
	}
	if err := s.expenses.Create(ctx, expense); err != nil {
		return nil, apperror.Internal(err, "failed to create expense")
	}

	s.audit.Record(ctx, actor.UserID, model.ActionCreateExpense, "expenses", expense.ID, map[string]interface{}{
		"project_id": expense.ProjectID,
		"category":   expense.Category,
		"amount":     expense.Amount.String(),
	})
	s.notifier.NotifyRoles(ctx, Notice{
		Title:      "Expense awaiting approval",
		Message:    fmt.Sprintf("%s expense of %s on %s", strings.ToLower(expense.Category), expense.Amount.StringFixed(2), project.Name),
		EntityType: "expense",
		EntityID:   expense.ID,
	}, model.RoleFinanceOfficer)

	return expense, nil
}

func (s *expenseService) List(ctx context.Context, actor Actor, f ExpenseListFilter) ([]model.Expense, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit)
	items, total, err := s.expenses.List(ctx, repository.ExpenseFilter{
		Scope:     scopeFor(actor),
		ProjectID: f.ProjectID,
		Status:    strings.ToUpper(f.Status),
		Category:  strings.ToUpper(f.Category),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return nil, 0, apperror.Internal(err, "failed to list expenses")
	}
	return items, total, nil
}

// Approve counts the expense as spent, so it is budget gated like a PO approval
func (s *expenseService) Approve(ctx context.Context, actor Actor, id int64) (*model.Expense, error) {
	var expense *model.Expense
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		e, err := s.expenses.FindByID(txCtx, id)
		if err != nil {
			return lookupError(err, "expense")
		}
		project, err := s.projects.LockByID(txCtx, e.ProjectID)
		if err != nil {
			return lookupError(err, "project")
		}
		if e, err = s.expenses.FindByID(txCtx, id); err != nil {
			return lookupError(err, "expense")
		}
		expense = e

		next, err := workflow.Expense.Next(e.Status, workflow.ActionApprove)
		if err != nil {
			return err
		}

		totals, err := s.budget.Totals(txCtx, project.ID)
		if err != nil {
			return apperror.Internal(err, "failed to compute project budget")
		}
		if err := newBudgetSnapshot(project, totals).require(e.Amount); err != nil {
			return err
		}

		now := time.Now()
		return s.move(txCtx, id, e.Status, map[string]interface{}{
			"status":      next,
			"approved_by": actor.UserID,
			"decided_at":  now,
			"updated_at":  now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.after(ctx, actor, expense, model.ActionApproveExpense, workflow.StatusApproved, "")
	return s.reload(ctx, id)
}

func (s *expenseService) Reject(ctx context.Context, actor Actor, id int64, reason string) (*model.Expense, error) {
	e, err := s.expenses.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "expense")
	}
	next, err := workflow.Expense.Next(e.Status, workflow.ActionReject)
	if err != nil {
		return nil, err
	}

	var reasonPtr *string
	if r := strings.TrimSpace(reason); r != "" {
		reasonPtr = &r
	}
	now := time.Now()
	if err := s.move(ctx, id, e.Status, map[string]interface{}{
		"status":           next,
		"approved_by":      actor.UserID,
		"decided_at":       now,
		"rejection_reason": reasonPtr,
		"updated_at":       now,
	}); err != nil {
		return nil, err
	}

	s.after(ctx, actor, e, model.ActionRejectExpense, next, strings.TrimSpace(reason))
	return s.reload(ctx, id)
}

// Pay does not change the budget position: APPROVED already counts as spent
func (s *expenseService) Pay(ctx context.Context, actor Actor, id int64) (*model.Expense, error) {
	e, err := s.expenses.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "expense")
	}
	next, err := workflow.Expense.Next(e.Status, workflow.ActionPay)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.move(ctx, id, e.Status, map[string]interface{}{
		"status":     next,
		"paid_at":    now,
		"updated_at": now,
	}); err != nil {
		return nil, err
	}

	s.after(ctx, actor, e, model.ActionPayExpense, next, "")
	return s.reload(ctx, id)
}

func (s *expenseService) move(ctx context.Context, id int64, from workflow.Status, fields map[string]interface{}) error {
	moved, err := s.expenses.Transition(ctx, id, []workflow.Status{from}, fields)
	if err != nil {
		return apperror.Internal(err, "failed to update expense")
	}
	if !moved {
		return apperror.Conflict("expense was updated concurrently")
	}
	return nil
}

func (s *expenseService) after(ctx context.Context, actor Actor, e *model.Expense, action string, status workflow.Status, reason string) {
	values := map[string]interface{}{
		"status": status,
		"amount": e.Amount.String(),
	}
	if reason != "" {
		values["reason"] = reason
	}
	s.audit.Record(ctx, actor.UserID, action, "expenses", e.ID, values)
	s.notifier.Notify(ctx, []int64{e.CreatedBy}, Notice{
		Title:      fmt.Sprintf("Expense #%d %s", e.ID, strings.ToLower(string(status))),
		Message:    fmt.Sprintf("Your expense of %s is now %s", e.Amount.StringFixed(2), status),
		EntityType: "expense",
		EntityID:   e.ID,
	})
}

func (s *expenseService) reload(ctx context.Context, id int64) (*model.Expense, error) {
	e, err := s.expenses.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err, "failed to reload expense")
	}
	return e, nil
}
