package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"crms/internal/workflow"
)

// BudgetTotals are the committed amounts of one project
type BudgetTotals struct {
	Spent       decimal.Decimal // APPROVED and PAID expenses
	CommittedPO decimal.Decimal // APPROVED and DELIVERED orders
	DraftPO     decimal.Decimal
}

type BudgetRepository interface {
	Totals(ctx context.Context, projectID int64) (BudgetTotals, error)
}

type budgetRepository struct {
	db *gorm.DB
}

func NewBudgetRepository(db *gorm.DB) BudgetRepository {
	return &budgetRepository{db: db}
}

// Totals reads every aggregate in one statement so the three sums come from
// the same snapshot.
func (r *budgetRepository) Totals(ctx context.Context, projectID int64) (BudgetTotals, error) {
	var row struct {
		Spent       decimal.Decimal
		CommittedPO decimal.Decimal `gorm:"column:committed_po"`
		DraftPO     decimal.Decimal `gorm:"column:draft_po"`
	}
	err := GetDB(ctx, r.db).Raw(`
		SELECT
			(SELECT COALESCE(SUM(amount), 0) FROM expenses
			  WHERE project_id = ? AND status IN ?) AS spent,
			(SELECT COALESCE(SUM(total), 0) FROM purchase_orders
			  WHERE project_id = ? AND status IN ?) AS committed_po,
			(SELECT COALESCE(SUM(total), 0) FROM purchase_orders
			  WHERE project_id = ? AND status = ?) AS draft_po
	`, projectID, []workflow.Status{workflow.StatusApproved, workflow.StatusPaid},
		projectID, []workflow.Status{workflow.StatusApproved, workflow.StatusDelivered},
		projectID, workflow.StatusDraft,
	).Scan(&row).Error
	if err != nil {
		return BudgetTotals{}, err
	}
	return BudgetTotals{Spent: row.Spent, CommittedPO: row.CommittedPO, DraftPO: row.DraftPO}, nil
}
