package service

import (
	"github.com/shopspring/decimal"

	"crms/internal/model"
	"crms/internal/repository"
	"crms/pkg/apperror"
)

var two = decimal.NewFromInt(2)

// halfOf is the reservation a DRAFT purchase order holds
func halfOf(total decimal.Decimal) decimal.Decimal {
	return total.Div(two)
}

// BudgetSnapshot is a project's budget position at one instant
type BudgetSnapshot struct {
	ProjectID   int64           `json:"project_id"`
	Budget      decimal.Decimal `json:"budget"`
	Spent       decimal.Decimal `json:"spent"`
	CommittedPO decimal.Decimal `json:"committed_po"`
	DraftPO     decimal.Decimal `json:"draft_po"`
}

func newBudgetSnapshot(p *model.Project, t repository.BudgetTotals) BudgetSnapshot {
	return BudgetSnapshot{
		ProjectID:   p.ID,
		Budget:      p.Budget,
		Spent:       t.Spent,
		CommittedPO: t.CommittedPO,
		DraftPO:     t.DraftPO,
	}
}

// Committed = approved and delivered PO totals + half of draft PO totals.
// Delivery does not release an order's obligation; only Cancel does.
func (b BudgetSnapshot) Committed() decimal.Decimal {
	return b.CommittedPO.Add(halfOf(b.DraftPO))
}

// Available = budget - spent - committed
func (b BudgetSnapshot) Available() decimal.Decimal {
	return b.Budget.Sub(b.Spent).Sub(b.Committed())
}

// UsedPercent is (spent + committed) / budget as a percentage, 0 for no budget
func (b BudgetSnapshot) UsedPercent() decimal.Decimal {
	if b.Budget.IsZero() {
		return decimal.Zero
	}
	return b.Spent.Add(b.Committed()).Div(b.Budget).Mul(decimal.NewFromInt(100)).Round(2)
}

// withoutDraft releases the half reservation of a DRAFT order of total,
// so an order being promoted does not compete with itself.
func (b BudgetSnapshot) withoutDraft(total decimal.Decimal) BudgetSnapshot {
	b.DraftPO = b.DraftPO.Sub(total)
	return b
}

// require fails with a budget error unless available >= amount
func (b BudgetSnapshot) require(amount decimal.Decimal) error {
	available := b.Available()
	if available.LessThan(amount) {
		return apperror.BudgetExceeded(available.String(), amount.String())
	}
	return nil
}

// BudgetView is the JSON shape of GET /projects/:id/budget
type BudgetView struct {
	BudgetSnapshot
	Committed   decimal.Decimal `json:"committed"`
	Available   decimal.Decimal `json:"available"`
	UsedPercent decimal.Decimal `json:"used_percent"`
}

func (b BudgetSnapshot) View() BudgetView {
	return BudgetView{
		BudgetSnapshot: b,
		Committed:      b.Committed(),
		Available:      b.Available(),
		UsedPercent:    b.UsedPercent(),
	}
}
