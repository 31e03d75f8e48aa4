package service

import (
	"context"
	"sync"
	"testing"

	"crms/internal/model"
	"crms/internal/workflow"
	"crms/pkg/apperror"
)

func newExpense(t *testing.T, env *testEnv, amount string) *model.Expense {
	t.Helper()
	e, err := env.expenseService().Create(context.Background(), env.pm, CreateExpenseDTO{
		ProjectID:   env.project.ID,
		Category:    "labor",
		Description: "Night shift",
		Amount:      dec(amount),
	})
	if err != nil {
		t.Fatalf("Create expense: %v", err)
	}
	return e
}

func TestExpenseService_Create(t *testing.T) {
	env := newTestEnv(t)
	e := newExpense(t, env, "120.456")

	if e.Status != workflow.StatusPending {
		t.Errorf("expected PENDING, got %s", e.Status)
	}
	if e.Category != model.ExpenseCategoryLabor {
		t.Errorf("category should be upper-cased, got %s", e.Category)
	}
	if !e.Amount.Equal(dec("120.46")) {
		t.Errorf("amount should be rounded to cents, got %s", e.Amount)
	}
	if got := env.notifications.forUser(env.finance.UserID); len(got) != 1 {
		t.Errorf("finance should be notified, got %d", len(got))
	}
}

func TestExpenseService_Create_Rules(t *testing.T) {
	env := newTestEnv(t)
	svc := env.expenseService()
	ctx := context.Background()

	tests := []struct {
		name  string
		actor Actor
		req   CreateExpenseDTO
		kind  apperror.Kind
	}{
		{"bad category", env.pm, CreateExpenseDTO{ProjectID: 1, Category: "FOOD", Description: "x", Amount: dec("1")}, apperror.KindValidation},
		{"no description", env.pm, CreateExpenseDTO{ProjectID: 1, Category: "OTHER", Amount: dec("1")}, apperror.KindValidation},
		{"negative amount", env.pm, CreateExpenseDTO{ProjectID: 1, Category: "OTHER", Description: "x", Amount: dec("-1")}, apperror.KindValidation},
		{"unknown project", env.pm, CreateExpenseDTO{ProjectID: 9, Category: "OTHER", Description: "x", Amount: dec("1")}, apperror.KindNotFound},
		{"foreign project", env.otherPM, CreateExpenseDTO{ProjectID: 1, Category: "OTHER", Description: "x", Amount: dec("1")}, apperror.KindForbidden},
		{"unknown order", env.finance, CreateExpenseDTO{ProjectID: 1, PurchaseOrderID: ptr(int64(5)), Category: "OTHER", Description: "x", Amount: dec("1")}, apperror.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.actor, tt.req)
			assertKind(t, err, tt.kind)
		})
	}
}

func TestExpenseService_Approve_BudgetGate(t *testing.T) {
	env := newTestEnv(t)
	po := env.newOrder(t, "600")
	if _, err := finance(t, env, po.ID, "APPROVE"); err != nil {
		t.Fatalf("APPROVE order: %v", err)
	}

	svc := env.expenseService()
	ctx := context.Background()
	over := newExpense(t, env, "401")
	_, err := svc.Approve(ctx, env.finance, over.ID)
	assertKind(t, err, apperror.KindBudgetExceeded)

	fits := newExpense(t, env, "400")
	approved, err := svc.Approve(ctx, env.finance, fits.ID)
	if err != nil {
		t.Fatalf("400 fits the remaining budget: %v", err)
	}
	if approved.Status != workflow.StatusApproved || approved.ApprovedBy == nil || approved.DecidedAt == nil {
		t.Errorf("unexpected approved expense %+v", approved)
	}

	_, err = svc.Approve(ctx, env.finance, fits.ID)
	assertKind(t, err, apperror.KindConflict)
}

func TestExpenseService_RejectAndPay(t *testing.T) {
	env := newTestEnv(t)
	svc := env.expenseService()
	ctx := context.Background()

	rejected, err := svc.Reject(ctx, env.finance, newExpense(t, env, "10").ID, "duplicate")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != workflow.StatusRejected || *rejected.RejectionReason != "duplicate" {
		t.Errorf("unexpected rejected expense %+v", rejected)
	}

	e := newExpense(t, env, "10")
	_, err = svc.Pay(ctx, env.finance, e.ID)
	assertKind(t, err, apperror.KindConflict)

	if _, err := svc.Approve(ctx, env.finance, e.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	paid, err := svc.Pay(ctx, env.finance, e.ID)
	if err != nil {
		t.Fatalf("Pay: %v", err)
	}
	if paid.Status != workflow.StatusPaid || paid.PaidAt == nil {
		t.Errorf("expected PAID with a time, got %s", paid.Status)
	}

	// paying does not spend twice
	totals, _ := env.budget.Totals(ctx, env.project.ID)
	if !totals.Spent.Equal(dec("10")) {
		t.Errorf("spent should be 10, got %s", totals.Spent)
	}
}

func TestExpenseService_ConcurrentApprovals(t *testing.T) {
	env := newTestEnv(t)
	svc := env.expenseService()

	var ids []int64
	for i := 0; i < 10; i++ {
		ids = append(ids, newExpense(t, env, "150").ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, _ = svc.Approve(context.Background(), env.finance, id)
		}(id)
	}
	wg.Wait()

	totals, _ := env.budget.Totals(context.Background(), env.project.ID)
	if !totals.Spent.Equal(dec("900")) {
		t.Errorf("six of ten 150 expenses fit a 1000 budget, spent=%s", totals.Spent)
	}
}
