package service

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"crms/internal/model"
	"crms/internal/workflow"
	"crms/pkg/apperror"
)

func finance(t *testing.T, env *testEnv, id int64, action string) (*model.PurchaseOrder, error) {
	t.Helper()
	return env.orderService().FinanceAction(context.Background(), env.finance, id, FinanceActionDTO{Action: action})
}

// ── Create ──

func TestPurchaseOrderService_Create(t *testing.T) {
	env := newTestEnv(t)

	po, err := env.orderService().Create(context.Background(), env.procurement, CreatePurchaseOrderDTO{
		ProjectID:  env.project.ID,
		SupplierID: env.supplier.ID,
		Notes:      " urgent ",
		Items: []PurchaseOrderItemDTO{
			{MaterialID: ptr(env.material.ID), Quantity: dec("3"), UnitPrice: dec("12.505")},
			{Description: "Delivery", Quantity: dec("1"), UnitPrice: dec("40")},
		},
	})
	if err != nil {
		t.Fatalf("Create should succeed: %v", err)
	}
	if po.Status != workflow.StatusPending {
		t.Errorf("expected PENDING, got %s", po.Status)
	}
	if !strings.HasPrefix(po.Number, "PO-") {
		t.Errorf("unexpected po number %q", po.Number)
	}
	// 3 * 12.505 = 37.515 rounds to 37.52
	if !po.Total.Equal(dec("77.52")) {
		t.Errorf("expected total 77.52, got %s", po.Total)
	}
	if po.Items[0].Description != "Cement" {
		t.Errorf("material lines default to the material name, got %q", po.Items[0].Description)
	}
	if po.Notes != "urgent" {
		t.Errorf("notes should be trimmed, got %q", po.Notes)
	}
	if got := env.notifications.forUser(env.finance.UserID); len(got) != 1 {
		t.Errorf("finance officers should be notified, got %d", len(got))
	}
}

func TestPurchaseOrderService_Create_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	inactive := &model.Supplier{Name: "Closed Ltd"}
	_ = env.catalog.CreateSupplier(ctx, inactive)

	pending := env.approvedMaterialRequestFixture(t)
	env.requests.requests[pending.ID].Status = workflow.StatusPending

	item := []PurchaseOrderItemDTO{{Description: "x", Quantity: dec("1"), UnitPrice: dec("1")}}
	tests := []struct {
		name string
		req  CreatePurchaseOrderDTO
		kind apperror.Kind
	}{
		{"missing project", CreatePurchaseOrderDTO{SupplierID: env.supplier.ID, Items: item}, apperror.KindValidation},
		{"unknown project", CreatePurchaseOrderDTO{ProjectID: 77, SupplierID: env.supplier.ID, Items: item}, apperror.KindNotFound},
		{"unknown supplier", CreatePurchaseOrderDTO{ProjectID: 1, SupplierID: 77, Items: item}, apperror.KindNotFound},
		{"inactive supplier", CreatePurchaseOrderDTO{ProjectID: 1, SupplierID: inactive.ID, Items: item}, apperror.KindValidation},
		{"no items", CreatePurchaseOrderDTO{ProjectID: 1, SupplierID: env.supplier.ID}, apperror.KindValidation},
		{"zero quantity", CreatePurchaseOrderDTO{ProjectID: 1, SupplierID: env.supplier.ID,
			Items: []PurchaseOrderItemDTO{{Description: "x", UnitPrice: dec("1")}}}, apperror.KindValidation},
		{"zero total", CreatePurchaseOrderDTO{ProjectID: 1, SupplierID: env.supplier.ID,
			Items: []PurchaseOrderItemDTO{{Description: "x", Quantity: dec("1")}}}, apperror.KindValidation},
		{"pending material request", CreatePurchaseOrderDTO{ProjectID: 1, SupplierID: env.supplier.ID,
			MaterialRequestID: ptr(pending.ID), Items: item}, apperror.KindValidation},
		{"unknown quotation", CreatePurchaseOrderDTO{ProjectID: 1, SupplierID: env.supplier.ID,
			QuotationID: ptr(int64(9)), Items: item}, apperror.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.orderService().Create(ctx, env.procurement, tt.req)
			assertKind(t, err, tt.kind)
		})
	}
}

// ── Finance actions ──

func TestPurchaseOrderService_Approve_ExactBudget(t *testing.T) {
	env := newTestEnv(t)
	po := env.newOrder(t, "1000")

	approved, err := finance(t, env, po.ID, "APPROVE")
	if err != nil {
		t.Fatalf("available 1000 >= 1000 should approve: %v", err)
	}
	if approved.Status != workflow.StatusApproved {
		t.Errorf("expected APPROVED, got %s", approved.Status)
	}
	if approved.ApprovedBy == nil || *approved.ApprovedBy != env.finance.UserID || approved.DecidedAt == nil {
		t.Error("approval records the finance officer and time")
	}
	if env.projects.locks == 0 {
		t.Error("finance actions must lock the project")
	}
}

func TestPurchaseOrderService_Approve_OverBudget(t *testing.T) {
	env := newTestEnv(t)
	po := env.newOrder(t, "1001")

	_, err := finance(t, env, po.ID, "approve")
	assertKind(t, err, apperror.KindBudgetExceeded)

	appErr, _ := apperror.As(err)
	details, ok := appErr.Details.(apperror.BudgetDetails)
	if !ok {
		t.Fatalf("expected budget details, got %T", appErr.Details)
	}
	if details.Available != "1000" || details.Required != "1001" {
		t.Errorf("expected {1000 1001}, got %+v", details)
	}

	stored, _ := env.orders.FindByID(context.Background(), po.ID)
	if stored.Status != workflow.StatusPending {
		t.Errorf("order must stay PENDING, got %s", stored.Status)
	}
}

func TestPurchaseOrderService_Draft_HalfReservation(t *testing.T) {
	env := newTestEnv(t)
	po := env.newOrder(t, "1001")

	drafted, err := finance(t, env, po.ID, "DRAFT")
	if err != nil {
		t.Fatalf("1000 >= 500.5 should allow a draft: %v", err)
	}
	if drafted.Status != workflow.StatusDraft {
		t.Errorf("expected DRAFT, got %s", drafted.Status)
	}

	// the draft now holds 500.5; a second draft of 1000 needs 500 and has 499.5
	second := env.newOrder(t, "1000")
	_, err = finance(t, env, second.ID, "DRAFT")
	assertKind(t, err, apperror.KindBudgetExceeded)
	appErr, _ := apperror.As(err)
	if d := appErr.Details.(apperror.BudgetDetails); d.Available != "499.5" || d.Required != "500" {
		t.Errorf("unexpected details %+v", d)
	}
}

func TestPurchaseOrderService_ApproveDraft_ReleasesOwnReservation(t *testing.T) {
	env := newTestEnv(t)
	env.setBudget("1200")
	po := env.newOrder(t, "1000")

	if _, err := finance(t, env, po.ID, "DRAFT"); err != nil {
		t.Fatalf("DRAFT: %v", err)
	}
	// with its own 500 still counted only 700 would be available
	approved, err := finance(t, env, po.ID, "APPROVE")
	if err != nil {
		t.Fatalf("approving a draft should not compete with itself: %v", err)
	}
	if approved.Status != workflow.StatusApproved {
		t.Errorf("expected APPROVED, got %s", approved.Status)
	}
}

func TestPurchaseOrderService_Reject(t *testing.T) {
	env := newTestEnv(t)
	po := env.newOrder(t, "5000")

	rejected, err := env.orderService().FinanceAction(context.Background(), env.finance, po.ID,
		FinanceActionDTO{Action: "REJECT", Reason: "overpriced"})
	if err != nil {
		t.Fatalf("rejection ignores the budget: %v", err)
	}
	if rejected.Status != workflow.StatusRejected {
		t.Errorf("expected REJECTED, got %s", rejected.Status)
	}
	if rejected.RejectionReason == nil || *rejected.RejectionReason != "overpriced" {
		t.Errorf("reason should be stored, got %v", rejected.RejectionReason)
	}

	_, err = finance(t, env, po.ID, "APPROVE")
	assertKind(t, err, apperror.KindConflict)
}

func TestPurchaseOrderService_FinanceAction_InvalidAction(t *testing.T) {
	env := newTestEnv(t)
	po := env.newOrder(t, "10")

	for _, action := range []string{"", "bogus", "PAY", "DELIVER"} {
		_, err := finance(t, env, po.ID, action)
		assertKind(t, err, apperror.KindValidation)
	}
}

func TestPurchaseOrderService_FinanceAction_Terminal(t *testing.T) {
	env := newTestEnv(t)
	po := env.newOrder(t, "10")
	if _, err := finance(t, env, po.ID, "APPROVE"); err != nil {
		t.Fatalf("APPROVE: %v", err)
	}

	for _, action := range []string{"APPROVE", "DRAFT", "REJECT"} {
		_, err := finance(t, env, po.ID, action)
		assertKind(t, err, apperror.KindConflict)
	}
}

func TestPurchaseOrderService_FinanceAction_BudgetUnavailable(t *testing.T) {
	env := newTestEnv(t)
	po := env.newOrder(t, "10")
	env.budget.err = errMockDown

	_, err := finance(t, env, po.ID, "APPROVE")
	assertKind(t, err, apperror.KindInternal)
}

func TestPurchaseOrderService_ExpensesCountAgainstBudget(t *testing.T) {
	env := newTestEnv(t)
	_ = env.expenses.Create(context.Background(), &model.Expense{
		ProjectID: env.project.ID, Category: model.ExpenseCategoryLabor, Description: "crew",
		Amount: dec("300"), Status: workflow.StatusPaid,
	})
	po := env.newOrder(t, "800")

	_, err := finance(t, env, po.ID, "APPROVE")
	assertKind(t, err, apperror.KindBudgetExceeded)

	if _, err := finance(t, env, po.ID, "DRAFT"); err != nil {
		t.Errorf("700 >= 400 should allow a draft: %v", err)
	}
}

// The committed total never exceeds the budget, whatever order concurrent
// finance actions land in.
func TestPurchaseOrderService_BudgetInvariant_Concurrent(t *testing.T) {
	rng := rand.New(rand.NewSource(20261014))

	for round := 0; round < 20; round++ {
		env := newTestEnv(t)
		budget := decimal.NewFromInt(int64(500 + rng.Intn(2000)))
		env.setBudget(budget.String())

		type step struct {
			id     int64
			action string
		}
		var steps []step
		for i := 0; i < 12; i++ {
			total := decimal.NewFromInt(int64(50 + rng.Intn(600)))
			po := env.newOrder(t, total.StringFixed(2))
			switch rng.Intn(3) {
			case 0:
				steps = append(steps, step{po.ID, "APPROVE"})
			case 1:
				steps = append(steps, step{po.ID, "DRAFT"})
			default:
				steps = append(steps, step{po.ID, "DRAFT"}, step{po.ID, "APPROVE"})
			}
		}

		svc := env.orderService()
		var wg sync.WaitGroup
		for _, s := range steps {
			wg.Add(1)
			go func(s step) {
				defer wg.Done()
				_, err := svc.FinanceAction(context.Background(), env.finance, s.id, FinanceActionDTO{Action: s.action})
				if err != nil {
					switch apperror.KindOf(err) {
					case apperror.KindBudgetExceeded, apperror.KindConflict:
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}
			}(s)
		}
		wg.Wait()

		totals, _ := env.budget.Totals(context.Background(), env.project.ID)
		committed := totals.CommittedPO.Add(halfOf(totals.DraftPO)).Add(totals.Spent)
		if committed.GreaterThan(budget) {
			t.Fatalf("round %d: committed %s exceeds budget %s", round, committed, budget)
		}
	}
}

// ── Deliver / Cancel ──

func TestPurchaseOrderService_Deliver(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mr := env.approvedMaterialRequestFixture(t)
	svc := env.orderService()

	po, err := svc.Create(ctx, env.procurement, CreatePurchaseOrderDTO{
		ProjectID:         env.project.ID,
		SupplierID:        env.supplier.ID,
		MaterialRequestID: ptr(mr.ID),
		Items:             []PurchaseOrderItemDTO{{MaterialID: ptr(env.material.ID), Quantity: dec("20"), UnitPrice: dec("10")}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Deliver(ctx, env.procurement, po.ID)
	assertKind(t, err, apperror.KindConflict)

	if _, err := finance(t, env, po.ID, "APPROVE"); err != nil {
		t.Fatalf("APPROVE: %v", err)
	}
	delivered, err := svc.Deliver(ctx, env.procurement, po.ID)
	if err != nil {
		t.Fatalf("Deliver should succeed: %v", err)
	}
	if delivered.Status != workflow.StatusDelivered || delivered.DeliveredAt == nil {
		t.Errorf("expected DELIVERED with a time, got %s", delivered.Status)
	}

	m, _ := env.catalog.GetMaterial(ctx, env.material.ID)
	if !m.Stock.Equal(dec("20")) {
		t.Errorf("stock should be 20 after delivery, got %s", m.Stock)
	}
	req, _ := env.requests.FindByID(ctx, mr.ID)
	if req.Status != workflow.StatusFulfilled || req.FulfilledBy == nil {
		t.Errorf("linked material request should be FULFILLED, got %s", req.Status)
	}
	if got := env.notifications.forUser(env.supervisor.UserID); len(got) != 1 {
		t.Errorf("requester should hear about the delivery, got %d", len(got))
	}

	// delivered orders stay committed
	totals, _ := env.budget.Totals(ctx, env.project.ID)
	if !totals.CommittedPO.Equal(dec("200")) {
		t.Errorf("delivered order should stay committed, got %s", totals.CommittedPO)
	}
}

func TestPurchaseOrderService_Deliver_KeepsBudgetCommitted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.orderService()

	first := env.newOrder(t, "1000")
	if _, err := finance(t, env, first.ID, "APPROVE"); err != nil {
		t.Fatalf("APPROVE: %v", err)
	}
	if _, err := svc.Deliver(ctx, env.procurement, first.ID); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	second := env.newOrder(t, "1000")
	_, err := finance(t, env, second.ID, "APPROVE")
	assertKind(t, err, apperror.KindBudgetExceeded)

	totals, _ := env.budget.Totals(ctx, env.project.ID)
	snap := newBudgetSnapshot(env.project, totals)
	if !snap.Available().IsZero() || !snap.Committed().Equal(dec("1000")) {
		t.Errorf("expected 1000 committed and nothing available, got %+v", snap)
	}
}

func TestPurchaseOrderService_Cancel_ReleasesBudget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.orderService()
	first := env.newOrder(t, "1000")

	_, err := svc.Cancel(ctx, env.finance, first.ID, "")
	assertKind(t, err, apperror.KindConflict)

	if _, err := finance(t, env, first.ID, "APPROVE"); err != nil {
		t.Fatalf("APPROVE: %v", err)
	}
	second := env.newOrder(t, "1000")
	if _, err := finance(t, env, second.ID, "APPROVE"); apperror.KindOf(err) != apperror.KindBudgetExceeded {
		t.Fatalf("budget is exhausted, got %v", err)
	}

	cancelled, err := svc.Cancel(ctx, env.finance, first.ID, "supplier went bust")
	if err != nil {
		t.Fatalf("Cancel should succeed: %v", err)
	}
	if cancelled.Status != workflow.StatusCancelled || cancelled.CancelledAt == nil {
		t.Errorf("expected CANCELLED, got %s", cancelled.Status)
	}
	if _, err := finance(t, env, second.ID, "APPROVE"); err != nil {
		t.Errorf("cancelling should free the budget: %v", err)
	}
}

func TestPurchaseOrderService_Get_Scope(t *testing.T) {
	env := newTestEnv(t)
	po := env.newOrder(t, "10")
	svc := env.orderService()

	if _, err := svc.Get(context.Background(), env.pm, po.ID); err != nil {
		t.Errorf("managing PM should see the order: %v", err)
	}
	_, err := svc.Get(context.Background(), env.otherPM, po.ID)
	assertKind(t, err, apperror.KindForbidden)

	if _, err := svc.Get(context.Background(), env.supervisor, po.ID); err != nil {
		t.Errorf("supervisor of a project site should see the order: %v", err)
	}
	stranger := Actor{UserID: 99, Role: model.RoleSiteSupervisor}
	_, err = svc.Get(context.Background(), stranger, po.ID)
	assertKind(t, err, apperror.KindForbidden)

	items, total, err := svc.List(context.Background(), env.otherPM, PurchaseOrderListFilter{})
	if err != nil || total != 0 || len(items) != 0 {
		t.Errorf("other PM should list nothing, got total=%d err=%v", total, err)
	}
}
