package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"crms/config"
	"crms/internal/model"
	"crms/internal/workflow"
	"crms/pkg/apperror"
)

// testEnv wires every service to one set of in-memory repositories
type testEnv struct {
	tx            *mockTx
	users         *mockUserRepo
	projects      *mockProjectRepo
	catalog       *mockCatalogRepo
	requests      *mockRequestRepo
	orders        *mockOrderRepo
	expenses      *mockExpenseRepo
	budget        *mockBudgetRepo
	quotations    *mockQuotationRepo
	attendance    *mockAttendanceRepo
	audit         *mockAuditRepo
	notifications *mockNotificationRepo
	pusher        *mockPusher
	workflowCfg   config.WorkflowConfig

	admin, pm, otherPM, supervisor, procurement, finance Actor

	project  *model.Project
	site     *model.Site
	supplier *model.Supplier
	material *model.Material
}

func ptr[T any](v T) *T { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	projects := newMockProjectRepo()
	orders := newMockOrderRepo(projects)
	expenses := newMockExpenseRepo()
	e := &testEnv{
		tx:            &mockTx{},
		users:         newMockUserRepo(),
		projects:      projects,
		catalog:       newMockCatalogRepo(),
		requests:      newMockRequestRepo(projects),
		orders:        orders,
		expenses:      expenses,
		budget:        &mockBudgetRepo{orders: orders, expenses: expenses},
		quotations:    newMockQuotationRepo(),
		attendance:    &mockAttendanceRepo{},
		audit:         &mockAuditRepo{},
		notifications: &mockNotificationRepo{},
		pusher:        &mockPusher{},
	}

	seed := []struct {
		actor *Actor
		id    int64
		name  string
		role  string
	}{
		{&e.admin, 1, "admin", model.RoleSystemAdmin},
		{&e.pm, 2, "pm", model.RoleProjectManager},
		{&e.otherPM, 3, "pm2", model.RoleProjectManager},
		{&e.supervisor, 4, "super", model.RoleSiteSupervisor},
		{&e.procurement, 5, "buyer", model.RoleProcurementOfficer},
		{&e.finance, 6, "finance", model.RoleFinanceOfficer},
	}
	for _, s := range seed {
		e.users.add(&model.User{ID: s.id, Username: s.name, Email: s.name + "@crms.test", Role: s.role, IsActive: true})
		*s.actor = Actor{UserID: s.id, Role: s.role}
	}

	e.project = &model.Project{ID: 1, Name: "Tower A", Budget: dec("1000"), ManagerID: ptr(e.pm.UserID), Status: model.ProjectActive}
	e.site = &model.Site{ID: 1, ProjectID: 1, Name: "North yard", SupervisorID: ptr(e.supervisor.UserID)}
	projects.projects[1] = e.project
	projects.sites[1] = e.site
	projects.nextID = 10

	e.supplier = &model.Supplier{Name: "Acme Steel", IsActive: true}
	e.material = &model.Material{Name: "Cement", Unit: "bag", UnitPrice: dec("10")}
	_ = e.catalog.CreateSupplier(context.Background(), e.supplier)
	_ = e.catalog.CreateMaterial(context.Background(), e.material)

	return e
}

func (e *testEnv) auditSink() *AuditSink {
	return NewAuditSink(e.audit, zap.NewNop())
}

func (e *testEnv) notifier() NotificationService {
	return NewNotificationService(e.notifications, e.users, e.pusher, zap.NewNop())
}

func (e *testEnv) requestService() RequestService {
	return NewRequestService(e.requests, e.projects, e.catalog, e.auditSink(), e.notifier(), e.workflowCfg, zap.NewNop())
}

func (e *testEnv) orderService() PurchaseOrderService {
	return NewPurchaseOrderService(e.tx, e.orders, e.projects, e.budget, e.requests, e.quotations, e.catalog, e.auditSink(), e.notifier())
}

func (e *testEnv) expenseService() ExpenseService {
	return NewExpenseService(e.tx, e.expenses, e.projects, e.orders, e.budget, e.auditSink(), e.notifier())
}

func (e *testEnv) quotationService() QuotationService {
	return NewQuotationService(e.tx, e.quotations, e.requests, e.catalog, e.auditSink())
}

func (e *testEnv) setBudget(amount string) {
	e.projects.mu.Lock()
	e.projects.projects[e.project.ID].Budget = dec(amount)
	e.projects.mu.Unlock()
}

// newOrder creates a PENDING purchase order of a single line worth total
func (e *testEnv) newOrder(t *testing.T, total string) *model.PurchaseOrder {
	t.Helper()
	po, err := e.orderService().Create(context.Background(), e.procurement, CreatePurchaseOrderDTO{
		ProjectID:  e.project.ID,
		SupplierID: e.supplier.ID,
		Items: []PurchaseOrderItemDTO{
			{Description: "Rebar lot", Quantity: dec("1"), UnitPrice: dec(total)},
		},
	})
	if err != nil {
		t.Fatalf("Create purchase order: %v", err)
	}
	return po
}

// approvedMaterialRequestFixture stores an APPROVED material request on the site
func (e *testEnv) approvedMaterialRequestFixture(t *testing.T) *model.ResourceRequest {
	t.Helper()
	req := &model.ResourceRequest{
		Kind:        model.RequestKindMaterial,
		SiteID:      e.site.ID,
		RequestedBy: e.supervisor.UserID,
		MaterialID:  ptr(e.material.ID),
		Quantity:    dec("20"),
		Description: "Cement for slab",
		Metadata:    "{}",
		Status:      workflow.StatusApproved,
		ApprovedBy:  ptr(e.pm.UserID),
	}
	if err := e.requests.Create(context.Background(), req); err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return req
}

func assertKind(t *testing.T, err error, want apperror.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %d, got nil", want)
	}
	if got := apperror.KindOf(err); got != want {
		t.Fatalf("expected error kind %d, got %d (%v)", want, got, err)
	}
}
