package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"crms/internal/model"
	"crms/internal/repository"
	"crms/internal/workflow"
)

var errMockDown = errors.New("mock: backend unavailable")

// applyFields copies transition columns onto a model struct.
// "approved_by" lands in ApprovedBy, plain values are wrapped for pointer fields.
func applyFields(dst interface{}, fields map[string]interface{}) {
	v := reflect.ValueOf(dst).Elem()
	for col, val := range fields {
		parts := strings.Split(col, "_")
		for i, p := range parts {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
		f := v.FieldByName(strings.Join(parts, ""))
		if !f.IsValid() {
			panic(fmt.Sprintf("mock: no field for column %q", col))
		}
		rv := reflect.ValueOf(val)
		switch {
		case rv.Type().AssignableTo(f.Type()):
			f.Set(rv)
		case f.Kind() == reflect.Ptr && rv.Type().AssignableTo(f.Type().Elem()):
			p := reflect.New(f.Type().Elem())
			p.Elem().Set(rv)
			f.Set(p)
		default:
			panic(fmt.Sprintf("mock: cannot assign %T to column %q", val, col))
		}
	}
}

func hasStatus(s workflow.Status, from []workflow.Status) bool {
	for _, f := range from {
		if f == s {
			return true
		}
	}
	return false
}

func pageOf[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// ── Mock TransactionManager ──

// mockTx runs one transaction at a time, standing in for the project row lock.
type mockTx struct {
	mu    sync.Mutex
	calls int
}

func (m *mockTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return fn(ctx)
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*model.User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*model.User), nextID: 100}
}

func (m *mockUserRepo) add(u *model.User) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		m.nextID++
		u.ID = m.nextID
	}
	m.users[u.ID] = u
	return u
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email || u.Username == user.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) List(_ context.Context, role string, page, limit int) ([]model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.User
	for _, u := range m.users {
		if role == "" || u.Role == role {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return pageOf(result, page, limit), int64(len(result)), nil
}

func (m *mockUserRepo) ListIDsByRole(_ context.Context, roles ...string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for _, u := range m.users {
		for _, r := range roles {
			if u.Role == r && u.IsActive {
				ids = append(ids, u.ID)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

// ── Mock ProjectRepository ──

type mockProjectRepo struct {
	mu       sync.Mutex
	projects map[int64]*model.Project
	sites    map[int64]*model.Site
	nextID   int64
	locks    int

	// siteErr, when set, is returned by GetSiteByID
	siteErr error
}

func newMockProjectRepo() *mockProjectRepo {
	return &mockProjectRepo{
		projects: make(map[int64]*model.Project),
		sites:    make(map[int64]*model.Site),
	}
}

func (m *mockProjectRepo) Create(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *mockProjectRepo) GetByID(_ context.Context, id int64) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.project(id)
}

func (m *mockProjectRepo) project(id int64) (*model.Project, error) {
	if p, ok := m.projects[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProjectRepo) LockByID(_ context.Context, id int64) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks++
	return m.project(id)
}

func (m *mockProjectRepo) List(_ context.Context, scope repository.Scope, status string, page, limit int) ([]model.Project, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Project
	for _, p := range m.projects {
		if scope.ManagerID != 0 && (p.ManagerID == nil || *p.ManagerID != scope.ManagerID) {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return pageOf(result, page, limit), int64(len(result)), nil
}

func (m *mockProjectRepo) Update(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *mockProjectRepo) CreateSite(_ context.Context, s *model.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	cp := *s
	cp.Project = nil
	m.sites[s.ID] = &cp
	return nil
}

// site returns a copy of the site with its project attached
func (m *mockProjectRepo) site(id int64) (*model.Site, error) {
	s, ok := m.sites[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	if p, err := m.project(s.ProjectID); err == nil {
		cp.Project = p
	}
	return &cp, nil
}

func (m *mockProjectRepo) GetSiteByID(_ context.Context, id int64) (*model.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.siteErr != nil {
		return nil, m.siteErr
	}
	return m.site(id)
}

func (m *mockProjectRepo) ListSites(_ context.Context, scope repository.Scope, projectID int64, page, limit int) ([]model.Site, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Site
	for id := range m.sites {
		s, _ := m.site(id)
		if projectID != 0 && s.ProjectID != projectID {
			continue
		}
		if !inScope(scope, s) {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return pageOf(result, page, limit), int64(len(result)), nil
}

func inScope(scope repository.Scope, s *model.Site) bool {
	if scope.ManagerID != 0 && (s == nil || !manages(s.Project, scope.ManagerID)) {
		return false
	}
	if scope.SupervisorID != 0 && !supervises(s, scope.SupervisorID) {
		return false
	}
	return true
}

// ── Mock CatalogRepository ──

type mockCatalogRepo struct {
	mu        sync.Mutex
	materials map[int64]*model.Material
	equipment map[int64]*model.Equipment
	suppliers map[int64]*model.Supplier
	nextID    int64
}

func newMockCatalogRepo() *mockCatalogRepo {
	return &mockCatalogRepo{
		materials: make(map[int64]*model.Material),
		equipment: make(map[int64]*model.Equipment),
		suppliers: make(map[int64]*model.Supplier),
	}
}

func (m *mockCatalogRepo) CreateMaterial(_ context.Context, mat *model.Material) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	mat.ID = m.nextID
	cp := *mat
	m.materials[mat.ID] = &cp
	return nil
}

func (m *mockCatalogRepo) GetMaterial(_ context.Context, id int64) (*model.Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mat, ok := m.materials[id]; ok {
		cp := *mat
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCatalogRepo) ListMaterials(_ context.Context, search string, page, limit int) ([]model.Material, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Material
	for _, mat := range m.materials {
		if search == "" || strings.Contains(strings.ToLower(mat.Name), strings.ToLower(search)) {
			result = append(result, *mat)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return pageOf(result, page, limit), int64(len(result)), nil
}

func (m *mockCatalogRepo) UpdateMaterial(_ context.Context, mat *model.Material) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.materials[mat.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *mat
	m.materials[mat.ID] = &cp
	return nil
}

func (m *mockCatalogRepo) AddStock(_ context.Context, materialID int64, qty decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mat, ok := m.materials[materialID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	mat.Stock = mat.Stock.Add(qty)
	return nil
}

func (m *mockCatalogRepo) CreateEquipment(_ context.Context, e *model.Equipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.equipment {
		if existing.Code == e.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	m.nextID++
	e.ID = m.nextID
	cp := *e
	m.equipment[e.ID] = &cp
	return nil
}

func (m *mockCatalogRepo) GetEquipment(_ context.Context, id int64) (*model.Equipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.equipment[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCatalogRepo) ListEquipment(_ context.Context, status string, page, limit int) ([]model.Equipment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Equipment
	for _, e := range m.equipment {
		if status == "" || e.Status == status {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return pageOf(result, page, limit), int64(len(result)), nil
}

func (m *mockCatalogRepo) UpdateEquipment(_ context.Context, e *model.Equipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.equipment[e.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *e
	m.equipment[e.ID] = &cp
	return nil
}

func (m *mockCatalogRepo) CreateSupplier(_ context.Context, s *model.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	cp := *s
	m.suppliers[s.ID] = &cp
	return nil
}

func (m *mockCatalogRepo) GetSupplier(_ context.Context, id int64) (*model.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.suppliers[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCatalogRepo) ListSuppliers(_ context.Context, activeOnly bool, page, limit int) ([]model.Supplier, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Supplier
	for _, s := range m.suppliers {
		if !activeOnly || s.IsActive {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return pageOf(result, page, limit), int64(len(result)), nil
}

func (m *mockCatalogRepo) UpdateSupplier(_ context.Context, s *model.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.suppliers[s.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *s
	m.suppliers[s.ID] = &cp
	return nil
}

// ── Mock RequestRepository ──

type mockRequestRepo struct {
	mu       sync.Mutex
	requests map[int64]*model.ResourceRequest
	nextID   int64
	projects *mockProjectRepo
	locks    int
}

func newMockRequestRepo(projects *mockProjectRepo) *mockRequestRepo {
	return &mockRequestRepo{requests: make(map[int64]*model.ResourceRequest), projects: projects}
}

func (m *mockRequestRepo) Create(_ context.Context, req *model.ResourceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	req.ID = m.nextID
	req.CreatedAt = time.Now()
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *mockRequestRepo) FindByID(_ context.Context, id int64) (*model.ResourceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.requests[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRequestRepo) LockByID(ctx context.Context, id int64) (*model.ResourceRequest, error) {
	m.mu.Lock()
	m.locks++
	m.mu.Unlock()
	return m.FindByID(ctx, id)
}

func (m *mockRequestRepo) FindByIDWithScope(ctx context.Context, id int64) (*model.ResourceRequest, error) {
	r, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m.projects.mu.Lock()
	r.Site, _ = m.projects.site(r.SiteID)
	m.projects.mu.Unlock()
	return r, nil
}

func (m *mockRequestRepo) List(_ context.Context, f repository.RequestFilter) ([]model.ResourceRequest, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects.mu.Lock()
	defer m.projects.mu.Unlock()

	var result []model.ResourceRequest
	for _, r := range m.requests {
		site, _ := m.projects.site(r.SiteID)
		if !inScope(f.Scope, site) {
			continue
		}
		if f.Kind != "" && r.Kind != f.Kind {
			continue
		}
		if f.Status != "" && string(r.Status) != f.Status {
			continue
		}
		if f.SiteID != 0 && r.SiteID != f.SiteID {
			continue
		}
		if f.ProjectID != 0 && (site == nil || site.ProjectID != f.ProjectID) {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return pageOf(result, f.Page, f.Limit), int64(len(result)), nil
}

func (m *mockRequestRepo) Transition(_ context.Context, id int64, from []workflow.Status, fields map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || !hasStatus(r.Status, from) {
		return false, nil
	}
	applyFields(r, fields)
	return true, nil
}

// ── Mock PurchaseOrderRepository ──

type mockOrderRepo struct {
	mu       sync.Mutex
	orders   map[int64]*model.PurchaseOrder
	nextID   int64
	projects *mockProjectRepo
}

func newMockOrderRepo(projects *mockProjectRepo) *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[int64]*model.PurchaseOrder), projects: projects}
}

func (m *mockOrderRepo) Create(_ context.Context, po *model.PurchaseOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	po.ID = m.nextID
	po.CreatedAt = time.Now()
	for i := range po.Items {
		po.Items[i].ID = int64(i + 1)
		po.Items[i].PurchaseOrderID = po.ID
	}
	cp := *po
	cp.Items = append([]model.PurchaseOrderItem(nil), po.Items...)
	m.orders[po.ID] = &cp
	return nil
}

func (m *mockOrderRepo) FindByID(_ context.Context, id int64) (*model.PurchaseOrder, error) {
	m.mu.Lock()
	po, ok := m.orders[id]
	var cp model.PurchaseOrder
	if ok {
		cp = *po
		cp.Items = append([]model.PurchaseOrderItem(nil), po.Items...)
	}
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp.Project, _ = m.projects.GetByID(context.Background(), cp.ProjectID)
	return &cp, nil
}

func (m *mockOrderRepo) List(_ context.Context, f repository.PurchaseOrderFilter) ([]model.PurchaseOrder, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects.mu.Lock()
	defer m.projects.mu.Unlock()

	var result []model.PurchaseOrder
	for _, po := range m.orders {
		p, _ := m.projects.project(po.ProjectID)
		if f.Scope.ManagerID != 0 && !manages(p, f.Scope.ManagerID) {
			continue
		}
		if f.ProjectID != 0 && po.ProjectID != f.ProjectID {
			continue
		}
		if f.SupplierID != 0 && po.SupplierID != f.SupplierID {
			continue
		}
		if f.Status != "" && string(po.Status) != f.Status {
			continue
		}
		result = append(result, *po)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return pageOf(result, f.Page, f.Limit), int64(len(result)), nil
}

func (m *mockOrderRepo) Transition(_ context.Context, id int64, from []workflow.Status, fields map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	po, ok := m.orders[id]
	if !ok || !hasStatus(po.Status, from) {
		return false, nil
	}
	applyFields(po, fields)
	return true, nil
}

// sum totals the orders of a project in any of the given statuses
func (m *mockOrderRepo) sum(projectID int64, statuses ...workflow.Status) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, po := range m.orders {
		if po.ProjectID == projectID && slices.Contains(statuses, po.Status) {
			total = total.Add(po.Total)
		}
	}
	return total
}

// ── Mock ExpenseRepository ──

type mockExpenseRepo struct {
	mu       sync.Mutex
	expenses map[int64]*model.Expense
	nextID   int64
}

func newMockExpenseRepo() *mockExpenseRepo {
	return &mockExpenseRepo{expenses: make(map[int64]*model.Expense)}
}

func (m *mockExpenseRepo) Create(_ context.Context, e *model.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	e.CreatedAt = time.Now()
	cp := *e
	m.expenses[e.ID] = &cp
	return nil
}

func (m *mockExpenseRepo) FindByID(_ context.Context, id int64) (*model.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.expenses[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockExpenseRepo) List(_ context.Context, f repository.ExpenseFilter) ([]model.Expense, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Expense
	for _, e := range m.expenses {
		if f.ProjectID != 0 && e.ProjectID != f.ProjectID {
			continue
		}
		if f.Status != "" && string(e.Status) != f.Status {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return pageOf(result, f.Page, f.Limit), int64(len(result)), nil
}

func (m *mockExpenseRepo) Transition(_ context.Context, id int64, from []workflow.Status, fields map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.expenses[id]
	if !ok || !hasStatus(e.Status, from) {
		return false, nil
	}
	applyFields(e, fields)
	return true, nil
}

func (m *mockExpenseRepo) spent(projectID int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, e := range m.expenses {
		if e.ProjectID == projectID && (e.Status == workflow.StatusApproved || e.Status == workflow.StatusPaid) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// ── Mock BudgetRepository ──

type mockBudgetRepo struct {
	orders   *mockOrderRepo
	expenses *mockExpenseRepo
	err      error
}

func (m *mockBudgetRepo) Totals(_ context.Context, projectID int64) (repository.BudgetTotals, error) {
	if m.err != nil {
		return repository.BudgetTotals{}, m.err
	}
	return repository.BudgetTotals{
		Spent:       m.expenses.spent(projectID),
		CommittedPO: m.orders.sum(projectID, workflow.StatusApproved, workflow.StatusDelivered),
		DraftPO:     m.orders.sum(projectID, workflow.StatusDraft),
	}, nil
}

// ── Mock QuotationRepository ──

type mockQuotationRepo struct {
	mu         sync.Mutex
	quotations map[int64]*model.Quotation
	nextID     int64
}

func newMockQuotationRepo() *mockQuotationRepo {
	return &mockQuotationRepo{quotations: make(map[int64]*model.Quotation)}
}

func (m *mockQuotationRepo) Create(_ context.Context, q *model.Quotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	q.ID = m.nextID
	cp := *q
	m.quotations[q.ID] = &cp
	return nil
}

func (m *mockQuotationRepo) FindByID(_ context.Context, id int64) (*model.Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.quotations[id]; ok {
		cp := *q
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockQuotationRepo) ListByRequest(_ context.Context, requestID int64) ([]model.Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Quotation
	for _, q := range m.quotations {
		if q.MaterialRequestID == requestID {
			result = append(result, *q)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockQuotationRepo) Accept(_ context.Context, id, requestID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok || q.Status != workflow.QuotationSubmitted {
		return false, nil
	}
	for _, other := range m.quotations {
		if other.MaterialRequestID == requestID && other.Status == workflow.QuotationSubmitted {
			other.Status = workflow.QuotationRejected
		}
	}
	q.Status = workflow.QuotationAccepted
	return true, nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	mu      sync.Mutex
	records []model.AttendanceRecord
}

func (m *mockAttendanceRepo) Create(_ context.Context, rec *model.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.SiteID == rec.SiteID && r.WorkerName == rec.WorkerName && r.WorkDate.Equal(rec.WorkDate) {
			return gorm.ErrDuplicatedKey
		}
	}
	rec.ID = int64(len(m.records) + 1)
	m.records = append(m.records, *rec)
	return nil
}

func (m *mockAttendanceRepo) List(_ context.Context, siteID int64, day *time.Time, page, limit int) ([]model.AttendanceRecord, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.SiteID != siteID || (day != nil && !r.WorkDate.Equal(*day)) {
			continue
		}
		result = append(result, r)
	}
	return pageOf(result, page, limit), int64(len(result)), nil
}

// ── Mock AuditRepository ──

type mockAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
	err     error
}

func (m *mockAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockAuditRepo) List(_ context.Context, f repository.AuditFilter) ([]model.AuditLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AuditLog
	for _, e := range m.entries {
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.Entity != "" && e.Entity != f.Entity {
			continue
		}
		if f.UserID != 0 && (e.UserID == nil || *e.UserID != f.UserID) {
			continue
		}
		result = append(result, e)
	}
	return pageOf(result, f.Page, f.Limit), int64(len(result)), nil
}

func (m *mockAuditRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	mu    sync.Mutex
	items []model.Notification
}

func (m *mockNotificationRepo) CreateBatch(_ context.Context, items []model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range items {
		items[i].ID = int64(len(m.items) + 1)
		m.items = append(m.items, items[i])
	}
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID int64, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Notification
	for _, n := range m.items {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			result = append(result, n)
		}
	}
	return pageOf(result, page, limit), int64(len(result)), nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].UserID == userID {
			m.items[i].IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, item := range m.items {
		if item.UserID == userID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) forUser(userID int64) []model.Notification {
	items, _, _ := m.ListByUser(context.Background(), userID, false, 1, 1000)
	return items
}

// ── Mock StatisticsRepository ──

type mockStatsRepo struct {
	mu    sync.Mutex
	calls int
	delay time.Duration
}

func (m *mockStatsRepo) RequestCounts(_ context.Context, _ repository.Scope) ([]repository.StatusCount, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	time.Sleep(m.delay)
	return []repository.StatusCount{{Status: "PENDING", Count: 3}, {Status: "APPROVED", Count: 1}}, nil
}

func (m *mockStatsRepo) PurchaseOrderCounts(_ context.Context, _ repository.Scope) ([]repository.StatusCount, error) {
	return []repository.StatusCount{{Status: "DRAFT", Count: 2}}, nil
}

func (m *mockStatsRepo) ExpenseCounts(_ context.Context, _ repository.Scope) ([]repository.StatusCount, error) {
	return nil, nil
}

func (m *mockStatsRepo) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// ── Mock Pusher ──

type mockPusher struct {
	mu   sync.Mutex
	sent map[int64]int
}

func (m *mockPusher) SendToUser(userID int64, _ []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sent == nil {
		m.sent = make(map[int64]int)
	}
	m.sent[userID]++
}
