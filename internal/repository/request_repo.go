package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crms/internal/model"
	"crms/internal/workflow"
)

// RequestFilter narrows a resource request list
type RequestFilter struct {
	Scope     Scope
	Kind      string
	Status    string
	SiteID    int64
	ProjectID int64
	Page      int
	Limit     int
}

type RequestRepository interface {
	Create(ctx context.Context, req *model.ResourceRequest) error
	FindByID(ctx context.Context, id int64) (*model.ResourceRequest, error)
	// LockByID reads the request FOR UPDATE inside RunInTx. Writers to its
	// quotations take this lock first.
	LockByID(ctx context.Context, id int64) (*model.ResourceRequest, error)
	// FindByIDWithScope loads the request with Site.Project, the approver chain
	FindByIDWithScope(ctx context.Context, id int64) (*model.ResourceRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]model.ResourceRequest, int64, error)
	Transition(ctx context.Context, id int64, from []workflow.Status, fields map[string]interface{}) (bool, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.ResourceRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id int64) (*model.ResourceRequest, error) {
	var req model.ResourceRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) LockByID(ctx context.Context, id int64) (*model.ResourceRequest, error) {
	if !InTx(ctx) {
		return nil, ErrNoTransaction
	}
	var req model.ResourceRequest
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) FindByIDWithScope(ctx context.Context, id int64) (*model.ResourceRequest, error) {
	var req model.ResourceRequest
	err := GetDB(ctx, r.db).
		Preload("Site.Project").
		Preload("Requester").
		Preload("Approver").
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context, f RequestFilter) ([]model.ResourceRequest, int64, error) {
	var requests []model.ResourceRequest
	var total int64

	query := GetDB(ctx, r.db).Model(&model.ResourceRequest{}).
		Joins("JOIN sites ON sites.id = resource_requests.site_id").
		Joins("JOIN projects ON projects.id = sites.project_id")
	if f.Scope.ManagerID != 0 {
		query = query.Where("projects.manager_id = ?", f.Scope.ManagerID)
	}
	if f.Scope.SupervisorID != 0 {
		query = query.Where("sites.supervisor_id = ?", f.Scope.SupervisorID)
	}
	if f.Kind != "" {
		query = query.Where("resource_requests.kind = ?", f.Kind)
	}
	if f.Status != "" {
		query = query.Where("resource_requests.status = ?", f.Status)
	}
	if f.SiteID != 0 {
		query = query.Where("resource_requests.site_id = ?", f.SiteID)
	}
	if f.ProjectID != 0 {
		query = query.Where("sites.project_id = ?", f.ProjectID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Requester").Preload("Approver").
		Order("resource_requests.created_at DESC").
		Scopes(paginate(f.Page, f.Limit)).
		Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *requestRepository) Transition(ctx context.Context, id int64, from []workflow.Status, fields map[string]interface{}) (bool, error) {
	return transition(ctx, r.db, "resource_requests", id, from, fields)
}
