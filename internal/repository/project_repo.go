package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crms/internal/model"
)

type ProjectRepository interface {
	Create(ctx context.Context, p *model.Project) error
	GetByID(ctx context.Context, id int64) (*model.Project, error)
	// LockByID loads the project with SELECT ... FOR UPDATE and fails with
	// ErrNoTransaction outside RunInTx. It serializes budget-consuming writes
	// per project.
	LockByID(ctx context.Context, id int64) (*model.Project, error)
	List(ctx context.Context, scope Scope, status string, page, limit int) ([]model.Project, int64, error)
	Update(ctx context.Context, p *model.Project) error

	CreateSite(ctx context.Context, s *model.Site) error
	GetSiteByID(ctx context.Context, id int64) (*model.Site, error)
	ListSites(ctx context.Context, scope Scope, projectID int64, page, limit int) ([]model.Site, int64, error)
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, p *model.Project) error {
	return GetDB(ctx, r.db).Create(p).Error
}

func (r *projectRepository) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	var p model.Project
	if err := GetDB(ctx, r.db).Preload("Manager").First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ErrNoTransaction is returned by row-locking reads made outside RunInTx
var ErrNoTransaction = errors.New("row lock requires a transaction")

func (r *projectRepository) LockByID(ctx context.Context, id int64) (*model.Project, error) {
	if !InTx(ctx) {
		return nil, ErrNoTransaction
	}
	var p model.Project
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepository) scopedProjects(ctx context.Context, scope Scope) *gorm.DB {
	query := GetDB(ctx, r.db).Model(&model.Project{})
	if scope.ManagerID != 0 {
		query = query.Where("projects.manager_id = ?", scope.ManagerID)
	}
	if scope.SupervisorID != 0 {
		query = query.Where("projects.id IN (?)",
			GetDB(ctx, r.db).Model(&model.Site{}).Select("project_id").Where("supervisor_id = ?", scope.SupervisorID))
	}
	return query
}

func (r *projectRepository) List(ctx context.Context, scope Scope, status string, page, limit int) ([]model.Project, int64, error) {
	var projects []model.Project
	var total int64

	query := r.scopedProjects(ctx, scope)
	if status != "" {
		query = query.Where("projects.status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Preload("Manager").Order("projects.created_at DESC").Scopes(paginate(page, limit)).Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

func (r *projectRepository) Update(ctx context.Context, p *model.Project) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(p).Error
}

func (r *projectRepository) CreateSite(ctx context.Context, s *model.Site) error {
	return GetDB(ctx, r.db).Create(s).Error
}

// GetSiteByID loads the site with its owning project, which carries the approver
func (r *projectRepository) GetSiteByID(ctx context.Context, id int64) (*model.Site, error) {
	var s model.Site
	if err := GetDB(ctx, r.db).Preload("Project").Preload("Supervisor").First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *projectRepository) ListSites(ctx context.Context, scope Scope, projectID int64, page, limit int) ([]model.Site, int64, error) {
	var sites []model.Site
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Site{}).Joins("JOIN projects ON projects.id = sites.project_id")
	if scope.ManagerID != 0 {
		query = query.Where("projects.manager_id = ?", scope.ManagerID)
	}
	if scope.SupervisorID != 0 {
		query = query.Where("sites.supervisor_id = ?", scope.SupervisorID)
	}
	if projectID != 0 {
		query = query.Where("sites.project_id = ?", projectID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Preload("Supervisor").Order("sites.id").Scopes(paginate(page, limit)).Find(&sites).Error; err != nil {
		return nil, 0, err
	}

	return sites, total, nil
}
