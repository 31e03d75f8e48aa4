package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"crms/internal/model"
	"crms/internal/repository"
	"crms/pkg/apperror"
)

type CreateProjectDTO struct {
	Name        string          `json:"name"`
	Location    string          `json:"location"`
	Description string          `json:"description"`
	Budget      decimal.Decimal `json:"budget" swaggertype:"number"`
	ManagerID   *int64          `json:"manager_id"`
	Status      string          `json:"status" example:"PLANNING"`
	StartDate   *string         `json:"start_date"`
	EndDate     *string         `json:"end_date"`
}

// UpdateProjectDTO is a partial update; nil fields are left alone.
// Project managers may only change Status.
type UpdateProjectDTO struct {
	Name        *string          `json:"name"`
	Location    *string          `json:"location"`
	Description *string          `json:"description"`
	Budget      *decimal.Decimal `json:"budget" swaggertype:"number"`
	ManagerID   *int64           `json:"manager_id"`
	Status      *string          `json:"status"`
	StartDate   *string          `json:"start_date"`
	EndDate     *string          `json:"end_date"`
}

type CreateSiteDTO struct {
	ProjectID    int64  `json:"project_id"`
	Name         string `json:"name"`
	Location     string `json:"location"`
	SupervisorID *int64 `json:"supervisor_id"`
}

type ProjectService interface {
	Create(ctx context.Context, actor Actor, req CreateProjectDTO) (*model.Project, error)
	Get(ctx context.Context, actor Actor, id int64) (*model.Project, error)
	List(ctx context.Context, actor Actor, status string, page, limit int) ([]model.Project, int64, error)
	Update(ctx context.Context, actor Actor, id int64, req UpdateProjectDTO) (*model.Project, error)
	Budget(ctx context.Context, actor Actor, id int64) (BudgetView, error)

	CreateSite(ctx context.Context, actor Actor, req CreateSiteDTO) (*model.Site, error)
	ListSites(ctx context.Context, actor Actor, projectID int64, page, limit int) ([]model.Site, int64, error)
}

type projectService struct {
	projects repository.ProjectRepository
	users    repository.UserRepository
	budget   repository.BudgetRepository
	audit    *AuditSink
}

func NewProjectService(projects repository.ProjectRepository, users repository.UserRepository, budget repository.BudgetRepository, audit *AuditSink) ProjectService {
	return &projectService{projects: projects, users: users, budget: budget, audit: audit}
}

// requireUserWithRole checks that id names an active user holding role
func requireUserWithRole(ctx context.Context, users repository.UserRepository, id int64, role, field string) error {
	u, err := users.GetByID(ctx, id)
	if err != nil {
		return apperror.Validation("%s %d does not exist", field, id)
	}
	if u.Role != role || !u.IsActive {
		return apperror.Validation("%s %d is not an active %s", field, id, role)
	}
	return nil
}

func (s *projectService) Create(ctx context.Context, actor Actor, req CreateProjectDTO) (*model.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	if req.Budget.IsNegative() {
		return nil, apperror.Validation("budget must not be negative")
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if status == "" {
		status = model.ProjectPlanning
	}
	if !model.ValidProjectStatus(status) {
		return nil, apperror.Validation("invalid project status %q", status)
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return nil, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, apperror.Validation("end_date must not be before start_date")
	}
	if req.ManagerID != nil {
		if err := requireUserWithRole(ctx, s.users, *req.ManagerID, model.RoleProjectManager, "manager"); err != nil {
			return nil, err
		}
	}

	p := &model.Project{
		Name:        name,
		Location:    strings.TrimSpace(req.Location),
		Description: strings.TrimSpace(req.Description),
		Budget:      req.Budget.Round(2),
		ManagerID:   req.ManagerID,
		Status:      status,
		StartDate:   start,
		EndDate:     end,
	}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, apperror.Internal(err, "failed to create project")
	}

	s.audit.Record(ctx, actor.UserID, model.ActionCreateProject, "projects", p.ID, map[string]interface{}{
		"name":       p.Name,
		"budget":     p.Budget.String(),
		"manager_id": p.ManagerID,
	})
	return p, nil
}

// visible reports whether actor may read the project
func (s *projectService) visible(ctx context.Context, actor Actor, p *model.Project) (bool, error) {
	switch actor.Role {
	case model.RoleProjectManager:
		return manages(p, actor.UserID), nil
	case model.RoleSiteSupervisor:
		sites, _, err := s.projects.ListSites(ctx, repository.Scope{SupervisorID: actor.UserID}, p.ID, 1, 1)
		if err != nil {
			return false, err
		}
		return len(sites) > 0, nil
	}
	return true, nil
}

func (s *projectService) Get(ctx context.Context, actor Actor, id int64) (*model.Project, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "project")
	}
	ok, err := s.visible(ctx, actor, p)
	if err != nil {
		return nil, apperror.Internal(err, "failed to check project access")
	}
	if !ok {
		return nil, apperror.Forbidden("you cannot view this project")
	}
	return p, nil
}

func (s *projectService) List(ctx context.Context, actor Actor, status string, page, limit int) ([]model.Project, int64, error) {
	page, limit = normalizePage(page, limit)
	items, total, err := s.projects.List(ctx, scopeFor(actor), strings.ToUpper(status), page, limit)
	if err != nil {
		return nil, 0, apperror.Internal(err, "failed to list projects")
	}
	return items, total, nil
}

func (s *projectService) Update(ctx context.Context, actor Actor, id int64, req UpdateProjectDTO) (*model.Project, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "project")
	}

	if !actor.IsAdmin() {
		if !manages(p, actor.UserID) {
			return nil, apperror.Forbidden("you do not manage this project")
		}
		if req.Name != nil || req.Location != nil || req.Description != nil || req.Budget != nil ||
			req.ManagerID != nil || req.StartDate != nil || req.EndDate != nil {
			return nil, apperror.Forbidden("project managers may only change the project status")
		}
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.Validation("name must not be empty")
		}
		p.Name = name
	}
	if req.Location != nil {
		p.Location = strings.TrimSpace(*req.Location)
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.Budget != nil {
		if req.Budget.IsNegative() {
			return nil, apperror.Validation("budget must not be negative")
		}
		p.Budget = req.Budget.Round(2)
	}
	if req.ManagerID != nil {
		if err := requireUserWithRole(ctx, s.users, *req.ManagerID, model.RoleProjectManager, "manager"); err != nil {
			return nil, err
		}
		p.ManagerID = req.ManagerID
		p.Manager = nil
	}
	if req.Status != nil {
		status := strings.ToUpper(strings.TrimSpace(*req.Status))
		if !model.ValidProjectStatus(status) {
			return nil, apperror.Validation("invalid project status %q", status)
		}
		p.Status = status
	}
	if req.StartDate != nil {
		if p.StartDate, err = parseDate("start_date", req.StartDate); err != nil {
			return nil, err
		}
	}
	if req.EndDate != nil {
		if p.EndDate, err = parseDate("end_date", req.EndDate); err != nil {
			return nil, err
		}
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return nil, apperror.Validation("end_date must not be before start_date")
	}

	if err := s.projects.Update(ctx, p); err != nil {
		return nil, apperror.Internal(err, "failed to update project")
	}

	s.audit.Record(ctx, actor.UserID, model.ActionUpdateProject, "projects", p.ID, req)
	return s.projects.GetByID(ctx, id)
}

func (s *projectService) Budget(ctx context.Context, actor Actor, id int64) (BudgetView, error) {
	p, err := s.Get(ctx, actor, id)
	if err != nil {
		return BudgetView{}, err
	}
	totals, err := s.budget.Totals(ctx, p.ID)
	if err != nil {
		return BudgetView{}, apperror.Internal(err, "failed to compute project budget")
	}
	return newBudgetSnapshot(p, totals).View(), nil
}

func (s *projectService) CreateSite(ctx context.Context, actor Actor, req CreateSiteDTO) (*model.Site, error) {
	name := strings.TrimSpace(req.Name)
	if req.ProjectID <= 0 {
		return nil, apperror.Validation("project_id is required")
	}
	if name == "" {
		return nil, apperror.Validation("name is required")
	}

	p, err := s.projects.GetByID(ctx, req.ProjectID)
	if err != nil {
		return nil, lookupError(err, "project")
	}
	if !actor.IsAdmin() && !manages(p, actor.UserID) {
		return nil, apperror.Forbidden("you do not manage this project")
	}
	if req.SupervisorID != nil {
		if err := requireUserWithRole(ctx, s.users, *req.SupervisorID, model.RoleSiteSupervisor, "supervisor"); err != nil {
			return nil, err
		}
	}

	site := &model.Site{
		ProjectID:    p.ID,
		Name:         name,
		Location:     strings.TrimSpace(req.Location),
		SupervisorID: req.SupervisorID,
	}
	if err := s.projects.CreateSite(ctx, site); err != nil {
		return nil, apperror.Internal(err, "failed to create site")
	}

	s.audit.Record(ctx, actor.UserID, model.ActionCreateSite, "sites", site.ID, map[string]interface{}{
		"project_id":    site.ProjectID,
		"name":          site.Name,
		"supervisor_id": site.SupervisorID,
	})
	return site, nil
}

func (s *projectService) ListSites(ctx context.Context, actor Actor, projectID int64, page, limit int) ([]model.Site, int64, error) {
	page, limit = normalizePage(page, limit)
	items, total, err := s.projects.ListSites(ctx, scopeFor(actor), projectID, page, limit)
	if err != nil {
		return nil, 0, apperror.Internal(err, "failed to list sites")
	}
	return items, total, nil
}
