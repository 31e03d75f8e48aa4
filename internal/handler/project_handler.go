package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crms/internal/middleware"
	"crms/internal/model"
	"crms/internal/service"
	"crms/pkg/pagination"
	"crms/pkg/response"
)

type ProjectHandler struct {
	projectService service.ProjectService
	logger         *zap.Logger
}

func NewProjectHandler(projectService service.ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, logger: logger}
}

func (h *ProjectHandler) RegisterRoutes(router *gin.RouterGroup) {
	projects := router.Group("/projects")
	{
		projects.POST("", middleware.RequireRole(model.RoleSystemAdmin), h.Create)
		projects.GET("", h.List)
		projects.GET("/:id", h.Get)
		projects.PUT("/:id", middleware.RequireRole(model.RoleSystemAdmin, model.RoleProjectManager), h.Update)
		projects.GET("/:id/budget", h.Budget)
	}

	sites := router.Group("/sites")
	{
		sites.POST("", middleware.RequireRole(model.RoleSystemAdmin, model.RoleProjectManager), h.CreateSite)
		sites.GET("", h.ListSites)
	}
}

// Create handles POST /api/projects
// @Summary      Create a project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateProjectDTO  true  "Project"
// @Success      201      {object}  response.Response{data=model.Project}
// @Failure      400      {object}  response.Response
// @Router       /api/projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	var req service.CreateProjectDTO
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, project))
}

// List handles GET /api/projects
// @Summary      List projects visible to the caller
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Status filter"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=response.PageData{items=[]model.Project}}
// @Router       /api/projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	p := pagination.Parse(c)

	items, total, err := h.projectService.List(c.Request.Context(), actorFrom(c), c.Query("status"), p.Page, p.Limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Page(http.StatusOK, items, total, p.Page, p.Limit))
}

// Get handles GET /api/projects/:id
// @Summary      Get a project
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Project ID"
// @Success      200  {object}  response.Response{data=model.Project}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, project))
}

// Update handles PUT /api/projects/:id
// @Summary      Update a project
// @Description  Admins may change any field; a project manager only the status of their own project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                       true  "Project ID"
// @Param        payload  body      service.UpdateProjectDTO  true  "Changes"
// @Success      200      {object}  response.Response{data=model.Project}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/projects/{id} [put]
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateProjectDTO
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, project))
}

// Budget handles GET /api/projects/:id/budget
// @Summary      Project budget snapshot
// @Description  Budget, spent, committed, available and used percentage
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Project ID"
// @Success      200  {object}  response.Response{data=service.BudgetView}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/projects/{id}/budget [get]
func (h *ProjectHandler) Budget(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.projectService.Budget(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// CreateSite handles POST /api/sites
// @Summary      Create a site
// @Tags         sites
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateSiteDTO  true  "Site"
// @Success      201      {object}  response.Response{data=model.Site}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/sites [post]
func (h *ProjectHandler) CreateSite(c *gin.Context) {
	var req service.CreateSiteDTO
	if !bindJSON(c, &req) {
		return
	}

	site, err := h.projectService.CreateSite(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, site))
}

// ListSites handles GET /api/sites
// @Summary      List sites visible to the caller
// @Tags         sites
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  query     int  false  "Project"
// @Param        page        query     int  false  "Page number (default 1)"
// @Param        limit       query     int  false  "Items per page (default 20)"
// @Success      200         {object}  response.Response{data=response.PageData{items=[]model.Site}}
// @Router       /api/sites [get]
func (h *ProjectHandler) ListSites(c *gin.Context) {
	projectID, ok := queryID(c, "project_id")
	if !ok {
		return
	}
	p := pagination.Parse(c)

	items, total, err := h.projectService.ListSites(c.Request.Context(), actorFrom(c), projectID, p.Page, p.Limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Page(http.StatusOK, items, total, p.Page, p.Limit))
}
