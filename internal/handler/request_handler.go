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

type RequestHandler struct {
	requestService service.RequestService
	logger         *zap.Logger
}

func NewRequestHandler(requestService service.RequestService, logger *zap.Logger) *RequestHandler {
	return &RequestHandler{requestService: requestService, logger: logger}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/requests")
	{
		group.POST("", middleware.RequireRole(model.RoleSiteSupervisor, model.RoleProjectManager, model.RoleSystemAdmin), h.Submit)
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.PUT("/:id/approve", middleware.RequireRole(model.RoleProjectManager, model.RoleSystemAdmin), h.Approve)
		group.PUT("/:id/reject", middleware.RequireRole(model.RoleProjectManager, model.RoleSystemAdmin), h.Reject)
		group.PUT("/:id/fulfill", middleware.RequireRole(model.RoleProcurementOfficer, model.RoleSystemAdmin), h.Fulfill)
	}
}

// Submit handles POST /api/requests
// @Summary      Submit a resource request
// @Description  Creates a PENDING equipment or material request for a site the caller manages
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRequestDTO  true  "Request"
// @Success      201      {object}  response.Response{data=model.ResourceRequest}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	var req service.CreateRequestDTO
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.requestService.Submit(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, created))
}

// List handles GET /api/requests
// @Summary      List resource requests
// @Description  Role scoped: managers see their projects, supervisors their sites
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        kind        query     string  false  "EQUIPMENT or MATERIAL"
// @Param        status      query     string  false  "Status filter"
// @Param        site_id     query     int     false  "Site"
// @Param        project_id  query     int     false  "Project"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Items per page (default 20)"
// @Success      200         {object}  response.Response{data=response.PageData{items=[]model.ResourceRequest}}
// @Router       /api/requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	siteID, ok := queryID(c, "site_id")
	if !ok {
		return
	}
	projectID, ok := queryID(c, "project_id")
	if !ok {
		return
	}
	p := pagination.Parse(c)

	items, total, err := h.requestService.List(c.Request.Context(), actorFrom(c), service.RequestListFilter{
		Kind:      c.Query("kind"),
		Status:    c.Query("status"),
		SiteID:    siteID,
		ProjectID: projectID,
		Page:      p.Page,
		Limit:     p.Limit,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Page(http.StatusOK, items, total, p.Page, p.Limit))
}

// Get handles GET /api/requests/:id
// @Summary      Get a resource request
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Request ID"
// @Success      200  {object}  response.Response{data=model.ResourceRequest}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	req, err := h.requestService.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, req))
}

// Approve handles PUT /api/requests/:id/approve
// @Summary      Approve a resource request
// @Description  Only the manager of the owning project (or an admin) may decide; decided requests answer 409
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Request ID"
// @Success      200  {object}  response.Response{data=model.ResourceRequest}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id}/approve [put]
func (h *RequestHandler) Approve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	req, err := h.requestService.Approve(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, req))
}

// Reject handles PUT /api/requests/:id/reject
// @Summary      Reject a resource request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                true   "Request ID"
// @Param        payload  body      service.RejectDTO  false  "Reason"
// @Success      200      {object}  response.Response{data=model.ResourceRequest}
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/reject [put]
func (h *RequestHandler) Reject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body service.RejectDTO
	if !bindOptionalJSON(c, &body) {
		return
	}

	req, err := h.requestService.Reject(c.Request.Context(), actorFrom(c), id, body.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, req))
}

// Fulfill handles PUT /api/requests/:id/fulfill
// @Summary      Mark an approved request fulfilled
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Request ID"
// @Success      200  {object}  response.Response{data=model.ResourceRequest}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id}/fulfill [put]
func (h *RequestHandler) Fulfill(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	req, err := h.requestService.Fulfill(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, req))
}
