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

type ExpenseHandler struct {
	expenseService service.ExpenseService
	logger         *zap.Logger
}

func NewExpenseHandler(expenseService service.ExpenseService, logger *zap.Logger) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, logger: logger}
}

func (h *ExpenseHandler) RegisterRoutes(router *gin.RouterGroup) {
	finance := middleware.RequireRole(model.RoleFinanceOfficer, model.RoleSystemAdmin)

	group := router.Group("/expenses")
	{
		group.POST("", middleware.RequireRole(model.RoleProjectManager, model.RoleFinanceOfficer, model.RoleSystemAdmin), h.Create)
		group.GET("", h.List)
		group.PUT("/:id/approve", finance, h.Approve)
		group.PUT("/:id/reject", finance, h.Reject)
		group.PUT("/:id/pay", finance, h.Pay)
	}
}

// Create handles POST /api/expenses
// @Summary      Record an expense
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateExpenseDTO  true  "Expense"
// @Success      201      {object}  response.Response{data=model.Expense}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/expenses [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	var req service.CreateExpenseDTO
	if !bindJSON(c, &req) {
		return
	}

	expense, err := h.expenseService.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, expense))
}

// List handles GET /api/expenses
// @Summary      List expenses
// @Tags         expenses
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  query     int     false  "Project"
// @Param        status      query     string  false  "Status filter"
// @Param        category    query     string  false  "Category filter"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Items per page (default 20)"
// @Success      200         {object}  response.Response{data=response.PageData{items=[]model.Expense}}
// @Router       /api/expenses [get]
func (h *ExpenseHandler) List(c *gin.Context) {
	projectID, ok := queryID(c, "project_id")
	if !ok {
		return
	}
	p := pagination.Parse(c)

	items, total, err := h.expenseService.List(c.Request.Context(), actorFrom(c), service.ExpenseListFilter{
		ProjectID: projectID,
		Status:    c.Query("status"),
		Category:  c.Query("category"),
		Page:      p.Page,
		Limit:     p.Limit,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Page(http.StatusOK, items, total, p.Page, p.Limit))
}

// Approve handles PUT /api/expenses/:id/approve
// @Summary      Approve an expense against the project budget
// @Tags         expenses
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Expense ID"
// @Success      200  {object}  response.Response{data=model.Expense}
// @Failure      400  {object}  response.Response{data=apperror.BudgetDetails}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/expenses/{id}/approve [put]
func (h *ExpenseHandler) Approve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	expense, err := h.expenseService.Approve(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, expense))
}

// Reject handles PUT /api/expenses/:id/reject
// @Summary      Reject an expense
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                true   "Expense ID"
// @Param        payload  body      service.RejectDTO  false  "Reason"
// @Success      200      {object}  response.Response{data=model.Expense}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/expenses/{id}/reject [put]
func (h *ExpenseHandler) Reject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body service.RejectDTO
	if !bindOptionalJSON(c, &body) {
		return
	}

	expense, err := h.expenseService.Reject(c.Request.Context(), actorFrom(c), id, body.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, expense))
}

// Pay handles PUT /api/expenses/:id/pay
// @Summary      Mark an approved expense paid
// @Tags         expenses
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Expense ID"
// @Success      200  {object}  response.Response{data=model.Expense}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/expenses/{id}/pay [put]
func (h *ExpenseHandler) Pay(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	expense, err := h.expenseService.Pay(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, expense))
}
