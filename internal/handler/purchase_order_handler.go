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

type PurchaseOrderHandler struct {
	orderService service.PurchaseOrderService
	logger       *zap.Logger
}

func NewPurchaseOrderHandler(orderService service.PurchaseOrderService, logger *zap.Logger) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{orderService: orderService, logger: logger}
}

func (h *PurchaseOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/purchase-orders")
	{
		group.POST("", middleware.RequireRole(model.RoleProcurementOfficer, model.RoleSystemAdmin), h.Create)
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.PUT("/:id/finance-status", middleware.RequireRole(model.RoleFinanceOfficer, model.RoleSystemAdmin), h.FinanceAction)
		group.PUT("/:id/deliver", middleware.RequireRole(model.RoleProcurementOfficer, model.RoleSystemAdmin), h.Deliver)
		group.PUT("/:id/cancel", middleware.RequireRole(model.RoleProcurementOfficer, model.RoleFinanceOfficer, model.RoleSystemAdmin), h.Cancel)
	}
}

// Create handles POST /api/purchase-orders
// @Summary      Create a purchase order
// @Description  Creates a PENDING order for a supplier; total is the sum of quantity times unit price
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreatePurchaseOrderDTO  true  "Purchase order"
// @Success      201      {object}  response.Response{data=model.PurchaseOrder}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/purchase-orders [post]
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req service.CreatePurchaseOrderDTO
	if !bindJSON(c, &req) {
		return
	}

	po, err := h.orderService.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, po))
}

// List handles GET /api/purchase-orders
// @Summary      List purchase orders
// @Tags         purchase-orders
// @Produce      json
// @Security     BearerAuth
// @Param        project_id   query     int     false  "Project"
// @Param        supplier_id  query     int     false  "Supplier"
// @Param        status       query     string  false  "Status filter"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Success      200          {object}  response.Response{data=response.PageData{items=[]model.PurchaseOrder}}
// @Router       /api/purchase-orders [get]
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	projectID, ok := queryID(c, "project_id")
	if !ok {
		return
	}
	supplierID, ok := queryID(c, "supplier_id")
	if !ok {
		return
	}
	p := pagination.Parse(c)

	items, total, err := h.orderService.List(c.Request.Context(), actorFrom(c), service.PurchaseOrderListFilter{
		ProjectID:  projectID,
		SupplierID: supplierID,
		Status:     c.Query("status"),
		Page:       p.Page,
		Limit:      p.Limit,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Page(http.StatusOK, items, total, p.Page, p.Limit))
}

// Get handles GET /api/purchase-orders/:id
// @Summary      Get a purchase order with its items
// @Tags         purchase-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Purchase order ID"
// @Success      200  {object}  response.Response{data=model.PurchaseOrder}
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-orders/{id} [get]
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	po, err := h.orderService.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// FinanceAction handles PUT /api/purchase-orders/:id/finance-status
// @Summary      Approve, draft or reject a purchase order
// @Description  APPROVE needs the full total available in the project budget, DRAFT half of it. A shortfall answers 400 with {available, required}.
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                       true  "Purchase order ID"
// @Param        payload  body      service.FinanceActionDTO  true  "Action"
// @Success      200      {object}  response.Response{data=model.PurchaseOrder}
// @Failure      400      {object}  response.Response{data=apperror.BudgetDetails}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/purchase-orders/{id}/finance-status [put]
func (h *PurchaseOrderHandler) FinanceAction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.FinanceActionDTO
	if !bindJSON(c, &req) {
		return
	}

	po, err := h.orderService.FinanceAction(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// Deliver handles PUT /api/purchase-orders/:id/deliver
// @Summary      Mark an approved purchase order delivered
// @Description  Restocks the ordered materials and fulfills the linked material request
// @Tags         purchase-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Purchase order ID"
// @Success      200  {object}  response.Response{data=model.PurchaseOrder}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders/{id}/deliver [put]
func (h *PurchaseOrderHandler) Deliver(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	po, err := h.orderService.Deliver(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// Cancel handles PUT /api/purchase-orders/:id/cancel
// @Summary      Cancel an approved purchase order
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                true   "Purchase order ID"
// @Param        payload  body      service.RejectDTO  false  "Reason"
// @Success      200      {object}  response.Response{data=model.PurchaseOrder}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/purchase-orders/{id}/cancel [put]
func (h *PurchaseOrderHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body service.RejectDTO
	if !bindOptionalJSON(c, &body) {
		return
	}

	po, err := h.orderService.Cancel(c.Request.Context(), actorFrom(c), id, body.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}
