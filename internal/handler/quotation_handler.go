package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crms/internal/middleware"
	"crms/internal/model"
	"crms/internal/service"
	"crms/pkg/response"
)

type QuotationHandler struct {
	quotationService service.QuotationService
	logger           *zap.Logger
}

func NewQuotationHandler(quotationService service.QuotationService, logger *zap.Logger) *QuotationHandler {
	return &QuotationHandler{quotationService: quotationService, logger: logger}
}

func (h *QuotationHandler) RegisterRoutes(router *gin.RouterGroup) {
	procurement := middleware.RequireRole(model.RoleProcurementOfficer, model.RoleSystemAdmin)

	group := router.Group("/quotations")
	{
		group.POST("", procurement, h.Create)
		group.GET("", h.ListByRequest)
		group.PUT("/:id/accept", procurement, h.Accept)
	}
}

// Create handles POST /api/quotations
// @Summary      Record a supplier quotation
// @Description  Quotations attach to an approved material request
// @Tags         quotations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateQuotationDTO  true  "Quotation"
// @Success      201      {object}  response.Response{data=model.Quotation}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/quotations [post]
func (h *QuotationHandler) Create(c *gin.Context) {
	var req service.CreateQuotationDTO
	if !bindJSON(c, &req) {
		return
	}

	q, err := h.quotationService.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, q))
}

// ListByRequest handles GET /api/quotations?request_id=
// @Summary      List quotations of a material request
// @Tags         quotations
// @Produce      json
// @Security     BearerAuth
// @Param        request_id  query     int  true  "Material request ID"
// @Success      200         {object}  response.Response{data=[]model.Quotation}
// @Failure      400         {object}  response.Response
// @Router       /api/quotations [get]
func (h *QuotationHandler) ListByRequest(c *gin.Context) {
	requestID, ok := queryID(c, "request_id")
	if !ok {
		return
	}
	if requestID == 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "request_id is required"))
		return
	}

	items, err := h.quotationService.ListByRequest(c.Request.Context(), requestID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// Accept handles PUT /api/quotations/:id/accept
// @Summary      Accept a quotation
// @Description  Accepts this quotation and rejects the other submitted ones for the same request
// @Tags         quotations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Quotation ID"
// @Success      200  {object}  response.Response{data=model.Quotation}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/quotations/{id}/accept [put]
func (h *QuotationHandler) Accept(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	q, err := h.quotationService.Accept(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, q))
}
