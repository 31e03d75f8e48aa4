package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crms/internal/middleware"
	"crms/internal/model"
	"crms/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	reportService service.ReportService
	logger        *zap.Logger
}

func NewReportHandler(reportService service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reportService: reportService, logger: logger}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/reports", middleware.RequireRole(model.RoleFinanceOfficer, model.RoleProjectManager, model.RoleSystemAdmin))
	{
		group.GET("/purchase-orders.xlsx", h.PurchaseOrders)
		group.GET("/expenses.xlsx", h.Expenses)
	}
}

// PurchaseOrders handles GET /api/reports/purchase-orders.xlsx
// @Summary      Export purchase orders
// @Tags         reports
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        project_id  query     int  false  "Project"
// @Success      200         {file}    file
// @Failure      403         {object}  response.Response
// @Router       /api/reports/purchase-orders.xlsx [get]
func (h *ReportHandler) PurchaseOrders(c *gin.Context) {
	h.render(c, h.reportService.PurchaseOrders)
}

// Expenses handles GET /api/reports/expenses.xlsx
// @Summary      Export expenses
// @Tags         reports
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        project_id  query     int  false  "Project"
// @Success      200         {file}    file
// @Failure      403         {object}  response.Response
// @Router       /api/reports/expenses.xlsx [get]
func (h *ReportHandler) Expenses(c *gin.Context) {
	h.render(c, h.reportService.Expenses)
}

type reportFunc func(ctx context.Context, actor service.Actor, projectID int64) (*bytes.Buffer, string, error)

func (h *ReportHandler) render(c *gin.Context, build reportFunc) {
	projectID, ok := queryID(c, "project_id")
	if !ok {
		return
	}

	buf, filename, err := build(c.Request.Context(), actorFrom(c), projectID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
