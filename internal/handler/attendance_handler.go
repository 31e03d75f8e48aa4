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

type AttendanceHandler struct {
	attendanceService service.AttendanceService
	logger            *zap.Logger
}

func NewAttendanceHandler(attendanceService service.AttendanceService, logger *zap.Logger) *AttendanceHandler {
	return &AttendanceHandler{attendanceService: attendanceService, logger: logger}
}

func (h *AttendanceHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/attendance")
	{
		group.POST("", middleware.RequireRole(model.RoleSiteSupervisor, model.RoleSystemAdmin), h.Record)
		group.GET("", h.List)
	}
}

// Record handles POST /api/attendance
// @Summary      Record worker attendance
// @Description  One record per site, worker and day
// @Tags         attendance
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.RecordAttendanceDTO  true  "Attendance"
// @Success      201      {object}  response.Response{data=model.AttendanceRecord}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	var req service.RecordAttendanceDTO
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.attendanceService.Record(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rec))
}

// List handles GET /api/attendance
// @Summary      List attendance of a site
// @Tags         attendance
// @Produce      json
// @Security     BearerAuth
// @Param        site_id  query     int     true   "Site"
// @Param        date     query     string  false  "YYYY-MM-DD"
// @Param        page     query     int     false  "Page number (default 1)"
// @Param        limit    query     int     false  "Items per page (default 20)"
// @Success      200      {object}  response.Response{data=response.PageData{items=[]model.AttendanceRecord}}
// @Failure      400      {object}  response.Response
// @Router       /api/attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	siteID, ok := queryID(c, "site_id")
	if !ok {
		return
	}
	p := pagination.Parse(c)

	items, total, err := h.attendanceService.List(c.Request.Context(), actorFrom(c), siteID, c.Query("date"), p.Page, p.Limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Page(http.StatusOK, items, total, p.Page, p.Limit))
}
