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

// CatalogHandler serves materials, equipment and suppliers
type CatalogHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

func NewCatalogHandler(catalogService service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, logger: logger}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	write := middleware.RequireRole(model.RoleProcurementOfficer, model.RoleSystemAdmin)

	materials := router.Group("/materials")
	materials.GET("", h.ListMaterials)
	materials.POST("", write, h.CreateMaterial)
	materials.PUT("/:id", write, h.UpdateMaterial)

	equipment := router.Group("/equipment")
	equipment.GET("", h.ListEquipment)
	equipment.POST("", write, h.CreateEquipment)
	equipment.PUT("/:id", write, h.UpdateEquipment)

	suppliers := router.Group("/suppliers")
	suppliers.GET("", h.ListSuppliers)
	suppliers.POST("", write, h.CreateSupplier)
	suppliers.PUT("/:id", write, h.UpdateSupplier)
}

// ListMaterials handles GET /api/materials
// @Summary      List materials
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Name contains"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=response.PageData{items=[]model.Material}}
// @Router       /api/materials [get]
func (h *CatalogHandler) ListMaterials(c *gin.Context) {
	p := pagination.Parse(c)
	items, total, err := h.catalogService.ListMaterials(c.Request.Context(), c.Query("search"), p.Page, p.Limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Page(http.StatusOK, items, total, p.Page, p.Limit))
}

// CreateMaterial handles POST /api/materials
// @Summary      Create a material
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.MaterialDTO  true  "Material"
// @Success      201      {object}  response.Response{data=model.Material}
// @Failure      400      {object}  response.Response
// @Router       /api/materials [post]
func (h *CatalogHandler) CreateMaterial(c *gin.Context) {
	var req service.MaterialDTO
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.catalogService.CreateMaterial(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, m))
}

// UpdateMaterial handles PUT /api/materials/:id
// @Summary      Update a material
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                  true  "Material ID"
// @Param        payload  body      service.MaterialDTO  true  "Material"
// @Success      200      {object}  response.Response{data=model.Material}
// @Failure      404      {object}  response.Response
// @Router       /api/materials/{id} [put]
func (h *CatalogHandler) UpdateMaterial(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.MaterialDTO
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.catalogService.UpdateMaterial(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, m))
}

// ListEquipment handles GET /api/equipment
// @Summary      List equipment
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "AVAILABLE, IN_USE or MAINTENANCE"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=response.PageData{items=[]model.Equipment}}
// @Router       /api/equipment [get]
func (h *CatalogHandler) ListEquipment(c *gin.Context) {
	p := pagination.Parse(c)
	items, total, err := h.catalogService.ListEquipment(c.Request.Context(), c.Query("status"), p.Page, p.Limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Page(http.StatusOK, items, total, p.Page, p.Limit))
}

// CreateEquipment handles POST /api/equipment
// @Summary      Register equipment
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.EquipmentDTO  true  "Equipment"
// @Success      201      {object}  response.Response{data=model.Equipment}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/equipment [post]
func (h *CatalogHandler) CreateEquipment(c *gin.Context) {
	var req service.EquipmentDTO
	if !bindJSON(c, &req) {
		return
	}
	e, err := h.catalogService.CreateEquipment(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, e))
}

// UpdateEquipment handles PUT /api/equipment/:id
// @Summary      Update equipment
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                   true  "Equipment ID"
// @Param        payload  body      service.EquipmentDTO  true  "Equipment"
// @Success      200      {object}  response.Response{data=model.Equipment}
// @Failure      404      {object}  response.Response
// @Router       /api/equipment/{id} [put]
func (h *CatalogHandler) UpdateEquipment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.EquipmentDTO
	if !bindJSON(c, &req) {
		return
	}
	e, err := h.catalogService.UpdateEquipment(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, e))
}

// ListSuppliers handles GET /api/suppliers
// @Summary      List suppliers
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        active  query     bool  false  "Only active suppliers"
// @Param        page    query     int   false  "Page number (default 1)"
// @Param        limit   query     int   false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=response.PageData{items=[]model.Supplier}}
// @Router       /api/suppliers [get]
func (h *CatalogHandler) ListSuppliers(c *gin.Context) {
	p := pagination.Parse(c)
	items, total, err := h.catalogService.ListSuppliers(c.Request.Context(), c.Query("active") == "true", p.Page, p.Limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Page(http.StatusOK, items, total, p.Page, p.Limit))
}

// CreateSupplier handles POST /api/suppliers
// @Summary      Create a supplier
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SupplierDTO  true  "Supplier"
// @Success      201      {object}  response.Response{data=model.Supplier}
// @Failure      400      {object}  response.Response
// @Router       /api/suppliers [post]
func (h *CatalogHandler) CreateSupplier(c *gin.Context) {
	var req service.SupplierDTO
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.catalogService.CreateSupplier(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, s))
}

// UpdateSupplier handles PUT /api/suppliers/:id
// @Summary      Update a supplier
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                  true  "Supplier ID"
// @Param        payload  body      service.SupplierDTO  true  "Supplier"
// @Success      200      {object}  response.Response{data=model.Supplier}
// @Failure      404      {object}  response.Response
// @Router       /api/suppliers/{id} [put]
func (h *CatalogHandler) UpdateSupplier(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.SupplierDTO
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.catalogService.UpdateSupplier(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, s))
}
