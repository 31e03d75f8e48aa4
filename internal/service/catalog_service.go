package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"crms/internal/model"
	"crms/internal/repository"
	"crms/pkg/apperror"
)

type MaterialDTO struct {
	Name      string          `json:"name"`
	Unit      string          `json:"unit" example:"m3"`
	UnitPrice decimal.Decimal `json:"unit_price" swaggertype:"number"`
	Stock     decimal.Decimal `json:"stock" swaggertype:"number"`
}

type EquipmentDTO struct {
	Name   string `json:"name"`
	Code   string `json:"code"`
	Status string `json:"status" example:"AVAILABLE"`
}

type SupplierDTO struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	IsActive      *bool  `json:"is_active"`
}

type CatalogService interface {
	CreateMaterial(ctx context.Context, req MaterialDTO) (*model.Material, error)
	UpdateMaterial(ctx context.Context, id int64, req MaterialDTO) (*model.Material, error)
	ListMaterials(ctx context.Context, search string, page, limit int) ([]model.Material, int64, error)

	CreateEquipment(ctx context.Context, req EquipmentDTO) (*model.Equipment, error)
	UpdateEquipment(ctx context.Context, id int64, req EquipmentDTO) (*model.Equipment, error)
	ListEquipment(ctx context.Context, status string, page, limit int) ([]model.Equipment, int64, error)

	CreateSupplier(ctx context.Context, req SupplierDTO) (*model.Supplier, error)
	UpdateSupplier(ctx context.Context, id int64, req SupplierDTO) (*model.Supplier, error)
	ListSuppliers(ctx context.Context, activeOnly bool, page, limit int) ([]model.Supplier, int64, error)
}

type catalogService struct {
	repo repository.CatalogRepository
}

func NewCatalogService(repo repository.CatalogRepository) CatalogService {
	return &catalogService{repo: repo}
}

func validateMaterial(req *MaterialDTO) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Unit = strings.TrimSpace(req.Unit)
	if req.Name == "" || req.Unit == "" {
		return apperror.Validation("name and unit are required")
	}
	if req.UnitPrice.IsNegative() || req.Stock.IsNegative() {
		return apperror.Validation("unit_price and stock must not be negative")
	}
	return nil
}

func (s *catalogService) CreateMaterial(ctx context.Context, req MaterialDTO) (*model.Material, error) {
	if err := validateMaterial(&req); err != nil {
		return nil, err
	}
	m := &model.Material{Name: req.Name, Unit: req.Unit, UnitPrice: req.UnitPrice, Stock: req.Stock}
	if err := s.repo.CreateMaterial(ctx, m); err != nil {
		return nil, apperror.Internal(err, "failed to create material")
	}
	return m, nil
}

func (s *catalogService) UpdateMaterial(ctx context.Context, id int64, req MaterialDTO) (*model.Material, error) {
	if err := validateMaterial(&req); err != nil {
		return nil, err
	}
	m, err := s.repo.GetMaterial(ctx, id)
	if err != nil {
		return nil, lookupError(err, "material")
	}
	m.Name, m.Unit, m.UnitPrice, m.Stock = req.Name, req.Unit, req.UnitPrice, req.Stock
	if err := s.repo.UpdateMaterial(ctx, m); err != nil {
		return nil, apperror.Internal(err, "failed to update material")
	}
	return m, nil
}

func (s *catalogService) ListMaterials(ctx context.Context, search string, page, limit int) ([]model.Material, int64, error) {
	page, limit = normalizePage(page, limit)
	items, total, err := s.repo.ListMaterials(ctx, strings.TrimSpace(search), page, limit)
	if err != nil {
		return nil, 0, apperror.Internal(err, "failed to list materials")
	}
	return items, total, nil
}

func validateEquipment(req *EquipmentDTO) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if req.Status == "" {
		req.Status = model.EquipmentAvailable
	}
	if req.Name == "" || req.Code == "" {
		return apperror.Validation("name and code are required")
	}
	if !model.ValidEquipmentStatus(req.Status) {
		return apperror.Validation("invalid equipment status %q", req.Status)
	}
	return nil
}

func (s *catalogService) CreateEquipment(ctx context.Context, req EquipmentDTO) (*model.Equipment, error) {
	if err := validateEquipment(&req); err != nil {
		return nil, err
	}
	e := &model.Equipment{Name: req.Name, Code: req.Code, Status: req.Status}
	if err := s.repo.CreateEquipment(ctx, e); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("equipment code %s already exists", req.Code)
		}
		return nil, apperror.Internal(err, "failed to create equipment")
	}
	return e, nil
}

func (s *catalogService) UpdateEquipment(ctx context.Context, id int64, req EquipmentDTO) (*model.Equipment, error) {
	if err := validateEquipment(&req); err != nil {
		return nil, err
	}
	e, err := s.repo.GetEquipment(ctx, id)
	if err != nil {
		return nil, lookupError(err, "equipment")
	}
	e.Name, e.Code, e.Status = req.Name, req.Code, req.Status
	if err := s.repo.UpdateEquipment(ctx, e); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("equipment code %s already exists", req.Code)
		}
		return nil, apperror.Internal(err, "failed to update equipment")
	}
	return e, nil
}

func (s *catalogService) ListEquipment(ctx context.Context, status string, page, limit int) ([]model.Equipment, int64, error) {
	page, limit = normalizePage(page, limit)
	items, total, err := s.repo.ListEquipment(ctx, strings.ToUpper(status), page, limit)
	if err != nil {
		return nil, 0, apperror.Internal(err, "failed to list equipment")
	}
	return items, total, nil
}

func (s *catalogService) CreateSupplier(ctx context.Context, req SupplierDTO) (*model.Supplier, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	sup := &model.Supplier{
		Name:          name,
		ContactPerson: strings.TrimSpace(req.ContactPerson),
		Email:         strings.TrimSpace(req.Email),
		Phone:         strings.TrimSpace(req.Phone),
		Address:       strings.TrimSpace(req.Address),
		IsActive:      active,
	}
	if err := s.repo.CreateSupplier(ctx, sup); err != nil {
		return nil, apperror.Internal(err, "failed to create supplier")
	}
	return sup, nil
}

func (s *catalogService) UpdateSupplier(ctx context.Context, id int64, req SupplierDTO) (*model.Supplier, error) {
	sup, err := s.repo.GetSupplier(ctx, id)
	if err != nil {
		return nil, lookupError(err, "supplier")
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		sup.Name = name
	}
	if req.ContactPerson != "" {
		sup.ContactPerson = strings.TrimSpace(req.ContactPerson)
	}
	if req.Email != "" {
		sup.Email = strings.TrimSpace(req.Email)
	}
	if req.Phone != "" {
		sup.Phone = strings.TrimSpace(req.Phone)
	}
	if req.Address != "" {
		sup.Address = strings.TrimSpace(req.Address)
	}
	if req.IsActive != nil {
		sup.IsActive = *req.IsActive
	}
	if err := s.repo.UpdateSupplier(ctx, sup); err != nil {
		return nil, apperror.Internal(err, "failed to update supplier")
	}
	return sup, nil
}

func (s *catalogService) ListSuppliers(ctx context.Context, activeOnly bool, page, limit int) ([]model.Supplier, int64, error) {
	page, limit = normalizePage(page, limit)
	items, total, err := s.repo.ListSuppliers(ctx, activeOnly, page, limit)
	if err != nil {
		return nil, 0, apperror.Internal(err, "failed to list suppliers")
	}
	return items, total, nil
}
