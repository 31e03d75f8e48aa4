package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"crms/internal/model"
)

// CatalogRepository covers materials, equipment and suppliers
type CatalogRepository interface {
	CreateMaterial(ctx context.Context, m *model.Material) error
	GetMaterial(ctx context.Context, id int64) (*model.Material, error)
	ListMaterials(ctx context.Context, search string, page, limit int) ([]model.Material, int64, error)
	UpdateMaterial(ctx context.Context, m *model.Material) error
	AddStock(ctx context.Context, materialID int64, qty decimal.Decimal) error

	CreateEquipment(ctx context.Context, e *model.Equipment) error
	GetEquipment(ctx context.Context, id int64) (*model.Equipment, error)
	ListEquipment(ctx context.Context, status string, page, limit int) ([]model.Equipment, int64, error)
	UpdateEquipment(ctx context.Context, e *model.Equipment) error

	CreateSupplier(ctx context.Context, s *model.Supplier) error
	GetSupplier(ctx context.Context, id int64) (*model.Supplier, error)
	ListSuppliers(ctx context.Context, activeOnly bool, page, limit int) ([]model.Supplier, int64, error)
	UpdateSupplier(ctx context.Context, s *model.Supplier) error
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) CreateMaterial(ctx context.Context, m *model.Material) error {
	return GetDB(ctx, r.db).Create(m).Error
}

func (r *catalogRepository) GetMaterial(ctx context.Context, id int64) (*model.Material, error) {
	var m model.Material
	if err := GetDB(ctx, r.db).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *catalogRepository) ListMaterials(ctx context.Context, search string, page, limit int) ([]model.Material, int64, error) {
	var items []model.Material
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Material{})
	if search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("name").Scopes(paginate(page, limit)).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *catalogRepository) UpdateMaterial(ctx context.Context, m *model.Material) error {
	return GetDB(ctx, r.db).Save(m).Error
}

// AddStock increments stock in place so concurrent deliveries do not lose updates
func (r *catalogRepository) AddStock(ctx context.Context, materialID int64, qty decimal.Decimal) error {
	res := GetDB(ctx, r.db).Model(&model.Material{}).
		Where("id = ?", materialID).
		Update("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *catalogRepository) CreateEquipment(ctx context.Context, e *model.Equipment) error {
	return GetDB(ctx, r.db).Create(e).Error
}

func (r *catalogRepository) GetEquipment(ctx context.Context, id int64) (*model.Equipment, error) {
	var e model.Equipment
	if err := GetDB(ctx, r.db).First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *catalogRepository) ListEquipment(ctx context.Context, status string, page, limit int) ([]model.Equipment, int64, error) {
	var items []model.Equipment
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Equipment{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("code").Scopes(paginate(page, limit)).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *catalogRepository) UpdateEquipment(ctx context.Context, e *model.Equipment) error {
	return GetDB(ctx, r.db).Save(e).Error
}

func (r *catalogRepository) CreateSupplier(ctx context.Context, s *model.Supplier) error {
	return GetDB(ctx, r.db).Create(s).Error
}

func (r *catalogRepository) GetSupplier(ctx context.Context, id int64) (*model.Supplier, error) {
	var s model.Supplier
	if err := GetDB(ctx, r.db).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *catalogRepository) ListSuppliers(ctx context.Context, activeOnly bool, page, limit int) ([]model.Supplier, int64, error) {
	var items []model.Supplier
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Supplier{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("name").Scopes(paginate(page, limit)).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *catalogRepository) UpdateSupplier(ctx context.Context, s *model.Supplier) error {
	return GetDB(ctx, r.db).Save(s).Error
}
