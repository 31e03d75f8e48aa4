package repository

import (
	"context"

	"gorm.io/gorm"

	"crms/internal/model"
	"crms/internal/workflow"
)

type PurchaseOrderFilter struct {
	Scope      Scope
	ProjectID  int64
	SupplierID int64
	Status     string
	Page       int
	Limit      int
}

type PurchaseOrderRepository interface {
	Create(ctx context.Context, po *model.PurchaseOrder) error
	FindByID(ctx context.Context, id int64) (*model.PurchaseOrder, error)
	List(ctx context.Context, filter PurchaseOrderFilter) ([]model.PurchaseOrder, int64, error)
	Transition(ctx context.Context, id int64, from []workflow.Status, fields map[string]interface{}) (bool, error)
}

type purchaseOrderRepository struct {
	db *gorm.DB
}

func NewPurchaseOrderRepository(db *gorm.DB) PurchaseOrderRepository {
	return &purchaseOrderRepository{db: db}
}

// Create inserts the order and its items
func (r *purchaseOrderRepository) Create(ctx context.Context, po *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Omit("Project", "Supplier", "Creator", "Approver").Create(po).Error
}

func (r *purchaseOrderRepository) FindByID(ctx context.Context, id int64) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Supplier").
		Preload("Project").
		Preload("Creator").
		Preload("Approver").
		First(&po, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *purchaseOrderRepository) List(ctx context.Context, f PurchaseOrderFilter) ([]model.PurchaseOrder, int64, error) {
	var orders []model.PurchaseOrder
	var total int64

	query := GetDB(ctx, r.db).Model(&model.PurchaseOrder{}).
		Joins("JOIN projects ON projects.id = purchase_orders.project_id")
	if f.Scope.ManagerID != 0 {
		query = query.Where("projects.manager_id = ?", f.Scope.ManagerID)
	}
	if f.Scope.SupervisorID != 0 {
		query = query.Where("projects.id IN (?)",
			GetDB(ctx, r.db).Model(&model.Site{}).Select("project_id").Where("supervisor_id = ?", f.Scope.SupervisorID))
	}
	if f.ProjectID != 0 {
		query = query.Where("purchase_orders.project_id = ?", f.ProjectID)
	}
	if f.SupplierID != 0 {
		query = query.Where("purchase_orders.supplier_id = ?", f.SupplierID)
	}
	if f.Status != "" {
		query = query.Where("purchase_orders.status = ?", f.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Supplier").Preload("Items").
		Order("purchase_orders.created_at DESC").
		Scopes(paginate(f.Page, f.Limit)).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *purchaseOrderRepository) Transition(ctx context.Context, id int64, from []workflow.Status, fields map[string]interface{}) (bool, error) {
	return transition(ctx, r.db, "purchase_orders", id, from, fields)
}
