package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"crms/internal/model"
	"crms/internal/workflow"
)

type QuotationRepository interface {
	Create(ctx context.Context, q *model.Quotation) error
	FindByID(ctx context.Context, id int64) (*model.Quotation, error)
	ListByRequest(ctx context.Context, requestID int64) ([]model.Quotation, error)
	// Accept marks id ACCEPTED and every other SUBMITTED quotation of the same
	// request REJECTED. False means id was not SUBMITTED.
	Accept(ctx context.Context, id, requestID int64) (bool, error)
}

type quotationRepository struct {
	db *gorm.DB
}

func NewQuotationRepository(db *gorm.DB) QuotationRepository {
	return &quotationRepository{db: db}
}

func (r *quotationRepository) Create(ctx context.Context, q *model.Quotation) error {
	return GetDB(ctx, r.db).Omit("Supplier").Create(q).Error
}

func (r *quotationRepository) FindByID(ctx context.Context, id int64) (*model.Quotation, error) {
	var q model.Quotation
	if err := GetDB(ctx, r.db).Preload("Supplier").First(&q, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *quotationRepository) ListByRequest(ctx context.Context, requestID int64) ([]model.Quotation, error) {
	var quotes []model.Quotation
	err := GetDB(ctx, r.db).Preload("Supplier").
		Where("material_request_id = ?", requestID).
		Order("amount ASC, id ASC").
		Find(&quotes).Error
	return quotes, err
}

func (r *quotationRepository) Accept(ctx context.Context, id, requestID int64) (bool, error) {
	now := time.Now()
	db := GetDB(ctx, r.db)

	res := db.Model(&model.Quotation{}).
		Where("id = ? AND status = ?", id, workflow.QuotationSubmitted).
		Updates(map[string]interface{}{"status": workflow.QuotationAccepted, "updated_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	err := db.Model(&model.Quotation{}).
		Where("material_request_id = ? AND id <> ? AND status = ?", requestID, id, workflow.QuotationSubmitted).
		Updates(map[string]interface{}{"status": workflow.QuotationRejected, "updated_at": now}).Error
	return err == nil, err
}
