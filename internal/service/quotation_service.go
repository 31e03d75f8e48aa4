package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"crms/internal/model"
	"crms/internal/repository"
	"crms/internal/workflow"
	"crms/pkg/apperror"
)

type CreateQuotationDTO struct {
	MaterialRequestID int64           `json:"material_request_id"`
	SupplierID        int64           `json:"supplier_id"`
	Amount            decimal.Decimal `json:"amount" swaggertype:"number"`
	ValidUntil        *string         `json:"valid_until" example:"2026-12-31"`
	Notes             string          `json:"notes"`
}

type QuotationService interface {
	Create(ctx context.Context, actor Actor, req CreateQuotationDTO) (*model.Quotation, error)
	ListByRequest(ctx context.Context, requestID int64) ([]model.Quotation, error)
	// Accept picks one quotation and rejects its siblings atomically
	Accept(ctx context.Context, actor Actor, id int64) (*model.Quotation, error)
}

type quotationService struct {
	tx         repository.TransactionManager
	quotations repository.QuotationRepository
	requests   repository.RequestRepository
	catalog    repository.CatalogRepository
	audit      *AuditSink
}

func NewQuotationService(
	tx repository.TransactionManager,
	quotations repository.QuotationRepository,
	requests repository.RequestRepository,
	catalog repository.CatalogRepository,
	audit *AuditSink,
) QuotationService {
	return &quotationService{tx: tx, quotations: quotations, requests: requests, catalog: catalog, audit: audit}
}

func approvedMaterialRequest(ctx context.Context, repo repository.RequestRepository, id int64) (*model.ResourceRequest, error) {
	mr, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "material request")
	}
	if mr.Kind != model.RequestKindMaterial {
		return nil, apperror.Validation("request %d is not a material request", id)
	}
	if mr.Status != workflow.StatusApproved {
		return nil, apperror.Conflict("material request %d is %s, quotations need an APPROVED request", id, mr.Status)
	}
	return mr, nil
}

func (s *quotationService) Create(ctx context.Context, actor Actor, req CreateQuotationDTO) (*model.Quotation, error) {
	if req.MaterialRequestID <= 0 || req.SupplierID <= 0 {
		return nil, apperror.Validation("material_request_id and supplier_id are required")
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.Validation("amount must be greater than 0")
	}
	validUntil, err := parseDate("valid_until", req.ValidUntil)
	if err != nil {
		return nil, err
	}

	if _, err := approvedMaterialRequest(ctx, s.requests, req.MaterialRequestID); err != nil {
		return nil, err
	}
	supplier, err := s.catalog.GetSupplier(ctx, req.SupplierID)
	if err != nil {
		return nil, lookupError(err, "supplier")
	}
	if !supplier.IsActive {
		return nil, apperror.Validation("supplier %d is inactive", supplier.ID)
	}

	q := &model.Quotation{
		MaterialRequestID: req.MaterialRequestID,
		SupplierID:        req.SupplierID,
		Amount:            req.Amount.Round(2),
		ValidUntil:        validUntil,
		Notes:             strings.TrimSpace(req.Notes),
		Status:            workflow.QuotationSubmitted,
		SubmittedBy:       actor.UserID,
	}
	if err := s.quotations.Create(ctx, q); err != nil {
		return nil, apperror.Internal(err, "failed to create quotation")
	}

	s.audit.Record(ctx, actor.UserID, model.ActionCreateQuotation, "quotations", q.ID, map[string]interface{}{
		"material_request_id": q.MaterialRequestID,
		"supplier_id":         q.SupplierID,
		"amount":              q.Amount.String(),
	})
	return q, nil
}

func (s *quotationService) ListByRequest(ctx context.Context, requestID int64) ([]model.Quotation, error) {
	if requestID <= 0 {
		return nil, apperror.Validation("request_id is required")
	}
	items, err := s.quotations.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, apperror.Internal(err, "failed to list quotations")
	}
	return items, nil
}

func (s *quotationService) Accept(ctx context.Context, actor Actor, id int64) (*model.Quotation, error) {
	var q *model.Quotation
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.quotations.FindByID(txCtx, id)
		if err != nil {
			return lookupError(err, "quotation")
		}
		// siblings are written only under the parent request lock
		if _, err := s.requests.LockByID(txCtx, found.MaterialRequestID); err != nil {
			return lookupError(err, "material request")
		}
		q, err = s.quotations.FindByID(txCtx, id)
		if err != nil {
			return lookupError(err, "quotation")
		}
		if q.Status != workflow.QuotationSubmitted {
			return apperror.Conflict("quotation is already %s", q.Status)
		}
		if _, err := approvedMaterialRequest(txCtx, s.requests, q.MaterialRequestID); err != nil {
			return err
		}

		ok, err := s.quotations.Accept(txCtx, id, q.MaterialRequestID)
		if err != nil {
			return apperror.Internal(err, "failed to accept quotation")
		}
		if !ok {
			return apperror.Conflict("quotation was updated concurrently")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.UserID, model.ActionAcceptQuotation, "quotations", id, map[string]interface{}{
		"material_request_id": q.MaterialRequestID,
		"note":                fmt.Sprintf("other quotations for request %d rejected", q.MaterialRequestID),
	})

	accepted, err := s.quotations.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err, "failed to reload quotation")
	}
	return accepted, nil
}
