package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"crms/internal/model"
	"crms/internal/repository"
	"crms/internal/workflow"
	"crms/pkg/apperror"
)

// --- DTOs ---

type PurchaseOrderItemDTO struct {
	MaterialID  *int64          `json:"material_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity" swaggertype:"number"`
	UnitPrice   decimal.Decimal `json:"unit_price" swaggertype:"number"`
}

type CreatePurchaseOrderDTO struct {
	ProjectID         int64                  `json:"project_id"`
	SupplierID        int64                  `json:"supplier_id"`
	MaterialRequestID *int64                 `json:"material_request_id"`
	QuotationID       *int64                 `json:"quotation_id"`
	Notes             string                 `json:"notes"`
	Items             []PurchaseOrderItemDTO `json:"items"`
}

type FinanceActionDTO struct {
	Action string `json:"action" example:"APPROVE"`
	Reason string `json:"reason"`
}

type PurchaseOrderListFilter struct {
	ProjectID  int64
	SupplierID int64
	Status     string
	Page       int
	Limit      int
}

// --- Interface ---

type PurchaseOrderService interface {
	Create(ctx context.Context, actor Actor, req CreatePurchaseOrderDTO) (*model.PurchaseOrder, error)
	Get(ctx context.Context, actor Actor, id int64) (*model.PurchaseOrder, error)
	List(ctx context.Context, actor Actor, filter PurchaseOrderListFilter) ([]model.PurchaseOrder, int64, error)
	// FinanceAction applies APPROVE, DRAFT or REJECT under the project budget lock
	FinanceAction(ctx context.Context, actor Actor, id int64, req FinanceActionDTO) (*model.PurchaseOrder, error)
	Deliver(ctx context.Context, actor Actor, id int64) (*model.PurchaseOrder, error)
	Cancel(ctx context.Context, actor Actor, id int64, reason string) (*model.PurchaseOrder, error)
}

type purchaseOrderService struct {
	tx         repository.TransactionManager
	orders     repository.PurchaseOrderRepository
	projects   repository.ProjectRepository
	budget     repository.BudgetRepository
	requests   repository.RequestRepository
	quotations repository.QuotationRepository
	catalog    repository.CatalogRepository
	audit      *AuditSink
	notifier   NotificationService
}

func NewPurchaseOrderService(
	tx repository.TransactionManager,
	orders repository.PurchaseOrderRepository,
	projects repository.ProjectRepository,
	budget repository.BudgetRepository,
	requests repository.RequestRepository,
	quotations repository.QuotationRepository,
	catalog repository.CatalogRepository,
	audit *AuditSink,
	notifier NotificationService,
) PurchaseOrderService {
	return &purchaseOrderService{
		tx:         tx,
		orders:     orders,
		projects:   projects,
		budget:     budget,
		requests:   requests,
		quotations: quotations,
		catalog:    catalog,
		audit:      audit,
		notifier:   notifier,
	}
}

func newPONumber(now time.Time) string {
	return fmt.Sprintf("PO-%s-%s", now.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}

// --- Implementation ---

func (s *purchaseOrderService) buildItems(ctx context.Context, in []PurchaseOrderItemDTO) ([]model.PurchaseOrderItem, decimal.Decimal, error) {
	if len(in) == 0 {
		return nil, decimal.Zero, apperror.Validation("at least one item is required")
	}

	total := decimal.Zero
	items := make([]model.PurchaseOrderItem, 0, len(in))
	for i, it := range in {
		desc := strings.TrimSpace(it.Description)
		if it.MaterialID == nil && desc == "" {
			return nil, decimal.Zero, apperror.Validation("item %d needs a material_id or a description", i+1)
		}
		if !it.Quantity.IsPositive() {
			return nil, decimal.Zero, apperror.Validation("item %d quantity must be greater than 0", i+1)
		}
		if it.UnitPrice.IsNegative() {
			return nil, decimal.Zero, apperror.Validation("item %d unit_price must not be negative", i+1)
		}
		if it.MaterialID != nil {
			m, err := s.catalog.GetMaterial(ctx, *it.MaterialID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, decimal.Zero, apperror.Validation("material %d does not exist", *it.MaterialID)
				}
				return nil, decimal.Zero, apperror.Internal(err, "failed to load material")
			}
			if desc == "" {
				desc = m.Name
			}
		}

		line := it.Quantity.Mul(it.UnitPrice).Round(2)
		total = total.Add(line)
		items = append(items, model.PurchaseOrderItem{
			MaterialID:  it.MaterialID,
			Description: desc,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   line,
		})
	}

	if !total.IsPositive() {
		return nil, decimal.Zero, apperror.Validation("purchase order total must be greater than 0")
	}
	return items, total, nil
}

// checkSources validates the optional material request and quotation links
func (s *purchaseOrderService) checkSources(ctx context.Context, req CreatePurchaseOrderDTO) error {
	if req.MaterialRequestID != nil {
		mr, err := s.requests.FindByIDWithScope(ctx, *req.MaterialRequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.Validation("material request %d does not exist", *req.MaterialRequestID)
			}
			return apperror.Internal(err, "failed to load material request")
		}
		if mr.Kind != model.RequestKindMaterial || mr.Status != workflow.StatusApproved {
			return apperror.Validation("material request %d is not an approved material request", mr.ID)
		}
		if mr.Site != nil && mr.Site.ProjectID != req.ProjectID {
			return apperror.Validation("material request %d belongs to another project", mr.ID)
		}
	}

	if req.QuotationID != nil {
		q, err := s.quotations.FindByID(ctx, *req.QuotationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.Validation("quotation %d does not exist", *req.QuotationID)
			}
			return apperror.Internal(err, "failed to load quotation")
		}
		if q.Status != workflow.QuotationAccepted {
			return apperror.Validation("quotation %d has not been accepted", q.ID)
		}
		if q.SupplierID != req.SupplierID {
			return apperror.Validation("quotation %d is from another supplier", q.ID)
		}
		if req.MaterialRequestID != nil && q.MaterialRequestID != *req.MaterialRequestID {
			return apperror.Validation("quotation %d is for another request", q.ID)
		}
	}
	return nil
}

func (s *purchaseOrderService) Create(ctx context.Context, actor Actor, req CreatePurchaseOrderDTO) (*model.PurchaseOrder, error) {
	if req.ProjectID <= 0 {
		return nil, apperror.Validation("project_id is required")
	}
	if req.SupplierID <= 0 {
		return nil, apperror.Validation("supplier_id is required")
	}

	if _, err := s.projects.GetByID(ctx, req.ProjectID); err != nil {
		return nil, lookupError(err, "project")
	}
	supplier, err := s.catalog.GetSupplier(ctx, req.SupplierID)
	if err != nil {
		return nil, lookupError(err, "supplier")
	}
	if !supplier.IsActive {
		return nil, apperror.Validation("supplier %d is inactive", supplier.ID)
	}
	if err := s.checkSources(ctx, req); err != nil {
		return nil, err
	}

	items, total, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	po := &model.PurchaseOrder{
		Number:            newPONumber(time.Now()),
		ProjectID:         req.ProjectID,
		SupplierID:        req.SupplierID,
		MaterialRequestID: req.MaterialRequestID,
		QuotationID:       req.QuotationID,
		Items:             items,
		Total:             total,
		Status:            workflow.StatusPending,
		Notes:             strings.TrimSpace(req.Notes),
		CreatedBy:         actor.UserID,
	}

	if err := s.orders.Create(ctx, po); err != nil {
		return nil, apperror.Internal(err, "failed to create purchase order")
	}

	s.audit.Record(ctx, actor.UserID, model.ActionCreatePurchaseOrder, "purchase_orders", po.ID, map[string]interface{}{
		"po_number":  po.Number,
		"project_id": po.ProjectID,
		"total":      po.Total.String(),
	})
	s.notifier.NotifyRoles(ctx, Notice{
		Title:      "Purchase order awaiting finance review",
		Message:    fmt.Sprintf("%s for %s", po.Number, po.Total.StringFixed(2)),
		EntityType: "purchase_order",
		EntityID:   po.ID,
	}, model.RoleFinanceOfficer)

	return s.reload(ctx, po.ID)
}

func (s *purchaseOrderService) Get(ctx context.Context, actor Actor, id int64) (*model.PurchaseOrder, error) {
	po, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "purchase order")
	}
	switch actor.Role {
	case model.RoleProjectManager:
		if !manages(po.Project, actor.UserID) {
			return nil, apperror.Forbidden("you cannot view this purchase order")
		}
	case model.RoleSiteSupervisor:
		// same scope as List: a site of the order's project is theirs
		_, n, err := s.projects.ListSites(ctx, repository.Scope{SupervisorID: actor.UserID}, po.ProjectID, 1, 1)
		if err != nil {
			return nil, apperror.Internal(err, "failed to load purchase order")
		}
		if n == 0 {
			return nil, apperror.Forbidden("you cannot view this purchase order")
		}
	}
	return po, nil
}

func (s *purchaseOrderService) List(ctx context.Context, actor Actor, f PurchaseOrderListFilter) ([]model.PurchaseOrder, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit)
	items, total, err := s.orders.List(ctx, repository.PurchaseOrderFilter{
		Scope:      scopeFor(actor),
		ProjectID:  f.ProjectID,
		SupplierID: f.SupplierID,
		Status:     strings.ToUpper(f.Status),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return nil, 0, apperror.Internal(err, "failed to list purchase orders")
	}
	return items, total, nil
}

// lockedOrder takes the project lock and then reads the order, so the status
// and the budget aggregates it is checked against come from the same
// serialized view.
func (s *purchaseOrderService) lockedOrder(txCtx context.Context, id int64) (*model.PurchaseOrder, *model.Project, error) {
	po, err := s.orders.FindByID(txCtx, id)
	if err != nil {
		return nil, nil, lookupError(err, "purchase order")
	}
	project, err := s.projects.LockByID(txCtx, po.ProjectID)
	if err != nil {
		return nil, nil, lookupError(err, "project")
	}
	po, err = s.orders.FindByID(txCtx, id)
	if err != nil {
		return nil, nil, lookupError(err, "purchase order")
	}
	return po, project, nil
}

func (s *purchaseOrderService) FinanceAction(ctx context.Context, actor Actor, id int64, req FinanceActionDTO) (*model.PurchaseOrder, error) {
	action, err := workflow.ParseAction(req.Action)
	if err != nil {
		return nil, err
	}
	if action != workflow.ActionApprove && action != workflow.ActionDraft && action != workflow.ActionReject {
		return nil, apperror.Validation("action must be APPROVE, DRAFT or REJECT")
	}

	var from, next workflow.Status
	var po *model.PurchaseOrder
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var project *model.Project
		var err error
		po, project, err = s.lockedOrder(txCtx, id)
		if err != nil {
			return err
		}

		from = po.Status
		next, err = workflow.PurchaseOrder.Next(from, action)
		if err != nil {
			return err
		}

		if action != workflow.ActionReject {
			totals, err := s.budget.Totals(txCtx, project.ID)
			if err != nil {
				return apperror.Internal(err, "failed to compute project budget")
			}
			snap := newBudgetSnapshot(project, totals)
			required := po.Total
			if action == workflow.ActionDraft {
				required = halfOf(po.Total)
			}
			if from == workflow.StatusDraft {
				snap = snap.withoutDraft(po.Total)
			}
			if err := snap.require(required); err != nil {
				return err
			}
		}

		now := time.Now()
		fields := map[string]interface{}{
			"status":      next,
			"approved_by": actor.UserID,
			"decided_at":  now,
			"updated_at":  now,
		}
		if action == workflow.ActionReject {
			var reason *string
			if r := strings.TrimSpace(req.Reason); r != "" {
				reason = &r
			}
			fields["rejection_reason"] = reason
		}

		moved, err := s.orders.Transition(txCtx, id, []workflow.Status{from}, fields)
		if err != nil {
			return apperror.Internal(err, "failed to update purchase order")
		}
		if !moved {
			return apperror.Conflict("purchase order was updated concurrently")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.UserID, fmt.Sprintf(model.ActionFinancePurchaseOrder, action), "purchase_orders", id, map[string]interface{}{
		"from":   from,
		"status": next,
		"total":  po.Total.String(),
		"reason": strings.TrimSpace(req.Reason),
	})
	s.notifier.Notify(ctx, []int64{po.CreatedBy}, Notice{
		Title:      fmt.Sprintf("%s %s", po.Number, strings.ToLower(string(next))),
		Message:    fmt.Sprintf("Finance moved %s from %s to %s", po.Number, from, next),
		EntityType: "purchase_order",
		EntityID:   id,
	})

	return s.reload(ctx, id)
}

func (s *purchaseOrderService) Deliver(ctx context.Context, actor Actor, id int64) (*model.PurchaseOrder, error) {
	var po *model.PurchaseOrder
	var fulfilled bool
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		po, err = s.orders.FindByID(txCtx, id)
		if err != nil {
			return lookupError(err, "purchase order")
		}
		next, err := workflow.PurchaseOrder.Next(po.Status, workflow.ActionDeliver)
		if err != nil {
			return err
		}

		now := time.Now()
		moved, err := s.orders.Transition(txCtx, id, []workflow.Status{po.Status}, map[string]interface{}{
			"status":       next,
			"delivered_at": now,
			"updated_at":   now,
		})
		if err != nil {
			return apperror.Internal(err, "failed to update purchase order")
		}
		if !moved {
			return apperror.Conflict("purchase order was updated concurrently")
		}

		for _, item := range po.Items {
			if item.MaterialID == nil {
				continue
			}
			if err := s.catalog.AddStock(txCtx, *item.MaterialID, item.Quantity); err != nil {
				return apperror.Internal(err, "failed to restock material %d", *item.MaterialID)
			}
		}

		if po.MaterialRequestID != nil {
			fulfilled, err = s.requests.Transition(txCtx, *po.MaterialRequestID, []workflow.Status{workflow.StatusApproved}, map[string]interface{}{
				"status":       workflow.StatusFulfilled,
				"fulfilled_by": actor.UserID,
				"fulfilled_at": now,
				"updated_at":   now,
			})
			if err != nil {
				return apperror.Internal(err, "failed to fulfill material request")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.UserID, model.ActionDeliverPurchaseOrder, "purchase_orders", id, map[string]interface{}{
		"status":              workflow.StatusDelivered,
		"material_request_id": po.MaterialRequestID,
	})
	if fulfilled {
		s.audit.Record(ctx, actor.UserID, fmt.Sprintf(model.ActionFulfillRequestFmt, model.RequestKindMaterial), "resource_requests", *po.MaterialRequestID, map[string]interface{}{
			"status":            workflow.StatusFulfilled,
			"purchase_order_id": id,
		})
		if mr, err := s.requests.FindByID(ctx, *po.MaterialRequestID); err == nil {
			s.notifier.Notify(ctx, []int64{mr.RequestedBy}, Notice{
				Title:      fmt.Sprintf("Request #%d fulfilled", mr.ID),
				Message:    fmt.Sprintf("Materials for your request arrived with %s", po.Number),
				EntityType: "resource_request",
				EntityID:   mr.ID,
			})
		}
	}

	return s.reload(ctx, id)
}

func (s *purchaseOrderService) Cancel(ctx context.Context, actor Actor, id int64, reason string) (*model.PurchaseOrder, error) {
	var po *model.PurchaseOrder
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		po, _, err = s.lockedOrder(txCtx, id)
		if err != nil {
			return err
		}
		next, err := workflow.PurchaseOrder.Next(po.Status, workflow.ActionCancel)
		if err != nil {
			return err
		}
		now := time.Now()
		moved, err := s.orders.Transition(txCtx, id, []workflow.Status{po.Status}, map[string]interface{}{
			"status":       next,
			"cancelled_at": now,
			"updated_at":   now,
		})
		if err != nil {
			return apperror.Internal(err, "failed to update purchase order")
		}
		if !moved {
			return apperror.Conflict("purchase order was updated concurrently")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.UserID, model.ActionCancelPurchaseOrder, "purchase_orders", id, map[string]interface{}{
		"status": workflow.StatusCancelled,
		"reason": strings.TrimSpace(reason),
	})
	s.notifier.Notify(ctx, []int64{po.CreatedBy}, Notice{
		Title:      fmt.Sprintf("%s cancelled", po.Number),
		Message:    fmt.Sprintf("%s was cancelled and its budget released", po.Number),
		EntityType: "purchase_order",
		EntityID:   id,
	})

	return s.reload(ctx, id)
}

func (s *purchaseOrderService) reload(ctx context.Context, id int64) (*model.PurchaseOrder, error) {
	po, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err, "failed to reload purchase order")
	}
	return po, nil
}
