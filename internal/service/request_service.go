package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"crms/config"
	"crms/internal/model"
	"crms/internal/repository"
	"crms/internal/workflow"
	"crms/pkg/apperror"
)

// --- DTOs ---

type CreateRequestDTO struct {
	SiteID      int64           `json:"site_id"`
	Kind        string          `json:"kind"`
	EquipmentID *int64          `json:"equipment_id"`
	MaterialID  *int64          `json:"material_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Description string          `json:"description"`
	StartDate   *string         `json:"start_date"`
	EndDate     *string         `json:"end_date"`
	Metadata    json.RawMessage `json:"metadata" swaggertype:"object"`
}

type RejectDTO struct {
	Reason string `json:"reason"`
}

type RequestListFilter struct {
	Kind      string
	Status    string
	SiteID    int64
	ProjectID int64
	Page      int
	Limit     int
}

// --- Interface ---

type RequestService interface {
	Submit(ctx context.Context, actor Actor, req CreateRequestDTO) (*model.ResourceRequest, error)
	Get(ctx context.Context, actor Actor, id int64) (*model.ResourceRequest, error)
	List(ctx context.Context, actor Actor, filter RequestListFilter) ([]model.ResourceRequest, int64, error)
	Approve(ctx context.Context, actor Actor, id int64) (*model.ResourceRequest, error)
	Reject(ctx context.Context, actor Actor, id int64, reason string) (*model.ResourceRequest, error)
	Fulfill(ctx context.Context, actor Actor, id int64) (*model.ResourceRequest, error)
}

type requestService struct {
	requests repository.RequestRepository
	projects repository.ProjectRepository
	catalog  repository.CatalogRepository
	audit    *AuditSink
	notifier NotificationService
	cfg      config.WorkflowConfig
	logger   *zap.Logger
}

func NewRequestService(
	requests repository.RequestRepository,
	projects repository.ProjectRepository,
	catalog repository.CatalogRepository,
	audit *AuditSink,
	notifier NotificationService,
	cfg config.WorkflowConfig,
	logger *zap.Logger,
) RequestService {
	return &requestService{
		requests: requests,
		projects: projects,
		catalog:  catalog,
		audit:    audit,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// --- Implementation ---

func (s *requestService) validate(ctx context.Context, req *CreateRequestDTO) error {
	req.Kind = strings.ToUpper(strings.TrimSpace(req.Kind))
	req.Description = strings.TrimSpace(req.Description)

	if req.SiteID <= 0 {
		return apperror.Validation("site_id is required")
	}
	if !model.ValidRequestKind(req.Kind) {
		return apperror.Validation("kind must be EQUIPMENT or MATERIAL")
	}

	switch req.Kind {
	case model.RequestKindEquipment:
		if req.Description == "" {
			return apperror.Validation("description is required")
		}
		if req.EquipmentID != nil {
			if _, err := s.catalog.GetEquipment(ctx, *req.EquipmentID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperror.Validation("equipment %d does not exist", *req.EquipmentID)
				}
				return apperror.Internal(err, "failed to load equipment")
			}
		}
	case model.RequestKindMaterial:
		if req.MaterialID == nil {
			return apperror.Validation("material_id is required")
		}
		if !req.Quantity.IsPositive() {
			return apperror.Validation("quantity must be greater than 0")
		}
		if _, err := s.catalog.GetMaterial(ctx, *req.MaterialID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.Validation("material %d does not exist", *req.MaterialID)
			}
			return apperror.Internal(err, "failed to load material")
		}
	}

	if len(req.Metadata) > 0 && !json.Valid(req.Metadata) {
		return apperror.Validation("metadata must be valid JSON")
	}
	return nil
}

// checkOwnership reports whether actor manages the site. A failed lookup is
// an error unless ownership_fail_open is set, in which case it passes.
func (s *requestService) checkOwnership(ctx context.Context, actor Actor, siteID int64) (*model.Site, error) {
	site, err := s.projects.GetSiteByID(ctx, siteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("site not found")
		}
		if s.cfg.OwnershipFailOpen {
			s.logger.Warn("Ownership lookup failed, allowing request",
				zap.Int64("site_id", siteID),
				zap.Int64("user_id", actor.UserID),
				zap.Error(err),
			)
			return nil, nil
		}
		return nil, apperror.Internal(err, "failed to verify site ownership")
	}

	if actor.IsAdmin() || supervises(site, actor.UserID) || manages(site.Project, actor.UserID) {
		return site, nil
	}
	return nil, apperror.Forbidden("you do not manage this site")
}

func (s *requestService) Submit(ctx context.Context, actor Actor, req CreateRequestDTO) (*model.ResourceRequest, error) {
	if err := s.validate(ctx, &req); err != nil {
		return nil, err
	}

	startDate, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}
	endDate, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return nil, err
	}
	if startDate != nil && endDate != nil && endDate.Before(*startDate) {
		return nil, apperror.Validation("end_date must not be before start_date")
	}

	site, err := s.checkOwnership(ctx, actor, req.SiteID)
	if err != nil {
		return nil, err
	}

	metadata := "{}"
	if len(req.Metadata) > 0 && string(req.Metadata) != "null" {
		metadata = string(req.Metadata)
	}

	request := &model.ResourceRequest{
		Kind:        req.Kind,
		SiteID:      req.SiteID,
		RequestedBy: actor.UserID,
		MaterialID:  req.MaterialID,
		EquipmentID: req.EquipmentID,
		Quantity:    req.Quantity,
		Description: req.Description,
		StartDate:   startDate,
		EndDate:     endDate,
		Metadata:    metadata,
		Status:      workflow.StatusPending,
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, apperror.Internal(err, "failed to create request")
	}

	s.audit.Record(ctx, actor.UserID, fmt.Sprintf(model.ActionCreateRequestFmt, request.Kind), "resource_requests", request.ID, map[string]interface{}{
		"kind":    request.Kind,
		"site_id": request.SiteID,
		"status":  request.Status,
	})

	if site != nil && site.Project != nil && site.Project.ManagerID != nil {
		s.notifier.Notify(ctx, []int64{*site.Project.ManagerID}, Notice{
			Title:      fmt.Sprintf("New %s request", strings.ToLower(request.Kind)),
			Message:    fmt.Sprintf("Request #%d on site %s is waiting for approval", request.ID, site.Name),
			EntityType: "resource_request",
			EntityID:   request.ID,
		})
	}

	return request, nil
}

func (s *requestService) Get(ctx context.Context, actor Actor, id int64) (*model.ResourceRequest, error) {
	req, err := s.requests.FindByIDWithScope(ctx, id)
	if err != nil {
		return nil, lookupError(err, "request")
	}
	if !canView(actor, req.Site) {
		return nil, apperror.Forbidden("you cannot view this request")
	}
	return req, nil
}

// canView applies the list scope to a single site-scoped row
func canView(actor Actor, site *model.Site) bool {
	switch actor.Role {
	case model.RoleProjectManager:
		return site != nil && manages(site.Project, actor.UserID)
	case model.RoleSiteSupervisor:
		return supervises(site, actor.UserID)
	}
	return true
}

func (s *requestService) List(ctx context.Context, actor Actor, f RequestListFilter) ([]model.ResourceRequest, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit)
	items, total, err := s.requests.List(ctx, repository.RequestFilter{
		Scope:     scopeFor(actor),
		Kind:      strings.ToUpper(f.Kind),
		Status:    strings.ToUpper(f.Status),
		SiteID:    f.SiteID,
		ProjectID: f.ProjectID,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return nil, 0, apperror.Internal(err, "failed to list requests")
	}
	return items, total, nil
}

// loadForDecision returns the request after checking the actor is its approver
func (s *requestService) loadForDecision(ctx context.Context, actor Actor, id int64) (*model.ResourceRequest, error) {
	req, err := s.requests.FindByIDWithScope(ctx, id)
	if err != nil {
		return nil, lookupError(err, "request")
	}
	if actor.IsAdmin() {
		return req, nil
	}
	if req.Site == nil || !manages(req.Site.Project, actor.UserID) {
		return nil, apperror.Forbidden("you are not the project manager for this request")
	}
	return req, nil
}

func (s *requestService) Approve(ctx context.Context, actor Actor, id int64) (*model.ResourceRequest, error) {
	return s.decide(ctx, actor, id, workflow.ActionApprove, nil)
}

func (s *requestService) Reject(ctx context.Context, actor Actor, id int64, reason string) (*model.ResourceRequest, error) {
	var reasonPtr *string
	if r := strings.TrimSpace(reason); r != "" {
		reasonPtr = &r
	}
	return s.decide(ctx, actor, id, workflow.ActionReject, reasonPtr)
}

func (s *requestService) decide(ctx context.Context, actor Actor, id int64, action workflow.Action, reason *string) (*model.ResourceRequest, error) {
	req, err := s.loadForDecision(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	next, err := workflow.ResourceRequest.Next(req.Status, action)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	fields := map[string]interface{}{
		"status":      next,
		"approved_by": actor.UserID,
		"decided_at":  now,
		"updated_at":  now,
	}
	if action == workflow.ActionReject {
		fields["rejection_reason"] = reason
	}

	moved, err := s.requests.Transition(ctx, id, workflow.ResourceRequest.Sources(action), fields)
	if err != nil {
		return nil, apperror.Internal(err, "failed to update request")
	}
	if !moved {
		// Lost a race with another decision.
		return nil, apperror.Conflict("request was decided concurrently")
	}

	format := model.ActionApproveRequestFmt
	if action == workflow.ActionReject {
		format = model.ActionRejectRequestFmt
	}
	s.audit.Record(ctx, actor.UserID, fmt.Sprintf(format, req.Kind), "resource_requests", id, map[string]interface{}{
		"status":           next,
		"approved_by":      actor.UserID,
		"rejection_reason": reason,
	})

	s.notifier.Notify(ctx, []int64{req.RequestedBy}, Notice{
		Title:      fmt.Sprintf("Request #%d %s", id, strings.ToLower(string(next))),
		Message:    fmt.Sprintf("Your %s request was %s", strings.ToLower(req.Kind), strings.ToLower(string(next))),
		EntityType: "resource_request",
		EntityID:   id,
	})

	return s.reload(ctx, id)
}

func (s *requestService) Fulfill(ctx context.Context, actor Actor, id int64) (*model.ResourceRequest, error) {
	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "request")
	}

	next, err := workflow.ResourceRequest.Next(req.Status, workflow.ActionFulfill)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	moved, err := s.requests.Transition(ctx, id, workflow.ResourceRequest.Sources(workflow.ActionFulfill), map[string]interface{}{
		"status":       next,
		"fulfilled_by": actor.UserID,
		"fulfilled_at": now,
		"updated_at":   now,
	})
	if err != nil {
		return nil, apperror.Internal(err, "failed to update request")
	}
	if !moved {
		return nil, apperror.Conflict("request was updated concurrently")
	}

	s.audit.Record(ctx, actor.UserID, fmt.Sprintf(model.ActionFulfillRequestFmt, req.Kind), "resource_requests", id, map[string]interface{}{
		"status":       next,
		"fulfilled_by": actor.UserID,
	})
	s.notifier.Notify(ctx, []int64{req.RequestedBy}, Notice{
		Title:      fmt.Sprintf("Request #%d fulfilled", id),
		Message:    fmt.Sprintf("Your %s request has been fulfilled", strings.ToLower(req.Kind)),
		EntityType: "resource_request",
		EntityID:   id,
	})

	return s.reload(ctx, id)
}

func (s *requestService) reload(ctx context.Context, id int64) (*model.ResourceRequest, error) {
	req, err := s.requests.FindByIDWithScope(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err, "failed to reload request")
	}
	return req, nil
}
