package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"crms/internal/model"
	"crms/internal/repository"
	"crms/pkg/apperror"
)

// AuditSink writes audit rows on a best-effort basis. Failures are logged and
// dropped; the business operation that triggered the entry has already committed.
type AuditSink struct {
	repo   repository.AuditRepository
	logger *zap.Logger
}

func NewAuditSink(repo repository.AuditRepository, logger *zap.Logger) *AuditSink {
	return &AuditSink{repo: repo, logger: logger}
}

// Record stores {actor, action, table, record, values}
func (s *AuditSink) Record(ctx context.Context, actorID int64, action, table string, recordID int64, values interface{}) {
	payload := "{}"
	if values != nil {
		if raw, err := json.Marshal(values); err == nil {
			payload = string(raw)
		}
	}

	entry := &model.AuditLog{
		Action:    action,
		Entity:    table,
		RecordID:  recordID,
		NewValues: payload,
	}
	if actorID != 0 {
		entry.UserID = &actorID
	}

	if err := s.repo.Log(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("Failed to write audit log",
			zap.String("action", action),
			zap.String("table", table),
			zap.Int64("record_id", recordID),
			zap.Error(err),
		)
	}
}

type AuditLogResponse struct {
	ID        int64  `json:"id"`
	UserID    *int64 `json:"user_id"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	TableName string `json:"table_name"`
	RecordID  int64  `json:"record_id"`
	NewValues string `json:"new_values"`
	CreatedAt string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, filter repository.AuditFilter) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) GetAuditLogs(ctx context.Context, filter repository.AuditFilter) ([]AuditLogResponse, int64, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)

	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, apperror.Internal(err, "failed to list audit logs")
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		if l.User != nil {
			username = l.User.Username
		}
		res = append(res, AuditLogResponse{
			ID:        l.ID,
			UserID:    l.UserID,
			Username:  username,
			Action:    l.Action,
			TableName: l.Entity,
			RecordID:  l.RecordID,
			NewValues: l.NewValues,
			CreatedAt: l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}
