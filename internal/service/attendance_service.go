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

type RecordAttendanceDTO struct {
	SiteID      int64           `json:"site_id"`
	WorkerName  string          `json:"worker_name"`
	WorkDate    string          `json:"work_date" example:"2026-10-14"`
	Status      string          `json:"status" example:"PRESENT"`
	HoursWorked decimal.Decimal `json:"hours_worked" swaggertype:"number"`
}

type AttendanceService interface {
	Record(ctx context.Context, actor Actor, req RecordAttendanceDTO) (*model.AttendanceRecord, error)
	List(ctx context.Context, actor Actor, siteID int64, date string, page, limit int) ([]model.AttendanceRecord, int64, error)
}

type attendanceService struct {
	repo     repository.AttendanceRepository
	projects repository.ProjectRepository
	audit    *AuditSink
}

func NewAttendanceService(repo repository.AttendanceRepository, projects repository.ProjectRepository, audit *AuditSink) AttendanceService {
	return &attendanceService{repo: repo, projects: projects, audit: audit}
}

var maxHours = decimal.NewFromInt(24)

func (s *attendanceService) Record(ctx context.Context, actor Actor, req RecordAttendanceDTO) (*model.AttendanceRecord, error) {
	req.WorkerName = strings.TrimSpace(req.WorkerName)
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))

	if req.SiteID <= 0 {
		return nil, apperror.Validation("site_id is required")
	}
	if req.WorkerName == "" {
		return nil, apperror.Validation("worker_name is required")
	}
	switch req.Status {
	case model.AttendancePresent, model.AttendanceAbsent, model.AttendanceLate:
	default:
		return nil, apperror.Validation("status must be PRESENT, ABSENT or LATE")
	}
	if req.HoursWorked.IsNegative() || req.HoursWorked.GreaterThan(maxHours) {
		return nil, apperror.Validation("hours_worked must be between 0 and 24")
	}
	day, err := parseDate("work_date", &req.WorkDate)
	if err != nil {
		return nil, err
	}
	if day == nil {
		return nil, apperror.Validation("work_date is required")
	}

	site, err := s.projects.GetSiteByID(ctx, req.SiteID)
	if err != nil {
		return nil, lookupError(err, "site")
	}
	if !actor.IsAdmin() && !supervises(site, actor.UserID) {
		return nil, apperror.Forbidden("you do not supervise this site")
	}

	rec := &model.AttendanceRecord{
		SiteID:      req.SiteID,
		WorkerName:  req.WorkerName,
		WorkDate:    *day,
		Status:      req.Status,
		HoursWorked: req.HoursWorked,
		RecordedBy:  actor.UserID,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("attendance for %s on %s is already recorded", req.WorkerName, req.WorkDate)
		}
		return nil, apperror.Internal(err, "failed to record attendance")
	}

	s.audit.Record(ctx, actor.UserID, model.ActionRecordAttendance, "attendance_records", rec.ID, map[string]interface{}{
		"site_id":     rec.SiteID,
		"worker_name": rec.WorkerName,
		"work_date":   req.WorkDate,
		"status":      rec.Status,
	})
	return rec, nil
}

func (s *attendanceService) List(ctx context.Context, actor Actor, siteID int64, date string, page, limit int) ([]model.AttendanceRecord, int64, error) {
	if siteID <= 0 {
		return nil, 0, apperror.Validation("site_id is required")
	}
	day, err := parseDate("date", &date)
	if err != nil {
		return nil, 0, err
	}

	site, err := s.projects.GetSiteByID(ctx, siteID)
	if err != nil {
		return nil, 0, lookupError(err, "site")
	}
	if !canView(actor, site) {
		return nil, 0, apperror.Forbidden("you cannot view this site")
	}

	page, limit = normalizePage(page, limit)
	items, total, err := s.repo.List(ctx, siteID, day, page, limit)
	if err != nil {
		return nil, 0, apperror.Internal(err, "failed to list attendance")
	}
	return items, total, nil
}
