package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"crms/internal/model"
)

type AttendanceRepository interface {
	// Create returns gorm.ErrDuplicatedKey when the worker already has a
	// record for that site and day.
	Create(ctx context.Context, rec *model.AttendanceRecord) error
	List(ctx context.Context, siteID int64, day *time.Time, page, limit int) ([]model.AttendanceRecord, int64, error)
}

type attendanceRepository struct {
	db *gorm.DB
}

func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) Create(ctx context.Context, rec *model.AttendanceRecord) error {
	return GetDB(ctx, r.db).Create(rec).Error
}

func (r *attendanceRepository) List(ctx context.Context, siteID int64, day *time.Time, page, limit int) ([]model.AttendanceRecord, int64, error) {
	var records []model.AttendanceRecord
	var total int64

	query := GetDB(ctx, r.db).Model(&model.AttendanceRecord{}).Where("site_id = ?", siteID)
	if day != nil {
		query = query.Where("work_date = ?", day.Format("2006-01-02"))
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("work_date DESC, worker_name").Scopes(paginate(page, limit)).Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
