package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Attendance status values
const (
	AttendancePresent = "PRESENT"
	AttendanceAbsent  = "ABSENT"
	AttendanceLate    = "LATE"
)

// AttendanceRecord is one worker's attendance on a site for a day
type AttendanceRecord struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	SiteID      int64           `gorm:"not null;uniqueIndex:idx_attendance_unique" json:"site_id"`
	WorkerName  string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_attendance_unique" json:"worker_name"`
	WorkDate    time.Time       `gorm:"type:date;not null;uniqueIndex:idx_attendance_unique" json:"work_date"`
	Status      string          `gorm:"type:varchar(20);not null" json:"status"`
	HoursWorked decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"hours_worked"`
	RecordedBy  int64           `gorm:"not null" json:"recorded_by"`
	CreatedAt   time.Time       `json:"created_at"`
}
