package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Project status values
const (
	ProjectPlanning  = "PLANNING"
	ProjectActive    = "ACTIVE"
	ProjectOnHold    = "ON_HOLD"
	ProjectCompleted = "COMPLETED"
)

// ValidProjectStatus reports whether s is a known project status
func ValidProjectStatus(s string) bool {
	switch s {
	case ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted:
		return true
	}
	return false
}

// Project owns a budget and is managed by one project manager.
// The manager is the designated approver for requests raised on its sites.
type Project struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Location    string          `gorm:"type:varchar(255);not null;default:''" json:"location"`
	Description string          `gorm:"type:text;not null;default:''" json:"description"`
	Budget      decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"budget"`
	ManagerID   *int64          `gorm:"index" json:"manager_id"`
	Manager     *User           `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
	Status      string          `gorm:"type:varchar(20);not null;default:'PLANNING'" json:"status"`
	StartDate   *time.Time      `gorm:"type:date" json:"start_date"`
	EndDate     *time.Time      `gorm:"type:date" json:"end_date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Site is a physical work location belonging to a project
type Site struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	ProjectID    int64     `gorm:"not null;index" json:"project_id"`
	Project      *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Location     string    `gorm:"type:varchar(255);not null;default:''" json:"location"`
	SupervisorID *int64    `gorm:"index" json:"supervisor_id"`
	Supervisor   *User     `gorm:"foreignKey:SupervisorID" json:"supervisor,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
