package model

import (
	"time"

	"gorm.io/gorm"
)

// Role names, matched exactly by the authorization middleware
const (
	RoleSystemAdmin        = "SYSTEM_ADMIN"
	RoleProjectManager     = "PROJECT_MANAGER"
	RoleSiteSupervisor     = "SITE_SUPERVISOR"
	RoleProcurementOfficer = "PROCUREMENT_OFFICER"
	RoleFinanceOfficer     = "FINANCE_OFFICER"
)

// Roles lists every valid role
var Roles = []string{
	RoleSystemAdmin,
	RoleProjectManager,
	RoleSiteSupervisor,
	RoleProcurementOfficer,
	RoleFinanceOfficer,
}

// ValidRole reports whether role is one of Roles
func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// User is an authenticated actor of the system
type User struct {
	ID        int64          `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FullName  string         `gorm:"type:varchar(255);not null;default:''" json:"full_name"`
	Phone     string         `gorm:"type:varchar(30);not null;default:''" json:"phone"`
	Password  string         `gorm:"type:varchar(255);not null" json:"-"`
	Role      string         `gorm:"type:varchar(30);not null;index" json:"role"`
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
