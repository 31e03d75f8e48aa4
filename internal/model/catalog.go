package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Material is a stocked consumable such as cement or rebar
type Material struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Unit      string          `gorm:"type:varchar(30);not null" json:"unit"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"unit_price"`
	Stock     decimal.Decimal `gorm:"type:numeric(18,3);not null;default:0" json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Equipment status values
const (
	EquipmentAvailable   = "AVAILABLE"
	EquipmentInUse       = "IN_USE"
	EquipmentMaintenance = "MAINTENANCE"
)

// ValidEquipmentStatus reports whether s is a known equipment status
func ValidEquipmentStatus(s string) bool {
	return s == EquipmentAvailable || s == EquipmentInUse || s == EquipmentMaintenance
}

type Equipment struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Code      string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Status    string    `gorm:"type:varchar(20);not null;default:'AVAILABLE'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Equipment) TableName() string { return "equipment" }

// Supplier provides materials against purchase orders
type Supplier struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	ContactPerson string    `gorm:"type:varchar(255);not null;default:''" json:"contact_person"`
	Email         string    `gorm:"type:varchar(255);not null;default:''" json:"email"`
	Phone         string    `gorm:"type:varchar(30);not null;default:''" json:"phone"`
	Address       string    `gorm:"type:text;not null;default:''" json:"address"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
