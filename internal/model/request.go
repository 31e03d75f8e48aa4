package model

import (
	"time"

	"github.com/shopspring/decimal"

	"crms/internal/workflow"
)

// Request kinds
const (
	RequestKindEquipment = "EQUIPMENT"
	RequestKindMaterial  = "MATERIAL"
)

// ValidRequestKind reports whether kind is a known request kind
func ValidRequestKind(kind string) bool {
	return kind == RequestKindEquipment || kind == RequestKindMaterial
}

// ResourceRequest is a site's ask for equipment or material.
// ApprovedBy and DecidedAt are written together by a single UPDATE;
// the table carries a CHECK constraint for the pair.
type ResourceRequest struct {
	ID              int64           `gorm:"primaryKey" json:"id"`
	Kind            string          `gorm:"type:varchar(20);not null;index" json:"kind"`
	SiteID          int64           `gorm:"not null;index" json:"site_id"`
	Site            *Site           `gorm:"foreignKey:SiteID" json:"site,omitempty"`
	RequestedBy     int64           `gorm:"not null;index" json:"requested_by"`
	Requester       *User           `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	MaterialID      *int64          `json:"material_id"`
	EquipmentID     *int64          `json:"equipment_id"`
	Quantity        decimal.Decimal `gorm:"type:numeric(18,3);not null;default:0" json:"quantity"`
	Description     string          `gorm:"type:text;not null" json:"description"`
	StartDate       *time.Time      `gorm:"type:date" json:"start_date"`
	EndDate         *time.Time      `gorm:"type:date" json:"end_date"`
	Metadata        string          `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	Status          workflow.Status `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	ApprovedBy      *int64          `json:"approved_by"`
	Approver        *User           `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	DecidedAt       *time.Time      `json:"decided_at"`
	RejectionReason *string         `gorm:"type:text" json:"rejection_reason"`
	FulfilledBy     *int64          `json:"fulfilled_by"`
	FulfilledAt     *time.Time      `json:"fulfilled_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
