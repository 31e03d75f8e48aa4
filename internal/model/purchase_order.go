package model

import (
	"time"

	"github.com/shopspring/decimal"

	"crms/internal/workflow"
)

// PurchaseOrder commits project budget to a supplier.
// DRAFT reserves half of Total, APPROVED reserves all of it.
type PurchaseOrder struct {
	ID                int64               `gorm:"primaryKey" json:"id"`
	Number            string              `gorm:"column:po_number;type:varchar(30);uniqueIndex;not null" json:"po_number"`
	ProjectID         int64               `gorm:"not null;index" json:"project_id"`
	Project           *Project            `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	SupplierID        int64               `gorm:"not null;index" json:"supplier_id"`
	Supplier          *Supplier           `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	MaterialRequestID *int64              `gorm:"index" json:"material_request_id"`
	QuotationID       *int64              `json:"quotation_id"`
	Items             []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID" json:"items"`
	Total             decimal.Decimal     `gorm:"type:numeric(18,2);not null" json:"total"`
	Status            workflow.Status     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Notes             string              `gorm:"type:text;not null;default:''" json:"notes"`
	CreatedBy         int64               `gorm:"not null" json:"created_by"`
	Creator           *User               `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	ApprovedBy        *int64              `json:"approved_by"`
	Approver          *User               `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	DecidedAt         *time.Time          `json:"decided_at"`
	RejectionReason   *string             `gorm:"type:text" json:"rejection_reason"`
	DeliveredAt       *time.Time          `json:"delivered_at"`
	CancelledAt       *time.Time          `json:"cancelled_at"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// PurchaseOrderItem is a line of a purchase order
type PurchaseOrderItem struct {
	ID              int64           `gorm:"primaryKey" json:"id"`
	PurchaseOrderID int64           `gorm:"not null;index" json:"purchase_order_id"`
	MaterialID      *int64          `json:"material_id"`
	Description     string          `gorm:"type:text;not null;default:''" json:"description"`
	Quantity        decimal.Decimal `gorm:"type:numeric(18,3);not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"unit_price"`
	LineTotal       decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"line_total"`
}

// Quotation is a supplier's price for an approved material request
type Quotation struct {
	ID                int64           `gorm:"primaryKey" json:"id"`
	MaterialRequestID int64           `gorm:"not null;index" json:"material_request_id"`
	SupplierID        int64           `gorm:"not null;index" json:"supplier_id"`
	Supplier          *Supplier       `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Amount            decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	ValidUntil        *time.Time      `gorm:"type:date" json:"valid_until"`
	Notes             string          `gorm:"type:text;not null;default:''" json:"notes"`
	Status            workflow.Status `gorm:"type:varchar(20);not null;default:'SUBMITTED'" json:"status"`
	SubmittedBy       int64           `gorm:"not null" json:"submitted_by"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
