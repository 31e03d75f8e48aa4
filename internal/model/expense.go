package model

import (
	"time"

	"github.com/shopspring/decimal"

	"crms/internal/workflow"
)

// Expense categories
const (
	ExpenseCategoryLabor     = "LABOR"
	ExpenseCategoryMaterial  = "MATERIAL"
	ExpenseCategoryEquipment = "EQUIPMENT"
	ExpenseCategoryTransport = "TRANSPORT"
	ExpenseCategoryOther     = "OTHER"
)

// ValidExpenseCategory reports whether c is a known category
func ValidExpenseCategory(c string) bool {
	switch c {
	case ExpenseCategoryLabor, ExpenseCategoryMaterial, ExpenseCategoryEquipment, ExpenseCategoryTransport, ExpenseCategoryOther:
		return true
	}
	return false
}

// Expense is a payment against a project budget.
// APPROVED and PAID expenses count as spent.
type Expense struct {
	ID              int64           `gorm:"primaryKey" json:"id"`
	ProjectID       int64           `gorm:"not null;index" json:"project_id"`
	Project         *Project        `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	PurchaseOrderID *int64          `gorm:"index" json:"purchase_order_id"`
	Category        string          `gorm:"type:varchar(20);not null" json:"category"`
	Description     string          `gorm:"type:text;not null" json:"description"`
	Amount          decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	Status          workflow.Status `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	CreatedBy       int64           `gorm:"not null" json:"created_by"`
	Creator         *User           `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	ApprovedBy      *int64          `json:"approved_by"`
	DecidedAt       *time.Time      `json:"decided_at"`
	RejectionReason *string         `gorm:"type:text" json:"rejection_reason"`
	PaidAt          *time.Time      `json:"paid_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
