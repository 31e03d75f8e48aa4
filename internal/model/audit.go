package model

import (
	"time"
)

// Audited actions, formatted as <VERB>_<ENTITY>
const (
	ActionCreateRequestFmt  = "CREATE_%s_REQUEST"
	ActionApproveRequestFmt = "APPROVE_%s_REQUEST"
	ActionRejectRequestFmt  = "REJECT_%s_REQUEST"
	ActionFulfillRequestFmt = "FULFILL_%s_REQUEST"

	ActionCreatePurchaseOrder  = "CREATE_PURCHASE_ORDER"
	ActionFinancePurchaseOrder = "FINANCE_%s_PURCHASE_ORDER"
	ActionDeliverPurchaseOrder = "DELIVER_PURCHASE_ORDER"
	ActionCancelPurchaseOrder  = "CANCEL_PURCHASE_ORDER"

	ActionCreateExpense  = "CREATE_EXPENSE"
	ActionApproveExpense = "APPROVE_EXPENSE"
	ActionRejectExpense  = "REJECT_EXPENSE"
	ActionPayExpense     = "PAY_EXPENSE"

	ActionCreateQuotation = "CREATE_QUOTATION"
	ActionAcceptQuotation = "ACCEPT_QUOTATION"

	ActionCreateProject = "CREATE_PROJECT"
	ActionUpdateProject = "UPDATE_PROJECT"
	ActionCreateSite    = "CREATE_SITE"
	ActionCreateUser    = "CREATE_USER"
	ActionUpdateUser    = "UPDATE_USER"
	ActionDeleteUser    = "DELETE_USER"

	ActionRecordAttendance = "RECORD_ATTENDANCE"
)

// AuditLog tracks who did what to which row
type AuditLog struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    *int64    `gorm:"index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action    string    `gorm:"type:varchar(60);not null;index" json:"action"`
	Entity    string    `gorm:"column:table_name;type:varchar(60);not null" json:"table_name"`
	RecordID  int64     `gorm:"index" json:"record_id"`
	NewValues string    `gorm:"type:jsonb;not null;default:'{}'" json:"new_values"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
