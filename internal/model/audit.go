package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateClient    = "CREATE_CLIENT"
	ActionUpdateClient    = "UPDATE_CLIENT"
	ActionDeleteClient    = "DELETE_CLIENT"
	ActionCreateInvoice   = "CREATE_INVOICE"
	ActionCreateProforma  = "CREATE_PROFORMA"
	ActionDeleteInvoice   = "DELETE_INVOICE"
	ActionUpdatePayment   = "UPDATE_PAYMENT_STATUS"
	ActionRateDegradation = "RATE_DEGRADATION"
	ActionMonthlyExport   = "MONTHLY_EXPORT"
)

// AuditLog tracks Who, What, and When for critical system changes, plus
// recoverable degradations (static-rate invoices, skipped export documents)
// so they can be reconciled by a human later.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for automated jobs
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
