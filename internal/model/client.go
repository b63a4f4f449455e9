package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is a billed party. Country and State drive the tax regime: Indian
// clients draw GST (split by state), everyone else the flat international
// rate when invoiced in INR. The tax engine consumes clients read-only.
type Client struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientName   string         `gorm:"type:varchar(255);not null;index" json:"client_name"`
	CompanyGroup string         `gorm:"type:varchar(10);index" json:"company_group"` // issuing company this client belongs to
	Country      string         `gorm:"type:varchar(100)" json:"country"`
	State        string         `gorm:"type:varchar(100)" json:"state"`
	Email        string         `gorm:"type:varchar(255)" json:"email"`
	Phone        string         `gorm:"type:varchar(30)" json:"phone"`
	Address      string         `gorm:"type:text" json:"address"`
	GSTIN        string         `gorm:"type:varchar(20)" json:"gstin"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
