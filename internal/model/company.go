package model

import "time"

// Company codes of the affiliated group. The code is the prefix of every
// document number issued for that company, so the set is a stable external
// contract.
const (
	CompanyWT    = "WT"
	CompanyWTPL  = "WTPL"
	CompanyWTX   = "WTX"
	CompanyWTXPL = "WTXPL"
)

// CompanyCodes lists the valid issuing companies.
var CompanyCodes = []string{CompanyWT, CompanyWTPL, CompanyWTX, CompanyWTXPL}

// IsValidCompany reports whether code is an issuing company of the group.
func IsValidCompany(code string) bool {
	for _, c := range CompanyCodes {
		if c == code {
			return true
		}
	}
	return false
}

// Company holds the letterhead data of an issuing company. Seeded at startup,
// read-only afterwards.
type Company struct {
	Code        string    `gorm:"type:varchar(10);primaryKey" json:"code"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Address     string    `gorm:"type:text" json:"address"`
	GSTIN       string    `gorm:"type:varchar(20)" json:"gstin"`
	BankDetails string    `gorm:"type:text" json:"bank_details"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
