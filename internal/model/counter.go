package model

import "time"

// NumberCounter backs document number allocation. One row per
// (company, period, kind) key; Count is monotonically non-decreasing and each
// increment is observed by exactly one caller — the repository locks the row
// inside a transaction for every read-modify-write.
//
// Key formats: "<company>_<YYMM>" for invoices,
// "<company>_<YYMM>_PROFORMA" for proformas.
type NumberCounter struct {
	Key       string    `gorm:"type:varchar(30);primaryKey" json:"key"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}
