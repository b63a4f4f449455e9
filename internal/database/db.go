package database

import (
	"errors"

	"invoicing-backend/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Company{},
		&model.Client{},
		&model.Invoice{},
		&model.InvoiceLineItem{},
		&model.NumberCounter{},
		&model.PDFDocument{},
		&model.PDFChunk{},
		&model.AuditLog{},
	)
	if err != nil {
		log.WithError(err).Warn("failed to auto-migrate models")
	}

	if err := seedCompanies(db); err != nil {
		log.WithError(err).Warn("failed to seed companies")
	}

	return db, nil
}

// seedCompanies inserts the letterhead rows for the group's issuing companies
// when missing. Existing rows are left untouched so edits survive restarts.
func seedCompanies(db *gorm.DB) error {
	seed := []model.Company{
		{Code: model.CompanyWT, Name: "Winnertech"},
		{Code: model.CompanyWTPL, Name: "Winnertech Private Limited"},
		{Code: model.CompanyWTX, Name: "Winnertech Exports"},
		{Code: model.CompanyWTXPL, Name: "Winnertech Exports Private Limited"},
	}
	for _, company := range seed {
		var existing model.Company
		err := db.First(&existing, "code = ?", company.Code).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&company).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}
