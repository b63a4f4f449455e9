package repository

import (
	"context"
	"time"

	"invoicing-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceListFilter narrows List results. Zero values mean "no filter".
type InvoiceListFilter struct {
	Kind          string // INVOICE, PROFORMA
	Company       string
	PaymentStatus string
	InvoiceNo     string // partial match
	ClientID      *uuid.UUID
	Page          int
	Limit         int
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindByNumber(ctx context.Context, invoiceNo string) (*model.Invoice, error)
	List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error)
	ListByPeriod(ctx context.Context, from, to time.Time, kind string) ([]model.Invoice, error)
	Update(ctx context.Context, invoice *model.Invoice) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	err := GetDB(ctx, r.db).
		Preload("Client").
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&invoice, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByNumber(ctx context.Context, invoiceNo string) (*model.Invoice, error) {
	var invoice model.Invoice
	err := GetDB(ctx, r.db).
		Preload("Client").
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&invoice, "invoice_no = ?", invoiceNo).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error) {
	db := GetDB(ctx, r.db)

	apply := func(q *gorm.DB) *gorm.DB {
		if filter.Kind != "" {
			q = q.Where("kind = ?", filter.Kind)
		}
		if filter.Company != "" {
			q = q.Where("company = ?", filter.Company)
		}
		if filter.PaymentStatus != "" {
			q = q.Where("payment_status = ?", filter.PaymentStatus)
		}
		if filter.InvoiceNo != "" {
			q = q.Where("invoice_no LIKE ?", "%"+filter.InvoiceNo+"%")
		}
		if filter.ClientID != nil {
			q = q.Where("client_id = ?", *filter.ClientID)
		}
		return q
	}

	var total int64
	if err := apply(db.Model(&model.Invoice{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var invoices []model.Invoice
	offset := (filter.Page - 1) * filter.Limit
	err := apply(db.Preload("Client")).
		Order("created_at desc").
		Offset(offset).Limit(filter.Limit).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

// ListByPeriod returns documents issued within [from, to), optionally
// filtered by kind. Used by the monthly audit export.
func (r *invoiceRepository) ListByPeriod(ctx context.Context, from, to time.Time, kind string) ([]model.Invoice, error) {
	db := GetDB(ctx, r.db).
		Preload("Client").
		Where("issue_date >= ? AND issue_date < ?", from, to)
	if kind != "" {
		db = db.Where("kind = ?", kind)
	}

	var invoices []model.Invoice
	if err := db.Order("invoice_no asc").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Save(invoice).Error
}

func (r *invoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.Invoice{}, "id = ?", id).Error
}
