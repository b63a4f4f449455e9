package repository

import (
	"context"

	"invoicing-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClientRepository interface {
	Create(ctx context.Context, client *model.Client) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error)
	List(ctx context.Context, companyGroup, search string, page, limit int) ([]model.Client, int64, error)
	Update(ctx context.Context, client *model.Client) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type clientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *model.Client) error {
	return GetDB(ctx, r.db).Create(client).Error
}

func (r *clientRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	var client model.Client
	if err := GetDB(ctx, r.db).First(&client, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) List(ctx context.Context, companyGroup, search string, page, limit int) ([]model.Client, int64, error) {
	db := GetDB(ctx, r.db)

	apply := func(q *gorm.DB) *gorm.DB {
		if companyGroup != "" {
			q = q.Where("company_group = ?", companyGroup)
		}
		if search != "" {
			pattern := "%" + search + "%"
			q = q.Where("client_name ILIKE ? OR email ILIKE ?", pattern, pattern)
		}
		return q
	}

	var total int64
	if err := apply(db.Model(&model.Client{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var clients []model.Client
	offset := (page - 1) * limit
	if err := apply(db).Order("client_name asc").Offset(offset).Limit(limit).Find(&clients).Error; err != nil {
		return nil, 0, err
	}
	return clients, total, nil
}

func (r *clientRepository) Update(ctx context.Context, client *model.Client) error {
	return GetDB(ctx, r.db).Save(client).Error
}

func (r *clientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.Client{}, "id = ?", id).Error
}
