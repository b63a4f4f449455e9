package repository

import (
	"context"
	"errors"

	"invoicing-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CounterRepository performs the atomic read-modify-write on number counters.
// Increment must be called inside a transaction (via TransactionManager) so
// the row lock is held until commit.
type CounterRepository interface {
	Increment(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
}

type counterRepository struct {
	db *gorm.DB
}

func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &counterRepository{db: db}
}

// Increment locks the counter row, bumps it by one and returns the new count.
// A missing row starts the sequence at 1. Concurrent writers serialize on the
// row lock; an insert race surfaces as a duplicate-key error for the caller's
// retry loop.
func (r *counterRepository) Increment(ctx context.Context, key string) (int64, error) {
	db := GetDB(ctx, r.db)

	var counter model.NumberCounter
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&counter, "key = ?", key).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
		counter = model.NumberCounter{Key: key, Count: 1}
		if err := db.Create(&counter).Error; err != nil {
			return 0, err
		}
		return counter.Count, nil
	}

	counter.Count++
	if err := db.Save(&counter).Error; err != nil {
		return 0, err
	}
	return counter.Count, nil
}

// Get reads the current count without locking; 0 when the key has never been
// allocated from.
func (r *counterRepository) Get(ctx context.Context, key string) (int64, error) {
	var counter model.NumberCounter
	err := GetDB(ctx, r.db).First(&counter, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.Count, nil
}
