package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/fridge-planner/internal/planner/domain"
)

// RecordRepository stores the mirrored dishes and slots of every owner.
type RecordRepository interface {
	ListDishes(ctx context.Context, ownerID string) ([]domain.Dish, error)
	ListSlots(ctx context.Context, ownerID string) ([]domain.MealSlot, error)
	SaveDish(ctx context.Context, ownerID string, dish domain.Dish) error
	DeleteDish(ctx context.Context, ownerID, id string) error
	SaveSlot(ctx context.Context, ownerID string, slot domain.MealSlot) error
	DeleteSlot(ctx context.Context, ownerID, id string) error
}

// GormRecordRepository implements RecordRepository using GORM
type GormRecordRepository struct {
	db *gorm.DB
}

// NewGormRecordRepository creates a new GORM record repository
func NewGormRecordRepository(db *gorm.DB) *GormRecordRepository {
	return &GormRecordRepository{db: db}
}

// AutoMigrate creates or updates the planner tables
func (r *GormRecordRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&DishRecord{}, &SlotRecord{})
}

// ListDishes returns the owner's dishes in creation order
func (r *GormRecordRepository) ListDishes(ctx context.Context, ownerID string) ([]domain.Dish, error) {
	var records []DishRecord
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at, id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list dishes: %w", err)
	}

	dishes := make([]domain.Dish, len(records))
	for i, rec := range records {
		dishes[i] = rec.toDomain()
	}
	return dishes, nil
}

// ListSlots returns the owner's slots in creation order
func (r *GormRecordRepository) ListSlots(ctx context.Context, ownerID string) ([]domain.MealSlot, error) {
	var records []SlotRecord
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at, id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}

	slots := make([]domain.MealSlot, len(records))
	for i, rec := range records {
		slots[i] = rec.toDomain()
	}
	return slots, nil
}

// SaveDish upserts the whole dish record
func (r *GormRecordRepository) SaveDish(ctx context.Context, ownerID string, dish domain.Dish) error {
	rec := dishRecord(ownerID, dish)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "quantity", "default_yield", "tags", "color", "updated_at"}),
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save dish: %w", err)
	}
	return nil
}

// DeleteDish removes a dish record; a missing record is not an error
func (r *GormRecordRepository) DeleteDish(ctx context.Context, ownerID, id string) error {
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&DishRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete dish: %w", err)
	}
	return nil
}

// SaveSlot upserts the whole slot record
func (r *GormRecordRepository) SaveSlot(ctx context.Context, ownerID string, slot domain.MealSlot) error {
	rec := slotRecord(ownerID, slot)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"date", "meal", "dish_id", "type", "dish_name", "dish_color", "updated_at"}),
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save slot: %w", err)
	}
	return nil
}

// DeleteSlot removes a slot record; a missing record is not an error
func (r *GormRecordRepository) DeleteSlot(ctx context.Context, ownerID, id string) error {
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&SlotRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	return nil
}
