package repository

import (
	"time"

	"github.com/tair/fridge-planner/internal/planner/domain"
)

// DishRecord is the stored form of a dish, scoped to its owner.
type DishRecord struct {
	OwnerID      string    `gorm:"primaryKey;size:128"`
	ID           string    `gorm:"primaryKey;size:128"`
	Name         string    `gorm:"not null"`
	Quantity     int       `gorm:"not null"`
	DefaultYield int       `gorm:"not null"`
	Tags         []string  `gorm:"type:text;serializer:json"`
	Color        string    `gorm:"size:32"`
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

// TableName specifies the table name
func (DishRecord) TableName() string {
	return "planner_dishes"
}

// SlotRecord is the stored form of a meal slot, scoped to its owner.
type SlotRecord struct {
	OwnerID   string    `gorm:"primaryKey;size:128"`
	ID        string    `gorm:"primaryKey;size:128"`
	Date      string    `gorm:"size:10;not null;index:idx_planner_slots_pair"`
	Meal      string    `gorm:"size:16;not null;index:idx_planner_slots_pair"`
	DishID    string    `gorm:"size:128;not null;index"`
	Type      string    `gorm:"size:16;not null"`
	DishName  string    `gorm:"not null"`
	DishColor string    `gorm:"size:32"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName specifies the table name
func (SlotRecord) TableName() string {
	return "planner_slots"
}

func dishRecord(ownerID string, d domain.Dish) DishRecord {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return DishRecord{
		OwnerID:      ownerID,
		ID:           d.ID,
		Name:         d.Name,
		Quantity:     d.Quantity,
		DefaultYield: d.DefaultYield,
		Tags:         tags,
		Color:        string(d.Color),
	}
}

func (r DishRecord) toDomain() domain.Dish {
	return domain.Dish{
		ID:           r.ID,
		Name:         r.Name,
		Quantity:     r.Quantity,
		DefaultYield: r.DefaultYield,
		Tags:         r.Tags,
		Color:        domain.Color(r.Color),
	}.Clone()
}

func slotRecord(ownerID string, s domain.MealSlot) SlotRecord {
	return SlotRecord{
		OwnerID:   ownerID,
		ID:        s.ID,
		Date:      string(s.Date),
		Meal:      string(s.Meal),
		DishID:    s.DishID,
		Type:      string(s.Type),
		DishName:  s.DishName,
		DishColor: string(s.DishColor),
	}
}

func (r SlotRecord) toDomain() domain.MealSlot {
	return domain.MealSlot{
		ID:        r.ID,
		Date:      domain.Date(r.Date),
		Meal:      domain.MealPeriod(r.Meal),
		DishID:    r.DishID,
		Type:      domain.SlotType(r.Type),
		DishName:  r.DishName,
		DishColor: domain.Color(r.DishColor),
	}
}
