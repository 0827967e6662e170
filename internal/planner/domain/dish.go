package domain

// Dish is a prepared dish kept in the fridge, with the number of
// ready-to-eat portions left.
type Dish struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Quantity     int      `json:"quantity"`
	DefaultYield int      `json:"defaultYield,omitempty"`
	Tags         []string `json:"tags"`
	Color        Color    `json:"color,omitempty"`
}

// DishPatch carries the fields to merge into an existing dish. Nil fields
// are left untouched.
type DishPatch struct {
	Name         *string   `json:"name,omitempty"`
	Quantity     *int      `json:"quantity,omitempty"`
	DefaultYield *int      `json:"defaultYield,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
	Color        *Color    `json:"color,omitempty"`
}

// RestockQuantity is the portion count restored by a restock.
func (d Dish) RestockQuantity() int {
	if d.DefaultYield > 0 {
		return d.DefaultYield
	}
	return 1
}

// InStock reports whether at least one portion can be scheduled.
func (d Dish) InStock() bool {
	return d.Quantity > 0
}

// Clone returns a copy of d that shares no memory with it.
func (d Dish) Clone() Dish {
	c := d
	c.Tags = make([]string, len(d.Tags))
	copy(c.Tags, d.Tags)
	return c
}

// Apply returns d with the patch merged in. The id never changes.
func (p DishPatch) Apply(d Dish) Dish {
	merged := d.Clone()
	if p.Name != nil {
		merged.Name = *p.Name
	}
	if p.Quantity != nil {
		merged.Quantity = *p.Quantity
	}
	if p.DefaultYield != nil {
		merged.DefaultYield = *p.DefaultYield
	}
	if p.Tags != nil {
		merged.Tags = append([]string{}, (*p.Tags)...)
	}
	if p.Color != nil {
		merged.Color = *p.Color
	}
	return merged
}

// Empty reports whether the patch changes nothing.
func (p DishPatch) Empty() bool {
	return p.Name == nil && p.Quantity == nil && p.DefaultYield == nil && p.Tags == nil && p.Color == nil
}

// CloneDishes deep-copies a dish collection.
func CloneDishes(dishes []Dish) []Dish {
	out := make([]Dish, len(dishes))
	for i, d := range dishes {
		out[i] = d.Clone()
	}
	return out
}
