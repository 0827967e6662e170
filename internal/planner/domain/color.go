package domain

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/tair/fridge-planner/pkg/logger"
)

// Color is the stored color identity of a dish. Older records may carry a
// raw hex value instead of a palette base.
type Color string

// Palette bases
const (
	ColorOrange Color = "orange"
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorTeal   Color = "teal"
	ColorBlue   Color = "blue"
	ColorPurple Color = "purple"
)

// DefaultColor is used when a dish has no color or an unknown one.
const DefaultColor = ColorOrange

// Shade is a pair of display colors: Background is the primary color used
// behind the dish name, Stock the secondary one behind the stock counter.
type Shade struct {
	Background string `json:"bg"`
	Stock      string `json:"stock"`
}

// PaletteEntry holds the normal and out-of-stock variants of a base color.
type PaletteEntry struct {
	Normal Shade `json:"normal"`
	Grayed Shade `json:"grayed"`
}

// Palette lists the display entries for every base color.
var Palette = map[Color]PaletteEntry{
	ColorOrange: {
		Normal: Shade{Background: "#CD410C", Stock: "#611F11"},
		Grayed: Shade{Background: "#CC8164", Stock: "#5F423C"},
	},
	ColorGreen: {
		Normal: Shade{Background: "#289C6D", Stock: "#13593D"},
		Grayed: Shade{Background: "#71BF9F", Stock: "#446156"},
	},
	ColorYellow: {
		Normal: Shade{Background: "#DC9C06", Stock: "#634A10"},
		Grayed: Shade{Background: "#B69A59", Stock: "#5C523A"},
	},
	ColorTeal: {
		Normal: Shade{Background: "#17BA9D", Stock: "#0B6958"},
		Grayed: Shade{Background: "#60B5A6", Stock: "#3A5E57"},
	},
	ColorBlue: {
		Normal: Shade{Background: "#2175D3", Stock: "#13365D"},
		Grayed: Shade{Background: "#5A7FA9", Stock: "#3A4A5B"},
	},
	ColorPurple: {
		Normal: Shade{Background: "#9B289C", Stock: "#631464"},
		Grayed: Shade{Background: "#AB5EAC", Stock: "#5D3D5D"},
	},
}

// PaletteOrder is the display order of the base colors in pickers.
var PaletteOrder = []Color{ColorOrange, ColorGreen, ColorYellow, ColorTeal, ColorBlue, ColorPurple}

// legacyColors maps raw values stored before the palette existed.
var legacyColors = map[Color]Color{
	"#fbbf24": ColorYellow,
	"#34d399": ColorGreen,
	"#60a5fa": ColorBlue,
	"#f472b6": ColorPurple,
	"#fb923c": ColorOrange,
	"#10b981": ColorTeal,
}

// Valid reports whether c is one of the palette bases.
func (c Color) Valid() bool {
	_, ok := Palette[c]
	return ok
}

// Base resolves c to a palette base without logging anything.
func (c Color) Base() Color {
	base, _ := c.resolve()
	return base
}

// resolve returns the palette base and whether a migration happened.
func (c Color) resolve() (Color, bool) {
	if c == "" {
		return DefaultColor, false
	}
	if c.Valid() {
		return c, false
	}
	if base, ok := legacyColors[c]; ok {
		return base, true
	}
	return DefaultColor, true
}

// OrDefault returns c, or DefaultColor when c is empty.
func (c Color) OrDefault() Color {
	if c == "" {
		return DefaultColor
	}
	return c
}

// Resolver turns dish colors into display shades. It warns once per
// distinct legacy value it has to migrate.
type Resolver struct {
	log    zerolog.Logger
	mu     sync.Mutex
	warned map[Color]struct{}
}

// NewResolver creates a resolver that reports migrations to log.
func NewResolver(log zerolog.Logger) *Resolver {
	return &Resolver{
		log:    log,
		warned: make(map[Color]struct{}),
	}
}

var (
	defaultResolver     *Resolver
	defaultResolverOnce sync.Once
)

// DefaultResolver returns the process-wide resolver bound to logger.Logger.
func DefaultResolver() *Resolver {
	defaultResolverOnce.Do(func() {
		defaultResolver = NewResolver(logger.Component("color"))
	})
	return defaultResolver
}

// ResolveColors resolves the shade of a dish with the default resolver.
func ResolveColors(d Dish) Shade {
	return DefaultResolver().Resolve(d)
}

// Resolve returns the shade to display for d. It never fails: unknown
// colors fall back to orange, and an empty stock selects the grayed variant.
func (r *Resolver) Resolve(d Dish) Shade {
	base, migrated := d.Color.resolve()
	if migrated {
		r.advise(d, base)
	}

	entry := Palette[base]
	if d.Quantity == 0 {
		return entry.Grayed
	}
	return entry.Normal
}

func (r *Resolver) advise(d Dish, base Color) {
	r.mu.Lock()
	_, seen := r.warned[d.Color]
	if !seen {
		r.warned[d.Color] = struct{}{}
	}
	r.mu.Unlock()

	if seen {
		return
	}
	r.log.Warn().
		Str("dish_id", d.ID).
		Str("dish_name", d.Name).
		Str("stored_color", string(d.Color)).
		Str("resolved_color", string(base)).
		Msg("Migrating legacy dish color")
}
