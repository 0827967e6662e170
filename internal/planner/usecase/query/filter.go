package query

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tair/fridge-planner/internal/planner/domain"
)

// dishEnv is what a filter expression sees of a dish.
type dishEnv struct {
	Name         string   `expr:"name"`
	Quantity     int      `expr:"quantity"`
	DefaultYield int      `expr:"defaultYield"`
	Tags         []string `expr:"tags"`
	Color        string   `expr:"color"`
}

func envOf(d domain.Dish) dishEnv {
	return dishEnv{
		Name:         d.Name,
		Quantity:     d.Quantity,
		DefaultYield: d.DefaultYield,
		Tags:         d.Tags,
		Color:        string(d.Color.Base()),
	}
}

// DefaultFilterCacheSize bounds how many compiled filters are kept.
const DefaultFilterCacheSize = 256

// FilterCache keeps the most recently used compiled dish filters by source
// text. Filters that fail to compile are never cached.
type FilterCache struct {
	programs *lru.Cache[string, *vm.Program]
}

// NewFilterCache creates an empty cache of DefaultFilterCacheSize entries.
func NewFilterCache() *FilterCache {
	return NewFilterCacheSize(DefaultFilterCacheSize)
}

// NewFilterCacheSize creates an empty cache holding at most size programs.
func NewFilterCacheSize(size int) *FilterCache {
	if size <= 0 {
		size = DefaultFilterCacheSize
	}
	programs, err := lru.New[string, *vm.Program](size)
	if err != nil {
		panic(fmt.Sprintf("filter cache: %v", err))
	}
	return &FilterCache{programs: programs}
}

// Compile returns the program for source, compiling it on first use.
func (c *FilterCache) Compile(source string) (*vm.Program, error) {
	if p, ok := c.programs.Get(source); ok {
		return p, nil
	}
	p, err := expr.Compile(source, expr.Env(dishEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFilter, err)
	}
	c.programs.Add(source, p)
	return p, nil
}

// Len reports how many compiled programs are cached.
func (c *FilterCache) Len() int {
	return c.programs.Len()
}

func matches(p *vm.Program, d domain.Dish) (bool, error) {
	out, err := expr.Run(p, envOf(d))
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrInvalidFilter, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}
