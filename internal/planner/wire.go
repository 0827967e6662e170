//go:build wireinject
// +build wireinject

package planner

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/fridge-planner/internal/config"
	httpDelivery "github.com/tair/fridge-planner/internal/planner/delivery/http"
	"github.com/tair/fridge-planner/internal/planner/store"
	"github.com/tair/fridge-planner/internal/planner/usecase/command"
	"github.com/tair/fridge-planner/internal/planner/usecase/query"
)

// Wire sets
var InfrastructureSet = wire.NewSet(
	ProvideBackend,
	ProvideRegistry,
	wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
	wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
	ProvideStoreMetrics,
	ProvideSession,
	ProvideStore,
	wire.Bind(new(command.Planner), new(*store.Store)),
	wire.Bind(new(query.DishReader), new(*store.Store)),
	wire.Bind(new(query.PlanReader), new(*store.Store)),
)

var CommandHandlerSet = wire.NewSet(
	command.NewCreateDishHandler,
	command.NewUpdateDishHandler,
	command.NewDeleteDishHandler,
	command.NewRestockDishHandler,
	ProvideAssignSlotHandler,
	command.NewUnassignSlotHandler,
	wire.Struct(new(httpDelivery.Commands), "*"),
)

var QueryHandlerSet = wire.NewSet(
	ProvideResolver,
	query.NewFilterCache,
	query.NewListDishesHandler,
	query.NewGetPlanHandler,
	wire.Struct(new(httpDelivery.Queries), "*"),
)

var DeliverySet = wire.NewSet(
	ProvideHealthCheck,
	ProvideRateLimiter,
	ProvideMiddlewareConfig,
	httpDelivery.NewPlannerHandler,
	httpDelivery.NewRouter,
)

// InitializeApp wires a planner instance from its configuration
func InitializeApp(cfg *config.Config) (*App, func(), error) {
	wire.Build(
		InfrastructureSet,
		CommandHandlerSet,
		QueryHandlerSet,
		DeliverySet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
