package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/g1food/api/internal/platform/config"
	"github.com/g1food/api/internal/repositories"
	"github.com/g1food/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
// Concrete implementations are assembled via dependency injection in
// NewContainer.
type Services struct {
	Cart        services.CartService
	Orders      services.OrderService
	Identifiers services.IdentifierService
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// ContainerDeps carries the externally constructed collaborators.
type ContainerDeps struct {
	Config config.Config
	// Registry provides persistence. Tests can supply in-memory fakes.
	Registry repositories.Registry
	// Events is optional; a nil publisher disables order lifecycle events.
	Events services.OrderEventPublisher
	// Logger receives structured service-level log events.
	Logger func(context.Context, string, map[string]any)
}

// NewContainer constructs the runtime dependencies.
func NewContainer(deps ContainerDeps) (*Container, error) {
	if deps.Registry == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       deps.Config,
		Repositories: deps.Registry,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(deps ContainerDeps) (Services, error) {
	var svc Services
	reg := deps.Registry

	identifierSvc, err := services.NewIdentifierService(services.IdentifierServiceDeps{
		Sequences: reg.Sequences(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build identifier service: %w", err)
	}
	svc.Identifiers = identifierSvc

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		CartLines:  reg.CartLines(),
		Products:   reg.Products(),
		UnitOfWork: reg,
		Clock:      time.Now,
		Logger:     deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:           reg.Orders(),
		OrderLines:       reg.OrderLines(),
		CartLines:        reg.CartLines(),
		Accounts:         reg.Accounts(),
		Products:         reg.Products(),
		Identifiers:      identifierSvc,
		UnitOfWork:       reg,
		Events:           deps.Events,
		Clock:            time.Now,
		Logger:           deps.Logger,
		DefaultShipperID: deps.Config.Workflow.DefaultShipperID,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	return svc, nil
}
