package connector

import (
	"context"
	"errors"

	"github.com/amsen20/leovnf/internal/model"
	"github.com/amsen20/leovnf/logging"
)

// ErrUnknown wraps every resource query failure: timeouts, parse failures and
// nodes the provider does not know. Callers treat the node as infeasible.
var ErrUnknown = errors.New("node resources unknown")

// ResourceProvider returns the resource snapshot of one node.
type ResourceProvider interface {
	Query(ctx context.Context, node string) (model.ResourceSnapshot, error)
}

// TopologyRequest carries every parameter of a topology query. Station is only
// used by cover set queries.
type TopologyRequest struct {
	SecondOfDay int
	Station     *model.Coordinates
}

// TopologyProvider answers connectivity questions for one instant of the day.
type TopologyProvider interface {
	GraphAt(ctx context.Context, req TopologyRequest) (model.TopologySnapshot, error)
	CoverSetAt(ctx context.Context, req TopologyRequest) ([]string, error)
}

// ResourceProviderFunc adapts a function to ResourceProvider.
type ResourceProviderFunc func(ctx context.Context, node string) (model.ResourceSnapshot, error)

func (f ResourceProviderFunc) Query(ctx context.Context, node string) (model.ResourceSnapshot, error) {
	return f(ctx, node)
}

var log = logging.Get()
