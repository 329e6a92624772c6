// Package store persists network service records. A record is always written
// whole, keyed by the network service name.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/amsen20/leovnf/internal/config"
	"github.com/amsen20/leovnf/internal/model"
	"github.com/amsen20/leovnf/logging"
)

var log = logging.Get()

// ErrNoRecord is returned by Get for an unknown network service name.
var ErrNoRecord = errors.New("no such network service")

type Store interface {
	Get(ctx context.Context, name string) (*model.NetworkService, error)
	List(ctx context.Context) ([]string, error)
	Put(ctx context.Context, ns *model.NetworkService) error
}

// New builds the store named by cfg.Kind.
func New(cfg config.StoreConfig) (Store, error) {
	switch cfg.Kind {
	case "file":
		return NewFileStore(cfg.Path), nil
	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.RedisDB), nil
	default:
		return nil, fmt.Errorf("%w: store kind %q is not recognized", model.ErrConfig, cfg.Kind)
	}
}

// Add builds a new network service from draft and writes it. Nothing is
// written when the draft does not validate.
func Add(ctx context.Context, s Store, name string, draft *model.NSDraft) (*model.NetworkService, error) {
	ns, err := draft.Build(name)
	if err != nil {
		log.Err(err).Str("ns", name).Msg("rejected network service draft")
		return nil, err
	}

	if err := s.Put(ctx, ns); err != nil {
		return nil, fmt.Errorf("could not store %s: %w", name, err)
	}

	return ns, nil
}
