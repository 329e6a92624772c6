// Package cache holds the resource snapshots observed during one planning
// pass. The baseline Cache queries each node at most once; an Overlay layers
// the assignments of a single plan on top of it without touching the baseline.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/amsen20/leovnf/internal/connector"
	"github.com/amsen20/leovnf/internal/model"
	"github.com/amsen20/leovnf/logging"
)

var log = logging.Get()

type entry struct {
	once     sync.Once
	snapshot model.ResourceSnapshot
	err      error
}

// Cache is the externally observed baseline at pass start. It is safe for
// concurrent use; concurrent first accesses to one node share a single query.
type Cache struct {
	provider connector.ResourceProvider

	mutex   sync.Mutex
	entries map[string]*entry
	queried int64

	// OnFailure, when set, is called once per node whose query failed.
	OnFailure func(node string, err error)
}

func New(provider connector.ResourceProvider) *Cache {
	return &Cache{
		provider: provider,
		entries:  make(map[string]*entry),
	}
}

func (c *Cache) entryOf(node string) *entry {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, ok := c.entries[node]
	if !ok {
		e = &entry{}
		c.entries[node] = e
	}

	return e
}

// Get returns the baseline snapshot of node, querying the provider on first
// access. Failures are memoised too and always wrap connector.ErrUnknown.
func (c *Cache) Get(ctx context.Context, node string) (model.ResourceSnapshot, error) {
	e := c.entryOf(node)
	e.once.Do(func() {
		atomic.AddInt64(&c.queried, 1)

		snapshot, err := c.provider.Query(ctx, node)
		if err != nil {
			if !errors.Is(err, connector.ErrUnknown) {
				err = fmt.Errorf("%w: %v", connector.ErrUnknown, err)
			}
			log.Warn().Err(err).Msgf("resources of node %s are unknown", node)
			if c.OnFailure != nil {
				c.OnFailure(node, err)
			}
		}

		e.snapshot = snapshot
		e.err = err
	})

	return e.snapshot, e.err
}

// Queried is the number of provider calls made so far.
func (c *Cache) Queried() int {
	return int(atomic.LoadInt64(&c.queried))
}

// Overlay tracks the usage a single candidate plan adds on top of the
// baseline. It is owned by one plan evaluation and not safe for concurrent use.
type Overlay struct {
	base  *Cache
	delta map[string]model.ResourceVector
}

func NewOverlay(base *Cache) *Overlay {
	return &Overlay{
		base:  base,
		delta: make(map[string]model.ResourceVector),
	}
}

// Resolve returns the baseline snapshot of node with the plan's committed
// demand added to used_now.
func (o *Overlay) Resolve(ctx context.Context, node string) (model.ResourceSnapshot, error) {
	snapshot, err := o.base.Get(ctx, node)
	if err != nil {
		return model.ResourceSnapshot{}, err
	}

	if d, ok := o.delta[node]; ok {
		snapshot.UsedNow = snapshot.UsedNow.Add(d)
	}

	return snapshot, nil
}

func (o *Overlay) Commit(node string, demand model.ResourceVector) {
	o.delta[node] = o.delta[node].Add(demand)
}

// Delta is the total demand committed on node by this overlay.
func (o *Overlay) Delta(node string) model.ResourceVector {
	return o.delta[node]
}
