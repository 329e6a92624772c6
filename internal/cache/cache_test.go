package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/amsen20/leovnf/internal/connector"
	"github.com/amsen20/leovnf/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingProvider(calls *sync.Map) connector.ResourceProvider {
	return connector.ResourceProviderFunc(func(ctx context.Context, node string) (model.ResourceSnapshot, error) {
		v, _ := calls.LoadOrStore(node, new(int))
		*(v.(*int))++

		if node == "broken" {
			return model.ResourceSnapshot{}, fmt.Errorf("no such host")
		}
		return model.ResourceSnapshot{
			Hostname: "h" + node,
			Total:    model.ResourceVector{CPU: 8, MemoryMB: 8192, DiskGB: 100},
			UsedNow:  model.ResourceVector{CPU: 2, MemoryMB: 1024, DiskGB: 10},
		}, nil
	})
}

func TestCacheQueriesOnce(t *testing.T) {
	calls := &sync.Map{}
	c := New(countingProvider(calls))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(ctx, "1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	first, err := c.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "h1", first.Hostname)
	assert.Equal(t, 1, c.Queried())

	v, _ := calls.Load("1")
	assert.Equal(t, 1, *(v.(*int)))
}

func TestCacheMemoisesFailures(t *testing.T) {
	calls := &sync.Map{}
	c := New(countingProvider(calls))
	var failed []string
	c.OnFailure = func(node string, err error) { failed = append(failed, node) }

	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), "broken")
		require.Error(t, err)
		assert.True(t, errors.Is(err, connector.ErrUnknown))
	}
	assert.Equal(t, 1, c.Queried())
	assert.Equal(t, []string{"broken"}, failed)
}

func TestOverlay(t *testing.T) {
	c := New(countingProvider(&sync.Map{}))
	ctx := context.Background()

	first := NewOverlay(c)
	second := NewOverlay(c)

	first.Commit("1", model.ResourceVector{CPU: 3, MemoryMB: 512})
	first.Commit("1", model.ResourceVector{CPU: 1})

	s, err := first.Resolve(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, model.ResourceVector{CPU: 6, MemoryMB: 1536, DiskGB: 10}, s.UsedNow)
	assert.Equal(t, model.ResourceVector{CPU: 4, MemoryMB: 512}, first.Delta("1"))

	untouched, err := second.Resolve(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, model.ResourceVector{CPU: 2, MemoryMB: 1024, DiskGB: 10}, untouched.UsedNow)

	baseline, err := c.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, untouched, baseline)

	_, err = first.Resolve(ctx, "broken")
	assert.True(t, errors.Is(err, connector.ErrUnknown))
}
