package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/amsen20/leovnf/internal/config"
	"github.com/amsen20/leovnf/internal/connector"
	"github.com/amsen20/leovnf/internal/metrics"
	"github.com/amsen20/leovnf/internal/model"
	"github.com/amsen20/leovnf/internal/model/testing_tool"
	"github.com/amsen20/leovnf/internal/store"
	"github.com/amsen20/leovnf/sim"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// one in the morning, the first scenario frame
var planningInstant = time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)

var vnfs = []*testing_tool.VNFDesc{
	{Name: "fw", Cpu: 1, Memory: 1, Storage: 10},
	{Name: "cache", Cpu: 2, Memory: 2, Storage: 20},
	{Name: "huge", Cpu: 64, Memory: 1, Storage: 1},
}

type fixture struct {
	scheduler *Scheduler
	store     *store.FileStore
	metrics   *metrics.Metrics
	builder   *testing_tool.Builder
}

func setUp(t *testing.T) *fixture {
	scenario, err := sim.Load(filepath.Join("..", "..", "sim", "scenario.json"))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.PassTimeoutMs = 5000
	cfg.Migration.Rounds = 3

	builder := testing_tool.New()
	builder.ImportVNFs(vnfs)

	fs := store.NewFileStore(filepath.Join(t.TempDir(), "ns_vnf_config.json"))
	require.NoError(t, fs.Put(context.Background(), builder.GetNS("video", "fw", "cache")))
	require.NoError(t, fs.Put(context.Background(), builder.GetNS("bulk", "fw", "huge")))

	m := metrics.New(prometheus.NewRegistry())
	s := New(&cfg, scenario, scenario, fs, m)
	s.Now = func() time.Time { return planningInstant }

	return &fixture{scheduler: s, store: fs, metrics: m, builder: builder}
}

func (f *fixture) stored(t *testing.T, name string) *model.NetworkService {
	ns, err := f.store.Get(context.Background(), name)
	require.NoError(t, err)

	return ns
}

func TestCandidatePaths(t *testing.T) {
	f := setUp(t)
	ns := f.stored(t, "video")

	paths, err := f.scheduler.CandidatePaths(context.Background(), ns, 3600)
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	assert.Equal(t, []string{"5", "6", "4"}, paths[0])
	seen := make(map[string]bool)
	for i, path := range paths {
		assert.Contains(t, []string{"1", "5"}, path[0])
		assert.Equal(t, "4", path[len(path)-1])
		if i > 0 {
			assert.LessOrEqual(t, len(paths[i-1]), len(path))
		}

		key := filepath.Join(path...)
		assert.False(t, seen[key], "duplicate path %v", path)
		seen[key] = true
	}
}

func TestCandidatePathsWithoutTopology(t *testing.T) {
	f := setUp(t)
	f.scheduler.Topology = &testing_tool.ScriptedTopology{Failing: map[int]bool{0: true}}

	_, err := f.scheduler.CandidatePaths(context.Background(), f.stored(t, "video"), 3600)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ProviderFailures.WithLabelValues("topology")))
}

func TestPlace(t *testing.T) {
	t.Run("DryRun", func(t *testing.T) {
		f := setUp(t)

		outcome, err := f.scheduler.Place(context.Background(), "video", false)
		require.NoError(t, err)
		assert.NotEmpty(t, outcome.PassId)
		assert.False(t, outcome.Committed)
		assert.Equal(t, []string{"5", "6", "4"}, outcome.Plan.Path)
		testing_tool.ExpectForward(outcome.Plan)
		testing_tool.Expect(outcome.NS, map[string]string{"fw": "5", "cache": "5"}, []string{"5", "5", "5", "4"})

		assert.False(t, f.stored(t, "video").IsPlaced())
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Passes.WithLabelValues(PLACEMENT, "success")))
	})

	t.Run("Commit", func(t *testing.T) {
		f := setUp(t)

		outcome, err := f.scheduler.Place(context.Background(), "video", true)
		require.NoError(t, err)
		assert.True(t, outcome.Committed)

		testing_tool.Expect(f.stored(t, "video"), map[string]string{"fw": "5", "cache": "5"}, []string{"5", "5", "5", "4"})
	})

	t.Run("NothingFits", func(t *testing.T) {
		f := setUp(t)

		outcome, err := f.scheduler.Place(context.Background(), "bulk", true)
		assert.True(t, errors.Is(err, model.ErrNotFound))
		assert.Nil(t, outcome.NS)
		assert.False(t, outcome.Committed)
		assert.NotEmpty(t, outcome.Report.Filter(model.REJECT_CAPACITY))

		assert.False(t, f.stored(t, "bulk").IsPlaced())
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Passes.WithLabelValues(PLACEMENT, "not_found")))
	})

	t.Run("UnknownNS", func(t *testing.T) {
		f := setUp(t)

		_, err := f.scheduler.Place(context.Background(), "missing", true)
		assert.True(t, errors.Is(err, store.ErrNoRecord))
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Passes.WithLabelValues(PLACEMENT, "config_error")))
	})

	t.Run("Timeout", func(t *testing.T) {
		f := setUp(t)
		f.scheduler.Config.PassTimeoutMs = 20
		f.scheduler.Resources = connector.ResourceProviderFunc(func(ctx context.Context, node string) (model.ResourceSnapshot, error) {
			<-ctx.Done()
			return model.ResourceSnapshot{}, ctx.Err()
		})

		outcome, err := f.scheduler.Place(context.Background(), "video", true)
		assert.True(t, errors.Is(err, model.ErrAborted))
		assert.False(t, outcome.Committed)
		assert.False(t, f.stored(t, "video").IsPlaced())
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Passes.WithLabelValues(PLACEMENT, "aborted")))
	})
}

func TestMigrate(t *testing.T) {
	t.Run("Commit", func(t *testing.T) {
		f := setUp(t)
		require.NoError(t, f.store.Put(context.Background(),
			f.builder.GetPlacedNS("video", []string{"5", "6", "3", "4"}, "fw", "cache")))

		outcome, err := f.scheduler.Migrate(context.Background(), "video", "cache", true)
		require.NoError(t, err)
		assert.True(t, outcome.Committed)

		decision := outcome.Decision
		assert.Equal(t, "3", decision.From)
		assert.Equal(t, "5", decision.Target)
		assert.Equal(t, 3, decision.Rounds)

		// node 6 has one free core, cache needs two
		rejected := false
		for _, entry := range outcome.Report.ForNode("6") {
			rejected = rejected || entry.Reason == model.REJECT_CAPACITY
		}
		assert.True(t, rejected)

		testing_tool.Expect(f.stored(t, "video"), map[string]string{"fw": "6", "cache": "5"}, []string{"5", "6", "5", "4"})
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Passes.WithLabelValues(MIGRATION, "success")))
	})

	t.Run("NotPlaced", func(t *testing.T) {
		f := setUp(t)

		_, err := f.scheduler.Migrate(context.Background(), "video", "cache", true)
		assert.True(t, errors.Is(err, model.ErrConfig))
	})

	t.Run("UnknownVNF", func(t *testing.T) {
		f := setUp(t)
		require.NoError(t, f.store.Put(context.Background(),
			f.builder.GetPlacedNS("video", []string{"5", "5", "5", "4"}, "fw", "cache")))

		_, err := f.scheduler.Migrate(context.Background(), "video", "dpi", true)
		assert.True(t, errors.Is(err, model.ErrConfig))
	})
}

func TestResource(t *testing.T) {
	f := setUp(t)

	snapshot, err := f.scheduler.Resource(context.Background(), "4")
	require.NoError(t, err)
	assert.Equal(t, int64(32), snapshot.Total.CPU)

	_, err = f.scheduler.Resource(context.Background(), "99")
	assert.True(t, errors.Is(err, connector.ErrUnknown))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ProviderFailures.WithLabelValues("resource")))
}

func TestOutcomeLabel(t *testing.T) {
	assert.Equal(t, "success", OutcomeLabel(nil))
	assert.Equal(t, "aborted", OutcomeLabel(context.DeadlineExceeded))
	assert.Equal(t, "not_found", OutcomeLabel(model.ErrNotFound))
	assert.Equal(t, "config_error", OutcomeLabel(store.ErrNoRecord))
	assert.Equal(t, "error", OutcomeLabel(errors.New("boom")))
}
