package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amsen20/leovnf/alg"
	"github.com/amsen20/leovnf/internal/cache"
	"github.com/amsen20/leovnf/internal/config"
	"github.com/amsen20/leovnf/internal/connector"
	"github.com/amsen20/leovnf/internal/metrics"
	"github.com/amsen20/leovnf/internal/model"
	"github.com/amsen20/leovnf/internal/store"
	"github.com/amsen20/leovnf/internal/topology"
	"github.com/amsen20/leovnf/logging"
	"github.com/google/uuid"
)

var log = logging.Get()

const (
	PLACEMENT = "placement"
	MIGRATION = "migration"
)

// Scheduler runs planning passes for the network services kept in a store.
// Every pass starts from a fresh resource baseline and is bounded by the
// configured pass timeout. Nothing is written unless the pass succeeds and
// the caller asked for a commit.
type Scheduler struct {
	Config    *config.GeneralConfig
	Resources connector.ResourceProvider
	Topology  connector.TopologyProvider
	Store     store.Store
	Metrics   *metrics.Metrics

	// Now is the instant placements are planned for and migration windows
	// start at.
	Now func() time.Time

	nsLocks sync.Map
}

// Outcome is the result of one pass. NS is the updated record, committed or
// not; it is nil when the pass failed.
type Outcome struct {
	PassId     string                   `json:"pass_id" yaml:"pass_id"`
	Operation  string                   `json:"operation" yaml:"operation"`
	NS         *model.NetworkService    `json:"ns,omitempty" yaml:"-"`
	Plan       *model.PlacementPlan     `json:"plan,omitempty" yaml:"plan,omitempty"`
	Decision   *model.MigrationDecision `json:"decision,omitempty" yaml:"decision,omitempty"`
	Report     *model.Report            `json:"report" yaml:"report"`
	Committed  bool                     `json:"committed" yaml:"committed"`
	Statistics map[string]int           `json:"statistics" yaml:"statistics"`
}

func New(
	cfg *config.GeneralConfig,
	resources connector.ResourceProvider,
	topologyProvider connector.TopologyProvider,
	st store.Store,
	m *metrics.Metrics,
) *Scheduler {
	return &Scheduler{
		Config:    cfg,
		Resources: resources,
		Topology:  topologyProvider,
		Store:     st,
		Metrics:   m,
		Now:       time.Now,
	}
}

// lockNS serialises passes that may commit the same network service.
func (scheduler *Scheduler) lockNS(name string) func() {
	value, _ := scheduler.nsLocks.LoadOrStore(name, &sync.Mutex{})
	mutex := value.(*sync.Mutex)
	mutex.Lock()

	return mutex.Unlock
}

func (scheduler *Scheduler) passContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := scheduler.Config.PassTimeout(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}

	return context.WithCancel(ctx)
}

func (scheduler *Scheduler) newBaseline() *cache.Cache {
	baseline := cache.New(scheduler.Resources)
	baseline.OnFailure = func(node string, err error) {
		if scheduler.Metrics != nil {
			scheduler.Metrics.ProviderFailure("resource")
		}
	}

	return baseline
}

// Place plans a deployment path for the named network service. The topology
// is sampled at Now.
func (scheduler *Scheduler) Place(ctx context.Context, nsName string, commit bool) (*Outcome, error) {
	outcome := &Outcome{PassId: uuid.NewString(), Operation: PLACEMENT, Report: model.NewReport()}
	plog := logging.ForPass(outcome.PassId, nsName)
	start := time.Now()

	if commit {
		defer scheduler.lockNS(nsName)()
	}

	err := func() error {
		passCtx, cancel := scheduler.passContext(ctx)
		defer cancel()

		ns, err := scheduler.Store.Get(passCtx, nsName)
		if err != nil {
			return err
		}
		work := ns.Clone()

		second := topology.SecondOfDay(scheduler.Now())
		paths, err := scheduler.CandidatePaths(passCtx, work, second)
		if err != nil {
			return aborted(passCtx, err)
		}
		plog.Info().Msgf("%d candidate paths at second %d", len(paths), second)

		solver := alg.NewSolver(scheduler.Config.Placement, scheduler.newBaseline())
		plan, report, err := solver.Place(passCtx, work, paths)
		outcome.Report.Merge(report)
		outcome.Statistics = solver.Tally.Snapshot()
		plog.Debug().Msg(solver.Tally.Display())
		if err != nil {
			return aborted(passCtx, err)
		}

		outcome.NS = work
		outcome.Plan = plan
		if commit {
			if err := scheduler.Store.Put(ctx, work); err != nil {
				return err
			}
			outcome.Committed = true
		}

		return nil
	}()

	scheduler.observe(PLACEMENT, err, time.Since(start))
	if err != nil {
		plog.Err(err).Msg("placement failed")

		return outcome, err
	}

	plog.Info().Msgf("placed on %v, committed: %t", outcome.NS.Path, outcome.Committed)

	return outcome, nil
}

// Migrate looks for a stable new host for one VNF of a placed network service.
func (scheduler *Scheduler) Migrate(ctx context.Context, nsName string, vnfName string, commit bool) (*Outcome, error) {
	outcome := &Outcome{PassId: uuid.NewString(), Operation: MIGRATION, Report: model.NewReport()}
	plog := logging.ForPass(outcome.PassId, nsName)
	start := time.Now()

	if commit {
		defer scheduler.lockNS(nsName)()
	}

	err := func() error {
		passCtx, cancel := scheduler.passContext(ctx)
		defer cancel()

		ns, err := scheduler.Store.Get(passCtx, nsName)
		if err != nil {
			return err
		}
		work := ns.Clone()

		if err := work.Validate(); err != nil {
			return err
		}
		if !work.IsPlaced() {
			return fmt.Errorf("%w: network service %s is not placed yet", model.ErrConfig, nsName)
		}
		target, ok := work.FindVNF(vnfName)
		if !ok {
			return fmt.Errorf("%w: network service %s has no vnf %s", model.ErrConfig, nsName, vnfName)
		}

		analyzer := alg.NewAnalyzer(scheduler.Config.Migration, scheduler.Topology, scheduler.newBaseline())
		analyzer.Now = scheduler.Now
		decision, report, err := analyzer.Migrate(passCtx, work, target)
		outcome.Report.Merge(report)
		outcome.Statistics = analyzer.Tally.Snapshot()
		plog.Debug().Msg(analyzer.Tally.Display())
		if err != nil {
			return aborted(passCtx, err)
		}

		if err := work.ApplyMigration(decision); err != nil {
			return err
		}
		outcome.NS = work
		outcome.Decision = decision
		if commit {
			if err := scheduler.Store.Put(ctx, work); err != nil {
				return err
			}
			outcome.Committed = true
		}

		return nil
	}()

	scheduler.observe(MIGRATION, err, time.Since(start))
	if err != nil {
		plog.Err(err).Msgf("migration of %s failed", vnfName)

		return outcome, err
	}

	plog.Info().Msgf("%s goes from %s to %s, committed: %t", vnfName, outcome.Decision.From, outcome.Decision.Target, outcome.Committed)

	return outcome, nil
}

// CandidatePaths lists up to k shortest paths for every pair of satellites
// covering the source and destination stations at second, shortest first.
func (scheduler *Scheduler) CandidatePaths(ctx context.Context, ns *model.NetworkService, second int) ([][]string, error) {
	snapshot, err := scheduler.Topology.GraphAt(ctx, connector.TopologyRequest{SecondOfDay: second})
	if err != nil {
		scheduler.providerFailure("topology")
		return nil, fmt.Errorf("%w: topology at second %d is unavailable: %v", model.ErrNotFound, second, err)
	}
	graph := topology.NewGraph(snapshot)

	sources, err := scheduler.Topology.CoverSetAt(ctx, connector.TopologyRequest{SecondOfDay: second, Station: &ns.Source})
	if err != nil {
		scheduler.providerFailure("topology")
		return nil, fmt.Errorf("%w: source cover set of %s is unavailable: %v", model.ErrNotFound, ns.Name, err)
	}
	destinations, err := scheduler.Topology.CoverSetAt(ctx, connector.TopologyRequest{SecondOfDay: second, Station: &ns.Destination})
	if err != nil {
		scheduler.providerFailure("topology")
		return nil, fmt.Errorf("%w: destination cover set of %s is unavailable: %v", model.ErrNotFound, ns.Name, err)
	}

	var paths [][]string
	for _, src := range sources {
		for _, dst := range destinations {
			paths = append(paths, graph.KShortestPaths(src, dst, scheduler.Config.Placement.KPaths)...)
		}
	}
	paths = topology.DedupePaths(paths)
	topology.SortByHops(paths)
	log.Debug().Msgf("%s: %d x %d cover pairs give %d paths", ns.Name, len(sources), len(destinations), len(paths))

	return paths, nil
}

// Resource queries one node's snapshot directly, without any cache.
func (scheduler *Scheduler) Resource(ctx context.Context, node string) (model.ResourceSnapshot, error) {
	passCtx, cancel := scheduler.passContext(ctx)
	defer cancel()

	snapshot, err := scheduler.Resources.Query(passCtx, node)
	if err != nil {
		scheduler.providerFailure("resource")
		return model.ResourceSnapshot{}, aborted(passCtx, err)
	}

	return snapshot, nil
}

func (scheduler *Scheduler) ListNS(ctx context.Context) ([]string, error) {
	return scheduler.Store.List(ctx)
}

func (scheduler *Scheduler) GetNS(ctx context.Context, name string) (*model.NetworkService, error) {
	return scheduler.Store.Get(ctx, name)
}

// AddNS writes a new unplaced network service, replacing any record of the
// same name.
func (scheduler *Scheduler) AddNS(ctx context.Context, name string, draft *model.NSDraft) (*model.NetworkService, error) {
	defer scheduler.lockNS(name)()

	return store.Add(ctx, scheduler.Store, name, draft)
}

func (scheduler *Scheduler) providerFailure(provider string) {
	if scheduler.Metrics != nil {
		scheduler.Metrics.ProviderFailure(provider)
	}
}

func (scheduler *Scheduler) observe(operation string, err error, elapsed time.Duration) {
	if scheduler.Metrics != nil {
		scheduler.Metrics.ObservePass(operation, OutcomeLabel(err), elapsed)
	}
}

// aborted turns any failure after the pass deadline into ErrAborted, so a
// late partial answer is never mistaken for a decision.
func aborted(ctx context.Context, err error) error {
	if errors.Is(err, model.ErrAborted) || ctx.Err() == nil {
		return err
	}

	return fmt.Errorf("%w: %v", model.ErrAborted, err)
}

func OutcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case alg.IsAborted(err):
		return "aborted"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrConfig), errors.Is(err, store.ErrNoRecord):
		return "config_error"
	default:
		return "error"
	}
}
