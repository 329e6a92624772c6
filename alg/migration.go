package alg

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/amsen20/leovnf/internal/cache"
	"github.com/amsen20/leovnf/internal/config"
	"github.com/amsen20/leovnf/internal/connector"
	"github.com/amsen20/leovnf/internal/model"
	"github.com/amsen20/leovnf/internal/policy"
	"github.com/amsen20/leovnf/internal/topology"
	"github.com/amsen20/leovnf/internal/utils"
	"github.com/amsen20/leovnf/statistics"
	"github.com/emirpasic/gods/sets/treeset"
	"golang.org/x/sync/errgroup"
)

// Analyzer looks for a migration target that stays on some route between the
// VNF's chain neighbours for a whole observation window.
type Analyzer struct {
	Params   config.MigrationParams
	Topology connector.TopologyProvider
	Cache    *cache.Cache

	// Now is the start of the observation window.
	Now func() time.Time

	// Workers bounds concurrent path searches and resource queries inside a
	// round. Rounds always run in order.
	Workers int

	Tally *statistics.Tally
}

func NewAnalyzer(params config.MigrationParams, topologyProvider connector.TopologyProvider, baseline *cache.Cache) *Analyzer {
	return &Analyzer{
		Params:   params,
		Topology: topologyProvider,
		Cache:    baseline,
		Now:      time.Now,
		Workers:  runtime.NumCPU(),
		Tally:    statistics.New(),
	}
}

// Migrate runs PlanMigration with the configured rounds, round length and
// k paths.
func (a *Analyzer) Migrate(ctx context.Context, ns *model.NetworkService, target *model.VNFSpec) (*model.MigrationDecision, *model.Report, error) {
	return a.PlanMigration(ctx, ns, ns.Path, target, a.Params.Rounds, a.Params.RoundInterval(), a.Params.KPaths)
}

// PlanMigration samples the topology over rounds instants, keeps the nodes seen
// on a neighbour to neighbour path in every round and returns the lowest
// scoring one that fits the VNF on its baseline resources. A round without any
// path ends the analysis with ErrNotFound.
func (a *Analyzer) PlanMigration(
	ctx context.Context,
	ns *model.NetworkService,
	deploymentPath []string,
	target *model.VNFSpec,
	rounds int,
	roundInterval time.Duration,
	kPaths int,
) (*model.MigrationDecision, *model.Report, error) {
	report := model.NewReport()

	if err := checkMigrationArgs(ns, deploymentPath, target, rounds, roundInterval, kPaths); err != nil {
		return nil, report, err
	}

	base := a.Now()
	var stable *treeset.Set
	for r := 0; r < rounds; r++ {
		if err := ctx.Err(); err != nil {
			return nil, report, fmt.Errorf("%w: migration of %s before round %d: %v", model.ErrAborted, target.Name, r, err)
		}

		second := topology.SecondOfDay(topology.RoundInstant(base, r, roundInterval))
		roundNodes, paths, err := a.round(ctx, ns, deploymentPath, target, second, kPaths, report)
		if err != nil {
			return nil, report, err
		}

		if paths == 0 {
			record(report, a.Tally, model.ReportEntry{
				Subject: fmt.Sprintf("round %d", r),
				VNF:     target.Name,
				Reason:  model.REJECT_UNREACHABLE,
				Detail:  fmt.Sprintf("no path between the neighbours of %s at second %d", target.Name, second),
			})
			return nil, report, fmt.Errorf(
				"%w: round %d (second %d) has no path around %s",
				model.ErrNotFound, r, second, target.Name,
			)
		}

		if stable == nil {
			stable = roundNodes
		} else {
			for _, node := range utils.NodeSetValues(stable) {
				if roundNodes.Contains(node) {
					continue
				}
				stable.Remove(node)
				record(report, a.Tally, model.ReportEntry{
					Subject: fmt.Sprintf("round %d", r),
					Node:    node,
					VNF:     target.Name,
					Reason:  model.REJECT_UNSTABLE,
					Detail:  fmt.Sprintf("absent from every path at second %d", second),
				})
			}
		}

		if a.Params.OutputRound {
			log.Info().Msgf(
				"round %d at second %d: %d paths over %d nodes, %d stable nodes left",
				r, second, paths, roundNodes.Size(), stable.Size(),
			)
		}
	}

	stableNodes := utils.NodeSetValues(stable)
	if len(stableNodes) == 0 {
		return nil, report, fmt.Errorf("%w: no node stays reachable around %s for %d rounds", model.ErrNotFound, target.Name, rounds)
	}

	decision, err := a.pickTarget(ctx, target, stableNodes, report)
	if err != nil {
		return nil, report, err
	}
	decision.From = deploymentPath[target.Id]
	decision.Rounds = rounds

	log.Info().Msgf(
		"migrate %s from %s to %s, score %.4f, %d stable nodes",
		target.Name, decision.From, decision.Target, decision.Score, len(stableNodes),
	)

	return decision, report, nil
}

func checkMigrationArgs(ns *model.NetworkService, deploymentPath []string, target *model.VNFSpec, rounds int, roundInterval time.Duration, kPaths int) error {
	if ns == nil {
		return fmt.Errorf("%w: no network service", model.ErrConfig)
	}
	if target == nil {
		return fmt.Errorf("%w: no target vnf", model.ErrConfig)
	}
	if rounds < 1 || kPaths < 1 || roundInterval < 0 {
		return fmt.Errorf(
			"%w: rounds %d, k paths %d and round interval %v must be positive",
			model.ErrConfig, rounds, kPaths, roundInterval,
		)
	}
	if target.Id < 1 || target.Id+1 >= len(deploymentPath) {
		return fmt.Errorf(
			"%w: vnf %s with id %d has no neighbours in deployment path %v",
			model.ErrConfig, target.Name, target.Id, deploymentPath,
		)
	}
	if len(deploymentPath) != len(ns.VNFs)+2 {
		return fmt.Errorf(
			"%w: deployment path %v does not match the %d vnfs of %s",
			model.ErrConfig, deploymentPath, len(ns.VNFs), ns.Name,
		)
	}

	return nil
}

// round returns the nodes of every path found between the target's
// neighbours at second, and how many paths there were.
func (a *Analyzer) round(
	ctx context.Context,
	ns *model.NetworkService,
	deploymentPath []string,
	target *model.VNFSpec,
	second int,
	kPaths int,
	report *model.Report,
) (*treeset.Set, int, error) {
	snapshot, err := a.Topology.GraphAt(ctx, connector.TopologyRequest{SecondOfDay: second})
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, fmt.Errorf("%w: topology query at second %d: %v", model.ErrAborted, second, ctx.Err())
		}
		log.Err(err).Msgf("topology at second %d is unavailable", second)
		record(report, a.Tally, model.ReportEntry{
			Subject: fmt.Sprintf("graph at %d", second),
			Reason:  model.REJECT_UNREACHABLE,
			Detail:  err.Error(),
		})
		return utils.NewNodeSet(), 0, nil
	}
	graph := topology.NewGraph(snapshot)

	sources := []string{deploymentPath[target.Id-1]}
	if target.Id-1 == 0 {
		sources = a.coverSet(ctx, ns.Source, second, "source", report)
	}
	destinations := []string{deploymentPath[target.Id+1]}
	if target.Id+1 == len(deploymentPath)-1 {
		destinations = a.coverSet(ctx, ns.Destination, second, "destination", report)
	}

	type pair struct{ src, dst string }
	var pairs []pair
	for _, src := range sources {
		for _, dst := range destinations {
			pairs = append(pairs, pair{src, dst})
		}
	}

	found := make([][][]string, len(pairs))
	var group errgroup.Group
	if a.Workers > 0 {
		group.SetLimit(a.Workers)
	}
	for ind, p := range pairs {
		ind, p := ind, p
		group.Go(func() error {
			found[ind] = graph.KShortestPaths(p.src, p.dst, kPaths)
			return nil
		})
	}
	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: path search at second %d: %v", model.ErrAborted, second, err)
	}

	nodes := utils.NewNodeSet()
	paths := 0
	for ind, pairPaths := range found {
		if len(pairPaths) == 0 {
			log.Debug().Msgf("no path from %s to %s at second %d", pairs[ind].src, pairs[ind].dst, second)
			continue
		}
		for _, p := range pairPaths {
			paths++
			for _, node := range p {
				nodes.Add(node)
			}
		}
	}

	return nodes, paths, nil
}

func (a *Analyzer) coverSet(ctx context.Context, station model.Coordinates, second int, side string, report *model.Report) []string {
	cover, err := a.Topology.CoverSetAt(ctx, connector.TopologyRequest{SecondOfDay: second, Station: &station})
	if err != nil {
		log.Err(err).Msgf("%s cover set at second %d is unavailable", side, second)
		record(report, a.Tally, model.ReportEntry{
			Subject: fmt.Sprintf("%s cover set at %d", side, second),
			Reason:  model.REJECT_UNREACHABLE,
			Detail:  err.Error(),
		})
		return nil
	}

	return cover
}

// pickTarget checks every stable node against the target's demand on baseline
// resources only. Ties go to the smallest node id.
func (a *Analyzer) pickTarget(ctx context.Context, target *model.VNFSpec, stableNodes []string, report *model.Report) (*model.MigrationDecision, error) {
	// warm the cache, failures are memoised and reported below
	var group errgroup.Group
	if a.Workers > 0 {
		group.SetLimit(a.Workers)
	}
	for _, node := range stableNodes {
		node := node
		group.Go(func() error {
			_, _ = a.Cache.Get(ctx, node)
			return nil
		})
	}
	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: resource queries for %s: %v", model.ErrAborted, target.Name, err)
	}

	demand := target.Demand()
	var fitting []*candidate[model.Ratios]
	nodeOf := make(map[int]string)
	for ind, node := range stableNodes {
		snapshot, err := a.Cache.Get(ctx, node)
		if err != nil {
			record(report, a.Tally, model.ReportEntry{
				Subject: "stable node", Node: node, VNF: target.Name,
				Reason: model.REJECT_UNKNOWN, Detail: err.Error(),
			})
			continue
		}

		verdict, err := policy.Check(snapshot, demand, a.Params.Limit)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node, err)
		}
		if !verdict.Fits {
			record(report, a.Tally, model.ReportEntry{
				Subject: "stable node", Node: node, VNF: target.Name,
				Reason: verdict.Reason, Detail: verdict.Detail,
			})
			continue
		}

		nodeOf[ind] = node
		fitting = append(fitting, &candidate[model.Ratios]{
			index:  ind,
			score:  policy.WeightedSum(verdict.Ratios, a.Params.Weights),
			object: verdict.Ratios,
		})
	}

	if len(fitting) == 0 {
		return nil, fmt.Errorf("%w: none of the %d stable nodes can host %s", model.ErrNotFound, len(stableNodes), target.Name)
	}

	ranked := rankCandidates(fitting)
	best := ranked[0]
	for _, cand := range ranked {
		entry := model.ReportEntry{
			Subject: "stable node", Node: nodeOf[cand.index], VNF: target.Name,
			Reason: model.ACCEPTED, Score: cand.score,
		}
		if cand != best {
			entry.Reason = model.REJECT_SCORE
			entry.Detail = fmt.Sprintf("%s scored %.4f", nodeOf[best.index], best.score)
		}
		record(report, a.Tally, entry)
	}

	return &model.MigrationDecision{
		VNF:         target.Name,
		Target:      nodeOf[best.index],
		Ratios:      best.object,
		Score:       best.score,
		StableNodes: stableNodes,
	}, nil
}
