// leovnf places VNF chains on LEO satellite paths and checks whether a placed
// VNF can move to a host that stays reachable for a whole observation window.
//
// Usage:
//
//	leovnf place <ns> [--commit]           Plan a deployment path
//	leovnf migrate <ns> <vnf> [--commit]   Plan a migration target
//	leovnf resource <node>                 Query one node's resources
//	leovnf ns list | show <ns> | add <ns>  Inspect or extend the store
//	leovnf serve                           Run the HTTP surface
package main

import (
	"fmt"
	"os"

	"github.com/amsen20/leovnf/internal/config"
	"github.com/amsen20/leovnf/internal/connector"
	"github.com/amsen20/leovnf/internal/metrics"
	"github.com/amsen20/leovnf/internal/scheduler"
	"github.com/amsen20/leovnf/internal/store"
	"github.com/amsen20/leovnf/logging"
	"github.com/amsen20/leovnf/sim"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var log = logging.Get()

var configFilePath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "leovnf",
	Short:             "VNF placement and migration planning on LEO constellations",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFilePath, "config", "c", "config.yaml", "path to config file")

	rootCmd.AddCommand(
		newPlaceCmd(),
		newMigrateCmd(),
		newResourceCmd(),
		newNSCmd(),
		newServeCmd(),
	)
}

// setUp loads the config and wires the providers, store and metrics it names.
func setUp() (*scheduler.Scheduler, *prometheus.Registry, error) {
	cfg, err := config.Load(configFilePath)
	if err != nil {
		log.Err(err).Msg("could not load config")
		return nil, nil, err
	}

	var scenario *sim.Scenario
	if cfg.Resource.Kind == "scenario" || cfg.Topology.Kind == "scenario" {
		scenario, err = sim.Load(cfg.Topology.Scenario)
		if err != nil {
			log.Err(err).Msg("could not load scenario")
			return nil, nil, err
		}
	}

	resources, err := newResourceProvider(cfg, scenario)
	if err != nil {
		log.Err(err).Msg("could not init the resource provider")
		return nil, nil, err
	}

	var topologyProvider connector.TopologyProvider
	switch cfg.Topology.Kind {
	case "sattrack":
		topologyProvider = connector.NewSattrackTopologyProvider(cfg.Topology.SattrackDir, cfg.Topology.Binary)
	case "scenario":
		topologyProvider = scenario
	default:
		return nil, nil, fmt.Errorf("topology kind %q is not recognized", cfg.Topology.Kind)
	}

	st, err := store.New(cfg.Store)
	if err != nil {
		log.Err(err).Msg("could not open the store")
		return nil, nil, err
	}

	reg := prometheus.NewRegistry()
	sched := scheduler.New(cfg, resources, topologyProvider, st, metrics.New(reg))

	return sched, reg, nil
}

func newResourceProvider(cfg *config.GeneralConfig, scenario *sim.Scenario) (connector.ResourceProvider, error) {
	var primary connector.ResourceProvider
	switch cfg.Resource.Kind {
	case "command":
		primary = connector.NewCommandResourceProvider(cfg.Resource.Command, cfg.Resource.Args, "")
	case "kubernetes":
		kube, err := connector.NewKubeResourceProvider(cfg.Resource.Kubeconfig, cfg.Resource.NodeLabel)
		if err != nil {
			return nil, err
		}
		primary = kube
	case "scenario":
		primary = scenario
	case "simulated":
		return connector.NewSimulatedResourceProvider(0), nil
	default:
		return nil, fmt.Errorf("resource kind %q is not recognized", cfg.Resource.Kind)
	}

	// without a host list every id goes to the primary provider
	if len(cfg.Resource.KnownNodes) == 0 {
		return primary, nil
	}

	var simulated connector.ResourceProvider
	if cfg.Resource.SimulateUnknown {
		simulated = connector.NewSimulatedResourceProvider(0)
	}

	return connector.NewFallbackResourceProvider(primary, simulated, cfg.Resource.KnownNodes), nil
}
