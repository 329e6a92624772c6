package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/amsen20/leovnf/internal/gui"
	"github.com/amsen20/leovnf/internal/model"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var commit bool

func printYAML(v interface{}) error {
	encoder := yaml.NewEncoder(os.Stdout)
	encoder.SetIndent(2)
	defer encoder.Close()

	return encoder.Encode(v)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func newPlaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "place <ns>",
		Short: "Plan a deployment path for a network service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, _, err := setUp()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			outcome, err := sched.Place(ctx, args[0], commit)
			if outcome != nil {
				if printErr := printYAML(outcome); printErr != nil {
					return printErr
				}
			}

			return err
		},
	}

	cmd.Flags().BoolVar(&commit, "commit", false, "write the placement to the store")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate <ns> <vnf>",
		Short: "Plan a stable migration target for one VNF",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, _, err := setUp()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			outcome, err := sched.Migrate(ctx, args[0], args[1], commit)
			if outcome != nil {
				if printErr := printYAML(outcome); printErr != nil {
					return printErr
				}
			}

			return err
		},
	}

	cmd.Flags().BoolVar(&commit, "commit", false, "write the new host to the store")
	return cmd
}

func newResourceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resource <node>",
		Short: "Query the resources of one node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, _, err := setUp()
			if err != nil {
				return err
			}

			snapshot, err := sched.Resource(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printYAML(snapshot)
		},
	}
}

func newNSCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ns",
		Short: "Inspect and extend the network service store",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List network service names",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				sched, _, err := setUp()
				if err != nil {
					return err
				}

				names, err := sched.ListNS(cmd.Context())
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Println(name)
				}

				return nil
			},
		},
		&cobra.Command{
			Use:   "show <ns>",
			Short: "Show one network service",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				sched, _, err := setUp()
				if err != nil {
					return err
				}

				ns, err := sched.GetNS(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				return printYAML(ns)
			},
		},
	)

	return cmd
}

func newNSAddCmd() *cobra.Command {
	var (
		description string
		source      string
		destination string
		vnfs        []string
	)

	cmd := &cobra.Command{
		Use:   "add <ns>",
		Short: "Add an unplaced network service to the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := &model.NSDraft{Description: description}

			var err error
			if draft.SourceLatitude, draft.SourceLongitude, err = parseLatLon(source); err != nil {
				return fmt.Errorf("--source: %w", err)
			}
			if draft.DestinationLatitude, draft.DestinationLongitude, err = parseLatLon(destination); err != nil {
				return fmt.Errorf("--destination: %w", err)
			}
			for _, vnf := range vnfs {
				vnfDraft, err := parseVNFDraft(vnf)
				if err != nil {
					return fmt.Errorf("--vnf: %w", err)
				}
				draft.VNFs = append(draft.VNFs, vnfDraft)
			}

			sched, _, err := setUp()
			if err != nil {
				return err
			}

			ns, err := sched.AddNS(cmd.Context(), args[0], draft)
			if err != nil {
				return err
			}

			return printYAML(ns)
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "free text description")
	cmd.Flags().StringVar(&source, "source", "", "source station as lat,lon")
	cmd.Flags().StringVar(&destination, "destination", "", "destination station as lat,lon")
	cmd.Flags().StringArrayVar(&vnfs, "vnf", nil, "vnf in chain order as name:cpu:memory:storage[:min_vm:max_vm]")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("destination")
	_ = cmd.MarkFlagRequired("vnf")

	return cmd
}

func parseLatLon(value string) (float64, float64, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q is not lat,lon", model.ErrConfig, value)
	}

	latitude, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, errors.Join(model.ErrConfig, err)
	}
	longitude, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, errors.Join(model.ErrConfig, err)
	}

	return latitude, longitude, nil
}

func parseVNFDraft(value string) (model.VNFDraft, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 4 && len(parts) != 6 {
		return model.VNFDraft{}, fmt.Errorf("%w: %q is not name:cpu:memory:storage[:min_vm:max_vm]", model.ErrConfig, value)
	}

	numbers := make([]int64, 0, len(parts)-1)
	for _, part := range parts[1:] {
		number, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return model.VNFDraft{}, errors.Join(model.ErrConfig, err)
		}
		numbers = append(numbers, number)
	}

	draft := model.VNFDraft{Name: parts[0], CPU: numbers[0], MemoryGiB: numbers[1], StorageGB: numbers[2]}
	if len(numbers) == 5 {
		draft.MinInstances, draft.MaxInstances = int(numbers[3]), int(numbers[4])
	}

	return draft, nil
}

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scheduler over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, reg, err := setUp()
			if err != nil {
				return err
			}
			if listen == "" {
				listen = sched.Config.Listen
			}

			return gui.New(sched, reg).Run(listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address, overrides the config")
	return cmd
}
