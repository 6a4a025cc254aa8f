package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"os/signal"
	"syscall"
	"time"

	api "github.com/appkins-org/openstack-inventory/api/inventory"
	"github.com/appkins-org/openstack-inventory/pkg/agent"
	"github.com/appkins-org/openstack-inventory/pkg/client"
	"github.com/appkins-org/openstack-inventory/pkg/config"
	"github.com/appkins-org/openstack-inventory/pkg/inventory"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// cloud is everything the commands need from OpenStack.
type cloud interface {
	inventory.Source
	agent.AgentLister
	agent.PortManager
}

// newCloud is replaced in tests.
var newCloud = func(name string) (cloud, error) {
	cfg, err := config.Load(name)
	if err != nil {
		return nil, err
	}
	return client.New(cfg), nil
}

type rootOptions struct {
	cloud     string
	stackName string
	clusterID string
	list      bool
	host      string
	verbose   bool
}

func (o *rootOptions) inventoryOptions() inventory.Options {
	return inventory.Options{StackName: o.stackName, ClusterID: o.clusterID}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "openstack-inventory",
		Short:         "Ansible dynamic inventory for OpenShift clusters on OpenStack",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.list && opts.host != "" {
				return errors.New("--list and --host are mutually exclusive")
			}
			c, err := newCloud(opts.cloud)
			if err != nil {
				return err
			}
			inv, err := inventory.Build(cmd.Context(), c, opts.inventoryOptions())
			if err != nil {
				return err
			}
			if opts.host != "" {
				return writeDocument(out, inv.HostVars(opts.host))
			}
			return writeDocument(out, inv)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.cloud, "cloud", "", "clouds.yaml entry to use (default $OS_CLOUD)")
	flags.StringVar(&opts.stackName, "stack", config.GetEnvOrDefault("OPENSHIFT_STACK_NAME", inventory.DefaultStackName), "Heat stack holding the Kuryr outputs")
	flags.StringVar(&opts.clusterID, "cluster", config.GetEnvOrDefault("OPENSHIFT_CLUSTER", ""), "only include servers of this clusterid (default: every server carrying a clusterid)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().BoolVar(&opts.list, "list", false, "print the whole inventory (default)")
	cmd.Flags().StringVar(&opts.host, "host", "", "print the variables of a single host")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newAgentsCmd(opts, out))
	cmd.AddCommand(newCheckAgentCmd(opts))
	cmd.AddCommand(newRebindPortCmd(opts, out))

	return cmd
}

// writeDocument encodes v completely before writing, so a failure never
// leaves a truncated document on out.
func writeDocument(out io.Writer, v any) error {
	data, err := inventory.Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode inventory: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var bindAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inventory over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := netip.ParseAddrPort(bindAddr)
			if err != nil {
				return fmt.Errorf("failed to parse bind address: %w", err)
			}
			c, err := newCloud(opts.cloud)
			if err != nil {
				return err
			}

			handler := &api.Handler{Source: c, Options: opts.inventoryOptions()}
			server := &http.Server{
				Handler:      handler.Routes(),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 60 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			// Wait for interrupt signal to gracefully shutdown the server
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info().Str("address", addr.String()).Msg("Starting HTTP server")
			return api.ListenAndServe(ctx, addr, server)
		},
	}

	cmd.Flags().StringVar(&bindAddr, "addr", config.GetEnvOrDefault("INVENTORY_BIND_ADDR", "127.0.0.1:8080"), "address to listen on")
	return cmd
}

func newAgentsCmd(opts *rootOptions, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the hosts of alive Neutron agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCloud(opts.cloud)
			if err != nil {
				return err
			}
			hosts, err := agent.AliveHosts(cmd.Context(), c)
			if err != nil {
				return err
			}
			return writeDocument(out, hosts)
		},
	}
}

func newCheckAgentCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-agent NAME",
		Short: "Exit successfully when an alive Neutron agent runs on the cluster host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCloud(opts.cloud)
			if err != nil {
				return err
			}
			return agent.CheckAlive(cmd.Context(), c, c, args[0])
		},
	}
}

func newRebindPortCmd(opts *rootOptions, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "rebind-port NAME",
		Short: "Rebind the port bound to NAME onto its fixed IP address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCloud(opts.cloud)
			if err != nil {
				return err
			}
			hostID, err := agent.RebindPort(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, hostID)
			return err
		},
	}
}
