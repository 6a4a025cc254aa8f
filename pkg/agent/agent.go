// Package agent checks Neutron agent liveness for cluster hosts and rebinds
// kubelet ports to their host's fixed IP.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/appkins-org/openstack-inventory/pkg/inventory"
	"github.com/rs/zerolog/log"
)

var (
	// ErrServerNotUnique is returned when the server name does not match
	// exactly one cluster host.
	ErrServerNotUnique = errors.New("failed to get unique server")
	// ErrAgentNotFound is returned when no alive agent matches the host.
	ErrAgentNotFound = errors.New("failed to find alive agent")
	// ErrPortNotFound is returned when no port is bound to the host.
	ErrPortNotFound = errors.New("failed to find a port bound to host")
	// ErrNoFixedIP is returned when the bound port has no fixed IP.
	ErrNoFixedIP = errors.New("port has no fixed IP")
)

// AgentLister lists the hostnames of alive network agents.
type AgentLister interface {
	ListAliveAgentHosts(ctx context.Context) ([]string, error)
}

// ServerLister lists compute servers.
type ServerLister interface {
	ListServers(ctx context.Context) ([]inventory.Server, error)
}

// Port is a network port and its binding.
type Port struct {
	ID       string
	HostID   string
	FixedIPs []string
}

// PortManager lists ports and updates their binding host.
type PortManager interface {
	ListPorts(ctx context.Context) ([]Port, error)
	SetPortHostID(ctx context.Context, portID, hostID string) error
}

// AliveHosts returns the hostnames of all alive agents.
func AliveHosts(ctx context.Context, agents AgentLister) ([]string, error) {
	hosts, err := agents.ListAliveAgentHosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve Neutron agent list: %w", err)
	}
	if hosts == nil {
		hosts = []string{}
	}
	return hosts, nil
}

// CheckAlive verifies that an alive agent runs on the named cluster host.
// The agent is searched by the host's neutron_agent_name metadata, or by the
// server name when unset, as a substring of the agent hostnames.
func CheckAlive(ctx context.Context, agents AgentLister, servers ServerLister, serverName string) error {
	hosts, err := AliveHosts(ctx, agents)
	if err != nil {
		return err
	}

	list, err := servers.ListServers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list servers: %w", err)
	}

	var matches []inventory.Server
	for _, s := range inventory.ClusterHosts(list, "") {
		if s.Name == serverName {
			matches = append(matches, s)
		}
	}
	if len(matches) != 1 {
		return fmt.Errorf("%w %s", ErrServerNotUnique, serverName)
	}

	nameToFind := serverName
	if name, ok := matches[0].Metadata.Lookup(inventory.MetaNeutronAgentName); ok {
		nameToFind = name
	}

	for _, host := range hosts {
		if strings.Contains(host, nameToFind) {
			log.Debug().Str("server", serverName).Str("agent_host", host).Msg("Found alive agent")
			return nil
		}
	}
	return fmt.Errorf("%w for host %s when searching for %s in alive agents %q",
		ErrAgentNotFound, serverName, nameToFind, hosts)
}

// RebindPort moves the first port bound to serverName onto its own first
// fixed IP address, and returns the new binding host.
func RebindPort(ctx context.Context, ports PortManager, serverName string) (string, error) {
	list, err := ports.ListPorts(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list ports: %w", err)
	}

	for _, port := range list {
		if port.HostID != serverName {
			continue
		}
		if len(port.FixedIPs) == 0 {
			return "", fmt.Errorf("%w: %s", ErrNoFixedIP, port.ID)
		}
		hostID := port.FixedIPs[0]
		if err := ports.SetPortHostID(ctx, port.ID, hostID); err != nil {
			return "", fmt.Errorf("failed to update port %s binding host id to %s: %w", port.ID, hostID, err)
		}
		log.Info().Str("port", port.ID).Str("host_id", hostID).Msg("Updated port binding")
		return hostID, nil
	}
	return "", fmt.Errorf("%w %s", ErrPortNotFound, serverName)
}
