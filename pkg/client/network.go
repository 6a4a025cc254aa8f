package client

import (
	"context"
	"fmt"

	"github.com/appkins-org/openstack-inventory/pkg/agent"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/extensions/agents"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/extensions/portsbinding"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/ports"
)

type portWithBinding struct {
	ports.Port
	portsbinding.PortsBindingExt
}

// ListAliveAgentHosts returns the host of every alive Neutron agent.
func (c *Clients) ListAliveAgentHosts(ctx context.Context) ([]string, error) {
	client, err := c.GetNetworkClient(ctx)
	if err != nil {
		return nil, err
	}

	alive := true
	pages, err := agents.List(client, agents.ListOpts{Alive: &alive}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list agents: %w", err)
	}
	list, err := agents.ExtractAgents(pages)
	if err != nil {
		return nil, fmt.Errorf("could not list agents: %w", err)
	}

	// Neutron may ignore unknown filters.
	hosts := make([]string, 0, len(list))
	for _, a := range list {
		if a.Alive {
			hosts = append(hosts, a.Host)
		}
	}
	return hosts, nil
}

// ListPorts returns all ports with their binding host.
func (c *Clients) ListPorts(ctx context.Context) ([]agent.Port, error) {
	client, err := c.GetNetworkClient(ctx)
	if err != nil {
		return nil, err
	}

	pages, err := ports.List(client, ports.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list ports: %w", err)
	}
	var list []portWithBinding
	if err := ports.ExtractPortsInto(pages, &list); err != nil {
		return nil, fmt.Errorf("could not list ports: %w", err)
	}

	result := make([]agent.Port, 0, len(list))
	for _, p := range list {
		port := agent.Port{ID: p.ID, HostID: p.HostID}
		for _, ip := range p.FixedIPs {
			port.FixedIPs = append(port.FixedIPs, ip.IPAddress)
		}
		result = append(result, port)
	}
	return result, nil
}

// SetPortHostID updates the binding:host_id of a port.
func (c *Clients) SetPortHostID(ctx context.Context, portID, hostID string) error {
	client, err := c.GetNetworkClient(ctx)
	if err != nil {
		return err
	}

	opts := portsbinding.UpdateOptsExt{
		UpdateOptsBuilder: ports.UpdateOpts{},
		HostID:            &hostID,
	}
	if err := ports.Update(ctx, client, portID, opts).Err; err != nil {
		return fmt.Errorf("could not update port %s: %w", portID, err)
	}
	return nil
}
