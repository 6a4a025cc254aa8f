// Package inventory builds an Ansible dynamic inventory of OpenShift cluster
// hosts from OpenStack server metadata and Heat stack outputs.
package inventory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Options tune how an inventory is built.
type Options struct {
	// StackName is the stack Kuryr settings are read from.
	StackName string
	// ClusterID restricts the inventory to one cluster when set.
	ClusterID string
}

// Build reads the current cloud state from src and returns the complete
// inventory. Any collaborator failure aborts the build.
func Build(ctx context.Context, src Source, opts Options) (*Inventory, error) {
	if opts.StackName == "" {
		opts.StackName = DefaultStackName
	}

	servers, err := src.ListServers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	hosts := ClusterHosts(servers, opts.ClusterID)
	log.Debug().Int("servers", len(servers)).Int("cluster_hosts", len(hosts)).Msg("Classifying servers")

	inv := &Inventory{
		Groups: Classify(hosts),
		Meta:   Meta{HostVars: make(map[string]HostVars, len(hosts))},
	}
	for _, s := range hosts {
		inv.Meta.HostVars[s.Name] = HostVariables(s)
	}

	settings, err := KuryrSettings(ctx, src, opts.StackName)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		inv.Groups[GroupOSEv3].Vars = settings
	}

	return inv, nil
}

// HostVars returns the variables of the named host, or an empty map.
func (i *Inventory) HostVars(name string) HostVars {
	if vars, ok := i.Meta.HostVars[name]; ok {
		return vars
	}
	return HostVars{}
}
