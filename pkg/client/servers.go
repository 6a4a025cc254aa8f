package client

import (
	"context"
	"fmt"
	"net/netip"
	"sort"

	"github.com/appkins-org/openstack-inventory/pkg/inventory"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/servers"
	"github.com/rs/zerolog/log"
)

// Nova address types.
const (
	addressFixed    = "fixed"
	addressFloating = "floating"
)

// ListServers returns every server visible to the project.
func (c *Clients) ListServers(ctx context.Context) ([]inventory.Server, error) {
	client, err := c.GetComputeClient(ctx)
	if err != nil {
		return nil, err
	}

	pages, err := servers.List(client, servers.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list servers: %w", err)
	}
	list, err := servers.ExtractServers(pages)
	if err != nil {
		return nil, fmt.Errorf("could not list servers: %w", err)
	}

	result := make([]inventory.Server, 0, len(list))
	for _, s := range list {
		log.Debug().Str("server", s.Name).Str("id", s.ID).Msg("Found server")
		result = append(result, toInventoryServer(s))
	}
	return result, nil
}

func toInventoryServer(s servers.Server) inventory.Server {
	public, private := addressesV4(s.Addresses)
	if public == "" && isIPv4(s.AccessIPv4) {
		public = s.AccessIPv4
	}

	var meta inventory.Metadata
	if s.Metadata != nil {
		meta = inventory.Metadata(s.Metadata)
	}

	return inventory.Server{
		Name:      s.Name,
		Metadata:  meta,
		PublicV4:  public,
		PrivateV4: private,
	}
}

// addressesV4 picks the first floating and first fixed IPv4 address from the
// Nova addresses attribute. Networks are visited in name order.
func addressesV4(addresses map[string]any) (public, private string) {
	networks := make([]string, 0, len(addresses))
	for name := range addresses {
		networks = append(networks, name)
	}
	sort.Strings(networks)

	for _, network := range networks {
		entries, ok := addresses[network].([]any)
		if !ok {
			continue
		}
		for _, entry := range entries {
			addr, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			ip, _ := addr["addr"].(string)
			if !isIPv4(ip) {
				continue
			}

			kind, _ := addr["OS-EXT-IPS:type"].(string)
			switch kind {
			case addressFloating:
				if public == "" {
					public = ip
				}
			case addressFixed, "":
				if private == "" {
					private = ip
				}
			}
		}
	}
	return public, private
}

func isIPv4(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is4()
}
