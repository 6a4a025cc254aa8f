package inventory

import (
	"slices"
	"sort"

	"github.com/rs/zerolog/log"
)

// Host types recognized in the host-type and sub-host-type metadata.
const (
	HostTypeMaster = "master"
	HostTypeEtcd   = "etcd"
	HostTypeNode   = "node"
	HostTypeDNS    = "dns"
	HostTypeLB     = "lb"

	SubHostTypeInfra = "infra"
	SubHostTypeApp   = "app"
)

// IsClusterHost reports whether s is managed by the inventory. When
// clusterID is not empty the server must also belong to that cluster.
func IsClusterHost(s Server, clusterID string) bool {
	id, ok := s.Metadata.Lookup(MetaClusterID)
	if !ok {
		return false
	}
	return clusterID == "" || id == clusterID
}

// ClusterHosts filters servers down to cluster hosts, keeping their order.
func ClusterHosts(servers []Server, clusterID string) []Server {
	hosts := make([]Server, 0, len(servers))
	for _, s := range servers {
		if IsClusterHost(s, clusterID) {
			hosts = append(hosts, s)
		}
	}
	return hosts
}

// Classify groups cluster hosts by role. The returned map always holds every
// fixed group plus one entry per user-declared group.
func Classify(hosts []Server) map[string]*Group {
	var (
		all     = make([]string, 0, len(hosts))
		masters = []string{}
		etcd    = []string{}
		infra   = []string{}
		app     = []string{}
		dns     = []string{}
		lb      = []string{}
	)

	for _, s := range hosts {
		all = append(all, s.Name)

		switch s.Metadata.Get(MetaHostType) {
		case HostTypeMaster:
			masters = append(masters, s.Name)
		case HostTypeEtcd:
			etcd = append(etcd, s.Name)
		case HostTypeNode:
			switch s.Metadata.Get(MetaSubHostType) {
			case SubHostTypeInfra:
				infra = append(infra, s.Name)
			case SubHostTypeApp:
				app = append(app, s.Name)
			}
		case HostTypeDNS:
			dns = append(dns, s.Name)
		case HostTypeLB:
			lb = append(lb, s.Name)
		}
	}

	// etcd runs on the masters unless hosts are dedicated to it.
	if len(etcd) == 0 {
		etcd = slices.Clone(masters)
	}

	nodes := union(masters, infra, app)
	osev3 := union(nodes, etcd, lb)

	groups := map[string]*Group{
		GroupClusterHosts: {Hosts: all},
		GroupOSEv3:        {Hosts: osev3},
		GroupMasters:      {Hosts: masters},
		GroupEtcd:         {Hosts: etcd},
		GroupNodes:        {Hosts: nodes},
		GroupInfraHosts:   {Hosts: infra},
		GroupApp:          {Hosts: app},
		GroupDNS:          {Hosts: dns},
		GroupLB:           {Hosts: lb},
	}

	for _, s := range hosts {
		name, ok := s.Metadata.Lookup(MetaGroup)
		if !ok {
			continue
		}
		if name == MetaKey {
			log.Warn().Str("server", s.Name).Str("group", name).Msg("Ignoring reserved group name")
			continue
		}
		group, ok := groups[name]
		if !ok {
			group = &Group{Hosts: []string{}}
			groups[name] = group
		}
		if !slices.Contains(group.Hosts, s.Name) {
			group.Hosts = append(group.Hosts, s.Name)
		}
	}

	return groups
}

// union returns the distinct names of all lists, sorted.
func union(lists ...[]string) []string {
	set := make(map[string]struct{})
	for _, list := range lists {
		for _, name := range list {
			set[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
