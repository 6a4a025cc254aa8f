package inventory

import (
	"bytes"
	"context"
	"encoding/json"
)

// Metadata keys read from Nova server metadata.
const (
	MetaClusterID        = "clusterid"
	MetaHostType         = "host-type"
	MetaSubHostType      = "sub-host-type"
	MetaGroup            = "group"
	MetaNodeLabels       = "node_labels"
	MetaNeutronAgentName = "neutron_agent_name"
)

// Fixed group names of the inventory document.
const (
	GroupClusterHosts = "cluster_hosts"
	GroupOSEv3        = "OSEv3"
	GroupMasters      = "masters"
	GroupEtcd         = "etcd"
	GroupNodes        = "nodes"
	GroupInfraHosts   = "infra_hosts"
	GroupApp          = "app"
	GroupDNS          = "dns"
	GroupLB           = "lb"

	// MetaKey is the reserved top-level key carrying host variables.
	MetaKey = "_meta"
)

// Metadata is the string map attached to a server.
type Metadata map[string]string

// Lookup returns the value stored under key and whether it was present.
// It is safe to call on a nil Metadata.
func (m Metadata) Lookup(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[key]
	return v, ok
}

// Get returns the value stored under key, or "" when absent.
func (m Metadata) Get(key string) string {
	v, _ := m.Lookup(key)
	return v
}

// Has reports whether key is present.
func (m Metadata) Has(key string) bool {
	_, ok := m.Lookup(key)
	return ok
}

// Server is a compute instance as seen by the inventory.
type Server struct {
	Name      string
	Metadata  Metadata
	PublicV4  string
	PrivateV4 string
}

// Stack is a deployment stack and its declared outputs.
type Stack struct {
	Name    string
	Status  string
	Outputs map[string]string
}

// Session describes the credentials and project of the current cloud session.
type Session struct {
	AuthURL         string
	Username        string
	Password        string
	UserDomainID    string
	ProjectDomainID string
	ProjectID       string
}

// Source provides the cloud resources an inventory is built from.
type Source interface {
	// ListServers returns all servers visible to the session.
	ListServers(ctx context.Context) ([]Server, error)
	// GetStack returns the named stack, or nil when it does not exist.
	GetStack(ctx context.Context, name string) (*Stack, error)
	// Session returns the auth details of the current session.
	Session(ctx context.Context) (Session, error)
}

// HostVars are the variables exported for a single host.
type HostVars map[string]string

// Group is an inventory group.
type Group struct {
	Hosts []string          `json:"hosts"`
	Vars  map[string]string `json:"vars,omitempty"`
}

// Meta carries per-host variables.
type Meta struct {
	HostVars map[string]HostVars `json:"hostvars"`
}

// Inventory is the dynamic inventory document.
type Inventory struct {
	Groups map[string]*Group
	Meta   Meta
}

// MarshalJSON flattens groups and _meta into one object.
func (i *Inventory) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(i.Groups)+1)
	for name, group := range i.Groups {
		m[name] = group
	}
	m[MetaKey] = i.Meta
	return json.Marshal(m)
}

// Encode renders v the way inventory consumers expect it: sorted keys,
// four space indentation and no HTML escaping.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
