package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/appkins-org/openstack-inventory/pkg/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloud struct {
	hosts    []string
	hostsErr error
	servers  []inventory.Server
	ports    []Port
	updated  map[string]string
	setErr   error
}

func (f *fakeCloud) ListAliveAgentHosts(context.Context) ([]string, error) {
	return f.hosts, f.hostsErr
}

func (f *fakeCloud) ListServers(context.Context) ([]inventory.Server, error) {
	return f.servers, nil
}

func (f *fakeCloud) ListPorts(context.Context) ([]Port, error) {
	return f.ports, nil
}

func (f *fakeCloud) SetPortHostID(_ context.Context, portID, hostID string) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.updated == nil {
		f.updated = map[string]string{}
	}
	f.updated[portID] = hostID
	return nil
}

func TestAliveHosts(t *testing.T) {
	hosts, err := AliveHosts(context.Background(), &fakeCloud{})
	require.NoError(t, err)
	assert.Equal(t, []string{}, hosts)

	boom := errors.New("boom")
	_, err = AliveHosts(context.Background(), &fakeCloud{hostsErr: boom})
	assert.ErrorIs(t, err, boom)
}

func TestCheckAlive(t *testing.T) {
	servers := []inventory.Server{
		{Name: "master-0", Metadata: inventory.Metadata{"clusterid": "c"}},
		{Name: "app-0", Metadata: inventory.Metadata{"clusterid": "c", "neutron_agent_name": "compute-17"}},
		{Name: "dup", Metadata: inventory.Metadata{"clusterid": "c"}},
		{Name: "dup", Metadata: inventory.Metadata{"clusterid": "c"}},
		{Name: "outside", Metadata: inventory.Metadata{}},
	}
	hosts := []string{"master-0.openshift.example.com", "compute-17.example.com"}

	tests := []struct {
		name     string
		server   string
		hosts    []string
		expected error
	}{
		{name: "by server name", server: "master-0", hosts: hosts},
		{name: "by agent name", server: "app-0", hosts: hosts},
		{name: "agent name not alive", server: "app-0", hosts: []string{"app-0"}, expected: ErrAgentNotFound},
		{name: "no alive agents", server: "master-0", expected: ErrAgentNotFound},
		{name: "duplicate server", server: "dup", hosts: hosts, expected: ErrServerNotUnique},
		{name: "not a cluster host", server: "outside", hosts: hosts, expected: ErrServerNotUnique},
		{name: "unknown server", server: "missing", hosts: hosts, expected: ErrServerNotUnique},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cloud := &fakeCloud{hosts: tt.hosts, servers: servers}
			err := CheckAlive(context.Background(), cloud, cloud, tt.server)
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestRebindPort(t *testing.T) {
	cloud := &fakeCloud{ports: []Port{
		{ID: "p0", HostID: "other", FixedIPs: []string{"10.0.0.1"}},
		{ID: "p1", HostID: "master-0", FixedIPs: []string{"10.0.0.2", "10.0.0.3"}},
		{ID: "p2", HostID: "master-0", FixedIPs: []string{"10.0.0.4"}},
	}}

	hostID, err := RebindPort(context.Background(), cloud, "master-0")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", hostID)
	assert.Equal(t, map[string]string{"p1": "10.0.0.2"}, cloud.updated)
}

func TestRebindPort_Errors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name     string
		cloud    *fakeCloud
		expected error
	}{
		{
			name:     "no bound port",
			cloud:    &fakeCloud{ports: []Port{{ID: "p0", HostID: "other", FixedIPs: []string{"10.0.0.1"}}}},
			expected: ErrPortNotFound,
		},
		{
			name:     "no fixed ip",
			cloud:    &fakeCloud{ports: []Port{{ID: "p0", HostID: "master-0"}}},
			expected: ErrNoFixedIP,
		},
		{
			name:     "update fails",
			cloud:    &fakeCloud{ports: []Port{{ID: "p0", HostID: "master-0", FixedIPs: []string{"10.0.0.1"}}}, setErr: boom},
			expected: boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RebindPort(context.Background(), tt.cloud, "master-0")
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}
