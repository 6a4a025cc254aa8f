package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/appkins-org/openstack-inventory/pkg/config"
	"github.com/appkins-org/openstack-inventory/pkg/inventory"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
	osconfig "github.com/gophercloud/gophercloud/v2/openstack/config"
	"github.com/gophercloud/gophercloud/v2/openstack/identity/v3/tokens"
	"github.com/rs/zerolog/log"
)

type newServiceClient func(*gophercloud.ProviderClient, gophercloud.EndpointOpts) (*gophercloud.ServiceClient, error)

// Clients stores the OpenStack service clients used to read cluster state.
// Service clients are created on first use from a single authenticated
// provider.
type Clients struct {
	config *config.Config

	provider      *gophercloud.ProviderClient
	compute       *gophercloud.ServiceClient
	orchestration *gophercloud.ServiceClient
	network       *gophercloud.ServiceClient

	// Mutex so that concurrent inventory builds authenticate only once.
	mux sync.Mutex
}

// New returns Clients for the given configuration. No request is made until
// a client is first needed.
func New(cfg *config.Config) *Clients {
	return &Clients{config: cfg}
}

// getProvider returns the authenticated provider. The caller must hold mux.
func (c *Clients) getProvider(ctx context.Context) (*gophercloud.ProviderClient, error) {
	if c.provider != nil {
		return c.provider, nil
	}
	if c.config == nil {
		return nil, errors.New("no cloud configuration")
	}
	if err := c.config.Validate(); err != nil {
		return nil, err
	}

	log.Debug().Str("auth_url", c.config.AuthOptions.IdentityEndpoint).Str("cloud", c.config.Cloud).Msg("Authenticating to OpenStack")
	provider, err := osconfig.NewProviderClient(ctx, c.config.AuthOptions, osconfig.WithTLSConfig(c.config.TLSConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %w", err)
	}
	c.provider = provider
	return provider, nil
}

func (c *Clients) serviceClient(ctx context.Context, slot **gophercloud.ServiceClient, name string, create newServiceClient) (*gophercloud.ServiceClient, error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if *slot != nil {
		return *slot, nil
	}

	provider, err := c.getProvider(ctx)
	if err != nil {
		return nil, err
	}

	client, err := create(provider, c.config.EndpointOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", name, err)
	}
	*slot = client
	return client, nil
}

// GetComputeClient returns the Nova client.
func (c *Clients) GetComputeClient(ctx context.Context) (*gophercloud.ServiceClient, error) {
	return c.serviceClient(ctx, &c.compute, "compute", openstack.NewComputeV2)
}

// GetOrchestrationClient returns the Heat client.
func (c *Clients) GetOrchestrationClient(ctx context.Context) (*gophercloud.ServiceClient, error) {
	return c.serviceClient(ctx, &c.orchestration, "orchestration", openstack.NewOrchestrationV1)
}

// GetNetworkClient returns the Neutron client.
func (c *Clients) GetNetworkClient(ctx context.Context) (*gophercloud.ServiceClient, error) {
	return c.serviceClient(ctx, &c.network, "network", openstack.NewNetworkV2)
}

// SetComputeClient sets the Nova client
func (c *Clients) SetComputeClient(client *gophercloud.ServiceClient) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.compute = client
}

// SetOrchestrationClient sets the Heat client
func (c *Clients) SetOrchestrationClient(client *gophercloud.ServiceClient) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.orchestration = client
}

// SetNetworkClient sets the Neutron client
func (c *Clients) SetNetworkClient(client *gophercloud.ServiceClient) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.network = client
}

// Session returns the credentials of the current session together with the
// project the token is scoped to.
func (c *Clients) Session(ctx context.Context) (inventory.Session, error) {
	if c.config == nil {
		return inventory.Session{}, errors.New("no cloud configuration")
	}

	projectID, err := c.projectID(ctx)
	if err != nil {
		return inventory.Session{}, err
	}

	return inventory.Session{
		AuthURL:         c.config.AuthOptions.IdentityEndpoint,
		Username:        c.config.AuthOptions.Username,
		Password:        c.config.AuthOptions.Password,
		UserDomainID:    c.config.UserDomain(),
		ProjectDomainID: firstNonEmpty(c.config.ProjectDomain, c.config.UserDomain()),
		ProjectID:       projectID,
	}, nil
}

func (c *Clients) projectID(ctx context.Context) (string, error) {
	if id := c.config.AuthOptions.TenantID; id != "" {
		return id, nil
	}

	c.mux.Lock()
	defer c.mux.Unlock()

	provider, err := c.getProvider(ctx)
	if err != nil {
		return "", err
	}

	result, ok := provider.GetAuthResult().(tokens.CreateResult)
	if !ok {
		return "", errors.New("current project is unknown: not a keystone v3 token")
	}
	project, err := result.ExtractProject()
	if err != nil {
		return "", fmt.Errorf("failed to extract token project: %w", err)
	}
	if project == nil {
		return "", errors.New("current project is unknown: token is not project scoped")
	}
	return project.ID, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
