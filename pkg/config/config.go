// Package config resolves OpenStack credentials from clouds.yaml and the
// standard OS_* environment variables.
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
	"github.com/gophercloud/gophercloud/v2/openstack/config/clouds"
	"github.com/rs/zerolog/log"
)

// ErrIncomplete is returned by Validate.
var ErrIncomplete = errors.New("incomplete cloud configuration")

// Config is the resolved cloud configuration.
type Config struct {
	// Cloud is the clouds.yaml entry the configuration came from, if any.
	Cloud string

	AuthOptions  gophercloud.AuthOptions
	EndpointOpts gophercloud.EndpointOpts
	TLSConfig    *tls.Config

	// ProjectDomain is the domain of the project when it was given apart
	// from the user's. Empty means the user's domain.
	ProjectDomain string
}

// Load resolves the configuration of the named cloud. When cloud is empty
// OS_CLOUD is used; when that is empty too the credentials are read from the
// OS_* environment alone. Extra options are passed to clouds.Parse.
//
// OS_AUTH_URL, OS_USERNAME, OS_PASSWORD, OS_PROJECT_ID and OS_PROJECT_NAME
// override the values of a clouds.yaml entry.
func Load(cloud string, opts ...clouds.ParseOption) (*Config, error) {
	if cloud == "" {
		cloud = os.Getenv("OS_CLOUD")
	}
	if cloud == "" {
		return fromEnv()
	}

	parseOpts := []clouds.ParseOption{
		clouds.WithCloudName(cloud),
		clouds.WithIdentityEndpoint(os.Getenv("OS_AUTH_URL")),
		clouds.WithUsername(os.Getenv("OS_USERNAME")),
		clouds.WithPassword(os.Getenv("OS_PASSWORD")),
		clouds.WithProjectID(os.Getenv("OS_PROJECT_ID")),
		clouds.WithProjectName(os.Getenv("OS_PROJECT_NAME")),
	}
	ao, eo, tlsConfig, err := clouds.Parse(append(parseOpts, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load cloud %q: %w", cloud, err)
	}
	log.Debug().Str("cloud", cloud).Str("auth_url", ao.IdentityEndpoint).Msg("Using clouds.yaml entry")

	cfg := &Config{
		Cloud:        cloud,
		AuthOptions:  ao,
		EndpointOpts: eo,
		TLSConfig:    tlsConfig,
	}
	cfg.normalize()
	return cfg, nil
}

// fromEnv reads an openrc-style environment. OS_USER_DOMAIN_* and
// OS_PROJECT_DOMAIN_* fill in the domain when OS_DOMAIN_* is unset.
func fromEnv() (*Config, error) {
	ao, err := openstack.AuthOptionsFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials from environment: %w", err)
	}

	if ao.DomainID == "" && ao.DomainName == "" {
		ao.DomainID, ao.DomainName = os.Getenv("OS_USER_DOMAIN_ID"), os.Getenv("OS_USER_DOMAIN_NAME")
	}
	if ao.DomainID == "" && ao.DomainName == "" {
		ao.DomainID, ao.DomainName = os.Getenv("OS_PROJECT_DOMAIN_ID"), os.Getenv("OS_PROJECT_DOMAIN_NAME")
	}

	cfg := &Config{
		AuthOptions:   ao,
		EndpointOpts:  gophercloud.EndpointOpts{Region: os.Getenv("OS_REGION_NAME")},
		ProjectDomain: GetEnvOrDefault("OS_PROJECT_DOMAIN_ID", os.Getenv("OS_PROJECT_DOMAIN_NAME")),
	}
	cfg.normalize()
	return cfg, nil
}

// normalize leaves a single domain on the auth options, preferring the ID:
// keystone password auth rejects a user carrying both.
func (c *Config) normalize() {
	c.AuthOptions.AllowReauth = true
	if c.AuthOptions.DomainID != "" {
		c.AuthOptions.DomainName = ""
	}
}

// UserDomain returns the domain ID of the user, or its name when only the
// name is known.
func (c *Config) UserDomain() string {
	if c.AuthOptions.DomainID != "" {
		return c.AuthOptions.DomainID
	}
	return c.AuthOptions.DomainName
}

// Validate checks that the configuration can authenticate.
func (c *Config) Validate() error {
	ao := c.AuthOptions
	var missing []string
	if ao.IdentityEndpoint == "" {
		missing = append(missing, "auth_url")
	}
	if ao.Username == "" && ao.UserID == "" && ao.ApplicationCredentialID == "" && ao.TokenID == "" {
		missing = append(missing, "username")
	}
	if ao.Password == "" && ao.ApplicationCredentialSecret == "" && ao.TokenID == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w, missing %v", ErrIncomplete, missing)
	}
	return nil
}

// GetEnvOrDefault returns the environment variable key, or defaultValue when
// it is unset or empty.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
