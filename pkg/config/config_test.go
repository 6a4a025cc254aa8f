package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/config/clouds"
)

const cloudsYAML = `clouds:
  openshift:
    auth:
      auth_url: http://keystone.example.com:5000/v3
      username: openshift
      password: s3cret
      project_name: openshift
      user_domain_id: default
      project_domain_name: Default
    region_name: RegionOne
`

var osEnv = []string{
	"OS_CLOUD", "OS_CLIENT_CONFIG_FILE", "OS_AUTH_URL", "OS_USERNAME", "OS_USERID",
	"OS_PASSWORD", "OS_PASSCODE", "OS_PROJECT_ID", "OS_PROJECT_NAME", "OS_TENANT_ID",
	"OS_TENANT_NAME", "OS_DOMAIN_ID", "OS_DOMAIN_NAME", "OS_USER_DOMAIN_ID",
	"OS_USER_DOMAIN_NAME", "OS_PROJECT_DOMAIN_ID", "OS_PROJECT_DOMAIN_NAME",
	"OS_REGION_NAME", "OS_INTERFACE", "OS_SYSTEM_SCOPE", "OS_APPLICATION_CREDENTIAL_ID",
	"OS_APPLICATION_CREDENTIAL_NAME", "OS_APPLICATION_CREDENTIAL_SECRET",
}

// setupEnv clears OS_* variables and points the lookup at a temporary clouds.yaml.
func setupEnv(t *testing.T, content string) string {
	t.Helper()
	for _, key := range osEnv {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "clouds.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write clouds.yaml: %v", err)
	}
	t.Setenv("OS_CLIENT_CONFIG_FILE", path)
	return path
}

func TestLoad_CloudsYAML(t *testing.T) {
	setupEnv(t, cloudsYAML)

	cfg, err := Load("openshift")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ao := cfg.AuthOptions
	if ao.IdentityEndpoint != "http://keystone.example.com:5000/v3" {
		t.Errorf("expected auth url from clouds.yaml, got %s", ao.IdentityEndpoint)
	}
	if ao.Username != "openshift" || ao.Password != "s3cret" {
		t.Errorf("unexpected credentials %s/%s", ao.Username, ao.Password)
	}
	if ao.TenantName != "openshift" {
		t.Errorf("expected project openshift, got %s", ao.TenantName)
	}
	if ao.DomainID != "default" || ao.DomainName != "" {
		t.Errorf("expected only the domain id, got %q/%q", ao.DomainID, ao.DomainName)
	}
	if !ao.AllowReauth {
		t.Error("expected reauthentication to be allowed")
	}
	if cfg.EndpointOpts.Region != "RegionOne" {
		t.Errorf("expected region RegionOne, got %s", cfg.EndpointOpts.Region)
	}
	if cfg.UserDomain() != "default" {
		t.Errorf("expected user domain default, got %s", cfg.UserDomain())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoad_OSCloudAndEnvOverride(t *testing.T) {
	setupEnv(t, cloudsYAML)
	t.Setenv("OS_CLOUD", "openshift")
	t.Setenv("OS_PASSWORD", "from-env")
	t.Setenv("OS_REGION_NAME", "RegionTwo")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Cloud != "openshift" {
		t.Errorf("expected cloud openshift, got %s", cfg.Cloud)
	}
	if cfg.AuthOptions.Password != "from-env" {
		t.Errorf("expected password from environment, got %s", cfg.AuthOptions.Password)
	}
	if cfg.EndpointOpts.Region != "RegionTwo" {
		t.Errorf("expected region from environment, got %s", cfg.EndpointOpts.Region)
	}
	if cfg.AuthOptions.Username != "openshift" {
		t.Errorf("expected username from clouds.yaml, got %s", cfg.AuthOptions.Username)
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	setupEnv(t, cloudsYAML)
	t.Setenv("OS_AUTH_URL", "http://127.0.0.1:5000/v3")
	t.Setenv("OS_USERNAME", "admin")
	t.Setenv("OS_PASSWORD", "secret")
	t.Setenv("OS_PROJECT_ID", "project-id")
	t.Setenv("OS_USER_DOMAIN_NAME", "Default")
	t.Setenv("OS_PROJECT_DOMAIN_ID", "projects")
	t.Setenv("OS_REGION_NAME", "RegionOne")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ao := cfg.AuthOptions
	if cfg.Cloud != "" {
		t.Errorf("expected no cloud, got %s", cfg.Cloud)
	}
	if ao.IdentityEndpoint != "http://127.0.0.1:5000/v3" || ao.Username != "admin" || ao.TenantID != "project-id" {
		t.Errorf("unexpected auth options %+v", ao)
	}
	if cfg.UserDomain() != "Default" {
		t.Errorf("expected user domain Default, got %s", cfg.UserDomain())
	}
	if cfg.ProjectDomain != "projects" {
		t.Errorf("expected project domain projects, got %s", cfg.ProjectDomain)
	}
	if cfg.EndpointOpts.Region != "RegionOne" {
		t.Errorf("expected region RegionOne, got %s", cfg.EndpointOpts.Region)
	}
}

func TestLoad_EnvMissingPassword(t *testing.T) {
	setupEnv(t, cloudsYAML)
	t.Setenv("OS_AUTH_URL", "http://127.0.0.1:5000/v3")
	t.Setenv("OS_USERNAME", "admin")

	_, err := Load("")
	var missing gophercloud.ErrMissingEnvironmentVariable
	if !errors.As(err, &missing) {
		t.Fatalf("expected missing environment variable, got %v", err)
	}
	if missing.EnvironmentVariable != "OS_PASSWORD" {
		t.Errorf("expected OS_PASSWORD to be reported, got %s", missing.EnvironmentVariable)
	}
}

// Keystone rejects a password user identified by both a domain ID and a
// domain name, so only one of them may reach the token request.
func TestLoad_UserDomainIDAndName(t *testing.T) {
	const bothDomains = `clouds:
  openshift:
    auth:
      auth_url: http://keystone.example.com:5000/v3
      username: openshift
      password: s3cret
      project_name: openshift
      user_domain_id: default
      user_domain_name: Default
`

	tests := []struct {
		name string
		load func(t *testing.T) (*Config, error)
	}{
		{
			name: "clouds.yaml",
			load: func(t *testing.T) (*Config, error) {
				return Load("openshift", clouds.WithCloudsYAML(strings.NewReader(bothDomains)))
			},
		},
		{
			name: "environment",
			load: func(t *testing.T) (*Config, error) {
				t.Setenv("OS_AUTH_URL", "http://keystone.example.com:5000/v3")
				t.Setenv("OS_USERNAME", "openshift")
				t.Setenv("OS_PASSWORD", "s3cret")
				t.Setenv("OS_PROJECT_ID", "project-id")
				t.Setenv("OS_USER_DOMAIN_ID", "default")
				t.Setenv("OS_USER_DOMAIN_NAME", "Default")
				return Load("")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupEnv(t, cloudsYAML)

			cfg, err := tt.load(t)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if cfg.AuthOptions.DomainID != "default" || cfg.AuthOptions.DomainName != "" {
				t.Errorf("expected only the domain id, got %q/%q", cfg.AuthOptions.DomainID, cfg.AuthOptions.DomainName)
			}
			if _, err := cfg.AuthOptions.ToTokenV3CreateMap(nil); err != nil {
				t.Errorf("expected a valid token request, got %v", err)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		cloud   string
	}{
		{
			name:    "unknown cloud",
			content: cloudsYAML,
			cloud:   "other",
		},
		{
			name:    "invalid yaml",
			content: "clouds: [",
			cloud:   "openshift",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupEnv(t, tt.content)

			_, err := Load(tt.cloud)
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.cloud) {
				t.Errorf("expected error to name cloud %s, got %v", tt.cloud, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); !errors.Is(err, ErrIncomplete) {
		t.Errorf("expected ErrIncomplete, got %v", err)
	}

	cfg.AuthOptions = gophercloud.AuthOptions{
		IdentityEndpoint:            "http://keystone.example.com:5000/v3",
		ApplicationCredentialID:     "cred-id",
		ApplicationCredentialSecret: "cred-secret",
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected application credentials to be valid, got %v", err)
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("OPENSHIFT_TEST_VALUE", "")
	if v := GetEnvOrDefault("OPENSHIFT_TEST_VALUE", "fallback"); v != "fallback" {
		t.Errorf("expected fallback, got %s", v)
	}

	t.Setenv("OPENSHIFT_TEST_VALUE", "set")
	if v := GetEnvOrDefault("OPENSHIFT_TEST_VALUE", "fallback"); v != "set" {
		t.Errorf("expected set, got %s", v)
	}
}
