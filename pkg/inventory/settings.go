package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultStackName is the Heat stack deployed by the provisioning playbooks.
	DefaultStackName = "openshift.example.com"

	// StatusCreateComplete is the only stack status settings are read from.
	StatusCreateComplete = "CREATE_COMPLETE"
)

// ErrMissingStackOutput is returned when a completed stack lacks an output
// the Kuryr settings depend on.
var ErrMissingStackOutput = errors.New("missing stack output")

// stackOutputs maps setting names to the stack outputs they are read from.
var stackOutputs = []struct {
	setting string
	output  string
}{
	{"kuryr_openstack_pod_subnet_id", "pod_subnet"},
	{"kuryr_openstack_worker_nodes_subnet_id", "vm_subnet"},
	{"kuryr_openstack_service_subnet_id", "service_subnet"},
	{"kuryr_openstack_pod_sg_id", "pod_access_sg_id"},
}

// KuryrSettings returns the cluster networking settings derived from the
// named stack. It returns nil, nil when the stack does not exist or is not
// in CREATE_COMPLETE state.
func KuryrSettings(ctx context.Context, src Source, stackName string) (map[string]string, error) {
	stack, err := src.GetStack(ctx, stackName)
	if err != nil {
		return nil, fmt.Errorf("failed to get stack %s: %w", stackName, err)
	}
	if stack == nil {
		log.Debug().Str("stack", stackName).Msg("Stack not found, skipping Kuryr settings")
		return nil, nil
	}
	if stack.Status != StatusCreateComplete {
		log.Debug().Str("stack", stackName).Str("status", stack.Status).Msg("Stack not complete, skipping Kuryr settings")
		return nil, nil
	}

	settings := make(map[string]string, len(stackOutputs)+7)
	for _, o := range stackOutputs {
		value, ok := stack.Outputs[o.output]
		if !ok {
			return nil, fmt.Errorf("%w %q in stack %s", ErrMissingStackOutput, o.output, stackName)
		}
		settings[o.setting] = value
	}

	session, err := src.Session(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	settings["kuryr_openstack_pod_project_id"] = session.ProjectID
	settings["kuryr_openstack_auth_url"] = session.AuthURL
	settings["kuryr_openstack_username"] = session.Username
	settings["kuryr_openstack_password"] = session.Password
	settings["kuryr_openstack_user_domain_name"] = session.UserDomainID
	settings["kuryr_openstack_project_id"] = session.ProjectID
	settings["kuryr_openstack_project_domain_name"] = session.ProjectDomainID

	return settings, nil
}
