package inventory

import "github.com/rs/zerolog/log"

// Host variable names consumed by openshift-ansible.
const (
	VarAnsibleHost             = "ansible_host"
	VarPublicV4                = "public_v4"
	VarPrivateV4               = "private_v4"
	VarOpenShiftPublicIP       = "openshift_public_ip"
	VarOpenShiftIP             = "openshift_ip"
	VarOpenShiftHostname       = "openshift_hostname"
	VarOpenShiftPublicHostname = "openshift_public_hostname"
	VarOpenShiftNodeLabels     = "openshift_node_labels"
)

// HostVariables derives the connection and OpenShift variables of a host.
//
// The private address is used for both openshift_ip and openshift_hostname:
// cluster nodes are not resolvable by name inside the tenant network.
// A host with no address at all keeps an empty ansible_host.
func HostVariables(s Server) HostVars {
	vars := HostVars{}

	switch {
	case s.PublicV4 != "":
		vars[VarAnsibleHost] = s.PublicV4
	case s.PrivateV4 != "":
		vars[VarAnsibleHost] = s.PrivateV4
	default:
		log.Warn().Str("server", s.Name).Msg("Server has no IPv4 address")
		vars[VarAnsibleHost] = ""
	}

	if s.PublicV4 != "" {
		vars[VarPublicV4] = s.PublicV4
		vars[VarOpenShiftPublicIP] = s.PublicV4
	}
	if s.PrivateV4 != "" {
		vars[VarPrivateV4] = s.PrivateV4
		vars[VarOpenShiftIP] = s.PrivateV4
		vars[VarOpenShiftHostname] = s.PrivateV4
	}
	vars[VarOpenShiftPublicHostname] = s.Name

	if labels := s.Metadata.Get(MetaNodeLabels); labels != "" {
		vars[VarOpenShiftNodeLabels] = labels
	}

	return vars
}
