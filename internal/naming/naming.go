// Package naming derives the names that correlate a workspace with its
// backing cloud resources.
//
// Instance, instance role, instance profile, security group, and volume tag
// all share one deterministic name derived from the owner and the workspace
// name, so no lookup table is needed to find a workspace's resources.
package naming

import (
	"fmt"
	"strings"
)

// Workspace returns the shared resource name for a workspace:
// dave-workspace-<owner>-<name>, case-normalized.
func Workspace(username, workspaceName string) string {
	return fmt.Sprintf("dave-workspace-%s-%s",
		strings.ToLower(username), strings.ToLower(workspaceName))
}

// FederatedRole returns the per-owner federated role name: dave-user-<owner>.
func FederatedRole(username string) string {
	return fmt.Sprintf("dave-user-%s", strings.ToLower(username))
}

// FederatedPolicy is the inline policy attached to every federated role.
const FederatedPolicy = "FederatedRolePermissions"
