package workspace

import (
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/hunoz/dave-user-api/internal/apperrors"
	"github.com/hunoz/dave-user-api/internal/model"
)

// statusOf maps the backing instance state to a workspace status. The
// mapping is total over the states an instance can report; anything else is
// an internal error rather than a guessed status.
func statusOf(instance ec2types.Instance) (model.WorkspaceStatus, error) {
	if instance.State == nil {
		return "", apperrors.Internalf("instance %s has no state", stringOrEmpty(instance.InstanceId))
	}
	switch instance.State.Name {
	case ec2types.InstanceStateNamePending:
		return model.StatusStarting, nil
	case ec2types.InstanceStateNameRunning:
		return model.StatusRunning, nil
	case ec2types.InstanceStateNameStopped:
		return model.StatusOff, nil
	case ec2types.InstanceStateNameStopping, ec2types.InstanceStateNameShuttingDown:
		return model.StatusShuttingDown, nil
	case ec2types.InstanceStateNameTerminated:
		return model.StatusTerminated, nil
	default:
		return "", apperrors.Internalf("unmapped instance state %q", instance.State.Name)
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
