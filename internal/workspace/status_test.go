package workspace

import (
	"testing"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunoz/dave-user-api/internal/apperrors"
	"github.com/hunoz/dave-user-api/internal/model"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		state ec2types.InstanceStateName
		want  model.WorkspaceStatus
	}{
		{ec2types.InstanceStateNamePending, model.StatusStarting},
		{ec2types.InstanceStateNameRunning, model.StatusRunning},
		{ec2types.InstanceStateNameStopped, model.StatusOff},
		{ec2types.InstanceStateNameStopping, model.StatusShuttingDown},
		{ec2types.InstanceStateNameShuttingDown, model.StatusShuttingDown},
		{ec2types.InstanceStateNameTerminated, model.StatusTerminated},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			got, err := statusOf(instanceInState("i-1", tt.state))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusUnmappedStateIsFatal(t *testing.T) {
	_, err := statusOf(instanceInState("i-1", "hibernated"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindInternal))
}

func TestStatusMissingStateIsFatal(t *testing.T) {
	_, err := statusOf(ec2types.Instance{})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindInternal))
}
