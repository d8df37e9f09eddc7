package workspace

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/require"

	"github.com/hunoz/dave-user-api/internal/identity"
	"github.com/hunoz/dave-user-api/internal/model"
	"github.com/hunoz/dave-user-api/internal/provision"
	"github.com/hunoz/dave-user-api/internal/store"
	"github.com/hunoz/dave-user-api/internal/userdata"
)

func newTestReconciler(t *testing.T, st store.Store, compute provision.Compute, sync identity.Sync) *Reconciler {
	t.Helper()
	renderer, err := userdata.NewRenderer()
	require.NoError(t, err)
	return NewReconciler(st, compute, sync, renderer)
}

func storedWorkspace() *model.Workspace {
	return &model.Workspace{
		ID:                "ws-1",
		Name:              "dev1",
		Username:          "alice",
		CloudIdentifier:   "i-old",
		WorkspaceType:     model.WorkspaceTypeMicro,
		CPUArchitecture:   model.ArchARM64,
		Description:       "scratch box",
		LanguageRuntimes:  []model.LanguageRuntime{"python@3.12"},
		PackagesToInstall: []string{"git"},
	}
}

type (
	ec2Instance = ec2types.Instance
	ec2Volume   = ec2types.Volume
)

func instanceInState(id string, state ec2types.InstanceStateName) ec2types.Instance {
	return ec2types.Instance{
		InstanceId: aws.String(id),
		State:      &ec2types.InstanceState{Name: state},
	}
}

func volumeWithID(id string, sizeGiB int32) ec2types.Volume {
	return ec2types.Volume{VolumeId: aws.String(id), Size: aws.Int32(sizeGiB)}
}
