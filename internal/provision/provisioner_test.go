package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunoz/dave-user-api/internal/apperrors"
	"github.com/hunoz/dave-user-api/internal/model"
	"github.com/hunoz/dave-user-api/internal/platform/ec2"
	"github.com/hunoz/dave-user-api/internal/platform/ssm"
)

var testNetwork = Network{
	VpcID:            "vpc-test",
	SubnetID:         "subnet-test",
	AvailabilityZone: "us-east-1a",
}

func TestLaunchResolvesImageAndPlacement(t *testing.T) {
	var spec ec2.LaunchSpec
	ec2Mock := &ec2.Mock{
		RunInstanceFunc: func(_ context.Context, s ec2.LaunchSpec) (ec2types.Instance, error) {
			spec = s
			return ec2.RunningInstance("i-123"), nil
		},
	}
	ssmMock := &ssm.Mock{
		LatestImageFunc: func(_ context.Context, arch model.CPUArchitecture) (string, error) {
			assert.Equal(t, model.ArchARM64, arch)
			return "ami-al2023-arm64", nil
		},
	}
	p := NewProvisioner(ec2Mock, ssmMock, testNetwork)

	instance, err := p.Launch(context.Background(), LaunchRequest{
		Name:            "dave-workspace-alice-dev1",
		Architecture:    model.ArchARM64,
		SecurityGroupID: "sg-1",
		UserData:        "#!/bin/bash",
	})
	require.NoError(t, err)

	assert.Equal(t, "i-123", aws.ToString(instance.InstanceId))
	assert.Equal(t, "ami-al2023-arm64", spec.ImageID)
	assert.Equal(t, "subnet-test", spec.SubnetID)
	assert.Equal(t, "sg-1", spec.SecurityGroupID)
	assert.Equal(t, "dave-workspace-alice-dev1", spec.Name)
}

func TestLaunchImageLookupFailureIsFatal(t *testing.T) {
	ssmMock := &ssm.Mock{
		LatestImageFunc: func(context.Context, model.CPUArchitecture) (string, error) {
			return "", errors.New("parameter not found")
		},
	}
	p := NewProvisioner(&ec2.Mock{}, ssmMock, testNetwork)

	_, err := p.Launch(context.Background(), LaunchRequest{Architecture: model.ArchX8664})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
}

func TestProvisionVolumeReusesExisting(t *testing.T) {
	created := false
	ec2Mock := &ec2.Mock{
		FindVolumeByNameFunc: func(_ context.Context, name string) (*ec2types.Volume, error) {
			return &ec2types.Volume{VolumeId: aws.String("vol-existing")}, nil
		},
		CreateVolumeFunc: func(context.Context, string, string, int32) (ec2types.Volume, error) {
			created = true
			return ec2types.Volume{}, nil
		},
	}
	p := NewProvisioner(ec2Mock, &ssm.Mock{}, testNetwork)

	volume, err := p.ProvisionVolume(context.Background(), "dave-workspace-alice-dev1", 8)
	require.NoError(t, err)
	assert.Equal(t, "vol-existing", aws.ToString(volume.VolumeId))
	assert.False(t, created, "must not create a volume when one exists")
}

func TestProvisionVolumeCreatesWhenAbsent(t *testing.T) {
	ec2Mock := &ec2.Mock{
		CreateVolumeFunc: func(_ context.Context, name, az string, sizeGiB int32) (ec2types.Volume, error) {
			assert.Equal(t, "us-east-1a", az)
			assert.Equal(t, int32(100), sizeGiB)
			return ec2types.Volume{VolumeId: aws.String("vol-new"), Size: aws.Int32(sizeGiB)}, nil
		},
	}
	p := NewProvisioner(ec2Mock, &ssm.Mock{}, testNetwork)

	volume, err := p.ProvisionVolume(context.Background(), "dave-workspace-alice-dev1", 100)
	require.NoError(t, err)
	assert.Equal(t, "vol-new", aws.ToString(volume.VolumeId))
}

func TestResizeVolumeGrowsInPlace(t *testing.T) {
	resized := false
	ec2Mock := &ec2.Mock{
		FindVolumeByNameFunc: func(context.Context, string) (*ec2types.Volume, error) {
			return &ec2types.Volume{VolumeId: aws.String("vol-1"), Size: aws.Int32(8)}, nil
		},
		ResizeVolumeFunc: func(_ context.Context, volumeID string, sizeGiB int32) error {
			resized = true
			assert.Equal(t, "vol-1", volumeID)
			assert.Equal(t, int32(100), sizeGiB)
			return nil
		},
		CreateVolumeFunc: func(context.Context, string, string, int32) (ec2types.Volume, error) {
			t.Fatal("resize must not create a replacement volume")
			return ec2types.Volume{}, nil
		},
	}
	p := NewProvisioner(ec2Mock, &ssm.Mock{}, testNetwork)

	volume, err := p.ResizeVolume(context.Background(), "dave-workspace-alice-dev1", 100)
	require.NoError(t, err)
	assert.True(t, resized)
	assert.Equal(t, "vol-1", aws.ToString(volume.VolumeId))
}

func TestResizeVolumeCreatesWhenAbsent(t *testing.T) {
	ec2Mock := &ec2.Mock{
		CreateVolumeFunc: func(_ context.Context, name, az string, sizeGiB int32) (ec2types.Volume, error) {
			return ec2types.Volume{VolumeId: aws.String("vol-new"), Size: aws.Int32(sizeGiB)}, nil
		},
	}
	p := NewProvisioner(ec2Mock, &ssm.Mock{}, testNetwork)

	volume, err := p.ResizeVolume(context.Background(), "dave-workspace-alice-dev1", 100)
	require.NoError(t, err)
	assert.Equal(t, "vol-new", aws.ToString(volume.VolumeId))
}

func TestReplaceSequence(t *testing.T) {
	var order []string
	ec2Mock := &ec2.Mock{
		TerminateInstanceFunc: func(_ context.Context, instanceID string) error {
			order = append(order, "terminate:"+instanceID)
			return nil
		},
		RunInstanceFunc: func(_ context.Context, spec ec2.LaunchSpec) (ec2types.Instance, error) {
			order = append(order, "launch:"+spec.Name)
			return ec2.RunningInstance("i-new"), nil
		},
		AttachVolumeFunc: func(_ context.Context, instanceID, volumeID string) error {
			order = append(order, "attach:"+instanceID+":"+volumeID)
			return nil
		},
	}
	p := NewProvisioner(ec2Mock, &ssm.Mock{}, testNetwork)

	instance, err := p.Replace(context.Background(), "i-old", LaunchRequest{
		Name:         "dave-workspace-alice-dev1",
		Architecture: model.ArchARM64,
	}, "vol-1")
	require.NoError(t, err)

	assert.Equal(t, "i-new", aws.ToString(instance.InstanceId))
	assert.Equal(t, []string{
		"terminate:i-old",
		"launch:dave-workspace-alice-dev1",
		"attach:i-new:vol-1",
	}, order)
}

func TestReplaceAbortsWhenTerminateFails(t *testing.T) {
	launched := false
	ec2Mock := &ec2.Mock{
		TerminateInstanceFunc: func(context.Context, string) error {
			return errors.New("wait timed out")
		},
		RunInstanceFunc: func(context.Context, ec2.LaunchSpec) (ec2types.Instance, error) {
			launched = true
			return ec2types.Instance{}, nil
		},
	}
	p := NewProvisioner(ec2Mock, &ssm.Mock{}, testNetwork)

	_, err := p.Replace(context.Background(), "i-old", LaunchRequest{Architecture: model.ArchARM64}, "vol-1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
	assert.False(t, launched, "launch must not run when termination fails")
}

func TestReplaceSurfacesAttachFailure(t *testing.T) {
	ec2Mock := &ec2.Mock{
		AttachVolumeFunc: func(context.Context, string, string) error {
			return errors.New("volume stuck attaching")
		},
	}
	p := NewProvisioner(ec2Mock, &ssm.Mock{}, testNetwork)

	_, err := p.Replace(context.Background(), "i-old", LaunchRequest{Architecture: model.ArchARM64}, "vol-1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
}
