package provision

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/hunoz/dave-user-api/internal/model"
)

// Mock is a func-field mock of Compute for tests.
type Mock struct {
	ResolveLatestImageFunc  func(ctx context.Context, arch model.CPUArchitecture) (string, error)
	LaunchFunc              func(ctx context.Context, req LaunchRequest) (ec2types.Instance, error)
	EnsureSecurityGroupFunc func(ctx context.Context, name string) (string, error)
	ProvisionVolumeFunc     func(ctx context.Context, name string, sizeGiB int32) (ec2types.Volume, error)
	ResizeVolumeFunc        func(ctx context.Context, name string, sizeGiB int32) (ec2types.Volume, error)
	AttachVolumeFunc        func(ctx context.Context, instanceID, volumeID string) error
	TerminateAndAwaitFunc   func(ctx context.Context, instanceID string) error
	DescribeStatusFunc      func(ctx context.Context, instanceID string) (ec2types.Instance, error)
	DescribeAllFunc         func(ctx context.Context, instanceIDs []string) (map[string]ec2types.Instance, error)
	RetagFunc               func(ctx context.Context, instanceID, name string) error
	ReplaceFunc             func(ctx context.Context, oldInstanceID string, req LaunchRequest, volumeID string) (ec2types.Instance, error)
}

var _ Compute = (*Mock)(nil)

func runningInstance(instanceID string) ec2types.Instance {
	return ec2types.Instance{
		InstanceId: aws.String(instanceID),
		State:      &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
	}
}

func (m *Mock) ResolveLatestImage(ctx context.Context, arch model.CPUArchitecture) (string, error) {
	if m.ResolveLatestImageFunc != nil {
		return m.ResolveLatestImageFunc(ctx, arch)
	}
	return "ami-mock", nil
}

func (m *Mock) Launch(ctx context.Context, req LaunchRequest) (ec2types.Instance, error) {
	if m.LaunchFunc != nil {
		return m.LaunchFunc(ctx, req)
	}
	return runningInstance("i-new"), nil
}

func (m *Mock) EnsureSecurityGroup(ctx context.Context, name string) (string, error) {
	if m.EnsureSecurityGroupFunc != nil {
		return m.EnsureSecurityGroupFunc(ctx, name)
	}
	return "sg-mock", nil
}

func (m *Mock) ProvisionVolume(ctx context.Context, name string, sizeGiB int32) (ec2types.Volume, error) {
	if m.ProvisionVolumeFunc != nil {
		return m.ProvisionVolumeFunc(ctx, name, sizeGiB)
	}
	return ec2types.Volume{VolumeId: aws.String("vol-mock"), Size: aws.Int32(sizeGiB)}, nil
}

func (m *Mock) ResizeVolume(ctx context.Context, name string, sizeGiB int32) (ec2types.Volume, error) {
	if m.ResizeVolumeFunc != nil {
		return m.ResizeVolumeFunc(ctx, name, sizeGiB)
	}
	return ec2types.Volume{VolumeId: aws.String("vol-mock"), Size: aws.Int32(sizeGiB)}, nil
}

func (m *Mock) AttachVolume(ctx context.Context, instanceID, volumeID string) error {
	if m.AttachVolumeFunc != nil {
		return m.AttachVolumeFunc(ctx, instanceID, volumeID)
	}
	return nil
}

func (m *Mock) TerminateAndAwait(ctx context.Context, instanceID string) error {
	if m.TerminateAndAwaitFunc != nil {
		return m.TerminateAndAwaitFunc(ctx, instanceID)
	}
	return nil
}

func (m *Mock) DescribeStatus(ctx context.Context, instanceID string) (ec2types.Instance, error) {
	if m.DescribeStatusFunc != nil {
		return m.DescribeStatusFunc(ctx, instanceID)
	}
	return runningInstance(instanceID), nil
}

func (m *Mock) DescribeAll(ctx context.Context, instanceIDs []string) (map[string]ec2types.Instance, error) {
	if m.DescribeAllFunc != nil {
		return m.DescribeAllFunc(ctx, instanceIDs)
	}
	instances := make(map[string]ec2types.Instance, len(instanceIDs))
	for _, id := range instanceIDs {
		instances[id] = runningInstance(id)
	}
	return instances, nil
}

func (m *Mock) Retag(ctx context.Context, instanceID, name string) error {
	if m.RetagFunc != nil {
		return m.RetagFunc(ctx, instanceID, name)
	}
	return nil
}

func (m *Mock) Replace(ctx context.Context, oldInstanceID string, req LaunchRequest, volumeID string) (ec2types.Instance, error) {
	if m.ReplaceFunc != nil {
		return m.ReplaceFunc(ctx, oldInstanceID, req, volumeID)
	}
	return runningInstance("i-replacement"), nil
}
