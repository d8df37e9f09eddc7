package ec2

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// Mock is a func-field mock of API for tests. Unset fields return benign
// defaults.
type Mock struct {
	RunInstanceFunc         func(ctx context.Context, spec LaunchSpec) (types.Instance, error)
	TerminateInstanceFunc   func(ctx context.Context, instanceID string) error
	DescribeInstanceFunc    func(ctx context.Context, instanceID string) (types.Instance, error)
	DescribeInstancesFunc   func(ctx context.Context, instanceIDs []string) (map[string]types.Instance, error)
	TagNameFunc             func(ctx context.Context, resourceID, name string) error
	EnsureSecurityGroupFunc func(ctx context.Context, name, vpcID string) (string, error)
	FindVolumeByNameFunc    func(ctx context.Context, name string) (*types.Volume, error)
	CreateVolumeFunc        func(ctx context.Context, name, availabilityZone string, sizeGiB int32) (types.Volume, error)
	ResizeVolumeFunc        func(ctx context.Context, volumeID string, sizeGiB int32) error
	AttachVolumeFunc        func(ctx context.Context, instanceID, volumeID string) error
	DescribeSubnetFunc      func(ctx context.Context, subnetID string) (types.Subnet, error)
}

var _ API = (*Mock)(nil)

// RunningInstance is a convenience for building a running instance in tests.
func RunningInstance(instanceID string) types.Instance {
	return types.Instance{
		InstanceId: aws.String(instanceID),
		State:      &types.InstanceState{Name: types.InstanceStateNameRunning},
	}
}

func (m *Mock) RunInstance(ctx context.Context, spec LaunchSpec) (types.Instance, error) {
	if m.RunInstanceFunc != nil {
		return m.RunInstanceFunc(ctx, spec)
	}
	return RunningInstance("i-mock"), nil
}

func (m *Mock) TerminateInstance(ctx context.Context, instanceID string) error {
	if m.TerminateInstanceFunc != nil {
		return m.TerminateInstanceFunc(ctx, instanceID)
	}
	return nil
}

func (m *Mock) DescribeInstance(ctx context.Context, instanceID string) (types.Instance, error) {
	if m.DescribeInstanceFunc != nil {
		return m.DescribeInstanceFunc(ctx, instanceID)
	}
	return RunningInstance(instanceID), nil
}

func (m *Mock) DescribeInstances(ctx context.Context, instanceIDs []string) (map[string]types.Instance, error) {
	if m.DescribeInstancesFunc != nil {
		return m.DescribeInstancesFunc(ctx, instanceIDs)
	}
	instances := make(map[string]types.Instance, len(instanceIDs))
	for _, id := range instanceIDs {
		instances[id] = RunningInstance(id)
	}
	return instances, nil
}

func (m *Mock) TagName(ctx context.Context, resourceID, name string) error {
	if m.TagNameFunc != nil {
		return m.TagNameFunc(ctx, resourceID, name)
	}
	return nil
}

func (m *Mock) EnsureSecurityGroup(ctx context.Context, name, vpcID string) (string, error) {
	if m.EnsureSecurityGroupFunc != nil {
		return m.EnsureSecurityGroupFunc(ctx, name, vpcID)
	}
	return "sg-mock", nil
}

func (m *Mock) FindVolumeByName(ctx context.Context, name string) (*types.Volume, error) {
	if m.FindVolumeByNameFunc != nil {
		return m.FindVolumeByNameFunc(ctx, name)
	}
	return nil, nil
}

func (m *Mock) CreateVolume(ctx context.Context, name, availabilityZone string, sizeGiB int32) (types.Volume, error) {
	if m.CreateVolumeFunc != nil {
		return m.CreateVolumeFunc(ctx, name, availabilityZone, sizeGiB)
	}
	return types.Volume{VolumeId: aws.String("vol-mock"), Size: aws.Int32(sizeGiB)}, nil
}

func (m *Mock) ResizeVolume(ctx context.Context, volumeID string, sizeGiB int32) error {
	if m.ResizeVolumeFunc != nil {
		return m.ResizeVolumeFunc(ctx, volumeID, sizeGiB)
	}
	return nil
}

func (m *Mock) AttachVolume(ctx context.Context, instanceID, volumeID string) error {
	if m.AttachVolumeFunc != nil {
		return m.AttachVolumeFunc(ctx, instanceID, volumeID)
	}
	return nil
}

func (m *Mock) DescribeSubnet(ctx context.Context, subnetID string) (types.Subnet, error) {
	if m.DescribeSubnetFunc != nil {
		return m.DescribeSubnetFunc(ctx, subnetID)
	}
	return types.Subnet{
		SubnetId:         aws.String(subnetID),
		AvailabilityZone: aws.String("us-east-1a"),
	}, nil
}
