// Package ec2 wraps the EC2 API calls the workspace service depends on:
// instance lifecycle, block volumes, and security groups.
//
// Every lifecycle method blocks until the resource reaches its terminal
// state; a wait failure is surfaced to the caller and never retried here.
package ec2

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"github.com/hunoz/dave-user-api/internal/model"
)

// Wait ceilings for blocking operations.
const (
	instanceRunningWait    = 10 * time.Minute
	instanceTerminatedWait = 10 * time.Minute
	volumeAvailableWait    = 10 * time.Minute
	volumeInUseWait        = 5 * time.Minute
)

// MaxProvisioningWait bounds the longest blocking sequence a single request
// can run: an instance replacement waits for terminate, launch, and both
// volume states back to back.
const MaxProvisioningWait = instanceTerminatedWait + instanceRunningWait + volumeAvailableWait + volumeInUseWait

// VolumeDevice is the device name workspace volumes are attached under.
const VolumeDevice = "/dev/sdb"

// instanceTypeByArch maps workspace architectures to instance families.
var instanceTypeByArch = map[model.CPUArchitecture]types.InstanceType{
	model.ArchARM64: types.InstanceTypeT4gMedium,
	model.ArchX8664: types.InstanceTypeT3Medium,
}

// LaunchSpec describes an instance to launch.
type LaunchSpec struct {
	// Name tags the instance and names its instance profile.
	Name            string
	Architecture    model.CPUArchitecture
	ImageID         string
	SubnetID        string
	SecurityGroupID string
	UserData        string
}

// API is the EC2 surface consumed by the provisioner.
type API interface {
	// RunInstance launches an instance and blocks until it is running.
	RunInstance(ctx context.Context, spec LaunchSpec) (types.Instance, error)
	// TerminateInstance terminates an instance and blocks until it is
	// terminated.
	TerminateInstance(ctx context.Context, instanceID string) error
	// DescribeInstance returns the current state of one instance.
	DescribeInstance(ctx context.Context, instanceID string) (types.Instance, error)
	// DescribeInstances returns the listed instances keyed by id. Unknown
	// ids are absent from the result.
	DescribeInstances(ctx context.Context, instanceIDs []string) (map[string]types.Instance, error)
	// TagName sets the Name tag on a resource.
	TagName(ctx context.Context, resourceID, name string) error
	// EnsureSecurityGroup finds the security group with the given name in
	// the VPC, creating it when absent, and returns its id.
	EnsureSecurityGroup(ctx context.Context, name, vpcID string) (string, error)
	// FindVolumeByName returns the volume tagged with the given name, or
	// nil when none exists.
	FindVolumeByName(ctx context.Context, name string) (*types.Volume, error)
	// CreateVolume creates a gp3 volume tagged with the given name and
	// blocks until it is available.
	CreateVolume(ctx context.Context, name, availabilityZone string, sizeGiB int32) (types.Volume, error)
	// ResizeVolume grows a volume in place and blocks until it is available
	// again.
	ResizeVolume(ctx context.Context, volumeID string, sizeGiB int32) error
	// AttachVolume attaches a volume and blocks until it is in use.
	AttachVolume(ctx context.Context, instanceID, volumeID string) error
	// DescribeSubnet returns the subnet, used to place volumes in the same
	// availability zone as instances.
	DescribeSubnet(ctx context.Context, subnetID string) (types.Subnet, error)
}

// Client is the real EC2-backed implementation of API.
type Client struct {
	ec2 *awsec2.Client
}

var _ API = (*Client)(nil)

// NewClient wraps an EC2 client.
func NewClient(client *awsec2.Client) *Client {
	return &Client{ec2: client}
}

// RunInstance launches the instance with monitoring enabled, a public
// address, and the instance profile named after the workspace, then waits
// for it to run.
func (c *Client) RunInstance(ctx context.Context, spec LaunchSpec) (types.Instance, error) {
	instanceType, ok := instanceTypeByArch[spec.Architecture]
	if !ok {
		return types.Instance{}, fmt.Errorf("no instance type for architecture %q", spec.Architecture)
	}

	out, err := c.ec2.RunInstances(ctx, &awsec2.RunInstancesInput{
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
		ImageId:      aws.String(spec.ImageID),
		InstanceType: instanceType,
		Monitoring:   &types.RunInstancesMonitoringEnabled{Enabled: aws.Bool(true)},
		IamInstanceProfile: &types.IamInstanceProfileSpecification{
			Name: aws.String(spec.Name),
		},
		NetworkInterfaces: []types.InstanceNetworkInterfaceSpecification{{
			DeviceIndex:              aws.Int32(0),
			SubnetId:                 aws.String(spec.SubnetID),
			Groups:                   []string{spec.SecurityGroupID},
			AssociatePublicIpAddress: aws.Bool(true),
		}},
		UserData: aws.String(base64.StdEncoding.EncodeToString([]byte(spec.UserData))),
		TagSpecifications: []types.TagSpecification{{
			ResourceType: types.ResourceTypeInstance,
			Tags:         []types.Tag{{Key: aws.String("Name"), Value: aws.String(spec.Name)}},
		}},
	})
	if err != nil {
		return types.Instance{}, fmt.Errorf("failed to run instance %s: %w", spec.Name, err)
	}
	if len(out.Instances) == 0 {
		return types.Instance{}, fmt.Errorf("run instance %s returned no instances", spec.Name)
	}

	instanceID := aws.ToString(out.Instances[0].InstanceId)

	waiter := awsec2.NewInstanceRunningWaiter(c.ec2)
	described, err := waiter.WaitForOutput(ctx, &awsec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	}, instanceRunningWait)
	if err != nil {
		return types.Instance{}, fmt.Errorf("instance %s did not reach running: %w", instanceID, err)
	}

	instance, err := firstInstance(described)
	if err != nil {
		return types.Instance{}, fmt.Errorf("instance %s: %w", instanceID, err)
	}
	return instance, nil
}

// TerminateInstance terminates and waits for the terminated state.
func (c *Client) TerminateInstance(ctx context.Context, instanceID string) error {
	if _, err := c.ec2.TerminateInstances(ctx, &awsec2.TerminateInstancesInput{
		InstanceIds: []string{instanceID},
	}); err != nil {
		return fmt.Errorf("failed to terminate instance %s: %w", instanceID, err)
	}

	waiter := awsec2.NewInstanceTerminatedWaiter(c.ec2)
	if err := waiter.Wait(ctx, &awsec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	}, instanceTerminatedWait); err != nil {
		return fmt.Errorf("instance %s did not reach terminated: %w", instanceID, err)
	}
	return nil
}

// DescribeInstance returns a single instance.
func (c *Client) DescribeInstance(ctx context.Context, instanceID string) (types.Instance, error) {
	out, err := c.ec2.DescribeInstances(ctx, &awsec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return types.Instance{}, fmt.Errorf("failed to describe instance %s: %w", instanceID, err)
	}
	instance, err := firstInstance(out)
	if err != nil {
		return types.Instance{}, fmt.Errorf("instance %s: %w", instanceID, err)
	}
	return instance, nil
}

// DescribeInstances batch-describes the given ids.
func (c *Client) DescribeInstances(ctx context.Context, instanceIDs []string) (map[string]types.Instance, error) {
	out, err := c.ec2.DescribeInstances(ctx, &awsec2.DescribeInstancesInput{
		InstanceIds: instanceIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe instances: %w", err)
	}

	instances := make(map[string]types.Instance)
	for _, reservation := range out.Reservations {
		for _, instance := range reservation.Instances {
			instances[aws.ToString(instance.InstanceId)] = instance
		}
	}
	return instances, nil
}

// TagName sets the Name tag on a resource.
func (c *Client) TagName(ctx context.Context, resourceID, name string) error {
	if _, err := c.ec2.CreateTags(ctx, &awsec2.CreateTagsInput{
		Resources: []string{resourceID},
		Tags:      []types.Tag{{Key: aws.String("Name"), Value: aws.String(name)}},
	}); err != nil {
		return fmt.Errorf("failed to tag %s with name %s: %w", resourceID, name, err)
	}
	return nil
}

// EnsureSecurityGroup looks the group up by name, creating it when absent.
func (c *Client) EnsureSecurityGroup(ctx context.Context, name, vpcID string) (string, error) {
	out, err := c.ec2.DescribeSecurityGroups(ctx, &awsec2.DescribeSecurityGroupsInput{
		Filters: []types.Filter{
			{Name: aws.String("group-name"), Values: []string{name}},
			{Name: aws.String("vpc-id"), Values: []string{vpcID}},
		},
	})
	if err != nil && !isNotFound(err) {
		return "", fmt.Errorf("failed to describe security group %s: %w", name, err)
	}
	if out != nil && len(out.SecurityGroups) > 0 {
		return aws.ToString(out.SecurityGroups[0].GroupId), nil
	}

	created, err := c.ec2.CreateSecurityGroup(ctx, &awsec2.CreateSecurityGroupInput{
		GroupName:   aws.String(name),
		Description: aws.String(fmt.Sprintf("workspace security group %s", name)),
		VpcId:       aws.String(vpcID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create security group %s: %w", name, err)
	}
	return aws.ToString(created.GroupId), nil
}

// FindVolumeByName returns the volume with the matching Name tag, nil when
// there is none.
func (c *Client) FindVolumeByName(ctx context.Context, name string) (*types.Volume, error) {
	out, err := c.ec2.DescribeVolumes(ctx, &awsec2.DescribeVolumesInput{
		Filters: []types.Filter{
			{Name: aws.String("tag:Name"), Values: []string{name}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe volumes named %s: %w", name, err)
	}
	if len(out.Volumes) == 0 {
		return nil, nil
	}
	return &out.Volumes[0], nil
}

// CreateVolume creates a tagged gp3 volume and waits until it is available.
func (c *Client) CreateVolume(ctx context.Context, name, availabilityZone string, sizeGiB int32) (types.Volume, error) {
	out, err := c.ec2.CreateVolume(ctx, &awsec2.CreateVolumeInput{
		AvailabilityZone: aws.String(availabilityZone),
		Size:             aws.Int32(sizeGiB),
		VolumeType:       types.VolumeTypeGp3,
		TagSpecifications: []types.TagSpecification{{
			ResourceType: types.ResourceTypeVolume,
			Tags:         []types.Tag{{Key: aws.String("Name"), Value: aws.String(name)}},
		}},
	})
	if err != nil {
		return types.Volume{}, fmt.Errorf("failed to create volume %s: %w", name, err)
	}

	volumeID := aws.ToString(out.VolumeId)
	if err := c.waitVolumeAvailable(ctx, volumeID); err != nil {
		return types.Volume{}, err
	}

	described, err := c.ec2.DescribeVolumes(ctx, &awsec2.DescribeVolumesInput{
		VolumeIds: []string{volumeID},
	})
	if err != nil || len(described.Volumes) == 0 {
		return types.Volume{}, fmt.Errorf("failed to describe created volume %s: %w", volumeID, err)
	}
	return described.Volumes[0], nil
}

// ResizeVolume grows the volume in place and waits until it is usable again.
func (c *Client) ResizeVolume(ctx context.Context, volumeID string, sizeGiB int32) error {
	if _, err := c.ec2.ModifyVolume(ctx, &awsec2.ModifyVolumeInput{
		VolumeId:   aws.String(volumeID),
		Size:       aws.Int32(sizeGiB),
		VolumeType: types.VolumeTypeGp3,
	}); err != nil {
		return fmt.Errorf("failed to resize volume %s: %w", volumeID, err)
	}
	return c.waitVolumeAvailable(ctx, volumeID)
}

// AttachVolume attaches under the fixed workspace device and waits for the
// in-use state.
func (c *Client) AttachVolume(ctx context.Context, instanceID, volumeID string) error {
	if _, err := c.ec2.AttachVolume(ctx, &awsec2.AttachVolumeInput{
		Device:     aws.String(VolumeDevice),
		InstanceId: aws.String(instanceID),
		VolumeId:   aws.String(volumeID),
	}); err != nil {
		return fmt.Errorf("failed to attach volume %s to %s: %w", volumeID, instanceID, err)
	}

	waiter := awsec2.NewVolumeInUseWaiter(c.ec2)
	if err := waiter.Wait(ctx, &awsec2.DescribeVolumesInput{
		VolumeIds: []string{volumeID},
	}, volumeInUseWait); err != nil {
		return fmt.Errorf("volume %s did not reach in-use: %w", volumeID, err)
	}
	return nil
}

// DescribeSubnet returns the subnet.
func (c *Client) DescribeSubnet(ctx context.Context, subnetID string) (types.Subnet, error) {
	out, err := c.ec2.DescribeSubnets(ctx, &awsec2.DescribeSubnetsInput{
		SubnetIds: []string{subnetID},
	})
	if err != nil {
		return types.Subnet{}, fmt.Errorf("failed to describe subnet %s: %w", subnetID, err)
	}
	if len(out.Subnets) == 0 {
		return types.Subnet{}, fmt.Errorf("subnet %s not found", subnetID)
	}
	return out.Subnets[0], nil
}

func (c *Client) waitVolumeAvailable(ctx context.Context, volumeID string) error {
	waiter := awsec2.NewVolumeAvailableWaiter(c.ec2)
	if err := waiter.Wait(ctx, &awsec2.DescribeVolumesInput{
		VolumeIds: []string{volumeID},
	}, volumeAvailableWait); err != nil {
		return fmt.Errorf("volume %s did not reach available: %w", volumeID, err)
	}
	return nil
}

func firstInstance(out *awsec2.DescribeInstancesOutput) (types.Instance, error) {
	for _, reservation := range out.Reservations {
		if len(reservation.Instances) > 0 {
			return reservation.Instances[0], nil
		}
	}
	return types.Instance{}, errors.New("no instances in describe response")
}

// isNotFound reports whether the error is an EC2 *.NotFound API error.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidGroup.NotFound", "InvalidVolume.NotFound", "InvalidInstanceID.NotFound":
			return true
		}
	}
	return false
}
