// Package provision drives a workspace's backing compute instance and block
// volume pair.
//
// All operations are blocking waits: launch returns once the instance runs,
// terminate once it is gone, volume operations once the volume settles. A
// failed wait aborts the operation; nothing is retried or rolled back, so a
// mid-sequence failure can leave an orphaned resource behind.
package provision

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/hunoz/dave-user-api/internal/apperrors"
	"github.com/hunoz/dave-user-api/internal/logctx"
	"github.com/hunoz/dave-user-api/internal/model"
	"github.com/hunoz/dave-user-api/internal/platform/ec2"
	"github.com/hunoz/dave-user-api/internal/platform/ssm"
)

// Network pins every workspace to one VPC, subnet, and availability zone,
// resolved once at startup.
type Network struct {
	VpcID            string
	SubnetID         string
	AvailabilityZone string
}

// LaunchRequest describes the instance side of a workspace.
type LaunchRequest struct {
	// Name is the deterministic workspace resource name; it tags the
	// instance and names its profile and security group.
	Name            string
	Architecture    model.CPUArchitecture
	SecurityGroupID string
	UserData        string
}

// Compute is the provisioning contract consumed by the reconciler.
type Compute interface {
	// ResolveLatestImage returns the current base image for an architecture.
	ResolveLatestImage(ctx context.Context, arch model.CPUArchitecture) (string, error)
	// Launch starts an instance and blocks until it is running.
	Launch(ctx context.Context, req LaunchRequest) (ec2types.Instance, error)
	// EnsureSecurityGroup finds or creates the workspace security group.
	EnsureSecurityGroup(ctx context.Context, name string) (string, error)
	// ProvisionVolume finds the volume tagged name, creating it at sizeGiB
	// when absent, and returns it.
	ProvisionVolume(ctx context.Context, name string, sizeGiB int32) (ec2types.Volume, error)
	// ResizeVolume grows the volume tagged name in place, creating it when
	// absent, and returns it.
	ResizeVolume(ctx context.Context, name string, sizeGiB int32) (ec2types.Volume, error)
	// AttachVolume attaches a volume and blocks until it is in use.
	AttachVolume(ctx context.Context, instanceID, volumeID string) error
	// TerminateAndAwait terminates an instance and blocks until terminated.
	TerminateAndAwait(ctx context.Context, instanceID string) error
	// DescribeStatus returns the instance's current backing state.
	DescribeStatus(ctx context.Context, instanceID string) (ec2types.Instance, error)
	// DescribeAll batch-describes instances keyed by id.
	DescribeAll(ctx context.Context, instanceIDs []string) (map[string]ec2types.Instance, error)
	// Retag renames a resource's Name tag. Works for instances and
	// volumes alike.
	Retag(ctx context.Context, resourceID, name string) error
	// Replace terminates the old instance, launches a replacement, and
	// reattaches the existing volume.
	Replace(ctx context.Context, oldInstanceID string, req LaunchRequest, volumeID string) (ec2types.Instance, error)
}

// Provisioner implements Compute over the EC2 and SSM wrappers.
type Provisioner struct {
	ec2     ec2.API
	ssm     ssm.API
	network Network
}

var _ Compute = (*Provisioner)(nil)

// NewProvisioner creates a provisioner bound to one network placement.
func NewProvisioner(ec2Client ec2.API, ssmClient ssm.API, network Network) *Provisioner {
	return &Provisioner{ec2: ec2Client, ssm: ssmClient, network: network}
}

// ResolveLatestImage resolves the architecture's base image. Failure is
// fatal for the operation.
func (p *Provisioner) ResolveLatestImage(ctx context.Context, arch model.CPUArchitecture) (string, error) {
	imageID, err := p.ssm.LatestImage(ctx, arch)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return imageID, nil
}

// Launch resolves the image and starts the instance, blocking until it runs.
func (p *Provisioner) Launch(ctx context.Context, req LaunchRequest) (ec2types.Instance, error) {
	log := logctx.From(ctx)

	imageID, err := p.ResolveLatestImage(ctx, req.Architecture)
	if err != nil {
		return ec2types.Instance{}, err
	}

	log.Info("launching instance", "name", req.Name, "image", imageID, "arch", req.Architecture)
	instance, err := p.ec2.RunInstance(ctx, ec2.LaunchSpec{
		Name:            req.Name,
		Architecture:    req.Architecture,
		ImageID:         imageID,
		SubnetID:        p.network.SubnetID,
		SecurityGroupID: req.SecurityGroupID,
		UserData:        req.UserData,
	})
	if err != nil {
		log.Error("error launching instance", "name", req.Name, "error", err)
		return ec2types.Instance{}, apperrors.Internal(err)
	}

	log.Info("instance running", "name", req.Name, "instance_id", aws.ToString(instance.InstanceId))
	return instance, nil
}

// EnsureSecurityGroup finds or creates the group in the pinned VPC.
func (p *Provisioner) EnsureSecurityGroup(ctx context.Context, name string) (string, error) {
	groupID, err := p.ec2.EnsureSecurityGroup(ctx, name, p.network.VpcID)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return groupID, nil
}

// ProvisionVolume reuses the tagged volume when one exists, creating it
// otherwise.
func (p *Provisioner) ProvisionVolume(ctx context.Context, name string, sizeGiB int32) (ec2types.Volume, error) {
	log := logctx.From(ctx)

	existing, err := p.ec2.FindVolumeByName(ctx, name)
	if err != nil {
		return ec2types.Volume{}, apperrors.Internal(err)
	}
	if existing != nil {
		return *existing, nil
	}

	log.Info("creating volume", "name", name, "size_gib", sizeGiB)
	volume, err := p.ec2.CreateVolume(ctx, name, p.network.AvailabilityZone, sizeGiB)
	if err != nil {
		log.Error("error creating volume", "name", name, "error", err)
		return ec2types.Volume{}, apperrors.Internal(err)
	}
	return volume, nil
}

// ResizeVolume grows the tagged volume in place. When no tagged volume
// exists a fresh one is created at the requested size instead.
func (p *Provisioner) ResizeVolume(ctx context.Context, name string, sizeGiB int32) (ec2types.Volume, error) {
	log := logctx.From(ctx)

	existing, err := p.ec2.FindVolumeByName(ctx, name)
	if err != nil {
		return ec2types.Volume{}, apperrors.Internal(err)
	}
	if existing == nil {
		return p.ProvisionVolume(ctx, name, sizeGiB)
	}

	log.Info("resizing volume", "name", name, "volume_id", aws.ToString(existing.VolumeId), "size_gib", sizeGiB)
	if err := p.ec2.ResizeVolume(ctx, aws.ToString(existing.VolumeId), sizeGiB); err != nil {
		log.Error("error resizing volume", "name", name, "error", err)
		return ec2types.Volume{}, apperrors.Internal(err)
	}
	return *existing, nil
}

// AttachVolume attaches and waits for in-use.
func (p *Provisioner) AttachVolume(ctx context.Context, instanceID, volumeID string) error {
	if err := p.ec2.AttachVolume(ctx, instanceID, volumeID); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// TerminateAndAwait terminates and waits for the terminated state.
func (p *Provisioner) TerminateAndAwait(ctx context.Context, instanceID string) error {
	logctx.From(ctx).Info("terminating instance", "instance_id", instanceID)
	if err := p.ec2.TerminateInstance(ctx, instanceID); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// DescribeStatus returns the instance for status derivation.
func (p *Provisioner) DescribeStatus(ctx context.Context, instanceID string) (ec2types.Instance, error) {
	instance, err := p.ec2.DescribeInstance(ctx, instanceID)
	if err != nil {
		return ec2types.Instance{}, apperrors.Internal(err)
	}
	return instance, nil
}

// DescribeAll batch-describes instances for the list operation.
func (p *Provisioner) DescribeAll(ctx context.Context, instanceIDs []string) (map[string]ec2types.Instance, error) {
	instances, err := p.ec2.DescribeInstances(ctx, instanceIDs)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return instances, nil
}

// Retag renames the resource.
func (p *Provisioner) Retag(ctx context.Context, resourceID, name string) error {
	if err := p.ec2.TagName(ctx, resourceID, name); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// Replace runs the replacement protocol: terminate-and-await the old
// instance, launch the new one, reattach the existing volume. A failure
// after termination leaves the workspace without an instance; that partial
// state is accepted and surfaced, not rolled back.
func (p *Provisioner) Replace(ctx context.Context, oldInstanceID string, req LaunchRequest, volumeID string) (ec2types.Instance, error) {
	log := logctx.From(ctx)
	log.Info("replacing instance", "old_instance_id", oldInstanceID, "name", req.Name)

	if err := p.TerminateAndAwait(ctx, oldInstanceID); err != nil {
		return ec2types.Instance{}, err
	}

	instance, err := p.Launch(ctx, req)
	if err != nil {
		return ec2types.Instance{}, err
	}

	if err := p.AttachVolume(ctx, aws.ToString(instance.InstanceId), volumeID); err != nil {
		return ec2types.Instance{}, fmt.Errorf("replacement instance %s launched but volume attach failed: %w",
			aws.ToString(instance.InstanceId), err)
	}

	log.Info("instance replaced",
		"old_instance_id", oldInstanceID,
		"new_instance_id", aws.ToString(instance.InstanceId))
	return instance, nil
}
