package workspace

import (
	"context"
	"slices"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/hunoz/dave-user-api/internal/apperrors"
	"github.com/hunoz/dave-user-api/internal/logctx"
	"github.com/hunoz/dave-user-api/internal/model"
	"github.com/hunoz/dave-user-api/internal/naming"
	"github.com/hunoz/dave-user-api/internal/provision"
	"github.com/hunoz/dave-user-api/internal/userdata"
)

// UpdateInput carries the fields an update may change. Nil fields retain
// their stored values.
type UpdateInput struct {
	Name              *string
	WorkspaceType     *model.WorkspaceType
	CPUArchitecture   *model.CPUArchitecture
	Description       *string
	LanguageRuntimes  *[]model.LanguageRuntime
	PackagesToInstall *[]string
}

// Update applies changes to the owner's workspace. The workspace must be
// running. Changing architecture, workspace type, runtimes, or packages
// replaces the backing instance; a name or description change alone does
// not. The merged record is persisted last.
func (r *Reconciler) Update(ctx context.Context, username, name string, in UpdateInput) (*View, error) {
	log := logctx.From(ctx)

	ws, err := r.store.GetByNameAndOwner(ctx, name, username)
	if err != nil {
		return nil, err
	}

	instance, err := r.compute.DescribeStatus(ctx, ws.CloudIdentifier)
	if err != nil {
		return nil, err
	}
	status, err := statusOf(instance)
	if err != nil {
		return nil, err
	}
	if status != model.StatusRunning {
		return nil, apperrors.Conflict("Workspace is not running")
	}

	merged := *ws
	if in.Name != nil {
		merged.Name = *in.Name
	}
	if in.WorkspaceType != nil {
		merged.WorkspaceType = *in.WorkspaceType
	}
	if in.CPUArchitecture != nil {
		merged.CPUArchitecture = *in.CPUArchitecture
	}
	if in.Description != nil {
		merged.Description = *in.Description
	}
	if in.LanguageRuntimes != nil {
		merged.LanguageRuntimes = *in.LanguageRuntimes
	}
	if in.PackagesToInstall != nil {
		merged.PackagesToInstall = *in.PackagesToInstall
	}

	needsReplacement := merged.CPUArchitecture != ws.CPUArchitecture ||
		merged.WorkspaceType != ws.WorkspaceType ||
		!slices.Equal(merged.LanguageRuntimes, ws.LanguageRuntimes) ||
		!slices.Equal(merged.PackagesToInstall, ws.PackagesToInstall)

	oldTaggedName := naming.Workspace(username, ws.Name)
	newTaggedName := naming.Workspace(username, merged.Name)

	switch {
	case needsReplacement:
		replacement, err := r.replaceInstance(ctx, &merged, ws, oldTaggedName, newTaggedName)
		if err != nil {
			return nil, err
		}
		status, err = statusOf(replacement)
		if err != nil {
			return nil, err
		}
	case merged.Name != ws.Name:
		log.Info("renaming workspace resources", "instance", ws.CloudIdentifier, "name", newTaggedName)
		volume, err := r.compute.ProvisionVolume(ctx, oldTaggedName, merged.WorkspaceType.VolumeSizeGiB())
		if err != nil {
			return nil, err
		}
		if err := r.compute.Retag(ctx, ws.CloudIdentifier, newTaggedName); err != nil {
			return nil, err
		}
		if err := r.compute.Retag(ctx, stringOrEmpty(volume.VolumeId), newTaggedName); err != nil {
			return nil, err
		}
	}

	if err := r.store.Put(ctx, &merged); err != nil {
		return nil, apperrors.Internal(err)
	}
	return &View{Workspace: merged, Status: status}, nil
}

// replaceInstance terminates the old instance and launches a fresh one with
// the merged configuration, carrying the workspace volume over. The volume
// is resized in place first, but only when the workspace type changed; a
// same-size resize is rejected by the API.
func (r *Reconciler) replaceInstance(ctx context.Context, merged, previous *model.Workspace, oldTaggedName, newTaggedName string) (ec2types.Instance, error) {
	log := logctx.From(ctx)
	log.Info("replacing workspace instance",
		"instance", previous.CloudIdentifier, "name", newTaggedName)

	var volume ec2types.Volume
	var err error
	if merged.WorkspaceType != previous.WorkspaceType {
		volume, err = r.compute.ResizeVolume(ctx, oldTaggedName, merged.WorkspaceType.VolumeSizeGiB())
	} else {
		volume, err = r.compute.ProvisionVolume(ctx, oldTaggedName, merged.WorkspaceType.VolumeSizeGiB())
	}
	if err != nil {
		return ec2types.Instance{}, err
	}
	if oldTaggedName != newTaggedName {
		if err := r.compute.Retag(ctx, stringOrEmpty(volume.VolumeId), newTaggedName); err != nil {
			return ec2types.Instance{}, err
		}
	}

	securityGroupID, err := r.compute.EnsureSecurityGroup(ctx, newTaggedName)
	if err != nil {
		return ec2types.Instance{}, err
	}
	if err := r.identity.EnsureInstanceRole(ctx, newTaggedName); err != nil {
		return ec2types.Instance{}, err
	}

	script, err := r.renderer.Render(ctx, userdata.BuildContext(merged.Username, newTaggedName, merged.LanguageRuntimes, merged.PackagesToInstall))
	if err != nil {
		return ec2types.Instance{}, err
	}

	instance, err := r.compute.Replace(ctx, previous.CloudIdentifier, provision.LaunchRequest{
		Name:            newTaggedName,
		Architecture:    merged.CPUArchitecture,
		SecurityGroupID: securityGroupID,
		UserData:        script,
	}, stringOrEmpty(volume.VolumeId))
	if err != nil {
		return ec2types.Instance{}, err
	}
	newInstanceID := stringOrEmpty(instance.InstanceId)

	if err := r.identity.ReplaceInstanceAccess(ctx, merged.Username, previous.CloudIdentifier, r.identity.InstanceARN(newInstanceID)); err != nil {
		return ec2types.Instance{}, err
	}

	merged.CloudIdentifier = newInstanceID
	return instance, nil
}
