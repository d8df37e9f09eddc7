package workspace

import (
	"context"

	"github.com/google/uuid"

	"github.com/hunoz/dave-user-api/internal/apperrors"
	"github.com/hunoz/dave-user-api/internal/logctx"
	"github.com/hunoz/dave-user-api/internal/model"
	"github.com/hunoz/dave-user-api/internal/naming"
	"github.com/hunoz/dave-user-api/internal/provision"
	"github.com/hunoz/dave-user-api/internal/userdata"
)

// CreateInput carries the caller-supplied fields of a new workspace.
type CreateInput struct {
	Name              string
	WorkspaceType     model.WorkspaceType
	CPUArchitecture   model.CPUArchitecture
	Description       string
	LanguageRuntimes  []model.LanguageRuntime
	PackagesToInstall []string
}

// Create provisions a new workspace for the owner: security group, instance
// role, block volume sized by workspace type, instance with rendered
// bootstrap script, volume attachment, and federated session access. The
// record is persisted only after every cloud step has succeeded.
func (r *Reconciler) Create(ctx context.Context, username string, in CreateInput) (*View, error) {
	log := logctx.From(ctx)

	existing, err := r.store.GetByNameAndOwner(ctx, in.Name, username)
	if err != nil && !apperrors.Is(err, apperrors.KindNotFound) {
		return nil, apperrors.Internal(err)
	}
	if existing != nil {
		return nil, apperrors.Conflict("Workspace already exists")
	}

	taggedName := naming.Workspace(username, in.Name)
	log.Info("creating workspace", "username", username, "name", in.Name, "resource", taggedName)

	securityGroupID, err := r.compute.EnsureSecurityGroup(ctx, taggedName)
	if err != nil {
		return nil, err
	}

	if err := r.identity.EnsureInstanceRole(ctx, taggedName); err != nil {
		return nil, err
	}

	volume, err := r.compute.ProvisionVolume(ctx, taggedName, in.WorkspaceType.VolumeSizeGiB())
	if err != nil {
		return nil, err
	}

	script, err := r.renderer.Render(ctx, userdata.BuildContext(username, taggedName, in.LanguageRuntimes, in.PackagesToInstall))
	if err != nil {
		return nil, err
	}

	instance, err := r.compute.Launch(ctx, provision.LaunchRequest{
		Name:            taggedName,
		Architecture:    in.CPUArchitecture,
		SecurityGroupID: securityGroupID,
		UserData:        script,
	})
	if err != nil {
		return nil, err
	}
	instanceID := stringOrEmpty(instance.InstanceId)

	if err := r.compute.AttachVolume(ctx, instanceID, stringOrEmpty(volume.VolumeId)); err != nil {
		return nil, err
	}

	if err := r.identity.GrantInstanceAccess(ctx, username, r.identity.InstanceARN(instanceID)); err != nil {
		return nil, err
	}

	ws := &model.Workspace{
		ID:                uuid.NewString(),
		Name:              in.Name,
		Username:          username,
		CloudIdentifier:   instanceID,
		WorkspaceType:     in.WorkspaceType,
		CPUArchitecture:   in.CPUArchitecture,
		Description:       in.Description,
		LanguageRuntimes:  in.LanguageRuntimes,
		PackagesToInstall: in.PackagesToInstall,
	}
	if err := r.store.Put(ctx, ws); err != nil {
		return nil, apperrors.Internal(err)
	}

	status, err := statusOf(instance)
	if err != nil {
		return nil, err
	}
	log.Info("workspace created", "id", ws.ID, "instance", instanceID, "status", status)
	return &View{Workspace: *ws, Status: status}, nil
}
