package workspace

import (
	"context"

	"github.com/hunoz/dave-user-api/internal/apperrors"
	"github.com/hunoz/dave-user-api/internal/model"
)

// GetByName returns the owner's workspace with the given name plus its
// derived status.
func (r *Reconciler) GetByName(ctx context.Context, username, name string) (*View, error) {
	ws, err := r.store.GetByNameAndOwner(ctx, name, username)
	if err != nil {
		return nil, err
	}
	return r.describe(ctx, ws)
}

// GetByID returns the workspace with the given id. Ownership is re-verified
// against the caller; a mismatch is indistinguishable from an absent record.
func (r *Reconciler) GetByID(ctx context.Context, username, id string) (*View, error) {
	ws, err := r.loadOwned(ctx, username, id)
	if err != nil {
		return nil, err
	}
	return r.describe(ctx, ws)
}

// loadOwned fetches by id and enforces ownership.
func (r *Reconciler) loadOwned(ctx context.Context, username, id string) (*model.Workspace, error) {
	ws, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ws.Username != username {
		return nil, apperrors.NotFound("Workspace not found")
	}
	return ws, nil
}

func (r *Reconciler) describe(ctx context.Context, ws *model.Workspace) (*View, error) {
	instance, err := r.compute.DescribeStatus(ctx, ws.CloudIdentifier)
	if err != nil {
		return nil, err
	}
	status, err := statusOf(instance)
	if err != nil {
		return nil, err
	}
	return &View{Workspace: *ws, Status: status}, nil
}
