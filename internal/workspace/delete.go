package workspace

import (
	"context"

	"github.com/hunoz/dave-user-api/internal/apperrors"
	"github.com/hunoz/dave-user-api/internal/logctx"
	"github.com/hunoz/dave-user-api/internal/model"
)

// DeleteByName removes the owner's workspace with the given name.
func (r *Reconciler) DeleteByName(ctx context.Context, username, name string) error {
	ws, err := r.store.GetByNameAndOwner(ctx, name, username)
	if err != nil {
		return err
	}
	return r.deleteWorkspace(ctx, ws)
}

// DeleteByID removes the workspace with the given id after re-verifying
// ownership.
func (r *Reconciler) DeleteByID(ctx context.Context, username, id string) error {
	ws, err := r.loadOwned(ctx, username, id)
	if err != nil {
		return err
	}
	return r.deleteWorkspace(ctx, ws)
}

// deleteWorkspace terminates the backing instance, then removes the record.
// When termination fails the record is kept so the workspace stays visible.
func (r *Reconciler) deleteWorkspace(ctx context.Context, ws *model.Workspace) error {
	log := logctx.From(ctx)
	log.Info("deleting workspace", "id", ws.ID, "instance", ws.CloudIdentifier)

	if err := r.compute.TerminateAndAwait(ctx, ws.CloudIdentifier); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, ws); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}
