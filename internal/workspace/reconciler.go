// Package workspace drives a workspace's backing cloud resources and its
// persisted record into a mutually consistent state. Every operation loads
// or validates the record, performs infrastructure changes, and persists
// last: the store is only written after the cloud side has succeeded.
package workspace

import (
	"github.com/hunoz/dave-user-api/internal/identity"
	"github.com/hunoz/dave-user-api/internal/model"
	"github.com/hunoz/dave-user-api/internal/provision"
	"github.com/hunoz/dave-user-api/internal/store"
	"github.com/hunoz/dave-user-api/internal/userdata"
)

// View is a workspace record together with its derived status. Status is
// computed from the backing instance on every read and never persisted.
type View struct {
	model.Workspace
	Status model.WorkspaceStatus
}

// Reconciler exposes the workspace operations. All collaborators are
// injected; the reconciler holds no cloud clients of its own.
type Reconciler struct {
	store    store.Store
	compute  provision.Compute
	identity identity.Sync
	renderer *userdata.Renderer
}

// NewReconciler wires a reconciler from its collaborators.
func NewReconciler(st store.Store, compute provision.Compute, sync identity.Sync, renderer *userdata.Renderer) *Reconciler {
	return &Reconciler{
		store:    st,
		compute:  compute,
		identity: sync,
		renderer: renderer,
	}
}
