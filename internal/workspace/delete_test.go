package workspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunoz/dave-user-api/internal/apperrors"
	"github.com/hunoz/dave-user-api/internal/identity"
	"github.com/hunoz/dave-user-api/internal/model"
	"github.com/hunoz/dave-user-api/internal/provision"
	"github.com/hunoz/dave-user-api/internal/store"
)

func TestDeleteByIDTerminatesThenRemovesRecord(t *testing.T) {
	var calls []string
	st := &store.MockStore{
		GetByIDFunc: func(_ context.Context, id string) (*model.Workspace, error) {
			return storedWorkspace(), nil
		},
		DeleteFunc: func(_ context.Context, ws *model.Workspace) error {
			calls = append(calls, "delete:"+ws.ID)
			return nil
		},
	}
	compute := &provision.Mock{
		TerminateAndAwaitFunc: func(_ context.Context, instanceID string) error {
			calls = append(calls, "terminate:"+instanceID)
			return nil
		},
	}
	r := newTestReconciler(t, st, compute, &identity.Mock{})

	require.NoError(t, r.DeleteByID(context.Background(), "alice", "ws-1"))
	assert.Equal(t, []string{"terminate:i-old", "delete:ws-1"}, calls)
}

func TestDeleteByNonOwnerTouchesNothing(t *testing.T) {
	st := &store.MockStore{
		GetByIDFunc: func(_ context.Context, _ string) (*model.Workspace, error) {
			return storedWorkspace(), nil
		},
		DeleteFunc: func(_ context.Context, _ *model.Workspace) error {
			t.Fatal("record must be retained for a non-owner")
			return nil
		},
	}
	compute := &provision.Mock{
		TerminateAndAwaitFunc: func(_ context.Context, _ string) error {
			t.Fatal("instance must be untouched for a non-owner")
			return nil
		},
	}
	r := newTestReconciler(t, st, compute, &identity.Mock{})

	err := r.DeleteByID(context.Background(), "bob", "ws-1")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestDeleteRetainsRecordWhenTerminationFails(t *testing.T) {
	st := &store.MockStore{
		GetByNameAndOwnerFunc: func(_ context.Context, _, _ string) (*model.Workspace, error) {
			return storedWorkspace(), nil
		},
		DeleteFunc: func(_ context.Context, _ *model.Workspace) error {
			t.Fatal("record must be retained when termination fails")
			return nil
		},
	}
	compute := &provision.Mock{
		TerminateAndAwaitFunc: func(_ context.Context, _ string) error {
			return apperrors.Internalf("terminate wait failed")
		},
	}
	r := newTestReconciler(t, st, compute, &identity.Mock{})

	err := r.DeleteByName(context.Background(), "alice", "dev1")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindInternal))
}
