package workspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunoz/dave-user-api/internal/identity"
	"github.com/hunoz/dave-user-api/internal/model"
	"github.com/hunoz/dave-user-api/internal/provision"
	"github.com/hunoz/dave-user-api/internal/store"
)

func TestListEmptyPageSkipsInstanceLookup(t *testing.T) {
	st := &store.MockStore{
		ListByOwnerFunc: func(_ context.Context, _ string, _ int32, _ string, _ bool) (*store.Page, error) {
			return &store.Page{}, nil
		},
	}
	compute := &provision.Mock{
		DescribeAllFunc: func(_ context.Context, _ []string) (map[string]ec2Instance, error) {
			t.Fatal("instances must not be described for an empty page")
			return nil, nil
		},
	}
	r := newTestReconciler(t, st, compute, &identity.Mock{})

	out, err := r.List(context.Background(), "alice", ListInput{PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, out.Items)
	assert.False(t, out.HasNextPage)
	assert.Empty(t, out.NextToken)
}

func TestListZipsRecordsWithInstances(t *testing.T) {
	first := *storedWorkspace()
	second := *storedWorkspace()
	second.ID = "ws-2"
	second.Name = "dev2"
	second.CloudIdentifier = "i-second"

	st := &store.MockStore{
		ListByOwnerFunc: func(_ context.Context, username string, pageSize int32, cursor string, ascending bool) (*store.Page, error) {
			assert.Equal(t, "alice", username)
			assert.Equal(t, int32(1), pageSize)
			assert.True(t, ascending)
			return &store.Page{Items: []model.Workspace{first, second}, NextToken: "token-2"}, nil
		},
	}
	compute := &provision.Mock{
		DescribeAllFunc: func(_ context.Context, instanceIDs []string) (map[string]ec2Instance, error) {
			assert.ElementsMatch(t, []string{"i-old", "i-second"}, instanceIDs)
			return map[string]ec2Instance{
				"i-old":    instanceInState("i-old", "running"),
				"i-second": instanceInState("i-second", "pending"),
			}, nil
		},
	}
	r := newTestReconciler(t, st, compute, &identity.Mock{})

	out, err := r.List(context.Background(), "alice", ListInput{PageSize: 1, Ascending: true})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.Equal(t, model.StatusRunning, out.Items[0].Status)
	assert.Equal(t, model.StatusStarting, out.Items[1].Status)
	assert.True(t, out.HasNextPage)
	assert.Equal(t, "token-2", out.NextToken)
}

func TestListDropsRecordsWithMissingInstances(t *testing.T) {
	st := &store.MockStore{
		ListByOwnerFunc: func(_ context.Context, _ string, _ int32, _ string, _ bool) (*store.Page, error) {
			return &store.Page{Items: []model.Workspace{*storedWorkspace()}}, nil
		},
	}
	compute := &provision.Mock{
		DescribeAllFunc: func(_ context.Context, _ []string) (map[string]ec2Instance, error) {
			return map[string]ec2Instance{}, nil
		},
	}
	r := newTestReconciler(t, st, compute, &identity.Mock{})

	out, err := r.List(context.Background(), "alice", ListInput{PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, out.Items)
}
