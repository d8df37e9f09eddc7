package workspace

import (
	"context"

	"github.com/hunoz/dave-user-api/internal/logctx"
)

// ListInput carries the paging parameters of a list call.
type ListInput struct {
	PageSize  int32
	NextToken string
	Ascending bool
}

// ListOutput is one page of the owner's workspaces.
type ListOutput struct {
	Items       []View
	HasNextPage bool
	NextToken   string
}

// List returns one page of the owner's workspaces with derived statuses.
// The backing instances are described in a single batch call; records whose
// instance is no longer visible are dropped from the page.
func (r *Reconciler) List(ctx context.Context, username string, in ListInput) (*ListOutput, error) {
	log := logctx.From(ctx)

	page, err := r.store.ListByOwner(ctx, username, in.PageSize, in.NextToken, in.Ascending)
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return &ListOutput{Items: []View{}}, nil
	}

	instanceIDs := make([]string, 0, len(page.Items))
	for _, ws := range page.Items {
		instanceIDs = append(instanceIDs, ws.CloudIdentifier)
	}
	instances, err := r.compute.DescribeAll(ctx, instanceIDs)
	if err != nil {
		return nil, err
	}

	items := make([]View, 0, len(page.Items))
	for _, ws := range page.Items {
		instance, ok := instances[ws.CloudIdentifier]
		if !ok {
			log.Warn("dropping workspace with missing instance", "id", ws.ID, "instance", ws.CloudIdentifier)
			continue
		}
		status, err := statusOf(instance)
		if err != nil {
			return nil, err
		}
		items = append(items, View{Workspace: ws, Status: status})
	}

	return &ListOutput{
		Items:       items,
		HasNextPage: page.NextToken != "",
		NextToken:   page.NextToken,
	}, nil
}
