package store

import (
	"context"

	"github.com/hunoz/dave-user-api/internal/apperrors"
	"github.com/hunoz/dave-user-api/internal/model"
)

// MockStore is a func-field mock of Store for tests. Unset fields behave as
// an empty store.
type MockStore struct {
	GetByIDFunc           func(ctx context.Context, id string) (*model.Workspace, error)
	GetByNameAndOwnerFunc func(ctx context.Context, name, username string) (*model.Workspace, error)
	ListByOwnerFunc       func(ctx context.Context, username string, pageSize int32, cursor string, ascending bool) (*Page, error)
	PutFunc               func(ctx context.Context, ws *model.Workspace) error
	DeleteFunc            func(ctx context.Context, ws *model.Workspace) error
}

var _ Store = (*MockStore)(nil)

func (m *MockStore) GetByID(ctx context.Context, id string) (*model.Workspace, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, apperrors.NotFound("Workspace not found")
}

func (m *MockStore) GetByNameAndOwner(ctx context.Context, name, username string) (*model.Workspace, error) {
	if m.GetByNameAndOwnerFunc != nil {
		return m.GetByNameAndOwnerFunc(ctx, name, username)
	}
	return nil, apperrors.NotFound("Workspace not found")
}

func (m *MockStore) ListByOwner(ctx context.Context, username string, pageSize int32, cursor string, ascending bool) (*Page, error) {
	if m.ListByOwnerFunc != nil {
		return m.ListByOwnerFunc(ctx, username, pageSize, cursor, ascending)
	}
	return &Page{}, nil
}

func (m *MockStore) Put(ctx context.Context, ws *model.Workspace) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, ws)
	}
	return nil
}

func (m *MockStore) Delete(ctx context.Context, ws *model.Workspace) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, ws)
	}
	return nil
}
