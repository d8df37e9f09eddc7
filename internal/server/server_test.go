package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunoz/dave-user-api/internal/apperrors"
	"github.com/hunoz/dave-user-api/internal/auth"
	"github.com/hunoz/dave-user-api/internal/config"
	"github.com/hunoz/dave-user-api/internal/model"
	"github.com/hunoz/dave-user-api/internal/platform/ec2"
	"github.com/hunoz/dave-user-api/internal/workspace"
)

// mockOps is a func-field mock of Operations.
type mockOps struct {
	CreateFunc       func(ctx context.Context, username string, in workspace.CreateInput) (*workspace.View, error)
	GetByIDFunc      func(ctx context.Context, username, id string) (*workspace.View, error)
	GetByNameFunc    func(ctx context.Context, username, name string) (*workspace.View, error)
	ListFunc         func(ctx context.Context, username string, in workspace.ListInput) (*workspace.ListOutput, error)
	UpdateFunc       func(ctx context.Context, username, name string, in workspace.UpdateInput) (*workspace.View, error)
	DeleteByIDFunc   func(ctx context.Context, username, id string) error
	DeleteByNameFunc func(ctx context.Context, username, name string) error
}

var _ Operations = (*mockOps)(nil)

func testView() *workspace.View {
	return &workspace.View{
		Workspace: model.Workspace{
			ID:              "ws-1",
			Name:            "dev1",
			Username:        "test-user",
			CloudIdentifier: "i-1",
			WorkspaceType:   model.WorkspaceTypeMicro,
			CPUArchitecture: model.ArchARM64,
		},
		Status: model.StatusRunning,
	}
}

func (m *mockOps) Create(ctx context.Context, username string, in workspace.CreateInput) (*workspace.View, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, username, in)
	}
	return testView(), nil
}

func (m *mockOps) GetByID(ctx context.Context, username, id string) (*workspace.View, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, username, id)
	}
	return testView(), nil
}

func (m *mockOps) GetByName(ctx context.Context, username, name string) (*workspace.View, error) {
	if m.GetByNameFunc != nil {
		return m.GetByNameFunc(ctx, username, name)
	}
	return testView(), nil
}

func (m *mockOps) List(ctx context.Context, username string, in workspace.ListInput) (*workspace.ListOutput, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, username, in)
	}
	return &workspace.ListOutput{Items: []workspace.View{*testView()}}, nil
}

func (m *mockOps) Update(ctx context.Context, username, name string, in workspace.UpdateInput) (*workspace.View, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, username, name, in)
	}
	return testView(), nil
}

func (m *mockOps) DeleteByID(ctx context.Context, username, id string) error {
	if m.DeleteByIDFunc != nil {
		return m.DeleteByIDFunc(ctx, username, id)
	}
	return nil
}

func (m *mockOps) DeleteByName(ctx context.Context, username, name string) error {
	if m.DeleteByNameFunc != nil {
		return m.DeleteByNameFunc(ctx, username, name)
	}
	return nil
}

func testServer(ops Operations, verifier auth.Verifier) *Server {
	if verifier == nil {
		verifier = &auth.MockVerifier{}
	}
	return New(
		config.ServerConfig{Port: 8080},
		config.AuthConfig{Domain: "auth.example.com", ClientID: "client-id", Audience: "aud"},
		slog.New(slog.DiscardHandler),
		ops,
		verifier,
	)
}

func do(s *Server, method, target, body, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestWriteTimeoutCoversProvisioningWaits(t *testing.T) {
	assert.Greater(t, writeTimeout, ec2.MaxProvisioningWait,
		"a replacement that exhausts every wait must still get its response out")
}

func TestHealthNeedsNoAuth(t *testing.T) {
	s := testServer(&mockOps{}, nil)
	rec := do(s, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthInfoNeedsNoAuth(t *testing.T) {
	s := testServer(&mockOps{}, nil)
	rec := do(s, http.MethodGet, "/api/v1/auth-info", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body authInfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "auth.example.com", body.Domain)
	assert.Equal(t, "client-id", body.ClientID)
}

func TestMissingAuthorizationHeaderRejected(t *testing.T) {
	s := testServer(&mockOps{}, nil)
	rec := do(s, http.MethodGet, "/api/v1/workspaces", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvalidTokenRejected(t *testing.T) {
	verifier := &auth.MockVerifier{
		VerifyFunc: func(_ context.Context, _ string) (auth.UserInfo, error) {
			return auth.UserInfo{}, apperrors.Unauthorized(assert.AnError)
		},
	}
	s := testServer(&mockOps{}, verifier)
	rec := do(s, http.MethodGet, "/api/v1/workspaces", "", "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateWorkspace(t *testing.T) {
	var gotUsername string
	var gotInput workspace.CreateInput
	ops := &mockOps{
		CreateFunc: func(_ context.Context, username string, in workspace.CreateInput) (*workspace.View, error) {
			gotUsername = username
			gotInput = in
			return testView(), nil
		},
	}
	s := testServer(ops, nil)

	body := `{"name":"dev1","workspaceType":"MICRO","cpuArchitecture":"ARM64","languageRuntimes":["python@3.12"]}`
	rec := do(s, http.MethodPost, "/api/v1/workspaces", body, "Bearer token")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "test-user", gotUsername)
	assert.Equal(t, "dev1", gotInput.Name)
	assert.Equal(t, model.WorkspaceTypeMicro, gotInput.WorkspaceType)

	var resp workspaceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.StatusRunning, resp.Status)
}

func TestCreateWorkspaceValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"workspaceType":"MICRO","cpuArchitecture":"ARM64"}`},
		{"bad type", `{"name":"dev1","workspaceType":"HUGE","cpuArchitecture":"ARM64"}`},
		{"bad arch", `{"name":"dev1","workspaceType":"MICRO","cpuArchitecture":"SPARC"}`},
		{"bad runtime", `{"name":"dev1","workspaceType":"MICRO","cpuArchitecture":"ARM64","languageRuntimes":["python"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testServer(&mockOps{}, nil)
			rec := do(s, http.MethodPost, "/api/v1/workspaces", tt.body, "Bearer token")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateConflictMapsTo409(t *testing.T) {
	ops := &mockOps{
		CreateFunc: func(_ context.Context, _ string, _ workspace.CreateInput) (*workspace.View, error) {
			return nil, apperrors.Conflict("Workspace already exists")
		},
	}
	s := testServer(ops, nil)

	body := `{"name":"dev1","workspaceType":"MICRO","cpuArchitecture":"ARM64"}`
	rec := do(s, http.MethodPost, "/api/v1/workspaces", body, "Bearer token")
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Workspace already exists", resp.Message)
}

func TestGetWorkspaceNotFoundMapsTo404(t *testing.T) {
	ops := &mockOps{
		GetByIDFunc: func(_ context.Context, _, _ string) (*workspace.View, error) {
			return nil, apperrors.NotFound("Workspace not found")
		},
	}
	s := testServer(ops, nil)
	rec := do(s, http.MethodGet, "/api/v1/workspaces/ws-404", "", "Bearer token")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInternalErrorHidesDetail(t *testing.T) {
	ops := &mockOps{
		GetByNameFunc: func(_ context.Context, _, _ string) (*workspace.View, error) {
			return nil, apperrors.Internalf("instance wait timed out after 10m")
		},
	}
	s := testServer(ops, nil)
	rec := do(s, http.MethodGet, "/api/v1/workspaces/name/dev1", "", "Bearer token")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Internal Server Error", resp.Message)
	assert.NotContains(t, rec.Body.String(), "timed out")
}

func TestListWorkspacesPaging(t *testing.T) {
	var gotInput workspace.ListInput
	ops := &mockOps{
		ListFunc: func(_ context.Context, _ string, in workspace.ListInput) (*workspace.ListOutput, error) {
			gotInput = in
			return &workspace.ListOutput{
				Items:       []workspace.View{*testView()},
				HasNextPage: true,
				NextToken:   "tok-2",
			}, nil
		},
	}
	s := testServer(ops, nil)

	rec := do(s, http.MethodGet, "/api/v1/workspaces?maxResults=5&nextToken=tok-1&sortOrder=desc", "", "Bearer token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(5), gotInput.PageSize)
	assert.Equal(t, "tok-1", gotInput.NextToken)
	assert.False(t, gotInput.Ascending)

	var resp listWorkspacesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.HasNextPage)
	assert.Equal(t, "tok-2", resp.NextToken)
	require.Len(t, resp.Items, 1)
}

func TestListRejectsBadPageSize(t *testing.T) {
	s := testServer(&mockOps{}, nil)
	rec := do(s, http.MethodGet, "/api/v1/workspaces?maxResults=zero", "", "Bearer token")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateWorkspacePartialBody(t *testing.T) {
	var gotInput workspace.UpdateInput
	ops := &mockOps{
		UpdateFunc: func(_ context.Context, _, name string, in workspace.UpdateInput) (*workspace.View, error) {
			assert.Equal(t, "dev1", name)
			gotInput = in
			return testView(), nil
		},
	}
	s := testServer(ops, nil)

	rec := do(s, http.MethodPatch, "/api/v1/workspaces/name/dev1", `{"workspaceType":"STANDARD"}`, "Bearer token")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotInput.WorkspaceType)
	assert.Equal(t, model.WorkspaceTypeStandard, *gotInput.WorkspaceType)
	assert.Nil(t, gotInput.Name)
	assert.Nil(t, gotInput.CPUArchitecture)
}

func TestUpdateNotRunningMapsTo409(t *testing.T) {
	ops := &mockOps{
		UpdateFunc: func(_ context.Context, _, _ string, _ workspace.UpdateInput) (*workspace.View, error) {
			return nil, apperrors.Conflict("Workspace is not running")
		},
	}
	s := testServer(ops, nil)
	rec := do(s, http.MethodPatch, "/api/v1/workspaces/name/dev1", `{"description":"x"}`, "Bearer token")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteWorkspaceByID(t *testing.T) {
	var deleted string
	ops := &mockOps{
		DeleteByIDFunc: func(_ context.Context, username, id string) error {
			assert.Equal(t, "test-user", username)
			deleted = id
			return nil
		},
	}
	s := testServer(ops, nil)
	rec := do(s, http.MethodDelete, "/api/v1/workspaces/ws-1", "", "Bearer token")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "ws-1", deleted)
}

func TestDeleteWorkspaceByName(t *testing.T) {
	var deleted string
	ops := &mockOps{
		DeleteByNameFunc: func(_ context.Context, _, name string) error {
			deleted = name
			return nil
		},
	}
	s := testServer(ops, nil)
	rec := do(s, http.MethodDelete, "/api/v1/workspaces/name/dev1", "", "Bearer token")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "dev1", deleted)
}
