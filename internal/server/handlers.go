package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hunoz/dave-user-api/internal/config"
	"github.com/hunoz/dave-user-api/internal/model"
	"github.com/hunoz/dave-user-api/internal/workspace"
)

const defaultPageSize = 10

type handler struct {
	ops      Operations
	authInfo config.AuthConfig
}

// workspaceResponse is the wire shape of a workspace.
type workspaceResponse struct {
	ID                string                  `json:"id"`
	Name              string                  `json:"name"`
	Username          string                  `json:"username"`
	WorkspaceType     model.WorkspaceType     `json:"workspaceType"`
	CPUArchitecture   model.CPUArchitecture   `json:"cpuArchitecture"`
	Description       string                  `json:"description,omitempty"`
	LanguageRuntimes  []model.LanguageRuntime `json:"languageRuntimes"`
	PackagesToInstall []string                `json:"packagesToInstall"`
	Status            model.WorkspaceStatus   `json:"status"`
}

func toResponse(v *workspace.View) workspaceResponse {
	return workspaceResponse{
		ID:                v.ID,
		Name:              v.Name,
		Username:          v.Username,
		WorkspaceType:     v.WorkspaceType,
		CPUArchitecture:   v.CPUArchitecture,
		Description:       v.Description,
		LanguageRuntimes:  v.LanguageRuntimes,
		PackagesToInstall: v.PackagesToInstall,
		Status:            v.Status,
	}
}

func (h *handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// authInfoResponse tells clients how to obtain a token.
type authInfoResponse struct {
	Domain      string   `json:"domain"`
	ClientID    string   `json:"clientId"`
	Audience    string   `json:"audience"`
	RedirectURI string   `json:"redirectUri"`
	Scopes      []string `json:"scopes"`
}

func (h *handler) getAuthInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, authInfoResponse{
		Domain:      h.authInfo.Domain,
		ClientID:    h.authInfo.ClientID,
		Audience:    h.authInfo.Audience,
		RedirectURI: h.authInfo.RedirectURI,
		Scopes:      h.authInfo.Scopes,
	})
}

type createWorkspaceRequest struct {
	Name              string                  `json:"name"`
	WorkspaceType     model.WorkspaceType     `json:"workspaceType"`
	CPUArchitecture   model.CPUArchitecture   `json:"cpuArchitecture"`
	Description       string                  `json:"description"`
	LanguageRuntimes  []model.LanguageRuntime `json:"languageRuntimes"`
	PackagesToInstall []string                `json:"packagesToInstall"`
}

func (req *createWorkspaceRequest) validate() error {
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if !req.WorkspaceType.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown workspace type")
	}
	if !req.CPUArchitecture.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown cpu architecture")
	}
	for _, runtime := range req.LanguageRuntimes {
		if !runtime.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "language runtimes must be name@version")
		}
	}
	return nil
}

func (h *handler) createWorkspace(c echo.Context) error {
	user, err := callerOf(c)
	if err != nil {
		return err
	}
	var req createWorkspaceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	view, err := h.ops.Create(c.Request().Context(), user.Username, workspace.CreateInput{
		Name:              req.Name,
		WorkspaceType:     req.WorkspaceType,
		CPUArchitecture:   req.CPUArchitecture,
		Description:       req.Description,
		LanguageRuntimes:  req.LanguageRuntimes,
		PackagesToInstall: req.PackagesToInstall,
	})
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, toResponse(view))
}

func (h *handler) getWorkspaceByID(c echo.Context) error {
	user, err := callerOf(c)
	if err != nil {
		return err
	}
	view, err := h.ops.GetByID(c.Request().Context(), user.Username, c.Param("id"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, toResponse(view))
}

func (h *handler) getWorkspaceByName(c echo.Context) error {
	user, err := callerOf(c)
	if err != nil {
		return err
	}
	view, err := h.ops.GetByName(c.Request().Context(), user.Username, c.Param("name"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, toResponse(view))
}

// listWorkspacesResponse is one page of workspaces.
type listWorkspacesResponse struct {
	Items       []workspaceResponse `json:"items"`
	HasNextPage bool                `json:"hasNextPage"`
	NextToken   string              `json:"nextToken,omitempty"`
}

func (h *handler) listWorkspaces(c echo.Context) error {
	user, err := callerOf(c)
	if err != nil {
		return err
	}

	pageSize := int32(defaultPageSize)
	if raw := c.QueryParam("maxResults"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "maxResults must be a positive integer")
		}
		pageSize = int32(parsed)
	}
	ascending := !strings.EqualFold(c.QueryParam("sortOrder"), "desc")

	out, err := h.ops.List(c.Request().Context(), user.Username, workspace.ListInput{
		PageSize:  pageSize,
		NextToken: c.QueryParam("nextToken"),
		Ascending: ascending,
	})
	if err != nil {
		return toHTTPError(c, err)
	}

	items := make([]workspaceResponse, 0, len(out.Items))
	for i := range out.Items {
		items = append(items, toResponse(&out.Items[i]))
	}
	return c.JSON(http.StatusOK, listWorkspacesResponse{
		Items:       items,
		HasNextPage: out.HasNextPage,
		NextToken:   out.NextToken,
	})
}

type updateWorkspaceRequest struct {
	Name              *string                  `json:"name"`
	WorkspaceType     *model.WorkspaceType     `json:"workspaceType"`
	CPUArchitecture   *model.CPUArchitecture   `json:"cpuArchitecture"`
	Description       *string                  `json:"description"`
	LanguageRuntimes  *[]model.LanguageRuntime `json:"languageRuntimes"`
	PackagesToInstall *[]string                `json:"packagesToInstall"`
}

func (req *updateWorkspaceRequest) validate() error {
	if req.Name != nil && *req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name must not be empty")
	}
	if req.WorkspaceType != nil && !req.WorkspaceType.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown workspace type")
	}
	if req.CPUArchitecture != nil && !req.CPUArchitecture.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown cpu architecture")
	}
	if req.LanguageRuntimes != nil {
		for _, runtime := range *req.LanguageRuntimes {
			if !runtime.Valid() {
				return echo.NewHTTPError(http.StatusBadRequest, "language runtimes must be name@version")
			}
		}
	}
	return nil
}

func (h *handler) updateWorkspace(c echo.Context) error {
	user, err := callerOf(c)
	if err != nil {
		return err
	}
	var req updateWorkspaceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	view, err := h.ops.Update(c.Request().Context(), user.Username, c.Param("name"), workspace.UpdateInput{
		Name:              req.Name,
		WorkspaceType:     req.WorkspaceType,
		CPUArchitecture:   req.CPUArchitecture,
		Description:       req.Description,
		LanguageRuntimes:  req.LanguageRuntimes,
		PackagesToInstall: req.PackagesToInstall,
	})
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, toResponse(view))
}

func (h *handler) deleteWorkspaceByID(c echo.Context) error {
	user, err := callerOf(c)
	if err != nil {
		return err
	}
	if err := h.ops.DeleteByID(c.Request().Context(), user.Username, c.Param("id")); err != nil {
		return toHTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handler) deleteWorkspaceByName(c echo.Context) error {
	user, err := callerOf(c)
	if err != nil {
		return err
	}
	if err := h.ops.DeleteByName(c.Request().Context(), user.Username, c.Param("name")); err != nil {
		return toHTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
