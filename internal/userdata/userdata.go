// Package userdata renders the cloud-init script that bootstraps a
// workspace instance.
package userdata

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/hunoz/dave-user-api/internal/apperrors"
	"github.com/hunoz/dave-user-api/internal/logctx"
	"github.com/hunoz/dave-user-api/internal/model"
)

//go:embed workspace-user-data.sh.tmpl
var workspaceScript string

// Runtime is one language toolchain to install.
type Runtime struct {
	Language string
	Version  string
}

// Context is the data handed to the script template.
type Context struct {
	Username          string
	Hostname          string
	LanguageRuntimes  []Runtime
	PackagesToInstall []string
}

// Renderer renders workspace bootstrap scripts.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded script template.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("workspace-user-data").Parse(workspaceScript)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user-data template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render produces the bootstrap script for a workspace. Rendering failure is
// an internal error.
func (r *Renderer) Render(ctx context.Context, data Context) (string, error) {
	var out strings.Builder
	if err := r.tmpl.Execute(&out, data); err != nil {
		logctx.From(ctx).Error("error rendering user data", "error", err)
		return "", apperrors.Internal(fmt.Errorf("failed to render user data: %w", err))
	}
	return out.String(), nil
}

// BuildContext assembles the template context from workspace fields,
// splitting each name@version runtime pair.
func BuildContext(username, hostname string, runtimes []model.LanguageRuntime, packages []string) Context {
	data := Context{
		Username:          username,
		Hostname:          hostname,
		PackagesToInstall: packages,
	}
	for _, runtime := range runtimes {
		data.LanguageRuntimes = append(data.LanguageRuntimes, Runtime{
			Language: runtime.Language(),
			Version:  runtime.Version(),
		})
	}
	return data
}
