// Package model holds the persisted and derived domain types of the
// workspace API.
package model

import (
	"fmt"
	"strings"
)

// WorkspaceType determines the size of the workspace's block volume.
type WorkspaceType string

const (
	WorkspaceTypeMicro    WorkspaceType = "MICRO"
	WorkspaceTypeStandard WorkspaceType = "STANDARD"
)

// VolumeSizeGiB returns the volume size backing this workspace type.
func (t WorkspaceType) VolumeSizeGiB() int32 {
	switch t {
	case WorkspaceTypeStandard:
		return 100
	default:
		return 8
	}
}

// Valid reports whether t is a known workspace type.
func (t WorkspaceType) Valid() bool {
	return t == WorkspaceTypeMicro || t == WorkspaceTypeStandard
}

// CPUArchitecture determines the machine image and instance family used for
// the backing instance.
type CPUArchitecture string

const (
	ArchARM64 CPUArchitecture = "ARM64"
	ArchX8664 CPUArchitecture = "X86_64"
)

// Valid reports whether a is a known architecture.
func (a CPUArchitecture) Valid() bool {
	return a == ArchARM64 || a == ArchX8664
}

// WorkspaceStatus is derived from the backing instance state on every read.
// It is never persisted.
type WorkspaceStatus string

const (
	StatusStarting     WorkspaceStatus = "STARTING"
	StatusRunning      WorkspaceStatus = "RUNNING"
	StatusOff          WorkspaceStatus = "OFF"
	StatusShuttingDown WorkspaceStatus = "SHUTTING_DOWN"
	StatusTerminated   WorkspaceStatus = "TERMINATED"
)

// LanguageRuntime is a "name@version" pair, e.g. "python@3.12".
type LanguageRuntime string

// Language returns the part before the "@".
func (r LanguageRuntime) Language() string {
	language, _, _ := strings.Cut(string(r), "@")
	return language
}

// Version returns the part after the "@", or "" when absent.
func (r LanguageRuntime) Version() string {
	_, version, _ := strings.Cut(string(r), "@")
	return version
}

// Valid reports whether r has the name@version shape.
func (r LanguageRuntime) Valid() bool {
	language, version, ok := strings.Cut(string(r), "@")
	return ok && language != "" && version != ""
}

// Workspace is the persisted record of a user-owned development environment.
// The backing instance and volume are correlated through CloudIdentifier and
// deterministic resource names, not stored references.
type Workspace struct {
	// ID is generated at creation and never changes.
	ID string `dynamodbav:"id"`
	// Name is unique per owner.
	Name string `dynamodbav:"name"`
	// Username is the owning identity. Immutable.
	Username string `dynamodbav:"username"`
	// CloudIdentifier is the current backing instance id. It changes when
	// the instance is replaced.
	CloudIdentifier   string            `dynamodbav:"cloudIdentifier"`
	WorkspaceType     WorkspaceType     `dynamodbav:"workspaceType"`
	CPUArchitecture   CPUArchitecture   `dynamodbav:"cpuArchitecture"`
	Description       string            `dynamodbav:"description,omitempty"`
	LanguageRuntimes  []LanguageRuntime `dynamodbav:"languageRuntimes"`
	PackagesToInstall []string          `dynamodbav:"packagesToInstall"`
}

func (w *Workspace) String() string {
	return fmt.Sprintf("workspace %s (%s/%s)", w.ID, w.Username, w.Name)
}
