// Package workspace confines every path the server touches to one root directory.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"next-nav-server/internal/filesystem"
)

var (
	// ErrOutsideWorkspace is returned for paths that resolve outside the root.
	ErrOutsideWorkspace = errors.New("path is outside the workspace")
	// ErrNotDirectory is returned when a directory was expected.
	ErrNotDirectory = errors.New("path is not a directory")
	// ErrWorkspaceRoot is returned when a mutation targets the root itself.
	ErrWorkspaceRoot = errors.New("path is the workspace root")
)

// Validator resolves user supplied paths against a workspace root.
type Validator struct {
	fs filesystem.FileSystemAdapter
	// root is absolute and clean; resolvedRoot has its symlinks evaluated.
	root         string
	resolvedRoot string
}

// NewValidator creates a Validator for root, which must be an existing directory.
func NewValidator(fs filesystem.FileSystemAdapter, root string) (*Validator, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute path for workspace %s: %w", root, err)
	}
	resolved, err := fs.EvalSymlinks(absRoot)
	if err != nil {
		return nil, fmt.Errorf("workspace %s: %w", absRoot, err)
	}
	stats, err := fs.GetFileStats(resolved)
	if err != nil {
		return nil, fmt.Errorf("workspace %s: %w", absRoot, err)
	}
	if !stats.IsDir {
		return nil, fmt.Errorf("workspace %s: %w", absRoot, ErrNotDirectory)
	}
	return &Validator{fs: fs, root: absRoot, resolvedRoot: resolved}, nil
}

// Root returns the absolute workspace root.
func (v *Validator) Root() string {
	return v.root
}

// absolute joins relative input onto the root and cleans the result.
func (v *Validator) absolute(input string) string {
	if filepath.IsAbs(input) {
		return filepath.Clean(input)
	}
	return filepath.Join(v.root, input)
}

// ResolveDirectory returns the absolute path of an existing directory inside
// the workspace. The root itself is accepted.
func (v *Validator) ResolveDirectory(input string) (string, error) {
	abs := v.absolute(input)
	if !contains(v.root, abs) && !contains(v.resolvedRoot, abs) {
		return "", fmt.Errorf("%s: %w", abs, ErrOutsideWorkspace)
	}
	resolved, err := v.fs.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	if !contains(v.resolvedRoot, resolved) {
		return "", fmt.Errorf("%s: %w", abs, ErrOutsideWorkspace)
	}
	stats, err := v.fs.GetFileStats(resolved)
	if err != nil {
		return "", err
	}
	if !stats.IsDir {
		return "", fmt.Errorf("%s: %w", abs, ErrNotDirectory)
	}
	return abs, nil
}

// ResolvePath returns the absolute path of a mutation target inside the
// workspace. The final component need not exist and is not followed if it is
// a symlink; its parent must exist. The root itself is rejected.
func (v *Validator) ResolvePath(input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("empty path: %w", os.ErrInvalid)
	}
	abs := v.absolute(input)
	if !contains(v.root, abs) && !contains(v.resolvedRoot, abs) {
		return "", fmt.Errorf("%s: %w", abs, ErrOutsideWorkspace)
	}
	parent, err := v.fs.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		return "", err
	}
	resolved := filepath.Join(parent, filepath.Base(abs))
	if !contains(v.resolvedRoot, resolved) {
		return "", fmt.Errorf("%s: %w", abs, ErrOutsideWorkspace)
	}
	if samePath(resolved, v.resolvedRoot) {
		return "", fmt.Errorf("%s: %w", abs, ErrWorkspaceRoot)
	}
	return abs, nil
}

// contains reports whether child is parent or lies below it, comparing whole
// path components so that /work does not contain /workspace.
func contains(parent, child string) bool {
	if runtime.GOOS == "windows" {
		parent, child = strings.ToLower(parent), strings.ToLower(child)
	}
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func samePath(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}
