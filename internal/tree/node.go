// Package tree walks a Next.js app directory and classifies every directory as
// server or client rendered.
package tree

import (
	"encoding/json"
	"path/filepath"
)

// RenderKind is how a directory's components render.
type RenderKind string

const (
	RenderServer RenderKind = "server"
	RenderClient RenderKind = "client"
)

// qualifyingExtensions lists the source files a directory node tracks.
// Matching is case-sensitive.
var qualifyingExtensions = map[string]struct{}{
	".js":   {},
	".jsx":  {},
	".ts":   {},
	".tsx":  {},
	".css":  {},
	".sass": {},
	".scss": {},
	".html": {},
}

// IsQualifying reports whether name has one of the tracked source extensions.
func IsQualifying(name string) bool {
	_, ok := qualifyingExtensions[filepath.Ext(name)]
	return ok
}

// DirectoryNode is one directory of a Tree. ID equals the node's index in the
// Tree; ParentNode is nil only for the root.
type DirectoryNode struct {
	ID         int        `json:"id"`
	FolderName string     `json:"folderName"`
	ParentNode *int       `json:"parentNode"`
	Path       string     `json:"path"`
	Contents   []string   `json:"contents"`
	Render     RenderKind `json:"render"`
}

// Tree is the flat, pre-ordered list of directory nodes. Every parent comes
// before its children.
type Tree []DirectoryNode

// ClientCount returns how many directories are client rendered.
func (t Tree) ClientCount() int {
	n := 0
	for _, node := range t {
		if node.Render == RenderClient {
			n++
		}
	}
	return n
}

// Result is the outcome of one build as the webview expects it: the node
// array on success and an empty object on failure.
type Result struct {
	Tree Tree
	Err  error
}

// OK reports whether the build succeeded.
func (r Result) OK() bool {
	return r.Err == nil && r.Tree != nil
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.OK() {
		return []byte("{}"), nil
	}
	return json.Marshal(r.Tree)
}
