package models

import "next-nav-server/internal/tree"

// Webview response commands. The panel keys its handlers on these strings.
const (
	CommandSubmitDirResponse = "submitDirResponse"
	CommandSendString        = "sendString"
	CommandOpenedFile        = "opened_file"
	CommandAddedFile         = "added_addFile"
	CommandAddedFolder       = "added_addFolder"
	CommandDeletedFile       = "added_deleteFile"
	CommandDeletedFolder     = "added_deleteFolder"
	CommandError             = "error"
)

// SubmitDirRequest asks the server to remember a directory for the session.
type SubmitDirRequest struct {
	// FolderName is absolute or relative to the workspace root.
	FolderName string `json:"folderName"`
	// Form is echoed back so the panel knows which input submitted it.
	Form bool `json:"form,omitempty"`
}

// SubmitDirResponse reports whether the submitted directory was accepted.
type SubmitDirResponse struct {
	Command string `json:"command"`
	Result  bool   `json:"result"`
	Form    bool   `json:"form"`
}

// GetTreeRequest rebuilds the tree for the session's last submitted directory.
type GetTreeRequest struct{}

// SendStringResponse carries the serialized tree as a string, the shape the
// panel has always consumed. Data is either a JSON array of nodes or "{}".
type SendStringResponse struct {
	Command string `json:"command"`
	Data    string `json:"data"`
}

// BuildTreeRequest builds a tree for an explicit directory.
type BuildTreeRequest struct {
	Path string `json:"path"`
}

// TreeResponse is the typed result of build_tree.
type TreeResponse struct {
	Directory string    `json:"directory"`
	Nodes     tree.Tree `json:"nodes"`
}

// FilePathRequest is shared by the open/add/delete operations.
type FilePathRequest struct {
	FilePath string `json:"filePath"`
}

// OpenFileResponse returns the document the panel asked to open.
type OpenFileResponse struct {
	Command    string `json:"command"`
	Path       string `json:"path"`
	Content    string `json:"content"`
	TotalLines int    `json:"totalLines"`
}

// CommandResponse acknowledges a mutation.
type CommandResponse struct {
	Command string `json:"command"`
	Path    string `json:"path,omitempty"`
	// Trashed is set when a deleted entry was moved into the trash directory.
	Trashed string `json:"trashed,omitempty"`
}

// WebviewMessage is a message posted by the navigator panel.
type WebviewMessage struct {
	Command    string `json:"command"`
	FolderName string `json:"folderName,omitempty"`
	Form       bool   `json:"form,omitempty"`
	FilePath   string `json:"filePath,omitempty"`
}

// ErrorMessage reports a failed webview command to the panel.
type ErrorMessage struct {
	Command string `json:"command"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
	// Request is the command that failed.
	Request string `json:"request,omitempty"`
}
