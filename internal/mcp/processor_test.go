package mcp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"next-nav-server/internal/errors"
	"next-nav-server/internal/models"
	"next-nav-server/internal/session"
	"next-nav-server/internal/tree"
)

// MockNavigatorService is a mock implementation of service.NavigatorService.
type MockNavigatorService struct {
	BuildTreeFunc    func(req models.BuildTreeRequest) (*models.TreeResponse, *models.ErrorDetail)
	OpenFileFunc     func(req models.FilePathRequest) (*models.OpenFileResponse, *models.ErrorDetail)
	AddFileFunc      func(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail)
	AddFolderFunc    func(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail)
	DeleteFileFunc   func(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail)
	DeleteFolderFunc func(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail)
}

func (m *MockNavigatorService) SubmitDir(*session.Session, models.SubmitDirRequest) (*models.SubmitDirResponse, *models.ErrorDetail) {
	return nil, errors.NewInternalError("not used")
}

func (m *MockNavigatorService) GetTree(*session.Session) (*models.SendStringResponse, *models.ErrorDetail) {
	return nil, errors.NewInternalError("not used")
}

func (m *MockNavigatorService) BuildTree(req models.BuildTreeRequest) (*models.TreeResponse, *models.ErrorDetail) {
	return m.BuildTreeFunc(req)
}

func (m *MockNavigatorService) OpenFile(req models.FilePathRequest) (*models.OpenFileResponse, *models.ErrorDetail) {
	return m.OpenFileFunc(req)
}

func (m *MockNavigatorService) AddFile(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail) {
	return m.AddFileFunc(req)
}

func (m *MockNavigatorService) AddFolder(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail) {
	return m.AddFolderFunc(req)
}

func (m *MockNavigatorService) DeleteFile(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail) {
	return m.DeleteFileFunc(req)
}

func (m *MockNavigatorService) DeleteFolder(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail) {
	return m.DeleteFolderFunc(req)
}

func (m *MockNavigatorService) Workspace() string { return "/work" }

func intPtr(i int) *int { return &i }

func toolCall(t *testing.T, name string, args interface{}) models.JSONRPCRequest {
	t.Helper()
	rawArgs, err := json.Marshal(args)
	require.NoError(t, err)
	params, err := json.Marshal(models.ToolCallParams{Name: name, Arguments: rawArgs})
	require.NoError(t, err)
	return models.JSONRPCRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params}
}

func TestMCPProcessor_Initialize(t *testing.T) {
	processor := NewMCPProcessor(&MockNavigatorService{})

	result, rpcErr := processor.ProcessRequest(models.JSONRPCRequest{JSONRPC: "2.0", Method: "initialize", ID: "1"})
	require.Nil(t, rpcErr)
	require.NotNil(t, result)
	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)

	var initResp models.InitializeResponse
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &initResp))
	assert.Equal(t, ProtocolVersion, initResp.ProtocolVersion)
	assert.Equal(t, ServerInfo, initResp.ServerInfo)
	assert.Equal(t, models.ToolsCapabilities{}, initResp.Capabilities.Tools)
}

func TestMCPProcessor_ToolsList(t *testing.T) {
	processor := NewMCPProcessor(&MockNavigatorService{})

	result, rpcErr := processor.ProcessRequest(models.JSONRPCRequest{JSONRPC: "2.0", Method: "tools/list", ID: "2"})
	require.Nil(t, rpcErr)
	require.Len(t, result.Content, 1)

	var listResp models.ToolsListResponse
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &listResp))

	expected := map[string]struct {
		readOnly    bool
		destructive bool
	}{
		"build_tree":    {true, false},
		"open_file":     {true, false},
		"add_file":      {false, false},
		"add_folder":    {false, false},
		"delete_file":   {false, true},
		"delete_folder": {false, true},
	}
	require.Len(t, listResp.Tools, len(expected))
	for _, tool := range listResp.Tools {
		want, ok := expected[tool.Name]
		require.True(t, ok, "unexpected tool %s", tool.Name)
		assert.NotEmpty(t, tool.Description)
		assert.Equal(t, want.readOnly, tool.Annotations.ReadOnlyHint, tool.Name)
		assert.Equal(t, want.destructive, tool.Annotations.DestructiveHint, tool.Name)
		assert.Equal(t, "object", tool.InputSchema["type"], tool.Name)
	}
}

func TestMCPProcessor_UnknownMethod(t *testing.T) {
	processor := NewMCPProcessor(&MockNavigatorService{})
	result, rpcErr := processor.ProcessRequest(models.JSONRPCRequest{JSONRPC: "2.0", Method: "resources/list"})
	assert.Nil(t, result)
	require.NotNil(t, rpcErr)
	assert.Equal(t, errors.CodeMethodNotFound, rpcErr.Code)
}

func TestMCPProcessor_ToolsCallBadParams(t *testing.T) {
	processor := NewMCPProcessor(&MockNavigatorService{})

	_, rpcErr := processor.ProcessRequest(models.JSONRPCRequest{JSONRPC: "2.0", Method: "tools/call", Params: json.RawMessage(`[1]`)})
	require.NotNil(t, rpcErr)
	assert.Equal(t, errors.CodeInvalidParams, rpcErr.Code)

	_, rpcErr = processor.ProcessRequest(models.JSONRPCRequest{JSONRPC: "2.0", Method: "tools/call", Params: json.RawMessage(`{}`)})
	require.NotNil(t, rpcErr)
	assert.Equal(t, errors.CodeInvalidParams, rpcErr.Code)

	_, rpcErr = processor.ProcessRequest(models.JSONRPCRequest{
		JSONRPC: "2.0", Method: "tools/call",
		Params: json.RawMessage(`{"name":"open_file","arguments":{"filePath":7}}`),
	})
	require.NotNil(t, rpcErr)
	assert.Equal(t, errors.CodeInvalidParams, rpcErr.Code)
}

func TestMCPProcessor_UnknownTool(t *testing.T) {
	processor := NewMCPProcessor(&MockNavigatorService{})
	result, rpcErr := processor.ProcessRequest(toolCall(t, "edit_file", map[string]string{}))
	require.Nil(t, rpcErr)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "Unknown tool 'edit_file'")
}

func TestMCPProcessor_BuildTree(t *testing.T) {
	var got models.BuildTreeRequest
	svc := &MockNavigatorService{
		BuildTreeFunc: func(req models.BuildTreeRequest) (*models.TreeResponse, *models.ErrorDetail) {
			got = req
			return &models.TreeResponse{
				Directory: "/work/app",
				Nodes: tree.Tree{
					{ID: 0, FolderName: "app", Path: "/work/app", Contents: []string{"page.tsx"}, Render: tree.RenderClient},
					{ID: 1, FolderName: "api", ParentNode: intPtr(0), Path: "/work/app/api", Contents: []string{"route.ts"}, Render: tree.RenderServer},
				},
			}, nil
		},
	}
	processor := NewMCPProcessor(svc)

	result, rpcErr := processor.ProcessRequest(toolCall(t, "build_tree", map[string]string{"path": "app"}))
	require.Nil(t, rpcErr)
	assert.False(t, result.IsError)
	assert.Equal(t, "app", got.Path)

	text := result.Content[0].Text
	assert.Contains(t, text, "Directory: /work/app\n")
	assert.Contains(t, text, "Directories: 2 (client: 1)\n")
	assert.Contains(t, text, "app/ [client]\n├── page.tsx\n└── api/\n    └── route.ts\n")
	assert.Contains(t, text, `"folderName":"api"`)
}

func TestMCPProcessor_BuildTreeNullArguments(t *testing.T) {
	var got *models.BuildTreeRequest
	svc := &MockNavigatorService{
		BuildTreeFunc: func(req models.BuildTreeRequest) (*models.TreeResponse, *models.ErrorDetail) {
			got = &req
			return &models.TreeResponse{Directory: "/work"}, nil
		},
	}
	processor := NewMCPProcessor(svc)

	req := models.JSONRPCRequest{JSONRPC: "2.0", Method: "tools/call", Params: json.RawMessage(`{"name":"build_tree"}`)}
	result, rpcErr := processor.ProcessRequest(req)
	require.Nil(t, rpcErr)
	assert.False(t, result.IsError)
	require.NotNil(t, got)
	assert.Equal(t, "", got.Path)
}

func TestMCPProcessor_ServiceErrorBecomesToolError(t *testing.T) {
	svc := &MockNavigatorService{
		BuildTreeFunc: func(req models.BuildTreeRequest) (*models.TreeResponse, *models.ErrorDetail) {
			return nil, errors.NewTreeBuildFailedError(req.Path, "permission denied")
		},
	}
	processor := NewMCPProcessor(svc)

	result, rpcErr := processor.ProcessRequest(toolCall(t, "build_tree", map[string]string{"path": "app"}))
	require.Nil(t, rpcErr)
	assert.True(t, result.IsError)
	assert.Equal(t, "Error: Could not build directory tree (Code: -32004)", result.Content[0].Text)
}

func TestMCPProcessor_OpenFile(t *testing.T) {
	svc := &MockNavigatorService{
		OpenFileFunc: func(req models.FilePathRequest) (*models.OpenFileResponse, *models.ErrorDetail) {
			return &models.OpenFileResponse{Path: "/work/" + req.FilePath, Content: "a\nb\n", TotalLines: 2}, nil
		},
	}
	processor := NewMCPProcessor(svc)

	result, rpcErr := processor.ProcessRequest(toolCall(t, "open_file", models.FilePathRequest{FilePath: "app/page.tsx"}))
	require.Nil(t, rpcErr)
	assert.Equal(t, "File: /work/app/page.tsx\nTotal Lines: 2\n\nContent:\na\nb\n", result.Content[0].Text)
}

func TestMCPProcessor_Mutations(t *testing.T) {
	var calls []string
	respond := func(name string) func(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail) {
		return func(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail) {
			calls = append(calls, name)
			resp := &models.CommandResponse{Path: "/work/" + req.FilePath}
			if name == "delete_folder" {
				resp.Trashed = "/trash/x"
			}
			return resp, nil
		}
	}
	svc := &MockNavigatorService{
		AddFileFunc:      respond("add_file"),
		AddFolderFunc:    respond("add_folder"),
		DeleteFileFunc:   respond("delete_file"),
		DeleteFolderFunc: respond("delete_folder"),
	}
	processor := NewMCPProcessor(svc)

	tests := []struct {
		tool string
		want string
	}{
		{"add_file", "Path: /work/x\nStatus: File created.\n"},
		{"add_folder", "Path: /work/x\nStatus: Folder created.\n"},
		{"delete_file", "Path: /work/x\nStatus: File deleted.\n"},
		{"delete_folder", "Path: /work/x\nStatus: Folder deleted.\nMoved to: /trash/x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			result, rpcErr := processor.ProcessRequest(toolCall(t, tt.tool, models.FilePathRequest{FilePath: "x"}))
			require.Nil(t, rpcErr)
			assert.False(t, result.IsError)
			assert.Equal(t, tt.want, result.Content[0].Text)
		})
	}
	assert.Equal(t, []string{"add_file", "add_folder", "delete_file", "delete_folder"}, calls)
}

func TestFormatToolError(t *testing.T) {
	assert.Equal(t, "Error: 'x' already exists (Code: -32007)", formatToolError(errors.NewAlreadyExistsError("x", "add_file")))
	assert.Contains(t, formatToolError(nil), "unexpected error")
}

func TestIsMCPMethod(t *testing.T) {
	assert.True(t, IsMCPMethod("initialize"))
	assert.True(t, IsMCPMethod("tools/list"))
	assert.True(t, IsMCPMethod("tools/call"))
	assert.False(t, IsMCPMethod("get_tree"))
}
