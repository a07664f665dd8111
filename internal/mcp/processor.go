package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"next-nav-server/internal/errors"
	"next-nav-server/internal/models"
	"next-nav-server/internal/service"
	"next-nav-server/internal/tree"
)

// ProtocolVersion is the MCP revision the server implements.
const ProtocolVersion = "2024-11-05"

// ServerInfo identifies the server in the initialize response.
var ServerInfo = models.ServerInfo{
	Name:        "next-nav-server",
	Version:     "1.0.0",
	Description: "Next.js app directory navigator with server/client component detection",
}

// MCPProcessor handles MCP (Model Context Protocol) requests.
type MCPProcessor struct {
	service service.NavigatorService
}

// NewMCPProcessor creates a new MCPProcessor.
func NewMCPProcessor(svc service.NavigatorService) *MCPProcessor {
	return &MCPProcessor{
		service: svc,
	}
}

// IsMCPMethod reports whether method is handled by ProcessRequest.
func IsMCPMethod(method string) bool {
	switch method {
	case "initialize", "tools/list", "tools/call":
		return true
	}
	return false
}

// ProcessRequest handles a JSON-RPC request and returns an MCPToolResult or a JSONRPCError.
func (p *MCPProcessor) ProcessRequest(req models.JSONRPCRequest) (*models.MCPToolResult, *models.JSONRPCError) {
	switch req.Method {
	case "initialize":
		return jsonResult(models.InitializeResponse{
			ProtocolVersion: ProtocolVersion,
			ServerInfo:      ServerInfo,
		})
	case "tools/list":
		return jsonResult(models.ToolsListResponse{Tools: ToolDefinitions()})
	case "tools/call":
		var params models.ToolCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, errors.ToJSONRPCError(errors.NewInvalidParamsError("Invalid parameters for tools/call: "+err.Error(), nil))
		}
		if params.Name == "" {
			return nil, errors.ToJSONRPCError(errors.NewInvalidParamsError("Tool name is required.", nil))
		}
		return p.handleToolCall(params.Name, params.Arguments)
	default:
		return nil, errors.ToJSONRPCError(errors.NewMethodNotFoundError(req.Method))
	}
}

// handleToolCall dispatches a tool call by name. Argument decoding problems
// are protocol errors; service failures are reported inside the tool result.
func (p *MCPProcessor) handleToolCall(toolName string, toolArgs json.RawMessage) (*models.MCPToolResult, *models.JSONRPCError) {
	switch toolName {
	case "build_tree":
		var args models.BuildTreeRequest
		if rpcErr := decodeArgs(toolName, toolArgs, &args); rpcErr != nil {
			return nil, rpcErr
		}
		resp, serviceErr := p.service.BuildTree(args)
		if serviceErr != nil {
			return errorResult(serviceErr), nil
		}
		text, err := formatBuildTreeResult(resp)
		if err != nil {
			return errorResult(errors.NewInternalError(err.Error())), nil
		}
		return textResult(text), nil

	case "open_file":
		var args models.FilePathRequest
		if rpcErr := decodeArgs(toolName, toolArgs, &args); rpcErr != nil {
			return nil, rpcErr
		}
		resp, serviceErr := p.service.OpenFile(args)
		if serviceErr != nil {
			return errorResult(serviceErr), nil
		}
		return textResult(formatOpenFileResult(resp)), nil

	case "add_file", "add_folder", "delete_file", "delete_folder":
		var args models.FilePathRequest
		if rpcErr := decodeArgs(toolName, toolArgs, &args); rpcErr != nil {
			return nil, rpcErr
		}
		var (
			resp       *models.CommandResponse
			serviceErr *models.ErrorDetail
		)
		switch toolName {
		case "add_file":
			resp, serviceErr = p.service.AddFile(args)
		case "add_folder":
			resp, serviceErr = p.service.AddFolder(args)
		case "delete_file":
			resp, serviceErr = p.service.DeleteFile(args)
		default:
			resp, serviceErr = p.service.DeleteFolder(args)
		}
		if serviceErr != nil {
			return errorResult(serviceErr), nil
		}
		return textResult(formatCommandResult(toolName, resp)), nil

	default:
		return &models.MCPToolResult{
			Content: []models.MCPToolContent{{Type: "text", Text: "Error: Unknown tool '" + toolName + "'."}},
			IsError: true,
		}, nil
	}
}

func decodeArgs(toolName string, raw json.RawMessage, dst interface{}) *models.JSONRPCError {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.ToJSONRPCError(errors.NewInvalidParamsError(
			fmt.Sprintf("Invalid parameters for %s: %v", toolName, err), nil))
	}
	return nil
}

func jsonResult(v interface{}) (*models.MCPToolResult, *models.JSONRPCError) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.ToJSONRPCError(errors.NewInternalError(err.Error()))
	}
	return textResult(string(data)), nil
}

func textResult(text string) *models.MCPToolResult {
	return &models.MCPToolResult{
		Content: []models.MCPToolContent{{Type: "text", Text: text}},
	}
}

func errorResult(serviceErr *models.ErrorDetail) *models.MCPToolResult {
	return &models.MCPToolResult{
		Content: []models.MCPToolContent{{Type: "text", Text: formatToolError(serviceErr)}},
		IsError: true,
	}
}

// formatBuildTreeResult renders the tree followed by its JSON form, so a
// client can show the drawing and still address nodes by id.
func formatBuildTreeResult(resp *models.TreeResponse) (string, error) {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Directory: %s\n", resp.Directory))
	builder.WriteString(fmt.Sprintf("Directories: %d (client: %d)\n\n", len(resp.Nodes), resp.Nodes.ClientCount()))
	if err := tree.Render(&builder, resp.Nodes); err != nil {
		return "", err
	}
	nodes, err := json.Marshal(resp.Nodes)
	if err != nil {
		return "", err
	}
	builder.WriteString("\nNodes:\n")
	builder.Write(nodes)
	return builder.String(), nil
}

func formatOpenFileResult(resp *models.OpenFileResponse) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("File: %s\n", resp.Path))
	builder.WriteString(fmt.Sprintf("Total Lines: %d\n", resp.TotalLines))
	builder.WriteString(fmt.Sprintf("\nContent:\n%s", resp.Content))
	return builder.String()
}

func formatCommandResult(toolName string, resp *models.CommandResponse) string {
	var status string
	switch toolName {
	case "add_file":
		status = "File created."
	case "add_folder":
		status = "Folder created."
	case "delete_file":
		status = "File deleted."
	default:
		status = "Folder deleted."
	}
	text := fmt.Sprintf("Path: %s\nStatus: %s\n", resp.Path, status)
	if resp.Trashed != "" {
		text += fmt.Sprintf("Moved to: %s\n", resp.Trashed)
	}
	return text
}

// formatToolError formats a service error as "Error: <message> (Code: <code>)".
func formatToolError(serviceErr *models.ErrorDetail) string {
	if serviceErr == nil {
		return "Error: An unexpected error occurred, but no details were provided."
	}
	return fmt.Sprintf("Error: %s (Code: %d)", serviceErr.Message, serviceErr.Code)
}
