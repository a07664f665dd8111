package transport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"next-nav-server/internal/errors"
	"next-nav-server/internal/logging"
	"next-nav-server/internal/mcp"
	"next-nav-server/internal/models"
	"next-nav-server/internal/service"
	"next-nav-server/internal/session"
)

// maxStdioLineBytes bounds a single JSON-RPC request line.
const maxStdioLineBytes = 10 * 1024 * 1024

// MCPRequestProcessor handles the MCP methods (initialize, tools/list, tools/call).
type MCPRequestProcessor interface {
	ProcessRequest(req models.JSONRPCRequest) (*models.MCPToolResult, *models.JSONRPCError)
}

// StdioHandler handles JSON-RPC communication over standard input/output.
// The process is one client, so all requests share one session.
type StdioHandler struct {
	service   service.NavigatorService
	processor MCPRequestProcessor
	session   *session.Session
	logger    *zap.Logger
}

// NewStdioHandler creates a new StdioHandler. A nil processor serves the MCP
// methods from svc.
func NewStdioHandler(svc service.NavigatorService, processor MCPRequestProcessor) *StdioHandler {
	if processor == nil {
		processor = mcp.NewMCPProcessor(svc)
	}
	return &StdioHandler{
		service:   svc,
		processor: processor,
		session:   session.New(),
		logger:    logging.Named("stdio"),
	}
}

// Session returns the session shared by every request on this handler.
func (h *StdioHandler) Session() *session.Session {
	return h.session
}

func (h *StdioHandler) writeJSONRPCResponse(writer io.Writer, response models.JSONRPCResponse) {
	responseBytes, err := json.Marshal(response)
	if err != nil {
		h.logger.Error("error marshaling JSON-RPC response", zap.Any("id", response.ID), zap.Error(err))
		errorResp := models.JSONRPCResponse{
			JSONRPC: models.JSONRPCVersion,
			ID:      response.ID,
			Error:   errors.ToJSONRPCError(errors.NewInternalError("Server error: failed to marshal response.")),
		}
		responseBytes, _ = json.Marshal(errorResp)
	}

	if _, err := fmt.Fprintln(writer, string(responseBytes)); err != nil {
		h.logger.Error("error writing JSON-RPC response", zap.Error(err))
	}
}

// Start processes JSON-RPC requests from input, one per line, and writes one
// response line per request to output. It returns when input is exhausted.
func (h *StdioHandler) Start(input io.Reader, output io.Writer) error {
	h.logger.Info("starting stdio JSON-RPC handler", zap.String("session", h.session.ID))
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStdioLineBytes)

	for scanner.Scan() {
		lineBytes := scanner.Bytes()
		if len(bytes.TrimSpace(lineBytes)) == 0 {
			continue
		}
		h.writeJSONRPCResponse(output, h.handleLine(lineBytes))
	}

	if err := scanner.Err(); err != nil {
		h.logger.Error("error reading from stdio", zap.Error(err))
		return err
	}

	h.logger.Info("stdio JSON-RPC handler finished")
	return nil
}

func (h *StdioHandler) handleLine(line []byte) models.JSONRPCResponse {
	jsonResp := models.JSONRPCResponse{JSONRPC: models.JSONRPCVersion}

	var jsonReq models.JSONRPCRequest
	if err := json.Unmarshal(line, &jsonReq); err != nil {
		jsonResp.Error = errors.ToJSONRPCError(errors.NewParseError(fmt.Sprintf("Invalid JSON received: %v", err)))
		return jsonResp
	}
	jsonResp.ID = jsonReq.ID

	if jsonReq.JSONRPC != models.JSONRPCVersion {
		jsonResp.Error = errors.ToJSONRPCError(errors.NewInvalidRequestError("Invalid JSON-RPC version. Must be '2.0'."))
		return jsonResp
	}
	if jsonReq.Method == "" {
		jsonResp.Error = errors.ToJSONRPCError(errors.NewInvalidRequestError("Method not specified."))
		return jsonResp
	}

	h.logger.Debug("request", zap.String("method", jsonReq.Method), zap.Any("id", jsonReq.ID))

	if mcp.IsMCPMethod(jsonReq.Method) {
		result, rpcErr := h.processor.ProcessRequest(jsonReq)
		if rpcErr != nil {
			jsonResp.Error = rpcErr
		} else {
			jsonResp.Result = result
		}
		return jsonResp
	}

	result, serviceErr := dispatch(h.service, h.session, jsonReq.Method, jsonReq.Params)
	if serviceErr != nil {
		rpcError := errors.ToJSONRPCError(serviceErr)
		if rpcError.Data != nil && rpcError.Data.Operation == "" {
			rpcError.Data.Operation = jsonReq.Method
		}
		jsonResp.Error = rpcError
		return jsonResp
	}
	jsonResp.Result = result
	return jsonResp
}
