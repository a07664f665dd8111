package models

import "encoding/json"

// JSONRPCVersion is the only protocol version the server speaks.
const JSONRPCVersion = "2.0"

// JSONRPCRequest represents a JSON-RPC request object.
type JSONRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	// ID is a string or a number; notifications omit it.
	ID interface{} `json:"id"`
	// Method names a navigator operation (submit_dir, get_tree, ...) or an MCP method.
	Method string `json:"method"`
	// Params stays raw until the method is known.
	Params json.RawMessage `json:"params"`
}

// JSONRPCErrorData is the 'data' member of a JSON-RPC error object.
type JSONRPCErrorData struct {
	// Path is the filesystem path involved in the error, if any.
	Path      string `json:"path,omitempty"`
	Operation string `json:"operation,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Details   string `json:"details,omitempty"`
}

// JSONRPCError represents a JSON-RPC error object.
type JSONRPCError struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    *JSONRPCErrorData `json:"data,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC response object. Exactly one of
// Result and Error is set.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}
