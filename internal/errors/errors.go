package errors

import (
	stdErrors "errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"next-nav-server/internal/models"
)

// JSON-RPC Error Codes (as per JSON-RPC 2.0 Specification)
const (
	CodeParseError     = -32700 // Invalid JSON was received by the server.
	CodeInvalidRequest = -32600 // The JSON sent is not a valid Request object.
	CodeMethodNotFound = -32601 // The method does not exist / is not available.
	CodeInvalidParams  = -32602 // Invalid method parameter(s).
	CodeInternalError  = -32603 // Internal JSON-RPC error.
)

// Application Specific Error Codes
const (
	// CodeFileSystemError covers not-found and permission problems; Data["type"]
	// narrows it down.
	CodeFileSystemError = -32001

	// CodeOperationLockFailed means the lock on a mutation target could not be acquired.
	CodeOperationLockFailed = -32002

	// CodeFileTooLarge indicates the file exceeds the configured size limit.
	CodeFileTooLarge = -32003

	// CodeTreeBuildFailed is the failure arm of a tree build. No partial tree accompanies it.
	CodeTreeBuildFailed = -32004

	// CodeNoDirectorySubmitted is returned by get_tree before any submit_dir succeeded.
	CodeNoDirectorySubmitted = -32005

	// CodeOutsideWorkspace rejects paths that escape the workspace root.
	CodeOutsideWorkspace = -32006

	// CodeAlreadyExists rejects add operations on an existing path.
	CodeAlreadyExists = -32007

	// CodeInvalidEncoding rejects documents that are not UTF-8.
	CodeInvalidEncoding = -32008
)

// Values of Data["type"] for CodeFileSystemError.
const (
	typeFileNotFound     = "file_not_found"
	typePermissionDenied = "permission_denied"
)

// NewErrorDetail creates a new ErrorDetail.
func NewErrorDetail(code int, message string, data interface{}) *models.ErrorDetail {
	return &models.ErrorDetail{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// NewParseError creates an ErrorDetail for JSON parsing errors.
func NewParseError(details string) *models.ErrorDetail {
	return NewErrorDetail(CodeParseError, "Parse error", map[string]interface{}{"details": details})
}

// NewInvalidRequestError creates an ErrorDetail for invalid JSON-RPC Request objects.
func NewInvalidRequestError(details string) *models.ErrorDetail {
	return NewErrorDetail(CodeInvalidRequest, "Invalid Request", map[string]interface{}{"details": details})
}

// NewMethodNotFoundError creates an ErrorDetail when a method is not found.
func NewMethodNotFoundError(methodName string) *models.ErrorDetail {
	return NewErrorDetail(CodeMethodNotFound, "Method not found", map[string]interface{}{"method": methodName})
}

// NewInvalidParamsError creates an ErrorDetail for invalid method parameters.
// paramIssues, when present, is reported under "param_issues".
func NewInvalidParamsError(summaryMessage string, paramIssues map[string]interface{}) *models.ErrorDetail {
	finalMessage := "Invalid params"
	if summaryMessage != "" {
		finalMessage = summaryMessage
	}
	data := map[string]interface{}{"details": finalMessage}
	if paramIssues != nil {
		data["param_issues"] = paramIssues
	}
	return NewErrorDetail(CodeInvalidParams, finalMessage, data)
}

// NewInternalError creates an ErrorDetail for unexpected server errors.
func NewInternalError(details string) *models.ErrorDetail {
	return NewErrorDetail(CodeInternalError, "Internal error", map[string]interface{}{"details": details})
}

// NewFileSystemError creates a generic file system ErrorDetail.
func NewFileSystemError(path, operation, details string) *models.ErrorDetail {
	return NewErrorDetail(CodeFileSystemError, "File system error", map[string]interface{}{
		"path":      path,
		"operation": operation,
		"details":   details,
	})
}

// NewFileNotFoundError creates an ErrorDetail for missing files or folders. HTTP status: 404.
func NewFileNotFoundError(path, operation string) *models.ErrorDetail {
	return NewErrorDetail(CodeFileSystemError, fmt.Sprintf("'%s' not found", path), map[string]interface{}{
		"path":      path,
		"operation": operation,
		"type":      typeFileNotFound,
	})
}

// NewPermissionDeniedError creates an ErrorDetail for permission denied errors. HTTP status: 403.
func NewPermissionDeniedError(path, operation string) *models.ErrorDetail {
	return NewErrorDetail(CodeFileSystemError, fmt.Sprintf("Permission denied for '%s'", path), map[string]interface{}{
		"path":      path,
		"operation": operation,
		"type":      typePermissionDenied,
	})
}

// NewFileTooLargeError creates an ErrorDetail for files exceeding size limits. HTTP status: 413.
func NewFileTooLargeError(path string, maxSizeMB int) *models.ErrorDetail {
	return NewErrorDetail(CodeFileTooLarge,
		fmt.Sprintf("File '%s' exceeds maximum allowed size of %d MB", path, maxSizeMB),
		map[string]interface{}{
			"path":        path,
			"max_size_mb": maxSizeMB,
		})
}

// NewOperationLockFailedError creates an ErrorDetail for failures to acquire a lock. HTTP status: 409.
func NewOperationLockFailedError(path, operation string, details string) *models.ErrorDetail {
	return NewErrorDetail(CodeOperationLockFailed,
		fmt.Sprintf("Could not acquire lock for operation '%s' on '%s'", operation, path),
		map[string]interface{}{
			"path":      path,
			"operation": operation,
			"details":   details,
		})
}

// NewTreeBuildFailedError reports that the walk of path aborted.
func NewTreeBuildFailedError(path, details string) *models.ErrorDetail {
	return NewErrorDetail(CodeTreeBuildFailed, "Could not build directory tree", map[string]interface{}{
		"path":      path,
		"operation": "build_tree",
		"details":   details,
	})
}

// NewNoDirectorySubmittedError is returned when a session asks for its tree too early.
func NewNoDirectorySubmittedError() *models.ErrorDetail {
	return NewErrorDetail(CodeNoDirectorySubmitted, "No directory has been submitted yet.", nil)
}

// NewOutsideWorkspaceError rejects a path that does not lie inside the workspace root.
func NewOutsideWorkspaceError(path, operation string) *models.ErrorDetail {
	return NewErrorDetail(CodeOutsideWorkspace, fmt.Sprintf("'%s' is not inside the workspace", path), map[string]interface{}{
		"path":      path,
		"operation": operation,
	})
}

// NewAlreadyExistsError rejects creating something that is already there. HTTP status: 409.
func NewAlreadyExistsError(path, operation string) *models.ErrorDetail {
	return NewErrorDetail(CodeAlreadyExists, fmt.Sprintf("'%s' already exists", path), map[string]interface{}{
		"path":      path,
		"operation": operation,
	})
}

// NewInvalidEncodingError rejects non UTF-8 documents.
func NewInvalidEncodingError(path, operation string) *models.ErrorDetail {
	return NewErrorDetail(CodeInvalidEncoding, fmt.Sprintf("'%s' is not valid UTF-8", path), map[string]interface{}{
		"path":      path,
		"operation": operation,
	})
}

// FromFSError classifies an error returned by the filesystem layer.
func FromFSError(path, operation string, err error) *models.ErrorDetail {
	switch {
	case stdErrors.Is(err, fs.ErrNotExist):
		return NewFileNotFoundError(path, operation)
	case stdErrors.Is(err, fs.ErrPermission):
		return NewPermissionDeniedError(path, operation)
	case stdErrors.Is(err, fs.ErrExist):
		return NewAlreadyExistsError(path, operation)
	default:
		return NewFileSystemError(path, operation, err.Error())
	}
}

// ToErrorResponse converts an ErrorDetail to an HTTP models.ErrorResponse.
func ToErrorResponse(errDetail *models.ErrorDetail) *models.ErrorResponse {
	if errDetail == nil {
		return nil
	}
	return &models.ErrorResponse{Error: *errDetail}
}

// ToJSONRPCError converts an ErrorDetail to a models.JSONRPCError, lifting the
// well-known keys of Data into JSONRPCErrorData.
func ToJSONRPCError(errDetail *models.ErrorDetail) *models.JSONRPCError {
	if errDetail == nil {
		return nil
	}
	rpcErr := &models.JSONRPCError{
		Code:    errDetail.Code,
		Message: errDetail.Message,
	}
	if errDetail.Data == nil {
		return rpcErr
	}

	data := &models.JSONRPCErrorData{Timestamp: time.Now().UTC().Format(time.RFC3339)}
	if dataMap, ok := errDetail.Data.(map[string]interface{}); ok {
		if val, ok := dataMap["path"].(string); ok {
			data.Path = val
		}
		if val, ok := dataMap["operation"].(string); ok {
			data.Operation = val
		}
		if pi, ok := dataMap["param_issues"]; ok {
			data.Details = fmt.Sprintf("Parameter issues: %v. Summary: %v", pi, dataMap["details"])
		} else if val, ok := dataMap["details"].(string); ok {
			data.Details = val
		}
	} else {
		data.Details = fmt.Sprintf("%v", errDetail.Data)
	}
	rpcErr.Data = data
	return rpcErr
}

// MapErrorToHTTPStatus maps an error code to an HTTP status code.
func MapErrorToHTTPStatus(errDetail *models.ErrorDetail) int {
	if errDetail == nil {
		return http.StatusInternalServerError
	}
	switch errDetail.Code {
	case CodeParseError, CodeInvalidRequest, CodeInvalidParams, CodeInvalidEncoding:
		return http.StatusBadRequest
	case CodeMethodNotFound:
		return http.StatusNotFound
	case CodeFileSystemError:
		if dataMap, ok := errDetail.Data.(map[string]interface{}); ok {
			switch dataMap["type"] {
			case typeFileNotFound:
				return http.StatusNotFound
			case typePermissionDenied:
				return http.StatusForbidden
			}
		}
		return http.StatusInternalServerError
	case CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeOperationLockFailed, CodeAlreadyExists, CodeNoDirectorySubmitted:
		return http.StatusConflict
	case CodeOutsideWorkspace:
		return http.StatusForbidden
	case CodeTreeBuildFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
