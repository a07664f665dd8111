package transport

import (
	"encoding/json"
	"fmt"

	"next-nav-server/internal/errors"
	"next-nav-server/internal/models"
	"next-nav-server/internal/service"
	"next-nav-server/internal/session"
)

// Methods lists the navigator operations served by the stdio and HTTP transports.
var Methods = []string{
	"submit_dir",
	"get_tree",
	"build_tree",
	"open_file",
	"add_file",
	"add_folder",
	"delete_file",
	"delete_folder",
}

// dispatch decodes params for method and calls the matching service
// operation. Empty or null params decode as an empty object.
func dispatch(svc service.NavigatorService, sess *session.Session, method string, params json.RawMessage) (interface{}, *models.ErrorDetail) {
	if len(params) == 0 || string(params) == "null" {
		params = json.RawMessage("{}")
	}

	switch method {
	case "submit_dir":
		var req models.SubmitDirRequest
		if errDetail := decodeParams(method, params, &req); errDetail != nil {
			return nil, errDetail
		}
		return unwrap(svc.SubmitDir(sess, req))
	case "get_tree":
		return unwrap(svc.GetTree(sess))
	case "build_tree":
		var req models.BuildTreeRequest
		if errDetail := decodeParams(method, params, &req); errDetail != nil {
			return nil, errDetail
		}
		return unwrap(svc.BuildTree(req))
	case "open_file", "add_file", "add_folder", "delete_file", "delete_folder":
		var req models.FilePathRequest
		if errDetail := decodeParams(method, params, &req); errDetail != nil {
			return nil, errDetail
		}
		switch method {
		case "open_file":
			return unwrap(svc.OpenFile(req))
		case "add_file":
			return unwrap(svc.AddFile(req))
		case "add_folder":
			return unwrap(svc.AddFolder(req))
		case "delete_file":
			return unwrap(svc.DeleteFile(req))
		default:
			return unwrap(svc.DeleteFolder(req))
		}
	default:
		return nil, errors.NewMethodNotFoundError(method)
	}
}

func decodeParams(method string, params json.RawMessage, dst interface{}) *models.ErrorDetail {
	if err := json.Unmarshal(params, dst); err != nil {
		return errors.NewInvalidParamsError(fmt.Sprintf("Invalid params for %s: %v", method, err), nil)
	}
	return nil
}

// unwrap turns a typed service result into an untyped one, keeping a nil
// pointer from becoming a non-nil interface.
func unwrap[T any](resp *T, errDetail *models.ErrorDetail) (interface{}, *models.ErrorDetail) {
	if errDetail != nil {
		return nil, errDetail
	}
	if resp == nil {
		return nil, errors.NewInternalError("empty service response")
	}
	return resp, nil
}
