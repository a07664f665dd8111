package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"next-nav-server/internal/errors"
	"next-nav-server/internal/models"
	"next-nav-server/internal/session"
)

func newTestHandler(t *testing.T, svc *mockNavigatorService) *HTTPHandler {
	t.Helper()
	store, err := session.NewStore(8)
	require.NoError(t, err)
	return NewHTTPHandler(svc, store)
}

func postJSON(t *testing.T, h http.Handler, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.ErrorDetail {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp.Error
}

func TestHTTPHandler_OpenFileSuccess(t *testing.T) {
	svc := &mockNavigatorService{
		OpenFileFunc: func(req models.FilePathRequest) (*models.OpenFileResponse, *models.ErrorDetail) {
			assert.Equal(t, "app/page.tsx", req.FilePath)
			return &models.OpenFileResponse{Command: models.CommandOpenedFile, Path: "/work/app/page.tsx", Content: "x\n", TotalLines: 1}, nil
		},
	}
	h := newTestHandler(t, svc).Handler()

	rr := postJSON(t, h, "/open_file", `{"filePath":"app/page.tsx"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `{"command":"opened_file","path":"/work/app/page.tsx","content":"x\n","totalLines":1}`, rr.Body.String())
}

func TestHTTPHandler_ServiceErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		errDetail  *models.ErrorDetail
		wantStatus int
	}{
		{"not found", errors.NewFileNotFoundError("a", "delete_file"), http.StatusNotFound},
		{"permission", errors.NewPermissionDeniedError("a", "delete_file"), http.StatusForbidden},
		{"outside workspace", errors.NewOutsideWorkspaceError("../a", "delete_file"), http.StatusForbidden},
		{"lock", errors.NewOperationLockFailedError("a", "delete_file", "timeout"), http.StatusConflict},
		{"invalid params", errors.NewInvalidParamsError("bad", nil), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockNavigatorService{
				DeleteFileFunc: func(models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail) {
					return nil, tt.errDetail
				},
			}
			rr := postJSON(t, newTestHandler(t, svc).Handler(), "/delete_file", `{"filePath":"a"}`, nil)
			assert.Equal(t, tt.wantStatus, rr.Code)
			got := decodeError(t, rr)
			assert.Equal(t, tt.errDetail.Code, got.Code)
			assert.Equal(t, tt.errDetail.Message, got.Message)
		})
	}
}

func TestHTTPHandler_BadRequests(t *testing.T) {
	h := newTestHandler(t, &mockNavigatorService{}).Handler()

	t.Run("wrong method", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/get_tree", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
		assert.Equal(t, errors.CodeInvalidRequest, decodeError(t, rr).Code)
	})

	t.Run("wrong content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/open_file", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "text/plain")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		rr := postJSON(t, h, "/open_file", `{"filePath":`, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, errors.CodeParseError, decodeError(t, rr).Code)
	})

	t.Run("wrong param type", func(t *testing.T) {
		rr := postJSON(t, h, "/open_file", `{"filePath":1}`, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, errors.CodeInvalidParams, decodeError(t, rr).Code)
	})

	t.Run("body too large", func(t *testing.T) {
		body := `{"filePath":"` + strings.Repeat("a", defaultMaxRequestSizeMB*1024*1024) + `"}`
		rr := postJSON(t, h, "/open_file", body, nil)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	})

	t.Run("unknown route", func(t *testing.T) {
		rr := postJSON(t, h, "/edit_file", `{}`, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestHTTPHandler_SessionHeader(t *testing.T) {
	var seen []*session.Session
	svc := &mockNavigatorService{
		SubmitDirFunc: func(sess *session.Session, req models.SubmitDirRequest) (*models.SubmitDirResponse, *models.ErrorDetail) {
			seen = append(seen, sess)
			return &models.SubmitDirResponse{Command: models.CommandSubmitDirResponse, Result: true}, nil
		},
		GetTreeFunc: func(sess *session.Session) (*models.SendStringResponse, *models.ErrorDetail) {
			seen = append(seen, sess)
			return &models.SendStringResponse{Command: models.CommandSendString, Data: "[]"}, nil
		},
	}
	handler := newTestHandler(t, svc)
	h := handler.Handler()

	rr := postJSON(t, h, "/submit_dir", `{"folderName":"app"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	id := rr.Header().Get(SessionHeader)
	require.NotEmpty(t, id)

	// get_tree needs no body.
	req := httptest.NewRequest(http.MethodPost, "/get_tree", nil)
	req.Header.Set(SessionHeader, id)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, id, rr.Header().Get(SessionHeader))

	rr = postJSON(t, h, "/get_tree", `{}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEqual(t, id, rr.Header().Get(SessionHeader))

	require.Len(t, seen, 3)
	assert.Same(t, seen[0], seen[1])
	assert.NotSame(t, seen[0], seen[2])
	assert.Equal(t, 2, handler.sessions.Len())
}

func TestHTTPHandler_HealthCheck(t *testing.T) {
	h := newTestHandler(t, &mockNavigatorService{}).Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","workspace":"/work","sessions":0}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHTTPHandler_Metrics(t *testing.T) {
	h := newTestHandler(t, &mockNavigatorService{}).Handler()

	// One request first so the request counter has a sample.
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "nextnav_http_requests_total")
}

func TestHTTPHandler_RealWorkspace(t *testing.T) {
	root, svc := newWorkspaceService(t)
	store, err := session.NewStore(4)
	require.NoError(t, err)
	h := NewHTTPHandler(svc, store).Handler()

	rr := postJSON(t, h, "/build_tree", `{"path":"app"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var treeResp models.TreeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &treeResp))
	assert.Equal(t, filepath.Join(root, "app"), treeResp.Directory)
	assert.Len(t, treeResp.Nodes, 2)

	rr = postJSON(t, h, "/add_file", `{"filePath":"app/new.tsx"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.FileExists(t, filepath.Join(root, "app", "new.tsx"))

	rr = postJSON(t, h, "/add_file", `{"filePath":"app/new.tsx"}`, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, errors.CodeAlreadyExists, decodeError(t, rr).Code)

	rr = postJSON(t, h, "/delete_folder", `{"filePath":"../"}`, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = postJSON(t, h, "/get_tree", `{}`, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, errors.CodeNoDirectorySubmitted, decodeError(t, rr).Code)
}

func TestWriteJSONErrorResponse_NilDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSONErrorResponse(rr, http.StatusBadRequest, nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, errors.CodeInternalError, decodeError(t, rr).Code)
}

func TestDecodeBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString(`{"a":1}`))
	var raw json.RawMessage
	errDetail, status := decodeBody(req, &raw)
	assert.Nil(t, errDetail)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"a":1}`, string(raw))
}
