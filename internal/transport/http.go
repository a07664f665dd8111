package transport

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"next-nav-server/internal/errors"
	"next-nav-server/internal/logging"
	"next-nav-server/internal/metrics"
	"next-nav-server/internal/models"
	"next-nav-server/internal/service"
	"next-nav-server/internal/session"
)

const (
	defaultReadTimeout  = 60 * time.Second
	defaultWriteTimeout = 60 * time.Second
	// Request bodies only carry paths.
	defaultMaxRequestSizeMB = 1

	// SessionHeader carries the session ID in both directions.
	SessionHeader = "X-Session-ID"
)

// HTTPHandler serves the navigator operations over HTTP and the webview
// protocol over WebSocket.
type HTTPHandler struct {
	service      service.NavigatorService
	sessions     *session.Store
	readTimeout  time.Duration
	writeTimeout time.Duration
	maxReqSize   int64
	upgrader     websocket.Upgrader
	routes       map[string]bool
	logger       *zap.Logger
	Server       *http.Server
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(svc service.NavigatorService, sessions *session.Store) *HTTPHandler {
	h := &HTTPHandler{
		service:      svc,
		sessions:     sessions,
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
		maxReqSize:   int64(defaultMaxRequestSizeMB) * 1024 * 1024,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The webview origin is vscode-webview://..., never the server's own.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		routes: map[string]bool{"/health": true, "/metrics": true, "/ws": true},
		logger: logging.Named("http"),
		Server: &http.Server{},
	}
	for _, m := range Methods {
		h.routes["/"+m] = true
	}
	return h
}

// RegisterRoutes sets up the HTTP routes for the handler.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	for _, m := range Methods {
		mux.HandleFunc("/"+m, h.handleMethod(m))
	}
	mux.HandleFunc("/health", h.handleHealthCheck)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/ws", h.handleWebSocket)
}

// Handler returns the routes wrapped in request logging and metrics.
func (h *HTTPHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return logging.Middleware(h.observe)(mux)
}

// observe records request metrics, folding unknown paths into one label.
func (h *HTTPHandler) observe(method, path string, status int, d time.Duration) {
	if !h.routes[path] {
		path = "other"
	}
	metrics.RecordHTTPRequest(method, path, status, d)
}

// writeJSONResponse is a helper to write JSON data to the response.
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logging.L().Error("error encoding JSON response", zap.Error(err))
		}
	}
}

// writeJSONErrorResponse is a helper to write a JSON error response.
func writeJSONErrorResponse(w http.ResponseWriter, httpStatusCode int, errorDetail *models.ErrorDetail) {
	if errorDetail == nil {
		errorDetail = errors.NewInternalError("An unexpected error occurred and error details were lost.")
		httpStatusCode = http.StatusInternalServerError
	}
	writeJSONResponse(w, httpStatusCode, errors.ToErrorResponse(errorDetail))
}

func (h *HTTPHandler) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"workspace": h.service.Workspace(),
		"sessions":  h.sessions.Len(),
	})
}

// sessionFor returns the session named by the request header, creating one
// when the header is absent or names an unknown session, and echoes its ID.
func (h *HTTPHandler) sessionFor(w http.ResponseWriter, r *http.Request) *session.Session {
	sess := h.sessions.GetOrCreate(r.Header.Get(SessionHeader))
	w.Header().Set(SessionHeader, sess.ID)
	return sess
}

func (h *HTTPHandler) handleMethod(method string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			errDetail := errors.NewInvalidRequestError(fmt.Sprintf("Method %s not allowed for /%s. Use POST.", r.Method, method))
			writeJSONErrorResponse(w, http.StatusMethodNotAllowed, errDetail)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, h.maxReqSize)
		defer r.Body.Close()

		var params json.RawMessage
		if r.ContentLength != 0 {
			contentType := r.Header.Get("Content-Type")
			if !strings.HasPrefix(contentType, "application/json") {
				errDetail := errors.NewInvalidRequestError("Invalid Content-Type header. Must be 'application/json' or 'application/json; charset=utf-8'.")
				writeJSONErrorResponse(w, http.StatusUnsupportedMediaType, errDetail)
				return
			}
			if errDetail, status := decodeBody(r, &params); errDetail != nil {
				writeJSONErrorResponse(w, status, errDetail)
				return
			}
		}

		sess := h.sessionFor(w, r)
		resp, serviceErr := dispatch(h.service, sess, method, params)
		if serviceErr != nil {
			logging.WithContext(r.Context()).Debug("operation failed",
				zap.String("method", method),
				zap.Int("code", serviceErr.Code),
				zap.String("message", serviceErr.Message),
			)
			writeJSONErrorResponse(w, errors.MapErrorToHTTPStatus(serviceErr), serviceErr)
			return
		}
		writeJSONResponse(w, http.StatusOK, resp)
	}
}

// decodeBody reads a single JSON value from the request body.
func decodeBody(r *http.Request, dst *json.RawMessage) (*models.ErrorDetail, int) {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil, http.StatusOK
	}

	var maxBytesError *http.MaxBytesError
	var jsonSyntaxError *json.SyntaxError
	switch {
	case stdErrors.As(err, &maxBytesError):
		return errors.NewInvalidRequestError(fmt.Sprintf("Request body exceeds maximum size of %dMB.", defaultMaxRequestSizeMB)),
			http.StatusRequestEntityTooLarge
	case stdErrors.As(err, &jsonSyntaxError):
		return errors.NewParseError(fmt.Sprintf("Invalid JSON syntax at offset %d: %s", jsonSyntaxError.Offset, jsonSyntaxError.Error())),
			http.StatusBadRequest
	default:
		return errors.NewParseError(fmt.Sprintf("Failed to decode request body: %v", err)), http.StatusBadRequest
	}
}

// StartServer configures the server and blocks serving on port until
// Shutdown is called. Non-positive timeouts keep the defaults.
func (h *HTTPHandler) StartServer(port int, readTimeoutSec int, writeTimeoutSec int) error {
	actualReadTimeout := h.readTimeout
	if readTimeoutSec > 0 {
		actualReadTimeout = time.Duration(readTimeoutSec) * time.Second
	}
	actualWriteTimeout := h.writeTimeout
	if writeTimeoutSec > 0 {
		actualWriteTimeout = time.Duration(writeTimeoutSec) * time.Second
	}

	h.Server.Addr = fmt.Sprintf(":%d", port)
	h.Server.Handler = h.Handler()
	h.Server.ReadTimeout = actualReadTimeout
	h.Server.WriteTimeout = actualWriteTimeout

	h.logger.Info("HTTP server starting",
		zap.Int("port", port),
		zap.Duration("read_timeout", actualReadTimeout),
		zap.Duration("write_timeout", actualWriteTimeout),
	)
	err := h.Server.ListenAndServe()
	if err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
		h.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
	h.logger.Info("HTTP server shut down", zap.Int("port", port))
	return nil
}

// Shutdown gracefully stops the server started by StartServer.
func (h *HTTPHandler) Shutdown(ctx context.Context) error {
	return h.Server.Shutdown(ctx)
}
