package transport

import (
	"context"
	"encoding/json"
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
	"next-nav-server/internal/session"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
	wsMaxRead   = 64 * 1024
)

// webviewCommands maps panel commands to navigator operations.
var webviewCommands = map[string]string{
	"submitDir":    "submit_dir",
	"getRequest":   "get_tree",
	"open_file":    "open_file",
	"addFile":      "add_file",
	"addFolder":    "add_folder",
	"deleteFile":   "delete_file",
	"deleteFolder": "delete_folder",
}

// handleWebSocket speaks the panel's message protocol. Each connection is
// its own session and every inbound message gets exactly one reply, in order.
func (h *HTTPHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sess := h.sessions.New()
	defer h.sessions.Remove(sess.ID)

	metrics.WebSocketOpened()
	defer metrics.WebSocketClosed()

	logger := logging.WithContext(r.Context()).With(zap.String("session", sess.ID))
	logger.Info("websocket connected")
	defer logger.Info("websocket disconnected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(wsMaxRead)
	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		logger.Warn("websocket set read deadline failed", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// fail unblocks the read loop when the writer can no longer write.
	fail := func() {
		cancel()
		_ = conn.Close()
	}

	writeCh := make(chan interface{}, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(wsWriteWait))
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					fail()
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					logger.Debug("websocket write failed", zap.Error(err))
					fail()
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					fail()
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					fail()
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket read failed", zap.Error(err))
			}
			cancel()
			<-writerDone
			return
		}

		var out interface{}
		var in models.WebviewMessage
		if err := json.Unmarshal(data, &in); err != nil {
			out = errorMessage("", errors.NewParseError(fmt.Sprintf("Invalid JSON received: %v", err)))
		} else {
			out = h.handleWebviewMessage(sess, in)
		}
		select {
		case writeCh <- out:
		case <-ctx.Done():
			<-writerDone
			return
		}
	}
}

// handleWebviewMessage runs one panel command and returns the reply.
func (h *HTTPHandler) handleWebviewMessage(sess *session.Session, in models.WebviewMessage) interface{} {
	command := strings.TrimSpace(in.Command)
	method, ok := webviewCommands[command]
	if !ok {
		errDetail := errors.NewMethodNotFoundError(command)
		if command == "" {
			errDetail = errors.NewInvalidRequestError("command is required")
		}
		return errorMessage(command, errDetail)
	}

	var (
		resp      interface{}
		errDetail *models.ErrorDetail
	)
	switch method {
	case "submit_dir":
		resp, errDetail = unwrap(h.service.SubmitDir(sess, models.SubmitDirRequest{FolderName: in.FolderName, Form: in.Form}))
	case "get_tree":
		resp, errDetail = unwrap(h.service.GetTree(sess))
	default:
		req := models.FilePathRequest{FilePath: in.FilePath}
		switch method {
		case "open_file":
			resp, errDetail = unwrap(h.service.OpenFile(req))
		case "add_file":
			resp, errDetail = unwrap(h.service.AddFile(req))
		case "add_folder":
			resp, errDetail = unwrap(h.service.AddFolder(req))
		case "delete_file":
			resp, errDetail = unwrap(h.service.DeleteFile(req))
		default:
			resp, errDetail = unwrap(h.service.DeleteFolder(req))
		}
	}
	if errDetail != nil {
		return errorMessage(command, errDetail)
	}
	return resp
}

func errorMessage(command string, errDetail *models.ErrorDetail) models.ErrorMessage {
	return models.ErrorMessage{
		Command: models.CommandError,
		Message: errDetail.Message,
		Code:    errDetail.Code,
		Request: command,
	}
}
