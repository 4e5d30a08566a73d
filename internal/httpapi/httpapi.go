// Package httpapi is the thin HTTP/WebSocket adapter in front of the
// control plane: REST routes for Start/Pause/Stop/Snapshot/Scan, and a
// WebSocket endpoint that fans out the control plane's event stream to
// however many browser tabs are watching.
package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/duskvault/backupd/internal/control"
	"github.com/duskvault/backupd/internal/logging"
	"github.com/duskvault/backupd/internal/model"
	"github.com/duskvault/backupd/internal/session"
)

// Server wires a control.Controller to an HTTP mux and a WebSocket
// broadcast of its event stream.
type Server struct {
	ctrl *control.Controller
	log  *logging.Logger

	upgrader websocket.Upgrader

	wsMu      sync.RWMutex
	wsClients map[*websocket.Conn]chan interface{}
}

// New constructs a Server around ctrl. Call Router to obtain the
// http.Handler to serve.
func New(ctrl *control.Controller, log *logging.Logger) *Server {
	return &Server{
		ctrl: ctrl,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		wsClients: make(map[*websocket.Conn]chan interface{}),
	}
}

// Router returns the full route table. It also starts the goroutine that
// drains the control plane's event subscription into WebSocket clients.
func (s *Server) Router() http.Handler {
	go s.pumpEvents()

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost)
	api.HandleFunc("/start", s.handleStart).Methods(http.MethodPost)
	api.HandleFunc("/pause", s.handlePause).Methods(http.MethodPost)
	api.HandleFunc("/stop", s.handleStop).Methods(http.MethodPost)
	api.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket)
	return r
}

type scanRequest struct {
	Root string `json:"root"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.ctrl.ScanDirectories(req.Root); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

type startRequest struct {
	Parallel bool `json:"parallel"`
	DryRun   bool `json:"dry_run"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := s.ctrl.Start(req.Parallel, req.DryRun); err != nil {
		status := http.StatusInternalServerError
		if err == model.ErrInvalidTransition {
			status = http.StatusConflict
		} else {
			status = http.StatusPreconditionFailed
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.ctrl.Snapshot())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Pause(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Stop(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

// handleWebSocket upgrades the connection, registers a per-client
// buffered channel, and relays it from pumpEvents until the client
// disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Logf(logging.LevelWarning, "websocket upgrade failed: %v", err)
		return
	}

	clientChan := make(chan interface{}, 32)
	s.wsMu.Lock()
	s.wsClients[conn] = clientChan
	s.wsMu.Unlock()

	defer func() {
		s.wsMu.Lock()
		delete(s.wsClients, conn)
		s.wsMu.Unlock()
		close(clientChan)
		conn.Close()
	}()

	if err := conn.WriteJSON(snapshotMessage(s.ctrl.Snapshot())); err != nil {
		return
	}

	go func() {
		for msg := range clientChan {
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// pumpEvents subscribes once to the control plane's event bus and
// broadcasts every event to whichever WebSocket clients are currently
// connected, dropping for any client whose channel is full.
func (s *Server) pumpEvents() {
	events, unsubscribe := s.ctrl.SubscribeEvents()
	defer unsubscribe()

	for ev := range events {
		s.broadcast(eventMessage(ev))
	}
}

func (s *Server) broadcast(msg interface{}) {
	s.wsMu.RLock()
	defer s.wsMu.RUnlock()
	for _, ch := range s.wsClients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func eventMessage(ev session.Event) map[string]interface{} {
	return map[string]interface{}{
		"type": "event",
		"data": map[string]interface{}{
			"kind":            ev.Type.String(),
			"directory_index": ev.DirectoryIndex,
			"progress":        ev.Progress,
			"message":         ev.Message,
			"at":              time.Now(),
		},
	}
}

func snapshotMessage(snap model.SnapshotView) map[string]interface{} {
	return map[string]interface{}{
		"type": "snapshot",
		"data": snap,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
