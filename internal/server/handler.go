package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/soar/gamepadview/internal/gamepad"
	"github.com/soar/gamepadview/internal/hub"
	"github.com/soar/gamepadview/internal/session"
	"github.com/soar/gamepadview/internal/shell"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local use
	},
}

// PaletteEntry is a palette item joined with its command's description.
type PaletteEntry struct {
	Command  string `json:"command"`
	Category string `json:"category"`
	Label    string `json:"label"`
	Caption  string `json:"caption"`
}

type LauncherEntry struct {
	Command  string `json:"command"`
	Category string `json:"category"`
	Rank     int    `json:"rank"`
	Label    string `json:"label"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// clientHandler serves the requests sent over a client's WebSocket.
type clientHandler struct {
	shell    *shell.Shell
	commands *shell.Commands
}

func (h clientHandler) CloseTab(id string) bool {
	return h.shell.Close(id)
}

func (h clientHandler) Execute(command string) error {
	return h.commands.Execute(command)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := hub.NewClient(s.opts.Hub, conn)
	s.opts.Hub.Register(client)

	// Send every open tab to the new client
	s.opts.Broadcaster.SendInitialState(client)

	go client.WritePump()
	go client.ReadPumpWithHandler(clientHandler{shell: s.opts.Shell, commands: s.opts.Commands})
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	out := []PaletteEntry{}
	for _, item := range s.opts.Palette.List() {
		info, ok := s.opts.Commands.Get(item.Command)
		if !ok {
			continue
		}
		out = append(out, PaletteEntry{
			Command:  item.Command,
			Category: item.Category,
			Label:    info.Label,
			Caption:  info.Caption,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLauncher(w http.ResponseWriter, r *http.Request) {
	out := []LauncherEntry{}
	for _, item := range s.opts.Launcher.List() {
		info, ok := s.opts.Commands.Get(item.Command)
		if !ok {
			continue
		}
		out = append(out, LauncherEntry{
			Command:  item.Command,
			Category: item.Category,
			Rank:     item.Rank,
			Label:    info.Label,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.opts.Commands.Execute(id)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, shell.ErrUnknownCommand):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, gamepad.ErrUnsupported):
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		s.log.Error("command failed", zap.String("command", id), zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func (s *Server) handleTabs(w http.ResponseWriter, r *http.Request) {
	tabs := s.opts.Shell.List()
	if tabs == nil {
		tabs = []shell.TabInfo{}
	}
	s.writeJSON(w, http.StatusOK, tabs)
}

// handleDocument answers with the last document rendered on a tab.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.opts.Broadcaster.Document(r.PathValue("id"))
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "no document for tab"})
		return
	}
	w.Header().Set("Content-Type", session.MimeJSON)
	if _, err := w.Write(doc); err != nil {
		s.log.Warn("error writing response", zap.Error(err))
	}
}

func (s *Server) handleCloseTab(w http.ResponseWriter, r *http.Request) {
	if !s.opts.Shell.Close(r.PathValue("id")) {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "no such tab"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if s.opts.Devices == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: gamepad.ErrUnsupported.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, s.opts.Devices.Gamepads())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("error writing response", zap.Error(err))
	}
}
