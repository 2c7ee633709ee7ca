// Package server exposes the shell over HTTP and the tab surfaces over a
// WebSocket.
package server

import (
	"context"
	"io/fs"
	"net/http"
	"regexp"

	"github.com/soar/gamepadview/internal/gamepad"
	"github.com/soar/gamepadview/internal/hub"
	"github.com/soar/gamepadview/internal/shell"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"go.uber.org/zap"
)

type Options struct {
	Hub         *hub.Hub
	Broadcaster *hub.Broadcaster
	Commands    *shell.Commands
	Palette     *shell.Palette
	Launcher    *shell.Launcher
	Shell       *shell.Shell
	// Devices is nil when enumeration is unsupported.
	Devices    gamepad.Enumerator
	FrontendFS fs.FS
	Addr       string
	Log        *zap.Logger
}

type Server struct {
	opts       Options
	log        *zap.Logger
	httpServer *http.Server
}

func New(opts Options) *Server {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	s := &Server{
		opts: opts,
		log:  opts.Log,
	}
	s.httpServer = &http.Server{
		Addr:    opts.Addr,
		Handler: s.Handler(),
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/commands", s.handleCommands)
	mux.HandleFunc("POST /api/commands/{id}/execute", s.handleExecute)
	mux.HandleFunc("GET /api/launcher", s.handleLauncher)
	mux.HandleFunc("GET /api/tabs", s.handleTabs)
	mux.HandleFunc("GET /api/tabs/{id}/document", s.handleDocument)
	mux.HandleFunc("DELETE /api/tabs/{id}", s.handleCloseTab)
	mux.HandleFunc("GET /api/devices", s.handleDevices)

	if s.opts.FrontendFS != nil {
		mux.Handle("/", newMinifier().Middleware(http.FileServer(http.FS(s.opts.FrontendFS))))
	}
	return mux
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), js.Minify)
	return m
}

func (s *Server) ListenAndServe() error {
	s.log.Info("HTTP server listening", zap.String("addr", s.opts.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
