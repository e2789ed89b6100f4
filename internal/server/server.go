package server

import (
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/genricoloni/bloom/internal/config"
	"github.com/genricoloni/bloom/internal/present"
	"github.com/genricoloni/bloom/internal/style"
	"go.uber.org/zap"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="/theme.css">
<style>
body { margin: 0; background: #000 url(/background.jpg) center/cover no-repeat; }
h1 { color: var(--bloom-accent, #fff); text-shadow: 0 0 24px var(--bloom-glow, transparent); }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Slogan}}</p>
</body>
</html>
`))

// Server exposes the rendered background and the accent stylesheet over HTTP
// for the player UI.
type Server struct {
	logger *zap.Logger
	cfg    *config.AppConfig
	frames *present.FrameBuffer
	styles *style.CSSSink
	srv    *http.Server
}

// NewServer creates the HTTP surface
func NewServer(logger *zap.Logger, cfg *config.AppConfig, frames *present.FrameBuffer, styles *style.CSSSink) *Server {
	s := &Server{
		logger: logger,
		cfg:    cfg,
		frames: frames,
		styles: styles,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handlePage)
	mux.HandleFunc("/theme.css", s.handleTheme)
	mux.HandleFunc("/background.jpg", s.handleBackground)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.srv = &http.Server{
		Addr:              cfg.GetListenAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routing handler, for tests
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start begins serving in a goroutine
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped unexpectedly", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := pageTemplate.Execute(w, struct {
		Title  string
		Slogan string
	}{
		Title:  s.cfg.GetPageTitle(),
		Slogan: s.cfg.GetPageSlogan(),
	})
	if err != nil {
		s.logger.Error("Failed to render page", zap.Error(err))
	}
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	_, _ = w.Write([]byte(s.styles.Stylesheet()))
}

func (s *Server) handleBackground(w http.ResponseWriter, r *http.Request) {
	frame, _ := s.frames.Latest()
	if frame == nil {
		http.Error(w, "no frame rendered yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	_, _ = w.Write(frame)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
