package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"ruleboard/internal/editor"
	"ruleboard/internal/store"

	"github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"
)

//go:embed templates/*.html static/*.js static/*.css
var assetsFS embed.FS

type ServerConfig struct {
	Dir       string
	Workspace string
	Logger    *zap.Logger

	// IDs overrides the instance id generator (tests use a counter).
	IDs editor.IDGenerator
	// Loader replaces the workspace store as the assignment source.
	Loader editor.Loader
	// Submitter receives POST /submit. Nil submits into the workspace store.
	Submitter editor.Submitter
}

// Server owns one editor session. Every handler that touches the session holds mu, so
// browser tabs see a single serialized sequence of commands.
type Server struct {
	mu   sync.Mutex
	cfg  ServerConfig
	st   store.Store
	sess *editor.Session
	log  *zap.Logger
	tmpl *template.Template
	hub  *hub

	// changes is bumped by the session listener; saved is the value last persisted.
	changes     int
	saved       int
	unsubscribe func()

	flash    string
	flashErr bool
}

func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	cfg.Dir = strings.TrimSpace(cfg.Dir)
	cfg.Workspace = strings.TrimSpace(cfg.Workspace)
	if cfg.Dir == "" {
		return nil, errors.New("web: dir is empty")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ids := cfg.IDs
	if ids == nil {
		ids = editor.NewRandomIDs()
	}

	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"trim": strings.TrimSpace,
	}).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:  cfg,
		st:   store.Store{Dir: cfg.Dir},
		sess: editor.NewSession(editor.Options{IDs: ids, Logger: log.Named("session")}),
		log:  log,
		tmpl: tmpl,
		hub:  newHub(),
	}

	var loader editor.Loader = s.st
	if cfg.Loader != nil {
		loader = cfg.Loader
	}
	if err := s.sess.Load(ctx, loader); err != nil {
		// The board still renders, with an empty pool and the error banner.
		log.Warn("load failed", zap.Error(err))
	}
	if ui, err := s.st.LoadTUIState(); err == nil {
		for _, b := range ui.Collapsed {
			_, _ = s.sess.Apply(editor.CollapseCmd{Bucket: b, Collapsed: true})
		}
	}

	s.unsubscribe = s.sess.Subscribe(func(editor.Snapshot) {
		s.changes++
		s.hub.broadcast()
	})
	return s, nil
}

func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /static/app.css", s.handleStatic("static/app.css", "text/css; charset=utf-8"))
	mux.HandleFunc("GET /static/app.js", s.handleStatic("static/app.js", "application/javascript; charset=utf-8"))
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /pool", s.handlePool)
	mux.HandleFunc("POST /drag/start", s.handleDragStart)
	mux.HandleFunc("POST /drag/end", s.handleDragEnd)
	mux.HandleFunc("POST /drag/abandon", s.handleDragAbandon)
	mux.HandleFunc("POST /params/field", s.handleParamsField)
	mux.HandleFunc("POST /params/save", s.handleParamsSave)
	mux.HandleFunc("POST /params/cancel", s.handleParamsCancel)
	mux.HandleFunc("POST /instances/{id}/remove", s.handleInstanceRemove)
	mux.HandleFunc("POST /instances/{id}/edit", s.handleInstanceEdit)
	mux.HandleFunc("POST /buckets/{name}/collapse", s.handleBucketCollapse)
	mux.HandleFunc("GET /preview", s.handlePreview)
	mux.HandleFunc("GET /preview/html", s.handlePreviewHTML)
	mux.HandleFunc("POST /submit", s.handleSubmit)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatic(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := assetsFS.ReadFile(name)
		if err != nil || len(b) == 0 {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	vm := s.boardVMLocked("")
	s.mu.Unlock()
	s.writeHTMLTemplate(w, "page", vm)
}

// renderBoard renders #board under the session lock.
func (s *Server) renderBoard(query string) (string, error) {
	s.mu.Lock()
	vm := s.boardVMLocked(query)
	s.mu.Unlock()
	return s.renderTemplate("board", vm)
}

// handleEvents streams #board patches: one immediately, then one per hub tick.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	ch, cancel := s.hub.subscribe()
	defer cancel()

	patch := func() {
		html, err := s.renderBoard("")
		if err != nil {
			_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
			return
		}
		_ = sse.PatchElements(html, datastar.WithSelector("#board"), datastar.WithMode(datastar.ElementPatchModeOuter))
	}
	patch()

	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case <-ch:
			patch()
		}
	}
}

type poolSignals struct {
	Q string `json:"q"`
}

// handlePool re-renders the pool list for the search box.
func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	var sig poolSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		sig.Q = r.URL.Query().Get("q")
	}
	s.mu.Lock()
	vm := s.boardVMLocked(sig.Q)
	s.mu.Unlock()

	html, err := s.renderTemplate("pool", vm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	sse := datastar.NewSSE(w, r)
	_ = sse.PatchElements(html, datastar.WithSelector("#pool"), datastar.WithMode(datastar.ElementPatchModeOuter))
}
