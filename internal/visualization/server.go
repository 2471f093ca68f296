package visualization

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nvandessel/gazeviz/internal/report"
)

// Server serves the report page, the images it references and the raw
// results as JSON.
type Server struct {
	title      string
	results    []report.Result
	files      map[string]string
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	addr       string
}

// NewServer creates a report server. Only files referenced by results are
// ever served.
func NewServer(title string, results []report.Result) *Server {
	files := make(map[string]string)
	for i, r := range results {
		for _, a := range Artifacts(i, r) {
			files[a.ID] = a.Path
		}
	}
	return &Server{
		title:   title,
		results: results,
		files:   files,
	}
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/files/", s.handleFile)
	mux.HandleFunc("/api/results", s.handleResults)
	return mux
}

// ListenAndServe starts the HTTP server on an OS-assigned port and blocks
// until the context is cancelled. Returns nil on clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	// Let the OS pick a free port.
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.mu.Unlock()

	// Graceful shutdown when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	page := BuildPage(s.title, s.results, r.URL.Query().Get("category"), func(a Artifact) string {
		return "/files/" + a.ID
	})
	html, err := RenderHTML(page)
	if err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(html)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/files/")
	path, ok := s.files[id]
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	results := make([]report.Result, 0, len(s.results))
	for _, i := range Filter(s.results, r.URL.Query().Get("category")) {
		results = append(results, s.results[i])
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}
