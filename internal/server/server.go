// Package server is the visualization backend. It serves radar-chart
// data as JSON, recomputing filtered aggregates at view time from the
// long-form artifact rather than reusing the precomputed stat tables.
package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/yuin/goldmark"

	"github.com/Sennevleminckx/chart/internal/artifact"
	"github.com/Sennevleminckx/chart/internal/database"
	"github.com/Sennevleminckx/chart/internal/table"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed methodology.md
var methodologyMD []byte

var md = goldmark.New()

// Options configures the server.
type Options struct {
	DataDir      string // directory holding the parquet artifacts
	MappingPath  string // question mapping CSV, for question labels
	LabelsPath   string // domain label CSV
	CacheEntries int
}

// Server is the HTTP server for the radar-chart views.
type Server struct {
	db    *database.DB // run registry; may be nil
	opts  Options
	pages map[string]*template.Template
	mux   *http.ServeMux
	cache *DataCache

	mu             sync.Mutex
	domainLabels   map[int]string
	questionLabels map[string]string
}

// New creates a new Server. The registry db may be nil; cache entries
// are then keyed by path alone and staleness detection is disabled.
func New(db *database.DB, opts Options) (*Server, error) {
	cache, err := NewDataCache(opts.CacheEntries)
	if err != nil {
		return nil, err
	}

	pageNames := []string{"index.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	s := &Server{db: db, opts: opts, pages: pages, mux: http.NewServeMux(), cache: cache}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/methodology", s.handleMethodology)
	s.mux.HandleFunc("/api/meta", s.handleMeta)
	s.mux.HandleFunc("/api/radar/domains", s.handleDomainRadar)
	s.mux.HandleFunc("/api/radar/questions", s.handleQuestionRadar)
	s.mux.HandleFunc("/api/cache/bust", s.handleCacheBust)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	var lastRun *database.Run
	if s.db != nil {
		lastRun, _ = s.db.LatestRun()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	tmpl := s.pages["index.html"]
	if err := tmpl.Execute(w, map[string]any{
		"DataDir": s.opts.DataDir,
		"LastRun": lastRun,
	}); err != nil {
		log.Printf("rendering index: %v", err)
	}
}

func (s *Server) handleMethodology(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := md.Convert(methodologyMD, &buf); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleMeta lists teams, labeled domains, and question texts.
func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	rows, err := s.longRows()
	if err != nil {
		s.blockingError(w, err)
		return
	}
	domains, questions, err := s.labels()
	if err != nil {
		s.blockingError(w, err)
		return
	}

	teamSet := make(map[string]bool)
	domainSet := make(map[int]bool)
	for _, row := range rows {
		teamSet[row.Team] = true
		if row.DomainID != nil {
			domainSet[int(*row.DomainID)] = true
		}
	}

	type domainMeta struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	meta := struct {
		Teams     []string          `json:"teams"`
		Domains   []domainMeta      `json:"domains"`
		Questions map[string]string `json:"questions"`
	}{Questions: questions}

	for t := range teamSet {
		meta.Teams = append(meta.Teams, t)
	}
	sort.Strings(meta.Teams)
	for _, d := range sortedInts(domainSet) {
		meta.Domains = append(meta.Domains, domainMeta{ID: d, Name: domains[d]})
	}

	writeJSON(w, meta)
}

func (s *Server) handleDomainRadar(w http.ResponseWriter, r *http.Request) {
	rows, err := s.longRows()
	if err != nil {
		s.blockingError(w, err)
		return
	}
	domains, _, err := s.labels()
	if err != nil {
		s.blockingError(w, err)
		return
	}

	teams := teamFilter(r)
	stat := statChoice(r)
	writeJSON(w, domainRadar(rows, teams, stat, domains))
}

func (s *Server) handleQuestionRadar(w http.ResponseWriter, r *http.Request) {
	domainParam := r.URL.Query().Get("domain")
	domain, err := strconv.Atoi(domainParam)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid domain %q", domainParam), http.StatusBadRequest)
		return
	}

	rows, err := s.longRows()
	if err != nil {
		s.blockingError(w, err)
		return
	}
	_, questions, err := s.labels()
	if err != nil {
		s.blockingError(w, err)
		return
	}

	teams := teamFilter(r)
	stat := statChoice(r)
	writeJSON(w, questionRadar(rows, domain, teams, stat, questions))
}

func (s *Server) handleCacheBust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	s.cache.Bust()
	s.mu.Lock()
	s.domainLabels = nil
	s.questionLabels = nil
	s.mu.Unlock()
	writeJSON(w, map[string]string{"status": "cache cleared"})
}

// longRows loads the long-form artifact through the cache, tagged with
// the latest run so a newer preprocess invalidates old entries.
func (s *Server) longRows() ([]artifact.LongRow, error) {
	runID := ""
	if s.db != nil {
		if run, err := s.db.LatestRun(); err == nil && run != nil {
			runID = run.ID
		}
	}
	path := filepath.Join(s.opts.DataDir, artifact.LongFile)
	return s.cache.Load(path, runID)
}

// labels loads and memoizes the domain label and question text lookups.
func (s *Server) labels() (map[int]string, map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.domainLabels != nil {
		return s.domainLabels, s.questionLabels, nil
	}

	domainRows, err := table.LoadDomainLabels(s.opts.LabelsPath)
	if err != nil {
		return nil, nil, err
	}
	mappingRows, err := table.LoadMapping(s.opts.MappingPath)
	if err != nil {
		return nil, nil, err
	}

	domains := make(map[int]string, len(domainRows))
	for _, d := range domainRows {
		domains[d.ID] = d.Name
	}
	questions := make(map[string]string, len(mappingRows))
	for _, m := range mappingRows {
		questions[m.QuestionCode] = m.QuestionText
	}

	s.domainLabels = domains
	s.questionLabels = questions
	return domains, questions, nil
}

// blockingError reports a missing artifact or label file as a blocking
// message; the view renders nothing partial.
func (s *Server) blockingError(w http.ResponseWriter, err error) {
	log.Printf("serve: %v", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"hint":  "run 'chart preprocess' to generate the artifacts",
	})
}

func teamFilter(r *http.Request) map[string]bool {
	raw := r.URL.Query().Get("teams")
	if raw == "" {
		return nil
	}
	teams := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			teams[t] = true
		}
	}
	return teams
}

func statChoice(r *http.Request) string {
	if r.URL.Query().Get("stat") == StatMean {
		return StatMean
	}
	return StatMedian
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

func sortedInts(m map[int]bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Serve starts the HTTP server on the given port.
func Serve(db *database.DB, opts Options, port int) error {
	srv, err := New(db, opts)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
