// Package ui serves stored audit runs over HTTP: a JSON API plus a
// markdown-rendered summary page. Read-only over the ledger.
package ui

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"leakcheck/domain/core"
	"leakcheck/domain/eval"
	"leakcheck/ports"
)

// Server represents the report web server
type Server struct {
	router chi.Router
	ledger ports.LedgerPort
}

// NewServer creates a new report server over a run ledger.
func NewServer(ledger ports.LedgerPort) *Server {
	s := &Server{ledger: ledger}
	s.setupRoutes()
	return s
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/", s.handleIndex)
	r.Get("/api/runs", s.handleListRuns)
	r.Get("/api/runs/{runID}", s.handleGetRun)

	s.router = r
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	log.Printf("[ReportServer] listening on http://%s", addr)
	return http.ListenAndServe(addr, s.router)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleListRuns returns the most recent run manifests as JSON.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.ledger.ListRuns(r.Context(), 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"runs": runs, "count": len(runs)})
}

// handleGetRun returns one run manifest by ID.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := core.ParseRunID(chi.URLParam(r, "runID"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	manifest, err := s.ledger.GetRun(r.Context(), runID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, manifest)
}

// handleIndex renders the run summary as markdown-generated HTML.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := s.ledger.ListRuns(r.Context(), 25)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	md := buildSummaryMarkdown(runs)
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	page := markdown.ToHTML([]byte(md), p, renderer)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// buildSummaryMarkdown formats stored manifests as a markdown report.
func buildSummaryMarkdown(runs []eval.RunManifest) string {
	var b strings.Builder
	b.WriteString("# Leakage Audit Runs\n\n")
	if len(runs) == 0 {
		b.WriteString("No runs recorded yet.\n")
		return b.String()
	}

	b.WriteString("| Run | Seed | N | P | Effect | Leaky | Clean | Null | Chance | Skipped |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|---|\n")
	for _, m := range runs {
		b.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.3f | %.3f | %.3f | %.3f | %.3f | %d |\n",
			shortID(m.RunID), m.Seed, m.Samples, m.Features, m.EffectSize,
			m.LeakyMean, m.CleanMean, m.NullMean, m.ChanceLevel, m.SkippedSplits))
	}
	b.WriteString("\nScores are balanced accuracy for categorical outcomes, R² for continuous.\n")
	b.WriteString("A leaky mean well above both the clean mean and chance on pure noise is the reproduced selection-leakage signature.\n")
	return b.String()
}

func shortID(id core.RunID) string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ReportServer] response encoding failed: %v", err)
	}
}
