package server

import (
	"net/http"
	"strings"

	"github.com/ZaguanLabs/wordweave"
	"github.com/ZaguanLabs/wordweave/processor"
	"github.com/ZaguanLabs/wordweave/scheduler"
)

// fullPage is a viewport tall enough to cover any document.
var fullPage = processor.Viewport{Top: 0, Height: 1e12}

// AnnotateRequest is the body of POST /v1/annotate.
type AnnotateRequest struct {
	HTML string `json:"html"`
	// Host is checked against the site rules.
	Host string `json:"host,omitempty"`
	// Viewport limits processing to one screen; the whole document is
	// processed when it is omitted.
	Viewport *ViewportRequest `json:"viewport,omitempty"`
}

// ViewportRequest describes the visible window of the page.
type ViewportRequest struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
	Margin float64 `json:"margin"`
}

// Substitution is one applied substitution.
type Substitution struct {
	Original    string `json:"original"`
	Translation string `json:"translation"`
	Phonetic    string `json:"phonetic,omitempty"`
	Difficulty  string `json:"difficulty"`
	Lang        string `json:"lang,omitempty"`
	Source      string `json:"source,omitempty"`
}

// AnnotateResponse is the answer to POST /v1/annotate.
type AnnotateResponse struct {
	HTML          string         `json:"html"`
	Session       string         `json:"session"`
	Disabled      bool           `json:"disabled,omitempty"`
	Excluded      bool           `json:"excluded,omitempty"`
	Substitutions []Substitution `json:"substitutions"`
}

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	var req AnnotateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.HTML) == "" {
		writeError(w, http.StatusBadRequest, "html is required")
		return
	}

	doc, err := processor.ParseHTML(req.HTML)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	vp := fullPage
	if req.Viewport != nil {
		vp = processor.Viewport{Top: req.Viewport.Top, Height: req.Viewport.Height, Margin: req.Viewport.Margin}
	}
	opts := append([]scheduler.Option{}, s.schedOpts...)
	opts = append(opts, scheduler.WithHost(req.Host), scheduler.WithViewport(vp), scheduler.WithLogger(s.logger))
	sched := scheduler.New(doc, s.orch, opts...)
	defer sched.Close()

	page := sched.ProcessPage(r.Context())
	if err := sched.Wait(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
		return
	}

	out, err := sched.HTML()
	if err != nil {
		s.log.Error("rendering document failed", "error", err, "session", sched.Session())
		writeError(w, http.StatusInternalServerError, "rendering failed")
		return
	}

	resp := AnnotateResponse{
		HTML:          out,
		Session:       sched.Session(),
		Disabled:      page.Disabled,
		Excluded:      page.Excluded,
		Substitutions: []Substitution{},
	}
	for _, rep := range sched.Substitutions() {
		resp.Substitutions = append(resp.Substitutions, Substitution{
			Original:    rep.Original,
			Translation: rep.Translation,
			Phonetic:    rep.Phonetic,
			Difficulty:  string(rep.Difficulty),
			Lang:        rep.Lang,
			Source:      string(rep.Provenance),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// RestoreRequest is the body of POST /v1/restore.
type RestoreRequest struct {
	HTML string `json:"html"`
}

// RestoreResponse is the answer to POST /v1/restore.
type RestoreResponse struct {
	HTML     string `json:"html"`
	Restored int    `json:"restored"`
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if !s.decode(w, r, &req) {
		return
	}
	doc, err := processor.ParseHTML(req.HTML)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n := processor.RestoreAll(doc.Root())
	out, err := doc.HTML()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "rendering failed")
		return
	}
	writeJSON(w, http.StatusOK, RestoreResponse{HTML: out, Restored: n})
}

// WordsRequest is the body of POST /v1/words.
type WordsRequest struct {
	Words []string `json:"words"`
}

// WordsResponse is the answer to POST /v1/words. Error is set when the
// provider failed; cached translations are still listed.
type WordsResponse struct {
	Translations []wordweave.ParsedTranslation `json:"translations"`
	Error        string                        `json:"error,omitempty"`
}

func (s *Server) handleWords(w http.ResponseWriter, r *http.Request) {
	var req WordsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Words) == 0 {
		writeError(w, http.StatusBadRequest, "words are required")
		return
	}

	items, err := s.orch.TranslateWords(r.Context(), req.Words)
	resp := WordsResponse{Translations: items}
	if resp.Translations == nil {
		resp.Translations = []wordweave.ParsedTranslation{}
	}
	if err != nil {
		resp.Error = err.Error()
		if len(items) == 0 {
			writeJSON(w, http.StatusBadGateway, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// StatsResponse is the answer to GET /v1/stats.
type StatsResponse struct {
	wordweave.StatsSnapshot
	CachedWords int `json:"cached_words"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatsResponse{
		StatsSnapshot: s.orch.Stats().Snapshot(),
		CachedWords:   s.orch.Cache().Len(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": wordweave.FullVersion()})
}
