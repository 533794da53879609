package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/leadsync/dom"
	"github.com/hazyhaar/leadsync/pagetype"
	"github.com/hazyhaar/leadsync/schema"
	"github.com/hazyhaar/leadsync/selector"
)

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}
	writeJSON(w, http.StatusOK, pagetype.Describe(req.URL))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HTML   string `json:"html"`
		Target string `json:"target"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.HTML == "" || req.Target == "" {
		writeError(w, http.StatusBadRequest, errors.New("html and target are required"))
		return
	}
	doc, err := dom.ParseString(req.HTML)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	el, err := doc.Find(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if el == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no element matches %q", req.Target))
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Synthesizer.Generate(doc, el))
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HTML  string `json:"html"`
		CSS   string `json:"css"`
		XPath string `json:"xpath"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.CSS == "" && req.XPath == "" {
		writeError(w, http.StatusBadRequest, errors.New("css or xpath is required"))
		return
	}
	doc, err := dom.ParseString(req.HTML)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp := map[string]selector.Match{}
	if req.CSS != "" {
		resp["css"] = selector.TestCSS(doc, req.CSS)
	}
	if req.XPath != "" {
		resp["xpath"] = selector.TestXPath(doc, req.XPath)
	}
	writeJSON(w, http.StatusOK, resp)
}

// schemaKey reads and checks the {platform}/{pageType} path parameters.
func schemaKey(w http.ResponseWriter, r *http.Request) (pagetype.Platform, pagetype.PageType, bool) {
	p := pagetype.Platform(chi.URLParam(r, "platform"))
	t := pagetype.PageType(chi.URLParam(r, "pageType"))
	if !p.Valid() || !t.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown schema %s/%s", p, t))
		return "", "", false
	}
	return p, t, true
}

func (s *Server) handleSchemaMap(w http.ResponseWriter, r *http.Request) {
	var platforms []pagetype.Platform
	for _, p := range r.URL.Query()["platform"] {
		platforms = append(platforms, pagetype.Platform(p))
	}
	m, err := s.cfg.Registry.SchemaMap(r.Context(), platforms...)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleForPlatform(w http.ResponseWriter, r *http.Request) {
	p, t, ok := schemaKey(w, r)
	if !ok {
		return
	}
	els, err := s.cfg.Registry.ForPlatform(r.Context(), p, t)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if els == nil {
		els = []*schema.Element{}
	}
	writeJSON(w, http.StatusOK, els)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	p, t, ok := schemaKey(w, r)
	if !ok {
		return
	}
	doc, err := s.cfg.Registry.Export(r.Context(), p, t)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_%s_schema.json"`, p, t))
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	p, t, ok := schemaKey(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := schema.HistoryFilter{
		Platform:  string(p),
		PageType:  string(t),
		Version:   q.Get("version"),
		ElementID: q.Get("element_id"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
		f.Limit = n
	}
	recs, err := s.cfg.Registry.History(r.Context(), f)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if recs == nil {
		recs = []*schema.HistoryRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var doc schema.Document
	if !decode(w, r, &doc) {
		return
	}
	res, err := s.cfg.Registry.Import(r.Context(), &doc)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateElement(w http.ResponseWriter, r *http.Request) {
	e := schema.Element{IsActive: true}
	if !decode(w, r, &e) {
		return
	}
	e.ID = ""
	if err := s.cfg.Registry.CreateElement(r.Context(), &e); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &e)
}

func (s *Server) handleGetElement(w http.ResponseWriter, r *http.Request) {
	e, err := s.cfg.Registry.GetElement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if e == nil {
		s.writeStoreError(w, schema.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleUpdateElement applies the fields present in the body to the stored
// element.
func (s *Server) handleUpdateElement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cur, err := s.cfg.Registry.GetElement(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if cur == nil {
		s.writeStoreError(w, schema.ErrNotFound)
		return
	}
	e := *cur
	if !decode(w, r, &e) {
		return
	}
	e.ID = id
	if err := s.cfg.Registry.UpdateElement(r.Context(), &e); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &e)
}

func (s *Server) handleDeleteElement(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Registry.DeleteElement(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
