package http

import (
	"net/http"
	"strconv"

	"github.com/fwojciec/contentsync"
	"github.com/fwojciec/contentsync/clone"
	"github.com/go-chi/chi/v5"
)

type cloneRequest struct {
	IDs         []int  `json:"ids"`
	Language    string `json:"language"`
	Concurrency int    `json:"concurrency,omitempty"`
}

type syncRequest struct {
	SourceID int  `json:"sourceId"`
	Force    bool `json:"force,omitempty"`
}

type fragmentsResponse struct {
	ID            int      `json:"id"`
	SchemaVersion string   `json:"schemaVersion"`
	Fragments     []string `json:"fragments"`
}

func (s *Server) handleClone(w http.ResponseWriter, r *http.Request) {
	var req cloneRequest
	if err := decodeJSON(r, &req); err != nil {
		s.Error(w, r, err)
		return
	}
	if s.Cloner == nil {
		s.Error(w, r, contentsync.Errorf(contentsync.ENOTIMPLEMENTED, "cloning not configured"))
		return
	}

	cloner := s.Cloner
	if req.Concurrency > 0 {
		c := *s.Cloner
		c.Concurrency = req.Concurrency
		cloner = &c
	}

	report, err := cloner.CloneBatch(r.Context(), req.IDs, req.Language, s.Progress)
	if err != nil {
		s.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := decodeJSON(r, &req); err != nil {
		s.Error(w, r, err)
		return
	}
	if s.Cloner == nil {
		s.Error(w, r, contentsync.Errorf(contentsync.ENOTIMPLEMENTED, "cloning not configured"))
		return
	}

	report, err := s.Cloner.SyncGroup(r.Context(), req.SourceID, clone.SyncOptions{Force: req.Force}, s.Progress)
	if err != nil {
		s.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	content, err := s.findContent(r)
	if err != nil {
		s.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (s *Server) handleFragments(w http.ResponseWriter, r *http.Request) {
	content, err := s.findContent(r)
	if err != nil {
		s.Error(w, r, err)
		return
	}

	schema := s.Schema
	if schema == nil {
		schema = contentsync.DefaultSchema()
	}

	resp := fragmentsResponse{ID: content.ID, SchemaVersion: schema.Version, Fragments: []string{}}
	if content.HasDocument() {
		resp.Fragments = contentsync.CollectJSON([]byte(content.Data), schema)
	}
	writeJSON(w, http.StatusOK, &resp)
}

func (s *Server) findContent(r *http.Request) (*contentsync.Content, error) {
	if s.Store == nil {
		return nil, contentsync.Errorf(contentsync.ENOTIMPLEMENTED, "content store not configured")
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return nil, contentsync.Errorf(contentsync.EINVALID, "invalid content ID %q", chi.URLParam(r, "id"))
	}
	return s.Store.FindContentByID(r.Context(), id)
}
