package server

import (
	"errors"
	"net/http"

	"github.com/hyperjump/kouho/internal/fileid"
	"github.com/hyperjump/kouho/internal/matcher"
	"github.com/hyperjump/kouho/internal/models"
)

// Legacy handlers answer with 200 and a message for duplicate and missing resumes, the
// way the first release did.

type legacyMessage struct {
	Message  string `json:"message"`
	Filename string `json:"filename,omitempty"`
}

type legacyExplanation struct {
	Filename        string   `json:"filename"`
	MatchedKeywords []string `json:"matched_keywords"`
}

func (s *Server) handleLegacyUpload(w http.ResponseWriter, r *http.Request) {
	in, err := s.readMultipartUpload(w, r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := s.matcher.Upload(r.Context(), in)
	if errors.Is(err, matcher.ErrAlreadyExists) {
		name, _ := fileid.ResumeID(in.Filename)
		s.respondJSON(w, http.StatusOK, legacyMessage{Message: matcher.MessageExists, Filename: name})
		return
	}
	if err != nil {
		s.respondMatcherError(w, "upload", err)
		return
	}
	s.respondJSON(w, http.StatusOK, legacyMessage{Message: resp.Message, Filename: resp.Filename})
}

func (s *Server) handleLegacyRank(w http.ResponseWriter, r *http.Request) {
	var req models.RankRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := s.matcher.Rank(r.Context(), models.RankRequest{Text: req.Text})
	if err != nil {
		s.respondMatcherError(w, "rank", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"results": resp.Results})
}

func (s *Server) handleLegacyExplain(w http.ResponseWriter, r *http.Request) {
	var req models.ExplainRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := s.matcher.Explain(r.Context(), req)
	if err != nil {
		s.respondMatcherError(w, "explain", err)
		return
	}
	if resp.Message != "" {
		s.respondJSON(w, http.StatusOK, legacyMessage{Message: resp.Message})
		return
	}
	out := make([]legacyExplanation, len(resp.Explanations))
	for i, e := range resp.Explanations {
		out[i] = legacyExplanation{Filename: e.Filename, MatchedKeywords: e.MatchedKeywords}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"explanations": out})
}

func (s *Server) handleLegacyDelete(w http.ResponseWriter, r *http.Request) {
	resp, err := s.matcher.Delete(r.Context(), filenameParam(r))
	if errors.Is(err, matcher.ErrNotFound) || errors.Is(err, matcher.ErrInvalidFilename) {
		s.respondJSON(w, http.StatusOK, legacyMessage{Message: matcher.MessageNotFound})
		return
	}
	if err != nil {
		s.respondMatcherError(w, "delete", err)
		return
	}
	s.respondJSON(w, http.StatusOK, legacyMessage{Message: resp.Message})
}
