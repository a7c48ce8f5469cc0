package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/kouho/internal/matcher"
	"github.com/hyperjump/kouho/internal/models"
	"go.uber.org/zap"
)

const rootMessage = "Resume matcher API running"

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"message": rootMessage})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	in, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("upload request", zap.String("filename", in.Filename), zap.Int("bytes", len(in.Content)))
	resp, err := s.matcher.Upload(r.Context(), in)
	if err != nil {
		s.respondMatcherError(w, "upload", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, resp)
}

// readUpload accepts a multipart form with a "file" field or a JSON ResumeInput body.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (matcher.UploadInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return s.readMultipartUpload(w, r)
	}
	var input models.ResumeInput
	if err := s.decodeJSON(w, r, &input); err != nil {
		return matcher.UploadInput{}, errors.New("invalid request body")
	}
	return matcher.UploadInput{Filename: input.Filename, Text: input.Text}, nil
}

func (s *Server) readMultipartUpload(w http.ResponseWriter, r *http.Request) (matcher.UploadInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := r.ParseMultipartForm(s.maxBodyBytes); err != nil {
		return matcher.UploadInput{}, fmt.Errorf("invalid multipart form: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return matcher.UploadInput{}, errors.New("file field is required")
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return matcher.UploadInput{}, fmt.Errorf("read upload: %w", err)
	}
	if content == nil {
		content = []byte{}
	}
	return matcher.UploadInput{Filename: header.Filename, Content: content}, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.matcher.List(r.Context())
	if err != nil {
		s.respondMatcherError(w, "list", err)
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	resume, err := s.matcher.Get(r.Context(), filenameParam(r))
	if err != nil {
		s.respondMatcherError(w, "get", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resume)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	filename := filenameParam(r)
	s.logger.Debug("delete request", zap.String("filename", filename))
	resp, err := s.matcher.Delete(r.Context(), filename)
	if err != nil {
		s.respondMatcherError(w, "delete", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	var req models.RankRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("rank request", zap.Int("top_k", req.TopK), zap.Int("chars", len(req.Text)))
	resp, err := s.matcher.Rank(r.Context(), req)
	if err != nil {
		s.respondMatcherError(w, "rank", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
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
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	resp, err := s.matcher.Rebuild(r.Context())
	if err != nil {
		s.respondMatcherError(w, "rebuild", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.matcher.Status(r.Context())
	if err != nil {
		s.respondMatcherError(w, "status", err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

// decodeJSON decodes a request body of at most maxBodyBytes into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// filenameParam returns the unescaped {filename} path parameter.
func filenameParam(r *http.Request) string {
	raw := chi.URLParam(r, "filename")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

// errorStatus maps matcher errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, matcher.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, matcher.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, matcher.ErrInvalidFilename), errors.Is(err, matcher.ErrEmptyText),
		errors.Is(err, matcher.ErrUnreadable):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondMatcherError(w http.ResponseWriter, op string, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
