package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/kouho/internal/matcher"
	"github.com/hyperjump/kouho/internal/models"
)

// backend is what the client commands need. apiClient talks to a running server;
// *matcher.Service opens the store directly.
type backend interface {
	Upload(ctx context.Context, in matcher.UploadInput) (*models.UploadResponse, error)
	Rank(ctx context.Context, req models.RankRequest) (*models.RankResponse, error)
	Explain(ctx context.Context, req models.ExplainRequest) (*models.ExplainResponse, error)
	Delete(ctx context.Context, filename string) (*models.DeleteResponse, error)
	Rebuild(ctx context.Context) (*models.RebuildResponse, error)
	List(ctx context.Context) (*models.ResumeList, error)
	Status(ctx context.Context) (*models.Status, error)
}

// apiError is a non-2xx response from the server.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps status codes back to matcher errors so callers can use errors.Is.
func (e *apiError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return matcher.ErrNotFound
	case http.StatusConflict:
		return matcher.ErrAlreadyExists
	default:
		return nil
	}
}

// apiClient calls the kouho HTTP API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *apiClient) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &apiError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *apiClient) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	return c.do(ctx, method, path, "application/json", body, out)
}

func (c *apiClient) Upload(ctx context.Context, in matcher.UploadInput) (*models.UploadResponse, error) {
	var out models.UploadResponse
	if in.Content == nil {
		if err := c.doJSON(ctx, http.MethodPost, "/api/v1/resumes", models.ResumeInput{Filename: in.Filename, Text: in.Text}, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", in.Filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(in.Content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/resumes", mw.FormDataContentType(), &buf, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) Rank(ctx context.Context, req models.RankRequest) (*models.RankResponse, error) {
	var out models.RankResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/rank", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) Explain(ctx context.Context, req models.ExplainRequest) (*models.ExplainResponse, error) {
	var out models.ExplainResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/explain", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) Delete(ctx context.Context, filename string) (*models.DeleteResponse, error) {
	var out models.DeleteResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/api/v1/resumes/"+url.PathEscape(filename), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) Rebuild(ctx context.Context) (*models.RebuildResponse, error) {
	var out models.RebuildResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/index/rebuild", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) List(ctx context.Context) (*models.ResumeList, error) {
	var out models.ResumeList
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/resumes", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) Status(ctx context.Context) (*models.Status, error) {
	var out models.Status
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
