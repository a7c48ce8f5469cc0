// Package integration runs the matcher end to end: real SQLite storage, a persisted flat
// index, the HTTP API and the inbox watcher.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kouho/internal/config"
	"github.com/hyperjump/kouho/internal/embedding"
	"github.com/hyperjump/kouho/internal/extract"
	"github.com/hyperjump/kouho/internal/keyword"
	"github.com/hyperjump/kouho/internal/matcher"
	"github.com/hyperjump/kouho/internal/models"
	"github.com/hyperjump/kouho/internal/server"
	"github.com/hyperjump/kouho/internal/storage"
	"github.com/hyperjump/kouho/internal/vector"
	"github.com/hyperjump/kouho/internal/watcher"
)

const dims = 128

type stack struct {
	svc   *matcher.Service
	store *storage.SQLiteStorage
	index *vector.Index
}

func (s *stack) close() {
	s.index.Close()
	s.store.Close()
}

// openStack wires the same components the server command does, rooted at dir.
func openStack(t *testing.T, dir string) *stack {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "resumes.db"))
	if err != nil {
		t.Fatal(err)
	}
	idx, err := vector.New("flat", dims, vector.WithPath(filepath.Join(dir, "indices", "resumes")))
	if err != nil {
		t.Fatal(err)
	}
	explainer, err := keyword.NewExplainer(config.DefaultStopwords, 10)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := matcher.NewService(store, embedding.NewMockEmbedder(dims), idx, explainer,
		matcher.WithUploadDir(filepath.Join(dir, "uploads")),
		matcher.WithRanking(config.RankingConfig{DefaultTopK: 5, MaxTopK: 50}),
	)
	if err != nil {
		t.Fatal(err)
	}
	return &stack{svc: svc, store: store, index: idx}
}

func postFile(t *testing.T, url, name, content string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(content))
	_ = mw.Close()
	resp, err := http.Post(url+"/api/v1/resumes", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func postJSON(t *testing.T, url string, in, out interface{}) int {
	t.Helper()
	data, _ := json.Marshal(in)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func TestIntegration_UploadRankExplainDelete(t *testing.T) {
	dir := t.TempDir()
	st := openStack(t, dir)
	defer st.close()
	if err := st.svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(server.NewServer(st.svc, &config.ServerConfig{}, nil).Router())
	defer ts.Close()

	resumes := map[string]string{
		"backend.txt": "Go developer building grpc services on kubernetes with postgres",
		"frontend.md": "# Frontend\nReact and typescript developer, css animations",
		"data.txt":    "Python data engineer: spark, airflow, pandas pipelines",
	}
	for name, text := range resumes {
		resp := postFile(t, ts.URL, name, text)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("upload %s: status %d", name, resp.StatusCode)
		}
	}
	resp := postFile(t, ts.URL, "backend.txt", "duplicate")
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate upload: status %d", resp.StatusCode)
	}
	if _, err := os.Stat(filepath.Join(dir, "uploads", "frontend.md")); err != nil {
		t.Errorf("uploaded file not saved: %v", err)
	}

	var ranked models.RankResponse
	if code := postJSON(t, ts.URL+"/api/v1/rank", models.RankRequest{Text: "go grpc kubernetes", TopK: 2}, &ranked); code != http.StatusOK {
		t.Fatalf("rank: status %d", code)
	}
	if len(ranked.Results) != 2 || ranked.Results[0].Filename != "backend.txt" || ranked.Results[0].Rank != 1 {
		t.Errorf("rank results = %+v", ranked.Results)
	}

	var explained models.ExplainResponse
	if code := postJSON(t, ts.URL+"/api/v1/explain", models.ExplainRequest{Text: "python spark engineer"}, &explained); code != http.StatusOK {
		t.Fatalf("explain: status %d", code)
	}
	found := false
	for _, e := range explained.Explanations {
		if e.Filename == "data.txt" {
			found = len(e.MatchedKeywords) >= 2
		}
	}
	if !found {
		t.Errorf("explanations = %+v", explained.Explanations)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/resumes/backend.txt", nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status %d", delResp.StatusCode)
	}
	ranked = models.RankResponse{}
	postJSON(t, ts.URL+"/api/v1/rank", models.RankRequest{Text: "go grpc kubernetes", TopK: 10}, &ranked)
	for _, r := range ranked.Results {
		if r.Filename == "backend.txt" {
			t.Error("deleted resume still ranked")
		}
	}
	if len(ranked.Results) != 2 {
		t.Errorf("expected 2 results after delete, got %d", len(ranked.Results))
	}
}

func TestIntegration_RestartKeepsIndex(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	st := openStack(t, dir)
	for name, text := range map[string]string{
		"a.txt": "rust systems programmer, embedded firmware",
		"b.txt": "ios swift mobile developer",
	} {
		if _, err := st.svc.Upload(ctx, matcher.UploadInput{Filename: name, Content: []byte(text)}); err != nil {
			t.Fatal(err)
		}
	}
	st.close()

	// The snapshot alone restores the index before any rebuild.
	reopened := openStack(t, dir)
	defer reopened.close()
	if reopened.index.Size() != 2 {
		t.Fatalf("index size after reopen = %d, want 2", reopened.index.Size())
	}
	if err := reopened.svc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	resp, err := reopened.svc.Rank(ctx, models.RankRequest{Text: "swift ios", TopK: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Filename != "b.txt" {
		t.Errorf("rank after restart = %+v", resp.Results)
	}
}

func TestIntegration_CorruptSnapshotRebuilds(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	st := openStack(t, dir)
	if _, err := st.svc.Upload(ctx, matcher.UploadInput{Filename: "a.txt", Content: []byte("site reliability engineer")}); err != nil {
		t.Fatal(err)
	}
	st.close()
	if err := os.WriteFile(filepath.Join(dir, "indices", "resumes.index"), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	reopened := openStack(t, dir)
	defer reopened.close()
	if reopened.index.Size() != 0 {
		t.Fatalf("corrupt snapshot should load empty, size = %d", reopened.index.Size())
	}
	if err := reopened.svc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if !reopened.index.Contains("a.txt") {
		t.Error("rebuild did not restore a.txt")
	}
}

func TestIntegration_WatchedInbox(t *testing.T) {
	dir := t.TempDir()
	inbox := filepath.Join(dir, "inbox")
	st := openStack(t, dir)
	defer st.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := watcher.New([]string{inbox}, extract.SupportedExtensions, false, st.svc,
		watcher.WithDebounce(50*time.Millisecond))
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(inbox, "ops.txt")
	if err := os.WriteFile(path, []byte("terraform aws devops engineer"), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return st.index.Contains("ops.txt") })

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return !st.index.Contains("ops.txt") })
	if ok, _ := st.store.ResumeExists(context.Background(), "ops.txt"); ok {
		t.Error("removed file still stored")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
