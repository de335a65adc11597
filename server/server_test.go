package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docingest/core"
	"github.com/poiesic/docingest/jobs"
	"github.com/poiesic/docingest/storage/badger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeJobs struct {
	IngestWebsiteFunc func(ctx context.Context, url string) (string, error)
	SubmitFileFunc    func(ctx context.Context, name string, r io.Reader) (jobs.Job, error)
	StatusFunc        func(id string) (jobs.Job, error)
}

func (f *fakeJobs) IngestWebsite(ctx context.Context, url string) (string, error) {
	return f.IngestWebsiteFunc(ctx, url)
}

func (f *fakeJobs) SubmitFile(ctx context.Context, name string, r io.Reader) (jobs.Job, error) {
	return f.SubmitFileFunc(ctx, name, r)
}

func (f *fakeJobs) Status(id string) (jobs.Job, error) {
	return f.StatusFunc(id)
}

func newTestServer(t *testing.T, j JobService) (*Server, *badger.Repository) {
	t.Helper()
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})
	if j == nil {
		j = &fakeJobs{}
	}
	return New(j, repo), repo
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	s, _ := newTestServer(t, nil)
	w := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIngestWebsite(t *testing.T) {
	var got string
	j := &fakeJobs{IngestWebsiteFunc: func(_ context.Context, u string) (string, error) {
		got = u
		return "Crawled 3 of 3 pages (100%)", nil
	}}
	s, _ := newTestServer(t, j)

	form := url.Values{"url": {"https://docs.test"}}
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/website", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := serve(s, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://docs.test", got)
	assert.Equal(t, "Crawled 3 of 3 pages (100%)", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

	req = httptest.NewRequest(http.MethodPost, "/api/ingest/website", strings.NewReader(`{"url":"https://json.test"}`))
	req.Header.Set("Content-Type", "application/json")
	w = serve(s, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://json.test", got)
}

func TestIngestWebsite_Errors(t *testing.T) {
	j := &fakeJobs{IngestWebsiteFunc: func(context.Context, string) (string, error) {
		return "", errors.New("no URLs found to crawl")
	}}
	s, _ := newTestServer(t, j)

	for _, bad := range []string{"", "not a url", "ftp://docs.test"} {
		req := httptest.NewRequest(http.MethodPost, "/api/ingest/website", strings.NewReader(url.Values{"url": {bad}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := serve(s, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "url %q", bad)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/ingest/website", strings.NewReader(`{"url":"https://docs.test"}`))
	req.Header.Set("Content-Type", "application/json")
	w := serve(s, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Error: no URLs found to crawl", w.Body.String())
}

func multipartUpload(t *testing.T, field, name, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/ingest/file", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestIngestFile(t *testing.T) {
	var gotName, gotBody string
	j := &fakeJobs{SubmitFileFunc: func(_ context.Context, name string, r io.Reader) (jobs.Job, error) {
		gotName = name
		data, _ := io.ReadAll(r)
		gotBody = string(data)
		return jobs.Job{ID: "job-1", Status: jobs.StatusQueued, File: "report (1).pdf"}, nil
	}}
	s, _ := newTestServer(t, j)

	w := serve(s, multipartUpload(t, "file", "report.pdf", "pdf bytes"))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "report.pdf", gotName)
	assert.Equal(t, "pdf bytes", gotBody)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, map[string]string{"job_id": "job-1", "status": "queued", "file": "report (1).pdf"}, resp)
}

func TestIngestFile_Errors(t *testing.T) {
	j := &fakeJobs{SubmitFileFunc: func(context.Context, string, io.Reader) (jobs.Job, error) {
		return jobs.Job{}, fmt.Errorf("%w: %q", jobs.ErrInvalidFilename, "..")
	}}
	s, _ := newTestServer(t, j)

	w := serve(s, multipartUpload(t, "attachment", "a.md", "x"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(s, multipartUpload(t, "file", "a.md", "x"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestFile_UnsupportedFile(t *testing.T) {
	j := &fakeJobs{SubmitFileFunc: func(_ context.Context, name string, _ io.Reader) (jobs.Job, error) {
		return jobs.Job{}, fmt.Errorf("%w: %q", jobs.ErrUnsupportedFile, name)
	}}
	s, _ := newTestServer(t, j)

	w := serve(s, multipartUpload(t, "file", "notes.rst", "Notes"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported file type")
}

func TestJobStatus(t *testing.T) {
	j := &fakeJobs{StatusFunc: func(id string) (jobs.Job, error) {
		switch id {
		case "ok":
			return jobs.Job{ID: id, Status: jobs.StatusSucceeded}, nil
		case "bad":
			return jobs.Job{ID: id, Status: jobs.StatusFailed, Error: "embedding timeout"}, nil
		}
		return jobs.Job{}, fmt.Errorf("%w: %s", jobs.ErrJobNotFound, id)
	}}
	s, _ := newTestServer(t, j)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/api/ingest/jobs/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"succeeded"}`, w.Body.String())

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/ingest/jobs/bad", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"failed","error":"embedding timeout"}`, w.Body.String())

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/ingest/jobs/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"job not found"}`, w.Body.String())
}

type listResponse struct {
	Documents []documentResponse `json:"documents"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

func seedDocuments(t *testing.T, repo *badger.Repository) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, topic := range []string{"agents", "agents", "billing"} {
		doc := &core.Document{
			ID:        core.ID(i + 1),
			Name:      fmt.Sprintf("doc_%d", i),
			Topic:     topic,
			Source:    fmt.Sprintf("documents/%d.md", i),
			Metadata:  map[string]string{core.MetaTopic: topic},
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, repo.SaveDocument(ctx, doc))
		for n := 0; n <= i; n++ {
			require.NoError(t, repo.InsertChunk(ctx, &core.Chunk{
				DocumentID:  doc.ID,
				URL:         doc.Source,
				ChunkNumber: n,
				Content:     fmt.Sprintf("chunk %d", n),
				Embedding:   core.ZeroVector(4),
			}))
		}
	}
}

func TestListDocuments(t *testing.T) {
	s, repo := newTestServer(t, nil)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"documents":[],"limit":100,"offset":0}`, w.Body.String())

	seedDocuments(t, repo)

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Documents, 3)
	assert.Equal(t, "doc_2", resp.Documents[0].Name)
	assert.Equal(t, 3, resp.Documents[0].ChunkCount)
	assert.Equal(t, core.ID(3).String(), resp.Documents[0].ID)

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/documents?metadata[topic]=agents&limit=1&offset=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	resp = listResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, "doc_0", resp.Documents[0].Name)
	assert.Equal(t, 1, resp.Limit)
	assert.Equal(t, 1, resp.Offset)

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/documents?limit=-3", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDocument(t *testing.T) {
	s, repo := newTestServer(t, nil)
	seedDocuments(t, repo)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/api/documents/"+core.ID(2).String(), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Document documentResponse `json:"document"`
		Chunks   []chunkResponse  `json:"chunks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "doc_1", resp.Document.Name)
	require.Len(t, resp.Chunks, 2)
	assert.Equal(t, "chunk 0", resp.Chunks[0].Content)
	assert.NotContains(t, w.Body.String(), "embedding")

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/documents/"+core.ID(99).String(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/documents/zz", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
