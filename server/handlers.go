package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/docingest/core"
	"github.com/poiesic/docingest/jobs"
	"github.com/poiesic/docingest/storage"
)

// handleIngestWebsite crawls and ingests a site synchronously. The reply is
// plain text in both the success and failure case.
func (s *Server) handleIngestWebsite(c *gin.Context) {
	var req struct {
		URL string `json:"url" form:"url"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.String(http.StatusBadRequest, "Error: invalid request: %v", err)
		return
	}
	target := strings.TrimSpace(req.URL)
	if err := validateSiteURL(target); err != nil {
		c.String(http.StatusBadRequest, "Error: %v", err)
		return
	}

	msg, err := s.jobs.IngestWebsite(c.Request.Context(), target)
	if err != nil {
		s.logger.Error("website ingestion failed", "url", target, "err", err)
		c.String(http.StatusInternalServerError, "Error: %v", err)
		return
	}
	c.String(http.StatusOK, "%s", msg)
}

func validateSiteURL(raw string) error {
	if raw == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid url %q: expected http(s)://host", raw)
	}
	return nil
}

// handleIngestFile stores an upload and queues its ingestion.
func (s *Server) handleIngestFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(c, http.StatusBadRequest, fmt.Errorf("missing file: %w", err))
		return
	}

	f, err := header.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	defer f.Close()

	job, err := s.jobs.SubmitFile(c.Request.Context(), header.Filename, f)
	if err != nil {
		if errors.Is(err, jobs.ErrInvalidFilename) || errors.Is(err, jobs.ErrUnsupportedFile) {
			writeError(c, http.StatusBadRequest, err)
			return
		}
		s.logger.Error("upload failed", "file", header.Filename, "err", err)
		writeError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.ID,
		"status": job.Status,
		"file":   job.File,
	})
}

func (s *Server) handleJobStatus(c *gin.Context) {
	job, err := s.jobs.Status(c.Param("id"))
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			writeError(c, http.StatusNotFound, jobs.ErrJobNotFound)
			return
		}
		writeError(c, http.StatusInternalServerError, err)
		return
	}

	resp := gin.H{"status": job.Status}
	if job.Status == jobs.StatusFailed {
		resp["error"] = job.Error
	}
	c.JSON(http.StatusOK, resp)
}

type documentResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Topic      string            `json:"topic"`
	Source     string            `json:"source"`
	Metadata   map[string]string `json:"metadata"`
	ChunkCount int               `json:"chunk_count"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

type chunkResponse struct {
	ChunkNumber int                `json:"chunk_number"`
	URL         string             `json:"url"`
	Title       string             `json:"title"`
	Summary     string             `json:"summary"`
	Content     string             `json:"content"`
	Metadata    core.ChunkMetadata `json:"metadata"`
}

func toDocumentResponse(doc core.Document, chunkCount int) documentResponse {
	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return documentResponse{
		ID:         doc.ID.String(),
		Name:       doc.Name,
		Topic:      doc.Topic,
		Source:     doc.Source,
		Metadata:   metadata,
		ChunkCount: chunkCount,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}

// handleListDocuments lists documents newest first. Filters use the form
// metadata[key]=value.
func (s *Server) handleListDocuments(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}

	opts := storage.ListOptions{
		Limit:    limit,
		Offset:   offset,
		Metadata: c.QueryMap("metadata"),
	}.Normalized()

	docs, err := s.docs.ListDocuments(c.Request.Context(), opts)
	if err != nil {
		s.logger.Error("list documents failed", "err", err)
		writeError(c, http.StatusInternalServerError, err)
		return
	}

	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d.Document, d.ChunkCount))
	}
	c.JSON(http.StatusOK, gin.H{
		"documents": out,
		"limit":     opts.Limit,
		"offset":    opts.Offset,
	})
}

func (s *Server) handleGetDocument(c *gin.Context) {
	id, err := core.ParseID(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}

	doc, err := s.docs.GetDocument(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(c, http.StatusNotFound, storage.ErrNotFound)
			return
		}
		writeError(c, http.StatusInternalServerError, err)
		return
	}

	chunks := make([]chunkResponse, 0, len(doc.Chunks))
	for _, ch := range doc.Chunks {
		chunks = append(chunks, chunkResponse{
			ChunkNumber: ch.ChunkNumber,
			URL:         ch.URL,
			Title:       ch.Title,
			Summary:     ch.Summary,
			Content:     ch.Content,
			Metadata:    ch.Metadata,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"document": toDocumentResponse(doc.Document, len(doc.Chunks)),
		"chunks":   chunks,
	})
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}
