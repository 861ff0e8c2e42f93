package handlers

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/archiva-labs/doclib/internal/api"
	"github.com/archiva-labs/doclib/internal/domain"
	"github.com/go-chi/chi/v5"
)

type DocumentService interface {
	Upload(ctx context.Context, filename, contentType string, data []byte, meta domain.DocumentMetadata) (*domain.Document, error)
	Get(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Document, int, error)
	Delete(ctx context.Context, id string) error
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type DocumentResponse struct {
	ID          string   `json:"id"`
	Filename    string   `json:"filename"`
	ContentType string   `json:"content_type"`
	FileSize    int64    `json:"file_size"`
	Status      string   `json:"status"`
	ChunkCount  int      `json:"chunk_count"`
	Error       string   `json:"error,omitempty"`
	Title       string   `json:"title,omitempty"`
	Author      string   `json:"author,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	UploadedAt  string   `json:"uploaded_at"`
	ProcessedAt string   `json:"processed_at,omitempty"`
}

type DocumentListResponse struct {
	Documents []*DocumentResponse `json:"documents"`
	Total     int                 `json:"total"`
	Limit     int                 `json:"limit"`
	Offset    int                 `json:"offset"`
}

func documentToResponse(doc *domain.Document) *DocumentResponse {
	resp := &DocumentResponse{
		ID:          doc.ID,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		FileSize:    doc.FileSize,
		Status:      string(doc.Status),
		ChunkCount:  doc.ChunkCount,
		Error:       doc.Error,
		Title:       doc.Metadata.Title,
		Author:      doc.Metadata.Author,
		Category:    doc.Metadata.Category,
		Tags:        doc.Metadata.Tags,
		UploadedAt:  doc.UploadedAt.Format("2006-01-02T15:04:05Z"),
	}
	if doc.ProcessedAt != nil {
		resp.ProcessedAt = doc.ProcessedAt.Format("2006-01-02T15:04:05Z")
	}
	return resp
}

// Upload accepts a multipart form with a "file" part and optional metadata
// fields: title, author, category, tags (comma-separated).
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFromFilename(header.Filename)
	}
	// Strip parameters like charset
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}

	meta := domain.DocumentMetadata{
		Title:    r.FormValue("title"),
		Author:   r.FormValue("author"),
		Category: r.FormValue("category"),
	}
	if tags := r.FormValue("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				meta.Tags = append(meta.Tags, tag)
			}
		}
	}

	doc, err := h.svc.Upload(r.Context(), header.Filename, contentType, data, meta)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, documentToResponse(doc))
}

type uploadTextRequest struct {
	Filename string   `json:"filename"`
	Text     string   `json:"text"`
	Title    string   `json:"title,omitempty"`
	Author   string   `json:"author,omitempty"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// UploadText ingests a document from a JSON body instead of a file upload.
func (h *DocumentHandler) UploadText(w http.ResponseWriter, r *http.Request) {
	var req uploadTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		api.Error(w, http.StatusBadRequest, "text is required")
		return
	}

	filename := req.Filename
	if filename == "" {
		filename = "untitled.txt"
	}

	meta := domain.DocumentMetadata{
		Title:    req.Title,
		Author:   req.Author,
		Category: req.Category,
		Tags:     req.Tags,
	}

	doc, err := h.svc.Upload(r.Context(), filename, "text/plain", []byte(req.Text), meta)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, documentToResponse(doc))
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	docs, total, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := DocumentListResponse{
		Documents: make([]*DocumentResponse, 0, len(docs)),
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	}
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, documentToResponse(doc))
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}

func contentTypeFromFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return "text/plain"
	case ".csv":
		return "text/csv"
	case ".md", ".markdown":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
