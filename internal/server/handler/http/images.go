package http

import (
	"context"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/imagerepo/internal/middleware"
	"github.com/atinyakov/imagerepo/internal/models"
)

// DefaultMaxUploadBytes bounds the body of an image upload when no limit is configured.
const DefaultMaxUploadBytes = 32 << 20

// ImageService defines the image operations required by the HTTP handlers.
type ImageService interface {
	Create(ctx context.Context, draft *models.ImageDraft) (*models.Image, error)
	UpdateInfo(ctx context.Context, requesterID int64, img *models.Image) error
	Delete(ctx context.Context, requesterID, id int64) error
	Get(ctx context.Context, requesterID, id int64, full bool) (*models.Image, error)
	SearchByTag(ctx context.Context, requesterID int64, tags models.TagList) ([]models.Image, error)
	Share(ctx context.Context, requesterID, imageID, userID int64) error
	Unshare(ctx context.Context, requesterID, imageID, userID int64) error
}

// ImageHandler handles HTTP requests under /repo.
type ImageHandler struct {
	ImageService ImageService
	Log          *zap.Logger
	// MaxUploadBytes limits the multipart body of Add. Zero means DefaultMaxUploadBytes.
	MaxUploadBytes int64
}

// imageRequest names an image and, for reads, whether the full content is wanted.
type imageRequest struct {
	ID   int64 `json:"id"`
	Full bool  `json:"full"`
}

// Add stores an uploaded image. It expects a multipart form with the content in the
// "image" file field and optional "name", "tags", "time", "location" and "info" fields.
// Tags may be repeated or given comma separated.
func (h *ImageHandler) Add(w http.ResponseWriter, r *http.Request) {
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "missing image file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read image", http.StatusBadRequest)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(content)
	}

	draft := &models.ImageDraft{
		Name:     r.FormValue("name"),
		Tags:     formTags(r.MultipartForm.Value["tags"]),
		Time:     r.FormValue("time"),
		Location: r.FormValue("location"),
		Info:     r.FormValue("info"),
		OwnerID:  middleware.GetUserIDFromContext(r.Context()),
		MimeType: mimeType,
		Content:  content,
	}
	if draft.Name == "" {
		draft.Name = header.Filename
	}

	img, err := h.ImageService.Create(r.Context(), draft)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, img)
}

func formTags(values []string) models.TagList {
	var tags models.TagList
	for _, v := range values {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// Update changes name, tags, time, location and info of an image the caller owns
// and responds with the stored record, thumbnail included.
func (h *ImageHandler) Update(w http.ResponseWriter, r *http.Request) {
	var img models.Image
	if !decodeJSON(w, r, &img) {
		return
	}
	requester := middleware.GetUserIDFromContext(r.Context())
	if err := h.ImageService.UpdateInfo(r.Context(), requester, &img); err != nil {
		writeError(w, h.Log, err)
		return
	}
	stored, err := h.ImageService.Get(r.Context(), requester, img.ID, false)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// Delete removes an image the caller owns.
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.ImageService.Delete(r.Context(), middleware.GetUserIDFromContext(r.Context()), req.ID); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Image returns an image visible to the caller with its thumbnail, or its full content when requested.
func (h *ImageHandler) Image(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	img, err := h.ImageService.Get(r.Context(), middleware.GetUserIDFromContext(r.Context()), req.ID, req.Full)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

// Search returns the images visible to the caller that carry any of the given tags.
func (h *ImageHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tags models.TagList `json:"tags"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	images, err := h.ImageService.SearchByTag(r.Context(), middleware.GetUserIDFromContext(r.Context()), req.Tags)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, images)
}

// Share grants another user read access to an image the caller owns.
func (h *ImageHandler) Share(w http.ResponseWriter, r *http.Request) {
	var req models.Share
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.ImageService.Share(r.Context(), middleware.GetUserIDFromContext(r.Context()), req.ImageID, req.UserID); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Unshare revokes a grant made by Share.
func (h *ImageHandler) Unshare(w http.ResponseWriter, r *http.Request) {
	var req models.Share
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.ImageService.Unshare(r.Context(), middleware.GetUserIDFromContext(r.Context()), req.ImageID, req.UserID); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
