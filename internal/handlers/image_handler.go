package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/services"
)

type ImageHandler struct {
	images  *services.ImageService
	maxSize int64
	errs    *Errors
}

func NewImageHandler(images *services.ImageService, maxSize int64, errs *Errors) *ImageHandler {
	return &ImageHandler{images: images, maxSize: maxSize, errs: errs}
}

func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+1<<20)
	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("File too large or invalid form data"))
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("No image file provided"))
		return
	}
	defer file.Close()

	resp, err := h.images.Upload(r.Context(), currentUser(r).ID, file)
	if err != nil {
		h.errs.write(w, r, err, "Failed to upload image")
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(resp))
}

func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.images.Delete(r.Context(), currentUser(r).ID, chi.URLParam(r, "imageId")); err != nil {
		h.errs.write(w, r, err, "Failed to delete image")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Image deleted successfully", nil))
}
