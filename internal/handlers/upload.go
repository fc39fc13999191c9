package handlers

import (
	"net/http"

	"github.com/AnshRaj112/crm-backend/internal/apperr"
)

const maxImageBytes = 5 << 20

// UploadProfileImage accepts a multipart "image" field and stores it as
// the caller's profile image.
func (h *AuthHandler) UploadProfileImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		h.fail(w, r, apperr.Invalid("Failed to parse form", "image must be at most 5MB"))
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		h.fail(w, r, apperr.Invalid("No image provided", "image is required"))
		return
	}
	defer file.Close()

	user, err := h.users.UploadProfileImage(r.Context(), caller(r).UserID, file)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Profile image uploaded successfully", user)
}
