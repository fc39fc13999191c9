package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/crm-backend/internal/services"
)

// AdminHandler serves the admin-only user management routes. The admin
// gate is applied by middleware.
type AdminHandler struct {
	users *services.UserService
	*Responder
}

func NewAdminHandler(users *services.UserService, rs *Responder) *AdminHandler {
	return &AdminHandler{users: users, Responder: rs}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.users.ListUsers(r.Context(), queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", page)
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", user)
}

// UpdateUser never touches email or password; AdminUserUpdate has no
// such fields.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req services.AdminUserUpdate
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.users.UpdateUser(r.Context(), caller(r).UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "User updated successfully", user)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.DeleteUser(r.Context(), caller(r).UserID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "User deleted successfully", nil)
}

func (h *AdminHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.ToggleActive(r.Context(), caller(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	message := "User deactivated successfully"
	if user.IsActive {
		message = "User activated successfully"
	}
	ok(w, http.StatusOK, message, user)
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.users.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", stats)
}
