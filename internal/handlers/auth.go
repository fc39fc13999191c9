package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/crm-backend/internal/models"
	"github.com/AnshRaj112/crm-backend/internal/services"
)

type RegisterRequest struct {
	Name      string                  `json:"name" validate:"required"`
	Email     string                  `json:"email" validate:"required,email"`
	Password  string                  `json:"password" validate:"required"`
	Phone     string                  `json:"phone"`
	Role      models.Role             `json:"role"`
	Addresses []services.AddressInput `json:"addresses"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// AuthPayload is returned by register, login and refresh-token.
type AuthPayload struct {
	User  *models.User `json:"user,omitempty"`
	Token string       `json:"token"`
}

type AuthHandler struct {
	users *services.UserService
	*Responder
}

func NewAuthHandler(users *services.UserService, rs *Responder) *AuthHandler {
	return &AuthHandler{users: users, Responder: rs}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		h.fail(w, r, err)
		return
	}
	user, token, err := h.users.Register(r.Context(), services.RegisterInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Role:      req.Role,
		Addresses: req.Addresses,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "User registered successfully", AuthPayload{User: user, Token: token})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		h.fail(w, r, err)
		return
	}
	user, token, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Login successful", AuthPayload{User: user, Token: token})
}

// Logout only acknowledges; tokens are stateless and expire on their own.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ok(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.users.RefreshToken(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Token refreshed", AuthPayload{Token: token})
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Profile(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", user)
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req services.ProfileUpdate
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.users.UpdateProfile(r.Context(), caller(r).UserID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Profile updated successfully", user)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.users.ChangePassword(r.Context(), caller(r).UserID, req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Password changed successfully", nil)
}

func (h *AuthHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.users.DeleteAccount(r.Context(), caller(r).UserID); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Account deleted successfully", nil)
}

func (h *AuthHandler) CheckAdmin(w http.ResponseWriter, r *http.Request) {
	ok(w, http.StatusOK, "", map[string]bool{"isAdmin": caller(r).IsAdmin()})
}

func (h *AuthHandler) UpdateLastSync(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.TouchLastSync(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Last sync updated", map[string]interface{}{"lastSync": user.LastSync})
}

func (h *AuthHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.users.ListAddresses(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", addresses)
}

func (h *AuthHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	var req services.AddressInput
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	addresses, err := h.users.AddAddress(r.Context(), caller(r).UserID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "Address added successfully", addresses)
}

func (h *AuthHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	var req services.AddressPatch
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	addresses, err := h.users.UpdateAddress(r.Context(), caller(r).UserID, chi.URLParam(r, "addressId"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Address updated successfully", addresses)
}

func (h *AuthHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.users.DeleteAddress(r.Context(), caller(r).UserID, chi.URLParam(r, "addressId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Address deleted successfully", addresses)
}

func (h *AuthHandler) SetDefaultAddress(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.users.SetDefaultAddress(r.Context(), caller(r).UserID, chi.URLParam(r, "addressId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Default address updated", addresses)
}
