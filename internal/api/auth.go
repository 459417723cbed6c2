package api

import (
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/account"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/auth"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

type AuthHandler struct {
	Auth     *auth.Service
	Registry *account.Registry
	Logger   hclog.Logger
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type PasswordRequest struct {
	Token           string `json:"token,omitempty"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type SessionResponse struct {
	Token     string         `json:"token"`
	ExpiresAt int64          `json:"expires_at"`
	User      UserResponse   `json:"user"`
	Profile   *model.Profile `json:"profile"`
}

type UserResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Confirmed bool   `json:"confirmed"`
}

func userResponse(u *model.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Confirmed: u.Confirmed()}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}

	holder, err := h.Registry.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}

	session := holder.Session()
	writeJSON(w, http.StatusOK, SessionResponse{
		Token:     session.AccessToken,
		ExpiresAt: session.ExpiresAt,
		User:      userResponse(holder.User()),
		Profile:   holder.Profile(),
	})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	if err := auth.ValidatePasswordChange(req.Password, req.ConfirmPassword); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}

	if err := h.Registry.Guest().Register(r.Context(), req.Name, req.Email, req.Password); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "Check your email to confirm your account"})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	holder, _ := GetHolder(r)
	if err := holder.Logout(r.Context()); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	user, err := h.Auth.ConfirmEmail(r.Context(), req.Token)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse(user))
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	if err := h.Registry.Guest().SendPasswordResetEmail(r.Context(), req.Email); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "A password reset email was sent"})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	if err := auth.ValidatePasswordChange(req.Password, req.ConfirmPassword); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	if err := h.Auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password has been reset"})
}

func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	holder, _ := GetHolder(r)
	var req PasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	if err := auth.ValidatePasswordChange(req.Password, req.ConfirmPassword); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	if err := holder.UpdateUserPassword(r.Context(), req.Password); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password updated"})
}
