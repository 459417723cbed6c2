package web

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/apperr"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/auth"
)

type authForm struct {
	Name  string
	Email string
	Next  string
	Token string
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	holder := h.holder(r)
	next := safeNext(r.URL.Query().Get("next"))
	if holder.Authenticated() {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "pages/login.html", h.newView(w, r, holder, "Sign in", authForm{Next: next}))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	next := safeNext(r.FormValue("next"))

	holder, err := h.Registry.Login(r.Context(), email, r.FormValue("password"))
	if err != nil {
		v := h.newView(w, r, h.Registry.Guest(), "Sign in", authForm{Email: email, Next: next})
		v.Errors = append(v.Errors, loginMessage(err))
		v.Field = apperr.FieldOf(err)
		h.render(w, r, http.StatusUnauthorized, "pages/login.html", v)
		return
	}

	h.setToken(w, r, holder.Session().AccessToken)
	h.redirect(w, r, next, flashSuccess, "Welcome back, "+holder.Profile().Name+"!")
}

func loginMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrEmailNotConfirmed):
		return "Please confirm your email address before signing in."
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid email or password."
	}
	return apperr.Message(err)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.holder(r).Logout(r.Context()); err != nil {
		h.fail(w, r, "/", err)
		return
	}
	h.setToken(w, r, "")
	h.redirect(w, r, "/", flashSuccess, "You have been signed out")
}

func (h *Handler) SignUpPage(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, "pages/register.html", "Create account", authForm{})
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	form := authForm{Name: r.FormValue("name"), Email: r.FormValue("email")}
	password := r.FormValue("password")

	err := auth.ValidatePasswordChange(password, r.FormValue("confirm_password"))
	if err == nil {
		err = h.Registry.Guest().Register(r.Context(), form.Name, form.Email, password)
	}
	if err != nil {
		if apperr.KindOf(err) == apperr.KindBackend {
			h.Logger.Error("registration failed", "error", err)
		}
		v := h.newView(w, r, h.Registry.Guest(), "Create account", form)
		v.Errors = append(v.Errors, apperr.Message(err))
		v.Field = apperr.FieldOf(err)
		h.render(w, r, http.StatusBadRequest, "pages/register.html", v)
		return
	}
	h.redirect(w, r, "/login", flashSuccess, "Account created. Check your email to confirm your address.")
}

func (h *Handler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Auth.ConfirmEmail(r.Context(), r.URL.Query().Get("token")); err != nil {
		h.errorPage(w, r, http.StatusBadRequest, apperr.Message(err))
		return
	}
	h.redirect(w, r, "/login", flashSuccess, "Email confirmed. You can now sign in.")
}

func (h *Handler) ForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, "pages/forgot-password.html", "Forgot password", authForm{})
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := h.Registry.Guest().SendPasswordResetEmail(r.Context(), r.FormValue("email")); err != nil {
		h.fail(w, r, "/forgot-password", err)
		return
	}
	h.redirect(w, r, "/forgot-password", flashSuccess, "If an account exists for that email, a reset link is on its way.")
}

// UpdatePasswordPage serves both the reset link target (?token=) and the
// signed-in password change.
func (h *Handler) UpdatePasswordPage(w http.ResponseWriter, r *http.Request) {
	holder := h.holder(r)
	token := r.URL.Query().Get("token")
	if token == "" && !holder.Authenticated() {
		h.redirect(w, r, "/forgot-password", flashError, "That reset link is invalid or has expired.")
		return
	}
	h.render(w, r, http.StatusOK, "pages/update-password.html", h.newView(w, r, holder, "Update password", authForm{Token: token}))
}

func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	token := r.FormValue("token")
	password := r.FormValue("password")
	back := "/update-password"
	if token != "" {
		back += "?token=" + token
	}

	if err := auth.ValidatePasswordChange(password, r.FormValue("confirm_password")); err != nil {
		h.fail(w, r, back, err)
		return
	}

	if token != "" {
		if err := h.Auth.ResetPassword(r.Context(), token, password); err != nil {
			h.fail(w, r, back, err)
			return
		}
		h.setToken(w, r, "")
		h.redirect(w, r, "/login", flashSuccess, "Password updated. Sign in with your new password.")
		return
	}

	holder := h.holder(r)
	if err := holder.UpdateUserPassword(r.Context(), password); err != nil {
		h.fail(w, r, back, err)
		return
	}
	h.redirect(w, r, "/profile", flashSuccess, "Password updated")
}
