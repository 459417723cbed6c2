// Package web renders the site's HTML pages. Every page is built from the
// shared catalog, the caller's session holder and the query string.
package web

import (
	"net/http"
	"net/url"

	"github.com/gorilla/sessions"
	"github.com/hashicorp/go-hclog"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/account"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/apperr"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/auth"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/catalog"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/templates"
)

const (
	sessionName  = "carsaiplay"
	tokenKey     = "token"
	returnKey    = "return_to"
	flashSuccess = "success"
	flashError   = "error"
)

type Handler struct {
	Templates *templates.Manager
	Store     *catalog.Store
	Registry  *account.Registry
	Auth      *auth.Service
	Sessions  sessions.Store
	Logger    hclog.Logger

	// StaticDir holds the stylesheet and other assets served under /static/.
	StaticDir string
	// BaseURL is the public origin used in share links. When empty the
	// request host is used.
	BaseURL string
}

// NewCookieStore returns the session store used for the access token and
// flash messages.
func NewCookieStore(secret string, maxAge int, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// View is the data every page template receives.
type View struct {
	Title      string
	Path       string
	Query      string
	Settings   model.Settings
	Categories []model.Category
	User       *model.User
	Profile    *model.Profile
	Success    []string
	Errors     []string
	Field      string
	Data       any
}

func (v *View) IsAdmin() bool {
	return v.Profile != nil && v.Profile.IsAdmin
}

func (h *Handler) session(r *http.Request) *sessions.Session {
	s, err := h.Sessions.Get(r, sessionName)
	if err != nil {
		h.Logger.Debug("discarding unreadable session cookie", "error", err)
	}
	return s
}

// holder returns the caller's session holder, or a guest holder when the
// request carries no valid session.
func (h *Handler) holder(r *http.Request) *account.Holder {
	token, _ := h.session(r).Values[tokenKey].(string)
	if token == "" {
		return h.Registry.Guest()
	}
	holder, err := h.Registry.Resolve(r.Context(), token)
	if err != nil {
		if !apperr.Is(err, apperr.KindAuth) {
			h.Logger.Error("session restore failed", "error", err)
		}
		return h.Registry.Guest()
	}
	return holder
}

func (h *Handler) setToken(w http.ResponseWriter, r *http.Request, token string) {
	s := h.session(r)
	if token == "" {
		delete(s.Values, tokenKey)
	} else {
		s.Values[tokenKey] = token
	}
	if err := s.Save(r, w); err != nil {
		h.Logger.Error("failed to save session", "error", err)
	}
}

func (h *Handler) flash(w http.ResponseWriter, r *http.Request, kind, message string) {
	s := h.session(r)
	s.AddFlash(message, kind)
	if err := s.Save(r, w); err != nil {
		h.Logger.Error("failed to save session", "error", err)
	}
}

// redirect flashes message (when set) and sends the browser to target.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, target, kind, message string) {
	if message != "" {
		h.flash(w, r, kind, message)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// returnToWatch sends the browser back to the watch page the form was posted
// from. That follow-up GET is not counted as a view.
func (h *Handler) returnToWatch(w http.ResponseWriter, r *http.Request, fragment, kind, message string) {
	s := h.session(r)
	s.Values[returnKey] = r.PathValue("slug")
	if message != "" {
		s.AddFlash(message, kind)
	}
	if err := s.Save(r, w); err != nil {
		h.Logger.Error("failed to save session", "error", err)
	}
	http.Redirect(w, r, h.watchTarget(r)+fragment, http.StatusSeeOther)
}

func (h *Handler) failToWatch(w http.ResponseWriter, r *http.Request, fragment string, err error) {
	if apperr.KindOf(err) == apperr.KindBackend {
		h.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	h.returnToWatch(w, r, fragment, flashError, apperr.Message(err))
}

// returning reports whether this request follows a redirect from
// returnToWatch for slug, clearing the marker either way.
func (h *Handler) returning(w http.ResponseWriter, r *http.Request, slug string) bool {
	s := h.session(r)
	v, ok := s.Values[returnKey].(string)
	if !ok {
		return false
	}
	delete(s.Values, returnKey)
	if err := s.Save(r, w); err != nil {
		h.Logger.Error("failed to save session", "error", err)
	}
	return v == slug
}

func (h *Handler) baseURL(r *http.Request) string {
	if h.BaseURL != "" {
		return h.BaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// fail redirects back to target with the user-facing message of err.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, target string, err error) {
	if apperr.KindOf(err) == apperr.KindBackend {
		h.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	h.redirect(w, r, target, flashError, apperr.Message(err))
}

func (h *Handler) newView(w http.ResponseWriter, r *http.Request, holder *account.Holder, title string, data any) *View {
	v := &View{
		Title:      title,
		Path:       r.URL.Path,
		Query:      r.URL.Query().Get("q"),
		Settings:   h.Store.Settings(),
		Categories: h.Store.Categories(),
		User:       holder.User(),
		Profile:    holder.Profile(),
		Data:       data,
	}

	s := h.session(r)
	success := s.Flashes(flashSuccess)
	errs := s.Flashes(flashError)
	if len(success)+len(errs) > 0 {
		for _, f := range success {
			if m, ok := f.(string); ok {
				v.Success = append(v.Success, m)
			}
		}
		for _, f := range errs {
			if m, ok := f.(string); ok {
				v.Errors = append(v.Errors, m)
			}
		}
		if err := s.Save(r, w); err != nil {
			h.Logger.Error("failed to save session", "error", err)
		}
	}
	return v
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, v *View) {
	out, err := h.Templates.RenderPage(page, v)
	if err != nil {
		h.Logger.Error("template render failed", "page", page, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(out))
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request, page, title string, data any) {
	h.render(w, r, http.StatusOK, page, h.newView(w, r, h.holder(r), title, data))
}

func (h *Handler) errorPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	v := h.newView(w, r, h.holder(r), http.StatusText(status), map[string]any{
		"Status":  status,
		"Message": message,
	})
	h.render(w, r, status, "pages/error.html", v)
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.errorPage(w, r, http.StatusNotFound, "The page you are looking for does not exist.")
}

// requireUser sends guests to the login page and remembers where they were
// going.
func (h *Handler) requireUser(next func(http.ResponseWriter, *http.Request, *account.Holder)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		holder := h.holder(r)
		if !holder.Authenticated() {
			h.redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), flashError, "Please sign in first")
			return
		}
		next(w, r, holder)
	}
}

func (h *Handler) requireAdmin(next func(http.ResponseWriter, *http.Request, *account.Holder)) http.HandlerFunc {
	return h.requireUser(func(w http.ResponseWriter, r *http.Request, holder *account.Holder) {
		if !holder.IsAdmin() {
			h.errorPage(w, r, http.StatusForbidden, "Administrator access required.")
			return
		}
		next(w, r, holder)
	})
}

// safeNext only allows local redirect targets.
func safeNext(next string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return "/"
	}
	return next
}

// Register mounts every page route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /movies", h.browse(model.TypeMovie, "Movies"))
	mux.HandleFunc("GET /series", h.browse(model.TypeSeries, "Series"))
	mux.HandleFunc("GET /anime", h.browse(model.TypeAnime, "Anime"))
	mux.HandleFunc("GET /search", h.Search)
	mux.HandleFunc("GET /watch/{slug}", h.Watch)
	mux.HandleFunc("POST /watch/{slug}/list", h.requireUser(h.ToggleList))
	mux.HandleFunc("POST /watch/{slug}/comments", h.requireUser(h.PostComment))
	mux.HandleFunc("POST /watch/{slug}/vote", h.requireUser(h.Vote))

	mux.HandleFunc("GET /login", h.LoginPage)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("POST /logout", h.Logout)
	mux.HandleFunc("GET /register", h.SignUpPage)
	mux.HandleFunc("POST /register", h.SignUp)
	mux.HandleFunc("GET /confirm-email", h.ConfirmEmail)
	mux.HandleFunc("GET /forgot-password", h.ForgotPasswordPage)
	mux.HandleFunc("POST /forgot-password", h.ForgotPassword)
	mux.HandleFunc("GET /update-password", h.UpdatePasswordPage)
	mux.HandleFunc("POST /update-password", h.UpdatePassword)

	mux.HandleFunc("GET /profile", h.requireUser(h.Profile))
	mux.HandleFunc("POST /profile", h.requireUser(h.UpdateProfile))

	mux.HandleFunc("GET /terms-of-service", h.static("pages/terms.html", "Terms of Service"))
	mux.HandleFunc("GET /privacy-policy", h.static("pages/privacy.html", "Privacy Policy"))

	h.registerAdmin(mux)
	if h.StaticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(h.StaticDir))))
	}
	mux.HandleFunc("/", h.NotFound)
}

func (h *Handler) static(page, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.page(w, r, page, title, nil)
	}
}
