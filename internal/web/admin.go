package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/account"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/apperr"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

const maxUploadForm = 32 << 20

type adminData struct {
	Tab        string
	Stats      model.Stats
	Contents   []*model.Content
	Categories []model.Category
	Users      []*model.Profile
	Comments   []*model.Comment
	Settings   model.Settings
}

// contentForm is the admin editor state. Text areas hold the serialised
// link and episode lists so a failed submit can be shown again unchanged.
type contentForm struct {
	ID         int64
	Input      model.ContentInput
	Types      []model.ContentType
	Categories []model.Category
	Selected   map[int64]bool
	CastText   string
	Directors  string
	Producers  string
	Servers    string
	Downloads  string
	Episodes   string
}

var adminTabs = map[string]bool{"content": true, "categories": true, "users": true, "comments": true, "settings": true}

func (h *Handler) registerAdmin(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin", h.requireAdmin(h.Dashboard))
	mux.HandleFunc("GET /admin/content/new", h.requireAdmin(h.NewContentPage))
	mux.HandleFunc("GET /admin/content/{id}/edit", h.requireAdmin(h.EditContentPage))
	mux.HandleFunc("POST /admin/content", h.requireAdmin(h.CreateContent))
	mux.HandleFunc("POST /admin/content/{id}", h.requireAdmin(h.UpdateContent))
	mux.HandleFunc("POST /admin/content/{id}/delete", h.requireAdmin(h.DeleteContent))
	mux.HandleFunc("POST /admin/categories", h.requireAdmin(h.CreateCategory))
	mux.HandleFunc("POST /admin/categories/{id}", h.requireAdmin(h.UpdateCategory))
	mux.HandleFunc("POST /admin/categories/{id}/delete", h.requireAdmin(h.DeleteCategory))
	mux.HandleFunc("POST /admin/users/{id}", h.requireAdmin(h.UpdateUser))
	mux.HandleFunc("POST /admin/comments/{id}/delete", h.requireAdmin(h.DeleteComment))
	mux.HandleFunc("POST /admin/settings", h.requireAdmin(h.UpdateSettings))
	mux.HandleFunc("POST /admin/refresh", h.requireAdmin(h.Refresh))
}

func adminTarget(tab string) string {
	return "/admin?tab=" + tab
}

// Dashboard shows the stats header and one management tab.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request, holder *account.Holder) {
	tab := r.URL.Query().Get("tab")
	if !adminTabs[tab] {
		tab = "content"
	}
	data := adminData{Tab: tab, Settings: h.Store.Settings()}

	var statsErr error
	if data.Stats, statsErr = h.Store.Stats(r.Context()); statsErr != nil {
		h.Logger.Error("failed to load stats", "error", statsErr)
	}
	var err error
	switch tab {
	case "content":
		data.Contents = h.Store.Contents()
	case "categories":
		data.Categories = h.Store.Categories()
	case "users":
		data.Users, err = h.Store.AllUsers(r.Context())
	case "comments":
		data.Comments, err = h.Store.AllComments(r.Context())
	}
	if err != nil {
		h.errorPage(w, r, http.StatusInternalServerError, apperr.Message(err))
		return
	}
	h.render(w, r, http.StatusOK, "pages/admin.html", h.newView(w, r, holder, "Admin", data))
}

func (h *Handler) newContentForm(id int64, in model.ContentInput) *contentForm {
	f := &contentForm{
		ID:         id,
		Input:      in,
		Types:      model.ContentTypes,
		Categories: h.Store.Categories(),
		Selected:   map[int64]bool{},
		CastText:   strings.Join(in.Cast, ", "),
		Directors:  strings.Join(in.Directors, ", "),
		Producers:  strings.Join(in.Producers, ", "),
		Servers:    formatLinks(in.Servers),
		Downloads:  formatLinks(in.Downloads),
	}
	for _, cid := range in.CategoryIDs {
		f.Selected[cid] = true
	}
	return f
}

func (h *Handler) NewContentPage(w http.ResponseWriter, r *http.Request, holder *account.Holder) {
	f := h.newContentForm(0, model.ContentInput{Type: model.TypeMovie})
	h.render(w, r, http.StatusOK, "pages/admin-content.html", h.newView(w, r, holder, "Add content", f))
}

func (h *Handler) EditContentPage(w http.ResponseWriter, r *http.Request, holder *account.Holder) {
	content, ok := h.adminContent(w, r)
	if !ok {
		return
	}
	in := model.ContentInput{
		Title:            content.Title,
		OriginalTitle:    content.OriginalTitle,
		OriginalLanguage: content.OriginalLanguage,
		Slug:             content.Slug,
		Type:             content.Type,
		CategoryIDs:      content.CategoryIDs,
		ReleaseDate:      content.ReleaseDate,
		Rating:           content.Rating,
		Description:      content.Description,
		PosterURL:        content.PosterURL,
		Cast:             content.Cast,
		Directors:        content.Directors,
		Producers:        content.Producers,
		Servers:          content.Servers,
		Downloads:        content.Downloads,
	}
	f := h.newContentForm(content.ID, in)
	f.Episodes = formatEpisodes(content.Seasons)
	h.render(w, r, http.StatusOK, "pages/admin-content.html", h.newView(w, r, holder, "Edit "+content.Title, f))
}

func (h *Handler) adminContent(w http.ResponseWriter, r *http.Request) (*model.Content, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.NotFound(w, r)
		return nil, false
	}
	content, ok := h.Store.Content(id)
	if !ok {
		h.NotFound(w, r)
		return nil, false
	}
	return content, true
}

// readContentForm parses the submitted editor and stores an attached poster.
// On failure the returned form holds the raw submission for re-display.
func (h *Handler) readContentForm(w http.ResponseWriter, r *http.Request, id int64) (model.ContentInput, *contentForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadForm)
	if err := r.ParseMultipartForm(maxUploadForm); err != nil && err != http.ErrNotMultipart {
		return model.ContentInput{}, h.newContentForm(id, model.ContentInput{}), apperr.Validation("", "The form could not be read")
	}

	in, err := parseContentForm(r)
	f := h.newContentForm(id, in)
	f.CastText = r.FormValue("cast")
	f.Directors = r.FormValue("directors")
	f.Producers = r.FormValue("producers")
	f.Servers = r.FormValue("servers")
	f.Downloads = r.FormValue("downloads")
	f.Episodes = r.FormValue("episodes")
	if err != nil {
		return in, f, err
	}

	if file, header, ferr := r.FormFile("poster"); ferr == nil {
		defer file.Close()
		url, err := h.Store.UploadFile(r.Context(), "posters", header.Filename, file)
		if err != nil {
			return in, f, err
		}
		in.PosterURL = url
		f.Input.PosterURL = url
	}
	return in, f, nil
}

func (h *Handler) contentFormError(w http.ResponseWriter, r *http.Request, holder *account.Holder, f *contentForm, err error) {
	if apperr.KindOf(err) == apperr.KindBackend {
		h.Logger.Error("content save failed", "id", f.ID, "error", err)
	}
	title := "Add content"
	if f.ID != 0 {
		title = "Edit " + f.Input.Title
	}
	v := h.newView(w, r, holder, title, f)
	v.Errors = append(v.Errors, apperr.Message(err))
	v.Field = apperr.FieldOf(err)
	status := apperr.HTTPStatus(err)
	h.render(w, r, status, "pages/admin-content.html", v)
}

func (h *Handler) CreateContent(w http.ResponseWriter, r *http.Request, holder *account.Holder) {
	in, f, err := h.readContentForm(w, r, 0)
	if err == nil {
		uploader := holder.User().ID
		var content *model.Content
		if content, err = h.Store.AddContent(r.Context(), in, &uploader); err == nil {
			h.redirect(w, r, adminTarget("content"), flashSuccess, "Added "+content.Title)
			return
		}
	}
	h.contentFormError(w, r, holder, f, err)
}

func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request, holder *account.Holder) {
	content, ok := h.adminContent(w, r)
	if !ok {
		return
	}
	in, f, err := h.readContentForm(w, r, content.ID)
	if err == nil {
		var updated *model.Content
		if updated, err = h.Store.UpdateContent(r.Context(), content.ID, in); err == nil {
			h.redirect(w, r, adminTarget("content"), flashSuccess, "Saved "+updated.Title)
			return
		}
	}
	h.contentFormError(w, r, holder, f, err)
}

func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request, holder *account.Holder) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err := h.Store.DeleteContent(r.Context(), id); err != nil {
		h.fail(w, r, adminTarget("content"), err)
		return
	}
	h.redirect(w, r, adminTarget("content"), flashSuccess, "Content deleted")
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request, holder *account.Holder) {
	c, err := h.Store.AddCategory(r.Context(), r.FormValue("name"))
	if err != nil {
		h.fail(w, r, adminTarget("categories"), err)
		return
	}
	h.redirect(w, r, adminTarget("categories"), flashSuccess, "Added category "+c.Name)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request, holder *account.Holder) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	c, err := h.Store.UpdateCategory(r.Context(), id, r.FormValue("name"))
	if err != nil {
		h.fail(w, r, adminTarget("categories"), err)
		return
	}
	h.redirect(w, r, adminTarget("categories"), flashSuccess, "Renamed to "+c.Name)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request, holder *account.Holder) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err := h.Store.DeleteCategory(r.Context(), id); err != nil {
		h.fail(w, r, adminTarget("categories"), err)
		return
	}
	h.redirect(w, r, adminTarget("categories"), flashSuccess, "Category deleted")
}

// UpdateUser applies the name and role checkboxes of one user row. An
// administrator cannot demote or block themselves.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request, holder *account.Holder) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	isAdmin := r.FormValue("is_admin") == "1"
	isBlocked := r.FormValue("is_blocked") == "1"
	update := model.UserUpdate{IsAdmin: &isAdmin, IsBlocked: &isBlocked}
	if name, ok := r.Form["name"]; ok && len(name) > 0 {
		update.Name = &name[0]
	}

	if id == holder.User().ID && (!isAdmin || isBlocked) {
		h.fail(w, r, adminTarget("users"), apperr.Forbidden("You cannot remove your own access"))
		return
	}
	p, err := h.Store.UpdateUser(r.Context(), id, update)
	if err != nil {
		h.fail(w, r, adminTarget("users"), err)
		return
	}
	h.Registry.RefreshUser(id)
	h.redirect(w, r, adminTarget("users"), flashSuccess, "Updated "+p.Name)
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request, holder *account.Holder) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	deleted, err := h.Store.DeleteComment(r.Context(), id)
	if err != nil {
		h.fail(w, r, adminTarget("comments"), err)
		return
	}
	msg := "Comment deleted"
	if len(deleted) > 1 {
		msg = strconv.Itoa(len(deleted)) + " comments deleted"
	}
	h.redirect(w, r, adminTarget("comments"), flashSuccess, msg)
}

// UpdateSettings saves the site name and, when attached, a new logo.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request, holder *account.Holder) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadForm)
	siteName := r.FormValue("site_name")
	update := model.SettingsUpdate{SiteName: &siteName}

	if file, header, err := r.FormFile("logo"); err == nil {
		defer file.Close()
		url, err := h.Store.UploadFile(r.Context(), "logos", header.Filename, file)
		if err != nil {
			h.fail(w, r, adminTarget("settings"), err)
			return
		}
		update.LogoURL = &url
	} else if r.FormValue("remove_logo") == "1" {
		empty := ""
		update.LogoURL = &empty
	}

	if _, err := h.Store.UpdateSiteSettings(r.Context(), update); err != nil {
		h.fail(w, r, adminTarget("settings"), err)
		return
	}
	h.redirect(w, r, adminTarget("settings"), flashSuccess, "Settings saved")
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request, holder *account.Holder) {
	if err := h.Store.FetchData(r.Context()); err != nil {
		h.fail(w, r, adminTarget("content"), err)
		return
	}
	h.redirect(w, r, adminTarget("content"), flashSuccess, "Catalog reloaded")
}
