package web

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/account"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/apperr"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/catalog"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

type browseData struct {
	Type       model.ContentType
	Items      []*model.Content
	CategoryID int64
	Sort       catalog.SortBy
	Sorts      []catalog.SortBy
}

type watchData struct {
	Content      *model.Content
	Categories   []model.Category
	Season       *model.Season
	Episode      *model.Episode
	Server       *model.Link
	ServerKey    string
	Related      []*model.Content
	Threads      []Thread
	CommentCount int
	Lists        map[string]bool
	Share        []shareLink
}

type shareLink struct {
	Name string
	URL  string
}

type profileData struct {
	Favorites  []*model.Content
	WatchLater []*model.Content
	Watched    []*model.Content
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, "pages/home.html", "", catalog.Home(h.Store.Contents()))
}

func (h *Handler) browse(t model.ContentType, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := catalog.Filter{Type: t, SortBy: catalog.ParseSort(q.Get("sort"))}
		filter.CategoryID, _ = strconv.ParseInt(q.Get("category"), 10, 64)
		h.page(w, r, "pages/browse.html", title, browseData{
			Type:       t,
			Items:      filter.Apply(h.Store.Contents()),
			CategoryID: filter.CategoryID,
			Sort:       filter.SortBy,
			Sorts:      catalog.SortOptions,
		})
	}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.Store.SearchContent(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.Logger.Error("search failed", "error", err)
		h.errorPage(w, r, http.StatusInternalServerError, apperr.Message(err))
		return
	}
	h.page(w, r, "pages/search.html", "Search", results)
}

// Watch shows a title's player, details and comments. For series the
// ?season= and ?episode= numbers pick the episode, defaulting to the first;
// ?server=dubbed:0 style selectors pick a streaming server.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	content, err := h.Store.ContentBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.errorPage(w, r, http.StatusInternalServerError, apperr.Message(err))
		return
	}
	if content == nil {
		h.NotFound(w, r)
		return
	}
	if !h.returning(w, r, content.Slug) {
		h.Store.IncrementViews(r.Context(), content.ID)
	}

	holder := h.holder(r)
	comments, err := h.Store.CommentsByContentID(r.Context(), content.ID)
	if err != nil {
		h.Logger.Error("failed to load comments", "content_id", content.ID, "error", err)
	}
	votes := map[int64]int{}
	if user := holder.User(); user != nil && len(comments) > 0 {
		if votes, err = h.Store.UserVotes(r.Context(), content.ID, user.ID); err != nil {
			h.Logger.Error("failed to load votes", "content_id", content.ID, "error", err)
		}
	}

	data := watchData{
		Content:      content,
		Related:      catalog.Related(content, h.Store.Contents()),
		Threads:      BuildThreads(comments, votes),
		CommentCount: len(comments),
		Lists:        map[string]bool{},
	}
	for _, id := range content.CategoryIDs {
		if c, ok := h.Store.Category(id); ok {
			data.Categories = append(data.Categories, c)
		}
	}
	if p := holder.Profile(); p != nil {
		for _, kind := range model.ListKinds {
			data.Lists[string(kind)] = p.InList(kind, content.ID)
		}
	}
	q := r.URL.Query()
	data.Season, data.Episode = pickEpisode(content, q.Get("season"), q.Get("episode"))
	// An explicitly chosen server replaces the episode player; otherwise the
	// first server plays only when there is no episode.
	if link, key, explicit := pickServer(content.Servers, q.Get("server")); explicit || data.Episode == nil {
		data.Server, data.ServerKey = link, key
	}
	data.Share = shareLinks(h.baseURL(r)+"/watch/"+content.Slug, content.Title)

	h.render(w, r, http.StatusOK, "pages/watch.html", h.newView(w, r, holder, content.Title, data))
}

func pickEpisode(c *model.Content, seasonParam, episodeParam string) (*model.Season, *model.Episode) {
	if len(c.Seasons) == 0 {
		return nil, nil
	}
	seasonNum, _ := strconv.Atoi(seasonParam)
	episodeNum, _ := strconv.Atoi(episodeParam)

	season := &c.Seasons[0]
	for i := range c.Seasons {
		if c.Seasons[i].SeasonNumber == seasonNum {
			season = &c.Seasons[i]
			break
		}
	}
	if len(season.Episodes) == 0 {
		return season, nil
	}
	episode := &season.Episodes[0]
	for i := range season.Episodes {
		if season.Episodes[i].EpisodeNumber == episodeNum {
			episode = &season.Episodes[i]
			break
		}
	}
	return season, episode
}

// pickServer resolves a "dubbed:1" style selector. An unknown or missing
// selector falls back to the first dubbed server, then the first subtitled
// one; explicit reports whether the selector itself matched.
func pickServer(g model.LinkGroups, param string) (link *model.Link, key string, explicit bool) {
	if audio, idx, ok := strings.Cut(param, ":"); ok {
		i, err := strconv.Atoi(idx)
		var links []model.Link
		switch audio {
		case "dubbed":
			links = g.Dubbed
		case "subtitled":
			links = g.Subtitled
		}
		if err == nil && i >= 0 && i < len(links) {
			return &links[i], audio + ":" + strconv.Itoa(i), true
		}
	}
	if len(g.Dubbed) > 0 {
		return &g.Dubbed[0], "dubbed:0", false
	}
	if len(g.Subtitled) > 0 {
		return &g.Subtitled[0], "subtitled:0", false
	}
	return nil, "", false
}

func shareLinks(pageURL, title string) []shareLink {
	u, t := url.QueryEscape(pageURL), url.QueryEscape(title)
	return []shareLink{
		{"Facebook", "https://www.facebook.com/sharer/sharer.php?u=" + u},
		{"Twitter", "https://twitter.com/intent/tweet?url=" + u + "&text=" + t},
		{"LinkedIn", "https://www.linkedin.com/shareArticle?mini=true&url=" + u + "&title=" + t},
		{"WhatsApp", "https://api.whatsapp.com/send?text=" + t + "%20" + u},
		{"Telegram", "https://t.me/share/url?url=" + u + "&text=" + t},
		{"Reddit", "https://www.reddit.com/submit?url=" + u + "&title=" + t},
	}
}

func (h *Handler) watchTarget(r *http.Request) string {
	return "/watch/" + r.PathValue("slug")
}

func (h *Handler) contentFor(w http.ResponseWriter, r *http.Request) (*model.Content, bool) {
	content, err := h.Store.ContentBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.fail(w, r, "/", err)
		return nil, false
	}
	if content == nil {
		h.NotFound(w, r)
		return nil, false
	}
	return content, true
}

func (h *Handler) ToggleList(w http.ResponseWriter, r *http.Request, holder *account.Holder) {
	content, ok := h.contentFor(w, r)
	if !ok {
		return
	}
	kind := model.ListKind(r.FormValue("list"))
	added, err := holder.ToggleList(r.Context(), kind, content.ID)
	if err != nil {
		h.failToWatch(w, r, "", err)
		return
	}
	msg := "Removed from your list"
	if added {
		msg = "Added to your list"
	}
	h.returnToWatch(w, r, "", flashSuccess, msg)
}

func (h *Handler) PostComment(w http.ResponseWriter, r *http.Request, holder *account.Holder) {
	content, ok := h.contentFor(w, r)
	if !ok {
		return
	}
	in := model.CommentInput{ContentID: content.ID, Text: r.FormValue("comment_text")}
	if v := r.FormValue("parent_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			in.ParentID = &id
		}
	}
	if _, err := h.Store.AddComment(r.Context(), holder.Profile(), in); err != nil {
		h.failToWatch(w, r, "#comments", err)
		return
	}
	h.returnToWatch(w, r, "#comments", flashSuccess, "Comment posted")
}

func (h *Handler) Vote(w http.ResponseWriter, r *http.Request, holder *account.Holder) {
	commentID, _ := strconv.ParseInt(r.FormValue("comment_id"), 10, 64)
	voteType, _ := strconv.Atoi(r.FormValue("vote_type"))
	if err := h.Store.VoteOnComment(r.Context(), holder.Profile(), commentID, voteType); err != nil {
		h.failToWatch(w, r, "#comments", err)
		return
	}
	h.returnToWatch(w, r, "#comment-"+strconv.FormatInt(commentID, 10), "", "")
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request, holder *account.Holder) {
	p := holder.Profile()
	data := profileData{}
	if p != nil {
		data.Favorites = h.Store.ListContents(p.Favorites)
		data.WatchLater = h.Store.ListContents(p.WatchLater)
		data.Watched = h.Store.ListContents(p.Watched)
	}
	h.render(w, r, http.StatusOK, "pages/profile.html", h.newView(w, r, holder, "My profile", data))
}

// UpdateProfile saves the name and, when a file is attached, a new avatar.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request, holder *account.Holder) {
	name := r.FormValue("name")
	update := model.ProfileUpdate{Name: &name}

	if file, header, err := r.FormFile("avatar"); err == nil {
		defer file.Close()
		avatarURL, err := h.Store.UploadFile(r.Context(), "avatars", header.Filename, file)
		if err != nil {
			h.fail(w, r, "/profile", err)
			return
		}
		update.AvatarURL = &avatarURL
	} else if r.FormValue("remove_avatar") == "1" {
		empty := ""
		update.AvatarURL = &empty
	}

	if err := holder.UpdateUserProfile(r.Context(), update); err != nil {
		h.fail(w, r, "/profile", err)
		return
	}
	h.redirect(w, r, "/profile", flashSuccess, "Profile updated")
}
