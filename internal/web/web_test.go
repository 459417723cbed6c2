package web

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/account"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/auth"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/catalog"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/db"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/storage"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/templates"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/testutil"
)

type testSite struct {
	server *httptest.Server
	db     *db.DB
	store  *catalog.Store
	mailer *testutil.MockMailSender
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()
	database := testutil.SetupTestDB(t)
	mailer := &testutil.MockMailSender{}
	logger := hclog.NewNullLogger()
	tmpl := templates.NewManager("../../templates")

	objects, err := storage.NewLocal(t.TempDir(), "/uploads/", "", 1<<20)
	require.NoError(t, err)
	store := catalog.NewStore(database, objects, nil, logger)
	require.NoError(t, store.FetchData(context.Background()))

	svc := auth.NewService(database, mailer, tmpl, auth.NewJWT("test-secret", "carsaiplay"), auth.Options{
		BaseURL:                  "http://test.local",
		SiteName:                 func() string { return store.Settings().SiteName },
		RequireEmailConfirmation: true,
	}, logger)
	registry := account.NewRegistry(svc, database, logger)
	t.Cleanup(registry.Close)

	h := &Handler{
		Templates: tmpl,
		Store:     store,
		Registry:  registry,
		Auth:      svc,
		Sessions:  NewCookieStore("cookie-secret-for-tests-0123456789", 3600, false),
		Logger:    logger,
	}
	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testSite{server: srv, db: database, store: store, mailer: mailer}
}

// browser returns a client that keeps cookies and follows redirects.
func (s *testSite) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (s *testSite) get(t *testing.T, c *http.Client, path string) (*http.Response, *goquery.Document) {
	t.Helper()
	resp, err := c.Get(s.server.URL + path)
	require.NoError(t, err)
	return readPage(t, resp)
}

func (s *testSite) post(t *testing.T, c *http.Client, path string, form url.Values) (*http.Response, *goquery.Document) {
	t.Helper()
	resp, err := c.PostForm(s.server.URL+path, form)
	require.NoError(t, err)
	return readPage(t, resp)
}

func readPage(t *testing.T, resp *http.Response) (*http.Response, *goquery.Document) {
	t.Helper()
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return resp, doc
}

func (s *testSite) seedUser(t *testing.T, email string, admin bool) int64 {
	t.Helper()
	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)
	return testutil.SeedUser(t, s.db, email, "User "+email, hash, admin)
}

func (s *testSite) login(t *testing.T, c *http.Client, email string) {
	t.Helper()
	resp, doc := s.post(t, c, "/login", url.Values{"email": {email}, "password": {"secret1"}, "next": {"/"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/", resp.Request.URL.Path)
	require.Equal(t, 1, doc.Find(`form[action="/logout"]`).Length())
}

func (s *testSite) seedCatalog(t *testing.T) {
	t.Helper()
	action := testutil.SeedCategory(t, s.db, "Action")
	testutil.SeedContent(t, s.db, model.ContentInput{
		Title: "The Matrix", Slug: "the-matrix", Type: model.TypeMovie, CategoryIDs: []int64{action},
		ReleaseDate: "1999-03-31", Rating: 8.7, Directors: model.StringList{"Lana Wachowski"},
		Servers: model.LinkGroups{
			Dubbed:    []model.Link{{Name: "Main", URL: "https://player.test/matrix"}, {Name: "Backup", URL: "https://backup.test/matrix"}},
			Subtitled: []model.Link{{Name: "Original", URL: "https://subs.test/matrix"}},
		},
	})
	testutil.SeedContent(t, s.db, model.ContentInput{
		Title: "Dark", Slug: "dark", Type: model.TypeSeries, CategoryIDs: []int64{action}, ReleaseDate: "2017-12-01",
		Seasons: []model.SeasonInput{{SeasonNumber: 1, Episodes: []model.EpisodeInput{
			{EpisodeNumber: 1, Title: "Secrets", EmbedURL: "https://player.test/dark-1"},
			{EpisodeNumber: 2, Title: "Lies", EmbedURL: "https://player.test/dark-2"},
		}}},
	})
	testutil.SeedContent(t, s.db, model.ContentInput{Title: "Naruto", Slug: "naruto", Type: model.TypeAnime, ReleaseDate: "2002-10-03"})
	require.NoError(t, s.store.FetchData(context.Background()))
}

func cardTitles(doc *goquery.Selection) []string {
	var titles []string
	doc.Find(".card h3").Each(func(_ int, s *goquery.Selection) {
		titles = append(titles, s.Text())
	})
	return titles
}

func TestHomeAndBrowsePages(t *testing.T) {
	s := newTestSite(t)
	s.seedCatalog(t)
	c := s.browser(t)

	resp, doc := s.get(t, c, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, doc.Find("title").Text(), model.DefaultSiteName)
	assert.ElementsMatch(t, []string{"The Matrix", "Dark", "Naruto", "The Matrix", "Dark", "Naruto"}, cardTitles(doc.Selection))

	_, doc = s.get(t, c, "/movies")
	assert.Equal(t, []string{"The Matrix"}, cardTitles(doc.Selection))
	assert.Equal(t, "active", doc.Find(`nav a[href="/movies"]`).AttrOr("class", ""))

	_, doc = s.get(t, c, "/series")
	assert.Equal(t, []string{"Dark"}, cardTitles(doc.Selection))

	_, doc = s.get(t, c, "/anime?category=999")
	assert.Empty(t, cardTitles(doc.Selection))
	assert.Equal(t, 1, doc.Find("p.empty").Length())
}

func TestSearchPage(t *testing.T) {
	s := newTestSite(t)
	s.seedCatalog(t)
	c := s.browser(t)

	_, doc := s.get(t, c, "/search?q=MATRI")
	assert.Equal(t, []string{"The Matrix"}, cardTitles(doc.Selection))
	assert.Equal(t, "MATRI", doc.Find(`input[name="q"]`).AttrOr("value", ""))

	_, doc = s.get(t, c, "/search")
	assert.Empty(t, cardTitles(doc.Selection))
}

func TestWatchPage(t *testing.T) {
	s := newTestSite(t)
	s.seedCatalog(t)
	c := s.browser(t)

	resp, doc := s.get(t, c, "/watch/the-matrix")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "The Matrix", doc.Find(".details h1").Text())
	assert.Equal(t, "https://player.test/matrix", doc.Find(".player iframe").AttrOr("src", ""))
	assert.Equal(t, "Main", doc.Find(".servers li.current").Text())
	assert.Equal(t, 3, doc.Find(".servers li a").Length())
	assert.Equal(t, 0, doc.Find(".lists form").Length())
	share := doc.Find(`.share a[href^="https://twitter.com/"]`).AttrOr("href", "")
	assert.Contains(t, share, url.QueryEscape(s.server.URL+"/watch/the-matrix"))

	_, doc = s.get(t, c, "/watch/the-matrix?server=subtitled:0")
	assert.Equal(t, "https://subs.test/matrix", doc.Find(".player iframe").AttrOr("src", ""))
	assert.Equal(t, "Original", doc.Find(".servers li.current").Text())

	_, doc = s.get(t, c, "/watch/the-matrix?server=dubbed:1")
	assert.Equal(t, "https://backup.test/matrix", doc.Find(".player iframe").AttrOr("src", ""))

	_, doc = s.get(t, c, "/watch/the-matrix?server=dubbed:9")
	assert.Equal(t, "https://player.test/matrix", doc.Find(".player iframe").AttrOr("src", ""))

	_, doc = s.get(t, c, "/watch/dark?season=1&episode=2")
	assert.Equal(t, "https://player.test/dark-2", doc.Find(".player iframe").AttrOr("src", ""))
	assert.Contains(t, doc.Find(".episodes li.current").Text(), "Lies")
	assert.Equal(t, 0, doc.Find(".servers").Length())

	content, err := s.store.ContentBySlug(context.Background(), "the-matrix")
	require.NoError(t, err)
	assert.Equal(t, int64(4), content.Views)
}

func TestNotFoundPages(t *testing.T) {
	s := newTestSite(t)
	c := s.browser(t)

	resp, doc := s.get(t, c, "/watch/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "404", doc.Find(".error-page h1").Text())

	resp, _ = s.get(t, c, "/no/such/page")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = s.get(t, c, "/terms-of-service")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = s.get(t, c, "/privacy-policy")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginRedirectsBack(t *testing.T) {
	s := newTestSite(t)
	s.seedUser(t, "ana@example.com", false)
	c := s.browser(t)

	resp, doc := s.get(t, c, "/profile")
	assert.Equal(t, "/login", resp.Request.URL.Path)
	assert.Equal(t, "/profile", doc.Find(`input[name="next"]`).AttrOr("value", ""))
	assert.Contains(t, doc.Find(".flash.error").Text(), "Please sign in first")

	resp, doc = s.post(t, c, "/login", url.Values{"email": {"ana@example.com"}, "password": {"wrong"}, "next": {"/profile"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid email or password.", doc.Find(".flash.error").Text())
	assert.Equal(t, "ana@example.com", doc.Find(`input[name="email"]`).AttrOr("value", ""))

	resp, doc = s.post(t, c, "/login", url.Values{"email": {"ana@example.com"}, "password": {"secret1"}, "next": {"/profile"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/profile", resp.Request.URL.Path)
	assert.Equal(t, "User ana@example.com", doc.Find(".profile h1").Text())
	assert.Contains(t, doc.Find(".flash.success").Text(), "Welcome back")

	resp, _ = s.post(t, c, "/logout", nil)
	assert.Equal(t, "/", resp.Request.URL.Path)
	resp, _ = s.get(t, c, "/profile")
	assert.Equal(t, "/login", resp.Request.URL.Path)
}

func TestLoginRejectsOffsiteNext(t *testing.T) {
	s := newTestSite(t)
	s.seedUser(t, "ana@example.com", false)
	c := s.browser(t)

	resp, _ := s.post(t, c, "/login", url.Values{"email": {"ana@example.com"}, "password": {"secret1"}, "next": {"//evil.test/"}})
	assert.Equal(t, s.server.URL+"/", resp.Request.URL.String())
}

func TestProfileUpdate(t *testing.T) {
	s := newTestSite(t)
	s.seedUser(t, "ana@example.com", false)
	c := s.browser(t)
	s.login(t, c, "ana@example.com")

	_, doc := s.post(t, c, "/profile", url.Values{"name": {"  Ana Maria "}})
	assert.Equal(t, "Ana Maria", doc.Find(".profile h1").Text())
	assert.Equal(t, "AM", strings.TrimSpace(doc.Find(".nav .avatar").Text()))

	_, doc = s.post(t, c, "/profile", url.Values{"name": {"   "}})
	assert.NotEmpty(t, doc.Find(".flash.error").Text())
	assert.Equal(t, "Ana Maria", doc.Find(".profile h1").Text())
}

func TestListsAndComments(t *testing.T) {
	s := newTestSite(t)
	s.seedCatalog(t)
	s.seedUser(t, "ana@example.com", false)
	c := s.browser(t)
	s.login(t, c, "ana@example.com")

	_, doc := s.post(t, c, "/watch/the-matrix/list", url.Values{"list": {"favorites"}})
	assert.Equal(t, "Added to your list", doc.Find(".flash.success").Text())
	assert.True(t, doc.Find("button.list-favorites").HasClass("on"))

	_, doc = s.get(t, c, "/profile")
	assert.Equal(t, []string{"The Matrix"}, cardTitles(doc.Find(".row").First()))

	_, doc = s.post(t, c, "/watch/the-matrix/list", url.Values{"list": {"favorites"}})
	assert.Equal(t, "Removed from your list", doc.Find(".flash.success").Text())
	assert.False(t, doc.Find("button.list-favorites").HasClass("on"))

	_, doc = s.post(t, c, "/watch/the-matrix/list", url.Values{"list": {"bogus"}})
	assert.NotEmpty(t, doc.Find(".flash.error").Text())

	_, doc = s.post(t, c, "/watch/the-matrix/comments", url.Values{"comment_text": {"Great movie"}})
	require.Equal(t, 1, doc.Find(".thread").Length())
	root := doc.Find(".thread .comment").First()
	rootID := strings.TrimPrefix(root.AttrOr("id", ""), "comment-")
	require.NotEmpty(t, rootID)

	_, doc = s.post(t, c, "/watch/the-matrix/comments", url.Values{"comment_text": {"Agreed"}, "parent_id": {rootID}})
	assert.Equal(t, 1, doc.Find(".thread").Length())
	assert.Equal(t, "Agreed", doc.Find(".reply .comment > p").Last().Text())

	_, doc = s.post(t, c, "/watch/the-matrix/comments", url.Values{"comment_text": {"   "}})
	assert.NotEmpty(t, doc.Find(".flash.error").Text())

	_, doc = s.post(t, c, "/watch/the-matrix/vote", url.Values{"comment_id": {rootID}, "vote_type": {"1"}})
	comment := doc.Find("#comment-" + rootID)
	assert.Equal(t, "1", comment.Find(".score").First().Text())
	assert.True(t, comment.Find("button.up").First().HasClass("on"))
	assert.Contains(t, doc.Find("#comments h2").Text(), "(2)")

	// Pages reached by redirecting back after a form post are not views.
	content, err := s.store.ContentBySlug(context.Background(), "the-matrix")
	require.NoError(t, err)
	assert.Equal(t, int64(0), content.Views)

	s.get(t, c, "/watch/the-matrix")
	content, err = s.store.ContentBySlug(context.Background(), "the-matrix")
	require.NoError(t, err)
	assert.Equal(t, int64(1), content.Views)
}

func TestGuestCannotPost(t *testing.T) {
	s := newTestSite(t)
	s.seedCatalog(t)
	c := s.browser(t)

	resp, _ := s.post(t, c, "/watch/the-matrix/comments", url.Values{"comment_text": {"hi"}})
	assert.Equal(t, "/login", resp.Request.URL.Path)
	comments, err := s.store.CommentsByContentID(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestRegisterAndConfirm(t *testing.T) {
	s := newTestSite(t)
	c := s.browser(t)

	resp, doc := s.post(t, c, "/register", url.Values{
		"name": {"New"}, "email": {"new@example.com"}, "password": {"secret1"}, "confirm_password": {"nope123"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "new@example.com", doc.Find(`input[name="email"]`).AttrOr("value", ""))

	resp, doc = s.post(t, c, "/register", url.Values{
		"name": {"New"}, "email": {"new@example.com"}, "password": {"secret1"}, "confirm_password": {"secret1"},
	})
	assert.Equal(t, "/login", resp.Request.URL.Path)
	assert.Contains(t, doc.Find(".flash.success").Text(), "Check your email")

	_, doc = s.post(t, c, "/login", url.Values{"email": {"new@example.com"}, "password": {"secret1"}})
	assert.Equal(t, "Please confirm your email address before signing in.", doc.Find(".flash.error").Text())

	sent, ok := s.mailer.Last()
	require.True(t, ok)
	link, err := url.Parse(strings.TrimSpace(sent.TextBody[strings.Index(sent.TextBody, "http"):]))
	require.NoError(t, err)
	resp, _ = s.get(t, c, "/confirm-email?"+link.RawQuery)
	assert.Equal(t, "/login", resp.Request.URL.Path)

	s.login(t, c, "new@example.com")

	resp, _ = s.get(t, c, "/confirm-email?token=bogus")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestForgotAndUpdatePassword(t *testing.T) {
	s := newTestSite(t)
	s.seedUser(t, "ana@example.com", false)
	c := s.browser(t)

	resp, _ := s.get(t, c, "/update-password")
	assert.Equal(t, "/forgot-password", resp.Request.URL.Path)

	_, doc := s.post(t, c, "/forgot-password", url.Values{"email": {"ana@example.com"}})
	assert.Contains(t, doc.Find(".flash.success").Text(), "reset link")
	sent, ok := s.mailer.Last()
	require.True(t, ok)
	link, err := url.Parse(strings.TrimSpace(sent.TextBody[strings.Index(sent.TextBody, "http"):]))
	require.NoError(t, err)
	token := link.Query().Get("token")

	_, doc = s.get(t, c, "/update-password?token="+token)
	assert.Equal(t, token, doc.Find(`input[name="token"]`).AttrOr("value", ""))

	resp, _ = s.post(t, c, "/update-password", url.Values{"token": {token}, "password": {"newpass1"}, "confirm_password": {"newpass1"}})
	assert.Equal(t, "/login", resp.Request.URL.Path)

	resp, _ = s.post(t, c, "/login", url.Values{"email": {"ana@example.com"}, "password": {"newpass1"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/", resp.Request.URL.Path)
}

func TestAdminAccess(t *testing.T) {
	s := newTestSite(t)
	s.seedUser(t, "user@example.com", false)
	c := s.browser(t)
	s.login(t, c, "user@example.com")

	resp, doc := s.get(t, c, "/admin")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "403", doc.Find(".error-page h1").Text())

	resp, _ = s.post(t, c, "/admin/categories", url.Values{"name": {"Drama"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, s.store.Categories())
}

func TestAdminDashboardWithoutStats(t *testing.T) {
	s := newTestSite(t)
	s.seedCatalog(t)
	s.seedUser(t, "admin@example.com", true)
	c := s.browser(t)
	s.login(t, c, "admin@example.com")

	// Stats reads the comments table; the cached tabs do not.
	_, err := s.db.Exec(`DROP TABLE comment_votes`)
	require.NoError(t, err)
	_, err = s.db.Exec(`DROP TABLE comments`)
	require.NoError(t, err)

	resp, doc := s.get(t, c, "/admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, doc.Find("#admin-content").Length())
	assert.Contains(t, doc.Find("#admin-content").Text(), "The Matrix")

	resp, _ = s.get(t, c, "/admin?tab=categories")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.get(t, c, "/admin?tab=comments")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestAdminManagesCatalog(t *testing.T) {
	s := newTestSite(t)
	adminID := s.seedUser(t, "admin@example.com", true)
	c := s.browser(t)
	s.login(t, c, "admin@example.com")

	resp, doc := s.get(t, c, "/admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, doc.Find("#admin-content").Length())

	_, doc = s.post(t, c, "/admin/categories", url.Values{"name": {"Drama"}})
	assert.Equal(t, "Added category Drama", doc.Find(".flash.success").Text())
	_, doc = s.post(t, c, "/admin/categories", url.Values{"name": {"drama"}})
	assert.NotEmpty(t, doc.Find(".flash.error").Text())
	categories := s.store.Categories()
	require.Len(t, categories, 1)

	form := url.Values{
		"title":        {"Dark"},
		"type":         {"series"},
		"release_date": {"2017-12-01"},
		"rating":       {"8.8"},
		"category_ids": {itoa(categories[0].ID)},
		"cast":         {"Louis Hofmann, Lisa Vicari"},
		"servers":      {"dubbed|Main|https://player.test/dark\nsubtitled|Alt|https://alt.test/dark"},
		"episodes":     {"1,1,Secrets,https://player.test/dark-1\n1,2,Lies,https://player.test/dark-2\n2,1,Ghosts,https://player.test/dark-3\nseason,2,Past and Present\nseason,3,Origins"},
	}
	resp, doc = s.post(t, c, "/admin/content", form)
	assert.Equal(t, "/admin", resp.Request.URL.Path)
	assert.Equal(t, "Added Dark", doc.Find(".flash.success").Text())

	content, err := s.store.ContentBySlug(context.Background(), "dark")
	require.NoError(t, err)
	require.NotNil(t, content)
	assert.Equal(t, &adminID, content.UploaderID)
	assert.Equal(t, model.StringList{"Louis Hofmann", "Lisa Vicari"}, content.Cast)
	assert.Len(t, content.Servers.Subtitled, 1)
	require.Len(t, content.Seasons, 3)
	assert.Equal(t, "Past and Present", content.Seasons[1].Title)
	assert.Empty(t, content.Seasons[2].Episodes)
	assert.Equal(t, 3, content.EpisodeCount())

	_, doc = s.get(t, c, "/admin/content/"+itoa(content.ID)+"/edit")
	assert.Equal(t, "Dark", doc.Find(`input[name="title"]`).AttrOr("value", ""))
	episodes := doc.Find(`textarea[name="episodes"]`).Text()
	assert.Contains(t, episodes, "2,1,Ghosts,https://player.test/dark-3")
	assert.Contains(t, episodes, "season,2,Past and Present")
	assert.Contains(t, episodes, "season,3,Origins")
	assert.Equal(t, 1, doc.Find(`input[name="category_ids"][checked]`).Length())

	form.Set("episodes", "1,1,Secrets\n")
	resp, doc = s.post(t, c, "/admin/content/"+itoa(content.ID), form)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "1,1,Secrets\n", doc.Find(`textarea[name="episodes"]`).Text())
	assert.True(t, doc.Find(`textarea[name="episodes"]`).Parent().HasClass("invalid"))

	form.Set("episodes", "")
	form.Set("title", "Dark (2017)")
	form.Set("slug", "dark")
	resp, _ = s.post(t, c, "/admin/content/"+itoa(content.ID), form)
	assert.Equal(t, "/admin", resp.Request.URL.Path)
	updated, ok := s.store.Content(content.ID)
	require.True(t, ok)
	assert.Equal(t, "Dark (2017)", updated.Title)
	assert.Equal(t, "dark", updated.Slug)
	assert.Empty(t, updated.Seasons)

	_, doc = s.post(t, c, "/admin/content/"+itoa(content.ID)+"/delete", nil)
	assert.Equal(t, "Content deleted", doc.Find(".flash.success").Text())
	_, ok = s.store.Content(content.ID)
	assert.False(t, ok)
}

func TestAdminUsersAndSettings(t *testing.T) {
	s := newTestSite(t)
	adminID := s.seedUser(t, "admin@example.com", true)
	userID := s.seedUser(t, "user@example.com", false)
	c := s.browser(t)
	s.login(t, c, "admin@example.com")

	_, doc := s.post(t, c, "/admin/users/"+itoa(adminID), url.Values{"name": {"Boss"}})
	assert.Equal(t, "You cannot remove your own access", doc.Find(".flash.error").Text())

	_, doc = s.post(t, c, "/admin/users/"+itoa(userID), url.Values{"name": {"Troll"}, "is_blocked": {"1"}})
	assert.Equal(t, "Updated Troll", doc.Find(".flash.success").Text())
	users, err := s.store.AllUsers(context.Background())
	require.NoError(t, err)
	for _, u := range users {
		if u.ID == userID {
			assert.True(t, u.IsBlocked)
			assert.False(t, u.IsAdmin)
		}
	}

	_, doc = s.post(t, c, "/admin/settings", url.Values{"site_name": {"StreamBox"}})
	assert.Equal(t, "Settings saved", doc.Find(".flash.success").Text())
	assert.Equal(t, "StreamBox", s.store.Settings().SiteName)
	assert.Contains(t, doc.Find(".brand").Text(), "StreamBox")

	_, doc = s.post(t, c, "/admin/settings", url.Values{"site_name": {" "}})
	assert.NotEmpty(t, doc.Find(".flash.error").Text())
	assert.Equal(t, "StreamBox", s.store.Settings().SiteName)

	s.post(t, s.browser(t), "/forgot-password", url.Values{"email": {"user@example.com"}})
	sent, ok := s.mailer.Last()
	require.True(t, ok)
	assert.Contains(t, sent.HtmlBody, "StreamBox password reset")
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
