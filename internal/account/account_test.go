package account

import (
	"context"
	"sort"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/apperr"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/auth"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/db"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/templates"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/testutil"
)

type fixture struct {
	db       *db.DB
	auth     *auth.Service
	registry *Registry
	mailer   *testutil.MockMailSender
	userID   int64
}

func setup(t *testing.T) *fixture {
	t.Helper()
	database := testutil.SetupTestDB(t)
	mailer := &testutil.MockMailSender{}
	svc := auth.NewService(database, mailer, templates.NewManager("../../templates"), auth.NewJWT("test-secret", "carsaiplay"), auth.Options{
		BaseURL:                  "http://localhost:8080",
		RequireEmailConfirmation: true,
	}, hclog.NewNullLogger())

	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)
	userID := testutil.SeedUser(t, database, "alice@example.com", "Alice", hash, false)

	registry := NewRegistry(svc, database, hclog.NewNullLogger())
	t.Cleanup(registry.Close)
	return &fixture{db: database, auth: svc, registry: registry, mailer: mailer, userID: userID}
}

func TestLoginLoadsProfile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	h := NewHolder(f.auth, f.db, hclog.NewNullLogger())
	defer h.Close()
	assert.True(t, h.Loading())

	user, profile, err := h.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, f.userID, user.ID)
	assert.Equal(t, "Alice", profile.Name)
	assert.False(t, h.Loading())
	assert.True(t, h.Authenticated())
	assert.False(t, h.IsAdmin())

	_, _, err = NewHolder(f.auth, f.db, hclog.NewNullLogger()).Login(ctx, "alice@example.com", "bad")
	assert.True(t, apperr.Is(err, apperr.KindAuth))
}

func TestRestoreAndLogout(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	h, err := f.registry.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	token := h.Session().AccessToken

	same, err := f.registry.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Same(t, h, same)

	fresh := NewHolder(f.auth, f.db, hclog.NewNullLogger())
	defer fresh.Close()
	require.NoError(t, fresh.Restore(ctx, token))
	assert.Equal(t, "Alice", fresh.Profile().Name)

	require.NoError(t, h.Logout(ctx))
	assert.False(t, h.Authenticated())
	assert.False(t, fresh.Authenticated(), "other holders of the session observe the sign-out")
	assert.Equal(t, 0, f.registry.Len())

	_, err = f.registry.Resolve(ctx, token)
	assert.ErrorIs(t, err, auth.ErrInvalidSession)
}

func TestUpdateUserProfile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	guest := f.registry.Guest()
	name := "Nobody"
	err := guest.UpdateUserProfile(ctx, model.ProfileUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.True(t, apperr.Is(err, apperr.KindProfile))

	h, err := f.registry.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)

	name = "Alice Liddell"
	avatar := "http://localhost:8080/uploads/avatars/a.png"
	require.NoError(t, h.UpdateUserProfile(ctx, model.ProfileUpdate{Name: &name, AvatarURL: &avatar}))
	assert.Equal(t, "Alice Liddell", h.Profile().Name)
	require.NotNil(t, h.Profile().AvatarURL)
	assert.Equal(t, avatar, *h.Profile().AvatarURL)

	empty := ""
	assert.Equal(t, "name", apperr.FieldOf(h.UpdateUserProfile(ctx, model.ProfileUpdate{Name: &empty})))
}

func TestListToggleRestoresSet(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var ids []int64
	for _, title := range []string{"One", "Two", "Three"} {
		ids = append(ids, testutil.SeedContent(t, f.db, model.ContentInput{Title: title, Type: model.TypeMovie}))
	}

	h, err := f.registry.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)

	for _, kind := range model.ListKinds {
		require.NoError(t, h.AddToList(ctx, kind, ids[0]))
		require.NoError(t, h.AddToList(ctx, kind, ids[1]))
		before := append([]int64(nil), h.Profile().List(kind)...)

		added, err := h.ToggleList(ctx, kind, ids[2])
		require.NoError(t, err)
		assert.True(t, added)
		assert.True(t, h.Profile().InList(kind, ids[2]))

		added, err = h.ToggleList(ctx, kind, ids[2])
		require.NoError(t, err)
		assert.False(t, added)

		after := append([]int64(nil), h.Profile().List(kind)...)
		sort.Slice(before, func(i, j int) bool { return before[i] < before[j] })
		sort.Slice(after, func(i, j int) bool { return after[i] < after[j] })
		assert.Equal(t, before, after, kind)
	}

	require.NoError(t, h.AddToList(ctx, model.ListFavorites, ids[0]))
	assert.Len(t, h.Profile().Favorites, 2, "adding twice keeps one entry")

	require.NoError(t, h.RemoveFromList(ctx, model.ListFavorites, ids[0]))
	assert.False(t, h.Profile().InList(model.ListFavorites, ids[0]))

	assert.True(t, apperr.Is(h.AddToList(ctx, model.ListKind("likes"), ids[0]), apperr.KindValidation))
	assert.True(t, apperr.Is(h.AddToList(ctx, model.ListFavorites, 9999), apperr.KindNotFound))
}

func TestStaleHoldersDoNotLoseUpdates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var ids []int64
	for _, title := range []string{"One", "Two", "Three", "Four"} {
		ids = append(ids, testutil.SeedContent(t, f.db, model.ContentInput{Title: title, Type: model.TypeMovie}))
	}

	tabA, err := f.registry.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, tabA.AddToList(ctx, model.ListFavorites, ids[0]))
	require.NoError(t, tabA.AddToList(ctx, model.ListFavorites, ids[1]))

	tabB, err := f.registry.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, tabA.AddToList(ctx, model.ListFavorites, ids[2]))
	require.NoError(t, tabB.AddToList(ctx, model.ListFavorites, ids[3]))

	profile, err := f.db.GetProfile(ctx, f.userID)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, profile.Favorites)
}

func TestAdminEditRefreshesHolders(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	h, err := f.registry.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.False(t, h.IsAdmin())

	yes := true
	require.NoError(t, f.db.UpdateUserFlags(ctx, f.userID, model.UserUpdate{IsAdmin: &yes}))
	f.registry.RefreshUser(f.userID)
	assert.True(t, h.IsAdmin())
}

func TestPasswordResetSignsOutEveryHolder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, err := f.registry.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	b, err := f.registry.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, 2, f.registry.Len())

	require.NoError(t, a.SendPasswordResetEmail(ctx, "alice@example.com"))
	sent, ok := f.mailer.Last()
	require.True(t, ok)
	i := len(sent.TextBody) - 1
	for i >= 0 && sent.TextBody[i] != '=' {
		i--
	}
	require.NoError(t, f.auth.ResetPassword(ctx, sent.TextBody[i+1:], "newsecret"))

	assert.False(t, a.Authenticated())
	assert.False(t, b.Authenticated())
	assert.Equal(t, 0, f.registry.Len())
}

func TestRegisterDoesNotSignIn(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	h := f.registry.Guest()
	require.NoError(t, h.Register(ctx, "Bob", "bob@example.com", "secret1"))
	assert.False(t, h.Authenticated())
	assert.Len(t, f.mailer.SentEmails, 1)

	assert.True(t, apperr.Is(h.UpdateUserPassword(ctx, "another1"), apperr.KindAuth))
}
