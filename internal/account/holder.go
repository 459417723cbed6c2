// Package account keeps per-client authentication state: the signed-in user,
// their profile and the loading flag, refreshed on every auth-state change.
package account

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/apperr"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/auth"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/db"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

var ErrNotAuthenticated = apperr.Profile("Not authenticated", nil)

// Holder is one client's view of its session.
type Holder struct {
	auth   *auth.Service
	db     *db.DB
	logger hclog.Logger

	mu      sync.RWMutex
	session *model.Session
	user    *model.User
	profile *model.Profile
	loading bool

	unsubscribe func()
}

// NewHolder returns a holder in the loading state, subscribed to auth events
// until Close.
func NewHolder(svc *auth.Service, database *db.DB, logger hclog.Logger) *Holder {
	h := &Holder{
		auth:    svc,
		db:      database,
		logger:  logger,
		loading: true,
	}
	h.unsubscribe = svc.Subscribe(h.onAuthChange)
	return h
}

func (h *Holder) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
}

func (h *Holder) onAuthChange(change auth.StateChange) {
	h.mu.RLock()
	session := h.session
	h.mu.RUnlock()
	if session == nil || (change.UserID != 0 && change.UserID != session.UserID) {
		return
	}

	switch change.Event {
	case auth.SignedOut:
		if change.SessionID == "" || change.SessionID == session.ID {
			h.clear()
		}
	case auth.SignedIn, auth.UserUpdated:
		if err := h.Refresh(context.Background()); err != nil {
			h.logger.Error("profile refresh failed", "user_id", session.UserID, "error", err)
		}
	}
}

func (h *Holder) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session = nil
	h.user = nil
	h.profile = nil
	h.loading = false
}

func (h *Holder) setSession(session *model.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session = session
	h.user = session.User
	h.loading = true
}

// Restore loads the session behind an access token and its profile.
func (h *Holder) Restore(ctx context.Context, token string) error {
	session, err := h.auth.GetSession(ctx, token)
	if err != nil {
		h.clear()
		return err
	}
	h.setSession(session)
	return h.Refresh(ctx)
}

// Refresh re-reads the user and profile rows. Loading is false afterwards
// whether or not the read succeeded.
func (h *Holder) Refresh(ctx context.Context) error {
	h.mu.RLock()
	session := h.session
	h.mu.RUnlock()
	if session == nil {
		h.clear()
		return nil
	}

	user, err := h.db.GetUserByID(ctx, session.UserID)
	if err == nil {
		var profile *model.Profile
		profile, err = h.db.GetProfile(ctx, session.UserID)
		if err == nil {
			h.mu.Lock()
			if h.session != nil && h.session.ID == session.ID {
				h.user = user
				h.profile = profile
			}
			h.loading = false
			h.mu.Unlock()
			return nil
		}
	}

	h.mu.Lock()
	h.loading = false
	h.mu.Unlock()
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Profile("Profile not found", err)
	}
	return apperr.Backend("fetch profile", err)
}

func (h *Holder) Login(ctx context.Context, email, password string) (*model.User, *model.Profile, error) {
	session, err := h.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	h.setSession(session)
	if err := h.Refresh(ctx); err != nil {
		return nil, nil, err
	}
	return h.User(), h.Profile(), nil
}

func (h *Holder) Logout(ctx context.Context) error {
	h.mu.RLock()
	session := h.session
	h.mu.RUnlock()
	if session == nil {
		return nil
	}
	if err := h.auth.SignOut(ctx, session.ID); err != nil {
		return err
	}
	h.clear()
	return nil
}

// Register creates an account. The holder stays signed out until the email
// is confirmed and the user logs in.
func (h *Holder) Register(ctx context.Context, name, email, password string) error {
	_, err := h.auth.SignUp(ctx, name, email, password)
	return err
}

func (h *Holder) SendPasswordResetEmail(ctx context.Context, email string) error {
	return h.auth.ResetPasswordForEmail(ctx, email)
}

func (h *Holder) UpdateUserPassword(ctx context.Context, password string) error {
	user := h.User()
	if user == nil {
		return apperr.Auth("Not authenticated", nil)
	}
	return h.auth.UpdatePassword(ctx, user.ID, password)
}

// UpdateUserProfile applies a partial profile update, then refetches the
// profile.
func (h *Holder) UpdateUserProfile(ctx context.Context, update model.ProfileUpdate) error {
	user := h.User()
	if user == nil {
		return ErrNotAuthenticated
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return apperr.Validation("name", "Name is required")
		}
		update.Name = &name
	}
	if err := h.db.UpdateProfile(ctx, user.ID, update); err != nil {
		return apperr.Profile("Failed to update profile", errors.WithStack(err))
	}
	return h.Refresh(ctx)
}

// ToggleList adds contentID to the list when absent and removes it when
// present. It reports whether the item is now in the list.
func (h *Holder) ToggleList(ctx context.Context, kind model.ListKind, contentID int64) (bool, error) {
	var added bool
	err := h.listOp(ctx, kind, func(userID int64) error {
		var err error
		added, err = h.db.ToggleListItem(ctx, userID, kind, contentID)
		return err
	})
	return added, err
}

func (h *Holder) AddToList(ctx context.Context, kind model.ListKind, contentID int64) error {
	return h.listOp(ctx, kind, func(userID int64) error {
		return h.db.AddToList(ctx, userID, kind, contentID)
	})
}

func (h *Holder) RemoveFromList(ctx context.Context, kind model.ListKind, contentID int64) error {
	return h.listOp(ctx, kind, func(userID int64) error {
		return h.db.RemoveFromList(ctx, userID, kind, contentID)
	})
}

func (h *Holder) listOp(ctx context.Context, kind model.ListKind, op func(userID int64) error) error {
	user := h.User()
	if user == nil {
		return ErrNotAuthenticated
	}
	if !kind.Valid() {
		return apperr.Validation("list", "Unknown list")
	}
	if err := op(user.ID); err != nil {
		if db.IsForeignKeyViolation(err) {
			return apperr.NotFound("Content not found")
		}
		return apperr.Profile("Failed to update list", errors.WithStack(err))
	}
	return h.Refresh(ctx)
}

func (h *Holder) Session() *model.Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.session
}

func (h *Holder) User() *model.User {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.user
}

func (h *Holder) Profile() *model.Profile {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.profile
}

func (h *Holder) Loading() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.loading
}

func (h *Holder) Authenticated() bool {
	return h.User() != nil
}

func (h *Holder) IsAdmin() bool {
	p := h.Profile()
	return p != nil && p.IsAdmin
}
