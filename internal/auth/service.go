package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/apperr"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/db"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/mail"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/templates"
)

var (
	ErrInvalidCredentials = apperr.Auth("Invalid login credentials", nil)
	ErrEmailNotConfirmed  = apperr.Auth("Email not confirmed", nil)
	ErrInvalidSession     = apperr.Auth("Invalid session", nil)
	ErrSessionExpired     = apperr.Auth("Session expired", nil)
	ErrInvalidToken       = apperr.Auth("Invalid or expired link", nil)
	ErrUserExists         = &apperr.Error{Kind: apperr.KindAuth, Field: "email", Message: "User already registered"}
)

// Event is an auth-state change delivered to subscribers.
type Event string

const (
	SignedIn    Event = "SIGNED_IN"
	SignedOut   Event = "SIGNED_OUT"
	UserUpdated Event = "USER_UPDATED"
)

// StateChange describes one auth event. An empty SessionID on SignedOut means
// every session of UserID ended.
type StateChange struct {
	Event     Event
	UserID    int64
	SessionID string
}

type Listener func(StateChange)

type Options struct {
	BaseURL string
	// SiteName returns the name used in mails. It is read on every send so
	// renames in the site settings apply at once.
	SiteName                 func() string
	SessionTTL               time.Duration
	ResetTokenTTL            time.Duration
	RequireEmailConfirmation bool
}

// Service is the authentication provider: accounts, sessions, email
// confirmation and password recovery.
type Service struct {
	db        *db.DB
	mailer    mail.MailSender
	templates *templates.Manager
	tokens    *JWT
	opts      Options
	logger    hclog.Logger
	now       func() time.Time

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
}

func NewService(database *db.DB, mailer mail.MailSender, tmpl *templates.Manager, tokens *JWT, opts Options, logger hclog.Logger) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = time.Hour
	}
	return &Service{
		db:        database,
		mailer:    mailer,
		templates: tmpl,
		tokens:    tokens,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers fn for auth-state changes and returns its unsubscribe func.
func (s *Service) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) emit(change StateChange) {
	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(change)
	}
}

// NotifyUserUpdated tells subscribers that a user's profile changed outside
// their own session, for example through moderation.
func (s *Service) NotifyUserUpdated(userID int64) {
	s.emit(StateChange{Event: UserUpdated, UserID: userID})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.db.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Auth("Sign in failed", errors.WithStack(err))
	}

	match, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.Warn("unreadable password hash", "user_id", user.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !match {
		return nil, ErrInvalidCredentials
	}
	if s.opts.RequireEmailConfirmation && !user.Confirmed() {
		return nil, ErrEmailNotConfirmed
	}

	session, err := s.createSession(ctx, user)
	if err != nil {
		return nil, apperr.Auth("Sign in failed", err)
	}

	s.logger.Info("user signed in", "user_id", user.ID)
	s.emit(StateChange{Event: SignedIn, UserID: user.ID, SessionID: session.ID})
	return session, nil
}

func (s *Service) createSession(ctx context.Context, user *model.User) (*model.Session, error) {
	now := s.now()
	expires := now.Add(s.opts.SessionTTL)
	session := &model.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: expires.UnixMilli(),
		User:      user,
	}
	if err := s.db.CreateSession(ctx, session); err != nil {
		return nil, errors.WithStack(err)
	}

	token, err := s.tokens.GenerateToken(user.ID, session.ID, now, expires)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	session.AccessToken = token
	return session, nil
}

// SignUp creates the account and its profile, then emails a confirmation
// link. It does not sign the user in.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return nil, apperr.Validation("name", "Name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validation("email", "A valid email is required")
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, apperr.Auth("Sign up failed", errors.WithStack(err))
	}

	var (
		token       string
		tokenHash   *string
		confirmedAt *int64
	)
	if s.opts.RequireEmailConfirmation {
		raw, h, err := NewOneTimeToken()
		if err != nil {
			return nil, apperr.Auth("Sign up failed", errors.WithStack(err))
		}
		token, tokenHash = raw, &h
	} else {
		now := s.now().UnixMilli()
		confirmedAt = &now
	}

	var userID int64
	err = s.db.WithTx(ctx, func(tx *db.Tx) error {
		id, err := tx.InsertUser(ctx, email, hash, tokenHash, confirmedAt)
		if err != nil {
			return err
		}
		userID = id
		return tx.InsertProfile(ctx, id, name, email)
	})
	if db.IsUniqueViolation(err) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, apperr.Auth("Sign up failed", errors.WithStack(err))
	}

	if token != "" {
		link := fmt.Sprintf("%s/confirm-email?token=%s", s.opts.BaseURL, token)
		s.sendMail(email, "Confirm your email", "mail/confirm-email.html", link, name)
	}

	s.logger.Info("user registered", "user_id", userID, "confirmation_required", token != "")
	return s.db.GetUserByID(ctx, userID)
}

func (s *Service) siteName() string {
	if s.opts.SiteName != nil {
		if name := s.opts.SiteName(); name != "" {
			return name
		}
	}
	return model.DefaultSiteName
}

func (s *Service) sendMail(to, subject, templateName, link, name string) {
	data := map[string]string{"Link": link, "Name": name, "SiteName": s.siteName()}
	htmlBody, err := s.templates.Render(templateName, data)
	if err != nil {
		s.logger.Error("mail template render failed", "template", templateName, "error", err)
	}
	if err := s.mailer.Send(to, subject, subject+": "+link, htmlBody); err != nil {
		s.logger.Error("mail send failed", "to", to, "error", err)
	}
}

// ConfirmEmail marks the account behind a confirmation link as confirmed.
func (s *Service) ConfirmEmail(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.db.GetUserByConfirmationToken(ctx, HashToken(token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, apperr.Auth("Email confirmation failed", errors.WithStack(err))
	}
	if err := s.db.ConfirmEmail(ctx, user.ID); err != nil {
		return nil, apperr.Auth("Email confirmation failed", errors.WithStack(err))
	}
	return s.db.GetUserByID(ctx, user.ID)
}

// SignOut ends one session. Ending an unknown session is not an error.
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	session, err := s.db.GetSession(ctx, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return apperr.Auth("Sign out failed", errors.WithStack(err))
	}
	if _, err := s.db.DeleteSession(ctx, sessionID); err != nil {
		return apperr.Auth("Sign out failed", errors.WithStack(err))
	}
	s.emit(StateChange{Event: SignedOut, UserID: session.UserID, SessionID: sessionID})
	return nil
}

// ResetPasswordForEmail emails a reset link. Unknown addresses succeed
// silently so the response does not reveal which emails are registered.
func (s *Service) ResetPasswordForEmail(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperr.Validation("email", "Email is required")
	}
	user, err := s.db.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return apperr.Auth("Failed to send password reset email", errors.WithStack(err))
	}

	token, hash, err := NewOneTimeToken()
	if err != nil {
		return apperr.Auth("Failed to send password reset email", errors.WithStack(err))
	}
	expires := s.now().Add(s.opts.ResetTokenTTL).Unix()
	if err := s.db.SetPasswordResetToken(ctx, user.ID, hash, expires); err != nil {
		return apperr.Auth("Failed to send password reset email", errors.WithStack(err))
	}

	link := fmt.Sprintf("%s/update-password?token=%s", s.opts.BaseURL, token)
	s.sendMail(user.Email, "Password reset", "mail/forgot-password.html", link, "")
	return nil
}

// ResetPassword sets a new password from a reset link and ends every
// session of the user.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if token == "" {
		return ErrInvalidToken
	}
	user, err := s.db.GetUserByResetToken(ctx, HashToken(token))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidToken
	}
	if err != nil {
		return apperr.Auth("Password reset failed", errors.WithStack(err))
	}
	if user.PasswordResetTokenExpires == nil || *user.PasswordResetTokenExpires < s.now().Unix() {
		return ErrInvalidToken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return apperr.Auth("Password reset failed", errors.WithStack(err))
	}
	err = s.db.WithTx(ctx, func(tx *db.Tx) error {
		if err := tx.ResetPassword(ctx, user.ID, hash); err != nil {
			return err
		}
		_, err := tx.DeleteUserSessions(ctx, user.ID)
		return err
	})
	if err != nil {
		return apperr.Auth("Password reset failed", errors.WithStack(err))
	}

	s.logger.Info("password reset", "user_id", user.ID)
	s.emit(StateChange{Event: SignedOut, UserID: user.ID})
	return nil
}

// UpdatePassword changes the password of a signed-in user.
func (s *Service) UpdatePassword(ctx context.Context, userID int64, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return apperr.Auth("Password update failed", errors.WithStack(err))
	}
	if err := s.db.UpdatePassword(ctx, userID, hash); err != nil {
		return apperr.Auth("Password update failed", errors.WithStack(err))
	}
	s.emit(StateChange{Event: UserUpdated, UserID: userID})
	return nil
}

// SessionID extracts the session id from an access token without touching
// the database.
func (s *Service) SessionID(token string) (string, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return "", ErrInvalidSession
	}
	return claims.ID, nil
}

// GetSession restores the session behind an access token.
func (s *Service) GetSession(ctx context.Context, token string) (*model.Session, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, ErrInvalidSession
	}

	session, err := s.db.GetSession(ctx, claims.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, apperr.Auth("Session lookup failed", errors.WithStack(err))
	}
	if session.UserID != claims.UserID {
		return nil, ErrInvalidSession
	}
	if session.ExpiresAt <= s.now().UnixMilli() {
		return nil, ErrSessionExpired
	}

	user, err := s.db.GetUserByID(ctx, session.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, apperr.Auth("Session lookup failed", errors.WithStack(err))
	}
	session.User = user
	session.AccessToken = token
	return session, nil
}

// PruneExpiredSessions deletes expired sessions and announces each sign-out.
func (s *Service) PruneExpiredSessions(ctx context.Context) (int, error) {
	ids, err := s.db.DeleteExpiredSessions(ctx, s.now().UnixMilli())
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.emit(StateChange{Event: SignedOut, SessionID: id})
	}
	return len(ids), nil
}
