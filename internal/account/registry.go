package account

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/auth"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/db"
)

// Registry maps session ids to live holders for the HTTP surfaces.
type Registry struct {
	auth   *auth.Service
	db     *db.DB
	logger hclog.Logger

	mu      sync.Mutex
	holders map[string]*Holder

	unsubscribe func()
}

func NewRegistry(svc *auth.Service, database *db.DB, logger hclog.Logger) *Registry {
	r := &Registry{
		auth:    svc,
		db:      database,
		logger:  logger,
		holders: make(map[string]*Holder),
	}
	r.unsubscribe = svc.Subscribe(r.onAuthChange)
	return r
}

func (r *Registry) onAuthChange(change auth.StateChange) {
	if change.Event != auth.SignedOut {
		return
	}

	var dropped []*Holder
	r.mu.Lock()
	for id, h := range r.holders {
		s := h.Session()
		match := id == change.SessionID ||
			(change.SessionID == "" && s != nil && s.UserID == change.UserID)
		if match {
			dropped = append(dropped, h)
			delete(r.holders, id)
		}
	}
	r.mu.Unlock()

	for _, h := range dropped {
		h.Close()
	}
}

// Resolve returns the holder for an access token, restoring it on first use.
func (r *Registry) Resolve(ctx context.Context, token string) (*Holder, error) {
	sessionID, err := r.auth.SessionID(token)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	h, ok := r.holders[sessionID]
	r.mu.Unlock()
	if ok {
		if s := h.Session(); s != nil && s.ExpiresAt > time.Now().UnixMilli() {
			return h, nil
		}
		r.drop(sessionID)
	}

	h = NewHolder(r.auth, r.db, r.logger)
	if err := h.Restore(ctx, token); err != nil {
		h.Close()
		return nil, err
	}
	return r.store(sessionID, h), nil
}

// Login signs in and registers the new session's holder.
func (r *Registry) Login(ctx context.Context, email, password string) (*Holder, error) {
	h := NewHolder(r.auth, r.db, r.logger)
	if _, _, err := h.Login(ctx, email, password); err != nil {
		h.Close()
		return nil, err
	}
	return r.store(h.Session().ID, h), nil
}

// Guest returns a signed-out holder that is not tracked by the registry.
func (r *Registry) Guest() *Holder {
	h := &Holder{auth: r.auth, db: r.db, logger: r.logger}
	return h
}

func (r *Registry) store(sessionID string, h *Holder) *Holder {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.holders[sessionID]; ok {
		h.Close()
		return existing
	}
	r.holders[sessionID] = h
	return h
}

func (r *Registry) drop(sessionID string) {
	r.mu.Lock()
	h, ok := r.holders[sessionID]
	delete(r.holders, sessionID)
	r.mu.Unlock()
	if ok {
		h.Close()
	}
}

// Prune deletes expired sessions. The resulting sign-out events drop their
// holders.
func (r *Registry) Prune(ctx context.Context) (int, error) {
	n, err := r.auth.PruneExpiredSessions(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.logger.Debug("pruned expired sessions", "count", n)
	}
	return n, nil
}

// RefreshUser makes every holder of userID refetch its profile.
func (r *Registry) RefreshUser(userID int64) {
	r.auth.NotifyUserUpdated(userID)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.holders)
}

func (r *Registry) Close() {
	r.unsubscribe()
	r.mu.Lock()
	holders := r.holders
	r.holders = make(map[string]*Holder)
	r.mu.Unlock()
	for _, h := range holders {
		h.Close()
	}
}
