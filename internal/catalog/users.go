package catalog

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/apperr"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/events"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

func (s *Store) AllUsers(ctx context.Context) ([]*model.Profile, error) {
	users, err := s.db.ListProfiles(ctx)
	if err != nil {
		return nil, apperr.Backend("list users", err)
	}
	return users, nil
}

// UpdateUser applies an administrator's edit to a user's profile and flags.
func (s *Store) UpdateUser(ctx context.Context, id int64, update model.UserUpdate) (*model.Profile, error) {
	if update.Empty() {
		return nil, apperr.Validation("", "Nothing to update")
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperr.Validation("name", "Name is required")
		}
		update.Name = &name
	}

	err := s.db.UpdateUserFlags(ctx, id, update)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Backend("update user", err)
	}

	profile, err := s.db.GetProfile(ctx, id)
	if err != nil {
		return nil, apperr.Backend("get profile", err)
	}
	s.logger.Info("user updated", "id", id)
	s.notifier.Publish(events.Event{Entity: events.EntityProfile, Action: events.ActionUpdated, ID: id})
	return profile, nil
}
