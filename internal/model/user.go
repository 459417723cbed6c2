package model

type User struct {
	ID                        int64   `json:"id"`
	Email                     string  `json:"email"`
	PasswordHash              string  `json:"-"`
	EmailConfirmedAt          *int64  `json:"email_confirmed_at"`
	ConfirmationTokenHash     *string `json:"-"`
	PasswordResetTokenHash    *string `json:"-"`
	PasswordResetTokenExpires *int64  `json:"-"`
	CreatedAt                 int64   `json:"created_at"`
}

func (u *User) Confirmed() bool {
	return u.EmailConfirmedAt != nil
}

type Session struct {
	ID          string `json:"id"`
	UserID      int64  `json:"user_id"`
	AccessToken string `json:"access_token,omitempty"`
	ExpiresAt   int64  `json:"expires_at"`
	CreatedAt   int64  `json:"created_at"`
	User        *User  `json:"user,omitempty"`
}

type ListKind string

const (
	ListFavorites  ListKind = "favorites"
	ListWatchLater ListKind = "watch_later"
	ListWatched    ListKind = "watched"
)

var ListKinds = []ListKind{ListFavorites, ListWatchLater, ListWatched}

func (k ListKind) Valid() bool {
	switch k {
	case ListFavorites, ListWatchLater, ListWatched:
		return true
	}
	return false
}

type Profile struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	AvatarURL  *string `json:"avatar_url"`
	IsAdmin    bool    `json:"is_admin"`
	IsBlocked  bool    `json:"is_blocked"`
	Favorites  []int64 `json:"favorites"`
	WatchLater []int64 `json:"watch_later"`
	Watched    []int64 `json:"watched"`
	CreatedAt  int64   `json:"created_at"`
}

func (p *Profile) List(kind ListKind) []int64 {
	switch kind {
	case ListFavorites:
		return p.Favorites
	case ListWatchLater:
		return p.WatchLater
	case ListWatched:
		return p.Watched
	}
	return nil
}

func (p *Profile) InList(kind ListKind, contentID int64) bool {
	for _, id := range p.List(kind) {
		if id == contentID {
			return true
		}
	}
	return false
}

// ProfileUpdate is a partial update of the fields a user may change.
type ProfileUpdate struct {
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.AvatarURL == nil
}

// UserUpdate is a partial update applied by an administrator.
type UserUpdate struct {
	Name      *string `json:"name"`
	IsAdmin   *bool   `json:"is_admin"`
	IsBlocked *bool   `json:"is_blocked"`
}

func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.IsAdmin == nil && u.IsBlocked == nil
}
