package model

const DefaultSiteName = "CarsaiPlay"

type Settings struct {
	ID       int64   `json:"id"`
	SiteName string  `json:"site_name"`
	LogoURL  *string `json:"logo_url"`
}

func DefaultSettings() Settings {
	return Settings{ID: 1, SiteName: DefaultSiteName}
}

type SettingsUpdate struct {
	SiteName *string `json:"site_name"`
	LogoURL  *string `json:"logo_url"`
}

// Stats are the dashboard counters shown to administrators.
type Stats struct {
	Content    int   `json:"content"`
	Movies     int   `json:"movies"`
	Series     int   `json:"series"`
	Anime      int   `json:"anime"`
	Users      int   `json:"users"`
	Views      int64 `json:"views"`
	Categories int   `json:"categories"`
	Comments   int   `json:"comments"`
}
