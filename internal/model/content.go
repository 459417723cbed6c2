package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

type ContentType string

const (
	TypeMovie  ContentType = "movie"
	TypeSeries ContentType = "series"
	TypeAnime  ContentType = "anime"
)

var ContentTypes = []ContentType{TypeMovie, TypeSeries, TypeAnime}

func (t ContentType) Valid() bool {
	switch t {
	case TypeMovie, TypeSeries, TypeAnime:
		return true
	}
	return false
}

// HasSeasons reports whether content of this type carries a season/episode tree.
func (t ContentType) HasSeasons() bool {
	return t == TypeSeries || t == TypeAnime
}

type Link struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// LinkGroups holds playback or download links split by audio track.
type LinkGroups struct {
	Dubbed    []Link `json:"dubbed"`
	Subtitled []Link `json:"subtitled"`
}

func (g LinkGroups) Empty() bool {
	return len(g.Dubbed) == 0 && len(g.Subtitled) == 0
}

func (g LinkGroups) Value() (driver.Value, error) {
	if g.Dubbed == nil {
		g.Dubbed = []Link{}
	}
	if g.Subtitled == nil {
		g.Subtitled = []Link{}
	}
	b, err := json.Marshal(g)
	return string(b), err
}

func (g *LinkGroups) Scan(src any) error {
	*g = LinkGroups{}
	return scanJSON(src, g)
}

// StringList is an ordered list of names stored as a JSON array.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	return string(b), err
}

func (l *StringList) Scan(src any) error {
	*l = nil
	return scanJSON(src, (*[]string)(l))
}

func scanJSON(src any, dst any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}

type Content struct {
	ID               int64       `json:"id"`
	Title            string      `json:"title"`
	OriginalTitle    string      `json:"original_title"`
	OriginalLanguage string      `json:"original_language"`
	Slug             string      `json:"slug"`
	Type             ContentType `json:"type"`
	CategoryIDs      []int64     `json:"category_ids"`
	ReleaseDate      string      `json:"release_date"`
	Rating           float64     `json:"rating"`
	Description      string      `json:"description"`
	PosterURL        string      `json:"poster_url"`
	Cast             StringList  `json:"cast"`
	Directors        StringList  `json:"directors"`
	Producers        StringList  `json:"producers"`
	Servers          LinkGroups  `json:"servers"`
	Downloads        LinkGroups  `json:"downloads"`
	Views            int64       `json:"views"`
	UploaderID       *int64      `json:"uploader_id"`
	CreatedAt        int64       `json:"created_at"`
	Seasons          []Season    `json:"seasons"`
}

// Year is the release year, or 0 when the release date is missing or malformed.
func (c *Content) Year() int {
	if len(c.ReleaseDate) < 4 {
		return 0
	}
	y, err := strconv.Atoi(c.ReleaseDate[:4])
	if err != nil {
		return 0
	}
	return y
}

func (c *Content) HasCategory(id int64) bool {
	for _, cid := range c.CategoryIDs {
		if cid == id {
			return true
		}
	}
	return false
}

func (c *Content) EpisodeCount() int {
	n := 0
	for _, s := range c.Seasons {
		n += len(s.Episodes)
	}
	return n
}

// Clone returns a deep copy so cached entries cannot be mutated by callers.
func (c *Content) Clone() *Content {
	out := *c
	out.CategoryIDs = append([]int64(nil), c.CategoryIDs...)
	out.Cast = append(StringList(nil), c.Cast...)
	out.Directors = append(StringList(nil), c.Directors...)
	out.Producers = append(StringList(nil), c.Producers...)
	out.Servers = LinkGroups{
		Dubbed:    append([]Link(nil), c.Servers.Dubbed...),
		Subtitled: append([]Link(nil), c.Servers.Subtitled...),
	}
	out.Downloads = LinkGroups{
		Dubbed:    append([]Link(nil), c.Downloads.Dubbed...),
		Subtitled: append([]Link(nil), c.Downloads.Subtitled...),
	}
	if c.UploaderID != nil {
		id := *c.UploaderID
		out.UploaderID = &id
	}
	if c.Seasons != nil {
		out.Seasons = make([]Season, len(c.Seasons))
		for i, s := range c.Seasons {
			s.Episodes = append([]Episode(nil), s.Episodes...)
			out.Seasons[i] = s
		}
	}
	return &out
}

type Season struct {
	ID           int64     `json:"id"`
	ContentID    int64     `json:"content_id"`
	SeasonNumber int       `json:"season_number"`
	Title        string    `json:"title"`
	Episodes     []Episode `json:"episodes"`
}

type Episode struct {
	ID            int64  `json:"id"`
	SeasonID      int64  `json:"season_id"`
	EpisodeNumber int    `json:"episode_number"`
	Title         string `json:"title"`
	EmbedURL      string `json:"embed_url"`
	Poster        string `json:"poster"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
