package model

import (
	"strings"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/apperr"
)

// ContentInput is the full desired state of a content item as submitted by
// the admin form. Categories and the season tree replace what is stored.
type ContentInput struct {
	Title            string        `json:"title"`
	OriginalTitle    string        `json:"original_title"`
	OriginalLanguage string        `json:"original_language"`
	Slug             string        `json:"slug"`
	Type             ContentType   `json:"type"`
	CategoryIDs      []int64       `json:"category_ids"`
	ReleaseDate      string        `json:"release_date"`
	Rating           float64       `json:"rating"`
	Description      string        `json:"description"`
	PosterURL        string        `json:"poster_url"`
	Cast             StringList    `json:"cast"`
	Directors        StringList    `json:"directors"`
	Producers        StringList    `json:"producers"`
	Servers          LinkGroups    `json:"servers"`
	Downloads        LinkGroups    `json:"downloads"`
	Seasons          []SeasonInput `json:"seasons"`
}

type SeasonInput struct {
	SeasonNumber int            `json:"season_number"`
	Title        string         `json:"title"`
	Episodes     []EpisodeInput `json:"episodes"`
}

type EpisodeInput struct {
	EpisodeNumber int    `json:"episode_number"`
	Title         string `json:"title"`
	EmbedURL      string `json:"embed_url"`
	Poster        string `json:"poster"`
}

// Normalize trims text fields, drops duplicate category ids and numbers
// seasons and episodes by position when no number was given.
func (in *ContentInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.OriginalTitle = strings.TrimSpace(in.OriginalTitle)
	in.OriginalLanguage = strings.TrimSpace(in.OriginalLanguage)
	in.Slug = strings.TrimSpace(in.Slug)
	in.ReleaseDate = strings.TrimSpace(in.ReleaseDate)

	seen := make(map[int64]bool, len(in.CategoryIDs))
	ids := in.CategoryIDs[:0]
	for _, id := range in.CategoryIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	in.CategoryIDs = ids

	if !in.Type.HasSeasons() {
		in.Seasons = nil
	}
	for i := range in.Seasons {
		s := &in.Seasons[i]
		if s.SeasonNumber <= 0 {
			s.SeasonNumber = i + 1
		}
		s.Title = strings.TrimSpace(s.Title)
		for j := range s.Episodes {
			e := &s.Episodes[j]
			if e.EpisodeNumber <= 0 {
				e.EpisodeNumber = j + 1
			}
			e.Title = strings.TrimSpace(e.Title)
			e.EmbedURL = strings.TrimSpace(e.EmbedURL)
		}
	}
}

func (in *ContentInput) Validate() error {
	if in.Title == "" {
		return apperr.Validation("title", "Title is required")
	}
	if !in.Type.Valid() {
		return apperr.Validation("type", "Type must be movie, series or anime")
	}
	if in.Rating < 0 || in.Rating > 10 {
		return apperr.Validation("rating", "Rating must be between 0 and 10")
	}
	seasons := make(map[int]bool, len(in.Seasons))
	for _, s := range in.Seasons {
		if seasons[s.SeasonNumber] {
			return apperr.Validation("seasons", "Season numbers must be unique")
		}
		seasons[s.SeasonNumber] = true
		episodes := make(map[int]bool, len(s.Episodes))
		for _, e := range s.Episodes {
			if episodes[e.EpisodeNumber] {
				return apperr.Validation("episodes", "Episode numbers must be unique within a season")
			}
			episodes[e.EpisodeNumber] = true
		}
	}
	return nil
}
