package web

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/apperr"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

// parseContentForm reads the admin content form. Link lists use one
// "dubbed|Name|URL" or "subtitled|Name|URL" per line. Episodes use one CSV
// row "season,episode,title,embed_url[,poster]" per line, and an optional
// "season,<n>,<title>" row names a season or declares it without episodes.
func parseContentForm(r *http.Request) (model.ContentInput, error) {
	in := model.ContentInput{
		Title:            r.FormValue("title"),
		OriginalTitle:    r.FormValue("original_title"),
		OriginalLanguage: r.FormValue("original_language"),
		Slug:             r.FormValue("slug"),
		Type:             model.ContentType(r.FormValue("type")),
		ReleaseDate:      r.FormValue("release_date"),
		Description:      strings.TrimSpace(r.FormValue("description")),
		PosterURL:        strings.TrimSpace(r.FormValue("poster_url")),
		Cast:             splitList(r.FormValue("cast")),
		Directors:        splitList(r.FormValue("directors")),
		Producers:        splitList(r.FormValue("producers")),
	}

	if v := strings.TrimSpace(r.FormValue("rating")); v != "" {
		rating, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return in, apperr.Validation("rating", "Rating must be a number")
		}
		in.Rating = rating
	}

	for _, v := range r.Form["category_ids"] {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return in, apperr.Validation("category_ids", "Unknown category")
		}
		in.CategoryIDs = append(in.CategoryIDs, id)
	}

	var err error
	if in.Servers, err = parseLinks("servers", r.FormValue("servers")); err != nil {
		return in, err
	}
	if in.Downloads, err = parseLinks("downloads", r.FormValue("downloads")); err != nil {
		return in, err
	}
	if in.Seasons, err = parseEpisodes(r.FormValue("episodes")); err != nil {
		return in, err
	}
	return in, nil
}

func splitList(s string) model.StringList {
	var out model.StringList
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLinks(field, text string) (model.LinkGroups, error) {
	var groups model.LinkGroups
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Audio ends at the first bar and the URL starts after the last, so
		// names may contain bars.
		first, last := strings.Index(line, "|"), strings.LastIndex(line, "|")
		if first < 0 || first == last {
			return groups, apperr.Validation(field, fmt.Sprintf("Line %d must look like dubbed|Name|URL", n+1))
		}
		link := model.Link{Name: strings.TrimSpace(line[first+1 : last]), URL: strings.TrimSpace(line[last+1:])}
		switch strings.ToLower(strings.TrimSpace(line[:first])) {
		case "dubbed":
			groups.Dubbed = append(groups.Dubbed, link)
		case "subtitled":
			groups.Subtitled = append(groups.Subtitled, link)
		default:
			return groups, apperr.Validation(field, fmt.Sprintf("Line %d: audio must be dubbed or subtitled", n+1))
		}
	}
	return groups, nil
}

func parseEpisodes(text string) ([]model.SeasonInput, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperr.Validation("episodes", "Episodes must be CSV rows: season,episode,title,embed_url")
	}

	var seasons []model.SeasonInput
	index := map[int]int{}
	season := func(num int) *model.SeasonInput {
		i, ok := index[num]
		if !ok {
			i = len(seasons)
			index[num] = i
			seasons = append(seasons, model.SeasonInput{SeasonNumber: num})
		}
		return &seasons[i]
	}
	for n, rec := range records {
		if strings.EqualFold(strings.TrimSpace(rec[0]), "season") {
			if len(rec) < 2 || len(rec) > 3 {
				return nil, apperr.Validation("episodes", fmt.Sprintf("Row %d needs season,number,title", n+1))
			}
			num, err := strconv.Atoi(strings.TrimSpace(rec[1]))
			if err != nil || num <= 0 {
				return nil, apperr.Validation("episodes", fmt.Sprintf("Row %d: season must be a positive number", n+1))
			}
			s := season(num)
			if len(rec) == 3 {
				s.Title = strings.TrimSpace(rec[2])
			}
			continue
		}
		if len(rec) < 4 || len(rec) > 5 {
			return nil, apperr.Validation("episodes", fmt.Sprintf("Row %d needs season,episode,title,embed_url", n+1))
		}
		seasonNum, err1 := strconv.Atoi(strings.TrimSpace(rec[0]))
		episodeNum, err2 := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err1 != nil || err2 != nil || seasonNum <= 0 || episodeNum <= 0 {
			return nil, apperr.Validation("episodes", fmt.Sprintf("Row %d: season and episode must be positive numbers", n+1))
		}
		ep := model.EpisodeInput{EpisodeNumber: episodeNum, Title: rec[2], EmbedURL: strings.TrimSpace(rec[3])}
		if len(rec) == 5 {
			ep.Poster = strings.TrimSpace(rec[4])
		}
		s := season(seasonNum)
		s.Episodes = append(s.Episodes, ep)
	}
	return seasons, nil
}

// formatLinks and formatEpisodes render stored values back into the form
// syntax parsed above.
func formatLinks(g model.LinkGroups) string {
	var b strings.Builder
	for _, l := range g.Dubbed {
		fmt.Fprintf(&b, "dubbed|%s|%s\n", l.Name, l.URL)
	}
	for _, l := range g.Subtitled {
		fmt.Fprintf(&b, "subtitled|%s|%s\n", l.Name, l.URL)
	}
	return b.String()
}

func formatEpisodes(seasons []model.Season) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	for _, s := range seasons {
		w.Write([]string{"season", strconv.Itoa(s.SeasonNumber), s.Title})
		for _, e := range s.Episodes {
			rec := []string{strconv.Itoa(s.SeasonNumber), strconv.Itoa(e.EpisodeNumber), e.Title, e.EmbedURL}
			if e.Poster != "" {
				rec = append(rec, e.Poster)
			}
			w.Write(rec)
		}
	}
	w.Flush()
	return b.String()
}
