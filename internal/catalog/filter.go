package catalog

import (
	"sort"
	"strings"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

type SortBy string

const (
	SortRecent SortBy = "recent"
	SortRating SortBy = "rating"
	SortViews  SortBy = "views"
	SortTitle  SortBy = "title"
	SortYear   SortBy = "year"
)

var SortOptions = []SortBy{SortRecent, SortRating, SortViews, SortTitle, SortYear}

// ParseSort maps a query value to a sort order, defaulting to recent.
func ParseSort(v string) SortBy {
	for _, s := range SortOptions {
		if string(s) == v {
			return s
		}
	}
	return SortRecent
}

// Filter narrows and orders a content list. Zero fields do not filter.
type Filter struct {
	Type       model.ContentType
	CategoryID int64
	SortBy     SortBy
}

// Apply returns the matching items of contents in the requested order. The
// input slice is not modified.
func (f Filter) Apply(contents []*model.Content) []*model.Content {
	out := make([]*model.Content, 0, len(contents))
	for _, c := range contents {
		if f.Type != "" && c.Type != f.Type {
			continue
		}
		if f.CategoryID != 0 && !c.HasCategory(f.CategoryID) {
			continue
		}
		out = append(out, c)
	}
	Sort(out, f.SortBy)
	return out
}

// Sort orders contents in place. Ties keep their previous relative order.
func Sort(contents []*model.Content, by SortBy) {
	var less func(a, b *model.Content) bool
	switch by {
	case SortRating:
		less = func(a, b *model.Content) bool { return a.Rating > b.Rating }
	case SortViews:
		less = func(a, b *model.Content) bool { return a.Views > b.Views }
	case SortTitle:
		less = func(a, b *model.Content) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case SortYear:
		less = func(a, b *model.Content) bool { return a.Year() > b.Year() }
	default:
		less = func(a, b *model.Content) bool {
			if a.ReleaseDate != b.ReleaseDate {
				return a.ReleaseDate > b.ReleaseDate
			}
			return a.CreatedAt > b.CreatedAt
		}
	}
	sort.SliceStable(contents, func(i, j int) bool { return less(contents[i], contents[j]) })
}

const sectionSize = 6

// HomeSections are the rows of the landing page.
type HomeSections struct {
	Trending []*model.Content
	Movies   []*model.Content
	Series   []*model.Content
	Anime    []*model.Content
}

func Home(contents []*model.Content) HomeSections {
	trending := append([]*model.Content(nil), contents...)
	Sort(trending, SortViews)
	return HomeSections{
		Trending: head(trending, sectionSize),
		Movies:   head(Filter{Type: model.TypeMovie}.Apply(contents), sectionSize),
		Series:   head(Filter{Type: model.TypeSeries}.Apply(contents), sectionSize),
		Anime:    head(Filter{Type: model.TypeAnime}.Apply(contents), sectionSize),
	}
}

// Related returns up to six other items sharing a category with c, most
// viewed first.
func Related(c *model.Content, contents []*model.Content) []*model.Content {
	var out []*model.Content
	for _, other := range contents {
		if other.ID == c.ID {
			continue
		}
		for _, id := range c.CategoryIDs {
			if other.HasCategory(id) {
				out = append(out, other)
				break
			}
		}
	}
	Sort(out, SortViews)
	return head(out, sectionSize)
}

// ListContents resolves content ids to cached items, skipping ids that are
// no longer in the catalog.
func (s *Store) ListContents(ids []int64) []*model.Content {
	out := make([]*model.Content, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.Content(id); ok {
			out = append(out, c)
		}
	}
	return out
}

func head(contents []*model.Content, n int) []*model.Content {
	if len(contents) > n {
		return contents[:n]
	}
	return contents
}
