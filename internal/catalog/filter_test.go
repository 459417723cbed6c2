package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

func titles(contents []*model.Content) []string {
	out := make([]string, 0, len(contents))
	for _, c := range contents {
		out = append(out, c.Title)
	}
	return out
}

func sampleCatalog() []*model.Content {
	return []*model.Content{
		{ID: 1, Title: "Bravo", Type: model.TypeMovie, ReleaseDate: "2020-05-01", Rating: 7.5, Views: 10, CategoryIDs: []int64{1}},
		{ID: 2, Title: "alpha", Type: model.TypeSeries, ReleaseDate: "2023-01-01", Rating: 9, Views: 3, CategoryIDs: []int64{2}},
		{ID: 3, Title: "Charlie", Type: model.TypeAnime, ReleaseDate: "2018-09-09", Rating: 8, Views: 50, CategoryIDs: []int64{1, 2}},
		{ID: 4, Title: "Delta", Type: model.TypeMovie, ReleaseDate: "", Rating: 5, Views: 0},
	}
}

func TestFilterSorts(t *testing.T) {
	catalog := sampleCatalog()

	assert.Equal(t, []string{"alpha", "Bravo", "Charlie", "Delta"}, titles(Filter{SortBy: SortRecent}.Apply(catalog)))
	assert.Equal(t, []string{"alpha", "Charlie", "Bravo", "Delta"}, titles(Filter{SortBy: SortRating}.Apply(catalog)))
	assert.Equal(t, []string{"Charlie", "Bravo", "alpha", "Delta"}, titles(Filter{SortBy: SortViews}.Apply(catalog)))
	assert.Equal(t, []string{"alpha", "Bravo", "Charlie", "Delta"}, titles(Filter{SortBy: SortTitle}.Apply(catalog)))
	assert.Equal(t, []string{"alpha", "Bravo", "Charlie", "Delta"}, titles(Filter{SortBy: SortYear}.Apply(catalog)))

	assert.Equal(t, []string{"Bravo", "Delta"}, titles(Filter{Type: model.TypeMovie}.Apply(catalog)))
	assert.Equal(t, []string{"alpha", "Charlie"}, titles(Filter{CategoryID: 2}.Apply(catalog)))
	assert.Equal(t, "Bravo", catalog[0].Title, "input order is preserved")
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, SortViews, ParseSort("views"))
	assert.Equal(t, SortRecent, ParseSort(""))
	assert.Equal(t, SortRecent, ParseSort("bogus"))
}

func TestHomeAndRelated(t *testing.T) {
	catalog := sampleCatalog()

	home := Home(catalog)
	assert.Equal(t, []string{"Charlie", "Bravo", "alpha", "Delta"}, titles(home.Trending))
	assert.Equal(t, []string{"Bravo", "Delta"}, titles(home.Movies))
	assert.Equal(t, []string{"alpha"}, titles(home.Series))
	assert.Equal(t, []string{"Charlie"}, titles(home.Anime))

	assert.Equal(t, []string{"Charlie"}, titles(Related(catalog[0], catalog)))
	assert.Equal(t, []string{"Charlie"}, titles(Related(catalog[1], catalog)))
	assert.Equal(t, []string{"Bravo", "alpha"}, titles(Related(catalog[2], catalog)))
	assert.Empty(t, Related(catalog[3], catalog))
}
