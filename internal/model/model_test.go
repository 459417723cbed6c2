package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/apperr"
)

func TestContentInputNormalize(t *testing.T) {
	in := ContentInput{
		Title:       "  Foo Bar ",
		Type:        TypeSeries,
		CategoryIDs: []int64{3, 1, 3, 2, 1},
		Seasons: []SeasonInput{
			{Episodes: []EpisodeInput{{Title: "a"}, {Title: "b"}}},
			{SeasonNumber: 5, Episodes: []EpisodeInput{{EpisodeNumber: 9}}},
		},
	}
	in.Normalize()

	assert.Equal(t, "Foo Bar", in.Title)
	assert.Equal(t, []int64{3, 1, 2}, in.CategoryIDs)
	assert.Equal(t, 1, in.Seasons[0].SeasonNumber)
	assert.Equal(t, 2, in.Seasons[0].Episodes[1].EpisodeNumber)
	assert.Equal(t, 5, in.Seasons[1].SeasonNumber)
	assert.Equal(t, 9, in.Seasons[1].Episodes[0].EpisodeNumber)
}

func TestContentInputNormalizeDropsSeasonsForMovies(t *testing.T) {
	in := ContentInput{Title: "Film", Type: TypeMovie, Seasons: []SeasonInput{{SeasonNumber: 1}}}
	in.Normalize()
	assert.Nil(t, in.Seasons)
}

func TestContentInputValidate(t *testing.T) {
	tests := []struct {
		name  string
		in    ContentInput
		field string
	}{
		{"missing title", ContentInput{Type: TypeMovie}, "title"},
		{"bad type", ContentInput{Title: "x", Type: "book"}, "type"},
		{"rating range", ContentInput{Title: "x", Type: TypeMovie, Rating: 11}, "rating"},
		{"duplicate season", ContentInput{Title: "x", Type: TypeAnime, Seasons: []SeasonInput{{SeasonNumber: 1}, {SeasonNumber: 1}}}, "seasons"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
			assert.Equal(t, tt.field, apperr.FieldOf(err))
		})
	}

	ok := ContentInput{Title: "x", Type: TypeMovie, Rating: 7.5}
	assert.NoError(t, ok.Validate())
}

func TestContentYear(t *testing.T) {
	c := Content{ReleaseDate: "2021-05-04"}
	assert.Equal(t, 2021, c.Year())
	c.ReleaseDate = ""
	assert.Equal(t, 0, c.Year())
}

func TestLinkGroupsScan(t *testing.T) {
	var g LinkGroups
	require.NoError(t, g.Scan([]byte(`{"dubbed":[{"name":"A","url":"https://a"}]}`)))
	assert.Equal(t, []Link{{Name: "A", URL: "https://a"}}, g.Dubbed)
	assert.Empty(t, g.Subtitled)

	require.NoError(t, g.Scan(nil))
	assert.True(t, g.Empty())

	v, err := LinkGroups{}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"dubbed":[],"subtitled":[]}`, v)
}

func TestContentCloneIsDeep(t *testing.T) {
	c := &Content{
		CategoryIDs: []int64{1},
		Seasons:     []Season{{SeasonNumber: 1, Episodes: []Episode{{EpisodeNumber: 1}}}},
	}
	cp := c.Clone()
	cp.CategoryIDs[0] = 99
	cp.Seasons[0].Episodes[0].Title = "changed"

	assert.Equal(t, int64(1), c.CategoryIDs[0])
	assert.Equal(t, "", c.Seasons[0].Episodes[0].Title)
}

func TestProfileInList(t *testing.T) {
	p := Profile{Favorites: []int64{1, 2}, Watched: []int64{3}}
	assert.True(t, p.InList(ListFavorites, 2))
	assert.False(t, p.InList(ListWatchLater, 2))
	assert.True(t, p.InList(ListWatched, 3))
}
