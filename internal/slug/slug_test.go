package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	tests := map[string]string{
		"Foo Bar":                 "foo-bar",
		"Foo Bar 2":               "foo-bar-2",
		"  A Origem  ":            "a-origem",
		"Ação & Aventura!":        "acao-aventura",
		"Pokémon: O Filme":        "pokemon-o-filme",
		"--already-slugged--":     "already-slugged",
		"Spider-Man: No Way Home": "spider-man-no-way-home",
		"!!!":                     "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Make(in), in)
	}
}

func TestMakeIdempotent(t *testing.T) {
	for _, in := range []string{"Foo Bar", "Über Straße 2", "Ñandú___x", "a--b", "日本 anime 2024"} {
		once := Make(in)
		assert.Equal(t, once, Make(once), in)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("foo-bar"))
	assert.False(t, Valid("Foo Bar"))
	assert.False(t, Valid(""))
}
