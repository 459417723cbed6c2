package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

func ptr(id int64) *int64 { return &id }

func TestBuildThreads(t *testing.T) {
	comments := []*model.Comment{
		{ID: 1, Text: "root"},
		{ID: 2, Text: "reply", ParentID: ptr(1)},
		{ID: 3, Text: "second root"},
		{ID: 4, Text: "orphan", ParentID: ptr(99)},
		{ID: 5, Text: "late reply", ParentID: ptr(1)},
	}
	threads := BuildThreads(comments, map[int64]int{2: model.VoteUp, 3: model.VoteDown})

	require.Len(t, threads, 3)
	assert.Equal(t, int64(1), threads[0].Comment.ID)
	require.Len(t, threads[0].Replies, 2)
	assert.Equal(t, int64(2), threads[0].Replies[0].Comment.ID)
	assert.Equal(t, model.VoteUp, threads[0].Replies[0].MyVote)
	assert.Equal(t, int64(5), threads[0].Replies[1].Comment.ID)

	assert.Equal(t, int64(3), threads[1].Comment.ID)
	assert.Equal(t, model.VoteDown, threads[1].MyVote)
	assert.Equal(t, int64(4), threads[2].Comment.ID)
	assert.Empty(t, threads[2].Replies)

	assert.Empty(t, BuildThreads(nil, nil))
}
