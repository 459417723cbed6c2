package web

import "github.com/theLastOfCats/carsaiplay-go-server/internal/model"

// Thread is a top-level comment with its replies, oldest first.
type Thread struct {
	Comment *model.Comment
	MyVote  int
	Replies []Reply
}

type Reply struct {
	Comment *model.Comment
	MyVote  int
}

// BuildThreads groups a flat, oldest-first comment list by parent. Replies
// whose parent is missing are shown as top-level comments.
func BuildThreads(comments []*model.Comment, votes map[int64]int) []Thread {
	index := make(map[int64]int, len(comments))
	var threads []Thread
	for _, c := range comments {
		if c.ParentID == nil {
			index[c.ID] = len(threads)
			threads = append(threads, Thread{Comment: c, MyVote: votes[c.ID]})
		}
	}
	for _, c := range comments {
		if c.ParentID == nil {
			continue
		}
		i, ok := index[*c.ParentID]
		if !ok {
			index[c.ID] = len(threads)
			threads = append(threads, Thread{Comment: c, MyVote: votes[c.ID]})
			continue
		}
		threads[i].Replies = append(threads[i].Replies, Reply{Comment: c, MyVote: votes[c.ID]})
	}
	return threads
}
