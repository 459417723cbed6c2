package model

type CommentAuthor struct {
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

type Comment struct {
	ID           int64          `json:"id"`
	ContentID    int64          `json:"content_id"`
	UserID       int64          `json:"user_id"`
	Text         string         `json:"comment_text"`
	ParentID     *int64         `json:"parent_id"`
	CreatedAt    int64          `json:"created_at"`
	Profile      *CommentAuthor `json:"profile"`
	ContentTitle string         `json:"content_title,omitempty"`
	Upvotes      int            `json:"upvotes"`
	Downvotes    int            `json:"downvotes"`
}

func (c *Comment) AuthorName() string {
	if c.Profile == nil || c.Profile.Name == "" {
		return "Anonymous"
	}
	return c.Profile.Name
}

func (c *Comment) Score() int {
	return c.Upvotes - c.Downvotes
}

type CommentInput struct {
	ContentID int64  `json:"content_id"`
	Text      string `json:"comment_text"`
	ParentID  *int64 `json:"parent_id"`
}

const (
	VoteUp   = 1
	VoteDown = -1
)

type CommentVote struct {
	CommentID int64 `json:"comment_id"`
	UserID    int64 `json:"user_id"`
	VoteType  int   `json:"vote_type"`
}
