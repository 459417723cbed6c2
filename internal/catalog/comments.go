package catalog

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/apperr"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/db"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/events"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

const maxCommentLength = 2000

// CommentsByContentID returns the flat comment list of a content item,
// oldest first. Threading is rebuilt from ParentID by the caller.
func (s *Store) CommentsByContentID(ctx context.Context, contentID int64) ([]*model.Comment, error) {
	comments, err := s.db.ListComments(ctx, contentID)
	if err != nil {
		return nil, apperr.Backend("list comments", err)
	}
	return comments, nil
}

// AddComment posts a comment as author. Replies to replies are attached to
// the thread root so threads stay one level deep.
func (s *Store) AddComment(ctx context.Context, author *model.Profile, in model.CommentInput) (*model.Comment, error) {
	if author == nil {
		return nil, apperr.Auth("You must be signed in to comment", nil)
	}
	if author.IsBlocked {
		return nil, apperr.Profile("Your account is blocked from commenting", nil)
	}
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		return nil, apperr.Validation("comment_text", "Comment cannot be empty")
	}
	if len([]rune(in.Text)) > maxCommentLength {
		return nil, apperr.Validation("comment_text", "Comment is too long")
	}

	if in.ParentID != nil {
		parent, err := s.db.GetComment(ctx, *in.ParentID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Validation("parent_id", "The comment you replied to no longer exists")
		}
		if err != nil {
			return nil, apperr.Backend("get comment", err)
		}
		if parent.ContentID != in.ContentID {
			return nil, apperr.Validation("parent_id", "Reply belongs to another title")
		}
		if parent.ParentID != nil {
			root := *parent.ParentID
			in.ParentID = &root
		}
	}

	id, err := s.db.InsertComment(ctx, author.ID, &in)
	if db.IsForeignKeyViolation(err) {
		return nil, apperr.NotFound("Content not found")
	}
	if err != nil {
		return nil, apperr.Backend("add comment", err)
	}

	comment, err := s.db.GetComment(ctx, id)
	if err != nil {
		return nil, apperr.Backend("get comment", err)
	}
	s.notifier.Publish(events.Event{Entity: events.EntityComment, Action: events.ActionCreated, ID: id, ContentID: in.ContentID})
	return comment, nil
}

// VoteOnComment records voter's vote. Voting again replaces the earlier vote.
func (s *Store) VoteOnComment(ctx context.Context, voter *model.Profile, commentID int64, voteType int) error {
	if voter == nil {
		return apperr.Auth("You must be signed in to vote", nil)
	}
	if voter.IsBlocked {
		return apperr.Profile("Your account is blocked from voting", nil)
	}
	if voteType != model.VoteUp && voteType != model.VoteDown {
		return apperr.Validation("vote_type", "Vote must be 1 or -1")
	}

	err := s.db.UpsertVote(ctx, model.CommentVote{CommentID: commentID, UserID: voter.ID, VoteType: voteType})
	if db.IsForeignKeyViolation(err) {
		return apperr.NotFound("Comment not found")
	}
	if err != nil {
		return apperr.Backend("vote on comment", err)
	}
	s.notifier.Publish(events.Event{Entity: events.EntityComment, Action: events.ActionUpdated, ID: commentID})
	return nil
}

// UserVotes maps comment id to the vote userID cast on contentID's comments.
func (s *Store) UserVotes(ctx context.Context, contentID, userID int64) (map[int64]int, error) {
	votes, err := s.db.UserVotes(ctx, contentID, userID)
	if err != nil {
		return nil, apperr.Backend("load votes", err)
	}
	return votes, nil
}

func (s *Store) AllComments(ctx context.Context) ([]*model.Comment, error) {
	comments, err := s.db.ListAllComments(ctx)
	if err != nil {
		return nil, apperr.Backend("list comments", err)
	}
	return comments, nil
}

// DeleteComment removes a comment and all of its replies. Only comment
// readers are notified; the catalog cache is unaffected.
func (s *Store) DeleteComment(ctx context.Context, id int64) ([]int64, error) {
	comment, err := s.db.GetComment(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Comment not found")
	}
	if err != nil {
		return nil, apperr.Backend("get comment", err)
	}

	deleted, err := s.db.DeleteCommentWithReplies(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Comment not found")
	}
	if err != nil {
		return nil, apperr.Backend("delete comment", err)
	}

	s.logger.Info("comment deleted", "id", id, "removed", len(deleted))
	s.notifier.Publish(events.Event{Entity: events.EntityComment, Action: events.ActionDeleted, ID: id, ContentID: comment.ContentID})
	return deleted, nil
}
