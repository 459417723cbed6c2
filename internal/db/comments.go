package db

import (
	"context"
	"database/sql"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

const commentSelect = `SELECT c.id, c.content_id, c.user_id, c.comment_text, c.parent_id, c.created_at,
	p.name, p.avatar_url, ct.title,
	COALESCE(SUM(CASE WHEN v.vote_type = 1 THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN v.vote_type = -1 THEN 1 ELSE 0 END), 0)
	FROM comments c
	LEFT JOIN profiles p ON p.id = c.user_id
	LEFT JOIN content ct ON ct.id = c.content_id
	LEFT JOIN comment_votes v ON v.comment_id = c.id`

const commentGroupBy = ` GROUP BY c.id, c.content_id, c.user_id, c.comment_text, c.parent_id, c.created_at, p.name, p.avatar_url, ct.title`

func scanComment(row interface{ Scan(...any) error }) (*model.Comment, error) {
	var (
		c           model.Comment
		name, title sql.NullString
		avatar      sql.NullString
		upvotes     int64
		downvotes   int64
	)
	if err := row.Scan(&c.ID, &c.ContentID, &c.UserID, &c.Text, &c.ParentID, &c.CreatedAt,
		&name, &avatar, &title, &upvotes, &downvotes); err != nil {
		return nil, err
	}
	if name.Valid {
		c.Profile = &model.CommentAuthor{Name: name.String}
		if avatar.Valid {
			a := avatar.String
			c.Profile.AvatarURL = &a
		}
	}
	c.ContentTitle = title.String
	c.Upvotes, c.Downvotes = int(upvotes), int(downvotes)
	return &c, nil
}

func (db *DB) queryComments(ctx context.Context, query string, args ...any) ([]*model.Comment, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []*model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// ListComments returns the flat comment list of a content item, oldest first,
// with the author profile joined in.
func (db *DB) ListComments(ctx context.Context, contentID int64) ([]*model.Comment, error) {
	comments, err := db.queryComments(ctx,
		commentSelect+` WHERE c.content_id = ?`+commentGroupBy+` ORDER BY c.created_at ASC, c.id ASC`, contentID)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		c.ContentTitle = ""
	}
	return comments, nil
}

// ListAllComments returns every comment, newest first, for moderation.
func (db *DB) ListAllComments(ctx context.Context) ([]*model.Comment, error) {
	return db.queryComments(ctx, commentSelect+commentGroupBy+` ORDER BY c.created_at DESC, c.id DESC`)
}

func (db *DB) GetComment(ctx context.Context, id int64) (*model.Comment, error) {
	return scanComment(db.QueryRowContext(ctx, commentSelect+` WHERE c.id = ?`+commentGroupBy, id))
}

func (db *DB) InsertComment(ctx context.Context, userID int64, in *model.CommentInput) (int64, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO comments (content_id, user_id, comment_text, parent_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		in.ContentID, userID, in.Text, in.ParentID, nowMillis())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpsertVote stores one vote per (comment, user); a second vote replaces the first.
func (db *DB) UpsertVote(ctx context.Context, v model.CommentVote) error {
	query := `INSERT INTO comment_votes (comment_id, user_id, vote_type, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(comment_id, user_id) DO UPDATE SET vote_type = excluded.vote_type, created_at = excluded.created_at`
	if db.Dialect == DialectMySQL {
		query = `INSERT INTO comment_votes (comment_id, user_id, vote_type, created_at) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE vote_type = VALUES(vote_type), created_at = VALUES(created_at)`
	}
	_, err := db.ExecContext(ctx, query, v.CommentID, v.UserID, v.VoteType, nowMillis())
	return err
}

func (db *DB) ListVotes(ctx context.Context, commentID int64) ([]model.CommentVote, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT comment_id, user_id, vote_type FROM comment_votes WHERE comment_id = ? ORDER BY user_id`, commentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []model.CommentVote
	for rows.Next() {
		var v model.CommentVote
		if err := rows.Scan(&v.CommentID, &v.UserID, &v.VoteType); err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// UserVotes maps comment id to the user's vote for the comments of one content item.
func (db *DB) UserVotes(ctx context.Context, contentID, userID int64) (map[int64]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT v.comment_id, v.vote_type FROM comment_votes v
		JOIN comments c ON c.id = v.comment_id WHERE c.content_id = ? AND v.user_id = ?`, contentID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := make(map[int64]int)
	for rows.Next() {
		var (
			id int64
			vt int
		)
		if err := rows.Scan(&id, &vt); err != nil {
			return nil, err
		}
		votes[id] = vt
	}
	return votes, rows.Err()
}
