package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

const searchLimit = 50

// IncrementViews bumps the view counter by one. It returns sql.ErrNoRows when
// id does not exist.
func (db *DB) IncrementViews(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `UPDATE content SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SearchContent matches term case-insensitively against title, original title
// and description. Titles starting with the term rank first, then by views.
func (db *DB) SearchContent(ctx context.Context, term string) ([]*model.Content, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return []*model.Content{}, nil
	}
	contains := "%" + escapeLike(term) + "%"
	prefix := escapeLike(term) + "%"

	ids, err := collectInt64s(ctx, db, `SELECT id FROM content
		WHERE LOWER(title) LIKE ? ESCAPE '!' OR LOWER(original_title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!'
		ORDER BY CASE WHEN LOWER(title) LIKE ? ESCAPE '!' THEN 0 ELSE 1 END, views DESC, id DESC
		LIMIT ?`, contains, contains, contains, prefix, searchLimit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Content{}, nil
	}

	items, err := db.contentDetails(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*model.Content, len(items))
	for _, c := range items {
		byID[c.ID] = c
	}
	ordered := make([]*model.Content, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}

// DeleteCommentWithReplies removes a comment and every reply below it, with
// their votes, in one transaction. It returns the deleted ids, deepest
// replies first, and sql.ErrNoRows when id does not exist.
func (db *DB) DeleteCommentWithReplies(ctx context.Context, id int64) ([]int64, error) {
	var deleted []int64
	err := db.WithTx(ctx, func(tx *Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM comments WHERE id = ?)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return sql.ErrNoRows
		}

		levels := [][]int64{{id}}
		seen := map[int64]bool{id: true}
		for frontier := levels[0]; len(frontier) > 0; {
			children, err := collectInt64s(ctx, tx,
				`SELECT id FROM comments WHERE parent_id IN (`+placeholders(len(frontier))+`)`, int64Args(frontier)...)
			if err != nil {
				return err
			}
			var next []int64
			for _, c := range children {
				if !seen[c] {
					seen[c] = true
					next = append(next, c)
				}
			}
			if len(next) > 0 {
				levels = append(levels, next)
			}
			frontier = next
		}

		for i := len(levels) - 1; i >= 0; i-- {
			args := int64Args(levels[i])
			in := `(` + placeholders(len(levels[i])) + `)`
			if _, err := tx.ExecContext(ctx, `DELETE FROM comment_votes WHERE comment_id IN `+in, args...); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id IN `+in, args...); err != nil {
				return err
			}
			deleted = append(deleted, levels[i]...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// Stats computes the administrator dashboard counters.
func (db *DB) Stats(ctx context.Context) (model.Stats, error) {
	var s model.Stats
	rows, err := db.QueryContext(ctx, `SELECT type, COUNT(*), COALESCE(SUM(views), 0) FROM content GROUP BY type`)
	if err != nil {
		return s, err
	}
	for rows.Next() {
		var (
			typ   string
			n     int
			views int64
		)
		if err := rows.Scan(&typ, &n, &views); err != nil {
			rows.Close()
			return s, err
		}
		s.Content += n
		s.Views += views
		switch model.ContentType(typ) {
		case model.TypeMovie:
			s.Movies = n
		case model.TypeSeries:
			s.Series = n
		case model.TypeAnime:
			s.Anime = n
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return s, err
	}

	if s.Users, err = countRows(ctx, db, `SELECT COUNT(*) FROM profiles`); err != nil {
		return s, err
	}
	if s.Categories, err = countRows(ctx, db, `SELECT COUNT(*) FROM categories`); err != nil {
		return s, err
	}
	if s.Comments, err = countRows(ctx, db, `SELECT COUNT(*) FROM comments`); err != nil {
		return s, err
	}
	return s, nil
}
