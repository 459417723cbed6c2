package db

import (
	"context"
	"database/sql"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

const contentColumns = `id, title, original_title, original_language, slug, type, release_date, rating, description, poster_url,
	cast_members, directors, producers, servers, downloads, views, uploader_id, created_at`

func scanContent(row interface{ Scan(...any) error }) (*model.Content, error) {
	var c model.Content
	err := row.Scan(
		&c.ID, &c.Title, &c.OriginalTitle, &c.OriginalLanguage, &c.Slug, &c.Type, &c.ReleaseDate,
		&c.Rating, &c.Description, &c.PosterURL, &c.Cast, &c.Directors, &c.Producers,
		&c.Servers, &c.Downloads, &c.Views, &c.UploaderID, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.CategoryIDs = []int64{}
	return &c, nil
}

// ListContentDetails is the denormalised catalog view: every content row with
// its category ids and ordered season/episode tree, newest first.
func (db *DB) ListContentDetails(ctx context.Context) ([]*model.Content, error) {
	return db.contentDetails(ctx, nil)
}

// GetContentDetails returns sql.ErrNoRows when id does not exist.
func (db *DB) GetContentDetails(ctx context.Context, id int64) (*model.Content, error) {
	items, err := db.contentDetails(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, sql.ErrNoRows
	}
	return items[0], nil
}

// GetContentDetailsBySlug returns sql.ErrNoRows when slug does not exist.
func (db *DB) GetContentDetailsBySlug(ctx context.Context, slug string) (*model.Content, error) {
	var id int64
	if err := db.QueryRowContext(ctx, `SELECT id FROM content WHERE slug = ?`, slug).Scan(&id); err != nil {
		return nil, err
	}
	return db.GetContentDetails(ctx, id)
}

// contentDetails loads the view restricted to ids, or everything when ids is
// nil, in four queries regardless of catalog size.
func (db *DB) contentDetails(ctx context.Context, ids []int64) ([]*model.Content, error) {
	if ids != nil && len(ids) == 0 {
		return []*model.Content{}, nil
	}

	var (
		contentWhere, joinWhere, seasonWhere, episodeWhere string
		args                                               []any
	)
	if ids != nil {
		in := "(" + placeholders(len(ids)) + ")"
		contentWhere = ` WHERE id IN ` + in
		joinWhere = ` WHERE content_id IN ` + in
		seasonWhere = ` WHERE content_id IN ` + in
		episodeWhere = ` WHERE s.content_id IN ` + in
		args = int64Args(ids)
	}

	rows, err := db.QueryContext(ctx, `SELECT `+contentColumns+` FROM content`+contentWhere+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	items := []*model.Content{}
	byID := make(map[int64]*model.Content)
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		items = append(items, c)
		byID[c.ID] = c
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}

	rows, err = db.QueryContext(ctx, `SELECT content_id, category_id FROM content_categories`+joinWhere+` ORDER BY content_id, category_id`, args...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var contentID, categoryID int64
		if err := rows.Scan(&contentID, &categoryID); err != nil {
			rows.Close()
			return nil, err
		}
		if c, ok := byID[contentID]; ok {
			c.CategoryIDs = append(c.CategoryIDs, categoryID)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx, `SELECT id, content_id, season_number, title FROM seasons`+seasonWhere+` ORDER BY content_id, season_number`, args...)
	if err != nil {
		return nil, err
	}
	type seasonRef struct {
		content *model.Content
		index   int
	}
	seasons := make(map[int64]seasonRef)
	for rows.Next() {
		var s model.Season
		if err := rows.Scan(&s.ID, &s.ContentID, &s.SeasonNumber, &s.Title); err != nil {
			rows.Close()
			return nil, err
		}
		c, ok := byID[s.ContentID]
		if !ok {
			continue
		}
		s.Episodes = []model.Episode{}
		c.Seasons = append(c.Seasons, s)
		seasons[s.ID] = seasonRef{content: c, index: len(c.Seasons) - 1}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(seasons) == 0 {
		return items, nil
	}

	rows, err = db.QueryContext(ctx, `SELECT e.id, e.season_id, e.episode_number, e.title, e.embed_url, e.poster
		FROM episodes e JOIN seasons s ON s.id = e.season_id`+episodeWhere+` ORDER BY e.season_id, e.episode_number`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var e model.Episode
		if err := rows.Scan(&e.ID, &e.SeasonID, &e.EpisodeNumber, &e.Title, &e.EmbedURL, &e.Poster); err != nil {
			return nil, err
		}
		ref, ok := seasons[e.SeasonID]
		if !ok {
			continue
		}
		s := &ref.content.Seasons[ref.index]
		s.Episodes = append(s.Episodes, e)
	}
	return items, rows.Err()
}

func (db *DB) ContentExists(ctx context.Context, id int64) (bool, error) {
	return contentExists(ctx, db, id)
}

func (tx *Tx) ContentExists(ctx context.Context, id int64) (bool, error) {
	return contentExists(ctx, tx, id)
}

func contentExists(ctx context.Context, q queryer, id int64) (bool, error) {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM content WHERE id = ?)`, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// SlugTaken reports whether another content row (not excludeID) uses slug.
func (tx *Tx) SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var taken bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM content WHERE slug = ? AND id <> ?)`, slug, excludeID,
	).Scan(&taken)
	return taken, err
}

func (tx *Tx) InsertContent(ctx context.Context, in *model.ContentInput, uploaderID *int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO content (title, original_title, original_language, slug, type, release_date,
		rating, description, poster_url, cast_members, directors, producers, servers, downloads, views, uploader_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		in.Title, in.OriginalTitle, in.OriginalLanguage, in.Slug, string(in.Type), in.ReleaseDate,
		in.Rating, in.Description, in.PosterURL, in.Cast, in.Directors, in.Producers,
		in.Servers, in.Downloads, uploaderID, nowMillis())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateContent overwrites the editable columns. Views, uploader and
// creation time are left untouched.
func (tx *Tx) UpdateContent(ctx context.Context, id int64, in *model.ContentInput) error {
	_, err := tx.ExecContext(ctx, `UPDATE content SET title = ?, original_title = ?, original_language = ?, slug = ?, type = ?,
		release_date = ?, rating = ?, description = ?, poster_url = ?, cast_members = ?, directors = ?, producers = ?,
		servers = ?, downloads = ? WHERE id = ?`,
		in.Title, in.OriginalTitle, in.OriginalLanguage, in.Slug, string(in.Type),
		in.ReleaseDate, in.Rating, in.Description, in.PosterURL, in.Cast, in.Directors, in.Producers,
		in.Servers, in.Downloads, id)
	return err
}

// ReplaceContentCategories deletes every link of contentID and inserts the
// given set.
func (tx *Tx) ReplaceContentCategories(ctx context.Context, contentID int64, categoryIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM content_categories WHERE content_id = ?`, contentID); err != nil {
		return err
	}
	for _, categoryID := range categoryIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO content_categories (content_id, category_id) VALUES (?, ?)`, contentID, categoryID); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceSeasons deletes the whole season/episode subtree of contentID and
// inserts the submitted one.
func (tx *Tx) ReplaceSeasons(ctx context.Context, contentID int64, seasons []model.SeasonInput) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM episodes WHERE season_id IN (SELECT id FROM seasons WHERE content_id = ?)`, contentID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM seasons WHERE content_id = ?`, contentID); err != nil {
		return err
	}

	for _, s := range seasons {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO seasons (content_id, season_number, title) VALUES (?, ?, ?)`,
			contentID, s.SeasonNumber, s.Title)
		if err != nil {
			return err
		}
		seasonID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for _, e := range s.Episodes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO episodes (season_id, episode_number, title, embed_url, poster) VALUES (?, ?, ?, ?, ?)`,
				seasonID, e.EpisodeNumber, e.Title, e.EmbedURL, e.Poster); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteContent removes the row; joins, seasons, episodes, list entries and
// comments go with it through ON DELETE CASCADE. It returns sql.ErrNoRows
// when id does not exist.
func (db *DB) DeleteContent(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM content WHERE id = ?`, id)
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
