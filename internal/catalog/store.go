// Package catalog holds the in-memory catalog shared by every page: content,
// categories and site settings, plus the comment, vote and administrative
// operations that mutate them.
package catalog

import (
	"context"
	"database/sql"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/apperr"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/db"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/events"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/slug"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/storage"
)

// Notifier receives a change event after every successful mutation.
type Notifier interface {
	Publish(ev events.Event)
}

// ObjectStore keeps uploaded files and exposes them under a public URL.
type ObjectStore interface {
	Upload(ctx context.Context, prefix, name string, r io.Reader) (string, error)
	PublicURL(object string) string
}

type nopNotifier struct{}

func (nopNotifier) Publish(events.Event) {}

type Store struct {
	db       *db.DB
	objects  ObjectStore
	notifier Notifier
	logger   hclog.Logger

	// writeMu is held across every database write and the cache update that
	// follows it, so a slower writer never overwrites newer cached state.
	writeMu sync.Mutex

	mu         sync.RWMutex
	content    map[int64]*model.Content
	categories map[int64]model.Category
	settings   model.Settings
	loading    bool
}

func NewStore(database *db.DB, objects ObjectStore, notifier Notifier, logger hclog.Logger) *Store {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Store{
		db:         database,
		objects:    objects,
		notifier:   notifier,
		logger:     logger,
		content:    make(map[int64]*model.Content),
		categories: make(map[int64]model.Category),
		settings:   model.DefaultSettings(),
	}
}

// FetchData reloads content, categories and settings in parallel and swaps
// them in together. On failure the previous cache stays in place.
func (s *Store) FetchData(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.fetchLocked(ctx)
}

func (s *Store) fetchLocked(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	var (
		contents   []*model.Content
		categories []model.Category
		settings   model.Settings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		contents, err = s.db.ListContentDetails(gctx)
		return errors.Wrap(err, "content")
	})
	g.Go(func() error {
		var err error
		categories, err = s.db.ListCategories(gctx)
		return errors.Wrap(err, "categories")
	})
	g.Go(func() error {
		var err error
		settings, err = s.db.GetSettings(gctx)
		return errors.Wrap(err, "settings")
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("catalog refresh failed, serving cached data", "error", err)
		return apperr.Backend("fetch data", err)
	}

	byID := make(map[int64]*model.Content, len(contents))
	for _, c := range contents {
		byID[c.ID] = c
	}
	cats := make(map[int64]model.Category, len(categories))
	for _, c := range categories {
		cats[c.ID] = c
	}

	s.mu.Lock()
	s.content = byID
	s.categories = cats
	s.settings = settings
	s.mu.Unlock()

	s.logger.Debug("catalog loaded", "content", len(byID), "categories", len(cats))
	s.notifier.Publish(events.Event{Entity: events.EntityCatalog, Action: events.ActionRefresh})
	return nil
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Contents returns copies of every cached item, newest first.
func (s *Store) Contents() []*model.Content {
	s.mu.RLock()
	out := make([]*model.Content, 0, len(s.content))
	for _, c := range s.content {
		out = append(out, c.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) Content(id int64) (*model.Content, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.content[id]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// Categories returns the cached categories ordered by name.
func (s *Store) Categories() []model.Category {
	s.mu.RLock()
	out := make([]model.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func (s *Store) Category(id int64) (model.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	return c, ok
}

func (s *Store) Settings() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *Store) putContent(c *model.Content) {
	s.mu.Lock()
	s.content[c.ID] = c
	s.mu.Unlock()
}

// reloadContent refreshes one cached item from the database, falling back
// to a full reload when the targeted read fails. Callers hold writeMu.
func (s *Store) reloadContent(ctx context.Context, id int64) (*model.Content, error) {
	c, err := s.db.GetContentDetails(ctx, id)
	if err == nil {
		s.putContent(c)
		return c.Clone(), nil
	}
	s.logger.Warn("targeted content reload failed, reloading catalog", "id", id, "error", err)
	if ferr := s.fetchLocked(ctx); ferr != nil {
		return nil, ferr
	}
	if cached, ok := s.Content(id); ok {
		return cached, nil
	}
	return nil, apperr.Backend("reload content", err)
}

// AddContent creates a content item with its category links and season tree
// in one transaction.
func (s *Store) AddContent(ctx context.Context, in model.ContentInput, uploaderID *int64) (*model.Content, error) {
	if err := prepareInput(&in); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var id int64
	err := s.db.WithTx(ctx, func(tx *db.Tx) error {
		if err := checkContentRefs(ctx, tx, &in, 0); err != nil {
			return err
		}
		var err error
		if id, err = tx.InsertContent(ctx, &in, uploaderID); err != nil {
			return err
		}
		return writeContentTree(ctx, tx, id, &in)
	})
	if err != nil {
		return nil, contentWriteError("add content", err)
	}

	s.logger.Info("content created", "id", id, "slug", in.Slug)
	c, err := s.reloadContent(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(events.Event{Entity: events.EntityContent, Action: events.ActionCreated, ID: id})
	return c, nil
}

// UpdateContent replaces the stored state of content id, including its
// category links and season tree, in one transaction.
func (s *Store) UpdateContent(ctx context.Context, id int64, in model.ContentInput) (*model.Content, error) {
	if err := prepareInput(&in); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.db.WithTx(ctx, func(tx *db.Tx) error {
		exists, err := tx.ContentExists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("Content not found")
		}
		if err := checkContentRefs(ctx, tx, &in, id); err != nil {
			return err
		}
		if err := tx.UpdateContent(ctx, id, &in); err != nil {
			return err
		}
		return writeContentTree(ctx, tx, id, &in)
	})
	if err != nil {
		return nil, contentWriteError("update content", err)
	}

	s.logger.Info("content updated", "id", id, "slug", in.Slug)
	c, err := s.reloadContent(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(events.Event{Entity: events.EntityContent, Action: events.ActionUpdated, ID: id})
	return c, nil
}

// prepareInput normalizes the form and fills in the slug. An explicit slug
// is kept (after normalization) so edits do not silently change URLs.
func prepareInput(in *model.ContentInput) error {
	in.Normalize()
	if in.Slug == "" {
		in.Slug = slug.Make(in.Title)
	} else {
		in.Slug = slug.Make(in.Slug)
	}
	if err := in.Validate(); err != nil {
		return err
	}
	if in.Slug == "" {
		return apperr.Validation("slug", "Title must contain letters or digits")
	}
	return nil
}

func checkContentRefs(ctx context.Context, tx *db.Tx, in *model.ContentInput, id int64) error {
	taken, err := tx.SlugTaken(ctx, in.Slug, id)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("slug", "Another title already uses this slug")
	}
	if len(in.CategoryIDs) == 0 {
		return nil
	}
	n, err := tx.CountExistingCategories(ctx, in.CategoryIDs)
	if err != nil {
		return err
	}
	if n != len(in.CategoryIDs) {
		return apperr.Validation("category_ids", "Unknown category")
	}
	return nil
}

func writeContentTree(ctx context.Context, tx *db.Tx, id int64, in *model.ContentInput) error {
	if err := tx.ReplaceContentCategories(ctx, id, in.CategoryIDs); err != nil {
		return err
	}
	return tx.ReplaceSeasons(ctx, id, in.Seasons)
}

func contentWriteError(op string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("slug", "Another title already uses this slug")
	}
	return apperr.Backend(op, err)
}

// DeleteContent removes the item. Category links, seasons, episodes, list
// entries and comments are removed by the database.
func (s *Store) DeleteContent(ctx context.Context, id int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.db.DeleteContent(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("Content not found")
	}
	if err != nil {
		return apperr.Backend("delete content", err)
	}

	s.mu.Lock()
	delete(s.content, id)
	s.mu.Unlock()

	s.logger.Info("content deleted", "id", id)
	s.notifier.Publish(events.Event{Entity: events.EntityContent, Action: events.ActionDeleted, ID: id})
	return nil
}

func (s *Store) AddCategory(ctx context.Context, name string) (model.Category, error) {
	name = strings.TrimSpace(name)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.checkCategoryName(ctx, name, 0); err != nil {
		return model.Category{}, err
	}
	id, err := s.db.InsertCategory(ctx, name)
	if db.IsUniqueViolation(err) {
		return model.Category{}, apperr.Conflict("name", "Category already exists")
	}
	if err != nil {
		return model.Category{}, apperr.Backend("add category", err)
	}

	c := model.Category{ID: id, Name: name}
	s.mu.Lock()
	s.categories[id] = c
	s.mu.Unlock()
	s.notifier.Publish(events.Event{Entity: events.EntityCategory, Action: events.ActionCreated, ID: id})
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id int64, name string) (model.Category, error) {
	name = strings.TrimSpace(name)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.checkCategoryName(ctx, name, id); err != nil {
		return model.Category{}, err
	}
	err := s.db.UpdateCategory(ctx, id, name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, apperr.NotFound("Category not found")
	}
	if db.IsUniqueViolation(err) {
		return model.Category{}, apperr.Conflict("name", "Category already exists")
	}
	if err != nil {
		return model.Category{}, apperr.Backend("update category", err)
	}

	c := model.Category{ID: id, Name: name}
	s.mu.Lock()
	s.categories[id] = c
	s.mu.Unlock()
	s.notifier.Publish(events.Event{Entity: events.EntityCategory, Action: events.ActionUpdated, ID: id})
	return c, nil
}

func (s *Store) checkCategoryName(ctx context.Context, name string, excludeID int64) error {
	if name == "" {
		return apperr.Validation("name", "Category name is required")
	}
	taken, err := s.db.CategoryNameTaken(ctx, name, excludeID)
	if err != nil {
		return apperr.Backend("check category", err)
	}
	if taken {
		return apperr.Conflict("name", "Category already exists")
	}
	return nil
}

// DeleteCategory removes the category and unlinks it from cached content.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.db.DeleteCategory(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("Category not found")
	}
	if err != nil {
		return apperr.Backend("delete category", err)
	}

	s.mu.Lock()
	delete(s.categories, id)
	for cid, c := range s.content {
		if !c.HasCategory(id) {
			continue
		}
		updated := c.Clone()
		updated.CategoryIDs = updated.CategoryIDs[:0]
		for _, catID := range c.CategoryIDs {
			if catID != id {
				updated.CategoryIDs = append(updated.CategoryIDs, catID)
			}
		}
		s.content[cid] = updated
	}
	s.mu.Unlock()

	s.notifier.Publish(events.Event{Entity: events.EntityCategory, Action: events.ActionDeleted, ID: id})
	return nil
}

// ContentBySlug looks a content item up in the database. A missing slug
// yields (nil, nil); only real failures return an error. The cache is left
// alone: only writers holding writeMu update it.
func (s *Store) ContentBySlug(ctx context.Context, contentSlug string) (*model.Content, error) {
	c, err := s.db.GetContentDetailsBySlug(ctx, contentSlug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("content lookup failed", "slug", contentSlug, "error", err)
		return nil, apperr.Backend("get content", err)
	}
	return c, nil
}

// IncrementViews bumps the view counter. Failures are logged and otherwise
// ignored.
func (s *Store) IncrementViews(ctx context.Context, id int64) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.db.IncrementViews(ctx, id); err != nil {
		s.logger.Warn("failed to increment views", "id", id, "error", err)
		return
	}
	s.mu.Lock()
	if c, ok := s.content[id]; ok {
		updated := c.Clone()
		updated.Views++
		s.content[id] = updated
	}
	s.mu.Unlock()
}

// SearchContent returns matches ranked by the database, best first.
func (s *Store) SearchContent(ctx context.Context, query string) ([]*model.Content, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	results, err := s.db.SearchContent(ctx, query)
	if err != nil {
		return nil, apperr.Backend("search content", err)
	}
	return results, nil
}

func (s *Store) UpdateSiteSettings(ctx context.Context, update model.SettingsUpdate) (model.Settings, error) {
	if update.SiteName != nil {
		name := strings.TrimSpace(*update.SiteName)
		if name == "" {
			return model.Settings{}, apperr.Validation("site_name", "Site name is required")
		}
		update.SiteName = &name
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.db.UpdateSettings(ctx, update); err != nil {
		return model.Settings{}, apperr.Backend("update settings", err)
	}
	settings, err := s.db.GetSettings(ctx)
	if err != nil {
		return model.Settings{}, apperr.Backend("load settings", err)
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	s.notifier.Publish(events.Event{Entity: events.EntitySettings, Action: events.ActionUpdated, ID: settings.ID})
	return settings, nil
}

// UploadFile stores r under prefix and returns its public URL.
func (s *Store) UploadFile(ctx context.Context, prefix, name string, r io.Reader) (string, error) {
	object, err := s.objects.Upload(ctx, prefix, name, r)
	if errors.Is(err, storage.ErrTooLarge) {
		return "", apperr.Validation("file", "File is too large")
	}
	if err != nil {
		return "", apperr.Backend("upload file", err)
	}
	s.logger.Info("file uploaded", "object", object)
	return s.objects.PublicURL(object), nil
}

func (s *Store) Stats(ctx context.Context) (model.Stats, error) {
	stats, err := s.db.Stats(ctx)
	if err != nil {
		return model.Stats{}, apperr.Backend("load stats", err)
	}
	return stats, nil
}
