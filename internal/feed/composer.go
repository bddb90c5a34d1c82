// Package feed builds the two article listings: the global feed and the
// personalized feed over followed authors. Both return the same paginated
// envelope, whichever branch produced the items.
package feed

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coterie/internal/markup"
	"coterie/internal/model"
	"coterie/internal/store"
)

// DefaultPerPage matches the page size the article API has always used.
const DefaultPerPage = 10

// Page is the single envelope shape for every feed response.
type Page struct {
	Items      []model.Article `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PerPage    int             `json:"perPage"`
	TotalPages int             `json:"totalPages"`
}

type Composer struct {
	store  store.Store
	logger *zap.Logger
}

func NewComposer(st store.Store, logger *zap.Logger) *Composer {
	return &Composer{store: st, logger: logger}
}

// Global lists all articles, newest first.
func (c *Composer) Global(ctx context.Context, page, perPage int) (*Page, error) {
	page, perPage = clamp(page, perPage)

	items, total, err := c.store.ListArticles(ctx, page, perPage)
	if err != nil {
		return nil, err
	}
	if err := c.decorate(ctx, items); err != nil {
		return nil, err
	}

	return envelope(items, total, page, perPage), nil
}

// Personal lists articles authored by the caller or anyone they follow.
// A caller following nobody simply gets their own articles; the envelope
// shape does not change between the branches.
func (c *Composer) Personal(ctx context.Context, callerID uuid.UUID, page, perPage int) (*Page, error) {
	page, perPage = clamp(page, perPage)

	caller, err := c.store.GetUser(ctx, callerID)
	if err != nil {
		return nil, err
	}

	authors := append([]uuid.UUID{callerID}, caller.Following...)
	items, err := c.store.ListArticlesByAuthors(ctx, authors)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	total := int64(len(items))
	start := (page - 1) * perPage
	if start > len(items) {
		start = len(items)
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	items = items[start:end]

	if err := c.decorate(ctx, items); err != nil {
		return nil, err
	}

	return envelope(items, total, page, perPage), nil
}

// decorate resolves author profiles and renders bodies on a page of items.
func (c *Composer) decorate(ctx context.Context, items []model.Article) error {
	for i := range items {
		if err := store.ResolveAuthors(ctx, c.store, &items[i]); err != nil {
			return err
		}
		items[i].BodyHTML = markup.RenderBody(items[i].Body)
	}
	return nil
}

func clamp(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	return page, perPage
}

func envelope(items []model.Article, total int64, page, perPage int) *Page {
	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	if items == nil {
		items = []model.Article{}
	}
	return &Page{
		Items:      items,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}
}
