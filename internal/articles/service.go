// Package articles manages the article aggregate itself: creation,
// single-document reads and owner-guarded deletion.
package articles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coterie/internal/access"
	"coterie/internal/markup"
	"coterie/internal/model"
	"coterie/internal/store"
)

// ErrEmptyBody signals a create request without article text.
var ErrEmptyBody = errors.New("article body is required")

type Service struct {
	store  store.Store
	logger *zap.Logger
}

func NewService(st store.Store, logger *zap.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// Create persists a new article authored by the caller. The author is set
// once here and never changes afterwards.
func (s *Service) Create(ctx context.Context, authorID uuid.UUID, body, image string) (*model.Article, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}

	author, err := s.store.GetUser(ctx, authorID)
	if err != nil {
		return nil, err
	}

	article := model.NewArticle(authorID, body, image)
	if err := s.store.CreateArticle(ctx, &article); err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}

	s.logger.Info("Article created",
		zap.String("article_id", article.ID.String()),
		zap.String("author", author.Username))

	article.Author = author.Profile()
	article.BodyHTML = markup.RenderBody(article.Body)
	return &article, nil
}

// Get returns the article with author profiles and rendered body resolved.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Article, error) {
	article, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := store.ResolveAuthors(ctx, s.store, article); err != nil {
		return nil, err
	}
	article.BodyHTML = markup.RenderBody(article.Body)
	return article, nil
}

// Delete removes the article if and only if the caller authored it.
// The absent-article and wrong-owner cases stay distinguishable.
func (s *Service) Delete(ctx context.Context, id, callerID uuid.UUID) (*model.Article, error) {
	article, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Require(callerID, article.AuthorID); err != nil {
		return nil, err
	}
	if err := s.store.DeleteArticle(ctx, id); err != nil {
		return nil, fmt.Errorf("delete article: %w", err)
	}

	s.logger.Info("Article deleted",
		zap.String("article_id", id.String()),
		zap.String("caller", callerID.String()))
	return article, nil
}
