package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"coterie/internal/model"
)

var (
	ErrNotFound        = errors.New("article not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrCommentNotFound = errors.New("comment not found")
)

// Store is the document-storage boundary. Articles and users are whole
// JSON documents; comment and counter mutations are store-level operations
// so callers never race each other on read-modify-write of the same
// article document.
type Store interface {
	CreateArticle(ctx context.Context, article *model.Article) error
	GetArticle(ctx context.Context, id uuid.UUID) (*model.Article, error)
	DeleteArticle(ctx context.Context, id uuid.UUID) error
	ListArticles(ctx context.Context, page, limit int) ([]model.Article, int64, error)
	ListArticlesByAuthors(ctx context.Context, authors []uuid.UUID) ([]model.Article, error)

	AppendComment(ctx context.Context, articleID uuid.UUID, comment model.Comment) (*model.Article, error)
	RemoveComment(ctx context.Context, articleID, commentID uuid.UUID) (*model.Article, error)

	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	SaveUser(ctx context.Context, user *model.User) error
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)

	AddFavorite(ctx context.Context, userID, articleID uuid.UUID) (bool, error)
	RemoveFavorite(ctx context.Context, userID, articleID uuid.UUID) (bool, error)
	IsFavorite(ctx context.Context, userID, articleID uuid.UUID) (bool, error)
	ListFavorites(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	AdjustFavoriteCount(ctx context.Context, articleID uuid.UUID, delta int) (int, error)
	SetFavoriteCount(ctx context.Context, articleID uuid.UUID, count int) error

	EnqueueReconcile(ctx context.Context, articleID uuid.UUID) error
	PopReconcile(ctx context.Context) (uuid.UUID, error)
}
