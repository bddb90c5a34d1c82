// Package comments manages the ordered comment collection embedded in an
// article. Mutations go through the store's atomic append/remove
// operations, so side effects never leave the one article document.
package comments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coterie/internal/access"
	"coterie/internal/markup"
	"coterie/internal/model"
	"coterie/internal/store"
)

// ErrEmptyText signals a comment without any text after sanitation.
var ErrEmptyText = errors.New("comment text is required")

type Ledger struct {
	store  store.Store
	logger *zap.Logger
}

func NewLedger(st store.Store, logger *zap.Logger) *Ledger {
	return &Ledger{store: st, logger: logger}
}

// List returns the article's comments in insertion order, author
// profiles resolved.
func (l *Ledger) List(ctx context.Context, articleID uuid.UUID) ([]model.Comment, error) {
	article, err := l.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if err := store.ResolveAuthors(ctx, l.store, article); err != nil {
		return nil, err
	}
	return article.Comments, nil
}

// Add appends a new comment authored by the caller and returns the
// updated article.
func (l *Ledger) Add(ctx context.Context, articleID, authorID uuid.UUID, text string) (*model.Article, error) {
	text = markup.PlainText(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	if _, err := l.store.GetUser(ctx, authorID); err != nil {
		return nil, err
	}

	comment := model.NewComment(authorID, text)
	article, err := l.store.AppendComment(ctx, articleID, comment)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Comment added",
		zap.String("article_id", articleID.String()),
		zap.String("comment_id", comment.ID.String()))

	if err := store.ResolveAuthors(ctx, l.store, article); err != nil {
		return nil, err
	}
	return article, nil
}

// Get returns a single comment by id.
func (l *Ledger) Get(ctx context.Context, articleID, commentID uuid.UUID) (*model.Comment, error) {
	article, err := l.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if err := store.ResolveAuthors(ctx, l.store, article); err != nil {
		return nil, err
	}
	comment := article.CommentByID(commentID)
	if comment == nil {
		return nil, store.ErrCommentNotFound
	}
	return comment, nil
}

// Delete removes a comment. Only the recorded author may do so; anyone
// else gets Forbidden while the comment stays in place.
func (l *Ledger) Delete(ctx context.Context, articleID, commentID, callerID uuid.UUID) (*model.Article, error) {
	article, err := l.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	comment := article.CommentByID(commentID)
	if comment == nil {
		return nil, store.ErrCommentNotFound
	}
	if err := access.Require(callerID, comment.AuthorID); err != nil {
		return nil, err
	}

	article, err = l.store.RemoveComment(ctx, articleID, commentID)
	if err != nil {
		return nil, fmt.Errorf("remove comment: %w", err)
	}

	l.logger.Info("Comment deleted",
		zap.String("article_id", articleID.String()),
		zap.String("comment_id", commentID.String()))

	if err := store.ResolveAuthors(ctx, l.store, article); err != nil {
		return nil, err
	}
	return article, nil
}
