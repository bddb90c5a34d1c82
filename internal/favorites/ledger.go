// Package favorites keeps each user's favorite set and the article's
// denormalized counter in lockstep. The membership write always comes
// before the counter write: a crash between the two leaves an over-count,
// which the reconciler heals, never an under-count.
package favorites

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coterie/internal/model"
	"coterie/internal/store"
)

// Result reports the state of a (user, article) pair after a favorite or
// unfavorite call, including the caller's favorites as the API returns them.
type Result struct {
	Already   bool        `json:"already"`
	Favorited bool        `json:"favorited"`
	Count     int         `json:"count"`
	Favorites []uuid.UUID `json:"favorites"`
}

type Ledger struct {
	store  store.Store
	logger *zap.Logger
	locks  *store.KeyMutex
}

func NewLedger(st store.Store, logger *zap.Logger) *Ledger {
	return &Ledger{store: st, logger: logger, locks: store.NewKeyMutex()}
}

// Favorite adds the article to the user's favorite set and bumps the
// counter. A second call by the same user is a no-op reported as Already.
func (l *Ledger) Favorite(ctx context.Context, userID, articleID uuid.UUID) (*Result, error) {
	unlock := l.locks.Lock(articleID.String())
	defer unlock()

	article, err := l.checkPair(ctx, userID, articleID)
	if err != nil {
		return nil, err
	}

	favorited, err := l.store.IsFavorite(ctx, userID, articleID)
	if err != nil {
		return nil, err
	}
	if favorited {
		return l.result(ctx, userID, true, true, article.FavoriteCount)
	}

	// Membership first, counter second.
	if _, err := l.store.AddFavorite(ctx, userID, articleID); err != nil {
		return nil, fmt.Errorf("add favorite: %w", err)
	}
	count, err := l.store.AdjustFavoriteCount(ctx, articleID, 1)
	if err != nil {
		l.deferReconcile(ctx, articleID, err)
		return nil, fmt.Errorf("adjust favorite count: %w", err)
	}

	l.logger.Info("Article favorited",
		zap.String("article_id", articleID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("count", count))

	return l.result(ctx, userID, false, true, count)
}

// Unfavorite removes the article from the user's favorite set and drops
// the counter, never below zero.
func (l *Ledger) Unfavorite(ctx context.Context, userID, articleID uuid.UUID) (*Result, error) {
	unlock := l.locks.Lock(articleID.String())
	defer unlock()

	article, err := l.checkPair(ctx, userID, articleID)
	if err != nil {
		return nil, err
	}

	favorited, err := l.store.IsFavorite(ctx, userID, articleID)
	if err != nil {
		return nil, err
	}
	if !favorited {
		return l.result(ctx, userID, true, false, article.FavoriteCount)
	}

	if _, err := l.store.RemoveFavorite(ctx, userID, articleID); err != nil {
		return nil, fmt.Errorf("remove favorite: %w", err)
	}
	count, err := l.store.AdjustFavoriteCount(ctx, articleID, -1)
	if err != nil {
		l.deferReconcile(ctx, articleID, err)
		return nil, fmt.Errorf("adjust favorite count: %w", err)
	}

	l.logger.Info("Article unfavorited",
		zap.String("article_id", articleID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("count", count))

	return l.result(ctx, userID, false, false, count)
}

// IsFavorited reports membership without mutating anything.
func (l *Ledger) IsFavorited(ctx context.Context, userID, articleID uuid.UUID) (bool, error) {
	return l.store.IsFavorite(ctx, userID, articleID)
}

func (l *Ledger) checkPair(ctx context.Context, userID, articleID uuid.UUID) (*model.Article, error) {
	if _, err := l.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return l.store.GetArticle(ctx, articleID)
}

// deferReconcile hands a torn two-write sequence to the reconciler
// instead of retrying the counter inline.
func (l *Ledger) deferReconcile(ctx context.Context, articleID uuid.UUID, cause error) {
	l.logger.Error("Counter write failed, queuing reconcile",
		zap.String("article_id", articleID.String()),
		zap.Error(cause))
	if err := l.store.EnqueueReconcile(ctx, articleID); err != nil {
		l.logger.Error("Failed to queue reconcile", zap.Error(err))
	}
}

func (l *Ledger) result(ctx context.Context, userID uuid.UUID, already, favorited bool, count int) (*Result, error) {
	favs, err := l.store.ListFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Result{
		Already:   already,
		Favorited: favorited,
		Count:     count,
		Favorites: favs,
	}, nil
}
