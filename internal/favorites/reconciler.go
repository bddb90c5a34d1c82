package favorites

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coterie/internal/store"
)

// Reconciler recomputes denormalized favorite counts from true set
// membership. It is the repair path for the two-write favorite sequence:
// idempotent, best-effort, never part of the request path.
type Reconciler struct {
	store  store.Store
	logger *zap.Logger
}

func NewReconciler(st store.Store, logger *zap.Logger) *Reconciler {
	return &Reconciler{store: st, logger: logger}
}

// Start runs the reconcile loop until the context is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("Reconciler started. Waiting for jobs...")

	for {
		// Wait for job (Blocking call to Redis)
		id, err := r.store.PopReconcile(ctx)
		if err != nil {
			if ctx.Err() != nil {
				r.logger.Info("Reconciler shutting down")
				return
			}
			r.logger.Error("Queue error", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		if _, err := r.Recount(ctx, id); err != nil && err != store.ErrNotFound {
			r.logger.Error("Recount failed",
				zap.String("article_id", id.String()),
				zap.Error(err))
		}
	}
}

// Recount walks every known user's favorite set and overwrites the
// article's counter with the true membership count.
func (r *Reconciler) Recount(ctx context.Context, articleID uuid.UUID) (int, error) {
	users, err := r.store.ListUserIDs(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, userID := range users {
		favorited, err := r.store.IsFavorite(ctx, userID, articleID)
		if err != nil {
			return 0, err
		}
		if favorited {
			count++
		}
	}

	if err := r.store.SetFavoriteCount(ctx, articleID, count); err != nil {
		return 0, err
	}

	r.logger.Info("Favorite count reconciled",
		zap.String("article_id", articleID.String()),
		zap.Int("count", count))
	return count, nil
}

// RecountAll runs one full pass over every article in the global feed.
func (r *Reconciler) RecountAll(ctx context.Context) error {
	const pageSize = 100
	for page := 1; ; page++ {
		articles, _, err := r.store.ListArticles(ctx, page, pageSize)
		if err != nil {
			return err
		}
		for i := range articles {
			if _, err := r.Recount(ctx, articles[i].ID); err != nil && err != store.ErrNotFound {
				return err
			}
		}
		if len(articles) < pageSize {
			return nil
		}
	}
}
