package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"coterie/internal/model"
)

const (
	globalFeedKey  = "feed:global"
	usersIndexKey  = "users:index"
	reconcileQueue = "queue:reconcile"
)

func articleKey(id uuid.UUID) string   { return fmt.Sprintf("article:%s", id) }
func authorKey(id uuid.UUID) string    { return fmt.Sprintf("author:%s:articles", id) }
func userKey(id uuid.UUID) string      { return fmt.Sprintf("user:%s", id) }
func favoritesKey(id uuid.UUID) string { return fmt.Sprintf("user:%s:favorites", id) }

// HybridStore combines Redis (documents, indexes, sets, queue) and
// Badger (article bodies). Per-article mutations are serialized through
// a keyed mutex so concurrent requests in this process cannot clobber
// each other's whole-document writes.
type HybridStore struct {
	rdb   *redis.Client
	db    *badger.DB
	locks *KeyMutex
}

// NewHybridStore initializes databases.
// Pass badgerPath="" to run in "Redis-Only" mode (for CLI tools).
func NewHybridStore(redisAddr string, badgerPath string) (*HybridStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	var db *badger.DB
	var err error

	if badgerPath != "" {
		opts := badger.DefaultOptions(badgerPath)
		opts.Logger = nil // Silence default logger
		db, err = badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger: %w", err)
		}
	}

	return &HybridStore{rdb: rdb, db: db, locks: NewKeyMutex()}, nil
}

// Close cleans up connections.
func (s *HybridStore) Close() {
	if s.rdb != nil {
		s.rdb.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// getMeta fetches the article document from Redis only, body excluded.
func (s *HybridStore) getMeta(ctx context.Context, id uuid.UUID) (*model.Article, error) {
	val, err := s.rdb.Get(ctx, articleKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	var article model.Article
	if err := json.Unmarshal(val, &article); err != nil {
		return nil, err
	}
	if article.Comments == nil {
		article.Comments = []model.Comment{}
	}
	return &article, nil
}

// putMeta writes the article document to Redis, stripping everything
// that belongs to heavy storage or the read path.
func (s *HybridStore) putMeta(ctx context.Context, article *model.Article) error {
	meta := *article
	meta.Body = ""
	meta.BodyHTML = ""
	meta.Author = nil
	if len(meta.Comments) > 0 {
		comments := make([]model.Comment, len(meta.Comments))
		copy(comments, meta.Comments)
		for i := range comments {
			comments[i].Author = nil
		}
		meta.Comments = comments
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, articleKey(article.ID), data, 0).Err()
}

// loadBody joins the Badger-stored body back onto the document.
func (s *HybridStore) loadBody(article *model.Article) error {
	if s.db == nil {
		return nil
	}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(article.ID.String()))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			article.Body = string(val)
			return nil
		})
	})
	if err != nil && err != badger.ErrKeyNotFound {
		return err
	}
	return nil
}

// CreateArticle persists a new article: metadata document to Redis,
// body to Badger, id prepended to the global and per-author feed lists.
func (s *HybridStore) CreateArticle(ctx context.Context, article *model.Article) error {
	meta := *article
	meta.Body = ""
	meta.BodyHTML = ""
	meta.Author = nil

	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, articleKey(article.ID), data, 0)
	pipe.LPush(ctx, globalFeedKey, article.ID.String())
	pipe.LPush(ctx, authorKey(article.AuthorID), article.ID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	if article.Body != "" {
		if s.db == nil {
			return fmt.Errorf("cannot save body: badgerdb is not initialized")
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte(article.ID.String()), []byte(article.Body))
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// GetArticle fetches the full article: metadata from Redis, body from Badger.
func (s *HybridStore) GetArticle(ctx context.Context, id uuid.UUID) (*model.Article, error) {
	article, err := s.getMeta(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.loadBody(article); err != nil {
		return nil, err
	}
	return article, nil
}

// DeleteArticle removes the document, its body and its feed index entries.
func (s *HybridStore) DeleteArticle(ctx context.Context, id uuid.UUID) error {
	article, err := s.getMeta(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, articleKey(id))
	pipe.LRem(ctx, globalFeedKey, 0, id.String())
	pipe.LRem(ctx, authorKey(article.AuthorID), 0, id.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	if s.db != nil {
		err = s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete([]byte(id.String()))
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// ListArticles pages through the global feed list, newest first.
func (s *HybridStore) ListArticles(ctx context.Context, page, limit int) ([]model.Article, int64, error) {
	total, err := s.rdb.LLen(ctx, globalFeedKey).Result()
	if err != nil {
		return nil, 0, err
	}

	start := int64(page-1) * int64(limit)
	ids, err := s.rdb.LRange(ctx, globalFeedKey, start, start+int64(limit)-1).Result()
	if err != nil {
		return nil, 0, err
	}

	articles := make([]model.Article, 0, len(ids))
	for _, idStr := range ids {
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		article, err := s.GetArticle(ctx, id)
		if err == ErrNotFound {
			continue
		} else if err != nil {
			return nil, 0, err
		}
		articles = append(articles, *article)
	}

	return articles, total, nil
}

// ListArticlesByAuthors fetches every article whose author is in the given
// set, in no particular order; the caller sorts and paginates.
func (s *HybridStore) ListArticlesByAuthors(ctx context.Context, authors []uuid.UUID) ([]model.Article, error) {
	var articles []model.Article
	for _, author := range authors {
		ids, err := s.rdb.LRange(ctx, authorKey(author), 0, -1).Result()
		if err != nil {
			return nil, err
		}
		for _, idStr := range ids {
			id, err := uuid.Parse(idStr)
			if err != nil {
				continue
			}
			article, err := s.GetArticle(ctx, id)
			if err == ErrNotFound {
				continue
			} else if err != nil {
				return nil, err
			}
			articles = append(articles, *article)
		}
	}
	return articles, nil
}

// AppendComment atomically appends a comment to the article's collection.
func (s *HybridStore) AppendComment(ctx context.Context, articleID uuid.UUID, comment model.Comment) (*model.Article, error) {
	unlock := s.locks.Lock(articleKey(articleID))
	defer unlock()

	article, err := s.getMeta(ctx, articleID)
	if err != nil {
		return nil, err
	}

	article.Comments = append(article.Comments, comment)
	article.UpdatedAt = comment.CreatedAt
	if err := s.putMeta(ctx, article); err != nil {
		return nil, err
	}

	if err := s.loadBody(article); err != nil {
		return nil, err
	}
	return article, nil
}

// RemoveComment atomically removes the comment with the given id.
func (s *HybridStore) RemoveComment(ctx context.Context, articleID, commentID uuid.UUID) (*model.Article, error) {
	unlock := s.locks.Lock(articleKey(articleID))
	defer unlock()

	article, err := s.getMeta(ctx, articleID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range article.Comments {
		if article.Comments[i].ID == commentID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrCommentNotFound
	}

	article.Comments = append(article.Comments[:idx], article.Comments[idx+1:]...)
	if err := s.putMeta(ctx, article); err != nil {
		return nil, err
	}

	if err := s.loadBody(article); err != nil {
		return nil, err
	}
	return article, nil
}

// GetUser fetches a user document.
func (s *HybridStore) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	val, err := s.rdb.Get(ctx, userKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(val, &user); err != nil {
		return nil, err
	}
	if user.Following == nil {
		user.Following = []uuid.UUID{}
	}
	return &user, nil
}

// SaveUser upserts a user document and registers it in the user index.
func (s *HybridStore) SaveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, userKey(user.ID), data, 0)
	pipe.SAdd(ctx, usersIndexKey, user.ID.String())
	_, err = pipe.Exec(ctx)
	return err
}

// ListUserIDs returns every known user id. The reconciler walks this to
// recompute favorite counts from true membership.
func (s *HybridStore) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	members, err := s.rdb.SMembers(ctx, usersIndexKey).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// AddFavorite adds the article to the user's favorite set. Returns false
// when it was already a member.
func (s *HybridStore) AddFavorite(ctx context.Context, userID, articleID uuid.UUID) (bool, error) {
	added, err := s.rdb.SAdd(ctx, favoritesKey(userID), articleID.String()).Result()
	if err != nil {
		return false, err
	}
	return added > 0, nil
}

// RemoveFavorite removes the article from the user's favorite set.
func (s *HybridStore) RemoveFavorite(ctx context.Context, userID, articleID uuid.UUID) (bool, error) {
	removed, err := s.rdb.SRem(ctx, favoritesKey(userID), articleID.String()).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

// IsFavorite reports set membership without mutation.
func (s *HybridStore) IsFavorite(ctx context.Context, userID, articleID uuid.UUID) (bool, error) {
	return s.rdb.SIsMember(ctx, favoritesKey(userID), articleID.String()).Result()
}

// ListFavorites returns the user's favorited article ids.
func (s *HybridStore) ListFavorites(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	members, err := s.rdb.SMembers(ctx, favoritesKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// AdjustFavoriteCount moves the denormalized counter by delta, clamped
// at zero, and returns the new value.
func (s *HybridStore) AdjustFavoriteCount(ctx context.Context, articleID uuid.UUID, delta int) (int, error) {
	unlock := s.locks.Lock(articleKey(articleID))
	defer unlock()

	article, err := s.getMeta(ctx, articleID)
	if err != nil {
		return 0, err
	}

	article.FavoriteCount += delta
	if article.FavoriteCount < 0 {
		article.FavoriteCount = 0
	}
	if err := s.putMeta(ctx, article); err != nil {
		return 0, err
	}
	return article.FavoriteCount, nil
}

// SetFavoriteCount overwrites the denormalized counter, used by the
// reconciler after recomputing true membership.
func (s *HybridStore) SetFavoriteCount(ctx context.Context, articleID uuid.UUID, count int) error {
	unlock := s.locks.Lock(articleKey(articleID))
	defer unlock()

	article, err := s.getMeta(ctx, articleID)
	if err != nil {
		return err
	}

	article.FavoriteCount = count
	return s.putMeta(ctx, article)
}

// EnqueueReconcile queues an article for favorite-count recomputation.
func (s *HybridStore) EnqueueReconcile(ctx context.Context, articleID uuid.UUID) error {
	return s.rdb.LPush(ctx, reconcileQueue, articleID.String()).Err()
}

// PopReconcile waits for a queued article id (Blocking).
func (s *HybridStore) PopReconcile(ctx context.Context) (uuid.UUID, error) {
	// 0 means wait forever until an item arrives
	result, err := s.rdb.BRPop(ctx, 0, reconcileQueue).Result()
	if err != nil {
		return uuid.Nil, err
	}

	return uuid.Parse(result[1])
}
