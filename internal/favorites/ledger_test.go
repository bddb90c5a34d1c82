package favorites

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coterie/internal/model"
	"coterie/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	st, err := store.NewHybridStore(mr.Addr(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(st.Close)

	return st
}

func seedUser(t *testing.T, st store.Store, name string) *model.User {
	t.Helper()
	user := model.NewUser(name)
	require.NoError(t, st.SaveUser(context.Background(), &user))
	return &user
}

func seedArticle(t *testing.T, st store.Store, author uuid.UUID) *model.Article {
	t.Helper()
	article := model.NewArticle(author, "the article body", "")
	require.NoError(t, st.CreateArticle(context.Background(), &article))
	return &article
}

// The full lifecycle: favorite, favorite again, unfavorite, unfavorite again.
func TestLedger_FavoriteLifecycle(t *testing.T) {
	st := newTestStore(t)
	ledger := NewLedger(st, zap.NewNop())
	ctx := context.Background()

	u1 := seedUser(t, st, "u1")
	u2 := seedUser(t, st, "u2")
	a1 := seedArticle(t, st, u1.ID)

	res, err := ledger.Favorite(ctx, u2.ID, a1.ID)
	require.NoError(t, err)
	assert.False(t, res.Already)
	assert.True(t, res.Favorited)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, []uuid.UUID{a1.ID}, res.Favorites)

	got, err := st.GetArticle(ctx, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.FavoriteCount)

	// Second favorite is an idempotent no-op
	res, err = ledger.Favorite(ctx, u2.ID, a1.ID)
	require.NoError(t, err)
	assert.True(t, res.Already)
	assert.Equal(t, 1, res.Count, "counter unchanged on repeat")

	res, err = ledger.Unfavorite(ctx, u2.ID, a1.ID)
	require.NoError(t, err)
	assert.False(t, res.Already)
	assert.False(t, res.Favorited)
	assert.Equal(t, 0, res.Count)
	assert.Empty(t, res.Favorites)

	// And unfavoriting twice reports already-unfavorited
	res, err = ledger.Unfavorite(ctx, u2.ID, a1.ID)
	require.NoError(t, err)
	assert.True(t, res.Already)
	assert.Equal(t, 0, res.Count)
}

// favorite then unfavorite restores the pre-sequence counter and membership.
func TestLedger_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	ledger := NewLedger(st, zap.NewNop())
	ctx := context.Background()

	author := seedUser(t, st, "author")
	fans := []*model.User{seedUser(t, st, "f1"), seedUser(t, st, "f2")}
	article := seedArticle(t, st, author.ID)

	for _, fan := range fans {
		_, err := ledger.Favorite(ctx, fan.ID, article.ID)
		require.NoError(t, err)
	}

	before, err := st.GetArticle(ctx, article.ID)
	require.NoError(t, err)
	require.Equal(t, 2, before.FavoriteCount)

	extra := seedUser(t, st, "extra")
	_, err = ledger.Favorite(ctx, extra.ID, article.ID)
	require.NoError(t, err)
	_, err = ledger.Unfavorite(ctx, extra.ID, article.ID)
	require.NoError(t, err)

	after, err := st.GetArticle(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, before.FavoriteCount, after.FavoriteCount)

	fav, err := ledger.IsFavorited(ctx, extra.ID, article.ID)
	require.NoError(t, err)
	assert.False(t, fav)
}

// After any serial sequence, the counter equals true membership.
func TestLedger_CountMatchesMembership(t *testing.T) {
	st := newTestStore(t)
	ledger := NewLedger(st, zap.NewNop())
	ctx := context.Background()

	author := seedUser(t, st, "author")
	article := seedArticle(t, st, author.ID)

	users := make([]*model.User, 5)
	for i := range users {
		users[i] = seedUser(t, st, "user")
	}

	for _, u := range users {
		_, err := ledger.Favorite(ctx, u.ID, article.ID)
		require.NoError(t, err)
	}
	for _, u := range users[:2] {
		_, err := ledger.Unfavorite(ctx, u.ID, article.ID)
		require.NoError(t, err)
	}

	members := 0
	for _, u := range users {
		fav, err := ledger.IsFavorited(ctx, u.ID, article.ID)
		require.NoError(t, err)
		if fav {
			members++
		}
	}

	got, err := st.GetArticle(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, members, got.FavoriteCount)
	assert.Equal(t, 3, got.FavoriteCount)
}

func TestLedger_UnknownUserOrArticle(t *testing.T) {
	st := newTestStore(t)
	ledger := NewLedger(st, zap.NewNop())
	ctx := context.Background()

	u := seedUser(t, st, "u")
	a := seedArticle(t, st, u.ID)

	_, err := ledger.Favorite(ctx, uuid.New(), a.ID)
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	_, err = ledger.Favorite(ctx, u.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
