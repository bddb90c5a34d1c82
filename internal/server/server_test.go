package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coterie/internal/model"
	"coterie/internal/store"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	st, err := store.NewHybridStore(mr.Addr(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(st.Close)

	return NewServer(st, zap.NewNop()), st
}

func seedUser(t *testing.T, st store.Store, name string) *model.User {
	t.Helper()
	user := model.NewUser(name)
	require.NoError(t, st.SaveUser(context.Background(), &user))
	return &user
}

func doJSON(t *testing.T, srv *Server, method, path string, caller *model.User, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set(CallerHeader, caller.ID.String())
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeArticle(t *testing.T, rec *httptest.ResponseRecorder) model.Article {
	t.Helper()
	var a model.Article
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	return a
}

func TestServer_RequiresCaller(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/articles", nil, map[string]string{"body": "hi"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Unknown caller ids are rejected the same way
	ghost := model.NewUser("ghost")
	rec = doJSON(t, srv, "POST", "/articles", &ghost, map[string]string{"body": "hi"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_CreateAndGetArticle(t *testing.T) {
	srv, st := newTestServer(t)
	alice := seedUser(t, st, "alice")

	rec := doJSON(t, srv, "POST", "/articles", alice, map[string]string{"body": "**hello**", "image": "i.png"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeArticle(t, rec)
	assert.Equal(t, alice.ID, created.AuthorID)
	require.NotNil(t, created.Author)
	assert.Equal(t, "alice", created.Author.Username)

	rec = doJSON(t, srv, "GET", "/articles/"+created.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeArticle(t, rec)
	assert.Equal(t, "**hello**", got.Body)
	assert.Contains(t, got.BodyHTML, "<strong>hello</strong>")
}

func TestServer_CreateArticle_EmptyBody(t *testing.T) {
	srv, st := newTestServer(t)
	alice := seedUser(t, st, "alice")

	rec := doJSON(t, srv, "POST", "/articles", alice, map[string]string{"body": "  "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServer_ArticleNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "GET", "/articles/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Malformed ids read as absent resources, not server errors
	rec = doJSON(t, srv, "GET", "/articles/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_DeleteArticle_Guard(t *testing.T) {
	srv, st := newTestServer(t)
	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	rec := doJSON(t, srv, "POST", "/articles", alice, map[string]string{"body": "mine"})
	created := decodeArticle(t, rec)

	rec = doJSON(t, srv, "DELETE", "/articles/"+created.ID.String(), bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, srv, "DELETE", "/articles/"+created.ID.String(), alice, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, "GET", "/articles/"+created.ID.String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CommentFlow(t *testing.T) {
	srv, st := newTestServer(t)
	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	rec := doJSON(t, srv, "POST", "/articles", alice, map[string]string{"body": "post"})
	article := decodeArticle(t, rec)
	base := "/articles/" + article.ID.String() + "/comments"

	rec = doJSON(t, srv, "POST", base, bob, map[string]string{"text": "nice one"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeArticle(t, rec)
	require.Len(t, updated.Comments, 1)
	commentID := updated.Comments[0].ID

	// Empty text is rejected
	rec = doJSON(t, srv, "POST", base, bob, map[string]string{"text": " "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Someone else's delete is forbidden; the author's succeeds
	rec = doJSON(t, srv, "DELETE", fmt.Sprintf("%s/%s", base, commentID), alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = doJSON(t, srv, "DELETE", fmt.Sprintf("%s/%s", base, commentID), bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	updated = decodeArticle(t, rec)
	assert.Empty(t, updated.Comments)

	// Absent comment is 404, distinguishable from forbidden
	rec = doJSON(t, srv, "DELETE", fmt.Sprintf("%s/%s", base, commentID), bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_FavoriteFlow(t *testing.T) {
	srv, st := newTestServer(t)
	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	rec := doJSON(t, srv, "POST", "/articles", alice, map[string]string{"body": "post"})
	article := decodeArticle(t, rec)
	base := "/articles/" + article.ID.String()

	rec = doJSON(t, srv, "GET", base+"/favorite", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":false}`, rec.Body.String())

	rec = doJSON(t, srv, "POST", base+"/favorite", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Already bool `json:"already"`
		Count   int  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Already)
	assert.Equal(t, 1, result.Count)

	rec = doJSON(t, srv, "POST", base+"/favorite", bob, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Already)
	assert.Equal(t, 1, result.Count)

	rec = doJSON(t, srv, "GET", base+"/favorite", bob, nil)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = doJSON(t, srv, "POST", base+"/unfavorite", bob, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Already)
	assert.Equal(t, 0, result.Count)
}

func TestServer_Feeds(t *testing.T) {
	srv, st := newTestServer(t)
	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	doJSON(t, srv, "POST", "/articles", alice, map[string]string{"body": "alice's post"})
	doJSON(t, srv, "POST", "/articles", bob, map[string]string{"body": "bob's post"})

	rec := doJSON(t, srv, "GET", "/articles?page=1&limit=10", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []model.Article `json:"items"`
		Total int64           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "bob's post", page.Items[0].Body)

	// Alice follows nobody: home feed is her own articles, same envelope
	rec = doJSON(t, srv, "GET", "/articles/home", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, alice.ID, page.Items[0].AuthorID)
}
