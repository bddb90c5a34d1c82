package web

import (
	"net/http"

	"github.com/go-chi/render"

	"coterie/internal/favorites"
	"coterie/internal/feed"
	"coterie/internal/model"
)

//--
// Request and Response payloads for the REST api.
//--

// ArticleRequest is the create-article payload. The author always comes
// from the authenticated caller, never from the body.
type ArticleRequest struct {
	Body  string `json:"body"`
	Image string `json:"image"`
}

func (a *ArticleRequest) Bind(r *http.Request) error { return nil }

// CommentRequest is the post-comment payload.
type CommentRequest struct {
	Text string `json:"text"`
}

func (c *CommentRequest) Bind(r *http.Request) error { return nil }

type ArticleResponse struct {
	*model.Article
}

func NewArticleResponse(article *model.Article) *ArticleResponse {
	return &ArticleResponse{Article: article}
}

func (rd *ArticleResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

type CommentResponse struct {
	*model.Comment
}

func NewCommentResponse(comment *model.Comment) *CommentResponse {
	return &CommentResponse{Comment: comment}
}

func (rd *CommentResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

func NewCommentListResponse(comments []model.Comment) []render.Renderer {
	list := []render.Renderer{}
	for i := range comments {
		list = append(list, NewCommentResponse(&comments[i]))
	}
	return list
}

type PageResponse struct {
	*feed.Page
}

func NewPageResponse(page *feed.Page) *PageResponse {
	return &PageResponse{Page: page}
}

func (rd *PageResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

type FavoriteResponse struct {
	*favorites.Result
}

func NewFavoriteResponse(result *favorites.Result) *FavoriteResponse {
	return &FavoriteResponse{Result: result}
}

func (rd *FavoriteResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

// FavoritedResponse answers the membership query.
type FavoritedResponse struct {
	Success bool `json:"success"`
}

func (rd *FavoritedResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }
