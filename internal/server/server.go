// Package web exposes the article core over HTTP. Authentication happens
// upstream; the gateway forwards the verified caller id in X-User-ID and
// every handler threads it into the core as an explicit argument.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"coterie/internal/articles"
	"coterie/internal/comments"
	"coterie/internal/favorites"
	"coterie/internal/feed"
	"coterie/internal/model"
	"coterie/internal/store"
)

// CallerHeader carries the authenticated user id set by the auth gateway.
const CallerHeader = "X-User-ID"

type Server struct {
	articles  *articles.Service
	comments  *comments.Ledger
	favorites *favorites.Ledger
	feeds     *feed.Composer
	store     store.Store
	logger    *zap.Logger
	router    *mux.Router
	server    *http.Server
}

func NewServer(st store.Store, logger *zap.Logger) *Server {
	s := &Server{
		articles:  articles.NewService(st, logger),
		comments:  comments.NewLedger(st, logger),
		favorites: favorites.NewLedger(st, logger),
		feeds:     feed.NewComposer(st, logger),
		store:     st,
		logger:    logger,
		router:    mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.HandleFunc("/articles", s.handleGlobalFeed).Methods("GET")
	r.HandleFunc("/articles", s.withCaller(s.handleCreateArticle)).Methods("POST")
	r.HandleFunc("/articles/home", s.withCaller(s.handlePersonalFeed)).Methods("GET")
	r.HandleFunc("/articles/{articleId}", s.handleGetArticle).Methods("GET")
	r.HandleFunc("/articles/{articleId}", s.withCaller(s.handleDeleteArticle)).Methods("DELETE")
	r.HandleFunc("/articles/{articleId}/favorite", s.withCaller(s.handleIsFavorited)).Methods("GET")
	r.HandleFunc("/articles/{articleId}/favorite", s.withCaller(s.handleFavorite)).Methods("POST")
	r.HandleFunc("/articles/{articleId}/unfavorite", s.withCaller(s.handleUnfavorite)).Methods("POST")
	r.HandleFunc("/articles/{articleId}/comments", s.handleListComments).Methods("GET")
	r.HandleFunc("/articles/{articleId}/comments", s.withCaller(s.handleAddComment)).Methods("POST")
	r.HandleFunc("/articles/{articleId}/comments/{commentId}", s.handleGetComment).Methods("GET")
	r.HandleFunc("/articles/{articleId}/comments/{commentId}", s.withCaller(s.handleDeleteComment)).Methods("DELETE")
}

// Handler returns the root handler, used directly by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start launches the HTTP server
func (s *Server) Start(port string) error {
	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.logger.Info("API server listening", zap.String("addr", port))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type callerHandler func(w http.ResponseWriter, r *http.Request, caller *model.User)

// withCaller resolves the authenticated caller identity or rejects the
// request. There is no ambient caller state anywhere below this point.
func (s *Server) withCaller(next callerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get(CallerHeader))
		if err != nil {
			if err := render.Render(w, r, ErrUnauthorized()); err != nil {
				s.logger.Error("Failed to render response", zap.Error(err))
			}
			return
		}
		caller, err := s.store.GetUser(r.Context(), id)
		if err != nil {
			if err := render.Render(w, r, ErrUnauthorized()); err != nil {
				s.logger.Error("Failed to render response", zap.Error(err))
			}
			return
		}
		next(w, r, caller)
	}
}

func (s *Server) articleID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["articleId"])
}

func (s *Server) commentID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["commentId"])
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return page, perPage
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, v render.Renderer) {
	if err := render.Render(w, r, v); err != nil {
		s.logger.Error("Failed to render response", zap.Error(err))
	}
}

func (s *Server) handleGlobalFeed(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	result, err := s.feeds.Global(r.Context(), page, perPage)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.respond(w, r, NewPageResponse(result))
}

func (s *Server) handlePersonalFeed(w http.ResponseWriter, r *http.Request, caller *model.User) {
	page, perPage := pageParams(r)
	result, err := s.feeds.Personal(r.Context(), caller.ID, page, perPage)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.respond(w, r, NewPageResponse(result))
}

func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request, caller *model.User) {
	data := &ArticleRequest{}
	if err := render.Bind(r, data); err != nil {
		s.respond(w, r, ErrInvalidRequest(err))
		return
	}

	article, err := s.articles.Create(r.Context(), caller.ID, data.Body, data.Image)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	s.respond(w, r, NewArticleResponse(article))
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	id, err := s.articleID(r)
	if err != nil {
		s.renderError(w, r, store.ErrNotFound)
		return
	}
	article, err := s.articles.Get(r.Context(), id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.respond(w, r, NewArticleResponse(article))
}

func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request, caller *model.User) {
	id, err := s.articleID(r)
	if err != nil {
		s.renderError(w, r, store.ErrNotFound)
		return
	}
	article, err := s.articles.Delete(r.Context(), id, caller.ID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.respond(w, r, NewArticleResponse(article))
}

func (s *Server) handleIsFavorited(w http.ResponseWriter, r *http.Request, caller *model.User) {
	id, err := s.articleID(r)
	if err != nil {
		s.renderError(w, r, store.ErrNotFound)
		return
	}
	favorited, err := s.favorites.IsFavorited(r.Context(), caller.ID, id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.respond(w, r, &FavoritedResponse{Success: favorited})
}

func (s *Server) handleFavorite(w http.ResponseWriter, r *http.Request, caller *model.User) {
	id, err := s.articleID(r)
	if err != nil {
		s.renderError(w, r, store.ErrNotFound)
		return
	}
	result, err := s.favorites.Favorite(r.Context(), caller.ID, id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.respond(w, r, NewFavoriteResponse(result))
}

func (s *Server) handleUnfavorite(w http.ResponseWriter, r *http.Request, caller *model.User) {
	id, err := s.articleID(r)
	if err != nil {
		s.renderError(w, r, store.ErrNotFound)
		return
	}
	result, err := s.favorites.Unfavorite(r.Context(), caller.ID, id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.respond(w, r, NewFavoriteResponse(result))
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	id, err := s.articleID(r)
	if err != nil {
		s.renderError(w, r, store.ErrNotFound)
		return
	}
	list, err := s.comments.List(r.Context(), id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if err := render.RenderList(w, r, NewCommentListResponse(list)); err != nil {
		s.logger.Error("Failed to render response", zap.Error(err))
	}
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request, caller *model.User) {
	id, err := s.articleID(r)
	if err != nil {
		s.renderError(w, r, store.ErrNotFound)
		return
	}

	data := &CommentRequest{}
	if err := render.Bind(r, data); err != nil {
		s.respond(w, r, ErrInvalidRequest(err))
		return
	}

	article, err := s.comments.Add(r.Context(), id, caller.ID, data.Text)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.respond(w, r, NewArticleResponse(article))
}

func (s *Server) handleGetComment(w http.ResponseWriter, r *http.Request) {
	articleID, err := s.articleID(r)
	if err != nil {
		s.renderError(w, r, store.ErrNotFound)
		return
	}
	commentID, err := s.commentID(r)
	if err != nil {
		s.renderError(w, r, store.ErrCommentNotFound)
		return
	}
	comment, err := s.comments.Get(r.Context(), articleID, commentID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.respond(w, r, NewCommentResponse(comment))
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request, caller *model.User) {
	articleID, err := s.articleID(r)
	if err != nil {
		s.renderError(w, r, store.ErrNotFound)
		return
	}
	commentID, err := s.commentID(r)
	if err != nil {
		s.renderError(w, r, store.ErrCommentNotFound)
		return
	}
	article, err := s.comments.Delete(r.Context(), articleID, commentID, caller.ID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.respond(w, r, NewArticleResponse(article))
}
