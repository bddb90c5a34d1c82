package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"coterie/internal/access"
	"coterie/internal/articles"
	"coterie/internal/comments"
	"coterie/internal/store"
)

// ErrResponse is the error payload for every failure the API reports.
// Render sets the status code before the body is marshalled.
type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	StatusText string `json:"status"`
	ErrorText  string `json:"error,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrUnprocessable(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnprocessableEntity,
		StatusText:     "Invalid input.",
		ErrorText:      err.Error(),
	}
}

func ErrNotFound(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusNotFound,
		StatusText:     "Resource not found.",
		ErrorText:      err.Error(),
	}
}

func ErrForbidden(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusForbidden,
		StatusText:     "Forbidden.",
		ErrorText:      err.Error(),
	}
}

func ErrUnauthorized() render.Renderer {
	return &ErrResponse{
		HTTPStatusCode: http.StatusUnauthorized,
		StatusText:     "Unauthorized.",
	}
}

func ErrInternal(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Internal server error.",
	}
}

// renderError maps the core's tagged failures onto status codes:
// NotFound 404, Forbidden 403, ValidationError 422, everything else 500.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var resp render.Renderer
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrCommentNotFound):
		resp = ErrNotFound(err)
	case errors.Is(err, access.ErrForbidden):
		resp = ErrForbidden(err)
	case errors.Is(err, articles.ErrEmptyBody),
		errors.Is(err, comments.ErrEmptyText):
		resp = ErrUnprocessable(err)
	default:
		s.logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
		resp = ErrInternal(err)
	}

	if err := render.Render(w, r, resp); err != nil {
		s.logger.Error("Failed to render error response", zap.Error(err))
	}
}
