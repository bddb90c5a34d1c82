package store

import (
	"context"

	"github.com/google/uuid"

	"coterie/internal/model"
)

// ResolveAuthors fills display profiles onto an article and its comments,
// memoizing user lookups within the call. A dangling author reference
// leaves the profile nil rather than failing the read.
func ResolveAuthors(ctx context.Context, s Store, article *model.Article) error {
	profiles := make(map[uuid.UUID]*model.Profile)

	lookup := func(id uuid.UUID) (*model.Profile, error) {
		if p, ok := profiles[id]; ok {
			return p, nil
		}
		user, err := s.GetUser(ctx, id)
		if err == ErrUserNotFound {
			profiles[id] = nil
			return nil, nil
		} else if err != nil {
			return nil, err
		}
		p := user.Profile()
		profiles[id] = p
		return p, nil
	}

	author, err := lookup(article.AuthorID)
	if err != nil {
		return err
	}
	article.Author = author

	for i := range article.Comments {
		p, err := lookup(article.Comments[i].AuthorID)
		if err != nil {
			return err
		}
		article.Comments[i].Author = p
	}
	return nil
}
