package model

import (
	"time"

	"github.com/google/uuid"
)

// Article is the aggregate root: the document plus the comments it owns.
// Body lives in heavy storage and is joined back in by the store; BodyHTML
// and Author are resolved at read time and never persisted.
type Article struct {
	ID            uuid.UUID `json:"id"`
	Body          string    `json:"body"`
	BodyHTML      string    `json:"bodyHtml,omitempty"`
	Image         string    `json:"image,omitempty"`
	FavoriteCount int       `json:"favoriteCount"`
	AuthorID      uuid.UUID `json:"authorId"`
	Author        *Profile  `json:"author,omitempty"`
	Comments      []Comment `json:"comments"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewArticle creates a new Article authored by the given user.
func NewArticle(authorID uuid.UUID, body, image string) Article {
	now := time.Now().UTC()
	return Article{
		ID:        uuid.New(),
		Body:      body,
		Image:     image,
		AuthorID:  authorID,
		Comments:  []Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Comment is embedded in its article but addressable by its own id.
// Authorship is a stable user reference; the display profile is filled
// in on the read path.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	AuthorID  uuid.UUID `json:"authorId"`
	Author    *Profile  `json:"author,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewComment creates a comment authored by the given user.
func NewComment(authorID uuid.UUID, text string) Comment {
	now := time.Now().UTC()
	return Comment{
		ID:        uuid.New(),
		Text:      text,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CommentByID returns the embedded comment with the given id, or nil.
func (a *Article) CommentByID(id uuid.UUID) *Comment {
	for i := range a.Comments {
		if a.Comments[i].ID == id {
			return &a.Comments[i]
		}
	}
	return nil
}
