package model

import (
	"time"

	"github.com/google/uuid"
)

// User is owned by the authentication collaborator; this service persists
// and reads it. The favorites set is kept by the store, not on the document.
type User struct {
	ID        uuid.UUID   `json:"id"`
	Username  string      `json:"username"`
	Image     string      `json:"image,omitempty"`
	Following []uuid.UUID `json:"following"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// NewUser creates a user with no follow edges.
func NewUser(username string) User {
	now := time.Now().UTC()
	return User{
		ID:        uuid.New(),
		Username:  username,
		Following: []uuid.UUID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Profile is the public representation of a user, resolved onto
// articles and comments at read time.
type Profile struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Image    string    `json:"image,omitempty"`
}

// Profile returns the public view of the user.
func (u *User) Profile() *Profile {
	return &Profile{ID: u.ID, Username: u.Username, Image: u.Image}
}

// Follows reports whether the user follows the given account.
func (u *User) Follows(id uuid.UUID) bool {
	for _, f := range u.Following {
		if f == id {
			return true
		}
	}
	return false
}
