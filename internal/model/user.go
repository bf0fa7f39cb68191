package model

import "time"

// User is the locally known profile of an identity-provider user.  Rows are
// upserted from bearer token claims and only used to address notifications.
type User struct {
	ID        string    // users.id (token subject)
	Email     string    // users.email
	Name      string    // users.name
	CreatedAt time.Time // users.created_at
	UpdatedAt time.Time // users.updated_at
}

// Favorite is a movie a user starred.  MovieTitle comes from the most
// recently added show of that movie and is empty when none exists.
type Favorite struct {
	MovieID    string    `json:"movieId"`    // favorites.movie_id
	MovieTitle string    `json:"movieTitle"` // shows.movie_title
	AddedAt    time.Time `json:"addedAt"`    // favorites.created_at
}
