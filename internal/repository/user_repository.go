package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// UserRepo stores the profile fields needed to address notifications.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a UserRepo bound to db.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Upsert inserts the user or refreshes email and name when they changed.
func (r *UserRepo) Upsert(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE email = VALUES(email), name = VALUES(name)`,
		u.ID, u.Email, u.Name, now, now)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}

// GetByID loads one user.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at, updated_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

// ListAfter pages through users ordered by id.  Pass the last id of the
// previous page, or "" for the first page.
func (r *UserRepo) ListAfter(ctx context.Context, afterID string, limit int) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, name, created_at, updated_at FROM users WHERE id > ? ORDER BY id ASC LIMIT ?`,
		afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Delete removes the user and their favorites.  Bookings are kept as
// history.  It reports whether the user row existed.
func (r *UserRepo) Delete(ctx context.Context, id string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete favorites of %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete user %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return n > 0, nil
}

// ToggleFavorite stars movieID for the user, or unstars it when it is
// already starred.  added reports which happened.
func (r *UserRepo) ToggleFavorite(ctx context.Context, userID, movieID string) (added bool, err error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = ? AND movie_id = ?`, userID, movieID)
	if err != nil {
		return false, fmt.Errorf("toggle favorite: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO favorites (user_id, movie_id, created_at) VALUES (?, ?, ?)`,
		userID, movieID, time.Now().UTC())
	if err != nil && !isDuplicate(err) {
		return false, fmt.Errorf("toggle favorite: %w", err)
	}
	// a duplicate means a concurrent toggle starred it first
	return true, nil
}

// ListFavorites returns the user's starred movies, newest first.
func (r *UserRepo) ListFavorites(ctx context.Context, userID string) ([]model.Favorite, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT f.movie_id,
		        COALESCE((SELECT s.movie_title FROM shows s WHERE s.movie_id = f.movie_id
		                  ORDER BY s.created_at DESC LIMIT 1), ''),
		        f.created_at
		   FROM favorites f
		  WHERE f.user_id = ?
		  ORDER BY f.created_at DESC, f.movie_id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	out := []model.Favorite{}
	for rows.Next() {
		var f model.Favorite
		if err := rows.Scan(&f.MovieID, &f.MovieTitle, &f.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
