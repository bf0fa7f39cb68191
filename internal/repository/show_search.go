package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// ShowSearchQuery defines filters & pagination for searching shows.
type ShowSearchQuery struct {
	Title      string // case-insensitive substring of movie_title
	MovieID    string // exact movie_id
	TimeFilter string // "upcoming" (default) or "any"
	Now        time.Time
	Page       int
	PageSize   int
}

// Search returns one page of shows matching q, soonest first, and the total
// number of matches.
func (r *ShowRepo) Search(ctx context.Context, q ShowSearchQuery) ([]*model.Show, int64, error) {
	where := []string{}
	args := []any{}

	switch strings.ToLower(q.TimeFilter) {
	case "any":
	default:
		where = append(where, "starts_at > ?")
		args = append(args, q.Now.UTC())
	}
	if q.Title != "" {
		where = append(where, "LOWER(movie_title) LIKE ?")
		args = append(args, "%"+escapeLike(strings.ToLower(q.Title))+"%")
	}
	if q.MovieID != "" {
		where = append(where, "movie_id = ?")
		args = append(args, q.MovieID)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shows WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count shows: %w", err)
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	offset := (q.Page - 1) * q.PageSize
	argsData := append(append([]any{}, args...), q.PageSize, offset)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+showColumns+` FROM shows WHERE `+cond+` ORDER BY starts_at ASC, id ASC LIMIT ? OFFSET ?`,
		argsData...)
	if err != nil {
		return nil, 0, fmt.Errorf("search shows: %w", err)
	}
	defer rows.Close()

	out := make([]*model.Show, 0, q.PageSize)
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan show: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
