package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// ShowRepo manages persistence for shows and their seat occupancy.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo creates a ShowRepo bound to db.
func NewShowRepo(db *sql.DB) *ShowRepo { return &ShowRepo{db: db} }

const showColumns = `id, movie_id, movie_title, starts_at, price_cents, occupied_seats, version, created_at, updated_at`

// GetByID loads a show including its occupancy map and version.
func (r *ShowRepo) GetByID(ctx context.Context, id string) (*model.Show, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+showColumns+` FROM shows WHERE id = ?`, id)
	s, err := scanShow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get show %s: %w", id, err)
	}
	return s, nil
}

// ListUpcoming returns shows starting after now, soonest first.
func (r *ShowRepo) ListUpcoming(ctx context.Context, now time.Time, limit int) ([]*model.Show, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+showColumns+` FROM shows WHERE starts_at > ? ORDER BY starts_at ASC, id ASC LIMIT ?`,
		now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list shows: %w", err)
	}
	defer rows.Close()

	var out []*model.Show
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan show: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateBatch inserts shows in one transaction.  An existing show for the
// same movie and start time fails the whole batch with ErrConflict.
func (r *ShowRepo) CreateBatch(ctx context.Context, shows []*model.Show) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO shows (id, movie_id, movie_title, starts_at, price_cents, occupied_seats, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`
	for _, s := range shows {
		seats, err := encodeOccupancy(s.OccupiedSeats)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, q, s.ID, s.MovieID, s.MovieTitle, s.StartsAt.UTC(), s.PriceCents, seats, s.CreatedAt.UTC(), s.UpdatedAt.UTC()); err != nil {
			if isDuplicate(err) {
				return fmt.Errorf("show %s at %s: %w", s.MovieID, s.StartsAt.Format(time.RFC3339), ErrConflict)
			}
			return fmt.Errorf("insert show: %w", err)
		}
		s.Version = 0
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// UpdateOccupancy writes s.OccupiedSeats if the stored version still equals
// s.Version, and bumps s.Version on success.  ErrVersionConflict means a
// concurrent writer got there first; ErrShowNotFound that the row is gone.
func (r *ShowRepo) UpdateOccupancy(ctx context.Context, s *model.Show) error {
	seats, err := encodeOccupancy(s.OccupiedSeats)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE shows SET occupied_seats = ?, version = version + 1 WHERE id = ? AND version = ?`,
		seats, s.ID, s.Version)
	if err != nil {
		return fmt.Errorf("update occupancy %s: %w", s.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		s.Version++
		return nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM shows WHERE id = ?`, s.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrShowNotFound
	}
	if err != nil {
		return err
	}
	return ErrVersionConflict
}

// UpdatePrice changes the seat price for future holds.  Existing bookings
// keep the amount they were created with.
func (r *ShowRepo) UpdatePrice(ctx context.Context, id string, price model.Cents) error {
	res, err := r.db.ExecContext(ctx, `UPDATE shows SET price_cents = ? WHERE id = ?`, int64(price), id)
	if err != nil {
		return fmt.Errorf("update price %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 for an unchanged value too, so confirm the row exists.
		var exists int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM shows WHERE id = ?`, id).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrShowNotFound
			}
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShow(sc rowScanner) (*model.Show, error) {
	var (
		s     model.Show
		seats []byte
	)
	if err := sc.Scan(&s.ID, &s.MovieID, &s.MovieTitle, &s.StartsAt, &s.PriceCents, &seats, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.OccupiedSeats = map[string]string{}
	if len(seats) > 0 {
		if err := json.Unmarshal(seats, &s.OccupiedSeats); err != nil {
			return nil, fmt.Errorf("decode occupied_seats: %w", err)
		}
		if s.OccupiedSeats == nil {
			s.OccupiedSeats = map[string]string{}
		}
	}
	return &s, nil
}

func encodeOccupancy(m map[string]string) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}
