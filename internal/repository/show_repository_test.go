package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/model"
)

var showCols = []string{"id", "movie_id", "movie_title", "starts_at", "price_cents", "occupied_seats", "version", "created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestShowRepo_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)
	start := time.Date(2026, 11, 1, 19, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM shows WHERE id = ?")).
		WithArgs("show-1").
		WillReturnRows(sqlmock.NewRows(showCols).
			AddRow("show-1", "m-1", "Dune", start, int64(1500), []byte(`{"A1":"b-1"}`), int64(3), start, start))

	s, err := repo.GetByID(context.Background(), "show-1")
	require.NoError(t, err)
	assert.Equal(t, "Dune", s.MovieTitle)
	assert.Equal(t, model.Cents(1500), s.PriceCents)
	assert.Equal(t, int64(3), s.Version)
	assert.Equal(t, map[string]string{"A1": "b-1"}, s.OccupiedSeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)

	mock.ExpectQuery("FROM shows WHERE id").WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestShowRepo_GetByID_EmptyOccupancy(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM shows WHERE id").
		WillReturnRows(sqlmock.NewRows(showCols).AddRow("s", "m", "t", now, int64(0), []byte(`null`), int64(0), now, now))

	s, err := repo.GetByID(context.Background(), "s")
	require.NoError(t, err)
	assert.NotNil(t, s.OccupiedSeats)
	assert.Empty(t, s.OccupiedSeats)
}

func TestShowRepo_UpdateOccupancy_BumpsVersion(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)
	s := &model.Show{ID: "show-1", Version: 4, OccupiedSeats: map[string]string{"B2": "b-9"}}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE shows SET occupied_seats = ?, version = version + 1 WHERE id = ? AND version = ?")).
		WithArgs([]byte(`{"B2":"b-9"}`), "show-1", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateOccupancy(context.Background(), s))
	assert.Equal(t, int64(5), s.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepo_UpdateOccupancy_Conflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)
	s := &model.Show{ID: "show-1", Version: 4, OccupiedSeats: map[string]string{}}

	mock.ExpectExec("UPDATE shows SET occupied_seats").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM shows WHERE id = ?")).
		WithArgs("show-1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	err := repo.UpdateOccupancy(context.Background(), s)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, int64(4), s.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepo_UpdateOccupancy_Gone(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)

	mock.ExpectExec("UPDATE shows SET occupied_seats").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM shows").WillReturnError(sql.ErrNoRows)

	err := repo.UpdateOccupancy(context.Background(), &model.Show{ID: "x"})
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestShowRepo_CreateBatch_DuplicateRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)
	at := time.Date(2026, 12, 24, 20, 0, 0, 0, time.UTC)
	shows := []*model.Show{
		{ID: "s1", MovieID: "m", StartsAt: at, PriceCents: 900},
		{ID: "s2", MovieID: "m", StartsAt: at, PriceCents: 900},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO shows").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO shows").WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	err := repo.CreateBatch(context.Background(), shows)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepo_CreateBatch_Commits(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)
	at := time.Date(2026, 12, 24, 20, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO shows").
		WithArgs("s1", "m", "Alien", at, int64(900), []byte("{}"), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CreateBatch(context.Background(), []*model.Show{{ID: "s1", MovieID: "m", MovieTitle: "Alien", StartsAt: at, PriceCents: 900}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepo_ListUpcoming(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE starts_at > ? ORDER BY starts_at ASC")).
		WithArgs(now, 50).
		WillReturnRows(sqlmock.NewRows(showCols).
			AddRow("a", "m1", "One", now.Add(time.Hour), int64(1000), []byte(`{}`), int64(0), now, now).
			AddRow("b", "m2", "Two", now.Add(2*time.Hour), int64(1200), []byte(`{"A1":"x"}`), int64(1), now, now))

	shows, err := repo.ListUpcoming(context.Background(), now, 50)
	require.NoError(t, err)
	require.Len(t, shows, 2)
	assert.Equal(t, "b", shows[1].ID)
	assert.Equal(t, []string{"A1"}, shows[1].OccupiedLabels())
}

func TestShowRepo_UpdatePrice_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)

	mock.ExpectExec("UPDATE shows SET price_cents").WithArgs(int64(2000), "x").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM shows").WithArgs("x").WillReturnError(sql.ErrNoRows)

	assert.ErrorIs(t, repo.UpdatePrice(context.Background(), "x", 2000), ErrShowNotFound)
}
