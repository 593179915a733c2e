package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"ticketinventory/internal/domain"
)

var reservationRowColumns = []string{"id", "event_id", "user_id", "quantity", "status", "created_at", "cancelled_at"}

func TestReservationRepository_Insert(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantID  string
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO reservations \(event_id, user_id, quantity, status, created_at\)`).
					WithArgs("ev-1", "u-1", 2, "Booked", t0).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("res-1"))
			},
			wantID: "res-1",
		},
		{
			name: "unknown event",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO reservations`).
					WillReturnError(&pq.Error{Code: "23503"})
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "serialization failure",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO reservations`).
					WillReturnError(&pq.Error{Code: "40001"})
			},
			wantErr: domain.ErrWriteConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			res := domain.NewReservation("ev-1", "u-1", 2, t0)
			err = NewReservationRepository(db).Insert(ctx, res)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantID, res.ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestReservationRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("cancelled reservation carries cancelled_at", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, event_id, user_id, quantity, status, created_at, cancelled_at FROM reservations WHERE id = \$1`).
			WithArgs("res-1").
			WillReturnRows(sqlmock.NewRows(reservationRowColumns).AddRow("res-1", "ev-1", "u-1", 3, "Cancelled", t0, t1))

		got, err := NewReservationRepository(db).GetByID(ctx, "res-1")
		require.NoError(t, err)
		require.Equal(t, domain.ReservationStatusCancelled, got.Status)
		require.NotNil(t, got.CancelledAt)
		require.Equal(t, t1, *got.CancelledAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM reservations WHERE id = \$1`).
			WithArgs("res-missing").
			WillReturnError(sql.ErrNoRows)

		got, err := NewReservationRepository(db).GetByID(ctx, "res-missing")
		require.True(t, errors.Is(err, domain.ErrNotFound))
		require.Nil(t, got)
	})
}

func TestReservationRepository_SetStatus(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		result  driver.Result
		wantErr error
	}{
		{name: "success", result: sqlmock.NewResult(0, 1)},
		{name: "not found", result: sqlmock.NewResult(0, 0), wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectExec(`UPDATE reservations SET status = \$1, cancelled_at = \$2 WHERE id = \$3`).
				WithArgs("Cancelled", sqlmock.AnyArg(), "res-1").
				WillReturnResult(tt.result)

			err = NewReservationRepository(db).SetStatus(ctx, "res-1", domain.ReservationStatusCancelled, t1)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestReservationRepository_SumQuantityByEventAndStatus(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		want    int
		wantErr bool
	}{
		{
			name: "sums booked",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT COALESCE\(SUM\(quantity\), 0\) FROM reservations WHERE event_id = \$1 AND status = \$2`).
					WithArgs("ev-1", "Booked").
					WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(7))
			},
			want: 7,
		},
		{
			name: "no rows sums to zero",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT COALESCE\(SUM\(quantity\), 0\)`).
					WithArgs("ev-1", "Booked").
					WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(0))
			},
			want: 0,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT COALESCE\(SUM\(quantity\), 0\)`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			got, err := NewReservationRepository(db).SumQuantityByEventAndStatus(ctx, "ev-1", domain.ReservationStatusBooked)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestReservationRepository_List(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM reservations WHERE user_id = \$1 AND status = \$2`).
		WithArgs("u-1", "Booked").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`FROM reservations WHERE user_id = \$1 AND status = \$2 ORDER BY created_at DESC, id ASC LIMIT \$3 OFFSET \$4`).
		WithArgs("u-1", "Booked", 2, 0).
		WillReturnRows(sqlmock.NewRows(reservationRowColumns).
			AddRow("res-2", "ev-1", "u-1", 1, "Booked", t1, nil).
			AddRow("res-1", "ev-2", "u-1", 4, "Booked", t0, nil))

	got, total, err := NewReservationRepository(db).List(ctx, domain.ReservationFilter{
		UserID:     "u-1",
		Status:     domain.ReservationStatusBooked,
		Pagination: domain.PaginationParams{Page: 1, PageSize: 2},
	})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, got, 2)
	require.Equal(t, "res-2", got[0].ID)
	require.Nil(t, got[0].CancelledAt)
	require.NoError(t, mock.ExpectationsWereMet())
}
