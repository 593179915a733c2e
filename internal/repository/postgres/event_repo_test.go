package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"ticketinventory/internal/domain"
)

var eventRowColumns = []string{"id", "name", "start_date", "end_date", "capacity", "retired", "venue", "description", "category", "created_at", "updated_at"}

var (
	t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
)

func TestEventRepository_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		event    *domain.Event
		mock     func(mock sqlmock.Sqlmock)
		wantID   string
		wantErr  error
		anyError bool
	}{
		{
			name:  "success",
			event: &domain.Event{Name: "Conf 2025", StartDate: t0, EndDate: t1, Capacity: 100, Venue: "Hall A", CreatedAt: t0, UpdatedAt: t0},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO events \(name, start_date, end_date, capacity, retired, venue, description, category, created_at, updated_at\)`).
					WithArgs("Conf 2025", t0, t1, 100, false, "Hall A", "", "", t0, t0).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-uuid-1"))
			},
			wantID: "ev-uuid-1",
		},
		{
			name:  "duplicate name",
			event: &domain.Event{Name: "Conf 2025", StartDate: t0, EndDate: t1, Capacity: 100, CreatedAt: t0, UpdatedAt: t0},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO events`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: domain.ErrConflict,
		},
		{
			name:  "check constraint",
			event: &domain.Event{Name: "Zero", StartDate: t0, EndDate: t1, Capacity: 0, CreatedAt: t0, UpdatedAt: t0},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO events`).
					WillReturnError(&pq.Error{Code: "23514"})
			},
			wantErr: domain.ErrValidation,
		},
		{
			name:  "db error",
			event: &domain.Event{Name: "Conf", StartDate: t0, EndDate: t1, Capacity: 1},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO events`).
					WillReturnError(sql.ErrConnDone)
			},
			anyError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewEventRepository(db)
			err = repo.Create(ctx, tt.event)
			if tt.wantErr != nil || tt.anyError {
				require.Error(t, err)
				if tt.wantErr != nil {
					require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantID, tt.event.ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		id      string
		mock    func(mock sqlmock.Sqlmock)
		want    *domain.Event
		wantErr error
	}{
		{
			name: "success",
			id:   "ev-1",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, name, start_date, end_date, capacity, retired`).
					WithArgs("ev-1").
					WillReturnRows(sqlmock.NewRows(eventRowColumns).
						AddRow("ev-1", "Conf", t0, t1, 10, false, "Hall", "", "tech", t0, t0))
			},
			want: &domain.Event{ID: "ev-1", Name: "Conf", StartDate: t0, EndDate: t1, Capacity: 10, Venue: "Hall", Category: "tech", CreatedAt: t0, UpdatedAt: t0},
		},
		{
			name: "not found",
			id:   "ev-missing",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, name, start_date`).
					WithArgs("ev-missing").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "malformed id",
			id:   "not-a-uuid",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, name, start_date`).
					WithArgs("not-a-uuid").
					WillReturnError(&pq.Error{Code: "22P02"})
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewEventRepository(db)
			got, err := repo.GetByID(ctx, tt.id)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				require.Nil(t, got)
				require.NoError(t, mock.ExpectationsWereMet())
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_List(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		filter    domain.EventFilter
		mock      func(mock sqlmock.Sqlmock)
		wantNames []string
		wantTotal int
		wantErr   bool
	}{
		{
			name:   "default hides retired and pages",
			filter: domain.EventFilter{Pagination: domain.PaginationParams{Page: 2, PageSize: 1}},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT COUNT\(\*\) FROM events WHERE retired = FALSE`).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
				mock.ExpectQuery(`SELECT id, name, .* FROM events WHERE retired = FALSE ORDER BY start_date ASC, name ASC LIMIT \$1 OFFSET \$2`).
					WithArgs(1, 1).
					WillReturnRows(sqlmock.NewRows(eventRowColumns).
						AddRow("ev-2", "Conf B", t1, t1, 5, false, "", "", "", t0, t0))
			},
			wantNames: []string{"Conf B"},
			wantTotal: 2,
		},
		{
			name:   "category and query with retired",
			filter: domain.EventFilter{IncludeRetired: true, Category: "music", Query: "jazz"},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT COUNT\(\*\) FROM events WHERE category = \$1 AND name ILIKE \$2`).
					WithArgs("music", "%jazz%").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
				mock.ExpectQuery(`FROM events WHERE category = \$1 AND name ILIKE \$2 ORDER BY`).
					WithArgs("music", "%jazz%").
					WillReturnRows(sqlmock.NewRows(eventRowColumns))
			},
			wantNames: []string{},
			wantTotal: 0,
		},
		{
			name:   "db error",
			filter: domain.EventFilter{},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT COUNT\(\*\) FROM events`).
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
			repo := NewEventRepository(db)
			got, total, err := repo.List(ctx, tt.filter)
			if tt.wantErr {
				require.Error(t, err)
				require.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantTotal, total)
			names := make([]string, 0, len(got))
			for _, e := range got {
				names = append(names, e.Name)
			}
			require.Equal(t, tt.wantNames, names)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_Update(t *testing.T) {
	ctx := context.Background()
	event := &domain.Event{ID: "ev-1", Name: "Conf", StartDate: t0, EndDate: t1, Capacity: 8, UpdatedAt: t1}

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE events`).
					WithArgs("Conf", t0, t1, 8, false, "", "", "", t1, "ev-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "not found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE events`).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "rename collides",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE events`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: domain.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			err = NewEventRepository(db).Update(ctx, event)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
