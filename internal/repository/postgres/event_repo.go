package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ticketinventory/internal/domain"
)

const eventColumns = `id, name, start_date, end_date, capacity, retired, venue, description, category, created_at, updated_at`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	err := row.Scan(
		&e.ID, &e.Name, &e.StartDate, &e.EndDate, &e.Capacity, &e.Retired,
		&e.Venue, &e.Description, &e.Category, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (name, start_date, end_date, capacity, retired, venue, description, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := conn(ctx, r.DB).QueryRowContext(ctx, query,
		e.Name, e.StartDate, e.EndDate, e.Capacity, e.Retired, e.Venue, e.Description, e.Category, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(conn(ctx, r.DB).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || hasCode(err, codeInvalidTextRepr) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) GetByName(ctx context.Context, name string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE name = $1`
	e, err := scanEvent(conn(ctx, r.DB).QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, int, error) {
	var where []string
	var args []any
	n := 1
	if !filter.IncludeRetired {
		where = append(where, "retired = FALSE")
	}
	if filter.Category != "" {
		where = append(where, fmt.Sprintf("category = $%d", n))
		args = append(args, filter.Category)
		n++
	}
	if filter.Query != "" {
		where = append(where, fmt.Sprintf("name ILIKE $%d", n))
		args = append(args, "%"+filter.Query+"%")
		n++
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	q := conn(ctx, r.DB)
	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM events `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + eventColumns + ` FROM events ` + whereSQL + ` ORDER BY start_date ASC, name ASC`
	if filter.Pagination.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", n, n+1)
		args = append(args, filter.Pagination.PageSize, filter.Pagination.Offset())
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	query := `
		UPDATE events
		SET name = $1, start_date = $2, end_date = $3, capacity = $4, retired = $5,
		    venue = $6, description = $7, category = $8, updated_at = $9
		WHERE id = $10
	`
	result, err := conn(ctx, r.DB).ExecContext(ctx, query,
		e.Name, e.StartDate, e.EndDate, e.Capacity, e.Retired, e.Venue, e.Description, e.Category, e.UpdatedAt, e.ID,
	)
	if err != nil {
		if hasCode(err, codeInvalidTextRepr) {
			return domain.ErrNotFound
		}
		return mapWriteError(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mapWriteError(err error) error {
	switch {
	case hasCode(err, codeUniqueViolation):
		return domain.ErrConflict
	case hasCode(err, codeCheckViolation):
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	case hasCode(err, codeForeignKeyViolation):
		return domain.ErrNotFound
	}
	return classifyTxError(err)
}
