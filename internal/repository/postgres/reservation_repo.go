package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ticketinventory/internal/domain"
)

const reservationColumns = `id, event_id, user_id, quantity, status, created_at, cancelled_at`

type reservationRepository struct {
	DB *sql.DB
}

func NewReservationRepository(db *sql.DB) domain.ReservationRepository {
	return &reservationRepository{
		DB: db,
	}
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	var cancelledAt sql.NullTime
	var status string
	if err := row.Scan(&res.ID, &res.EventID, &res.UserID, &res.Quantity, &status, &res.CreatedAt, &cancelledAt); err != nil {
		return nil, err
	}
	res.Status = domain.ReservationStatus(status)
	if cancelledAt.Valid {
		res.CancelledAt = &cancelledAt.Time
	}
	return res, nil
}

func (r *reservationRepository) Insert(ctx context.Context, res *domain.Reservation) error {
	query := `
		INSERT INTO reservations (event_id, user_id, quantity, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, res.EventID, res.UserID, res.Quantity, string(res.Status), res.CreatedAt).
		Scan(&res.ID)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *reservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	res, err := scanReservation(conn(ctx, r.DB).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || hasCode(err, codeInvalidTextRepr) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return res, nil
}

func (r *reservationRepository) SetStatus(ctx context.Context, id string, status domain.ReservationStatus, at time.Time) error {
	var cancelledAt sql.NullTime
	if status == domain.ReservationStatusCancelled {
		cancelledAt = sql.NullTime{Time: at, Valid: true}
	}
	query := `UPDATE reservations SET status = $1, cancelled_at = $2 WHERE id = $3`
	result, err := conn(ctx, r.DB).ExecContext(ctx, query, string(status), cancelledAt, id)
	if err != nil {
		if hasCode(err, codeInvalidTextRepr) {
			return domain.ErrNotFound
		}
		return classifyTxError(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *reservationRepository) SumQuantityByEventAndStatus(ctx context.Context, eventID string, status domain.ReservationStatus) (int, error) {
	query := `SELECT COALESCE(SUM(quantity), 0) FROM reservations WHERE event_id = $1 AND status = $2`
	var total int
	if err := conn(ctx, r.DB).QueryRowContext(ctx, query, eventID, string(status)).Scan(&total); err != nil {
		if hasCode(err, codeInvalidTextRepr) {
			return 0, domain.ErrNotFound
		}
		return 0, classifyTxError(fmt.Errorf("sum reservations: %w", err))
	}
	return total, nil
}

func (r *reservationRepository) List(ctx context.Context, filter domain.ReservationFilter) ([]*domain.Reservation, int, error) {
	var where []string
	var args []any
	n := 1
	if filter.UserID != "" {
		where = append(where, fmt.Sprintf("user_id = $%d", n))
		args = append(args, filter.UserID)
		n++
	}
	if filter.EventID != "" {
		where = append(where, fmt.Sprintf("event_id = $%d", n))
		args = append(args, filter.EventID)
		n++
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", n))
		args = append(args, string(filter.Status))
		n++
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	q := conn(ctx, r.DB)
	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations `+whereSQL, args...).Scan(&total); err != nil {
		if hasCode(err, codeInvalidTextRepr) {
			return []*domain.Reservation{}, 0, nil
		}
		return nil, 0, err
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations ` + whereSQL + ` ORDER BY created_at DESC, id ASC`
	if filter.Pagination.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", n, n+1)
		args = append(args, filter.Pagination.PageSize, filter.Pagination.Offset())
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reservations := make([]*domain.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, 0, err
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return reservations, total, nil
}
