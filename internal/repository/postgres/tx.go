package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"

	"ticketinventory/internal/domain"
)

// SQLSTATE codes the repositories react to.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeForeignKeyViolation  = "23503"
	codeInvalidTextRepr      = "22P02"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

type txKey struct{}

// querier is the subset of *sql.DB and *sql.Tx the repositories use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// conn returns the transaction carried by ctx, or db when there is none.
func conn(ctx context.Context, db *sql.DB) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

type inventoryLocker struct {
	DB          *sql.DB
	lockTimeout time.Duration
}

// NewInventoryLocker returns an InventoryLocker that serialises admission per event by
// holding the event's row lock (SELECT ... FOR UPDATE) for the length of a transaction.
// Concurrent transactions on the same event queue behind the lock; other events are
// unaffected. lockTimeout bounds the wait; zero means the server default.
func NewInventoryLocker(db *sql.DB, lockTimeout time.Duration) domain.InventoryLocker {
	return &inventoryLocker{DB: db, lockTimeout: lockTimeout}
}

func (l *inventoryLocker) WithEventLock(ctx context.Context, eventID string, fn func(ctx context.Context) error) error {
	if tx := txFromContext(ctx); tx != nil {
		if err := lockEventRow(ctx, tx, eventID); err != nil {
			return err
		}
		return fn(ctx)
	}

	tx, err := l.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if l.lockTimeout > 0 {
		ms := strconv.FormatInt(l.lockTimeout.Milliseconds(), 10)
		if _, err := tx.ExecContext(ctx, `SELECT set_config('lock_timeout', $1, true)`, ms+"ms"); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}
	if err := lockEventRow(ctx, tx, eventID); err != nil {
		_ = tx.Rollback()
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return classifyTxError(err)
	}
	if err := tx.Commit(); err != nil {
		return classifyTxError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func lockEventRow(ctx context.Context, tx *sql.Tx, eventID string) error {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || hasCode(err, codeInvalidTextRepr) {
			return domain.ErrNotFound
		}
		return classifyTxError(fmt.Errorf("lock event: %w", err))
	}
	return nil
}

// classifyTxError marks errors caused by concurrent writers as ErrWriteConflict so the
// services can retry them.
func classifyTxError(err error) error {
	if hasCode(err, codeSerializationFailure) || hasCode(err, codeDeadlockDetected) || hasCode(err, codeLockNotAvailable) {
		return fmt.Errorf("%w: %v", domain.ErrWriteConflict, err)
	}
	return err
}

func hasCode(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}
