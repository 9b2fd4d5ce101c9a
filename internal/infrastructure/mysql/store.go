package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"auction-marketplace/internal/domain"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type Store struct {
	db        *sql.DB
	isolation sql.IsolationLevel
}

func NewStore(db *sql.DB, isolation sql.IsolationLevel) *Store {
	return &Store{db: db, isolation: isolation}
}

// ParseIsolationLevel maps the config name to a database/sql isolation level.
func ParseIsolationLevel(name string) (sql.IsolationLevel, error) {
	switch name {
	case "read_committed":
		return sql.LevelReadCommitted, nil
	case "repeatable_read", "":
		return sql.LevelRepeatableRead, nil
	case "serializable":
		return sql.LevelSerializable, nil
	default:
		return sql.LevelDefault, fmt.Errorf("unsupported isolation level %q", name)
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: s.isolation})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, RepositoriesFor(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// RepositoriesFor binds every repository to the same connection or transaction.
func RepositoriesFor(db DBTX) domain.Repositories {
	return domain.Repositories{
		Listings:        NewMySQLListingRepository(db),
		Bids:            NewMySQLBidRepository(db),
		Tasks:           NewMySQLSchedulerRepository(db),
		PaymentProfiles: NewMySQLPaymentProfileRepository(db),
		Settlements:     NewMySQLSettlementRepository(db),
	}
}
