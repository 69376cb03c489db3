package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type SQLStore struct {
	db *sql.DB
	sqlScope
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, sqlScope: sqlScope{db: db}}
}

type sqlScope struct {
	db DBTX
}

func (s sqlScope) Products() ProductStore    { return &ProductRepository{db: s.db} }
func (s sqlScope) Carts() CartStore          { return &CartRepository{db: s.db} }
func (s sqlScope) Orders() OrderStore        { return &OrderRepository{db: s.db} }
func (s sqlScope) Users() UserStore          { return &UserRepository{db: s.db} }
func (s sqlScope) Todos() TodoStore          { return &TodoRepository{db: s.db} }
func (s sqlScope) Categories() CategoryStore { return &CategoryRepository{db: s.db} }
func (s sqlScope) Reviews() ReviewStore      { return &ReviewRepository{db: s.db} }

func (s *SQLStore) ExecTx(ctx context.Context, fn func(tx Scope) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(sqlScope{db: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error().Err(rbErr).Msg("Error rolling back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const (
	mysqlDuplicateEntry = 1062
	// parent row still referenced
	mysqlRowIsReferenced = 1451
	// child row points at a missing parent
	mysqlNoReferencedRow = 1452
)

func isDuplicateEntry(err error) bool {
	return mysqlErrorNumber(err) == mysqlDuplicateEntry
}

func isForeignKeyViolation(err error) bool {
	n := mysqlErrorNumber(err)
	return n == mysqlRowIsReferenced || n == mysqlNoReferencedRow
}

func mysqlErrorNumber(err error) uint16 {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number
	}
	return 0
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
