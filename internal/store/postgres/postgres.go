// Package postgres implements the tracking store on PostgreSQL, for
// deployments that prefer a transactional database over the file snapshot.
// Schema management goes through goose with embedded migrations.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const pgUniqueViolation = "23505"

// gooseUpContext is a seam for testing RunMigrations.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Store is a PostgreSQL implementation of store.Store. Single-statement
// commits give the required atomicity; the database is the sole writer of
// its backing medium.
type Store struct {
	db dbx.DBTX
}

// New returns a Store bound to the given DBTX.
func New(db dbx.DBTX) *Store {
	return &Store{db: db}
}

// Open connects to the DSN, verifies the connection and applies migrations.
func Open(ctx context.Context, dsn string) (*Store, *sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open: %v", common.ErrStoreIO, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("%w: ping: %v", common.ErrStoreIO, err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("%w: migrate: %v", common.ErrStoreIO, err)
	}
	return New(db), db, nil
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, "migrations")
}

func (s *Store) Insert(ctx context.Context, account *models.Account) error {
	query := `INSERT INTO accounts (username, secret, expiry, status, created_at)
	          VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query,
		account.Username, account.Secret, account.Expiry.String(),
		string(account.Status), account.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("insert %s: %w", account.Username, common.ErrAlreadyExists)
		}
		return fmt.Errorf("%w: insert: %v", common.ErrStoreIO, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT username, secret, expiry, status, created_at
	          FROM accounts WHERE username = $1`

	row := s.db.QueryRowContext(ctx, query, username)

	a, err := scanAccount(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get %s: %w", username, common.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: get: %v", common.ErrStoreIO, err)
	}
	return a, nil
}

func (s *Store) Replace(ctx context.Context, account *models.Account) error {
	query := `UPDATE accounts SET secret = $2, expiry = $3, status = $4, created_at = $5
	          WHERE username = $1`

	res, err := s.db.ExecContext(ctx, query,
		account.Username, account.Secret, account.Expiry.String(),
		string(account.Status), account.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: replace: %v", common.ErrStoreIO, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: replace: %v", common.ErrStoreIO, err)
	}
	if ra == 0 {
		return fmt.Errorf("replace %s: %w", account.Username, common.ErrNotFound)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("%w: delete: %v", common.ErrStoreIO, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete: %v", common.ErrStoreIO, err)
	}
	if ra == 0 {
		return fmt.Errorf("delete %s: %w", username, common.ErrNotFound)
	}
	return nil
}

func (s *Store) ListAll(ctx context.Context) ([]models.Account, error) {
	query := `SELECT username, secret, expiry, status, created_at
	          FROM accounts ORDER BY created_at, username`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", common.ErrStoreIO, err)
	}
	defer rows.Close()

	var result []models.Account
	for rows.Next() {
		a, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w: list scan: %v", common.ErrStoreIO, err)
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list rows: %v", common.ErrStoreIO, err)
	}
	return result, nil
}

func scanAccount(scan func(dest ...any) error) (*models.Account, error) {
	var (
		a      models.Account
		expiry string
		status string
	)
	if err := scan(&a.Username, &a.Secret, &expiry, &status, &a.CreatedAt); err != nil {
		return nil, err
	}

	exp, err := models.ParseExpiry(expiry)
	if err != nil {
		return nil, err
	}
	a.Expiry = exp
	a.Status = models.Status(status)
	return &a, nil
}
