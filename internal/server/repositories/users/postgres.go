package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/chirper/internal/common"
	"github.com/dmitrijs2005/chirper/internal/dbx"
	"github.com/dmitrijs2005/chirper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const userColumns = `id, first_name, last_name, email, password_hash, email_verified, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (first_name, last_name, email, password_hash, email_verified)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.FirstName, user.LastName, user.Email, user.PasswordHash, user.EmailVerified).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 `
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE lower(email) = lower($1)
		 `
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// Update applies upd to the user row under a row lock. When the repository
// is bound to a *sql.DB the read and write run in their own transaction;
// when it is already bound to a transaction, that one is used.
func (r *PostgresRepository) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	db, ok := r.db.(*sql.DB)
	if !ok {
		return update(ctx, r.db, id, upd)
	}

	var user *models.User
	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		user, err = update(ctx, tx, id, upd)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func update(ctx context.Context, db dbx.DBTX, id string, upd models.UserUpdate) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 FOR UPDATE
		 `
	user, err := scanUser(db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	upd.Apply(user)

	query =
		`UPDATE users
		 SET first_name = $2, last_name = $3, password_hash = $4, email_verified = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `
	err = db.QueryRowContext(ctx, query,
		user.ID, user.FirstName, user.LastName, user.PasswordHash, user.EmailVerified).Scan(&user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email,
		&user.PasswordHash, &user.EmailVerified, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}
