package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Eyad010/postfeed/internal/common"
	"github.com/Eyad010/postfeed/internal/dbx"
	"github.com/Eyad010/postfeed/internal/server/models"
)

const userColumns = `id, name, email, phone, photo, password_hash, password_changed_at,
		 password_reset_code_hash, password_reset_expires_at, password_reset_verified, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u         models.User
		changedAt sql.NullTime
		codeHash  sql.NullString
		expiresAt sql.NullTime
	)

	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Photo, &u.PasswordHash, &changedAt,
		&codeHash, &expiresAt, &u.PasswordResetVerified, &u.CreatedAt)
	if err != nil {
		return nil, err
	}

	if changedAt.Valid {
		t := changedAt.Time
		u.PasswordChangedAt = &t
	}
	u.PasswordResetCodeHash = codeHash.String
	if expiresAt.Valid {
		t := expiresAt.Time
		u.PasswordResetExpiresAt = &t
	}

	return &u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (name, email, phone, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Name, user.Email, user.Phone, user.PasswordHash).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidInput(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + `
		 FROM users
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + `
		 FROM users
		 WHERE lower(email) = lower($1)
		 `
	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.User, error) {
	query :=
		`SELECT ` + userColumns + `
		 FROM users
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, name, phone *string) (*models.User, error) {
	query :=
		`UPDATE users
		 SET name = COALESCE($2, name), phone = COALESCE($3, phone)
		 WHERE id = $1
		 RETURNING ` + userColumns + `
		 `
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id, name, phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidInput(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// exec runs a single-row update and reports ErrorNotFound when nothing matched.
func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if dbx.IsInvalidInput(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdatePhoto(ctx context.Context, id, url string) error {
	query :=
		`UPDATE users SET photo = $2
		 WHERE id = $1
		 `
	return r.exec(ctx, query, id, url)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	query :=
		`UPDATE users
		 SET password_hash = $2, password_changed_at = $3,
		     password_reset_code_hash = NULL, password_reset_expires_at = NULL, password_reset_verified = false
		 WHERE id = $1
		 `
	return r.exec(ctx, query, id, hash, changedAt)
}

func (r *PostgresRepository) SetResetCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error {
	query :=
		`UPDATE users
		 SET password_reset_code_hash = $2, password_reset_expires_at = $3, password_reset_verified = false
		 WHERE id = $1
		 `
	return r.exec(ctx, query, id, codeHash, expiresAt)
}

func (r *PostgresRepository) ClearResetCode(ctx context.Context, id string) error {
	query :=
		`UPDATE users
		 SET password_reset_code_hash = NULL, password_reset_expires_at = NULL, password_reset_verified = false
		 WHERE id = $1
		 `
	return r.exec(ctx, query, id)
}

func (r *PostgresRepository) MarkResetVerified(ctx context.Context, email, codeHash string, now time.Time) (string, error) {
	query :=
		`UPDATE users SET password_reset_verified = true
		 WHERE lower(email) = lower($1) AND password_reset_code_hash = $2 AND password_reset_expires_at > $3
		 RETURNING id
		 `

	var id string
	err := r.db.QueryRowContext(ctx, query, email, codeHash, now).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	return id, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM users WHERE id = $1`, id)
}
