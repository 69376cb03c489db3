package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"

	"github.com/google/uuid"
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser stores an already hashed password; it never hashes on its own.
func (r *UserRepository) CreateUser(ctx context.Context, user *entity.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(user.Email)
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	query := `INSERT INTO users (id, email, password_hash, first_name, last_name, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.Role, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isDuplicateEntry(err) {
			return apperror.ErrEmailTaken.Wrap(err)
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getUser(ctx, `WHERE id = ?`, id)
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getUser(ctx, `WHERE email = ?`, strings.ToLower(email))
}

const userColumns = `id, email, password_hash, first_name, last_name, role, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*entity.User, error) {
	user := &entity.User{}
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName, &user.Role,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) getUser(ctx context.Context, where string, arg interface{}) (*entity.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrUserNotFound
	}
	return user, err
}

// ListUsers pages through users newest first.
func (r *UserRepository) ListUsers(ctx context.Context, page Page) ([]entity.User, int, error) {
	page = page.Normalize()

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []entity.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}
	return users, total, rows.Err()
}

func (r *UserRepository) UpdateUser(ctx context.Context, user *entity.User) error {
	user.Email = strings.ToLower(user.Email)
	user.UpdatedAt = time.Now().UTC()

	query := `UPDATE users SET email = ?, password_hash = ?, first_name = ?, last_name = ?, role = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Role,
		user.UpdatedAt, user.ID)
	if err != nil {
		if isDuplicateEntry(err) {
			return apperror.ErrEmailTaken.Wrap(err)
		}
		return err
	}
	return expectAffected(res, apperror.ErrUserNotFound)
}

// DeleteUser cascades to the user's cart, todos and reviews through the schema;
// orders keep a RESTRICT key so their history survives.
func (r *UserRepository) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.ErrUserHasOrders.Wrap(err)
		}
		return err
	}
	return expectAffected(res, apperror.ErrUserNotFound)
}
