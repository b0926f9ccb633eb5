package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/regconline/afrilearn/internal/models"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so repositories can run
// inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, email, phone, password_hash, first_name, last_name, role,
	language_preference, country, city, timezone, is_verified, is_active,
	last_login_at, created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row, user *models.User) error {
	return row.Scan(
		&user.ID,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.Language,
		&user.Country,
		&user.City,
		&user.Timezone,
		&user.IsVerified,
		&user.IsActive,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := fmt.Sprintf(`
		INSERT INTO users (email, phone, password_hash, first_name, last_name, role, language_preference)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s
	`, userColumns)
	return scanUser(r.db.QueryRow(
		ctx,
		query,
		user.Email,
		user.Phone,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
		user.Language,
	), user)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	var user models.User
	if err := scanUser(r.db.QueryRow(ctx, query, email), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE phone = $1`, userColumns)
	var user models.User
	if err := scanUser(r.db.QueryRow(ctx, query, phone), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	var user models.User
	if err := scanUser(r.db.QueryRow(ctx, query, id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

type UpdateUserInput struct {
	FirstName    *string
	LastName     *string
	Phone        *string
	PasswordHash *string
	Language     *string
	Country      *string
	City         *string
	Timezone     *string
}

func (r *UserRepository) UpdateUser(ctx context.Context, id int64, input UpdateUserInput) (*models.User, error) {
	setParts := []string{"updated_at = NOW()"}
	args := []any{id}

	addSet := func(column string, value any) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if input.FirstName != nil {
		addSet("first_name", *input.FirstName)
	}
	if input.LastName != nil {
		addSet("last_name", *input.LastName)
	}
	if input.Phone != nil {
		addSet("phone", *input.Phone)
	}
	if input.PasswordHash != nil {
		addSet("password_hash", *input.PasswordHash)
	}
	if input.Language != nil {
		addSet("language_preference", *input.Language)
	}
	if input.Country != nil {
		addSet("country", *input.Country)
	}
	if input.City != nil {
		addSet("city", *input.City)
	}
	if input.Timezone != nil {
		addSet("timezone", *input.Timezone)
	}

	query := fmt.Sprintf(`
		UPDATE users
		SET %s
		WHERE id = $1
		RETURNING %s
	`, strings.Join(setParts, ", "), userColumns)

	var user models.User
	if err := scanUser(r.db.QueryRow(ctx, query, args...), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *UserRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
