package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/ErlanBelekov/authgate/internal/domain"
	"github.com/ErlanBelekov/authgate/internal/repository"
)

const userColumns = `id, email, password_hash, role, is_email_verified, deleted_at, created_at, updated_at`

type UserRepository struct {
	db DB
}

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL`,
		email,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, wrapLookup(err, "find user by email")
	}
	return u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, wrapLookup(err, "find user by id", "id", id)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, input repository.CreateUserInput) (*domain.User, error) {
	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, role, is_email_verified)
		VALUES ($1, $2, $3, FALSE)
		RETURNING `+userColumns,
		input.Email, input.PasswordHash, string(role),
	)
	u, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, oops.Code("USER_CREATE_CONFLICT").Wrap(domain.ErrUserAlreadyExists)
		}
		return nil, oops.Code("USER_CREATE_FAILED").With("operation", "insert user").Wrap(err)
	}
	return u, nil
}

func (r *UserRepository) Update(ctx context.Context, id int64, input repository.UpdateUserInput) (*domain.User, error) {
	var role *string
	if input.Role != nil {
		s := string(*input.Role)
		role = &s
	}

	row := r.db.QueryRow(ctx, `
		UPDATE users
		SET email             = COALESCE($2, email),
		    is_email_verified = CASE
		                            WHEN $2::text IS NOT NULL AND LOWER($2::text) <> LOWER(email) THEN FALSE
		                            ELSE is_email_verified
		                        END,
		    password_hash     = COALESCE($3, password_hash),
		    role              = COALESCE($4, role),
		    updated_at        = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+userColumns,
		id, input.Email, input.PasswordHash, role,
	)
	u, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, oops.Code("USER_UPDATE_CONFLICT").With("id", id).Wrap(domain.ErrUserAlreadyExists)
		}
		return nil, wrapLookup(err, "update user", "id", id)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context, input repository.ListUsersInput) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE ($3 OR deleted_at IS NULL)
		ORDER BY id
		LIMIT $1 OFFSET $2`,
		input.Limit, input.Offset, input.IncludeDeleted,
	)
	if err != nil {
		return nil, oops.Code("USER_LIST_FAILED").With("operation", "list users").Wrap(err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0, input.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, oops.Code("USER_LIST_FAILED").With("operation", "scan user").Wrap(err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_LIST_FAILED").With("operation", "iterate users").Wrap(err)
	}
	return users, nil
}

func (r *UserRepository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return oops.Code("USER_DELETE_FAILED").With("id", id).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(domain.ErrUserNotFound)
	}
	return nil
}

// VerifyEmail marks the user verified only while their address still equals
// email; a changed address reports domain.ErrUserNotFound.
func (r *UserRepository) VerifyEmail(ctx context.Context, id int64, email string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE users
		SET is_email_verified = TRUE, updated_at = NOW()
		WHERE id = $1 AND LOWER(email) = LOWER($2) AND deleted_at IS NULL
		RETURNING `+userColumns,
		id, email,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, wrapLookup(err, "verify email", "id", id, "email", email)
	}
	return u, nil
}

func (r *UserRepository) PurgeDeleted(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM users
		WHERE deleted_at IS NOT NULL AND deleted_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, oops.Code("USER_PURGE_FAILED").With("cutoff", cutoff).Wrap(err)
	}
	return tag.RowsAffected(), nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &role, &u.IsEmailVerified,
		&u.DeletedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

func wrapLookup(err error, operation string, kv ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return oops.Code("USER_NOT_FOUND").With(kv...).Wrap(domain.ErrUserNotFound)
	}
	return oops.Code("USER_QUERY_FAILED").With("operation", operation).With(kv...).Wrap(err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
