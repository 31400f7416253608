package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/samber/oops"

	"github.com/authkeep/authkeep-go/internal/model"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

const userColumns = `id, name, email, email_confirmed, password_hash, avatar, roles, created_at, updated_at`

// UserRepository handles user persistence in MySQL.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Insert stores a new user. The email column carries a UNIQUE index, so a
// concurrent registration for the same address fails with ErrDuplicateEmail.
func (r *UserRepository) Insert(ctx context.Context, user *model.User) error {
	roles, err := json.Marshal(user.Roles)
	if err != nil {
		return oops.Code("USER_INSERT_FAILED").With("operation", "marshal roles").Wrap(err)
	}

	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.EmailConfirmed, user.PasswordHash,
		user.Avatar, roles, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return oops.Code("USER_DUPLICATE_EMAIL").With("email", user.Email).Wrap(ErrDuplicateEmail)
		}
		return oops.Code("USER_INSERT_FAILED").With("operation", "insert user").Wrap(err)
	}
	return nil
}

// FindByEmail retrieves a user by their email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("email", email).Wrap(ErrUserNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").With("email", email).Wrap(err)
	}
	return user, nil
}

// FindByID retrieves a user by their ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(ErrUserNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").With("id", id).Wrap(err)
	}
	return user, nil
}

// Save overwrites the mutable fields of an existing user.
func (r *UserRepository) Save(ctx context.Context, user *model.User) error {
	roles, err := json.Marshal(user.Roles)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("operation", "marshal roles").Wrap(err)
	}

	query := `UPDATE users SET name = ?, email = ?, email_confirmed = ?, password_hash = ?,
		avatar = ?, roles = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		user.Name, user.Email, user.EmailConfirmed, user.PasswordHash,
		user.Avatar, roles, user.UpdatedAt, user.ID,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return oops.Code("USER_DUPLICATE_EMAIL").With("email", user.Email).Wrap(ErrDuplicateEmail)
		}
		return oops.Code("USER_UPDATE_FAILED").With("id", user.ID).Wrap(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("id", user.ID).Wrap(err)
	}
	if n == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", user.ID).Wrap(ErrUserNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		user  model.User
		roles []byte
	)
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.EmailConfirmed, &user.PasswordHash,
		&user.Avatar, &roles, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(roles, &user.Roles); err != nil {
		return nil, oops.Code("USER_INVALID_ROLES").With("id", user.ID).Wrap(err)
	}
	return &user, nil
}

// isDuplicateEntryError checks if a MySQL error is a duplicate entry error (code 1062).
func isDuplicateEntryError(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
