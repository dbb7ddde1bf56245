package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/swiftmeds/authcore/internal/authcore/domain"
	"github.com/swiftmeds/authcore/internal/authcore/store"
)

type usersRepo struct {
	db *sql.DB
}

const userColumns = `id, username, email, password_hash, role, is_active,
	reset_token_hash, reset_token_expires, created_at, updated_at`

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, role, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, u.Role, u.Active, unix(now), unix(now))
	if err != nil {
		if isUniqueConstraintErr(err) {
			return domain.User{}, store.ErrAlreadyExists
		}
		return domain.User{}, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.User{}, err
	}

	u.ID = id
	u.CreatedAt = fromUnix(unix(now))
	u.UpdatedAt = u.CreatedAt
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	return r.getBy(ctx, `WHERE id = ?`, id)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getBy(ctx, `WHERE username = ?`, username)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getBy(ctx, `WHERE email = ?`, email)
}

func (r *usersRepo) getBy(ctx context.Context, where string, arg any) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users `+where, arg)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) UpdateUserEmail(ctx context.Context, id int64, email string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET email = ?, updated_at = ? WHERE id = ?`,
		email, unix(time.Now()), id)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) UpdateUserRole(ctx context.Context, id int64, role string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		role, unix(time.Now()), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetResetToken(ctx context.Context, id int64, tokenHash string, expires time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token_hash = ?, reset_token_expires = ?, updated_at = ? WHERE id = ?`,
		tokenHash, unix(expires), unix(time.Now()), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ConsumePasswordReset is a single conditional UPDATE so the "token still
// valid" check and its consumption cannot race.
func (r *usersRepo) ConsumePasswordReset(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET password_hash = ?, reset_token_hash = NULL, reset_token_expires = NULL, updated_at = ?
		 WHERE reset_token_hash = ? AND reset_token_expires >= ?`,
		newPasswordHash, unix(now), tokenHash, unix(now))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *usersRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET reset_token_hash = NULL, reset_token_expires = NULL, updated_at = ?
		 WHERE reset_token_hash IS NOT NULL AND reset_token_expires < ?`,
		unix(now), unix(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *usersRepo) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (domain.User, error) {
	var (
		u         domain.User
		resetHash sql.NullString
		resetExp  sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Active,
		&resetHash, &resetExp, &createdAt, &updatedAt)
	if err != nil {
		return domain.User{}, err
	}

	if resetHash.Valid {
		u.ResetTokenHash = resetHash.String
	}
	u.ResetTokenExpires = fromNullUnix(resetExp)
	u.CreatedAt = fromUnix(createdAt)
	u.UpdatedAt = fromUnix(updatedAt)
	return u, nil
}
