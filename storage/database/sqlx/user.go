package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/user"
)

type userRepository struct {
	base
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor, timeout time.Duration) *userRepository {
	return &userRepository{base: newBase(exec, timeout)}
}

const userSelect = `
SELECT u.id, u.name, u.email, u.password, u.role, u.church_id, c.name AS church_name, u.authorized
FROM users u
LEFT JOIN churches c ON c.id = u.church_id`

// trapUniqueErr maps the violation of the users.email unique constraint to user.ErrEmailExists.
func trapUniqueErr(err error, msg string) error {
	if pqCode(err) == uniqueViolation {
		return user.ErrEmailExists
	}
	return errors.Wrap(err, msg)
}

func (repo *userRepository) QueryUsers(ctx context.Context, exec ...core.DBExecutor) ([]user.User, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	users := make([]user.User, 0)
	if err := repo.getExec(exec).SelectContext(ctx, &users, userSelect+` ORDER BY u.id`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo *userRepository) get(ctx context.Context, exec core.DBExecutor, where string, arg interface{}) (user.User, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var usr user.User
	if err := exec.GetContext(ctx, &usr, userSelect+` WHERE `+where, arg); err != nil {
		return user.User{}, trapNoRowsErr(err, "finding user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int, exec ...core.DBExecutor) (user.User, error) {
	return repo.get(ctx, repo.getExec(exec), `u.id = $1`, id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	return repo.get(ctx, repo.getExec(exec), `u.email = $1`, email)
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedID int, exec ...core.DBExecutor) error {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`
	if err := repo.getExec(exec).GetContext(ctx, &exists, q, email, excludedID); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var id int
	q := `INSERT INTO users (name, email, password, role, church_id, authorized)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := exe.QueryRowxContext(ctx, q, usr.Name, usr.Email, usr.PasswordHash, usr.Role, usr.ChurchID, usr.Authorized).Scan(&id)
	if err != nil {
		return user.User{}, trapUniqueErr(err, "inserting user")
	}
	return repo.get(ctx, exe, `u.id = $1`, id)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	// only save the password when set
	var pwd interface{}
	if usr.PasswordHash != nil {
		pwd = usr.PasswordHash
	}
	q := `UPDATE users SET name = $2, email = $3, role = $4, church_id = $5, authorized = $6,
		password = COALESCE($7, password) WHERE id = $1`
	res, err := exe.ExecContext(ctx, q, usr.ID, usr.Name, usr.Email, usr.Role, usr.ChurchID, usr.Authorized, pwd)
	if err != nil {
		return user.User{}, trapUniqueErr(err, "updating user")
	}
	if err = checkAffected(res, nil, "updating user"); err != nil {
		return user.User{}, err
	}
	return repo.get(ctx, exe, `u.id = $1`, usr.ID)
}
