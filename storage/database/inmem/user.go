package inmemdb

import (
	"context"

	"github.com/volatiletech/null/v8"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

// withChurch resolves church_name, as the LEFT JOIN of the sql repository does.
func (repo *userRepository) withChurch(usr user.User) user.User {
	usr.ChurchName = null.String{}
	if usr.ChurchID.Valid {
		usr.ChurchName = repo.db.churchName(usr.ChurchID.Int)
	}
	return usr
}

func (repo *userRepository) QueryUsers(_ context.Context, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := repo.db.users.sorted()
	users := make([]user.User, 0, len(rows))
	for _, usr := range rows {
		users = append(users, repo.withChurch(usr))
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id int, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.users.rows[id]; ok {
		return repo.withChurch(usr), nil
	}
	return user.User{}, core.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.users.sorted() {
		if usr.Email == email {
			return repo.withChurch(usr), nil
		}
	}
	return user.User{}, core.ErrNotFound
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedID int, _ ...core.DBExecutor) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.checkEmail(email, excludedID)
}

func (repo *userRepository) checkEmail(email string, excludedID int) error {
	for id, usr := range repo.db.users.rows {
		if usr.Email == email && id != excludedID {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if err := repo.checkEmail(usr.Email, 0); err != nil {
		return user.User{}, err
	}
	if usr.ChurchID.Valid && !repo.db.exists("churches", usr.ChurchID.Int) {
		return user.User{}, errForeignKey("users", "church_id")
	}
	usr.ID = repo.db.users.next()
	usr.ChurchName = null.String{}
	repo.db.users.rows[usr.ID] = usr
	return repo.withChurch(usr), nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.users.rows[usr.ID]
	if !ok {
		return user.User{}, core.ErrNotFound
	}
	if err := repo.checkEmail(usr.Email, usr.ID); err != nil {
		return user.User{}, err
	}
	if usr.ChurchID.Valid && !repo.db.exists("churches", usr.ChurchID.Int) {
		return user.User{}, errForeignKey("users", "church_id")
	}
	// only save the password when set
	if usr.PasswordHash == nil {
		usr.PasswordHash = orig.PasswordHash
	}
	usr.ChurchName = null.String{}
	repo.db.users.rows[usr.ID] = usr
	return repo.withChurch(usr), nil
}
