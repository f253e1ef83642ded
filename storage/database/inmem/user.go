package inmemdb

import (
	"context"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/kusoma/core/user"
)

type (
	DB struct {
		user *userTable
	}

	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User // {email: user}
		err   error
	}
)

func Open() *DB {
	return &DB{user: &userTable{table: make(map[string]*user.User)}}
}

// FailWith makes every following user query return err (nil resets).
func (db *DB) FailWith(err error) {
	db.user.mutex.Lock()
	defer db.user.mutex.Unlock()
	db.user.err = err
}

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if repo.db.err != nil {
		return user.User{}, repo.db.err
	}
	if usr, ok := repo.db.table[email]; ok {
		return clone(*usr), nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.db.err != nil {
		return user.User{}, repo.db.err
	}
	if _, ok := repo.db.table[usr.Email]; ok {
		return user.User{}, user.ErrEmailExists
	}
	usr.ID = uuid.NewString()
	stored := clone(usr)
	repo.db.table[usr.Email] = &stored
	return clone(stored), nil
}

func (repo *userRepository) UpdatePassword(_ context.Context, email string, hash []byte) error {
	return repo.update(email, func(usr *user.User) {
		usr.PasswordHash = append([]byte(nil), hash...)
	})
}

func (repo *userRepository) SetWeakTopics(_ context.Context, email string, topics []string) error {
	return repo.update(email, func(usr *user.User) {
		usr.WeakTopics = append([]string{}, topics...)
	})
}

func (repo *userRepository) AppendResult(_ context.Context, email string, entry user.ResultEntry) error {
	return repo.update(email, func(usr *user.User) {
		rh := usr.Result
		rh.Scores = append(append([]user.QuizScore(nil), rh.Scores...), user.QuizScore{Key: entry.Key, Marks: entry.Marks})
		switch entry.Kind {
		case user.ResultMapping:
			raw := map[string]interface{}{}
			if m, ok := rh.Raw.(map[string]interface{}); ok {
				for k, v := range m {
					raw[k] = v
				}
			}
			raw[strconv.Itoa(entry.Key)] = entry.Marks
			rh.Raw = raw
		default:
			var item interface{} = map[string]interface{}{"score": entry.Marks}
			if entry.Bare {
				item = entry.Marks
			}
			raw, _ := rh.Raw.([]interface{})
			rh.Raw = append(append([]interface{}(nil), raw...), item)
			rh.BareMarks = entry.Bare
		}
		rh.Kind = entry.Kind
		usr.Result = rh.Normalize()
	})
}

func (repo *userRepository) update(email string, fn func(usr *user.User)) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.db.err != nil {
		return repo.db.err
	}
	usr, ok := repo.db.table[email]
	if !ok {
		return user.ErrNotFound
	}
	fn(usr)
	return nil
}

func clone(usr user.User) user.User {
	usr.WeakTopics = append([]string{}, usr.WeakTopics...)
	usr.PasswordHash = append([]byte(nil), usr.PasswordHash...)
	usr.Result.Scores = append([]user.QuizScore(nil), usr.Result.Scores...)
	return usr
}
