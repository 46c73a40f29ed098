//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"traceforge/errors"

	"github.com/dgraph-io/badger/v4"
)

const userPrefix = "user:"

type IUserRepository interface {
	CreateUser(username, passwordHash string) (User, error)
	GetUser(username string) (User, error)
}

// User is a credential record. It is never mutated nor deleted.
type User struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type UserRepository struct {
	db  *badger.DB
	log *slog.Logger
	// mu serializes registrations so the existence check and the insert
	// behave as one step, even across conflicting Badger transactions.
	mu sync.Mutex
}

func NewUserRepository(db *badger.DB, log *slog.Logger) *UserRepository {
	return &UserRepository{db: db, log: log}
}

// CreateUser persists a new credential record under "user:{username}".
// It fails with ErrUserAlreadyExists when the username is taken.
func (u *UserRepository) CreateUser(username, passwordHash string) (User, error) {
	user := User{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	err := u.db.Update(func(txn *badger.Txn) error {
		key := userKey(username)
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return errors.ErrUserAlreadyExists
		case !stderrors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(key, marshalUser(user))
	})
	switch {
	case err == nil:
		u.log.Debug("User created", "username", username)
		return user, nil
	case stderrors.Is(err, errors.ErrUserAlreadyExists), stderrors.Is(err, badger.ErrConflict):
		return User{}, errors.ErrUserAlreadyExists
	default:
		return User{}, fmt.Errorf("%w: create user: %v", errors.ErrStorage, err)
	}
}

// GetUser returns ErrUserNotFound when no record exists.
func (u *UserRepository) GetUser(username string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			user, err = unmarshalUser(val)
			return err
		})
	})
	switch {
	case err == nil:
		return user, nil
	case stderrors.Is(err, badger.ErrKeyNotFound):
		return User{}, errors.ErrUserNotFound
	default:
		return User{}, fmt.Errorf("%w: get user: %v", errors.ErrStorage, err)
	}
}

// ListUsers returns every credential record in key order.
func (u *UserRepository) ListUsers() ([]User, error) {
	var users []User
	err := u.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(userPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				user, err := unmarshalUser(val)
				if err != nil {
					return err
				}
				users = append(users, user)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %v", errors.ErrStorage, err)
	}
	return users, nil
}

func userKey(username string) []byte {
	return []byte(userPrefix + username)
}
