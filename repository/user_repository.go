package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"pinyinhub/model"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	CreateUser(user *model.User) (int64, error)
	GetUserByID(id int64) (*model.User, error)
	GetUserByUsername(username string) (*model.User, error)
	GetUserByEmail(email string) (*model.User, error)
}

// gormUserRepository implements UserRepository on top of GORM.
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new gormUserRepository.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// CreateUser adds a new user. A username or email collision is reported
// as ErrDuplicateUser.
func (r *gormUserRepository) CreateUser(user *model.User) (int64, error) {
	if err := r.db.Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicateUser
		}
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return user.ID, nil
}

// GetUserByID retrieves a user by their ID. Returns (nil, nil) when the
// user does not exist.
func (r *gormUserRepository) GetUserByID(id int64) (*model.User, error) {
	user := &model.User{}
	err := r.db.First(user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user by ID %d: %w", id, err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username. The lookup is
// case-insensitive per the column collation.
func (r *gormUserRepository) GetUserByUsername(username string) (*model.User, error) {
	user := &model.User{}
	err := r.db.Where("username = ?", username).First(user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user by username %s: %w", username, err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email address, case-insensitively.
func (r *gormUserRepository) GetUserByEmail(email string) (*model.User, error) {
	user := &model.User{}
	err := r.db.Where("email = ?", email).First(user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user by email %s: %w", email, err)
	}
	return user, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
