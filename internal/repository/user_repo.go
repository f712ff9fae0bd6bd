package repository

import (
	"context"
	"time"

	"github.com/oggyb/vivahvows/internal/db"

	"gorm.io/gorm"
)

// UserRepository provides data access for accounts. The profile row
// shares the user's lifecycle: it is created in the same transaction as
// the account and removed by FK cascade.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// CreateWithProfile inserts a new user and its empty profile atomically.
func (r *UserRepository) CreateWithProfile(ctx context.Context, user *db.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		profile := db.Profile{UserID: user.ID, Name: user.Username}
		return tx.Create(&profile).Error
	})
}

// GetByID fetches a user by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id uint64) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername fetches a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Exists reports whether a user with the given id exists.
func (r *UserRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// TouchLogin records a successful login.
func (r *UserRepository) TouchLogin(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Update("last_login_at", time.Now().UTC()).Error
}
