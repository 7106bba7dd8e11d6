// Package repository implements the data access layer over gorm.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/base-app/internal/models"
)

// ErrEmailExists is returned when an account with the given email already exists.
var ErrEmailExists = errors.New("email_already_exists")

// UserRepository defines persistence operations for users, profiles and permissions.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUserWithProfileAndPermission(ctx context.Context, email, hashedPassword string) (*models.User, error)
	GetProfileByUserID(ctx context.Context, userID uint) (*models.Profile, error)
	UpdateProfile(ctx context.Context, profileID uint, patch ProfilePatch) error
	CreateUser(ctx context.Context, email, password string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteProfile(ctx context.Context, profileID uint) error
}

type userRepository struct {
	db  *gorm.DB
	log *slog.Logger
}

// NewUserRepository returns a UserRepository backed by the given gorm DB.
func NewUserRepository(db *gorm.DB, log *slog.Logger) UserRepository {
	return &userRepository{db: db, log: log}
}

// GetByEmail loads a user with its profile eagerly attached.
// Returns (nil, nil) when no account matches.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.log.Info("repo", "event", "get_by_email", "email", email)
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("email = ?", email).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUserWithProfileAndPermission inserts the user, its profile and the
// default permission row inside one transaction. Partial creation is never
// an observable outcome.
func (r *userRepository) CreateUserWithProfileAndPermission(ctx context.Context, email, hashedPassword string) (*models.User, error) {
	r.log.Info("repo", "event", "create_user_start", "email", email)
	user := models.User{Email: email, HashedPassword: hashedPassword, IsActive: true}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		r.log.Info("repo", "event", "create_profile", "user_id", user.ID)
		profile := models.Profile{UserID: user.ID, Email: email, Verification: false}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		r.log.Info("repo", "event", "create_permission", "profile_id", profile.ID)
		perm := models.Permission{ProfileID: profile.ID, IsUser: true}
		if err := tx.Create(&perm).Error; err != nil {
			return err
		}
		profile.Permission = &perm
		user.Profile = &profile
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create user %q: %w", email, err)
	}
	r.log.Info("repo", "event", "create_user_done", "user_id", user.ID)
	return &user, nil
}

func (r *userRepository) GetProfileByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile applies only the fields present in the patch; absent fields
// are left untouched. A fully empty patch is a no-op.
func (r *userRepository) UpdateProfile(ctx context.Context, profileID uint, patch ProfilePatch) error {
	updates := patch.Updates()
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", profileID).
		Updates(updates).Error
}

// CreateUser normalizes the email, rejects duplicates before any insert, and
// delegates to the three-record creation with the password hashed.
func (r *userRepository) CreateUser(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		r.log.Info("repo", "event", "create_user_exists", "email", email)
		return nil, ErrEmailExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return r.CreateUserWithProfileAndPermission(ctx, email, string(hash))
}

// ListUsers returns all users, most recent first.
func (r *userRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	r.log.Info("repo", "event", "list_users")
	var users []models.User
	if err := r.db.WithContext(ctx).Order("id desc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteProfile removes a profile together with its permission row and its
// owning user, in one transaction. The direction is deliberate and mirrors
// the trg_delete_user_on_profile_delete trigger installed by migration 0005:
// the child profile going away takes the parent user with it.
func (r *userRepository) DeleteProfile(ctx context.Context, profileID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile models.Profile
		if err := tx.First(&profile, profileID).Error; err != nil {
			return err
		}
		if err := tx.Where("profile_id = ?", profile.ID).Delete(&models.Permission{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&profile).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", profile.UserID).Delete(&models.User{}).Error; err != nil {
			return err
		}
		r.log.Info("repo", "event", "delete_profile_cascade", "profile_id", profile.ID, "user_id", profile.UserID)
		return nil
	})
}
