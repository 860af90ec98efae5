package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/devteria/identity_service/internal/apperr"
	"github.com/devteria/identity_service/internal/models"
)

// withRoles preloads the role/permission graph in a stable order so scope
// strings come out deterministic.
func withRoles(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Roles", func(db *gorm.DB) *gorm.DB { return db.Order("roles.name") }).
		Preload("Roles.Permissions", func(db *gorm.DB) *gorm.DB { return db.Order("permissions.name") })
}

// FindByUsername matches case-insensitively, mirroring the store's collation.
func (r *GormRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := withRoles(r.DB.WithContext(ctx)).
		Where("LOWER(username) = LOWER(?)", username).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return &user, nil
}

func (r *GormRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := withRoles(r.DB.WithContext(ctx)).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

func (r *GormRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := withRoles(r.DB.WithContext(ctx)).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByVerificationCode requires an exact match on the stored single active
// code; no match means the supplied code is simply wrong.
func (r *GormRepo) FindByVerificationCode(ctx context.Context, code string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Where("verification_code = ?", code).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrInvalidVerificationCode
		}
		return nil, fmt.Errorf("find user by verification code: %w", err)
	}
	return &user, nil
}

func (r *GormRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(username) = LOWER(?)", username).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count users by username: %w", err)
	}
	return count > 0, nil
}

func (r *GormRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count users by email: %w", err)
	}
	return count > 0, nil
}

// CreateUser persists a new user. The store's uniqueness constraints are the
// last line of defense against a register/register race; a violation maps to
// the same conflict error the pre-checks produce.
func (r *GormRepo) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.DB.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *GormRepo) SaveUser(ctx context.Context, user *models.User) error {
	if err := r.DB.WithContext(ctx).Save(user).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrUserExists
		}
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (r *GormRepo) ReplaceRoles(ctx context.Context, user *models.User, roles []models.Role) error {
	if err := r.DB.WithContext(ctx).Model(user).Association("Roles").Replace(roles); err != nil {
		return fmt.Errorf("replace roles: %w", err)
	}
	user.Roles = roles
	return nil
}

func (r *GormRepo) FindRoles(ctx context.Context, names []string) ([]models.Role, error) {
	var roles []models.Role
	err := r.DB.WithContext(ctx).
		Preload("Permissions").
		Where("name IN ?", names).
		Order("name").
		Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	return roles, nil
}

func (r *GormRepo) ListUsers(ctx context.Context, offset, limit int) ([]models.User, error) {
	var users []models.User
	err := withRoles(r.DB.WithContext(ctx)).
		Order("username").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *GormRepo) DeleteUser(ctx context.Context, id string) error {
	if err := r.DB.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
