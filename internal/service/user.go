package service

import (
	"context"
	"fmt"
	"time"

	"github.com/devteria/identity_service/internal/hash"
	"github.com/devteria/identity_service/internal/logging"
	"github.com/devteria/identity_service/internal/models"
	"github.com/devteria/identity_service/internal/repo"
	"github.com/devteria/identity_service/internal/util"
)

// DefaultRole is granted to users created through the management surface.
const DefaultRole = "USER"

// UserService is the administrative user-management surface. Authorization
// (admin-only, owner-only) is enforced by the transport layer from verified
// claims; this service trusts its caller.
type UserService struct {
	Repo *repo.GormRepo
}

type CreateUserInput struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
	DOB       *time.Time
}

type UpdateUserInput struct {
	Password  string
	FirstName string
	LastName  string
	DOB       *time.Time
	Roles     []string
}

// CreateUser provisions an account directly, already verified and holding the
// default role. The register flow is the self-service counterpart.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	digest, err := hash.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	roles, err := s.Repo.FindRoles(ctx, []string{DefaultRole})
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: digest,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		DOB:          in.DOB,
		IsVerified:   true,
		Roles:        roles,
	}
	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("user_created", "svc", "user.create", "username", user.Username)
	return &user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.Repo.FindByUsername(ctx, username)
}

func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.Repo.FindByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, page, size int) ([]models.User, error) {
	offset, limit := util.Page(page, size)
	return s.Repo.ListUsers(ctx, offset, limit)
}

func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*models.User, error) {
	user, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Password != "" {
		digest, err := hash.HashPassword(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = digest
	}
	if in.FirstName != "" {
		user.FirstName = in.FirstName
	}
	if in.LastName != "" {
		user.LastName = in.LastName
	}
	if in.DOB != nil {
		user.DOB = in.DOB
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.Repo.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	if len(in.Roles) > 0 {
		roles, err := s.Repo.FindRoles(ctx, in.Roles)
		if err != nil {
			return nil, err
		}
		if err := s.Repo.ReplaceRoles(ctx, user, roles); err != nil {
			return nil, err
		}
	}

	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.Repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("user_deleted", "svc", "user.delete", "user_id", id)
	return nil
}
