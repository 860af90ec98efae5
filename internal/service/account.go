package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/devteria/identity_service/internal/apperr"
	"github.com/devteria/identity_service/internal/events"
	"github.com/devteria/identity_service/internal/hash"
	"github.com/devteria/identity_service/internal/logging"
	"github.com/devteria/identity_service/internal/mail"
	"github.com/devteria/identity_service/internal/models"
	"github.com/devteria/identity_service/internal/repo"
)

const (
	verificationCodeLength = 6
	registrationCodeTTL    = 15 * time.Minute
	passwordResetCodeTTL   = 10 * time.Minute
)

// AccountService owns the credential lifecycle: registration with email
// verification, password change and the forgot/reset flow. Like AuthService
// it is stateless; concurrent calls race only at the storage layer, where
// uniqueness constraints decide (two password changes for one user are
// last-write-wins, a known and accepted race).
type AccountService struct {
	Repo     *repo.GormRepo
	Auth     *AuthService
	Mail     mail.Sender
	Producer *events.Producer
}

type RegisterInput struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
	DOB       *time.Time
}

type RegisterResult struct {
	// VerificationCode is returned in the response on top of being emailed,
	// so the flow stays testable without a mailbox. Intentional, see
	// DESIGN.md before changing.
	VerificationCode string
	Success          bool
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	l := logging.FromContext(ctx).With("svc", "account.register", "username", in.Username)

	// Username first, then email: callers distinguish the two conflicts.
	taken, err := s.Repo.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		l.Warn("register_conflict", "reason", "username taken")
		return nil, apperr.ErrUserExists
	}

	taken, err = s.Repo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		l.Warn("register_conflict", "reason", "email taken")
		return nil, apperr.ErrEmailExists
	}

	digest, err := hash.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	code, err := generateVerificationCode()
	if err != nil {
		return nil, err
	}
	expiry := time.Now().UTC().Add(registrationCodeTTL)

	user := models.User{
		Username:               in.Username,
		Email:                  in.Email,
		PasswordHash:           digest,
		FirstName:              in.FirstName,
		LastName:               in.LastName,
		DOB:                    in.DOB,
		IsVerified:             false,
		VerificationCode:       &code,
		VerificationCodeExpiry: &expiry,
	}
	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		return nil, err
	}

	// Send failure surfaces to the caller; the user row stays persisted and
	// the code can be re-requested through the reset flow once verified.
	if err := s.Mail.SendVerificationEmail(ctx, user.Email, code); err != nil {
		l.Error("verification_email_failed", "error", err)
		return nil, err
	}

	if err := s.Producer.Publish(ctx, user.ID, events.Event{
		Type:     events.TypeUserRegistered,
		UserID:   user.ID,
		Username: user.Username,
		At:       time.Now().UTC(),
	}); err != nil {
		l.Error("event_publish_failed", "type", events.TypeUserRegistered, "error", err)
	}

	l.Info("register_ok")
	return &RegisterResult{VerificationCode: code, Success: true}, nil
}

func (s *AccountService) VerifyEmail(ctx context.Context, code string) error {
	l := logging.FromContext(ctx).With("svc", "account.verify_email")

	user, err := s.Repo.FindByVerificationCode(ctx, code)
	if err != nil {
		return err
	}

	if user.VerificationCodeExpiry == nil || user.VerificationCodeExpiry.Before(time.Now()) {
		return apperr.ErrVerificationCodeExpired
	}

	user.IsVerified = true
	user.VerificationCode = nil
	user.VerificationCodeExpiry = nil
	user.UpdatedAt = time.Now().UTC()
	if err := s.Repo.SaveUser(ctx, user); err != nil {
		return err
	}

	l.Info("email_verified", "username", user.Username)
	return nil
}

// ChangePassword authenticates the acting user from the access token, then
// rotates the credential. The current digest is appended to the history
// ledger before it is overwritten.
func (s *AccountService) ChangePassword(ctx context.Context, token, oldPassword, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "account.change_password")

	claims, err := s.Auth.VerifyToken(ctx, token, false)
	if err != nil {
		return err
	}

	user, err := s.Repo.FindByUsername(ctx, claims.Subject)
	if err != nil {
		return err
	}

	if !hash.CheckPassword(user.PasswordHash, oldPassword) {
		return apperr.ErrInvalidOldPassword
	}
	if hash.CheckPassword(user.PasswordHash, newPassword) {
		return apperr.ErrNewPasswordSameAsOld
	}

	if err := s.rotatePassword(ctx, user, newPassword); err != nil {
		return err
	}

	if err := s.Mail.SendPasswordChangeNotification(ctx, user.Email, user.Username); err != nil {
		l.Error("change_notification_failed", "error", err)
		return err
	}

	l.Info("password_changed", "username", user.Username)
	return nil
}

// SendPasswordResetCode starts the forgot-password flow. Accounts that never
// completed email verification cannot reset: the address was never proven.
func (s *AccountService) SendPasswordResetCode(ctx context.Context, username string) error {
	l := logging.FromContext(ctx).With("svc", "account.send_reset_code", "username", username)

	user, err := s.Repo.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if !user.IsVerified {
		return apperr.ErrUserNotVerified
	}

	code, err := generateVerificationCode()
	if err != nil {
		return err
	}
	expiry := time.Now().UTC().Add(passwordResetCodeTTL)

	user.VerificationCode = &code
	user.VerificationCodeExpiry = &expiry
	user.UpdatedAt = time.Now().UTC()
	if err := s.Repo.SaveUser(ctx, user); err != nil {
		return err
	}

	if err := s.Mail.SendPasswordResetCode(ctx, user.Email, code); err != nil {
		l.Error("reset_code_email_failed", "error", err)
		return err
	}

	l.Info("reset_code_sent")
	return nil
}

func (s *AccountService) ResetPasswordWithCode(ctx context.Context, username, code, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "account.reset_password", "username", username)

	user, err := s.Repo.FindByUsername(ctx, username)
	if err != nil {
		return err
	}

	if user.VerificationCode == nil || *user.VerificationCode != code {
		return apperr.ErrInvalidVerificationCode
	}
	if user.VerificationCodeExpiry == nil || time.Now().After(*user.VerificationCodeExpiry) {
		return apperr.ErrVerificationCodeExpired
	}

	user.VerificationCode = nil
	user.VerificationCodeExpiry = nil
	if err := s.rotatePassword(ctx, user, newPassword); err != nil {
		return err
	}

	if err := s.Mail.SendPasswordChangeNotification(ctx, user.Email, user.Username); err != nil {
		l.Error("change_notification_failed", "error", err)
		return err
	}

	l.Info("password_reset_ok")
	return nil
}

// rotatePassword appends the current digest to the ledger, then stores the
// new one and touches updated_at. Any pending code mutation on user is saved
// in the same write.
func (s *AccountService) rotatePassword(ctx context.Context, user *models.User, newPassword string) error {
	if err := s.Repo.AppendPasswordHistory(ctx, user.ID, user.PasswordHash); err != nil {
		return err
	}

	digest, err := hash.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = digest
	user.UpdatedAt = time.Now().UTC()
	if err := s.Repo.SaveUser(ctx, user); err != nil {
		return err
	}

	if err := s.Producer.Publish(ctx, user.ID, events.Event{
		Type:     events.TypePasswordChanged,
		UserID:   user.ID,
		Username: user.Username,
		At:       time.Now().UTC(),
	}); err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "type", events.TypePasswordChanged, "error", err)
	}
	return nil
}

// generateVerificationCode draws each of the six digits independently from
// crypto/rand; leading zeros are allowed.
func generateVerificationCode() (string, error) {
	ten := big.NewInt(10)
	code := make([]byte, verificationCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate verification code: %w", err)
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}
