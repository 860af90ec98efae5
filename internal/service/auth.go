package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/devteria/identity_service/internal/apperr"
	"github.com/devteria/identity_service/internal/events"
	"github.com/devteria/identity_service/internal/hash"
	"github.com/devteria/identity_service/internal/logging"
	"github.com/devteria/identity_service/internal/models"
	"github.com/devteria/identity_service/internal/repo"
	"github.com/devteria/identity_service/internal/tokens"
)

// AuthService owns the token lifecycle: issuance, verification, refresh and
// logout. It holds no mutable state of its own; everything correctness-
// relevant lives in the user and invalidated-token tables, so a single
// instance serves concurrent requests without locking.
type AuthService struct {
	Repo  *repo.GormRepo
	Codec *tokens.Codec

	// ValidDuration bounds the access window of an issued token.
	// RefreshableDuration bounds refresh eligibility, measured from the
	// original issue time rather than from the last refresh.
	ValidDuration       time.Duration
	RefreshableDuration time.Duration

	Producer *events.Producer
}

type AuthResult struct {
	Token         string
	ExpiresAt     time.Time
	Authenticated bool
}

func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.authenticate", "username", username)

	user, err := s.Repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			l.Warn("authenticate_failed", "status", 404, "reason", "user not found")
		}
		return nil, err
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("authenticate_failed", "status", 403, "reason", "password mismatch")
		return nil, apperr.ErrUnauthorized
	}

	res, err := s.issueFor(user)
	if err != nil {
		return nil, err
	}

	if err := s.Producer.Publish(ctx, user.ID, events.Event{
		Type:     events.TypeUserLoggedIn,
		UserID:   user.ID,
		Username: user.Username,
		At:       time.Now().UTC(),
	}); err != nil {
		l.Error("event_publish_failed", "type", events.TypeUserLoggedIn, "error", err)
	}

	l.Info("authenticate_ok")
	return res, nil
}

// Introspect reports whether token would pass full verification. It never
// returns an error: any failure, including a store outage, reads as invalid.
func (s *AuthService) Introspect(ctx context.Context, token string) bool {
	if _, err := s.VerifyToken(ctx, token, false); err != nil {
		logging.FromContext(ctx).Debug("introspect_invalid", "error", err)
		return false
	}
	return true
}

// VerifyToken is the single verification routine behind every flow. In
// refresh context the token's own expiry is ignored and the effective expiry
// is issuedAt plus the refresh window, which lets one token format serve both
// the access and the refresh role.
func (s *AuthService) VerifyToken(ctx context.Context, token string, isRefresh bool) (*tokens.Claims, error) {
	claims, err := s.Codec.Parse(token)
	if err != nil {
		logging.FromContext(ctx).Debug("token_parse_failed", "error", err)
		return nil, apperr.ErrUnauthenticated
	}

	var expiry time.Time
	if isRefresh {
		if claims.IssuedAt == nil {
			return nil, apperr.ErrUnauthenticated
		}
		expiry = claims.IssuedAt.Time.Add(s.RefreshableDuration)
	} else {
		if claims.ExpiresAt == nil {
			return nil, apperr.ErrUnauthenticated
		}
		expiry = claims.ExpiresAt.Time
	}
	if !expiry.After(time.Now()) {
		return nil, apperr.ErrUnauthenticated
	}

	revoked, err := s.Repo.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, apperr.ErrUnauthenticated
	}

	return claims, nil
}

// Refresh exchanges a token within its refresh window for a fresh one. The
// consumed token is revoked first; the insert-if-absent on the revocation row
// is what makes refresh single-use under concurrency.
func (s *AuthService) Refresh(ctx context.Context, token string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.VerifyToken(ctx, token, true)
	if err != nil {
		return nil, err
	}

	inserted, err := s.Repo.RevokeToken(ctx, claims.ID, s.revocationExpiry(claims))
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Lost the race against a concurrent refresh of the same token.
		l.Warn("refresh_replayed", "jti", claims.ID)
		return nil, apperr.ErrUnauthenticated
	}

	// Scope is recomputed from current roles, so permission changes take
	// effect on the next refresh.
	user, err := s.Repo.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return nil, apperr.ErrUnauthenticated
		}
		return nil, err
	}

	res, err := s.issueFor(user)
	if err != nil {
		return nil, err
	}
	l.Info("refresh_ok", "username", user.Username)
	return res, nil
}

// Logout revokes the presented token. A token that no longer verifies needs
// no revocation, so verification failures are a silent no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	claims, err := s.VerifyToken(ctx, token, true)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthenticated) {
			l.Info("logout_token_already_invalid")
			return nil
		}
		return err
	}

	if _, err := s.Repo.RevokeToken(ctx, claims.ID, s.revocationExpiry(claims)); err != nil {
		return err
	}
	l.Info("logout_ok")
	return nil
}

func (s *AuthService) issueFor(user *models.User) (*AuthResult, error) {
	token, claims, err := s.Codec.Issue(user.Username, BuildScope(user), time.Now().UTC(), s.ValidDuration)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:         token,
		ExpiresAt:     claims.ExpiresAt.Time,
		Authenticated: true,
	}, nil
}

// revocationExpiry picks the timestamp after which the revocation row may be
// garbage-collected; until then the row itself is authoritative.
func (s *AuthService) revocationExpiry(claims *tokens.Claims) time.Time {
	if claims.IssuedAt != nil {
		return claims.IssuedAt.Time.Add(s.RefreshableDuration)
	}
	if claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return time.Now().Add(s.RefreshableDuration)
}

// BuildScope joins ROLE_<name> plus the role's permission names with spaces.
// Iteration order follows the loaded role order; duplicates across roles are
// kept as-is.
func BuildScope(user *models.User) string {
	var parts []string
	for _, role := range user.Roles {
		parts = append(parts, "ROLE_"+role.Name)
		for _, perm := range role.Permissions {
			parts = append(parts, perm.Name)
		}
	}
	return strings.Join(parts, " ")
}
