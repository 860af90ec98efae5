package httpserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/devteria/identity_service/internal/apperr"
	"github.com/devteria/identity_service/internal/logging"
	"github.com/devteria/identity_service/internal/service"
	"github.com/devteria/identity_service/internal/transport"
)

type AuthHTTP struct {
	Auth    *service.AuthService
	Account *service.AccountService
}

// domainError maps a domain failure to the wire envelope. Storage and other
// internal errors collapse to the uncategorized code so nothing leaks.
func domainError(c echo.Context, err error) error {
	e := apperr.From(err)
	return c.JSON(e.Status, transport.ApiResponse{Code: e.Code, Message: e.Message})
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer"))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.AuthenticationRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.Validate(); err != nil {
		return domainError(c, apperr.ErrUnauthenticated)
	}

	res, err := h.Auth.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(http.StatusOK, transport.OK(transport.AuthenticationResponse{
		Token:         res.Token,
		Authenticated: res.Authenticated,
	}))
}

func (h *AuthHTTP) Introspect(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.IntrospectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	valid := h.Auth.Introspect(ctx, req.Token)
	return c.JSON(http.StatusOK, transport.OK(transport.IntrospectResponse{Valid: valid}))
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Auth.Refresh(ctx, req.Token)
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(http.StatusOK, transport.OK(transport.AuthenticationResponse{
		Token:         res.Token,
		Authenticated: res.Authenticated,
	}))
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.LogoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Auth.Logout(ctx, req.Token); err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, transport.OK(nil))
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.Validate(); err != nil {
		return domainError(c, err)
	}

	res, err := h.Account.Register(ctx, service.RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		DOB:       req.ParsedDOB(),
	})
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(http.StatusOK, transport.OK(transport.RegisterResponse{
		Message:          "registration successful, check your email for the verification code",
		VerificationCode: res.VerificationCode,
		Success:          res.Success,
	}))
}

func (h *AuthHTTP) VerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.VerifyEmailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.Validate(); err != nil {
		return domainError(c, err)
	}

	if err := h.Account.VerifyEmail(ctx, req.VerificationCode); err != nil {
		return domainError(c, err)
	}

	return c.JSON(http.StatusOK, transport.OK(transport.VerifyEmailResponse{
		Message: "email verified",
		Success: true,
	}))
}

func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()

	token := bearerToken(c)
	if token == "" {
		return domainError(c, apperr.ErrUnauthenticated)
	}

	var req transport.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.Validate(); err != nil {
		return domainError(c, err)
	}

	if err := h.Account.ChangePassword(ctx, token, req.OldPassword, req.NewPassword); err != nil {
		return domainError(c, err)
	}

	return c.JSON(http.StatusOK, transport.OK(transport.ChangePasswordResponse{
		Message: "password changed",
		Success: true,
	}))
}

func (h *AuthHTTP) SendPasswordResetCode(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.SendPasswordResetCodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.Validate(); err != nil {
		return domainError(c, apperr.ErrUserNotFound)
	}

	if err := h.Account.SendPasswordResetCode(ctx, req.Username); err != nil {
		return domainError(c, err)
	}

	return c.JSON(http.StatusOK, transport.OK(transport.ForgotPasswordResponse{
		Message: "a verification code was sent to your email",
		Success: true,
	}))
}

func (h *AuthHTTP) ResetPasswordWithCode(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.Validate(); err != nil {
		return domainError(c, err)
	}

	if err := h.Account.ResetPasswordWithCode(ctx, req.Username, req.VerificationCode, req.NewPassword); err != nil {
		return domainError(c, err)
	}

	return c.JSON(http.StatusOK, transport.OK(transport.ForgotPasswordResponse{
		Message: "password reset successful",
		Success: true,
	}))
}
