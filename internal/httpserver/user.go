package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/devteria/identity_service/internal/apperr"
	"github.com/devteria/identity_service/internal/authz"
	"github.com/devteria/identity_service/internal/service"
	"github.com/devteria/identity_service/internal/transport"
)

type UserHTTP struct {
	Users *service.UserService
}

func (h *UserHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.UserCreationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.Validate(); err != nil {
		return domainError(c, err)
	}

	user, err := h.Users.CreateUser(ctx, service.CreateUserInput{
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
	return c.JSON(http.StatusOK, transport.OK(transport.ToUserResponse(user)))
}

// Me resolves the acting user from the verified claims, never from ambient
// request state.
func (h *UserHTTP) Me(c echo.Context) error {
	claims := ClaimsFrom(c)
	if claims == nil {
		return domainError(c, apperr.ErrUnauthenticated)
	}

	user, err := h.Users.GetByUsername(c.Request().Context(), claims.Subject)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, transport.OK(transport.ToUserResponse(user)))
}

func (h *UserHTTP) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))

	users, err := h.Users.List(c.Request().Context(), page, size)
	if err != nil {
		return domainError(c, err)
	}

	out := make([]transport.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, transport.ToUserResponse(&users[i]))
	}
	return c.JSON(http.StatusOK, transport.OK(out))
}

// Get is owner-or-admin: the scope predicate decides, the service trusts us.
func (h *UserHTTP) Get(c echo.Context) error {
	claims := ClaimsFrom(c)
	if claims == nil {
		return domainError(c, apperr.ErrUnauthenticated)
	}

	user, err := h.Users.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return domainError(c, err)
	}
	if !authz.IsOwnerOrRole(claims.Scope, claims.Subject, user.Username, "ADMIN") {
		return domainError(c, apperr.ErrUnauthorized)
	}
	return c.JSON(http.StatusOK, transport.OK(transport.ToUserResponse(user)))
}

func (h *UserHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	claims := ClaimsFrom(c)
	if claims == nil {
		return domainError(c, apperr.ErrUnauthenticated)
	}

	var req transport.UserUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.Validate(); err != nil {
		return domainError(c, err)
	}

	existing, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		return domainError(c, err)
	}
	if !authz.IsOwnerOrRole(claims.Scope, claims.Subject, existing.Username, "ADMIN") {
		return domainError(c, apperr.ErrUnauthorized)
	}
	// Only admins may touch role assignments.
	if len(req.Roles) > 0 && !authz.HasRole(claims.Scope, "ADMIN") {
		return domainError(c, apperr.ErrUnauthorized)
	}

	user, err := h.Users.Update(ctx, c.Param("id"), service.UpdateUserInput{
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		DOB:       req.ParsedDOB(),
		Roles:     req.Roles,
	})
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, transport.OK(transport.ToUserResponse(user)))
}

func (h *UserHTTP) Delete(c echo.Context) error {
	if err := h.Users.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, transport.OK(nil))
}
