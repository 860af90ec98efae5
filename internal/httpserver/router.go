package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Deps struct {
	AuthHandler *AuthHTTP
	UserHandler *UserHTTP
	Middleware  *AuthMiddleware
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	auth := e.Group("/auth")
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/introspect", d.AuthHandler.Introspect)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout)
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/verify-email", d.AuthHandler.VerifyEmail)
	auth.POST("/change-password", d.AuthHandler.ChangePassword)
	auth.POST("/send-password-reset-code", d.AuthHandler.SendPasswordResetCode)
	auth.POST("/reset-password-with-code", d.AuthHandler.ResetPasswordWithCode)

	users := e.Group("/users")
	users.Use(d.Middleware.RequireAuth)
	users.GET("/me", d.UserHandler.Me)
	users.GET("/:id", d.UserHandler.Get)
	users.PUT("/:id", d.UserHandler.Update)

	admin := users.Group("")
	admin.Use(d.Middleware.RequireRole("ADMIN"))
	admin.POST("", d.UserHandler.Create)
	admin.GET("", d.UserHandler.List)
	admin.DELETE("/:id", d.UserHandler.Delete)
}
