// Package router registers the HTTP routes and their guard chains.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/config"
	"github.com/iliyamo/storefront-api/internal/handler"
	"github.com/iliyamo/storefront-api/internal/middleware"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/utils"
)

// Stores are the lookups the guards need.
type Stores struct {
	Users interface {
		middleware.UserFinder
		middleware.PermissionFinder
	}
	Sessions middleware.SessionFinder
}

// Deps carries everything RegisterRoutes wires together.
type Deps struct {
	Codec      *utils.TokenCodec
	Stores     Stores
	RateLimits config.RateLimitConfig
	Limiter    *middleware.RateLimiter
	Cache      *middleware.ResponseCache
	DB         handler.Pinger

	Auth       *handler.AuthHandler
	Categories *handler.CategoryHandler
	Roles      *handler.RoleHandler
}

// RegisterRoutes registers every route on e.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))

	access := middleware.AccessGuard(d.Codec, d.Stores.Users, d.Stores.Sessions)
	refresh := middleware.RefreshGuard(d.Codec, d.Stores.Users, d.Stores.Sessions)
	guest := middleware.BlockIfAuthenticated(d.Codec, d.Stores.Sessions)
	can := func(perms ...string) echo.MiddlewareFunc {
		return middleware.RequirePermission(d.Stores.Users, perms...)
	}

	registerAuth(e.Group("/auth"), d, access, refresh, guest)

	cats := e.Group("/categories")
	cats.GET("", d.Categories.List, d.Cache.Middleware(handler.CategoryCacheGroup))
	cats.GET("/:id", d.Categories.Get, d.Cache.Middleware(handler.CategoryCacheGroup))
	cats.POST("", d.Categories.Create, access, can(model.PermCreateCategory))
	cats.POST("/upload-url", d.Categories.UploadURL, access, can(model.PermCreateCategory))
	cats.PUT("/:id", d.Categories.Update, access, can(model.PermUpdateCategory))
	cats.DELETE("/delete-many", d.Categories.DeleteMany, access, can(model.PermDeleteCategory))
	cats.DELETE("/:id", d.Categories.Delete, access, can(model.PermDeleteCategory))

	roles := e.Group("/roles", access)
	roles.GET("", d.Roles.List, can(model.PermViewRole))
	roles.GET("/permissions", d.Roles.Permissions, can(model.PermViewRole))
	roles.GET("/:id", d.Roles.Get, can(model.PermViewRole))
	roles.POST("", d.Roles.Create, can(model.PermCreateRole))
	roles.PUT("/:id", d.Roles.Update, can(model.PermUpdateRole))
	roles.DELETE("/delete-many", d.Roles.DeleteMany, can(model.PermDeleteRole))
	roles.DELETE("/:id", d.Roles.Delete, can(model.PermDeleteRole))
}

func registerAuth(g *echo.Group, d Deps, access, refresh, guest echo.MiddlewareFunc) {
	g.POST("/register", d.Auth.Register, guest, d.Limiter.Limit(d.RateLimits.Register))
	g.GET("/verify-email/:token", d.Auth.VerifyEmail)
	g.POST("/resend-email-verification", d.Auth.ResendVerification, d.Limiter.Limit(d.RateLimits.Resend))
	g.POST("/login", d.Auth.Login, guest, d.Limiter.Limit(d.RateLimits.Login))
	g.POST("/logout", d.Auth.Logout, access)
	g.GET("/me", d.Auth.Me, access)
	g.GET("/refresh-token", d.Auth.RefreshToken, refresh)
}
