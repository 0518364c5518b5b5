// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/campus-space-reservation/internal/config"
	"github.com/iliyamo/campus-space-reservation/internal/handler"
	"github.com/iliyamo/campus-space-reservation/internal/middleware"
	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// Handlers bundles the handler set the router mounts.
type Handlers struct {
	Reservations  *handler.ReservationHandler
	Waitlist      *handler.WaitlistHandler
	Series        *handler.SeriesHandler
	Availability  *handler.AvailabilityHandler
	Admin         *handler.AdminHandler
	Notifications *handler.NotificationHandler
}

// Register mounts every route on the Echo instance.  The browse surface is
// public and cached; everything else requires a valid identity token, and
// the /v1/admin subtree additionally requires the ADMIN role.  rdb may be
// nil, in which case caching and rate limiting are disabled.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	if rdb != nil {
		e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	}

	// Public browse surface.  Availability answers go stale quickly, so
	// the cache TTL is short.
	public := e.Group("/v1")
	if rdb != nil {
		public.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	}
	public.GET("/venues", h.Availability.ListVenues)
	public.GET("/venues/:id/resources", h.Availability.ListResources)
	public.GET("/venues/:id/schedule", h.Availability.WeekSchedule)
	public.GET("/resources/:id/availability", h.Availability.FreeSlots)

	// Authenticated user surface.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleStudent, model.RoleStaff, model.RoleAdmin))

	auth.POST("/reservations", h.Reservations.Create)
	auth.GET("/reservations", h.Reservations.List)
	auth.GET("/reservations/:id", h.Reservations.Get)
	auth.POST("/reservations/:id/check-in", h.Reservations.CheckIn)
	auth.POST("/reservations/:id/check-out", h.Reservations.CheckOut)
	auth.POST("/reservations/:id/cancel", h.Reservations.Cancel)
	auth.POST("/reservations/:id/extend", h.Reservations.Extend)
	auth.POST("/reservations/:id/extension", h.Reservations.RespondExtension)

	auth.POST("/waitlist", h.Waitlist.Join)
	auth.GET("/waitlist", h.Waitlist.List)
	auth.DELETE("/waitlist/:id", h.Waitlist.Leave)

	auth.POST("/series", h.Series.Create)
	auth.GET("/series", h.Series.List)
	auth.POST("/series/:id/cancel", h.Series.Cancel)

	auth.GET("/notifications", h.Notifications.List)
	auth.POST("/notifications/:id/read", h.Notifications.MarkRead)

	// Administrative surface.
	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))

	admin.POST("/reservations/:id/approve", h.Admin.Approve)
	admin.POST("/reservations/:id/check-in", h.Admin.CheckIn)
	admin.POST("/resources/:id/bulk-cancel", h.Admin.BulkCancel)

	admin.POST("/venues", h.Admin.CreateVenue)
	admin.POST("/resources", h.Admin.CreateResource)
	admin.PATCH("/resources/:id/active", h.Admin.SetResourceActive)
	admin.PUT("/venues/:id/schedule/:weekday", h.Admin.UpsertWeekly)
	admin.PUT("/venues/:id/closures/:date", h.Admin.UpsertClosure)
	admin.DELETE("/venues/:id/closures/:date", h.Admin.DeleteClosure)
}
