package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Themath93/gather-management-app/config"
	"github.com/Themath93/gather-management-app/internal/api/handler"
	"github.com/Themath93/gather-management-app/internal/api/middleware"
	"github.com/Themath93/gather-management-app/pkg/jwt"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 可为 nil（未配置 Redis 时不限流）
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, limiter middleware.RateLimiter, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(1 << 20))

	// ── 健康检查 ──
	health := func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if db != nil {
			sqlDB, err := db.DB()
			if err != nil || sqlDB.PingContext(ctx) != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	r.GET("/health", health)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", health)

		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(limiter, cfg.Auth.LoginRateLimit, time.Minute, logger), h.Auth.Login)
		}

		// 需要认证的路由；写操作限 leader / admin
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr))
		{
			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("/me", h.User.GetCurrentUser)
				users.GET("", h.User.ListUsers)
				users.GET("/:id", h.User.GetUser)
				users.POST("", middleware.Leadership(), h.User.CreateUser)
				users.PUT("/:id", middleware.Leadership(), h.User.UpdateUser)
			}

			// 聚会模块
			groups := authorized.Group("/groups")
			{
				groups.GET("", h.Group.ListGroups)
				groups.GET("/calendar.ics", h.Group.Calendar)
				groups.POST("", middleware.Leadership(), h.Group.CreateGroup)
				groups.POST("/import", middleware.Leadership(), h.Group.ImportCalendar)
				groups.DELETE("/:id", middleware.Leadership(), h.Group.DeleteGroup)
				groups.GET("/:id/attendee-count", h.Group.GetAttendeeCounts)
				groups.GET("/:id/attendees", h.Group.ListAttendees)

				// 分组
				groups.GET("/:id/teams", h.Team.GetTeams)
				groups.GET("/:id/my-team", h.Team.GetMyTeam)
				groups.POST("/:id/shuffle", middleware.Leadership(), h.Team.Shuffle)
				groups.GET("/:id/export", middleware.Leadership(), h.Export.ExportTeams)
			}

			// 出勤模块
			attendance := authorized.Group("/attendance")
			{
				attendance.GET("", h.Attendance.GetStatus)
				attendance.PUT("", middleware.Leadership(), h.Attendance.SetStatus)
			}
		}
	}

	return r
}
