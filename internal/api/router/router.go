package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gympulse/backend/config"
	"gympulse/backend/internal/api/handler"
	"gympulse/backend/internal/api/middleware"
	"gympulse/backend/internal/model"
	"gympulse/backend/pkg/jwt"
	"gympulse/backend/pkg/redis"
)

const maxBodyBytes = 1 << 20

// Setup 初始化并返回 Gin 路由引擎
// rdb 可为 nil（黑名单与限流降级放行）；db 仅用于健康检查
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", healthCheck(db))


	staff := middleware.RoleAuth(model.RoleAdmin, model.RoleTrainer)
	admin := middleware.RoleAuth(model.RoleAdmin)
	authLimit := middleware.RateLimit(rdb, 20, time.Minute)
	checkInLimit := middleware.RateLimit(rdb, cfg.Gym.CheckInRateLimit, cfg.Gym.CheckInRateWindow)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck(db))

		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authLimit, h.Auth.Login)
			auth.POST("/refresh", authLimit, h.Auth.Refresh)
		}

		// 实时推送：token 通过 query 传入，由 Handler 自行校验
		v1.GET("/ws/attendance/live", h.Live.Serve)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 会员模块
			members := authorized.Group("/members")
			{
				members.GET("", staff, h.Member.List)
				members.GET("/:id", h.Member.Get) // 员工或本人（Service 层鉴权）
				members.POST("", admin, h.Member.Create)
				members.PATCH("/:id", staff, h.Member.Update)
				members.POST("/:id/freeze", admin, h.Member.ToggleFreeze)
			}

			// 到馆模块
			attendance := authorized.Group("/attendance")
			{
				attendance.POST("/check-in", staff, h.Attendance.CheckIn)
				attendance.POST("/check-out", staff, h.Attendance.CheckOut)
				attendance.GET("/live", h.Attendance.Live)
				attendance.GET("/history", h.Attendance.History)
			}

			// 会员自助（以账号关联的会员档案为准）
			profile := authorized.Group("/profile")
			{
				profile.GET("/me", h.Profile.Me)
				profile.POST("/check-in", checkInLimit, h.Profile.CheckIn)
				profile.POST("/check-out", checkInLimit, h.Profile.CheckOut)
				profile.GET("/check-status", h.Profile.CheckStatus)
				profile.GET("/attendance", h.Profile.Attendance)
				profile.GET("/attendance.ics", h.Profile.AttendanceICS)
			}

			// 场馆配置
			settings := authorized.Group("/settings")
			{
				settings.GET("", h.Setting.List)
				settings.PUT("/:key", admin, h.Setting.Update)
			}

			// 导出模块
			export := authorized.Group("/export", staff)
			{
				export.GET("/attendance", h.Export.AttendanceXLSX)
				export.GET("/attendance.ics", h.Export.AttendanceICS)
			}
		}
	}

	return r
}

// healthCheck 存活检查，附带数据库连通性
func healthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			sqlDB, err := db.DB()
			if err != nil || sqlDB.PingContext(ctx) != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
