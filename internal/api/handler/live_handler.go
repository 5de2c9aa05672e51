package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gympulse/backend/internal/realtime"
	"gympulse/backend/internal/service"
	"gympulse/backend/pkg/jwt"
	"gympulse/backend/pkg/response"
)

// LiveHandler 实时在馆人数 WebSocket 入口
//
// 浏览器无法为 WebSocket 握手设置 Authorization 头，Access Token 通过 ?token= 传入。
// blacklist 为 nil 时（未接入 Redis）跳过吊销检查。
type LiveHandler struct {
	attendanceSvc service.AttendanceService
	jwtMgr        *jwt.Manager
	blacklist     service.TokenBlacklist
	hub           *realtime.Hub
	logger        *zap.Logger
	upgrader      websocket.Upgrader
}

// NewLiveHandler 创建 LiveHandler
func NewLiveHandler(attendanceSvc service.AttendanceService, jwtMgr *jwt.Manager, blacklist service.TokenBlacklist, hub *realtime.Hub, logger *zap.Logger) *LiveHandler {
	return &LiveHandler{
		attendanceSvc: attendanceSvc,
		jwtMgr:        jwtMgr,
		blacklist:     blacklist,
		hub:           hub,
		logger:        logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 推送内容只有汇总人数，身份由 token 校验
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Serve 升级为 WebSocket 并订阅在馆人数推送
// GET /api/v1/ws/attendance/live?token=xxx
func (h *LiveHandler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Unauthorized(c, 10002, "Missing token")
		return
	}

	claims, err := h.jwtMgr.ParseToken(token)
	if err != nil || claims.TokenType != jwt.TokenTypeAccess {
		response.Unauthorized(c, 10002, "Invalid or expired token")
		return
	}

	// 与 JWTAuth 一致：Redis 出错时降级放行
	if h.blacklist != nil && claims.ID != "" {
		revoked, err := h.blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
		if err == nil && revoked {
			response.Unauthorized(c, 10002, "Token has been revoked")
			return
		}
	}

	// 连接建立时先推一次当前快照
	live, err := h.attendanceSvc.Live(c.Request.Context(), false)
	if err != nil {
		response.InternalError(c)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失败时已写入 HTTP 错误响应
		h.logger.Warn("WebSocket 升级失败", zap.Error(err))
		return
	}

	h.hub.Serve(conn, claims.UserID, &live.Snapshot)
}
