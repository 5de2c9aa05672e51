package handler

import (
	"go.uber.org/zap"

	"gympulse/backend/internal/realtime"
	"gympulse/backend/internal/service"
	"gympulse/backend/pkg/jwt"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Member     *MemberHandler
	Attendance *AttendanceHandler
	Profile    *ProfileHandler
	Setting    *SettingHandler
	Export     *ExportHandler
	Live       *LiveHandler
}

// NewHandler 创建 Handler 聚合，blacklist 可为 nil
func NewHandler(svc *service.Service, jwtMgr *jwt.Manager, blacklist service.TokenBlacklist, hub *realtime.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		Member:     NewMemberHandler(svc.Member),
		Attendance: NewAttendanceHandler(svc.Attendance),
		Profile:    NewProfileHandler(svc.Member, svc.Attendance, svc.Export),
		Setting:    NewSettingHandler(svc.Setting),
		Export:     NewExportHandler(svc.Export),
		Live:       NewLiveHandler(svc.Attendance, jwtMgr, blacklist, hub, logger),
	}
}
