package service

import (
	"go.uber.org/zap"

	"gympulse/backend/config"
	"gympulse/backend/internal/repository"
	"gympulse/backend/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	Member     MemberService
	Attendance AttendanceService
	Setting    SettingService
	Export     ExportService
}

// NewService 创建 Service 聚合
//
// blacklist 与 notifier 均可为 nil：前者表示未启用 Redis，后者表示不推送实时快照。
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	notifier LiveNotifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:       NewAuthService(repo, jwtMgr, blacklist, logger),
		Member:     NewMemberService(&cfg.Gym, repo, logger),
		Attendance: NewAttendanceService(&cfg.Gym, repo, notifier, logger),
		Setting:    NewSettingService(repo, logger),
		Export:     NewExportService(&cfg.Gym, repo, logger),
	}
}
