package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"gympulse/backend/config"
	"gympulse/backend/internal/dto"
	"gympulse/backend/internal/model"
	"gympulse/backend/internal/repository"
	pkgerrors "gympulse/backend/pkg/errors"
	"gympulse/backend/pkg/occupancy"
)

// ── 到馆模块业务错误（消息直接展示给调用方）──

var (
	ErrAlreadyCheckedIn = errors.New("Already checked in")
	ErrGymAtCapacity    = errors.New("Gym at full capacity")
	ErrNoActiveCheckIn  = errors.New("No active check-in found")
	ErrInvalidDateRange = errors.New("Invalid date range")
)

// LiveNotifier 在馆人数变化后的推送出口
type LiveNotifier interface {
	Publish(snapshot occupancy.Snapshot)
}

type nopNotifier struct{}

func (nopNotifier) Publish(occupancy.Snapshot) {}

// AttendanceService 到馆业务接口
//
// 状态机（按会员、按日）：Absent → Present → Absent，可循环多次，
// 每个循环产生一条独立的历史记录。
type AttendanceService interface {
	// CheckIn 员工代签到：校验会员存在、状态与重复签到，不校验容量
	CheckIn(ctx context.Context, memberID uint) (*dto.AttendanceResponse, error)
	// CheckOut 员工代签出
	CheckOut(ctx context.Context, memberID uint) (*dto.AttendanceResponse, error)
	// SelfCheckIn 会员自助签到，闸口顺序：档案 → 状态 → 容量 → 重复
	SelfCheckIn(ctx context.Context, userID uint) (*dto.AttendanceResponse, error)
	SelfCheckOut(ctx context.Context, userID uint) (*dto.AttendanceResponse, error)
	CheckStatus(ctx context.Context, userID uint) (*dto.CheckStatusResponse, error)
	IsCheckedIn(ctx context.Context, memberID uint) (bool, *dto.AttendanceResponse, error)
	// Live 实时在馆快照；includeAttendees=false 时不返回会员身份
	Live(ctx context.Context, includeAttendees bool) (*dto.LiveAttendanceResponse, error)
	// History 按日期倒序；会员调用时强制只看本人
	History(ctx context.Context, req *dto.HistoryRequest, callerID uint, role string) ([]dto.AttendanceResponse, error)
}

type attendanceService struct {
	repo            *repository.Repository
	notifier        LiveNotifier
	logger          *zap.Logger
	loc             *time.Location
	defaultCapacity int
	now             func() time.Time
}

// NewAttendanceService 创建 AttendanceService 实例，notifier 可为 nil
func NewAttendanceService(cfg *config.GymConfig, repo *repository.Repository, notifier LiveNotifier, logger *zap.Logger) AttendanceService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &attendanceService{
		repo:            repo,
		notifier:        notifier,
		logger:          logger,
		loc:             cfg.Location(),
		defaultCapacity: cfg.DefaultCapacity,
		now:             time.Now,
	}
}

// ────────────────────── 员工代签 ──────────────────────

func (s *attendanceService) CheckIn(ctx context.Context, memberID uint) (*dto.AttendanceResponse, error) {
	member, err := s.repo.Member.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		s.logger.Error("查询会员失败", zap.Uint("member_id", memberID), zap.Error(err))
		return nil, err
	}
	if !member.IsActive() {
		return nil, ErrMemberNotActive
	}

	today := s.today()
	if err := s.ensureNotCheckedIn(ctx, member.ID, today); err != nil {
		return nil, err
	}

	rec, err := s.checkIn(ctx, member, today)
	if err != nil {
		return nil, err
	}
	return toAttendanceResponse(rec), nil
}

func (s *attendanceService) CheckOut(ctx context.Context, memberID uint) (*dto.AttendanceResponse, error) {
	member, err := s.repo.Member.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		s.logger.Error("查询会员失败", zap.Uint("member_id", memberID), zap.Error(err))
		return nil, err
	}

	rec, err := s.checkOut(ctx, member)
	if err != nil {
		return nil, err
	}
	return toAttendanceResponse(rec), nil
}

// ────────────────────── 会员自助 ──────────────────────

func (s *attendanceService) SelfCheckIn(ctx context.Context, userID uint) (*dto.AttendanceResponse, error) {
	// 1. 档案
	member, err := s.memberByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 2. 状态
	if !member.IsActive() {
		return nil, ErrMemberNotActive
	}

	// 3. 容量
	today := s.today()
	capacity, err := s.capacity(ctx)
	if err != nil {
		return nil, err
	}
	live, err := s.repo.Attendance.CountOpenByDate(ctx, today)
	if err != nil {
		s.logger.Error("统计在馆人数失败", zap.Error(err))
		return nil, err
	}
	if occupancy.AtCapacity(int(live), capacity) {
		return nil, ErrGymAtCapacity
	}

	// 4. 重复签到
	if err := s.ensureNotCheckedIn(ctx, member.ID, today); err != nil {
		return nil, err
	}

	rec, err := s.checkIn(ctx, member, today)
	if err != nil {
		return nil, err
	}
	return toAttendanceResponse(rec), nil
}

func (s *attendanceService) SelfCheckOut(ctx context.Context, userID uint) (*dto.AttendanceResponse, error) {
	member, err := s.memberByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	rec, err := s.checkOut(ctx, member)
	if err != nil {
		return nil, err
	}
	return toAttendanceResponse(rec), nil
}

func (s *attendanceService) CheckStatus(ctx context.Context, userID uint) (*dto.CheckStatusResponse, error) {
	member, err := s.memberByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	in, rec, err := s.IsCheckedIn(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	return &dto.CheckStatusResponse{IsCheckedIn: in, Attendance: rec}, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *attendanceService) IsCheckedIn(ctx context.Context, memberID uint) (bool, *dto.AttendanceResponse, error) {
	rec, err := s.repo.Attendance.FindOpen(ctx, memberID, s.today())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil, nil
		}
		s.logger.Error("查询未签出记录失败", zap.Uint("member_id", memberID), zap.Error(err))
		return false, nil, err
	}
	return true, toAttendanceResponse(rec), nil
}

func (s *attendanceService) Live(ctx context.Context, includeAttendees bool) (*dto.LiveAttendanceResponse, error) {
	today := s.today()
	capacity, err := s.capacity(ctx)
	if err != nil {
		return nil, err
	}

	if !includeAttendees {
		snap, err := s.snapshot(ctx, today, capacity)
		if err != nil {
			return nil, err
		}
		return &dto.LiveAttendanceResponse{Snapshot: snap}, nil
	}

	recs, err := s.repo.Attendance.ListOpenByDate(ctx, today)
	if err != nil {
		s.logger.Error("查询在馆会员失败", zap.Error(err))
		return nil, err
	}
	snap, err := occupancy.Compute(len(recs), capacity)
	if err != nil {
		return nil, err
	}

	attendees := make([]dto.LiveAttendee, 0, len(recs))
	for i := range recs {
		a := dto.LiveAttendee{
			AttendanceID: recs[i].ID,
			MemberID:     recs[i].MemberID,
			CheckInTime:  recs[i].CheckInTime,
		}
		if m := recs[i].Member; m != nil {
			a.FullName = m.FullName
			a.PlanType = m.PlanType
			a.Status = m.Status
		}
		attendees = append(attendees, a)
	}
	return &dto.LiveAttendanceResponse{Snapshot: snap, Attendees: attendees}, nil
}

func (s *attendanceService) History(ctx context.Context, req *dto.HistoryRequest, callerID uint, role string) ([]dto.AttendanceResponse, error) {
	filter, err := historyFilter(ctx, s.repo, req, callerID, role)
	if err != nil {
		return nil, err
	}

	recs, err := s.repo.Attendance.History(ctx, filter)
	if err != nil {
		s.logger.Error("查询到馆历史失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.AttendanceResponse, 0, len(recs))
	for i := range recs {
		result = append(result, *toAttendanceResponse(&recs[i]))
	}
	return result, nil
}

// ────────────────────── 内部实现 ──────────────────────

// today 场馆时区下的今天
func (s *attendanceService) today() model.Date {
	return model.DateOf(s.now().In(s.loc))
}

func (s *attendanceService) memberByUser(ctx context.Context, userID uint) (*model.Member, error) {
	member, err := s.repo.Member.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberProfileNotFound
		}
		s.logger.Error("查询会员档案失败", zap.Uint("user_id", userID), zap.Error(err))
		return nil, err
	}
	return member, nil
}

func (s *attendanceService) ensureNotCheckedIn(ctx context.Context, memberID uint, today model.Date) error {
	_, err := s.repo.Attendance.FindOpen(ctx, memberID, today)
	if err == nil {
		return ErrAlreadyCheckedIn
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	s.logger.Error("查询未签出记录失败", zap.Uint("member_id", memberID), zap.Error(err))
	return err
}

// checkIn 先补签出前几天的遗留记录再写入；并发或跨午夜的重复签到由会员维度的唯一索引兜底
func (s *attendanceService) checkIn(ctx context.Context, member *model.Member, today model.Date) (*model.Attendance, error) {
	if err := s.closeStale(ctx, member.ID, today); err != nil {
		return nil, err
	}

	rec := &model.Attendance{
		MemberID:       member.ID,
		AttendanceDate: today,
		CheckInTime:    s.now().UTC(),
	}
	if err := s.repo.Attendance.Create(ctx, rec); err != nil {
		if errors.Is(err, pkgerrors.ErrOpenSessionExists) {
			return nil, ErrAlreadyCheckedIn
		}
		s.logger.Error("写入签到记录失败", zap.Uint("member_id", member.ID), zap.Error(err))
		return nil, err
	}
	rec.Member = member

	s.logger.Info("会员签到",
		zap.Uint("member_id", member.ID),
		zap.Uint("attendance_id", rec.ID),
		zap.String("date", string(today)),
	)
	s.publish(ctx, today)
	return rec, nil
}

// checkOut 关闭今天最近一次签到的记录；并发签出时后到者得到 ErrNoActiveCheckIn
func (s *attendanceService) checkOut(ctx context.Context, member *model.Member) (*model.Attendance, error) {
	today := s.today()
	rec, err := s.repo.Attendance.FindOpen(ctx, member.ID, today)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveCheckIn
		}
		s.logger.Error("查询未签出记录失败", zap.Uint("member_id", member.ID), zap.Error(err))
		return nil, err
	}

	at := s.now().UTC()
	if at.Before(rec.CheckInTime) {
		at = rec.CheckInTime
	}
	if err := s.repo.Attendance.Close(ctx, rec.ID, at, false); err != nil {
		if errors.Is(err, pkgerrors.ErrSessionAlreadyClosed) {
			return nil, ErrNoActiveCheckIn
		}
		s.logger.Error("写入签出时间失败", zap.Uint("attendance_id", rec.ID), zap.Error(err))
		return nil, err
	}
	rec.CheckOutTime = &at
	rec.Member = member

	s.logger.Info("会员签出",
		zap.Uint("member_id", member.ID),
		zap.Uint("attendance_id", rec.ID),
	)
	s.publish(ctx, today)
	return rec, nil
}

// closeStale 以所属日期当天结束时刻补签出此前遗留的未签出记录
func (s *attendanceService) closeStale(ctx context.Context, memberID uint, today model.Date) error {
	stale, err := s.repo.Attendance.ListOpenBefore(ctx, memberID, today)
	if err != nil {
		s.logger.Error("查询遗留到馆记录失败", zap.Uint("member_id", memberID), zap.Error(err))
		return err
	}

	for i := range stale {
		end, err := stale[i].AttendanceDate.EndIn(s.loc)
		if err != nil {
			return err
		}
		if end.Before(stale[i].CheckInTime) {
			end = stale[i].CheckInTime
		}
		err = s.repo.Attendance.Close(ctx, stale[i].ID, end.UTC(), true)
		if err != nil && !errors.Is(err, pkgerrors.ErrSessionAlreadyClosed) {
			s.logger.Error("补签出失败", zap.Uint("attendance_id", stale[i].ID), zap.Error(err))
			return err
		}
		s.logger.Info("补签出遗留到馆记录",
			zap.Uint("member_id", memberID),
			zap.Uint("attendance_id", stale[i].ID),
			zap.String("date", string(stale[i].AttendanceDate)),
		)
	}
	return nil
}

// capacity 读取 gym_capacity；缺失或非法时回退到配置默认值
func (s *attendanceService) capacity(ctx context.Context) (int, error) {
	setting, err := s.repo.Setting.Get(ctx, model.SettingGymCapacity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.defaultCapacity, nil
		}
		s.logger.Error("读取容量配置失败", zap.Error(err))
		return 0, err
	}

	n, err := strconv.Atoi(strings.TrimSpace(setting.Value))
	if err != nil || n <= 0 {
		s.logger.Warn("gym_capacity 配置非法，使用默认容量",
			zap.String("value", setting.Value),
			zap.Int("default", s.defaultCapacity),
		)
		return s.defaultCapacity, nil
	}
	return n, nil
}

func (s *attendanceService) snapshot(ctx context.Context, today model.Date, capacity int) (occupancy.Snapshot, error) {
	live, err := s.repo.Attendance.CountOpenByDate(ctx, today)
	if err != nil {
		s.logger.Error("统计在馆人数失败", zap.Error(err))
		return occupancy.Snapshot{}, err
	}
	return occupancy.Compute(int(live), capacity)
}

// publish 推送失败只记录日志，不影响签到结果
func (s *attendanceService) publish(ctx context.Context, today model.Date) {
	capacity, err := s.capacity(ctx)
	if err != nil {
		return
	}
	snap, err := s.snapshot(ctx, today, capacity)
	if err != nil {
		s.logger.Warn("计算在馆快照失败", zap.Error(err))
		return
	}
	s.notifier.Publish(snap)
}

// historyFilter 会员只能查询本人记录，员工可按会员筛选
func historyFilter(ctx context.Context, repo *repository.Repository, req *dto.HistoryRequest, callerID uint, role string) (repository.AttendanceFilter, error) {
	var filter repository.AttendanceFilter

	if model.IsStaff(role) {
		filter.MemberID = req.MemberID
	} else {
		member, err := repo.Member.GetByUserID(ctx, callerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return filter, ErrMemberProfileNotFound
			}
			return filter, err
		}
		filter.MemberID = &member.ID
	}

	if req.From != "" {
		from, err := model.ParseDate(req.From)
		if err != nil {
			return filter, ErrInvalidDateRange
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := model.ParseDate(req.To)
		if err != nil {
			return filter, ErrInvalidDateRange
		}
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && *filter.From > *filter.To {
		return filter, ErrInvalidDateRange
	}
	return filter, nil
}

func toAttendanceResponse(rec *model.Attendance) *dto.AttendanceResponse {
	resp := &dto.AttendanceResponse{
		ID:           rec.ID,
		MemberID:     rec.MemberID,
		Date:         string(rec.AttendanceDate),
		CheckInTime:  rec.CheckInTime,
		CheckOutTime: rec.CheckOutTime,
		AutoClosed:   rec.AutoClosed,
	}
	if rec.Member != nil {
		resp.MemberName = rec.Member.FullName
	}
	if rec.CheckOutTime != nil {
		minutes := int(rec.CheckOutTime.Sub(rec.CheckInTime).Minutes())
		resp.DurationMinutes = &minutes
	}
	return resp
}
