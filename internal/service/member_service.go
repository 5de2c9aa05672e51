package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"gympulse/backend/config"
	"gympulse/backend/internal/dto"
	"gympulse/backend/internal/model"
	"gympulse/backend/internal/repository"
)

// ── 会员模块业务错误 ──

var (
	ErrMemberNotFound        = errors.New("Member not found")
	ErrMemberProfileNotFound = errors.New("Member profile not found")
	ErrMemberNotActive       = errors.New("Membership is not active")
	ErrMemberForbidden       = errors.New("Cannot view another member's profile")
	ErrUsernameTaken         = errors.New("Username already exists")
	ErrInvalidMonthlyFee     = errors.New("Monthly fee must not be negative")
)

// 套餐默认月费，settings 中缺少 monthly_fee_* 时使用
var defaultPlanFees = map[string]string{
	model.PlanClassic: "29.99",
	model.PlanPremium: "49.99",
	model.PlanVIP:     "79.99",
}

// MemberService 会员业务接口
type MemberService interface {
	List(ctx context.Context, req *dto.MemberListRequest) ([]dto.MemberResponse, int64, error)
	// Get 员工可查看任意会员，会员只能查看本人
	Get(ctx context.Context, id uint, callerID uint, callerRole string) (*dto.MemberResponse, error)
	Create(ctx context.Context, req *dto.CreateMemberRequest) (*dto.MemberResponse, error)
	Update(ctx context.Context, id uint, req *dto.UpdateMemberRequest) (*dto.MemberResponse, error)
	// ToggleFreeze active ↔ frozen
	ToggleFreeze(ctx context.Context, id uint) (*dto.MemberResponse, error)
	GetProfile(ctx context.Context, userID uint) (*dto.MemberResponse, error)
}

type memberService struct {
	repo   *repository.Repository
	logger *zap.Logger
	loc    *time.Location
	now    func() time.Time
}

// NewMemberService 创建 MemberService 实例
func NewMemberService(cfg *config.GymConfig, repo *repository.Repository, logger *zap.Logger) MemberService {
	return &memberService{
		repo:   repo,
		logger: logger,
		loc:    cfg.Location(),
		now:    time.Now,
	}
}

// ────────────────────── List ──────────────────────

func (s *memberService) List(ctx context.Context, req *dto.MemberListRequest) ([]dto.MemberResponse, int64, error) {
	filter := repository.MemberFilter{Status: req.Status, Keyword: req.Keyword}
	members, total, err := s.repo.Member.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询会员列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.MemberResponse, 0, len(members))
	for i := range members {
		result = append(result, *toMemberResponse(&members[i]))
	}
	return result, total, nil
}

// ────────────────────── Get ──────────────────────

func (s *memberService) Get(ctx context.Context, id uint, callerID uint, callerRole string) (*dto.MemberResponse, error) {
	member, err := s.getMember(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.IsStaff(callerRole) && member.UserID != callerID {
		return nil, ErrMemberForbidden
	}
	return toMemberResponse(member), nil
}

func (s *memberService) GetProfile(ctx context.Context, userID uint) (*dto.MemberResponse, error) {
	member, err := s.repo.Member.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberProfileNotFound
		}
		s.logger.Error("查询会员档案失败", zap.Uint("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toMemberResponse(member), nil
}

// ────────────────────── Create ──────────────────────

func (s *memberService) Create(ctx context.Context, req *dto.CreateMemberRequest) (*dto.MemberResponse, error) {
	// 1. 用户名唯一
	if _, err := s.repo.User.GetByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询用户名失败", zap.Error(err))
		return nil, err
	}

	// 2. 月费与宽限期，未指定时取配置
	fee, err := s.monthlyFee(ctx, req.PlanType, req.MonthlyFee)
	if err != nil {
		return nil, err
	}
	grace := s.gracePeriod(ctx)
	if req.GracePeriodDays != nil {
		grace = *req.GracePeriodDays
	}

	// 3. 日期
	joinDate := model.DateOf(s.now().In(s.loc))
	if req.JoinDate != "" {
		joinDate = model.Date(req.JoinDate)
	}
	nextDue := model.Date(req.NextDueDate)
	if nextDue == "" {
		start, err := joinDate.In(s.loc)
		if err != nil {
			return nil, err
		}
		nextDue = model.DateOf(start.AddDate(0, 1, 0))
	}

	// 4. 密码哈希
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         model.RoleMember,
		IsActive:     true,
	}
	member := &model.Member{
		FullName:        req.FullName,
		Email:           req.Email,
		Phone:           req.Phone,
		Gender:          req.Gender,
		PlanType:        req.PlanType,
		MonthlyFee:      fee,
		JoinDate:        joinDate,
		NextDueDate:     nextDue,
		GracePeriodDays: grace,
		Status:          model.MemberStatusActive,
	}

	if err := s.repo.Member.CreateWithUser(ctx, user, member); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		s.logger.Error("创建会员失败", zap.String("username", req.Username), zap.Error(err))
		return nil, err
	}

	s.logger.Info("创建会员", zap.Uint("member_id", member.ID), zap.String("username", user.Username))
	return toMemberResponse(member), nil
}

// ────────────────────── Update ──────────────────────

func (s *memberService) Update(ctx context.Context, id uint, req *dto.UpdateMemberRequest) (*dto.MemberResponse, error) {
	member, err := s.getMember(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		member.FullName = *req.FullName
	}
	if req.Email != nil {
		member.Email = *req.Email
	}
	if req.Phone != nil {
		member.Phone = *req.Phone
	}
	if req.Gender != nil {
		member.Gender = *req.Gender
	}
	if req.PlanType != nil {
		member.PlanType = *req.PlanType
	}
	if req.MonthlyFee != nil {
		if req.MonthlyFee.IsNegative() {
			return nil, ErrInvalidMonthlyFee
		}
		member.MonthlyFee = req.MonthlyFee.Round(2)
	}
	if req.NextDueDate != nil {
		member.NextDueDate = model.Date(*req.NextDueDate)
	}
	if req.GracePeriodDays != nil {
		member.GracePeriodDays = *req.GracePeriodDays
	}
	if req.Status != nil {
		member.Status = *req.Status
	}

	if err := s.repo.Member.Update(ctx, member); err != nil {
		s.logger.Error("更新会员失败", zap.Uint("member_id", id), zap.Error(err))
		return nil, err
	}
	return toMemberResponse(member), nil
}

// ────────────────────── ToggleFreeze ──────────────────────

func (s *memberService) ToggleFreeze(ctx context.Context, id uint) (*dto.MemberResponse, error) {
	member, err := s.getMember(ctx, id)
	if err != nil {
		return nil, err
	}

	// 冻结 → 恢复为 active；其余状态（含 inactive）一律冻结
	if member.Status == model.MemberStatusFrozen {
		member.Status = model.MemberStatusActive
	} else {
		member.Status = model.MemberStatusFrozen
	}

	if err := s.repo.Member.Update(ctx, member); err != nil {
		s.logger.Error("切换冻结状态失败", zap.Uint("member_id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("切换会员冻结状态", zap.Uint("member_id", id), zap.String("status", member.Status))
	return toMemberResponse(member), nil
}

// ── 辅助函数 ──

func (s *memberService) getMember(ctx context.Context, id uint) (*model.Member, error) {
	member, err := s.repo.Member.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		s.logger.Error("查询会员失败", zap.Uint("member_id", id), zap.Error(err))
		return nil, err
	}
	return member, nil
}

func (s *memberService) monthlyFee(ctx context.Context, plan string, requested *decimal.Decimal) (decimal.Decimal, error) {
	if requested != nil {
		if requested.IsNegative() {
			return decimal.Zero, ErrInvalidMonthlyFee
		}
		return requested.Round(2), nil
	}

	fallback := decimal.Zero
	if v, ok := defaultPlanFees[plan]; ok {
		fallback = decimal.RequireFromString(v)
	}
	setting, err := s.repo.Setting.Get(ctx, "monthly_fee_"+plan)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("读取月费配置失败", zap.String("plan", plan), zap.Error(err))
			return decimal.Zero, err
		}
		return fallback, nil
	}

	fee, err := decimal.NewFromString(setting.Value)
	if err != nil || fee.IsNegative() {
		s.logger.Warn("月费配置非法，使用默认值", zap.String("plan", plan), zap.String("value", setting.Value))
		return fallback, nil
	}
	return fee.Round(2), nil
}

func (s *memberService) gracePeriod(ctx context.Context) int {
	setting, err := s.repo.Setting.Get(ctx, model.SettingGracePeriodDays)
	if err != nil {
		return model.DefaultGracePeriodDays
	}
	n, err := strconv.Atoi(setting.Value)
	if err != nil || n < 0 {
		return model.DefaultGracePeriodDays
	}
	return n
}

func toMemberResponse(m *model.Member) *dto.MemberResponse {
	resp := &dto.MemberResponse{
		ID:              m.ID,
		UserID:          m.UserID,
		FullName:        m.FullName,
		Email:           m.Email,
		Phone:           m.Phone,
		Gender:          m.Gender,
		PlanType:        m.PlanType,
		MonthlyFee:      m.MonthlyFee,
		JoinDate:        string(m.JoinDate),
		NextDueDate:     string(m.NextDueDate),
		GracePeriodDays: m.GracePeriodDays,
		Status:          m.Status,
	}
	if !m.CreatedAt.IsZero() {
		resp.CreatedAt = m.CreatedAt.Format(time.RFC3339)
	}
	if m.User != nil {
		resp.Username = m.User.Username
	}
	return resp
}
