package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gympulse/backend/internal/dto"
	"gympulse/backend/internal/model"
	"gympulse/backend/internal/repository"
)

// ── 配置模块业务错误 ──

var (
	ErrInvalidSettingKey   = errors.New("Invalid setting key")
	ErrInvalidSettingValue = errors.New("Invalid setting value")
)

// SettingService 键值配置业务接口
//
// 已知键写入前校验取值，其余键按自由文本保存。
// gym_capacity 修改后立即影响下一次占用率计算。
type SettingService interface {
	List(ctx context.Context) ([]dto.SettingResponse, error)
	Update(ctx context.Context, key, value string, callerID uint) (*dto.SettingResponse, error)
}

type settingService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSettingService 创建 SettingService 实例
func NewSettingService(repo *repository.Repository, logger *zap.Logger) SettingService {
	return &settingService{repo: repo, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *settingService) List(ctx context.Context) ([]dto.SettingResponse, error) {
	settings, err := s.repo.Setting.List(ctx)
	if err != nil {
		s.logger.Error("查询配置失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SettingResponse, 0, len(settings))
	for i := range settings {
		result = append(result, toSettingResponse(&settings[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *settingService) Update(ctx context.Context, key, value string, callerID uint) (*dto.SettingResponse, error) {
	if !validSettingKey(key) {
		return nil, ErrInvalidSettingKey
	}

	normalized, err := normalizeSetting(key, value)
	if err != nil {
		return nil, err
	}

	setting := &model.Setting{Key: key, Value: normalized, UpdatedBy: &callerID}
	if err := s.repo.Setting.Upsert(ctx, setting); err != nil {
		s.logger.Error("写入配置失败", zap.String("key", key), zap.Error(err))
		return nil, err
	}

	s.logger.Info("更新配置", zap.String("key", key), zap.String("value", normalized), zap.Uint("updated_by", callerID))
	resp := toSettingResponse(setting)
	return &resp, nil
}

// ── 校验 ──

// validSettingKey 小写字母、数字与下划线，长度 1-100
func validSettingKey(key string) bool {
	if key == "" || len(key) > 100 {
		return false
	}
	for _, r := range key {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}

// normalizeSetting 校验已知键并返回规范化后的值
func normalizeSetting(key, value string) (string, error) {
	v := strings.TrimSpace(value)

	switch key {
	case model.SettingGymCapacity:
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return "", fmt.Errorf("%w: %s must be an integer >= 1", ErrInvalidSettingValue, key)
		}
		return strconv.Itoa(n), nil

	case model.SettingGracePeriodDays:
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return "", fmt.Errorf("%w: %s must be an integer >= 0", ErrInvalidSettingValue, key)
		}
		return strconv.Itoa(n), nil

	case model.SettingMonthlyFeeClassic, model.SettingMonthlyFeePremium, model.SettingMonthlyFeeVIP:
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			return "", fmt.Errorf("%w: %s must be a non-negative amount", ErrInvalidSettingValue, key)
		}
		return d.StringFixed(2), nil

	case model.SettingEnableStore, model.SettingEnableWorkouts, model.SettingEnableDiets:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return "", fmt.Errorf("%w: %s must be true or false", ErrInvalidSettingValue, key)
		}
		return strconv.FormatBool(b), nil

	case model.SettingGymName:
		if v == "" {
			return "", fmt.Errorf("%w: %s must not be empty", ErrInvalidSettingValue, key)
		}
		return v, nil
	}

	return value, nil
}

func toSettingResponse(s *model.Setting) dto.SettingResponse {
	return dto.SettingResponse{
		Key:       s.Key,
		Value:     s.Value,
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
}
