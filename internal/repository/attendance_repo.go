package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"gympulse/backend/internal/model"
	pkgerrors "gympulse/backend/pkg/errors"
)

// AttendanceFilter 到馆历史筛选条件（日期闭区间）
type AttendanceFilter struct {
	MemberID *uint
	From     *model.Date
	To       *model.Date
}

// AttendanceRepository 到馆记录数据访问接口
//
// 记录只新增、只签出一次，从不删除。
type AttendanceRepository interface {
	// Create 新建未签出记录；同日已有未签出记录时返回 pkgerrors.ErrOpenSessionExists
	Create(ctx context.Context, rec *model.Attendance) error
	GetByID(ctx context.Context, id uint) (*model.Attendance, error)
	// FindOpen 返回会员在指定日期最近一次签到且未签出的记录
	FindOpen(ctx context.Context, memberID uint, date model.Date) (*model.Attendance, error)
	// ListOpenBefore 返回会员在指定日期之前遗留的未签出记录
	ListOpenBefore(ctx context.Context, memberID uint, date model.Date) ([]model.Attendance, error)
	// Close 条件签出；记录已签出时返回 pkgerrors.ErrSessionAlreadyClosed
	Close(ctx context.Context, id uint, at time.Time, autoClosed bool) error
	ListOpenByDate(ctx context.Context, date model.Date) ([]model.Attendance, error)
	CountOpenByDate(ctx context.Context, date model.Date) (int64, error)
	// History 按日期倒序，同日按签到时间倒序
	History(ctx context.Context, filter AttendanceFilter) ([]model.Attendance, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) Create(ctx context.Context, rec *model.Attendance) error {
	err := r.db.WithContext(ctx).Omit("Member").Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return pkgerrors.ErrOpenSessionExists
	}
	return err
}

func (r *attendanceRepo) GetByID(ctx context.Context, id uint) (*model.Attendance, error) {
	var rec model.Attendance
	if err := r.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *attendanceRepo) FindOpen(ctx context.Context, memberID uint, date model.Date) (*model.Attendance, error) {
	var rec model.Attendance
	err := r.db.WithContext(ctx).
		Where("member_id = ? AND attendance_date = ? AND check_out_time IS NULL", memberID, date).
		Order("check_in_time DESC").
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *attendanceRepo) ListOpenBefore(ctx context.Context, memberID uint, date model.Date) ([]model.Attendance, error) {
	var recs []model.Attendance
	err := r.db.WithContext(ctx).
		Where("member_id = ? AND attendance_date < ? AND check_out_time IS NULL", memberID, date).
		Order("attendance_date ASC").
		Find(&recs).Error
	return recs, err
}

func (r *attendanceRepo) Close(ctx context.Context, id uint, at time.Time, autoClosed bool) error {
	result := r.db.WithContext(ctx).
		Model(&model.Attendance{}).
		Where("id = ? AND check_out_time IS NULL", id).
		Updates(map[string]interface{}{
			"check_out_time": at,
			"auto_closed":    autoClosed,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrSessionAlreadyClosed
	}
	return nil
}

func (r *attendanceRepo) ListOpenByDate(ctx context.Context, date model.Date) ([]model.Attendance, error) {
	var recs []model.Attendance
	err := r.db.WithContext(ctx).
		Preload("Member").
		Where("attendance_date = ? AND check_out_time IS NULL", date).
		Order("check_in_time ASC").
		Find(&recs).Error
	return recs, err
}

func (r *attendanceRepo) CountOpenByDate(ctx context.Context, date model.Date) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Attendance{}).
		Where("attendance_date = ? AND check_out_time IS NULL", date).
		Count(&n).Error
	return n, err
}

func (r *attendanceRepo) History(ctx context.Context, filter AttendanceFilter) ([]model.Attendance, error) {
	db := r.db.WithContext(ctx).Preload("Member")
	if filter.MemberID != nil {
		db = db.Where("member_id = ?", *filter.MemberID)
	}
	if filter.From != nil {
		db = db.Where("attendance_date >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("attendance_date <= ?", *filter.To)
	}

	var recs []model.Attendance
	err := db.Order("attendance_date DESC").
		Order("check_in_time DESC").
		Order("id DESC").
		Find(&recs).Error
	return recs, err
}
