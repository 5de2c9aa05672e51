package repository

import (
	"context"

	"gorm.io/gorm"

	"gympulse/backend/internal/model"
)

// MemberFilter 会员列表筛选条件
type MemberFilter struct {
	Status  string
	Keyword string // 匹配姓名、邮箱或电话
}

// MemberRepository 会员档案数据访问接口
type MemberRepository interface {
	// CreateWithUser 在同一事务内创建账号与会员档案
	CreateWithUser(ctx context.Context, user *model.User, member *model.Member) error
	GetByID(ctx context.Context, id uint) (*model.Member, error)
	GetByUserID(ctx context.Context, userID uint) (*model.Member, error)
	ListByIDs(ctx context.Context, ids []uint) ([]model.Member, error)
	List(ctx context.Context, filter MemberFilter, offset, limit int) ([]model.Member, int64, error)
	Update(ctx context.Context, member *model.Member) error
}

type memberRepo struct {
	db *gorm.DB
}

// NewMemberRepo 创建 MemberRepository 实例
func NewMemberRepo(db *gorm.DB) MemberRepository {
	return &memberRepo{db: db}
}

func (r *memberRepo) CreateWithUser(ctx context.Context, user *model.User, member *model.Member) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		member.UserID = user.ID
		if err := tx.Omit("User").Create(member).Error; err != nil {
			return err
		}
		member.User = user
		return nil
	})
}

func (r *memberRepo) GetByID(ctx context.Context, id uint) (*model.Member, error) {
	var member model.Member
	err := r.db.WithContext(ctx).
		Preload("User").
		First(&member, id).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepo) GetByUserID(ctx context.Context, userID uint) (*model.Member, error) {
	var member model.Member
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepo) ListByIDs(ctx context.Context, ids []uint) ([]model.Member, error) {
	var members []model.Member
	if len(ids) == 0 {
		return members, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&members).Error
	return members, err
}

func (r *memberRepo) List(ctx context.Context, filter MemberFilter, offset, limit int) ([]model.Member, int64, error) {
	var members []model.Member
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Member{})
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		db = db.Where("full_name LIKE ? OR email LIKE ? OR phone LIKE ?", like, like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("User").
		Offset(offset).Limit(limit).
		Order("id ASC").
		Find(&members).Error; err != nil {
		return nil, 0, err
	}

	return members, total, nil
}

func (r *memberRepo) Update(ctx context.Context, member *model.Member) error {
	return r.db.WithContext(ctx).Omit("User").Save(member).Error
}
