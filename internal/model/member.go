package model

import "github.com/shopspring/decimal"

// 会员状态
const (
	MemberStatusActive   = "active"
	MemberStatusFrozen   = "frozen"
	MemberStatusInactive = "inactive"
)

// 套餐类型
const (
	PlanClassic = "classic"
	PlanPremium = "premium"
	PlanVIP     = "vip"
)

// DefaultGracePeriodDays 创建会员时未指定宽限期的默认值
const DefaultGracePeriodDays = 5

// Member 会员档案表，对应 members（与 users 一对一）
type Member struct {
	ID              uint            `gorm:"primaryKey"                            json:"id"`
	UserID          uint            `gorm:"not null;uniqueIndex"                  json:"user_id"`
	FullName        string          `gorm:"type:varchar(100);not null"            json:"full_name"`
	Email           string          `gorm:"type:varchar(255)"                     json:"email,omitempty"`
	Phone           string          `gorm:"type:varchar(30)"                      json:"phone,omitempty"`
	Gender          string          `gorm:"type:varchar(10);not null"             json:"gender"`    // male | female | other
	PlanType        string          `gorm:"type:varchar(20);not null"             json:"plan_type"` // classic | premium | vip
	MonthlyFee      decimal.Decimal `gorm:"type:numeric(10,2);not null"           json:"monthly_fee"`
	JoinDate        Date            `gorm:"type:date;not null"                    json:"join_date"`
	NextDueDate     Date            `gorm:"type:date;not null"                    json:"next_due_date"`
	GracePeriodDays int             `gorm:"not null"                              json:"grace_period_days"`
	Status          string          `gorm:"type:varchar(20);not null;index"       json:"status"` // active | frozen | inactive
	BaseModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// TableName 指定表名
func (Member) TableName() string { return "members" }

// IsActive 仅 active 状态允许签到
func (m *Member) IsActive() bool { return m.Status == MemberStatusActive }
