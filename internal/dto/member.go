package dto

import "github.com/shopspring/decimal"

// ── 会员模块 DTO ──

// MemberListRequest 会员列表查询参数
type MemberListRequest struct {
	PaginationRequest
	Status  string `form:"status"  binding:"omitempty,oneof=active frozen inactive"`
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}

// CreateMemberRequest 创建会员（同时创建登录账号）
//
// MonthlyFee 为空时取对应套餐的 monthly_fee_* 配置；
// JoinDate 为空取今天，NextDueDate 为空取入会日一个月后。
type CreateMemberRequest struct {
	Username        string           `json:"username"          binding:"required,min=3,max=50"`
	Password        string           `json:"password"          binding:"required,min=8,max=72"`
	FullName        string           `json:"full_name"         binding:"required,max=100"`
	Email           string           `json:"email"             binding:"omitempty,email"`
	Phone           string           `json:"phone"             binding:"omitempty,max=30"`
	Gender          string           `json:"gender"            binding:"required,oneof=male female other"`
	PlanType        string           `json:"plan_type"         binding:"required,oneof=classic premium vip"`
	MonthlyFee      *decimal.Decimal `json:"monthly_fee"`
	JoinDate        string           `json:"join_date"         binding:"omitempty,datetime=2006-01-02"`
	NextDueDate     string           `json:"next_due_date"     binding:"omitempty,datetime=2006-01-02"`
	GracePeriodDays *int             `json:"grace_period_days" binding:"omitempty,min=0"`
}

// UpdateMemberRequest 更新会员档案（仅更新非空字段）
type UpdateMemberRequest struct {
	FullName        *string          `json:"full_name"         binding:"omitempty,min=1,max=100"`
	Email           *string          `json:"email"             binding:"omitempty,email"`
	Phone           *string          `json:"phone"             binding:"omitempty,max=30"`
	Gender          *string          `json:"gender"            binding:"omitempty,oneof=male female other"`
	PlanType        *string          `json:"plan_type"         binding:"omitempty,oneof=classic premium vip"`
	MonthlyFee      *decimal.Decimal `json:"monthly_fee"`
	NextDueDate     *string          `json:"next_due_date"     binding:"omitempty,datetime=2006-01-02"`
	GracePeriodDays *int             `json:"grace_period_days" binding:"omitempty,min=0"`
	Status          *string          `json:"status"            binding:"omitempty,oneof=active frozen inactive"`
}

// MemberResponse 会员档案响应
type MemberResponse struct {
	ID              uint            `json:"id"`
	UserID          uint            `json:"user_id"`
	Username        string          `json:"username,omitempty"`
	FullName        string          `json:"full_name"`
	Email           string          `json:"email,omitempty"`
	Phone           string          `json:"phone,omitempty"`
	Gender          string          `json:"gender"`
	PlanType        string          `json:"plan_type"`
	MonthlyFee      decimal.Decimal `json:"monthly_fee"`
	JoinDate        string          `json:"join_date"`
	NextDueDate     string          `json:"next_due_date"`
	GracePeriodDays int             `json:"grace_period_days"`
	Status          string          `json:"status"`
	CreatedAt       string          `json:"created_at"`
}
