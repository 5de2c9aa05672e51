package dto

import (
	"time"

	"gympulse/backend/pkg/occupancy"
)

// ── 到馆模块 DTO ──

// CheckInRequest 员工代签到请求
type CheckInRequest struct {
	MemberID uint `json:"member_id" binding:"required,min=1"`
}

// CheckOutRequest 员工代签出请求
type CheckOutRequest struct {
	MemberID uint `json:"member_id" binding:"required,min=1"`
}

// HistoryRequest 到馆历史查询参数（日期闭区间）
type HistoryRequest struct {
	MemberID *uint  `form:"member_id" binding:"omitempty,min=1"`
	From     string `form:"from"      binding:"omitempty,datetime=2006-01-02"`
	To       string `form:"to"        binding:"omitempty,datetime=2006-01-02"`
}

// AttendanceResponse 到馆记录响应
type AttendanceResponse struct {
	ID              uint       `json:"id"`
	MemberID        uint       `json:"member_id"`
	MemberName      string     `json:"member_name,omitempty"`
	Date            string     `json:"date"`
	CheckInTime     time.Time  `json:"check_in_time"`
	CheckOutTime    *time.Time `json:"check_out_time"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	AutoClosed      bool       `json:"auto_closed"`
}

// LiveAttendee 在馆会员（仅员工可见）
type LiveAttendee struct {
	AttendanceID uint      `json:"attendance_id"`
	MemberID     uint      `json:"member_id"`
	FullName     string    `json:"full_name"`
	PlanType     string    `json:"plan_type"`
	Status       string    `json:"status"`
	CheckInTime  time.Time `json:"check_in_time"`
}

// LiveAttendanceResponse 员工视角的实时在馆快照，无人在馆时 attendees 为 []
// 会员视角只返回内嵌的 occupancy.Snapshot
type LiveAttendanceResponse struct {
	occupancy.Snapshot
	Attendees []LiveAttendee `json:"attendees"`
}

// CheckStatusResponse 本人签到状态
type CheckStatusResponse struct {
	IsCheckedIn bool                `json:"is_checked_in"`
	Attendance  *AttendanceResponse `json:"attendance"`
}
