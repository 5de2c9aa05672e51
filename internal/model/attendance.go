package model

import "time"

// Attendance 到馆记录表，对应 attendance
//
// CheckOutTime 为空表示会员仍在馆内。部分唯一索引
// idx_attendance_open_session 保证同一会员任意时刻至多一条未签出记录（跨日同样生效）。
type Attendance struct {
	ID             uint       `gorm:"primaryKey"                                                                      json:"id"`
	MemberID       uint       `gorm:"not null;index;uniqueIndex:idx_attendance_open_session,where:check_out_time IS NULL" json:"member_id"`
	AttendanceDate Date       `gorm:"type:date;not null;index"                                                         json:"date"`
	CheckInTime    time.Time  `gorm:"not null"                                                                        json:"check_in_time"`
	CheckOutTime   *time.Time `json:"check_out_time"`
	AutoClosed     bool       `gorm:"not null;default:false"                                                          json:"auto_closed"` // 隔日补签出

	// 关联
	Member *Member `gorm:"foreignKey:MemberID;references:ID" json:"member,omitempty"`
}

// TableName 指定表名
func (Attendance) TableName() string { return "attendance" }

// IsOpen 尚未签出
func (a *Attendance) IsOpen() bool { return a.CheckOutTime == nil }
