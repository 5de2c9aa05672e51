package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
//
// 传入事务句柄即可得到绑定到该事务的副本：NewRepository(tx)。
type Repository struct {
	User       UserRepository
	Member     MemberRepository
	Attendance AttendanceRepository
	Setting    SettingRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:       NewUserRepo(db),
		Member:     NewMemberRepo(db),
		Attendance: NewAttendanceRepo(db),
		Setting:    NewSettingRepo(db),
	}
}
