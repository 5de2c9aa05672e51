package model

// 角色
const (
	RoleAdmin   = "admin"
	RoleTrainer = "trainer"
	RoleMember  = "member"
)

// IsStaff admin 与 trainer 视为员工
func IsStaff(role string) bool {
	return role == RoleAdmin || role == RoleTrainer
}

// User 登录账号表，对应 users
type User struct {
	ID           uint   `gorm:"primaryKey"                                 json:"id"`
	Username     string `gorm:"type:varchar(50);not null;uniqueIndex"      json:"username"`
	PasswordHash string `gorm:"type:varchar(255);not null"                 json:"-"`
	Role         string `gorm:"type:varchar(20);not null"                  json:"role"`
	IsActive     bool   `gorm:"not null"                                   json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
