package model

// 已知配置键
const (
	SettingGymName           = "gym_name"
	SettingGymCapacity       = "gym_capacity"
	SettingGracePeriodDays   = "grace_period_days"
	SettingMonthlyFeeClassic = "monthly_fee_classic"
	SettingMonthlyFeePremium = "monthly_fee_premium"
	SettingMonthlyFeeVIP     = "monthly_fee_vip"
	SettingEnableStore       = "enable_store"
	SettingEnableWorkouts    = "enable_workouts"
	SettingEnableDiets       = "enable_diets"
)

// Setting 键值配置表，对应 settings
type Setting struct {
	Key       string `gorm:"type:varchar(100);primaryKey" json:"key"`
	Value     string `gorm:"type:text;not null"           json:"value"`
	UpdatedBy *uint  `json:"updated_by,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Setting) TableName() string { return "settings" }
