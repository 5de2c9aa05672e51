package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// ── 日历日期自定义类型 ──

// DateLayout 日期统一格式
const DateLayout = "2006-01-02"

// Date 对应 SQL DATE 列，以 YYYY-MM-DD 文本读写，实现 GORM Scanner/Valuer 接口。
// 字符串形式可直接按字典序比较，与日期先后一致。
type Date string

// DateOf 取 t 在其自身时区下的日历日
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date(s), nil
}

// In 返回该日期在 loc 中的零点
func (d Date) In(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, string(d), loc)
}

// EndIn 返回该日期在 loc 中的最后一纳秒
func (d Date) EndIn(loc *time.Location) (time.Time, error) {
	start, err := d.In(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
}

// Scan 兼容驱动返回的 time.Time（PostgreSQL）与文本（SQLite）。
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = ""
	case time.Time:
		*d = Date(v.Format(DateLayout))
	case []byte:
		return d.scanText(string(v))
	case string:
		return d.scanText(v)
	default:
		return fmt.Errorf("Date.Scan: unsupported type %T", src)
	}
	return nil
}

func (d *Date) scanText(s string) error {
	if len(s) < len(DateLayout) {
		return fmt.Errorf("Date.Scan: invalid value %q", s)
	}
	*d = Date(s[:len(DateLayout)])
	return nil
}

// Value 以 YYYY-MM-DD 写入
func (d Date) Value() (driver.Value, error) {
	if d == "" {
		return nil, nil
	}
	return string(d), nil
}

// BaseModel 通用审计字段
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
