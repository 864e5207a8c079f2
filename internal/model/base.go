package model

import (
	"time"
)

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// VersionedModel 支持乐观锁的模型
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// DateLayout 聚会日期的文本格式
const DateLayout = "2006-01-02"

// TruncateDate 去掉时分秒，统一为 UTC 零点的日历日期
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate 解析 YYYY-MM-DD 日期
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// All 返回需要建表的全部模型（SQLite AutoMigrate 使用，顺序即依赖顺序）
func All() []interface{} {
	return []interface{}{
		&User{},
		&Group{},
		&AttendanceRecord{},
		&Team{},
		&TeamMember{},
	}
}
