package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User 用户表，对应 users
// AttendanceCount / LastAttended 为出勤聚合值，只由出勤台账维护
type User struct {
	UserID          string     `gorm:"type:uuid;primaryKey"                       json:"user_id"`
	Username        string     `gorm:"type:varchar(50);not null;uniqueIndex"      json:"username"`
	Email           string     `gorm:"type:varchar(255);not null;uniqueIndex"     json:"email"`
	PasswordHash    string     `gorm:"type:varchar(255);not null"                 json:"-"`
	Role            Role       `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	Gender          Gender     `gorm:"type:varchar(10);not null"                  json:"gender"`
	Interests       string     `gorm:"type:varchar(500);not null;default:''"      json:"interests"`
	AttendanceCount int        `gorm:"not null;default:0"                         json:"attendance_count"`
	LastAttended    *time.Time `gorm:"type:date"                                  json:"last_attended,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// BeforeCreate 生成主键
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.UserID == "" {
		u.UserID = uuid.NewString()
	}
	if u.Version == 0 {
		u.Version = 1
	}
	return nil
}
