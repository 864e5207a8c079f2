package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttendanceRecord 出勤记录，对应 attendance_records
// (group_id, user_id, part) 唯一
type AttendanceRecord struct {
	AttendanceID string           `gorm:"type:uuid;primaryKey"                                       json:"attendance_id"`
	GroupID      string           `gorm:"type:uuid;not null;uniqueIndex:uq_attendance_group_user_part" json:"group_id"`
	UserID       string           `gorm:"type:uuid;not null;uniqueIndex:uq_attendance_group_user_part;index" json:"user_id"`
	Part         Part             `gorm:"type:varchar(10);not null;uniqueIndex:uq_attendance_group_user_part" json:"part"`
	Status       AttendanceStatus `gorm:"type:varchar(20);not null"                                  json:"status"`
	BaseModel
}

func (AttendanceRecord) TableName() string { return "attendance_records" }

func (a *AttendanceRecord) BeforeCreate(_ *gorm.DB) error {
	if a.AttendanceID == "" {
		a.AttendanceID = uuid.NewString()
	}
	return nil
}
