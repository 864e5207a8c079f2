package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Themath93/gather-management-app/internal/model"
)

// PartRoleCount 出勤记录按 (聚会, 场次, 角色) 的计数
type PartRoleCount struct {
	GroupID string
	Part    model.Part
	Role    model.Role
	Count   int64
}

// AttendanceRepository 出勤记录数据访问接口
type AttendanceRepository interface {
	Get(ctx context.Context, groupID, userID string, part model.Part) (*model.AttendanceRecord, error)
	Create(ctx context.Context, record *model.AttendanceRecord) error
	UpdateStatus(ctx context.Context, attendanceID string, status model.AttendanceStatus) error
	// LatestAttendedDate 用户出勤记录中最晚的聚会日期；无出勤时返回 nil
	LatestAttendedDate(ctx context.Context, userID string) (*time.Time, error)
	CountAttendingByUser(ctx context.Context, userID string) (int64, error)
	// ListAttendees 某聚会某场次出勤的用户，按用户名排序
	ListAttendees(ctx context.Context, groupID string, part model.Part) ([]model.User, error)
	CountByGroups(ctx context.Context, groupIDs []string) ([]PartRoleCount, error)
	ListUserIDsByGroup(ctx context.Context, groupID string) ([]string, error)
	DeleteByGroup(ctx context.Context, groupID string) error
}

type attendanceRepo struct {
	db *gorm.DB
}

func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) Get(ctx context.Context, groupID, userID string, part model.Part) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ? AND part = ?", groupID, userID, part).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) Create(ctx context.Context, record *model.AttendanceRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *attendanceRepo) UpdateStatus(ctx context.Context, attendanceID string, status model.AttendanceStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("attendance_id = ?", attendanceID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

func (r *attendanceRepo) LatestAttendedDate(ctx context.Context, userID string) (*time.Time, error) {
	// ORDER BY + LIMIT 而非 MAX()：聚合结果在 SQLite 中丢失列类型，无法扫描为 time.Time
	var dates []time.Time
	err := r.db.WithContext(ctx).
		Table("attendance_records AS a").
		Joins("JOIN meeting_groups AS g ON g.group_id = a.group_id").
		Where("a.user_id = ? AND a.status = ?", userID, model.StatusAttending).
		Order("g.date DESC").
		Limit(1).
		Pluck("g.date", &dates).Error
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, nil
	}
	d := model.TruncateDate(dates[0])
	return &d, nil
}

func (r *attendanceRepo) CountAttendingByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("user_id = ? AND status = ?", userID, model.StatusAttending).
		Count(&n).Error
	return n, err
}

func (r *attendanceRepo) ListAttendees(ctx context.Context, groupID string, part model.Part) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Joins("JOIN attendance_records AS a ON a.user_id = users.user_id").
		Where("a.group_id = ? AND a.part = ? AND a.status = ?", groupID, part, model.StatusAttending).
		Order("users.username ASC").
		Find(&users).Error
	return users, err
}

func (r *attendanceRepo) CountByGroups(ctx context.Context, groupIDs []string) ([]PartRoleCount, error) {
	var rows []PartRoleCount
	if len(groupIDs) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).
		Table("attendance_records AS a").
		Select("a.group_id AS group_id, a.part AS part, u.role AS role, COUNT(*) AS count").
		Joins("JOIN users AS u ON u.user_id = a.user_id").
		Where("a.group_id IN ? AND a.status = ?", groupIDs, model.StatusAttending).
		Group("a.group_id, a.part, u.role").
		Scan(&rows).Error
	return rows, err
}

func (r *attendanceRepo) ListUserIDsByGroup(ctx context.Context, groupID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Distinct("user_id").
		Where("group_id = ?", groupID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *attendanceRepo) DeleteByGroup(ctx context.Context, groupID string) error {
	return r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Delete(&model.AttendanceRecord{}).Error
}
