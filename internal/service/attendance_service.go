package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Themath93/gather-management-app/internal/model"
	"github.com/Themath93/gather-management-app/internal/repository"
	pkgerrors "github.com/Themath93/gather-management-app/pkg/errors"
)

// ── 出勤模块业务错误 ──

var (
	ErrInvalidPart   = pkgerrors.Validation("场次无效，仅支持 first / second")
	ErrInvalidStatus = pkgerrors.Validation("出勤状态无效，仅支持 attending / absent")
)

// AttendanceService 出勤台账
// 每次状态变更与用户聚合值（出勤次数、最近出勤日期）在同一事务内提交
type AttendanceService interface {
	SetStatus(ctx context.Context, groupID, userID string, part model.Part, status model.AttendanceStatus) error
	// GetStatus 无记录时 found 为 false
	GetStatus(ctx context.Context, groupID, userID string, part model.Part) (status model.AttendanceStatus, found bool, err error)
	// RecomputeUser 按出勤事实重建单个用户的聚合值
	RecomputeUser(ctx context.Context, userID string) error
	// RecomputeAll 重建全部用户，返回处理人数
	RecomputeAll(ctx context.Context) (int, error)
}

type attendanceService struct {
	repo   *repository.Repository
	cache  *readCache
	logger *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, cache *readCache, logger *zap.Logger) AttendanceService {
	return &attendanceService{repo: repo, cache: cache, logger: logger}
}

// ────────────────────── SetStatus ──────────────────────

func (s *attendanceService) SetStatus(ctx context.Context, groupID, userID string, part model.Part, status model.AttendanceStatus) error {
	if !part.IsValid() {
		return ErrInvalidPart
	}
	if !status.IsValid() {
		return ErrInvalidStatus
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		group, err := tx.Group.GetByID(ctx, groupID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}

		// 行锁：同一用户的并发出勤写入在此串行化
		user, err := tx.User.GetByIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		record, err := tx.Attendance.Get(ctx, groupID, userID, part)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if record == nil {
			record = &model.AttendanceRecord{
				GroupID: groupID,
				UserID:  userID,
				Part:    part,
				Status:  status,
			}
			if err := tx.Attendance.Create(ctx, record); err != nil {
				return err
			}
			if status != model.StatusAttending {
				return nil
			}
			markAttended(user, group)
			return tx.User.UpdateAttendanceStats(ctx, user)
		}

		prev := record.Status
		if err := tx.Attendance.UpdateStatus(ctx, record.AttendanceID, status); err != nil {
			return err
		}

		switch {
		case prev == status:
			// 状态未变，聚合值保持不动
			return nil
		case prev == model.StatusAttending && status == model.StatusAbsent:
			if user.AttendanceCount > 0 {
				user.AttendanceCount--
			}
			// 撤销出勤后，最近出勤日期须从剩余记录重新计算
			latest, err := tx.Attendance.LatestAttendedDate(ctx, userID)
			if err != nil {
				return err
			}
			user.LastAttended = latest
		default:
			markAttended(user, group)
		}

		return tx.User.UpdateAttendanceStats(ctx, user)
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("设置出勤状态失败",
				zap.String("group_id", groupID),
				zap.String("user_id", userID),
				zap.String("part", string(part)),
				zap.Error(err))
		}
		return err
	}

	s.cache.invalidate(ctx, countsKey(groupID), groupListKey)
	return nil
}

// markAttended 出勤次数 +1，最近出勤日期只前进不后退
func markAttended(user *model.User, group *model.Group) {
	user.AttendanceCount++
	date := model.TruncateDate(group.Date)
	if user.LastAttended == nil || user.LastAttended.Before(date) {
		user.LastAttended = &date
	}
}

// ────────────────────── GetStatus ──────────────────────

func (s *attendanceService) GetStatus(ctx context.Context, groupID, userID string, part model.Part) (model.AttendanceStatus, bool, error) {
	if !part.IsValid() {
		return "", false, ErrInvalidPart
	}
	record, err := s.repo.Attendance.Get(ctx, groupID, userID, part)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		s.logger.Error("查询出勤状态失败", zap.Error(err))
		return "", false, err
	}
	return record.Status, true, nil
}

// ────────────────────── Recompute ──────────────────────

func (s *attendanceService) RecomputeUser(ctx context.Context, userID string) error {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		return recomputeUserStats(ctx, tx, userID)
	})
	if err != nil && !isBusinessError(err) {
		s.logger.Error("重建出勤聚合失败", zap.String("user_id", userID), zap.Error(err))
	}
	return err
}

func (s *attendanceService) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := s.repo.User.ListIDs(ctx)
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return 0, err
	}
	for i, id := range ids {
		if err := s.RecomputeUser(ctx, id); err != nil {
			return i, err
		}
	}
	s.logger.Info("出勤聚合重建完成", zap.Int("users", len(ids)))
	return len(ids), nil
}

// recomputeUserStats 在给定事务中按出勤事实重写用户聚合值
func recomputeUserStats(ctx context.Context, tx *repository.Repository, userID string) error {
	user, err := tx.User.GetByIDForUpdate(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	count, err := tx.Attendance.CountAttendingByUser(ctx, userID)
	if err != nil {
		return err
	}
	latest, err := tx.Attendance.LatestAttendedDate(ctx, userID)
	if err != nil {
		return err
	}
	user.AttendanceCount = int(count)
	user.LastAttended = latest
	return tx.User.UpdateAttendanceStats(ctx, user)
}
