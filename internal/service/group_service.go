package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Themath93/gather-management-app/internal/dto"
	"github.com/Themath93/gather-management-app/internal/model"
	"github.com/Themath93/gather-management-app/internal/repository"
	pkgerrors "github.com/Themath93/gather-management-app/pkg/errors"
)

// ── 聚会模块业务错误 ──

var (
	ErrGroupNotFound   = pkgerrors.NotFound("聚会不存在")
	ErrInvalidDate     = pkgerrors.Validation("日期格式无效，应为 YYYY-MM-DD")
	ErrGroupDateExists = pkgerrors.Conflict("该日期已存在聚会")
)

// GroupService 聚会业务接口
type GroupService interface {
	Create(ctx context.Context, req *dto.CreateGroupRequest) (*dto.GroupResponse, error)
	GetByID(ctx context.Context, id string) (*dto.GroupResponse, error)
	List(ctx context.Context) ([]dto.GroupSummaryResponse, error)
	// Delete 同时删除分组与出勤记录，并重建受影响用户的聚合值
	Delete(ctx context.Context, id string) error
	GetAttendeeCounts(ctx context.Context, id string) (*dto.AttendeeCountResponse, error)
	ListAttendees(ctx context.Context, id string, part model.Part) ([]dto.UserBrief, error)
}

type groupService struct {
	repo   *repository.Repository
	cache  *readCache
	logger *zap.Logger
}

// NewGroupService 创建 GroupService 实例
func NewGroupService(repo *repository.Repository, cache *readCache, logger *zap.Logger) GroupService {
	return &groupService{repo: repo, cache: cache, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *groupService) Create(ctx context.Context, req *dto.CreateGroupRequest) (*dto.GroupResponse, error) {
	date, err := model.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return nil, ErrInvalidDate
	}

	if _, err := s.repo.Group.GetByDate(ctx, date); err == nil {
		return nil, ErrGroupDateExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询聚会失败", zap.Error(err))
		return nil, err
	}

	group := &model.Group{Date: date}
	if err := s.repo.Group.Create(ctx, group); err != nil {
		// 并发创建同一日期时由唯一约束兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrGroupDateExists
		}
		s.logger.Error("创建聚会失败", zap.Error(err))
		return nil, err
	}

	s.cache.invalidate(ctx, groupListKey)
	return toGroupResponse(group), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *groupService) GetByID(ctx context.Context, id string) (*dto.GroupResponse, error) {
	group, err := s.repo.Group.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		s.logger.Error("查询聚会失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toGroupResponse(group), nil
}

// ────────────────────── List ──────────────────────

func (s *groupService) List(ctx context.Context) ([]dto.GroupSummaryResponse, error) {
	var cached []dto.GroupSummaryResponse
	if s.cache.get(ctx, groupListKey, &cached) {
		return cached, nil
	}

	groups, err := s.repo.Group.List(ctx)
	if err != nil {
		s.logger.Error("列出聚会失败", zap.Error(err))
		return nil, err
	}

	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.GroupID
	}
	rows, err := s.repo.Attendance.CountByGroups(ctx, ids)
	if err != nil {
		s.logger.Error("统计出勤人数失败", zap.Error(err))
		return nil, err
	}

	byGroup := make(map[string][]repository.PartRoleCount)
	for _, r := range rows {
		byGroup[r.GroupID] = append(byGroup[r.GroupID], r)
	}

	result := make([]dto.GroupSummaryResponse, 0, len(groups))
	for _, g := range groups {
		counts := aggregateCounts(byGroup[g.GroupID])
		result = append(result, dto.GroupSummaryResponse{
			ID:    g.GroupID,
			Date:  g.DateString(),
			Parts: counts.Parts,
		})
	}

	s.cache.set(ctx, groupListKey, result)
	return result, nil
}

// ────────────────────── Delete ──────────────────────

func (s *groupService) Delete(ctx context.Context, id string) error {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Group.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}

		affected, err := tx.Attendance.ListUserIDsByGroup(ctx, id)
		if err != nil {
			return err
		}

		if err := tx.Team.DeleteByGroup(ctx, id); err != nil {
			return err
		}
		if err := tx.Attendance.DeleteByGroup(ctx, id); err != nil {
			return err
		}
		if err := tx.Group.Delete(ctx, id); err != nil {
			return err
		}

		for _, userID := range affected {
			if err := recomputeUserStats(ctx, tx, userID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("删除聚会失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}

	s.cache.invalidate(ctx, countsKey(id), teamsKey(id), groupListKey)
	return nil
}

// ────────────────────── GetAttendeeCounts ──────────────────────

func (s *groupService) GetAttendeeCounts(ctx context.Context, id string) (*dto.AttendeeCountResponse, error) {
	var cached dto.AttendeeCountResponse
	if s.cache.get(ctx, countsKey(id), &cached) {
		return &cached, nil
	}

	if _, err := s.repo.Group.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		s.logger.Error("查询聚会失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	rows, err := s.repo.Attendance.CountByGroups(ctx, []string{id})
	if err != nil {
		s.logger.Error("统计出勤人数失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	counts := aggregateCounts(rows)
	s.cache.set(ctx, countsKey(id), counts)
	return counts, nil
}

// ────────────────────── ListAttendees ──────────────────────

func (s *groupService) ListAttendees(ctx context.Context, id string, part model.Part) ([]dto.UserBrief, error) {
	if !part.IsValid() {
		return nil, ErrInvalidPart
	}
	if _, err := s.repo.Group.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		s.logger.Error("查询聚会失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	users, err := s.repo.Attendance.ListAttendees(ctx, id, part)
	if err != nil {
		s.logger.Error("查询出勤名单失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	result := make([]dto.UserBrief, 0, len(users))
	for _, u := range users {
		result = append(result, dto.UserBrief{
			ID:       u.UserID,
			Username: u.Username,
			Role:     string(u.Role),
			Gender:   string(u.Gender),
		})
	}
	return result, nil
}

// ── 内部辅助方法 ──

func toGroupResponse(g *model.Group) *dto.GroupResponse {
	return &dto.GroupResponse{ID: g.GroupID, Date: g.DateString()}
}

// aggregateCounts 汇总出勤记录计数，两个场次总是都出现在结果中
func aggregateCounts(rows []repository.PartRoleCount) *dto.AttendeeCountResponse {
	resp := &dto.AttendeeCountResponse{Parts: make(map[string]dto.PartCount, 2)}
	for _, p := range model.Parts() {
		resp.Parts[string(p)] = dto.PartCount{}
	}

	for _, r := range rows {
		pc := resp.Parts[string(r.Part)]
		n := int(r.Count)
		pc.Total += n
		resp.Total += n
		if r.Role.IsLeadership() {
			pc.LeadershipCount += n
			resp.LeadershipCount += n
		} else {
			pc.MemberCount += n
			resp.MemberCount += n
		}
		resp.Parts[string(r.Part)] = pc
	}
	return resp
}
