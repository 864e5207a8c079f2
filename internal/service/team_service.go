package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Themath93/gather-management-app/internal/dto"
	"github.com/Themath93/gather-management-app/internal/model"
	"github.com/Themath93/gather-management-app/internal/repository"
	pkgerrors "github.com/Themath93/gather-management-app/pkg/errors"
)

// ── 分组模块业务错误 ──

var (
	ErrInvalidTeamSize = pkgerrors.Validation("每组人数必须为正整数")
	ErrNoAttendees     = pkgerrors.Validation("该场次没有出勤用户，无法分组")
	ErrTeamNotAssigned = pkgerrors.NotFound("该用户尚未被分配到任何分组")
)

// TeamService 分组业务接口
type TeamService interface {
	// Shuffle 整体替换 (聚会, 场次) 下的全部分组
	Shuffle(ctx context.Context, groupID string, part model.Part, teamSize int) (*dto.ShuffleResponse, error)
	GetTeams(ctx context.Context, groupID string) ([]dto.TeamResponse, error)
	// GetMyTeam part 为空时返回按场次排序的第一个分组
	GetMyTeam(ctx context.Context, groupID, userID string, part model.Part) (*dto.MyTeamResponse, error)
	DefaultTeamSize() int
}

// TeamOption 构造选项
type TeamOption func(*teamService)

// WithRand 注入随机源（测试中使用固定种子）
func WithRand(rng *rand.Rand) TeamOption {
	return func(s *teamService) { s.rng = rng }
}

type teamService struct {
	repo        *repository.Repository
	cache       *readCache
	defaultSize int
	logger      *zap.Logger

	mu  sync.Mutex // rand.Rand 非并发安全
	rng *rand.Rand
}

// NewTeamService 创建 TeamService 实例
func NewTeamService(repo *repository.Repository, cache *readCache, defaultSize int, logger *zap.Logger, opts ...TeamOption) TeamService {
	s := &teamService{
		repo:        repo,
		cache:       cache,
		defaultSize: defaultSize,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		now := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(now, now>>17|1))
	}
	return s
}

func (s *teamService) DefaultTeamSize() int { return s.defaultSize }

// ────────────────────── Shuffle ──────────────────────

func (s *teamService) Shuffle(ctx context.Context, groupID string, part model.Part, teamSize int) (*dto.ShuffleResponse, error) {
	if teamSize <= 0 {
		return nil, ErrInvalidTeamSize
	}
	if !part.IsValid() {
		return nil, ErrInvalidPart
	}

	var built []BuiltTeam
	var total int

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Group.GetByID(ctx, groupID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}

		// 同一 (聚会, 场次) 的打乱串行执行，出勤名单在锁内读取
		if err := tx.Team.LockGroupPart(ctx, groupID, part); err != nil {
			return err
		}

		attendees, err := tx.Attendance.ListAttendees(ctx, groupID, part)
		if err != nil {
			return err
		}
		total = len(attendees)

		s.mu.Lock()
		built, err = BuildTeams(attendees, teamSize, s.rng)
		s.mu.Unlock()
		if err != nil {
			return err
		}

		if err := tx.Team.DeleteByGroupAndPart(ctx, groupID, part); err != nil {
			return err
		}

		var members []model.TeamMember
		teamIDs := make([]string, len(built))
		for i, bt := range built {
			team := &model.Team{GroupID: groupID, Part: part, Number: bt.Number}
			if err := tx.Team.Create(ctx, team); err != nil {
				return err
			}
			teamIDs[i] = team.TeamID
			for k, u := range bt.Members {
				members = append(members, model.TeamMember{
					TeamID:   team.TeamID,
					GroupID:  groupID,
					Part:     part,
					UserID:   u.UserID,
					IsLeader: k == 0,
				})
			}
		}
		if err := tx.Team.BatchCreateMembers(ctx, members); err != nil {
			return err
		}

		for i := range built {
			built[i].teamID = teamIDs[i]
		}
		return nil
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("打乱分组失败",
				zap.String("group_id", groupID),
				zap.String("part", string(part)),
				zap.Error(err))
		}
		return nil, err
	}

	s.cache.invalidate(ctx, teamsKey(groupID))
	s.logger.Info("分组已生成",
		zap.String("group_id", groupID),
		zap.String("part", string(part)),
		zap.Int("attendees", total),
		zap.Int("teams", len(built)))

	resp := &dto.ShuffleResponse{
		TeamCount:      len(built),
		TotalAttendees: total,
		Teams:          make([]dto.TeamResponse, 0, len(built)),
	}
	for _, bt := range built {
		resp.Teams = append(resp.Teams, toBuiltTeamResponse(bt, part))
	}
	return resp, nil
}

// ────────────────────── GetTeams ──────────────────────

func (s *teamService) GetTeams(ctx context.Context, groupID string) ([]dto.TeamResponse, error) {
	var cached []dto.TeamResponse
	if s.cache.get(ctx, teamsKey(groupID), &cached) {
		return cached, nil
	}

	if _, err := s.repo.Group.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		s.logger.Error("查询聚会失败", zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}

	teams, err := s.repo.Team.ListByGroup(ctx, groupID)
	if err != nil {
		s.logger.Error("查询分组失败", zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.TeamResponse, 0, len(teams))
	for _, t := range teams {
		result = append(result, toTeamResponse(&t))
	}

	s.cache.set(ctx, teamsKey(groupID), result)
	return result, nil
}

// ────────────────────── GetMyTeam ──────────────────────

func (s *teamService) GetMyTeam(ctx context.Context, groupID, userID string, part model.Part) (*dto.MyTeamResponse, error) {
	if part != "" && !part.IsValid() {
		return nil, ErrInvalidPart
	}
	if _, err := s.repo.Group.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		s.logger.Error("查询聚会失败", zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}

	memberships, err := s.repo.Team.FindMemberships(ctx, groupID, userID)
	if err != nil {
		s.logger.Error("查询分组归属失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	for _, m := range memberships {
		if part != "" && m.Part != part {
			continue
		}
		return &dto.MyTeamResponse{
			TeamID:   m.TeamID,
			Part:     string(m.Part),
			Number:   m.Number,
			IsLeader: m.IsLeader,
		}, nil
	}
	return nil, ErrTeamNotAssigned
}

// ── 内部辅助方法 ──

func toTeamResponse(t *model.Team) dto.TeamResponse {
	resp := dto.TeamResponse{
		TeamID:  t.TeamID,
		Part:    string(t.Part),
		Number:  t.Number,
		Members: make([]dto.TeamMemberResponse, 0, len(t.Members)),
	}
	for _, m := range t.Members {
		item := dto.TeamMemberResponse{UserID: m.UserID, IsLeader: m.IsLeader}
		if m.User != nil {
			item.Username = m.User.Username
			item.Gender = string(m.User.Gender)
		}
		resp.Members = append(resp.Members, item)
	}
	return resp
}

func toBuiltTeamResponse(bt BuiltTeam, part model.Part) dto.TeamResponse {
	resp := dto.TeamResponse{
		TeamID:  bt.teamID,
		Part:    string(part),
		Number:  bt.Number,
		Members: make([]dto.TeamMemberResponse, 0, len(bt.Members)),
	}
	for k, u := range bt.Members {
		resp.Members = append(resp.Members, dto.TeamMemberResponse{
			UserID:   u.UserID,
			Username: u.Username,
			Gender:   string(u.Gender),
			IsLeader: k == 0,
		})
	}
	return resp
}
