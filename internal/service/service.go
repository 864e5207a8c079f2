package service

import (
	"errors"

	"go.uber.org/zap"

	"github.com/Themath93/gather-management-app/config"
	"github.com/Themath93/gather-management-app/internal/repository"
	pkgerrors "github.com/Themath93/gather-management-app/pkg/errors"
	"github.com/Themath93/gather-management-app/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	User       UserService
	Group      GroupService
	Attendance AttendanceService
	Team       TeamService
	Export     ExportService
	Calendar   CalendarService
}

// NewService 创建 Service 聚合
// cache 可为 nil（未配置 Redis 时不缓存）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	cache Cache,
	logger *zap.Logger,
	teamOpts ...TeamOption,
) *Service {
	c := newReadCache(cache, cfg.Cache.TTL, logger)
	teamSvc := NewTeamService(repo, c, cfg.Team.DefaultSize, logger, teamOpts...)
	groupSvc := NewGroupService(repo, c, logger)
	return &Service{
		Auth:       NewAuthService(cfg, repo, jwtMgr, logger),
		User:       NewUserService(repo, c, logger),
		Group:      groupSvc,
		Attendance: NewAttendanceService(repo, c, logger),
		Team:       teamSvc,
		Export:     NewExportService(repo, logger),
		Calendar:   NewCalendarService(repo, groupSvc, logger),
	}
}

// isBusinessError 业务错误不记 Error 日志，由 Handler 映射为 4xx
func isBusinessError(err error) bool {
	return errors.Is(err, pkgerrors.ErrNotFound) ||
		errors.Is(err, pkgerrors.ErrConflict) ||
		errors.Is(err, pkgerrors.ErrValidation)
}
