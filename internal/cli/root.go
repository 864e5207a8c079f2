package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Themath93/gather-management-app/config"
	"github.com/Themath93/gather-management-app/internal/dto"
	"github.com/Themath93/gather-management-app/internal/model"
	"github.com/Themath93/gather-management-app/internal/repository"
	"github.com/Themath93/gather-management-app/internal/service"
	"github.com/Themath93/gather-management-app/pkg/database"
	"github.com/Themath93/gather-management-app/pkg/jwt"
	applogger "github.com/Themath93/gather-management-app/pkg/logger"
)

// RootOptions 全局参数
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand 创建 gatherctl 根命令
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "gatherctl",
		Short: "聚会出勤与分组运维工具",
		Long: `gatherctl 用于初始化数据库、导入测试数据与聚会日历、重建出勤聚合值以及手动分组。

所有写入都经过与 HTTP 服务相同的业务层，出勤次数与最近出勤日期始终与出勤记录一致。`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "配置文件路径（默认查找 ./config/config.yaml）")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewRecomputeCommand(opts))
	cmd.AddCommand(NewShuffleCommand(opts))
	cmd.AddCommand(NewImportCalendarCommand(opts))

	return cmd
}

// app 单次命令执行所需的依赖
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	repo   *repository.Repository
	svc    *service.Service
}

// bootstrap 加载配置、连接数据库并执行迁移
// 运维命令不使用 Redis 缓存
func bootstrap(opts *RootOptions, teamOpts ...service.TeamOption) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	if err := database.RunMigrations(db, logger, model.All()...); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwt.NewManager(&cfg.Auth), nil, logger, teamOpts...)
	return &app{cfg: cfg, logger: logger, db: db, repo: repo, svc: svc}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
	closeDB(a.db)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// resolveGroup 按 ID 或日期定位聚会；create 为 true 时日期不存在则新建
func (a *app) resolveGroup(ctx context.Context, groupID, date string, create bool) (string, error) {
	if groupID != "" {
		g, err := a.svc.Group.GetByID(ctx, groupID)
		if err != nil {
			return "", err
		}
		return g.ID, nil
	}
	if date == "" {
		return "", errors.New("必须指定 --group-id 或 --date")
	}

	d, err := model.ParseDate(date)
	if err != nil {
		return "", service.ErrInvalidDate
	}
	g, err := a.repo.Group.GetByDate(ctx, d)
	if err == nil {
		return g.GroupID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}
	if !create {
		return "", service.ErrGroupNotFound
	}

	created, err := a.svc.Group.Create(ctx, &dto.CreateGroupRequest{Date: date})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}
