package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Themath93/gather-management-app/internal/model"
)

// Membership 用户在某聚会中的分组归属
type Membership struct {
	TeamID   string
	Part     model.Part
	Number   int
	IsLeader bool
}

// TeamRepository 分组数据访问接口
type TeamRepository interface {
	// LockGroupPart 获取 (聚会, 场次) 级别的事务锁，须在事务中调用
	LockGroupPart(ctx context.Context, groupID string, part model.Part) error
	DeleteByGroupAndPart(ctx context.Context, groupID string, part model.Part) error
	DeleteByGroup(ctx context.Context, groupID string) error
	Create(ctx context.Context, team *model.Team) error
	BatchCreateMembers(ctx context.Context, members []model.TeamMember) error
	// ListByGroup 按场次、编号排序，成员携带用户信息
	ListByGroup(ctx context.Context, groupID string) ([]model.Team, error)
	// FindMemberships 按场次排序
	FindMemberships(ctx context.Context, groupID, userID string) ([]Membership, error)
	// GroupIDsByUser 用户当前被分入的聚会，去重
	GroupIDsByUser(ctx context.Context, userID string) ([]string, error)
}

type teamRepo struct {
	db *gorm.DB
}

func NewTeamRepo(db *gorm.DB) TeamRepository {
	return &teamRepo{db: db}
}

func (r *teamRepo) LockGroupPart(ctx context.Context, groupID string, part model.Part) error {
	// SQLite 整库单写者，无需额外加锁
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	key := fmt.Sprintf("shuffle:%s:%s", groupID, part)
	return r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error
}

func (r *teamRepo) DeleteByGroupAndPart(ctx context.Context, groupID string, part model.Part) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("group_id = ? AND part = ?", groupID, part).
		Delete(&model.TeamMember{}).Error; err != nil {
		return err
	}
	return db.Where("group_id = ? AND part = ?", groupID, part).
		Delete(&model.Team{}).Error
}

func (r *teamRepo) DeleteByGroup(ctx context.Context, groupID string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("group_id = ?", groupID).Delete(&model.TeamMember{}).Error; err != nil {
		return err
	}
	return db.Where("group_id = ?", groupID).Delete(&model.Team{}).Error
}

func (r *teamRepo) Create(ctx context.Context, team *model.Team) error {
	// 成员由 BatchCreateMembers 单独写入
	return r.db.WithContext(ctx).Omit("Members").Create(team).Error
}

func (r *teamRepo) BatchCreateMembers(ctx context.Context, members []model.TeamMember) error {
	if len(members) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("User").CreateInBatches(members, 100).Error
}

func (r *teamRepo) ListByGroup(ctx context.Context, groupID string) ([]model.Team, error) {
	var teams []model.Team
	err := r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_leader DESC, created_at ASC, team_member_id ASC")
		}).
		Preload("Members.User").
		Where("group_id = ?", groupID).
		Order("part ASC, number ASC").
		Find(&teams).Error
	return teams, err
}

func (r *teamRepo) FindMemberships(ctx context.Context, groupID, userID string) ([]Membership, error) {
	var rows []Membership
	err := r.db.WithContext(ctx).
		Table("team_members AS m").
		Select("m.team_id AS team_id, m.part AS part, t.number AS number, m.is_leader AS is_leader").
		Joins("JOIN teams AS t ON t.team_id = m.team_id").
		Where("m.group_id = ? AND m.user_id = ?", groupID, userID).
		Order("m.part ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *teamRepo) GroupIDsByUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.TeamMember{}).
		Distinct("group_id").
		Where("user_id = ?", userID).
		Order("group_id ASC").
		Pluck("group_id", &ids).Error
	return ids, err
}
