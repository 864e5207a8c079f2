package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Themath93/gather-management-app/internal/model"
)

// GroupRepository 聚会数据访问接口
type GroupRepository interface {
	Create(ctx context.Context, group *model.Group) error
	GetByID(ctx context.Context, id string) (*model.Group, error)
	GetByDate(ctx context.Context, date time.Time) (*model.Group, error)
	// List 按日期升序
	List(ctx context.Context) ([]model.Group, error)
	Delete(ctx context.Context, id string) error
}

type groupRepo struct {
	db *gorm.DB
}

func NewGroupRepo(db *gorm.DB) GroupRepository {
	return &groupRepo{db: db}
}

func (r *groupRepo) Create(ctx context.Context, group *model.Group) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *groupRepo) GetByID(ctx context.Context, id string) (*model.Group, error) {
	var group model.Group
	if err := r.db.WithContext(ctx).Where("group_id = ?", id).First(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepo) GetByDate(ctx context.Context, date time.Time) (*model.Group, error) {
	var group model.Group
	err := r.db.WithContext(ctx).
		Where("date = ?", model.TruncateDate(date)).
		First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepo) List(ctx context.Context) ([]model.Group, error) {
	var groups []model.Group
	err := r.db.WithContext(ctx).Order("date ASC").Find(&groups).Error
	return groups, err
}

func (r *groupRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("group_id = ?", id).Delete(&model.Group{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
