package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Team 分组，对应 teams，每次打乱整体替换某 (group, part) 下的全部分组
type Team struct {
	TeamID  string `gorm:"type:uuid;primaryKey"                                   json:"team_id"`
	GroupID string `gorm:"type:uuid;not null;uniqueIndex:uq_teams_group_part_number" json:"group_id"`
	Part    Part   `gorm:"type:varchar(10);not null;uniqueIndex:uq_teams_group_part_number" json:"part"`
	Number  int    `gorm:"not null;uniqueIndex:uq_teams_group_part_number"        json:"number"`
	BaseModel

	Members []TeamMember `gorm:"foreignKey:TeamID;references:TeamID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
}

func (Team) TableName() string { return "teams" }

func (t *Team) BeforeCreate(_ *gorm.DB) error {
	if t.TeamID == "" {
		t.TeamID = uuid.NewString()
	}
	return nil
}

// TeamMember 分组成员，对应 team_members
// (group_id, part, user_id) 唯一：同一场次内一个用户只属于一个分组
type TeamMember struct {
	TeamMemberID string    `gorm:"type:uuid;primaryKey"                                            json:"team_member_id"`
	TeamID       string    `gorm:"type:uuid;not null;index"                                        json:"team_id"`
	GroupID      string    `gorm:"type:uuid;not null;uniqueIndex:uq_team_members_group_part_user"  json:"group_id"`
	Part         Part      `gorm:"type:varchar(10);not null;uniqueIndex:uq_team_members_group_part_user" json:"part"`
	UserID       string    `gorm:"type:uuid;not null;uniqueIndex:uq_team_members_group_part_user"  json:"user_id"`
	IsLeader     bool      `gorm:"not null;default:false"                                          json:"is_leader"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                              json:"created_at"`

	// 仅供 Preload 读取；外键由迁移 SQL 声明，AutoMigrate 不为其建约束
	User *User `gorm:"-:migration;foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

func (TeamMember) TableName() string { return "team_members" }

func (m *TeamMember) BeforeCreate(_ *gorm.DB) error {
	if m.TeamMemberID == "" {
		m.TeamMemberID = uuid.NewString()
	}
	return nil
}
