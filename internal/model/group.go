package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Group 聚会，对应 meeting_groups，每个日期至多一场
type Group struct {
	GroupID string    `gorm:"type:uuid;primaryKey"          json:"group_id"`
	Date    time.Time `gorm:"type:date;not null;uniqueIndex" json:"date"`
	BaseModel

	Teams []Team `gorm:"foreignKey:GroupID;references:GroupID;constraint:OnDelete:CASCADE" json:"teams,omitempty"`
}

func (Group) TableName() string { return "meeting_groups" }

func (g *Group) BeforeCreate(_ *gorm.DB) error {
	if g.GroupID == "" {
		g.GroupID = uuid.NewString()
	}
	return nil
}

// DateString 返回 YYYY-MM-DD
func (g *Group) DateString() string {
	return g.Date.Format(DateLayout)
}
