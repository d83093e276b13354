package models

import (
	"time"

	"gorm.io/gorm"
)

// ExternalParticipant 外部分摊人模型
// 没有登录身份、只按名字记账的分摊对象；同组内按名字去重，复用时刷新 last_used_at
type ExternalParticipant struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	GroupID    uint           `json:"group_id" gorm:"not null;uniqueIndex:idx_group_external_name,priority:1"`
	Name       string         `json:"name" gorm:"size:50;not null;uniqueIndex:idx_group_external_name,priority:2"`
	LastUsedAt time.Time      `json:"last_used_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
	Group      Group          `json:"-" gorm:"foreignKey:GroupID"`
}

// TableName 设置表名
func (ExternalParticipant) TableName() string {
	return "external_participants"
}
