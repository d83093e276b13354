package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Group 旅行小组模型
// 一个小组共享行程、日程、消费和兴趣点；删除小组时级联删除其下全部数据
type Group struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	Name       string         `json:"name" gorm:"size:100;not null"`
	AccessCode string         `json:"-" gorm:"size:255;not null"` // 访问码哈希（bcrypt），明文只在创建时返回一次
	ShareCode  string         `json:"share_code" gorm:"size:36;uniqueIndex;not null"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (Group) TableName() string {
	return "groups"
}

// BeforeCreate 自动生成分享码
func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ShareCode == "" {
		g.ShareCode = uuid.NewString()
	}
	return nil
}
