package models

import (
	"time"

	"gorm.io/gorm"
)

// Role 成员角色
type Role string

const (
	// RoleAdventurer 领队：隐式拥有全部权限，忽略权限开关
	RoleAdventurer Role = "adventurer"
	// RolePartyMember 队员：受 can_read / can_create / can_modify 开关约束
	RolePartyMember Role = "party_member"
)

// Permission 权限项
type Permission string

const (
	PermissionRead   Permission = "read"
	PermissionCreate Permission = "create"
	PermissionModify Permission = "modify"
)

// GroupMember 小组成员模型
// traveler_name 在小组内唯一，登录时凭访问码 + 旅行者名字认领身份
type GroupMember struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	GroupID   uint           `json:"group_id" gorm:"not null;uniqueIndex:idx_group_traveler,priority:1"`
	TravelerName string      `json:"traveler_name" gorm:"size:50;not null;uniqueIndex:idx_group_traveler,priority:2"`
	Role      Role           `json:"role" gorm:"size:20;not null;default:party_member;index"`
	CanRead   bool           `json:"can_read" gorm:"default:true"`
	CanCreate bool           `json:"can_create" gorm:"default:true"`
	CanModify bool           `json:"can_modify" gorm:"default:false"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
	Group     Group          `json:"-" gorm:"foreignKey:GroupID"`
}

// TableName 设置表名
func (GroupMember) TableName() string {
	return "group_members"
}

// Can 判断成员是否拥有指定权限
// 领队无条件放行，队员按权限开关判断；权限判断全部收敛到这里，调用方不比较角色字符串
func (m *GroupMember) Can(perm Permission) bool {
	if m.Role == RoleAdventurer {
		return true
	}
	switch perm {
	case PermissionRead:
		return m.CanRead
	case PermissionCreate:
		return m.CanCreate
	case PermissionModify:
		return m.CanModify
	default:
		return false
	}
}
