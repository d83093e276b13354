package models

import (
	"time"

	"gorm.io/gorm"
)

// SessionType 设备会话类型，决定有效期与空闲窗口
const (
	// SessionTypeStandard 普通会话：当天有效
	SessionTypeStandard = "standard"
	// SessionTypeRememberDevice 记住设备：长周期免密自动登录
	SessionTypeRememberDevice = "remember_device"
)

// DeviceSession 设备会话模型
// 以设备指纹为键的长周期会话，支持免输访问码的自动登录
// 生命周期：登录时创建/刷新；登出、过期或空闲超时后标记为不活跃；由定时清理任务硬删除
type DeviceSession struct {
	ID                 uint           `json:"id" gorm:"primaryKey"`
	DeviceFingerprint  string         `json:"device_fingerprint" gorm:"size:128;not null;index"`
	GroupID            uint           `json:"group_id" gorm:"not null;index:idx_fingerprint_group"`
	CurrentTravelerName string        `json:"current_traveler_name" gorm:"size:50;not null"`
	AvailableTravelers []string       `json:"available_travelers" gorm:"serializer:json;type:text"`
	SessionType        string         `json:"session_type" gorm:"size:30;not null;default:standard"`
	ExpiresAt          time.Time      `json:"expires_at" gorm:"not null;index"`
	MaxIdleSeconds     int64          `json:"max_idle_seconds" gorm:"not null"`
	LastUsed           time.Time      `json:"last_used" gorm:"not null;index"`
	IsActive           bool           `json:"is_active" gorm:"default:true;index"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (DeviceSession) TableName() string {
	return "device_sessions"
}

// MaxIdleTime 空闲窗口时长
func (s *DeviceSession) MaxIdleTime() time.Duration {
	return time.Duration(s.MaxIdleSeconds) * time.Second
}

// IsValid 判断会话在 now 时刻是否有效
// 绝对过期与空闲超时任一命中即失效；不活跃的会话一律无效
func (s *DeviceSession) IsValid(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	if !now.Before(s.ExpiresAt) {
		return false
	}
	if now.Sub(s.LastUsed) >= s.MaxIdleTime() {
		return false
	}
	return true
}

// HasTraveler 判断旅行者是否在会话的可用名单内
func (s *DeviceSession) HasTraveler(name string) bool {
	for _, t := range s.AvailableTravelers {
		if t == name {
			return true
		}
	}
	return false
}
