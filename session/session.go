// Package session 设备会话协调层
// 把登录、自动登录、登出、过期收敛成每个事件一个转移函数，
// 会话有效性在读取时惰性判定并落库，硬删除只由定时清理任务执行
package session

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"tripmate/apperr"
	"tripmate/models"
)

// SaveDeviceSession 登录成功后创建/刷新设备会话
// 同一指纹同一时刻至多一个活跃会话：先停用该指纹下全部活跃会话再插入新行，
// 以 (fingerprint, group) 重复调用是幂等的——结果始终是恰好一行活跃记录
func SaveDeviceSession(db *gorm.DB, fingerprint string, groupID uint, travelerName string, availableTravelers []string, sessionType string, now time.Time) (*models.DeviceSession, error) {
	expiresAt, maxIdle := ExtendSessionLifespan(sessionType, now)

	s := &models.DeviceSession{
		DeviceFingerprint:   fingerprint,
		GroupID:             groupID,
		CurrentTravelerName: travelerName,
		AvailableTravelers:  availableTravelers,
		SessionType:         sessionType,
		ExpiresAt:           expiresAt,
		MaxIdleSeconds:      int64(maxIdle.Seconds()),
		LastUsed:            now,
		IsActive:            true,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.DeviceSession{}).
			Where("device_fingerprint = ? AND is_active = ?", fingerprint, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(s).Error
	})
	if err != nil {
		return nil, apperr.Internal("保存设备会话失败", err)
	}
	return s, nil
}

// ResolveSession 按指纹与小组解析当前活跃的设备会话
// 过期或空闲超时的会话在这里被惰性标记为不活跃（不做删除），随后按无会话处理
func ResolveSession(db *gorm.DB, fingerprint string, groupID uint, now time.Time) (*models.DeviceSession, error) {
	var s models.DeviceSession
	err := db.Where("device_fingerprint = ? AND group_id = ? AND is_active = ?", fingerprint, groupID, true).
		Order("last_used DESC").
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("设备会话不存在")
		}
		return nil, apperr.Internal("查询设备会话失败", err)
	}

	if !s.IsValid(now) {
		// 惰性失效：标记后按无会话处理，失败不影响判定结果
		_ = db.Model(&s).Update("is_active", false).Error
		return nil, apperr.Unauthorized("设备会话已过期")
	}
	return &s, nil
}

// ListActiveSessions 列出指纹下全部有效会话（跨小组），供登录页展示可恢复的身份
func ListActiveSessions(db *gorm.DB, fingerprint string, now time.Time) ([]models.DeviceSession, error) {
	var sessions []models.DeviceSession
	if err := db.Where("device_fingerprint = ? AND is_active = ?", fingerprint, true).
		Order("last_used DESC").
		Find(&sessions).Error; err != nil {
		return nil, apperr.Internal("查询设备会话失败", err)
	}

	valid := sessions[:0]
	for i := range sessions {
		if sessions[i].IsValid(now) {
			valid = append(valid, sessions[i])
		}
	}
	return valid, nil
}

// AutoLogin 免密自动登录
// 要求存在有效会话且目标旅行者在可用名单内；成功后按会话类型策略续期并刷新 last_used
func AutoLogin(db *gorm.DB, fingerprint string, groupID uint, travelerName string, now time.Time) (*models.DeviceSession, error) {
	s, err := ResolveSession(db, fingerprint, groupID, now)
	if err != nil {
		return nil, err
	}

	if !s.HasTraveler(travelerName) {
		return nil, apperr.Unauthorized("该设备无此旅行者的登录记录")
	}

	expiresAt, maxIdle := ExtendSessionLifespan(s.SessionType, now)
	updates := map[string]interface{}{
		"current_traveler_name": travelerName,
		"expires_at":            expiresAt,
		"max_idle_seconds":      int64(maxIdle.Seconds()),
		"last_used":             now,
	}
	if err := db.Model(s).Updates(updates).Error; err != nil {
		return nil, apperr.Internal("续期设备会话失败", err)
	}

	s.CurrentTravelerName = travelerName
	s.ExpiresAt = expiresAt
	s.MaxIdleSeconds = int64(maxIdle.Seconds())
	s.LastUsed = now
	return s, nil
}

// Logout 登出：停用指纹下的活跃会话
// 调用方清 Cookie 才是权威的登出动作，这里失败只记日志不回传给用户
func Logout(db *gorm.DB, fingerprint string, groupID uint) error {
	q := db.Model(&models.DeviceSession{}).
		Where("device_fingerprint = ? AND is_active = ?", fingerprint, true)
	if groupID != 0 {
		q = q.Where("group_id = ?", groupID)
	}
	if err := q.Update("is_active", false).Error; err != nil {
		return apperr.Internal("停用设备会话失败", err)
	}
	return nil
}
