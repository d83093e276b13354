package session

import (
	"log"
	"time"

	"gorm.io/gorm"

	"tripmate/models"
)

const (
	// GracePeriod 过期后的保留期，期满硬删除
	GracePeriod = 7 * 24 * time.Hour
	// InactiveRetention 不活跃会话的保留期
	InactiveRetention = 90 * 24 * time.Hour
	// MaxSessionsPerDevice 单个设备指纹允许保留的会话数上限
	MaxSessionsPerDevice = 5
)

// Cleanup 清理设备会话，由独立的定时任务调用，不在请求路径上执行
// 三条规则：过期满 7 天硬删；不活跃满 90 天硬删；单指纹超过 5 条时按 last_used 从旧到新淘汰
func Cleanup(db *gorm.DB, now time.Time) (int64, error) {
	var purged int64

	// 过期 + 保留期
	res := db.Unscoped().
		Where("expires_at < ?", now.Add(-GracePeriod)).
		Delete(&models.DeviceSession{})
	if res.Error != nil {
		return purged, res.Error
	}
	purged += res.RowsAffected

	// 长期不活跃
	res = db.Unscoped().
		Where("is_active = ? AND last_used < ?", false, now.Add(-InactiveRetention)).
		Delete(&models.DeviceSession{})
	if res.Error != nil {
		return purged, res.Error
	}
	purged += res.RowsAffected

	// 单设备上限
	n, err := enforceDeviceCaps(db)
	if err != nil {
		return purged, err
	}
	purged += n

	return purged, nil
}

// enforceDeviceCaps 对超限的指纹只保留 last_used 最新的 MaxSessionsPerDevice 条
func enforceDeviceCaps(db *gorm.DB) (int64, error) {
	var fingerprints []string
	if err := db.Model(&models.DeviceSession{}).
		Select("device_fingerprint").
		Group("device_fingerprint").
		Having("COUNT(*) > ?", MaxSessionsPerDevice).
		Pluck("device_fingerprint", &fingerprints).Error; err != nil {
		return 0, err
	}

	var purged int64
	for _, fp := range fingerprints {
		var ids []uint
		if err := db.Model(&models.DeviceSession{}).
			Where("device_fingerprint = ?", fp).
			Order("last_used DESC").
			Offset(MaxSessionsPerDevice).
			Limit(1000).
			Pluck("id", &ids).Error; err != nil {
			return purged, err
		}
		if len(ids) == 0 {
			continue
		}
		res := db.Unscoped().Where("id IN ?", ids).Delete(&models.DeviceSession{})
		if res.Error != nil {
			return purged, res.Error
		}
		purged += res.RowsAffected
	}
	return purged, nil
}

// RunCleanupLoop 按固定间隔执行清理，启动时先跑一轮
func RunCleanupLoop(db *gorm.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runCleanupOnce(db)
	for range ticker.C {
		runCleanupOnce(db)
	}
}

func runCleanupOnce(db *gorm.DB) {
	purged, err := Cleanup(db, time.Now())
	if err != nil {
		log.Printf("设备会话清理失败: %v", err)
		return
	}
	if purged > 0 {
		log.Printf("已清理 %d 条设备会话", purged)
	}
}
