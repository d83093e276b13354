package session

import (
	"time"

	"tripmate/models"
)

// Policy 会话类型对应的有效期策略
type Policy struct {
	// Lifetime 绝对有效期：创建/续期后多久过期
	Lifetime time.Duration
	// MaxIdle 空闲窗口：超过该时长未使用即失效
	MaxIdle time.Duration
}

// policies 会话类型 → 策略表
var policies = map[string]Policy{
	models.SessionTypeStandard: {
		Lifetime: 24 * time.Hour,
		MaxIdle:  4 * time.Hour,
	},
	models.SessionTypeRememberDevice: {
		Lifetime: 30 * 24 * time.Hour,
		MaxIdle:  7 * 24 * time.Hour,
	},
}

// PolicyFor 返回指定会话类型的策略，未知类型回落到普通会话
func PolicyFor(sessionType string) Policy {
	if p, ok := policies[sessionType]; ok {
		return p
	}
	return policies[models.SessionTypeStandard]
}

// ExtendSessionLifespan 按会话类型的策略计算新的过期时间与空闲窗口
// 登录与自动登录的续期都从这里取值，保证同类型会话的窗口一致
func ExtendSessionLifespan(sessionType string, now time.Time) (expiresAt time.Time, maxIdle time.Duration) {
	p := PolicyFor(sessionType)
	return now.Add(p.Lifetime), p.MaxIdle
}
