package api

import (
	"net/http"
	"strconv"

	"tripmate/config"

	"github.com/gin-gonic/gin"
)

// getCookieOptions 根据运行模式返回 Cookie 的安全选项
// release 模式下启用 Secure（仅 HTTPS 传输），并设置 SameSite 以防止 CSRF
func getCookieOptions() (secure bool, sameSite http.SameSite) {
	cfg := config.GetConfig()
	if cfg != nil && cfg.Server.Mode == "release" {
		secure = true
	}
	// SameSite=Lax: 防止跨站 POST 请求携带 Cookie，同时允许同站导航
	sameSite = http.SameSiteLaxMode
	return
}

// setSessionCookies 登录成功后写入三个 Cookie
// session 为 HttpOnly 令牌，group-id / traveler-name 供前端展示当前身份
func setSessionCookies(c *gin.Context, token string, groupID uint, travelerName string) {
	cfg := config.GetConfig()
	maxAge := 24 * 3600
	if cfg != nil {
		maxAge = cfg.Session.CookieMaxAge()
	}
	secure, sameSite := getCookieOptions()
	c.SetSameSite(sameSite)
	c.SetCookie("session", token, maxAge, "/", "", secure, true)
	c.SetCookie("group-id", strconv.FormatUint(uint64(groupID), 10), maxAge, "/", "", secure, false)
	c.SetCookie("traveler-name", travelerName, maxAge, "/", "", secure, false)
}

// clearSessionCookies 登出时清除全部会话 Cookie
// 即便服务端停用会话失败，清 Cookie 也要执行，保证浏览器侧一定登出
func clearSessionCookies(c *gin.Context) {
	secure, sameSite := getCookieOptions()
	c.SetSameSite(sameSite)
	c.SetCookie("session", "", -1, "/", "", secure, true)
	c.SetCookie("group-id", "", -1, "/", "", secure, false)
	c.SetCookie("traveler-name", "", -1, "/", "", secure, false)
}
