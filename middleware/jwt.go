package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"tripmate/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret []byte

// InitJWT 初始化 JWT 密钥，必须在路由注册前调用
func InitJWT(cfg *config.Config) {
	jwtSecret = []byte(cfg.JWT.Secret)
}

// Claims 会话令牌的负载：小组 + 成员 + 旅行者名
type Claims struct {
	GroupID      uint   `json:"group_id"`
	MemberID     uint   `json:"member_id"`
	TravelerName string `json:"traveler_name"`
	jwt.RegisteredClaims
}

// GenerateToken 签发会话令牌
func GenerateToken(groupID, memberID uint, travelerName string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		GroupID:      groupID,
		MemberID:     memberID,
		TravelerName: travelerName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "tripmate",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseToken 校验并解析会话令牌
func ParseToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("令牌为空")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("非预期的签名算法")
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("无效的令牌")
	}
	return claims, nil
}

// SessionAuth 会话鉴权中间件
// 优先读 session Cookie（浏览器端），回退到 Authorization: Bearer（API 调用方）
func SessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "请先登录",
			})
			c.Abort()
			return
		}

		claims, err := ParseToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "登录已失效，请重新登录",
			})
			c.Abort()
			return
		}

		c.Set("groupID", claims.GroupID)
		c.Set("memberID", claims.MemberID)
		c.Set("travelerName", claims.TravelerName)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie("session"); err == nil && cookie != "" {
		return cookie
	}
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// GetCurrentGroupID 从上下文取当前小组ID，未登录返回 0
func GetCurrentGroupID(c *gin.Context) uint {
	if v, exists := c.Get("groupID"); exists {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// GetCurrentMemberID 从上下文取当前成员ID，未登录返回 0
func GetCurrentMemberID(c *gin.Context) uint {
	if v, exists := c.Get("memberID"); exists {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// GetCurrentTraveler 从上下文取当前旅行者名
func GetCurrentTraveler(c *gin.Context) string {
	if v, exists := c.Get("travelerName"); exists {
		if name, ok := v.(string); ok {
			return name
		}
	}
	return ""
}
