package middleware

import (
	"net/http"

	"tripmate/database"
	"tripmate/models"

	"github.com/gin-gonic/gin"
)

// RequirePermission 成员权限校验中间件
// 需在 SessionAuth 之后使用。队长（adventurer）直接放行，队员按权限位判定。
func RequirePermission(perm models.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID := GetCurrentMemberID(c)
		groupID := GetCurrentGroupID(c)
		if memberID == 0 || groupID == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "请先登录",
			})
			c.Abort()
			return
		}

		var member models.GroupMember
		if err := database.DB.Where("id = ? AND group_id = ?", memberID, groupID).
			First(&member).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "成员不存在",
			})
			c.Abort()
			return
		}

		if !member.Can(perm) {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "权限不足",
			})
			c.Abort()
			return
		}

		c.Set("member", &member)
		c.Next()
	}
}

// GetCurrentMember 取 RequirePermission 加载的成员记录
func GetCurrentMember(c *gin.Context) *models.GroupMember {
	if v, exists := c.Get("member"); exists {
		if m, ok := v.(*models.GroupMember); ok {
			return m
		}
	}
	return nil
}
