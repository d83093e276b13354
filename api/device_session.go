package api

import (
	"time"

	"tripmate/config"
	"tripmate/database"
	"tripmate/middleware"
	"tripmate/models"
	"tripmate/session"

	"github.com/gin-gonic/gin"
)

// DeviceSessionHandler 设备会话处理器
type DeviceSessionHandler struct {
	cfg *config.Config
}

// NewDeviceSessionHandler 创建设备会话处理器
func NewDeviceSessionHandler(cfg *config.Config) *DeviceSessionHandler {
	return &DeviceSessionHandler{cfg: cfg}
}

// DeviceCheckRequest 设备识别请求
type DeviceCheckRequest struct {
	DeviceFingerprint string `json:"device_fingerprint" binding:"required" example:"fp-a1b2c3"`
}

// ResumableIdentity 设备上可恢复的登录身份
type ResumableIdentity struct {
	GroupID            uint      `json:"group_id"`
	GroupName          string    `json:"group_name"`
	CurrentTraveler    string    `json:"current_traveler"`
	AvailableTravelers []string  `json:"available_travelers"`
	SessionType        string    `json:"session_type"`
	LastUsed           time.Time `json:"last_used"`
}

// Check 查询设备可恢复的身份
// @Summary 查询设备可恢复的身份
// @Description 登录页调用：按设备指纹返回各小组仍有效的登录身份，前端据此展示免密恢复入口
// @Tags 设备会话
// @Accept json
// @Produce json
// @Param request body DeviceCheckRequest true "设备指纹"
// @Success 200 {object} Response{data=[]ResumableIdentity} "查询成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/auth/device/check [post]
func (h *DeviceSessionHandler) Check(c *gin.Context) {
	var req DeviceCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	sessions, err := session.ListActiveSessions(database.DB, req.DeviceFingerprint, time.Now())
	if err != nil {
		FromError(c, err, "查询设备会话失败")
		return
	}

	identities := make([]ResumableIdentity, 0, len(sessions))
	for _, s := range sessions {
		var group models.Group
		if err := database.DB.First(&group, s.GroupID).Error; err != nil {
			// 小组已删除的会话不展示
			continue
		}
		identities = append(identities, ResumableIdentity{
			GroupID:            s.GroupID,
			GroupName:          group.Name,
			CurrentTraveler:    s.CurrentTravelerName,
			AvailableTravelers: s.AvailableTravelers,
			SessionType:        s.SessionType,
			LastUsed:           s.LastUsed,
		})
	}

	Success(c, identities)
}

// AutoLoginRequest 免密自动登录请求
type AutoLoginRequest struct {
	DeviceFingerprint string `json:"device_fingerprint" binding:"required" example:"fp-a1b2c3"`
	GroupID           uint   `json:"group_id" binding:"required" example:"1"`
	TravelerName      string `json:"traveler_name" binding:"required" example:"阿杰"`
}

// AutoLogin 免密自动登录
// @Summary 免密自动登录
// @Description 凭有效设备会话直接恢复登录，按会话类型策略续期；目标旅行者必须在该设备的登录名单内
// @Tags 设备会话
// @Accept json
// @Produce json
// @Param request body AutoLoginRequest true "自动登录信息"
// @Success 200 {object} Response{data=LoginResponse} "登录成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "设备会话无效"
// @Router /api/v1/auth/device/auto-login [post]
func (h *DeviceSessionHandler) AutoLogin(c *gin.Context) {
	var req AutoLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	s, err := session.AutoLogin(database.DB, req.DeviceFingerprint, req.GroupID, req.TravelerName, time.Now())
	if err != nil {
		FromError(c, err, "自动登录失败")
		return
	}

	var group models.Group
	if err := database.DB.First(&group, req.GroupID).Error; err != nil {
		Unauthorized(c, "小组不存在")
		return
	}

	var member models.GroupMember
	if err := database.DB.Where("group_id = ? AND traveler_name = ?", req.GroupID, s.CurrentTravelerName).
		First(&member).Error; err != nil {
		Unauthorized(c, "成员不存在")
		return
	}

	token, err := middleware.GenerateToken(group.ID, member.ID, member.TravelerName, h.cfg.JWT.ExpireTime)
	if err != nil {
		InternalError(c, "生成会话令牌失败")
		return
	}

	setSessionCookies(c, token, group.ID, member.TravelerName)
	Success(c, LoginResponse{
		Token:  token,
		Group:  group,
		Member: member,
	})
}
