package api

import (
	"time"

	"tripmate/config"
	"tripmate/database"
	"tripmate/middleware"
	"tripmate/models"
	"tripmate/session"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	cfg *config.Config
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

// CreateGroupRequest 创建小组请求
// setup_code 是部署方设置的开组口令（环境变量 ACCESS_CODE），不是小组访问码
type CreateGroupRequest struct {
	SetupCode    string `json:"setup_code" example:"deploy-secret"`
	Name         string `json:"name" binding:"required,min=1,max=100" example:"海岛小分队"`
	AccessCode   string `json:"access_code" binding:"required,min=4,max=50" example:"sunny2024"`
	TravelerName string `json:"traveler_name" binding:"required,min=1,max=50" example:"阿杰"`
}

// LoginRequest 登录请求
// 凭小组分享码（或ID）+ 访问码 + 旅行者名字认领身份
type LoginRequest struct {
	GroupID           uint   `json:"group_id" example:"1"`
	ShareCode         string `json:"share_code" example:"b3c1..."`
	AccessCode        string `json:"access_code" binding:"required" example:"sunny2024"`
	TravelerName      string `json:"traveler_name" binding:"required,min=1,max=50" example:"小美"`
	DeviceFingerprint string `json:"device_fingerprint" example:"fp-a1b2c3"`
	RememberDevice    bool   `json:"remember_device" example:"true"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token  string             `json:"token"`
	Group  models.Group       `json:"group"`
	Member models.GroupMember `json:"member"`
}

// CreateGroup 创建旅行小组
// @Summary 创建旅行小组
// @Description 创建新的旅行小组，创建者自动成为领队。服务端配置了开组口令时必须携带 setup_code。
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body CreateGroupRequest true "小组信息"
// @Success 200 {object} Response{data=LoginResponse} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "开组口令错误"
// @Router /api/v1/groups [post]
func (h *AuthHandler) CreateGroup(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	// 开组口令校验（未配置则开放创建）
	if h.cfg.Auth.AccessCode != "" && req.SetupCode != h.cfg.Auth.AccessCode {
		Forbidden(c, "开组口令错误")
		return
	}

	// 小组访问码只存哈希
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.AccessCode), bcrypt.DefaultCost)
	if err != nil {
		InternalError(c, "访问码加密失败")
		return
	}

	group := models.Group{
		Name:       req.Name,
		AccessCode: string(hashed),
	}
	member := models.GroupMember{
		TravelerName: req.TravelerName,
		Role:         models.RoleAdventurer,
		CanRead:      true,
		CanCreate:    true,
		CanModify:    true,
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		member.GroupID = group.ID
		return tx.Create(&member).Error
	})
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "创建小组失败"))
		return
	}

	token, err := middleware.GenerateToken(group.ID, member.ID, member.TravelerName, h.cfg.JWT.ExpireTime)
	if err != nil {
		InternalError(c, "生成会话令牌失败")
		return
	}

	setSessionCookies(c, token, group.ID, member.TravelerName)
	SuccessWithMessage(c, "创建成功", LoginResponse{
		Token:  token,
		Group:  group,
		Member: member,
	})
}

// Login 登录小组
// @Summary 登录小组
// @Description 凭小组访问码和旅行者名字登录；名字首次出现时自动作为队员加入。携带 device_fingerprint 时记录设备会话，supports remember_device。
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} Response{data=LoginResponse} "登录成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "访问码错误"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	if req.GroupID == 0 && req.ShareCode == "" {
		BadRequest(c, "group_id 与 share_code 至少传一个")
		return
	}

	// 查找小组（优先分享码）
	var group models.Group
	query := database.DB
	if req.ShareCode != "" {
		query = query.Where("share_code = ?", req.ShareCode)
	} else {
		query = query.Where("id = ?", req.GroupID)
	}
	if err := query.First(&group).Error; err != nil {
		// 不暴露小组是否存在
		Unauthorized(c, "小组不存在或访问码错误")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(group.AccessCode), []byte(req.AccessCode)); err != nil {
		Unauthorized(c, "小组不存在或访问码错误")
		return
	}

	member, err := h.findOrCreateMember(group.ID, req.TravelerName)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "登录失败"))
		return
	}

	token, err := middleware.GenerateToken(group.ID, member.ID, member.TravelerName, h.cfg.JWT.ExpireTime)
	if err != nil {
		InternalError(c, "生成会话令牌失败")
		return
	}

	// 设备会话为尽力而为：失败不阻塞登录
	if req.DeviceFingerprint != "" {
		sessionType := models.SessionTypeStandard
		if req.RememberDevice {
			sessionType = models.SessionTypeRememberDevice
		}
		travelers := h.travelerNamesOnDevice(req.DeviceFingerprint, group.ID, member.TravelerName)
		_, _ = session.SaveDeviceSession(database.DB, req.DeviceFingerprint, group.ID,
			member.TravelerName, travelers, sessionType, time.Now())
	}

	setSessionCookies(c, token, group.ID, member.TravelerName)
	Success(c, LoginResponse{
		Token:  token,
		Group:  group,
		Member: *member,
	})
}

// findOrCreateMember 按名字认领成员身份，首次出现的名字自动入组为队员
func (h *AuthHandler) findOrCreateMember(groupID uint, travelerName string) (*models.GroupMember, error) {
	var member models.GroupMember
	err := database.DB.Where("group_id = ? AND traveler_name = ?", groupID, travelerName).
		First(&member).Error
	if err == nil {
		return &member, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	member = models.GroupMember{
		GroupID:      groupID,
		TravelerName: travelerName,
		Role:         models.RolePartyMember,
		CanRead:      true,
		CanCreate:    true,
		CanModify:    false,
	}
	if err := database.DB.Create(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// travelerNamesOnDevice 汇总该设备在此小组已登录过的旅行者名单（含本次）
func (h *AuthHandler) travelerNamesOnDevice(fingerprint string, groupID uint, current string) []string {
	names := []string{current}
	sessions, err := session.ListActiveSessions(database.DB, fingerprint, time.Now())
	if err != nil {
		return names
	}
	seen := map[string]bool{current: true}
	for _, s := range sessions {
		if s.GroupID != groupID {
			continue
		}
		for _, n := range s.AvailableTravelers {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

// LogoutRequest 登出请求
type LogoutRequest struct {
	DeviceFingerprint string `json:"device_fingerprint" example:"fp-a1b2c3"`
}

// Logout 登出
// @Summary 登出
// @Description 清除会话 Cookie 并停用该设备的设备会话。停用失败不影响登出结果。
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "登出成功"
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)

	var req LogoutRequest
	_ = c.ShouldBindJSON(&req)

	// 清 Cookie 是权威动作，服务端停用会话尽力而为
	if req.DeviceFingerprint != "" {
		_ = session.Logout(database.DB, req.DeviceFingerprint, groupID)
	}

	clearSessionCookies(c)
	SuccessWithMessage(c, "已登出", nil)
}

// GetProfile 获取当前身份
// @Summary 获取当前身份
// @Description 返回当前登录的成员信息及所属小组
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.GroupMember} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	memberID := middleware.GetCurrentMemberID(c)
	groupID := middleware.GetCurrentGroupID(c)

	var member models.GroupMember
	if err := database.DB.Preload("Group").
		Where("id = ? AND group_id = ?", memberID, groupID).
		First(&member).Error; err != nil {
		Unauthorized(c, "成员不存在")
		return
	}

	Success(c, member)
}

// SwitchTravelerRequest 切换旅行者请求
type SwitchTravelerRequest struct {
	TravelerName      string `json:"traveler_name" binding:"required" example:"小美"`
	DeviceFingerprint string `json:"device_fingerprint" binding:"required" example:"fp-a1b2c3"`
}

// SwitchTraveler 切换当前旅行者
// @Summary 切换当前旅行者
// @Description 在同一设备已登录过的旅行者之间切换身份，无需重新输入访问码
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SwitchTravelerRequest true "目标旅行者"
// @Success 200 {object} Response{data=LoginResponse} "切换成功"
// @Failure 401 {object} Response "该设备无此旅行者的登录记录"
// @Router /api/v1/auth/switch [post]
func (h *AuthHandler) SwitchTraveler(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)

	var req SwitchTravelerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	s, err := session.AutoLogin(database.DB, req.DeviceFingerprint, groupID, req.TravelerName, time.Now())
	if err != nil {
		FromError(c, err, "切换失败")
		return
	}

	var group models.Group
	if err := database.DB.First(&group, groupID).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询小组失败"))
		return
	}

	member, err := h.findOrCreateMember(groupID, s.CurrentTravelerName)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "切换失败"))
		return
	}

	token, err := middleware.GenerateToken(groupID, member.ID, member.TravelerName, h.cfg.JWT.ExpireTime)
	if err != nil {
		InternalError(c, "生成会话令牌失败")
		return
	}

	setSessionCookies(c, token, groupID, member.TravelerName)
	Success(c, LoginResponse{
		Token:  token,
		Group:  group,
		Member: *member,
	})
}
