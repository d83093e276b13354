package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tripmate/config"
	"tripmate/database"
	"tripmate/middleware"
	"tripmate/models"
	"tripmate/service"
	"tripmate/session"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GroupHandler 旅行小组处理器
type GroupHandler struct {
	cfg          *config.Config
	cache        *session.GroupCache
	emailService *service.EmailService
}

// NewGroupHandler 创建旅行小组处理器
func NewGroupHandler(cfg *config.Config, cache *session.GroupCache) *GroupHandler {
	return &GroupHandler{
		cfg:          cfg,
		cache:        cache,
		emailService: service.NewEmailService(&cfg.Email),
	}
}

// GetCurrent 获取当前小组
// @Summary 获取当前小组
// @Description 获取当前登录小组的基本信息（带短时缓存）
// @Tags 小组
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.Group} "获取成功"
// @Failure 404 {object} Response "小组不存在"
// @Router /api/v1/group [get]
func (h *GroupHandler) GetCurrent(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)
	now := time.Now()

	if g, ok := h.cache.Get(groupID, now); ok {
		Success(c, g)
		return
	}

	var group models.Group
	if err := database.DB.First(&group, groupID).Error; err != nil {
		NotFound(c, "小组不存在")
		return
	}

	h.cache.Set(groupID, group, now)
	Success(c, group)
}

// UpdateGroupRequest 更新小组请求
type UpdateGroupRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100" example:"海岛小分队"`
}

// Update 更新小组
// @Summary 更新小组
// @Description 修改小组名称，仅领队可操作
// @Tags 小组
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateGroupRequest true "小组信息"
// @Success 200 {object} Response{data=models.Group} "更新成功"
// @Failure 403 {object} Response "仅领队可操作"
// @Router /api/v1/group [put]
func (h *GroupHandler) Update(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)

	member := middleware.GetCurrentMember(c)
	if member == nil || member.Role != models.RoleAdventurer {
		Forbidden(c, "仅领队可操作")
		return
	}

	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	var group models.Group
	if err := database.DB.First(&group, groupID).Error; err != nil {
		NotFound(c, "小组不存在")
		return
	}

	if err := database.DB.Model(&group).Update("name", req.Name).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}

	// 缓存里是旧快照，必须失效
	h.cache.Invalidate(groupID)

	group.Name = req.Name
	SuccessWithMessage(c, "更新成功", group)
}

// Delete 解散小组
// @Summary 解散小组
// @Description 删除小组及其全部行程、消费、会话数据，仅领队可操作，不可恢复
// @Tags 小组
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "解散成功"
// @Failure 403 {object} Response "仅领队可操作"
// @Router /api/v1/group [delete]
func (h *GroupHandler) Delete(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)

	member := middleware.GetCurrentMember(c)
	if member == nil || member.Role != models.RoleAdventurer {
		Forbidden(c, "仅领队可操作")
		return
	}

	var group models.Group
	if err := database.DB.First(&group, groupID).Error; err != nil {
		NotFound(c, "小组不存在")
		return
	}

	// 级联删除：先子表后父表，全部在同一事务
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var expenseIDs []uint
		if err := tx.Model(&models.Expense{}).Where("group_id = ?", groupID).
			Pluck("id", &expenseIDs).Error; err != nil {
			return err
		}
		if len(expenseIDs) > 0 {
			var lineItemIDs []uint
			if err := tx.Model(&models.ExpenseLineItem{}).
				Where("expense_id IN ?", expenseIDs).
				Pluck("id", &lineItemIDs).Error; err != nil {
				return err
			}
			if len(lineItemIDs) > 0 {
				if err := tx.Where("line_item_id IN ?", lineItemIDs).
					Delete(&models.LineItemParticipant{}).Error; err != nil {
					return err
				}
				if err := tx.Where("id IN ?", lineItemIDs).
					Delete(&models.ExpenseLineItem{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("expense_id IN ?", expenseIDs).
				Delete(&models.ExpenseParticipant{}).Error; err != nil {
				return err
			}
			if err := tx.Where("group_id = ?", groupID).
				Delete(&models.Expense{}).Error; err != nil {
				return err
			}
		}

		var tripIDs []uint
		if err := tx.Model(&models.Trip{}).Where("group_id = ?", groupID).
			Pluck("id", &tripIDs).Error; err != nil {
			return err
		}
		if len(tripIDs) > 0 {
			if err := tx.Where("trip_id IN ?", tripIDs).
				Delete(&models.Event{}).Error; err != nil {
				return err
			}
			if err := tx.Where("trip_id IN ?", tripIDs).
				Delete(&models.TripDay{}).Error; err != nil {
				return err
			}
			if err := tx.Where("group_id = ?", groupID).
				Delete(&models.Trip{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("group_id = ?", groupID).
			Delete(&models.PointOfInterest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).
			Delete(&models.ExternalParticipant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).
			Delete(&models.DeviceSession{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).
			Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&group).Error
	})
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "解散失败"))
		return
	}

	h.cache.Invalidate(groupID)
	clearSessionCookies(c)
	SuccessWithMessage(c, "解散成功", nil)
}

// ListMembers 获取成员列表
// @Summary 获取成员列表
// @Description 获取当前小组的全部成员及其角色和权限
// @Tags 小组
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.GroupMember} "获取成功"
// @Router /api/v1/group/members [get]
func (h *GroupHandler) ListMembers(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)

	var members []models.GroupMember
	if err := database.DB.Where("group_id = ?", groupID).
		Order("role ASC, id ASC").
		Find(&members).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, members)
}

// AddMemberRequest 添加成员请求
type AddMemberRequest struct {
	TravelerName string      `json:"traveler_name" binding:"required,min=1,max=50" example:"老王"`
	Role         models.Role `json:"role" example:"party_member"`
	CanRead      *bool       `json:"can_read" example:"true"`
	CanCreate    *bool       `json:"can_create" example:"true"`
	CanModify    *bool       `json:"can_modify" example:"false"`
}

// AddMember 添加成员
// @Summary 添加成员
// @Description 领队预先添加成员名字，成员之后凭访问码 + 名字登录认领
// @Tags 小组
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AddMemberRequest true "成员信息"
// @Success 200 {object} Response{data=models.GroupMember} "添加成功"
// @Failure 400 {object} Response "名字已存在"
// @Failure 403 {object} Response "仅领队可操作"
// @Router /api/v1/group/members [post]
func (h *GroupHandler) AddMember(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)

	current := middleware.GetCurrentMember(c)
	if current == nil || current.Role != models.RoleAdventurer {
		Forbidden(c, "仅领队可操作")
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	req.TravelerName = strings.TrimSpace(req.TravelerName)
	if req.TravelerName == "" {
		BadRequest(c, "名字不能为空")
		return
	}

	// 同组内名字唯一
	var existing models.GroupMember
	if err := database.DB.Where("group_id = ? AND traveler_name = ?", groupID, req.TravelerName).
		First(&existing).Error; err == nil {
		BadRequest(c, "该名字已存在")
		return
	}

	role := req.Role
	if role != models.RoleAdventurer {
		role = models.RolePartyMember
	}
	member := models.GroupMember{
		GroupID:      groupID,
		TravelerName: req.TravelerName,
		Role:         role,
		CanRead:      boolOrDefault(req.CanRead, true),
		CanCreate:    boolOrDefault(req.CanCreate, true),
		CanModify:    boolOrDefault(req.CanModify, false),
	}

	if err := database.DB.Create(&member).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "添加成员失败"))
		return
	}

	SuccessWithMessage(c, "添加成功", member)
}

// UpdateMemberRequest 更新成员请求
type UpdateMemberRequest struct {
	Role      models.Role `json:"role" example:"party_member"`
	CanRead   *bool       `json:"can_read" example:"true"`
	CanCreate *bool       `json:"can_create" example:"true"`
	CanModify *bool       `json:"can_modify" example:"true"`
}

// UpdateMember 更新成员角色与权限
// @Summary 更新成员角色与权限
// @Description 领队调整成员角色和权限开关；小组必须始终保留至少一名领队
// @Tags 小组
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "成员ID"
// @Param request body UpdateMemberRequest true "角色与权限"
// @Success 200 {object} Response{data=models.GroupMember} "更新成功"
// @Failure 400 {object} Response "不能移除最后一名领队"
// @Failure 403 {object} Response "仅领队可操作"
// @Failure 404 {object} Response "成员不存在"
// @Router /api/v1/group/members/{id} [put]
func (h *GroupHandler) UpdateMember(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)

	current := middleware.GetCurrentMember(c)
	if current == nil || current.Role != models.RoleAdventurer {
		Forbidden(c, "仅领队可操作")
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var member models.GroupMember
	if err := database.DB.Where("id = ? AND group_id = ?", id, groupID).First(&member).Error; err != nil {
		NotFound(c, "成员不存在")
		return
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	updates := make(map[string]interface{})
	if req.Role == models.RoleAdventurer || req.Role == models.RolePartyMember {
		// 把领队降为队员前，确认小组还有别的领队
		if member.Role == models.RoleAdventurer && req.Role == models.RolePartyMember {
			if h.countAdventurers(groupID) <= 1 {
				BadRequest(c, "不能移除最后一名领队")
				return
			}
		}
		updates["role"] = req.Role
	}
	if req.CanRead != nil {
		updates["can_read"] = *req.CanRead
	}
	if req.CanCreate != nil {
		updates["can_create"] = *req.CanCreate
	}
	if req.CanModify != nil {
		updates["can_modify"] = *req.CanModify
	}

	if len(updates) == 0 {
		Success(c, member)
		return
	}

	if err := database.DB.Model(&member).Updates(updates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}

	database.DB.First(&member, member.ID)
	SuccessWithMessage(c, "更新成功", member)
}

// DeleteMember 移除成员
// @Summary 移除成员
// @Description 领队移除成员；不能移除最后一名领队
// @Tags 小组
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "成员ID"
// @Success 200 {object} Response "移除成功"
// @Failure 400 {object} Response "不能移除最后一名领队"
// @Failure 403 {object} Response "仅领队可操作"
// @Failure 404 {object} Response "成员不存在"
// @Router /api/v1/group/members/{id} [delete]
func (h *GroupHandler) DeleteMember(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)

	current := middleware.GetCurrentMember(c)
	if current == nil || current.Role != models.RoleAdventurer {
		Forbidden(c, "仅领队可操作")
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var member models.GroupMember
	if err := database.DB.Where("id = ? AND group_id = ?", id, groupID).First(&member).Error; err != nil {
		NotFound(c, "成员不存在")
		return
	}

	if member.Role == models.RoleAdventurer && h.countAdventurers(groupID) <= 1 {
		BadRequest(c, "不能移除最后一名领队")
		return
	}

	if err := database.DB.Delete(&member).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "移除失败"))
		return
	}

	SuccessWithMessage(c, "移除成功", nil)
}

func (h *GroupHandler) countAdventurers(groupID uint) int64 {
	var count int64
	database.DB.Model(&models.GroupMember{}).
		Where("group_id = ? AND role = ?", groupID, models.RoleAdventurer).
		Count(&count)
	return count
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// ListExternalParticipants 获取外部分摊人列表
// @Summary 获取外部分摊人列表
// @Description 获取当前小组记过账的外部分摊人，按最近使用排序
// @Tags 小组
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.ExternalParticipant} "获取成功"
// @Router /api/v1/group/externals [get]
func (h *GroupHandler) ListExternalParticipants(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)

	var externals []models.ExternalParticipant
	if err := database.DB.Where("group_id = ?", groupID).
		Order("last_used_at DESC").
		Find(&externals).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, externals)
}

// DeleteExternalParticipant 删除外部分摊人
// @Summary 删除外部分摊人
// @Description 删除外部分摊人记录；已有分摊引用的不可删除
// @Tags 小组
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "外部分摊人ID"
// @Success 200 {object} Response "删除成功"
// @Failure 400 {object} Response "存在关联分摊记录"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/group/externals/{id} [delete]
func (h *GroupHandler) DeleteExternalParticipant(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var external models.ExternalParticipant
	if err := database.DB.Where("id = ? AND group_id = ?", id, groupID).First(&external).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	// 仍被分摊记录引用时拒绝删除，避免历史账目悬空
	var refs int64
	database.DB.Model(&models.ExpenseParticipant{}).
		Where("external_participant_id = ?", external.ID).
		Count(&refs)
	if refs == 0 {
		database.DB.Model(&models.LineItemParticipant{}).
			Where("external_participant_id = ?", external.ID).
			Count(&refs)
	}
	if refs > 0 {
		BadRequest(c, "该分摊人仍有关联的消费记录，不能删除")
		return
	}

	if err := database.DB.Delete(&external).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	SuccessWithMessage(c, "删除成功", nil)
}

// InviteRequest 邀请请求
type InviteRequest struct {
	Email string `json:"email" binding:"required,email" example:"friend@example.com"`
}

// Invite 邮件邀请
// @Summary 邮件邀请
// @Description 向指定邮箱发送入组邀请，邀请链接带小组分享码
// @Tags 小组
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body InviteRequest true "邀请邮箱"
// @Success 200 {object} Response "发送成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 500 {object} Response "邮件发送失败"
// @Router /api/v1/group/invite [post]
func (h *GroupHandler) Invite(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)
	travelerName := middleware.GetCurrentTraveler(c)

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	var group models.Group
	if err := database.DB.First(&group, groupID).Error; err != nil {
		NotFound(c, "小组不存在")
		return
	}

	joinLink := fmt.Sprintf("%s/join/%s", strings.TrimRight(h.cfg.Server.BaseURL, "/"), group.ShareCode)
	if err := h.emailService.SendInviteEmail(req.Email, travelerName, group.Name, joinLink); err != nil {
		InternalError(c, SafeErrorMessage(err, "邮件发送失败"))
		return
	}

	SuccessWithMessage(c, "邀请已发送", nil)
}
