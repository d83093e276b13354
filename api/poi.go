package api

import (
	"strconv"

	"tripmate/database"
	"tripmate/middleware"
	"tripmate/models"

	"github.com/gin-gonic/gin"
)

// POIHandler 兴趣点处理器
type POIHandler struct{}

// NewPOIHandler 创建兴趣点处理器
func NewPOIHandler() *POIHandler {
	return &POIHandler{}
}

// POIRequest 创建/更新兴趣点请求
type POIRequest struct {
	Name      string   `json:"name" binding:"required,min=1,max=100" example:"首里城"`
	Address   string   `json:"address" example:"那霸市首里金城町1-2"`
	Latitude  *float64 `json:"latitude" example:"26.217"`
	Longitude *float64 `json:"longitude" example:"127.719"`
	Notes     string   `json:"notes" example:"周二闭馆"`
}

// List 获取兴趣点列表
// @Summary 获取兴趣点列表
// @Description 获取当前小组收藏的全部兴趣点
// @Tags 兴趣点
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.PointOfInterest} "获取成功"
// @Router /api/v1/pois [get]
func (h *POIHandler) List(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)

	var pois []models.PointOfInterest
	if err := database.DB.Where("group_id = ?", groupID).
		Order("id ASC").
		Find(&pois).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, pois)
}

// Create 创建兴趣点
// @Summary 创建兴趣点
// @Description 收藏一个兴趣点，之后可关联到日程事件
// @Tags 兴趣点
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body POIRequest true "兴趣点信息"
// @Success 200 {object} Response{data=models.PointOfInterest} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/pois [post]
func (h *POIHandler) Create(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)

	var req POIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	poi := models.PointOfInterest{
		GroupID:   groupID,
		Name:      req.Name,
		Address:   req.Address,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Notes:     req.Notes,
	}

	if err := database.DB.Create(&poi).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建失败"))
		return
	}

	SuccessWithMessage(c, "创建成功", poi)
}

// Update 更新兴趣点
// @Summary 更新兴趣点
// @Description 更新兴趣点信息
// @Tags 兴趣点
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "兴趣点ID"
// @Param request body POIRequest true "兴趣点信息"
// @Success 200 {object} Response{data=models.PointOfInterest} "更新成功"
// @Failure 404 {object} Response "兴趣点不存在"
// @Router /api/v1/pois/{id} [put]
func (h *POIHandler) Update(c *gin.Context) {
	poi, ok := h.loadPOI(c)
	if !ok {
		return
	}

	var req POIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	poi.Name = req.Name
	poi.Address = req.Address
	poi.Latitude = req.Latitude
	poi.Longitude = req.Longitude
	poi.Notes = req.Notes

	if err := database.DB.Save(poi).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}

	SuccessWithMessage(c, "更新成功", poi)
}

// Delete 删除兴趣点
// @Summary 删除兴趣点
// @Description 删除兴趣点；已关联该兴趣点的日程事件保留，引用置空
// @Tags 兴趣点
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "兴趣点ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "兴趣点不存在"
// @Router /api/v1/pois/{id} [delete]
func (h *POIHandler) Delete(c *gin.Context) {
	poi, ok := h.loadPOI(c)
	if !ok {
		return
	}

	// 解除事件引用后再删
	if err := database.DB.Model(&models.Event{}).
		Where("poi_id = ?", poi.ID).
		Update("poi_id", nil).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}
	if err := database.DB.Delete(poi).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	SuccessWithMessage(c, "删除成功", nil)
}

func (h *POIHandler) loadPOI(c *gin.Context) (*models.PointOfInterest, bool) {
	groupID := middleware.GetCurrentGroupID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return nil, false
	}

	var poi models.PointOfInterest
	if err := database.DB.Where("id = ? AND group_id = ?", id, groupID).First(&poi).Error; err != nil {
		NotFound(c, "兴趣点不存在")
		return nil, false
	}
	return &poi, true
}
