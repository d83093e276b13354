package api

import (
	"strconv"
	"time"

	"tripmate/database"
	"tripmate/middleware"
	"tripmate/models"

	"github.com/gin-gonic/gin"
)

// EventHandler 日程事件处理器
type EventHandler struct{}

// NewEventHandler 创建日程事件处理器
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// EventRequest 创建/更新日程事件请求
type EventRequest struct {
	DayID     *uint  `json:"day_id" example:"3"`
	POIID     *uint  `json:"poi_id" example:"7"`
	Title     string `json:"title" binding:"required,min=1,max=100" example:"首里城"`
	Location  string `json:"location" example:"那霸市首里金城町"`
	StartTime string `json:"start_time" example:"2024-07-02 09:30:00"`
	EndTime   string `json:"end_time" example:"2024-07-02 12:00:00"`
	Notes     string `json:"notes" example:"提前买票"`
}

// List 获取日程事件列表
// @Summary 获取日程事件列表
// @Description 获取行程下的日程事件，可按行程日筛选
// @Tags 日程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "行程ID"
// @Param day_id query int false "行程日ID筛选"
// @Success 200 {object} Response{data=[]models.Event} "获取成功"
// @Failure 404 {object} Response "行程不存在"
// @Router /api/v1/trips/{id}/events [get]
func (h *EventHandler) List(c *gin.Context) {
	trip, ok := h.loadTrip(c)
	if !ok {
		return
	}

	query := database.DB.Where("trip_id = ?", trip.ID)
	if dayStr := c.Query("day_id"); dayStr != "" {
		dayID, err := strconv.ParseUint(dayStr, 10, 32)
		if err != nil {
			BadRequest(c, "无效的 day_id")
			return
		}
		query = query.Where("day_id = ?", dayID)
	}

	var events []models.Event
	if err := query.Order("start_time ASC, id ASC").Find(&events).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, events)
}

// Create 创建日程事件
// @Summary 创建日程事件
// @Description 在行程下创建日程事件，可挂到某个行程日或兴趣点
// @Tags 日程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "行程ID"
// @Param request body EventRequest true "事件信息"
// @Success 200 {object} Response{data=models.Event} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 404 {object} Response "行程不存在"
// @Router /api/v1/trips/{id}/events [post]
func (h *EventHandler) Create(c *gin.Context) {
	trip, ok := h.loadTrip(c)
	if !ok {
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	event := models.Event{
		TripID:   trip.ID,
		Title:    req.Title,
		Location: req.Location,
		Notes:    req.Notes,
	}
	if !h.applyRefs(c, &event, trip, req) {
		return
	}
	if !h.applyTimes(c, &event, req) {
		return
	}

	if err := database.DB.Create(&event).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建失败"))
		return
	}

	SuccessWithMessage(c, "创建成功", event)
}

// Update 更新日程事件
// @Summary 更新日程事件
// @Description 更新行程下的日程事件
// @Tags 日程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "行程ID"
// @Param eventId path int true "事件ID"
// @Param request body EventRequest true "事件信息"
// @Success 200 {object} Response{data=models.Event} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 404 {object} Response "事件不存在"
// @Router /api/v1/trips/{id}/events/{eventId} [put]
func (h *EventHandler) Update(c *gin.Context) {
	trip, ok := h.loadTrip(c)
	if !ok {
		return
	}

	eventID, err := strconv.ParseUint(c.Param("eventId"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var event models.Event
	if err := database.DB.Where("id = ? AND trip_id = ?", eventID, trip.ID).First(&event).Error; err != nil {
		NotFound(c, "事件不存在")
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	event.Title = req.Title
	event.Location = req.Location
	event.Notes = req.Notes
	event.DayID = nil
	event.POIID = nil
	event.StartTime = nil
	event.EndTime = nil
	if !h.applyRefs(c, &event, trip, req) {
		return
	}
	if !h.applyTimes(c, &event, req) {
		return
	}

	if err := database.DB.Save(&event).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}

	SuccessWithMessage(c, "更新成功", event)
}

// Delete 删除日程事件
// @Summary 删除日程事件
// @Description 删除行程下的日程事件
// @Tags 日程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "行程ID"
// @Param eventId path int true "事件ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "事件不存在"
// @Router /api/v1/trips/{id}/events/{eventId} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	trip, ok := h.loadTrip(c)
	if !ok {
		return
	}

	eventID, err := strconv.ParseUint(c.Param("eventId"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var event models.Event
	if err := database.DB.Where("id = ? AND trip_id = ?", eventID, trip.ID).First(&event).Error; err != nil {
		NotFound(c, "事件不存在")
		return
	}

	if err := database.DB.Delete(&event).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	SuccessWithMessage(c, "删除成功", nil)
}

// applyRefs 校验并设置行程日/兴趣点引用
func (h *EventHandler) applyRefs(c *gin.Context, event *models.Event, trip *models.Trip, req EventRequest) bool {
	if req.DayID != nil {
		var day models.TripDay
		if err := database.DB.Where("id = ? AND trip_id = ?", *req.DayID, trip.ID).First(&day).Error; err != nil {
			BadRequest(c, "行程日不存在")
			return false
		}
		event.DayID = req.DayID
	}
	if req.POIID != nil {
		var poi models.PointOfInterest
		if err := database.DB.Where("id = ? AND group_id = ?", *req.POIID, trip.GroupID).First(&poi).Error; err != nil {
			BadRequest(c, "兴趣点不存在")
			return false
		}
		event.POIID = req.POIID
	}
	return true
}

// applyTimes 解析起止时间并校验先后关系
func (h *EventHandler) applyTimes(c *gin.Context, event *models.Event, req EventRequest) bool {
	if req.StartTime != "" {
		t, err := time.ParseInLocation("2006-01-02 15:04:05", req.StartTime, time.Local)
		if err != nil {
			BadRequest(c, "时间格式错误，应为: 2006-01-02 15:04:05")
			return false
		}
		event.StartTime = &t
	}
	if req.EndTime != "" {
		t, err := time.ParseInLocation("2006-01-02 15:04:05", req.EndTime, time.Local)
		if err != nil {
			BadRequest(c, "时间格式错误，应为: 2006-01-02 15:04:05")
			return false
		}
		event.EndTime = &t
	}
	if event.StartTime != nil && event.EndTime != nil && event.EndTime.Before(*event.StartTime) {
		BadRequest(c, "结束时间不能早于开始时间")
		return false
	}
	return true
}

// loadTrip 解析 :id 并校验行程归属当前小组
func (h *EventHandler) loadTrip(c *gin.Context) (*models.Trip, bool) {
	groupID := middleware.GetCurrentGroupID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return nil, false
	}

	var trip models.Trip
	if err := database.DB.Where("id = ? AND group_id = ?", id, groupID).First(&trip).Error; err != nil {
		NotFound(c, "行程不存在")
		return nil, false
	}
	return &trip, true
}
