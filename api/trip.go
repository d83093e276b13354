package api

import (
	"strconv"
	"time"

	"tripmate/database"
	"tripmate/middleware"
	"tripmate/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// TripHandler 行程处理器
type TripHandler struct{}

// NewTripHandler 创建行程处理器
func NewTripHandler() *TripHandler {
	return &TripHandler{}
}

// CreateTripRequest 创建行程请求
type CreateTripRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100" example:"冲绳五日"`
	Destination string `json:"destination" example:"冲绳"`
	StartDate   string `json:"start_date" binding:"required" example:"2024-07-01"`
	EndDate     string `json:"end_date" binding:"required" example:"2024-07-05"`
	Notes       string `json:"notes" example:"记得带泳衣"`
}

// UpdateTripRequest 更新行程请求
type UpdateTripRequest struct {
	Name        string `json:"name" example:"冲绳五日"`
	Destination string `json:"destination" example:"冲绳"`
	StartDate   string `json:"start_date" example:"2024-07-01"`
	EndDate     string `json:"end_date" example:"2024-07-06"`
	Notes       string `json:"notes" example:""`
}

// List 获取行程列表
// @Summary 获取行程列表
// @Description 获取当前小组的全部行程，按开始日期排序
// @Tags 行程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.Trip} "获取成功"
// @Router /api/v1/trips [get]
func (h *TripHandler) List(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)

	var trips []models.Trip
	if err := database.DB.Where("group_id = ?", groupID).
		Order("start_date ASC, id ASC").
		Find(&trips).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, trips)
}

// Create 创建行程
// @Summary 创建行程
// @Description 创建行程并按日期范围自动生成行程日（含首尾两天）
// @Tags 行程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTripRequest true "行程信息"
// @Success 200 {object} Response{data=models.Trip} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/trips [post]
func (h *TripHandler) Create(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)

	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	startDate, endDate, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	trip := models.Trip{
		GroupID:     groupID,
		Name:        req.Name,
		Destination: req.Destination,
		StartDate:   startDate,
		EndDate:     endDate,
		Notes:       req.Notes,
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&trip).Error; err != nil {
			return err
		}
		return generateTripDays(tx, trip.ID, startDate, endDate)
	})
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "创建行程失败"))
		return
	}

	SuccessWithMessage(c, "创建成功", trip)
}

// Get 获取行程详情
// @Summary 获取行程详情
// @Description 获取单个行程及其行程日列表
// @Tags 行程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "行程ID"
// @Success 200 {object} Response "获取成功"
// @Failure 404 {object} Response "行程不存在"
// @Router /api/v1/trips/{id} [get]
func (h *TripHandler) Get(c *gin.Context) {
	trip, ok := h.loadTrip(c)
	if !ok {
		return
	}

	var days []models.TripDay
	if err := database.DB.Where("trip_id = ?", trip.ID).
		Order("date ASC").
		Find(&days).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, gin.H{
		"trip": trip,
		"days": days,
	})
}

// Update 更新行程
// @Summary 更新行程
// @Description 更新行程；修改日期范围时补齐新增日期的行程日，范围外的行程日保留不删
// @Tags 行程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "行程ID"
// @Param request body UpdateTripRequest true "行程信息"
// @Success 200 {object} Response{data=models.Trip} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 404 {object} Response "行程不存在"
// @Router /api/v1/trips/{id} [put]
func (h *TripHandler) Update(c *gin.Context) {
	trip, ok := h.loadTrip(c)
	if !ok {
		return
	}

	var req UpdateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Destination != "" {
		updates["destination"] = req.Destination
	}
	if req.Notes != "" {
		updates["notes"] = req.Notes
	}

	startDate, endDate := trip.StartDate, trip.EndDate
	if req.StartDate != "" || req.EndDate != "" {
		startStr := req.StartDate
		if startStr == "" {
			startStr = trip.StartDate.Format("2006-01-02")
		}
		endStr := req.EndDate
		if endStr == "" {
			endStr = trip.EndDate.Format("2006-01-02")
		}
		var err error
		startDate, endDate, err = parseDateRange(startStr, endStr)
		if err != nil {
			BadRequest(c, err.Error())
			return
		}
		updates["start_date"] = startDate
		updates["end_date"] = endDate
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(trip).Updates(updates).Error; err != nil {
				return err
			}
		}
		// 日期范围变化时补齐缺失的行程日
		return generateTripDays(tx, trip.ID, startDate, endDate)
	})
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}

	database.DB.First(trip, trip.ID)
	SuccessWithMessage(c, "更新成功", trip)
}

// Delete 删除行程
// @Summary 删除行程
// @Description 删除行程及其行程日、日程事件和消费记录
// @Tags 行程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "行程ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "行程不存在"
// @Router /api/v1/trips/{id} [delete]
func (h *TripHandler) Delete(c *gin.Context) {
	trip, ok := h.loadTrip(c)
	if !ok {
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("trip_id = ?", trip.ID).Delete(&models.Event{}).Error; err != nil {
			return err
		}
		if err := tx.Where("trip_id = ?", trip.ID).Delete(&models.TripDay{}).Error; err != nil {
			return err
		}
		if err := tx.Where("trip_id = ?", trip.ID).Delete(&models.Expense{}).Error; err != nil {
			return err
		}
		return tx.Delete(trip).Error
	})
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	SuccessWithMessage(c, "删除成功", nil)
}

// UpdateDayRequest 更新行程日请求
type UpdateDayRequest struct {
	Title string `json:"title" example:"第一天：抵达"`
	Notes string `json:"notes" example:"下午机场集合"`
}

// UpdateDay 更新行程日
// @Summary 更新行程日
// @Description 修改行程日的标题和备注
// @Tags 行程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "行程ID"
// @Param dayId path int true "行程日ID"
// @Param request body UpdateDayRequest true "行程日信息"
// @Success 200 {object} Response{data=models.TripDay} "更新成功"
// @Failure 404 {object} Response "行程日不存在"
// @Router /api/v1/trips/{id}/days/{dayId} [put]
func (h *TripHandler) UpdateDay(c *gin.Context) {
	trip, ok := h.loadTrip(c)
	if !ok {
		return
	}

	dayID, err := strconv.ParseUint(c.Param("dayId"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var day models.TripDay
	if err := database.DB.Where("id = ? AND trip_id = ?", dayID, trip.ID).First(&day).Error; err != nil {
		NotFound(c, "行程日不存在")
		return
	}

	var req UpdateDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	updates := map[string]interface{}{
		"title": req.Title,
		"notes": req.Notes,
	}
	if err := database.DB.Model(&day).Updates(updates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}

	database.DB.First(&day, day.ID)
	SuccessWithMessage(c, "更新成功", day)
}

// loadTrip 解析 :id 并校验行程归属当前小组
func (h *TripHandler) loadTrip(c *gin.Context) (*models.Trip, bool) {
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

// parseDateRange 解析并校验日期范围
func parseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02", startStr, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, errDateFormat("start_date")
	}
	end, err := time.ParseInLocation("2006-01-02", endStr, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, errDateFormat("end_date")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errEndBeforeStart
	}
	return start, end, nil
}

type dateError string

func (e dateError) Error() string { return string(e) }

func errDateFormat(field string) error {
	return dateError(field + "格式错误，应为: 2024-07-01")
}

var errEndBeforeStart = dateError("结束日期不能早于开始日期")

// generateTripDays 按日期范围补齐行程日，已存在的日期跳过
func generateTripDays(tx *gorm.DB, tripID uint, start, end time.Time) error {
	var existing []models.TripDay
	if err := tx.Where("trip_id = ?", tripID).Find(&existing).Error; err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, d := range existing {
		have[d.Date.Format("2006-01-02")] = true
	}

	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		if have[date.Format("2006-01-02")] {
			continue
		}
		day := models.TripDay{TripID: tripID, Date: date}
		if err := tx.Create(&day).Error; err != nil {
			return err
		}
	}
	return nil
}
