package api

import (
	"strconv"

	"tripmate/balance"
	"tripmate/database"
	"tripmate/middleware"
	"tripmate/models"

	"github.com/gin-gonic/gin"
)

// BalanceHandler 账目结算处理器
type BalanceHandler struct{}

// NewBalanceHandler 创建账目结算处理器
func NewBalanceHandler() *BalanceHandler {
	return &BalanceHandler{}
}

// TripBalances 获取行程结算
// @Summary 获取行程结算
// @Description 获取单个行程内各成员的应收应付和两两净额
// @Tags 结算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "行程ID"
// @Success 200 {object} Response{data=balance.GroupBalances} "获取成功"
// @Failure 404 {object} Response "行程不存在"
// @Router /api/v1/trips/{id}/balances [get]
func (h *BalanceHandler) TripBalances(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var trip models.Trip
	if err := database.DB.Where("id = ? AND group_id = ?", id, groupID).First(&trip).Error; err != nil {
		NotFound(c, "行程不存在")
		return
	}

	expenses, members, ok := h.loadLedgerInputs(c, groupID, trip.ID)
	if !ok {
		return
	}

	Success(c, balance.ComputeBalances(expenses, members))
}

// GroupBalances 获取小组结算
// @Summary 获取小组结算
// @Description 获取小组全部行程合并后的结算情况
// @Tags 结算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=balance.GroupBalances} "获取成功"
// @Router /api/v1/balances [get]
func (h *BalanceHandler) GroupBalances(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)

	expenses, members, ok := h.loadLedgerInputs(c, groupID, 0)
	if !ok {
		return
	}

	Success(c, balance.ComputeBalances(expenses, members))
}

// PersonalSummary 获取个人结算摘要
// @Summary 获取个人结算摘要
// @Description 以当前成员视角汇总：每个行程欠/被欠多少，以及跨行程的对手方合计
// @Tags 结算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=balance.PersonalSummary} "获取成功"
// @Router /api/v1/balances/summary [get]
func (h *BalanceHandler) PersonalSummary(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)
	memberID := middleware.GetCurrentMemberID(c)

	expenses, members, ok := h.loadLedgerInputs(c, groupID, 0)
	if !ok {
		return
	}

	var trips []models.Trip
	if err := database.DB.Where("group_id = ?", groupID).Find(&trips).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, balance.ComputePersonalSummary(memberID, expenses, trips, members))
}

// loadLedgerInputs 加载结算所需的消费记录和成员名单，tripID 为 0 时取全组
func (h *BalanceHandler) loadLedgerInputs(c *gin.Context, groupID, tripID uint) ([]models.Expense, []models.GroupMember, bool) {
	query := database.DB.Where("group_id = ?", groupID)
	if tripID != 0 {
		query = query.Where("trip_id = ?", tripID)
	}

	var expenses []models.Expense
	if err := query.
		Preload("Participants").
		Preload("LineItems").
		Preload("LineItems.Participants").
		Find(&expenses).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return nil, nil, false
	}

	var members []models.GroupMember
	if err := database.DB.Where("group_id = ?", groupID).Find(&members).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return nil, nil, false
	}

	return expenses, members, true
}
