package api

import (
	"strconv"
	"strings"

	"tripmate/balance"
	"tripmate/database"
	"tripmate/middleware"
	"tripmate/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpenseHandler 消费记录处理器
type ExpenseHandler struct{}

// NewExpenseHandler 创建消费记录处理器
func NewExpenseHandler() *ExpenseHandler {
	return &ExpenseHandler{}
}

// SplitParticipantRequest 分摊参与者
// participant_id 指小组成员；外部分摊人只传 external_name，由服务端按名字去重
type SplitParticipantRequest struct {
	ParticipantID   *uint   `json:"participant_id" example:"2"`
	ExternalName    string  `json:"external_name" example:"导游小林"`
	SplitPercentage float64 `json:"split_percentage" binding:"required" example:"33.33"`
}

// LineItemRequest 消费明细行
type LineItemRequest struct {
	Description  string                    `json:"description" binding:"required" example:"缆车票"`
	Amount       float64                   `json:"amount" binding:"required,gt=0" example:"30"`
	Quantity     int                       `json:"quantity" example:"2"`
	Participants []SplitParticipantRequest `json:"participants"`
}

// ExpenseRequest 创建/更新消费记录请求
// 有明细行时分摊按明细行计算，整单 participants 仅作展示不参与校验
type ExpenseRequest struct {
	TripID       uint                      `json:"trip_id" binding:"required" example:"1"`
	DayID        *uint                     `json:"day_id" example:"3"`
	EventID      *uint                     `json:"event_id" example:"5"`
	OwnerID      *uint                     `json:"owner_id" example:"2"`
	Amount       float64                   `json:"amount" binding:"required,gt=0" example:"99.99"`
	Category     string                    `json:"category" example:"餐饮"`
	Description  string                    `json:"description" binding:"required" example:"午餐"`
	Participants []SplitParticipantRequest `json:"participants"`
	LineItems    []LineItemRequest         `json:"line_items"`
}

// List 获取消费记录列表
// @Summary 获取消费记录列表
// @Description 获取当前小组的消费记录，支持按行程、行程日、类别筛选
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param trip_id query int false "行程筛选"
// @Param day_id query int false "行程日筛选"
// @Param event_id query int false "活动筛选"
// @Param category query string false "类别筛选"
// @Success 200 {object} Response{data=[]models.Expense} "获取成功"
// @Router /api/v1/expenses [get]
func (h *ExpenseHandler) List(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)

	query := database.DB.Where("group_id = ?", groupID)
	if tripStr := c.Query("trip_id"); tripStr != "" {
		tripID, err := strconv.ParseUint(tripStr, 10, 32)
		if err != nil {
			BadRequest(c, "无效的 trip_id")
			return
		}
		query = query.Where("trip_id = ?", tripID)
	}
	if dayStr := c.Query("day_id"); dayStr != "" {
		dayID, err := strconv.ParseUint(dayStr, 10, 32)
		if err != nil {
			BadRequest(c, "无效的 day_id")
			return
		}
		query = query.Where("day_id = ?", dayID)
	}
	if eventStr := c.Query("event_id"); eventStr != "" {
		eventID, err := strconv.ParseUint(eventStr, 10, 32)
		if err != nil {
			BadRequest(c, "无效的 event_id")
			return
		}
		query = query.Where("event_id = ?", eventID)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var expenses []models.Expense
	if err := query.
		Preload("Participants").
		Preload("LineItems").
		Preload("LineItems.Participants").
		Order("created_at DESC, id DESC").
		Find(&expenses).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, expenses)
}

// Create 创建消费记录
// @Summary 创建消费记录
// @Description 创建消费记录及其分摊。分摊百分比之和必须为 100（容差 0.01），校验失败时整个请求被拒绝，不产生部分写入。
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ExpenseRequest true "消费记录信息"
// @Success 200 {object} Response{data=models.Expense} "创建成功"
// @Failure 400 {object} Response "分摊校验失败"
// @Failure 404 {object} Response "行程不存在"
// @Router /api/v1/expenses [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)

	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	expense, ok := h.buildExpense(c, groupID, &req)
	if !ok {
		return
	}

	// 所有写入之前先整体校验分摊
	if err := balance.ValidateExpenseSplits(expense); err != nil {
		FromError(c, err, "分摊校验失败")
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := resolveExternalParticipants(tx, groupID, expense); err != nil {
			return err
		}
		deriveOwedAmounts(expense)
		return tx.Create(expense).Error
	})
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "创建消费记录失败"))
		return
	}

	SuccessWithMessage(c, "创建成功", expense)
}

// Get 获取单条消费记录
// @Summary 获取单条消费记录
// @Description 根据ID获取消费记录及其分摊明细
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Success 200 {object} Response{data=models.Expense} "获取成功"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id} [get]
func (h *ExpenseHandler) Get(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var expense models.Expense
	if err := database.DB.
		Preload("Participants").
		Preload("LineItems").
		Preload("LineItems.Participants").
		Where("id = ? AND group_id = ?", id, groupID).
		First(&expense).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	Success(c, expense)
}

// Update 更新消费记录
// @Summary 更新消费记录
// @Description 整体替换消费记录及其分摊；校验失败时保留原记录不变
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Param request body ExpenseRequest true "消费记录信息"
// @Success 200 {object} Response{data=models.Expense} "更新成功"
// @Failure 400 {object} Response "分摊校验失败"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id} [put]
func (h *ExpenseHandler) Update(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var existing models.Expense
	if err := database.DB.Where("id = ? AND group_id = ?", id, groupID).First(&existing).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	expense, ok := h.buildExpense(c, groupID, &req)
	if !ok {
		return
	}
	expense.ID = existing.ID
	expense.CreatedAt = existing.CreatedAt

	if err := balance.ValidateExpenseSplits(expense); err != nil {
		FromError(c, err, "分摊校验失败")
		return
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := deleteExpenseChildren(tx, existing.ID); err != nil {
			return err
		}
		if err := resolveExternalParticipants(tx, groupID, expense); err != nil {
			return err
		}
		deriveOwedAmounts(expense)
		for i := range expense.Participants {
			expense.Participants[i].ExpenseID = existing.ID
		}
		for i := range expense.LineItems {
			expense.LineItems[i].ExpenseID = existing.ID
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(expense).Error
	})
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}

	SuccessWithMessage(c, "更新成功", expense)
}

// Delete 删除消费记录
// @Summary 删除消费记录
// @Description 删除消费记录及其全部分摊明细
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id} [delete]
func (h *ExpenseHandler) Delete(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var expense models.Expense
	if err := database.DB.Where("id = ? AND group_id = ?", id, groupID).First(&expense).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := deleteExpenseChildren(tx, expense.ID); err != nil {
			return err
		}
		return tx.Delete(&expense).Error
	})
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	SuccessWithMessage(c, "删除成功", nil)
}

// GetCategories 获取消费类别列表
// @Summary 获取消费类别列表
// @Description 获取所有可用的消费类别，按排序字段升序排列
// @Tags 消费记录
// @Accept json
// @Produce json
// @Success 200 {object} Response{data=[]models.ExpenseCategory} "获取成功"
// @Failure 500 {object} Response "查询失败"
// @Router /api/v1/categories [get]
func (h *ExpenseHandler) GetCategories(c *gin.Context) {
	var list []models.ExpenseCategory
	if err := database.DB.Order("sort ASC, id ASC").Find(&list).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	Success(c, list)
}

// buildExpense 把请求转换为消费记录模型并做引用校验，外部分摊人此时只带名字
func (h *ExpenseHandler) buildExpense(c *gin.Context, groupID uint, req *ExpenseRequest) (*models.Expense, bool) {
	// 行程必须属于当前小组
	var trip models.Trip
	if err := database.DB.Where("id = ? AND group_id = ?", req.TripID, groupID).First(&trip).Error; err != nil {
		NotFound(c, "行程不存在")
		return nil, false
	}
	if req.DayID != nil {
		var day models.TripDay
		if err := database.DB.Where("id = ? AND trip_id = ?", *req.DayID, trip.ID).First(&day).Error; err != nil {
			BadRequest(c, "行程日不存在")
			return nil, false
		}
	}
	if req.EventID != nil {
		var event models.Event
		if err := database.DB.Where("id = ? AND trip_id = ?", *req.EventID, trip.ID).First(&event).Error; err != nil {
			BadRequest(c, "事件不存在")
			return nil, false
		}
	}

	// 垫付人默认为当前成员
	ownerID := middleware.GetCurrentMemberID(c)
	if req.OwnerID != nil {
		ownerID = *req.OwnerID
	}
	var owner models.GroupMember
	if err := database.DB.Where("id = ? AND group_id = ?", ownerID, groupID).First(&owner).Error; err != nil {
		BadRequest(c, "垫付人不是小组成员")
		return nil, false
	}

	// 类别校验（来源于数据库）
	category := strings.TrimSpace(req.Category)
	if category != "" {
		var cat models.ExpenseCategory
		if err := database.DB.Where("name = ?", category).First(&cat).Error; err != nil {
			BadRequest(c, "无效的消费类别")
			return nil, false
		}
	}

	expense := &models.Expense{
		GroupID:     groupID,
		TripID:      req.TripID,
		DayID:       req.DayID,
		EventID:     req.EventID,
		OwnerID:     ownerID,
		Amount:      req.Amount,
		Category:    category,
		Description: req.Description,
	}

	for _, p := range req.Participants {
		participant, ok := h.buildParticipant(c, groupID, p)
		if !ok {
			return nil, false
		}
		expense.Participants = append(expense.Participants, models.ExpenseParticipant{
			ParticipantID:   participant.ParticipantID,
			ExternalName:    participant.ExternalName,
			SplitPercentage: p.SplitPercentage,
		})
	}

	for _, item := range req.LineItems {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		lineItem := models.ExpenseLineItem{
			Description: item.Description,
			Amount:      item.Amount,
			Quantity:    quantity,
		}
		for _, p := range item.Participants {
			participant, ok := h.buildParticipant(c, groupID, p)
			if !ok {
				return nil, false
			}
			lineItem.Participants = append(lineItem.Participants, models.LineItemParticipant{
				ParticipantID:   participant.ParticipantID,
				ExternalName:    participant.ExternalName,
				SplitPercentage: p.SplitPercentage,
			})
		}
		expense.LineItems = append(expense.LineItems, lineItem)
	}

	return expense, true
}

// buildParticipant 校验单个分摊参与者引用
func (h *ExpenseHandler) buildParticipant(c *gin.Context, groupID uint, p SplitParticipantRequest) (models.ExpenseParticipant, bool) {
	out := models.ExpenseParticipant{}
	if p.ParticipantID != nil {
		var member models.GroupMember
		if err := database.DB.Where("id = ? AND group_id = ?", *p.ParticipantID, groupID).First(&member).Error; err != nil {
			BadRequest(c, "分摊参与者不是小组成员")
			return out, false
		}
		out.ParticipantID = p.ParticipantID
		return out, true
	}
	out.ExternalName = strings.TrimSpace(p.ExternalName)
	return out, true
}

// resolveExternalParticipants 为仅带名字的外部分摊人解析/创建记录并回填ID
// 同组同名复用同一条记录，刷新 last_used_at
func resolveExternalParticipants(tx *gorm.DB, groupID uint, e *models.Expense) error {
	resolved := make(map[string]uint)

	resolve := func(name string) (uint, error) {
		if id, ok := resolved[name]; ok {
			return id, nil
		}
		var external models.ExternalParticipant
		err := tx.Where("group_id = ? AND name = ?", groupID, name).First(&external).Error
		if err == gorm.ErrRecordNotFound {
			external = models.ExternalParticipant{GroupID: groupID, Name: name, LastUsedAt: tx.NowFunc()}
			if err := tx.Create(&external).Error; err != nil {
				return 0, err
			}
		} else if err != nil {
			return 0, err
		} else {
			if err := tx.Model(&external).Update("last_used_at", tx.NowFunc()).Error; err != nil {
				return 0, err
			}
		}
		resolved[name] = external.ID
		return external.ID, nil
	}

	for i := range e.Participants {
		p := &e.Participants[i]
		if p.ParticipantID != nil || p.ExternalName == "" {
			continue
		}
		id, err := resolve(p.ExternalName)
		if err != nil {
			return err
		}
		p.ExternalParticipantID = &id
	}
	for i := range e.LineItems {
		for j := range e.LineItems[i].Participants {
			p := &e.LineItems[i].Participants[j]
			if p.ParticipantID != nil || p.ExternalName == "" {
				continue
			}
			id, err := resolve(p.ExternalName)
			if err != nil {
				return err
			}
			p.ExternalParticipantID = &id
		}
	}
	return nil
}

// deriveOwedAmounts 按百分比派生每个参与者的应摊金额（两位小数）
// 各参与者之和必须与总额一致，舍入残差并入最后一名参与者
func deriveOwedAmounts(e *models.Expense) {
	total := decimal.NewFromFloat(e.Amount)
	pcts := make([]float64, len(e.Participants))
	for i := range e.Participants {
		pcts[i] = e.Participants[i].SplitPercentage
	}
	shares := distributeShares(total, pcts)
	for i := range e.Participants {
		e.Participants[i].AmountOwed = shares[i]
	}
	for i := range e.LineItems {
		item := &e.LineItems[i]
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		itemTotal := decimal.NewFromFloat(item.Amount).Mul(decimal.NewFromInt(int64(quantity)))
		itemPcts := make([]float64, len(item.Participants))
		for j := range item.Participants {
			itemPcts[j] = item.Participants[j].SplitPercentage
		}
		itemShares := distributeShares(itemTotal, itemPcts)
		for j := range item.Participants {
			item.Participants[j].AmountOwed = itemShares[j]
		}
	}
}

// distributeShares 把 total 按百分比切分并四舍五入到两位小数
// 前 n-1 份逐份舍入，最后一份取剩余额，保证各份之和等于舍入后的 total
func distributeShares(total decimal.Decimal, percentages []float64) []float64 {
	shares := make([]float64, len(percentages))
	if len(percentages) == 0 {
		return shares
	}
	allocated := decimal.Zero
	for i, pct := range percentages {
		if i == len(percentages)-1 {
			last, _ := total.Round(2).Sub(allocated).Float64()
			shares[i] = last
			break
		}
		share := total.Mul(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100)).Round(2)
		allocated = allocated.Add(share)
		shares[i], _ = share.Float64()
	}
	return shares
}

// deleteExpenseChildren 删除消费记录的全部分摊明细
func deleteExpenseChildren(tx *gorm.DB, expenseID uint) error {
	var itemIDs []uint
	if err := tx.Model(&models.ExpenseLineItem{}).
		Where("expense_id = ?", expenseID).
		Pluck("id", &itemIDs).Error; err != nil {
		return err
	}
	if len(itemIDs) > 0 {
		if err := tx.Where("line_item_id IN ?", itemIDs).Delete(&models.LineItemParticipant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", itemIDs).Delete(&models.ExpenseLineItem{}).Error; err != nil {
			return err
		}
	}
	return tx.Where("expense_id = ?", expenseID).Delete(&models.ExpenseParticipant{}).Error
}
