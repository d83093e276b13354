package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"tripmate/database"
	"tripmate/middleware"
	"tripmate/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportHandler 导出处理器
type ExportHandler struct{}

// NewExportHandler 创建导出处理器
func NewExportHandler() *ExportHandler {
	return &ExportHandler{}
}

// queryExportExpenses 查询导出范围内的消费记录，trip_id 可选
func (h *ExportHandler) queryExportExpenses(c *gin.Context) ([]models.Expense, bool) {
	groupID := middleware.GetCurrentGroupID(c)

	query := database.DB.Where("group_id = ?", groupID)
	if tripStr := c.Query("trip_id"); tripStr != "" {
		tripID, err := strconv.ParseUint(tripStr, 10, 32)
		if err != nil {
			BadRequest(c, "无效的 trip_id")
			return nil, false
		}
		query = query.Where("trip_id = ?", tripID)
	}

	var expenses []models.Expense
	if err := query.
		Preload("Participants").
		Preload("LineItems").
		Preload("LineItems.Participants").
		Order("created_at ASC, id ASC").
		Find(&expenses).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询数据失败"))
		return nil, false
	}
	return expenses, true
}

// memberNames 组内成员ID到名字的映射
func (h *ExportHandler) memberNames(groupID uint) map[uint]string {
	var members []models.GroupMember
	database.DB.Where("group_id = ?", groupID).Find(&members)
	names := make(map[uint]string, len(members))
	for _, m := range members {
		names[m.ID] = m.TravelerName
	}
	return names
}

// exportRow 一条导出记录
func exportRow(e models.Expense, names map[uint]string) []string {
	return []string{
		fmt.Sprintf("%d", e.ID),
		fmt.Sprintf("%d", e.TripID),
		fmt.Sprintf("%.2f", e.Amount),
		e.Category,
		e.Description,
		names[e.OwnerID],
		fmt.Sprintf("%d", len(e.Participants)),
		fmt.Sprintf("%d", len(e.LineItems)),
		e.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

var exportHeaders = []string{"ID", "行程ID", "金额", "类别", "描述", "垫付人", "分摊人数", "明细行数", "创建时间"}

// ExportCSV 导出消费记录为 CSV
// @Summary 导出消费记录为 CSV
// @Description 导出当前小组（或指定行程）的消费记录为 CSV 文件
// @Tags 导出
// @Accept json
// @Produce text/csv
// @Security BearerAuth
// @Param trip_id query int false "行程筛选"
// @Success 200 {file} file "CSV 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)

	expenses, ok := h.queryExportExpenses(c)
	if !ok {
		return
	}
	names := h.memberNames(groupID)

	buf := new(bytes.Buffer)
	// 添加 BOM 以支持 Excel 中文显示
	buf.WriteString("\xEF\xBB\xBF")

	writer := csv.NewWriter(buf)
	if err := writer.Write(exportHeaders); err != nil {
		InternalError(c, "生成 CSV 失败")
		return
	}
	for _, expense := range expenses {
		if err := writer.Write(exportRow(expense, names)); err != nil {
			InternalError(c, "生成 CSV 失败")
			return
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		InternalError(c, "生成 CSV 失败")
		return
	}

	filename := fmt.Sprintf("expenses_%s.csv", time.Now().Format("20060102"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("Content-Length", fmt.Sprintf("%d", buf.Len()))

	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportJSON 导出消费记录为 JSON
// @Summary 导出消费记录为 JSON
// @Description 导出当前小组（或指定行程）的消费记录为 JSON，含分摊明细和汇总
// @Tags 导出
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param trip_id query int false "行程筛选"
// @Success 200 {object} Response "导出成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/export/json [get]
func (h *ExportHandler) ExportJSON(c *gin.Context) {
	expenses, ok := h.queryExportExpenses(c)
	if !ok {
		return
	}

	var totalAmount float64
	for _, expense := range expenses {
		totalAmount += expense.Amount
	}

	Success(c, gin.H{
		"total_count":  len(expenses),
		"total_amount": totalAmount,
		"expenses":     expenses,
	})
}

// ExportExcel 导出消费记录为 Excel
// @Summary 导出消费记录为 Excel
// @Description 导出当前小组（或指定行程）的消费记录为 xlsx 文件
// @Tags 导出
// @Accept json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param trip_id query int false "行程筛选"
// @Success 200 {file} file "Excel 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/export/excel [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	groupID := middleware.GetCurrentGroupID(c)

	expenses, ok := h.queryExportExpenses(c)
	if !ok {
		return
	}
	names := h.memberNames(groupID)

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "消费记录"
	index, err := f.NewSheet(sheet)
	if err != nil {
		InternalError(c, "生成 Excel 失败")
		return
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}
	for rowIdx, expense := range expenses {
		for colIdx, value := range exportRow(expense, names) {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		InternalError(c, "生成 Excel 失败")
		return
	}

	filename := fmt.Sprintf("expenses_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("Content-Length", fmt.Sprintf("%d", buf.Len()))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
