package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tripmate/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tripColumns() []string {
	return []string{"id", "group_id", "name", "destination", "start_date", "end_date", "notes", "created_at", "updated_at", "deleted_at"}
}

// expenseTestRouter 注入登录态（小组1/成员1）并挂载消费记录路由
func expenseTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("groupID", uint(1))
		c.Set("memberID", uint(1))
		c.Next()
	})
	handler := NewExpenseHandler()
	router.POST("/api/v1/expenses", handler.Create)
	router.GET("/api/v1/expenses/:id", handler.Get)
	router.DELETE("/api/v1/expenses/:id", handler.Delete)
	return router
}

func expectTripAndOwner(mock sqlmock.Sqlmock) {
	now := time.Now()
	mock.ExpectQuery("SELECT .* FROM `trips`").
		WillReturnRows(sqlmock.NewRows(tripColumns()).
			AddRow(1, 1, "海岛行", "冲绳", now, now, "", now, now, nil))
	mock.ExpectQuery("SELECT .* FROM `group_members`").
		WillReturnRows(sqlmock.NewRows(memberColumns()).
			AddRow(1, 1, "阿杰", "adventurer", true, true, true, now, now, nil))
}

func expectMemberLookup(mock sqlmock.Sqlmock, id uint, name string) {
	now := time.Now()
	mock.ExpectQuery("SELECT .* FROM `group_members`").
		WillReturnRows(sqlmock.NewRows(memberColumns()).
			AddRow(id, 1, name, "party_member", true, true, false, now, now, nil))
}

func TestExpenseHandler_CreateRejectsBadSplitSum(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	initTestAuth(t)

	router := expenseTestRouter()

	// 百分比之和 90，校验在任何写入之前拒绝整个请求
	expectTripAndOwner(mock)
	expectMemberLookup(mock, 1, "阿杰")
	expectMemberLookup(mock, 2, "小美")

	w := postJSON(router, "/api/v1/expenses", gin.H{
		"trip_id":     1,
		"amount":      100,
		"description": "晚餐",
		"participants": []gin.H{
			{"participant_id": 1, "split_percentage": 50},
			{"participant_id": 2, "split_percentage": 40},
		},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "100")
	// 没有任何 INSERT 被执行
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Create(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	initTestAuth(t)

	router := expenseTestRouter()

	expectTripAndOwner(mock)
	expectMemberLookup(mock, 1, "阿杰")
	expectMemberLookup(mock, 2, "小美")

	// 校验通过后整单与分摊在同一事务写入
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `expenses`").
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectExec("INSERT INTO `expense_participants`").
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()

	w := postJSON(router, "/api/v1/expenses", gin.H{
		"trip_id":     1,
		"amount":      100,
		"description": "晚餐",
		"participants": []gin.H{
			{"participant_id": 1, "split_percentage": 50},
			{"participant_id": 2, "split_percentage": 50},
		},
	})

	assert.Equal(t, 200, w.Code)
	// 应摊金额按百分比派生
	assert.Contains(t, w.Body.String(), `"amount_owed":50`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_CreateRejectsBadPercentRange(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	initTestAuth(t)

	router := expenseTestRouter()

	expectTripAndOwner(mock)
	expectMemberLookup(mock, 1, "阿杰")

	w := postJSON(router, "/api/v1/expenses", gin.H{
		"trip_id":     1,
		"amount":      100,
		"description": "晚餐",
		"participants": []gin.H{
			{"participant_id": 1, "split_percentage": 110},
		},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_GetScopedToGroup(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	initTestAuth(t)

	router := expenseTestRouter()

	// 其他小组的记录按不存在处理
	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	req := httptest.NewRequest("GET", "/api/v1/expenses/99", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "记录不存在")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeriveOwedAmounts(t *testing.T) {
	uintp := func(v uint) *uint { return &v }

	e := &models.Expense{
		Amount: 100,
		Participants: []models.ExpenseParticipant{
			{ParticipantID: uintp(1), SplitPercentage: 33.33},
			{ParticipantID: uintp(2), SplitPercentage: 66.67},
		},
	}
	deriveOwedAmounts(e)
	assert.Equal(t, 33.33, e.Participants[0].AmountOwed)
	assert.Equal(t, 66.67, e.Participants[1].AmountOwed)

	// 明细行按 单价 × 数量 派生
	item := &models.Expense{
		Amount: 80,
		LineItems: []models.ExpenseLineItem{
			{
				Amount:   30,
				Quantity: 2,
				Participants: []models.LineItemParticipant{
					{ParticipantID: uintp(1), SplitPercentage: 100},
				},
			},
		},
	}
	deriveOwedAmounts(item)
	assert.Equal(t, 60.0, item.LineItems[0].Participants[0].AmountOwed)
}

func TestDeriveOwedAmountsRoundingSafe(t *testing.T) {
	uintp := func(v uint) *uint { return &v }

	// 0.03 元 8 人均摊：每份 0.00375 单独舍入会全部归零
	// 残差必须并入最后一人，保证分摊之和等于总额
	participants := make([]models.ExpenseParticipant, 8)
	for i := range participants {
		id := uint(i + 1)
		participants[i] = models.ExpenseParticipant{ParticipantID: uintp(id), SplitPercentage: 12.5}
	}
	e := &models.Expense{Amount: 0.03, Participants: participants}
	deriveOwedAmounts(e)

	sum := 0.0
	for _, p := range e.Participants {
		sum += p.AmountOwed
	}
	assert.InDelta(t, e.Amount, sum, 0.0001)
	assert.Equal(t, 0.03, e.Participants[7].AmountOwed)

	// 三人均摊 100 元：33.33 + 33.33 + 33.34
	three := &models.Expense{
		Amount: 100,
		Participants: []models.ExpenseParticipant{
			{ParticipantID: uintp(1), SplitPercentage: 33.33},
			{ParticipantID: uintp(2), SplitPercentage: 33.33},
			{ParticipantID: uintp(3), SplitPercentage: 33.34},
		},
	}
	deriveOwedAmounts(three)
	assert.Equal(t, 33.33, three.Participants[0].AmountOwed)
	assert.Equal(t, 33.33, three.Participants[1].AmountOwed)
	assert.Equal(t, 33.34, three.Participants[2].AmountOwed)

	// 明细行同样守恒
	item := &models.Expense{
		Amount: 0.1,
		LineItems: []models.ExpenseLineItem{
			{
				Amount:   0.05,
				Quantity: 2,
				Participants: []models.LineItemParticipant{
					{ParticipantID: uintp(1), SplitPercentage: 33.33},
					{ParticipantID: uintp(2), SplitPercentage: 33.33},
					{ParticipantID: uintp(3), SplitPercentage: 33.34},
				},
			},
		},
	}
	deriveOwedAmounts(item)
	itemSum := 0.0
	for _, p := range item.LineItems[0].Participants {
		itemSum += p.AmountOwed
	}
	assert.InDelta(t, 0.1, itemSum, 0.0001)
}
