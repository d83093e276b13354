package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tripTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("groupID", uint(1))
		c.Set("memberID", uint(1))
		c.Next()
	})
	handler := NewTripHandler()
	router.POST("/api/v1/trips", handler.Create)
	router.PUT("/api/v1/trips/:id", handler.Update)
	return router
}

func TestTripHandler_CreateGeneratesDays(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	initTestAuth(t)

	router := tripTestRouter()

	// 7/1 - 7/3 共三天，行程与行程日在同一事务生成
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `trips`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT .* FROM `trip_days`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "trip_id", "date"}))
	for i := 0; i < 3; i++ {
		mock.ExpectExec("INSERT INTO `trip_days`").
			WillReturnResult(sqlmock.NewResult(int64(i+1), 1))
	}
	mock.ExpectCommit()

	w := postJSON(router, "/api/v1/trips", gin.H{
		"name":       "冲绳五日",
		"start_date": "2024-07-01",
		"end_date":   "2024-07-03",
	})

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "冲绳五日")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTripHandler_CreateRejectsInvertedRange(t *testing.T) {
	_, cleanup := setupMockDB(t)
	defer cleanup()
	initTestAuth(t)

	router := tripTestRouter()

	w := postJSON(router, "/api/v1/trips", gin.H{
		"name":       "穿越行程",
		"start_date": "2024-07-05",
		"end_date":   "2024-07-01",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "结束日期不能早于开始日期")
}

func TestTripHandler_UpdateBackfillsNewDays(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	initTestAuth(t)

	router := tripTestRouter()
	now := time.Now()
	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(2024, 7, 2, 0, 0, 0, 0, time.Local)

	mock.ExpectQuery("SELECT .* FROM `trips`").
		WillReturnRows(sqlmock.NewRows(tripColumns()).
			AddRow(1, 1, "冲绳五日", "冲绳", start, end, "", now, now, nil))

	// 延长到 7/3：补一天，已有的两天跳过
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `trips`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .* FROM `trip_days`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "trip_id", "date"}).
			AddRow(1, 1, start).
			AddRow(2, 1, end))
	mock.ExpectExec("INSERT INTO `trip_days`").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	mock.ExpectQuery("SELECT .* FROM `trips`").
		WillReturnRows(sqlmock.NewRows(tripColumns()).
			AddRow(1, 1, "冲绳五日", "冲绳", start, time.Date(2024, 7, 3, 0, 0, 0, 0, time.Local), "", now, now, nil))

	w := putJSON(router, "/api/v1/trips/1", gin.H{
		"end_date": "2024-07-03",
	})

	assert.Equal(t, 200, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
