package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tripmate/database"
	"tripmate/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	oldDB := database.DB
	database.DB = gormDB
	return mock, func() {
		database.DB = oldDB
		sqlDB.Close()
	}
}

func memberColumns() []string {
	return []string{"id", "group_id", "traveler_name", "role", "can_read", "can_create", "can_modify", "created_at", "updated_at", "deleted_at"}
}

func permissionRouter(perm models.Permission) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("groupID", uint(1))
		c.Set("memberID", uint(2))
		c.Next()
	})
	router.Use(RequirePermission(perm))
	router.GET("/x", func(c *gin.Context) {
		m := GetCurrentMember(c)
		c.String(200, m.TravelerName)
	})
	return router
}

func TestRequirePermission_Allowed(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `group_members`").
		WillReturnRows(sqlmock.NewRows(memberColumns()).
			AddRow(2, 1, "小美", models.RolePartyMember, true, true, false, nil, nil, nil))

	req := httptest.NewRequest("GET", "/x", nil)
	w := httptest.NewRecorder()
	permissionRouter(models.PermissionCreate).ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "小美", w.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequirePermission_Forbidden(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `group_members`").
		WillReturnRows(sqlmock.NewRows(memberColumns()).
			AddRow(2, 1, "小美", models.RolePartyMember, true, true, false, nil, nil, nil))

	req := httptest.NewRequest("GET", "/x", nil)
	w := httptest.NewRecorder()
	permissionRouter(models.PermissionModify).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "权限不足")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequirePermission_AdventurerBypass(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	// 队长权限位全关也放行
	mock.ExpectQuery("SELECT .* FROM `group_members`").
		WillReturnRows(sqlmock.NewRows(memberColumns()).
			AddRow(2, 1, "阿杰", models.RoleAdventurer, false, false, false, nil, nil, nil))

	req := httptest.NewRequest("GET", "/x", nil)
	w := httptest.NewRecorder()
	permissionRouter(models.PermissionModify).ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequirePermission_NotLoggedIn(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequirePermission(models.PermissionRead))
	router.GET("/x", func(c *gin.Context) { c.String(200, "ok") })

	req := httptest.NewRequest("GET", "/x", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
