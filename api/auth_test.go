package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tripmate/config"
	"tripmate/database"
	"tripmate/middleware"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
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

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		JWT:    config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		Auth:   config.AuthConfig{AccessCode: "deploy-secret"},
	}
}

func initTestAuth(t *testing.T) *config.Config {
	cfg := testConfig()
	config.GlobalConfig = cfg
	middleware.InitJWT(cfg)
	t.Cleanup(func() { config.GlobalConfig = nil })
	gin.SetMode(gin.TestMode)
	return cfg
}

func groupColumns() []string {
	return []string{"id", "name", "access_code", "share_code", "created_at", "updated_at", "deleted_at"}
}

func memberColumns() []string {
	return []string{"id", "group_id", "traveler_name", "role", "can_read", "can_create", "can_modify", "created_at", "updated_at", "deleted_at"}
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func putJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest("PUT", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_CreateGroup(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := initTestAuth(t)

	handler := NewAuthHandler(cfg)
	router := gin.New()
	router.POST("/api/v1/groups", handler.CreateGroup)

	// 开组口令错误
	w := postJSON(router, "/api/v1/groups", gin.H{
		"setup_code":    "wrong",
		"name":          "海岛小分队",
		"access_code":   "sunny2024",
		"traveler_name": "阿杰",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "开组口令错误")

	// 成功创建：小组 + 领队成员在同一事务写入
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `groups`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `group_members`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	w2 := postJSON(router, "/api/v1/groups", gin.H{
		"setup_code":    "deploy-secret",
		"name":          "海岛小分队",
		"access_code":   "sunny2024",
		"traveler_name": "阿杰",
	})
	assert.Equal(t, 200, w2.Code)
	assert.Contains(t, w2.Body.String(), "adventurer")
	// 登录态 Cookie 同步写入
	cookies := strings.Join(w2.Header().Values("Set-Cookie"), ";")
	assert.Contains(t, cookies, "session=")
	assert.Contains(t, cookies, "group-id=")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Login(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := initTestAuth(t)

	handler := NewAuthHandler(cfg)
	router := gin.New()
	router.POST("/api/v1/auth/login", handler.Login)

	hash, _ := bcrypt.GenerateFromPassword([]byte("sunny2024"), bcrypt.DefaultCost)
	now := time.Now()

	// 访问码错误
	mock.ExpectQuery("SELECT .* FROM `groups`").
		WillReturnRows(sqlmock.NewRows(groupColumns()).
			AddRow(1, "海岛小分队", string(hash), "share-xyz", now, now, nil))

	w := postJSON(router, "/api/v1/auth/login", gin.H{
		"group_id":      1,
		"access_code":   "wrong-code",
		"traveler_name": "小美",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	// 不区分小组不存在与访问码错误
	assert.Contains(t, w.Body.String(), "小组不存在或访问码错误")

	// 成功登录：已有成员直接认领
	mock.ExpectQuery("SELECT .* FROM `groups`").
		WillReturnRows(sqlmock.NewRows(groupColumns()).
			AddRow(1, "海岛小分队", string(hash), "share-xyz", now, now, nil))
	mock.ExpectQuery("SELECT .* FROM `group_members`").
		WillReturnRows(sqlmock.NewRows(memberColumns()).
			AddRow(2, 1, "小美", "party_member", true, true, false, now, now, nil))

	w2 := postJSON(router, "/api/v1/auth/login", gin.H{
		"group_id":      1,
		"access_code":   "sunny2024",
		"traveler_name": "小美",
	})
	assert.Equal(t, 200, w2.Code)
	assert.Contains(t, w2.Body.String(), "token")
	cookies := strings.Join(w2.Header().Values("Set-Cookie"), ";")
	assert.Contains(t, cookies, "session=")
	assert.Contains(t, cookies, "traveler-name=")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_LoginFirstTimeCreatesMember(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := initTestAuth(t)

	handler := NewAuthHandler(cfg)
	router := gin.New()
	router.POST("/api/v1/auth/login", handler.Login)

	hash, _ := bcrypt.GenerateFromPassword([]byte("sunny2024"), bcrypt.DefaultCost)
	now := time.Now()

	mock.ExpectQuery("SELECT .* FROM `groups`").
		WillReturnRows(sqlmock.NewRows(groupColumns()).
			AddRow(1, "海岛小分队", string(hash), "share-xyz", now, now, nil))
	// 名字首次出现，自动入组为队员
	mock.ExpectQuery("SELECT .* FROM `group_members`").
		WillReturnRows(sqlmock.NewRows(memberColumns()))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `group_members`").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	w := postJSON(router, "/api/v1/auth/login", gin.H{
		"group_id":      1,
		"access_code":   "sunny2024",
		"traveler_name": "老王",
	})
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "party_member")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Logout(t *testing.T) {
	_, cleanup := setupMockDB(t)
	defer cleanup()
	initTestAuth(t)

	handler := NewAuthHandler(testConfig())
	router := gin.New()
	router.POST("/api/v1/auth/logout", handler.Logout)

	w := postJSON(router, "/api/v1/auth/logout", gin.H{})
	assert.Equal(t, 200, w.Code)

	// Cookie 被清除（Max-Age<0 表现为过期时间在过去）
	cookies := strings.Join(w.Header().Values("Set-Cookie"), ";")
	assert.Contains(t, cookies, "session=;")
}
