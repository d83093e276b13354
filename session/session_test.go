package session

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"tripmate/apperr"
	"tripmate/models"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock, func() { sqlDB.Close() }
}

func sessionColumns() []string {
	return []string{
		"id", "device_fingerprint", "group_id", "current_traveler_name",
		"available_travelers", "session_type", "expires_at", "max_idle_seconds",
		"last_used", "is_active", "created_at", "updated_at", "deleted_at",
	}
}

func expectSaveDeviceSession(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `device_sessions`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `device_sessions`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
}

func TestSaveDeviceSession(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	expectSaveDeviceSession(mock)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	s, err := SaveDeviceSession(db, "fp-abc", 1, "阿杰", []string{"阿杰", "小美"}, models.SessionTypeRememberDevice, now)
	require.NoError(t, err)

	assert.True(t, s.IsActive)
	assert.Equal(t, now.Add(30*24*time.Hour), s.ExpiresAt)
	assert.Equal(t, int64((7 * 24 * time.Hour).Seconds()), s.MaxIdleSeconds)
	assert.Equal(t, now, s.LastUsed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveDeviceSession_Idempotent(t *testing.T) {
	// 相同指纹重复保存：每次都先停用旧会话再插入，最终只有一条活跃记录
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)

	expectSaveDeviceSession(mock)
	_, err := SaveDeviceSession(db, "fp-abc", 1, "阿杰", []string{"阿杰"}, models.SessionTypeStandard, now)
	require.NoError(t, err)

	expectSaveDeviceSession(mock)
	s, err := SaveDeviceSession(db, "fp-abc", 1, "阿杰", []string{"阿杰"}, models.SessionTypeStandard, now.Add(time.Minute))
	require.NoError(t, err)

	// last_used 被推进
	assert.Equal(t, now.Add(time.Minute), s.LastUsed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveSession_Valid(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT .* FROM `device_sessions`").
		WithArgs("fp-abc", 1, true, 1).
		WillReturnRows(sqlmock.NewRows(sessionColumns()).
			AddRow(10, "fp-abc", 1, "阿杰", `["阿杰","小美"]`, models.SessionTypeRememberDevice,
				now.Add(24*time.Hour), int64(7*24*3600), now.Add(-time.Hour), true, now, now, nil))

	s, err := ResolveSession(db, "fp-abc", 1, now)
	require.NoError(t, err)
	assert.Equal(t, "阿杰", s.CurrentTravelerName)
	assert.True(t, s.HasTraveler("小美"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveSession_ExpiredIsLazilyDeactivated(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	// expires_at 在过去
	mock.ExpectQuery("SELECT .* FROM `device_sessions`").
		WithArgs("fp-abc", 1, true, 1).
		WillReturnRows(sqlmock.NewRows(sessionColumns()).
			AddRow(10, "fp-abc", 1, "阿杰", `["阿杰"]`, models.SessionTypeStandard,
				now.Add(-time.Minute), int64(4*3600), now.Add(-time.Hour), true, now, now, nil))

	// 惰性停用
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `device_sessions`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := ResolveSession(db, "fp-abc", 1, now)
	require.Error(t, err)
	var uerr *apperr.UnauthorizedAccessError
	assert.True(t, errors.As(err, &uerr))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveSession_IdleTimeout(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	// expires_at 在未来，但 last_used 超过空闲窗口
	mock.ExpectQuery("SELECT .* FROM `device_sessions`").
		WithArgs("fp-abc", 1, true, 1).
		WillReturnRows(sqlmock.NewRows(sessionColumns()).
			AddRow(10, "fp-abc", 1, "阿杰", `["阿杰"]`, models.SessionTypeStandard,
				now.Add(24*time.Hour), int64(4*3600), now.Add(-5*time.Hour), true, now, now, nil))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `device_sessions`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := ResolveSession(db, "fp-abc", 1, now)
	require.Error(t, err)
	var uerr *apperr.UnauthorizedAccessError
	assert.True(t, errors.As(err, &uerr))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveSession_NotFound(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `device_sessions`").
		WithArgs("fp-none", 1, true, 1).
		WillReturnRows(sqlmock.NewRows(sessionColumns()))

	_, err := ResolveSession(db, "fp-none", 1, time.Now())
	require.Error(t, err)
	var uerr *apperr.UnauthorizedAccessError
	assert.True(t, errors.As(err, &uerr))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAutoLogin_ExtendsByPolicy(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	mock.ExpectQuery("SELECT .* FROM `device_sessions`").
		WithArgs("fp-abc", 1, true, 1).
		WillReturnRows(sqlmock.NewRows(sessionColumns()).
			AddRow(10, "fp-abc", 1, "阿杰", `["阿杰","小美"]`, models.SessionTypeRememberDevice,
				now.Add(time.Hour), int64(7*24*3600), now.Add(-time.Hour), true, now, now, nil))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `device_sessions`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s, err := AutoLogin(db, "fp-abc", 1, "小美", now)
	require.NoError(t, err)

	// 按 remember_device 策略续期，并切换到目标旅行者
	assert.Equal(t, "小美", s.CurrentTravelerName)
	assert.Equal(t, now.Add(30*24*time.Hour), s.ExpiresAt)
	assert.Equal(t, int64(7*24*3600), s.MaxIdleSeconds)
	assert.Equal(t, now, s.LastUsed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAutoLogin_TravelerNotInSession(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT .* FROM `device_sessions`").
		WithArgs("fp-abc", 1, true, 1).
		WillReturnRows(sqlmock.NewRows(sessionColumns()).
			AddRow(10, "fp-abc", 1, "阿杰", `["阿杰"]`, models.SessionTypeStandard,
				now.Add(time.Hour), int64(4*3600), now, true, now, now, nil))

	_, err := AutoLogin(db, "fp-abc", 1, "陌生人", now)
	require.Error(t, err)
	var uerr *apperr.UnauthorizedAccessError
	assert.True(t, errors.As(err, &uerr))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogout(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `device_sessions`").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, Logout(db, "fp-abc", 0))
	require.NoError(t, mock.ExpectationsWereMet())
}
