package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dormexpo/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupAdminMockDB(t *testing.T) (sqlmock.Sqlmock, func()) {
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

func adminTestRouter(userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if userID != 0 {
			c.Set("userID", userID)
		}
		c.Next()
	})
	router.Use(AdminRequired())
	router.POST("/approve", func(c *gin.Context) {
		c.String(200, "ok")
	})
	return router
}

func userMockRows(id uint, isAdmin bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "password", "email", "is_admin", "created_at", "updated_at", "deleted_at"}).
		AddRow(id, "someone", "hash", "", isAdmin, time.Now(), time.Now(), nil)
}

func TestAdminRequired_Admin(t *testing.T) {
	mock, cleanup := setupAdminMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(userMockRows(1, true))

	router := adminTestRouter(1)
	req := httptest.NewRequest("POST", "/approve", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminRequired_NotAdmin(t *testing.T) {
	mock, cleanup := setupAdminMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(userMockRows(2, false))

	router := adminTestRouter(2)
	req := httptest.NewRequest("POST", "/approve", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "权限不足")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminRequired_NotLoggedIn(t *testing.T) {
	router := adminTestRouter(0)
	req := httptest.NewRequest("POST", "/approve", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
