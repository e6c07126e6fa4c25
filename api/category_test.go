package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryHandler_ListActive(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `dorm_expense_categories`").
		WithArgs(true).
		WillReturnRows(categoryRows().
			AddRow(1, "food", "伙食", 10, "#ef4444", "fa-utensils", true, "", time.Now(), time.Now(), nil).
			AddRow(2, "utilities", "水电", 20, "#3b82f6", "fa-bolt", true, "", time.Now(), time.Now(), nil))

	router := gin.New()
	router.GET("/categories", NewCategoryHandler().ListActive)

	req := httptest.NewRequest("GET", "/categories", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	list := resp["data"].([]interface{})
	assert.Len(t, list, 2)
	first := list[0].(map[string]interface{})
	assert.Equal(t, "food", first["code"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_Resolve(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `dorm_expense_categories`").
		WithArgs("internet").
		WillReturnRows(categoryRows().
			AddRow(3, "internet", "网费", 30, "#a855f7", "fa-wifi", true, "", time.Now(), time.Now(), nil))

	router := gin.New()
	router.GET("/categories/:code", NewCategoryHandler().Resolve)

	req := httptest.NewRequest("GET", "/categories/internet", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "网费", data["name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_Resolve_NotFound(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `dorm_expense_categories`").
		WithArgs("nonexistent").
		WillReturnRows(categoryRows())

	router := gin.New()
	router.GET("/categories/:code", NewCategoryHandler().Resolve)

	req := httptest.NewRequest("GET", "/categories/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 404, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_Create(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	// 编码唯一性检查
	mock.ExpectQuery("SELECT .* FROM `dorm_expense_categories`").
		WithArgs("laundry").
		WillReturnRows(categoryRows())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `dorm_expense_categories`").
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.POST("/admin/categories", NewCategoryHandler().Create)

	body := `{"code":"laundry","name":"洗衣"}`
	req := httptest.NewRequest("POST", "/admin/categories", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "laundry", data["code"])
	// 未指定时使用默认颜色和排序
	assert.Equal(t, "#64748b", data["color"])
	assert.Equal(t, float64(10), data["sequence"])
	assert.Equal(t, true, data["active"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_Create_DuplicateCode(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `dorm_expense_categories`").
		WithArgs("food").
		WillReturnRows(categoryRows().
			AddRow(1, "food", "伙食", 10, "#ef4444", "fa-utensils", true, "", time.Now(), time.Now(), nil))

	router := gin.New()
	router.POST("/admin/categories", NewCategoryHandler().Create)

	body := `{"code":"food","name":"重复的伙食"}`
	req := httptest.NewRequest("POST", "/admin/categories", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "类别编码已存在", resp["message"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_Update_Deactivate(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `dorm_expense_categories`").
		WillReturnRows(categoryRows().
			AddRow(2, "utilities", "水电", 20, "#3b82f6", "fa-bolt", true, "", time.Now(), time.Now(), nil))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `dorm_expense_categories`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery("SELECT .* FROM `dorm_expense_categories`").
		WillReturnRows(categoryRows().
			AddRow(2, "utilities", "水电", 20, "#3b82f6", "fa-bolt", false, "", time.Now(), time.Now(), nil))

	router := gin.New()
	router.PUT("/admin/categories/:id", NewCategoryHandler().Update)

	body := `{"active":false}`
	req := httptest.NewRequest("PUT", "/admin/categories/2", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, false, data["active"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_Delete_StillReferenced(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `dorm_expense_categories`").
		WillReturnRows(categoryRows().
			AddRow(1, "food", "伙食", 10, "#ef4444", "fa-utensils", true, "", time.Now(), time.Now(), nil))

	// 仍有开销记录引用
	mock.ExpectQuery("SELECT count").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	router := gin.New()
	router.DELETE("/admin/categories/:id", NewCategoryHandler().Delete)

	req := httptest.NewRequest("DELETE", "/admin/categories/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "该类别仍被开销记录引用，不可删除，可改为停用", resp["message"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_Delete(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `dorm_expense_categories`").
		WillReturnRows(categoryRows().
			AddRow(8, "laundry", "洗衣", 80, "#64748b", "", true, "", time.Now(), time.Now(), nil))

	mock.ExpectQuery("SELECT count").
		WithArgs(8).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	// 软删除是 UPDATE deleted_at
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `dorm_expense_categories`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.DELETE("/admin/categories/:id", NewCategoryHandler().Delete)

	req := httptest.NewRequest("DELETE", "/admin/categories/8", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
