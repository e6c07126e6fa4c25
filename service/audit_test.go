package service

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock, func() { sqlDB.Close() }
}

func TestDBAuditSink_Post(t *testing.T) {
	db, mock, cleanup := newMockGorm(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `dorm_expense_audit_logs`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	sink := NewDBAuditSink(db)
	sink.Post(1, 1, "创建开销: 宿舍午餐 (¥25.50)")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDBAuditSink_Post_WriteFailureDoesNotPanic(t *testing.T) {
	db, mock, cleanup := newMockGorm(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `dorm_expense_audit_logs`").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	sink := NewDBAuditSink(db)

	// 审计写入失败只记日志，不影响调用方
	assert.NotPanics(t, func() {
		sink.Post(1, 1, "提交审批: 宿舍午餐")
	})
	require.NoError(t, mock.ExpectationsWereMet())
}
