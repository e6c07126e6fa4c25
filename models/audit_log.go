package models

import "time"

// AuditLog 开销记录的操作留痕，每次创建/变更/流转写入一条
type AuditLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ExpenseID uint      `json:"expense_id" gorm:"not null;index"`
	UserID    uint      `json:"user_id" gorm:"not null;index"` // 操作人
	Message   string    `json:"message" gorm:"size:255;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "dorm_expense_audit_logs"
}
