package service

import (
	"log"

	"dormexpo/models"

	"gorm.io/gorm"
)

// AuditSink 审计日志接收器。每次创建/变更/工作流流转后同步调用，
// 写入失败只记日志，不影响触发它的业务操作。
type AuditSink interface {
	Post(expenseID, userID uint, message string)
}

// Notifier 用户通知接收器，fire-and-forget
type Notifier interface {
	Notify(user *models.User, message string)
}

// DBAuditSink 落库的审计日志实现
type DBAuditSink struct {
	db *gorm.DB
}

// NewDBAuditSink 创建审计日志服务
func NewDBAuditSink(db *gorm.DB) *DBAuditSink {
	return &DBAuditSink{db: db}
}

// Post 写入一条审计日志
func (s *DBAuditSink) Post(expenseID, userID uint, message string) {
	entry := models.AuditLog{
		ExpenseID: expenseID,
		UserID:    userID,
		Message:   message,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		log.Printf("警告: 写入审计日志失败 (expense=%d): %v", expenseID, err)
	}
}

// EmailNotifier 基于邮件服务的通知实现，异步发送
type EmailNotifier struct {
	email *EmailService
}

// NewEmailNotifier 创建邮件通知器
func NewEmailNotifier(email *EmailService) *EmailNotifier {
	return &EmailNotifier{email: email}
}

// NotifyApproval 向记录所有人发送批准通知，失败只记日志
func (n *EmailNotifier) NotifyApproval(user *models.User, description, amountDisplay string) {
	if user.Email == "" {
		return
	}
	go func() {
		if err := n.email.SendApprovalEmail(user.Email, user.Username, description, amountDisplay); err != nil {
			log.Printf("警告: 发送批准通知失败 (user=%s): %v", user.Username, err)
		}
	}()
}
