package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// 支付方式
const (
	PaymentCash     = "cash"     // 现金
	PaymentCard     = "card"     // 银行卡
	PaymentMobile   = "mobile"   // 移动支付
	PaymentTransfer = "transfer" // 转账
	PaymentOther    = "other"    // 其他
)

// 报销状态
const (
	StateDraft     = "draft"     // 草稿
	StateSubmitted = "submitted" // 已提交
	StateApproved  = "approved"  // 已批准
	StateRejected  = "rejected"  // 已驳回
	StatePaid      = "paid"      // 已支付
)

// 工作流动作
const (
	ActionSubmit   = "submit"
	ActionApprove  = "approve"
	ActionReject   = "reject"
	ActionReset    = "reset_to_draft"
	ActionMarkPaid = "mark_paid"
)

const (
	// MaxAmount 单笔金额上限，超过视为录入错误
	MaxAmount = 999999.99
	// MaxExpenseAgeDays 允许录入的最早消费日期距今天数
	MaxExpenseAgeDays = 365
)

// Expense 宿舍开销记录模型
type Expense struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	Description     string          `json:"description" gorm:"size:255;not null"`
	Date            time.Time       `json:"date" gorm:"type:date;not null;index"`
	Amount          float64         `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency        string          `json:"currency" gorm:"size:8;not null;default:CNY"`
	CategoryID      uint            `json:"category_id" gorm:"not null;index"`
	Category        ExpenseCategory `json:"-" gorm:"foreignKey:CategoryID"`
	UserID          uint            `json:"user_id" gorm:"not null;index"`
	User            User            `json:"-" gorm:"foreignKey:UserID"`
	ReceiptPath     string          `json:"-" gorm:"size:255"`
	ReceiptFilename string          `json:"receipt_filename" gorm:"size:255"`
	IsShared        bool            `json:"is_shared" gorm:"default:false"`
	SharedWith      []User          `json:"-" gorm:"many2many:dorm_expense_shared_users"`
	Notes           string          `json:"notes" gorm:"type:text"`
	Tags            string          `json:"tags" gorm:"size:255"` // 逗号分隔的标签
	Location        string          `json:"location" gorm:"size:255"`
	PaymentMethod   string          `json:"payment_method" gorm:"size:20;not null;default:card"`
	State           string          `json:"state" gorm:"size:20;not null;default:draft;index"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `json:"-" gorm:"index"`
}

// TableName 设置表名
func (Expense) TableName() string {
	return "dorm_expenses"
}

// currencySymbols 货币符号表，找不到时回退为货币代码本身
var currencySymbols = map[string]string{
	"CNY": "¥",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"DZD": "دج",
}

// CurrencySymbol 货币代码对应的符号
func CurrencySymbol(code string) string {
	if s, ok := currencySymbols[strings.ToUpper(code)]; ok {
		return s
	}
	return code
}

// ValidPaymentMethod 是否为合法支付方式
func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentCash, PaymentCard, PaymentMobile, PaymentTransfer, PaymentOther:
		return true
	}
	return false
}

// Validate 校验金额与日期约束，today 为校验时刻的本地日期
func (e *Expense) Validate(today time.Time) error {
	if e.Amount <= 0 {
		return NewValidationError("金额必须大于 0")
	}
	if e.Amount > MaxAmount {
		return NewValidationError(fmt.Sprintf("金额超出上限 %.2f，请核对后重新输入", MaxAmount))
	}
	today = truncateToDay(today)
	date := truncateToDay(e.Date)
	if date.After(today) {
		return NewValidationError("消费日期不能晚于今天")
	}
	if date.Before(today.AddDate(0, 0, -MaxExpenseAgeDays)) {
		return NewValidationError("消费日期超过一年，请核对后重新输入")
	}
	return nil
}

// MonthLabel 月份标签，如 "June 2024"
func (e *Expense) MonthLabel() string {
	if e.Date.IsZero() {
		return ""
	}
	return e.Date.Format("January 2006")
}

// YearLabel 年份标签，如 "2024"
func (e *Expense) YearLabel() string {
	if e.Date.IsZero() {
		return ""
	}
	return e.Date.Format("2006")
}

// WeekLabel ISO 周标签，如 "Week 24, 2024"
func (e *Expense) WeekLabel() string {
	if e.Date.IsZero() {
		return ""
	}
	year, week := e.Date.ISOWeek()
	return fmt.Sprintf("Week %d, %d", week, year)
}

// AmountDisplay 带货币符号的金额展示，金额或货币缺失时回退为 "$0.00"
func (e *Expense) AmountDisplay() string {
	if e.Amount == 0 || e.Currency == "" {
		return "$0.00"
	}
	return fmt.Sprintf("%s%.2f", CurrencySymbol(e.Currency), e.Amount)
}

// DaysAgo 消费日期距 today 的天数
func (e *Expense) DaysAgo(today time.Time) int {
	if e.Date.IsZero() {
		return 0
	}
	return int(truncateToDay(today).Sub(truncateToDay(e.Date)).Hours() / 24)
}

// imageExtensions 可生成预览的票据图片扩展名
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif"}

// HasImageReceipt 票据文件是否为图片，决定能否内嵌预览
func (e *Expense) HasImageReceipt() bool {
	if e.ReceiptPath == "" || e.ReceiptFilename == "" {
		return false
	}
	name := strings.ToLower(e.ReceiptFilename)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// CanDelete 审批通过或已支付的记录不可删除
func (e *Expense) CanDelete() bool {
	return e.State != StateApproved && e.State != StatePaid
}

// SharedWithUser 记录是否共享给指定用户
func (e *Expense) SharedWithUser(userID uint) bool {
	if !e.IsShared {
		return false
	}
	for _, u := range e.SharedWith {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// ApplyAction 状态机流转：返回执行动作后的新状态。
// 已支付的记录不可退回草稿，其余状态均可 reset_to_draft。
func ApplyAction(state, action string) (string, error) {
	switch action {
	case ActionSubmit:
		if state == StateDraft {
			return StateSubmitted, nil
		}
	case ActionApprove:
		if state == StateSubmitted {
			return StateApproved, nil
		}
	case ActionReject:
		if state == StateSubmitted {
			return StateRejected, nil
		}
	case ActionMarkPaid:
		if state == StateApproved {
			return StatePaid, nil
		}
	case ActionReset:
		if state != StatePaid {
			return StateDraft, nil
		}
	default:
		return "", NewOperationNotAllowedError("未知的工作流动作: " + action)
	}
	return "", NewOperationNotAllowedError(fmt.Sprintf("当前状态 %s 不允许执行 %s", state, action))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
