package models

import (
	"time"

	"gorm.io/gorm"
)

// ExpenseCategory 开销类别（后台维护）
type ExpenseCategory struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Code        string         `json:"code" gorm:"size:20;not null;uniqueIndex"`
	Name        string         `json:"name" gorm:"size:50;not null"`
	Sequence    int            `json:"sequence" gorm:"default:10;index"`
	Color       string         `json:"color" gorm:"size:20;default:#64748b"` // 颜色代码，如 #ef4444
	Icon        string         `json:"icon" gorm:"size:50"`                  // Font Awesome 图标类名
	Active      bool           `json:"active" gorm:"default:true;index"`
	Description string         `json:"description" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (ExpenseCategory) TableName() string {
	return "dorm_expense_categories"
}

// DefaultCategories 默认宿舍开销类别，仅在类别表为空时写入
func DefaultCategories() []ExpenseCategory {
	return []ExpenseCategory{
		{Code: "food", Name: "伙食", Sequence: 10, Color: "#ef4444", Icon: "fa-utensils", Active: true},
		{Code: "utilities", Name: "水电", Sequence: 20, Color: "#3b82f6", Icon: "fa-bolt", Active: true},
		{Code: "internet", Name: "网费", Sequence: 30, Color: "#a855f7", Icon: "fa-wifi", Active: true},
		{Code: "rent", Name: "房租", Sequence: 40, Color: "#14b8a6", Icon: "fa-house", Active: true},
		{Code: "supplies", Name: "日用品", Sequence: 50, Color: "#f59e0b", Icon: "fa-basket-shopping", Active: true},
		{Code: "maintenance", Name: "维修", Sequence: 60, Color: "#10b981", Icon: "fa-screwdriver-wrench", Active: true},
		{Code: "other", Name: "其他", Sequence: 70, Color: "#64748b", Icon: "fa-ellipsis", Active: true},
	}
}
