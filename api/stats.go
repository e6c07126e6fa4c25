package api

import (
	"fmt"
	"strconv"
	"time"

	"dormexpo/database"
	"dormexpo/middleware"
	"dormexpo/models"
	"dormexpo/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StatsHandler 统计处理器
type StatsHandler struct{}

// NewStatsHandler 创建统计处理器
func NewStatsHandler() *StatsHandler {
	return &StatsHandler{}
}

// MonthlyStatsResponse 月度汇总返回
type MonthlyStatsResponse struct {
	Month int `json:"month" example:"6"`
	Year  int `json:"year" example:"2024"`
	models.MonthlyStats
}

// parseMonthYear 解析 month/year 参数，缺省取当前自然月
func parseMonthYear(c *gin.Context) (int, int, error) {
	now := time.Now()
	month, year := int(now.Month()), now.Year()

	if s := c.Query("month"); s != "" {
		m, err := strconv.Atoi(s)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, fmt.Errorf("month 参数错误，应为 1-12")
		}
		month = m
	}
	if s := c.Query("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 2000 || y > 2100 {
			return 0, 0, fmt.Errorf("year 格式错误，应为4位数字（如：2024）")
		}
		year = y
	}
	return month, year, nil
}

// monthlyStatRecords 取某用户某自然月内所有未被驳回的记录（类别名 + 金额）
func monthlyStatRecords(userID uint, month, year int) ([]models.StatRecord, error) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 1, 0)

	var records []models.StatRecord
	err := database.DB.Model(&models.Expense{}).
		Select("dorm_expense_categories.name AS category, dorm_expenses.amount AS amount").
		Joins("JOIN dorm_expense_categories ON dorm_expense_categories.id = dorm_expenses.category_id").
		Where("dorm_expenses.user_id = ? AND dorm_expenses.date >= ? AND dorm_expenses.date < ? AND dorm_expenses.state <> ?",
			userID, start, end, models.StateRejected).
		Scan(&records).Error
	return records, err
}

// GetMonthlyStats 获取月度汇总
// @Summary 获取月度开销汇总
// @Description 统计当前用户某自然月的开销：总额、笔数、均值、按类别小计和金额最高的类别。被驳回的记录不计入。month/year 缺省为当前月份。
// @Description 没有记录时 total/count/average 为 0，by_category 为空对象，top_category 为 null。
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param month query int false "月份 (1-12)，缺省为当前月"
// @Param year query int false "年份，缺省为当前年"
// @Success 200 {object} Response{data=MonthlyStatsResponse} "获取成功"
// @Failure 400 {object} Response "参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/stats/monthly [get]
func (h *StatsHandler) GetMonthlyStats(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	month, year, err := parseMonthYear(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	records, err := monthlyStatRecords(userID, month, year)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, MonthlyStatsResponse{
		Month:        month,
		Year:         year,
		MonthlyStats: models.ComputeMonthlyStats(records),
	})
}

// GetMonthlyStatsChart 获取月度汇总饼图
// @Summary 获取月度开销饼图
// @Description 把月度按类别汇总渲染为饼图 PNG，便于客户端直接展示
// @Tags 统计
// @Produce png
// @Security BearerAuth
// @Param month query int false "月份 (1-12)，缺省为当前月"
// @Param year query int false "年份，缺省为当前年"
// @Success 200 {file} file "PNG 图片"
// @Failure 400 {object} Response "参数错误"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "该月份没有可统计的数据"
// @Router /api/v1/stats/monthly/chart [get]
func (h *StatsHandler) GetMonthlyStatsChart(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	month, year, err := parseMonthYear(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	records, err := monthlyStatRecords(userID, month, year)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	stats := models.ComputeMonthlyStats(records)
	title := fmt.Sprintf("%d-%02d", year, month)

	c.Header("Content-Type", "image/png")
	if err := service.RenderCategoryPieChart(stats, title, c.Writer); err != nil {
		if err == service.ErrNoChartData {
			NotFound(c, "该月份没有可统计的数据")
			return
		}
		InternalError(c, SafeErrorMessage(err, "生成图表失败"))
		return
	}
}

// CategoryStat 按类别统计条目
type CategoryStat struct {
	Category   string  `json:"category"`
	Total      float64 `json:"total"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// GetStatistics 获取时间范围统计
// @Summary 获取开销统计
// @Description 按时间范围统计当前用户的开销总额与按类别分布（含占比），被驳回的记录不计入。不传时间则统计全部。
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param start_date query string false "开始日期 (2024-01-01)"
// @Param end_date query string false "结束日期 (2024-12-31)"
// @Success 200 {object} Response "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/expenses/statistics [get]
func (h *StatsHandler) GetStatistics(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	// 每个统计各自构建查询，避免条件累积
	scoped := func() *gorm.DB {
		q := database.DB.Model(&models.Expense{}).
			Where("dorm_expenses.user_id = ? AND dorm_expenses.state <> ?", userID, models.StateRejected)
		if s := c.Query("start_date"); s != "" {
			if start, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
				q = q.Where("dorm_expenses.date >= ?", start)
			}
		}
		if s := c.Query("end_date"); s != "" {
			if end, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
				q = q.Where("dorm_expenses.date <= ?", end)
			}
		}
		return q
	}

	// 总金额和总笔数
	var totalAmount float64
	var totalCount int64
	scoped().Select("COALESCE(SUM(dorm_expenses.amount), 0)").Scan(&totalAmount)
	scoped().Count(&totalCount)

	// 按类别统计
	var categoryStats []CategoryStat
	scoped().
		Select("dorm_expense_categories.name AS category, SUM(dorm_expenses.amount) AS total, COUNT(*) AS count").
		Joins("JOIN dorm_expense_categories ON dorm_expense_categories.id = dorm_expenses.category_id").
		Group("dorm_expense_categories.name").
		Order("total DESC").
		Scan(&categoryStats)

	// 计算每个类别的占比
	for i := range categoryStats {
		if totalAmount > 0 {
			categoryStats[i].Percentage = (categoryStats[i].Total / totalAmount) * 100
		}
	}

	Success(c, gin.H{
		"total_amount":   totalAmount,
		"total_count":    totalCount,
		"category_stats": categoryStats,
	})
}
