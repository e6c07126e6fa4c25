package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"dormexpo/config"
	"dormexpo/database"
	"dormexpo/middleware"
	"dormexpo/models"
	"dormexpo/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ExpenseHandler 开销记录处理器
type ExpenseHandler struct {
	cfg   *config.Config
	audit service.AuditSink
}

// NewExpenseHandler 创建开销记录处理器
func NewExpenseHandler(cfg *config.Config, audit service.AuditSink) *ExpenseHandler {
	return &ExpenseHandler{cfg: cfg, audit: audit}
}

// ExpenseView 开销记录视图，附带从存储字段派生的只读属性
type ExpenseView struct {
	ID              uint      `json:"id"`
	Description     string    `json:"description"`
	Date            string    `json:"date"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	AmountDisplay   string    `json:"amount_display"`
	CategoryID      uint      `json:"category_id"`
	CategoryCode    string    `json:"category_code,omitempty"`
	CategoryName    string    `json:"category_name,omitempty"`
	UserID          uint      `json:"user_id"`
	State           string    `json:"state"`
	PaymentMethod   string    `json:"payment_method"`
	IsShared        bool      `json:"is_shared"`
	SharedWithIDs   []uint    `json:"shared_with_ids,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	Tags            string    `json:"tags,omitempty"`
	Location        string    `json:"location,omitempty"`
	ReceiptFilename string    `json:"receipt_filename,omitempty"`
	ReceiptURL      string    `json:"receipt_url,omitempty"`
	PreviewURL      string    `json:"preview_url,omitempty"`
	Month           string    `json:"month"`
	Year            string    `json:"year"`
	Week            string    `json:"week"`
	DaysAgo         int       `json:"days_ago"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// newExpenseView 由存储字段派生展示属性，派生值不可独立写入
func newExpenseView(e *models.Expense) ExpenseView {
	v := ExpenseView{
		ID:              e.ID,
		Description:     e.Description,
		Date:            e.Date.Format("2006-01-02"),
		Amount:          e.Amount,
		Currency:        e.Currency,
		AmountDisplay:   e.AmountDisplay(),
		CategoryID:      e.CategoryID,
		CategoryCode:    e.Category.Code,
		CategoryName:    e.Category.Name,
		UserID:          e.UserID,
		State:           e.State,
		PaymentMethod:   e.PaymentMethod,
		IsShared:        e.IsShared,
		Notes:           e.Notes,
		Tags:            e.Tags,
		Location:        e.Location,
		ReceiptFilename: e.ReceiptFilename,
		Month:           e.MonthLabel(),
		Year:            e.YearLabel(),
		Week:            e.WeekLabel(),
		DaysAgo:         e.DaysAgo(time.Now()),
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
	for _, u := range e.SharedWith {
		v.SharedWithIDs = append(v.SharedWithIDs, u.ID)
	}
	if e.ReceiptPath != "" {
		v.ReceiptURL = fmt.Sprintf("/api/v1/expenses/%d/receipt", e.ID)
		// 仅图片票据提供内嵌预览
		if e.HasImageReceipt() {
			v.PreviewURL = v.ReceiptURL + "?preview=1"
		}
	}
	return v
}

func newExpenseViews(expenses []models.Expense) []ExpenseView {
	views := make([]ExpenseView, 0, len(expenses))
	for i := range expenses {
		views = append(views, newExpenseView(&expenses[i]))
	}
	return views
}

// respondDomainError 把领域错误映射为 HTTP 响应
func respondDomainError(c *gin.Context, err error) {
	var ve *models.ValidationError
	var oe *models.OperationNotAllowedError
	switch {
	case errors.As(err, &ve):
		BadRequest(c, ve.Message)
	case errors.As(err, &oe):
		Forbidden(c, oe.Message)
	default:
		InternalError(c, SafeErrorMessage(err, "操作失败"))
	}
}

// CreateExpenseRequest 创建开销记录请求
type CreateExpenseRequest struct {
	Description   string  `json:"description" binding:"required,max=255" example:"宿舍路由器"`
	Amount        float64 `json:"amount" binding:"required" example:"99.99"`
	Date          string  `json:"date" binding:"required" example:"2024-06-15"`
	CategoryCode  string  `json:"category_code" binding:"required" example:"internet"`
	Currency      string  `json:"currency" example:"CNY"`
	PaymentMethod string  `json:"payment_method" example:"mobile"`
	Notes         string  `json:"notes"`
	Tags          string  `json:"tags" example:"公用,网络"`
	Location      string  `json:"location" example:"3号楼502"`
}

// UpdateExpenseRequest 更新开销记录请求，零值字段不更新
type UpdateExpenseRequest struct {
	Description   string   `json:"description" binding:"omitempty,max=255"`
	Amount        *float64 `json:"amount"`
	Date          string   `json:"date"`
	CategoryCode  string   `json:"category_code"`
	Currency      string   `json:"currency"`
	PaymentMethod string   `json:"payment_method"`
	Notes         *string  `json:"notes"`
	Tags          *string  `json:"tags"`
	Location      *string  `json:"location"`
}

// ExpenseListRequest 开销记录列表请求
type ExpenseListRequest struct {
	Page         int    `form:"page" example:"1"`
	PageSize     int    `form:"page_size" example:"10"`
	CategoryCode string `form:"category_code" example:"food"`
	State        string `form:"state" example:"submitted"`
	StartDate    string `form:"start_date" example:"2024-01-01"`
	EndDate      string `form:"end_date" example:"2024-12-31"`
}

// resolveActiveCategory 按编码解析启用的类别
func resolveActiveCategory(code string) (*models.ExpenseCategory, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, models.NewValidationError("类别编码不能为空")
	}
	var cat models.ExpenseCategory
	if err := database.DB.Where("code = ? AND active = ?", code, true).First(&cat).Error; err != nil {
		return nil, models.NewValidationError("无效的开销类别，请先在后台维护类别")
	}
	return &cat, nil
}

// Create 创建开销记录
// @Summary 创建开销记录
// @Description 创建一条新的开销记录，初始状态为草稿。金额须在 (0, 999999.99] 内，日期不能晚于今天且不能早于一年前。
// @Tags 开销记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateExpenseRequest true "开销记录信息"
// @Success 200 {object} Response{data=ExpenseView} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/expenses [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	// 校验类别（来源于数据库，须为启用状态）
	cat, err := resolveActiveCategory(req.CategoryCode)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	// 解析日期
	date, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	if err != nil {
		BadRequest(c, "日期格式错误，应为: 2006-01-02")
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = h.cfg.Expense.DefaultCurrency
	}
	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = models.PaymentCard
	}
	if !models.ValidPaymentMethod(paymentMethod) {
		BadRequest(c, "无效的支付方式")
		return
	}

	expense := models.Expense{
		Description:   strings.TrimSpace(req.Description),
		Date:          date,
		Amount:        req.Amount,
		Currency:      currency,
		CategoryID:    cat.ID,
		UserID:        userID,
		PaymentMethod: paymentMethod,
		State:         models.StateDraft,
		Notes:         req.Notes,
		Tags:          req.Tags,
		Location:      req.Location,
	}

	// 金额与日期约束，违反则整条拒绝，不落库
	if err := expense.Validate(time.Now()); err != nil {
		respondDomainError(c, err)
		return
	}

	if err := database.DB.Create(&expense).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建开销记录失败"))
		return
	}

	h.audit.Post(expense.ID, userID, fmt.Sprintf("创建开销: %s (%s)", expense.Description, expense.AmountDisplay()))

	expense.Category = *cat
	SuccessWithMessage(c, "创建成功", newExpenseView(&expense))
}

// ownedOrSharedScope 当前用户可见的记录：自己的，或共享给自己的
func ownedOrSharedScope(userID uint) *gorm.DB {
	return database.DB.Model(&models.Expense{}).
		Joins("LEFT JOIN dorm_expense_shared_users s ON s.expense_id = dorm_expenses.id AND s.user_id = ?", userID).
		Where("dorm_expenses.user_id = ? OR (dorm_expenses.is_shared = ? AND s.user_id IS NOT NULL)", userID, true)
}

// List 获取开销记录列表
// @Summary 获取开销记录列表
// @Description 获取当前用户自己的以及共享给自己的开销记录，支持分页和筛选
// @Tags 开销记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Param category_code query string false "类别编码筛选"
// @Param state query string false "状态筛选 (draft/submitted/approved/rejected/paid)"
// @Param start_date query string false "开始日期 (2024-01-01)"
// @Param end_date query string false "结束日期 (2024-12-31)"
// @Success 200 {object} Response{data=PageResponse{list=[]ExpenseView}} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/expenses [get]
func (h *ExpenseHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req ExpenseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	// 默认分页参数
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 10
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	query := ownedOrSharedScope(userID)

	// 类别筛选
	if req.CategoryCode != "" {
		query = query.Joins("JOIN dorm_expense_categories cat ON cat.id = dorm_expenses.category_id").
			Where("cat.code = ?", req.CategoryCode)
	}

	// 状态筛选
	if req.State != "" {
		query = query.Where("dorm_expenses.state = ?", req.State)
	}

	// 日期范围筛选
	if req.StartDate != "" {
		if start, err := time.ParseInLocation("2006-01-02", req.StartDate, time.Local); err == nil {
			query = query.Where("dorm_expenses.date >= ?", start)
		}
	}
	if req.EndDate != "" {
		if end, err := time.ParseInLocation("2006-01-02", req.EndDate, time.Local); err == nil {
			query = query.Where("dorm_expenses.date <= ?", end)
		}
	}

	// 获取总数
	var total int64
	query.Count(&total)

	// 获取列表
	var expenses []models.Expense
	offset := (req.Page - 1) * req.PageSize
	if err := query.Preload("Category").
		Order("dorm_expenses.date DESC, dorm_expenses.id DESC").
		Offset(offset).Limit(req.PageSize).
		Find(&expenses).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, PageResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		List:     newExpenseViews(expenses),
	})
}

// loadVisibleExpense 加载当前用户可见的单条记录（本人或共享对象）
func loadVisibleExpense(id uint, userID uint) (*models.Expense, error) {
	var expense models.Expense
	if err := database.DB.Preload("Category").Preload("SharedWith").First(&expense, id).Error; err != nil {
		return nil, err
	}
	if expense.UserID != userID && !expense.SharedWithUser(userID) {
		return nil, gorm.ErrRecordNotFound
	}
	return &expense, nil
}

// Get 获取单条开销记录
// @Summary 获取单条开销记录
// @Description 根据ID获取开销记录详情，仅本人或共享对象可见
// @Tags 开销记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "开销记录ID"
// @Success 200 {object} Response{data=ExpenseView} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id} [get]
func (h *ExpenseHandler) Get(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	expense, err := loadVisibleExpense(uint(id), userID)
	if err != nil {
		NotFound(c, "记录不存在")
		return
	}

	Success(c, newExpenseView(expense))
}

// Update 更新开销记录
// @Summary 更新开销记录
// @Description 更新指定的开销记录，仅记录所有人可操作。变更后的整条记录重新校验金额与日期约束。
// @Tags 开销记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "开销记录ID"
// @Param request body UpdateExpenseRequest true "开销记录信息"
// @Success 200 {object} Response{data=ExpenseView} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id} [put]
func (h *ExpenseHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var expense models.Expense
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&expense).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	var req UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	amountChanged := false

	// 在内存中套用变更，整条重新校验后再落库
	if req.Description != "" {
		expense.Description = strings.TrimSpace(req.Description)
	}
	if req.Amount != nil {
		amountChanged = *req.Amount != expense.Amount
		expense.Amount = *req.Amount
	}
	if req.Date != "" {
		date, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
		if err != nil {
			BadRequest(c, "日期格式错误，应为: 2006-01-02")
			return
		}
		expense.Date = date
	}
	if req.CategoryCode != "" {
		cat, err := resolveActiveCategory(req.CategoryCode)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		expense.CategoryID = cat.ID
	}
	if req.Currency != "" {
		expense.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	}
	if req.PaymentMethod != "" {
		if !models.ValidPaymentMethod(req.PaymentMethod) {
			BadRequest(c, "无效的支付方式")
			return
		}
		expense.PaymentMethod = req.PaymentMethod
	}
	if req.Notes != nil {
		expense.Notes = *req.Notes
	}
	if req.Tags != nil {
		expense.Tags = *req.Tags
	}
	if req.Location != nil {
		expense.Location = *req.Location
	}

	if err := expense.Validate(time.Now()); err != nil {
		respondDomainError(c, err)
		return
	}

	if err := database.DB.Save(&expense).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}

	// 金额变更留痕
	if amountChanged {
		h.audit.Post(expense.ID, userID, fmt.Sprintf("更新开销: %s，金额变更为 %s", expense.Description, expense.AmountDisplay()))
	}

	database.DB.Preload("Category").First(&expense, expense.ID)
	SuccessWithMessage(c, "更新成功", newExpenseView(&expense))
}

// Delete 删除开销记录
// @Summary 删除开销记录
// @Description 删除（归档）指定的开销记录。已批准或已支付的记录不可删除。
// @Tags 开销记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "开销记录ID"
// @Success 200 {object} Response "删除成功"
// @Failure 401 {object} Response "未授权"
// @Failure 403 {object} Response "当前状态不允许删除"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id} [delete]
func (h *ExpenseHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var expense models.Expense
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&expense).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	if !expense.CanDelete() {
		respondDomainError(c, models.NewOperationNotAllowedError("已批准或已支付的记录不可删除"))
		return
	}

	if err := database.DB.Delete(&expense).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	SuccessWithMessage(c, "删除成功", nil)
}

// Duplicate 复制开销记录
// @Summary 复制开销记录
// @Description 以指定记录为模板创建新的草稿：描述加「(副本)」后缀，日期为今天，不复制票据
// @Tags 开销记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "开销记录ID"
// @Success 200 {object} Response{data=ExpenseView} "复制成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id}/duplicate [post]
func (h *ExpenseHandler) Duplicate(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	expense, err := loadVisibleExpense(uint(id), userID)
	if err != nil {
		NotFound(c, "记录不存在")
		return
	}

	dup := models.Expense{
		Description:   expense.Description + " (副本)",
		Date:          time.Now(),
		Amount:        expense.Amount,
		Currency:      expense.Currency,
		CategoryID:    expense.CategoryID,
		UserID:        userID,
		PaymentMethod: expense.PaymentMethod,
		State:         models.StateDraft,
		Notes:         expense.Notes,
		Tags:          expense.Tags,
		Location:      expense.Location,
	}

	if err := database.DB.Create(&dup).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "复制失败"))
		return
	}

	h.audit.Post(dup.ID, userID, fmt.Sprintf("复制开销 #%d: %s", expense.ID, dup.Description))

	dup.Category = expense.Category
	SuccessWithMessage(c, "复制成功", newExpenseView(&dup))
}

// ShareExpenseRequest 共享设置请求
type ShareExpenseRequest struct {
	IsShared bool   `json:"is_shared"`
	UserIDs  []uint `json:"user_ids"`
}

// Share 设置记录共享
// @Summary 设置开销记录共享
// @Description 记录所有人把记录共享给指定用户，或取消共享。取消共享时清空共享用户列表。
// @Tags 开销记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "开销记录ID"
// @Param request body ShareExpenseRequest true "共享设置"
// @Success 200 {object} Response{data=ExpenseView} "设置成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id}/share [post]
func (h *ExpenseHandler) Share(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var expense models.Expense
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&expense).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	var req ShareExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	var users []models.User
	if req.IsShared && len(req.UserIDs) > 0 {
		if err := database.DB.Where("id IN ? AND id != ?", req.UserIDs, userID).Find(&users).Error; err != nil {
			InternalError(c, SafeErrorMessage(err, "查询用户失败"))
			return
		}
		if len(users) != len(req.UserIDs) {
			BadRequest(c, "共享用户不存在或包含本人")
			return
		}
	}

	if err := database.DB.Model(&expense).Association("SharedWith").Replace(users); err != nil {
		InternalError(c, SafeErrorMessage(err, "设置共享失败"))
		return
	}
	if err := database.DB.Model(&expense).Update("is_shared", req.IsShared).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "设置共享失败"))
		return
	}

	if req.IsShared {
		h.audit.Post(expense.ID, userID, fmt.Sprintf("共享开销给 %d 位用户", len(users)))
	} else {
		h.audit.Post(expense.ID, userID, "取消共享")
	}

	database.DB.Preload("Category").Preload("SharedWith").First(&expense, expense.ID)
	SuccessWithMessage(c, "设置成功", newExpenseView(&expense))
}
