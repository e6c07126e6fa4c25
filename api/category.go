package api

import (
	"strconv"
	"strings"

	"dormexpo/database"
	"dormexpo/models"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 开销类别管理
type CategoryHandler struct{}

func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

type CategoryCreateRequest struct {
	Code        string `json:"code" binding:"required,min=1,max=20"`
	Name        string `json:"name" binding:"required,min=1,max=50"`
	Sequence    int    `json:"sequence"`
	Color       string `json:"color" binding:"omitempty,max=20"` // 颜色代码，如 #ef4444
	Icon        string `json:"icon" binding:"omitempty,max=50"`
	Description string `json:"description"`
}

type CategoryUpdateRequest struct {
	Name        string  `json:"name" binding:"omitempty,min=1,max=50"`
	Sequence    *int    `json:"sequence"`
	Color       *string `json:"color" binding:"omitempty,max=20"`
	Icon        *string `json:"icon" binding:"omitempty,max=50"`
	Active      *bool   `json:"active"`
	Description *string `json:"description"`
}

// ListActive 获取启用的类别列表
// @Summary 获取开销类别列表
// @Description 获取所有启用的开销类别，按 sequence 升序、名称升序排列
// @Tags 开销类别
// @Produce json
// @Success 200 {object} Response{data=[]models.ExpenseCategory} "获取成功"
// @Failure 500 {object} Response "查询失败"
// @Router /api/v1/categories [get]
func (h *CategoryHandler) ListActive(c *gin.Context) {
	var list []models.ExpenseCategory
	if err := database.DB.Where("active = ?", true).
		Order("sequence ASC, name ASC").
		Find(&list).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	Success(c, list)
}

// Resolve 按 code 获取类别
// @Summary 按编码获取类别
// @Description 根据唯一编码获取类别详情
// @Tags 开销类别
// @Produce json
// @Param code path string true "类别编码"
// @Success 200 {object} Response{data=models.ExpenseCategory} "获取成功"
// @Failure 404 {object} Response "类别不存在"
// @Router /api/v1/categories/{code} [get]
func (h *CategoryHandler) Resolve(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))

	var cat models.ExpenseCategory
	if err := database.DB.Where("code = ?", code).First(&cat).Error; err != nil {
		NotFound(c, "类别不存在")
		return
	}
	Success(c, cat)
}

// List 列出所有类别（含停用，不含软删除）
// @Summary 获取全部开销类别（管理）
// @Description 管理端获取所有类别，包括已停用的
// @Tags 后台管理-开销类别
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.ExpenseCategory} "获取成功"
// @Router /api/v1/admin/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	var list []models.ExpenseCategory
	if err := database.DB.Order("sequence ASC, name ASC").Find(&list).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	Success(c, list)
}

// Create 创建类别
// @Summary 创建开销类别
// @Description 创建新的开销类别，编码全局唯一
// @Tags 后台管理-开销类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CategoryCreateRequest true "类别信息"
// @Success 200 {object} Response{data=models.ExpenseCategory} "创建成功"
// @Failure 400 {object} Response "参数错误或编码已存在"
// @Router /api/v1/admin/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req CategoryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if req.Code == "" || req.Name == "" {
		BadRequest(c, "编码和名称不能为空")
		return
	}

	// 编码唯一性
	var existing models.ExpenseCategory
	if err := database.DB.Where("code = ?", req.Code).First(&existing).Error; err == nil {
		BadRequest(c, "类别编码已存在")
		return
	}

	color := req.Color
	if color == "" {
		color = "#64748b" // 默认灰色
	}
	sequence := req.Sequence
	if sequence == 0 {
		sequence = 10
	}
	cat := models.ExpenseCategory{
		Code:        req.Code,
		Name:        req.Name,
		Sequence:    sequence,
		Color:       color,
		Icon:        req.Icon,
		Active:      true,
		Description: req.Description,
	}
	if err := database.DB.Create(&cat).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建失败"))
		return
	}
	SuccessWithMessage(c, "创建成功", cat)
}

// Update 更新类别
// @Summary 更新开销类别
// @Description 更新类别信息。把 active 置为 false 即停用（软停用，不影响已引用它的记录）。编码创建后不可修改。
// @Tags 后台管理-开销类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别ID"
// @Param request body CategoryUpdateRequest true "更新的类别信息"
// @Success 200 {object} Response{data=models.ExpenseCategory} "更新成功"
// @Failure 400 {object} Response "参数错误"
// @Failure 404 {object} Response "类别不存在"
// @Router /api/v1/admin/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var cat models.ExpenseCategory
	if err := database.DB.First(&cat, uint(id64)).Error; err != nil {
		NotFound(c, "类别不存在")
		return
	}

	var req CategoryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			BadRequest(c, "名称不能为空")
			return
		}
		updates["name"] = req.Name
	}
	if req.Sequence != nil {
		updates["sequence"] = *req.Sequence
	}
	if req.Color != nil {
		color := *req.Color
		if color == "" {
			color = "#64748b" // 默认灰色
		}
		updates["color"] = color
	}
	if req.Icon != nil {
		updates["icon"] = *req.Icon
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) == 0 {
		SuccessWithMessage(c, "无需更新", cat)
		return
	}

	if err := database.DB.Model(&cat).Updates(updates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}
	database.DB.First(&cat, cat.ID)
	SuccessWithMessage(c, "更新成功", cat)
}

// Delete 软删除类别
// @Summary 删除开销类别
// @Description 软删除指定的类别。仍被开销记录引用的类别不可删除，只能停用。
// @Tags 后台管理-开销类别
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别ID"
// @Success 200 {object} Response "删除成功"
// @Failure 400 {object} Response "无效的ID或类别仍被引用"
// @Failure 404 {object} Response "类别不存在"
// @Router /api/v1/admin/categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}
	var cat models.ExpenseCategory
	if err := database.DB.First(&cat, uint(id64)).Error; err != nil {
		NotFound(c, "类别不存在")
		return
	}

	// 引用限制：有开销记录引用时不可删除
	var refCount int64
	database.DB.Model(&models.Expense{}).Where("category_id = ?", cat.ID).Count(&refCount)
	if refCount > 0 {
		BadRequest(c, "该类别仍被开销记录引用，不可删除，可改为停用")
		return
	}

	if err := database.DB.Delete(&cat).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}
