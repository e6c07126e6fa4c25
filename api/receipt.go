package api

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dormexpo/database"
	"dormexpo/middleware"
	"dormexpo/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// receiptExtensions 允许上传的票据文件扩展名
var receiptExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".pdf":  true,
}

// UploadReceipt 上传票据
// @Summary 上传票据文件
// @Description 为指定开销记录上传票据（图片或 PDF）。文件以随机名落盘，仅保存引用；重复上传会覆盖旧票据。
// @Tags 开销记录
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "开销记录ID"
// @Param receipt formData file true "票据文件 (jpg/jpeg/png/gif/pdf)"
// @Success 200 {object} Response{data=ExpenseView} "上传成功"
// @Failure 400 {object} Response "文件类型不支持或超出大小限制"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id}/receipt [post]
func (h *ExpenseHandler) UploadReceipt(c *gin.Context) {
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

	file, err := c.FormFile("receipt")
	if err != nil {
		BadRequest(c, "请选择票据文件")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !receiptExtensions[ext] {
		BadRequest(c, "不支持的文件类型，仅支持 jpg/jpeg/png/gif/pdf")
		return
	}
	maxSize := h.cfg.Storage.MaxReceiptMB * 1024 * 1024
	if file.Size > maxSize {
		BadRequest(c, fmt.Sprintf("文件超出大小限制 %dMB", h.cfg.Storage.MaxReceiptMB))
		return
	}

	if err := os.MkdirAll(h.cfg.Storage.ReceiptDir, 0o755); err != nil {
		InternalError(c, SafeErrorMessage(err, "保存票据失败"))
		return
	}

	// 随机落盘文件名，原始文件名只作为展示引用保存
	storedName := uuid.New().String() + ext
	storedPath := filepath.Join(h.cfg.Storage.ReceiptDir, storedName)
	if err := c.SaveUploadedFile(file, storedPath); err != nil {
		InternalError(c, SafeErrorMessage(err, "保存票据失败"))
		return
	}

	// 覆盖旧票据
	oldPath := expense.ReceiptPath
	updates := map[string]interface{}{
		"receipt_path":     storedPath,
		"receipt_filename": filepath.Base(file.Filename),
	}
	if err := database.DB.Model(&expense).Updates(updates).Error; err != nil {
		os.Remove(storedPath)
		InternalError(c, SafeErrorMessage(err, "保存票据失败"))
		return
	}
	if oldPath != "" {
		os.Remove(oldPath)
	}

	h.audit.Post(expense.ID, userID, "上传票据: "+expense.ReceiptFilename)

	database.DB.Preload("Category").First(&expense, expense.ID)
	SuccessWithMessage(c, "上传成功", newExpenseView(&expense))
}

// DownloadReceipt 下载票据
// @Summary 下载票据文件
// @Description 下载指定开销记录的票据，仅本人或共享对象可访问。带 preview=1 时内联展示（仅图片票据）。
// @Tags 开销记录
// @Produce octet-stream
// @Security BearerAuth
// @Param id path int true "开销记录ID"
// @Param preview query int false "1 表示内联预览"
// @Success 200 {file} file "票据文件"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录或票据不存在"
// @Router /api/v1/expenses/{id}/receipt [get]
func (h *ExpenseHandler) DownloadReceipt(c *gin.Context) {
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
	if expense.ReceiptPath == "" {
		NotFound(c, "该记录没有票据")
		return
	}
	if _, err := os.Stat(expense.ReceiptPath); err != nil {
		NotFound(c, "票据文件不存在")
		return
	}

	// 图片票据支持内联预览
	if c.Query("preview") == "1" && expense.HasImageReceipt() {
		c.File(expense.ReceiptPath)
		return
	}

	c.FileAttachment(expense.ReceiptPath, expense.ReceiptFilename)
}

// DeleteReceipt 删除票据
// @Summary 删除票据文件
// @Description 删除指定开销记录的票据引用及文件
// @Tags 开销记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "开销记录ID"
// @Success 200 {object} Response "删除成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录或票据不存在"
// @Router /api/v1/expenses/{id}/receipt [delete]
func (h *ExpenseHandler) DeleteReceipt(c *gin.Context) {
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
	if expense.ReceiptPath == "" {
		NotFound(c, "该记录没有票据")
		return
	}

	path := expense.ReceiptPath
	updates := map[string]interface{}{
		"receipt_path":     "",
		"receipt_filename": "",
	}
	if err := database.DB.Model(&expense).Updates(updates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除票据失败"))
		return
	}
	os.Remove(path)

	h.audit.Post(expense.ID, userID, "删除票据")

	SuccessWithMessage(c, "删除成功", nil)
}
