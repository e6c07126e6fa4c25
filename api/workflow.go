package api

import (
	"fmt"
	"strconv"

	"dormexpo/database"
	"dormexpo/middleware"
	"dormexpo/models"
	"dormexpo/service"

	"github.com/gin-gonic/gin"
)

// WorkflowHandler 报销流程处理器
// 状态机见 models.ApplyAction：draft → submitted → approved/rejected → paid
type WorkflowHandler struct {
	audit    service.AuditSink
	notifier *service.EmailNotifier
}

// NewWorkflowHandler 创建报销流程处理器
func NewWorkflowHandler(audit service.AuditSink, notifier *service.EmailNotifier) *WorkflowHandler {
	return &WorkflowHandler{audit: audit, notifier: notifier}
}

// auditMessages 各动作的留痕文案
var auditMessages = map[string]string{
	models.ActionSubmit:   "提交审批",
	models.ActionApprove:  "审批通过",
	models.ActionReject:   "审批驳回",
	models.ActionReset:    "退回草稿",
	models.ActionMarkPaid: "标记已支付",
}

// applyTransition 加载记录、执行流转并留痕。
// ownerOnly 为 true 时仅记录所有人可操作（审批类动作由路由上的管理员中间件把关）。
func (h *WorkflowHandler) applyTransition(c *gin.Context, action string, ownerOnly bool) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	query := database.DB.Preload("User")
	if ownerOnly {
		query = query.Where("user_id = ?", userID)
	}
	var expense models.Expense
	if err := query.First(&expense, uint(id)).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	next, err := models.ApplyAction(expense.State, action)
	if err != nil {
		// 状态机拒绝的流转对客户端而言是参数问题
		BadRequest(c, err.Error())
		return
	}

	if err := database.DB.Model(&expense).Update("state", next).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "状态更新失败"))
		return
	}
	expense.State = next

	h.audit.Post(expense.ID, userID, fmt.Sprintf("%s: %s", auditMessages[action], expense.Description))

	// 批准时通知记录所有人，发送失败不影响本次操作
	if action == models.ActionApprove {
		h.notifier.NotifyApproval(&expense.User, expense.Description, expense.AmountDisplay())
	}

	database.DB.Preload("Category").First(&expense, expense.ID)
	SuccessWithMessage(c, auditMessages[action], newExpenseView(&expense))
}

// Submit 提交审批
// @Summary 提交报销
// @Description 把草稿状态的记录提交审批（draft → submitted），仅记录所有人可操作
// @Tags 报销流程
// @Produce json
// @Security BearerAuth
// @Param id path int true "开销记录ID"
// @Success 200 {object} Response{data=ExpenseView} "提交成功"
// @Failure 400 {object} Response "当前状态不允许提交"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id}/submit [post]
func (h *WorkflowHandler) Submit(c *gin.Context) {
	h.applyTransition(c, models.ActionSubmit, true)
}

// Approve 审批通过
// @Summary 批准报销
// @Description 批准已提交的记录（submitted → approved），仅管理员可操作。批准后通过邮件通知记录所有人。
// @Tags 报销流程
// @Produce json
// @Security BearerAuth
// @Param id path int true "开销记录ID"
// @Success 200 {object} Response{data=ExpenseView} "批准成功"
// @Failure 400 {object} Response "当前状态不允许批准"
// @Failure 401 {object} Response "未授权"
// @Failure 403 {object} Response "权限不足"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id}/approve [post]
func (h *WorkflowHandler) Approve(c *gin.Context) {
	h.applyTransition(c, models.ActionApprove, false)
}

// Reject 审批驳回
// @Summary 驳回报销
// @Description 驳回已提交的记录（submitted → rejected），仅管理员可操作
// @Tags 报销流程
// @Produce json
// @Security BearerAuth
// @Param id path int true "开销记录ID"
// @Success 200 {object} Response{data=ExpenseView} "驳回成功"
// @Failure 400 {object} Response "当前状态不允许驳回"
// @Failure 401 {object} Response "未授权"
// @Failure 403 {object} Response "权限不足"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id}/reject [post]
func (h *WorkflowHandler) Reject(c *gin.Context) {
	h.applyTransition(c, models.ActionReject, false)
}

// Reset 退回草稿
// @Summary 退回草稿
// @Description 把记录退回草稿状态重新编辑，仅记录所有人可操作。已支付的记录不可退回。
// @Tags 报销流程
// @Produce json
// @Security BearerAuth
// @Param id path int true "开销记录ID"
// @Success 200 {object} Response{data=ExpenseView} "退回成功"
// @Failure 400 {object} Response "已支付的记录不可退回"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id}/reset [post]
func (h *WorkflowHandler) Reset(c *gin.Context) {
	h.applyTransition(c, models.ActionReset, true)
}

// MarkPaid 标记已支付
// @Summary 标记已支付
// @Description 把已批准的记录标记为已支付（approved → paid），仅管理员可操作
// @Tags 报销流程
// @Produce json
// @Security BearerAuth
// @Param id path int true "开销记录ID"
// @Success 200 {object} Response{data=ExpenseView} "标记成功"
// @Failure 400 {object} Response "当前状态不允许标记支付"
// @Failure 401 {object} Response "未授权"
// @Failure 403 {object} Response "权限不足"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id}/pay [post]
func (h *WorkflowHandler) MarkPaid(c *gin.Context) {
	h.applyTransition(c, models.ActionMarkPaid, false)
}
