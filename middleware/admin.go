package middleware

import (
	"net/http"

	"dormexpo/database"
	"dormexpo/models"

	"github.com/gin-gonic/gin"
)

// AdminRequired 管理员校验中间件
// 需在 JWTAuth 之后使用。审批/驳回/支付与类别维护仅宿舍管理员可操作。
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetCurrentUserID(c)
		if userID == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "请先登录"})
			c.Abort()
			return
		}

		var user models.User
		if err := database.DB.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "用户不存在"})
			c.Abort()
			return
		}

		if !user.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"code": 403, "message": "权限不足，仅管理员可操作"})
			c.Abort()
			return
		}

		c.Next()
	}
}
