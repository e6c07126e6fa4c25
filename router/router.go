package router

import (
	"io/fs"
	"net/http"
	"time"

	"dormexpo/api"
	"dormexpo/config"
	"dormexpo/database"
	_ "dormexpo/docs"
	"dormexpo/middleware"
	"dormexpo/service"
	"dormexpo/web"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.Default()

	// CORS 中间件
	r.Use(CORSMiddleware())

	// 嵌入的静态文件 - 管理页面
	staticFS, _ := fs.Sub(web.StaticFS, ".")
	r.GET("/", func(c *gin.Context) {
		content, err := fs.ReadFile(staticFS, "index.html")
		if err != nil {
			c.String(http.StatusInternalServerError, "加载页面失败")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", content)
	})

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 审计与通知
	auditSink := service.NewDBAuditSink(database.DB)
	notifier := service.NewEmailNotifier(service.NewEmailService(&cfg.Email))

	// API v1 路由组
	v1 := r.Group("/api/v1")
	{
		// 认证相关路由（无需登录）
		authHandler := api.NewAuthHandler(cfg)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", middleware.LoginRateLimit(5, time.Minute), authHandler.Login)
		}

		// 开销类别（无需登录）
		categoryHandler := api.NewCategoryHandler()
		v1.GET("/categories", categoryHandler.ListActive)
		v1.GET("/categories/:code", categoryHandler.Resolve)

		// 需要 JWT 认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth())
		{
			// 用户相关
			authorized.GET("/auth/profile", authHandler.GetProfile)
			authorized.PUT("/auth/password", authHandler.ChangePassword)

			// 开销记录相关
			expenseHandler := api.NewExpenseHandler(cfg, auditSink)
			expenses := authorized.Group("/expenses")
			{
				expenses.POST("", expenseHandler.Create)
				expenses.GET("", expenseHandler.List)
				expenses.GET("/statistics", api.NewStatsHandler().GetStatistics)
				expenses.GET("/:id", expenseHandler.Get)
				expenses.PUT("/:id", expenseHandler.Update)
				expenses.DELETE("/:id", expenseHandler.Delete)
				expenses.POST("/:id/duplicate", expenseHandler.Duplicate)
				expenses.POST("/:id/share", expenseHandler.Share)

				// 票据附件
				expenses.POST("/:id/receipt", expenseHandler.UploadReceipt)
				expenses.GET("/:id/receipt", expenseHandler.DownloadReceipt)
				expenses.DELETE("/:id/receipt", expenseHandler.DeleteReceipt)
			}

			// 审批流转
			workflowHandler := api.NewWorkflowHandler(auditSink, notifier)
			expenses.POST("/:id/submit", workflowHandler.Submit)
			expenses.POST("/:id/reset", workflowHandler.Reset)

			// 月度统计
			statsHandler := api.NewStatsHandler()
			stats := authorized.Group("/stats")
			{
				stats.GET("/monthly", statsHandler.GetMonthlyStats)
				stats.GET("/monthly/chart", statsHandler.GetMonthlyStatsChart)
			}

			// 导出相关
			exportHandler := api.NewExportHandler()
			export := authorized.Group("/export")
			{
				export.GET("/csv", exportHandler.ExportCSV)
				export.POST("/report", exportHandler.ExportReport)
			}

			// 需要管理员权限的路由
			adminOnly := authorized.Group("")
			adminOnly.Use(middleware.AdminRequired())
			{
				adminOnly.POST("/expenses/:id/approve", workflowHandler.Approve)
				adminOnly.POST("/expenses/:id/reject", workflowHandler.Reject)
				adminOnly.POST("/expenses/:id/pay", workflowHandler.MarkPaid)

				// 类别管理
				adminOnly.GET("/admin/categories", categoryHandler.List)
				adminOnly.POST("/admin/categories", categoryHandler.Create)
				adminOnly.PUT("/admin/categories/:id", categoryHandler.Update)
				adminOnly.DELETE("/admin/categories/:id", categoryHandler.Delete)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return r
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
