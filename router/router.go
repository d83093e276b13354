package router

import (
	"time"

	"tripmate/api"
	"tripmate/config"
	_ "tripmate/docs"
	"tripmate/middleware"
	"tripmate/models"
	"tripmate/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.Default()

	// CORS：前端跨域访问需携带 Cookie
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 小组快照缓存，写操作后由处理器失效
	groupCache := session.NewGroupCache(time.Minute)

	authHandler := api.NewAuthHandler(cfg)
	deviceHandler := api.NewDeviceSessionHandler(cfg)
	groupHandler := api.NewGroupHandler(cfg, groupCache)
	tripHandler := api.NewTripHandler()
	eventHandler := api.NewEventHandler()
	expenseHandler := api.NewExpenseHandler()
	balanceHandler := api.NewBalanceHandler()
	poiHandler := api.NewPOIHandler()
	exportHandler := api.NewExportHandler()

	canRead := middleware.RequirePermission(models.PermissionRead)
	canCreate := middleware.RequirePermission(models.PermissionCreate)
	canModify := middleware.RequirePermission(models.PermissionModify)

	v1 := r.Group("/api/v1")
	{
		// 登录限流：每 IP 每分钟最多 10 次
		loginLimit := middleware.LoginRateLimit(10, time.Minute)

		// 无需登录的路由
		v1.POST("/groups", loginLimit, authHandler.CreateGroup)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", loginLimit, authHandler.Login)
			auth.POST("/device/check", deviceHandler.Check)
			auth.POST("/device/auto-login", loginLimit, deviceHandler.AutoLogin)
		}

		// 消费类别（无需登录）
		v1.GET("/categories", expenseHandler.GetCategories)

		// 需要会话认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.SessionAuth())
		{
			// 身份相关
			authorized.POST("/auth/logout", authHandler.Logout)
			authorized.GET("/auth/profile", authHandler.GetProfile)
			authorized.POST("/auth/switch", authHandler.SwitchTraveler)

			// 小组相关
			group := authorized.Group("/group")
			{
				group.GET("", canRead, groupHandler.GetCurrent)
				group.PUT("", canModify, groupHandler.Update)
				group.DELETE("", canModify, groupHandler.Delete)
				group.GET("/members", canRead, groupHandler.ListMembers)
				group.POST("/members", canModify, groupHandler.AddMember)
				group.PUT("/members/:id", canModify, groupHandler.UpdateMember)
				group.DELETE("/members/:id", canModify, groupHandler.DeleteMember)
				group.GET("/externals", canRead, groupHandler.ListExternalParticipants)
				group.DELETE("/externals/:id", canModify, groupHandler.DeleteExternalParticipant)
				group.POST("/invite", canRead, groupHandler.Invite)
			}

			// 行程与日程
			trips := authorized.Group("/trips")
			{
				trips.GET("", canRead, tripHandler.List)
				trips.POST("", canCreate, tripHandler.Create)
				trips.GET("/:id", canRead, tripHandler.Get)
				trips.PUT("/:id", canModify, tripHandler.Update)
				trips.DELETE("/:id", canModify, tripHandler.Delete)
				trips.PUT("/:id/days/:dayId", canModify, tripHandler.UpdateDay)
				trips.GET("/:id/events", canRead, eventHandler.List)
				trips.POST("/:id/events", canCreate, eventHandler.Create)
				trips.PUT("/:id/events/:eventId", canModify, eventHandler.Update)
				trips.DELETE("/:id/events/:eventId", canModify, eventHandler.Delete)
				trips.GET("/:id/balances", canRead, balanceHandler.TripBalances)
			}

			// 消费记录
			expenses := authorized.Group("/expenses")
			{
				expenses.GET("", canRead, expenseHandler.List)
				expenses.POST("", canCreate, expenseHandler.Create)
				expenses.GET("/:id", canRead, expenseHandler.Get)
				expenses.PUT("/:id", canModify, expenseHandler.Update)
				expenses.DELETE("/:id", canModify, expenseHandler.Delete)
			}

			// 结算
			authorized.GET("/balances", canRead, balanceHandler.GroupBalances)
			authorized.GET("/balances/summary", canRead, balanceHandler.PersonalSummary)

			// 兴趣点
			pois := authorized.Group("/pois")
			{
				pois.GET("", canRead, poiHandler.List)
				pois.POST("", canCreate, poiHandler.Create)
				pois.PUT("/:id", canModify, poiHandler.Update)
				pois.DELETE("/:id", canModify, poiHandler.Delete)
			}

			// 导出
			export := authorized.Group("/export")
			{
				export.GET("/csv", canRead, exportHandler.ExportCSV)
				export.GET("/json", canRead, exportHandler.ExportJSON)
				export.GET("/excel", canRead, exportHandler.ExportExcel)
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
