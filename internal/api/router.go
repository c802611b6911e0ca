// internal/api/router.go
package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Corphon/ClipMotionMCP/internal/config"
	"github.com/Corphon/ClipMotionMCP/internal/di"
	"github.com/Corphon/ClipMotionMCP/internal/services"
	"github.com/Corphon/ClipMotionMCP/internal/utils"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置HTTP路由
func SetupRouter() (*gin.Engine, error) {
	// 获取配置
	cfg := config.GetCurrentConfig()

	// 获取依赖注入容器
	container := di.GetContainer()

	// ✅ 只从容器获取服务，不再创建新实例
	projectService, ok := container.Get("project").(*services.ProjectService)
	if !ok {
		return nil, fmt.Errorf("项目服务未正确初始化")
	}

	composeService, ok := container.Get("compose").(*services.ComposeService)
	if !ok {
		return nil, fmt.Errorf("合成服务未正确初始化")
	}

	componentService, ok := container.Get("component").(*services.ComponentService)
	if !ok {
		return nil, fmt.Errorf("组件服务未正确初始化")
	}

	snapshotService, ok := container.Get("snapshot").(*services.SnapshotService)
	if !ok {
		return nil, fmt.Errorf("截图服务未正确初始化")
	}

	shareService, ok := container.Get("share").(*services.ShareService)
	if !ok {
		return nil, fmt.Errorf("分享服务未正确初始化")
	}

	systemService, ok := container.Get("system").(*services.SystemService)
	if !ok {
		return nil, fmt.Errorf("系统状态服务未正确初始化")
	}

	statsService, ok := container.Get("stats").(*services.StatsService)
	if !ok {
		return nil, fmt.Errorf("统计服务未正确初始化")
	}

	configService, ok := container.Get("config").(*services.ConfigService)
	if !ok {
		return nil, fmt.Errorf("配置服务未正确初始化")
	}

	llmService, ok := container.Get("llm").(*services.LLMService)
	if !ok {
		return nil, fmt.Errorf("LLM服务未正确初始化")
	}

	// ✅ 创建API处理器 - 只传递从容器获取的服务
	handler := &Handler{
		ProjectService:   projectService,
		ComposeService:   composeService,
		ComponentService: componentService,
		SnapshotService:  snapshotService,
		ShareService:     shareService,
		SystemService:    systemService,
		StatsService:     statsService,
		ConfigService:    configService,
		LLMService:       llmService,
		Response:         NewResponseHelper(),
	}

	// 创建路由
	r := gin.Default()

	// 启用CORS
	r.Use(corsMiddleware())

	// 请求指标采集
	r.Use(metricsMiddleware())

	// HTTPS重定向（生产环境）
	if !cfg.DebugMode {
		r.Use(func(c *gin.Context) {
			if c.Request.Header.Get("X-Forwarded-Proto") != "https" {
				c.Redirect(http.StatusPermanentRedirect,
					"https://"+c.Request.Host+c.Request.URL.Path)
				return
			}
			c.Next()
		})
	}

	// 静态文件服务
	r.Static("/static", cfg.StaticDir)

	// HTML模板
	r.LoadHTMLGlob(filepath.Join(cfg.TemplatesDir, "*.html"))

	// ===============================
	// 页面路由
	// ===============================
	r.GET("/", handler.IndexPage)
	r.GET("/player/:id", handler.PlayerPage)
	r.GET("/settings", handler.SettingsPage)

	// 合成文档直出，播放页iframe和截图服务使用
	r.GET("/compositions/:id", handler.ServeComposition)

	// 项目海报
	r.GET("/posters/:id", handler.ServePoster)

	// WebSocket 播放同步
	r.GET("/ws/playback/:id", handler.PlaybackWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	api.Use(DefaultRateLimit())
	{
		// ===============================
		// 项目相关路由
		// ===============================
		projectsGroup := api.Group("/projects")
		{
			projectsGroup.GET("", handler.GetProjects)
			projectsGroup.POST("", handler.CreateProject)
			projectsGroup.GET("/:id", handler.GetProject)
			projectsGroup.PUT("/:id", handler.UpdateProject)
			projectsGroup.DELETE("/:id", handler.DeleteProject)
			projectsGroup.GET("/:id/generated", handler.GetGenerated)

			// 合成管线
			projectsGroup.POST("/:id/compose", ComposeRateLimit(), handler.Compose)
			projectsGroup.POST("/:id/compose/manual", handler.ComposeManual)

			// 视频与封面
			projectsGroup.POST("/:id/video", handler.UploadVideo)
			projectsGroup.POST("/:id/poster", handler.CapturePoster)

			// 分享
			projectsGroup.GET("/:id/share", handler.GetShareInfo)
			projectsGroup.GET("/:id/share/qrcode", handler.ShareQRCode)
		}

		// 免保存预览
		api.POST("/compose/preview", ComposeRateLimit(), handler.Preview)

		// 批量重截封面
		api.POST("/posters/regenerate", handler.RegeneratePosters)

		// ===============================
		// 组件库相关路由
		// ===============================
		componentsGroup := api.Group("/components")
		{
			componentsGroup.GET("", handler.GetComponents)
			componentsGroup.POST("", handler.RegisterComponent)
			componentsGroup.POST("/generate", GenerateRateLimit(), handler.GenerateComponent)
			componentsGroup.DELETE("/:id", handler.RemoveComponent)
		}

		// ===============================
		// 设置相关路由
		// ===============================
		settingsGroup := api.Group("/settings")
		{
			settingsGroup.GET("", handler.GetSettings)
			settingsGroup.POST("", handler.SaveSettings)
		}

		// ===============================
		// 状态与统计
		// ===============================
		api.GET("/llm/status", handler.GetLLMStatus)
		api.GET("/system/status", handler.GetSystemStatus)
		api.GET("/stats", handler.GetUsageStats)
		api.GET("/metrics", handler.GetMetrics)

		// 调试路由
		api.GET("/ws/status", handler.GetPlaybackStatus)
	}

	return r, nil
}

// corsMiddleware 实现跨域资源共享
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// metricsMiddleware 把每个请求的耗时和状态码送进指标采集器
func metricsMiddleware() gin.HandlerFunc {
	apiMetrics := utils.NewAPIMetrics()

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		apiMetrics.RecordAPIRequest(endpoint, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
