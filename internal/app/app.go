// internal/app/app.go
package app

import (
	"fmt"
	"path/filepath"

	"github.com/Corphon/ClipMotionMCP/internal/components"
	"github.com/Corphon/ClipMotionMCP/internal/config"
	"github.com/Corphon/ClipMotionMCP/internal/di"
	"github.com/Corphon/ClipMotionMCP/internal/services"
	"github.com/Corphon/ClipMotionMCP/internal/storage"
	"github.com/Corphon/ClipMotionMCP/internal/utils"

	// 提供商靠init()注册进工厂表
	_ "github.com/Corphon/ClipMotionMCP/internal/llm/providers/anthropic"
	_ "github.com/Corphon/ClipMotionMCP/internal/llm/providers/google"
	_ "github.com/Corphon/ClipMotionMCP/internal/llm/providers/openai"
)

// InitServices 按依赖顺序初始化所有服务并注册进容器
// 顺序不能乱：存储 → LLM → 组件库 → 分段 → 项目 → 合成 → 截图/分享/状态/统计
func InitServices() error {
	cfg := config.GetCurrentConfig()
	container := di.GetContainer()

	// 1. 文件存储
	fileStorage, err := storage.NewFileStorage(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("初始化文件存储失败: %w", err)
	}
	container.Register("storage", fileStorage)

	// 2. 配置服务
	configService := services.NewConfigService()
	container.Register("config", configService)

	// 3. LLM服务：没配置密钥时降级为未就绪，不阻塞启动
	llmService, err := services.NewLLMService()
	if err != nil {
		utils.Warnf("⚠️ LLM服务初始化失败，AI功能不可用: %v", err)
		llmService = services.NewEmptyLLMService()
	}
	container.Register("llm", llmService)

	// 4. 组件库：内置组件 + 清单目录里的自定义组件
	registry := components.NewRegistry()
	componentService, err := services.NewComponentService(registry, cfg.ComponentsDir, llmService)
	if err != nil {
		return fmt.Errorf("初始化组件库失败: %w", err)
	}
	container.Register("registry", registry)
	container.Register("component", componentService)

	// 5. 分段与选型
	segmentService := services.NewSegmentService(llmService)
	container.Register("segment", segmentService)

	// 6. 项目持久化
	projectService := services.NewProjectService("projects", fileStorage)
	container.Register("project", projectService)

	// 7. 合成管线
	composeService := services.NewComposeService(segmentService, projectService, registry)
	container.Register("compose", composeService)

	// 8. 封面截图
	snapshotService := services.NewSnapshotService(projectService)
	container.Register("snapshot", snapshotService)

	// 9. 分享
	shareService := services.NewShareService(cfg.BaseURL, projectService)
	container.Register("share", shareService)

	// 10. 系统状态
	systemService := services.NewSystemService(cfg.DataDir)
	container.Register("system", systemService)

	// 11. 用量统计
	statsService := services.NewStatsService(filepath.Join(cfg.DataDir, "stats"))
	container.Register("stats", statsService)

	utils.Infof("✅ 服务初始化完成，共 %d 个", len(container.GetNames()))
	return nil
}

// Cleanup 停机前收尾：把统计等带脏状态的服务刷盘
func Cleanup() {
	container := di.GetContainer()

	if statsService, ok := container.Get("stats").(*services.StatsService); ok {
		if err := statsService.Close(); err != nil {
			utils.Warnf("关闭统计服务失败: %v", err)
		}
	}
}
