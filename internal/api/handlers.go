// internal/api/handlers.go
package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Corphon/ClipMotionMCP/internal/config"
	"github.com/Corphon/ClipMotionMCP/internal/models"
	"github.com/Corphon/ClipMotionMCP/internal/services"
	"github.com/Corphon/ClipMotionMCP/internal/utils"
	"github.com/gin-gonic/gin"
)

// Handler 处理API请求
type Handler struct {
	// 核心服务
	ProjectService   *services.ProjectService   // 项目服务
	ComposeService   *services.ComposeService   // 合成管线服务
	ComponentService *services.ComponentService // 组件库服务
	SnapshotService  *services.SnapshotService  // 封面截图服务
	ShareService     *services.ShareService     // 分享服务
	SystemService    *services.SystemService    // 系统状态服务
	StatsService     *services.StatsService     // 统计服务
	ConfigService    *services.ConfigService    // 配置服务
	LLMService       *services.LLMService       // LLM服务
	Response         *ResponseHelper            // 响应助手
}

// APIResponse 标准API响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"` // 用于调试和追踪
}

// APIError 标准错误格式
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// PaginationMeta 分页元数据
type PaginationMeta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// PaginatedResponse 带分页的响应
type PaginatedResponse struct {
	*APIResponse
	Meta *PaginationMeta `json:"meta,omitempty"`
}

// ------------------------------------------------
// 请求结构
// ------------------------------------------------

// CreateProjectRequest 创建项目
type CreateProjectRequest struct {
	Title string `json:"title"`
	Topic string `json:"topic"`
}

// ComposeRequest 全自动合成
type ComposeRequest struct {
	SRTText string `json:"srt_text"`
	Topic   string `json:"topic"`
}

// PreviewRequest 免保存的预览合成
type PreviewRequest struct {
	Title   string `json:"title"`
	SRTText string `json:"srt_text"`
	Topic   string `json:"topic"`
}

// ManualComposeRequest 跳过AI、用调用方给定的分段和选型合成
type ManualComposeRequest struct {
	SRTText    string             `json:"srt_text"`
	Segments   []models.Segment   `json:"segments"`
	Selections []models.Selection `json:"selections"`
}

// PosterRequest 截取封面
type PosterRequest struct {
	AtSeconds float64 `json:"at_seconds"`
}

// RegeneratePostersRequest 批量重截封面
type RegeneratePostersRequest struct {
	ProjectIDs []string `json:"project_ids"`
	AtSeconds  float64  `json:"at_seconds"`
}

// GenerateComponentRequest 用自然语言描述生成组件
type GenerateComponentRequest struct {
	Description string `json:"description"`
}

// SettingsRequest 更新LLM配置
type SettingsRequest struct {
	Provider string            `json:"provider"`
	Config   map[string]string `json:"config"`
}

// ------------------------------------------------
// 页面
// ------------------------------------------------

// IndexPage 项目列表首页
func (h *Handler) IndexPage(c *gin.Context) {
	projects, err := h.ProjectService.ListProjects()
	if err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{"error": err.Error()})
		return
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"title":    "ClipMotion",
		"projects": projects,
	})
}

// PlayerPage 项目的播放页：宿主视频 + 动画文档iframe
func (h *Handler) PlayerPage(c *gin.Context) {
	projectID := c.Param("id")

	project, err := h.ProjectService.GetProject(projectID)
	if err != nil {
		c.HTML(http.StatusNotFound, "error.html", gin.H{"error": "项目不存在"})
		return
	}
	if !project.HasComposed {
		c.HTML(http.StatusNotFound, "error.html", gin.H{"error": "项目还没有合成动画文档"})
		return
	}

	role := c.DefaultQuery("role", RoleHost)
	if role != RoleHost && role != RoleViewer {
		role = RoleHost
	}

	c.HTML(http.StatusOK, "player.html", gin.H{
		"project":        project,
		"role":           role,
		"compositionURL": fmt.Sprintf("/compositions/%s", project.ID),
		"wsPath":         fmt.Sprintf("/ws/playback/%s?role=%s", project.ID, role),
	})
}

// SettingsPage 设置页面
func (h *Handler) SettingsPage(c *gin.Context) {
	c.HTML(http.StatusOK, "settings.html", gin.H{
		"title": "设置",
	})
}

// ServeComposition 直接伺服合成好的自包含HTML文档
// 播放页的iframe和截图服务都从这里取
func (h *Handler) ServeComposition(c *gin.Context) {
	projectID := c.Param("id")

	project, err := h.ProjectService.GetProject(projectID)
	if err != nil {
		h.Response.NotFound(c, "项目")
		return
	}
	if !project.HasComposed {
		h.Response.Error(c, http.StatusNotFound, ErrorProjectNotComposed, "项目还没有合成动画文档")
		return
	}

	data, err := os.ReadFile(h.ProjectService.ComposedHTMLPath(projectID))
	if err != nil {
		h.Response.InternalError(c, "读取合成文档失败")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}

// ServePoster 伺服项目海报图片
func (h *Handler) ServePoster(c *gin.Context) {
	project, err := h.ProjectService.GetProject(c.Param("id"))
	if err != nil {
		h.Response.NotFound(c, "项目")
		return
	}
	if project.PosterPath == "" {
		h.Response.NotFound(c, "文件")
		return
	}

	c.File(project.PosterPath)
}

// PlaybackWebSocket 播放同步WebSocket入口
func (h *Handler) PlaybackWebSocket(c *gin.Context) {
	projectID := c.Param("id")

	if _, err := h.ProjectService.GetProject(projectID); err != nil {
		h.Response.NotFound(c, "项目")
		return
	}

	role := c.DefaultQuery("role", RoleViewer)
	if role != RoleHost && role != RoleViewer {
		h.Response.BadRequest(c, "role必须是host或viewer")
		return
	}

	if err := playbackManager.ServePlayback(c.Writer, c.Request, projectID, role); err != nil {
		utils.Warnf("WebSocket升级失败: %v", err)
	}
}

// GetPlaybackStatus 播放房间概况（调试用）
func (h *Handler) GetPlaybackStatus(c *gin.Context) {
	status := playbackManager.GetStatus()
	status["timestamp"] = time.Now().Format(time.RFC3339)
	c.JSON(http.StatusOK, status)
}

// ------------------------------------------------
// 项目
// ------------------------------------------------

// GetProjects 列出全部项目
func (h *Handler) GetProjects(c *gin.Context) {
	projects, err := h.ProjectService.ListProjects()
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, projects)
}

// CreateProject 创建项目
func (h *Handler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	project, err := h.ProjectService.CreateProject(req.Title, req.Topic)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}

	h.Response.Created(c, project, "项目创建成功")
}

// GetProject 读取项目元数据
func (h *Handler) GetProject(c *gin.Context) {
	project, err := h.ProjectService.GetProject(c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, project)
}

// UpdateProject 更新项目标题和主题
func (h *Handler) UpdateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	project, err := h.ProjectService.GetProject(c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}

	if strings.TrimSpace(req.Title) != "" {
		project.Title = req.Title
	}
	project.Topic = req.Topic

	if err := h.ProjectService.UpdateProject(project); err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, project, "项目更新成功")
}

// DeleteProject 删除项目及其全部生成内容
func (h *Handler) DeleteProject(c *gin.Context) {
	if err := h.ProjectService.DeleteProject(c.Param("id")); err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, nil, "项目已删除")
}

// GetGenerated 读取项目的全部生成内容
func (h *Handler) GetGenerated(c *gin.Context) {
	bundle, err := h.ProjectService.LoadGenerated(c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, bundle)
}

// ------------------------------------------------
// 合成管线
// ------------------------------------------------

// Compose 对项目执行全自动合成：解析 → 分段 → 选型 → 装配 → 保存
func (h *Handler) Compose(c *gin.Context) {
	var req ComposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}
	if strings.TrimSpace(req.SRTText) == "" {
		h.Response.BadRequest(c, "srt_text不能为空")
		return
	}

	start := time.Now()
	result, err := h.ComposeService.Compose(c.Request.Context(), c.Param("id"), req.SRTText, req.Topic)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}

	if err := h.StatsService.RecordComposition(estimateTokens(req.SRTText)); err != nil {
		utils.Warnf("记录合成统计失败: %v", err)
	}
	utils.NewAPIMetrics().RecordComposition(c.Param("id"), len(result.Composition.SceneTable), time.Since(start))

	h.Response.Success(c, result, "合成完成")
}

// Preview 免保存预览：跑完整管线但不落盘、不关联项目
func (h *Handler) Preview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}
	if strings.TrimSpace(req.SRTText) == "" {
		h.Response.BadRequest(c, "srt_text不能为空")
		return
	}

	result, err := h.ComposeService.Preview(c.Request.Context(), req.Title, req.SRTText, req.Topic)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, result)
}

// ComposeManual 跳过AI管线，直接用调用方给定的分段与选型合成
func (h *Handler) ComposeManual(c *gin.Context) {
	var req ManualComposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	result, err := h.ComposeService.ComposeManual(c.Param("id"), req.SRTText, req.Segments, req.Selections)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, result, "合成完成")
}

// estimateTokens 对送入模型的文本做粗略token估算，只用于用量统计
func estimateTokens(text string) int {
	return len([]rune(text)) / 2
}

// ------------------------------------------------
// 视频与封面
// ------------------------------------------------

// 允许上传的视频格式
var allowedVideoExts = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mov":  true,
}

const maxVideoSize = 500 << 20 // 500MB

// UploadVideo 上传宿主视频并绑定到项目
func (h *Handler) UploadVideo(c *gin.Context) {
	projectID := c.Param("id")
	if _, err := h.ProjectService.GetProject(projectID); err != nil {
		h.Response.FromError(c, err)
		return
	}

	file, err := c.FormFile("video")
	if err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorFileUploadFailed, "缺少video文件字段")
		return
	}
	if file.Size > maxVideoSize {
		h.Response.Error(c, http.StatusBadRequest, ErrorFileInvalid, "视频文件超过500MB上限")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedVideoExts[ext] {
		h.Response.Error(c, http.StatusBadRequest, ErrorFileInvalid, "只支持mp4/webm/mov格式")
		return
	}

	cfg := config.GetCurrentConfig()
	uploadDir := filepath.Join(cfg.StaticDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		h.Response.InternalError(c, "创建上传目录失败")
		return
	}

	filename := fmt.Sprintf("%s_%d%s", projectID, time.Now().UnixNano(), ext)
	if err := c.SaveUploadedFile(file, filepath.Join(uploadDir, filename)); err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorFileUploadFailed, "保存视频失败")
		return
	}

	videoPath := "/static/uploads/" + filename
	if err := h.ProjectService.SetVideoPath(projectID, videoPath); err != nil {
		h.Response.FromError(c, err)
		return
	}

	h.Response.Success(c, gin.H{"video_path": videoPath}, "视频上传成功")
}

// CapturePoster 在指定时间点截取合成文档的一帧作为封面
func (h *Handler) CapturePoster(c *gin.Context) {
	var req PosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}
	if req.AtSeconds < 0 {
		h.Response.BadRequest(c, "at_seconds不能为负数")
		return
	}

	start := time.Now()
	posterPath, err := h.SnapshotService.CapturePoster(c.Request.Context(), c.Param("id"), req.AtSeconds)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	utils.NewAPIMetrics().RecordSnapshot(c.Param("id"), time.Since(start))

	h.Response.Success(c, gin.H{"poster_path": posterPath}, "封面截取成功")
}

// RegeneratePosters 批量重截封面，单个失败不影响其他项目
func (h *Handler) RegeneratePosters(c *gin.Context) {
	var req RegeneratePostersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}
	if len(req.ProjectIDs) == 0 {
		h.Response.BadRequest(c, "project_ids不能为空")
		return
	}

	failures := h.SnapshotService.RegeneratePosters(c.Request.Context(), req.ProjectIDs, req.AtSeconds)

	failed := make(map[string]string, len(failures))
	for id, err := range failures {
		failed[id] = err.Error()
	}

	h.Response.Success(c, gin.H{
		"requested": len(req.ProjectIDs),
		"succeeded": len(req.ProjectIDs) - len(failed),
		"failed":    failed,
	})
}

// ------------------------------------------------
// 分享
// ------------------------------------------------

// GetShareInfo 返回项目的分享链接
func (h *Handler) GetShareInfo(c *gin.Context) {
	info, err := h.ShareService.GetShareInfo(c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, info)
}

// ShareQRCode 返回分享链接的二维码PNG
func (h *Handler) ShareQRCode(c *gin.Context) {
	size := 0
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.Response.BadRequest(c, "size必须是整数")
			return
		}
		size = parsed
	}

	png, err := h.ShareService.GenerateQRCode(c.Param("id"), size)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// ------------------------------------------------
// 组件库
// ------------------------------------------------

// GetComponents 列出组件库里全部组件的模式
func (h *Handler) GetComponents(c *gin.Context) {
	h.Response.Success(c, h.ComponentService.GetSchemas())
}

// RegisterComponent 接收YAML清单注册自定义组件
func (h *Handler) RegisterComponent(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil || len(data) == 0 {
		h.Response.Error(c, http.StatusBadRequest, ErrorManifestInvalid, "请求体需要是组件清单YAML")
		return
	}

	descriptor, err := h.ComponentService.AcceptManifest(data)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}

	h.Response.Created(c, descriptor, "组件注册成功")
}

// GenerateComponent 用自然语言描述让AI生成并注册新组件
func (h *Handler) GenerateComponent(c *gin.Context) {
	var req GenerateComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		h.Response.BadRequest(c, "description不能为空")
		return
	}

	descriptor, err := h.ComponentService.GenerateComponent(c.Request.Context(), req.Description)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}

	h.Response.Created(c, descriptor, "组件生成成功")
}

// RemoveComponent 移除自定义组件
func (h *Handler) RemoveComponent(c *gin.Context) {
	if err := h.ComponentService.RemoveCustomComponent(c.Param("id")); err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, nil, "组件已移除，重启后生效")
}

// ------------------------------------------------
// 设置与状态
// ------------------------------------------------

// GetSettings 返回当前LLM配置（密钥打码）
func (h *Handler) GetSettings(c *gin.Context) {
	cfg := h.ConfigService.GetCurrentConfig()

	masked := make(map[string]string, len(cfg.LLMConfig))
	for k, v := range cfg.LLMConfig {
		if k == "api_key" {
			masked[k] = maskAPIKey(v)
		} else {
			masked[k] = v
		}
	}

	ready, state := h.LLMService.GetProviderStatus()
	h.Response.Success(c, gin.H{
		"provider":    cfg.LLMProvider,
		"config":      masked,
		"ready":       ready,
		"ready_state": state,
	})
}

// SaveSettings 更新LLM提供商配置并热切换
func (h *Handler) SaveSettings(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}
	if req.Provider == "" {
		h.Response.Error(c, http.StatusBadRequest, ErrorLLMConfigInvalid, "provider不能为空")
		return
	}
	if req.Config == nil {
		req.Config = make(map[string]string)
	}

	if err := h.ConfigService.UpdateLLMConfig(req.Provider, req.Config, "api"); err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorLLMConfigInvalid, err.Error())
		return
	}

	if err := h.LLMService.UpdateProvider(req.Provider, req.Config); err != nil {
		h.Response.Error(c, http.StatusBadGateway, ErrorLLMServiceUnavailable, err.Error())
		return
	}

	h.Response.Success(c, nil, "设置已保存")
}

// GetLLMStatus 返回LLM服务的就绪状态
func (h *Handler) GetLLMStatus(c *gin.Context) {
	ready, state := h.LLMService.GetProviderStatus()
	h.Response.Success(c, gin.H{
		"ready":    ready,
		"state":    state,
		"provider": h.LLMService.GetProviderName(),
	})
}

// GetSystemStatus 返回主机资源状态
func (h *Handler) GetSystemStatus(c *gin.Context) {
	h.Response.Success(c, h.SystemService.GetStatus())
}

// GetUsageStats 返回用量统计
func (h *Handler) GetUsageStats(c *gin.Context) {
	h.Response.Success(c, h.StatsService.GetUsageStats())
}

// GetMetrics 返回进程内指标快照
func (h *Handler) GetMetrics(c *gin.Context) {
	h.Response.Success(c, utils.GetMetricsCollector().GetMetrics())
}

// maskAPIKey 打码密钥，只保留首尾各4个字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		if key == "" {
			return ""
		}
		return "****"
	}
	return key[:4] + strings.Repeat("*", 8) + key[len(key)-4:]
}
