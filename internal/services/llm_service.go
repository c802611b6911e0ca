// internal/services/llm_service.go
package services

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/Corphon/ClipMotionMCP/internal/config"
	apperrors "github.com/Corphon/ClipMotionMCP/internal/errors"
	"github.com/Corphon/ClipMotionMCP/internal/llm"
)

var ErrLLMNotReady = errors.New("llm service not ready")

var providerDefaultModels = map[string]string{
	"openai":    "gpt-4.1",
	"anthropic": "claude-sonnet-4-5",
	"google":    "gemini-2.5-flash",
}

// LLMService 提供统一的大语言模型调用入口
// 所有生成决策（分段、选型、组件生成）都经过这里，
// 错误在这里统一归类：配额受限、模型输出不可解析、其他
type LLMService struct {
	providerMutex      sync.RWMutex
	provider           llm.Provider
	providerName       string
	activeDefaultModel string
	isReady            bool
	readyState         string
	cache              *llmCache
}

type llmCache struct {
	mutex      sync.RWMutex
	entries    map[string]*cacheEntry
	expiration time.Duration
}

type cacheEntry struct {
	text      string
	createdAt time.Time
}

// NewLLMService 从当前配置创建LLM服务
// 配置不完整时返回未就绪的服务而不是错误，允许先启动后配置
func NewLLMService() (*LLMService, error) {
	service := newBaseLLMService()

	cfg := config.GetCurrentConfig()
	if cfg == nil {
		service.readyState = "无法读取配置"
		return service, nil
	}

	if cfg.LLMProvider == "" || (cfg.LLMConfig != nil && cfg.LLMConfig["api_key"] == "") {
		service.readyState = "API密钥未配置"
		return service, nil
	}

	provider, err := llm.GetProvider(cfg.LLMProvider, cfg.LLMConfig)
	if err != nil {
		service.readyState = fmt.Sprintf("初始化失败: %v", err)
		return service, nil
	}

	service.provider = provider
	service.providerName = cfg.LLMProvider
	service.activeDefaultModel = cfg.LLMConfig["default_model"]
	service.isReady = true
	service.readyState = "就绪"

	return service, nil
}

// NewEmptyLLMService 创建未就绪的占位服务
func NewEmptyLLMService() *LLMService {
	service := newBaseLLMService()
	service.providerName = "empty"
	service.readyState = "待机模式，请在设置中配置API密钥"
	return service
}

func newBaseLLMService() *LLMService {
	return &LLMService{
		readyState: "未初始化",
		cache: &llmCache{
			entries:    make(map[string]*cacheEntry),
			expiration: 30 * time.Minute,
		},
	}
}

// IsReady 返回服务是否可以发起生成请求
func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.provider != nil && s.isReady
}

// GetReadyState 返回就绪状态描述
func (s *LLMService) GetReadyState() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.readyState
}

// GetProviderStatus 返回是否就绪和可读描述
func (s *LLMService) GetProviderStatus() (bool, string) {
	if s == nil {
		return false, "LLM服务实例未初始化"
	}
	if s.IsReady() {
		return true, "就绪"
	}
	return false, s.GetReadyState()
}

// GetProviderName 返回当前提供商名称
func (s *LLMService) GetProviderName() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.providerName
}

// UpdateProvider 热更新提供商配置
func (s *LLMService) UpdateProvider(providerName string, providerConfig map[string]string) error {
	provider, err := llm.GetProvider(providerName, providerConfig)
	if err != nil {
		s.providerMutex.Lock()
		s.isReady = false
		s.readyState = fmt.Sprintf("配置失败: %v", err)
		s.providerMutex.Unlock()
		return err
	}

	s.providerMutex.Lock()
	defer s.providerMutex.Unlock()

	s.provider = provider
	s.providerName = providerName
	s.activeDefaultModel = providerConfig["default_model"]
	s.isReady = true
	s.readyState = "就绪"

	// 提供商变了，旧缓存作废
	s.cache = &llmCache{
		entries:    make(map[string]*cacheEntry),
		expiration: 30 * time.Minute,
	}

	return nil
}

// resolveModel 请求未指定模型时按提供商取默认模型
func (s *LLMService) resolveModel(requested string) string {
	if requested != "" {
		return requested
	}

	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	if s.activeDefaultModel != "" {
		return s.activeDefaultModel
	}
	return providerDefaultModels[s.providerName]
}

func (s *LLMService) cacheKey(prompt, systemPrompt, model string) string {
	s.providerMutex.RLock()
	providerName := s.providerName
	s.providerMutex.RUnlock()

	h := md5.New()
	fmt.Fprintf(h, "%s:::%s:::%s:::%s", prompt, systemPrompt, model, providerName)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (c *llmCache) get(key string) (string, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.entries[key]
	if !exists || time.Since(entry.createdAt) > c.expiration {
		return "", false
	}
	return entry.text, true
}

func (c *llmCache) put(key, text string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = &cacheEntry{text: text, createdAt: time.Now()}

	// 粗放的容量控制：超限时整体清空，比精确LRU便宜得多
	if len(c.entries) > 1000 {
		c.entries = make(map[string]*cacheEntry)
	}
}

// CreateCompletion 发起一次普通文本生成
func (s *LLMService) CreateCompletion(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.providerMutex.RLock()
	provider := s.provider
	ready := s.isReady
	state := s.readyState
	s.providerMutex.RUnlock()

	if !ready || provider == nil {
		return nil, fmt.Errorf("%w: %s", ErrLLMNotReady, state)
	}

	req.Model = s.resolveModel(req.Model)

	resp, err := provider.CompleteText(ctx, req)
	if err != nil {
		return nil, classifyProviderError(err)
	}
	return resp, nil
}

// CreateStructuredCompletion 发起生成并把结果解析到outputSchema
// 模型返回的Markdown围栏、前后缀说明文字都会被清理掉再解析；
// 清理后仍然解析失败的，归类为模型输出错误
func (s *LLMService) CreateStructuredCompletion(ctx context.Context, prompt, systemPrompt string, outputSchema interface{}) error {
	s.providerMutex.RLock()
	provider := s.provider
	ready := s.isReady
	state := s.readyState
	s.providerMutex.RUnlock()

	if !ready || provider == nil {
		return fmt.Errorf("%w: %s", ErrLLMNotReady, state)
	}

	model := s.resolveModel("")
	key := s.cacheKey(prompt, systemPrompt, model)

	if text, hit := s.cache.get(key); hit {
		if err := json.Unmarshal([]byte(text), outputSchema); err == nil {
			return nil
		}
	}

	structuredSystemPrompt := systemPrompt
	if structuredSystemPrompt != "" {
		structuredSystemPrompt += "\n\n"
	}
	structuredSystemPrompt += "只返回符合给定结构的合法JSON，不要添加解释或前言。"

	req := llm.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: structuredSystemPrompt,
		Temperature:  0.3,
		Model:        model,
	}

	resp, err := provider.CompleteText(ctx, req)
	if err != nil {
		return classifyProviderError(err)
	}

	text := cleanJSONString(resp.Text)
	if err := json.Unmarshal([]byte(text), outputSchema); err != nil {
		return apperrors.NewBadModelOutputError(
			fmt.Sprintf("模型输出无法解析为结构化数据: %v\n模型返回: %s", err, truncate(text, 500)), err)
	}

	s.cache.put(key, text)
	return nil
}

// classifyProviderError 把提供商错误归入应用错误分类
// 配额受限是可恢复的（换提供商或稍后重试），必须和其他错误区分开
func classifyProviderError(err error) error {
	if errors.Is(err, llm.ErrRateLimited) {
		return apperrors.NewRateLimitedError("AI服务配额或频率受限，请稍后重试", err)
	}
	return apperrors.NewProcessingError("AI服务调用失败", err)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// jsonNoiseReplacer 去掉Markdown围栏和常见的不可见噪声字符
var jsonNoiseReplacer = strings.NewReplacer(
	"```json", "",
	"```", "",
	"\uFEFF", "",
	" ", " ",
)

// fullWidthPunctuation 中文模型偶尔把结构标点写成全角，在字符串外统一换回半角
var fullWidthPunctuation = map[rune]rune{
	'：': ':',
	'，': ',',
	'【': '[',
	'】': ']',
	'｛': '{',
	'｝': '}',
}

// cleanJSONString 从模型返回的自由文本里抠出第一个完整的JSON值
func cleanJSONString(s string) string {
	if s == "" {
		return s
	}

	s = jsonNoiseReplacer.Replace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)

	// 第一个 { 或 [ 之前的内容全部丢弃
	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	s = strings.TrimSpace(s[start:])
	if s == "" {
		return s
	}

	s = normalizeStructuralPunctuation(s)

	isArray := s[0] == '['

	// 括号配对计数，截取第一个完整的JSON值
	balance := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}
		if char == '\\' {
			escaped = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		if isArray {
			switch char {
			case '[':
				balance++
			case ']':
				balance--
			}
		} else {
			switch char {
			case '{':
				balance++
			case '}':
				balance--
			}
		}

		if balance == 0 {
			return strings.TrimSpace(s[:i+1])
		}
	}

	// 没配对上，回退为截到最后一个结束符
	end := strings.LastIndex(s, "}")
	if isArray {
		end = strings.LastIndex(s, "]")
	}
	if end >= 0 {
		return strings.TrimSpace(s[:end+1])
	}
	return strings.TrimSpace(s)
}

// normalizeStructuralPunctuation 把字符串外的全角结构标点换回半角
func normalizeStructuralPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for _, r := range s {
		if inString {
			if !escaped && r == '\\' {
				escaped = true
			} else if escaped {
				escaped = false
			} else if r == '"' {
				inString = false
			}
			b.WriteRune(r)
			continue
		}

		if r == '"' {
			inString = true
			b.WriteRune(r)
			continue
		}
		if half, ok := fullWidthPunctuation[r]; ok {
			b.WriteRune(half)
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

// CleanLLMJSONResponse 暴露给其他服务的JSON清洗入口
func CleanLLMJSONResponse(raw string) string {
	return cleanJSONString(raw)
}
